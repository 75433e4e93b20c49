package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdentityClaim is a canonical, user-owned unit of career identity.
// One claim aggregates every evidence fragment that supports it.
type IdentityClaim struct {
	ID     uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`

	Type        ClaimType `gorm:"type:text;not null" json:"type"`
	Label       string    `gorm:"type:text;not null" json:"label"`
	Description string    `gorm:"type:text" json:"description,omitempty"`

	// Confidence is 0..1 and only ever moves up while a run reinforces
	// the claim with further evidence.
	Confidence float64 `gorm:"not null;default:0.5" json:"confidence"`

	// Embedding is the vector of the evidence that first created the
	// claim, used for similarity retrieval on later uploads.
	Embedding Vector `gorm:"type:vector(1536)" json:"-"`

	CreatedAt time.Time      `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null;default:now()" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (IdentityClaim) TableName() string { return "identity_claims" }

// ClaimType categorizes a unit of career identity
type ClaimType string

const (
	ClaimSkill         ClaimType = "skill"
	ClaimAchievement   ClaimType = "achievement"
	ClaimTrait         ClaimType = "trait"
	ClaimEducation     ClaimType = "education"
	ClaimCertification ClaimType = "certification"
)

// Valid reports whether the claim type is one of the known categories
func (t ClaimType) Valid() bool {
	switch t {
	case ClaimSkill, ClaimAchievement, ClaimTrait, ClaimEducation, ClaimCertification:
		return true
	}
	return false
}

// ClaimEvidence links one evidence fragment to one claim. The pair is
// unique: reprocessing the same evidence against the same claim updates
// the existing row instead of inserting a second one.
type ClaimEvidence struct {
	EvidenceID uuid.UUID `gorm:"type:uuid;not null;index:idx_claim_evidence,unique,priority:1" json:"evidence_id"`
	ClaimID    uuid.UUID `gorm:"type:uuid;not null;index:idx_claim_evidence,unique,priority:2" json:"claim_id"`

	Strength EvidenceStrength `gorm:"type:text;not null" json:"strength"`

	CreatedAt time.Time `gorm:"not null;default:now()" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;default:now()" json:"updated_at"`
}

func (ClaimEvidence) TableName() string { return "claim_evidence" }

// EvidenceStrength reflects how directly a fragment supports a claim
type EvidenceStrength string

const (
	StrengthWeak   EvidenceStrength = "weak"
	StrengthMedium EvidenceStrength = "medium"
	StrengthStrong EvidenceStrength = "strong"
)

// Valid reports whether the strength is one of the known levels
func (s EvidenceStrength) Valid() bool {
	switch s {
	case StrengthWeak, StrengthMedium, StrengthStrong:
		return true
	}
	return false
}

// RetrievedClaim is a claim row returned by similarity search, carrying
// the cosine similarity against the query embedding.
type RetrievedClaim struct {
	ID          uuid.UUID `json:"id"`
	Type        ClaimType `json:"type"`
	Label       string    `json:"label"`
	Description string    `json:"description,omitempty"`
	Confidence  float64   `json:"confidence"`
	Similarity  float64   `json:"similarity"`
}
