package model

import "github.com/google/uuid"

// EvidenceItem is an immutable fragment extracted from a resume or story
// by the upstream extraction pipeline. The synthesis engine reads it,
// never mutates it.
type EvidenceItem struct {
	ID        uuid.UUID    `json:"id"`
	Text      string       `json:"text"`
	Type      EvidenceType `json:"type"`
	Embedding Vector       `json:"embedding,omitempty"`

	// SourceDocumentID links back to the document or work-history entry
	// the fragment came from, when known.
	SourceDocumentID *uuid.UUID `json:"source_document_id,omitempty"`
}

// EvidenceType categorizes what kind of career signal a fragment carries
type EvidenceType string

const (
	EvidenceAccomplishment EvidenceType = "accomplishment"
	EvidenceSkillListed    EvidenceType = "skill_listed"
	EvidenceTraitIndicator EvidenceType = "trait_indicator"
	EvidenceEducation      EvidenceType = "education"
	EvidenceCertification  EvidenceType = "certification"
)

// Valid reports whether the evidence type is one of the known categories
func (t EvidenceType) Valid() bool {
	switch t {
	case EvidenceAccomplishment, EvidenceSkillListed, EvidenceTraitIndicator,
		EvidenceEducation, EvidenceCertification:
		return true
	}
	return false
}

// ClaimType returns the claim category an evidence fragment of this type
// produces when no existing claim matches it.
func (t EvidenceType) ClaimType() ClaimType {
	switch t {
	case EvidenceAccomplishment:
		return ClaimAchievement
	case EvidenceSkillListed:
		return ClaimSkill
	case EvidenceTraitIndicator:
		return ClaimTrait
	case EvidenceEducation:
		return ClaimEducation
	case EvidenceCertification:
		return ClaimCertification
	default:
		return ClaimSkill
	}
}
