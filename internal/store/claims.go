package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/claimforge/claimforge/internal/logger"
	"github.com/claimforge/claimforge/internal/model"
)

// ClaimRepo persists identity claims and their evidence links
type ClaimRepo interface {
	CreateClaim(ctx context.Context, claim *model.IdentityClaim) error
	ReinforceClaim(ctx context.Context, claimID uuid.UUID, confidence float64) error
	UpsertClaimEvidence(ctx context.Context, link *model.ClaimEvidence) error
	SearchSimilar(ctx context.Context, userID uuid.UUID, embedding model.Vector, threshold float64, limit int) ([]model.RetrievedClaim, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type claimRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewClaimRepo creates a claim repository
func NewClaimRepo(db *gorm.DB, baseLog *logger.Logger) ClaimRepo {
	return &claimRepo{db: db, log: baseLog.With("repo", "ClaimRepo")}
}

// CreateClaim inserts a new identity claim
func (r *claimRepo) CreateClaim(ctx context.Context, claim *model.IdentityClaim) error {
	if claim.ID == uuid.Nil {
		claim.ID = uuid.New()
	}
	if err := r.db.WithContext(ctx).Create(claim).Error; err != nil {
		return fmt.Errorf("create claim: %w", err)
	}
	return nil
}

// ReinforceClaim raises a claim's confidence. GREATEST keeps the stored
// value monotonic even if two runs race on the same claim.
func (r *claimRepo) ReinforceClaim(ctx context.Context, claimID uuid.UUID, confidence float64) error {
	res := r.db.WithContext(ctx).
		Model(&model.IdentityClaim{}).
		Where("id = ?", claimID).
		Updates(map[string]interface{}{
			"confidence": gorm.Expr("GREATEST(confidence, ?)", confidence),
			"updated_at": time.Now().UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("reinforce claim: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("reinforce claim: claim %s not found", claimID)
	}
	return nil
}

// UpsertClaimEvidence inserts or refreshes the (evidence, claim) link
func (r *claimRepo) UpsertClaimEvidence(ctx context.Context, link *model.ClaimEvidence) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "evidence_id"}, {Name: "claim_id"}},
			DoUpdates: clause.Assignments(map[string]interface{}{
				"strength":   link.Strength,
				"updated_at": time.Now().UTC(),
			}),
		}).
		Create(link).Error
	if err != nil {
		return fmt.Errorf("upsert claim evidence: %w", err)
	}
	return nil
}

// SearchSimilar runs a cosine similarity search over one user's claims,
// bounded by threshold and limit. The user's full claim set is never
// loaded; Postgres does the ranking.
func (r *claimRepo) SearchSimilar(ctx context.Context, userID uuid.UUID, embedding model.Vector, threshold float64, limit int) ([]model.RetrievedClaim, error) {
	if len(embedding) == 0 {
		return nil, fmt.Errorf("search similar: empty query embedding")
	}
	if limit <= 0 {
		limit = 25
	}

	lit := embedding.String()

	var rows []model.RetrievedClaim
	err := r.db.WithContext(ctx).Raw(`
		SELECT id, type, label, description, confidence,
		       1 - (embedding <=> ?::vector) AS similarity
		FROM identity_claims
		WHERE user_id = ?
		  AND deleted_at IS NULL
		  AND embedding IS NOT NULL
		  AND 1 - (embedding <=> ?::vector) >= ?
		ORDER BY embedding <=> ?::vector
		LIMIT ?`,
		lit, userID, lit, threshold, lit, limit,
	).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("search similar claims: %w", err)
	}

	return rows, nil
}

// CountByUser returns how many live claims a user owns
func (r *claimRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.IdentityClaim{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("count claims: %w", err)
	}
	return count, nil
}
