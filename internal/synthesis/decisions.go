package synthesis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/claimforge/claimforge/internal/model"
)

// Decision is the model's verdict for one evidence item: match an
// existing claim by label, or propose a new one. Exactly one of Match
// and NewClaim should be set; ambiguous decisions are skipped at apply
// time rather than guessed at.
type Decision struct {
	EvidenceID string            `json:"evidence_id"`
	Match      *string           `json:"match"`
	Strength   string            `json:"strength,omitempty"`
	NewClaim   *NewClaimProposal `json:"new_claim"`
}

// NewClaimProposal describes a claim the model wants created
type NewClaimProposal struct {
	Type        string `json:"type"`
	Label       string `json:"label"`
	Description string `json:"description,omitempty"`
}

// decisionEnvelope accepts the object form some JSON modes require
type decisionEnvelope struct {
	Decisions []Decision `json:"decisions"`
}

// ParseDecisions validates a raw model response against the batch. Any
// structural problem fails the whole batch: partial application of a
// half-understood response is worse than retrying the batch later.
func ParseDecisions(raw string, batch []model.EvidenceItem) ([]Decision, error) {
	cleaned := extractJSON(raw)
	if cleaned == "" {
		return nil, fmt.Errorf("empty decision response")
	}

	var decisions []Decision
	if strings.HasPrefix(cleaned, "[") {
		if err := json.Unmarshal([]byte(cleaned), &decisions); err != nil {
			return nil, fmt.Errorf("parse decision array: %w", err)
		}
	} else {
		var env decisionEnvelope
		if err := json.Unmarshal([]byte(cleaned), &env); err != nil {
			return nil, fmt.Errorf("parse decision envelope: %w", err)
		}
		if env.Decisions == nil {
			return nil, fmt.Errorf("decision envelope missing decisions array")
		}
		decisions = env.Decisions
	}

	valid := make(map[string]bool, len(batch))
	for _, ev := range batch {
		valid[ev.ID.String()] = true
	}

	seen := make(map[string]bool, len(decisions))
	for i := range decisions {
		d := &decisions[i]
		if d.EvidenceID == "" {
			return nil, fmt.Errorf("decision %d missing evidence_id", i)
		}
		if !valid[d.EvidenceID] {
			return nil, fmt.Errorf("decision references unknown evidence id %q", d.EvidenceID)
		}
		if seen[d.EvidenceID] {
			return nil, fmt.Errorf("duplicate decision for evidence id %q", d.EvidenceID)
		}
		seen[d.EvidenceID] = true

		d.Strength = normalizeStrength(d.Strength)
	}

	return decisions, nil
}

// StrengthOf returns the typed strength, defaulting to medium
func (d *Decision) StrengthOf() model.EvidenceStrength {
	s := model.EvidenceStrength(d.Strength)
	if !s.Valid() {
		return model.StrengthMedium
	}
	return s
}

// EvidenceUUID parses the decision's evidence id
func (d *Decision) EvidenceUUID() (uuid.UUID, error) {
	return uuid.Parse(d.EvidenceID)
}

// normalizeStrength lowercases and defaults unknown values to medium.
// The enum is advisory; a misspelled strength should not sink a batch.
func normalizeStrength(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	if !model.EvidenceStrength(s).Valid() {
		return string(model.StrengthMedium)
	}
	return s
}

// extractJSON strips markdown code fences some models wrap around JSON
func extractJSON(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		raw = strings.TrimPrefix(raw, "```json")
		raw = strings.TrimPrefix(raw, "```")
		raw = strings.TrimSpace(raw)
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(strings.Trim(raw, "`"))
}
