package synthesis

import "github.com/claimforge/claimforge/internal/model"

// strengthWeight maps evidence strength to a reinforcement weight
func strengthWeight(s model.EvidenceStrength) float64 {
	switch s {
	case model.StrengthStrong:
		return 0.50
	case model.StrengthWeak:
		return 0.15
	default:
		return 0.30
	}
}

// reinforceConfidence moves confidence toward 1 by the strength weight.
// Monotonic and bounded: conf' = conf + (1-conf)*w, so reinforcement
// never lowers a claim's confidence and never exceeds 1.
func reinforceConfidence(current float64, s model.EvidenceStrength) float64 {
	if current < 0 {
		current = 0
	}
	if current > 1 {
		current = 1
	}
	return current + (1-current)*strengthWeight(s)
}

// initialConfidence seeds a newly created claim from its first evidence
func initialConfidence(s model.EvidenceStrength) float64 {
	switch s {
	case model.StrengthStrong:
		return 0.70
	case model.StrengthWeak:
		return 0.35
	default:
		return 0.50
	}
}
