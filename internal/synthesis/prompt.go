package synthesis

import (
	"fmt"
	"strings"

	"github.com/claimforge/claimforge/internal/model"
)

const decisionSystemPrompt = `You maintain a user's career identity profile. You receive existing identity claims and new evidence fragments extracted from the user's resume or story. For each evidence fragment, decide whether it supports an existing claim or establishes a new one. Respond with strict JSON only.`

// BuildDecisionPrompt renders one batch's decision request: the
// deduplicated claim context followed by the batch's evidence, with the
// exact response schema the parser expects.
func BuildDecisionPrompt(context []Candidate, batch []model.EvidenceItem) string {
	var b strings.Builder

	if len(context) == 0 {
		b.WriteString("The user has no existing identity claims relevant to this evidence.\n")
	} else {
		b.WriteString("Existing identity claims:\n")
		for _, c := range context {
			b.WriteString(fmt.Sprintf("- label: %q, type: %s", c.Label, c.Type))
			if c.Description != "" {
				b.WriteString(fmt.Sprintf(", description: %q", c.Description))
			}
			b.WriteByte('\n')
		}
	}

	b.WriteString("\nNew evidence fragments:\n")
	for _, ev := range batch {
		b.WriteString(fmt.Sprintf("- evidence_id: %s, type: %s, text: %q\n", ev.ID, ev.Type, ev.Text))
	}

	b.WriteString(`
For each evidence fragment, decide exactly one of:
- it supports an existing claim: set "match" to that claim's label and "new_claim" to null
- it establishes a new claim: set "match" to null and fill "new_claim"

Rules:
- Match against existing claim labels exactly as listed above.
- Never propose a new claim whose label duplicates an existing claim.
- "strength" reflects how directly the evidence supports the claim: "weak", "medium", or "strong".
- new_claim "type" must be one of: skill, achievement, trait, education, certification.
- Include every evidence_id exactly once.

Respond with JSON only, in this shape:
{"decisions": [{"evidence_id": "...", "match": "existing label or null", "strength": "weak|medium|strong", "new_claim": {"type": "...", "label": "...", "description": "..."} }]}
`)

	return b.String()
}
