package synthesis

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/claimforge/claimforge/internal/logger"
	"github.com/claimforge/claimforge/internal/model"
)

// ClaimStore is the persistence dependency the writer needs, satisfied
// by the Postgres claim repository.
type ClaimStore interface {
	CreateClaim(ctx context.Context, claim *model.IdentityClaim) error
	ReinforceClaim(ctx context.Context, claimID uuid.UUID, confidence float64) error
	UpsertClaimEvidence(ctx context.Context, link *model.ClaimEvidence) error
}

// ClaimAction says what happened to a claim
type ClaimAction string

const (
	ActionCreated ClaimAction = "created"
	ActionUpdated ClaimAction = "updated"
)

// ClaimUpdate is emitted once per claim mutation
type ClaimUpdate struct {
	Label  string
	Action ClaimAction
}

// Writer applies batch decisions: linking evidence to matched claims,
// creating proposed ones, and registering creations in the run-local
// candidate set. Individual item failures never abort the batch; the
// item stays unresolved and is retryable on a future upload.
type Writer struct {
	store ClaimStore
	log   *logger.Logger
}

// NewWriter creates a claim writer
func NewWriter(store ClaimStore, log *logger.Logger) *Writer {
	return &Writer{store: store, log: log.With("component", "claim_writer")}
}

// applyResult tallies one batch's writes
type applyResult struct {
	created    int
	updated    int
	unresolved int
}

// Apply resolves each evidence item in the batch to exactly one outcome:
// a link to an existing claim, a newly created claim, or unresolved.
func (w *Writer) Apply(
	ctx context.Context,
	userID uuid.UUID,
	batch []model.EvidenceItem,
	decisions []Decision,
	claimContext []Candidate,
	run *CandidateSet,
	onClaimUpdate func(ClaimUpdate),
) applyResult {
	var res applyResult

	byEvidence := make(map[string]*Decision, len(decisions))
	for i := range decisions {
		byEvidence[decisions[i].EvidenceID] = &decisions[i]
	}

	byLabel := make(map[string]*Candidate, len(claimContext))
	for i := range claimContext {
		byLabel[normalizeLabel(claimContext[i].Label)] = &claimContext[i]
	}

	for _, ev := range batch {
		d, ok := byEvidence[ev.ID.String()]
		if !ok {
			w.log.Warn("no decision for evidence item, leaving unresolved",
				"evidence_id", ev.ID,
			)
			res.unresolved++
			continue
		}

		hasMatch := d.Match != nil && strings.TrimSpace(*d.Match) != ""
		hasNew := d.NewClaim != nil && strings.TrimSpace(d.NewClaim.Label) != ""

		switch {
		case hasMatch && hasNew:
			// Contradictory decision: the match is the safer read
			w.log.Warn("decision carries both match and new_claim, honoring the match",
				"evidence_id", ev.ID,
				"match", *d.Match,
			)
			w.applyMatch(ctx, ev, *d.Match, d.StrengthOf(), byLabel, run, onClaimUpdate, &res)

		case hasMatch:
			w.applyMatch(ctx, ev, *d.Match, d.StrengthOf(), byLabel, run, onClaimUpdate, &res)

		case hasNew:
			w.applyNewClaim(ctx, userID, ev, d, byLabel, run, onClaimUpdate, &res)

		default:
			// Neither branch present: skip rather than guess intent
			w.log.Warn("ambiguous decision with neither match nor new_claim, leaving unresolved",
				"evidence_id", ev.ID,
			)
			res.unresolved++
		}
	}

	return res
}

// applyMatch links evidence to an existing claim and reinforces it
func (w *Writer) applyMatch(
	ctx context.Context,
	ev model.EvidenceItem,
	label string,
	strength model.EvidenceStrength,
	byLabel map[string]*Candidate,
	run *CandidateSet,
	onClaimUpdate func(ClaimUpdate),
	res *applyResult,
) {
	cand, ok := byLabel[normalizeLabel(label)]
	if !ok {
		// A claim created moments ago in this same batch is not in the
		// batch context yet, but it is in the run-local set
		if local, found := run.Lookup(label); found {
			cand = local
			ok = true
		}
	}
	if !ok {
		w.log.Warn("matched label not present in claim context, leaving unresolved",
			"evidence_id", ev.ID,
			"label", label,
		)
		res.unresolved++
		return
	}

	link := &model.ClaimEvidence{
		EvidenceID: ev.ID,
		ClaimID:    cand.ID,
		Strength:   strength,
	}
	if err := w.store.UpsertClaimEvidence(ctx, link); err != nil {
		w.log.Warn("claim evidence upsert failed, leaving unresolved",
			"evidence_id", ev.ID,
			"claim_id", cand.ID,
			"error", err,
		)
		res.unresolved++
		return
	}

	newConfidence := reinforceConfidence(cand.Confidence, strength)
	if err := w.store.ReinforceClaim(ctx, cand.ID, newConfidence); err != nil {
		// The link is durable and the upsert is idempotent; a rerun
		// picks the confidence bump back up
		w.log.Warn("confidence reinforcement failed, leaving unresolved",
			"claim_id", cand.ID,
			"error", err,
		)
		res.unresolved++
		return
	}

	cand.Confidence = newConfidence
	run.Reinforce(cand.Label, newConfidence)

	if onClaimUpdate != nil {
		onClaimUpdate(ClaimUpdate{Label: cand.Label, Action: ActionUpdated})
	}
	res.updated++
}

// applyNewClaim creates the proposed claim, unless its label already
// names a known claim, in which case the proposal collapses to a match.
func (w *Writer) applyNewClaim(
	ctx context.Context,
	userID uuid.UUID,
	ev model.EvidenceItem,
	d *Decision,
	byLabel map[string]*Candidate,
	run *CandidateSet,
	onClaimUpdate func(ClaimUpdate),
	res *applyResult,
) {
	label := strings.TrimSpace(d.NewClaim.Label)

	if _, exists := byLabel[normalizeLabel(label)]; exists {
		w.applyMatch(ctx, ev, label, d.StrengthOf(), byLabel, run, onClaimUpdate, res)
		return
	}
	if _, exists := run.Lookup(label); exists {
		w.applyMatch(ctx, ev, label, d.StrengthOf(), byLabel, run, onClaimUpdate, res)
		return
	}

	claimType := model.ClaimType(strings.ToLower(strings.TrimSpace(d.NewClaim.Type)))
	if !claimType.Valid() {
		claimType = ev.Type.ClaimType()
	}

	claim := &model.IdentityClaim{
		ID:          uuid.New(),
		UserID:      userID,
		Type:        claimType,
		Label:       label,
		Description: strings.TrimSpace(d.NewClaim.Description),
		Confidence:  initialConfidence(d.StrengthOf()),
		Embedding:   ev.Embedding,
	}
	if err := w.store.CreateClaim(ctx, claim); err != nil {
		w.log.Warn("claim creation failed, leaving unresolved",
			"evidence_id", ev.ID,
			"label", label,
			"error", err,
		)
		res.unresolved++
		return
	}

	link := &model.ClaimEvidence{
		EvidenceID: ev.ID,
		ClaimID:    claim.ID,
		Strength:   d.StrengthOf(),
	}
	if err := w.store.UpsertClaimEvidence(ctx, link); err != nil {
		// The claim row exists; only the link write is retryable
		w.log.Warn("evidence link failed for new claim",
			"evidence_id", ev.ID,
			"claim_id", claim.ID,
			"error", err,
		)
	}

	run.Register(claim)

	if onClaimUpdate != nil {
		onClaimUpdate(ClaimUpdate{Label: claim.Label, Action: ActionCreated})
	}
	res.created++
}
