package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/claimforge/claimforge/internal/cache"
	"github.com/claimforge/claimforge/internal/embedding"
	"github.com/claimforge/claimforge/internal/llm"
	"github.com/claimforge/claimforge/internal/logger"
	"github.com/claimforge/claimforge/internal/model"
	"github.com/claimforge/claimforge/internal/retrieval"
	"github.com/claimforge/claimforge/internal/store"
	"github.com/claimforge/claimforge/internal/synthesis"
	"github.com/claimforge/claimforge/internal/worker"
)

var (
	synthUser      string
	synthBatchSize int
	synthTimeout   time.Duration
	synthOutJSON   string
	synthNoCache   bool
)

// synthesizeCmd represents the synthesize command
var synthesizeCmd = &cobra.Command{
	Use:   "synthesize <evidence.json>",
	Short: "Merge an evidence file into a user's claim set",
	Long: `Synthesize reads extracted evidence fragments from a JSON file and
merges them into the user's identity claims:
- Retrieve existing claims similar to each fragment (pgvector)
- Decide per batch whether each fragment corroborates a claim or warrants a new one
- Reinforce matched claims and create proposed ones

Fragments without embeddings are embedded first.

Example:
  claimforge synthesize evidence.json --user 6f1c...
  claimforge synthesize evidence.json --user 6f1c... --batch-size 5 --json summary.json`,
	Args: cobra.ExactArgs(1),
	RunE: runSynthesize,
}

func init() {
	rootCmd.AddCommand(synthesizeCmd)

	synthesizeCmd.Flags().StringVar(&synthUser, "user", "", "user id owning the claim set (required)")
	synthesizeCmd.Flags().IntVar(&synthBatchSize, "batch-size", 0, "evidence items per decision call (default from config)")
	synthesizeCmd.Flags().DurationVar(&synthTimeout, "timeout", 10*time.Minute, "overall run timeout")
	synthesizeCmd.Flags().StringVar(&synthOutJSON, "json", "", "write the run summary to this path")
	synthesizeCmd.Flags().BoolVar(&synthNoCache, "no-cache", false, "disable retrieval/embedding caches")

	_ = synthesizeCmd.MarkFlagRequired("user")
}

// evidenceFile is the on-disk input shape; a bare array also parses
type evidenceFile struct {
	Evidence []model.EvidenceItem `json:"evidence"`
}

func runSynthesize(cmd *cobra.Command, args []string) error {
	userID, err := uuid.Parse(synthUser)
	if err != nil {
		return fmt.Errorf("invalid --user id: %w", err)
	}

	evidence, err := readEvidenceFile(args[0])
	if err != nil {
		return err
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if synthBatchSize > 0 {
		cfg.Synthesis.BatchSize = synthBatchSize
	}
	if synthNoCache {
		cfg.Cache.Enabled = false
	}

	log, err := logger.New(cfg.Log.Mode)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), synthTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "Evidence: %d items from %s\n", len(evidence), args[0])
		fmt.Fprintf(os.Stderr, "User: %s\n", userID)
		fmt.Fprintf(os.Stderr, "Batch size: %d\n\n", cfg.Synthesis.BatchSize)
	}

	db, err := store.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	repo := store.NewClaimRepo(db, log)

	if verbose {
		if count, err := repo.CountByUser(ctx, userID); err == nil {
			fmt.Fprintf(os.Stderr, "Existing claims: %d\n", count)
		}
	}

	runCache := buildCache(cfg.Cache)

	if err := embedMissing(ctx, cfg, runCache, log, evidence); err != nil {
		return err
	}

	provider, err := llm.NewProvider(llm.ConfigFromModel(cfg.LLM))
	if err != nil {
		return fmt.Errorf("init LLM provider: %w", err)
	}

	retrieverOpts := []retrieval.Option{
		retrieval.WithThreshold(cfg.Synthesis.SimilarityThreshold),
		retrieval.WithLimit(cfg.Synthesis.MaxRetrieved),
	}
	if runCache != nil {
		retrieverOpts = append(retrieverOpts, retrieval.WithCache(runCache, cfg.Cache.TTL))
	}
	retriever := retrieval.NewRetriever(repo, log, retrieverOpts...)

	limiter := worker.NewLimiter(cfg.LLM.RequestsPerSecond, cfg.LLM.Burst)

	engine := synthesis.NewEngine(retriever, provider, repo, log,
		synthesis.WithBatchSize(cfg.Synthesis.BatchSize),
		synthesis.WithRetrievalWorkers(cfg.Concurrency.RetrievalWorkers),
		synthesis.WithLimiter(limiter),
		synthesis.WithMaxTokens(cfg.LLM.MaxTokens),
	)

	summary, err := engine.Synthesize(ctx, userID, evidence, synthesis.Options{
		OnProgress: func(p synthesis.Progress) {
			fmt.Fprintf(os.Stderr, "Batch %d/%d done\n", p.Current, p.Total)
		},
		OnClaimUpdate: func(u synthesis.ClaimUpdate) {
			if verbose {
				fmt.Fprintf(os.Stderr, "  %s: %s\n", u.Action, u.Label)
			}
		},
	})
	if err != nil {
		return fmt.Errorf("synthesis run: %w", err)
	}

	fmt.Printf("\nClaims created: %d\n", summary.ClaimsCreated)
	fmt.Printf("Claims updated: %d\n", summary.ClaimsUpdated)
	if summary.Unresolved > 0 {
		fmt.Printf("Unresolved:     %d (retryable on a future upload)\n", summary.Unresolved)
	}
	for _, w := range summary.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}

	if synthOutJSON != "" {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal summary: %w", err)
		}
		if err := os.WriteFile(synthOutJSON, data, 0644); err != nil {
			return fmt.Errorf("write summary: %w", err)
		}
	}

	return nil
}

// readEvidenceFile parses either {"evidence": [...]} or a bare array
func readEvidenceFile(path string) ([]model.EvidenceItem, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read evidence file: %w", err)
	}

	var file evidenceFile
	if err := json.Unmarshal(data, &file); err != nil {
		if arrErr := json.Unmarshal(data, &file.Evidence); arrErr != nil {
			return nil, fmt.Errorf("parse evidence file: %w", err)
		}
	}
	if len(file.Evidence) == 0 {
		return nil, fmt.Errorf("evidence file %s contains no items", path)
	}

	for i := range file.Evidence {
		ev := &file.Evidence[i]
		if ev.ID == uuid.Nil {
			ev.ID = uuid.New()
		}
		if !ev.Type.Valid() {
			return nil, fmt.Errorf("evidence %s has unknown type %q", ev.ID, ev.Type)
		}
	}
	return file.Evidence, nil
}

// embedMissing fills in vectors for fragments the extractor left bare
func embedMissing(ctx context.Context, cfg *model.Config, c cache.Cache, log *logger.Logger, evidence []model.EvidenceItem) error {
	var missing []int
	for i, ev := range evidence {
		if len(ev.Embedding) == 0 {
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	embedder, err := embedding.NewOpenAIEmbedder(cfg.Embedding, c, log)
	if err != nil {
		return fmt.Errorf("init embedder: %w", err)
	}

	texts := make([]string, len(missing))
	for j, i := range missing {
		texts[j] = evidence[i].Text
	}
	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		return fmt.Errorf("embed evidence: %w", err)
	}
	for j, i := range missing {
		evidence[i].Embedding = vectors[j]
	}
	return nil
}

// buildCache assembles the configured cache stack: memory, optionally
// layered over disk for reuse across runs.
func buildCache(cfg model.CacheConfig) cache.Cache {
	if !cfg.Enabled {
		return nil
	}

	mem := cache.NewMemoryCache(cfg.TTL, 2*cfg.TTL)
	if cfg.Dir == "" {
		return mem
	}
	return cache.NewLayeredCache(mem, cache.NewDiskCache(cfg.Dir, cfg.TTL))
}
