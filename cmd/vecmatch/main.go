package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/vecmatch/internal/domain"
	"github.com/kailas-cloud/vecmatch/internal/domain/corpus"
	"github.com/kailas-cloud/vecmatch/internal/sink"
	"github.com/kailas-cloud/vecmatch/internal/usecase/enrich"
	populateuc "github.com/kailas-cloud/vecmatch/internal/usecase/populate"
	reconcileuc "github.com/kailas-cloud/vecmatch/internal/usecase/reconcile"
	searchuc "github.com/kailas-cloud/vecmatch/internal/usecase/search"
	sentimentuc "github.com/kailas-cloud/vecmatch/internal/usecase/sentiment"
	"github.com/kailas-cloud/vecmatch/internal/version"
)

// rootFlags are shared by every subcommand.
type rootFlags struct {
	configPath string
	migrate    bool
	output     string
	outputPath string
	claimID    int64
	threshold  float64
}

func main() {
	var flags rootFlags

	rootCmd := &cobra.Command{
		Use:           "vecmatch",
		Short:         "Embedding similarity matching over a relational corpus",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&flags.configPath, "config", "", "Config file path (default: config/$ENV.yaml)")
	rootCmd.PersistentFlags().BoolVar(&flags.migrate, "migrate", false, "Create missing tables before running")

	reconcileCmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Match every stored query against the corpus and emit the best candidate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReconcile(cmd, flags)
		},
	}
	reconcileCmd.Flags().StringVar(&flags.output, "output", "", "Output format: table, json, parquet (overrides config)")
	reconcileCmd.Flags().StringVar(&flags.outputPath, "output-path", "", "Output file (overrides config; empty = stdout)")
	reconcileCmd.Flags().Int64Var(&flags.claimID, "claim", 0, "Only reconcile queries of this claim")
	reconcileCmd.Flags().Float64Var(&flags.threshold, "threshold", 0, "Similarity threshold (overrides config)")

	searchCmd := &cobra.Command{
		Use:   "search KEYWORD...",
		Short: "Rank the top corpus candidates for each keyword",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, flags, args)
		},
	}
	searchCmd.Flags().StringVar(&flags.output, "output", "", "Output format: table, json, parquet (overrides config)")
	searchCmd.Flags().StringVar(&flags.outputPath, "output-path", "", "Output file (overrides config; empty = stdout)")

	sentimentCmd := &cobra.Command{
		Use:   "sentiment REPLY",
		Short: "Classify a customer reply and draft a response to negative ones",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSentiment(cmd, flags, strings.Join(args, " "))
		},
	}

	populateCmd := &cobra.Command{
		Use:   "populate",
		Short: "Embed catalog items and store their vectors as the corpus",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runPopulate(cmd, flags)
		},
	}

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve keyword search over HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, flags)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String())
		},
	}

	rootCmd.AddCommand(reconcileCmd, searchCmd, sentimentCmd, populateCmd, serveCmd, versionCmd)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runReconcile(cmd *cobra.Command, flags rootFlags) error {
	a, ctx, err := bootstrap(cmd.Context(), flags, "reconcile")
	if err != nil {
		return err
	}
	defer a.close()

	if cmd.Flags().Changed("threshold") {
		a.cfg.Pipeline.Threshold = flags.threshold
	}
	if cmd.Flags().Changed("claim") {
		a.cfg.Pipeline.ClaimID = flags.claimID
	}

	out, err := a.openSink(flags)
	if err != nil {
		return err
	}

	ctx, usage := domain.NewContextWithUsage(ctx)
	pipeline := reconcileuc.New(a.store, a.store, a.embedder, a.resolver(), out, reconcileuc.Config{
		Threshold:      a.cfg.Pipeline.Threshold,
		QueryPageSize:  a.cfg.Pipeline.QueryPageSize,
		CorpusPageSize: a.cfg.Pipeline.CorpusPageSize,
		ClaimID:        a.cfg.Pipeline.ClaimID,
	}, a.logger)

	sum, runErr := pipeline.Run(ctx)
	closeErr := out.Close()
	tokens, calls := usage.Snapshot()

	if runErr != nil {
		fields := []zap.Field{zap.Error(runErr), zap.Int("batches", sum.Batches), zap.Int("queries", sum.Queries)}
		var pe *reconcileuc.PhaseError
		if errors.As(runErr, &pe) {
			fields = append(fields, zap.String("phase", string(pe.Phase)), zap.Int("batch", pe.Batch), zap.Int("offset", pe.Offset))
		}
		a.logger.Error("Reconcile failed", fields...)
		return runErr
	}
	if closeErr != nil {
		return fmt.Errorf("flush output: %w", closeErr)
	}

	a.logger.Info("Reconcile finished",
		zap.Int("corpus_entries", sum.CorpusEntries),
		zap.Int("batches", sum.Batches),
		zap.Int("queries", sum.Queries),
		zap.Int("matched", sum.Matched),
		zap.Int("embedding_tokens", tokens),
		zap.Int("embedding_calls", calls),
	)
	return nil
}

func runSearch(cmd *cobra.Command, flags rootFlags, keywords []string) error {
	a, ctx, err := bootstrap(cmd.Context(), flags, "search")
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.loadCorpus(ctx)
	if err != nil {
		return err
	}

	out, err := a.openSink(flags)
	if err != nil {
		return err
	}

	svc := searchuc.New(store, a.embedder, a.resolver(), a.cfg.Pipeline.SearchThreshold, a.cfg.Pipeline.TopK, a.logger)
	results, err := svc.Search(ctx, keywords)
	if err != nil {
		_ = out.Close()
		a.logger.Error("Search failed", zap.Error(err))
		return err
	}
	if err := out.Write(ctx, results); err != nil {
		_ = out.Close()
		return fmt.Errorf("write results: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("flush output: %w", err)
	}
	return nil
}

func runSentiment(cmd *cobra.Command, flags rootFlags, reply string) error {
	a, ctx, err := bootstrap(cmd.Context(), flags, "sentiment")
	if err != nil {
		return err
	}
	defer a.close()

	store, err := a.loadCorpus(ctx)
	if err != nil {
		return err
	}

	svc := sentimentuc.New(a.completer(), a.embedder, store, a.resolver(), a.store, sentimentuc.Config{
		Threshold:         a.cfg.Pipeline.SentimentThreshold,
		FallbackProductID: a.cfg.Sentiment.FallbackProductID,
		Contact:           a.cfg.Sentiment.Contact,
	}, a.logger)

	outcome, err := svc.Analyze(ctx, reply)
	if err != nil {
		a.logger.Error("Sentiment analysis failed", zap.Error(err))
		return err
	}

	usage := outcome.Usage()
	a.logger.Info("Sentiment analysis finished",
		zap.String("sentiment", string(outcome.Analysis.Sentiment)),
		zap.Int64("product_id", outcome.ProductID),
		zap.Int("completion_tokens", usage.TotalTokens),
	)

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	if err := enc.Encode(outcome); err != nil {
		return fmt.Errorf("write outcome: %w", err)
	}
	return nil
}

func runPopulate(cmd *cobra.Command, flags rootFlags) error {
	a, ctx, err := bootstrap(cmd.Context(), flags, "populate")
	if err != nil {
		return err
	}
	defer a.close()

	ctx, usage := domain.NewContextWithUsage(ctx)
	svc := populateuc.New(a.store, a.store, a.embedder, a.cfg.Pipeline.QueryPageSize, a.logger)
	sum, err := svc.Run(ctx)
	tokens, calls := usage.Snapshot()
	if err != nil {
		fields := []zap.Field{zap.Error(err), zap.Int("batches", sum.Batches), zap.Int("items", sum.Items)}
		var be *populateuc.BatchError
		if errors.As(err, &be) {
			fields = append(fields, zap.Int("batch", be.Batch), zap.Int("offset", be.Offset))
		}
		a.logger.Error("Populate failed", fields...)
		return err
	}

	a.logger.Info("Populate finished",
		zap.Int("batches", sum.Batches),
		zap.Int("items", sum.Items),
		zap.Int("embedding_tokens", tokens),
		zap.Int("embedding_calls", calls),
	)
	return nil
}

// openSink applies the command line overrides to the configured output.
func (a *app) openSink(flags rootFlags) (sink.Sink, error) {
	format, path := a.cfg.Output.Format, a.cfg.Output.Path
	if flags.output != "" {
		format = flags.output
	}
	if flags.outputPath != "" {
		path = flags.outputPath
	}
	out, err := sink.Open(format, path)
	if err != nil {
		return nil, fmt.Errorf("open %s output: %w", format, err)
	}
	return out, nil
}

// loadCorpus reads the whole corpus into memory for the interactive modes.
func (a *app) loadCorpus(ctx context.Context) (*corpus.Store, error) {
	store := corpus.New()
	stats, err := store.Load(ctx, a.store, a.cfg.Pipeline.CorpusPageSize)
	if err != nil {
		a.logger.Error("Failed to load corpus", zap.Error(err))
		return nil, err
	}
	a.logger.Info("Corpus loaded",
		zap.Int("entries", stats.Entries),
		zap.Int("pages", stats.Pages),
		zap.Int("duplicates", stats.Duplicates),
		zap.Int("dim", store.Dim()),
	)
	return store, nil
}

func (a *app) resolver() *enrich.Resolver {
	return enrich.New(a.store, a.store, a.logger).WithWorkers(a.cfg.Enrich.Workers)
}
