package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sable-labs/ragmeter/internal/config"
	"github.com/sable-labs/ragmeter/internal/db"
	dbRedis "github.com/sable-labs/ragmeter/internal/db/redis"
	"github.com/sable-labs/ragmeter/internal/domain"
	"github.com/sable-labs/ragmeter/internal/ingest"
	logpkg "github.com/sable-labs/ragmeter/internal/logger"
	"github.com/sable-labs/ragmeter/internal/metrics"
	"github.com/sable-labs/ragmeter/internal/repository/verdictcache"
	openaiJudge "github.com/sable-labs/ragmeter/internal/transport/openai"
	evaluc "github.com/sable-labs/ragmeter/internal/usecase/eval"
	judgeuc "github.com/sable-labs/ragmeter/internal/usecase/judge"
	"github.com/sable-labs/ragmeter/internal/version"
)

func main() {
	root := &cobra.Command{
		Use:           "ragmeter",
		Short:         "Evaluate RAG chat transcripts against their retrieved contexts",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newRunCmd(), newServeCmd(), newVersionCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ragmeter %s (commit %s, built %s)\n",
				version.Version, version.Commit, version.Date)
		},
	}
}

// app wires the pipeline: config, logger, optional cache store, judge
// chain, and the evaluation service. Composition root for both commands.
type app struct {
	cfg     config.Config
	logger  *zap.Logger
	store   db.Store // nil when cache is disabled
	eval    *evaluc.Service
	judgeHC domain.JudgeHealthChecker // nil for providers with nothing to check
}

func newApp(ctx context.Context) (*app, error) {
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logpkg.New(env, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	// Register pipeline metrics explicitly (no init())
	metrics.RegisterPipelineMetrics()

	var store db.Store
	if cfg.Cache.Enabled() {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Cache.Addrs,
			Password: cfg.Cache.Password,
		})
		if err != nil {
			return nil, fmt.Errorf("create cache store: %w", err)
		}
		readiness := time.Duration(cfg.Cache.ReadinessTimeout) * time.Second
		if err := store.WaitForReady(ctx, readiness); err != nil {
			store.Close()
			return nil, fmt.Errorf("cache store not ready: %w", err)
		}
		logger.Info("connected to verdict cache", zap.Strings("addrs", cfg.Cache.Addrs))
	}

	judge, judgeHC := buildJudge(cfg, store, logger)

	pricing := judgeuc.Pricing{
		InputPerMTok:  cfg.Judge.Pricing.InputPerMTok,
		OutputPerMTok: cfg.Judge.Pricing.OutputPerMTok,
	}
	reader := ingest.NewReader(logger)
	evalSvc := evaluc.New(reader, judge, pricing, logger).WithMaxPairs(cfg.Eval.MaxPairs)

	return &app{
		cfg:     cfg,
		logger:  logger,
		store:   store,
		eval:    evalSvc,
		judgeHC: judgeHC,
	}, nil
}

func (a *app) close() {
	if a.store != nil {
		a.store.Close()
	}
	_ = a.logger.Sync()
}

// buildJudge assembles the decorator chain: provider -> cached -> instrumented.
func buildJudge(cfg config.Config, store db.Store, logger *zap.Logger) (domain.Judge, domain.JudgeHealthChecker) {
	pricing := judgeuc.Pricing{
		InputPerMTok:  cfg.Judge.Pricing.InputPerMTok,
		OutputPerMTok: cfg.Judge.Pricing.OutputPerMTok,
	}

	var (
		base    domain.Judge
		checker domain.JudgeHealthChecker
	)
	switch cfg.Judge.Provider {
	case "openai":
		j := openaiJudge.NewJudge(&openaiJudge.Config{
			APIKey:   cfg.Judge.APIKey,
			BaseURL:  cfg.Judge.BaseURL,
			Model:    cfg.Judge.Model,
			Provider: cfg.Judge.Provider,
			Logger:   logger,
		})
		base, checker = j, j
	default:
		s := judgeuc.NewSimulated(cfg.Judge.Model, logger)
		base, checker = s, s
	}

	judge := base
	if store != nil {
		ttl := time.Duration(cfg.Cache.TTLHours) * time.Hour
		judge = verdictcache.New(judge, store, ttl, metrics.VerdictCacheTotal, logger)
	}

	return judgeuc.NewInstrumented(judge, cfg.Judge.Provider, cfg.Judge.Model, pricing, logger), checker
}
