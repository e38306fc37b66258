package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/joho/godotenv"

	"call-insights-go/internal/checkpoint"
	"call-insights-go/internal/config"
	"call-insights-go/internal/llm"
	"call-insights-go/internal/logger"
	"call-insights-go/internal/pipeline"
	"call-insights-go/internal/report"
	"call-insights-go/internal/taxonomy"
	"call-insights-go/internal/transcript"
)

func main() {
	transcriptPath := flag.String("transcript", "", "path to the transcript JSON (required)")
	outPath := flag.String("out", "", "assessment JSON path (default <transcript>.assessment.json)")
	xlsxPath := flag.String("xlsx", "", "optional Excel workbook path")
	taxonomyPath := flag.String("taxonomy", "", "taxonomy YAML; built-in HVAC taxonomy when empty")
	backend := flag.String("checkpoint-backend", "", "fs, sqlite or memory (overrides CHECKPOINT_BACKEND)")
	cachePath := flag.String("checkpoint-path", "", "cache dir or database file (overrides CHECKPOINT_PATH)")
	fresh := flag.Bool("fresh", false, "clear existing checkpoints before running")
	flag.Parse()

	// Load .env if present (local dev convenience)
	_ = godotenv.Load()

	log := logger.New()
	cfg := config.Load()
	if *backend != "" {
		cfg.Checkpoint.Backend = *backend
	}
	if *cachePath != "" {
		cfg.Checkpoint.Path = *cachePath
	}

	if *transcriptPath == "" {
		flag.Usage()
		log.Fatal("missing -transcript")
	}
	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	log.WithField("service", "call-insights").Info("starting analysis")

	tax, err := taxonomy.Load(*taxonomyPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load taxonomy")
	}

	utts, err := transcript.LoadFile(*transcriptPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load transcript")
	}

	var client llm.Client
	if cfg.LLM.UseMock {
		log.Warn("USE_MOCK_LLM is set; capability calls are mocked")
		client = llm.NewMock(nil)
	} else {
		client, err = llm.New(llm.Config{
			APIKey:         cfg.LLM.APIKey,
			BaseURL:        cfg.LLM.BaseURL,
			Model:          cfg.LLM.Model,
			MaxTokens:      cfg.LLM.MaxTokens,
			MaxElapsedTime: cfg.LLM.MaxElapsedTime,
		}, log.WithComponent("llm"))
		if err != nil {
			log.WithError(err).Fatal("failed to init capability client")
		}
	}

	// The checkpoint scope is derived from the transcript name, not the run
	// id, so a rerun of the same transcript finds its saved steps.
	scope := strings.TrimSuffix(filepath.Base(*transcriptPath), filepath.Ext(*transcriptPath))
	store, closeStore, err := newStore(cfg.Checkpoint, scope)
	if err != nil {
		log.WithError(err).Fatal("failed to init checkpoint store")
	}
	defer closeStore()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *fresh {
		if err := store.ClearAll(ctx); err != nil {
			log.WithError(err).Warn("could not clear checkpoints")
		}
	}

	p := pipeline.New(cfg, tax, client, store, log)
	assessment, err := p.Run(ctx, utts)
	if err != nil {
		log.WithError(err).Fatal("analysis aborted; checkpoints kept for resume")
	}

	out := *outPath
	if out == "" {
		out = strings.TrimSuffix(*transcriptPath, filepath.Ext(*transcriptPath)) + ".assessment.json"
	}
	if err := report.WriteJSON(out, assessment); err != nil {
		log.WithError(err).Fatal("failed to write assessment")
	}
	log.WithField("path", out).Info("assessment written")

	if *xlsxPath != "" {
		if err := report.WriteExcel(*xlsxPath, assessment, tax); err != nil {
			log.WithError(err).Warn("failed to write workbook")
		} else {
			log.WithField("path", *xlsxPath).Info("workbook written")
		}
	}

	if len(assessment.Degraded) > 0 {
		log.WithField("steps", strings.Join(assessment.Degraded, ", ")).
			Warn("run degraded; checkpoints kept so a rerun can retry those steps")
		return
	}
	if err := p.ClearCheckpoints(ctx); err != nil {
		log.WithError(err).Warn("could not clear checkpoints")
	}
}

func newStore(cfg config.CheckpointConfig, scope string) (checkpoint.Store, func(), error) {
	switch cfg.Backend {
	case "sqlite":
		s, err := checkpoint.NewSQLite(cfg.Path, scope)
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	case "memory":
		return checkpoint.NewMemory(), func() {}, nil
	default:
		return checkpoint.NewFS(filepath.Join(cfg.Path, scope)), func() {}, nil
	}
}
