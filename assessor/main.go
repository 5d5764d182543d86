package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/DeafMist/outbreak-radar/backend/internal/backend"
	"github.com/DeafMist/outbreak-radar/backend/internal/config"
	"github.com/DeafMist/outbreak-radar/backend/internal/events"
	"github.com/DeafMist/outbreak-radar/backend/internal/llm"
	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/schedule"
	"github.com/DeafMist/outbreak-radar/backend/internal/storage"
	"github.com/DeafMist/outbreak-radar/backend/internal/threat"
)

type threatPublisher interface {
	PublishThreat(ctx context.Context, a models.ThreatAssessment) error
}

func main() {
	_ = godotenv.Load()

	log := logger.New("assessor")
	cfg, err := config.LoadAssessor()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, closeStore, err := backend.OpenWithRetry(ctx, cfg.Common, log, 10)
	if err != nil {
		log.Error("open storage", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeStore()

	completer, err := llm.New(cfg.LLM)
	if err != nil {
		log.Error("init completion client", slog.Any("err", err))
		os.Exit(1)
	}
	agg := threat.New(completer, threat.Options{
		Window:      cfg.Window,
		Temperature: &cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	}, log)

	var pub threatPublisher
	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, "outbreak-assessor")
		if err != nil {
			log.Warn("nats unavailable, assessments will only be logged", slog.Any("err", err))
		} else {
			defer nc.Close()
			pub = events.NewPublisher(nc, cfg.ThreatSubject)
		}
	}

	log.Info("assessor started", slog.String("schedule", cfg.Schedule), slog.Int("window", cfg.Window))

	err = schedule.Run(ctx, cfg.Schedule, cfg.RunOnStart, 5*time.Minute, func(ctx context.Context) {
		if _, err := assess(ctx, log, store, agg, pub); err != nil {
			log.Warn("assessment run failed (will retry on next schedule)", slog.Any("err", err))
		}
	}, log)
	if err != nil {
		log.Error("schedule", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("shutdown signal received")
}

func assess(ctx context.Context, log *slog.Logger, store storage.Store, agg *threat.Aggregator, pub threatPublisher) (models.ThreatAssessment, error) {
	records, err := store.SelectRecent(ctx, agg.Window())
	if err != nil {
		return models.ThreatAssessment{}, fmt.Errorf("select recent records: %w", err)
	}

	a := agg.AssessGlobal(ctx, records)
	log.Info("threat assessed",
		slog.String("id", a.ID),
		slog.String("level", string(a.GlobalThreatLevel)),
		slog.String("source", string(a.Source)),
		slog.Int("records", a.RecordCount),
	)

	if pub != nil {
		if err := pub.PublishThreat(ctx, a); err != nil {
			log.Warn("publish assessment failed", slog.Any("err", err))
		}
	}
	return a, nil
}
