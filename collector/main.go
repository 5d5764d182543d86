package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/outbreak-radar/backend/internal/config"
	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/schedule"
	"github.com/DeafMist/outbreak-radar/backend/internal/source"
	"github.com/DeafMist/outbreak-radar/backend/internal/source/don"
	"github.com/DeafMist/outbreak-radar/backend/internal/source/newsapi"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	_ = godotenv.Load()

	log := logger.New("collector")
	cfg, err := config.LoadCollector()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	httpClient := &http.Client{Timeout: cfg.RequestTimeout}

	var sources []source.Source
	if cfg.NewsAPIEnabled {
		client, err := newsapi.New(cfg.NewsAPIEndpoint, cfg.NewsAPIKey, httpClient, log)
		if err != nil {
			log.Error("init newsapi", slog.Any("err", err))
			os.Exit(1)
		}
		sources = append(sources, client)
	}
	if cfg.DONEnabled {
		sources = append(sources, don.NewScanner(cfg.DONURL, httpClient, log))
	}

	writer := &kafka.Writer{
		Addr:         kafka.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
	}
	defer writer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	req := source.Request{
		Keywords: cfg.Keywords,
		Lookback: cfg.Lookback,
		Max:      cfg.MaxArticles,
	}

	log.Info("collector started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("schedule", cfg.Schedule),
		slog.Int("sources", len(sources)),
	)

	err = schedule.Run(ctx, cfg.Schedule, cfg.RunOnStart, 10*time.Minute, func(ctx context.Context) {
		published, err := collect(ctx, log, sources, req, writer)
		if err != nil {
			log.Warn("collection round failed", slog.Int("published", published), slog.Any("err", err))
			return
		}
		log.Info("collection round completed", slog.Int("published", published))
	}, log)
	if err != nil {
		log.Error("schedule", slog.Any("err", err))
		os.Exit(1)
	}
	log.Info("shutdown signal received")
}

// collect fetches every source in order, drops repeated URLs and publishes the rest keyed by URL.
// A failing source is logged and skipped.
func collect(ctx context.Context, log *slog.Logger, sources []source.Source, req source.Request, w messageWriter) (int, error) {
	var all []models.RawArticle
	for _, src := range sources {
		articles, err := src.Fetch(ctx, req)
		if err != nil {
			log.Warn("source failed", slog.String("source", src.Name()), slog.Any("err", err))
			continue
		}
		log.Info("source fetched", slog.String("source", src.Name()), slog.Int("articles", len(articles)))
		all = append(all, articles...)
	}

	articles := source.Unique(all)
	if len(articles) == 0 {
		return 0, nil
	}

	msgs := make([]kafka.Message, 0, len(articles))
	for _, a := range articles {
		if !source.Usable(a) {
			continue
		}
		value, err := json.Marshal(a)
		if err != nil {
			return 0, fmt.Errorf("marshal article: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(strings.TrimSpace(a.URL)),
			Value: value,
			Time:  time.Now().UTC(),
		})
	}

	if len(msgs) == 0 {
		return 0, nil
	}
	if err := w.WriteMessages(ctx, msgs...); err != nil {
		return 0, fmt.Errorf("publish articles: %w", err)
	}
	return len(msgs), nil
}
