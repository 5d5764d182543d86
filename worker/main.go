package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/segmentio/kafka-go"

	"github.com/DeafMist/outbreak-radar/backend/internal/admission"
	"github.com/DeafMist/outbreak-radar/backend/internal/analyzer"
	"github.com/DeafMist/outbreak-radar/backend/internal/backend"
	"github.com/DeafMist/outbreak-radar/backend/internal/config"
	"github.com/DeafMist/outbreak-radar/backend/internal/dedupe"
	"github.com/DeafMist/outbreak-radar/backend/internal/events"
	"github.com/DeafMist/outbreak-radar/backend/internal/heuristic"
	"github.com/DeafMist/outbreak-radar/backend/internal/llm"
	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/normalizer"
	"github.com/DeafMist/outbreak-radar/backend/internal/pipeline"
)

const dlqAttempts = 5

type batchRunner interface {
	Run(ctx context.Context, articles []models.RawArticle) (pipeline.Stats, []pipeline.Result)
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

func main() {
	_ = godotenv.Load()

	log := logger.New("worker")
	cfg, err := config.LoadWorker()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	store, closeStore, err := backend.Open(ctx, cfg.Common, log)
	if err != nil {
		log.Error("open storage", slog.Any("err", err))
		os.Exit(1)
	}
	defer closeStore()

	extractor, err := newExtractor(cfg.LexiconPath)
	if err != nil {
		log.Error("load lexicon", slog.Any("err", err))
		os.Exit(1)
	}

	deps := pipeline.Deps{
		Heuristic:  extractor,
		Normalizer: normalizer.New(log),
		Gate:       admission.NewGate(cfg.MinConfidence),
		Workers:    cfg.Concurrency,
	}

	if cfg.AnalyzerEnabled {
		completer, err := llm.New(cfg.LLM)
		if err != nil {
			log.Error("init completion client", slog.Any("err", err))
			os.Exit(1)
		}
		deps.Analyzer = analyzer.New(completer, analyzer.Options{
			MaxTokens:   cfg.LLM.MaxTokens,
			Temperature: &cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, log)
	}

	var ledger admission.Ledger = dedupe.NewCache(cfg.DedupeCapacity, cfg.DedupeTTL)
	if cfg.RedisURL != "" {
		redisLedger, err := dedupe.NewRedisLedger(cfg.RedisURL, cfg.DedupeTTL)
		if err != nil {
			log.Error("init redis ledger", slog.Any("err", err))
			os.Exit(1)
		}
		defer redisLedger.Close()
		if err := redisLedger.Ping(ctx); err != nil {
			log.Warn("redis unavailable, admission falls back to storage checks", slog.Any("err", err))
		}
		ledger = redisLedger
	}
	deps.Admitter = admission.NewDeduplicator(store, ledger, log)

	if cfg.NATSURL != "" {
		nc, err := events.Connect(cfg.NATSURL, "outbreak-worker")
		if err != nil {
			log.Warn("nats unavailable, records will not be announced", slog.Any("err", err))
		} else {
			defer nc.Close()
			deps.Publisher = events.NewPublisher(nc, cfg.RecordSubject)
		}
	}

	runner := pipeline.New(deps, log)

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        cfg.KafkaBrokers,
		Topic:          cfg.KafkaTopic,
		GroupID:        cfg.KafkaConsumer,
		QueueCapacity:  cfg.BatchSize,
		MinBytes:       1e3,
		MaxBytes:       10e6,
		CommitInterval: 0, // Disable auto-commit; manual commit only
	})
	defer reader.Close()

	dlqWriter := kafka.NewWriter(kafka.WriterConfig{
		Brokers:     cfg.KafkaBrokers,
		Topic:       cfg.KafkaDLQTopic,
		MaxAttempts: 3,
	})
	defer dlqWriter.Close()

	log.Info("worker started",
		slog.String("topic", cfg.KafkaTopic),
		slog.String("group", cfg.KafkaConsumer),
		slog.String("dlq_topic", cfg.KafkaDLQTopic),
		slog.Int("batch_size", cfg.BatchSize),
		slog.Int("concurrency", cfg.Concurrency),
		slog.Bool("analyzer", cfg.AnalyzerEnabled),
	)

	for {
		msgs, err := fetchBatch(ctx, reader, cfg.BatchSize, cfg.CommitInterval)
		if errors.Is(err, context.Canceled) {
			log.Info("context canceled, stopping")
			return
		}
		if err != nil {
			log.Error("fetch message", slog.Any("err", err))
		}
		if len(msgs) == 0 {
			continue
		}

		commit := handleBatch(ctx, log, runner, dlqWriter, msgs)
		if len(commit) == 0 {
			continue
		}
		if err := reader.CommitMessages(ctx, commit...); err != nil {
			log.Error("commit messages", slog.Any("err", err))
		}
	}
}

func newExtractor(path string) (*heuristic.Extractor, error) {
	if path == "" {
		return heuristic.NewDefault()
	}
	lex, err := heuristic.LoadLexicon(path)
	if err != nil {
		return nil, err
	}
	return heuristic.New(lex), nil
}

type messageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
}

// fetchBatch blocks for the first message, then waits at most linger for the rest.
func fetchBatch(ctx context.Context, r messageFetcher, size int, linger time.Duration) ([]kafka.Message, error) {
	msgs := make([]kafka.Message, 0, size)

	msg, err := r.FetchMessage(ctx)
	if err != nil {
		return nil, err
	}
	msgs = append(msgs, msg)

	lctx, cancel := context.WithTimeout(ctx, linger)
	defer cancel()

	for len(msgs) < size {
		msg, err := r.FetchMessage(lctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				return msgs, nil
			}
			return msgs, err
		}
		msgs = append(msgs, msg)
	}
	return msgs, nil
}

// handleBatch runs the decodable messages through the pipeline and dead-letters the rest.
// It returns the messages that are safe to commit.
func handleBatch(ctx context.Context, log *slog.Logger, runner batchRunner, dlq messageWriter, msgs []kafka.Message) []kafka.Message {
	articles := make([]models.RawArticle, 0, len(msgs))
	decoded := make([]kafka.Message, 0, len(msgs))
	commit := make([]kafka.Message, 0, len(msgs))

	for _, msg := range msgs {
		article, err := decodeArticle(msg.Value)
		if err != nil {
			if sendToDLQ(ctx, log, dlq, msg, err) {
				commit = append(commit, msg)
			}
			continue
		}
		articles = append(articles, article)
		decoded = append(decoded, msg)
	}

	if len(articles) == 0 {
		return commit
	}

	_, results := runner.Run(ctx, articles)
	for i, res := range results {
		msg := decoded[i]
		if res.Outcome == pipeline.OutcomeFailed && res.Err != nil {
			if !sendToDLQ(ctx, log, dlq, msg, res.Err) {
				continue
			}
		}
		commit = append(commit, msg)
	}
	return commit
}

func decodeArticle(data []byte) (models.RawArticle, error) {
	var article models.RawArticle
	if err := json.Unmarshal(data, &article); err != nil {
		return models.RawArticle{}, fmt.Errorf("decode article: %w", err)
	}
	if strings.TrimSpace(article.Text()) == "" {
		return models.RawArticle{}, errors.New("empty payload")
	}
	return article, nil
}

// sendToDLQ retries with exponential backoff and reports whether the message landed.
func sendToDLQ(ctx context.Context, log *slog.Logger, dlq messageWriter, msg kafka.Message, cause error) bool {
	log.Warn("process message failed, sending to DLQ",
		slog.Any("err", cause),
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)

	dlqMsg := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: "original_partition", Value: []byte(fmt.Sprintf("%d", msg.Partition))},
			kafka.Header{Key: "original_offset", Value: []byte(fmt.Sprintf("%d", msg.Offset))},
			kafka.Header{Key: "error", Value: []byte(cause.Error())},
			kafka.Header{Key: "timestamp", Value: []byte(time.Now().UTC().Format(time.RFC3339))},
		),
	}

	for attempt := 0; attempt < dlqAttempts; attempt++ {
		dlqErr := dlq.WriteMessages(ctx, dlqMsg)
		if dlqErr == nil {
			log.Info("message sent to DLQ",
				slog.Int("partition", msg.Partition),
				slog.Int64("offset", msg.Offset),
				slog.Int("attempt", attempt+1),
			)
			return true
		}

		backoff := dlqBackoff(attempt)
		log.Warn("DLQ write failed, retrying",
			slog.Any("err", dlqErr),
			slog.Int("attempt", attempt+1),
			slog.Duration("backoff", backoff),
		)
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			log.Info("context canceled during DLQ retry")
			return false
		}
	}

	log.Error("DLQ write exhausted retries, message left uncommitted",
		slog.Int("partition", msg.Partition),
		slog.Int64("offset", msg.Offset),
	)
	return false
}

var dlqBackoff = func(attempt int) time.Duration {
	return time.Duration(1<<uint(attempt)) * time.Second
}
