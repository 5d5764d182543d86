package main

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"

	"github.com/DeafMist/outbreak-radar/backend/internal/backend"
	"github.com/DeafMist/outbreak-radar/backend/internal/config"
	"github.com/DeafMist/outbreak-radar/backend/internal/llm"
	"github.com/DeafMist/outbreak-radar/backend/internal/logger"
	"github.com/DeafMist/outbreak-radar/backend/internal/models"
	"github.com/DeafMist/outbreak-radar/backend/internal/storage"
	"github.com/DeafMist/outbreak-radar/backend/internal/threat"
)

const summaryTopN = 10

func main() {
	_ = godotenv.Load()

	log := logger.New("api")
	cfg, err := config.LoadAPI()
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

	var completer llm.Completer
	if cfg.LLM.Enabled() {
		completer, err = llm.New(cfg.LLM)
		if err != nil {
			log.Error("init completion client", slog.Any("err", err))
			os.Exit(1)
		}
	} else {
		log.Warn("no completion key configured, threat assessments will be unavailable")
	}

	srv := &server{
		log:   log,
		cfg:   cfg,
		store: store,
		agg: threat.New(completer, threat.Options{
			Window:      cfg.AssessmentWindow,
			Temperature: &cfg.LLM.Temperature,
			Timeout:     cfg.LLM.Timeout,
		}, log),
	}

	httpServer := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           srv.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      90 * time.Second,
	}

	go func() {
		log.Info("api server starting", slog.String("addr", cfg.BindAddr))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server stopped", slog.Any("err", err))
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	log.Info("shutdown signal received")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error("server shutdown", slog.Any("err", err))
	}
}

type server struct {
	log   *slog.Logger
	cfg   *config.API
	store storage.Backend
	agg   *threat.Aggregator
}

type errorResponse struct {
	Error string `json:"error"`
}

type listResponse struct {
	Total int64                   `json:"total"`
	From  int                     `json:"from"`
	Size  int                     `json:"size"`
	Items []models.OutbreakRecord `json:"items"`
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/health", s.handleHealth)
	r.Route("/outbreaks", func(r chi.Router) {
		r.Get("/", s.handleList)
		r.Get("/summary", s.handleSummary)
	})
	r.Get("/threats/assessment", s.handleAssessment)
	return r
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *server) handleList(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	q := r.URL.Query()
	query := storage.Query{
		Text:     strings.TrimSpace(q.Get("q")),
		Disease:  strings.TrimSpace(q.Get("disease")),
		Country:  strings.TrimSpace(q.Get("country")),
		Severity: strings.ToLower(strings.TrimSpace(q.Get("severity"))),
		Status:   strings.ToLower(strings.TrimSpace(q.Get("status"))),
		Start:    parseTime(q.Get("start")),
		End:      parseTime(q.Get("end")),
		From:     clampInt(q.Get("from"), 0, 10_000),
		Size:     clampInt(q.Get("size"), s.cfg.DefaultPage, s.cfg.MaxPage),
	}

	page, err := s.store.Search(ctx, query)
	if err != nil {
		s.log.Warn("search failed", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, listResponse{
		Total: page.Total,
		From:  query.From,
		Size:  query.Size,
		Items: page.Items,
	})
}

func (s *server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	summary, err := s.store.Summary(ctx, clampInt(r.URL.Query().Get("top"), summaryTopN, 50))
	if err != nil {
		s.log.Warn("summary failed", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, summary)
}

func (s *server) handleAssessment(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 75*time.Second)
	defer cancel()

	records, err := s.store.SelectRecent(ctx, s.agg.Window())
	if err != nil {
		s.log.Warn("select recent failed", slog.Any("err", err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, s.agg.AssessGlobal(ctx, records))
}

func parseTime(raw string) *time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return &ts
	}
	if ts, err := time.Parse(models.DateLayout, raw); err == nil {
		return &ts
	}
	return nil
}

func clampInt(raw string, fallback, max int) int {
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	if value <= 0 {
		return fallback
	}
	if value > max {
		return max
	}
	return value
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
