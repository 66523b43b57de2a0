package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"ifscore/observability"
	"ifscore/observability/logging"
	"ifscore/score"
	"ifscore/server/middleware"
	"ifscore/storage"
	"ifscore/triggers"
)

const (
	flagSanctionWarning = "sanction_warning"
	flagReviewMandate   = "review_mandate"
	flagGraduation      = "graduation"
)

// Config captures the dependencies required to construct the server.
type Config struct {
	Store       *storage.Store
	Weights     score.Weights
	Policy      triggers.Policy
	Logger      *slog.Logger
	Metrics     *observability.IFSMetrics
	RateLimit   middleware.RateLimit
	Idempotency *middleware.IdempotencyStore
}

// Server encapsulates dependencies for the HTTP API.
type Server struct {
	Store       *storage.Store
	Weights     score.Weights
	Policy      triggers.Policy
	Logger      *slog.Logger
	Metrics     *observability.IFSMetrics
	Idempotency *middleware.IdempotencyStore
	Now         func() time.Time

	limiter *middleware.RateLimiter
	router  http.Handler
}

// New constructs a configured HTTP router with throttling and idempotency support.
func New(cfg Config) *Server {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Weights == (score.Weights{}) {
		cfg.Weights = score.DefaultWeights()
	}
	if cfg.Policy == (triggers.Policy{}) {
		cfg.Policy = triggers.DefaultPolicy()
	}
	srv := &Server{
		Store:       cfg.Store,
		Weights:     cfg.Weights,
		Policy:      cfg.Policy,
		Logger:      cfg.Logger,
		Metrics:     cfg.Metrics,
		Idempotency: cfg.Idempotency,
		Now:         time.Now,
	}
	srv.limiter = middleware.NewRateLimiter(cfg.RateLimit, cfg.Logger)
	srv.router = otelhttp.NewHandler(srv.buildRouter(), "ifs-http")
	return srv
}

// Handler exposes the configured HTTP router.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api/v1", func(api chi.Router) {
		api.Use(s.limiter.Middleware())
		api.With(middleware.WithIdempotency(s.Idempotency, s.Logger), s.observe("submit_score")).
			Post("/owners/{ownerID}/scores", s.SubmitScore)
		api.With(s.observe("score_history")).Get("/owners/{ownerID}/scores", s.ScoreHistory)
		api.With(s.observe("trigger_report")).Get("/owners/{ownerID}/report", s.TriggerReport)
	})

	return r
}

// SubmitScore validates a daily self-report, computes its composite, and persists it.
func (s *Server) SubmitScore(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(chi.URLParam(r, "ownerID"))
	if ownerID == "" || len(ownerID) > 128 {
		s.writeError(w, http.StatusBadRequest, "invalid owner id")
		return
	}

	var req struct {
		Date      string           `json:"date"`
		SubScores *score.SubScores `json:"subScores"`
		Note      string           `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if req.SubScores == nil {
		s.writeError(w, http.StatusBadRequest, "subScores is required")
		return
	}

	day := score.DayOf(s.Now())
	if strings.TrimSpace(req.Date) != "" {
		parsed, err := score.ParseDay(req.Date)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid date: expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	composite, err := score.Compute(*req.SubScores, s.Weights)
	if err != nil {
		s.Metrics.RecordSubmission(err)
		if errors.Is(err, score.ErrSubScoreRange) {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		s.Logger.Error("composite computation failed", "error", err, "owner", ownerID)
		s.writeError(w, http.StatusInternalServerError, "failed to compute score")
		return
	}

	record := score.Record{
		OwnerID:   ownerID,
		Day:       day,
		SubScores: *req.SubScores,
		Composite: composite,
		Note:      strings.TrimSpace(req.Note),
	}
	if err := s.Store.Put(r.Context(), record); err != nil {
		s.Metrics.RecordSubmission(err)
		s.Logger.Error("score persistence failed", "error", err, "owner", ownerID, "day", day.String())
		s.writeError(w, http.StatusInternalServerError, "failed to persist score")
		return
	}

	s.Metrics.RecordSubmission(nil)
	s.Logger.Info("score submitted",
		slog.String("owner", ownerID),
		slog.String("day", day.String()),
		slog.Int("composite", composite),
		logging.MaskField("note", record.Note),
	)
	s.writeJSON(w, http.StatusCreated, record)
}

// ScoreHistory returns the stored records for an owner, optionally bounded by from/to days.
func (s *Server) ScoreHistory(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(chi.URLParam(r, "ownerID"))
	if ownerID == "" {
		s.writeError(w, http.StatusBadRequest, "invalid owner id")
		return
	}

	var from, to score.Day
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := score.ParseDay(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid from date: expected YYYY-MM-DD")
			return
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := score.ParseDay(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid to date: expected YYYY-MM-DD")
			return
		}
		to = parsed
	}

	records, err := s.Store.HistoryRange(r.Context(), ownerID, from, to)
	if err != nil {
		s.Logger.Error("history lookup failed", "error", err, "owner", ownerID)
		s.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	if records == nil {
		records = []score.Record{}
	}
	s.writeJSON(w, http.StatusOK, records)
}

type reportResponse struct {
	OwnerID string    `json:"ownerId"`
	Date    score.Day `json:"date"`
	triggers.Report
}

// TriggerReport evaluates the owner's full history against the trigger policy.
func (s *Server) TriggerReport(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(chi.URLParam(r, "ownerID"))
	if ownerID == "" {
		s.writeError(w, http.StatusBadRequest, "invalid owner id")
		return
	}

	day := score.DayOf(s.Now())
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := score.ParseDay(raw)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, "invalid date: expected YYYY-MM-DD")
			return
		}
		day = parsed
	}

	history, err := s.Store.History(r.Context(), ownerID)
	if err != nil {
		s.Logger.Error("history lookup failed", "error", err, "owner", ownerID)
		s.writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	report := triggers.Evaluate(history, day, s.Policy)
	s.Metrics.RecordEvaluation()
	for _, warn := range report.Warnings {
		s.Metrics.RecordWarning(string(warn.Code))
		s.Logger.Warn("integrity warning", "owner", ownerID, "code", warn.Code, "day", warn.Day.String(), "detail", warn.Detail)
	}
	if report.SanctionTriggered {
		s.Metrics.RecordFlag(flagSanctionWarning)
	}
	if report.ReviewTriggered {
		s.Metrics.RecordFlag(flagReviewMandate)
	}
	if report.GraduationTriggered {
		s.Metrics.RecordFlag(flagGraduation)
	}

	s.writeJSON(w, http.StatusOK, reportResponse{OwnerID: ownerID, Date: day, Report: report})
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// observe records request metrics and an access log line for the labelled route.
func (s *Server) observe(route string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(recorder, r)
			duration := time.Since(start)
			s.Metrics.ObserveHTTP(route, r.Method, recorder.status, duration)
			s.Logger.Info("request",
				"route", route,
				"method", r.Method,
				"status", recorder.status,
				"duration_ms", float64(duration.Microseconds())/1000.0,
				"request_id", chimw.GetReqID(r.Context()),
			)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.status = code
	rec.ResponseWriter.WriteHeader(code)
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
