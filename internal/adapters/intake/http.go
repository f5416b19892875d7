package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mikey/threat-alert-engine/internal/config"
	"github.com/mikey/threat-alert-engine/internal/core"
	"github.com/mikey/threat-alert-engine/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	maxBodyBytes     = 1 << 20
	defaultListLimit = 50
	maxListLimit     = 1000
	shutdownTimeout  = 10 * time.Second
)

// Service is what the HTTP intake needs from the alert service
type Service interface {
	Assess(ctx context.Context, event *core.SecurityEvent) (*core.AssessmentRecord, error)
	AssessBatch(ctx context.Context, events []*core.SecurityEvent) ([]*core.AssessmentRecord, error)
	Get(ctx context.Context, id string) (*core.AssessmentRecord, error)
	ListByHome(ctx context.Context, homeID string, limit int) ([]*core.AssessmentRecord, error)
	Thresholds() core.Thresholds
}

// HTTPIntake exposes the alert service over a JSON HTTP API
type HTTPIntake struct {
	service      Service
	logger       *zap.Logger
	metrics      *metrics.Metrics
	listenAddr   string
	maxBatchSize int
	server       *http.Server
}

// NewHTTPIntake creates the HTTP intake. It does not listen until Start.
func NewHTTPIntake(service Service, logger *zap.Logger, m *metrics.Metrics, cfg config.ServerConfig) *HTTPIntake {
	h := &HTTPIntake{
		service:      service,
		logger:       logger,
		metrics:      m,
		listenAddr:   cfg.ListenAddress,
		maxBatchSize: cfg.MaxBatchSize,
	}
	if h.maxBatchSize <= 0 {
		h.maxBatchSize = 500
	}

	h.server = &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      h.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return h
}

// Router builds the chi router with every endpoint mounted
func (h *HTTPIntake) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	h.Register(r)
	return r
}

// Register mounts the endpoints on r
func (h *HTTPIntake) Register(r chi.Router) {
	r.Get("/health", h.HandleHealth)
	r.Get("/v1/status", h.HandleStatus)
	r.Post("/v1/assessments", h.HandleAssess)
	r.Post("/v1/assessments/batch", h.HandleAssessBatch)
	r.Get("/v1/assessments/{id}", h.HandleGet)
	r.Get("/v1/homes/{homeID}/assessments", h.HandleListByHome)
	if h.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(h.metrics.Registry, promhttp.HandlerOpts{}))
	}
}

// Start listens on the configured address and serves in the background
func (h *HTTPIntake) Start() error {
	listener, err := net.Listen("tcp", h.listenAddr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", h.listenAddr, err)
	}

	h.logger.Info("HTTP intake listening", zap.String("address", listener.Addr().String()))
	go func() {
		if err := h.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			h.logger.Error("HTTP intake stopped unexpectedly", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down
func (h *HTTPIntake) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := h.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shut down HTTP intake: %w", err)
	}
	return nil
}

// HandleHealth handles GET /health
func (h *HTTPIntake) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type statusResponse struct {
	Status     string      `json:"status"`
	Thresholds thresholds  `json:"thresholds"`
	Bands      []core.Band `json:"bands"`
}

type thresholds struct {
	Critical float64            `json:"critical"`
	Elevated float64            `json:"elevated"`
	Alert    float64            `json:"alert"`
	Wait     float64            `json:"wait"`
	FailSafe core.AlertDecision `json:"fail_safe"`
}

// HandleStatus handles GET /v1/status
func (h *HTTPIntake) HandleStatus(w http.ResponseWriter, r *http.Request) {
	t := h.service.Thresholds()
	writeJSON(w, http.StatusOK, statusResponse{
		Status: "ok",
		Thresholds: thresholds{
			Critical: t.Critical,
			Elevated: t.Elevated,
			Alert:    t.Alert,
			Wait:     t.Wait,
			FailSafe: t.FailSafe,
		},
		Bands: t.Bands(),
	})
}

// HandleAssess handles POST /v1/assessments
func (h *HTTPIntake) HandleAssess(w http.ResponseWriter, r *http.Request) {
	var event core.SecurityEvent
	if err := decodeBody(w, r, &event); err != nil {
		h.reject(w, r, http.StatusBadRequest, err)
		return
	}
	if event.HomeID == "" {
		h.reject(w, r, http.StatusBadRequest, errors.New("home_id is required"))
		return
	}

	record, err := h.service.Assess(r.Context(), &event)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.metrics.IncrementIntake("http", "ok")
	writeJSON(w, http.StatusOK, record)
}

type batchRequest struct {
	Events []*core.SecurityEvent `json:"events"`
}

type batchResponse struct {
	Assessments []*core.AssessmentRecord `json:"assessments"`
}

// HandleAssessBatch handles POST /v1/assessments/batch
func (h *HTTPIntake) HandleAssessBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := decodeBody(w, r, &req); err != nil {
		h.reject(w, r, http.StatusBadRequest, err)
		return
	}
	if len(req.Events) > h.maxBatchSize {
		h.reject(w, r, http.StatusRequestEntityTooLarge,
			fmt.Errorf("batch of %d events exceeds limit of %d", len(req.Events), h.maxBatchSize))
		return
	}
	for i, event := range req.Events {
		if event == nil || event.HomeID == "" {
			h.reject(w, r, http.StatusBadRequest, fmt.Errorf("event %d: home_id is required", i))
			return
		}
	}

	records, err := h.service.AssessBatch(r.Context(), req.Events)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	h.metrics.IncrementIntake("http_batch", "ok")
	writeJSON(w, http.StatusOK, batchResponse{Assessments: records})
}

// HandleGet handles GET /v1/assessments/{id}
func (h *HTTPIntake) HandleGet(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// HandleListByHome handles GET /v1/homes/{homeID}/assessments
func (h *HTTPIntake) HandleListByHome(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid limit %q", raw))
			return
		}
		limit = min(n, maxListLimit)
	}

	records, err := h.service.ListByHome(r.Context(), chi.URLParam(r, "homeID"), limit)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Assessments: records})
}

func (h *HTTPIntake) reject(w http.ResponseWriter, r *http.Request, status int, err error) {
	h.metrics.IncrementIntake("http", "bad_request")
	h.logger.Debug("Rejected request",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	writeError(w, status, err)
}

func (h *HTTPIntake) fail(w http.ResponseWriter, r *http.Request, err error) {
	h.metrics.IncrementIntake("http", "error")
	h.logger.Error("Request failed",
		zap.String("path", r.URL.Path),
		zap.String("request_id", middleware.GetReqID(r.Context())),
		zap.Error(err))
	status := http.StatusInternalServerError
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		status = http.StatusServiceUnavailable
	}
	writeError(w, status, err)
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
