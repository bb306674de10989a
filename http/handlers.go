package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"obesityweb/db"
	"obesityweb/ml"
	"obesityweb/monitoring"
)

const (
	resultPrefix   = "Obesity Level Prediction Results: "
	genericFailure = "Prediction failed, please try again later."

	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// Handlers serves the prediction form and the operational endpoints.
type Handlers struct {
	pipeline *ml.Pipeline
	metrics  *monitoring.InferenceMetrics
	store    *db.Store
	logger   *zap.Logger
	pages    *pages
}

// NewHandlers wires the handlers. store may be nil, which disables the audit trail.
func NewHandlers(pipeline *ml.Pipeline, metrics *monitoring.InferenceMetrics, store *db.Store, logger *zap.Logger) (*Handlers, error) {
	pages, err := newPages()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if metrics == nil {
		metrics = monitoring.NewInferenceMetrics(nil)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handlers{
		pipeline: pipeline,
		metrics:  metrics,
		store:    store,
		logger:   logger,
		pages:    pages,
	}, nil
}

// Routes builds the router. Unknown paths get the HTML 404 page.
func (h *Handlers) Routes() *mux.Router {
	router := mux.NewRouter()
	router.HandleFunc("/", h.handleIndex).Methods(http.MethodGet)
	router.HandleFunc("/", h.handlePredict).Methods(http.MethodPost)
	router.HandleFunc("/health", h.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/test", h.handleTest).Methods(http.MethodGet)
	router.HandleFunc("/metrics", h.handleMetrics).Methods(http.MethodGet)
	router.HandleFunc("/api/predictions", h.handlePredictions).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(h.handleNotFound)
	return router
}

func (h *Handlers) handleIndex(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, "index.html", h.pages.index(nil))
}

func (h *Handlers) handlePredict(w http.ResponseWriter, r *http.Request) {
	start := GetStartTime(r.Context())
	if start.IsZero() {
		start = time.Now()
	}

	if err := r.ParseForm(); err != nil {
		page := h.pages.index(nil)
		page.Error = "Could not read the submitted form."
		h.renderPage(w, r, http.StatusBadRequest, "index.html", page)
		return
	}

	values := make(map[string]string, ml.FeatureCount)
	input := make(map[string]string, ml.FeatureCount)
	for _, attr := range ml.Schema() {
		if !r.PostForm.Has(attr.FormField) {
			continue
		}
		value := r.PostForm.Get(attr.FormField)
		values[attr.FormField] = value
		input[attr.Name] = value
	}
	page := h.pages.index(values)

	prediction, err := h.pipeline.Predict(r.Context(), input)
	duration := time.Since(start)
	if err != nil {
		kind := errorKind(err)
		h.metrics.RecordError(kind, duration)
		h.audit(r, db.PredictionRecord{ErrorKind: kind, DurationMs: millis(duration)})

		if ml.IsInputError(err) {
			page.Error = err.Error()
			h.renderPage(w, r, http.StatusBadRequest, "index.html", page)
			return
		}
		h.logger.Error("prediction failed",
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		page.Error = genericFailure
		h.renderPage(w, r, http.StatusInternalServerError, "index.html", page)
		return
	}

	h.metrics.RecordPrediction(prediction.Label, duration)
	h.audit(r, db.PredictionRecord{
		Label:        prediction.Label,
		Confidence:   prediction.Confidence,
		ModelVersion: prediction.Version,
		DurationMs:   millis(duration),
	})
	h.logger.Debug("prediction",
		zap.String("request_id", GetRequestID(r.Context())),
		zap.String("label", prediction.Label),
		zap.Float64("confidence", prediction.Confidence),
	)

	page.Result = resultPrefix + prediction.Label
	h.renderPage(w, r, http.StatusOK, "index.html", page)
}

func (h *Handlers) handleHealth(w http.ResponseWriter, r *http.Request) {
	artifacts := h.pipeline.Registry().Current()
	if artifacts == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{
			"status":  "error",
			"message": "no model artifacts loaded",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":     "ok",
		"message":    fmt.Sprintf("%s model %s loaded", artifacts.Info.Type, artifacts.Info.Version),
		"generation": artifacts.Generation(),
		"loaded_at":  artifacts.LoadedAt,
	})
}

func (h *Handlers) handleTest(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, "test.html", nil)
}

func (h *Handlers) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.metrics.Snapshot())
}

func (h *Handlers) handlePredictions(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "prediction history is disabled"})
		return
	}

	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		l, err := strconv.Atoi(raw)
		if err != nil || l <= 0 {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "limit must be a positive integer"})
			return
		}
		limit = min(l, maxHistoryLimit)
	}

	records, err := h.store.RecentPredictions(r.Context(), limit)
	if err != nil {
		h.logger.Error("load prediction history", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "could not load prediction history"})
		return
	}
	if records == nil {
		records = []db.PredictionRecord{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count": len(records),
		"data":  records,
	})
}

func (h *Handlers) handleNotFound(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusNotFound, "404.html", notFoundPage{Path: r.URL.Path})
}

// handleServerError renders the 500 page. RecoveryMiddleware calls it after a panic.
func (h *Handlers) handleServerError(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusInternalServerError, "500.html", serverErrorPage{RequestID: GetRequestID(r.Context())})
}

func (h *Handlers) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data interface{}) {
	if err := h.pages.render(w, status, name, data); err != nil {
		h.logger.Error("render page",
			zap.String("template", name),
			zap.String("request_id", GetRequestID(r.Context())),
			zap.Error(err),
		)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

// audit records the outcome when the audit store is enabled. Failures are logged only.
func (h *Handlers) audit(r *http.Request, record db.PredictionRecord) {
	if h.store == nil {
		return
	}
	record.RequestID = GetRequestID(r.Context())
	if record.RequestID == "" {
		record.RequestID = uuid.NewString()
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(r.Context()), 2*time.Second)
	defer cancel()
	if err := h.store.SavePrediction(ctx, record); err != nil {
		h.logger.Warn("audit prediction", zap.String("request_id", record.RequestID), zap.Error(err))
	}
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ml.ErrMissingAttribute):
		return "missing_attribute"
	case errors.Is(err, ml.ErrUnknownCategoryValue):
		return "unknown_category_value"
	case errors.Is(err, ml.ErrInvalidNumericValue):
		return "invalid_numeric_value"
	case errors.Is(err, ml.ErrUnknownPredictedClass):
		return "unknown_predicted_class"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "canceled"
	default:
		return "internal"
	}
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}
