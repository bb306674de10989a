package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"obesityweb/db"
	"obesityweb/ml"
	"obesityweb/monitoring"
)

var testLabels = []string{"insufficient_weight", "normal_weight", "obesity_type_I"}

// testArtifacts separates the classes by scaled weight only.
func testArtifacts(t *testing.T) *ml.Artifacts {
	t.Helper()
	centres := []float64{-1, 0, 1}
	model := &ml.LogisticRegression{Version: "http-test"}
	for i, c := range centres {
		row := make([]float64, ml.FeatureCount)
		row[3] = 2 * c
		model.Coef = append(model.Coef, row)
		model.Intercept = append(model.Intercept, -c*c)
		model.ClassLabels = append(model.ClassLabels, i)
	}

	mean := make([]float64, ml.FeatureCount)
	scale := make([]float64, ml.FeatureCount)
	for i := range scale {
		scale[i] = 1
	}
	mean[3], scale[3] = 86, 26

	artifacts := &ml.Artifacts{
		Model:    model,
		Info:     ml.ModelInfo{Type: ml.ModelTypeLogisticRegression, Version: model.Version},
		Scaler:   &ml.StandardScaler{FeatureNames: ml.FeatureNames(), Mean: mean, Scale: scale},
		Encoders: ml.NewEncoders(testLabels),
	}
	require.NoError(t, artifacts.Validate())
	return artifacts
}

func sampleForm() url.Values {
	return url.Values{
		"gender":       {"Male"},
		"age":          {"25"},
		"height":       {"175"},
		"weight":       {"70"},
		"family":       {"yes"},
		"high_calorie": {"no"},
		"vegetables":   {"sometimes"},
		"main_meals":   {"3"},
		"snacks":       {"sometimes"},
		"smoke":        {"no"},
		"alcohol":      {"no"},
		"water":        {"1-2L"},
		"monitor":      {"no"},
		"exercise":     {"1-2 days"},
		"devices":      {"0-2 hours"},
		"transport":    {"public"},
	}
}

type testEnv struct {
	handlers *Handlers
	metrics  *monitoring.InferenceMetrics
	store    *db.Store
	server   http.Handler
}

func newTestEnv(t *testing.T, artifacts *ml.Artifacts, withStore bool) *testEnv {
	t.Helper()
	pipeline, err := ml.NewPipeline(ml.NewStaticRegistry(artifacts, nil), 16)
	require.NoError(t, err)

	env := &testEnv{metrics: monitoring.NewInferenceMetrics(nil)}
	if withStore {
		env.store, err = db.Open(filepath.Join(t.TempDir(), "audit.db"))
		require.NoError(t, err)
		t.Cleanup(func() { env.store.Close() })
	}

	env.handlers, err = NewHandlers(pipeline, env.metrics, env.store, nil)
	require.NoError(t, err)
	env.server = NewServer(DefaultServerConfig(), env.handlers, nil).Handler()
	return env
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)
	return rr
}

func postForm(form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestIndexRendersForm(t *testing.T) {
	env := newTestEnv(t, testArtifacts(t), false)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	body := rr.Body.String()
	for _, attr := range ml.Schema() {
		require.Contains(t, body, `name="`+attr.FormField+`"`)
	}
	require.Contains(t, body, `<option value="almost every day">`)
	require.NotContains(t, body, "Prediction Results")
	require.NotEmpty(t, rr.Header().Get(requestIDHeader))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
}

func TestPredictSample(t *testing.T) {
	env := newTestEnv(t, testArtifacts(t), true)

	rr := env.do(postForm(sampleForm()))
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, "Obesity Level Prediction Results: insufficient_weight")
	require.Contains(t, body, `<option value="public" selected>`, "submitted values are kept")

	snapshot := env.metrics.Snapshot()
	require.Equal(t, int64(1), snapshot.Total)
	require.Equal(t, int64(1), snapshot.Labels["insufficient_weight"])

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/predictions?limit=5", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var history struct {
		Count int                   `json:"count"`
		Data  []db.PredictionRecord `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &history))
	require.Equal(t, 1, history.Count)
	require.Equal(t, "insufficient_weight", history.Data[0].Label)
	require.Equal(t, "http-test", history.Data[0].ModelVersion)
	require.NotEmpty(t, history.Data[0].RequestID)
}

func TestPredictInputErrors(t *testing.T) {
	cases := []struct {
		name string
		edit func(url.Values)
		want string
		kind string
	}{
		{"missing field", func(f url.Values) { f.Del("weight") }, "missing attribute: Weight", "missing_attribute"},
		{"blank field", func(f url.Values) { f.Set("smoke", " ") }, "missing attribute: Smoking", "missing_attribute"},
		{"unknown category", func(f url.Values) { f.Set("gender", "Other") }, "unknown category value for Gender", "unknown_category_value"},
		{"bad number", func(f url.Values) { f.Set("age", "abc") }, "invalid numeric value for Age", "invalid_numeric_value"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			env := newTestEnv(t, testArtifacts(t), true)
			form := sampleForm()
			tc.edit(form)

			rr := env.do(postForm(form))
			require.Equal(t, http.StatusBadRequest, rr.Code)
			require.Contains(t, rr.Body.String(), tc.want)
			require.NotContains(t, rr.Body.String(), "Prediction Results")
			require.Equal(t, int64(1), env.metrics.Snapshot().Errors[tc.kind])

			records, err := env.store.RecentPredictions(context.Background(), 10)
			require.NoError(t, err)
			require.Len(t, records, 1)
			require.Equal(t, tc.kind, records[0].ErrorKind)
			require.Empty(t, records[0].Label)
		})
	}
}

func TestPredictCategoryCaseInsensitive(t *testing.T) {
	env := newTestEnv(t, testArtifacts(t), false)
	form := sampleForm()
	form.Set("high_calorie", "NO")
	form.Set("gender", "male")

	rr := env.do(postForm(form))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Obesity Level Prediction Results: insufficient_weight")
}

func TestPredictUnknownClassIsServerError(t *testing.T) {
	artifacts := testArtifacts(t)
	// a label encoder that no longer covers class 0
	artifacts.Encoders = ml.NewEncoders(nil)
	env := newTestEnv(t, artifacts, false)

	rr := env.do(postForm(sampleForm()))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), genericFailure)
	require.NotContains(t, rr.Body.String(), "unknown predicted class")
	require.Equal(t, int64(1), env.metrics.Snapshot().Errors["unknown_predicted_class"])
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, testArtifacts(t), false)
	rr := env.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var payload map[string]interface{}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, "ok", payload["status"])
	require.Contains(t, payload["message"], "http-test")

	empty := newTestEnv(t, nil, false)
	rr = empty.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &payload))
	require.Equal(t, "error", payload["status"])
}

func TestStaticPages(t *testing.T) {
	env := newTestEnv(t, testArtifacts(t), false)

	rr := env.do(httptest.NewRequest(http.MethodGet, "/test", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "It works")

	rr = env.do(httptest.NewRequest(http.MethodGet, "/nowhere", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
	require.Contains(t, rr.Body.String(), "/nowhere")
}

func TestMetricsEndpoint(t *testing.T) {
	env := newTestEnv(t, testArtifacts(t), false)
	env.do(postForm(sampleForm()))

	rr := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	var snapshot monitoring.Snapshot
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &snapshot))
	require.Equal(t, int64(1), snapshot.Total)
	require.NotNil(t, snapshot.Latency)
}

func TestPredictionsEndpoint(t *testing.T) {
	disabled := newTestEnv(t, testArtifacts(t), false)
	rr := disabled.do(httptest.NewRequest(http.MethodGet, "/api/predictions", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)

	env := newTestEnv(t, testArtifacts(t), true)
	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/predictions?limit=zero", nil))
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = env.do(httptest.NewRequest(http.MethodGet, "/api/predictions", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.JSONEq(t, `{"count":0,"data":[]}`, rr.Body.String())
}
