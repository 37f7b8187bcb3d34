package httpapi

import (
	"bytes"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pdlens/app"
	"pdlens/domain/core"
	"pdlens/domain/interpret"
	"pdlens/domain/report"
	"pdlens/internal/config"
	"pdlens/internal/testkit"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func newTestServer() *Server {
	set := app.SettingsFromConfig(config.Default().Analysis)
	set.TopK = 5
	set.Trees = 10
	set.PermutationRepeats = 2
	svc := app.NewInterpretationService(app.WithRunRepository(testkit.NewInMemoryRunRepository()))
	return NewServer(svc, set, nil)
}

func do(t *testing.T, s *Server, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func cohortBody(t *testing.T) []byte {
	t.Helper()
	g, err := testkit.NewCohortGenerator(testkit.DefaultCohortConfig())
	require.NoError(t, err)
	ds, err := g.Generate()
	require.NoError(t, err)

	rows := make([][]float64, ds.Rows())
	for i := range rows {
		rows[i] = append([]float64(nil), ds.X.RawRowView(i)...)
	}
	body, err := json.Marshal(map[string]interface{}{
		"features":   rows,
		"labels":     ds.Labels,
		"roi_labels": g.Layout().Labels(),
	})
	require.NoError(t, err)
	return body
}

func TestHealth(t *testing.T) {
	w := do(t, newTestServer(), http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestFeatureNames(t *testing.T) {
	w := do(t, newTestServer(), http.MethodGet, "/api/v1/features/names?rois=2&roi_labels=Putamen_L,Caudate_R", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Count int      `json:"count"`
		Names []string `json:"names"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, 13, resp.Count)
	assert.Equal(t, "Putamen_L_mean_activity", resp.Names[0])
	assert.Contains(t, resp.Names, "FC_Putamen_L_Caudate_R")
}

func TestFeatureNamesValidation(t *testing.T) {
	s := newTestServer()
	for _, target := range []string{
		"/api/v1/features/names",
		"/api/v1/features/names?rois=abc",
		"/api/v1/features/names?rois=-1",
		"/api/v1/features/names?rois=1&roi_labels=a,b",
		"/api/v1/features/names?rois=1001",
		"/api/v1/features/names?rois=200000",
	} {
		w := do(t, s, http.MethodGet, target, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, target)
	}
}

func TestCategorize(t *testing.T) {
	w := do(t, newTestServer(), http.MethodGet, "/api/v1/features/categorize?name=FC_Putamen_L_Caudate_R", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, string(interpret.CategoryConnectivity), resp["feature_type"])
	assert.NotEmpty(t, resp["biological_relevance"])

	w = do(t, newTestServer(), http.MethodGet, "/api/v1/features/categorize", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAnalyzeAndFetchRun(t *testing.T) {
	s := newTestServer()

	w := do(t, s, http.MethodPost, "/api/v1/analyze", cohortBody(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		RunID     string          `json:"run_id"`
		BestModel string          `json:"best_model"`
		TopK      int             `json:"top_k"`
		Summary   json.RawMessage `json:"summary"`
		Insights  struct {
			TopFeatures []json.RawMessage `json:"top_features"`
		} `json:"insights"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.RunID)
	assert.NotEmpty(t, resp.BestModel)
	assert.Equal(t, 5, resp.TopK)
	assert.NotEmpty(t, resp.Insights.TopFeatures)

	w = do(t, s, http.MethodGet, "/api/v1/runs", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), resp.RunID)

	w = do(t, s, http.MethodGet, "/api/v1/runs/"+resp.RunID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"summary"`)
}

func TestAnalyzeRendersReport(t *testing.T) {
	s := newTestServer()

	w := do(t, s, http.MethodPost, "/api/v1/analyze?format=markdown&top_k=3", cohortBody(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Body.String(), "# Parkinson's Disease fMRI Classification"))

	w = do(t, s, http.MethodPost, "/api/v1/analyze?format=html", cohortBody(t))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<table>")
	assert.Contains(t, w.Body.String(), "<h2")
}

func TestAnalyzeRejectsBadInput(t *testing.T) {
	s := newTestServer()
	tests := []struct {
		name   string
		target string
		body   string
		status int
	}{
		{"not json", "/api/v1/analyze", `nope`, http.StatusBadRequest},
		{"one class", "/api/v1/analyze", `{"features": [[1], [2]], "labels": [1, 1]}`, http.StatusBadRequest},
		{"bad top k", "/api/v1/analyze?top_k=x", `{"features": [[1], [2]], "labels": [0, 1]}`, http.StatusBadRequest},
		{"unnamed columns", "/api/v1/analyze", `{"features": [[1, 2, 3], [4, 5, 6]], "labels": [0, 1]}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(t, s, http.MethodPost, tt.target, []byte(tt.body))
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestGetRunErrors(t *testing.T) {
	s := newTestServer()

	w := do(t, s, http.MethodGet, "/api/v1/runs/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = do(t, s, http.MethodGet, "/api/v1/runs/"+string(core.NewRunID()), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRunsWithoutStore(t *testing.T) {
	s := NewServer(app.NewInterpretationService(), app.SettingsFromConfig(config.Default().Analysis), nil)
	w := do(t, s, http.MethodGet, "/api/v1/runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestFiniteDocument(t *testing.T) {
	doc := &report.Document{
		BestScore:   0.8,
		TopFeatures: []report.FeatureAggregate{{Name: "a", MeanScore: math.Inf(1)}},
		Categories:  []report.CategoryStat{{Mean: math.NaN()}},
		Combined:    []report.CombinedEntry{{FScore: math.Inf(1)}},
	}

	out := finiteDocument(doc)
	assert.Equal(t, math.MaxFloat64, out.TopFeatures[0].MeanScore)
	assert.Equal(t, 0.0, out.Categories[0].Mean)
	assert.Equal(t, math.MaxFloat64, out.Combined[0].FScore)
	assert.True(t, math.IsInf(doc.TopFeatures[0].MeanScore, 1), "input must not be modified")

	_, err := json.Marshal(out)
	assert.NoError(t, err)
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, statusFor("INVALID_INPUT"))
	assert.Equal(t, http.StatusBadRequest, statusFor("DIMENSION_MISMATCH"))
	assert.Equal(t, http.StatusNotFound, statusFor("NOT_FOUND"))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor("MODEL_ERROR"))
	assert.Equal(t, http.StatusInternalServerError, statusFor("IO_ERROR"))
}
