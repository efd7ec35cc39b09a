package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"supportbot/internal/dataset"
	"supportbot/internal/domain"
	"supportbot/internal/engine"
	"supportbot/internal/service"
)

func newTestServer(t *testing.T, withDataset bool) http.Handler {
	t.Helper()
	path := filepath.Join(t.TempDir(), "processed_dataset.json")
	if withDataset {
		p := &dataset.Processed{
			TrainingCorpus: domain.TrainingCorpus{Train: domain.Split{
				Inputs:  []string{"hello there", "reset my password"},
				Targets: []string{"Hi! How can I help?", "Go to settings > security."},
			}},
			Info: dataset.Info{TotalSamples: 2, TrainSamples: 2, TextColumn: "instruction", ResponseColumn: "response"},
		}
		require.NoError(t, dataset.Save(path, p))
	}
	svc := service.New(service.Options{
		DatasetPath: path,
		Basic:       engine.DefaultOptions(domain.KindBasic),
		Enhanced:    engine.DefaultOptions(domain.KindEnhanced),
		Logger:      zerolog.Nop(),
	})
	return New(svc, Config{MaxMessageLength: 20}, zerolog.Nop()).Routes()
}

func do(t *testing.T, h http.Handler, method, path, body string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	var out map[string]any
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	}
	return rec.Code, out
}

func TestHealth(t *testing.T) {
	code, body := do(t, newTestServer(t, false), http.MethodGet, "/api/health", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, Version, body["version"])
	models := body["models"].(map[string]any)
	assert.Equal(t, false, models["basic_model_loaded"])
}

func TestChatUntrained(t *testing.T) {
	code, body := do(t, newTestServer(t, false), http.MethodPost, "/api/chat", `{"message":"hi","session_id":"abc"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, engine.MsgNotTrained, body["response"])
	assert.Equal(t, "abc", body["session_id"])
	assert.Equal(t, "basic", body["model_type"])
	assert.Equal(t, string(domain.OutcomeUntrained), body["outcome"])
}

func TestChatValidation(t *testing.T) {
	h := newTestServer(t, false)
	cases := []struct {
		name, body, msg string
	}{
		{"invalid json", `{`, msgInvalidJSON},
		{"missing message", `{"model_type":"basic"}`, "Missing required field: message"},
		{"blank message", `{"message":"   "}`, "Message cannot be empty"},
		{"too long", `{"message":"` + strings.Repeat("a", 21) + `"}`, "Message too long (max 20 characters)"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			code, body := do(t, h, http.MethodPost, "/api/chat", tc.body)
			assert.Equal(t, http.StatusBadRequest, code)
			assert.Equal(t, "error", body["status"])
			assert.Equal(t, tc.msg, body["message"])
		})
	}
}

func TestTrainThenChat(t *testing.T) {
	h := newTestServer(t, true)

	code, body := do(t, h, http.MethodPost, "/api/train", `{"model_type":"basic"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "Basic model trained successfully", body["message"])
	results := body["results"].(map[string]any)
	assert.EqualValues(t, 2, results["basic"].(map[string]any)["training_samples"])

	code, body = do(t, h, http.MethodPost, "/api/chat", `{"message":"hello"}`)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Hi! How can I help?", body["response"])
	assert.NotEmpty(t, body["session_id"])

	code, body = do(t, h, http.MethodGet, "/api/model-status", "")
	assert.Equal(t, http.StatusOK, code)
	basic := body["models"].(map[string]any)["basic"].(map[string]any)
	assert.Equal(t, true, basic["loaded"])
	assert.Len(t, basic["training_history"], 1)
}

func TestTrainWithoutDatasetIsUnprocessable(t *testing.T) {
	code, body := do(t, newTestServer(t, false), http.MethodPost, "/api/train", "")
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "error", body["status"])
}

func TestTrainUnknownModelTrainsBasic(t *testing.T) {
	h := newTestServer(t, true)
	code, body := do(t, h, http.MethodPost, "/api/train", `{"model_type":"gpt"}`)
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "basic", body["model_type"])
	assert.Contains(t, body["results"], "basic")

	_, body = do(t, h, http.MethodGet, "/api/health", "")
	assert.Equal(t, true, body["models"].(map[string]any)["basic_model_loaded"])
}

func TestTrainAllReportsEnginesTrainedBeforeFailure(t *testing.T) {
	// Two unrelated inputs leave the enhanced vocabulary empty after
	// min_df pruning, so only the basic engine trains.
	h := newTestServer(t, true)
	code, body := do(t, h, http.MethodPost, "/api/train", `{"model_type":"all"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, code)
	assert.Equal(t, "error", body["status"])
	assert.Equal(t, "all", body["model_type"])
	results := body["results"].(map[string]any)
	assert.EqualValues(t, 2, results["basic"].(map[string]any)["training_samples"])
	assert.NotContains(t, results, "enhanced")

	_, body = do(t, h, http.MethodGet, "/api/health", "")
	models := body["models"].(map[string]any)
	assert.Equal(t, true, models["basic_model_loaded"])
	assert.Equal(t, false, models["enhanced_model_loaded"])
}

func TestTrainStatus(t *testing.T) {
	assert.Equal(t, http.StatusConflict, trainStatus(domain.ErrTrainingInProgress))
	assert.Equal(t, http.StatusUnprocessableEntity, trainStatus(domain.ErrEmptyCorpus))
	assert.Equal(t, http.StatusUnprocessableEntity, trainStatus(domain.ErrInsufficientData))
	assert.Equal(t, http.StatusUnprocessableEntity, trainStatus(service.ErrNoDataset))
	assert.Equal(t, http.StatusInternalServerError, trainStatus(assert.AnError))
}

func TestCompare(t *testing.T) {
	h := newTestServer(t, true)
	code, _ := do(t, h, http.MethodPost, "/api/train", `{"model_type":"basic"}`)
	require.Equal(t, http.StatusOK, code)

	code, body := do(t, h, http.MethodPost, "/api/compare", `{"message":"reset my password"}`)
	assert.Equal(t, http.StatusOK, code)
	responses := body["responses"].(map[string]any)
	assert.Equal(t, "Go to settings > security.", responses["basic"].(map[string]any)["response"])
	enhanced := responses["enhanced"].(map[string]any)
	assert.Equal(t, service.MsgModelNotTrained, enhanced["response"])
	assert.Equal(t, false, enhanced["available"])
}

func TestModels(t *testing.T) {
	code, body := do(t, newTestServer(t, false), http.MethodGet, "/api/models", "")
	assert.Equal(t, http.StatusOK, code)
	models := body["models"].(map[string]any)
	assert.Equal(t, "Enhanced Chatbot", models["enhanced"].(map[string]any)["name"])
}

func TestDatasetInfo(t *testing.T) {
	code, body := do(t, newTestServer(t, false), http.MethodGet, "/api/dataset/info", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["dataset_available"])

	code, body = do(t, newTestServer(t, true), http.MethodGet, "/api/dataset/info", "")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["dataset_available"])
	assert.Len(t, body["samples"], 2)
	assert.Equal(t, "instruction", body["info"].(map[string]any)["text_column"])
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestServer(t, false)
	code, body := do(t, h, http.MethodGet, "/api/nope", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Endpoint not found", body["message"])

	code, body = do(t, h, http.MethodGet, "/api/chat", "")
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "Method not allowed", body["message"])
}

func TestMetricsEndpoint(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	newTestServer(t, false).ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
