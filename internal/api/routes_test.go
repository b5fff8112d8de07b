package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aconic-ni/customsclass-r/internal/auth"
	"github.com/aconic-ni/customsclass-r/internal/classifier"
	"github.com/aconic-ni/customsclass-r/internal/history"
	"github.com/aconic-ni/customsclass-r/internal/hscode"
	"github.com/aconic-ni/customsclass-r/internal/store"
)

type stubPredictor struct{ err error }

func (s stubPredictor) Predict(ctx context.Context, brand, description string) (hscode.PredictionResult, error) {
	if s.err != nil {
		return hscode.PredictionResult{}, s.err
	}
	return hscode.PredictionResult{HSCode: "9102.12", Explanation: "wrist-watch with opto-electronic display"}, nil
}

type stubExplainer struct{}

func (stubExplainer) Explain(ctx context.Context, brand, description, code string) (hscode.ExplanationResult, error) {
	return hscode.ExplanationResult{Explanation: "Behold, the timepiece of tomorrow, heading " + hscode.Heading(code) + "."}, nil
}

type testEnv struct {
	server *Server
	router *gin.Engine
	db     *store.Database
}

func newTestEnv(t *testing.T, predictErr error) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := store.Open(filepath.Join(t.TempDir(), "api.db"), true)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	hist := history.NewCached(history.NewRepository(db, history.Options{}), 16, time.Minute)
	svc, err := classifier.NewService(stubPredictor{err: predictErr}, stubExplainer{}, hist, classifier.Options{})
	require.NoError(t, err)

	server, err := NewServer(Config{Provider: "stub", AuthHeader: auth.DefaultHeader}, Deps{
		Classifier: svc,
		History:    hist,
		Auth:       auth.NewHeader(""),
		DB:         db,
	})
	require.NoError(t, err)
	router, err := server.Router()
	require.NoError(t, err)
	return &testEnv{server: server, router: router, db: db}
}

func (e *testEnv) do(t *testing.T, method, path, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if user != "" {
		req.Header.Set(auth.DefaultHeader, user)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

const watchBody = `{"brand":"QuantumLeap","description":"A retro-futuristic wrist chronometer with a Nixie tube display"}`

func TestClassifyThenHistoryLifecycle(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/classify", "u1", watchBody)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var classified ClassifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &classified))
	assert.True(t, classified.Saved)
	assert.Equal(t, "9102.12", classified.Result.Prediction.HSCode)
	assert.Contains(t, classified.Result.Explanation.Explanation, "heading 9102")
	require.NotNil(t, classified.Item)

	w = env.do(t, http.MethodGet, "/api/history", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var listed HistoryResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed.Items, 1)
	assert.Equal(t, classified.Item.ID, listed.Items[0].ID)
	assert.Equal(t, "u1", listed.User.UID)

	w = env.do(t, http.MethodGet, "/api/history/export", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment; filename=customsclass-r_history_")
	exported, err := history.ParseExport(w.Body.Bytes())
	require.NoError(t, err)
	require.Len(t, exported, 1)
	assert.Equal(t, listed.Items[0].ID, exported[0].ID)
	assert.Equal(t, listed.Items[0].Result, exported[0].Result)
	assert.True(t, listed.Items[0].Timestamp.Equal(exported[0].Timestamp))

	w = env.do(t, http.MethodGet, "/api/history", "u2", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"user":{"uid":"u2"},"items":[]}`, w.Body.String())

	w = env.do(t, http.MethodDelete, "/api/history", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deleted":1}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/history/export", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]", w.Body.String())
}

func TestClassifyValidationError(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/classify", "u1", `{"brand":"x","description":"short"}`)
	require.Equal(t, http.StatusUnprocessableEntity, w.Code)
	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "description must be at least 10 characters in length", body.Error)
	require.Len(t, body.Fields, 1)
	assert.Equal(t, "description", body.Fields[0].Field)
}

func TestClassifyBadJSON(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(t, http.MethodPost, "/api/classify", "u1", `{"brand":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestClassifyProviderFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t, errors.New("upstream said: invalid api key sk-123"))

	w := env.do(t, http.MethodPost, "/api/classify", "u1", watchBody)
	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.JSONEq(t, `{"error":"An unexpected error occurred. Please try again."}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "sk-123")

	w = env.do(t, http.MethodGet, "/api/history", "u1", "")
	assert.JSONEq(t, `{"user":{"uid":"u1"},"items":[]}`, w.Body.String())
}

func TestAnonymousClassifyIsNotSaved(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodPost, "/api/classify", "", watchBody)
	require.Equal(t, http.StatusOK, w.Code)
	var classified ClassifyResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &classified))
	assert.False(t, classified.Saved)
	assert.Nil(t, classified.Item)
}

func TestHistoryRequiresUser(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/api/history"},
		{http.MethodDelete, "/api/history"},
		{http.MethodGet, "/api/history/export"},
		{http.MethodGet, "/api/history/stream"},
	} {
		w := env.do(t, tc.method, tc.path, "", "")
		assert.Equal(t, http.StatusUnauthorized, w.Code, tc.path)
	}
}

func TestHealthConfigAndIndex(t *testing.T) {
	env := newTestEnv(t, nil)

	w := env.do(t, http.MethodGet, "/api/healthz", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/api/config", "", "")
	assert.JSONEq(t, `{"provider":"stub","auth_mode":"header","require_user":false,"min_description_length":10}`, w.Body.String())

	w = env.do(t, http.MethodGet, "/", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `data-auth-mode="header"`)

	w = env.do(t, http.MethodGet, "/static/app.js", "", "")
	assert.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, env.db.Close())
	w = env.do(t, http.MethodGet, "/api/healthz", "", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestHistoryStreamPushesEvents(t *testing.T) {
	env := newTestEnv(t, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	header := http.Header{}
	header.Set(auth.DefaultHeader, "u1")
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/history/stream", header)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.server.Notifier().Sessions("u1") == 1 }, 2*time.Second, 10*time.Millisecond)

	w := env.do(t, http.MethodPost, "/api/classify", "u1", watchBody)
	require.Equal(t, http.StatusOK, w.Code)
	env.do(t, http.MethodPost, "/api/classify", "u2", watchBody)
	w = env.do(t, http.MethodDelete, "/api/history", "u1", "")
	require.Equal(t, http.StatusOK, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var saved HistoryEvent
	require.NoError(t, conn.ReadJSON(&saved))
	assert.Equal(t, EventSaved, saved.Type)
	require.NotNil(t, saved.Item)
	assert.Equal(t, "u1", saved.Item.UserID)

	var cleared HistoryEvent
	require.NoError(t, conn.ReadJSON(&cleared))
	assert.Equal(t, EventCleared, cleared.Type)
	assert.Equal(t, int64(1), cleared.Deleted)
}
