package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"mindful-resolve/internal/ai"
	"mindful-resolve/internal/app"
	"mindful-resolve/internal/bootstrap"
	"mindful-resolve/internal/config"
	"mindful-resolve/internal/model"
	sqliteClient "mindful-resolve/internal/platform/sqlite"
	"mindful-resolve/internal/repository"
	"mindful-resolve/internal/transport/http/handler"
)

const routerSecret = "router-secret"

type stubGenerator struct {
	text  string
	calls atomic.Int32
}

func (g *stubGenerator) Generate(context.Context, ai.Prompt) (string, error) {
	g.calls.Add(1)
	return g.text, nil
}

type testServer struct {
	router    *gin.Engine
	generator *stubGenerator
	db        *gorm.DB
}

func newTestServer(t *testing.T, withGenerator bool) *testServer {
	t.Helper()

	db, err := sqliteClient.New(context.Background(), filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.Session{}))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	generator := &stubGenerator{text: "Start by listening to each other."}
	var textGenerator ai.TextGenerator
	if withGenerator {
		textGenerator = generator
	}

	cfg := &config.Config{
		App:      config.AppConfig{Name: "mindful-resolve", Env: "test", GinMode: gin.TestMode, AllowedOrigin: "*"},
		Auth:     config.AuthConfig{TokenSecret: routerSecret, TokenExpireMinute: 60},
		Database: config.DatabaseConfig{Driver: "sqlite"},
	}
	svc := app.NewSessionService(repository.NewSessionRepository(db), nil, nil, textGenerator, app.SessionSettings{
		TokenSecret: routerSecret,
		TokenTTL:    time.Hour,
	}, zap.NewNop())

	router := NewRouter(&bootstrap.App{
		Config:         cfg,
		Logger:         zap.NewNop(),
		DB:             db,
		SessionService: svc,
		GeneratorReady: withGenerator,
		StartedAt:      time.Now(),
	})
	return &testServer{router: router, generator: generator, db: db}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestMediationRoundTrip(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/v1/sessions", "", gin.H{
		"session_code": "AB12CD",
		"perspective":  "I felt ignored",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	created := decode[handler.SessionTokenResponse](t, rec)
	assert.Equal(t, "AB12CD", created.Session.SessionCode)
	assert.Equal(t, model.DefaultPartner1Name, created.Session.Partner1Name)
	assert.False(t, created.Session.HasPartner2)
	require.NotEmpty(t, created.Token)

	rec = srv.do(t, http.MethodPost, "/api/v1/sessions/join", "", gin.H{"session_code": "ab12cd"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	joined := decode[handler.JoinSessionResponse](t, rec)
	assert.Equal(t, "AB12CD", joined.SessionCode)

	rec = srv.do(t, http.MethodPost, "/api/v1/sessions/AB12CD/partner2", "", gin.H{
		"partner_name": "Alex",
		"perspective":  "I was overwhelmed",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	partner2 := decode[handler.SessionTokenResponse](t, rec)
	assert.True(t, partner2.Session.HasPartner2)
	assert.Equal(t, "Alex", partner2.Session.Partner2Name)

	rec = srv.do(t, http.MethodPost, "/api/v1/solutions", partner2.Token, gin.H{"sessionCode": "AB12CD"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	solution := decode[handler.GenerateSolutionResponse](t, rec)
	assert.Equal(t, "Start by listening to each other.", solution.Solution)

	rec = srv.do(t, http.MethodPost, "/api/v1/solutions", created.Token, gin.H{"sessionCode": "AB12CD"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, solution, decode[handler.GenerateSolutionResponse](t, rec))
	assert.EqualValues(t, 1, srv.generator.calls.Load())

	rec = srv.do(t, http.MethodGet, "/api/v1/sessions/AB12CD", created.Token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[handler.SessionView](t, rec)
	assert.Equal(t, solution.Solution, view.Solution)
}

func TestCreateSessionStatuses(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/v1/sessions", "", gin.H{"perspective": "  "})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, decode[map[string]string](t, rec)["error"])

	rec = srv.do(t, http.MethodPost, "/api/v1/sessions", "", gin.H{"perspective": "first"})
	require.Equal(t, http.StatusCreated, rec.Code)
	code := decode[handler.SessionTokenResponse](t, rec).Session.SessionCode
	assert.Len(t, code, 6)

	rec = srv.do(t, http.MethodPost, "/api/v1/sessions", "", gin.H{"session_code": code, "perspective": "again"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestJoinStatuses(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/v1/sessions/join", "", gin.H{"session_code": "AB12C"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/sessions/join", "", gin.H{"session_code": "ZZZZZZ"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	srv.do(t, http.MethodPost, "/api/v1/sessions", "", gin.H{"session_code": "AB12CD", "perspective": "a"})
	srv.do(t, http.MethodPost, "/api/v1/sessions/AB12CD/partner2", "", gin.H{"perspective": "b"})

	rec = srv.do(t, http.MethodPost, "/api/v1/sessions/join", "", gin.H{"session_code": "AB12CD"})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/sessions/AB12CD/partner2", "", gin.H{"perspective": "c"})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestSolutionStatuses(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/v1/sessions", "", gin.H{"session_code": "AB12CD", "perspective": "a"})
	token := decode[handler.SessionTokenResponse](t, rec).Token

	rec = srv.do(t, http.MethodPost, "/api/v1/solutions", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/solutions", "", gin.H{"sessionCode": "AB12CD"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodPost, "/api/v1/solutions", token, gin.H{"sessionCode": "AB12CD"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Zero(t, srv.generator.calls.Load())

	rec = srv.do(t, http.MethodPost, "/api/v1/sessions", "", gin.H{"session_code": "QQ99QQ", "perspective": "x"})
	other := decode[handler.SessionTokenResponse](t, rec).Token
	rec = srv.do(t, http.MethodPost, "/api/v1/solutions", other, gin.H{"sessionCode": "AB12CD"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	// unknown codes are reported before the token is looked at
	rec = srv.do(t, http.MethodPost, "/api/v1/solutions", "", gin.H{"sessionCode": "ZZ00ZZ"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = srv.do(t, http.MethodPost, "/api/v1/solutions", "", gin.H{"sessionCode": "bad"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSolutionForPurgedSession(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/v1/sessions", "", gin.H{"session_code": "AB12CD", "perspective": "a"})
	token := decode[handler.SessionTokenResponse](t, rec).Token
	srv.do(t, http.MethodPost, "/api/v1/sessions/AB12CD/partner2", "", gin.H{"perspective": "b"})

	require.NoError(t, srv.db.Where("session_code = ?", "AB12CD").Delete(&model.Session{}).Error)

	rec = srv.do(t, http.MethodPost, "/api/v1/solutions", token, gin.H{"sessionCode": "AB12CD"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "session not found", decode[map[string]string](t, rec)["error"])
	assert.Zero(t, srv.generator.calls.Load())
}

func TestSolutionWithoutProvider(t *testing.T) {
	srv := newTestServer(t, false)

	rec := srv.do(t, http.MethodPost, "/api/v1/sessions", "", gin.H{"session_code": "AB12CD", "perspective": "a"})
	token := decode[handler.SessionTokenResponse](t, rec).Token
	srv.do(t, http.MethodPost, "/api/v1/sessions/AB12CD/partner2", "", gin.H{"perspective": "b"})

	rec = srv.do(t, http.MethodPost, "/api/v1/solutions", token, gin.H{"sessionCode": "AB12CD"})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "AI service not configured", decode[map[string]string](t, rec)["error"])
}

func TestGetSessionRequiresMatchingToken(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodPost, "/api/v1/sessions", "", gin.H{"session_code": "AB12CD", "perspective": "a"})
	token := decode[handler.SessionTokenResponse](t, rec).Token

	rec = srv.do(t, http.MethodGet, "/api/v1/sessions/AB12CD", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/sessions/AB12CD", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/sessions/ZZZZZZ", token, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = srv.do(t, http.MethodGet, "/api/v1/sessions/AB12CD", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	view := decode[handler.SessionView](t, rec)
	assert.False(t, view.HasPartner2)
	assert.Empty(t, view.Solution)
}

func TestPreflightAndHealth(t *testing.T) {
	srv := newTestServer(t, true)

	rec := srv.do(t, http.MethodOptions, "/api/v1/solutions", "", nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), "authorization")

	rec = srv.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}
