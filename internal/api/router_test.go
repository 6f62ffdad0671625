package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rankontop/backend/internal/analysis"
	"github.com/rankontop/backend/internal/auth"
	"github.com/rankontop/backend/internal/providers/appstore"
	"github.com/rankontop/backend/internal/signal"
	"github.com/rankontop/backend/internal/storage/sqlite"
)

type stubPerformance struct{}

func (stubPerformance) Fetch(context.Context, string) signal.Result[signal.Performance] {
	return signal.OK(signal.Performance{Score: 80})
}

type stubContent struct{}

func (stubContent) Fetch(context.Context, string) signal.Result[signal.PageContent] {
	return signal.OK(signal.PageContent{Title: "t", Description: "d", Heading: "h"})
}

type stubKeyword struct{}

func (stubKeyword) Fetch(context.Context, string, string) signal.Result[signal.KeywordInsight] {
	return signal.Failedf[signal.KeywordInsight]("SerpAPI key not found")
}

type failingAnalyzer struct{ err error }

func (f failingAnalyzer) Analyze(context.Context, string, analysis.Target) (*analysis.Record, error) {
	return nil, f.err
}

type testEnv struct {
	app    *fiber.App
	store  *sqlite.Client
	tokens *auth.Tokens
}

func newTestEnv(t *testing.T, analyzer func(*sqlite.Client) Deps) *testEnv {
	t.Helper()

	store, err := sqlite.NewClient(filepath.Join(t.TempDir(), "api.db"))
	require.NoError(t, err)
	require.NoError(t, store.InitSchema())
	t.Cleanup(func() { store.Close() })

	deps := analyzer(store)
	deps.Store = store
	deps.Tokens = auth.NewTokens("test-secret", 30*time.Minute)
	deps.IsDevelopment = true
	deps.EnableMetrics = true

	return &testEnv{app: NewApp(deps), store: store, tokens: deps.Tokens}
}

func realAnalyzer(store *sqlite.Client) Deps {
	sources := analysis.Sources{
		Performance: stubPerformance{},
		Content:     stubContent{},
		Keyword:     stubKeyword{},
		App:         appstore.NewResolver(appstore.NewCatalog(nil)),
	}
	return Deps{Analyzer: analysis.NewService(sources, store, store, analysis.Config{})}
}

func (e *testEnv) do(t *testing.T, method, path, token, body string) (int, map[string]interface{}) {
	t.Helper()

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	out := map[string]interface{}{}
	raw, _ := io.ReadAll(resp.Body)
	json.Unmarshal(raw, &out)
	return resp.StatusCode, out
}

func (e *testEnv) registerAndLogin(t *testing.T, email string) string {
	t.Helper()
	creds := fmt.Sprintf(`{"email":%q,"password":"pw123456"}`, email)

	status, _ := e.do(t, "POST", "/register", "", creds)
	require.Equal(t, fiber.StatusOK, status)

	status, out := e.do(t, "POST", "/login", "", creds)
	require.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "bearer", out["token_type"])
	return out["access_token"].(string)
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t, realAnalyzer)

	status, out := env.do(t, "GET", "/", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "ok", out["status"])

	status, out = env.do(t, "GET", "/health", "", "")
	assert.Equal(t, fiber.StatusOK, status)
	assert.Equal(t, "healthy", out["status"])
}

func TestRegisterAndLogin(t *testing.T) {
	env := newTestEnv(t, realAnalyzer)
	env.registerAndLogin(t, "user@example.com")

	status, out := env.do(t, "POST", "/register", "", `{"email":"user@example.com","password":"other"}`)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Email already registered.", out["error"])

	status, _ = env.do(t, "POST", "/login", "", `{"email":"user@example.com","password":"wrong"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = env.do(t, "POST", "/login", "", `{"email":"nobody@example.com","password":"pw"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAnalyze_RequiresAuth(t *testing.T) {
	env := newTestEnv(t, realAnalyzer)

	status, _ := env.do(t, "POST", "/analyze", "", `{"url":"https://example.com"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)

	status, _ = env.do(t, "POST", "/analyze", "garbage", `{"url":"https://example.com"}`)
	assert.Equal(t, fiber.StatusUnauthorized, status)
}

func TestAnalyze_URL(t *testing.T) {
	env := newTestEnv(t, realAnalyzer)
	token := env.registerAndLogin(t, "user@example.com")

	status, out := env.do(t, "POST", "/analyze", token, `{"url":"https://example.com","keyword":"shoes"}`)
	require.Equal(t, fiber.StatusOK, status)

	assert.Equal(t, "complete", out["status"])
	assert.Equal(t, 30.8, out["overall_score"])
	scores := out["scores"].(map[string]interface{})
	assert.InDelta(t, 77.0, scores["seo"], 1e-9)
	assert.NotContains(t, scores, "aieo")

	acc, err := env.store.LookupAccount(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, acc.AnalysisCount)

	status, out = env.do(t, "GET", "/analyses?limit=5", token, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Len(t, out["analyses"], 1)
	assert.Equal(t, float64(1), out["analysis_count"])
	assert.Equal(t, float64(9), out["remaining_analyses"])
}

func TestAnalyze_App(t *testing.T) {
	env := newTestEnv(t, realAnalyzer)
	token := env.registerAndLogin(t, "user@example.com")

	status, out := env.do(t, "POST", "/analyze", token, `{"app_id":"com.facebook.katana"}`)
	require.Equal(t, fiber.StatusOK, status)

	// 4.3 stars and 78 sentiment give 82.
	assert.Equal(t, 24.6, out["overall_score"])
	app := out["signals"].(map[string]interface{})["app"].(map[string]interface{})
	assert.Equal(t, "provider", app["data"].(map[string]interface{})["origin"])
}

func TestAnalyze_InvalidTargets(t *testing.T) {
	env := newTestEnv(t, realAnalyzer)
	token := env.registerAndLogin(t, "user@example.com")

	for _, body := range []string{
		`{}`,
		`{"keyword":"shoes"}`,
		`{"url":"https://example.com","app_id":"com.x"}`,
		`{"url":"not a url"}`,
	} {
		status, out := env.do(t, "POST", "/analyze", token, body)
		assert.Equal(t, fiber.StatusUnprocessableEntity, status, body)
		assert.NotEmpty(t, out["error"], body)
	}

	acc, err := env.store.LookupAccount(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, 0, acc.AnalysisCount)
}

func TestAnalyze_QuotaExceeded(t *testing.T) {
	env := newTestEnv(t, realAnalyzer)
	token := env.registerAndLogin(t, "user@example.com")

	acc, err := env.store.LookupAccount(context.Background(), "user@example.com")
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		rec := &analysis.Record{ID: fmt.Sprintf("seed-%d", i), Target: analysis.Target{AppID: "com.x"}}
		_, err := env.store.SaveAndCount(context.Background(), acc.ID, rec, 10)
		require.NoError(t, err)
	}

	status, out := env.do(t, "POST", "/analyze", token, `{"url":"https://example.com"}`)
	assert.Equal(t, fiber.StatusForbidden, status)
	assert.Equal(t, "Free analysis limit reached. Please upgrade.", out["error"])

	require.NoError(t, env.store.SetTier(context.Background(), acc.ID, "pro"))
	status, _ = env.do(t, "POST", "/analyze", token, `{"url":"https://example.com"}`)
	assert.Equal(t, fiber.StatusOK, status)
}

func TestAnalyze_UnknownAccount(t *testing.T) {
	env := newTestEnv(t, realAnalyzer)
	token, err := env.tokens.Issue("ghost@example.com")
	require.NoError(t, err)

	status, _ := env.do(t, "POST", "/analyze", token, `{"url":"https://example.com"}`)
	assert.Equal(t, fiber.StatusNotFound, status)

	status, _ = env.do(t, "GET", "/analyses", token, "")
	assert.Equal(t, fiber.StatusNotFound, status)
}

func TestAnalyze_PersistenceFailure(t *testing.T) {
	env := newTestEnv(t, func(*sqlite.Client) Deps {
		return Deps{Analyzer: failingAnalyzer{err: fmt.Errorf("%w: disk full", analysis.ErrPersistence)}}
	})
	token := env.registerAndLogin(t, "user@example.com")

	status, out := env.do(t, "POST", "/analyze", token, `{"url":"https://example.com"}`)
	assert.Equal(t, fiber.StatusInternalServerError, status)
	assert.NotContains(t, out["error"], "disk full")
}

func TestMetricsAndWebSocketRoutes(t *testing.T) {
	env := newTestEnv(t, realAnalyzer)

	status, _ := env.do(t, "GET", "/metrics", "", "")
	assert.Equal(t, fiber.StatusOK, status)

	status, _ = env.do(t, "GET", "/ws/analyze", "", "")
	assert.Equal(t, fiber.StatusUpgradeRequired, status)
}
