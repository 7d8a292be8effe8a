package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"walrusweb/pkg/auth"
	"walrusweb/pkg/middleware"
	"walrusweb/pkg/models"
	"walrusweb/pkg/ratelimit"
	"walrusweb/pkg/services"
	"walrusweb/pkg/share"
	"walrusweb/pkg/store"
)

const testSecret = "operator-secret"

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router *gin.Engine
	store  *store.Store
}

func newTestServer(t *testing.T, secret string, opts ...HandlersOptionFunc) *testServer {
	t.Helper()
	s := store.New(store.NewMemoryBackend())
	t.Cleanup(func() { _ = s.Close() })
	service := services.NewQuoteService(s.Contacts(), s.Pitches(), auth.NewGuard(secret))
	router := gin.New()
	NewHandlers(service, opts...).RegisterRoutes(router)
	return &testServer{router: router, store: s}
}

func (ts *testServer) do(method string, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, _ := json.Marshal(b)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func operator(secret string) map[string]string {
	return map[string]string{auth.HeaderName: secret}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var ret T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ret), w.Body.String())
	return ret
}

var contactBody = map[string]any{
	"businessName": "Blue Plate Diner",
	"contactName":  "Sam Rivera",
	"email":        "sam@blueplate.example",
	"phone":        "555-010-2020",
	"industry":     "Restaurant",
	"volume":       "$50k - $100k",
}

var pitchBody = map[string]any{
	"merchantName":     "Blue Plate Diner",
	"industry":         "Restaurant",
	"monthlyVolume":    300000,
	"currentProcessor": "Square",
	"currentRate":      2.9,
}

func TestHealthCheck(t *testing.T) {
	ts := newTestServer(t, testSecret)
	w := ts.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestSubmitContact(t *testing.T) {
	ts := newTestServer(t, testSecret)
	w := ts.do(http.MethodPost, "/api/contact", contactBody, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	resp := decode[map[string]any](t, w)
	assert.Equal(t, true, resp["success"])
	assert.NotEmpty(t, resp["id"])

	w = ts.do(http.MethodGet, "/api/contacts", nil, operator(testSecret))
	require.Equal(t, http.StatusOK, w.Code)
	contacts := decode[[]models.ContactSubmission](t, w)
	require.Len(t, contacts, 1)
	assert.Equal(t, resp["id"], contacts[0].ID)
	assert.Equal(t, "Blue Plate Diner", contacts[0].BusinessName)
	assert.NotContains(t, w.Body.String(), "currentProcessor")
}

func TestSubmitContactRejected(t *testing.T) {
	ts := newTestServer(t, testSecret)

	w := ts.do(http.MethodPost, "/api/contact", "{not json", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid submission."}`, w.Body.String())

	bad := map[string]any{}
	for k, v := range contactBody {
		bad[k] = v
	}
	bad["email"] = "nope"
	w = ts.do(http.MethodPost, "/api/contact", bad, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[map[string]any](t, w)
	assert.Equal(t, "Invalid submission.", resp["error"])
	assert.Contains(t, resp["fields"], "email")

	contacts, err := ts.store.Contacts().List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, contacts)
}

func TestCreateAndGetPitch(t *testing.T) {
	ts := newTestServer(t, testSecret)
	w := ts.do(http.MethodPost, "/api/pitch", pitchBody, operator(testSecret))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	link := decode[map[string]string](t, w)
	require.True(t, strings.HasPrefix(link["url"], "/pitch/"), link["url"])
	assert.NotContains(t, link, "shortUrl")

	id := strings.TrimPrefix(link["url"], "/pitch/")
	w = ts.do(http.MethodGet, "/api/pitch/"+id, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	pitch := decode[models.PitchRecord](t, w)
	assert.Equal(t, id, pitch.ID)
	assert.Equal(t, 1.8, pitch.WalrusRatePercent)
	assert.Equal(t, 39600.0, pitch.AnnualSavings)

	w = ts.do(http.MethodGet, "/api/pitches", nil, operator(testSecret))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]models.PitchRecord](t, w), 1)
}

func TestGetPitchNotFound(t *testing.T) {
	ts := newTestServer(t, testSecret)
	w := ts.do(http.MethodGet, "/api/pitch/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error":"Pitch not found."}`, w.Body.String())
}

func TestGetPitchPaddedID(t *testing.T) {
	ts := newTestServer(t, testSecret)
	w := ts.do(http.MethodPost, "/api/pitch", pitchBody, operator(testSecret))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	id := strings.TrimPrefix(decode[map[string]string](t, w)["url"], "/pitch/")

	w = ts.do(http.MethodGet, "/api/pitch/%20"+id, nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = ts.do(http.MethodGet, "/api/pitch/"+id+"%20", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOperatorRoutesRequireSecret(t *testing.T) {
	routes := []struct {
		method string
		target string
		body   any
	}{
		{http.MethodPost, "/api/pitch", pitchBody},
		{http.MethodPost, "/api/pitch", "{not json"},
		{http.MethodGet, "/api/pitches", nil},
		{http.MethodGet, "/api/contacts", nil},
		{http.MethodPost, "/api/quote", map[string]any{"industry": "Retail", "monthlyVolume": 1000, "currentRate": 3}},
	}
	testDefs := []struct {
		name     string
		secret   string
		prod     bool
		headers  map[string]string
		expected int
	}{
		{"no header", testSecret, false, nil, http.StatusUnauthorized},
		{"wrong secret", testSecret, false, operator("guess"), http.StatusUnauthorized},
		{"not configured in development", "", false, operator("anything"), http.StatusUnauthorized},
		{"not configured in production", "", true, operator("anything"), http.StatusInternalServerError},
	}
	for _, testDef := range testDefs {
		t.Run(testDef.name, func(t *testing.T) {
			ts := newTestServer(t, testDef.secret, WithProduction(testDef.prod))
			for _, route := range routes {
				w := ts.do(route.method, route.target, route.body, testDef.headers)
				assert.Equal(t, testDef.expected, w.Code, "%s %s", route.method, route.target)
			}
			pitches, err := ts.store.Pitches().List(context.Background())
			require.NoError(t, err)
			assert.Empty(t, pitches)
		})
	}
}

func TestNotConfiguredMessage(t *testing.T) {
	ts := newTestServer(t, "", WithProduction(true))
	w := ts.do(http.MethodGet, "/api/pitches", nil, operator("x"))
	assert.JSONEq(t, `{"error":"Admin password not configured."}`, w.Body.String())

	ts = newTestServer(t, testSecret)
	w = ts.do(http.MethodGet, "/api/pitches", nil, nil)
	assert.JSONEq(t, `{"error":"Unauthorized"}`, w.Body.String())
}

func TestCreatePitchRejected(t *testing.T) {
	ts := newTestServer(t, testSecret)
	w := ts.do(http.MethodPost, "/api/pitch", "{not json", operator(testSecret))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.JSONEq(t, `{"error":"Invalid pitch request."}`, w.Body.String())

	w = ts.do(http.MethodPost, "/api/pitch", map[string]any{
		"merchantName":  "x",
		"industry":      "Retail",
		"monthlyVolume": "lots",
		"currentRate":   2.5,
	}, operator(testSecret))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ts.do(http.MethodPost, "/api/pitch", map[string]any{
		"merchantName":  "x",
		"industry":      "Retail",
		"monthlyVolume": 20_000_000,
		"currentRate":   2.5,
	}, operator(testSecret))
	assert.Equal(t, http.StatusBadRequest, w.Code)
	resp := decode[map[string]any](t, w)
	assert.Contains(t, resp["fields"], "monthlyVolume")
}

func TestQuotePreview(t *testing.T) {
	ts := newTestServer(t, testSecret)
	w := ts.do(http.MethodPost, "/api/quote", map[string]any{
		"industry":      "Unknown",
		"monthlyVolume": 10000,
		"currentRate":   2.9,
	}, operator(testSecret))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	quote := decode[models.Quote](t, w)
	assert.Equal(t, 2.3, quote.WalrusRatePercent)
	assert.Equal(t, 720.0, quote.AnnualSavings)
}

func TestListIndustries(t *testing.T) {
	ts := newTestServer(t, testSecret)
	w := ts.do(http.MethodGet, "/api/industries", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode[[]string](t, w), "Restaurant")
}

func TestUnknownRouteOutsideProduction(t *testing.T) {
	ts := newTestServer(t, testSecret)
	w := ts.do(http.MethodGet, "/pitch/abc", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

type brokenPitches struct{}

func (brokenPitches) Append(context.Context, models.PitchRecord) error {
	return &store.StorageError{Op: "append", Collection: store.CollectionPitches, Err: errors.New("disk full")}
}

func (brokenPitches) List(context.Context) ([]models.PitchRecord, error) {
	return nil, &store.StorageError{Op: "list", Collection: store.CollectionPitches, Err: errors.New("disk full")}
}

func (brokenPitches) FindByID(context.Context, string) (models.PitchRecord, error) {
	return models.PitchRecord{}, &store.StorageError{Op: "get", Collection: store.CollectionPitches, Err: errors.New("disk full")}
}

func TestStorageFailure(t *testing.T) {
	s := store.New(store.NewMemoryBackend())
	service := services.NewQuoteService(s.Contacts(), brokenPitches{}, auth.NewGuard(testSecret))
	router := gin.New()
	NewHandlers(service).RegisterRoutes(router)
	ts := &testServer{router: router, store: s}

	w := ts.do(http.MethodPost, "/api/pitch", pitchBody, operator(testSecret))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error."}`, w.Body.String())
	assert.NotContains(t, w.Body.String(), "disk full")

	w = ts.do(http.MethodGet, "/api/pitch/abc", nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestRateLimitedAPI(t *testing.T) {
	s := store.New(store.NewMemoryBackend())
	service := services.NewQuoteService(s.Contacts(), s.Pitches(), auth.NewGuard(testSecret))
	router := gin.New()
	limiter := ratelimit.NewMemoryLimiter(2, time.Minute)
	NewHandlers(service).RegisterRoutes(router, middleware.RateLimit(limiter, nil, nil))
	ts := &testServer{router: router, store: s}

	for i := 0; i < 2; i++ {
		assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/api/industries", nil, nil).Code)
	}
	w := ts.do(http.MethodGet, "/api/industries", nil, nil)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))

	// Health checks are never limited
	assert.Equal(t, http.StatusOK, ts.do(http.MethodGet, "/health", nil, nil).Code)
}

func writeDist(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, share.IndexFile), []byte(
		"<html><head><meta name=\"description\" content=\"Walrus\" /><title>Walrus</title></head><body>app</body></html>",
	), 0o600))
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "assets"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "assets", "app.js"), []byte("console.log('walrus')"), 0o600))
	return dir
}

func TestProductionFrontend(t *testing.T) {
	distDir := writeDist(t)
	ts := newTestServer(t, testSecret, WithProduction(true), WithRenderer(share.NewRenderer(distDir)))

	w := ts.do(http.MethodPost, "/api/pitch", pitchBody, operator(testSecret))
	require.Equal(t, http.StatusOK, w.Code)
	url := decode[map[string]string](t, w)["url"]

	w = ts.do(http.MethodGet, url, nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "<title>Blue Plate Diner — Custom Walrus Rate</title>")
	assert.Contains(t, w.Body.String(), "$39,600")

	w = ts.do(http.MethodGet, "/pitch/missing", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Pitch not found", w.Body.String())

	w = ts.do(http.MethodGet, "/assets/app.js", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "console.log('walrus')", w.Body.String())

	w = ts.do(http.MethodGet, "/admin/pitches", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<body>app</body>")

	w = ts.do(http.MethodGet, "/assets/../../../../etc/passwd", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "<body>app</body>")

	w = ts.do(http.MethodPost, "/nowhere", nil, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProductionPitchPageMissingTemplate(t *testing.T) {
	ts := newTestServer(t, testSecret, WithProduction(true), WithRenderer(share.NewRenderer(t.TempDir())))
	w := ts.do(http.MethodPost, "/api/pitch", pitchBody, operator(testSecret))
	require.Equal(t, http.StatusOK, w.Code)
	url := decode[map[string]string](t, w)["url"]

	w = ts.do(http.MethodGet, url, nil, nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "Unable to load pitch", w.Body.String())
}
