package api

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YoshitsuguKoike/moltfocus/internal/app"
	appconfig "github.com/YoshitsuguKoike/moltfocus/internal/app/config"
	"github.com/YoshitsuguKoike/moltfocus/internal/infrastructure/di"
)

type discardLogger struct{}

func (discardLogger) Debug(string, ...interface{}) {}
func (discardLogger) Info(string, ...interface{})  {}
func (discardLogger) Warn(string, ...interface{})  {}
func (discardLogger) Error(string, ...interface{}) {}

func newTestServer(t *testing.T) (*Server, afero.Fs, app.Paths) {
	t.Helper()
	fs := afero.NewMemMapFs()
	paths := app.ResolvePaths("/ws")
	c, err := di.NewContainer(di.Config{
		Settings: appconfig.NewAppConfig(appconfig.Values{Root: "/ws", Timezone: "UTC", HistoryLimit: 30}),
		Paths:    paths,
		Fs:       fs,
		Clock:    app.FixedClock(time.Date(2026, 3, 1, 20, 0, 0, 0, time.UTC)),
		Logger:   discardLogger{},
	})
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return New(c, "127.0.0.1:0", discardLogger{}), fs, paths
}

func do(t *testing.T, h http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	out := map[string]any{}
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func TestHealthz(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec, body := do(t, s.Handler(), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "true", body["ok"])
	assert.NotEmpty(t, rec.Header().Get(RequestIDHeader))
}

func TestRequestIDIsEchoed(t *testing.T) {
	s, _, _ := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "abc-123", rec.Header().Get(RequestIDHeader))
}

func TestCheckinThenFinalize(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Handler()

	rec, body := do(t, h, http.MethodPost, "/api/finalize", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "no-draft-for-today", body["reason"])

	rec, body = do(t, h, http.MethodPost, "/api/checkin_draft",
		`{"mode":"recovery","items":[{"key":"line-1","label":"walk","done":true},{"key":"","label":"x"}],"reflection":""}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "2026-03-01", body["day"])

	rec, body = do(t, h, http.MethodGet, "/api/checkin_draft", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "recovery", body["mode"])
	assert.Len(t, body["items"], 1)

	rec, body = do(t, h, http.MethodPost, "/api/finalize", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, "good", body["rating"])
	assert.EqualValues(t, 1, body["streak"])

	rec, body = do(t, h, http.MethodGet, "/api/state", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, body["streak"])
	assert.Equal(t, "good", body["lastRating"])
}

func TestFinalizeIntegrityError(t *testing.T) {
	s, fs, paths := newTestServer(t)
	require.NoError(t, afero.WriteFile(fs, paths.Draft, []byte("{"), 0o644))

	rec, body := do(t, s.Handler(), http.MethodPost, "/api/finalize", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, false, body["ok"])
	assert.Equal(t, "integrity", body["kind"])
}

func TestBadJSON(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec, _ := do(t, s.Handler(), http.MethodPost, "/api/checkin_draft", "not json")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanSaveAndChanged(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Handler()

	_, body := do(t, h, http.MethodPost, "/api/plan", `{"plan":"- [ ] a"}`)
	assert.Equal(t, false, body["changed"])

	form := url.Values{"plan_md": {"- [ ] a\n- [ ] b  \n\n"}}
	req := httptest.NewRequest(http.MethodPost, "/api/plan", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"changed":true`)

	rec, _ = do(t, h, http.MethodGet, "/api/plan", "")
	assert.Equal(t, "- [ ] a\n- [ ] b\n", rec.Body.String())
}

func TestFocus(t *testing.T) {
	s, _, _ := newTestServer(t)
	h := s.Handler()

	rec, _ := do(t, h, http.MethodPost, "/api/focus", `{"task":"thesis","minutes":50}`)
	require.Equal(t, http.StatusOK, rec.Code)

	_, body := do(t, h, http.MethodGet, "/api/focus", "")
	assert.Equal(t, "thesis", body["task"])
	assert.Equal(t, "2026-03-01T20:00:00Z", body["updatedAt"])
}

func TestMethodNotAllowed(t *testing.T) {
	s, _, _ := newTestServer(t)
	rec, _ := do(t, s.Handler(), http.MethodGet, "/api/finalize", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func TestServeShutsDownOnCancel(t *testing.T) {
	s, _, _ := newTestServer(t)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + ln.Addr().String() + "/healthz")
	require.NoError(t, err)
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}
