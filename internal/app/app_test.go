package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/NAJJJB/subscription-tracker/internal/app"
	"github.com/NAJJJB/subscription-tracker/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Setenv("DB_NAME", filepath.Join(t.TempDir(), "subs.db"))
	t.Setenv("WEBHOOK_LOG_PATH", filepath.Join(t.TempDir(), "webhooks.log"))
	t.Setenv("BROADCAST_DELAY", "1ms")
	t.Setenv("OPERATOR_USER_ID", "op")
	t.Setenv("OPERATOR_SECRET", "s3cret")
	cfg, err := config.NewConfig()
	require.NoError(t, err)
	return *cfg
}

func do(t *testing.T, h http.Handler, method, path, user, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func TestEndToEnd_CreateNotifiesAndBroadcastReachesEveryone(t *testing.T) {
	hits := make(chan string, 16)
	hook := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer hook.Close()

	a := app.New(testConfig(t), zerolog.Nop())
	sc, err := a.Init(context.Background())
	require.NoError(t, err)
	defer func() { _ = a.Stop(sc) }()
	h := sc.Srv.Handler

	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/users", "", `{"id":"alice","name":"Alice"}`).Code)
	require.Equal(t, http.StatusNoContent, do(t, h, http.MethodPost, "/api/users", "", `{"id":"op","name":"Operator"}`).Code)
	require.Equal(t, http.StatusNoContent,
		do(t, h, http.MethodPut, "/api/me/webhook", "alice", `{"url":"`+hook.URL+`/alice"}`).Code)
	require.Equal(t, http.StatusNoContent,
		do(t, h, http.MethodPut, "/api/me/webhook", "op", `{"url":"`+hook.URL+`/op"}`).Code)

	w := do(t, h, http.MethodPost, "/api/me/subscriptions", "alice", `{"name":"Netflix","price":"15.49"}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, "/alice", <-hits)

	w = do(t, h, http.MethodGet, "/api/me/subscriptions", "alice", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"monthlyTotal":"15.49"`)

	w = do(t, h, http.MethodPost, "/api/operator/broadcast", "op", `{"title":"t","message":"m"}`)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = do(t, h, http.MethodPost, "/api/operator/login", "op", `{"secret":"s3cret"}`)
	require.Equal(t, http.StatusOK, w.Code)
	token := w.Body.String()
	token = token[strings.Index(token, `"token":"`)+len(`"token":"`):]
	token = token[:strings.Index(token, `"`)]

	w = do(t, h, http.MethodPost, "/api/operator/broadcast", "op", `{"title":"Maintenance","message":"Down"}`,
		"X-Operator-Token", token)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"sentCount":2,"failedCount":0}`, w.Body.String())

	received := map[string]bool{}
	for range 2 {
		select {
		case p := <-hits:
			received[p] = true
		case <-time.After(2 * time.Second):
			t.Fatal("broadcast did not reach every webhook")
		}
	}
	assert.Equal(t, map[string]bool{"/alice": true, "/op": true}, received)
}

func TestHealthAndMetrics(t *testing.T) {
	a := app.New(testConfig(t), zerolog.Nop())
	sc, err := a.Init(context.Background())
	require.NoError(t, err)
	defer func() { _ = a.Stop(sc) }()

	assert.Equal(t, http.StatusOK, do(t, sc.Srv.Handler, http.MethodGet, "/healthz", "", "").Code)

	w := do(t, sc.Srv.Handler, http.MethodGet, "/metrics", "", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "subscription_tracker_service_start_time_seconds")
}

func TestMigrate(t *testing.T) {
	a := app.New(testConfig(t), zerolog.Nop())
	assert.NoError(t, a.Migrate(context.Background()))
	assert.NoError(t, a.Migrate(context.Background()))
}

func TestRunOnce_EmptyStore(t *testing.T) {
	a := app.New(testConfig(t), zerolog.Nop())
	res, err := a.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, res.Due)
	assert.Zero(t, res.Sent)
}
