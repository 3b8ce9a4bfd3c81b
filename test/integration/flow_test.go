//go:build integration

package integration

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var webhookBase string

func call(t *testing.T, method, path, user, body string, headers ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, testServerURL+path, strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set("X-User-ID", user)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, body
}

func register(t *testing.T, id, hookPath string) {
	t.Helper()
	resp, _ := call(t, http.MethodPost, "/api/users", "", `{"id":"`+id+`","name":"`+id+`"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
	resp, _ = call(t, http.MethodPut, "/api/me/webhook", id, `{"url":"`+webhookBase+hookPath+`"}`)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)
}

func TestRenewalFlow(t *testing.T) {
	register(t, "renewal-user", "/renewal-user")

	renews := time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02")
	resp, body := call(t, http.MethodPost, "/api/me/subscriptions", "renewal-user",
		`{"name":"Spotify","price":"9.99","renewalFrequency":"monthly","renewsAt":"`+renews+`","notifyDays":3}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode, string(body))

	created := hooks.received("/renewal-user")
	require.Len(t, created, 1)
	assert.Contains(t, created[0], "New Subscription Added")

	resp, body = call(t, http.MethodPost, "/api/notifications/check", "renewal-user", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var first map[string]int
	require.NoError(t, json.Unmarshal(body, &first))
	assert.GreaterOrEqual(t, first["sent"], 1)

	got := hooks.received("/renewal-user")
	require.Len(t, got, 2)
	assert.Contains(t, got[1], "Subscription Renewal Reminder")
	assert.Contains(t, got[1], "9.99 USD/month")
	assert.Contains(t, got[1], "3 days before")

	// The notification log suppresses a second reminder on the same day.
	resp, body = call(t, http.MethodPost, "/api/notifications/check", "renewal-user", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var second map[string]int
	require.NoError(t, json.Unmarshal(body, &second))
	assert.GreaterOrEqual(t, second["skipped"], 1)
	assert.Len(t, hooks.received("/renewal-user"), 2)
}

func TestBroadcastFlow(t *testing.T) {
	register(t, "operator", "/operator")
	register(t, "listener", "/listener")
	register(t, "gone", "/broken/gone")

	resp, _ := call(t, http.MethodPost, "/api/operator/login", "listener", `{"secret":"integration-secret"}`)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = call(t, http.MethodPost, "/api/operator/login", "operator", `{"secret":"wrong"}`)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	resp, body := call(t, http.MethodPost, "/api/operator/login", "operator", `{"secret":"integration-secret"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var tok struct {
		Token string `json:"token"`
	}
	require.NoError(t, json.Unmarshal(body, &tok))

	resp, _ = call(t, http.MethodPost, "/api/operator/broadcast", "operator", `{"title":"","message":"x"}`,
		"X-Operator-Token", tok.Token)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = call(t, http.MethodPost, "/api/operator/broadcast", "operator",
		`{"title":"Maintenance","message":"Back soon"}`, "X-Operator-Token", tok.Token)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var summary struct {
		Sent   int `json:"sentCount"`
		Failed int `json:"failedCount"`
	}
	require.NoError(t, json.Unmarshal(body, &summary))
	assert.GreaterOrEqual(t, summary.Failed, 1)
	assert.GreaterOrEqual(t, summary.Sent, 2)
	assert.Len(t, hooks.received("/listener"), 1)

	resp, _ = call(t, http.MethodPost, "/api/operator/logout", "operator", "", "X-Operator-Token", tok.Token)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = call(t, http.MethodPost, "/api/operator/broadcast", "operator",
		`{"title":"Again","message":"Nope"}`, "X-Operator-Token", tok.Token)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}
