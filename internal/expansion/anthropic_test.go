package expansion

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMessagesServer(t *testing.T, status int, body string, calls *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		assert.True(t, strings.HasSuffix(r.URL.Path, "/v1/messages"), r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))

		raw, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]interface{}
		require.NoError(t, json.Unmarshal(raw, &req))
		assert.Equal(t, "claude-haiku-4-5-20251001", req["model"])

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
}

func testConfig(baseURL string) *Config {
	config := DefaultConfig()
	config.APIKey = "test-key"
	config.BaseURL = baseURL
	config.RequestTimeout = 5 * time.Second
	return config
}

func TestNewAnthropicCompleter_RequiresKey(t *testing.T) {
	_, err := NewAnthropicCompleter(DefaultConfig())
	assert.ErrorIs(t, err, ErrNoAPIKey)
}

func TestAnthropicCompleter_Complete(t *testing.T) {
	var calls int32
	server := newMessagesServer(t, http.StatusOK, `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-haiku-4-5-20251001",
		"content": [{"type": "text", "text": "[{\"question\":\"Q\",\"answer\":\"A\"}]"}],
		"stop_reason": "end_turn",
		"stop_sequence": null,
		"usage": {"input_tokens": 42, "output_tokens": 17}
	}`, &calls)
	defer server.Close()

	completer, err := NewAnthropicCompleter(testConfig(server.URL))
	require.NoError(t, err)

	text, err := completer.Complete(context.Background(), "hello")
	require.NoError(t, err)
	assert.Equal(t, `[{"question":"Q","answer":"A"}]`, text)
	assert.Equal(t, int64(42), completer.LastUsage().InputTokens)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestAnthropicCompleter_NoRetryOnError(t *testing.T) {
	var calls int32
	server := newMessagesServer(t, http.StatusInternalServerError,
		`{"type":"error","error":{"type":"api_error","message":"boom"}}`, &calls)
	defer server.Close()

	completer, err := NewAnthropicCompleter(testConfig(server.URL))
	require.NoError(t, err)

	_, err = completer.Complete(context.Background(), "hello")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestSmokeTest(t *testing.T) {
	var calls int32
	server := newMessagesServer(t, http.StatusOK, `{
		"id": "msg_02",
		"type": "message",
		"role": "assistant",
		"model": "claude-haiku-4-5-20251001",
		"content": [{"type": "text", "text": "Hello there, traveller."}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 5, "output_tokens": 6}
	}`, &calls)
	defer server.Close()

	reply, err := SmokeTest(context.Background(), testConfig(server.URL), 5*time.Second)
	require.NoError(t, err)
	assert.Equal(t, "Hello there, traveller.", reply)
}
