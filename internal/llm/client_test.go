package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(url string) *Config {
	return &Config{
		APIKey:      "test-key",
		APIURL:      url,
		Model:       "test-model",
		MaxTokens:   256,
		Temperature: 0.2,
		Timeout:     5 * time.Second,
		AppName:     "srt-translator",
	}
}

func TestNewClient(t *testing.T) {
	_, err := NewClient(testConfig("http://localhost"))
	require.NoError(t, err)

	bad := testConfig("http://localhost")
	bad.APIKey = ""
	_, err = NewClient(bad)
	assert.Error(t, err)

	bad = testConfig("http://localhost")
	bad.Temperature = 3
	_, err = NewClient(bad)
	assert.Error(t, err)

	bad = testConfig("http://localhost")
	bad.Timeout = 0
	_, err = NewClient(bad)
	assert.Error(t, err)
}

func TestSimpleChat(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "srt-translator", r.Header.Get("X-Title"))

		var req ChatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "test-model", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, "system", req.Messages[0].Role)
		assert.Equal(t, "user", req.Messages[1].Role)
		assert.Equal(t, "Hello", req.Messages[1].Content)

		_ = json.NewEncoder(w).Encode(ChatResponse{
			ID:      "chatcmpl-1",
			Choices: []Choice{{Message: Message{Role: "assistant", Content: "Hola"}, FinishReason: "stop"}},
		})
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL + "/"))
	require.NoError(t, err)

	got, err := client.SimpleChat(context.Background(), "Hello", "Translate to Spanish")
	require.NoError(t, err)
	assert.Equal(t, "Hola", got)
}

func TestClientErrorHandling(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantErr string
	}{
		{"api error object", http.StatusBadRequest, `{"error":{"message":"bad model","type":"invalid_request"}}`, "bad model"},
		{"non json failure", http.StatusBadGateway, `upstream down`, "status 502"},
		{"invalid json", http.StatusOK, `{not json`, "failed to parse response"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client, err := NewClient(testConfig(server.URL))
			require.NoError(t, err)

			_, err = client.SimpleChat(context.Background(), "Hello", "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestSimpleChatNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"x","choices":[]}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.SimpleChat(context.Background(), "Hello", "")
	assert.ErrorContains(t, err, "no choices")
}

func TestClientConcurrentRequests(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer server.Close()

	client, err := NewClient(testConfig(server.URL))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := client.SimpleChat(context.Background(), "ping", "")
			assert.NoError(t, err)
			assert.Equal(t, "ok", got)
		}()
	}
	wg.Wait()
}

func TestErrorImplementation(t *testing.T) {
	err := &Error{Message: "quota", Type: "rate_limit", Code: "429"}
	assert.Equal(t, "LLM API Error: quota (type: rate_limit, code: 429)", err.Error())
}
