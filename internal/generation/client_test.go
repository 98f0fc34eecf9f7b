package generation

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

	"github.com/dpshade/pocket-meta/internal/errors"
	"github.com/dpshade/pocket-meta/internal/logger"
	"github.com/dpshade/pocket-meta/internal/models"
)

type countingTransport struct {
	calls int32
	next  http.RoundTripper
}

func (t *countingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	atomic.AddInt32(&t.calls, 1)
	return t.next.RoundTrip(req)
}

var fixedNow = func() time.Time { return time.Date(2025, 5, 6, 8, 0, 0, 0, time.UTC) }

func testConfig(baseURL string) models.APIConfig {
	return models.APIConfig{
		Provider:    "openai",
		APIKey:      "sk-test",
		BaseURL:     baseURL,
		Model:       "gpt-3.5-turbo",
		Temperature: 0.3,
		MaxTokens:   1000,
		TimeoutMs:   2000,
	}
}

func testRequest() models.GenerationRequest {
	return models.GenerationRequest{
		DocumentBody: "The notes from the planning session and the list of the tasks.",
		FileName:     "planning.md",
		Template: models.Template{
			ID:           "general-note",
			YAMLSkeleton: "title:\ntags: []\ncreated: {{date}}",
			Instructions: "Tag it.",
		},
	}
}

func completionServer(t *testing.T, status int, body string, inspect func(map[string]interface{})) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("Unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer sk-test" {
			t.Errorf("Unexpected Authorization header %q", got)
		}
		if inspect != nil {
			raw, _ := io.ReadAll(r.Body)
			var payload map[string]interface{}
			if err := json.Unmarshal(raw, &payload); err != nil {
				t.Errorf("Request body is not JSON: %v", err)
			}
			inspect(payload)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func completion(content string, tokens int) string {
	payload := map[string]interface{}{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gpt-3.5-turbo",
		"choices": []map[string]interface{}{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]interface{}{"role": "assistant", "content": content},
		}},
		"usage": map[string]interface{}{"prompt_tokens": 10, "completion_tokens": tokens - 10, "total_tokens": tokens},
	}
	raw, _ := json.Marshal(payload)
	return string(raw)
}

func TestMain(m *testing.M) {
	logger.Discard()
	m.Run()
}

func TestGenerateWithoutAPIKeyMakesNoRequest(t *testing.T) {
	transport := &countingTransport{next: http.DefaultTransport}
	cfg := testConfig("http://127.0.0.1:1")
	cfg.APIKey = ""

	client := NewClient(cfg, WithHTTPClient(&http.Client{Transport: transport}))
	result := client.Generate(context.Background(), testRequest())

	if result.Success {
		t.Fatal("Expected failure without API key")
	}
	if result.Error != "API_KEY_MISSING" {
		t.Errorf("Expected API_KEY_MISSING, got %q", result.Error)
	}
	if calls := atomic.LoadInt32(&transport.calls); calls != 0 {
		t.Errorf("Expected no network calls, got %d", calls)
	}
}

func TestGenerateSuccess(t *testing.T) {
	reply := "```yaml\ntitle: Planning Session\ntags: [Project Planning, tasks]\ncreated: {{date}}\n```"
	srv := completionServer(t, http.StatusOK, completion(reply, 42), func(payload map[string]interface{}) {
		if payload["model"] != "gpt-3.5-turbo" {
			t.Errorf("Unexpected model %v", payload["model"])
		}
		if payload["max_tokens"] != float64(1000) {
			t.Errorf("Unexpected max_tokens %v", payload["max_tokens"])
		}
		if payload["temperature"] != 0.3 {
			t.Errorf("Unexpected temperature %v", payload["temperature"])
		}
		msgs, _ := payload["messages"].([]interface{})
		if len(msgs) != 2 {
			t.Errorf("Expected 2 messages, got %d", len(msgs))
			return
		}
		system, _ := msgs[0].(map[string]interface{})
		if system["role"] != "system" || !strings.Contains(system["content"].(string), "2025-05-06") {
			t.Errorf("Unexpected system message %v", system)
		}
	})

	client := NewClient(testConfig(srv.URL), WithClock(fixedNow))
	result := client.Generate(context.Background(), testRequest())

	if !result.Success {
		t.Fatalf("Expected success, got %s: %s", result.Error, result.Message)
	}
	want := "title: planning-session\ntags: [project-planning, tasks]\ncreated: 2025-05-06"
	if result.Metadata != want {
		t.Errorf("Metadata =\n%s\nwant\n%s", result.Metadata, want)
	}
	if result.TokensUsed != 42 {
		t.Errorf("Expected 42 tokens, got %d", result.TokensUsed)
	}
}

func TestGenerateNon2xx(t *testing.T) {
	srv := completionServer(t, http.StatusUnauthorized,
		`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error","param":null,"code":"invalid_api_key"}}`, nil)

	client := NewClient(testConfig(srv.URL))
	result := client.Generate(context.Background(), testRequest())

	if result.Success {
		t.Fatal("Expected failure on 401")
	}
	if result.Error != string(errors.ErrCodeAPIRequestFailed) {
		t.Errorf("Expected API_REQUEST_FAILED, got %q", result.Error)
	}
	if !strings.Contains(result.Message, "401") || !strings.Contains(result.Message, "Incorrect API key") {
		t.Errorf("Message should carry status and body, got %q", result.Message)
	}
}

func TestGeneratePlainTextErrorBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream provider unavailable")
	}))
	t.Cleanup(srv.Close)

	client := NewClient(testConfig(srv.URL))
	result := client.Generate(context.Background(), testRequest())

	if result.Error != string(errors.ErrCodeAPIRequestFailed) {
		t.Errorf("Expected API_REQUEST_FAILED, got %q", result.Error)
	}
	if !strings.Contains(result.Message, "502") || !strings.Contains(result.Message, "upstream provider unavailable") {
		t.Errorf("Message should carry status and plain-text body, got %q", result.Message)
	}
}

func TestGenerateMalformedSuccessBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, "not json at all")
	}))
	t.Cleanup(srv.Close)

	client := NewClient(testConfig(srv.URL))
	result := client.Generate(context.Background(), testRequest())

	if result.Success {
		t.Fatal("Expected failure on undecodable 200 body")
	}
	if result.Error != string(errors.ErrCodeInvalidResponse) {
		t.Errorf("Expected INVALID_RESPONSE, got %q (%s)", result.Error, result.Message)
	}
}

func TestReadBodyRestoresContent(t *testing.T) {
	res := &http.Response{Body: io.NopCloser(strings.NewReader("  gateway timeout \n"))}

	if got := readBody(res); got != "gateway timeout" {
		t.Errorf("readBody = %q", got)
	}
	again, _ := io.ReadAll(res.Body)
	if !strings.Contains(string(again), "gateway timeout") {
		t.Errorf("Body should be readable again, got %q", again)
	}
	if readBody(nil) != "" {
		t.Error("nil response should give empty body")
	}
}

func TestGenerateEmptyChoices(t *testing.T) {
	srv := completionServer(t, http.StatusOK,
		`{"id":"x","object":"chat.completion","created":1,"model":"m","choices":[]}`, nil)

	client := NewClient(testConfig(srv.URL))
	result := client.Generate(context.Background(), testRequest())

	if result.Error != string(errors.ErrCodeInvalidResponse) {
		t.Errorf("Expected INVALID_RESPONSE, got %q (%s)", result.Error, result.Message)
	}
}

func TestGenerateEmptyContent(t *testing.T) {
	srv := completionServer(t, http.StatusOK, completion("```yaml\n```", 12), nil)

	client := NewClient(testConfig(srv.URL))
	result := client.Generate(context.Background(), testRequest())

	if result.Error != string(errors.ErrCodeParsingError) {
		t.Errorf("Expected PARSING_ERROR, got %q (%s)", result.Error, result.Message)
	}
}

func TestGenerateTimeout(t *testing.T) {
	transport := &countingTransport{next: http.DefaultTransport}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	cfg := testConfig(srv.URL)
	cfg.TimeoutMs = 50
	client := NewClient(cfg, WithHTTPClient(&http.Client{Transport: transport}))

	start := time.Now()
	result := client.Generate(context.Background(), testRequest())

	if result.Error != string(errors.ErrCodeAPIRequestFailed) {
		t.Errorf("Expected API_REQUEST_FAILED, got %q", result.Error)
	}
	if !strings.Contains(result.Message, "timed out") {
		t.Errorf("Expected timeout message, got %q", result.Message)
	}
	if time.Since(start) > time.Second {
		t.Errorf("Timeout not enforced, took %s", time.Since(start))
	}
	if calls := atomic.LoadInt32(&transport.calls); calls != 1 {
		t.Errorf("Expected exactly one attempt, got %d", calls)
	}
}

func TestTestConnection(t *testing.T) {
	srv := completionServer(t, http.StatusOK, completion("OK", 12), func(payload map[string]interface{}) {
		if payload["temperature"] != float64(0) {
			t.Errorf("Connection check should use temperature 0, got %v", payload["temperature"])
		}
		if payload["max_tokens"] != float64(10) {
			t.Errorf("Connection check should use max_tokens 10, got %v", payload["max_tokens"])
		}
	})

	ok, err := NewClient(testConfig(srv.URL)).TestConnection(context.Background())
	if !ok || err != nil {
		t.Errorf("TestConnection() = %v, %v", ok, err)
	}

	bad := completionServer(t, http.StatusOK, completion("Hello there", 12), nil)
	ok, err = NewClient(testConfig(bad.URL)).TestConnection(context.Background())
	if ok || err == nil {
		t.Error("TestConnection should fail when reply lacks OK")
	}

	cfg := testConfig(srv.URL)
	cfg.APIKey = ""
	ok, err = NewClient(cfg).TestConnection(context.Background())
	if ok || errors.CodeOf(err) != errors.ErrCodeAPIKeyMissing {
		t.Errorf("Expected API_KEY_MISSING, got %v, %v", ok, err)
	}
}

func TestUpdateConfig(t *testing.T) {
	client := NewClient(testConfig("http://example.invalid"))
	cfg := testConfig("http://other.invalid")
	cfg.Model = "gpt-4o-mini"
	client.UpdateConfig(cfg)

	if got := client.Config(); got.Model != "gpt-4o-mini" || got.BaseURL != "http://other.invalid" {
		t.Errorf("Config not replaced: %+v", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"hello world", 2},
		{"机器学习", 8},
		{"我爱 Go programming", 6},
		{"  spaced   out  ", 2},
	}
	for _, tt := range tests {
		if got := EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}
