package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestTranscribeParsesJSONResponse(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/audio/transcriptions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Fatalf("unexpected auth header: %q", got)
		}
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		_ = r.MultipartForm.RemoveAll()
		if r.FormValue("model") != "whisper-1" {
			t.Fatalf("unexpected model: %q", r.FormValue("model"))
		}
		if r.FormValue("language") != "en" {
			t.Fatalf("unexpected language: %q", r.FormValue("language"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"hello"}`)
	}))
	defer ts.Close()

	c := New(ts.URL, "test-key", ts.Client())
	text, err := c.Transcribe(context.Background(), strings.NewReader("audio"), "sample.wav", "whisper-1")
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}
	if text != "hello" {
		t.Fatalf("unexpected text: %q", text)
	}
}

func TestTranscribeRejectsEmptyText(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"text":"  "}`)
	}))
	defer ts.Close()

	c := New(ts.URL, "test-key", ts.Client())
	if _, err := c.Transcribe(context.Background(), strings.NewReader("audio"), "sample.wav", "whisper-1"); err == nil {
		t.Fatal("expected error for blank transcript")
	}
}

func TestChatCompletionParsesContentAndSendsResponseFormat(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Fatalf("unexpected path: %s", r.URL.Path)
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		format, ok := req["response_format"].(map[string]any)
		if !ok || format["type"] != "json_object" {
			t.Fatalf("unexpected response_format: %v", req["response_format"])
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[{"message":{"content":"{\"bullets\":[]}"}}]}`)
	}))
	defer ts.Close()

	c := New(ts.URL, "test-key", ts.Client())
	content, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{
		Model:          "gpt-4o",
		Temperature:    0.7,
		MaxTokens:      500,
		ResponseFormat: &ResponseFormat{Type: "json_object"},
		Messages:       []ChatMessage{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletion() error = %v", err)
	}
	if content != `{"bullets":[]}` {
		t.Fatalf("unexpected content: %q", content)
	}
}

func TestChatCompletionRejectsMissingChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"choices":[]}`)
	}))
	defer ts.Close()

	c := New(ts.URL, "test-key", ts.Client())
	if _, err := c.ChatCompletion(context.Background(), ChatCompletionRequest{Model: "gpt-4o"}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestRateLimitedErrorIsDetectable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer ts.Close()

	c := New(ts.URL, "test-key", ts.Client())
	_, err := c.Transcribe(context.Background(), strings.NewReader("audio"), "sample.wav", "whisper-1")
	if err == nil {
		t.Fatal("expected error")
	}
	upErr, ok := err.(*Error)
	if !ok {
		t.Fatalf("expected *Error, got %T", err)
	}
	if !upErr.IsRateLimited() {
		t.Fatalf("expected rate-limited error, status = %d", upErr.StatusCode)
	}
}

func TestObserverReceivesStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer ts.Close()

	var endpoint string
	var status int
	c := New(ts.URL, "test-key", ts.Client(), WithObserver(func(e string, s int, _ time.Duration) {
		endpoint = e
		status = s
	}))
	_, _ = c.Transcribe(context.Background(), strings.NewReader("audio"), "sample.wav", "whisper-1")
	if endpoint != "audio_transcriptions" || status != http.StatusBadGateway {
		t.Fatalf("observer saw endpoint=%q status=%d", endpoint, status)
	}
}
