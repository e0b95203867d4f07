package summarize

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"voiceagent/internal/fault"
	"voiceagent/internal/model"
	"voiceagent/internal/retry"
	"voiceagent/internal/upstream/openai"
)

type fakeChat struct {
	responses []chatResponse
	calls     int
	lastReq   openai.ChatCompletionRequest
}

type chatResponse struct {
	content string
	err     error
}

func (f *fakeChat) ChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (string, error) {
	f.lastReq = req
	resp := f.responses[f.calls]
	f.calls++
	return resp.content, resp.err
}

func noSleep(_ context.Context, _ time.Duration) error { return nil }

func newService(client ChatClient) *Service {
	return New(client, "gpt-4o", 30*time.Second, retry.Policy{Sleep: noSleep})
}

const goodSummary = `{"bullets":["a","b","c","d","e"],"nextStep":"send proposal"}`

func TestSummarizeReturnsValidatedSummary(t *testing.T) {
	chat := &fakeChat{responses: []chatResponse{{content: goodSummary}}}
	svc := newService(chat)

	summary, err := svc.Summarize(context.Background(), "We discussed pricing and agreed to follow up.")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if len(summary.Bullets) != 5 || summary.Bullets[0] != "a" {
		t.Fatalf("unexpected bullets: %v", summary.Bullets)
	}
	if summary.NextStep != "send proposal" {
		t.Fatalf("unexpected next step: %q", summary.NextStep)
	}

	if chat.lastReq.ResponseFormat == nil || chat.lastReq.ResponseFormat.Type != "json_object" {
		t.Fatalf("expected json_object response format, got %+v", chat.lastReq.ResponseFormat)
	}
	if chat.lastReq.Model != "gpt-4o" || chat.lastReq.MaxTokens != 500 {
		t.Fatalf("unexpected request shape: %+v", chat.lastReq)
	}
	if !strings.Contains(chat.lastReq.Messages[1].Content, "We discussed pricing") {
		t.Fatal("transcript missing from user prompt")
	}
}

func TestSummarizeRejectsBlankTranscript(t *testing.T) {
	chat := &fakeChat{}
	svc := newService(chat)

	_, err := svc.Summarize(context.Background(), "   \n\t")
	if !fault.Is(err, fault.Validation) {
		t.Fatalf("expected validation fault, got %v", err)
	}
	if chat.calls != 0 {
		t.Fatalf("provider called %d times for blank transcript", chat.calls)
	}
}

func TestSummarizeRetriesRateLimit(t *testing.T) {
	chat := &fakeChat{responses: []chatResponse{
		{err: &openai.Error{StatusCode: http.StatusTooManyRequests}},
		{err: &openai.Error{StatusCode: http.StatusTooManyRequests}},
		{content: goodSummary},
	}}
	svc := newService(chat)

	summary, err := svc.Summarize(context.Background(), "transcript")
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if chat.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", chat.calls)
	}
	if summary.NextStep != "send proposal" {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestSummarizeEmptyShapeIsStructuralNotProvider(t *testing.T) {
	chat := &fakeChat{responses: []chatResponse{{content: `{"bullets":[],"nextStep":""}`}}}
	svc := newService(chat)

	_, err := svc.Summarize(context.Background(), "transcript")
	if err == nil {
		t.Fatal("expected error")
	}
	if !fault.Is(err, fault.Structural) {
		t.Fatalf("expected structural fault, got %v", err)
	}
	if fault.Is(err, fault.Provider) {
		t.Fatal("structural failure must not be classified as provider failure")
	}
	if chat.calls != 1 {
		t.Fatalf("structural failure consumed retry budget: %d calls", chat.calls)
	}
}

func TestSummarizeMalformedJSONIsStructural(t *testing.T) {
	chat := &fakeChat{responses: []chatResponse{{content: "not json at all"}}}
	svc := newService(chat)

	_, err := svc.Summarize(context.Background(), "transcript")
	if !fault.Is(err, fault.Structural) {
		t.Fatalf("expected structural fault, got %v", err)
	}
	if chat.calls != 1 {
		t.Fatalf("expected 1 call, got %d", chat.calls)
	}
}

func TestSummarizeDoesNotRetryProviderOutage(t *testing.T) {
	chat := &fakeChat{responses: []chatResponse{
		{err: &openai.Error{StatusCode: http.StatusServiceUnavailable}},
	}}
	svc := newService(chat)

	_, err := svc.Summarize(context.Background(), "transcript")
	if !fault.Is(err, fault.Provider) {
		t.Fatalf("expected provider fault, got %v", err)
	}
	if chat.calls != 1 {
		t.Fatalf("expected 1 call, got %d", chat.calls)
	}
}

func TestValidateSummaryRejectsBlankBullet(t *testing.T) {
	err := ValidateSummary(model.Summary{Bullets: []string{"a", "  "}, NextStep: "ok"})
	if !fault.Is(err, fault.Structural) {
		t.Fatalf("expected structural fault, got %v", err)
	}
}
