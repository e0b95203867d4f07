// Package summarize condenses a transcript into five bullet points and a
// next step via a JSON-mode chat completion. The provider call is retried
// on rate-limit backpressure; parse and shape failures are structural
// faults and never consume the retry budget.
package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"voiceagent/internal/fault"
	"voiceagent/internal/model"
	"voiceagent/internal/retry"
	"voiceagent/internal/upstream/openai"
)

const systemPrompt = `You are a helpful assistant that summarizes conversations into exactly 5 clear, actionable bullet points with a next step.`

const userPromptTemplate = `You are a conversation summarizer. Given a transcript, create a concise summary with:
1. Exactly 5 bullet points capturing the key topics, decisions, and important details discussed
2. One clear next step or action item

Format your response as JSON:
{
  "bullets": ["point 1", "point 2", "point 3", "point 4", "point 5"],
  "nextStep": "Clear action item"
}

Keep it professional, concise, and actionable. Always provide exactly 5 bullet points to give a comprehensive overview.

Transcript:
%s`

type ChatClient interface {
	ChatCompletion(ctx context.Context, req openai.ChatCompletionRequest) (string, error)
}

type Service struct {
	client  ChatClient
	model   string
	timeout time.Duration
	policy  retry.Policy
}

func New(client ChatClient, model string, timeout time.Duration, policy retry.Policy) *Service {
	return &Service{
		client:  client,
		model:   strings.TrimSpace(model),
		timeout: timeout,
		policy:  policy,
	}
}

// Summarize produces a validated Summary for a non-empty transcript.
func (s *Service) Summarize(ctx context.Context, transcript string) (model.Summary, error) {
	if strings.TrimSpace(transcript) == "" {
		return model.Summary{}, fault.New(fault.Validation, "transcript cannot be empty")
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	content, err := retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
		content, err := s.client.ChatCompletion(ctx, openai.ChatCompletionRequest{
			Model:          s.model,
			Temperature:    0.7,
			MaxTokens:      500,
			ResponseFormat: &openai.ResponseFormat{Type: "json_object"},
			Messages: []openai.ChatMessage{
				{Role: "system", Content: systemPrompt},
				{Role: "user", Content: fmt.Sprintf(userPromptTemplate, transcript)},
			},
		})
		if err != nil {
			return "", classify(err)
		}
		return content, nil
	})
	if err != nil {
		return model.Summary{}, err
	}

	summary, err := parseSummary(content)
	if err != nil {
		return model.Summary{}, err
	}
	if err := ValidateSummary(summary); err != nil {
		return model.Summary{}, err
	}
	return summary, nil
}

// ValidateSummary checks the shape the prompt asks for: at least one
// non-empty bullet and a non-empty next step.
func ValidateSummary(s model.Summary) error {
	if len(s.Bullets) == 0 {
		return fault.New(fault.Structural, "invalid summary format: missing bullets")
	}
	for i, bullet := range s.Bullets {
		if strings.TrimSpace(bullet) == "" {
			return fault.New(fault.Structural, "invalid summary format: bullet %d is empty", i+1)
		}
	}
	if strings.TrimSpace(s.NextStep) == "" {
		return fault.New(fault.Structural, "invalid summary format: missing nextStep")
	}
	return nil
}

func parseSummary(content string) (model.Summary, error) {
	var summary model.Summary
	if err := json.Unmarshal([]byte(content), &summary); err != nil {
		return model.Summary{}, fault.Wrap(fault.Structural, err, "summary response is not valid JSON")
	}
	return summary, nil
}

func classify(err error) error {
	var upErr *openai.Error
	if errors.As(err, &upErr) && upErr.IsRateLimited() {
		return fault.Wrap(fault.RateLimited, err, "summarization provider rate limited")
	}
	return fault.Wrap(fault.Provider, err, "summarization failed")
}
