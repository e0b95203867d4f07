// Package transcription turns an uploaded audio stream into text. Input is
// validated (size, declared type or extension) before any network call;
// the upstream call itself is retried on rate-limit backpressure only.
package transcription

import (
	"context"
	"errors"
	"io"
	"path/filepath"
	"strings"
	"time"

	"voiceagent/internal/fault"
	"voiceagent/internal/retry"
	"voiceagent/internal/upstream/openai"
)

// MaxAudioBytes is the Whisper upload ceiling.
const MaxAudioBytes = 25 << 20

var allowedContentTypes = map[string]bool{
	"audio/webm": true,
	"audio/wav":  true,
	"audio/mp3":  true,
	"audio/mpeg": true,
	"audio/ogg":  true,
}

var allowedExtensions = map[string]bool{
	".webm": true,
	".wav":  true,
	".mp3":  true,
	".ogg":  true,
}

type Client interface {
	Transcribe(ctx context.Context, file io.Reader, fileName, model string) (string, error)
}

type Input struct {
	File        io.Reader
	FileName    string
	ContentType string
	Size        int64
}

type Service struct {
	client  Client
	model   string
	timeout time.Duration
	policy  retry.Policy
}

func New(client Client, model string, timeout time.Duration, policy retry.Policy) *Service {
	return &Service{
		client:  client,
		model:   strings.TrimSpace(model),
		timeout: timeout,
		policy:  policy,
	}
}

// ValidateUpload checks the declared size and type of an audio upload.
// Returns a validation fault on rejection; must pass before any provider
// I/O happens.
func ValidateUpload(fileName, contentType string, size int64) error {
	if size <= 0 {
		return fault.New(fault.Validation, "no audio file provided")
	}
	if size > MaxAudioBytes {
		return fault.New(fault.Validation, "audio file exceeds %d bytes", MaxAudioBytes)
	}
	if allowedContentTypes[strings.ToLower(strings.TrimSpace(contentType))] {
		return nil
	}
	if allowedExtensions[strings.ToLower(filepath.Ext(fileName))] {
		return nil
	}
	return fault.New(fault.Validation, "invalid file type, only audio files are allowed")
}

// Transcribe validates the upload and runs the provider call under the
// retry policy. Upstream errors are tagged rate_limited or provider so the
// retrier can classify them.
func (s *Service) Transcribe(ctx context.Context, in Input) (string, error) {
	if err := ValidateUpload(in.FileName, in.ContentType, in.Size); err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	seeker, canRewind := in.File.(io.Seeker)

	text, err := retry.Do(ctx, s.policy, func(ctx context.Context) (string, error) {
		// Each attempt needs the stream from the start.
		if canRewind {
			if _, err := seeker.Seek(0, io.SeekStart); err != nil {
				return "", fault.Wrap(fault.Provider, err, "rewind audio stream")
			}
		}
		text, err := s.client.Transcribe(ctx, in.File, in.FileName, s.model)
		if err != nil {
			return "", classify(err)
		}
		return text, nil
	})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

func classify(err error) error {
	var upErr *openai.Error
	if errors.As(err, &upErr) && upErr.IsRateLimited() {
		return fault.Wrap(fault.RateLimited, err, "transcription provider rate limited")
	}
	return fault.Wrap(fault.Provider, err, "transcription failed")
}
