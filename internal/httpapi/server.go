package httpapi

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"voiceagent/internal/config"
	"voiceagent/internal/fault"
	"voiceagent/internal/mailer"
	"voiceagent/internal/model"
	"voiceagent/internal/ratelimit"
	"voiceagent/internal/transcription"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

type TranscriptionService interface {
	Transcribe(ctx context.Context, in transcription.Input) (string, error)
}

type SummarizeService interface {
	Summarize(ctx context.Context, transcript string) (model.Summary, error)
}

type MailService interface {
	Send(ctx context.Context, recipient string, summary model.Summary, transcript string) (mailer.SendResult, error)
	Verify(ctx context.Context) bool
}

type MailScheduler interface {
	Schedule(recipient string, summary model.Summary, transcript, option string) (mailer.Scheduled, error)
}

type MetricsObserver interface {
	ObserveHTTP(route, method string, status int, duration time.Duration)
	IncRateLimitDenial(class string)
	IncScheduledEmail()
}

type Dependencies struct {
	Transcription  TranscriptionService
	Summarize      SummarizeService
	Mail           MailService
	Scheduler      MailScheduler
	Gate           *ratelimit.Gate
	Metrics        MetricsObserver
	MetricsHandler http.Handler
}

type server struct {
	cfg          config.Config
	logger       *slog.Logger
	transcriber  TranscriptionService
	summarizer   SummarizeService
	mail         MailService
	scheduler    MailScheduler
	metrics      MetricsObserver
	metricsRoute http.Handler
}

type ctxKey string

const (
	requestIDHeader  = "X-Request-Id"
	requestIDContext = ctxKey("request_id")
	maxJSONBodyBytes = 1 << 20
	serviceVersion   = "1.0.0"
)

func NewServer(cfg config.Config, logger *slog.Logger, deps Dependencies) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Transcription == nil || deps.Summarize == nil || deps.Mail == nil || deps.Scheduler == nil || deps.Gate == nil {
		panic("httpapi: all dependencies are required")
	}

	s := &server{
		cfg:          cfg,
		logger:       logger,
		transcriber:  deps.Transcription,
		summarizer:   deps.Summarize,
		mail:         deps.Mail,
		scheduler:    deps.Scheduler,
		metrics:      deps.Metrics,
		metricsRoute: deps.MetricsHandler,
	}

	onDenied := func(class ratelimit.Class) {
		if s.metrics != nil {
			s.metrics.IncRateLimitDenial(string(class))
		}
	}

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusNotFound, "Route not found", "")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		s.writeError(w, r, http.StatusMethodNotAllowed, "Method not allowed", "")
	})

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Get("/", s.handleRoot)
	if s.metricsRoute != nil {
		r.Handle("/metrics", s.metricsRoute)
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(ratelimit.Middleware(deps.Gate, ratelimit.ClassGeneral, onDenied))
		r.Get("/health", s.handleHealth)
		r.With(ratelimit.Middleware(deps.Gate, ratelimit.ClassUpload, onDenied)).
			Post("/transcribe", s.handleTranscribe)
		r.Post("/summarize", s.handleSummarize)
		r.With(ratelimit.Middleware(deps.Gate, ratelimit.ClassEmail, onDenied)).
			Post("/send-email", s.handleSendEmail)
	})

	return r
}

func (s *server) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.RootResponse{
		Message: "Voice Agent API Server",
		Status:  "running",
		Version: serviceVersion,
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := model.HealthResponse{
		Server:           "running",
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
		OpenAIConfigured: s.cfg.OpenAIConfigured(),
		SMTPConfigured:   s.cfg.SMTPConfigured(),
	}

	if resp.SMTPConfigured {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()
		verified := s.mail.Verify(ctx)
		resp.EmailVerified = &verified
	}

	status := http.StatusOK
	resp.Status = "healthy"
	if !resp.OpenAIConfigured || !resp.SMTPConfigured {
		status = http.StatusServiceUnavailable
		resp.Status = "degraded"
	}
	writeJSON(w, status, resp)
}

func (s *server) handleTranscribe(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	if err := r.ParseMultipartForm(minInt64(s.cfg.MaxUploadBytes, 8<<20)); err != nil {
		s.handleMultipartReadError(w, r, err)
		return
	}
	defer cleanupMultipartForm(r.MultipartForm)

	file, header, err := r.FormFile("audio")
	if err != nil {
		s.writeError(w, r, http.StatusBadRequest, "No audio file provided", "")
		return
	}
	defer func() { _ = file.Close() }()

	if err := transcription.ValidateUpload(header.Filename, header.Header.Get("Content-Type"), header.Size); err != nil {
		s.writeFault(w, r, "Transcription failed", err)
		return
	}

	// The audio lands in a private temp file that is removed on every
	// exit path, success or failure.
	tmp, err := s.saveUpload(file, header.Filename)
	if err != nil {
		s.logger.Error("failed to store upload", "request_id", requestIDFromContext(r.Context()), "error", err)
		s.writeError(w, r, http.StatusInternalServerError, "Transcription failed", "could not store uploaded audio")
		return
	}
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
	}()

	transcript, err := s.transcriber.Transcribe(r.Context(), transcription.Input{
		File:        tmp,
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	})
	if err != nil {
		s.writeFault(w, r, "Transcription failed", err)
		return
	}

	writeJSON(w, http.StatusOK, model.TranscribeResponse{
		Success:    true,
		Transcript: transcript,
		FileSize:   header.Size,
	})
}

func (s *server) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req model.SummarizeRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Transcript) == "" {
		s.writeError(w, r, http.StatusBadRequest, "Transcript is required and must be a non-empty string", "")
		return
	}

	summary, err := s.summarizer.Summarize(r.Context(), req.Transcript)
	if err != nil {
		s.writeFault(w, r, "Summarization failed", err)
		return
	}

	writeJSON(w, http.StatusOK, model.SummarizeResponse{
		Success:          true,
		Summary:          summary,
		TranscriptLength: len(req.Transcript),
	})
}

func (s *server) handleSendEmail(w http.ResponseWriter, r *http.Request) {
	var req model.SendEmailRequest
	if !s.decodeJSON(w, r, &req) {
		return
	}
	if err := mailer.ValidateRequest(req.Email, req.Summary, req.Transcript); err != nil {
		s.writeFault(w, r, "Failed to send email", err)
		return
	}

	if req.ScheduleOption != "" && req.ScheduleOption != "instant" {
		scheduled, err := s.scheduler.Schedule(req.Email, *req.Summary, req.Transcript, req.ScheduleOption)
		if err != nil {
			s.writeFault(w, r, "Failed to send email", err)
			return
		}
		if s.metrics != nil {
			s.metrics.IncScheduledEmail()
		}
		writeJSON(w, http.StatusOK, model.ScheduleEmailResponse{
			Success:       true,
			Scheduled:     true,
			ScheduledTime: scheduled.Time.UTC().Format(time.RFC3339),
			Delay:         scheduled.Delay,
			Message:       fmt.Sprintf("Email scheduled to be sent in %s", scheduled.Delay),
		})
		return
	}

	result, err := s.mail.Send(r.Context(), req.Email, *req.Summary, req.Transcript)
	if err != nil {
		s.writeFault(w, r, "Failed to send email", err)
		return
	}
	writeJSON(w, http.StatusOK, model.SendEmailResponse{
		Success:   true,
		Scheduled: false,
		MessageID: result.MessageID,
		Timestamp: result.Timestamp.UTC().Format(time.RFC3339),
		Message:   "Email sent successfully",
	})
}

func (s *server) saveUpload(file multipart.File, originalName string) (*os.File, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return nil, err
	}
	tmp, err := os.CreateTemp(s.cfg.UploadDir, "audio-*"+filepath.Ext(originalName))
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(tmp, file); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	if _, err := tmp.Seek(0, io.SeekStart); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return nil, err
	}
	return tmp, nil
}

func (s *server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxJSONBodyBytes)
	defer func() { _ = r.Body.Close() }()

	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			s.writeError(w, r, http.StatusRequestEntityTooLarge, "Request body too large", "")
			return false
		}
		s.writeError(w, r, http.StatusBadRequest, "Invalid JSON body", "")
		return false
	}
	return true
}

func (s *server) handleMultipartReadError(w http.ResponseWriter, r *http.Request, err error) {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		s.writeError(w, r, http.StatusRequestEntityTooLarge, fmt.Sprintf("Request exceeds %d bytes", s.cfg.MaxUploadBytes), "")
		return
	}
	s.writeError(w, r, http.StatusBadRequest, "Invalid multipart form data", "")
}

// writeFault maps the error taxonomy onto HTTP statuses: validation is the
// caller's mistake, everything else is a 500 with the fault detail in the
// message field.
func (s *server) writeFault(w http.ResponseWriter, r *http.Request, label string, err error) {
	if fault.Is(err, fault.Validation) {
		s.writeError(w, r, http.StatusBadRequest, err.Error(), "")
		return
	}
	if errors.Is(err, context.DeadlineExceeded) {
		s.writeError(w, r, http.StatusGatewayTimeout, label, "request timed out")
		return
	}
	s.writeError(w, r, http.StatusInternalServerError, label, err.Error())
}

func (s *server) writeError(w http.ResponseWriter, r *http.Request, status int, errLabel, message string) {
	rid := requestIDFromContext(r.Context())
	if rid != "" {
		w.Header().Set(requestIDHeader, rid)
	}
	writeJSON(w, status, model.ErrorResponse{
		Error:     errLabel,
		Message:   message,
		RequestID: rid,
	})
}

func (s *server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = newRequestID()
		}
		w.Header().Set(requestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), requestIDContext, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		duration := time.Since(started)
		if s.metrics != nil {
			s.metrics.ObserveHTTP(route, r.Method, status, duration)
		}

		s.logger.Info("http_request",
			"request_id", requestIDFromContext(r.Context()),
			"method", r.Method,
			"route", route,
			"path", r.URL.Path,
			"status", status,
			"bytes", ww.BytesWritten(),
			"duration_ms", duration.Milliseconds(),
		)
	})
}

func (s *server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", "request_id", requestIDFromContext(r.Context()), "panic", rec)
				s.writeError(w, r, http.StatusInternalServerError, "Internal server error", "")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

func cleanupMultipartForm(form *multipart.Form) {
	if form != nil {
		_ = form.RemoveAll()
	}
}

func requestIDFromContext(ctx context.Context) string {
	value, _ := ctx.Value(requestIDContext).(string)
	return value
}

func newRequestID() string {
	buf := make([]byte, 12)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("req-%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(buf)
}

func minInt64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}
