package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"voiceagent/internal/config"
	"voiceagent/internal/httpapi"
	"voiceagent/internal/mailer"
	"voiceagent/internal/observability"
	"voiceagent/internal/ratelimit"
	"voiceagent/internal/retry"
	"voiceagent/internal/summarize"
	"voiceagent/internal/transcription"
	"voiceagent/internal/upstream/openai"
	"voiceagent/internal/upstream/smtp"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config error: %v\n", err)
		os.Exit(1)
	}

	logger := newLogger(cfg.LogLevel)
	metrics := observability.NewMetrics()

	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   20,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	upstreamHTTPClient := &http.Client{Timeout: cfg.RequestTimeout, Transport: transport}
	openaiClient := openai.New(cfg.OpenAIBaseURL, cfg.OpenAIAPIKey, upstreamHTTPClient, openai.WithObserver(metrics.ObserveOpenAI))

	retryPolicy := func(operation string) retry.Policy {
		return retry.Policy{
			OnRetry: func(attempt int, delay time.Duration, err error) {
				logger.Warn("rate limited, retrying",
					"operation", operation, "attempt", attempt, "delay", delay.String(), "error", err)
				metrics.IncRetry(operation)
			},
		}
	}

	transcriptionService := transcription.New(openaiClient, cfg.TranscriptionModel, cfg.TranscriptionTimeout, retryPolicy("transcription"))
	summarizeService := summarize.New(openaiClient, cfg.SummaryModel, cfg.SummaryTimeout, retryPolicy("summarization"))

	var relay mailer.Relay = mailer.DisabledRelay{}
	if cfg.SMTPConfigured() {
		smtpClient, err := smtp.New(smtp.Config{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPass,
			From:     cfg.MailFrom,
		}, smtp.WithObserver(metrics.ObserveSMTP))
		if err != nil {
			logger.Error("smtp client setup failed", "error", err)
			os.Exit(1)
		}
		relay = smtpClient
	} else {
		logger.Warn("smtp relay not configured, email delivery disabled")
	}

	mailService := mailer.NewService(relay, logger)
	scheduler := mailer.NewScheduler(mailService, logger, mailer.WithFiredObserver(func(err error) {
		if err != nil {
			metrics.IncScheduledEmailFailure()
		}
	}))

	gate := ratelimit.NewGate(map[ratelimit.Class]ratelimit.Limit{
		ratelimit.ClassGeneral: {
			Max:     cfg.GeneralLimit.Max,
			Window:  cfg.GeneralLimit.Window,
			Message: "Too many requests from this IP, please try again later.",
		},
		ratelimit.ClassUpload: {
			Max:     cfg.UploadLimit.Max,
			Window:  cfg.UploadLimit.Window,
			Message: "Too many upload requests, please try again later.",
		},
		ratelimit.ClassEmail: {
			Max:     cfg.EmailLimit.Max,
			Window:  cfg.EmailLimit.Window,
			Message: "Too many email requests, please try again later.",
		},
	})

	handler := httpapi.NewServer(cfg, logger, httpapi.Dependencies{
		Transcription:  transcriptionService,
		Summarize:      summarizeService,
		Mail:           mailService,
		Scheduler:      scheduler,
		Gate:           gate,
		Metrics:        metrics,
		MetricsHandler: metrics.Handler(),
	})

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       90 * time.Second,
		WriteTimeout:      120 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "addr", cfg.ListenAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			logger.Error("server exited", "error", err)
			os.Exit(1)
		}
		return
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func newLogger(level string) *slog.Logger {
	var slogLevel slog.Level
	switch level {
	case "debug":
		slogLevel = slog.LevelDebug
	case "warn", "warning":
		slogLevel = slog.LevelWarn
	case "error":
		slogLevel = slog.LevelError
	default:
		slogLevel = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slogLevel}))
}
