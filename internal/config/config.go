package config

import (
	"errors"
	"strings"
	"time"

	cenv "github.com/caarlos0/env/v11"
)

type RateLimit struct {
	Max    int
	Window time.Duration
}

type Config struct {
	ListenAddr           string
	OpenAIBaseURL        string
	OpenAIAPIKey         string
	TranscriptionModel   string
	SummaryModel         string
	RequestTimeout       time.Duration
	TranscriptionTimeout time.Duration
	SummaryTimeout       time.Duration
	MaxUploadBytes       int64
	UploadDir            string

	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	MailFrom string

	GeneralLimit RateLimit
	UploadLimit  RateLimit
	EmailLimit   RateLimit

	LogLevel string
}

type envConfig struct {
	ListenAddr                  string `env:"LISTEN_ADDR" envDefault:":5000"`
	OpenAIBaseURL               string `env:"OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	OpenAIAPIKey                string `env:"OPENAI_API_KEY"`
	TranscriptionModel          string `env:"TRANSCRIPTION_MODEL" envDefault:"whisper-1"`
	SummaryModel                string `env:"SUMMARY_MODEL" envDefault:"gpt-4o"`
	RequestTimeoutSeconds       int    `env:"REQUEST_TIMEOUT_SECONDS" envDefault:"60"`
	TranscriptionTimeoutSeconds int    `env:"TRANSCRIPTION_TIMEOUT_SECONDS" envDefault:"45"`
	SummaryTimeoutSeconds       int    `env:"SUMMARY_TIMEOUT_SECONDS" envDefault:"30"`
	MaxUploadBytes              int64  `env:"MAX_UPLOAD_BYTES" envDefault:"26214400"`
	UploadDir                   string `env:"UPLOAD_DIR" envDefault:"uploads"`

	SMTPHost string `env:"SMTP_HOST"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASS"`
	MailFrom string `env:"MAIL_FROM"`

	GeneralLimitMax        int `env:"RATE_GENERAL_MAX" envDefault:"100"`
	GeneralLimitWindowMins int `env:"RATE_GENERAL_WINDOW_MINUTES" envDefault:"15"`
	UploadLimitMax         int `env:"RATE_UPLOAD_MAX" envDefault:"10"`
	UploadLimitWindowMins  int `env:"RATE_UPLOAD_WINDOW_MINUTES" envDefault:"15"`
	EmailLimitMax          int `env:"RATE_EMAIL_MAX" envDefault:"20"`
	EmailLimitWindowMins   int `env:"RATE_EMAIL_WINDOW_MINUTES" envDefault:"60"`

	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
}

func Load() (Config, error) {
	var raw envConfig
	if err := cenv.Parse(&raw); err != nil {
		return Config{}, err
	}

	mailFrom := strings.TrimSpace(raw.MailFrom)
	if mailFrom == "" {
		mailFrom = strings.TrimSpace(raw.SMTPUser)
	}

	cfg := Config{
		ListenAddr:           strings.TrimSpace(raw.ListenAddr),
		OpenAIBaseURL:        strings.TrimRight(strings.TrimSpace(raw.OpenAIBaseURL), "/"),
		OpenAIAPIKey:         strings.TrimSpace(raw.OpenAIAPIKey),
		TranscriptionModel:   strings.TrimSpace(raw.TranscriptionModel),
		SummaryModel:         strings.TrimSpace(raw.SummaryModel),
		RequestTimeout:       time.Duration(raw.RequestTimeoutSeconds) * time.Second,
		TranscriptionTimeout: time.Duration(raw.TranscriptionTimeoutSeconds) * time.Second,
		SummaryTimeout:       time.Duration(raw.SummaryTimeoutSeconds) * time.Second,
		MaxUploadBytes:       raw.MaxUploadBytes,
		UploadDir:            strings.TrimSpace(raw.UploadDir),
		SMTPHost:             strings.TrimSpace(raw.SMTPHost),
		SMTPPort:             raw.SMTPPort,
		SMTPUser:             strings.TrimSpace(raw.SMTPUser),
		SMTPPass:             raw.SMTPPass,
		MailFrom:             mailFrom,
		GeneralLimit:         RateLimit{Max: raw.GeneralLimitMax, Window: time.Duration(raw.GeneralLimitWindowMins) * time.Minute},
		UploadLimit:          RateLimit{Max: raw.UploadLimitMax, Window: time.Duration(raw.UploadLimitWindowMins) * time.Minute},
		EmailLimit:           RateLimit{Max: raw.EmailLimitMax, Window: time.Duration(raw.EmailLimitWindowMins) * time.Minute},
		LogLevel:             strings.ToLower(strings.TrimSpace(raw.LogLevel)),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ListenAddr == "" {
		return errors.New("LISTEN_ADDR must not be empty")
	}
	if c.OpenAIBaseURL == "" {
		return errors.New("OPENAI_BASE_URL must not be empty")
	}
	if c.TranscriptionModel == "" {
		return errors.New("TRANSCRIPTION_MODEL must not be empty")
	}
	if c.SummaryModel == "" {
		return errors.New("SUMMARY_MODEL must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return errors.New("REQUEST_TIMEOUT_SECONDS must be > 0")
	}
	if c.TranscriptionTimeout <= 0 {
		return errors.New("TRANSCRIPTION_TIMEOUT_SECONDS must be > 0")
	}
	if c.SummaryTimeout <= 0 {
		return errors.New("SUMMARY_TIMEOUT_SECONDS must be > 0")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("MAX_UPLOAD_BYTES must be > 0")
	}
	if c.UploadDir == "" {
		return errors.New("UPLOAD_DIR must not be empty")
	}
	if c.SMTPPort <= 0 || c.SMTPPort > 65535 {
		return errors.New("SMTP_PORT must be a valid port")
	}
	for _, limit := range []RateLimit{c.GeneralLimit, c.UploadLimit, c.EmailLimit} {
		if limit.Max <= 0 || limit.Window <= 0 {
			return errors.New("rate limits must have max > 0 and window > 0")
		}
	}
	return nil
}

// SMTPConfigured reports whether enough relay settings are present to
// attempt email delivery.
func (c Config) SMTPConfigured() bool {
	return c.SMTPHost != "" && c.SMTPUser != "" && c.SMTPPass != ""
}

// OpenAIConfigured reports whether an upstream API key is present.
func (c Config) OpenAIConfigured() bool {
	return c.OpenAIAPIKey != ""
}
