package model

// Summary is the structured output of the summarization provider: the key
// points of a conversation plus a single action item. Immutable once
// produced; validated by the summarize service before use.
type Summary struct {
	Bullets  []string `json:"bullets"`
	NextStep string   `json:"nextStep"`
}

type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type RootResponse struct {
	Message string `json:"message"`
	Status  string `json:"status"`
	Version string `json:"version"`
}

type HealthResponse struct {
	Status           string `json:"status"`
	Server           string `json:"server"`
	Timestamp        string `json:"timestamp"`
	OpenAIConfigured bool   `json:"openaiConfigured"`
	SMTPConfigured   bool   `json:"smtpConfigured"`
	EmailVerified    *bool  `json:"emailVerified,omitempty"`
}

type TranscribeResponse struct {
	Success    bool   `json:"success"`
	Transcript string `json:"transcript"`
	FileSize   int64  `json:"fileSize"`
}

type SummarizeRequest struct {
	Transcript string `json:"transcript"`
}

type SummarizeResponse struct {
	Success          bool    `json:"success"`
	Summary          Summary `json:"summary"`
	TranscriptLength int     `json:"transcriptLength"`
}

type SendEmailRequest struct {
	Email          string   `json:"email"`
	Summary        *Summary `json:"summary"`
	Transcript     string   `json:"transcript"`
	ScheduleOption string   `json:"scheduleOption,omitempty"`
}

type SendEmailResponse struct {
	Success   bool   `json:"success"`
	Scheduled bool   `json:"scheduled"`
	MessageID string `json:"messageId"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message"`
}

type ScheduleEmailResponse struct {
	Success       bool   `json:"success"`
	Scheduled     bool   `json:"scheduled"`
	ScheduledTime string `json:"scheduledTime"`
	Delay         string `json:"delay"`
	Message       string `json:"message"`
}
