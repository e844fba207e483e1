package jobs

import (
	"time"

	"github.com/MimeLyc/srt-translator/internal/service"
	"github.com/MimeLyc/srt-translator/internal/translator"
)

type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	// StatusPartial marks a finished batch where some files failed.
	StatusPartial Status = "partial"
	StatusFailed  Status = "failed"
)

func (s Status) Terminal() bool {
	return s == StatusSuccess || s == StatusPartial || s == StatusFailed
}

type EnqueueRequest struct {
	Source    string
	DedupeKey string
	Payload   Payload
}

// Payload is everything a worker needs to run one batch.
type Payload struct {
	Paths          []string `json:"paths"`
	SourceLanguage string   `json:"source_language"`
	TargetLanguage string   `json:"target_language"`
	// Naming is "suffix" or "language"; empty means the server default.
	Naming string `json:"naming,omitempty"`
}

func (p Payload) Request() translator.Request {
	return translator.Request{SourceLanguage: p.SourceLanguage, TargetLanguage: p.TargetLanguage}
}

// Run is one queued batch and its latest known state.
type Run struct {
	ID        string                 `json:"id"`
	Source    string                 `json:"source"`
	DedupeKey string                 `json:"dedupe_key"`
	Payload   Payload                `json:"payload"`
	Status    Status                 `json:"status"`
	Progress  *service.BatchProgress `json:"progress,omitempty"`
	Results   []service.JobResult    `json:"results,omitempty"`
	Error     string                 `json:"error,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
	UpdatedAt time.Time              `json:"updated_at"`
}
