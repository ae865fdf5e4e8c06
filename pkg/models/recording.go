package models

import (
	"time"

	"github.com/google/uuid"
)

// Recording is the processed meeting recording that jobs are generated from.
// The structured summary fields feed the synthetic summary job; they are
// populated by the backend's transcription pipeline.
type Recording struct {
	ID                 uuid.UUID `json:"id"`
	Title              string    `json:"title"`
	DurationSeconds    int       `json:"duration_seconds"`
	FullSummaryContent *string   `json:"full_summary_content,omitempty"`
	Summary            *string   `json:"summary,omitempty"`
	KeyPoints          []string  `json:"key_points,omitempty"`
	Decisions          []string  `json:"decisions,omitempty"`
	NextSteps          []string  `json:"next_steps,omitempty"`
	Concerns           []string  `json:"concerns,omitempty"`
	ActionItems        []string  `json:"action_items,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}
