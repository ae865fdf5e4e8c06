package models

import (
	"time"

	"github.com/google/uuid"
)

// JobKind is the enumerated category of a generated document.
type JobKind string

const (
	// KindSummary is derived locally from the recording and never requested
	// from the backend.
	KindSummary            JobKind = "summary"
	KindCommercialAnalysis JobKind = "commercial_analysis"
	KindMeetingMinutes     JobKind = "meeting_minutes"
	KindFollowUpEmail      JobKind = "follow_up_email"
)

// SyntheticJobID is the reserved identity of the locally derived summary job.
// It is never sent to the backend.
var SyntheticJobID = uuid.Nil

const (
	JobStatusPending   = "pending"
	JobStatusCompleted = "completed"
	JobStatusError     = "error"
)

// Job is one unit of generated content tied to a recording. Content is nil
// while generation is still running on the backend.
type Job struct {
	ID           uuid.UUID `json:"id"`
	RecordingID  uuid.UUID `json:"recording_id"`
	Kind         JobKind   `json:"kind"`
	Content      *string   `json:"content,omitempty"`
	ErrorMessage *string   `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Status derives the job state; it is never stored.
func (j Job) Status() string {
	switch {
	case j.ErrorMessage != nil:
		return JobStatusError
	case j.Content != nil:
		return JobStatusCompleted
	default:
		return JobStatusPending
	}
}

// Resolved reports whether the job has settled, with content or with an error.
func (j Job) Resolved() bool {
	return j.Content != nil || j.ErrorMessage != nil
}

// Synthetic reports whether the job is the locally derived summary.
func (j Job) Synthetic() bool {
	return j.ID == SyntheticJobID
}

// ValidKind reports whether k is a known job kind.
func ValidKind(k JobKind) bool {
	switch k {
	case KindSummary, KindCommercialAnalysis, KindMeetingMinutes, KindFollowUpEmail:
		return true
	default:
		return false
	}
}

// RequestableKind reports whether k may be requested from the backend.
// The summary kind is reserved for the synthetic provider.
func RequestableKind(k JobKind) bool {
	return ValidKind(k) && k != KindSummary
}
