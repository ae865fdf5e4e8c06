package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/calebmorris/debrief/internal/api/response"
	"github.com/calebmorris/debrief/internal/backend"
	"github.com/calebmorris/debrief/internal/jobs"
	"github.com/calebmorris/debrief/pkg/models"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// jobPayload adds the derived status field to the wire form of a job.
type jobPayload struct {
	models.Job
	Status string `json:"status"`
}

func toPayload(job models.Job) jobPayload {
	return jobPayload{Job: job, Status: job.Status()}
}

func toPayloads(list []models.Job) []jobPayload {
	out := make([]jobPayload, 0, len(list))
	for _, job := range list {
		out = append(out, toPayload(job))
	}
	return out
}

// openSession resolves the recording ID from the URL and opens its session.
// A nil session means the response has already been written.
func openSession(m *jobs.Manager, w http.ResponseWriter, r *http.Request) *jobs.Session {
	recordingID, err := uuid.Parse(chi.URLParam(r, "recordingID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "recordingID must be a valid UUID", nil)
		return nil
	}

	sess, err := m.Open(r.Context(), recordingID)
	if err != nil {
		writeEngineError(w, err)
		return nil
	}
	return sess
}

func parseJobID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	jobID, err := uuid.Parse(chi.URLParam(r, "jobID"))
	if err != nil {
		response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "jobID must be a valid UUID", nil)
		return uuid.UUID{}, false
	}
	return jobID, true
}

// writeEngineError maps engine and backend sentinels to the error envelope.
func writeEngineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, jobs.ErrInvalidKind):
		response.Error(w, http.StatusBadRequest, "INVALID_KIND", "Unknown job kind", nil)
	case errors.Is(err, jobs.ErrSyntheticJob):
		response.Error(w, http.StatusBadRequest, "SYNTHETIC_JOB",
			"The derived summary cannot be created, edited or regenerated", nil)
	case errors.Is(err, jobs.ErrEmptyContent):
		response.Error(w, http.StatusBadRequest, "VALIDATION_FAILED", "content must not be empty", nil)
	case errors.Is(err, jobs.ErrUnknownJob):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "No such job for this recording", nil)
	case errors.Is(err, backend.ErrConflict):
		response.Error(w, http.StatusConflict, "JOB_ALREADY_EXISTS",
			"A job of this kind already exists for the recording", nil)
	case errors.Is(err, backend.ErrNotFound):
		response.Error(w, http.StatusNotFound, "NOT_FOUND", "Resource not found", nil)
	case errors.Is(err, backend.ErrTimeout):
		response.Error(w, http.StatusGatewayTimeout, "BACKEND_TIMEOUT",
			"The backend took too long to respond", nil)
	case errors.Is(err, backend.ErrUnreachable), errors.Is(err, backend.ErrRequestFailed):
		response.Error(w, http.StatusBadGateway, "BACKEND_UNAVAILABLE",
			"The backend is not available", nil)
	default:
		response.Error(w, http.StatusInternalServerError, "INTERNAL_ERROR",
			"An unexpected error occurred", nil)
	}
}

// NewListJobsHandler returns GET /api/v1/recordings/{recordingID}/jobs.
// The response is the visible set: store contents plus the synthetic summary.
func NewListJobsHandler(m *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := openSession(m, w, r)
		if sess == nil {
			return
		}
		response.JSON(w, toPayloads(sess.VisibleJobs()))
	}
}

// NewSubmitJobHandler returns POST /api/v1/recordings/{recordingID}/jobs.
func NewSubmitJobHandler(m *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := openSession(m, w, r)
		if sess == nil {
			return
		}

		var req struct {
			Kind models.JobKind `json:"kind"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := sess.Submit(r.Context(), req.Kind)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		response.Created(w, toPayload(*job))
	}
}

// NewRegenerateHandler returns POST .../jobs/{jobID}/regenerate. No body:
// the job's kind is resolved from the session's view. It replies 202
// immediately; the delete-then-create sequence runs on the deferred lane and
// the refreshed job arrives through polling.
func NewRegenerateHandler(m *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := openSession(m, w, r)
		if sess == nil {
			return
		}
		jobID, ok := parseJobID(w, r)
		if !ok {
			return
		}

		if err := sess.Regenerate(jobID); err != nil {
			writeEngineError(w, err)
			return
		}
		response.Accepted(w, map[string]string{
			"job_id": jobID.String(),
			"status": models.JobStatusPending,
		})
	}
}

// NewUpdateJobHandler returns PATCH .../jobs/{jobID}.
func NewUpdateJobHandler(m *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := openSession(m, w, r)
		if sess == nil {
			return
		}
		jobID, ok := parseJobID(w, r)
		if !ok {
			return
		}

		var req struct {
			Content string `json:"content"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			response.Error(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid JSON body", nil)
			return
		}

		job, err := sess.Update(r.Context(), jobID, req.Content)
		if err != nil {
			writeEngineError(w, err)
			return
		}
		response.JSON(w, toPayload(*job))
	}
}

// NewDeleteJobHandler returns DELETE .../jobs/{jobID}.
func NewDeleteJobHandler(m *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := openSession(m, w, r)
		if sess == nil {
			return
		}
		jobID, ok := parseJobID(w, r)
		if !ok {
			return
		}

		if err := sess.Delete(r.Context(), jobID); err != nil {
			writeEngineError(w, err)
			return
		}
		response.NoContent(w)
	}
}

// NewCompletionsHandler returns GET .../jobs/completions, a server-sent
// event stream of completion signals for the recording's session.
func NewCompletionsHandler(m *jobs.Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := openSession(m, w, r)
		if sess == nil {
			return
		}

		flusher, ok := w.(http.Flusher)
		if !ok {
			response.Error(w, http.StatusInternalServerError, "STREAMING_UNSUPPORTED",
				"Response writer does not support streaming", nil)
			return
		}

		events, cancel := sess.SubscribeCompletions()
		defer cancel()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		flusher.Flush()

		for {
			select {
			case <-r.Context().Done():
				return
			case ev, open := <-events:
				if !open {
					return
				}
				payload, err := json.Marshal(ev)
				if err != nil {
					continue
				}
				fmt.Fprintf(w, "event: completion\ndata: %s\n\n", payload)
				flusher.Flush()
			}
		}
	}
}
