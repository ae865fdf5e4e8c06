package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/calebmorris/debrief/pkg/models"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testToken = "test-token"

func newTestClient(t *testing.T, handler http.HandlerFunc) *HTTPClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewHTTPClient(srv.URL, testToken, 5*time.Second)
}

func TestCreateJob_SendsKindAndBearerToken(t *testing.T) {
	recordingID := uuid.New()
	jobID := uuid.New()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, fmt.Sprintf("/api/v1/recordings/%s/jobs", recordingID), r.URL.Path)
		assert.Equal(t, "Bearer "+testToken, r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "meeting_minutes", body["kind"])

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(models.Job{
			ID:          jobID,
			RecordingID: recordingID,
			Kind:        models.KindMeetingMinutes,
		})
	})

	job, err := client.CreateJob(context.Background(), recordingID, models.KindMeetingMinutes)
	require.NoError(t, err)
	assert.Equal(t, jobID, job.ID)
	assert.Equal(t, models.KindMeetingMinutes, job.Kind)
	assert.Nil(t, job.Content)
}

func TestCreateJob_ConflictMapsToSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
	})

	_, err := client.CreateJob(context.Background(), uuid.New(), models.KindFollowUpEmail)
	assert.ErrorIs(t, err, ErrConflict)
}

func TestListJobs_DecodesAndNormalizesNil(t *testing.T) {
	recordingID := uuid.New()
	content := "done"

	t.Run("populated list", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, fmt.Sprintf("/api/v1/recordings/%s/jobs", recordingID), r.URL.Path)
			json.NewEncoder(w).Encode([]models.Job{
				{ID: uuid.New(), RecordingID: recordingID, Kind: models.KindCommercialAnalysis, Content: &content},
			})
		})

		jobs, err := client.ListJobs(context.Background(), recordingID)
		require.NoError(t, err)
		require.Len(t, jobs, 1)
		assert.Equal(t, "done", *jobs[0].Content)
	})

	t.Run("null body yields empty slice", func(t *testing.T) {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("null"))
		})

		jobs, err := client.ListJobs(context.Background(), recordingID)
		require.NoError(t, err)
		require.NotNil(t, jobs)
		assert.Empty(t, jobs)
	})
}

func TestUpdateJob_PatchesContent(t *testing.T) {
	jobID := uuid.New()

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, fmt.Sprintf("/api/v1/jobs/%s", jobID), r.URL.Path)

		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		edited := body["content"]
		json.NewEncoder(w).Encode(models.Job{ID: jobID, Kind: models.KindFollowUpEmail, Content: &edited})
	})

	job, err := client.UpdateJob(context.Background(), jobID, "edited text")
	require.NoError(t, err)
	assert.Equal(t, "edited text", *job.Content)
}

func TestDeleteJob_NotFoundMapsToSentinel(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		w.WriteHeader(http.StatusNotFound)
	})

	err := client.DeleteJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRecording_DecodesPayload(t *testing.T) {
	id := uuid.New()
	summary := "Weekly sync notes"

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, fmt.Sprintf("/api/v1/recordings/%s", id), r.URL.Path)
		json.NewEncoder(w).Encode(models.Recording{ID: id, Title: "weekly sync", Summary: &summary})
	})

	rec, err := client.GetRecording(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "weekly sync", rec.Title)
	assert.Equal(t, summary, *rec.Summary)
}

func TestPing_HitsHealthEndpoint(t *testing.T) {
	var path string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.Ping(context.Background()))
	assert.Equal(t, "/api/v1/health", path)
}

func TestStatusError_ServerErrorsMapToRequestFailed(t *testing.T) {
	for _, code := range []int{http.StatusBadRequest, http.StatusInternalServerError, http.StatusBadGateway} {
		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(code)
		})
		err := client.Ping(context.Background())
		assert.ErrorIs(t, err, ErrRequestFailed, "status %d", code)
	}
}

func TestDo_ConnectionRefusedMapsToUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	client := NewHTTPClient(url, testToken, time.Second)
	err := client.Ping(context.Background())
	assert.ErrorIs(t, err, ErrUnreachable)
}

func TestDo_ContextCancellationMapsToTimeout(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := client.Ping(ctx)
	assert.ErrorIs(t, err, ErrTimeout)
}
