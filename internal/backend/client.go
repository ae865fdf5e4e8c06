package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/calebmorris/debrief/pkg/models"
	"github.com/google/uuid"
)

// Sentinel errors for backend API failures.
var (
	// ErrConflict means a non-error job of the requested kind already exists.
	// Recoverable by refreshing the job list; never user-fatal.
	ErrConflict      = errors.New("job kind already exists")
	ErrNotFound      = errors.New("resource not found")
	ErrUnreachable   = errors.New("backend unreachable")
	ErrTimeout       = errors.New("backend request timeout")
	ErrRequestFailed = errors.New("backend request failed")
)

// Client is the interface for the Debrief backend job API.
type Client interface {
	GetRecording(ctx context.Context, id uuid.UUID) (*models.Recording, error)
	CreateJob(ctx context.Context, recordingID uuid.UUID, kind models.JobKind) (*models.Job, error)
	ListJobs(ctx context.Context, recordingID uuid.UUID) ([]models.Job, error)
	UpdateJob(ctx context.Context, jobID uuid.UUID, content string) (*models.Job, error)
	DeleteJob(ctx context.Context, jobID uuid.UUID) error
	Ping(ctx context.Context) error
}

// HTTPClient implements Client against the backend's HTTP API. The bearer
// token is bound at construction so callers, including deferred tasks, never
// perform a credential lookup of their own.
type HTTPClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHTTPClient creates a new backend HTTP client.
func NewHTTPClient(baseURL, token string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) GetRecording(ctx context.Context, id uuid.UUID) (*models.Recording, error) {
	var rec models.Recording
	path := fmt.Sprintf("/api/v1/recordings/%s", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *HTTPClient) CreateJob(ctx context.Context, recordingID uuid.UUID, kind models.JobKind) (*models.Job, error) {
	body := map[string]string{"kind": string(kind)}
	var job models.Job
	path := fmt.Sprintf("/api/v1/recordings/%s/jobs", recordingID)
	if err := c.do(ctx, http.MethodPost, path, body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *HTTPClient) ListJobs(ctx context.Context, recordingID uuid.UUID) ([]models.Job, error) {
	var jobs []models.Job
	path := fmt.Sprintf("/api/v1/recordings/%s/jobs", recordingID)
	if err := c.do(ctx, http.MethodGet, path, nil, &jobs); err != nil {
		return nil, err
	}
	if jobs == nil {
		return []models.Job{}, nil
	}
	return jobs, nil
}

func (c *HTTPClient) UpdateJob(ctx context.Context, jobID uuid.UUID, content string) (*models.Job, error) {
	body := map[string]string{"content": content}
	var job models.Job
	path := fmt.Sprintf("/api/v1/jobs/%s", jobID)
	if err := c.do(ctx, http.MethodPatch, path, body, &job); err != nil {
		return nil, err
	}
	return &job, nil
}

func (c *HTTPClient) DeleteJob(ctx context.Context, jobID uuid.UUID) error {
	path := fmt.Sprintf("/api/v1/jobs/%s", jobID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

func (c *HTTPClient) Ping(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/v1/health", nil, nil)
}

// do performs one request and decodes the response into out when non-nil.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return classifyError(err)
	}
	defer resp.Body.Close()

	if err := statusError(resp.StatusCode); err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding backend response: %w", err)
	}
	return nil
}

// statusError maps non-2xx status codes to sentinel errors.
func statusError(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusConflict:
		return fmt.Errorf("%w: status %d", ErrConflict, code)
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: status %d", ErrNotFound, code)
	default:
		return fmt.Errorf("%w: status %d", ErrRequestFailed, code)
	}
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return fmt.Errorf("%w: %v", ErrTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrUnreachable, err)
	}

	return fmt.Errorf("%w: %v", ErrUnreachable, err)
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
