package loadtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient wraps http.Client with a timeout and the publisher header.
type HTTPClient struct {
	client      *http.Client
	publisherID string
}

// newHTTPClient creates a new HTTP client with timeout.
func newHTTPClient(timeout time.Duration, publisherID string) *HTTPClient {
	return &HTTPClient{
		client: &http.Client{
			Timeout: timeout,
		},
		publisherID: publisherID,
	}
}

// Get performs a GET request.
func (c *HTTPClient) Get(url string) (*http.Response, error) {
	req, err := http.NewRequest(http.MethodGet, url, http.NoBody)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-Publisher-ID", c.publisherID)
	return c.client.Do(req)
}

// Post performs a POST request with JSON body.
func (c *HTTPClient) Post(url string, body any) (*http.Response, error) {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, url, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Publisher-ID", c.publisherID)
	return c.client.Do(req)
}

// readResponseBody reads and closes the response body.
func readResponseBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	return io.ReadAll(resp.Body)
}

// Response shapes mirrored from the task API.

type sessionResponse struct {
	SessionID string `json:"session_id"`
}

type taskResponse struct {
	TaskID    string   `json:"task_id"`
	TaskType  string   `json:"task_type"`
	Options   []string `json:"options"`
	GoldenSet bool     `json:"golden_set"`
}

type submitResponse struct {
	Success      bool    `json:"success"`
	QualityScore float64 `json:"quality_score"`
	Reward       struct {
		Type            string `json:"type"`
		DurationSeconds int    `json:"duration_seconds"`
	} `json:"reward"`
}

type userStatsResponse struct {
	TasksCompleted int `json:"tasks_completed"`
}
