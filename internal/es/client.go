package es

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/miradorstack/anomaly-reporter/internal/models"
	"github.com/miradorstack/anomaly-reporter/internal/utils"
)

// ErrJobNotFound signals the ML job does not exist on the cluster.
var ErrJobNotFound = errors.New("ml job not found")

// sharedResultsIndex receives results for jobs without a dedicated index.
const sharedResultsIndex = ".ml-anomalies-shared"

// JobInfo summarises the ML job pre-flight lookup.
type JobInfo struct {
	JobID       string
	Description string
}

// JobStats captures the job state check from the _stats endpoint.
type JobStats struct {
	State            string
	ProcessedRecords int64
}

// RecordQuery filters a job's anomaly records by window and minimum score.
type RecordQuery struct {
	JobID    string
	Start    time.Time
	End      time.Time
	MinScore float64
	Size     int
	Sort     models.SortOrder
}

// Client wraps the cluster search and ML job endpoints used by the reporter.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient constructs a client targeting the configured cluster.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ClusterHealth returns the cluster status string (green/yellow/red).
func (c *Client) ClusterHealth(ctx context.Context) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("elasticsearch client not configured")
	}

	var response struct {
		Status string `json:"status"`
	}
	if _, err := c.getJSON(ctx, c.baseURL+"/_cluster/health", &response); err != nil {
		return "", fmt.Errorf("cluster health check failed: %w", err)
	}
	return response.Status, nil
}

// FetchJobInfo checks the ML job exists. Returns ErrJobNotFound on a 404.
func (c *Client) FetchJobInfo(ctx context.Context, jobID string) (JobInfo, error) {
	if c == nil || c.baseURL == "" {
		return JobInfo{}, fmt.Errorf("elasticsearch client not configured")
	}
	if jobID == "" {
		return JobInfo{}, fmt.Errorf("job id is required")
	}

	var response struct {
		Jobs []struct {
			JobID       string `json:"job_id"`
			Description string `json:"description"`
		} `json:"jobs"`
	}
	status, err := c.getJSON(ctx, c.baseURL+"/_ml/anomaly_detectors/"+jobID, &response)
	if status == http.StatusNotFound {
		return JobInfo{}, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	if err != nil {
		return JobInfo{}, fmt.Errorf("fetch job info: %w", err)
	}
	if len(response.Jobs) == 0 {
		return JobInfo{}, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	return JobInfo{JobID: response.Jobs[0].JobID, Description: response.Jobs[0].Description}, nil
}

// FetchJobStats returns the job state and processed record count.
func (c *Client) FetchJobStats(ctx context.Context, jobID string) (JobStats, error) {
	if c == nil || c.baseURL == "" {
		return JobStats{}, fmt.Errorf("elasticsearch client not configured")
	}

	var response struct {
		Jobs []struct {
			State      string `json:"state"`
			DataCounts struct {
				ProcessedRecordCount int64 `json:"processed_record_count"`
			} `json:"data_counts"`
		} `json:"jobs"`
	}
	status, err := c.getJSON(ctx, c.baseURL+"/_ml/anomaly_detectors/"+jobID+"/_stats", &response)
	if status == http.StatusNotFound {
		return JobStats{}, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	if err != nil {
		return JobStats{}, fmt.Errorf("fetch job stats: %w", err)
	}
	if len(response.Jobs) == 0 {
		return JobStats{}, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
	}
	return JobStats{
		State:            response.Jobs[0].State,
		ProcessedRecords: response.Jobs[0].DataCounts.ProcessedRecordCount,
	}, nil
}

// SearchRecords fetches record-level anomaly results for the query window.
// A 404 on the job-specific index retries once against the shared index; no
// further retries and no pagination beyond the size cap.
func (c *Client) SearchRecords(ctx context.Context, q RecordQuery) ([]models.AnomalyRecord, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("elasticsearch client not configured")
	}
	if q.JobID == "" {
		return nil, fmt.Errorf("job id is required")
	}

	payload := map[string]any{
		"size": q.Size,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"job_id": q.JobID}},
					map[string]any{"term": map[string]any{"result_type": string(models.ResultTypeRecord)}},
					map[string]any{"range": map[string]any{
						"timestamp": map[string]any{
							"gte": utils.EpochMillis(q.Start),
							"lte": utils.EpochMillis(q.End),
						},
					}},
					map[string]any{"range": map[string]any{
						"record_score": map[string]any{"gte": q.MinScore},
					}},
				},
			},
		},
		"sort": sortClause(q.Sort),
	}

	response, err := c.searchWithFallback(ctx, q.JobID, payload)
	if err != nil {
		return nil, fmt.Errorf("search records: %w", err)
	}
	return projectHits(response)
}

// SearchBuckets fetches time-bucketed aggregate results as a coarse fallback
// when no record-level results exist. Buckets sort chronologically.
func (c *Client) SearchBuckets(ctx context.Context, jobID string, size int) ([]models.AnomalyRecord, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("elasticsearch client not configured")
	}
	if jobID == "" {
		return nil, fmt.Errorf("job id is required")
	}

	payload := map[string]any{
		"size": size,
		"query": map[string]any{
			"bool": map[string]any{
				"filter": []any{
					map[string]any{"term": map[string]any{"job_id": jobID}},
					map[string]any{"term": map[string]any{"result_type": string(models.ResultTypeBucket)}},
				},
			},
		},
		"sort": []any{map[string]any{"timestamp": map[string]any{"order": "asc"}}},
	}

	response, err := c.searchWithFallback(ctx, jobID, payload)
	if err != nil {
		return nil, fmt.Errorf("search buckets: %w", err)
	}
	return projectHits(response)
}

// ListMLIndices returns the cluster's ML result indices for diagnostics.
func (c *Client) ListMLIndices(ctx context.Context) (string, error) {
	if c == nil || c.baseURL == "" {
		return "", fmt.Errorf("elasticsearch client not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/_cat/indices/.ml-*?v", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read indices listing: %w", err)
	}
	return string(body), nil
}

func sortClause(order models.SortOrder) []any {
	if order == models.SortByTimestamp {
		return []any{map[string]any{"timestamp": map[string]any{"order": "asc"}}}
	}
	return []any{map[string]any{"record_score": map[string]any{"order": "desc"}}}
}

// searchWithFallback posts against the job index, then once against the
// shared index when the job index is absent.
func (c *Client) searchWithFallback(ctx context.Context, jobID string, payload any) (*searchResponse, error) {
	primary := fmt.Sprintf("%s/.ml-anomalies-%s/_search", c.baseURL, jobID)
	response, status, err := c.postSearch(ctx, primary, payload)
	if err != nil {
		return nil, err
	}
	if status != http.StatusNotFound {
		return response, nil
	}

	fallback := fmt.Sprintf("%s/%s/_search", c.baseURL, sharedResultsIndex)
	response, status, err = c.postSearch(ctx, fallback, payload)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, fmt.Errorf("no results index for job %s (tried job index and %s)", jobID, sharedResultsIndex)
	}
	return response, nil
}

func (c *Client) postSearch(ctx context.Context, endpoint string, payload any) (*searchResponse, int, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal query: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return nil, http.StatusNotFound, nil
	}
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, resp.StatusCode, fmt.Errorf("search returned %s: %s", resp.Status, strings.TrimSpace(string(text)))
	}

	var response searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return &response, resp.StatusCode, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return 0, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		io.Copy(io.Discard, resp.Body)
		return http.StatusNotFound, fmt.Errorf("not found")
	}
	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return resp.StatusCode, fmt.Errorf("request returned %s: %s", resp.Status, strings.TrimSpace(string(text)))
	}

	if out == nil {
		return resp.StatusCode, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode response: %w", err)
	}
	return resp.StatusCode, nil
}
