package es

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/miradorstack/anomaly-reporter/internal/models"
)

const testJobID = "analyze_test_results"

func searchBody(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func writeHits(w http.ResponseWriter, sources ...map[string]any) {
	hits := make([]map[string]any, 0, len(sources))
	for _, src := range sources {
		hits = append(hits, map[string]any{"_source": src})
	}
	payload := map[string]any{
		"hits": map[string]any{
			"total": map[string]any{"value": len(hits)},
			"hits":  hits,
		},
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(payload)
}

func recordSource(tsMillis int64, score float64, partition string) map[string]any {
	return map[string]any{
		"job_id":                testJobID,
		"result_type":           "record",
		"timestamp":             tsMillis,
		"record_score":          score,
		"partition_field_value": partition,
		"actual":                []float64{812.5},
		"typical":               []float64{650},
	}
}

func TestSearchRecords(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	var gotBody map[string]any

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/.ml-anomalies-"+testJobID+"/_search", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		gotBody = searchBody(t, r)
		writeHits(w,
			recordSource(now.UnixMilli(), 82.3, "checkout_flow"),
			recordSource(now.Add(-time.Hour).UnixMilli(), 41.0, "login_smoke"),
		)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	records, err := client.SearchRecords(context.Background(), RecordQuery{
		JobID:    testJobID,
		Start:    now.Add(-24 * time.Hour),
		End:      now,
		MinScore: 25,
		Size:     1000,
		Sort:     models.SortByScore,
	})
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, 82.3, records[0].Score)
	assert.Equal(t, "checkout_flow", records[0].Partition)
	assert.Equal(t, models.ResultTypeRecord, records[0].ResultType)
	assert.True(t, records[0].Timestamp.Equal(now))
	assert.Equal(t, 812.5, records[0].ActualValue())
	assert.Equal(t, 650.0, records[0].TypicalValue())

	// The query carries the size cap and the score/time filters.
	assert.Equal(t, float64(1000), gotBody["size"])
	raw, err := json.Marshal(gotBody["query"])
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"record_score"`)
	assert.Contains(t, string(raw), `"gte":25`)
}

func TestSearchRecords_FallsBackToSharedIndex(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	primaryHits := 0
	sharedHits := 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/.ml-anomalies-" + testJobID + "/_search":
			primaryHits++
			w.WriteHeader(http.StatusNotFound)
		case "/.ml-anomalies-shared/_search":
			sharedHits++
			writeHits(w, recordSource(now.UnixMilli(), 91.0, "payment_e2e"))
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
			w.WriteHeader(http.StatusTeapot)
		}
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	records, err := client.SearchRecords(context.Background(), RecordQuery{
		JobID: testJobID,
		Start: now.Add(-time.Hour),
		End:   now,
		Size:  10,
	})
	require.NoError(t, err)

	assert.Equal(t, 1, primaryHits)
	assert.Equal(t, 1, sharedHits)
	require.Len(t, records, 1)
	assert.Equal(t, "payment_e2e", records[0].Partition)
}

func TestSearchRecords_BothIndicesMissing(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.SearchRecords(context.Background(), RecordQuery{JobID: testJobID, Size: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no results index")
}

func TestSearchRecords_HTTPErrorIncludesBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"search_phase_execution_exception"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.SearchRecords(context.Background(), RecordQuery{JobID: testJobID, Size: 10})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "500")
	assert.Contains(t, err.Error(), "search_phase_execution_exception")
}

func TestSearchRecords_DropsRecordsWithoutTimestamp(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHits(w,
			recordSource(now.UnixMilli(), 60, "checkout_flow"),
			map[string]any{
				"job_id":       testJobID,
				"result_type":  "record",
				"record_score": 99.0,
			},
		)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	records, err := client.SearchRecords(context.Background(), RecordQuery{JobID: testJobID, Size: 10})
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 60.0, records[0].Score)
}

func TestSearchRecords_DefaultsAndTimestampShapes(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeHits(w,
			// String timestamp, no partition, no score, scalar actual.
			map[string]any{
				"job_id":      testJobID,
				"result_type": "record",
				"timestamp":   "2026-08-15T10:30:00Z",
				"actual":      3.5,
			},
		)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	records, err := client.SearchRecords(context.Background(), RecordQuery{JobID: testJobID, Size: 10})
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "Unknown", record.Partition)
	assert.Equal(t, 0.0, record.Score)
	assert.Equal(t, 3.5, record.ActualValue())
	assert.Equal(t, time.Date(2026, 8, 15, 10, 30, 0, 0, time.UTC), record.Timestamp)
}

func TestSearchBuckets(t *testing.T) {
	t.Parallel()

	now := time.Now().UTC()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body := searchBody(t, r)
		raw, err := json.Marshal(body["query"])
		require.NoError(t, err)
		assert.Contains(t, string(raw), `"bucket"`)
		writeHits(w, map[string]any{
			"job_id":        testJobID,
			"result_type":   "bucket",
			"timestamp":     now.UnixMilli(),
			"anomaly_score": 47.2,
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	buckets, err := client.SearchBuckets(context.Background(), testJobID, 100)
	require.NoError(t, err)
	require.Len(t, buckets, 1)

	assert.Equal(t, models.ResultTypeBucket, buckets[0].ResultType)
	assert.Equal(t, 47.2, buckets[0].Score)
	assert.Equal(t, "Unknown", buckets[0].Partition)
}

func TestClusterHealth(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_cluster/health", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"yellow"}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	status, err := client.ClusterHealth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "yellow", status)
}

func TestFetchJobInfo_NotFound(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	_, err := client.FetchJobInfo(context.Background(), testJobID)
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestFetchJobStats(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_ml/anomaly_detectors/"+testJobID+"/_stats", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"jobs":[{"state":"opened","data_counts":{"processed_record_count":48213}}]}`))
	}))
	defer srv.Close()

	client := NewClient(srv.URL, time.Second)
	stats, err := client.FetchJobStats(context.Background(), testJobID)
	require.NoError(t, err)
	assert.Equal(t, "opened", stats.State)
	assert.Equal(t, int64(48213), stats.ProcessedRecords)
}
