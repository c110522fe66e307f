// Command mock-es serves a tiny slice of the Elasticsearch surface the
// reporter touches, with canned anomaly results for local development. The
// job-specific results index always 404s so the shared-index fallback path
// gets exercised.
package main

import (
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

const jobID = "analyze_test_results"

func main() {
	mux := http.NewServeMux()

	mux.HandleFunc("/_cluster/health", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{"status": "green", "number_of_nodes": 1})
	})

	mux.HandleFunc("/_ml/anomaly_detectors/"+jobID, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"jobs": []map[string]any{
				{"job_id": jobID, "description": "test execution time anomaly detection"},
			},
		})
	})

	mux.HandleFunc("/_ml/anomaly_detectors/"+jobID+"/_stats", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, map[string]any{
			"jobs": []map[string]any{
				{
					"state":       "opened",
					"data_counts": map[string]any{"processed_record_count": 48213},
				},
			},
		})
	})

	mux.HandleFunc("/.ml-anomalies-shared/_search", func(w http.ResponseWriter, r *http.Request) {
		if !enforcePost(w, r) {
			return
		}
		hits := cannedRecords()
		writeJSON(w, map[string]any{
			"hits": map[string]any{
				"total": map[string]any{"value": len(hits)},
				"hits":  hits,
			},
		})
	})

	mux.HandleFunc("/_cat/indices/.ml-*", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		fmt.Fprintln(w, "health status index                 docs.count")
		fmt.Fprintln(w, "green  open   .ml-anomalies-shared  1284")
	})

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		// Job-specific results indices do not exist on this mock.
		if strings.HasPrefix(r.URL.Path, "/.ml-anomalies-") {
			w.WriteHeader(http.StatusNotFound)
			writeJSON(w, map[string]any{"error": map[string]any{"type": "index_not_found_exception"}})
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})

	logger := log.New(log.Writer(), "mock-es ", log.LstdFlags|log.Lmicroseconds)
	srv := &http.Server{
		Addr:    ":9200",
		Handler: logRequests(logger, mux),
	}

	logger.Println("listening on :9200")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("server error: %v", err)
	}
}

func cannedRecords() []map[string]any {
	tests := []string{"checkout_flow", "login_smoke", "inventory_sync", "payment_e2e"}
	rng := rand.New(rand.NewSource(42))

	hits := make([]map[string]any, 0, 40)
	now := time.Now()
	for i := 0; i < 40; i++ {
		test := tests[rng.Intn(len(tests))]
		score := rng.Float64() * 100
		actual := 800 + rng.Float64()*900
		hits = append(hits, map[string]any{
			"_source": map[string]any{
				"job_id":                jobID,
				"result_type":           "record",
				"timestamp":             now.Add(-time.Duration(rng.Intn(50*24)) * time.Hour).UnixMilli(),
				"record_score":          score,
				"partition_field_value": test,
				"function":              "mean",
				"field_name":            "execution_time_ms",
				"actual":                []float64{actual},
				"typical":               []float64{650},
			},
		})
	}
	return hits
}

func enforcePost(w http.ResponseWriter, r *http.Request) bool {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, payload any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		log.Printf("encode error: %v", err)
	}
}

func logRequests(logger *log.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)
		logger.Printf("%s %s %d %s", r.Method, r.URL.Path, rw.status, time.Since(start))
	})
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}
