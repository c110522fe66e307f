package es

import (
	"encoding/json"

	"github.com/miradorstack/anomaly-reporter/internal/models"
	"github.com/miradorstack/anomaly-reporter/internal/utils"
)

// unknownPartition labels records without a partition field value.
const unknownPartition = "Unknown"

type searchResponse struct {
	Hits struct {
		Total struct {
			Value int `json:"value"`
		} `json:"total"`
		Hits []searchHit `json:"hits"`
	} `json:"hits"`
}

type searchHit struct {
	Source sourceDoc `json:"_source"`
}

// sourceDoc mirrors the fields the reporter consumes from a results document.
// Timestamp and actual/typical use raw JSON because the index emits them in
// more than one shape.
type sourceDoc struct {
	JobID               string          `json:"job_id"`
	ResultType          string          `json:"result_type"`
	Timestamp           json.RawMessage `json:"timestamp"`
	RecordScore         *float64        `json:"record_score"`
	AnomalyScore        *float64        `json:"anomaly_score"`
	PartitionFieldValue string          `json:"partition_field_value"`
	Function            string          `json:"function"`
	FieldName           string          `json:"field_name"`
	Actual              json.RawMessage `json:"actual"`
	Typical             json.RawMessage `json:"typical"`
}

// projectHits validates documents at the ingestion boundary: scores default to
// zero, partitions default to "Unknown", and documents without a usable
// timestamp are dropped.
func projectHits(response *searchResponse) ([]models.AnomalyRecord, error) {
	if response == nil || len(response.Hits.Hits) == 0 {
		return nil, nil
	}

	records := make([]models.AnomalyRecord, 0, len(response.Hits.Hits))
	for _, hit := range response.Hits.Hits {
		record, ok := projectSource(hit.Source)
		if !ok {
			continue
		}
		records = append(records, record)
	}
	return records, nil
}

func projectSource(doc sourceDoc) (models.AnomalyRecord, bool) {
	ts, err := utils.ParseAnomalyTimestamp(doc.Timestamp)
	if err != nil {
		return models.AnomalyRecord{}, false
	}

	resultType := models.ResultType(doc.ResultType)
	score := 0.0
	switch resultType {
	case models.ResultTypeBucket:
		if doc.AnomalyScore != nil {
			score = *doc.AnomalyScore
		}
	default:
		resultType = models.ResultTypeRecord
		if doc.RecordScore != nil {
			score = *doc.RecordScore
		}
	}

	partition := doc.PartitionFieldValue
	if partition == "" {
		partition = unknownPartition
	}

	return models.AnomalyRecord{
		Timestamp:  ts,
		Score:      score,
		Partition:  partition,
		ResultType: resultType,
		Function:   doc.Function,
		FieldName:  doc.FieldName,
		Actual:     parseValues(doc.Actual),
		Typical:    parseValues(doc.Typical),
	}, true
}

// parseValues accepts the single-number and array shapes the index emits for
// actual/typical fields.
func parseValues(raw json.RawMessage) []float64 {
	if len(raw) == 0 {
		return nil
	}
	var values []float64
	if err := json.Unmarshal(raw, &values); err == nil {
		return values
	}
	var single float64
	if err := json.Unmarshal(raw, &single); err == nil {
		return []float64{single}
	}
	return nil
}
