package engine

import (
	"sort"

	"github.com/miradorstack/anomaly-reporter/internal/models"
)

// Fixed severity boundaries on the 0-100 record score scale.
const (
	criticalThreshold = 75
	majorThreshold    = 50
	minorThreshold    = 25
)

// SeverityFromScore maps a record score to exactly one severity tier.
func SeverityFromScore(score float64) models.Severity {
	switch {
	case score > criticalThreshold:
		return models.SeverityCritical
	case score > majorThreshold:
		return models.SeverityMajor
	case score > minorThreshold:
		return models.SeverityMinor
	default:
		return models.SeverityNegligible
	}
}

// Classify tallies records per severity tier.
func Classify(records []models.AnomalyRecord) models.SeverityCounts {
	var counts models.SeverityCounts
	for _, record := range records {
		switch SeverityFromScore(record.Score) {
		case models.SeverityCritical:
			counts.Critical++
		case models.SeverityMajor:
			counts.Major++
		case models.SeverityMinor:
			counts.Minor++
		default:
			counts.Negligible++
		}
	}
	return counts
}

// GroupByPartition splits records per partition field value, preserving fetch
// order within each group and first-seen order across groups. Every record
// lands in exactly one group.
func GroupByPartition(records []models.AnomalyRecord) models.GroupedAnomalies {
	grouped := models.GroupedAnomalies{
		Records: make(map[string][]models.AnomalyRecord),
	}
	for _, record := range records {
		if _, ok := grouped.Records[record.Partition]; !ok {
			grouped.Partitions = append(grouped.Partitions, record.Partition)
		}
		grouped.Records[record.Partition] = append(grouped.Records[record.Partition], record)
	}
	return grouped
}

// TopN returns the n highest-scoring records, score descending. The input
// slice is left untouched.
func TopN(records []models.AnomalyRecord, n int) []models.AnomalyRecord {
	if n <= 0 || len(records) == 0 {
		return nil
	}
	sorted := append([]models.AnomalyRecord(nil), records...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Score > sorted[j].Score
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// SortRecords orders records in place: by score descending, or chronologically.
func SortRecords(records []models.AnomalyRecord, order models.SortOrder) {
	switch order {
	case models.SortByTimestamp:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Timestamp.Before(records[j].Timestamp)
		})
	default:
		sort.SliceStable(records, func(i, j int) bool {
			return records[i].Score > records[j].Score
		})
	}
}
