package patterns

import (
	"log/slog"
	"sort"
	"time"

	"github.com/miradorstack/anomaly-reporter/internal/engine"
	"github.com/miradorstack/anomaly-reporter/internal/models"
)

// Miner mines frequency-based hotspot patterns from a fetched anomaly set,
// surfacing partitions that keep producing anomalies across the window.
type Miner struct {
	logger *slog.Logger
}

// NewMiner constructs a Miner.
func NewMiner(logger *slog.Logger) *Miner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Miner{logger: logger}
}

// Mine aggregates records per partition and returns hotspots sorted by
// prevalence. Returns nil for an empty input.
func (m *Miner) Mine(records []models.AnomalyRecord) []models.HotspotPattern {
	if len(records) == 0 {
		return nil
	}

	aggregates := make(map[string]*partitionAggregate)
	order := make([]string, 0)
	for _, record := range records {
		agg, ok := aggregates[record.Partition]
		if !ok {
			agg = &partitionAggregate{
				firstSeen: record.Timestamp,
				lastSeen:  record.Timestamp,
			}
			aggregates[record.Partition] = agg
			order = append(order, record.Partition)
		}
		agg.count++
		if record.Score > agg.peakScore {
			agg.peakScore = record.Score
		}
		if record.Timestamp.Before(agg.firstSeen) {
			agg.firstSeen = record.Timestamp
		}
		if record.Timestamp.After(agg.lastSeen) {
			agg.lastSeen = record.Timestamp
		}
	}

	total := float64(len(records))
	hotspots := make([]models.HotspotPattern, 0, len(order))
	for _, partition := range order {
		agg := aggregates[partition]
		hotspots = append(hotspots, models.HotspotPattern{
			Partition:        partition,
			Occurrences:      agg.count,
			Prevalence:       float64(agg.count) / total,
			PeakScore:        agg.peakScore,
			DominantSeverity: engine.SeverityFromScore(agg.peakScore),
			FirstSeen:        agg.firstSeen,
			LastSeen:         agg.lastSeen,
		})
	}

	sort.SliceStable(hotspots, func(i, j int) bool {
		return hotspots[i].Prevalence > hotspots[j].Prevalence
	})

	m.logger.Debug("mined hotspots", slog.Int("partitions", len(hotspots)), slog.Int("records", len(records)))
	return hotspots
}

type partitionAggregate struct {
	count     int
	peakScore float64
	firstSeen time.Time
	lastSeen  time.Time
}
