package merge

import (
	"math"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// SetStats summarizes one finalized entity set
type SetStats struct {
	Total            int            `json:"total"`
	ByType           map[string]int `json:"by_type"`
	BySource         map[string]int `json:"by_source"`
	AvgConfidence    float64        `json:"avg_confidence"`
	HighConfidence   int            `json:"high_confidence"`
	MediumConfidence int            `json:"medium_confidence"`
	LowConfidence    int            `json:"low_confidence"`
}

// Stats computes per-set statistics for API responses
func Stats(entities []entity.Entity) SetStats {
	stats := SetStats{
		Total:    len(entities),
		ByType:   make(map[string]int),
		BySource: make(map[string]int),
	}
	if len(entities) == 0 {
		return stats
	}

	var totalConf float64
	for _, e := range entities {
		stats.ByType[string(e.Type)]++
		stats.BySource[string(e.Source)]++
		totalConf += e.Confidence

		switch {
		case e.Confidence >= 0.8:
			stats.HighConfidence++
		case e.Confidence >= 0.5:
			stats.MediumConfidence++
		default:
			stats.LowConfidence++
		}
	}

	stats.AvgConfidence = math.Round(totalConf/float64(len(entities))*1000) / 1000
	return stats
}
