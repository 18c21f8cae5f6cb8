package stats

import (
	"math"
	"sync"
	"sync/atomic"

	"github.com/raaihank/pii-sentinel/internal/entity"
)

// Aggregator tallies processing counters across all jobs. One
// explicit instance is shared by reference; jobs complete
// concurrently so counters are atomic and the distribution maps are
// lock-protected.
type Aggregator struct {
	totalRequests  atomic.Int64
	totalEntities  atomic.Int64
	totalTexts     atomic.Int64
	totalFiles     atomic.Int64

	mu              sync.Mutex
	processingTimes []float64
	typeDist        map[string]int64
	strategyUsage   map[string]int64
	sourceDist      map[string]int64
}

// Snapshot is a point-in-time copy of the aggregate counters
type Snapshot struct {
	TotalRequests          int64            `json:"total_requests"`
	TotalEntitiesDetected  int64            `json:"total_entities_detected"`
	TotalTextsProcessed    int64            `json:"total_texts_processed"`
	TotalFilesProcessed    int64            `json:"total_files_processed"`
	AvgProcessingTimeMS    float64          `json:"avg_processing_time_ms"`
	EntityTypeDistribution map[string]int64 `json:"entity_type_distribution"`
	StrategyUsage          map[string]int64 `json:"strategy_usage"`
	SourceDistribution     map[string]int64 `json:"source_distribution"`
}

// New creates an empty aggregator
func New() *Aggregator {
	return &Aggregator{
		typeDist:      make(map[string]int64),
		strategyUsage: make(map[string]int64),
		sourceDist:    make(map[string]int64),
	}
}

// RecordText tallies one completed text redaction
func (a *Aggregator) RecordText(entities []entity.Entity, strategyID string, processingMS float64) {
	a.totalTexts.Add(1)
	a.record(entities, strategyID, processingMS)
}

// RecordFile tallies one completed file (image/pdf/audio/video) job
func (a *Aggregator) RecordFile(entities []entity.Entity, strategyID string, processingMS float64) {
	a.totalFiles.Add(1)
	a.record(entities, strategyID, processingMS)
}

func (a *Aggregator) record(entities []entity.Entity, strategyID string, processingMS float64) {
	a.totalRequests.Add(1)
	a.totalEntities.Add(int64(len(entities)))

	a.mu.Lock()
	defer a.mu.Unlock()

	a.processingTimes = append(a.processingTimes, processingMS)
	// Bound the rolling window
	if len(a.processingTimes) > 1000 {
		a.processingTimes = append([]float64(nil), a.processingTimes[len(a.processingTimes)-500:]...)
	}

	for _, e := range entities {
		a.typeDist[string(e.Type)]++
		a.sourceDist[string(e.Source)]++
	}
	a.strategyUsage[strategyID]++
}

// Snapshot returns a copy of the current aggregate state
func (a *Aggregator) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()

	var avg float64
	if len(a.processingTimes) > 0 {
		var sum float64
		for _, t := range a.processingTimes {
			sum += t
		}
		avg = math.Round(sum/float64(len(a.processingTimes))*100) / 100
	}

	snap := Snapshot{
		TotalRequests:          a.totalRequests.Load(),
		TotalEntitiesDetected:  a.totalEntities.Load(),
		TotalTextsProcessed:    a.totalTexts.Load(),
		TotalFilesProcessed:    a.totalFiles.Load(),
		AvgProcessingTimeMS:    avg,
		EntityTypeDistribution: make(map[string]int64, len(a.typeDist)),
		StrategyUsage:          make(map[string]int64, len(a.strategyUsage)),
		SourceDistribution:     make(map[string]int64, len(a.sourceDist)),
	}
	for k, v := range a.typeDist {
		snap.EntityTypeDistribution[k] = v
	}
	for k, v := range a.strategyUsage {
		snap.StrategyUsage[k] = v
	}
	for k, v := range a.sourceDist {
		snap.SourceDistribution[k] = v
	}
	return snap
}
