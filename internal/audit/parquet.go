package audit

import (
	"fmt"
	"os"
	"time"

	"github.com/segmentio/parquet-go"
	"go.uber.org/zap"

	"github.com/raaihank/pii-sentinel/internal/logger"
)

// parquetEntry is the flattened row schema for exports
type parquetEntry struct {
	JobID         string  `parquet:"job_id"`
	EntityType    string  `parquet:"entity_type"`
	Strategy      string  `parquet:"strategy"`
	Source        string  `parquet:"source"`
	Confidence    float64 `parquet:"confidence"`
	Locator       string  `parquet:"locator"`
	ValueHash     string  `parquet:"value_hash"`
	RedactedValue string  `parquet:"redacted_value"`
	CreatedAt     int64   `parquet:"created_at_unix_ms"`
}

// ExportParquet writes audit entries to a Parquet file for offline
// compliance analysis.
func ExportParquet(path string, entries []Entry, log *logger.Logger) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer file.Close()

	writer := parquet.NewWriter(file)
	start := time.Now()

	for _, e := range entries {
		row := parquetEntry{
			JobID:         e.JobID,
			EntityType:    e.EntityType,
			Strategy:      e.Strategy,
			Source:        e.Source,
			Confidence:    e.Confidence,
			Locator:       e.Locator,
			ValueHash:     e.ValueHash,
			RedactedValue: e.RedactedValue,
			CreatedAt:     e.CreatedAt.UnixMilli(),
		}
		if err := writer.Write(&row); err != nil {
			return fmt.Errorf("failed to write export row: %w", err)
		}
	}

	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize export file: %w", err)
	}

	log.Info("Audit export completed",
		zap.String("file", path),
		zap.Int("entries", len(entries)),
		zap.Duration("duration", time.Since(start)))

	return nil
}
