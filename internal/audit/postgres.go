package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/raaihank/pii-sentinel/internal/logger"
)

// Archive persists audit trails to PostgreSQL for compliance review.
// It is an optional collaborator: when disabled the pipeline keeps
// audit entries on the job record only.
type Archive struct {
	db    *sqlx.DB
	table string
	log   *logger.Logger
}

// NewArchive connects to PostgreSQL and ensures the audit table exists
func NewArchive(databaseURL, table string, log *logger.Logger) (*Archive, error) {
	db, err := sqlx.Connect("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if table == "" {
		table = "audit_log"
	}

	a := &Archive{db: db, table: table, log: log}
	if err := a.initialize(); err != nil {
		return nil, fmt.Errorf("failed to initialize audit archive: %w", err)
	}

	log.Info("Audit archive initialized",
		zap.String("database_url", maskDatabaseURL(databaseURL)),
		zap.String("table", table))

	return a, nil
}

func (a *Archive) initialize() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.db.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	schema := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id BIGSERIAL PRIMARY KEY,
			job_id TEXT NOT NULL,
			entity_type TEXT NOT NULL,
			strategy TEXT NOT NULL,
			source TEXT NOT NULL,
			confidence DOUBLE PRECISION NOT NULL,
			locator TEXT NOT NULL DEFAULT '',
			value_hash TEXT NOT NULL DEFAULT '',
			redacted_value TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_%s_job_id ON %s (job_id);
		CREATE INDEX IF NOT EXISTS idx_%s_created_at ON %s (created_at)`,
		a.table, a.table, a.table, a.table, a.table)

	if _, err := a.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to ensure audit table: %w", err)
	}
	return nil
}

// Record writes a job's audit entries in one batch insert
func (a *Archive) Record(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	valueStrings := make([]string, 0, len(entries))
	valueArgs := make([]interface{}, 0, len(entries)*9)
	for i, e := range entries {
		valueStrings = append(valueStrings, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d, $%d)",
			i*9+1, i*9+2, i*9+3, i*9+4, i*9+5, i*9+6, i*9+7, i*9+8, i*9+9))
		valueArgs = append(valueArgs,
			e.JobID, e.EntityType, e.Strategy, e.Source,
			e.Confidence, e.Locator, e.ValueHash, e.RedactedValue, e.CreatedAt)
	}

	query := fmt.Sprintf(
		"INSERT INTO %s (job_id, entity_type, strategy, source, confidence, locator, value_hash, redacted_value, created_at) VALUES %s",
		a.table, strings.Join(valueStrings, ", "))

	if _, err := a.db.ExecContext(ctx, query, valueArgs...); err != nil {
		a.log.Error("Failed to archive audit entries",
			zap.Error(err),
			zap.Int("entries", len(entries)))
		return fmt.Errorf("failed to archive audit entries: %w", err)
	}

	a.log.Debug("Audit entries archived", zap.Int("entries", len(entries)))
	return nil
}

// ListByJob returns the archived trail for one job
func (a *Archive) ListByJob(ctx context.Context, jobID string) ([]Entry, error) {
	var entries []Entry
	query := fmt.Sprintf("SELECT * FROM %s WHERE job_id = $1 ORDER BY id", a.table)
	if err := a.db.SelectContext(ctx, &entries, query, jobID); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// ListSince returns entries created at or after the given time,
// ordered oldest first. Used by the export tool.
func (a *Archive) ListSince(ctx context.Context, since time.Time) ([]Entry, error) {
	var entries []Entry
	query := fmt.Sprintf("SELECT * FROM %s WHERE created_at >= $1 ORDER BY id", a.table)
	if err := a.db.SelectContext(ctx, &entries, query, since); err != nil {
		return nil, fmt.Errorf("failed to list audit entries: %w", err)
	}
	return entries, nil
}

// Close closes the database connection
func (a *Archive) Close() error {
	if a.db != nil {
		return a.db.Close()
	}
	return nil
}

// maskDatabaseURL hides credentials in connection strings before logging
func maskDatabaseURL(url string) string {
	if strings.Contains(url, "@") {
		parts := strings.Split(url, "@")
		if len(parts) >= 2 {
			userPart := parts[0]
			if strings.Contains(userPart, ":") {
				userParts := strings.Split(userPart, ":")
				if len(userParts) >= 3 {
					userParts[len(userParts)-1] = "***"
					parts[0] = strings.Join(userParts, ":")
				}
			}
			return strings.Join(parts, "@")
		}
	}
	return url
}
