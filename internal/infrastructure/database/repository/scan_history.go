package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"mobiguard/internal/domain/models"
	"mobiguard/internal/infrastructure/database"
	"mobiguard/pkg/logger"
)

// ScanHistoryRepository persists finished batch results so recent scans can
// be replayed to clients without re-querying providers
type ScanHistoryRepository struct {
	db     *database.PostgresDB
	logger *logger.Logger
}

// NewScanHistoryRepository creates a new ScanHistoryRepository
func NewScanHistoryRepository(db *database.PostgresDB, log *logger.Logger) *ScanHistoryRepository {
	return &ScanHistoryRepository{
		db:     db,
		logger: log.WithComponent("scan-history"),
	}
}

// EnsureSchema creates the scan history table if it does not exist
func (r *ScanHistoryRepository) EnsureSchema(ctx context.Context) error {
	const ddl = `
		CREATE TABLE IF NOT EXISTS scan_batches (
			id           UUID PRIMARY KEY,
			total        INT NOT NULL,
			malicious    INT NOT NULL,
			suspicious   INT NOT NULL,
			clean        INT NOT NULL,
			errors       INT NOT NULL,
			cancelled    BOOLEAN NOT NULL DEFAULT FALSE,
			verdicts     JSONB NOT NULL,
			started_at   TIMESTAMPTZ NOT NULL,
			completed_at TIMESTAMPTZ NOT NULL
		)`
	if err := r.db.Exec(ctx, ddl); err != nil {
		return fmt.Errorf("failed to create scan_batches table: %w", err)
	}
	return nil
}

// SaveBatch stores a finished batch result
func (r *ScanHistoryRepository) SaveBatch(ctx context.Context, result models.ScanBatchResult) error {
	verdicts, err := json.Marshal(result.Verdicts)
	if err != nil {
		return fmt.Errorf("failed to marshal verdicts: %w", err)
	}

	const query = `
		INSERT INTO scan_batches (id, total, malicious, suspicious, clean, errors, cancelled, verdicts, started_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	if err := r.db.Exec(ctx, query,
		result.ID, result.Total, result.Malicious, result.Suspicious,
		result.Clean, result.Errors, result.Cancelled, verdicts,
		result.StartedAt, result.CompletedAt,
	); err != nil {
		return fmt.Errorf("failed to insert scan batch: %w", err)
	}

	r.logger.Debug().Str("batch_id", result.ID.String()).Msg("scan batch persisted")
	return nil
}

// RecentBatches returns the most recently completed batches, newest first
func (r *ScanHistoryRepository) RecentBatches(ctx context.Context, limit int) ([]models.ScanBatchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	const query = `
		SELECT id, total, malicious, suspicious, clean, errors, cancelled, verdicts, started_at, completed_at
		FROM scan_batches
		ORDER BY completed_at DESC
		LIMIT $1`

	rows, err := r.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan batches: %w", err)
	}
	defer rows.Close()

	results := make([]models.ScanBatchResult, 0, limit)
	for rows.Next() {
		var result models.ScanBatchResult
		var verdicts []byte
		if err := rows.Scan(
			&result.ID, &result.Total, &result.Malicious, &result.Suspicious,
			&result.Clean, &result.Errors, &result.Cancelled, &verdicts,
			&result.StartedAt, &result.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan batch row: %w", err)
		}
		if err := json.Unmarshal(verdicts, &result.Verdicts); err != nil {
			return nil, fmt.Errorf("failed to unmarshal verdicts: %w", err)
		}
		results = append(results, result)
	}

	return results, rows.Err()
}
