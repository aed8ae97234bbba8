package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-portal-api/internal/models"
)

// DeadlineConfigRepository persists per-type deadline windows. Configs
// are deactivated, never hard-deleted.
type DeadlineConfigRepository struct {
	db *sqlx.DB
}

// NewDeadlineConfigRepository constructs the repository.
func NewDeadlineConfigRepository(db *sqlx.DB) *DeadlineConfigRepository {
	return &DeadlineConfigRepository{db: db}
}

// ListActive returns the deadline windows currently in force.
func (r *DeadlineConfigRepository) ListActive(ctx context.Context) ([]models.DeadlineConfig, error) {
	const query = `SELECT request_type, deadline_days, active, updated_at
	FROM deadline_configs WHERE active = TRUE ORDER BY request_type ASC`
	var configs []models.DeadlineConfig
	if err := r.db.SelectContext(ctx, &configs, query); err != nil {
		return nil, fmt.Errorf("list active deadline configs: %w", err)
	}
	return configs, nil
}

// GetActive fetches the active window for one request type.
// sql.ErrNoRows means the type never expires.
func (r *DeadlineConfigRepository) GetActive(ctx context.Context, requestType string) (*models.DeadlineConfig, error) {
	const query = `SELECT request_type, deadline_days, active, updated_at
	FROM deadline_configs WHERE request_type = $1 AND active = TRUE`
	var config models.DeadlineConfig
	if err := r.db.GetContext(ctx, &config, query, requestType); err != nil {
		return nil, err
	}
	return &config, nil
}

// Upsert creates or reactivates the window for a request type.
func (r *DeadlineConfigRepository) Upsert(ctx context.Context, config *models.DeadlineConfig) error {
	config.Active = true
	config.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO deadline_configs (request_type, deadline_days, active, updated_at)
	VALUES (:request_type, :deadline_days, :active, :updated_at)
	ON CONFLICT (request_type)
	DO UPDATE SET deadline_days = EXCLUDED.deadline_days, active = EXCLUDED.active, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, config); err != nil {
		return fmt.Errorf("upsert deadline config: %w", err)
	}
	return nil
}

// Deactivate soft-deletes the window for a request type.
func (r *DeadlineConfigRepository) Deactivate(ctx context.Context, requestType string) error {
	const query = `UPDATE deadline_configs SET active = FALSE, updated_at = $1 WHERE request_type = $2 AND active = TRUE`
	result, err := r.db.ExecContext(ctx, query, time.Now().UTC(), requestType)
	if err != nil {
		return fmt.Errorf("deactivate deadline config: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check deadline config rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}
