package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-portal-api/internal/models"
)

// RoutingRuleRepository persists the request-type routing table.
type RoutingRuleRepository struct {
	db *sqlx.DB
}

// NewRoutingRuleRepository constructs the repository.
func NewRoutingRuleRepository(db *sqlx.DB) *RoutingRuleRepository {
	return &RoutingRuleRepository{db: db}
}

// List returns all routing rules ordered by request type.
func (r *RoutingRuleRepository) List(ctx context.Context) ([]models.RoutingRule, error) {
	const query = `SELECT request_type, destination, updated_at FROM routing_rules ORDER BY request_type ASC`
	var rules []models.RoutingRule
	if err := r.db.SelectContext(ctx, &rules, query); err != nil {
		return nil, fmt.Errorf("list routing rules: %w", err)
	}
	return rules, nil
}

// Get fetches the rule for one request type. sql.ErrNoRows means the
// type has no explicit rule.
func (r *RoutingRuleRepository) Get(ctx context.Context, requestType string) (*models.RoutingRule, error) {
	const query = `SELECT request_type, destination, updated_at FROM routing_rules WHERE request_type = $1`
	var rule models.RoutingRule
	if err := r.db.GetContext(ctx, &rule, query, requestType); err != nil {
		return nil, err
	}
	return &rule, nil
}

// Upsert creates or replaces the rule for a request type.
func (r *RoutingRuleRepository) Upsert(ctx context.Context, rule *models.RoutingRule) error {
	rule.UpdatedAt = time.Now().UTC()
	const query = `INSERT INTO routing_rules (request_type, destination, updated_at)
	VALUES (:request_type, :destination, :updated_at)
	ON CONFLICT (request_type)
	DO UPDATE SET destination = EXCLUDED.destination, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return fmt.Errorf("upsert routing rule: %w", err)
	}
	return nil
}
