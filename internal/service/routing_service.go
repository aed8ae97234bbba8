package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/uni-portal-api/internal/models"
	appErrors "github.com/noah-isme/uni-portal-api/pkg/errors"
)

const routingRulesCacheKey = "routing:rules"

type routingRuleStore interface {
	List(ctx context.Context) ([]models.RoutingRule, error)
	Get(ctx context.Context, requestType string) (*models.RoutingRule, error)
	Upsert(ctx context.Context, rule *models.RoutingRule) error
}

type policyCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// RoutingService owns the request-type routing table. Reads go through
// a cache since the table changes rarely and is consulted on every
// creation and transfer.
type RoutingService struct {
	repo     routingRuleStore
	cache    policyCache
	cacheTTL time.Duration
	metrics  *MetricsService
	logger   *zap.Logger
}

// NewRoutingService constructs the service. cache and metrics may be nil.
func NewRoutingService(repo routingRuleStore, cache policyCache, cacheTTL time.Duration, metrics *MetricsService, logger *zap.Logger) *RoutingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}
	return &RoutingService{repo: repo, cache: cache, cacheTTL: cacheTTL, metrics: metrics, logger: logger}
}

// Destination returns the destination kind for a request type. Types
// with no explicit rule route to models.DefaultDestination.
func (s *RoutingService) Destination(ctx context.Context, requestType string) (models.Destination, error) {
	table, err := s.ruleTable(ctx)
	if err != nil {
		return "", err
	}
	if destination, ok := table[requestType]; ok {
		return destination, nil
	}
	return models.DefaultDestination, nil
}

// List returns all routing rules.
func (s *RoutingService) List(ctx context.Context) ([]models.RoutingRule, error) {
	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list routing rules")
	}
	return rules, nil
}

// Get returns the rule for one request type.
func (s *RoutingService) Get(ctx context.Context, requestType string) (*models.RoutingRule, error) {
	rule, err := s.repo.Get(ctx, requestType)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load routing rule")
	}
	return rule, nil
}

// Update sets the destination for a request type and invalidates the
// cached table.
func (s *RoutingService) Update(ctx context.Context, requestType string, destination models.Destination) (*models.RoutingRule, error) {
	if requestType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request type is required")
	}
	if !destination.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "destination must be 'instructor' or 'secretary'")
	}
	rule := &models.RoutingRule{RequestType: requestType, Destination: destination}
	if err := s.repo.Upsert(ctx, rule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save routing rule")
	}
	if s.cache != nil {
		if err := s.cache.Delete(ctx, routingRulesCacheKey); err != nil {
			s.logger.Warn("failed to invalidate routing rule cache", zap.Error(err))
		}
	}
	return rule, nil
}

func (s *RoutingService) ruleTable(ctx context.Context) (map[string]models.Destination, error) {
	var table map[string]models.Destination
	if s.cache != nil {
		if err := s.cache.Get(ctx, routingRulesCacheKey, &table); err == nil {
			s.metrics.RecordCacheOperation(true)
			return table, nil
		} else if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("routing rule cache read failed", zap.Error(err))
		}
		s.metrics.RecordCacheOperation(false)
	}

	rules, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load routing rules")
	}
	table = make(map[string]models.Destination, len(rules))
	for _, rule := range rules {
		table[rule.RequestType] = rule.Destination
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, routingRulesCacheKey, table, s.cacheTTL); err != nil {
			s.logger.Warn("routing rule cache write failed", zap.Error(err))
		}
	}
	return table, nil
}
