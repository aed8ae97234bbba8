package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-portal-api/internal/models"
	appErrors "github.com/noah-isme/uni-portal-api/pkg/errors"
)

type stubRuleStore struct {
	rules     []models.RoutingRule
	listCalls int
	upserted  []models.RoutingRule
}

func (s *stubRuleStore) List(ctx context.Context) ([]models.RoutingRule, error) {
	s.listCalls++
	return s.rules, nil
}

func (s *stubRuleStore) Get(ctx context.Context, requestType string) (*models.RoutingRule, error) {
	for i := range s.rules {
		if s.rules[i].RequestType == requestType {
			return &s.rules[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *stubRuleStore) Upsert(ctx context.Context, rule *models.RoutingRule) error {
	s.upserted = append(s.upserted, *rule)
	return nil
}

type stubPolicyCache struct {
	entries map[string][]byte
	deletes []string
}

func newStubPolicyCache() *stubPolicyCache {
	return &stubPolicyCache{entries: make(map[string][]byte)}
}

func (s *stubPolicyCache) Get(ctx context.Context, key string, dest interface{}) error {
	data, ok := s.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(data, dest)
}

func (s *stubPolicyCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.entries[key] = data
	return nil
}

func (s *stubPolicyCache) Delete(ctx context.Context, key string) error {
	delete(s.entries, key)
	s.deletes = append(s.deletes, key)
	return nil
}

func TestRoutingDestinationUsesExplicitRule(t *testing.T) {
	repo := &stubRuleStore{rules: []models.RoutingRule{
		{RequestType: models.RequestTypeGradeAppeal, Destination: models.DestinationInstructor},
	}}
	svc := NewRoutingService(repo, nil, time.Minute, nil, zap.NewNop())

	destination, err := svc.Destination(context.Background(), models.RequestTypeGradeAppeal)
	require.NoError(t, err)
	assert.Equal(t, models.DestinationInstructor, destination)
}

func TestRoutingDestinationDefaultsToSecretary(t *testing.T) {
	svc := NewRoutingService(&stubRuleStore{}, nil, time.Minute, nil, zap.NewNop())

	destination, err := svc.Destination(context.Background(), "Brand New Type")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultDestination, destination)
	assert.Equal(t, models.DestinationSecretary, destination)
}

func TestRoutingDestinationCachesRuleTable(t *testing.T) {
	repo := &stubRuleStore{rules: []models.RoutingRule{
		{RequestType: models.RequestTypeGradeAppeal, Destination: models.DestinationInstructor},
	}}
	cache := newStubPolicyCache()
	svc := NewRoutingService(repo, cache, time.Minute, nil, zap.NewNop())

	_, err := svc.Destination(context.Background(), models.RequestTypeGradeAppeal)
	require.NoError(t, err)
	_, err = svc.Destination(context.Background(), models.RequestTypeGeneral)
	require.NoError(t, err)

	assert.Equal(t, 1, repo.listCalls)
}

func TestRoutingUpdateValidatesAndInvalidatesCache(t *testing.T) {
	repo := &stubRuleStore{}
	cache := newStubPolicyCache()
	svc := NewRoutingService(repo, cache, time.Minute, nil, zap.NewNop())

	_, err := svc.Update(context.Background(), models.RequestTypeGeneral, "nowhere")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, repo.upserted)

	rule, err := svc.Update(context.Background(), models.RequestTypeGeneral, models.DestinationInstructor)
	require.NoError(t, err)
	assert.Equal(t, models.DestinationInstructor, rule.Destination)
	assert.Equal(t, []string{routingRulesCacheKey}, cache.deletes)
}
