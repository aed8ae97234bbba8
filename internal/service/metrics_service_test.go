package service

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-portal-api/internal/dto"
	"github.com/noah-isme/uni-portal-api/internal/models"
)

func TestLifecycleOperationsIncrementCounters(t *testing.T) {
	metrics := NewMetricsService()
	store := newStubRequestStore()
	resolver := &stubResolver{
		secretary: models.Handler{Kind: models.HandlerKindSecretary, Email: "secretary@example.edu"},
	}
	svc := NewRequestService(store, &stubResponseStore{}, resolver, &stubNotifier{}, stubAnnotator{}, metrics, zap.NewNop())

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Type:    models.RequestTypeGeneral,
		Details: "details",
	}, "student@example.edu")
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.lifecycleTotal.WithLabelValues("create")))

	seedRequest(store, models.RequestStatusResponded)
	_, err = svc.UpdateStatus(context.Background(), dto.UpdateStatusRequest{
		RequestID: "req-seed",
		Status:    "closed",
	}, "secretary@example.edu", models.RoleSecretary)
	require.NoError(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.lifecycleTotal.WithLabelValues("update_status")))

	// Rejected mutations leave the counters alone.
	_, err = svc.UpdateStatus(context.Background(), dto.UpdateStatusRequest{
		RequestID: "req-seed",
		Status:    "responded",
	}, "secretary@example.edu", models.RoleSecretary)
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.lifecycleTotal.WithLabelValues("update_status")))
}

func TestFanoutCountsEachNotificationRow(t *testing.T) {
	metrics := NewMetricsService()
	svc := NewNotificationService(&stubNotificationStore{}, nil, false, metrics, zap.NewNop())

	from := models.Handler{Kind: models.HandlerKindInstructor, Email: "prof@example.edu"}
	to := models.Handler{Kind: models.HandlerKindSecretary, Email: "secretary@example.edu"}
	require.NoError(t, svc.NotifyTransfer(context.Background(), sampleRequest(), from, to, "escalated"))

	assert.Equal(t, 2.0, testutil.ToFloat64(metrics.fanoutTotal.WithLabelValues(string(models.NotificationKindTransfer))))

	require.NoError(t, svc.NotifyCreated(context.Background(), sampleRequest()))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.fanoutTotal.WithLabelValues(string(models.NotificationKindStatusChange))))
}

func TestRoutingCacheLookupsAreCounted(t *testing.T) {
	metrics := NewMetricsService()
	repo := &stubRuleStore{rules: []models.RoutingRule{
		{RequestType: models.RequestTypeGradeAppeal, Destination: models.DestinationInstructor},
	}}
	svc := NewRoutingService(repo, newStubPolicyCache(), time.Minute, metrics, zap.NewNop())

	_, err := svc.Destination(context.Background(), models.RequestTypeGradeAppeal)
	require.NoError(t, err)
	_, err = svc.Destination(context.Background(), models.RequestTypeGeneral)
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheMisses))
	assert.Equal(t, 1.0, testutil.ToFloat64(metrics.cacheHits))
	assert.Equal(t, 0.5, testutil.ToFloat64(metrics.cacheHitRatio))
}
