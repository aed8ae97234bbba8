package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-portal-api/internal/models"
	appErrors "github.com/noah-isme/uni-portal-api/pkg/errors"
)

type stubNotificationStore struct {
	inserted    []models.Notification
	markReadErr error
}

func (s *stubNotificationStore) InsertBatch(ctx context.Context, notifications []models.Notification) error {
	s.inserted = append(s.inserted, notifications...)
	return nil
}

func (s *stubNotificationStore) ListByRecipient(ctx context.Context, recipient string) ([]models.Notification, error) {
	var out []models.Notification
	for _, notification := range s.inserted {
		if notification.RecipientEmail == recipient {
			out = append(out, notification)
		}
	}
	return out, nil
}

func (s *stubNotificationStore) CountUnread(ctx context.Context, recipient string) (int, error) {
	count := 0
	for _, notification := range s.inserted {
		if notification.RecipientEmail == recipient && !notification.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *stubNotificationStore) MarkRead(ctx context.Context, id, recipient string) error {
	return s.markReadErr
}

func (s *stubNotificationStore) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	return 2, nil
}

func sampleRequest() *models.Request {
	return &models.Request{
		ID:             "req-1",
		Title:          "Grade appeal for CS101",
		RequesterEmail: "student@example.edu",
		HandlerKind:    models.HandlerKindInstructor,
		HandlerEmail:   "prof@example.edu",
	}
}

func TestNotifyCreatedTargetsHandlerOnly(t *testing.T) {
	store := &stubNotificationStore{}
	svc := NewNotificationService(store, nil, false, nil, zap.NewNop())

	require.NoError(t, svc.NotifyCreated(context.Background(), sampleRequest()))
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "prof@example.edu", store.inserted[0].RecipientEmail)
	assert.Equal(t, "req-1", store.inserted[0].RequestID)
}

func TestNotifyResponseTargetsRequester(t *testing.T) {
	store := &stubNotificationStore{}
	svc := NewNotificationService(store, nil, false, nil, zap.NewNop())

	require.NoError(t, svc.NotifyResponse(context.Background(), sampleRequest(), "prof@example.edu"))
	require.Len(t, store.inserted, 1)
	assert.Equal(t, "student@example.edu", store.inserted[0].RecipientEmail)
	assert.Equal(t, models.NotificationKindResponse, store.inserted[0].Kind)
}

func TestNotifyTransferTargetsRequesterAndNewHandler(t *testing.T) {
	store := &stubNotificationStore{}
	svc := NewNotificationService(store, nil, false, nil, zap.NewNop())

	from := models.Handler{Kind: models.HandlerKindInstructor, Email: "prof@example.edu"}
	to := models.Handler{Kind: models.HandlerKindSecretary, Email: "secretary@example.edu"}
	require.NoError(t, svc.NotifyTransfer(context.Background(), sampleRequest(), from, to, "instructor on leave"))

	require.Len(t, store.inserted, 2)
	recipients := []string{store.inserted[0].RecipientEmail, store.inserted[1].RecipientEmail}
	assert.ElementsMatch(t, []string{"student@example.edu", "secretary@example.edu"}, recipients)
	for _, notification := range store.inserted {
		assert.Equal(t, models.NotificationKindTransfer, notification.Kind)
		assert.Contains(t, notification.Message, "instructor on leave")
	}
}

func TestNotifyStatusChangeMentionsBothStatuses(t *testing.T) {
	store := &stubNotificationStore{}
	svc := NewNotificationService(store, nil, false, nil, zap.NewNop())

	require.NoError(t, svc.NotifyStatusChange(context.Background(), sampleRequest(),
		models.RequestStatusResponded, models.RequestStatusClosed))
	require.Len(t, store.inserted, 1)
	assert.Contains(t, store.inserted[0].Message, string(models.RequestStatusResponded))
	assert.Contains(t, store.inserted[0].Message, string(models.RequestStatusClosed))
}

func TestListForUserReportsUnreadCount(t *testing.T) {
	store := &stubNotificationStore{inserted: []models.Notification{
		{RecipientEmail: "student@example.edu", IsRead: false},
		{RecipientEmail: "student@example.edu", IsRead: true},
		{RecipientEmail: "other@example.edu", IsRead: false},
	}}
	svc := NewNotificationService(store, nil, false, nil, zap.NewNop())

	notifications, unread, err := svc.ListForUser(context.Background(), "student@example.edu")
	require.NoError(t, err)
	assert.Len(t, notifications, 2)
	assert.Equal(t, 1, unread)
}

func TestMarkReadMapsFailureToNotFound(t *testing.T) {
	store := &stubNotificationStore{markReadErr: errors.New("no rows")}
	svc := NewNotificationService(store, nil, false, nil, zap.NewNop())

	err := svc.MarkRead(context.Background(), "notif-1", "student@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
