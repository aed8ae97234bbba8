package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-portal-api/internal/models"
	appErrors "github.com/noah-isme/uni-portal-api/pkg/errors"
	"github.com/noah-isme/uni-portal-api/pkg/jobs"
	"github.com/noah-isme/uni-portal-api/pkg/mailer"
)

type notificationStore interface {
	InsertBatch(ctx context.Context, notifications []models.Notification) error
	ListByRecipient(ctx context.Context, recipient string) ([]models.Notification, error)
	CountUnread(ctx context.Context, recipient string) (int, error)
	MarkRead(ctx context.Context, id, recipient string) error
	MarkAllRead(ctx context.Context, recipient string) (int64, error)
}

// EmailJob is the payload placed on the mail queue.
type EmailJob struct {
	To      string
	Subject string
	Body    string
}

// NotificationService turns lifecycle events into per-recipient
// notification rows and best-effort emails. It runs after the state
// mutation commits; its failures are logged, never propagated to the
// caller of the mutation.
type NotificationService struct {
	repo         notificationStore
	emailQueue   *jobs.Queue
	emailEnabled bool
	metrics      *MetricsService
	logger       *zap.Logger
}

// NewNotificationService constructs the service. emailQueue may be nil
// when the email channel is disabled; metrics may be nil.
func NewNotificationService(repo notificationStore, emailQueue *jobs.Queue, emailEnabled bool, metrics *MetricsService, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, emailQueue: emailQueue, emailEnabled: emailEnabled, metrics: metrics, logger: logger}
}

// NewEmailQueue wires a worker pool that drains EmailJobs through the
// mailer. Send failures are retried by the queue and ultimately only
// logged.
func NewEmailQueue(m mailer.Mailer, workers, retries int, logger *zap.Logger) *jobs.Queue {
	handler := func(ctx context.Context, job jobs.Job) error {
		payload, ok := job.Payload.(EmailJob)
		if !ok {
			return fmt.Errorf("unexpected email payload type %T", job.Payload)
		}
		return m.Send(ctx, mailer.Message{
			ToEmail: payload.To,
			Subject: payload.Subject,
			Body:    payload.Body,
		})
	}
	return jobs.NewQueue("email", handler, jobs.QueueConfig{
		Workers:    workers,
		MaxRetries: retries,
		Logger:     logger,
	})
}

// NotifyCreated notifies the resolved handler of a new request and
// sends a confirmation email to the requester.
func (s *NotificationService) NotifyCreated(ctx context.Context, request *models.Request) error {
	message := fmt.Sprintf("New request %q from %s is awaiting your action.", request.Title, request.RequesterEmail)
	notifications := []models.Notification{
		s.build(request, request.HandlerEmail, models.NotificationKindStatusChange, message),
	}
	if err := s.persist(ctx, notifications); err != nil {
		return err
	}
	s.sendEmail(request.HandlerEmail, "New request assigned to you", message)
	s.sendEmail(request.RequesterEmail, "Request received",
		fmt.Sprintf("Your request %q was submitted and assigned for handling.", request.Title))
	return nil
}

// NotifyResponse notifies the requester that a reply was added.
func (s *NotificationService) NotifyResponse(ctx context.Context, request *models.Request, responder string) error {
	message := fmt.Sprintf("Your request %q has received a response from %s.", request.Title, responder)
	notifications := []models.Notification{
		s.build(request, request.RequesterEmail, models.NotificationKindResponse, message),
	}
	if err := s.persist(ctx, notifications); err != nil {
		return err
	}
	s.sendEmail(request.RequesterEmail, "Response to your request", message)
	return nil
}

// NotifyStatusChange notifies the requester of a lifecycle change.
func (s *NotificationService) NotifyStatusChange(ctx context.Context, request *models.Request, from, to models.RequestStatus) error {
	message := fmt.Sprintf("The status of your request %q changed from %s to %s.", request.Title, from, to)
	notifications := []models.Notification{
		s.build(request, request.RequesterEmail, models.NotificationKindStatusChange, message),
	}
	if err := s.persist(ctx, notifications); err != nil {
		return err
	}
	s.sendEmail(request.RequesterEmail, "Request status updated", message)
	return nil
}

// NotifyTransfer notifies the requester and the incoming handler of a
// reassignment. The reason travels with both messages.
func (s *NotificationService) NotifyTransfer(ctx context.Context, request *models.Request, from, to models.Handler, reason string) error {
	requesterMsg := fmt.Sprintf("Your request %q was transferred to %s. Reason: %s", request.Title, to.Email, reason)
	handlerMsg := fmt.Sprintf("Request %q from %s was transferred to you by %s. Reason: %s",
		request.Title, request.RequesterEmail, from.Email, reason)
	notifications := []models.Notification{
		s.build(request, request.RequesterEmail, models.NotificationKindTransfer, requesterMsg),
		s.build(request, to.Email, models.NotificationKindTransfer, handlerMsg),
	}
	if err := s.persist(ctx, notifications); err != nil {
		return err
	}
	s.sendEmail(request.RequesterEmail, "Request transferred", requesterMsg)
	s.sendEmail(to.Email, "Request transferred to you", handlerMsg)
	return nil
}

// ListForUser returns a user's notifications with the unread count.
func (s *NotificationService) ListForUser(ctx context.Context, email string) ([]models.Notification, int, error) {
	notifications, err := s.repo.ListByRecipient(ctx, email)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	unread, err := s.repo.CountUnread(ctx, email)
	if err != nil {
		return nil, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count notifications")
	}
	return notifications, unread, nil
}

// MarkRead acknowledges one notification for its recipient.
func (s *NotificationService) MarkRead(ctx context.Context, id, email string) error {
	if err := s.repo.MarkRead(ctx, id, email); err != nil {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found or already read")
	}
	return nil
}

// MarkAllRead acknowledges every unread notification for a user.
func (s *NotificationService) MarkAllRead(ctx context.Context, email string) (int64, error) {
	updated, err := s.repo.MarkAllRead(ctx, email)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notifications read")
	}
	return updated, nil
}

// persist stores the notification rows and counts each one toward the
// fan-out metric.
func (s *NotificationService) persist(ctx context.Context, notifications []models.Notification) error {
	if err := s.repo.InsertBatch(ctx, notifications); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record notifications")
	}
	for _, notification := range notifications {
		s.metrics.RecordFanout(string(notification.Kind))
	}
	return nil
}

func (s *NotificationService) build(request *models.Request, recipient string, kind models.NotificationKind, message string) models.Notification {
	return models.Notification{
		RecipientEmail: recipient,
		RequestID:      request.ID,
		Message:        message,
		Kind:           kind,
	}
}

func (s *NotificationService) sendEmail(to, subject, body string) {
	if !s.emailEnabled || s.emailQueue == nil || to == "" {
		return
	}
	job := jobs.Job{
		ID:      uuid.NewString(),
		Type:    "notification_email",
		Payload: EmailJob{To: to, Subject: subject, Body: body},
	}
	if err := s.emailQueue.Enqueue(job); err != nil {
		s.logger.Warn("failed to enqueue notification email",
			zap.String("to", to),
			zap.Error(err),
		)
	}
}
