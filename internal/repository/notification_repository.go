package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-portal-api/internal/models"
)

// NotificationRepository persists fan-out notification records.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// InsertBatch stores one row per recipient in a single transaction.
func (r *NotificationRepository) InsertBatch(ctx context.Context, notifications []models.Notification) error {
	if len(notifications) == 0 {
		return nil
	}
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin notification tx: %w", err)
	}
	const query = `INSERT INTO notifications (id, recipient_email, request_id, message, kind, is_read, created_at)
	VALUES (:id, :recipient_email, :request_id, :message, :kind, :is_read, :created_at)`
	for i := range notifications {
		if notifications[i].ID == "" {
			notifications[i].ID = uuid.NewString()
		}
		if notifications[i].CreatedAt.IsZero() {
			notifications[i].CreatedAt = time.Now().UTC()
		}
		if _, err := tx.NamedExecContext(ctx, query, notifications[i]); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notification tx: %w", err)
	}
	return nil
}

// ListByRecipient returns a user's notifications, newest first.
func (r *NotificationRepository) ListByRecipient(ctx context.Context, recipient string) ([]models.Notification, error) {
	const query = `SELECT id, recipient_email, request_id, message, kind, is_read, created_at
	FROM notifications WHERE recipient_email = $1 ORDER BY created_at DESC`
	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, recipient); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// CountUnread returns the number of unread notifications for a user.
func (r *NotificationRepository) CountUnread(ctx context.Context, recipient string) (int, error) {
	const query = `SELECT COUNT(*) FROM notifications WHERE recipient_email = $1 AND is_read = FALSE`
	var count int
	if err := r.db.GetContext(ctx, &count, query, recipient); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

// MarkRead flips is_read for one notification. Scoped to the recipient
// so users cannot acknowledge someone else's notifications.
func (r *NotificationRepository) MarkRead(ctx context.Context, id, recipient string) error {
	const query = `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND recipient_email = $2 AND is_read = FALSE`
	result, err := r.db.ExecContext(ctx, query, id, recipient)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check notification rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// MarkAllRead flips is_read for every unread notification of a user and
// returns how many were updated.
func (r *NotificationRepository) MarkAllRead(ctx context.Context, recipient string) (int64, error) {
	const query = `UPDATE notifications SET is_read = TRUE WHERE recipient_email = $1 AND is_read = FALSE`
	result, err := r.db.ExecContext(ctx, query, recipient)
	if err != nil {
		return 0, fmt.Errorf("mark all notifications read: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("check notification rows: %w", err)
	}
	return rows, nil
}
