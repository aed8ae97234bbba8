package models

import "time"

// NotificationKind categorises why a notification was produced.
type NotificationKind string

const (
	NotificationKindStatusChange NotificationKind = "status_change"
	NotificationKindTransfer     NotificationKind = "transfer"
	NotificationKindResponse     NotificationKind = "response"
)

// Notification is one recipient-specific record produced by the fan-out.
// It is only ever mutated by the read-marking operation.
type Notification struct {
	ID             string           `db:"id" json:"id"`
	RecipientEmail string           `db:"recipient_email" json:"recipient_email"`
	RequestID      string           `db:"request_id" json:"request_id"`
	Message        string           `db:"message" json:"message"`
	Kind           NotificationKind `db:"kind" json:"kind"`
	IsRead         bool             `db:"is_read" json:"is_read"`
	CreatedAt      time.Time        `db:"created_at" json:"created_at"`
}
