package models

import (
	"encoding/json"
	"time"
)

// Response is a staff reply to a request. One request may accumulate
// many; adding one is itself a timeline event.
type Response struct {
	ID           string          `db:"id" json:"id"`
	RequestID    string          `db:"request_id" json:"request_id"`
	AuthorEmail  string          `db:"author_email" json:"author_email"`
	ResponseText string          `db:"response_text" json:"response_text"`
	Attachments  json.RawMessage `db:"attachments" json:"attachments,omitempty"`
	CreatedAt    time.Time       `db:"created_at" json:"created_at"`
}
