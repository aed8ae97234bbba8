package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// TimelineEventType discriminates timeline event payloads.
type TimelineEventType string

const (
	EventCreated       TimelineEventType = "CREATED"
	EventStatusChanged TimelineEventType = "STATUS_CHANGED"
	EventEdited        TimelineEventType = "EDITED"
	EventResponseAdded TimelineEventType = "RESPONSE_ADDED"
	EventTransferred   TimelineEventType = "TRANSFERRED"
)

// TimelineEvent is one immutable entry in a request's audit trail.
// Rows live in the request_events table keyed (request_id, seq); the
// sequence number is dense and starts at 1, so appends that race lose
// to the primary key instead of overwriting each other.
type TimelineEvent struct {
	RequestID string            `db:"request_id" json:"-"`
	Seq       int               `db:"seq" json:"seq"`
	Type      TimelineEventType `db:"event_type" json:"type"`
	Payload   json.RawMessage   `db:"payload" json:"payload,omitempty"`
	CreatedAt time.Time         `db:"created_at" json:"created_at"`
}

// CreatedPayload records the submission and the initially resolved
// handler.
type CreatedPayload struct {
	Requester string  `json:"requester"`
	Handler   Handler `json:"handler"`
}

// StatusChangedPayload records a lifecycle stage change.
type StatusChangedPayload struct {
	From RequestStatus `json:"from"`
	To   RequestStatus `json:"to"`
}

// EditedPayload records a requester edit.
type EditedPayload struct {
	NewDetails string `json:"new_details"`
}

// ResponseAddedPayload records a staff reply.
type ResponseAddedPayload struct {
	Responder string `json:"responder"`
	Text      string `json:"text"`
}

// TransferredPayload records a handler reassignment.
type TransferredPayload struct {
	FromHandler Handler `json:"from_handler"`
	ToHandler   Handler `json:"to_handler"`
	Reason      string  `json:"reason"`
}

// NewTimelineEvent builds an event with a marshalled payload. A nil
// payload is stored as an empty JSON object.
func NewTimelineEvent(eventType TimelineEventType, payload interface{}) (TimelineEvent, error) {
	raw := json.RawMessage(`{}`)
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return TimelineEvent{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		raw = data
	}
	return TimelineEvent{
		Type:      eventType,
		Payload:   raw,
		CreatedAt: time.Now().UTC(),
	}, nil
}
