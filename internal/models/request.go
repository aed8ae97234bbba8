package models

import (
	"encoding/json"
	"time"
)

// Well-known request types. The routing table is keyed by these names;
// types without an explicit rule fall back to DefaultDestination.
const (
	RequestTypeGradeAppeal    = "Grade Appeal Request"
	RequestTypeScheduleChange = "Schedule Change Request"
	RequestTypeGeneral        = "General Request"
)

// RequestStatus captures the lifecycle stage of a request. Ownership is
// tracked separately in the handler fields: a transfer changes who is
// responsible without changing the status.
type RequestStatus string

const (
	RequestStatusPending        RequestStatus = "PENDING"
	RequestStatusResponded      RequestStatus = "RESPONDED"
	RequestStatusRequireEditing RequestStatus = "REQUIRE_EDITING"
	RequestStatusClosed         RequestStatus = "CLOSED"
)

// CanTransitionTo reports whether a status change is legal.
// pending -> {responded, require_editing, closed}; responded -> closed;
// closed is terminal.
func (s RequestStatus) CanTransitionTo(to RequestStatus) bool {
	switch s {
	case RequestStatusPending:
		return to == RequestStatusResponded || to == RequestStatusRequireEditing || to == RequestStatusClosed
	case RequestStatusRequireEditing:
		return to == RequestStatusResponded || to == RequestStatusClosed
	case RequestStatusResponded:
		return to == RequestStatusClosed
	default:
		return false
	}
}

// HandlerKind identifies the class of party owning a request.
type HandlerKind string

const (
	HandlerKindInstructor HandlerKind = "INSTRUCTOR"
	HandlerKindSecretary  HandlerKind = "SECRETARY"
	HandlerKindUnassigned HandlerKind = "UNASSIGNED"
)

// Handler is the single party currently responsible for a request.
type Handler struct {
	Kind  HandlerKind `json:"kind"`
	Email string      `json:"email"`
}

// Request is a unit of work raised by a student.
type Request struct {
	ID             string          `db:"id" json:"id"`
	Type           string          `db:"type" json:"type"`
	Title          string          `db:"title" json:"title"`
	RequesterEmail string          `db:"requester_email" json:"requester_email"`
	CourseID       *string         `db:"course_id" json:"course_id,omitempty"`
	Details        string          `db:"details" json:"details"`
	Attachments    json.RawMessage `db:"attachments" json:"attachments,omitempty"`
	Status         RequestStatus   `db:"status" json:"status"`
	HandlerKind    HandlerKind     `db:"handler_kind" json:"-"`
	HandlerEmail   string          `db:"handler_email" json:"-"`
	CreatedAt      time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `db:"updated_at" json:"updated_at"`

	Timeline []TimelineEvent `db:"-" json:"timeline,omitempty"`

	// Deadline annotation, computed on read paths only.
	ExpiresAt *time.Time `db:"-" json:"expires_at,omitempty"`
	Expired   bool       `db:"-" json:"expired"`
}

// Handler returns the current handler pair.
func (r *Request) Handler() Handler {
	return Handler{Kind: r.HandlerKind, Email: r.HandlerEmail}
}

// SetHandler updates the handler columns from a resolved pair.
func (r *Request) SetHandler(h Handler) {
	r.HandlerKind = h.Kind
	r.HandlerEmail = h.Email
}

// RequestFilter constrains request listing queries.
type RequestFilter struct {
	RequesterEmail string
	HandlerEmail   string
	HandlerKind    HandlerKind
	Status         []RequestStatus
	Type           string
	Limit          int
	Offset         int
}
