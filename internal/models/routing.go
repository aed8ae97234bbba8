package models

import "time"

// Destination is the kind of handler a request type routes to.
type Destination string

const (
	DestinationInstructor Destination = "instructor"
	DestinationSecretary  Destination = "secretary"
)

// DefaultDestination applies when a request type has no routing rule.
// This is a documented product default, not a fallthrough.
const DefaultDestination = DestinationSecretary

// Valid reports whether the destination is a known kind.
func (d Destination) Valid() bool {
	return d == DestinationInstructor || d == DestinationSecretary
}

// RoutingRule maps a request type to a destination kind. Admin-editable,
// read-mostly.
type RoutingRule struct {
	RequestType string      `db:"request_type" json:"request_type"`
	Destination Destination `db:"destination" json:"destination"`
	UpdatedAt   time.Time   `db:"updated_at" json:"updated_at"`
}

// DeadlineConfig sets the submission window, in days, for a request
// type. Configs are deactivated rather than deleted so historical
// requests stay evaluable.
type DeadlineConfig struct {
	RequestType  string    `db:"request_type" json:"request_type"`
	DeadlineDays int       `db:"deadline_days" json:"deadline_days"`
	Active       bool      `db:"active" json:"active"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
