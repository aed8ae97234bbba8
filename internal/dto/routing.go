package dto

import "github.com/noah-isme/uni-portal-api/internal/models"

// UpdateRoutingRuleRequest changes the destination of a request type.
type UpdateRoutingRuleRequest struct {
	Destination models.Destination `json:"destination"`
}

// UpsertDeadlineConfigRequest creates or updates a deadline window.
type UpsertDeadlineConfigRequest struct {
	RequestType  string `json:"request_type" validate:"required"`
	DeadlineDays int    `json:"deadline_days" validate:"required,gt=0"`
}
