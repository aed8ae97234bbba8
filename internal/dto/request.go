package dto

import (
	"encoding/json"
)

// GradeAppealDetails carries the fields a grade appeal must name.
type GradeAppealDetails struct {
	CourseID       string `json:"course_id"`
	GradeComponent string `json:"grade_component"`
}

// ScheduleChangeDetails carries the candidate instructors for a
// schedule change.
type ScheduleChangeDetails struct {
	CandidateInstructors []string `json:"candidate_instructors"`
}

// CreateRequestRequest is the payload for submitting a new request.
// Each request type carries its own typed details block; the service
// checks that the block matching the type is present and complete.
type CreateRequestRequest struct {
	Type           string                 `json:"type"`
	Title          string                 `json:"title"`
	Details        string                 `json:"details"`
	CourseID       *string                `json:"course_id,omitempty"`
	Files          json.RawMessage        `json:"files,omitempty"`
	GradeAppeal    *GradeAppealDetails    `json:"grade_appeal,omitempty"`
	ScheduleChange *ScheduleChangeDetails `json:"schedule_change,omitempty"`
}

// EditRequestRequest updates the free-text details of a request.
type EditRequestRequest struct {
	Details string `json:"details"`
}

// TransferRequestRequest reassigns the current handler. A nil
// NewCourseID escalates to the requester's department secretary;
// otherwise the instructor for (requester, NewCourseID) takes over.
type TransferRequestRequest struct {
	NewCourseID *string `json:"new_course_id"`
	Reason      string  `json:"reason"`
}

// SubmitResponseRequest records a staff reply to a request.
type SubmitResponseRequest struct {
	RequestID    string          `json:"request_id"`
	ResponseText string          `json:"response_text"`
	Files        json.RawMessage `json:"files,omitempty"`
}

// UpdateStatusRequest moves a request to a new lifecycle stage.
type UpdateStatusRequest struct {
	RequestID string `json:"request_id"`
	Status    string `json:"status"`
	Note      string `json:"note,omitempty"`
}
