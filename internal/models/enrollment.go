package models

import "time"

// EnrollmentStatus represents the lifecycle of an enrollment.
type EnrollmentStatus string

// Possible enrollment statuses.
const (
	EnrollmentStatusActive  EnrollmentStatus = "ACTIVE"
	EnrollmentStatusDropped EnrollmentStatus = "DROPPED"
)

// Enrollment records a student's registration to a course together with
// the instructor of record for that registration. The handler resolver
// reads it to route instructor-bound requests.
type Enrollment struct {
	ID              string           `db:"id" json:"id"`
	StudentEmail    string           `db:"student_email" json:"student_email"`
	CourseID        string           `db:"course_id" json:"course_id"`
	InstructorEmail string           `db:"instructor_email" json:"instructor_email"`
	Status          EnrollmentStatus `db:"status" json:"status"`
	CreatedAt       time.Time        `db:"created_at" json:"created_at"`
}
