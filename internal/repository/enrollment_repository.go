package repository

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-portal-api/internal/models"
)

// EnrollmentRepository reads the enrollment roster. The resolver uses it
// to find the instructor of record for a (student, course) pair.
type EnrollmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentRepository constructs the repository.
func NewEnrollmentRepository(db *sqlx.DB) *EnrollmentRepository {
	return &EnrollmentRepository{db: db}
}

// Find fetches the active enrollment for a student in a course.
// sql.ErrNoRows means the student is not enrolled.
func (r *EnrollmentRepository) Find(ctx context.Context, studentEmail, courseID string) (*models.Enrollment, error) {
	const query = `SELECT id, student_email, course_id, instructor_email, status, created_at
	FROM enrollments WHERE student_email = $1 AND course_id = $2 AND status = $3`
	var enrollment models.Enrollment
	if err := r.db.GetContext(ctx, &enrollment, query, studentEmail, courseID, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// ListByStudent returns a student's active enrollments.
func (r *EnrollmentRepository) ListByStudent(ctx context.Context, studentEmail string) ([]models.Enrollment, error) {
	const query = `SELECT id, student_email, course_id, instructor_email, status, created_at
	FROM enrollments WHERE student_email = $1 AND status = $2 ORDER BY course_id ASC`
	var enrollments []models.Enrollment
	if err := r.db.SelectContext(ctx, &enrollments, query, studentEmail, models.EnrollmentStatusActive); err != nil {
		return nil, err
	}
	return enrollments, nil
}
