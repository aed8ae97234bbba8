package service

import (
	"context"
	"database/sql"
	"errors"

	"github.com/noah-isme/uni-portal-api/internal/models"
	appErrors "github.com/noah-isme/uni-portal-api/pkg/errors"
)

type directoryStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	SecretaryForDepartment(ctx context.Context, department string) (*models.User, error)
}

type enrollmentStore interface {
	Find(ctx context.Context, studentEmail, courseID string) (*models.Enrollment, error)
}

type destinationLookup interface {
	Destination(ctx context.Context, requestType string) (models.Destination, error)
}

// ResolverService computes the concrete current handler for a request:
// a specific instructor or a specific department secretary. Resolution
// is read-only and deterministic for a fixed policy and roster.
type ResolverService struct {
	routing     destinationLookup
	users       directoryStore
	enrollments enrollmentStore
}

// NewResolverService constructs the resolver.
func NewResolverService(routing destinationLookup, users directoryStore, enrollments enrollmentStore) *ResolverService {
	return &ResolverService{routing: routing, users: users, enrollments: enrollments}
}

// Resolve maps (request type, requester, optional course) to a handler
// using the routing policy table.
func (s *ResolverService) Resolve(ctx context.Context, requestType, requesterEmail string, courseID *string) (models.Handler, error) {
	destination, err := s.routing.Destination(ctx, requestType)
	if err != nil {
		return models.Handler{}, err
	}

	switch destination {
	case models.DestinationInstructor:
		if courseID == nil || *courseID == "" {
			return models.Handler{}, appErrors.ErrMissingCourseReference
		}
		return s.ResolveInstructor(ctx, requesterEmail, *courseID)
	default:
		return s.ResolveSecretary(ctx, requesterEmail)
	}
}

// ResolveSecretary finds the secretary of the requester's department.
func (s *ResolverService) ResolveSecretary(ctx context.Context, requesterEmail string) (models.Handler, error) {
	requester, err := s.users.FindByEmail(ctx, requesterEmail)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Handler{}, appErrors.Clone(appErrors.ErrNotFound, "requester not found")
		}
		return models.Handler{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load requester")
	}
	if requester.Department == nil || *requester.Department == "" {
		return models.Handler{}, appErrors.ErrNoSecretaryForDepartment
	}
	secretary, err := s.users.SecretaryForDepartment(ctx, *requester.Department)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Handler{}, appErrors.ErrNoSecretaryForDepartment
		}
		return models.Handler{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load secretary")
	}
	return models.Handler{Kind: models.HandlerKindSecretary, Email: secretary.Email}, nil
}

// ResolveInstructor finds the instructor of record for the requester's
// enrollment in the given course.
func (s *ResolverService) ResolveInstructor(ctx context.Context, requesterEmail, courseID string) (models.Handler, error) {
	enrollment, err := s.enrollments.Find(ctx, requesterEmail, courseID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return models.Handler{}, appErrors.ErrNoInstructorAssigned
		}
		return models.Handler{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load enrollment")
	}
	if enrollment.InstructorEmail == "" {
		return models.Handler{}, appErrors.ErrNoInstructorAssigned
	}
	return models.Handler{Kind: models.HandlerKindInstructor, Email: enrollment.InstructorEmail}, nil
}
