package service

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/noah-isme/uni-portal-api/internal/models"
	appErrors "github.com/noah-isme/uni-portal-api/pkg/errors"
)

// ExpiresAt returns the submission deadline for a request created at
// createdAt under a window of deadlineDays.
func ExpiresAt(createdAt time.Time, deadlineDays int) time.Time {
	return createdAt.AddDate(0, 0, deadlineDays)
}

// IsExpired reports whether today is past the expiration date.
func IsExpired(today, expiresAt time.Time) bool {
	return today.After(expiresAt)
}

type deadlineConfigStore interface {
	ListActive(ctx context.Context) ([]models.DeadlineConfig, error)
	GetActive(ctx context.Context, requestType string) (*models.DeadlineConfig, error)
	Upsert(ctx context.Context, config *models.DeadlineConfig) error
	Deactivate(ctx context.Context, requestType string) error
}

// DeadlineService owns the per-type deadline windows and annotates
// requests with expiry on read paths. The active config is read at
// evaluation time, so edits apply retroactively to open requests.
type DeadlineService struct {
	repo deadlineConfigStore
	now  func() time.Time
}

// NewDeadlineService constructs the service.
func NewDeadlineService(repo deadlineConfigStore) *DeadlineService {
	return &DeadlineService{repo: repo, now: func() time.Time { return time.Now().UTC() }}
}

// Annotate sets ExpiresAt and Expired on each request. Types without an
// active config never expire.
func (s *DeadlineService) Annotate(ctx context.Context, requests []models.Request) error {
	if len(requests) == 0 {
		return nil
	}
	configs, err := s.repo.ListActive(ctx)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deadline configs")
	}
	windows := make(map[string]int, len(configs))
	for _, config := range configs {
		windows[config.RequestType] = config.DeadlineDays
	}
	today := s.now()
	for i := range requests {
		days, ok := windows[requests[i].Type]
		if !ok {
			requests[i].ExpiresAt = nil
			requests[i].Expired = false
			continue
		}
		expiresAt := ExpiresAt(requests[i].CreatedAt, days)
		requests[i].ExpiresAt = &expiresAt
		requests[i].Expired = IsExpired(today, expiresAt)
	}
	return nil
}

// AnnotateOne sets ExpiresAt and Expired on a single request.
func (s *DeadlineService) AnnotateOne(ctx context.Context, request *models.Request) error {
	config, err := s.repo.GetActive(ctx, request.Type)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			request.ExpiresAt = nil
			request.Expired = false
			return nil
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load deadline config")
	}
	expiresAt := ExpiresAt(request.CreatedAt, config.DeadlineDays)
	request.ExpiresAt = &expiresAt
	request.Expired = IsExpired(s.now(), expiresAt)
	return nil
}

// ListConfigs returns the active deadline windows.
func (s *DeadlineService) ListConfigs(ctx context.Context) ([]models.DeadlineConfig, error) {
	configs, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list deadline configs")
	}
	return configs, nil
}

// UpsertConfig creates or updates a deadline window.
func (s *DeadlineService) UpsertConfig(ctx context.Context, requestType string, deadlineDays int) (*models.DeadlineConfig, error) {
	if requestType == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request_type is required")
	}
	if deadlineDays <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "deadline_days must be a positive number")
	}
	config := &models.DeadlineConfig{RequestType: requestType, DeadlineDays: deadlineDays}
	if err := s.repo.Upsert(ctx, config); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save deadline config")
	}
	return config, nil
}

// DeactivateConfig soft-deletes a deadline window. Requests of the type
// stop expiring; the row stays for historical evaluation.
func (s *DeadlineService) DeactivateConfig(ctx context.Context, requestType string) error {
	if err := s.repo.Deactivate(ctx, requestType); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "no active deadline config for this request type")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to deactivate deadline config")
	}
	return nil
}
