package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-portal-api/internal/dto"
	"github.com/noah-isme/uni-portal-api/internal/models"
	appErrors "github.com/noah-isme/uni-portal-api/pkg/errors"
	"github.com/noah-isme/uni-portal-api/pkg/export"
)

type requestStore interface {
	Create(ctx context.Context, request *models.Request, created models.TimelineEvent) error
	GetByID(ctx context.Context, id string) (*models.Request, error)
	List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error)
	LoadTimelines(ctx context.Context, requests []models.Request) error
	Mutate(ctx context.Context, id string, fn func(tx *sqlx.Tx, request *models.Request) error) error
	AppendEventTx(ctx context.Context, tx *sqlx.Tx, event models.TimelineEvent) error
	UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.RequestStatus) error
	UpdateDetailsTx(ctx context.Context, tx *sqlx.Tx, id, details string) error
	UpdateHandlerTx(ctx context.Context, tx *sqlx.Tx, id string, handler models.Handler, courseID *string) error
	Delete(ctx context.Context, id string) error
}

type responseStore interface {
	InsertTx(ctx context.Context, tx *sqlx.Tx, response *models.Response) error
	ListByRequest(ctx context.Context, requestID string) ([]models.Response, error)
}

type handlerResolver interface {
	Resolve(ctx context.Context, requestType, requesterEmail string, courseID *string) (models.Handler, error)
	ResolveSecretary(ctx context.Context, requesterEmail string) (models.Handler, error)
	ResolveInstructor(ctx context.Context, requesterEmail, courseID string) (models.Handler, error)
}

type lifecycleNotifier interface {
	NotifyCreated(ctx context.Context, request *models.Request) error
	NotifyResponse(ctx context.Context, request *models.Request, responder string) error
	NotifyStatusChange(ctx context.Context, request *models.Request, from, to models.RequestStatus) error
	NotifyTransfer(ctx context.Context, request *models.Request, from, to models.Handler, reason string) error
}

type deadlineAnnotator interface {
	Annotate(ctx context.Context, requests []models.Request) error
	AnnotateOne(ctx context.Context, request *models.Request) error
}

// RequestService owns the request lifecycle: it decides which
// transitions are legal, resolves the responsible handler, appends the
// audit trail, and triggers the notification fan-out. Every mutation
// runs its legality check and its writes inside one row-locked
// transaction; fan-out runs after commit and can only degrade, never
// roll the mutation back.
type RequestService struct {
	repo      requestStore
	responses responseStore
	resolver  handlerResolver
	notifier  lifecycleNotifier
	deadlines deadlineAnnotator
	metrics   *MetricsService
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger
}

// NewRequestService constructs the service. metrics may be nil.
func NewRequestService(
	repo requestStore,
	responses responseStore,
	resolver handlerResolver,
	notifier lifecycleNotifier,
	deadlines deadlineAnnotator,
	metrics *MetricsService,
	logger *zap.Logger,
) *RequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RequestService{
		repo:      repo,
		responses: responses,
		resolver:  resolver,
		notifier:  notifier,
		deadlines: deadlines,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

// Create validates the typed payload, resolves the initial handler, and
// persists the request with its first timeline event. Nothing is stored
// when validation or resolution fails.
func (s *RequestService) Create(ctx context.Context, req dto.CreateRequestRequest, requesterEmail string) (*models.Request, error) {
	if requesterEmail == "" {
		return nil, appErrors.ErrUnauthorized
	}
	if strings.TrimSpace(req.Type) == "" || strings.TrimSpace(req.Details) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "Missing required fields: type and details are required")
	}

	courseID := req.CourseID
	switch req.Type {
	case models.RequestTypeGradeAppeal:
		if req.GradeAppeal == nil || req.GradeAppeal.CourseID == "" || req.GradeAppeal.GradeComponent == "" {
			return nil, appErrors.Clone(appErrors.ErrValidation, "grade appeals must name a course and a grade component")
		}
		courseID = &req.GradeAppeal.CourseID
	case models.RequestTypeScheduleChange:
		if req.ScheduleChange == nil || len(req.ScheduleChange.CandidateInstructors) == 0 {
			return nil, appErrors.Clone(appErrors.ErrValidation, "schedule changes must list at least one candidate instructor")
		}
	}

	handler, err := s.resolver.Resolve(ctx, req.Type, requesterEmail, courseID)
	if err != nil {
		return nil, err
	}

	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = req.Type
	}
	request := &models.Request{
		Type:           req.Type,
		Title:          title,
		RequesterEmail: requesterEmail,
		CourseID:       courseID,
		Details:        req.Details,
		Attachments:    req.Files,
		Status:         models.RequestStatusPending,
	}
	request.SetHandler(handler)

	created, err := models.NewTimelineEvent(models.EventCreated, models.CreatedPayload{
		Requester: requesterEmail,
		Handler:   handler,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to build timeline event")
	}

	if err := s.repo.Create(ctx, request, created); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.metrics.RecordLifecycleOperation("create")
	s.fanout(func() error { return s.notifier.NotifyCreated(ctx, request) })
	return request, nil
}

// Respond records a staff reply. Legal while the request is pending or
// awaiting edits; the reply, both timeline events, and the status
// change commit atomically.
func (s *RequestService) Respond(ctx context.Context, req dto.SubmitResponseRequest, responderEmail string) (*models.Request, error) {
	if req.RequestID == "" || strings.TrimSpace(req.ResponseText) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request_id and response_text are required")
	}

	var updated *models.Request
	err := s.repo.Mutate(ctx, req.RequestID, func(tx *sqlx.Tx, request *models.Request) error {
		if request.Status != models.RequestStatusPending && request.Status != models.RequestStatusRequireEditing {
			return appErrors.Clone(appErrors.ErrIllegalTransition, "request cannot accept a response in its current status")
		}

		response := &models.Response{
			RequestID:    request.ID,
			AuthorEmail:  responderEmail,
			ResponseText: req.ResponseText,
			Attachments:  req.Files,
		}
		if err := s.responses.InsertTx(ctx, tx, response); err != nil {
			return err
		}

		from := request.Status
		seq := len(request.Timeline)
		if err := s.appendTx(ctx, tx, request, seq+1, models.EventResponseAdded, models.ResponseAddedPayload{
			Responder: responderEmail,
			Text:      req.ResponseText,
		}); err != nil {
			return err
		}
		if err := s.appendTx(ctx, tx, request, seq+2, models.EventStatusChanged, models.StatusChangedPayload{
			From: from,
			To:   models.RequestStatusResponded,
		}); err != nil {
			return err
		}
		if err := s.repo.UpdateStatusTx(ctx, tx, request.ID, models.RequestStatusResponded); err != nil {
			return err
		}
		request.Status = models.RequestStatusResponded
		updated = request
		return nil
	})
	if err != nil {
		return nil, s.mapMutateError(err, "failed to record response")
	}

	s.metrics.RecordLifecycleOperation("respond")
	s.fanout(func() error { return s.notifier.NotifyResponse(ctx, updated, responderEmail) })
	return updated, nil
}

// Edit lets the requester rewrite the details while the request is
// still pending or flagged for editing. The status does not change and
// no notifications are produced.
func (s *RequestService) Edit(ctx context.Context, id string, req dto.EditRequestRequest, actorEmail string) (*models.Request, error) {
	if strings.TrimSpace(req.Details) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "details are required")
	}

	var updated *models.Request
	err := s.repo.Mutate(ctx, id, func(tx *sqlx.Tx, request *models.Request) error {
		if request.RequesterEmail != actorEmail {
			return appErrors.Clone(appErrors.ErrNotEditable, "only the requester can edit a request")
		}
		if request.Status != models.RequestStatusPending && request.Status != models.RequestStatusRequireEditing {
			return appErrors.ErrNotEditable
		}
		if err := s.repo.UpdateDetailsTx(ctx, tx, request.ID, req.Details); err != nil {
			return err
		}
		if err := s.appendTx(ctx, tx, request, len(request.Timeline)+1, models.EventEdited, models.EditedPayload{
			NewDetails: req.Details,
		}); err != nil {
			return err
		}
		request.Details = req.Details
		updated = request
		return nil
	})
	if err != nil {
		return nil, s.mapMutateError(err, "failed to edit request")
	}
	s.metrics.RecordLifecycleOperation("edit")
	return updated, nil
}

// Transfer reassigns the current handler. A nil course escalates to the
// requester's department secretary; otherwise the instructor for the
// requester's enrollment in the new course takes over. Resolution
// failures roll everything back, leaving the handler unchanged.
func (s *RequestService) Transfer(ctx context.Context, id string, req dto.TransferRequestRequest, actorEmail string) (*models.Request, error) {
	if strings.TrimSpace(req.Reason) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "a transfer reason is required")
	}

	var updated *models.Request
	var from, to models.Handler
	err := s.repo.Mutate(ctx, id, func(tx *sqlx.Tx, request *models.Request) error {
		if request.Status == models.RequestStatusClosed {
			return appErrors.Clone(appErrors.ErrIllegalTransition, "closed requests cannot be transferred")
		}

		from = request.Handler()
		var err error
		courseID := request.CourseID
		if req.NewCourseID == nil || *req.NewCourseID == "" {
			to, err = s.resolver.ResolveSecretary(ctx, request.RequesterEmail)
		} else {
			to, err = s.resolver.ResolveInstructor(ctx, request.RequesterEmail, *req.NewCourseID)
			courseID = req.NewCourseID
		}
		if err != nil {
			return err
		}

		if err := s.repo.UpdateHandlerTx(ctx, tx, request.ID, to, courseID); err != nil {
			return err
		}
		if err := s.appendTx(ctx, tx, request, len(request.Timeline)+1, models.EventTransferred, models.TransferredPayload{
			FromHandler: from,
			ToHandler:   to,
			Reason:      req.Reason,
		}); err != nil {
			return err
		}
		request.SetHandler(to)
		request.CourseID = courseID
		updated = request
		return nil
	})
	if err != nil {
		return nil, s.mapMutateError(err, "failed to transfer request")
	}

	s.metrics.RecordLifecycleOperation("transfer")
	s.fanout(func() error { return s.notifier.NotifyTransfer(ctx, updated, from, to, req.Reason) })
	return updated, nil
}

// UpdateStatus moves a request to a new lifecycle stage; staff use it
// to flag requests for editing or close them. Closing is reserved for
// secretaries and administrators.
func (s *RequestService) UpdateStatus(ctx context.Context, req dto.UpdateStatusRequest, actorEmail string, actorRole models.UserRole) (*models.Request, error) {
	if req.RequestID == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "request_id is required")
	}
	to := models.RequestStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	switch to {
	case models.RequestStatusResponded, models.RequestStatusRequireEditing, models.RequestStatusClosed:
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "status must be responded, require_editing, or closed")
	}
	if to == models.RequestStatusClosed && actorRole != models.RoleSecretary && actorRole != models.RoleAdmin {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only a secretary or administrator can close a request")
	}

	var updated *models.Request
	var from models.RequestStatus
	err := s.repo.Mutate(ctx, req.RequestID, func(tx *sqlx.Tx, request *models.Request) error {
		from = request.Status
		if !from.CanTransitionTo(to) {
			return appErrors.Clone(appErrors.ErrIllegalTransition,
				fmt.Sprintf("cannot move a %s request to %s", from, to))
		}
		if err := s.repo.UpdateStatusTx(ctx, tx, request.ID, to); err != nil {
			return err
		}
		if err := s.appendTx(ctx, tx, request, len(request.Timeline)+1, models.EventStatusChanged, models.StatusChangedPayload{
			From: from,
			To:   to,
		}); err != nil {
			return err
		}
		request.Status = to
		updated = request
		return nil
	})
	if err != nil {
		return nil, s.mapMutateError(err, "failed to update request status")
	}

	s.metrics.RecordLifecycleOperation("update_status")
	s.fanout(func() error { return s.notifier.NotifyStatusChange(ctx, updated, from, to) })
	return updated, nil
}

// Delete removes a request outright, the only hard delete in the model.
// Legal only while the request is still pending and only for the
// requester or an administrator.
func (s *RequestService) Delete(ctx context.Context, id, actorEmail string, actorRole models.UserRole) error {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if actorRole != models.RoleAdmin && request.RequesterEmail != actorEmail {
		return appErrors.Clone(appErrors.ErrForbidden, "only the requester can delete a request")
	}
	if request.Status != models.RequestStatusPending {
		return appErrors.ErrNotDeletable
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Another writer moved it past PENDING between check and delete.
			return appErrors.ErrNotDeletable
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete request")
	}
	s.metrics.RecordLifecycleOperation("delete")
	return nil
}

// Get returns a single request with its timeline and expiry annotation.
func (s *RequestService) Get(ctx context.Context, id string) (*models.Request, error) {
	request, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	if err := s.deadlines.AnnotateOne(ctx, request); err != nil {
		return nil, err
	}
	return request, nil
}

// ListForStudent returns a student's requests with timelines and expiry
// annotations.
func (s *RequestService) ListForStudent(ctx context.Context, email string) ([]models.Request, error) {
	requests, err := s.repo.List(ctx, models.RequestFilter{RequesterEmail: email})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	if err := s.repo.LoadTimelines(ctx, requests); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timelines")
	}
	if err := s.deadlines.Annotate(ctx, requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListForProfessor returns requests currently assigned to an instructor.
func (s *RequestService) ListForProfessor(ctx context.Context, email string) ([]models.Request, error) {
	requests, err := s.repo.List(ctx, models.RequestFilter{
		HandlerEmail: email,
		HandlerKind:  models.HandlerKindInstructor,
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	if err := s.deadlines.Annotate(ctx, requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListTransferQueue returns the open requests currently owned by a
// department secretary.
func (s *RequestService) ListTransferQueue(ctx context.Context, secretaryEmail string) ([]models.Request, error) {
	requests, err := s.repo.List(ctx, models.RequestFilter{
		HandlerEmail: secretaryEmail,
		HandlerKind:  models.HandlerKindSecretary,
		Status: []models.RequestStatus{
			models.RequestStatusPending,
			models.RequestStatusResponded,
			models.RequestStatusRequireEditing,
		},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	if err := s.deadlines.Annotate(ctx, requests); err != nil {
		return nil, err
	}
	return requests, nil
}

// ListResponses returns the replies recorded against a request.
func (s *RequestService) ListResponses(ctx context.Context, requestID string) ([]models.Response, error) {
	responses, err := s.responses.ListByRequest(ctx, requestID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list responses")
	}
	return responses, nil
}

// ExportRegister renders the request register as CSV or PDF for
// administrators.
func (s *RequestService) ExportRegister(ctx context.Context, format string) ([]byte, string, error) {
	requests, err := s.repo.List(ctx, models.RequestFilter{Limit: 200})
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	if err := s.deadlines.Annotate(ctx, requests); err != nil {
		return nil, "", err
	}

	dataset := export.Dataset{
		Headers: []string{"ID", "Type", "Requester", "Status", "Handler", "Created", "Expires"},
	}
	for _, request := range requests {
		expires := ""
		if request.ExpiresAt != nil {
			expires = request.ExpiresAt.Format("2006-01-02")
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"ID":        request.ID,
			"Type":      request.Type,
			"Requester": request.RequesterEmail,
			"Status":    string(request.Status),
			"Handler":   request.HandlerEmail,
			"Created":   request.CreatedAt.Format("2006-01-02"),
			"Expires":   expires,
		})
	}

	switch strings.ToLower(format) {
	case "pdf":
		data, err := s.pdf.Render(dataset, "Request Register")
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
		}
		return data, "requests.pdf", nil
	default:
		data, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
		}
		return data, "requests.csv", nil
	}
}

func (s *RequestService) appendTx(ctx context.Context, tx *sqlx.Tx, request *models.Request, seq int, eventType models.TimelineEventType, payload interface{}) error {
	event, err := models.NewTimelineEvent(eventType, payload)
	if err != nil {
		return err
	}
	event.RequestID = request.ID
	event.Seq = seq
	if err := s.repo.AppendEventTx(ctx, tx, event); err != nil {
		return err
	}
	request.Timeline = append(request.Timeline, event)
	return nil
}

func (s *RequestService) mapMutateError(err error, fallback string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "Request not found")
	}
	var appErr *appErrors.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fallback)
}

// fanout runs a notification step after the mutation committed. A
// delivery failure degrades to a log line; the committed state change
// stands.
func (s *RequestService) fanout(fn func() error) {
	if err := fn(); err != nil {
		s.logger.Warn("notification fan-out failed", zap.Error(err))
	}
}
