package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/uni-portal-api/internal/dto"
	"github.com/noah-isme/uni-portal-api/internal/models"
	appErrors "github.com/noah-isme/uni-portal-api/pkg/errors"
)

type stubRequestStore struct {
	requests map[string]*models.Request
	nextID   int

	statusUpdates  int
	detailUpdates  int
	handlerUpdates int
}

func newStubRequestStore() *stubRequestStore {
	return &stubRequestStore{requests: make(map[string]*models.Request)}
}

func (s *stubRequestStore) put(request *models.Request) {
	copied := *request
	copied.Timeline = append([]models.TimelineEvent(nil), request.Timeline...)
	s.requests[copied.ID] = &copied
}

func (s *stubRequestStore) Create(ctx context.Context, request *models.Request, created models.TimelineEvent) error {
	s.nextID++
	request.ID = fmt.Sprintf("req-%d", s.nextID)
	created.RequestID = request.ID
	created.Seq = 1
	request.Timeline = []models.TimelineEvent{created}
	s.put(request)
	return nil
}

func (s *stubRequestStore) GetByID(ctx context.Context, id string) (*models.Request, error) {
	stored, ok := s.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *stored
	copied.Timeline = append([]models.TimelineEvent(nil), stored.Timeline...)
	return &copied, nil
}

func (s *stubRequestStore) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	var out []models.Request
	for _, stored := range s.requests {
		if filter.RequesterEmail != "" && stored.RequesterEmail != filter.RequesterEmail {
			continue
		}
		if filter.HandlerEmail != "" && stored.HandlerEmail != filter.HandlerEmail {
			continue
		}
		if filter.HandlerKind != "" && stored.HandlerKind != filter.HandlerKind {
			continue
		}
		if len(filter.Status) > 0 {
			match := false
			for _, status := range filter.Status {
				if stored.Status == status {
					match = true
				}
			}
			if !match {
				continue
			}
		}
		copied := *stored
		copied.Timeline = nil
		out = append(out, copied)
	}
	return out, nil
}

func (s *stubRequestStore) LoadTimelines(ctx context.Context, requests []models.Request) error {
	for i := range requests {
		if stored, ok := s.requests[requests[i].ID]; ok {
			requests[i].Timeline = append([]models.TimelineEvent(nil), stored.Timeline...)
		}
	}
	return nil
}

func (s *stubRequestStore) Mutate(ctx context.Context, id string, fn func(tx *sqlx.Tx, request *models.Request) error) error {
	stored, ok := s.requests[id]
	if !ok {
		return sql.ErrNoRows
	}
	working := *stored
	working.Timeline = append([]models.TimelineEvent(nil), stored.Timeline...)
	if err := fn(nil, &working); err != nil {
		return err
	}
	s.put(&working)
	return nil
}

func (s *stubRequestStore) AppendEventTx(ctx context.Context, tx *sqlx.Tx, event models.TimelineEvent) error {
	return nil
}

func (s *stubRequestStore) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.RequestStatus) error {
	s.statusUpdates++
	return nil
}

func (s *stubRequestStore) UpdateDetailsTx(ctx context.Context, tx *sqlx.Tx, id, details string) error {
	s.detailUpdates++
	return nil
}

func (s *stubRequestStore) UpdateHandlerTx(ctx context.Context, tx *sqlx.Tx, id string, handler models.Handler, courseID *string) error {
	s.handlerUpdates++
	return nil
}

func (s *stubRequestStore) Delete(ctx context.Context, id string) error {
	stored, ok := s.requests[id]
	if !ok || stored.Status != models.RequestStatusPending {
		return sql.ErrNoRows
	}
	delete(s.requests, id)
	return nil
}

type stubResponseStore struct {
	inserted []models.Response
}

func (s *stubResponseStore) InsertTx(ctx context.Context, tx *sqlx.Tx, response *models.Response) error {
	response.ID = fmt.Sprintf("resp-%d", len(s.inserted)+1)
	s.inserted = append(s.inserted, *response)
	return nil
}

func (s *stubResponseStore) ListByRequest(ctx context.Context, requestID string) ([]models.Response, error) {
	var out []models.Response
	for _, response := range s.inserted {
		if response.RequestID == requestID {
			out = append(out, response)
		}
	}
	return out, nil
}

type stubResolver struct {
	secretary     models.Handler
	instructor    models.Handler
	secretaryErr  error
	instructorErr error
	destination   models.Destination
}

func (s *stubResolver) Resolve(ctx context.Context, requestType, requesterEmail string, courseID *string) (models.Handler, error) {
	if s.destination == models.DestinationInstructor {
		if courseID == nil || *courseID == "" {
			return models.Handler{}, appErrors.ErrMissingCourseReference
		}
		return s.ResolveInstructor(ctx, requesterEmail, *courseID)
	}
	return s.ResolveSecretary(ctx, requesterEmail)
}

func (s *stubResolver) ResolveSecretary(ctx context.Context, requesterEmail string) (models.Handler, error) {
	if s.secretaryErr != nil {
		return models.Handler{}, s.secretaryErr
	}
	return s.secretary, nil
}

func (s *stubResolver) ResolveInstructor(ctx context.Context, requesterEmail, courseID string) (models.Handler, error) {
	if s.instructorErr != nil {
		return models.Handler{}, s.instructorErr
	}
	return s.instructor, nil
}

type transferRecord struct {
	from, to models.Handler
	reason   string
}

type stubNotifier struct {
	created       int
	responses     []string
	statusChanges []models.RequestStatus
	transfers     []transferRecord
}

func (s *stubNotifier) NotifyCreated(ctx context.Context, request *models.Request) error {
	s.created++
	return nil
}

func (s *stubNotifier) NotifyResponse(ctx context.Context, request *models.Request, responder string) error {
	s.responses = append(s.responses, responder)
	return nil
}

func (s *stubNotifier) NotifyStatusChange(ctx context.Context, request *models.Request, from, to models.RequestStatus) error {
	s.statusChanges = append(s.statusChanges, to)
	return nil
}

func (s *stubNotifier) NotifyTransfer(ctx context.Context, request *models.Request, from, to models.Handler, reason string) error {
	s.transfers = append(s.transfers, transferRecord{from: from, to: to, reason: reason})
	return nil
}

type stubAnnotator struct{}

func (stubAnnotator) Annotate(ctx context.Context, requests []models.Request) error { return nil }
func (stubAnnotator) AnnotateOne(ctx context.Context, request *models.Request) error {
	return nil
}

func newTestRequestService() (*RequestService, *stubRequestStore, *stubResponseStore, *stubResolver, *stubNotifier) {
	store := newStubRequestStore()
	responses := &stubResponseStore{}
	resolver := &stubResolver{
		secretary:  models.Handler{Kind: models.HandlerKindSecretary, Email: "secretary@example.edu"},
		instructor: models.Handler{Kind: models.HandlerKindInstructor, Email: "prof@example.edu"},
	}
	notifier := &stubNotifier{}
	svc := NewRequestService(store, responses, resolver, notifier, stubAnnotator{}, nil, zap.NewNop())
	return svc, store, responses, resolver, notifier
}

func seedRequest(store *stubRequestStore, status models.RequestStatus) *models.Request {
	courseID := "CS101"
	request := &models.Request{
		ID:             "req-seed",
		Type:           models.RequestTypeGradeAppeal,
		Title:          "Grade appeal for CS101",
		RequesterEmail: "student@example.edu",
		CourseID:       &courseID,
		Details:        "The midterm grade looks wrong.",
		Status:         status,
		HandlerKind:    models.HandlerKindInstructor,
		HandlerEmail:   "prof@example.edu",
		Timeline: []models.TimelineEvent{
			{RequestID: "req-seed", Seq: 1, Type: models.EventCreated, Payload: []byte(`{}`)},
		},
	}
	store.put(request)
	return request
}

func TestCreateGradeAppealRoutesToInstructor(t *testing.T) {
	svc, store, _, resolver, notifier := newTestRequestService()
	resolver.destination = models.DestinationInstructor

	request, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Type:    models.RequestTypeGradeAppeal,
		Details: "The midterm grade looks wrong.",
		GradeAppeal: &dto.GradeAppealDetails{
			CourseID:       "CS101",
			GradeComponent: "midterm",
		},
	}, "student@example.edu")
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusPending, request.Status)
	assert.Equal(t, models.HandlerKindInstructor, request.HandlerKind)
	assert.Equal(t, "prof@example.edu", request.HandlerEmail)
	require.Len(t, request.Timeline, 1)
	assert.Equal(t, models.EventCreated, request.Timeline[0].Type)
	assert.Equal(t, 1, request.Timeline[0].Seq)
	assert.Equal(t, 1, notifier.created)
	assert.Len(t, store.requests, 1)
}

func TestCreateGradeAppealRequiresComponent(t *testing.T) {
	svc, store, _, _, notifier := newTestRequestService()

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Type:        models.RequestTypeGradeAppeal,
		Details:     "details",
		GradeAppeal: &dto.GradeAppealDetails{CourseID: "CS101"},
	}, "student@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.requests)
	assert.Zero(t, notifier.created)
}

func TestCreateScheduleChangeRequiresCandidates(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Type:           models.RequestTypeScheduleChange,
		Details:        "details",
		ScheduleChange: &dto.ScheduleChangeDetails{},
	}, "student@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.requests)
}

func TestCreatePersistsNothingWhenResolutionFails(t *testing.T) {
	svc, store, _, resolver, notifier := newTestRequestService()
	resolver.destination = models.DestinationInstructor
	resolver.instructorErr = appErrors.ErrNoInstructorAssigned

	_, err := svc.Create(context.Background(), dto.CreateRequestRequest{
		Type:    models.RequestTypeGradeAppeal,
		Details: "details",
		GradeAppeal: &dto.GradeAppealDetails{
			CourseID:       "CS999",
			GradeComponent: "final",
		},
	}, "student@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoInstructorAssigned.Code, appErrors.FromError(err).Code)
	assert.Empty(t, store.requests)
	assert.Zero(t, notifier.created)
}

func TestRespondAppendsReplyAndStatusChange(t *testing.T) {
	svc, store, responses, _, notifier := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)

	request, err := svc.Respond(context.Background(), dto.SubmitResponseRequest{
		RequestID:    "req-seed",
		ResponseText: "The grade was recalculated.",
	}, "prof@example.edu")
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusResponded, request.Status)
	require.Len(t, request.Timeline, 3)
	assert.Equal(t, models.EventResponseAdded, request.Timeline[1].Type)
	assert.Equal(t, 2, request.Timeline[1].Seq)
	assert.Equal(t, models.EventStatusChanged, request.Timeline[2].Type)
	assert.Equal(t, 3, request.Timeline[2].Seq)
	require.Len(t, responses.inserted, 1)
	assert.Equal(t, "prof@example.edu", responses.inserted[0].AuthorEmail)
	assert.Equal(t, []string{"prof@example.edu"}, notifier.responses)

	stored := store.requests["req-seed"]
	assert.Equal(t, models.RequestStatusResponded, stored.Status)
	assert.Len(t, stored.Timeline, 3)
}

func TestRespondLegalFromRequireEditing(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusRequireEditing)

	request, err := svc.Respond(context.Background(), dto.SubmitResponseRequest{
		RequestID:    "req-seed",
		ResponseText: "Updated after edits.",
	}, "prof@example.edu")
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusResponded, request.Status)
}

func TestRespondRejectedOnClosedRequest(t *testing.T) {
	svc, store, responses, _, notifier := newTestRequestService()
	seedRequest(store, models.RequestStatusClosed)

	_, err := svc.Respond(context.Background(), dto.SubmitResponseRequest{
		RequestID:    "req-seed",
		ResponseText: "too late",
	}, "prof@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, responses.inserted)
	assert.Empty(t, notifier.responses)
	assert.Len(t, store.requests["req-seed"].Timeline, 1)
}

func TestEditByRequesterWhilePending(t *testing.T) {
	svc, store, _, _, notifier := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)

	request, err := svc.Edit(context.Background(), "req-seed", dto.EditRequestRequest{
		Details: "Corrected description.",
	}, "student@example.edu")
	require.NoError(t, err)

	assert.Equal(t, "Corrected description.", request.Details)
	assert.Equal(t, models.RequestStatusPending, request.Status)
	require.Len(t, request.Timeline, 2)
	assert.Equal(t, models.EventEdited, request.Timeline[1].Type)
	// Edits never notify anyone.
	assert.Zero(t, notifier.created)
	assert.Empty(t, notifier.statusChanges)
}

func TestEditRejectedForNonRequester(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)

	_, err := svc.Edit(context.Background(), "req-seed", dto.EditRequestRequest{
		Details: "hijack",
	}, "someone-else@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEditable.Code, appErrors.FromError(err).Code)
	assert.Equal(t, "The midterm grade looks wrong.", store.requests["req-seed"].Details)
}

func TestEditRejectedAfterResponse(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusResponded)

	_, err := svc.Edit(context.Background(), "req-seed", dto.EditRequestRequest{
		Details: "too late",
	}, "student@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotEditable.Code, appErrors.FromError(err).Code)
}

func TestTransferWithoutCourseEscalatesToSecretary(t *testing.T) {
	svc, store, _, _, notifier := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)

	request, err := svc.Transfer(context.Background(), "req-seed", dto.TransferRequestRequest{
		Reason: "Instructor on leave",
	}, "prof@example.edu")
	require.NoError(t, err)

	assert.Equal(t, models.HandlerKindSecretary, request.HandlerKind)
	assert.Equal(t, "secretary@example.edu", request.HandlerEmail)
	// The course the request concerns does not change on escalation.
	require.NotNil(t, request.CourseID)
	assert.Equal(t, "CS101", *request.CourseID)
	// Ownership moved; the lifecycle stage did not.
	assert.Equal(t, models.RequestStatusPending, request.Status)
	require.Len(t, request.Timeline, 2)
	assert.Equal(t, models.EventTransferred, request.Timeline[1].Type)

	require.Len(t, notifier.transfers, 1)
	assert.Equal(t, "prof@example.edu", notifier.transfers[0].from.Email)
	assert.Equal(t, "secretary@example.edu", notifier.transfers[0].to.Email)
	assert.Equal(t, "Instructor on leave", notifier.transfers[0].reason)
}

func TestTransferToNewCourseInstructor(t *testing.T) {
	svc, store, _, resolver, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)
	resolver.instructor = models.Handler{Kind: models.HandlerKindInstructor, Email: "other-prof@example.edu"}

	newCourse := "CS202"
	request, err := svc.Transfer(context.Background(), "req-seed", dto.TransferRequestRequest{
		NewCourseID: &newCourse,
		Reason:      "Wrong section",
	}, "prof@example.edu")
	require.NoError(t, err)

	assert.Equal(t, "other-prof@example.edu", request.HandlerEmail)
	require.NotNil(t, request.CourseID)
	assert.Equal(t, "CS202", *request.CourseID)
}

func TestTransferLeavesHandlerWhenResolutionFails(t *testing.T) {
	svc, store, _, resolver, notifier := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)
	resolver.secretaryErr = appErrors.ErrNoSecretaryForDepartment

	_, err := svc.Transfer(context.Background(), "req-seed", dto.TransferRequestRequest{
		Reason: "Escalate",
	}, "prof@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoSecretaryForDepartment.Code, appErrors.FromError(err).Code)

	stored := store.requests["req-seed"]
	assert.Equal(t, "prof@example.edu", stored.HandlerEmail)
	assert.Len(t, stored.Timeline, 1)
	assert.Empty(t, notifier.transfers)
}

func TestTransferRejectedOnClosedRequest(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusClosed)

	_, err := svc.Transfer(context.Background(), "req-seed", dto.TransferRequestRequest{
		Reason: "Escalate",
	}, "prof@example.edu")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
}

func TestUpdateStatusCloseFromResponded(t *testing.T) {
	svc, store, _, _, notifier := newTestRequestService()
	seedRequest(store, models.RequestStatusResponded)

	request, err := svc.UpdateStatus(context.Background(), dto.UpdateStatusRequest{
		RequestID: "req-seed",
		Status:    "closed",
	}, "secretary@example.edu", models.RoleSecretary)
	require.NoError(t, err)

	assert.Equal(t, models.RequestStatusClosed, request.Status)
	require.Len(t, request.Timeline, 2)
	assert.Equal(t, models.EventStatusChanged, request.Timeline[1].Type)
	assert.Equal(t, []models.RequestStatus{models.RequestStatusClosed}, notifier.statusChanges)
}

func TestUpdateStatusRejectsIllegalTransition(t *testing.T) {
	svc, store, _, _, notifier := newTestRequestService()
	seedRequest(store, models.RequestStatusClosed)

	_, err := svc.UpdateStatus(context.Background(), dto.UpdateStatusRequest{
		RequestID: "req-seed",
		Status:    "responded",
	}, "secretary@example.edu", models.RoleSecretary)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrIllegalTransition.Code, appErrors.FromError(err).Code)
	assert.Empty(t, notifier.statusChanges)
	assert.Len(t, store.requests["req-seed"].Timeline, 1)
}

func TestUpdateStatusCloseRejectedForProfessor(t *testing.T) {
	svc, store, _, _, notifier := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)

	_, err := svc.UpdateStatus(context.Background(), dto.UpdateStatusRequest{
		RequestID: "req-seed",
		Status:    "closed",
	}, "prof@example.edu", models.RoleProfessor)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, models.RequestStatusPending, store.requests["req-seed"].Status)
	assert.Empty(t, notifier.statusChanges)
}

func TestUpdateStatusProfessorCanFlagForEditing(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)

	request, err := svc.UpdateStatus(context.Background(), dto.UpdateStatusRequest{
		RequestID: "req-seed",
		Status:    "require_editing",
	}, "prof@example.edu", models.RoleProfessor)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusRequireEditing, request.Status)
}

func TestUpdateStatusCloseAllowedForAdmin(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusResponded)

	request, err := svc.UpdateStatus(context.Background(), dto.UpdateStatusRequest{
		RequestID: "req-seed",
		Status:    "closed",
	}, "admin@example.edu", models.RoleAdmin)
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusClosed, request.Status)
}

func TestDeletePendingByRequester(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)

	err := svc.Delete(context.Background(), "req-seed", "student@example.edu", models.RoleStudent)
	require.NoError(t, err)
	assert.Empty(t, store.requests)
}

func TestDeleteRejectedAfterResponse(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusResponded)

	err := svc.Delete(context.Background(), "req-seed", "student@example.edu", models.RoleStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotDeletable.Code, appErrors.FromError(err).Code)
	assert.Len(t, store.requests, 1)
}

func TestDeleteRejectedForOtherUsers(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)

	err := svc.Delete(context.Background(), "req-seed", "someone-else@example.edu", models.RoleStudent)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestDeleteAllowedForAdmin(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)

	err := svc.Delete(context.Background(), "req-seed", "admin@example.edu", models.RoleAdmin)
	require.NoError(t, err)
	assert.Empty(t, store.requests)
}

func TestListForStudentIncludesTimeline(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)

	requests, err := svc.ListForStudent(context.Background(), "student@example.edu")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Len(t, requests[0].Timeline, 1)
}

func TestListTransferQueueExcludesClosed(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	open := seedRequest(store, models.RequestStatusPending)
	open.SetHandler(models.Handler{Kind: models.HandlerKindSecretary, Email: "secretary@example.edu"})
	store.put(open)

	closed := *open
	closed.ID = "req-closed"
	closed.Status = models.RequestStatusClosed
	store.put(&closed)

	requests, err := svc.ListTransferQueue(context.Background(), "secretary@example.edu")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, "req-seed", requests[0].ID)
}

func TestExportRegisterCSV(t *testing.T) {
	svc, store, _, _, _ := newTestRequestService()
	seedRequest(store, models.RequestStatusPending)

	data, filename, err := svc.ExportRegister(context.Background(), "csv")
	require.NoError(t, err)
	assert.Equal(t, "requests.csv", filename)
	assert.Contains(t, string(data), "student@example.edu")
}
