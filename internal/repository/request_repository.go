package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-portal-api/internal/models"
)

const requestColumns = `id, type, title, requester_email, course_id, details, attachments,
       status, handler_kind, handler_email, created_at, updated_at`

// RequestRepository persists requests and their append-only timelines.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository constructs the repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create inserts a new request together with its first timeline event in
// one transaction. Either both rows land or neither does.
func (r *RequestRepository) Create(ctx context.Context, request *models.Request, created models.TimelineEvent) error {
	if request.ID == "" {
		request.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if request.CreatedAt.IsZero() {
		request.CreatedAt = now
	}
	request.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request tx: %w", err)
	}

	const query = `INSERT INTO requests
	(id, type, title, requester_email, course_id, details, attachments, status, handler_kind, handler_email, created_at, updated_at)
	VALUES (:id, :type, :title, :requester_email, :course_id, :details, :attachments, :status, :handler_kind, :handler_email, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, query, request); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("create request: %w", err)
	}

	created.RequestID = request.ID
	created.Seq = 1
	if err := r.AppendEventTx(ctx, tx, created); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create request tx: %w", err)
	}
	request.Timeline = []models.TimelineEvent{created}
	return nil
}

// GetByID fetches a request with its full timeline.
func (r *RequestRepository) GetByID(ctx context.Context, id string) (*models.Request, error) {
	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1`, requestColumns)
	var request models.Request
	if err := r.db.GetContext(ctx, &request, query, id); err != nil {
		return nil, err
	}
	timeline, err := r.listEvents(ctx, r.db, id)
	if err != nil {
		return nil, err
	}
	request.Timeline = timeline
	return &request, nil
}

// List returns requests matching the filter, newest first, without
// timelines. Use LoadTimelines to hydrate them when a view needs the
// full history.
func (r *RequestRepository) List(ctx context.Context, filter models.RequestFilter) ([]models.Request, error) {
	builder := strings.Builder{}
	builder.WriteString(fmt.Sprintf(`SELECT %s FROM requests`, requestColumns))

	args := make([]interface{}, 0, 6)
	conditions := make([]string, 0, 4)
	if filter.RequesterEmail != "" {
		args = append(args, filter.RequesterEmail)
		conditions = append(conditions, fmt.Sprintf("requester_email = $%d", len(args)))
	}
	if filter.HandlerEmail != "" {
		args = append(args, filter.HandlerEmail)
		conditions = append(conditions, fmt.Sprintf("handler_email = $%d", len(args)))
	}
	if filter.HandlerKind != "" {
		args = append(args, filter.HandlerKind)
		conditions = append(conditions, fmt.Sprintf("handler_kind = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		placeholders := make([]string, len(filter.Status))
		for i, status := range filter.Status {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("status IN (%s)", strings.Join(placeholders, ",")))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY created_at DESC")

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 100
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	builder.WriteString(fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset))

	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	return requests, nil
}

// LoadTimelines hydrates the timeline of each request in place.
func (r *RequestRepository) LoadTimelines(ctx context.Context, requests []models.Request) error {
	for i := range requests {
		timeline, err := r.listEvents(ctx, r.db, requests[i].ID)
		if err != nil {
			return err
		}
		requests[i].Timeline = timeline
	}
	return nil
}

// Mutate runs fn within a transaction that holds a row lock on the
// request. fn sees the current row and timeline; legality checks made
// against them still hold when the writes commit. Returning an error
// from fn rolls everything back.
func (r *RequestRepository) Mutate(ctx context.Context, id string, fn func(tx *sqlx.Tx, request *models.Request) error) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin request tx: %w", err)
	}

	query := fmt.Sprintf(`SELECT %s FROM requests WHERE id = $1 FOR UPDATE`, requestColumns)
	var request models.Request
	if err := tx.GetContext(ctx, &request, query, id); err != nil {
		_ = tx.Rollback()
		return err
	}
	timeline, err := r.listEvents(ctx, tx, id)
	if err != nil {
		_ = tx.Rollback()
		return err
	}
	request.Timeline = timeline

	if err := fn(tx, &request); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit request tx: %w", err)
	}
	return nil
}

// AppendEventTx inserts one timeline event. The (request_id, seq)
// primary key makes concurrent appends at the same position fail
// instead of silently losing an event.
func (r *RequestRepository) AppendEventTx(ctx context.Context, tx *sqlx.Tx, event models.TimelineEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO request_events (request_id, seq, event_type, payload, created_at)
	VALUES (:request_id, :seq, :event_type, :payload, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, event); err != nil {
		return fmt.Errorf("append request event: %w", err)
	}
	return nil
}

// UpdateStatusTx changes the lifecycle stage.
func (r *RequestRepository) UpdateStatusTx(ctx context.Context, tx *sqlx.Tx, id string, status models.RequestStatus) error {
	const query = `UPDATE requests SET status = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	return nil
}

// UpdateDetailsTx rewrites the request details.
func (r *RequestRepository) UpdateDetailsTx(ctx context.Context, tx *sqlx.Tx, id, details string) error {
	const query = `UPDATE requests SET details = $1, updated_at = $2 WHERE id = $3`
	if _, err := tx.ExecContext(ctx, query, details, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update request details: %w", err)
	}
	return nil
}

// UpdateHandlerTx reassigns ownership, optionally moving the request to
// another course reference at the same time.
func (r *RequestRepository) UpdateHandlerTx(ctx context.Context, tx *sqlx.Tx, id string, handler models.Handler, courseID *string) error {
	const query = `UPDATE requests SET handler_kind = $1, handler_email = $2, course_id = $3, updated_at = $4 WHERE id = $5`
	if _, err := tx.ExecContext(ctx, query, handler.Kind, handler.Email, courseID, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("update request handler: %w", err)
	}
	return nil
}

// Delete removes a request and its timeline. The status guard makes the
// delete a no-op if another writer moved the request past PENDING after
// the caller's legality check.
func (r *RequestRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete request tx: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM request_events WHERE request_id = $1`, id); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete request events: %w", err)
	}
	result, err := tx.ExecContext(ctx, `DELETE FROM requests WHERE id = $1 AND status = $2`, id, models.RequestStatusPending)
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("delete request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("check delete request rows: %w", err)
	}
	if rows == 0 {
		_ = tx.Rollback()
		return sql.ErrNoRows
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit delete request tx: %w", err)
	}
	return nil
}

type queryer interface {
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
}

func (r *RequestRepository) listEvents(ctx context.Context, q queryer, requestID string) ([]models.TimelineEvent, error) {
	const query = `SELECT request_id, seq, event_type, payload, created_at
	FROM request_events WHERE request_id = $1 ORDER BY seq ASC`
	var events []models.TimelineEvent
	if err := q.SelectContext(ctx, &events, query, requestID); err != nil {
		return nil, fmt.Errorf("list request events: %w", err)
	}
	return events, nil
}
