package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/uni-portal-api/internal/models"
)

// ResponseRepository persists staff replies to requests.
type ResponseRepository struct {
	db *sqlx.DB
}

// NewResponseRepository constructs the repository.
func NewResponseRepository(db *sqlx.DB) *ResponseRepository {
	return &ResponseRepository{db: db}
}

// InsertTx stores a response inside the caller's transaction so the row
// commits atomically with the state change it accompanies.
func (r *ResponseRepository) InsertTx(ctx context.Context, tx *sqlx.Tx, response *models.Response) error {
	if response.ID == "" {
		response.ID = uuid.NewString()
	}
	if response.CreatedAt.IsZero() {
		response.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO request_responses (id, request_id, author_email, response_text, attachments, created_at)
	VALUES (:id, :request_id, :author_email, :response_text, :attachments, :created_at)`
	if _, err := tx.NamedExecContext(ctx, query, response); err != nil {
		return fmt.Errorf("insert response: %w", err)
	}
	return nil
}

// ListByRequest returns responses for a request, oldest first.
func (r *ResponseRepository) ListByRequest(ctx context.Context, requestID string) ([]models.Response, error) {
	const query = `SELECT id, request_id, author_email, response_text, attachments, created_at
	FROM request_responses WHERE request_id = $1 ORDER BY created_at ASC`
	var responses []models.Response
	if err := r.db.SelectContext(ctx, &responses, query, requestID); err != nil {
		return nil, fmt.Errorf("list responses: %w", err)
	}
	return responses, nil
}
