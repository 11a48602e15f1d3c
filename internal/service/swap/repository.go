package swap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skillswap/pkg/db"
)

type Repository interface {
	Create(ctx context.Context, r *SwapRequest) error
	GetByID(ctx context.Context, id int64) (*SwapRequest, error)
	// ListByMember returns requests where memberID is either party, by id ascending.
	ListByMember(ctx context.Context, memberID string) ([]*SwapRequest, error)
	CountByStatus(ctx context.Context) (map[Status]int, error)
	// CompareAndSwap writes r only if the stored status and version still
	// equal the expected values, then sets r.Version to the new version.
	CompareAndSwap(ctx context.Context, r *SwapRequest, expectedStatus Status, expectedVersion int64) error
}

type repository struct {
	db db.SQLExecutor
}

func NewRepository(database db.SQLExecutor) Repository {
	return &repository{
		db: database,
	}
}

const requestColumns = `id, requester_id, recipient_id, skill_offered, skill_wanted, message, status, cancel_reason,
	requester_score, requester_feedback, requester_rated_at,
	recipient_score, recipient_feedback, recipient_rated_at,
	version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

type nullReview struct {
	score    sql.NullInt64
	feedback sql.NullString
	ratedAt  sql.NullTime
}

func (n nullReview) review() *Review {
	if !n.score.Valid {
		return nil
	}
	return &Review{
		Score:     int(n.score.Int64),
		Feedback:  n.feedback.String,
		CreatedAt: n.ratedAt.Time,
	}
}

func reviewArgs(r *Review) (score, feedback, ratedAt any) {
	if r == nil {
		return nil, nil, nil
	}
	return r.Score, r.Feedback, r.CreatedAt
}

func scanRequest(row rowScanner) (*SwapRequest, error) {
	var (
		r                    SwapRequest
		status               string
		requester, recipient nullReview
	)
	err := row.Scan(
		&r.ID,
		&r.RequesterID,
		&r.RecipientID,
		&r.SkillOffered,
		&r.SkillWanted,
		&r.Message,
		&status,
		&r.CancelReason,
		&requester.score,
		&requester.feedback,
		&requester.ratedAt,
		&recipient.score,
		&recipient.feedback,
		&recipient.ratedAt,
		&r.Version,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.Status = Status(status)
	r.RequesterReview = requester.review()
	r.RecipientReview = recipient.review()
	return &r, nil
}

// Create inserts a new swap request
func (r *repository) Create(ctx context.Context, req *SwapRequest) error {
	query := `
		INSERT INTO swap_requests (id, requester_id, recipient_id, skill_offered, skill_wanted, message,
		                           status, cancel_reason, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		req.ID,
		req.RequesterID,
		req.RecipientID,
		req.SkillOffered,
		req.SkillWanted,
		req.Message,
		string(req.Status),
		req.CancelReason,
		req.Version,
	).Scan(&req.CreatedAt, &req.UpdatedAt)
	if err != nil {
		return fmt.Errorf("insert swap request: %w", err)
	}

	return nil
}

// GetByID retrieves a swap request by ID
func (r *repository) GetByID(ctx context.Context, id int64) (*SwapRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM swap_requests WHERE id = $1`

	req, err := scanRequest(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query swap request: %w", err)
	}
	return req, nil
}

func (r *repository) ListByMember(ctx context.Context, memberID string) ([]*SwapRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM swap_requests
		WHERE requester_id = $1 OR recipient_id = $1
		ORDER BY id ASC
	`

	rows, err := r.db.QueryContext(ctx, query, memberID)
	if err != nil {
		return nil, fmt.Errorf("query swap requests: %w", err)
	}
	defer rows.Close()

	requests := make([]*SwapRequest, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan swap request: %w", err)
		}
		requests = append(requests, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate swap requests: %w", err)
	}

	return requests, nil
}

func (r *repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM swap_requests GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count swap requests: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int, len(Statuses))
	for _, s := range Statuses {
		counts[s] = 0
	}
	for rows.Next() {
		var (
			status string
			n      int
		)
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan swap count: %w", err)
		}
		counts[Status(status)] = n
	}
	return counts, rows.Err()
}

// CompareAndSwap updates the mutable columns guarded by status and version
func (r *repository) CompareAndSwap(ctx context.Context, req *SwapRequest, expectedStatus Status, expectedVersion int64) error {
	query := `
		UPDATE swap_requests
		SET status = $4, cancel_reason = $5,
		    requester_score = $6, requester_feedback = $7, requester_rated_at = $8,
		    recipient_score = $9, recipient_feedback = $10, recipient_rated_at = $11,
		    version = version + 1, updated_at = $12
		WHERE id = $1 AND status = $2 AND version = $3
		RETURNING version
	`

	rqScore, rqFeedback, rqAt := reviewArgs(req.RequesterReview)
	rcScore, rcFeedback, rcAt := reviewArgs(req.RecipientReview)
	now := time.Now().UTC()

	var version int64
	err := r.db.QueryRowContext(ctx, query,
		req.ID,
		string(expectedStatus),
		expectedVersion,
		string(req.Status),
		req.CancelReason,
		rqScore, rqFeedback, rqAt,
		rcScore, rcFeedback, rcAt,
		now,
	).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, req.ID); getErr != nil {
			return getErr
		}
		return ErrRequestConflict
	}
	if err != nil {
		return fmt.Errorf("update swap request: %w", err)
	}

	req.Version = version
	req.UpdatedAt = now
	return nil
}
