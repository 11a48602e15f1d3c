package moderation

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"skillswap/internal/service/member"
	"skillswap/pkg/db"
)

type ReportRepository interface {
	Create(ctx context.Context, r *Report) error
	GetByID(ctx context.Context, id int64) (*Report, error)
	// ListByStatus returns reports in the given status by id ascending.
	ListByStatus(ctx context.Context, status ReportStatus) ([]*Report, error)
	// CompareAndSwap writes the review fields only while the stored status
	// equals expected.
	CompareAndSwap(ctx context.Context, r *Report, expected ReportStatus) error
}

type SubmissionRepository interface {
	Create(ctx context.Context, s *SkillSubmission) error
	GetByID(ctx context.Context, id int64) (*SkillSubmission, error)
	ListByStatus(ctx context.Context, status SubmissionStatus) ([]*SkillSubmission, error)
	CompareAndSwap(ctx context.Context, s *SkillSubmission, expected SubmissionStatus) error
}

type rowScanner interface {
	Scan(dest ...any) error
}

type reportRepository struct {
	db db.SQLExecutor
}

func NewReportRepository(database db.SQLExecutor) ReportRepository {
	return &reportRepository{
		db: database,
	}
}

const reportColumns = `id, reported_id, reporter_id, reason, description, status, reviewed_by, created_at, reviewed_at`

func scanReport(row rowScanner) (*Report, error) {
	var (
		r              Report
		reason, status string
		reviewedAt     sql.NullTime
	)
	err := row.Scan(&r.ID, &r.ReportedID, &r.ReporterID, &reason, &r.Description, &status, &r.ReviewedBy, &r.CreatedAt, &reviewedAt)
	if err != nil {
		return nil, err
	}
	r.Reason = ReasonCode(reason)
	r.Status = ReportStatus(status)
	if reviewedAt.Valid {
		r.ReviewedAt = &reviewedAt.Time
	}
	return &r, nil
}

// Create inserts a new report
func (r *reportRepository) Create(ctx context.Context, report *Report) error {
	query := `
		INSERT INTO reports (id, reported_id, reporter_id, reason, description, status, reviewed_by)
		VALUES ($1, $2, $3, $4, $5, $6, '')
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		report.ID,
		report.ReportedID,
		report.ReporterID,
		string(report.Reason),
		report.Description,
		string(report.Status),
	).Scan(&report.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert report: %w", err)
	}
	return nil
}

func (r *reportRepository) GetByID(ctx context.Context, id int64) (*Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE id = $1`

	report, err := scanReport(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrReportNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query report: %w", err)
	}
	return report, nil
}

func (r *reportRepository) ListByStatus(ctx context.Context, status ReportStatus) ([]*Report, error) {
	query := `SELECT ` + reportColumns + ` FROM reports WHERE status = $1 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query reports: %w", err)
	}
	defer rows.Close()

	reports := make([]*Report, 0)
	for rows.Next() {
		report, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		reports = append(reports, report)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate reports: %w", err)
	}
	return reports, nil
}

func (r *reportRepository) CompareAndSwap(ctx context.Context, report *Report, expected ReportStatus) error {
	query := `
		UPDATE reports
		SET status = $3, reviewed_by = $4, reviewed_at = $5
		WHERE id = $1 AND status = $2
	`

	res, err := r.db.ExecContext(ctx, query,
		report.ID,
		string(expected),
		string(report.Status),
		report.ReviewedBy,
		report.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update report: %w", err)
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, report.ID); err != nil {
			return err
		}
		return ErrReportProcessed
	}
	return nil
}

type submissionRepository struct {
	db db.SQLExecutor
}

func NewSubmissionRepository(database db.SQLExecutor) SubmissionRepository {
	return &submissionRepository{
		db: database,
	}
}

const submissionColumns = `id, member_id, skill, description, direction, flag_reason, status, rejection_reason,
	reviewed_by, created_at, reviewed_at`

func scanSubmission(row rowScanner) (*SkillSubmission, error) {
	var (
		s                 SkillSubmission
		direction, status string
		reviewedAt        sql.NullTime
	)
	err := row.Scan(
		&s.ID,
		&s.MemberID,
		&s.Skill,
		&s.Description,
		&direction,
		&s.FlagReason,
		&status,
		&s.RejectionReason,
		&s.ReviewedBy,
		&s.CreatedAt,
		&reviewedAt,
	)
	if err != nil {
		return nil, err
	}
	s.Direction = member.Direction(direction)
	s.Status = SubmissionStatus(status)
	if reviewedAt.Valid {
		s.ReviewedAt = &reviewedAt.Time
	}
	return &s, nil
}

// Create inserts a new skill submission
func (r *submissionRepository) Create(ctx context.Context, s *SkillSubmission) error {
	query := `
		INSERT INTO skill_submissions (id, member_id, skill, description, direction, flag_reason, status,
		                               rejection_reason, reviewed_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, '', '')
		RETURNING created_at
	`

	err := r.db.QueryRowContext(ctx, query,
		s.ID,
		s.MemberID,
		s.Skill,
		s.Description,
		string(s.Direction),
		s.FlagReason,
		string(s.Status),
	).Scan(&s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert skill submission: %w", err)
	}
	return nil
}

func (r *submissionRepository) GetByID(ctx context.Context, id int64) (*SkillSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM skill_submissions WHERE id = $1`

	s, err := scanSubmission(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query skill submission: %w", err)
	}
	return s, nil
}

func (r *submissionRepository) ListByStatus(ctx context.Context, status SubmissionStatus) ([]*SkillSubmission, error) {
	query := `SELECT ` + submissionColumns + ` FROM skill_submissions WHERE status = $1 ORDER BY id ASC`

	rows, err := r.db.QueryContext(ctx, query, string(status))
	if err != nil {
		return nil, fmt.Errorf("query skill submissions: %w", err)
	}
	defer rows.Close()

	submissions := make([]*SkillSubmission, 0)
	for rows.Next() {
		s, err := scanSubmission(rows)
		if err != nil {
			return nil, fmt.Errorf("scan skill submission: %w", err)
		}
		submissions = append(submissions, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate skill submissions: %w", err)
	}
	return submissions, nil
}

func (r *submissionRepository) CompareAndSwap(ctx context.Context, s *SkillSubmission, expected SubmissionStatus) error {
	query := `
		UPDATE skill_submissions
		SET status = $3, rejection_reason = $4, reviewed_by = $5, reviewed_at = $6
		WHERE id = $1 AND status = $2
	`

	res, err := r.db.ExecContext(ctx, query,
		s.ID,
		string(expected),
		string(s.Status),
		s.RejectionReason,
		s.ReviewedBy,
		s.ReviewedAt,
	)
	if err != nil {
		return fmt.Errorf("update skill submission: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update skill submission: %w", err)
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, s.ID); err != nil {
			return err
		}
		return ErrSubmissionReviewed
	}
	return nil
}
