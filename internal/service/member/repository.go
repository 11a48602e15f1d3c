package member

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"skillswap/pkg/db"

	"github.com/lib/pq"
)

type Repository interface {
	Create(ctx context.Context, m *Member) error
	GetByID(ctx context.Context, id string) (*Member, error)
	GetByEmail(ctx context.Context, email string) (*Member, error)
	List(ctx context.Context) ([]*Member, error)
	// ListPublic returns public, non-banned members ordered by id.
	ListPublic(ctx context.Context) ([]*Member, error)
	// CompareAndSwap writes the whole record if the stored version still
	// equals expectedVersion, then sets m.Version to the new version.
	CompareAndSwap(ctx context.Context, m *Member, expectedVersion int64) error
}

type repository struct {
	db db.SQLExecutor
}

func NewRepository(database db.SQLExecutor) Repository {
	return &repository{
		db: database,
	}
}

const memberColumns = `id, name, email, location, skills_offered, skills_wanted, availability,
	is_public, role, rating, completed_swaps, banned, version, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMember(row rowScanner) (*Member, error) {
	var (
		m                      Member
		offered, wanted, avail pq.StringArray
		role                   string
	)
	err := row.Scan(
		&m.ID,
		&m.Name,
		&m.Email,
		&m.Location,
		&offered,
		&wanted,
		&avail,
		&m.Public,
		&role,
		&m.Rating,
		&m.CompletedSwaps,
		&m.Banned,
		&m.Version,
		&m.CreatedAt,
		&m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.Role = Role(role)
	if m.Offered, err = NewSkillSet(offered...); err != nil {
		return nil, fmt.Errorf("decode skills_offered: %w", err)
	}
	if m.Wanted, err = NewSkillSet(wanted...); err != nil {
		return nil, fmt.Errorf("decode skills_wanted: %w", err)
	}
	m.Availability = make([]Slot, len(avail))
	for i, a := range avail {
		m.Availability[i] = Slot(a)
	}
	return &m, nil
}

func slotStrings(slots []Slot) []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = string(s)
	}
	return out
}

// Create inserts a new member
func (r *repository) Create(ctx context.Context, m *Member) error {
	query := `
		INSERT INTO members (id, name, email, location, skills_offered, skills_wanted, availability,
		                     is_public, role, rating, completed_swaps, banned, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at
	`

	err := r.db.QueryRowContext(ctx, query,
		m.ID,
		m.Name,
		m.Email,
		m.Location,
		pq.Array(m.Offered.Values()),
		pq.Array(m.Wanted.Values()),
		pq.Array(slotStrings(m.Availability)),
		m.Public,
		string(m.Role),
		m.Rating,
		m.CompletedSwaps,
		m.Banned,
		m.Version,
	).Scan(&m.CreatedAt, &m.UpdatedAt)

	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert member: %w", err)
	}

	return nil
}

// GetByID retrieves a member by ID
func (r *repository) GetByID(ctx context.Context, id string) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE id = $1`

	m, err := scanMember(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query member: %w", err)
	}
	return m, nil
}

// GetByEmail retrieves a member by email
func (r *repository) GetByEmail(ctx context.Context, email string) (*Member, error) {
	query := `SELECT ` + memberColumns + ` FROM members WHERE lower(email) = lower($1)`

	m, err := scanMember(r.db.QueryRowContext(ctx, query, email))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrMemberNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query member by email: %w", err)
	}
	return m, nil
}

func (r *repository) List(ctx context.Context) ([]*Member, error) {
	return r.list(ctx, `SELECT `+memberColumns+` FROM members ORDER BY id ASC`)
}

func (r *repository) ListPublic(ctx context.Context) ([]*Member, error) {
	return r.list(ctx, `SELECT `+memberColumns+` FROM members WHERE is_public AND NOT banned ORDER BY id ASC`)
}

func (r *repository) list(ctx context.Context, query string) ([]*Member, error) {
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query members: %w", err)
	}
	defer rows.Close()

	members := make([]*Member, 0)
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate members: %w", err)
	}

	return members, nil
}

// CompareAndSwap updates the full member row guarded by version
func (r *repository) CompareAndSwap(ctx context.Context, m *Member, expectedVersion int64) error {
	query := `
		UPDATE members
		SET name = $3, location = $4, skills_offered = $5, skills_wanted = $6, availability = $7,
		    is_public = $8, role = $9, rating = $10, completed_swaps = $11, banned = $12,
		    version = version + 1, updated_at = $13
		WHERE id = $1 AND version = $2
		RETURNING version
	`

	now := time.Now().UTC()
	var version int64
	err := r.db.QueryRowContext(ctx, query,
		m.ID,
		expectedVersion,
		m.Name,
		m.Location,
		pq.Array(m.Offered.Values()),
		pq.Array(m.Wanted.Values()),
		pq.Array(slotStrings(m.Availability)),
		m.Public,
		string(m.Role),
		m.Rating,
		m.CompletedSwaps,
		m.Banned,
		now,
	).Scan(&version)

	if errors.Is(err, sql.ErrNoRows) {
		if _, getErr := r.GetByID(ctx, m.ID); getErr != nil {
			return getErr
		}
		return ErrMemberConflict
	}
	if err != nil {
		return fmt.Errorf("update member: %w", err)
	}

	m.Version = version
	m.UpdatedAt = now
	return nil
}
