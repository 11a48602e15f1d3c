package member

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"skillswap/internal/events"
	"skillswap/internal/identity"
	"skillswap/pkg/cache"
	"skillswap/pkg/idgen"
	"skillswap/pkg/logger"
)

// maxMutateAttempts bounds the read-modify-write loop for profile edits.
// Edits are last-write-wins, so a lost race is simply retried.
const maxMutateAttempts = 3

// MatchesCacheKey is the key under which match results for a member are cached.
func MatchesCacheKey(memberID string) string {
	return fmt.Sprintf("matches:%s", memberID)
}

type Service struct {
	repo        Repository
	ids         idgen.Generator
	cache       cache.Cache
	events      *events.Emitter
	logger      logger.Logger
	adminEmails []string
}

type Option func(*Service)

// WithAdminEmails registers the given addresses with the admin role.
func WithAdminEmails(emails ...string) Option {
	return func(s *Service) {
		for _, e := range emails {
			if e = strings.ToLower(strings.TrimSpace(e)); e != "" {
				s.adminEmails = append(s.adminEmails, e)
			}
		}
	}
}

func NewService(repo Repository, ids idgen.Generator, cache cache.Cache, emitter *events.Emitter, log logger.Logger, opts ...Option) *Service {
	s := &Service{
		repo:   repo,
		ids:    ids,
		cache:  cache,
		events: emitter,
		logger: log,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates a new public member with no rating history
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*Member, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrInvalidName
	}

	offered, err := NewSkillSet(req.Offered...)
	if err != nil {
		return nil, err
	}
	wanted, err := NewSkillSet(req.Wanted...)
	if err != nil {
		return nil, err
	}
	availability, err := normalizeSlots(req.Availability)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	role := RoleMember
	if slices.Contains(s.adminEmails, email) {
		role = RoleAdmin
	}

	public := true
	if req.Public != nil {
		public = *req.Public
	}

	m := &Member{
		ID:           s.ids.NewUUID(),
		Name:         name,
		Email:        email,
		Location:     strings.TrimSpace(req.Location),
		Offered:      offered,
		Wanted:       wanted,
		Availability: availability,
		Public:       public,
		Role:         role,
	}

	if err := s.repo.Create(ctx, m); err != nil {
		s.logger.Error(ctx, "failed to register member",
			logger.Field{Key: "email", Value: email},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	s.events.Emit(ctx, events.MemberRegistered, []string{m.ID}, nil)
	s.logger.Info(ctx, "member registered", logger.Field{Key: "member_id", Value: m.ID})
	return m, nil
}

// Get retrieves a member by ID
func (s *Service) Get(ctx context.Context, id string) (*Member, error) {
	m, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if !errors.Is(err, ErrMemberNotFound) {
			s.logger.Error(ctx, "failed to get member",
				logger.Field{Key: "member_id", Value: id},
				logger.Field{Key: "error", Value: err},
			)
		}
		return nil, err
	}
	return m, nil
}

// GetByEmail is used by the identity provider to resolve a login
func (s *Service) GetByEmail(ctx context.Context, email string) (*Member, error) {
	return s.repo.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

// ListPublic returns public, non-banned members
func (s *Service) ListPublic(ctx context.Context) ([]*Member, error) {
	members, err := s.repo.ListPublic(ctx)
	if err != nil {
		s.logger.Error(ctx, "failed to list public members", logger.Field{Key: "error", Value: err})
		return nil, err
	}
	return members, nil
}

// List returns every member, banned and private included
func (s *Service) List(ctx context.Context) ([]*Member, error) {
	return s.repo.List(ctx)
}

// UpdateProfile edits name, location and availability
func (s *Service) UpdateProfile(ctx context.Context, id string, req UpdateProfileRequest) (*Member, error) {
	var availability []Slot
	if req.Availability != nil {
		var err error
		if availability, err = normalizeSlots(req.Availability); err != nil {
			return nil, err
		}
	}

	return s.Mutate(ctx, id, "update profile", func(m *Member) (bool, error) {
		if name := strings.TrimSpace(req.Name); name != "" {
			m.Name = name
		}
		if req.Location != nil {
			m.Location = strings.TrimSpace(*req.Location)
		}
		if req.Availability != nil {
			m.Availability = availability
		}
		return true, nil
	})
}

// UpsertSkills replaces both skill sets
func (s *Service) UpsertSkills(ctx context.Context, id string, offered, wanted []string) (*Member, error) {
	offeredSet, err := NewSkillSet(offered...)
	if err != nil {
		return nil, err
	}
	wantedSet, err := NewSkillSet(wanted...)
	if err != nil {
		return nil, err
	}

	return s.Mutate(ctx, id, "upsert skills", func(m *Member) (bool, error) {
		m.Offered = offeredSet
		m.Wanted = wantedSet
		return true, nil
	})
}

// AddSkill appends one skill to the set for the given direction. Adding a
// skill the member already lists is a no-op.
func (s *Service) AddSkill(ctx context.Context, id string, direction Direction, skill string) (*Member, error) {
	if !direction.Valid() {
		return nil, ErrInvalidDirection
	}

	return s.Mutate(ctx, id, "add skill", func(m *Member) (bool, error) {
		next, added, err := m.Skills(direction).With(skill)
		if err != nil || !added {
			return false, err
		}
		if direction == DirectionWanted {
			m.Wanted = next
		} else {
			m.Offered = next
		}
		return true, nil
	})
}

func (s *Service) SetVisibility(ctx context.Context, id string, public bool) (*Member, error) {
	return s.Mutate(ctx, id, "set visibility", func(m *Member) (bool, error) {
		if m.Public == public {
			return false, nil
		}
		m.Public = public
		return true, nil
	})
}

// SetBanned sets the ban flag. Setting it to its current value is a no-op;
// changed reports whether a write happened.
func (s *Service) SetBanned(ctx context.Context, id string, banned bool) (m *Member, changed bool, err error) {
	m, err = s.Mutate(ctx, id, "set banned", func(m *Member) (bool, error) {
		changed = false
		if m.Banned == banned {
			return false, nil
		}
		m.Banned = banned
		changed = true
		return true, nil
	})
	if err != nil {
		return nil, false, err
	}
	return m, changed, nil
}

// Mutate applies fn to a fresh copy of the member and writes it back with
// compare-and-swap. fn reports whether it changed anything; unchanged
// records are not written. A version conflict re-reads and re-applies fn.
func (s *Service) Mutate(ctx context.Context, id, op string, fn func(m *Member) (bool, error)) (*Member, error) {
	for attempt := 1; attempt <= maxMutateAttempts; attempt++ {
		m, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}

		expected := m.Version
		changed, err := fn(m)
		if err != nil {
			return nil, err
		}
		if !changed {
			return m, nil
		}

		err = s.repo.CompareAndSwap(ctx, m, expected)
		if errors.Is(err, ErrMemberConflict) {
			s.logger.Debug(ctx, "member version conflict, retrying",
				logger.Field{Key: "member_id", Value: id},
				logger.Field{Key: "op", Value: op},
				logger.Field{Key: "attempt", Value: attempt},
			)
			continue
		}
		if err != nil {
			s.logger.Error(ctx, "failed to "+op,
				logger.Field{Key: "member_id", Value: id},
				logger.Field{Key: "error", Value: err},
			)
			return nil, err
		}

		s.invalidate(ctx, id)
		s.logger.Info(ctx, "member updated",
			logger.Field{Key: "member_id", Value: id},
			logger.Field{Key: "op", Value: op},
		)
		return m, nil
	}

	return nil, ErrMemberConflict
}

func (s *Service) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, MatchesCacheKey(id)); err != nil {
		s.logger.Warn(ctx, "failed to invalidate match cache",
			logger.Field{Key: "member_id", Value: id},
			logger.Field{Key: "error", Value: err},
		)
	}
}

func normalizeSlots(slots []Slot) ([]Slot, error) {
	out := make([]Slot, 0, len(slots))
	for _, slot := range slots {
		if !slot.Valid() {
			return nil, ErrInvalidSlot
		}
		if !slices.Contains(out, slot) {
			out = append(out, slot)
		}
	}
	return out, nil
}

// ResolveActor maps a verified login email to the acting member
func (s *Service) ResolveActor(ctx context.Context, email string) (identity.Actor, error) {
	m, err := s.GetByEmail(ctx, email)
	if err != nil {
		return identity.Actor{}, err
	}
	return identity.Actor{MemberID: m.ID, Admin: m.IsAdmin()}, nil
}

// ActorByID reloads the admin flag for a session's member
func (s *Service) ActorByID(ctx context.Context, memberID string) (identity.Actor, error) {
	m, err := s.repo.GetByID(ctx, memberID)
	if err != nil {
		return identity.Actor{}, err
	}
	return identity.Actor{MemberID: m.ID, Admin: m.IsAdmin()}, nil
}
