package member

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"skillswap/internal/errs"
	"skillswap/internal/events"
	"skillswap/pkg/cache"
	"skillswap/pkg/idgen"
	"skillswap/pkg/logger"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc   *Service
	repo  *MemoryRepository
	pub   *events.MemoryPublisher
	redis *miniredis.Miniredis
	cache cache.Cache
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ids, err := idgen.New(1)
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	c := cache.NewRedisCache(mr.Addr())
	repo := NewMemoryRepository()
	pub := events.NewMemoryPublisher()
	log := logger.NewNop()

	return &fixture{
		svc:   NewService(repo, ids, c, events.NewEmitter(pub, log), log, opts...),
		repo:  repo,
		pub:   pub,
		redis: mr,
		cache: c,
	}
}

func (f *fixture) register(t *testing.T, name string, offered, wanted []string) *Member {
	t.Helper()
	m, err := f.svc.Register(context.Background(), RegisterRequest{
		Name:    name,
		Email:   name + "@example.com",
		Offered: offered,
		Wanted:  wanted,
	})
	require.NoError(t, err)
	return m
}

func TestRegister(t *testing.T) {
	f := newFixture(t, WithAdminEmails("Root@Example.com"))
	ctx := context.Background()

	m, err := f.svc.Register(ctx, RegisterRequest{
		Name:         " Alice ",
		Email:        "Alice@Example.com",
		Location:     "Berlin",
		Offered:      []string{"Python", " python "},
		Wanted:       []string{"Design"},
		Availability: []Slot{SlotWeekends, SlotWeekends, SlotFlexible},
	})
	require.NoError(t, err)

	assert.Equal(t, "Alice", m.Name)
	assert.Equal(t, "alice@example.com", m.Email)
	assert.Equal(t, []string{"Python"}, m.Offered.Values())
	assert.Equal(t, []Slot{SlotWeekends, SlotFlexible}, m.Availability)
	assert.True(t, m.Public)
	assert.Equal(t, RoleMember, m.Role)
	assert.Zero(t, m.Rating)
	assert.Zero(t, m.CompletedSwaps)
	assert.Len(t, f.pub.OfType(events.MemberRegistered), 1)

	admin := f.register(t, "root", nil, nil)
	assert.True(t, admin.IsAdmin())

	_, err = f.svc.Register(ctx, RegisterRequest{Name: "Alice Two", Email: "alice@example.com"})
	assert.ErrorIs(t, err, ErrEmailTaken)

	_, err = f.svc.Register(ctx, RegisterRequest{Name: "Bob", Email: "bob@example.com", Availability: []Slot{"whenever"}})
	assert.ErrorIs(t, err, ErrInvalidSlot)

	_, err = f.svc.Register(ctx, RegisterRequest{Name: "  ", Email: "x@example.com"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestGetNotFound(t *testing.T) {
	f := newFixture(t)
	_, err := f.svc.Get(context.Background(), "nope")
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestUpsertSkills(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.register(t, "alice", []string{"Go"}, nil)

	updated, err := f.svc.UpsertSkills(ctx, m.ID, []string{" Rust", "rust", "Go"}, []string{"Piano"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust", "Go"}, updated.Offered.Values())
	assert.Equal(t, []string{"Piano"}, updated.Wanted.Values())
	assert.Equal(t, m.Version+1, updated.Version)

	_, err = f.svc.UpsertSkills(ctx, m.ID, []string{""}, nil)
	assert.ErrorIs(t, err, ErrEmptySkill)

	stored, err := f.svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rust", "Go"}, stored.Offered.Values())
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.register(t, "alice", nil, nil)

	loc := " Paris "
	updated, err := f.svc.UpdateProfile(ctx, m.ID, UpdateProfileRequest{
		Location:     &loc,
		Availability: []Slot{SlotWeekdayEvenings},
	})
	require.NoError(t, err)
	assert.Equal(t, "alice", updated.Name)
	assert.Equal(t, "Paris", updated.Location)
	assert.Equal(t, []Slot{SlotWeekdayEvenings}, updated.Availability)

	_, err = f.svc.UpdateProfile(ctx, m.ID, UpdateProfileRequest{Availability: []Slot{"never"}})
	assert.ErrorIs(t, err, ErrInvalidSlot)
}

func TestAddSkill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.register(t, "alice", []string{"Go"}, nil)

	updated, err := f.svc.AddSkill(ctx, m.ID, DirectionWanted, "Chess")
	require.NoError(t, err)
	assert.Equal(t, []string{"Chess"}, updated.Wanted.Values())

	again, err := f.svc.AddSkill(ctx, m.ID, DirectionOffered, "GO")
	require.NoError(t, err)
	assert.Equal(t, updated.Version, again.Version, "adding an existing skill must not write")

	_, err = f.svc.AddSkill(ctx, m.ID, Direction("sideways"), "Chess")
	assert.ErrorIs(t, err, ErrInvalidDirection)
}

func TestSetBannedIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.register(t, "alice", nil, nil)

	banned, changed, err := f.svc.SetBanned(ctx, m.ID, true)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.True(t, banned.Banned)

	again, changed, err := f.svc.SetBanned(ctx, m.ID, true)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, banned.Version, again.Version)

	_, _, err = f.svc.SetBanned(ctx, "ghost", true)
	assert.ErrorIs(t, err, ErrMemberNotFound)
}

func TestListPublicExcludesPrivateAndBanned(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	a := f.register(t, "alice", nil, nil)
	b := f.register(t, "bob", nil, nil)
	c := f.register(t, "carol", nil, nil)

	_, err := f.svc.SetVisibility(ctx, b.ID, false)
	require.NoError(t, err)
	_, _, err = f.svc.SetBanned(ctx, c.ID, true)
	require.NoError(t, err)

	public, err := f.svc.ListPublic(ctx)
	require.NoError(t, err)
	require.Len(t, public, 1)
	assert.Equal(t, a.ID, public[0].ID)

	all, err := f.svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestMutationInvalidatesMatchCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.register(t, "alice", nil, nil)

	require.NoError(t, f.cache.Set(ctx, MatchesCacheKey(m.ID), []byte("[]"), time.Minute))
	_, err := f.svc.UpsertSkills(ctx, m.ID, []string{"Go"}, nil)
	require.NoError(t, err)

	assert.False(t, f.redis.Exists(MatchesCacheKey(m.ID)))
}

func TestMemoryRepositoryCompareAndSwap(t *testing.T) {
	repo := NewMemoryRepository()
	ctx := context.Background()
	m := &Member{ID: "m-1", Name: "alice", Email: "a@example.com"}
	require.NoError(t, repo.Create(ctx, m))

	first, err := repo.GetByID(ctx, "m-1")
	require.NoError(t, err)
	second, err := repo.GetByID(ctx, "m-1")
	require.NoError(t, err)

	first.Name = "first"
	require.NoError(t, repo.CompareAndSwap(ctx, first, 0))
	assert.Equal(t, int64(1), first.Version)

	second.Name = "second"
	err = repo.CompareAndSwap(ctx, second, 0)
	assert.ErrorIs(t, err, ErrMemberConflict)
	assert.True(t, errs.Retryable(err))

	stored, err := repo.GetByID(ctx, "m-1")
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Name)
}

func TestConcurrentMutationsDoNotLoseUpdates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	m := f.register(t, "alice", nil, nil)

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, err := f.svc.AddSkill(ctx, m.ID, DirectionOffered, fmt.Sprintf("skill-%d", i))
			if err == nil {
				mu.Lock()
				succeeded++
				mu.Unlock()
				return
			}
			assert.ErrorIs(t, err, errs.ErrConflict)
		}(i)
	}
	wg.Wait()

	stored, err := f.svc.Get(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, succeeded, stored.Offered.Len())
	assert.Equal(t, int64(succeeded), stored.Version-m.Version)
}
