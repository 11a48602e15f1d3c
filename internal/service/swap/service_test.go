package swap

import (
	"context"
	"math/rand"
	"sync"
	"testing"

	"skillswap/internal/errs"
	"skillswap/internal/events"
	"skillswap/internal/identity"
	"skillswap/internal/service/member"
	"skillswap/pkg/idgen"
	"skillswap/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *Service
	repo    *MemoryRepository
	members *member.Service
	pub     *events.MemoryPublisher
	metrics *Metrics

	alice, bob identity.Actor
	admin      identity.Actor
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ids, err := idgen.New(1)
	require.NoError(t, err)

	log := logger.NewNop()
	pub := events.NewMemoryPublisher()
	emitter := events.NewEmitter(pub, log)
	members := member.NewService(member.NewMemoryRepository(), ids, nil, emitter, log, member.WithAdminEmails("root@example.com"))
	repo := NewMemoryRepository()
	metrics := NewMetrics(prometheus.NewRegistry())

	f := &fixture{
		svc:     NewService(repo, members, ids, emitter, metrics, log),
		repo:    repo,
		members: members,
		pub:     pub,
		metrics: metrics,
	}
	f.alice = f.register(t, "alice", []string{"Python"}, []string{"Design"})
	f.bob = f.register(t, "bob", []string{"Design", "Spanish"}, []string{"Python"})
	f.admin = f.register(t, "root", nil, nil)
	require.True(t, f.admin.Admin)
	return f
}

func (f *fixture) register(t *testing.T, name string, offered, wanted []string) identity.Actor {
	t.Helper()
	m, err := f.members.Register(context.Background(), member.RegisterRequest{
		Name:    name,
		Email:   name + "@example.com",
		Offered: offered,
		Wanted:  wanted,
	})
	require.NoError(t, err)
	return identity.Actor{MemberID: m.ID, Admin: m.IsAdmin()}
}

func (f *fixture) pending(t *testing.T) *SwapRequest {
	t.Helper()
	r, err := f.svc.Create(context.Background(), f.alice, CreateRequest{
		RecipientID:  f.bob.MemberID,
		SkillOffered: "Python",
		SkillWanted:  "Design",
	})
	require.NoError(t, err)
	return r
}

func TestCreate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	r, err := f.svc.Create(ctx, f.alice, CreateRequest{
		RecipientID:  f.bob.MemberID,
		SkillOffered: "python",
		SkillWanted:  " SPANISH ",
		Message:      " hi ",
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPending, r.Status)
	assert.Equal(t, "Python", r.SkillOffered)
	assert.Equal(t, "Spanish", r.SkillWanted)
	assert.Equal(t, "hi", r.Message)
	assert.NotZero(t, r.ID)

	created := f.pub.OfType(events.RequestCreated)
	require.Len(t, created, 1)
	assert.Equal(t, []string{f.alice.MemberID, f.bob.MemberID}, created[0].SubjectIDs)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.transitions.WithLabelValues("create", "ok")))
}

func TestCreateValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  CreateRequest
		want error
	}{
		{"self", CreateRequest{RecipientID: f.alice.MemberID, SkillOffered: "Python", SkillWanted: "Python"}, ErrSelfRequest},
		{"empty skill", CreateRequest{RecipientID: f.bob.MemberID, SkillOffered: " ", SkillWanted: "Design"}, ErrEmptySkill},
		{"not offered by requester", CreateRequest{RecipientID: f.bob.MemberID, SkillOffered: "Go", SkillWanted: "Design"}, ErrSkillNotOffered},
		{"not offered by recipient", CreateRequest{RecipientID: f.bob.MemberID, SkillOffered: "Python", SkillWanted: "Python"}, ErrSkillNotAvailable},
		{"unknown recipient", CreateRequest{RecipientID: "nobody", SkillOffered: "Python", SkillWanted: "Design"}, member.ErrMemberNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Create(ctx, f.alice, tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestBannedMembers(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.pending(t)

	_, _, err := f.members.SetBanned(ctx, f.bob.MemberID, true)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, f.bob, r.ID)
	assert.ErrorIs(t, err, ErrMemberBanned)

	_, err = f.svc.Create(ctx, f.bob, CreateRequest{RecipientID: f.alice.MemberID, SkillOffered: "Design", SkillWanted: "Python"})
	assert.ErrorIs(t, err, ErrMemberBanned)

	_, err = f.svc.Create(ctx, f.alice, CreateRequest{RecipientID: f.bob.MemberID, SkillOffered: "Python", SkillWanted: "Design"})
	assert.ErrorIs(t, err, ErrRecipientBanned)
}

func TestAcceptIsIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.pending(t)

	first, err := f.svc.Accept(ctx, f.bob, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, first.Status)

	second, err := f.svc.Accept(ctx, f.bob, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, second.Status)
	assert.Equal(t, first.Version, second.Version)

	assert.Len(t, f.pub.OfType(events.RequestAccepted), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.transitions.WithLabelValues("accept", "noop")))
}

func TestRejectAfterAccept(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.pending(t)

	_, err := f.svc.Accept(ctx, f.bob, r.ID)
	require.NoError(t, err)

	_, err = f.svc.Reject(ctx, f.bob, r.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	got, err := f.svc.Get(ctx, f.alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, got.Status)
}

func TestLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.pending(t)

	_, err := f.svc.Cancel(ctx, f.bob, r.ID)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	_, err = f.svc.Complete(ctx, f.alice, r.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	_, err = f.svc.Accept(ctx, f.bob, r.ID)
	require.NoError(t, err)

	done, err := f.svc.Complete(ctx, f.alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, done.Status)

	again, err := f.svc.Complete(ctx, f.bob, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, again.Status)

	_, err = f.svc.ForceCancel(ctx, f.admin, r.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestForceCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.pending(t)

	_, err := f.svc.ForceCancel(ctx, f.alice, r.ID)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	got, err := f.svc.ForceCancel(ctx, f.admin, r.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, got.Status)
	assert.Equal(t, ReasonModeration, got.CancelReason)

	_, err = f.svc.Accept(ctx, f.bob, r.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	forced := f.pub.OfType(events.RequestForceCancelled)
	require.Len(t, forced, 1)
	assert.Equal(t, ReasonModeration, forced[0].Payload["reason"])
}

func TestCancelAfterForceCancel(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.pending(t)

	_, err := f.svc.ForceCancel(ctx, f.admin, r.ID)
	require.NoError(t, err)

	_, err = f.svc.Cancel(ctx, f.alice, r.ID)
	assert.ErrorIs(t, err, ErrModerated)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	withdrawn := f.pending(t)
	_, err = f.svc.Cancel(ctx, f.alice, withdrawn.ID)
	require.NoError(t, err)
	again, err := f.svc.Cancel(ctx, f.alice, withdrawn.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCancelled, again.Status)
	assert.Empty(t, again.CancelReason)
}

// banningMembers bans the watched member right after handing out its
// unbanned record, as if a ban landed between the check and the insert.
type banningMembers struct {
	*member.Service
	watch string
	once  sync.Once
}

func (b *banningMembers) Get(ctx context.Context, id string) (*member.Member, error) {
	m, err := b.Service.Get(ctx, id)
	if err != nil || id != b.watch {
		return m, err
	}
	b.once.Do(func() {
		_, _, err = b.Service.SetBanned(ctx, id, true)
	})
	return m, err
}

func TestCreateRacingBanIsCancelled(t *testing.T) {
	tests := []struct {
		name  string
		watch func(f *fixture) string
		want  error
	}{
		{"requester", func(f *fixture) string { return f.alice.MemberID }, ErrMemberBanned},
		{"recipient", func(f *fixture) string { return f.bob.MemberID }, ErrRecipientBanned},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			ids, err := idgen.New(2)
			require.NoError(t, err)

			members := &banningMembers{Service: f.members, watch: tt.watch(f)}
			svc := NewService(f.repo, members, ids, nil, nil, logger.NewNop())

			_, err = svc.Create(ctx, f.alice, CreateRequest{
				RecipientID:  f.bob.MemberID,
				SkillOffered: "Python",
				SkillWanted:  "Design",
			})
			assert.ErrorIs(t, err, tt.want)

			requests, err := f.repo.ListByMember(ctx, f.alice.MemberID)
			require.NoError(t, err)
			require.Len(t, requests, 1)
			assert.Equal(t, StatusCancelled, requests[0].Status)
			assert.Equal(t, ReasonModeration, requests[0].CancelReason)
		})
	}
}

func TestCompareAndSwapConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.pending(t)

	stale, err := f.repo.GetByID(ctx, r.ID)
	require.NoError(t, err)

	_, err = f.svc.Accept(ctx, f.bob, r.ID)
	require.NoError(t, err)

	stale.Status = StatusRejected
	err = f.repo.CompareAndSwap(ctx, stale, StatusPending, stale.Version)
	assert.ErrorIs(t, err, errs.ErrConflict)
	assert.True(t, errs.Retryable(err))

	err = f.repo.CompareAndSwap(ctx, &SwapRequest{ID: 42}, StatusPending, 0)
	assert.ErrorIs(t, err, ErrRequestNotFound)
}

func TestConcurrentAcceptAndReject(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	for i := 0; i < 20; i++ {
		r := f.pending(t)

		var wg sync.WaitGroup
		results := make([]error, 2)
		for j, tr := range []Transition{TransitionAccept, TransitionReject} {
			wg.Add(1)
			go func(j int, tr Transition) {
				defer wg.Done()
				_, results[j] = f.svc.Transition(ctx, f.bob, r.ID, tr)
			}(j, tr)
		}
		wg.Wait()

		got, err := f.repo.GetByID(ctx, r.ID)
		require.NoError(t, err)
		require.Contains(t, []Status{StatusAccepted, StatusRejected}, got.Status)
		assert.Equal(t, int64(1), got.Version, "exactly one write wins")

		wins := 0
		for _, err := range results {
			if err == nil {
				wins++
				continue
			}
			if !errs.Retryable(err) {
				assert.ErrorIs(t, err, errs.ErrInvalidTransition)
			}
		}
		assert.Equal(t, 1, wins)
	}
}

func TestRandomTransitionsNeverLeaveTerminal(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	rng := rand.New(rand.NewSource(7))

	transitions := []Transition{TransitionAccept, TransitionReject, TransitionCancel, TransitionComplete, TransitionForceCancel}
	actors := []identity.Actor{f.alice, f.bob, f.admin}

	for i := 0; i < 50; i++ {
		r := f.pending(t)
		var terminal Status

		for step := 0; step < 12; step++ {
			tr := transitions[rng.Intn(len(transitions))]
			actor := actors[rng.Intn(len(actors))]
			_, _ = f.svc.Transition(ctx, actor, r.ID, tr)

			got, err := f.repo.GetByID(ctx, r.ID)
			require.NoError(t, err)
			require.Contains(t, Statuses, got.Status)

			if terminal != "" {
				require.Equal(t, terminal, got.Status, "terminal status changed")
			} else if got.Status.Terminal() {
				terminal = got.Status
			}
		}
	}
}

func TestListForMember(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	first := f.pending(t)
	second := f.pending(t)
	_, err := f.svc.Accept(ctx, f.bob, second.ID)
	require.NoError(t, err)

	ids := func(rs []*SwapRequest) []int64 {
		out := make([]int64, len(rs))
		for i, r := range rs {
			out[i] = r.ID
		}
		return out
	}

	incoming, err := f.svc.ListForMember(ctx, f.bob, ViewIncoming)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID}, ids(incoming))

	outgoing, err := f.svc.ListForMember(ctx, f.alice, ViewOutgoing)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID, second.ID}, ids(outgoing))

	active, err := f.svc.ListForMember(ctx, f.alice, ViewActive)
	require.NoError(t, err)
	assert.Equal(t, []int64{second.ID}, ids(active))

	open, err := f.svc.ListActiveByMember(ctx, f.alice.MemberID)
	require.NoError(t, err)
	assert.Equal(t, []int64{first.ID, second.ID}, ids(open))

	_, err = f.svc.ListForMember(ctx, f.alice, View("sideways"))
	assert.ErrorIs(t, err, ErrInvalidView)

	counts, err := f.svc.CountByStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, counts[StatusPending])
	assert.Equal(t, 1, counts[StatusAccepted])
	assert.Equal(t, 0, counts[StatusCompleted])
}

func TestGetHidesOtherMembersRequests(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	r := f.pending(t)
	eve := f.register(t, "eve", nil, nil)

	_, err := f.svc.Get(ctx, eve, r.ID)
	assert.ErrorIs(t, err, ErrRequestNotFound)

	_, err = f.svc.Get(ctx, f.admin, r.ID)
	assert.NoError(t, err)
}
