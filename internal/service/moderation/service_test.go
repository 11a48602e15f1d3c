package moderation

import (
	"context"
	"errors"
	"testing"

	"skillswap/internal/errs"
	"skillswap/internal/events"
	"skillswap/internal/identity"
	"skillswap/internal/service/member"
	"skillswap/internal/service/swap"
	"skillswap/pkg/idgen"
	"skillswap/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	svc     *Service
	members *member.Service
	swaps   *swap.Service
	pub     *events.MemoryPublisher
	metrics *Metrics

	alice, bob, carol identity.Actor
	admin             identity.Actor
}

func newFixture(t *testing.T, wrap func(Swaps) Swaps, opts ...Option) *fixture {
	t.Helper()
	ids, err := idgen.New(3)
	require.NoError(t, err)

	log := logger.NewNop()
	pub := events.NewMemoryPublisher()
	emitter := events.NewEmitter(pub, log)
	members := member.NewService(member.NewMemoryRepository(), ids, nil, emitter, log, member.WithAdminEmails("root@example.com"))
	swaps := swap.NewService(swap.NewMemoryRepository(), members, ids, emitter, nil, log)
	metrics := NewMetrics(prometheus.NewRegistry())

	var s Swaps = swaps
	if wrap != nil {
		s = wrap(swaps)
	}

	f := &fixture{
		svc:     NewService(NewMemoryReportRepository(), NewMemorySubmissionRepository(), members, s, ids, emitter, metrics, log, opts...),
		members: members,
		swaps:   swaps,
		pub:     pub,
		metrics: metrics,
	}
	f.alice = f.register(t, "alice", []string{"Python"}, []string{"Design"})
	f.bob = f.register(t, "bob", []string{"Design"}, []string{"Python"})
	f.carol = f.register(t, "carol", []string{"Design"}, []string{"Python"})
	f.admin = f.register(t, "root", nil, nil)
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

func (f *fixture) request(t *testing.T, from, to identity.Actor, offered, wanted string) *swap.SwapRequest {
	t.Helper()
	r, err := f.swaps.Create(context.Background(), from, swap.CreateRequest{
		RecipientID:  to.MemberID,
		SkillOffered: offered,
		SkillWanted:  wanted,
	})
	require.NoError(t, err)
	return r
}

func TestBanMemberCascade(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	pending := f.request(t, f.alice, f.bob, "Python", "Design")
	accepted := f.request(t, f.carol, f.alice, "Design", "Python")
	_, err := f.swaps.Accept(ctx, f.alice, accepted.ID)
	require.NoError(t, err)
	done := f.request(t, f.alice, f.carol, "Python", "Design")
	_, err = f.swaps.Accept(ctx, f.carol, done.ID)
	require.NoError(t, err)
	_, err = f.swaps.Complete(ctx, f.carol, done.ID)
	require.NoError(t, err)

	res, err := f.svc.BanMember(ctx, f.admin, f.alice.MemberID)
	require.NoError(t, err)
	assert.True(t, res.Changed)
	assert.True(t, res.Member.Banned)
	assert.False(t, res.Failed())
	require.Len(t, res.Cancelled, 2)
	assert.Equal(t, pending.ID, res.Cancelled[0].RequestID)
	assert.Equal(t, accepted.ID, res.Cancelled[1].RequestID)

	for _, id := range []int64{pending.ID, accepted.ID} {
		r, err := f.swaps.Get(ctx, f.admin, id)
		require.NoError(t, err)
		assert.Equal(t, swap.StatusCancelled, r.Status)
		assert.Equal(t, swap.ReasonModeration, r.CancelReason)
	}

	_, err = f.swaps.Accept(ctx, f.bob, pending.ID)
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	r, err := f.swaps.Get(ctx, f.admin, done.ID)
	require.NoError(t, err)
	assert.Equal(t, swap.StatusCompleted, r.Status)

	assert.Len(t, f.pub.OfType(events.MemberBanned), 1)
	assert.Len(t, f.pub.OfType(events.RequestForceCancelled), 2)

	again, err := f.svc.BanMember(ctx, f.admin, f.alice.MemberID)
	require.NoError(t, err)
	assert.False(t, again.Changed)
	assert.Empty(t, again.Cancelled)
	assert.Len(t, f.pub.OfType(events.MemberBanned), 1)
}

type flakySwaps struct {
	Swaps
	failFor map[int64]bool
}

func (f *flakySwaps) ForceCancel(ctx context.Context, actor identity.Actor, id int64) (*swap.SwapRequest, error) {
	if f.failFor[id] {
		return nil, swap.ErrRequestConflict
	}
	return f.Swaps.ForceCancel(ctx, actor, id)
}

func TestBanMemberPartialFailure(t *testing.T) {
	flaky := &flakySwaps{failFor: map[int64]bool{}}
	f := newFixture(t, func(s Swaps) Swaps {
		flaky.Swaps = s
		return flaky
	})
	ctx := context.Background()

	first := f.request(t, f.alice, f.bob, "Python", "Design")
	second := f.request(t, f.alice, f.carol, "Python", "Design")
	flaky.failFor[first.ID] = true

	res, err := f.svc.BanMember(ctx, f.admin, f.alice.MemberID)
	require.NoError(t, err)
	require.True(t, res.Failed())
	require.Len(t, res.Cancelled, 2)
	assert.NotEmpty(t, res.Cancelled[0].Error)
	assert.True(t, res.Cancelled[0].Retryable)
	assert.Equal(t, swap.StatusPending, res.Cancelled[0].Status)
	assert.Equal(t, swap.StatusCancelled, res.Cancelled[1].Status)

	r, err := f.swaps.Get(ctx, f.admin, second.ID)
	require.NoError(t, err)
	assert.Equal(t, swap.StatusCancelled, r.Status)

	delete(flaky.failFor, first.ID)
	retry, err := f.svc.BanMember(ctx, f.admin, f.alice.MemberID)
	require.NoError(t, err)
	assert.False(t, retry.Failed())
	require.Len(t, retry.Cancelled, 1)
	assert.Equal(t, first.ID, retry.Cancelled[0].RequestID)
	assert.Equal(t, swap.StatusCancelled, retry.Cancelled[0].Status)
}

func TestUnbanMember(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()
	r := f.request(t, f.alice, f.bob, "Python", "Design")

	_, err := f.svc.BanMember(ctx, f.admin, f.alice.MemberID)
	require.NoError(t, err)

	m, err := f.svc.UnbanMember(ctx, f.admin, f.alice.MemberID)
	require.NoError(t, err)
	assert.False(t, m.Banned)
	assert.Len(t, f.pub.OfType(events.MemberUnbanned), 1)

	got, err := f.swaps.Get(ctx, f.alice, r.ID)
	require.NoError(t, err)
	assert.Equal(t, swap.StatusCancelled, got.Status)
}

func TestAdminOnly(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.BanMember(ctx, f.alice, f.bob.MemberID)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = f.svc.UnbanMember(ctx, f.alice, f.bob.MemberID)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = f.svc.ApproveSkill(ctx, f.alice, 1)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = f.svc.RejectSkill(ctx, f.alice, 1, "")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = f.svc.ResolveReport(ctx, f.alice, 1)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = f.svc.DismissReport(ctx, f.alice, 1)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = f.svc.ListPendingReports(ctx, f.alice)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = f.svc.ListPendingSubmissions(ctx, f.alice)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = f.svc.Broadcast(ctx, f.alice, "hi")
	assert.ErrorIs(t, err, errs.ErrUnauthorized)
	_, err = f.svc.Overview(ctx, f.alice)
	assert.ErrorIs(t, err, errs.ErrUnauthorized)

	m, err := f.members.Get(ctx, f.bob.MemberID)
	require.NoError(t, err)
	assert.False(t, m.Banned)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.actions.WithLabelValues("ban", "unauthorized")))
}

func TestApproveSkill(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	sub, err := f.svc.SubmitSkill(ctx, f.alice, SubmitSkillRequest{Skill: " Pottery ", Direction: member.DirectionOffered})
	require.NoError(t, err)
	assert.Equal(t, SubmissionPending, sub.Status)
	assert.Equal(t, "Pottery", sub.Skill)

	pending, err := f.svc.ListPendingSubmissions(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, pending, 1)

	approved, err := f.svc.ApproveSkill(ctx, f.admin, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, SubmissionApproved, approved.Status)
	assert.Equal(t, f.admin.MemberID, approved.ReviewedBy)
	assert.NotNil(t, approved.ReviewedAt)

	m, err := f.members.Get(ctx, f.alice.MemberID)
	require.NoError(t, err)
	assert.True(t, m.Offered.Contains("pottery"))
	assert.Len(t, f.pub.OfType(events.SkillApproved), 1)

	_, err = f.svc.ApproveSkill(ctx, f.admin, sub.ID)
	assert.ErrorIs(t, err, errs.ErrAlreadyProcessed)
	_, err = f.svc.RejectSkill(ctx, f.admin, sub.ID, "too late")
	assert.ErrorIs(t, err, errs.ErrAlreadyProcessed)

	pending, err = f.svc.ListPendingSubmissions(ctx, f.admin)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestRejectSkill(t *testing.T) {
	f := newFixture(t, nil, WithFlagTerms("hacking"))
	ctx := context.Background()

	sub, err := f.svc.SubmitSkill(ctx, f.bob, SubmitSkillRequest{
		Skill:       "Advanced Hacking",
		Description: "penetration testing",
		Direction:   member.DirectionWanted,
	})
	require.NoError(t, err)
	assert.Equal(t, FlagInappropriate, sub.FlagReason)

	rejected, err := f.svc.RejectSkill(ctx, f.admin, sub.ID, " not allowed ")
	require.NoError(t, err)
	assert.Equal(t, SubmissionRejected, rejected.Status)
	assert.Equal(t, "not allowed", rejected.RejectionReason)

	m, err := f.members.Get(ctx, f.bob.MemberID)
	require.NoError(t, err)
	assert.False(t, m.Wanted.Contains("Advanced Hacking"))

	_, err = f.svc.ApproveSkill(ctx, f.admin, sub.ID)
	assert.ErrorIs(t, err, errs.ErrAlreadyProcessed)
	_, err = f.svc.ApproveSkill(ctx, f.admin, 12345)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestSubmitSkillValidation(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SubmitSkill(ctx, f.alice, SubmitSkillRequest{Skill: "  ", Direction: member.DirectionOffered})
	assert.ErrorIs(t, err, ErrEmptySkill)
	_, err = f.svc.SubmitSkill(ctx, f.alice, SubmitSkillRequest{Skill: "Go", Direction: "sideways"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}

func TestReports(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.SubmitReport(ctx, f.alice, SubmitReportRequest{ReportedID: f.alice.MemberID, Reason: ReasonSpam})
	assert.ErrorIs(t, err, ErrSelfReport)
	_, err = f.svc.SubmitReport(ctx, f.alice, SubmitReportRequest{ReportedID: f.bob.MemberID, Reason: "rude"})
	assert.ErrorIs(t, err, ErrInvalidReason)
	_, err = f.svc.SubmitReport(ctx, f.alice, SubmitReportRequest{ReportedID: "ghost", Reason: ReasonSpam})
	assert.ErrorIs(t, err, errs.ErrNotFound)

	first, err := f.svc.SubmitReport(ctx, f.alice, SubmitReportRequest{
		ReportedID:  f.bob.MemberID,
		Reason:      ReasonNoShow,
		Description: " never showed up ",
	})
	require.NoError(t, err)
	assert.Equal(t, ReportPending, first.Status)
	assert.Equal(t, "never showed up", first.Description)

	second, err := f.svc.SubmitReport(ctx, f.carol, SubmitReportRequest{ReportedID: f.bob.MemberID, Reason: ReasonHarassment})
	require.NoError(t, err)

	pending, err := f.svc.ListPendingReports(ctx, f.admin)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, first.ID, pending[0].ID)

	resolved, err := f.svc.ResolveReport(ctx, f.admin, first.ID)
	require.NoError(t, err)
	assert.Equal(t, ReportResolved, resolved.Status)

	_, err = f.svc.DismissReport(ctx, f.admin, first.ID)
	assert.ErrorIs(t, err, errs.ErrAlreadyProcessed)
	_, err = f.svc.ResolveReport(ctx, f.admin, first.ID)
	assert.ErrorIs(t, err, errs.ErrAlreadyProcessed)

	dismissed, err := f.svc.DismissReport(ctx, f.admin, second.ID)
	require.NoError(t, err)
	assert.Equal(t, ReportDismissed, dismissed.Status)

	pending, err = f.svc.ListPendingReports(ctx, f.admin)
	require.NoError(t, err)
	assert.Empty(t, pending)

	assert.Len(t, f.pub.OfType(events.ReportSubmitted), 2)
	assert.Len(t, f.pub.OfType(events.ReportResolved), 1)
	assert.Len(t, f.pub.OfType(events.ReportDismissed), 1)
	assert.Equal(t, 1.0, testutil.ToFloat64(f.metrics.actions.WithLabelValues("dismiss_report", "already_processed")))
}

func TestBroadcastAndOverview(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	f.request(t, f.alice, f.bob, "Python", "Design")
	_, err := f.svc.BanMember(ctx, f.admin, f.carol.MemberID)
	require.NoError(t, err)
	_, err = f.svc.SubmitSkill(ctx, f.bob, SubmitSkillRequest{Skill: "Chess", Direction: member.DirectionOffered})
	require.NoError(t, err)
	_, err = f.svc.SubmitReport(ctx, f.bob, SubmitReportRequest{ReportedID: f.alice.MemberID, Reason: ReasonOther})
	require.NoError(t, err)

	_, err = f.svc.Broadcast(ctx, f.admin, "   ")
	assert.ErrorIs(t, err, ErrEmptyBroadcast)

	n, err := f.svc.Broadcast(ctx, f.admin, "Maintenance tonight")
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	broadcasts := f.pub.OfType(events.PlatformBroadcast)
	require.Len(t, broadcasts, 1)
	assert.NotContains(t, broadcasts[0].SubjectIDs, f.carol.MemberID)
	assert.Equal(t, "Maintenance tonight", broadcasts[0].Payload["message"])

	o, err := f.svc.Overview(ctx, f.admin)
	require.NoError(t, err)
	assert.Equal(t, 4, o.Members)
	assert.Equal(t, 1, o.BannedMembers)
	assert.Equal(t, 1, o.Swaps[swap.StatusPending])
	assert.Equal(t, 0, o.Swaps[swap.StatusCancelled])
	assert.Equal(t, 1, o.PendingReports)
	assert.Equal(t, 1, o.PendingSubmissions)
}

func TestMemoryRepositoriesGuardStatus(t *testing.T) {
	ctx := context.Background()
	reports := NewMemoryReportRepository()
	require.NoError(t, reports.Create(ctx, &Report{ID: 1, Status: ReportPending}))

	r := &Report{ID: 1, Status: ReportResolved}
	require.NoError(t, reports.CompareAndSwap(ctx, r, ReportPending))
	err := reports.CompareAndSwap(ctx, &Report{ID: 1, Status: ReportDismissed}, ReportPending)
	assert.True(t, errors.Is(err, ErrReportProcessed))
	assert.ErrorIs(t, reports.CompareAndSwap(ctx, &Report{ID: 2}, ReportPending), ErrReportNotFound)

	subs := NewMemorySubmissionRepository()
	require.NoError(t, subs.Create(ctx, &SkillSubmission{ID: 1, Status: SubmissionPending}))
	require.NoError(t, subs.CompareAndSwap(ctx, &SkillSubmission{ID: 1, Status: SubmissionApproved}, SubmissionPending))
	assert.ErrorIs(t, subs.CompareAndSwap(ctx, &SkillSubmission{ID: 1, Status: SubmissionRejected}, SubmissionPending), ErrSubmissionReviewed)
}
