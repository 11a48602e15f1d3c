package moderation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"skillswap/internal/errs"
	"skillswap/internal/events"
	"skillswap/internal/identity"
	"skillswap/internal/service/member"
	"skillswap/internal/service/swap"
	"skillswap/pkg/idgen"
	"skillswap/pkg/logger"
)

// FlagInappropriate is recorded on submissions matching a flag term.
const FlagInappropriate = "Potentially inappropriate content"

// Members is the part of the profile store moderation drives.
type Members interface {
	Get(ctx context.Context, id string) (*member.Member, error)
	List(ctx context.Context) ([]*member.Member, error)
	AddSkill(ctx context.Context, id string, direction member.Direction, skill string) (*member.Member, error)
	SetBanned(ctx context.Context, id string, banned bool) (*member.Member, bool, error)
}

// Swaps is the part of the state machine moderation drives.
type Swaps interface {
	ListActiveByMember(ctx context.Context, memberID string) ([]*swap.SwapRequest, error)
	ForceCancel(ctx context.Context, actor identity.Actor, id int64) (*swap.SwapRequest, error)
	CountByStatus(ctx context.Context) (map[swap.Status]int, error)
}

type Service struct {
	reports     ReportRepository
	submissions SubmissionRepository
	members     Members
	swaps       Swaps
	ids         idgen.Generator
	events      *events.Emitter
	metrics     *Metrics
	logger      logger.Logger
	flagTerms   []string
	now         func() time.Time
}

type Option func(*Service)

// WithFlagTerms flags submitted skills whose text contains any of terms.
func WithFlagTerms(terms ...string) Option {
	return func(s *Service) {
		for _, t := range terms {
			if t = strings.ToLower(strings.TrimSpace(t)); t != "" {
				s.flagTerms = append(s.flagTerms, t)
			}
		}
	}
}

func NewService(
	reports ReportRepository,
	submissions SubmissionRepository,
	members Members,
	swaps Swaps,
	ids idgen.Generator,
	emitter *events.Emitter,
	metrics *Metrics,
	log logger.Logger,
	opts ...Option,
) *Service {
	s := &Service{
		reports:     reports,
		submissions: submissions,
		members:     members,
		swaps:       swaps,
		ids:         ids,
		events:      emitter,
		metrics:     metrics,
		logger:      log,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func requireAdmin(actor identity.Actor) error {
	if !actor.Admin {
		return ErrAdminOnly
	}
	return nil
}

// SubmitReport files a report by actor against another member.
func (s *Service) SubmitReport(ctx context.Context, actor identity.Actor, req SubmitReportRequest) (*Report, error) {
	reportedID := strings.TrimSpace(req.ReportedID)
	if reportedID == actor.MemberID {
		return nil, ErrSelfReport
	}
	if !req.Reason.Valid() {
		return nil, ErrInvalidReason
	}
	if _, err := s.members.Get(ctx, reportedID); err != nil {
		return nil, err
	}

	report := &Report{
		ID:          s.ids.NextID(),
		ReportedID:  reportedID,
		ReporterID:  actor.MemberID,
		Reason:      req.Reason,
		Description: strings.TrimSpace(req.Description),
		Status:      ReportPending,
	}
	if err := s.reports.Create(ctx, report); err != nil {
		s.logger.Error(ctx, "failed to create report",
			logger.Field{Key: "reported_id", Value: reportedID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	s.events.Emit(ctx, events.ReportSubmitted, []string{report.ReportedID, report.ReporterID}, map[string]any{
		"report_id": strconv.FormatInt(report.ID, 10),
		"reason":    string(report.Reason),
	})
	s.logger.Info(ctx, "report submitted",
		logger.Field{Key: "report_id", Value: report.ID},
		logger.Field{Key: "reported_id", Value: report.ReportedID},
		logger.Field{Key: "reason", Value: string(report.Reason)},
	)
	return report, nil
}

// SubmitSkill queues a skill for admin review.
func (s *Service) SubmitSkill(ctx context.Context, actor identity.Actor, req SubmitSkillRequest) (*SkillSubmission, error) {
	skill := strings.TrimSpace(req.Skill)
	if skill == "" {
		return nil, ErrEmptySkill
	}
	if !req.Direction.Valid() {
		return nil, member.ErrInvalidDirection
	}
	if _, err := s.members.Get(ctx, actor.MemberID); err != nil {
		return nil, err
	}

	sub := &SkillSubmission{
		ID:          s.ids.NextID(),
		MemberID:    actor.MemberID,
		Skill:       skill,
		Description: strings.TrimSpace(req.Description),
		Direction:   req.Direction,
		FlagReason:  s.flag(skill, req.Description),
		Status:      SubmissionPending,
	}
	if err := s.submissions.Create(ctx, sub); err != nil {
		s.logger.Error(ctx, "failed to create skill submission",
			logger.Field{Key: "member_id", Value: actor.MemberID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	s.logger.Info(ctx, "skill submitted",
		logger.Field{Key: "submission_id", Value: sub.ID},
		logger.Field{Key: "member_id", Value: sub.MemberID},
		logger.Field{Key: "flagged", Value: sub.FlagReason != ""},
	)
	return sub, nil
}

func (s *Service) flag(texts ...string) string {
	for _, text := range texts {
		text = strings.ToLower(text)
		for _, term := range s.flagTerms {
			if strings.Contains(text, term) {
				return FlagInappropriate
			}
		}
	}
	return ""
}

// ListPendingReports returns reports awaiting review, oldest first.
func (s *Service) ListPendingReports(ctx context.Context, actor identity.Actor) ([]*Report, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.reports.ListByStatus(ctx, ReportPending)
}

// ListPendingSubmissions returns skill submissions awaiting review, oldest first.
func (s *Service) ListPendingSubmissions(ctx context.Context, actor identity.Actor) ([]*SkillSubmission, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.submissions.ListByStatus(ctx, SubmissionPending)
}

// ApproveSkill copies the submitted skill into its owner's profile and
// closes the submission.
func (s *Service) ApproveSkill(ctx context.Context, actor identity.Actor, id int64) (*SkillSubmission, error) {
	sub, err := s.approveSkill(ctx, actor, id)
	s.metrics.observe("approve_skill", err)
	return sub, err
}

func (s *Service) approveSkill(ctx context.Context, actor identity.Actor, id int64) (*SkillSubmission, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != SubmissionPending {
		return nil, ErrSubmissionReviewed
	}

	// Adding a skill the member already has is a no-op, so a retry after a
	// failed status write below is safe.
	if _, err := s.members.AddSkill(ctx, sub.MemberID, sub.Direction, sub.Skill); err != nil {
		s.logger.Error(ctx, "failed to add approved skill",
			logger.Field{Key: "submission_id", Value: id},
			logger.Field{Key: "member_id", Value: sub.MemberID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	if err := s.closeSubmission(ctx, actor, sub, SubmissionApproved, ""); err != nil {
		return nil, err
	}

	s.events.Emit(ctx, events.SkillApproved, []string{sub.MemberID}, map[string]any{
		"submission_id": strconv.FormatInt(sub.ID, 10),
		"skill":         sub.Skill,
		"direction":     string(sub.Direction),
	})
	return sub, nil
}

// RejectSkill closes a submission without touching the member's skills.
func (s *Service) RejectSkill(ctx context.Context, actor identity.Actor, id int64, reason string) (*SkillSubmission, error) {
	sub, err := s.rejectSkill(ctx, actor, id, reason)
	s.metrics.observe("reject_skill", err)
	return sub, err
}

func (s *Service) rejectSkill(ctx context.Context, actor identity.Actor, id int64, reason string) (*SkillSubmission, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	sub, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.Status != SubmissionPending {
		return nil, ErrSubmissionReviewed
	}

	if err := s.closeSubmission(ctx, actor, sub, SubmissionRejected, strings.TrimSpace(reason)); err != nil {
		return nil, err
	}

	s.events.Emit(ctx, events.SkillRejected, []string{sub.MemberID}, map[string]any{
		"submission_id": strconv.FormatInt(sub.ID, 10),
		"skill":         sub.Skill,
		"reason":        sub.RejectionReason,
	})
	return sub, nil
}

func (s *Service) closeSubmission(ctx context.Context, actor identity.Actor, sub *SkillSubmission, status SubmissionStatus, reason string) error {
	now := s.now()
	sub.Status = status
	sub.RejectionReason = reason
	sub.ReviewedBy = actor.MemberID
	sub.ReviewedAt = &now

	if err := s.submissions.CompareAndSwap(ctx, sub, SubmissionPending); err != nil {
		if !errors.Is(err, errs.ErrAlreadyProcessed) {
			s.logger.Error(ctx, "failed to update skill submission",
				logger.Field{Key: "submission_id", Value: sub.ID},
				logger.Field{Key: "error", Value: err},
			)
		}
		return err
	}

	s.logger.Info(ctx, "skill submission reviewed",
		logger.Field{Key: "submission_id", Value: sub.ID},
		logger.Field{Key: "status", Value: string(status)},
		logger.Field{Key: "admin_id", Value: actor.MemberID},
	)
	return nil
}

// ResolveReport marks a pending report as acted upon.
func (s *Service) ResolveReport(ctx context.Context, actor identity.Actor, id int64) (*Report, error) {
	r, err := s.closeReport(ctx, actor, id, ReportResolved, events.ReportResolved)
	s.metrics.observe("resolve_report", err)
	return r, err
}

// DismissReport marks a pending report as not requiring action.
func (s *Service) DismissReport(ctx context.Context, actor identity.Actor, id int64) (*Report, error) {
	r, err := s.closeReport(ctx, actor, id, ReportDismissed, events.ReportDismissed)
	s.metrics.observe("dismiss_report", err)
	return r, err
}

func (s *Service) closeReport(ctx context.Context, actor identity.Actor, id int64, status ReportStatus, eventType string) (*Report, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	report, err := s.reports.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if report.Status != ReportPending {
		return nil, ErrReportProcessed
	}

	now := s.now()
	report.Status = status
	report.ReviewedBy = actor.MemberID
	report.ReviewedAt = &now
	if err := s.reports.CompareAndSwap(ctx, report, ReportPending); err != nil {
		return nil, err
	}

	s.events.Emit(ctx, eventType, []string{report.ReportedID, report.ReporterID}, map[string]any{
		"report_id": strconv.FormatInt(report.ID, 10),
	})
	s.logger.Info(ctx, "report reviewed",
		logger.Field{Key: "report_id", Value: id},
		logger.Field{Key: "status", Value: string(status)},
		logger.Field{Key: "admin_id", Value: actor.MemberID},
	)
	return report, nil
}

// BanMember bans the member, then force-cancels each of their pending and
// accepted requests in ascending id order. Cancellations are independent:
// one failing does not stop the rest, and calling BanMember again on an
// already banned member retries whatever is still active.
func (s *Service) BanMember(ctx context.Context, actor identity.Actor, memberID string) (*BanResult, error) {
	res, err := s.banMember(ctx, actor, memberID)
	s.metrics.observe("ban", err)
	return res, err
}

func (s *Service) banMember(ctx context.Context, actor identity.Actor, memberID string) (*BanResult, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	m, changed, err := s.members.SetBanned(ctx, memberID, true)
	if err != nil {
		return nil, err
	}

	active, err := s.swaps.ListActiveByMember(ctx, memberID)
	if err != nil {
		s.logger.Error(ctx, "failed to list requests for banned member",
			logger.Field{Key: "member_id", Value: memberID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	result := &BanResult{
		Member:    m,
		Changed:   changed,
		Cancelled: make([]CancelOutcome, 0, len(active)),
	}
	for _, r := range active {
		outcome := CancelOutcome{RequestID: r.ID, Status: r.Status}
		cancelled, err := s.swaps.ForceCancel(ctx, actor, r.ID)
		if err != nil {
			outcome.Error = err.Error()
			outcome.Retryable = errs.Retryable(err)
			s.logger.Warn(ctx, "failed to force-cancel request",
				logger.Field{Key: "member_id", Value: memberID},
				logger.Field{Key: "request_id", Value: r.ID},
				logger.Field{Key: "error", Value: err},
			)
		} else {
			outcome.Status = cancelled.Status
		}
		result.Cancelled = append(result.Cancelled, outcome)
	}

	if changed {
		s.events.Emit(ctx, events.MemberBanned, []string{memberID}, map[string]any{
			"cancelled_requests": len(result.Cancelled),
		})
	}
	s.logger.Info(ctx, "member banned",
		logger.Field{Key: "member_id", Value: memberID},
		logger.Field{Key: "admin_id", Value: actor.MemberID},
		logger.Field{Key: "changed", Value: changed},
		logger.Field{Key: "cancelled_requests", Value: len(result.Cancelled)},
		logger.Field{Key: "partial", Value: result.Failed()},
	)
	return result, nil
}

// UnbanMember lifts a ban. Requests cancelled by the ban stay cancelled.
func (s *Service) UnbanMember(ctx context.Context, actor identity.Actor, memberID string) (*member.Member, error) {
	m, err := s.unbanMember(ctx, actor, memberID)
	s.metrics.observe("unban", err)
	return m, err
}

func (s *Service) unbanMember(ctx context.Context, actor identity.Actor, memberID string) (*member.Member, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	m, changed, err := s.members.SetBanned(ctx, memberID, false)
	if err != nil {
		return nil, err
	}
	if changed {
		s.events.Emit(ctx, events.MemberUnbanned, []string{memberID}, nil)
		s.logger.Info(ctx, "member unbanned",
			logger.Field{Key: "member_id", Value: memberID},
			logger.Field{Key: "admin_id", Value: actor.MemberID},
		)
	}
	return m, nil
}

// Broadcast sends a platform message to every member who is not banned.
// Returns the number of recipients.
func (s *Service) Broadcast(ctx context.Context, actor identity.Actor, message string) (int, error) {
	if err := requireAdmin(actor); err != nil {
		return 0, err
	}
	message = strings.TrimSpace(message)
	if message == "" {
		return 0, ErrEmptyBroadcast
	}

	all, err := s.members.List(ctx)
	if err != nil {
		return 0, err
	}
	recipients := make([]string, 0, len(all))
	for _, m := range all {
		if !m.Banned {
			recipients = append(recipients, m.ID)
		}
	}

	s.events.Emit(ctx, events.PlatformBroadcast, recipients, map[string]any{
		"message": message,
		"from":    actor.MemberID,
	})
	s.metrics.observe("broadcast", nil)
	s.logger.Info(ctx, "platform message broadcast",
		logger.Field{Key: "admin_id", Value: actor.MemberID},
		logger.Field{Key: "recipients", Value: len(recipients)},
	)
	return len(recipients), nil
}

// Overview summarises platform activity for an admin.
func (s *Service) Overview(ctx context.Context, actor identity.Actor) (*Overview, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.Snapshot(ctx)
}

// Snapshot computes the overview without an actor; used by scheduled jobs.
func (s *Service) Snapshot(ctx context.Context) (*Overview, error) {
	all, err := s.members.List(ctx)
	if err != nil {
		return nil, err
	}
	swaps, err := s.swaps.CountByStatus(ctx)
	if err != nil {
		return nil, err
	}
	reports, err := s.reports.ListByStatus(ctx, ReportPending)
	if err != nil {
		return nil, err
	}
	submissions, err := s.submissions.ListByStatus(ctx, SubmissionPending)
	if err != nil {
		return nil, err
	}

	o := &Overview{
		Members:            len(all),
		Swaps:              swaps,
		PendingReports:     len(reports),
		PendingSubmissions: len(submissions),
		GeneratedAt:        s.now(),
	}
	for _, m := range all {
		if m.Banned {
			o.BannedMembers++
		}
	}
	return o, nil
}
