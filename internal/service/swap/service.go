package swap

import (
	"context"
	"errors"
	"strconv"
	"strings"

	"skillswap/internal/events"
	"skillswap/internal/identity"
	"skillswap/internal/service/member"
	"skillswap/pkg/idgen"
	"skillswap/pkg/logger"
)

// Members is the slice of the profile store the state machine reads.
type Members interface {
	Get(ctx context.Context, id string) (*member.Member, error)
}

type Service struct {
	repo    Repository
	members Members
	ids     idgen.Generator
	events  *events.Emitter
	metrics *Metrics
	logger  logger.Logger
}

func NewService(repo Repository, members Members, ids idgen.Generator, emitter *events.Emitter, metrics *Metrics, log logger.Logger) *Service {
	return &Service{
		repo:    repo,
		members: members,
		ids:     ids,
		events:  emitter,
		metrics: metrics,
		logger:  log,
	}
}

// Create opens a pending request from the actor to req.RecipientID. Skill
// names are stored in the spelling of the profile that owns them.
func (s *Service) Create(ctx context.Context, actor identity.Actor, req CreateRequest) (*SwapRequest, error) {
	r, err := s.create(ctx, actor, req)
	s.metrics.observe("create", err)
	return r, err
}

func (s *Service) create(ctx context.Context, actor identity.Actor, req CreateRequest) (*SwapRequest, error) {
	recipientID := strings.TrimSpace(req.RecipientID)
	if recipientID == actor.MemberID {
		return nil, ErrSelfRequest
	}
	if strings.TrimSpace(req.SkillOffered) == "" || strings.TrimSpace(req.SkillWanted) == "" {
		return nil, ErrEmptySkill
	}

	requester, err := s.members.Get(ctx, actor.MemberID)
	if err != nil {
		return nil, err
	}
	if requester.Banned {
		return nil, ErrMemberBanned
	}

	recipient, err := s.members.Get(ctx, recipientID)
	if err != nil {
		return nil, err
	}
	if recipient.Banned {
		return nil, ErrRecipientBanned
	}

	offered, ok := requester.Offered.Lookup(req.SkillOffered)
	if !ok {
		return nil, ErrSkillNotOffered
	}
	wanted, ok := recipient.Offered.Lookup(req.SkillWanted)
	if !ok {
		return nil, ErrSkillNotAvailable
	}

	r := &SwapRequest{
		ID:           s.ids.NextID(),
		RequesterID:  requester.ID,
		RecipientID:  recipient.ID,
		SkillOffered: offered,
		SkillWanted:  wanted,
		Message:      strings.TrimSpace(req.Message),
		Status:       StatusPending,
	}

	if err := s.repo.Create(ctx, r); err != nil {
		s.logger.Error(ctx, "failed to create swap request",
			logger.Field{Key: "requester_id", Value: r.RequesterID},
			logger.Field{Key: "recipient_id", Value: r.RecipientID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	if err := s.recheckBans(ctx, r); err != nil {
		return nil, err
	}

	s.events.Emit(ctx, events.RequestCreated, []string{r.RequesterID, r.RecipientID}, map[string]any{
		"request_id":    strconv.FormatInt(r.ID, 10),
		"skill_offered": r.SkillOffered,
		"skill_wanted":  r.SkillWanted,
	})
	s.logger.Info(ctx, "swap request created",
		logger.Field{Key: "request_id", Value: r.ID},
		logger.Field{Key: "requester_id", Value: r.RequesterID},
		logger.Field{Key: "recipient_id", Value: r.RecipientID},
	)
	return r, nil
}

// recheckBans closes the window between the ban checks above and the
// insert: a ban cascade that listed active requests before r existed
// would miss it, so r is cancelled here instead.
func (s *Service) recheckBans(ctx context.Context, r *SwapRequest) error {
	var banErr error
	for _, id := range []string{r.RequesterID, r.RecipientID} {
		m, err := s.members.Get(ctx, id)
		if err != nil {
			return err
		}
		if m.Banned {
			banErr = ErrMemberBanned
			if id == r.RecipientID {
				banErr = ErrRecipientBanned
			}
			break
		}
	}
	if banErr == nil {
		return nil
	}

	expectedVersion := r.Version
	r.Status = StatusCancelled
	r.CancelReason = ReasonModeration
	err := s.repo.CompareAndSwap(ctx, r, StatusPending, expectedVersion)
	if err != nil && !errors.Is(err, ErrRequestConflict) {
		s.logger.Error(ctx, "failed to cancel request created during a ban",
			logger.Field{Key: "request_id", Value: r.ID},
			logger.Field{Key: "error", Value: err},
		)
		return err
	}
	s.logger.Warn(ctx, "request created during a ban was cancelled",
		logger.Field{Key: "request_id", Value: r.ID},
		logger.Field{Key: "requester_id", Value: r.RequesterID},
		logger.Field{Key: "recipient_id", Value: r.RecipientID},
	)
	return banErr
}

// Accept moves a pending request to accepted. Recipient only.
func (s *Service) Accept(ctx context.Context, actor identity.Actor, id int64) (*SwapRequest, error) {
	return s.Transition(ctx, actor, id, TransitionAccept)
}

// Reject moves a pending request to rejected. Recipient only.
func (s *Service) Reject(ctx context.Context, actor identity.Actor, id int64) (*SwapRequest, error) {
	return s.Transition(ctx, actor, id, TransitionReject)
}

// Cancel withdraws a pending request. Requester only.
func (s *Service) Cancel(ctx context.Context, actor identity.Actor, id int64) (*SwapRequest, error) {
	return s.Transition(ctx, actor, id, TransitionCancel)
}

// Complete closes an accepted request. Either party.
func (s *Service) Complete(ctx context.Context, actor identity.Actor, id int64) (*SwapRequest, error) {
	return s.Transition(ctx, actor, id, TransitionComplete)
}

// ForceCancel cancels a pending or accepted request on moderation grounds.
// Admin only.
func (s *Service) ForceCancel(ctx context.Context, actor identity.Actor, id int64) (*SwapRequest, error) {
	return s.Transition(ctx, actor, id, TransitionForceCancel)
}

// Transition applies t to request id on behalf of actor. Re-applying a
// transition whose target status is already current returns the request
// unchanged. A lost race returns ErrRequestConflict; the caller re-reads
// and decides whether to retry.
func (s *Service) Transition(ctx context.Context, actor identity.Actor, id int64, t Transition) (*SwapRequest, error) {
	r, noop, err := s.transition(ctx, actor, id, t)
	if noop {
		s.metrics.noop(string(t))
	} else {
		s.metrics.observe(string(t), err)
	}
	return r, err
}

func (s *Service) transition(ctx context.Context, actor identity.Actor, id int64, t Transition) (*SwapRequest, bool, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, false, err
	}

	if err := Authorize(t, r, actor); err != nil {
		return nil, false, err
	}

	next, noop, err := Next(r.Status, t)
	if err != nil {
		return nil, false, err
	}
	if noop {
		// A requester withdrawing a request that moderation already
		// cancelled learns it was not their cancellation.
		if t == TransitionCancel && r.CancelReason == ReasonModeration {
			return nil, false, ErrModerated
		}
		return r, true, nil
	}

	if t == TransitionAccept {
		recipient, err := s.members.Get(ctx, actor.MemberID)
		if err != nil {
			return nil, false, err
		}
		if recipient.Banned {
			return nil, false, ErrMemberBanned
		}
	}

	expectedStatus, expectedVersion := r.Status, r.Version
	r.Status = next
	if t == TransitionForceCancel {
		r.CancelReason = ReasonModeration
	}

	if err := s.repo.CompareAndSwap(ctx, r, expectedStatus, expectedVersion); err != nil {
		if errors.Is(err, ErrRequestConflict) {
			s.logger.Warn(ctx, "swap request transition lost a race",
				logger.Field{Key: "request_id", Value: id},
				logger.Field{Key: "transition", Value: string(t)},
			)
		} else {
			s.logger.Error(ctx, "failed to update swap request",
				logger.Field{Key: "request_id", Value: id},
				logger.Field{Key: "transition", Value: string(t)},
				logger.Field{Key: "error", Value: err},
			)
		}
		return nil, false, err
	}

	payload := map[string]any{
		"request_id": strconv.FormatInt(r.ID, 10),
		"status":     string(r.Status),
	}
	if r.CancelReason != "" {
		payload["reason"] = r.CancelReason
	}
	s.events.Emit(ctx, t.Event(), []string{r.RequesterID, r.RecipientID}, payload)

	s.logger.Info(ctx, "swap request transitioned",
		logger.Field{Key: "request_id", Value: id},
		logger.Field{Key: "transition", Value: string(t)},
		logger.Field{Key: "from", Value: string(expectedStatus)},
		logger.Field{Key: "to", Value: string(r.Status)},
		logger.Field{Key: "actor_id", Value: actor.MemberID},
	)
	return r, false, nil
}

// Get returns a request visible to actor: its parties and admins.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id int64) (*SwapRequest, error) {
	r, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !r.IsParty(actor.MemberID) && !actor.Admin {
		return nil, ErrRequestNotFound
	}
	return r, nil
}

// ListForMember returns the actor's requests in the given view, by id ascending.
func (s *Service) ListForMember(ctx context.Context, actor identity.Actor, view View) ([]*SwapRequest, error) {
	if view == "" {
		view = ViewAll
	}
	if !view.Valid() {
		return nil, ErrInvalidView
	}

	all, err := s.repo.ListByMember(ctx, actor.MemberID)
	if err != nil {
		s.logger.Error(ctx, "failed to list swap requests",
			logger.Field{Key: "member_id", Value: actor.MemberID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	out := make([]*SwapRequest, 0, len(all))
	for _, r := range all {
		if view.Includes(r, actor.MemberID) {
			out = append(out, r)
		}
	}
	return out, nil
}

// ListActiveByMember returns pending and accepted requests involving
// memberID, by id ascending.
func (s *Service) ListActiveByMember(ctx context.Context, memberID string) ([]*SwapRequest, error) {
	all, err := s.repo.ListByMember(ctx, memberID)
	if err != nil {
		return nil, err
	}

	out := make([]*SwapRequest, 0, len(all))
	for _, r := range all {
		if r.Status.Active() {
			out = append(out, r)
		}
	}
	return out, nil
}

// CountByStatus reports how many requests sit in each status.
func (s *Service) CountByStatus(ctx context.Context) (map[Status]int, error) {
	return s.repo.CountByStatus(ctx)
}
