package rating

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"skillswap/internal/events"
	"skillswap/internal/identity"
	"skillswap/internal/service/member"
	"skillswap/internal/service/swap"
	"skillswap/pkg/logger"
)

// maxClaimAttempts bounds retries when the other party rates the same
// request concurrently.
const maxClaimAttempts = 3

// Members is the part of the profile store the aggregator writes to.
type Members interface {
	Mutate(ctx context.Context, id, op string, fn func(m *member.Member) (bool, error)) (*member.Member, error)
}

type Service struct {
	requests swap.Repository
	members  Members
	events   *events.Emitter
	metrics  *Metrics
	logger   logger.Logger
	now      func() time.Time
}

func NewService(requests swap.Repository, members Members, emitter *events.Emitter, metrics *Metrics, log logger.Logger) *Service {
	return &Service{
		requests: requests,
		members:  members,
		events:   emitter,
		metrics:  metrics,
		logger:   log,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SubmitRating records actor's rating of the other party to a completed
// swap and folds it into that member's aggregate. Each party rates a
// request at most once. Returns the rated member.
func (s *Service) SubmitRating(ctx context.Context, actor identity.Actor, requestID int64, score int, feedback string) (*member.Member, error) {
	if score < MinScore || score > MaxScore {
		return nil, ErrInvalidScore
	}

	review := &swap.Review{
		Score:     score,
		Feedback:  strings.TrimSpace(feedback),
		CreatedAt: s.now().Truncate(time.Microsecond),
	}
	r, err := s.claim(ctx, actor, requestID, review)
	if err != nil {
		return nil, err
	}

	ratedID := r.Counterparty(actor.MemberID)
	rated, err := s.fold(ctx, ratedID, score)
	if err != nil {
		s.logger.Error(ctx, "failed to apply rating to member",
			logger.Field{Key: "request_id", Value: requestID},
			logger.Field{Key: "member_id", Value: ratedID},
			logger.Field{Key: "score", Value: score},
			logger.Field{Key: "error", Value: err},
		)
		s.release(ctx, actor, requestID, review)
		return nil, err
	}

	s.metrics.observe(strconv.Itoa(score))
	s.events.Emit(ctx, events.RatingSubmitted, []string{ratedID, actor.MemberID}, map[string]any{
		"request_id": strconv.FormatInt(requestID, 10),
		"score":      score,
	})
	s.logger.Info(ctx, "rating submitted",
		logger.Field{Key: "request_id", Value: requestID},
		logger.Field{Key: "rater_id", Value: actor.MemberID},
		logger.Field{Key: "rated_id", Value: ratedID},
		logger.Field{Key: "score", Value: score},
	)
	return rated, nil
}

// claim stores the review in actor's slot on the request. A version
// conflict caused by the other party rating at the same time is retried.
func (s *Service) claim(ctx context.Context, actor identity.Actor, requestID int64, review *swap.Review) (*swap.SwapRequest, error) {
	for attempt := 1; attempt <= maxClaimAttempts; attempt++ {
		r, err := s.requests.GetByID(ctx, requestID)
		if err != nil {
			return nil, err
		}
		if !r.IsParty(actor.MemberID) {
			return nil, ErrNotParty
		}
		if r.Status != swap.StatusCompleted {
			return nil, ErrNotCompleted
		}
		if r.ReviewBy(actor.MemberID) != nil {
			return nil, ErrAlreadyRated
		}

		expected := r.Version
		r.SetReviewBy(actor.MemberID, review)
		err = s.requests.CompareAndSwap(ctx, r, swap.StatusCompleted, expected)
		if errors.Is(err, swap.ErrRequestConflict) {
			s.logger.Debug(ctx, "rating claim conflict, retrying",
				logger.Field{Key: "request_id", Value: requestID},
				logger.Field{Key: "attempt", Value: attempt},
			)
			continue
		}
		if err != nil {
			return nil, err
		}
		return r, nil
	}
	return nil, ErrRatingConflict
}

// fold adds score to the member's aggregate. Version conflicts only mean
// another rating landed first, so they are retried until ctx ends.
func (s *Service) fold(ctx context.Context, memberID string, score int) (*member.Member, error) {
	for {
		rated, err := s.members.Mutate(ctx, memberID, "apply rating", func(m *member.Member) (bool, error) {
			m.Rating = Fold(m.Rating, m.CompletedSwaps, score)
			m.CompletedSwaps++
			return true, nil
		})
		if !errors.Is(err, member.ErrMemberConflict) {
			return rated, err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
	}
}

// release clears actor's review slot after the aggregate could not be
// updated, so the rating can be submitted again.
func (s *Service) release(ctx context.Context, actor identity.Actor, requestID int64, review *swap.Review) {
	ctx = context.WithoutCancel(ctx)
	for attempt := 1; attempt <= maxClaimAttempts; attempt++ {
		r, err := s.requests.GetByID(ctx, requestID)
		if err != nil {
			break
		}
		stored := r.ReviewBy(actor.MemberID)
		if stored == nil || !stored.CreatedAt.Equal(review.CreatedAt) || stored.Score != review.Score {
			return
		}

		expected := r.Version
		r.SetReviewBy(actor.MemberID, nil)
		err = s.requests.CompareAndSwap(ctx, r, swap.StatusCompleted, expected)
		if errors.Is(err, swap.ErrRequestConflict) {
			continue
		}
		if err == nil {
			s.logger.Warn(ctx, "rating claim released",
				logger.Field{Key: "request_id", Value: requestID},
				logger.Field{Key: "rater_id", Value: actor.MemberID},
			)
			return
		}
		break
	}
	s.logger.Error(ctx, "failed to release rating claim",
		logger.Field{Key: "request_id", Value: requestID},
		logger.Field{Key: "rater_id", Value: actor.MemberID},
	)
}
