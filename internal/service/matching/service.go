package matching

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"skillswap/internal/service/member"
	"skillswap/pkg/cache"
	"skillswap/pkg/logger"
)

// DefaultCacheTTL bounds how stale cached matches can get when a
// candidate's skills, not the member's, change.
const DefaultCacheTTL = 5 * time.Minute

// Members is the slice of the profile store the engine reads.
type Members interface {
	Get(ctx context.Context, id string) (*member.Member, error)
	ListPublic(ctx context.Context) ([]*member.Member, error)
}

type Service struct {
	members Members
	matcher Matcher
	cache   cache.Cache
	ttl     time.Duration
	logger  logger.Logger
}

func NewService(members Members, matcher Matcher, cache cache.Cache, ttl time.Duration, logger logger.Logger) *Service {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Service{
		members: members,
		matcher: matcher,
		cache:   cache,
		ttl:     ttl,
		logger:  logger,
	}
}

// FindMatches returns ranked swap candidates for the member, served from
// cache when possible. Cached entries are checked against the current
// catalog so banned or hidden candidates drop out before the TTL ends.
func (s *Service) FindMatches(ctx context.Context, memberID string) ([]Match, error) {
	key := member.MatchesCacheKey(memberID)
	if matches, ok := s.cached(ctx, key); ok {
		return s.refresh(ctx, matches)
	}

	me, err := s.members.Get(ctx, memberID)
	if err != nil {
		return nil, err
	}

	matches, err := s.matcher.FindMatches(ctx, me)
	if err != nil {
		s.logger.Error(ctx, "failed to find matches",
			logger.Field{Key: "member_id", Value: memberID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	s.store(ctx, key, matches)
	s.logger.Debug(ctx, "matches computed",
		logger.Field{Key: "member_id", Value: memberID},
		logger.Field{Key: "count", Value: len(matches)},
	)
	return matches, nil
}

// refresh drops cached matches whose candidate left the public catalog and
// swaps in the current candidate records.
func (s *Service) refresh(ctx context.Context, matches []Match) ([]Match, error) {
	catalog, err := s.members.ListPublic(ctx)
	if err != nil {
		return nil, err
	}

	current := make(map[string]*member.Member, len(catalog))
	for _, m := range catalog {
		current[m.ID] = m
	}

	out := matches[:0]
	for _, match := range matches {
		if match.Candidate == nil {
			continue
		}
		candidate, ok := current[match.Candidate.ID]
		if !ok || candidate.Banned || !candidate.Public {
			continue
		}
		match.Candidate = candidate
		out = append(out, match)
	}
	return out, nil
}

// Search browses the public catalog on behalf of actorID.
func (s *Service) Search(ctx context.Context, actorID, term string, filter Filter) ([]*member.Member, error) {
	if filter == "" {
		filter = FilterAll
	}
	if !filter.Valid() {
		return nil, ErrInvalidFilter
	}

	catalog, err := s.members.ListPublic(ctx)
	if err != nil {
		return nil, err
	}
	return Search(catalog, actorID, term, filter), nil
}

func (s *Service) cached(ctx context.Context, key string) ([]Match, bool) {
	if s.cache == nil {
		return nil, false
	}

	data, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.Warn(ctx, "match cache read failed",
				logger.Field{Key: "key", Value: key},
				logger.Field{Key: "error", Value: err},
			)
		}
		return nil, false
	}

	var matches []Match
	if err := json.Unmarshal(data, &matches); err != nil {
		s.logger.Warn(ctx, "discarding corrupt match cache entry", logger.Field{Key: "key", Value: key})
		return nil, false
	}
	return matches, true
}

func (s *Service) store(ctx context.Context, key string, matches []Match) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(matches)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, data, s.ttl); err != nil {
		s.logger.Warn(ctx, "match cache write failed",
			logger.Field{Key: "key", Value: key},
			logger.Field{Key: "error", Value: err},
		)
	}
}
