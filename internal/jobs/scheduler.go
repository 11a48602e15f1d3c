// Package jobs runs background tasks on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"skillswap/internal/events"
	"skillswap/internal/service/moderation"
	"skillswap/pkg/logger"

	"github.com/robfig/cron/v3"
)

// DefaultDigestSchedule runs the platform digest daily at midnight UTC.
const DefaultDigestSchedule = "0 0 * * *"

// OverviewSource computes platform activity snapshots.
type OverviewSource interface {
	Snapshot(ctx context.Context) (*moderation.Overview, error)
}

type Scheduler struct {
	cron     *cron.Cron
	overview OverviewSource
	events   *events.Emitter
	logger   logger.Logger
}

func NewScheduler(overview OverviewSource, emitter *events.Emitter, log logger.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		overview: overview,
		events:   emitter,
		logger:   log,
	}
}

// Start registers the digest job on digestSpec and starts the scheduler.
func (s *Scheduler) Start(ctx context.Context, digestSpec string) error {
	if digestSpec == "" {
		digestSpec = DefaultDigestSchedule
	}

	_, err := s.cron.AddFunc(digestSpec, func() {
		if err := s.RunDigest(ctx); err != nil {
			s.logger.Error(ctx, "platform digest failed", logger.Field{Key: "error", Value: err})
		}
	})
	if err != nil {
		return fmt.Errorf("schedule digest %q: %w", digestSpec, err)
	}

	s.cron.Start()
	s.logger.Info(ctx, "scheduler started", logger.Field{Key: "digest_schedule", Value: digestSpec})
	return nil
}

// RunDigest computes the platform overview and publishes it.
func (s *Scheduler) RunDigest(ctx context.Context) error {
	o, err := s.overview.Snapshot(ctx)
	if err != nil {
		return err
	}

	swaps := make(map[string]int, len(o.Swaps))
	for status, n := range o.Swaps {
		swaps[string(status)] = n
	}

	s.events.Emit(ctx, events.PlatformDigest, nil, map[string]any{
		"members":             o.Members,
		"banned_members":      o.BannedMembers,
		"swaps":               swaps,
		"pending_reports":     o.PendingReports,
		"pending_submissions": o.PendingSubmissions,
		"generated_at":        o.GeneratedAt.Format(time.RFC3339),
	})
	s.logger.Info(ctx, "platform digest published",
		logger.Field{Key: "members", Value: o.Members},
		logger.Field{Key: "pending_reports", Value: o.PendingReports},
	)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
