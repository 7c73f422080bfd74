package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DailyPruneSpec        = "0 3 * * *"
	Timezone              = "UTC"
	TimezoneOffsetSeconds = 0
	pruneClipsTimeout     = 5 * time.Minute
)

type ClipPruner interface {
	PruneClips(ctx context.Context, olderThan time.Time) (int64, error)
}

type Scheduler struct {
	ctx       context.Context
	cron      *cron.Cron
	pruner    ClipPruner
	retention time.Duration
	now       func() time.Time
	log       *slog.Logger
}

// New schedules clip pruning. A zero retention keeps clips forever.
func New(ctx context.Context, pruner ClipPruner, retention time.Duration, log *slog.Logger) *Scheduler {
	c := cron.New(cron.WithLocation(time.FixedZone(Timezone, TimezoneOffsetSeconds)))

	return &Scheduler{
		ctx:       ctx,
		cron:      c,
		pruner:    pruner,
		retention: retention,
		now:       time.Now,
		log:       log,
	}
}

func (s *Scheduler) Start() error {
	if s.retention <= 0 {
		s.log.InfoContext(s.ctx, "Clip pruning is disabled")
		return nil
	}

	if _, err := s.cron.AddFunc(DailyPruneSpec, s.pruneClips); err != nil {
		return err
	}

	s.cron.Start()

	return nil
}

func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) pruneClips() {
	ctx, cancel := context.WithTimeout(s.ctx, pruneClipsTimeout)
	defer cancel()

	select {
	case <-ctx.Done():
		s.log.InfoContext(ctx, "Scheduler context is done",
			"error", ctx.Err())
		return
	default:
	}

	olderThan := s.now().UTC().Add(-s.retention)

	pruned, err := s.pruner.PruneClips(ctx, olderThan)
	if err != nil {
		s.log.ErrorContext(ctx, "Failed to prune clips",
			"error", err,
			"olderThan", olderThan)
		return
	}

	s.log.InfoContext(ctx, "Clips are pruned",
		"pruned", pruned,
		"olderThan", olderThan)
}
