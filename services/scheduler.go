// services/scheduler.go
package services

import (
	"context"
	"time"

	"game-session-engine/utils"

	"github.com/go-co-op/gocron/v2"
)

// StartAbandonmentScheduler runs the idle-session sweep every interval.
// Sessions without an action for idleFor are forfeited and settled; sessions
// flagged abandoned elsewhere get their penalty applied.
func (s *SessionService) StartAbandonmentScheduler(interval, idleFor time.Duration) (gocron.Scheduler, error) {
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = sched.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(func() {
			s.SweepOnce(context.Background(), idleFor)
		}),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	sched.Start()
	utils.Log.Infof("⏰ abandonment sweep every %s (idle after %s)", interval, idleFor)
	return sched, nil
}

// SweepOnce is one pass of the abandonment job.
func (s *SessionService) SweepOnce(ctx context.Context, idleFor time.Duration) {
	closed, err := s.AbandonIdle(ctx, idleFor)
	if err != nil {
		utils.Log.WithError(err).Error("[Scheduler] idle sweep failed")
	} else if closed > 0 {
		utils.Log.Infof("🏳️ [Scheduler] abandoned %d idle sessions", closed)
	}

	settled, err := s.SettleAbandoned(ctx)
	if err != nil {
		utils.Log.WithError(err).Error("[Scheduler] abandoned settlement failed")
	} else if settled > 0 {
		utils.Log.Infof("🏁 [Scheduler] settled %d abandoned sessions", settled)
	}
}
