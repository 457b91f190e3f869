package offers

import (
	"context"
	"time"

	"parkslot/pkg/logger"

	"github.com/robfig/cron/v3"
)

const sweepTimeout = 30 * time.Second

// Sweeper periodically removes expired offers from a Store on a cron schedule.
type Sweeper struct {
	cron  *cron.Cron
	store Store
	log   *logger.Logger
}

func NewSweeper(store Store, schedule string, log *logger.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:  cron.New(),
		store: store,
		log:   log,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunOnce); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Sweeper) RunOnce() {
	ctx, cancel := context.WithTimeout(context.Background(), sweepTimeout)
	defer cancel()

	removed, err := s.store.Sweep(ctx)
	if err != nil {
		s.log.Error("Offer sweep failed", "error", err)
		return
	}
	if removed > 0 {
		s.log.Debug("Expired offers removed", "count", removed)
	}
}

func (s *Sweeper) Start() {
	s.cron.Start()
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}
