package store

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/darkodi/sitebuilder/internal/logger"
)

// expirer is implemented by backends that keep expired rows until swept
type expirer interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Sweeper periodically deletes expired rows from a SQL-backed KV
type Sweeper struct {
	cron   *cron.Cron
	target expirer
	log    *logger.Logger
}

// NewSweeper schedules target.DeleteExpired on the given cron spec
// (for example "@every 5m").
func NewSweeper(target expirer, spec string, log *logger.Logger) (*Sweeper, error) {
	s := &Sweeper{
		cron:   cron.New(),
		target: target,
		log:    log.Component("store"),
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, fmt.Errorf("invalid sweep schedule %q: %w", spec, err)
	}
	return s, nil
}

// Start begins running the schedule in the background
func (s *Sweeper) Start() {
	s.cron.Start()
	s.log.Info("expiry sweeper started", "entries", len(s.cron.Entries()))
}

// Stop halts the schedule and waits for a running sweep to finish
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Sweeper) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	n, err := s.target.DeleteExpired(ctx)
	if err != nil {
		s.log.Error("expiry sweep failed", "error", err.Error())
		return
	}
	if n > 0 {
		s.log.Debug("expired rows removed", "count", n)
	}
}
