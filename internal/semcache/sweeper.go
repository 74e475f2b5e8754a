package semcache

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Expirer deletes cache entries older than a given age.
type Expirer interface {
	DeleteOlderThan(ctx context.Context, age time.Duration) (int64, error)
}

// Sweeper periodically removes expired cache entries on a cron schedule.
type Sweeper struct {
	cron    *cron.Cron
	expirer Expirer
	ttl     time.Duration
}

// NewSweeper parses spec (seconds field optional) and schedules the sweep.
func NewSweeper(expirer Expirer, spec string, ttl time.Duration) (*Sweeper, error) {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	s := &Sweeper{
		cron:    cron.New(cron.WithParser(parser)),
		expirer: expirer,
		ttl:     ttl,
	}
	if _, err := s.cron.AddFunc(spec, s.Sweep); err != nil {
		return nil, fmt.Errorf("scheduling cache sweep %q: %w", spec, err)
	}
	return s, nil
}

func (s *Sweeper) Start() {
	s.cron.Start()
	slog.Info("semantic cache sweeper started", "ttl", s.ttl)
}

// Stop waits for a running sweep to finish.
func (s *Sweeper) Stop() {
	<-s.cron.Stop().Done()
}

// Sweep runs one expiry pass.
func (s *Sweeper) Sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	n, err := s.expirer.DeleteOlderThan(ctx, s.ttl)
	if err != nil {
		slog.Error("semantic cache sweep failed", "error", err)
		return
	}
	if n > 0 {
		slog.Info("semantic cache swept", "deleted", n)
	}
}
