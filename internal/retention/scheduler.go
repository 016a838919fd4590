// Package retention enforces the bounded retention window by periodically
// deleting stale rows from the store.
package retention

import (
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/rhersen/trainwatch/internal/store"
)

// Scheduler runs the store's cleanup on a fixed interval. A failed run is
// logged and retried on the next tick.
type Scheduler struct {
	store     *store.Store
	interval  time.Duration
	keepHours int
	log       zerolog.Logger

	mu   sync.Mutex
	cron *cron.Cron
}

// New creates a retention scheduler. interval is how often cleanup runs;
// keepHours is the retention window.
func New(st *store.Store, interval time.Duration, keepHours int, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		store:     st,
		interval:  interval,
		keepHours: keepHours,
		log:       log.With().Str("job", "retention_cleanup").Logger(),
	}
}

// Start begins the periodic timer. Idempotent.
func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron != nil {
		return
	}

	c := cron.New()
	c.Schedule(cron.Every(s.interval), cron.FuncJob(s.run))
	c.Start()
	s.cron = c

	s.log.Info().
		Dur("interval", s.interval).
		Int("keep_hours", s.keepHours).
		Msg("Retention cleanup scheduled")
}

// Stop cancels the pending timer. It does not wait for an in-flight cleanup
// to finish. Idempotent.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return
	}

	s.cron.Stop()
	s.cron = nil
	s.log.Info().Msg("Retention cleanup stopped")
}

func (s *Scheduler) run() {
	result, err := s.store.Cleanup(s.keepHours)
	if err != nil {
		// Next tick retries
		s.log.Error().Err(err).Msg("Database cleanup failed")
		return
	}

	s.log.Info().
		Int64("positions", result.Positions).
		Int64("announcements", result.Announcements).
		Msg("Database cleanup completed")
}
