package ws

import (
	"context"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Sweeper periodically evicts sessions with no intent activity. Eviction
// flushes unsaved turns first, then closes the transport with a policy close
// frame and unbinds the session.
type Sweeper struct {
	router    *Router
	manager   *ClientManager
	interval  time.Duration
	threshold time.Duration
}

// NewSweeper creates a Sweeper. interval is the scan period, threshold the
// idle age beyond which a session is evicted.
func NewSweeper(router *Router, manager *ClientManager, interval, threshold time.Duration) *Sweeper {
	return &Sweeper{
		router:    router,
		manager:   manager,
		interval:  interval,
		threshold: threshold,
	}
}

// Run scans on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	for _, connID := range s.router.Registry().SweepIdle(s.threshold) {
		log.Info().Str("conn_id", connID).Msg("evicting idle session")

		if err := s.router.Flush(ctx, connID); err != nil {
			log.Error().Err(err).Str("conn_id", connID).Msg("idle flush failed")
		}

		if client := s.manager.Get(connID); client != nil {
			client.CloseWithReason(websocket.ClosePolicyViolation, "idle session")
		}
		s.router.Registry().Unbind(connID)
	}
}
