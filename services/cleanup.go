// services/cleanup.go - Background room reaper
package services

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"trainvoc/game"
)

// Reaper is the part of the registry the cleanup loop needs.
type Reaper interface {
	Reap(ctx context.Context, finishedTTL, idleTimeout time.Duration) game.ReapStats
}

// Sweeper is any other periodic cleanup, such as dropping idle rate limiters.
type Sweeper func()

// CleanupService evicts finished rooms after a TTL and disbands rooms that
// saw no activity for the idle timeout.
type CleanupService struct {
	rooms       Reaper
	interval    time.Duration
	finishedTTL time.Duration
	idleTimeout time.Duration
	sweepers    []Sweeper

	started  atomic.Bool
	stop     chan struct{}
	done     chan struct{}
	stopOnce sync.Once
}

func NewCleanupService(rooms Reaper, interval, finishedTTL, idleTimeout time.Duration, sweepers ...Sweeper) *CleanupService {
	return &CleanupService{
		rooms:       rooms,
		interval:    interval,
		finishedTTL: finishedTTL,
		idleTimeout: idleTimeout,
		sweepers:    sweepers,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Start runs the cleanup loop until Stop.
func (s *CleanupService) Start() {
	if !s.started.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer close(s.done)
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.RunOnce()
			case <-s.stop:
				return
			}
		}
	}()
	log.Info().Dur("interval", s.interval).Msg("🧹 cleanup service started")
}

// Stop ends the loop and waits for a pass in progress.
func (s *CleanupService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stop)
	})
	if s.started.Load() {
		<-s.done
	}
}

// RunOnce performs one cleanup pass.
func (s *CleanupService) RunOnce() game.ReapStats {
	ctx, cancel := context.WithTimeout(context.Background(), s.interval)
	defer cancel()

	stats := s.rooms.Reap(ctx, s.finishedTTL, s.idleTimeout)
	if stats.Finished > 0 || stats.Idle > 0 {
		log.Info().Int("finished", stats.Finished).Int("idle", stats.Idle).Msg("✅ cleaned up rooms")
	}
	for _, sweep := range s.sweepers {
		sweep()
	}
	return stats
}
