// Package scheduler drives phase deadlines and lobby cleanup on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// Ticker is the part of the game engine the scheduler drives.
type Ticker interface {
	TickAll(ctx context.Context) error
	PurgeStaleLobbies(ctx context.Context, maxAge time.Duration) int
}

type Scheduler struct {
	cron        *cron.Cron
	ticker      Ticker
	tickSpec    string
	cleanupSpec string
	lobbyTTL    time.Duration
}

func New(ticker Ticker, tickSpec string, cleanupSpec string, lobbyTTL time.Duration) *Scheduler {
	return &Scheduler{
		cron:        cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		ticker:      ticker,
		tickSpec:    tickSpec,
		cleanupSpec: cleanupSpec,
		lobbyTTL:    lobbyTTL,
	}
}

// Start registers the jobs and starts the cron loop.
func (s *Scheduler) Start() error {
	if _, err := s.cron.AddFunc(s.tickSpec, s.RunTickNow); err != nil {
		return fmt.Errorf("invalid tick schedule '%s': %w", s.tickSpec, err)
	}

	if _, err := s.cron.AddFunc(s.cleanupSpec, func() {
		slog.Info("purging stale lobbies", "maxAge", s.lobbyTTL)
		s.RunCleanupNow()
	}); err != nil {
		return fmt.Errorf("invalid cleanup schedule '%s': %w", s.cleanupSpec, err)
	}

	s.cron.Start()
	slog.Info("scheduler started", "tick", s.tickSpec, "cleanup", s.cleanupSpec)
	return nil
}

// Stop waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	slog.Info("scheduler stopped")
}

func (s *Scheduler) RunTickNow() {
	if err := s.ticker.TickAll(context.Background()); err != nil {
		slog.Error("tick failed", "error", err)
	}
}

func (s *Scheduler) RunCleanupNow() int {
	return s.ticker.PurgeStaleLobbies(context.Background(), s.lobbyTTL)
}
