// Package scheduler wires up the cron job that periodically triggers
// delivery cycles for every registered chat.
package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/spigell/hh-notifier/internal/pipeline"
	"github.com/spigell/hh-notifier/internal/store"
	"go.uber.org/zap"
)

// Cycler is the slice of the pipeline the scheduler drives.
type Cycler interface {
	RunCycle(ctx context.Context, chat pipeline.Chat) (int, error)
	CatchUp(ctx context.Context, chat pipeline.Chat) (int, error)
}

// Scheduler wraps robfig/cron and manages the polling loop.
type Scheduler struct {
	cron     *cron.Cron
	store    store.Store
	pipeline Cycler
	logger   *zap.Logger
	spec     string
}

// New creates a scheduler firing on the given cron spec, e.g. "@every 10m".
// Ticks never overlap: a tick arriving while the previous cycle still runs
// is skipped.
func New(st store.Store, cycler Cycler, spec string, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		cron:     cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		store:    st,
		pipeline: cycler,
		logger:   logger,
		spec:     spec,
	}
}

// Start registers the tick and launches the cron loop in the background.
func (s *Scheduler) Start(ctx context.Context) error {
	_, err := s.cron.AddFunc(s.spec, func() {
		s.tick(ctx)
	})
	if err != nil {
		return fmt.Errorf("cron.AddFunc: %w", err)
	}

	s.cron.Start()
	s.logger.Info("scheduler started", zap.String("spec", s.spec))

	return nil
}

// Stop halts the cron loop and returns once the running tick, if any,
// has finished.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// tick runs one incremental cycle for every registered chat, falling back
// to catch-up when a chat got nothing fresh.
func (s *Scheduler) tick(ctx context.Context) {
	chats, err := s.store.Chats()
	if err != nil {
		s.logger.Error("listing chats", zap.Error(err))
		return
	}

	if len(chats) == 0 {
		s.logger.Warn("no chats registered yet, skipping the cycle")
		return
	}

	for _, chatID := range chats {
		settings, err := s.store.Settings(chatID)
		if err != nil {
			s.logger.Error("reading settings", zap.Int64("chat_id", chatID), zap.Error(err))
			continue
		}

		chat := pipeline.Chat{ID: chatID, Settings: settings}

		count, err := s.pipeline.RunCycle(ctx, chat)
		if err != nil {
			s.logger.Error("cycle failed", zap.Int64("chat_id", chatID), zap.Error(err))
			continue
		}

		if count > 0 {
			s.logger.Info("cycle delivered postings",
				zap.Int64("chat_id", chatID),
				zap.Int("count", count),
			)
			continue
		}

		count, err = s.pipeline.CatchUp(ctx, chat)
		if err != nil {
			s.logger.Error("catch-up failed", zap.Int64("chat_id", chatID), zap.Error(err))
			continue
		}

		s.logger.Info("catch-up finished",
			zap.Int64("chat_id", chatID),
			zap.Int("count", count),
		)
	}
}
