package worker

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alturino/storefront/internal/constants"
	"github.com/Alturino/storefront/internal/log"
)

type SessionCleaner interface {
	CleanupExpiredSessions(c context.Context) (int, error)
}

type CleanupWorker struct {
	cleaner  SessionCleaner
	interval time.Duration
}

func NewCleanupWorker(cleaner SessionCleaner, interval time.Duration) *CleanupWorker {
	return &CleanupWorker{cleaner: cleaner, interval: interval}
}

// Run sweeps every interval until c is cancelled. A failed sweep waits for
// the next tick. A non-positive interval returns immediately.
func (w *CleanupWorker) Run(c context.Context) {
	logger := zerolog.Ctx(c).
		With().
		Str(log.KeyAppName, constants.AppCartCleanup).
		Str(log.KeyTag, "CleanupWorker Run").
		Dur(log.KeyInterval, w.interval).
		Logger()
	c = logger.WithContext(c)

	if w.interval <= 0 {
		logger.Warn().Msg("session cleanup disabled, interval must be positive")
		return
	}

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	logger.Info().Msg("started session cleanup")
	for {
		select {
		case <-c.Done():
			logger.Info().Msg("stopped session cleanup")
			return
		case <-ticker.C:
			removed, err := w.cleaner.CleanupExpiredSessions(c)
			if err != nil {
				logger.Error().Err(err).Msg(err.Error())
				continue
			}
			logger.Debug().Int(log.KeyRemovedSessionKeys, removed).Msg("swept session carts")
		}
	}
}
