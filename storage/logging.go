package storage

import (
	"context"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
)

// Structs

type loggingBackend struct {
	logger  log.Logger
	backend Backend
}

// Functions

// NewLoggingBackend wraps a provided existing
// backend with the provided logger.
func NewLoggingBackend(b Backend, logger log.Logger) Backend {

	return &loggingBackend{
		logger:  logger,
		backend: b,
	}
}

// Ping wraps this backend's Ping method
// with added logging capabilities.
func (b *loggingBackend) Ping(ctx context.Context) error {

	err := b.backend.Ping(ctx)
	if err != nil {
		level.Warn(b.logger).Log("msg", "storage backend not reachable", "method", "Ping", "err", err)
	}

	return err
}

// Close wraps this backend's Close method
// with added logging capabilities.
func (b *loggingBackend) Close() error {

	err := b.backend.Close()

	logger := log.With(b.logger, "method", "Close")

	if err != nil {
		level.Info(logger).Log("msg", "failed to close storage backend", "err", err)
	} else {
		level.Debug(logger).Log()
	}

	return err
}
