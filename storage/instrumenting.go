package storage

import (
	"context"
	"time"

	"github.com/go-kit/kit/metrics"
)

// Structs

type instrumentingBackend struct {
	latency metrics.Histogram
	failed  metrics.Counter
	backend Backend
}

// Functions

// NewInstrumentingBackend records the duration of every
// Ping in seconds and counts failed ones.
func NewInstrumentingBackend(b Backend, latency metrics.Histogram, failed metrics.Counter) Backend {

	return &instrumentingBackend{
		latency: latency,
		failed:  failed,
		backend: b,
	}
}

func (b *instrumentingBackend) Ping(ctx context.Context) error {

	defer func(begin time.Time) {
		b.latency.Observe(time.Since(begin).Seconds())
	}(time.Now())

	err := b.backend.Ping(ctx)
	if err != nil {
		b.failed.Add(1)
	}

	return err
}

func (b *instrumentingBackend) Close() error {
	return b.backend.Close()
}
