package main

import (
	"net/http"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/log/level"
	"github.com/go-kit/kit/metrics"
	"github.com/go-kit/kit/metrics/discard"
	"github.com/go-kit/kit/metrics/prometheus"
	"github.com/go-pluto/imapd/imap"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Structs

// PlutoMetrics bundles every instrument the server reports.
type PlutoMetrics struct {
	IMAP    imap.Metrics
	Storage *StorageMetrics
}

// StorageMetrics observe the backend liveness checks.
type StorageMetrics struct {
	PingDuration metrics.Histogram
	PingFailures metrics.Counter
}

// Functions

// NewPlutoMetrics returns Prometheus backed instruments
// if addr is set and discarding ones otherwise.
func NewPlutoMetrics(addr string) *PlutoMetrics {

	if addr == "" {

		return &PlutoMetrics{
			IMAP: imap.NopMetrics(),
			Storage: &StorageMetrics{
				PingDuration: discard.NewHistogram(),
				PingFailures: discard.NewCounter(),
			},
		}
	}

	return &PlutoMetrics{
		IMAP: imap.Metrics{
			Commands: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "pluto",
				Subsystem: "imap",
				Name:      "commands_total",
				Help:      "Number of handled commands by command and result",
			}, []string{"command", "result"}),
			Faults: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "pluto",
				Subsystem: "imap",
				Name:      "faults_total",
				Help:      "Number of faulty client requests",
			}, nil),
			Logins: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "pluto",
				Subsystem: "imap",
				Name:      "logins_total",
				Help:      "Number of logins",
			}, nil),
			Logouts: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "pluto",
				Subsystem: "imap",
				Name:      "logouts_total",
				Help:      "Number of logouts",
			}, nil),
			Sessions: prometheus.NewGaugeFrom(prom.GaugeOpts{
				Namespace: "pluto",
				Subsystem: "imap",
				Name:      "sessions",
				Help:      "Number of open client sessions",
			}, nil),
		},
		Storage: &StorageMetrics{
			PingDuration: prometheus.NewHistogramFrom(prom.HistogramOpts{
				Namespace: "pluto",
				Subsystem: "storage",
				Name:      "ping_duration_seconds",
				Help:      "Duration of storage liveness checks",
				Buckets:   prom.ExponentialBuckets(0.0005, 4, 8),
			}, nil),
			PingFailures: prometheus.NewCounterFrom(prom.CounterOpts{
				Namespace: "pluto",
				Subsystem: "storage",
				Name:      "ping_failures_total",
				Help:      "Number of failed storage liveness checks",
			}, nil),
		},
	}
}

func runPromHTTP(logger log.Logger, addr string) {

	if addr == "" {
		level.Debug(logger).Log("msg", "prometheus addr is empty, not exposing prometheus metrics")
		return
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	level.Info(logger).Log("msg", "prometheus handler listening", "addr", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		level.Warn(logger).Log("msg", "failed to serve prometheus metrics", "err", err)
	}
}
