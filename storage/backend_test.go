package storage

import (
	"context"
	"net"
	"os"
	"testing"

	"path/filepath"

	"github.com/go-kit/kit/log"
	"github.com/go-kit/kit/metrics"
	"github.com/go-pluto/imapd/config"
	"github.com/go-pluto/imapd/mailbox"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Structs

type fakeBackend struct {
	err    error
	pings  int
	closed bool
}

type countingCounter struct {
	n float64
}

type recordingHistogram struct {
	observed []float64
}

// Functions

func (f *fakeBackend) Ping(ctx context.Context) error {
	f.pings++
	return f.err
}

func (f *fakeBackend) Close() error {
	f.closed = true
	return nil
}

func (c *countingCounter) With(labelValues ...string) metrics.Counter { return c }
func (c *countingCounter) Add(delta float64)                          { c.n += delta }

func (h *recordingHistogram) With(labelValues ...string) metrics.Histogram { return h }
func (h *recordingHistogram) Observe(value float64) {
	h.observed = append(h.observed, value)
}

// TestMaildirBackend checks that the maildir backend
// follows the availability of its root directory.
func TestMaildirBackend(t *testing.T) {

	root := filepath.Join(t.TempDir(), "maildirs")

	store, err := mailbox.NewStore(root)
	require.Nil(t, err)

	b := NewMaildirBackend(store)

	if err := b.Ping(context.Background()); err != nil {
		t.Fatalf("[storage.TestMaildirBackend] Expected nil error for existing root but received: %v", err)
	}

	require.Nil(t, os.RemoveAll(root))

	if err := b.Ping(context.Background()); err == nil {
		t.Fatalf("[storage.TestMaildirBackend] Expected error for missing root but received nil")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.Equal(t, context.Canceled, b.Ping(ctx))
	assert.Nil(t, b.Close())
}

// TestSQLiteBackend opens a fresh state file and pings it.
func TestSQLiteBackend(t *testing.T) {

	b, err := NewSQLiteBackend(filepath.Join(t.TempDir(), "state.db"), 2)
	if err != nil {
		t.Fatalf("[storage.TestSQLiteBackend] Expected nil error opening database but received: %v", err)
	}

	assert.Nil(t, b.Ping(context.Background()))
	assert.Nil(t, b.Close())
}

// TestGRPCBackend runs a health server on loopback and
// checks that its serving status is reported.
func TestGRPCBackend(t *testing.T) {

	lis, err := net.Listen("tcp", "127.0.0.1:0")
	require.Nil(t, err)

	hs := health.NewServer()

	srv := grpc.NewServer()
	healthpb.RegisterHealthServer(srv, hs)

	go srv.Serve(lis)
	defer srv.Stop()

	b, err := NewGRPCBackend(context.Background(), lis.Addr().String(), nil)
	if err != nil {
		t.Fatalf("[storage.TestGRPCBackend] Expected nil error dialing health server but received: %v", err)
	}
	defer b.Close()

	assert.Nil(t, b.Ping(context.Background()))

	hs.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)

	if err := b.Ping(context.Background()); err == nil {
		t.Fatalf("[storage.TestGRPCBackend] Expected error for NOT_SERVING node but received nil")
	}
}

// TestPostgresBackend needs a running database and is
// skipped unless IMAPD_TEST_POSTGRES is set.
func TestPostgresBackend(t *testing.T) {

	if os.Getenv("IMAPD_TEST_POSTGRES") == "" {
		t.Skip("IMAPD_TEST_POSTGRES not set")
	}

	b, err := NewPostgresBackend("127.0.0.1", 5432, "pluto", "pluto", os.Getenv("IMAPD_TEST_POSTGRES"), "disable")
	require.Nil(t, err)
	defer b.Close()

	assert.Nil(t, b.Ping(context.Background()))
}

// TestNew checks adapter selection.
func TestNew(t *testing.T) {

	store, err := mailbox.NewStore(filepath.Join(t.TempDir(), "maildirs"))
	require.Nil(t, err)

	b, err := New(context.Background(), log.NewNopLogger(), config.Storage{Adapter: "maildir"}, store)
	require.Nil(t, err)
	assert.Nil(t, b.Ping(context.Background()))

	b, err = New(context.Background(), log.NewNopLogger(), config.Storage{
		Adapter:    "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "state.db"),
	}, store)
	require.Nil(t, err)
	assert.Nil(t, b.Ping(context.Background()))
	assert.Nil(t, b.Close())

	_, err = New(context.Background(), log.NewNopLogger(), config.Storage{Adapter: "cassandra"}, store)
	if err == nil {
		t.Fatalf("[storage.TestNew] Expected error for unknown adapter but received nil")
	}
}

// TestDecorators checks that logging and instrumenting
// wrappers pass through results.
func TestDecorators(t *testing.T) {

	fake := &fakeBackend{}
	latency := &recordingHistogram{}
	failed := &countingCounter{}

	b := NewInstrumentingBackend(NewLoggingBackend(fake, log.NewNopLogger()), latency, failed)

	assert.Nil(t, b.Ping(context.Background()))

	fake.err = errors.New("disk on fire")
	assert.Equal(t, fake.err, b.Ping(context.Background()))

	assert.Equal(t, 2, fake.pings)
	assert.Len(t, latency.observed, 2)
	assert.Equal(t, float64(1), failed.n)

	assert.Nil(t, b.Close())
	assert.True(t, fake.closed)
}
