package storage

import (
	"context"
	"crypto/tls"
	"time"

	"github.com/pkg/errors"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/keepalive"
)

// Constants

// dialTimeout bounds establishing the initial connection.
const dialTimeout = 20 * time.Second

// Structs

// GRPCBackend checks a remote storage node through the
// standard gRPC health service.
type GRPCBackend struct {
	conn   *grpc.ClientConn
	health healthpb.HealthClient
}

// Functions

// dialOptions returns the options used to reach the
// storage node. A nil tlsConfig dials in plaintext.
func dialOptions(tlsConfig *tls.Config) []grpc.DialOption {

	kaParams := keepalive.ClientParameters{
		// Ping the storage node after 1 minute of inactivity.
		Time: 1 * time.Minute,
		// Close the connection if no response to such
		// keepalive ping is received after 30 seconds.
		Timeout: 30 * time.Second,
		// Expect keepalives even when no streams are active.
		PermitWithoutStream: true,
	}

	creds := insecure.NewCredentials()
	if tlsConfig != nil {
		creds = credentials.NewTLS(tlsConfig)
	}

	return []grpc.DialOption{
		grpc.WithBlock(),
		grpc.WithKeepaliveParams(kaParams),
		grpc.WithTransportCredentials(creds),
	}
}

// NewGRPCBackend dials the storage node at addr and
// waits until the connection is up.
func NewGRPCBackend(ctx context.Context, addr string, tlsConfig *tls.Config) (*GRPCBackend, error) {

	ctx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	conn, err := grpc.DialContext(ctx, addr, dialOptions(tlsConfig)...)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to dial storage node at %s", addr)
	}

	return &GRPCBackend{
		conn:   conn,
		health: healthpb.NewHealthClient(conn),
	}, nil
}

// Ping asks the storage node for its overall serving status.
func (g *GRPCBackend) Ping(ctx context.Context) error {

	resp, err := g.health.Check(ctx, &healthpb.HealthCheckRequest{})
	if err != nil {
		return errors.Wrap(err, "storage node health check failed")
	}

	if resp.GetStatus() != healthpb.HealthCheckResponse_SERVING {
		return errors.Errorf("storage node is %s", resp.GetStatus())
	}

	return nil
}

// Close tears down the connection to the storage node.
func (g *GRPCBackend) Close() error {
	return g.conn.Close()
}
