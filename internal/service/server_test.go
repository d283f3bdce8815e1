package service

import (
	"context"
	"io"
	"log/slog"
	"net"
	"testing"

	"github.com/funvibe/typelattice/internal/journal"
	"github.com/funvibe/typelattice/internal/lattice"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"
)

const testLattice = `
types:
  - name: Real
  - name: Int
    super: Real
  - name: Float
    super: Real
  - name: String
  - name: Seq
    params: [{name: T, variance: covariant}]
  - name: Array
    params: [T]
`

func newTestServer(t *testing.T, j *journal.Journal) *Server {
	t.Helper()
	cfg, err := lattice.ParseConfig([]byte(testLattice), "lattice.yaml")
	require.NoError(t, err)
	l, err := lattice.Build(cfg)
	require.NoError(t, err)
	s, err := New(l, Options{Journal: j, Logger: slog.New(slog.NewTextHandler(io.Discard, nil))})
	require.NoError(t, err)
	return s
}

func startBufconn(t *testing.T, s *Server) *Client {
	t.Helper()
	lis := bufconn.Listen(1 << 20)
	g := grpc.NewServer()
	s.Register(g)
	go g.Serve(lis)
	t.Cleanup(g.Stop)

	c, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })
	return c
}

func TestLoadService(t *testing.T) {
	sd, err := loadService()
	require.NoError(t, err)
	require.Equal(t, "typelattice.v1.Lattice", sd.GetFullyQualifiedName())
	require.Len(t, sd.GetMethods(), 1)
}

func TestDecideOverGRPC(t *testing.T) {
	ctx := context.Background()
	c := startBufconn(t, newTestServer(t, nil))

	tests := []struct {
		name     string
		sub, sup string
		want     bool
	}{
		{"nominal", "Int", "Real", true},
		{"reversed", "Real", "Int", false},
		{"covariant", "{Seq: [Int]}", "{Seq: [Real]}", true},
		{"invariant", "{Array: [Int]}", "{Array: [Real]}", false},
		{"existential", "{Array: [Int]}", "{where: [{name: x, upper: Real}], body: {Array: [x]}}", true},
		{"unions", "[Int, Float]", "Real", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := c.Decide(ctx, tt.sub, tt.sup)
			require.NoError(t, err)
			require.Equal(t, tt.want, res.Result)
			require.NotEmpty(t, res.ID)
			require.Positive(t, res.Passes)
		})
	}
}

func TestDecideRejectsBadDocuments(t *testing.T) {
	c := startBufconn(t, newTestServer(t, nil))
	_, err := c.Decide(context.Background(), "Integer", "Real")
	require.Error(t, err)
	require.Equal(t, codes.InvalidArgument, status.Code(err))
	require.Contains(t, status.Convert(err).Message(), "unknown type Integer")
}

func TestDecideRecordsJournal(t *testing.T) {
	ctx := context.Background()
	j, err := journal.Open(ctx, ":memory:")
	require.NoError(t, err)
	defer j.Close()

	s := newTestServer(t, j)
	res, err := s.Decide(ctx, "{Seq: [Int]}", "{Seq: [Real]}")
	require.NoError(t, err)
	require.Equal(t, "Seq{Int}", res.Sub)

	e, err := j.Lookup(ctx, "Seq{Int}", "Seq{Real}")
	require.NoError(t, err)
	require.Equal(t, res.ID, e.ID.String())
	require.True(t, e.Result)
	require.Equal(t, "service", e.Source)
}

func TestServeStopsOnCancel(t *testing.T) {
	s := newTestServer(t, nil)
	lis := bufconn.Listen(1 << 16)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, lis) }()

	c, err := Dial("passthrough:///bufnet", grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
		return lis.DialContext(ctx)
	}))
	require.NoError(t, err)
	defer c.Close()

	// a completed call proves Serve is running before it is stopped
	_, err = c.Decide(context.Background(), "Int", "Real")
	require.NoError(t, err)

	cancel()
	require.NoError(t, <-done)
}
