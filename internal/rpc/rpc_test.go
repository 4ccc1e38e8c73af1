package rpc_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AndrewLester/sntpal/internal/rpc"
	"github.com/AndrewLester/sntpal/pkg/civil"
	"github.com/AndrewLester/sntpal/pkg/sntpal"
)

type stubSource struct {
	mu       sync.Mutex
	status   sntpal.SyncStatus
	restarts int
}

func (s *stubSource) Status() sntpal.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.status
}

func (s *stubSource) Restart() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.restarts++
}

func TestRPCServer(t *testing.T) {
	utc := time.Date(2010, time.June, 18, 13, 42, 6, 0, time.UTC)
	source := &stubSource{status: sntpal.SyncStatus{
		Server:   "192.0.2.10",
		Timezone: "UTC+08:00 Beijing, Singapore, Perth",
		DateTime: civil.DateTime{Year: 2010, Month: 6, Day: 18, Hour: 21, Minute: 42, Second: 6},
		UTC:      utc,
		Synced:   true,
		Attempts: 3,
		Failures: 2,
	}}

	socket := filepath.Join(t.TempDir(), "sntpald.sock")
	server := &rpc.RPCServer{Socket: socket, Source: source, Logger: zaptest.NewLogger(t)}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- server.Listen(ctx) }()

	var client *rpc.Client

	require.Eventually(t, func() bool {
		var err error
		client, err = rpc.Dial(socket)
		return err == nil
	}, 5*time.Second, 10*time.Millisecond)

	status, err := client.FetchStatus()
	require.NoError(t, err)

	assert.Equal(t, "192.0.2.10", status.Server)
	assert.Equal(t, "2010-06-18 21:42:06", status.LocalTime)
	assert.True(t, utc.Equal(status.UTC))
	assert.True(t, status.Synced)
	assert.Equal(t, 3, status.Attempts)
	assert.Equal(t, 2, status.Failures)

	require.NoError(t, client.Resync())

	source.mu.Lock()
	assert.Equal(t, 1, source.restarts)
	source.mu.Unlock()

	require.NoError(t, client.Close())

	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after cancel")
	}
}

func TestNewStatusUnsynced(t *testing.T) {
	status := rpc.NewStatus(sntpal.SyncStatus{Server: "192.0.2.10", LastError: "retries exhausted"})
	assert.Empty(t, status.LocalTime)
	assert.False(t, status.Synced)
	assert.Equal(t, "retries exhausted", status.LastError)
}
