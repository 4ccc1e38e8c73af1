package rpc

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/rpc"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/AndrewLester/sntpal/pkg/sntpal"
)

// Status is the daemon state sent to clients.
type Status struct {
	Server      string
	Timezone    string
	LocalTime   string
	UTC         time.Time
	SyncedAt    time.Time
	NextAttempt time.Time
	Synced      bool
	Attempts    int
	Failures    int
	LastError   string
}

type StatusSource interface {
	Status() sntpal.SyncStatus
	Restart()
}

type RPCServer struct {
	Socket string
	Source StatusSource
	Logger *zap.Logger
}

// Listen serves on the unix socket until ctx is canceled. A stale socket
// file from a previous run is removed first.
func (s *RPCServer) Listen(ctx context.Context) error {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	server := rpc.NewServer()
	if err := server.Register(s); err != nil {
		return err
	}

	err := os.Remove(s.Socket)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("bind error: %w", err)
	}

	l, err := net.Listen("unix", s.Socket)
	if err != nil {
		return fmt.Errorf("listen error: %w", err)
	}

	logger.Info("rpc listening", zap.String("socket", s.Socket))

	go func() {
		<-ctx.Done()
		l.Close()
	}()

	server.Accept(l)

	os.Remove(s.Socket)

	return nil
}

func (s *RPCServer) FetchStatus(args int, reply *Status) error {
	*reply = NewStatus(s.Source.Status())
	return nil
}

func (s *RPCServer) Resync(args int, reply *bool) error {
	s.Source.Restart()
	*reply = true
	return nil
}

func NewStatus(status sntpal.SyncStatus) Status {
	s := Status{
		Server:      status.Server,
		Timezone:    status.Timezone,
		UTC:         status.UTC,
		SyncedAt:    status.SyncedAt,
		NextAttempt: status.NextAttempt,
		Synced:      status.Synced,
		Attempts:    status.Attempts,
		Failures:    status.Failures,
		LastError:   status.LastError,
	}

	if status.Synced {
		s.LocalTime = status.DateTime.String()
	}

	return s
}

type Client struct {
	*rpc.Client
}

func Dial(socket string) (*Client, error) {
	client, err := rpc.Dial("unix", socket)
	if err != nil {
		return nil, fmt.Errorf("error connecting to sntpal daemon: %w", err)
	}

	return &Client{client}, nil
}

func (c *Client) FetchStatus() (Status, error) {
	var reply Status
	err := c.Call("RPCServer.FetchStatus", 0, &reply)
	return reply, err
}

func (c *Client) Resync() error {
	var reply bool
	return c.Call("RPCServer.Resync", 0, &reply)
}
