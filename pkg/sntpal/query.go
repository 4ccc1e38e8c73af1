package sntpal

import (
	"context"

	"github.com/benbjohnson/clock"
	"go.uber.org/zap"

	"github.com/AndrewLester/sntpal/pkg/civil"
)

type QueryResult struct {
	DateTime civil.DateTime
	Seconds  uint64 // server transmit seconds, UTC
	Polls    int
	Requests uint16
}

type queryOptions struct {
	clock     clock.Clock
	transport Transport
	logger    *zap.Logger
	progress  chan<- uint16
}

type QueryOption func(*queryOptions)

func WithClock(c clock.Clock) QueryOption {
	return func(o *queryOptions) { o.clock = c }
}

func WithTransport(t Transport) QueryOption {
	return func(o *queryOptions) { o.transport = t }
}

func WithLogger(logger *zap.Logger) QueryOption {
	return func(o *queryOptions) { o.logger = logger }
}

// WithProgress receives the request count after every transmission. Sends
// are dropped when the channel is not ready.
func WithProgress(ch chan<- uint16) QueryOption {
	return func(o *queryOptions) { o.progress = ch }
}

// Query runs one attempt to completion, polling every cfg.PollInterval.
func Query(ctx context.Context, cfg Config, opts ...QueryOption) (*QueryResult, error) {
	o := queryOptions{
		clock:  clock.New(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	if o.transport == nil {
		o.transport = &UDPTransport{}
	}

	cfg.setDefaults()

	session := NewSession(o.transport, o.logger)
	if err := session.Init(cfg, nil); err != nil {
		return nil, err
	}
	defer session.Abort()

	ticker := o.clock.Ticker(cfg.PollInterval)
	defer ticker.Stop()

	var (
		polls    int
		requests uint16
	)

	for {
		before := session.RetryCount()

		status, err := session.Poll()
		polls++

		if after := session.RetryCount(); after > before {
			requests++

			if o.progress != nil {
				select {
				case o.progress <- requests:
				default:
				}
			}
		}

		switch status {
		case StatusSuccess:
			dateTime, _ := session.DateTime()
			seconds, _ := session.Seconds()

			return &QueryResult{DateTime: dateTime, Seconds: seconds, Polls: polls, Requests: requests}, nil
		case StatusFailed:
			return nil, err
		case StatusContinue:
			if err != nil {
				o.logger.Debug("poll error", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
