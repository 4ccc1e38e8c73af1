package sntpal_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AndrewLester/sntpal/pkg/civil"
	"github.com/AndrewLester/sntpal/pkg/sntpal"
)

func TestQuerySuccess(t *testing.T) {
	transport := &fakeTransport{onSend: respondOnSend(testSeconds)}

	result, err := sntpal.Query(context.Background(), sntpal.Config{
		Server:       testServer,
		Timezone:     47,
		PollInterval: time.Millisecond,
	}, sntpal.WithTransport(transport))
	require.NoError(t, err)

	// UTC+12:45
	assert.Equal(t, civil.DateTime{Year: 2010, Month: 6, Day: 19, Hour: 2, Minute: 27, Second: 6}, result.DateTime)
	assert.Equal(t, 2, result.Polls)
	assert.EqualValues(t, 1, result.Requests)
	assert.Equal(t, sntpal.TransportClosed, transport.state)
}

func TestQueryRetriesExhausted(t *testing.T) {
	transport := &fakeTransport{}

	_, err := sntpal.Query(context.Background(), sntpal.Config{
		Server:        testServer,
		RetryCap:      3,
		PollsPerRetry: 1,
		PollInterval:  time.Millisecond,
	}, sntpal.WithTransport(transport))
	assert.ErrorIs(t, err, sntpal.ErrRetriesExhausted)
	assert.Len(t, transport.sent, 3)
	assert.Equal(t, sntpal.TransportClosed, transport.state)
}

func TestQueryCanceled(t *testing.T) {
	transport := &fakeTransport{}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := sntpal.Query(ctx, sntpal.Config{
		Server:       testServer,
		PollInterval: time.Millisecond,
	}, sntpal.WithTransport(transport))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, sntpal.TransportClosed, transport.state, "abandoned attempt closes the transport")
}

func TestQueryInvalidConfig(t *testing.T) {
	_, err := sntpal.Query(context.Background(), sntpal.Config{Server: "localhost"}, sntpal.WithTransport(&fakeTransport{}))
	assert.ErrorIs(t, err, sntpal.ErrInvalidServer)
}
