package sntpal_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/AndrewLester/sntpal/pkg/civil"
	"github.com/AndrewLester/sntpal/pkg/sntpal"
)

// answered returns a transport whose reply is already waiting, so the
// attempt completes on its first poll without a tick.
func answered() sntpal.Transport {
	return &fakeTransport{inbox: [][]byte{serverResponse(testSeconds)}}
}

func TestSyncOnceSuccess(t *testing.T) {
	syncer := sntpal.NewSyncer(zaptest.NewLogger(t), sntpal.Config{
		Server:   testServer,
		Timezone: 39,
	}, sntpal.SyncConfig{
		Interval:  10 * time.Minute,
		StepClock: true,
		SetRTC:    true,
	})

	mock := clock.NewMock()
	syncer.Clock = mock
	syncer.NewTransport = answered

	var stepped, rtc []time.Time

	syncer.SetTime = func(t time.Time) error {
		stepped = append(stepped, t)
		return nil
	}
	syncer.SetRTC = func(t time.Time) error {
		rtc = append(rtc, t)
		return errors.New("no rtc")
	}

	select {
	case <-syncer.Synced():
		t.Fatal("synced before the first attempt")
	default:
	}

	wait, err := syncer.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10*time.Minute, wait)

	expected := time.Date(2010, time.June, 18, 13, 42, 6, 0, time.UTC)

	require.Len(t, stepped, 1)
	assert.True(t, expected.Equal(stepped[0]), "stepped to %s", stepped[0])
	require.Len(t, rtc, 1, "RTC error does not stop the sync")

	select {
	case <-syncer.Synced():
	default:
		t.Fatal("Synced not closed after success")
	}

	status := syncer.Status()
	assert.True(t, status.Synced)
	assert.Equal(t, testServer, status.Server)
	assert.Equal(t, "UTC+08:00 Beijing, Singapore, Perth", status.Timezone)
	assert.Equal(t, civil.DateTime{Year: 2010, Month: 6, Day: 18, Hour: 21, Minute: 42, Second: 6}, status.DateTime)
	assert.True(t, expected.Equal(status.UTC))
	assert.True(t, mock.Now().Equal(status.SyncedAt))
	assert.Equal(t, 1, status.Attempts)
	assert.Zero(t, status.Failures)

	// a second success must not close the channel again
	_, err = syncer.SyncOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, syncer.Status().Attempts)
}

func TestSyncOnceFailureBacksOff(t *testing.T) {
	syncer := sntpal.NewSyncer(zaptest.NewLogger(t), sntpal.Config{
		Server:        testServer,
		RetryCap:      1,
		PollsPerRetry: 1,
	}, sntpal.SyncConfig{
		MaxBackoff: 2 * time.Second,
	})

	syncer.NewTransport = func() sntpal.Transport { return &fakeTransport{} }
	syncer.SetTime = func(time.Time) error {
		t.Fatal("clock stepped without a response")
		return nil
	}

	wait, err := syncer.SyncOnce(context.Background())
	assert.ErrorIs(t, err, sntpal.ErrRetriesExhausted)
	assert.Greater(t, wait, time.Duration(0))
	assert.LessOrEqual(t, wait, 2*time.Second)

	status := syncer.Status()
	assert.False(t, status.Synced)
	assert.Equal(t, 1, status.Attempts)
	assert.Equal(t, 1, status.Failures)
	assert.Contains(t, status.LastError, sntpal.ErrRetriesExhausted.Error())

	select {
	case <-syncer.Synced():
		t.Fatal("Synced closed after a failure")
	default:
	}
}

func TestSyncOnceAttemptTimeout(t *testing.T) {
	syncer := sntpal.NewSyncer(zaptest.NewLogger(t), sntpal.Config{Server: testServer}, sntpal.SyncConfig{
		AttemptTimeout: 50 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
	})

	// never answers; the default retry budget would last for days
	syncer.NewTransport = func() sntpal.Transport { return &fakeTransport{} }

	start := time.Now()

	wait, err := syncer.SyncOnce(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Greater(t, wait, time.Duration(0), "timed out attempt backs off")

	status := syncer.Status()
	assert.Equal(t, 1, status.Failures)
	assert.Contains(t, status.LastError, context.DeadlineExceeded.Error())
}

func TestSyncerRunRestart(t *testing.T) {
	syncer := sntpal.NewSyncer(zaptest.NewLogger(t), sntpal.Config{Server: testServer}, sntpal.SyncConfig{
		Interval: time.Hour,
	})

	mock := clock.NewMock()
	syncer.Clock = mock
	syncer.NewTransport = answered

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	go func() {
		syncer.Run(ctx)
		close(done)
	}()

	select {
	case <-syncer.Synced():
	case <-time.After(5 * time.Second):
		t.Fatal("first sync did not complete")
	}

	require.Eventually(t, func() bool {
		return syncer.Status().NextAttempt.Equal(mock.Now().Add(time.Hour))
	}, 5*time.Second, time.Millisecond)

	syncer.Restart()

	require.Eventually(t, func() bool {
		return syncer.Status().Attempts == 2
	}, 5*time.Second, time.Millisecond)

	cancel()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
