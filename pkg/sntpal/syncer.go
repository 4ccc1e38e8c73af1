package sntpal

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/AndrewLester/sntpal/internal/ntp"
	"github.com/AndrewLester/sntpal/internal/system"
	"github.com/AndrewLester/sntpal/pkg/civil"
)

// SyncStatus is a snapshot of the Syncer state.
type SyncStatus struct {
	Server      string
	Timezone    string
	DateTime    civil.DateTime
	UTC         time.Time
	SyncedAt    time.Time
	Synced      bool
	Attempts    int
	Failures    int
	LastError   string
	NextAttempt time.Time
}

// Syncer runs synchronization attempts on schedule. Failed attempts are
// retried with exponential backoff.
type Syncer struct {
	logger  *zap.Logger
	cfg     Config
	syncCfg SyncConfig

	statusMu sync.Mutex
	status   SyncStatus

	timeSyncNotified bool
	timeSynced       chan struct{}

	restartSyncCh chan struct{}

	backoff *backoff.ExponentialBackOff

	// these functions are overridden in tests
	Clock        clock.Clock
	NewTransport func() Transport
	SetTime      func(time.Time) error
	SetRTC       func(time.Time) error
}

func NewSyncer(logger *zap.Logger, cfg Config, syncCfg SyncConfig) *Syncer {
	if logger == nil {
		logger = zap.NewNop()
	}

	if syncCfg.Interval <= 0 {
		syncCfg.Interval = time.Hour
	}

	if syncCfg.AttemptTimeout <= 0 {
		syncCfg.AttemptTimeout = DefaultAttemptTimeout
	}

	zone, _ := civil.Zone(cfg.Timezone)

	return &Syncer{
		logger:  logger,
		cfg:     cfg,
		syncCfg: syncCfg,

		status: SyncStatus{
			Server:   cfg.Server,
			Timezone: zone.Name,
		},

		timeSynced:    make(chan struct{}),
		restartSyncCh: make(chan struct{}, 1),

		Clock:        clock.New(),
		NewTransport: func() Transport { return &UDPTransport{} },
		SetTime:      system.SetTime,
		SetRTC:       system.SetRTC,
	}
}

// Synced returns a channel which is closed after the first successful sync.
func (syncer *Syncer) Synced() <-chan struct{} {
	return syncer.timeSynced
}

func (syncer *Syncer) Status() SyncStatus {
	syncer.statusMu.Lock()
	defer syncer.statusMu.Unlock()

	return syncer.status
}

// Restart cuts the current wait short.
func (syncer *Syncer) Restart() {
	select {
	case syncer.restartSyncCh <- struct{}{}:
	default:
	}
}

// Run runs the sync process until ctx is canceled.
func (syncer *Syncer) Run(ctx context.Context) {
	for {
		wait, _ := syncer.SyncOnce(ctx)
		if ctx.Err() != nil {
			return
		}

		syncer.statusMu.Lock()
		syncer.status.NextAttempt = syncer.Clock.Now().Add(wait)
		syncer.statusMu.Unlock()

		select {
		case <-ctx.Done():
			return
		case <-syncer.restartSyncCh:
		case <-syncer.Clock.After(wait):
		}
	}
}

// SyncOnce performs one attempt and returns how long to wait before the next.
func (syncer *Syncer) SyncOnce(ctx context.Context) (time.Duration, error) {
	if syncer.backoff == nil {
		syncer.backoff = backoff.NewExponentialBackOff()
		syncer.backoff.MaxElapsedTime = 0
		syncer.backoff.Clock = syncer.Clock

		if syncer.syncCfg.MaxBackoff > 0 {
			syncer.backoff.MaxInterval = syncer.syncCfg.MaxBackoff
		}

		syncer.backoff.Reset()
	}

	attemptCtx, cancel := syncer.Clock.WithTimeout(ctx, syncer.syncCfg.AttemptTimeout)
	defer cancel()

	result, err := Query(attemptCtx, syncer.cfg,
		WithClock(syncer.Clock),
		WithTransport(syncer.NewTransport()),
		WithLogger(syncer.logger),
	)

	syncer.statusMu.Lock()
	syncer.status.Attempts++
	syncer.statusMu.Unlock()

	if err != nil {
		if ctx.Err() != nil {
			return 0, err
		}

		wait := syncer.backoff.NextBackOff()

		syncer.logger.Warn("sync attempt failed", zap.Error(err), zap.Duration("retry_in", wait))

		syncer.statusMu.Lock()
		syncer.status.Failures++
		syncer.status.LastError = err.Error()
		syncer.statusMu.Unlock()

		return wait, err
	}

	syncer.backoff.Reset()

	utc := ntp.SecondsToTime(result.Seconds)

	syncer.statusMu.Lock()
	syncer.status.DateTime = result.DateTime
	syncer.status.UTC = utc
	syncer.status.SyncedAt = syncer.Clock.Now()
	syncer.status.Synced = true
	syncer.status.LastError = ""
	syncer.statusMu.Unlock()

	syncer.apply(utc)

	if !syncer.timeSyncNotified {
		close(syncer.timeSynced)

		syncer.timeSyncNotified = true
	}

	return syncer.syncCfg.Interval, nil
}

func (syncer *Syncer) apply(utc time.Time) {
	if syncer.syncCfg.StepClock {
		if err := syncer.SetTime(utc); err != nil {
			syncer.logger.Error("error stepping system clock", zap.Error(err))
		} else {
			syncer.logger.Info("stepped system clock", zap.Time("time", utc))
		}
	}

	if syncer.syncCfg.SetRTC {
		if err := syncer.SetRTC(utc); err != nil {
			syncer.logger.Error("error syncing RTC", zap.Error(err))
		} else {
			syncer.logger.Info("synchronized RTC with server time")
		}
	}
}
