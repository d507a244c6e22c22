package app

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ctxutil"
	"github.com/example/attend/internal/ports/primary"
	"github.com/example/attend/internal/ports/secondary"
	"github.com/example/attend/internal/work"
)

func testContext(t *testing.T) context.Context {
	logger := zerolog.New(zerolog.NewTestWriter(t)).Level(zerolog.DebugLevel)
	return logger.WithContext(context.Background())
}

func TestRunAttempt_Delivered(t *testing.T) {
	f := newStatusLogFixture(true)
	ctx := testContext(t)

	result := f.service.RunAttempt(ctx)

	require.NoError(t, result.Err)
	assert.Equal(t, "DELIVERED", result.Phase)
	assert.Equal(t, "SENT", result.SyncState)
	assert.Equal(t, "manual", result.Trigger)

	records := f.outbox.all()
	require.Len(t, records, 1)
	assert.Equal(t, result.RecordID, records[0].ID)
	assert.Equal(t, "SENT", records[0].SyncState)
	assert.Equal(t, "Office", records[0].NetworkID)

	sent := f.delivery.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, secondary.StatusPayload{
		DeviceID:     "dev-1",
		NetworkID:    "Office",
		Latitude:     "35.6892",
		Longitude:    "51.389",
		Timestamp:    "2026-03-04T06:00:15.250Z",
		SubjectPhone: "09120000000",
	}, sent[0])

	synced, _ := f.settings.GetString(ctx, secondary.SettingLastSyncedAt)
	assert.Equal(t, "2026-03-04T06:00:15Z", synced)
	assert.Equal(t, secondary.LivenessSynced, f.liveness.last())
	assert.Equal(t, []string{"manual:DELIVERED"}, f.observer.phases)
}

func TestRunAttempt_ToggleDisabled(t *testing.T) {
	f := newStatusLogFixture(false)

	result := f.service.RunAttempt(testContext(t))

	assert.True(t, result.Stopped())
	assert.Empty(t, f.outbox.all(), "no record is written when disabled")
	assert.Empty(t, f.delivery.sent())
	assert.Equal(t, secondary.LivenessStopped, f.liveness.last())
}

func TestRunAttempt_ToggleReadFailureStops(t *testing.T) {
	f := newStatusLogFixture(true)
	f.settings.getBoolErr = errors.New("disk I/O error")

	result := f.service.RunAttempt(testContext(t))

	assert.True(t, result.Stopped())
	assert.Empty(t, f.outbox.all())
}

func TestRunAttempt_PermissionErrorStillLogs(t *testing.T) {
	f := newStatusLogFixture(true)
	f.location.fix = nil
	f.location.err = &secondary.PermissionError{Reason: "not granted"}

	result := f.service.RunAttempt(testContext(t))

	require.NoError(t, result.Err)
	assert.Contains(t, result.LocationError, "permission denied")
	assert.Equal(t, "SENT", result.SyncState)

	records := f.outbox.all()
	require.Len(t, records, 1)
	assert.Empty(t, records[0].Latitude)
	assert.Empty(t, records[0].Longitude)
	assert.Equal(t, "dev-1", records[0].DeviceID)
	assert.NotEqual(t, secondary.LivenessStopped, f.liveness.last())
}

func TestRunAttempt_DeliveryFailureMarksFailed(t *testing.T) {
	f := newStatusLogFixture(true)
	f.delivery.err = &secondary.DeliveryError{Kind: secondary.DeliveryHTTP, StatusCode: 500}

	result := f.service.RunAttempt(testContext(t))

	require.NoError(t, result.Err)
	assert.Equal(t, "DELIVERY_FAILED", result.Phase)
	assert.Equal(t, "FAILED", result.SyncState)

	records := f.outbox.all()
	require.Len(t, records, 1)
	assert.Equal(t, "FAILED", records[0].SyncState)
	assert.Contains(t, records[0].LastError, "500")

	synced, _ := f.settings.GetString(context.Background(), secondary.SettingLastSyncedAt)
	assert.Empty(t, synced)
	assert.Empty(t, f.liveness.signals, "a failed delivery leaves the liveness surface untouched")
}

func TestRunAttempt_DeliveryFailureKeepsLastSyncedLine(t *testing.T) {
	f := newStatusLogFixture(true)
	ctx := testContext(t)

	f.service.RunAttempt(ctx)
	require.Len(t, f.liveness.signals, 1)
	synced := f.liveness.signals[0]

	f.delivery.err = &secondary.DeliveryError{Kind: secondary.DeliveryNetwork, Err: errors.New("connection reset")}
	f.service.RunAttempt(ctx)

	require.Len(t, f.liveness.signals, 1)
	assert.Equal(t, secondary.LivenessSynced, f.liveness.last())
	assert.Equal(t, synced.SyncedAt, f.liveness.signals[0].SyncedAt)
}

func TestRunAttempt_DeliveryPanicIsCaught(t *testing.T) {
	f := newStatusLogFixture(true)
	f.delivery.panicMsg = "nil map"

	var result *primary.AttemptResult
	require.NotPanics(t, func() { result = f.service.RunAttempt(testContext(t)) })

	assert.Equal(t, "FAILED", result.SyncState)
	assert.Equal(t, "FAILED", f.outbox.all()[0].SyncState)
}

func TestRunAttempt_PersistenceFailure(t *testing.T) {
	f := newStatusLogFixture(true)
	f.outbox.insertErr = errors.New("database is locked")

	result := f.service.RunAttempt(testContext(t))

	require.Error(t, result.Err)
	assert.Empty(t, result.SyncState)
	assert.Empty(t, f.delivery.sent(), "no delivery without a persisted record")
}

func TestRunAttempt_SubjectPhoneFromSessionToken(t *testing.T) {
	f := newStatusLogFixture(true)
	ctx := testContext(t)
	_ = f.settings.SetString(ctx, secondary.SettingSubjectPhone, "")
	_ = f.settings.SetString(ctx, secondary.SettingSessionToken, "tok")

	f.service.RunAttempt(ctx)

	assert.Equal(t, "09350000000", f.delivery.sent()[0].SubjectPhone)
	cached, _ := f.settings.GetString(ctx, secondary.SettingSubjectPhone)
	assert.Equal(t, "09350000000", cached)
}

func TestRunAttempt_SubjectPhoneUnresolved(t *testing.T) {
	f := newStatusLogFixture(true)
	ctx := testContext(t)
	_ = f.settings.SetString(ctx, secondary.SettingSubjectPhone, "")
	_ = f.settings.SetString(ctx, secondary.SettingSessionToken, "garbage")

	result := f.service.RunAttempt(ctx)

	assert.Equal(t, "SENT", result.SyncState)
	assert.Empty(t, f.outbox.all()[0].SubjectPhone)
}

func TestHandleChainTick_ReschedulesRegardlessOfOutcome(t *testing.T) {
	tests := []struct {
		name  string
		setup func(f *statusLogFixture)
	}{
		{name: "delivered", setup: func(f *statusLogFixture) {}},
		{name: "delivery failed", setup: func(f *statusLogFixture) {
			f.delivery.err = &secondary.DeliveryError{Kind: secondary.DeliveryNetwork, Err: errors.New("connection refused")}
		}},
		{name: "location denied", setup: func(f *statusLogFixture) {
			f.location.fix = nil
			f.location.err = &secondary.PermissionError{}
		}},
		{name: "persistence failed", setup: func(f *statusLogFixture) {
			f.outbox.insertErr = errors.New("disk full")
		}},
		{name: "delivery panicked", setup: func(f *statusLogFixture) {
			f.delivery.panicMsg = "boom"
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStatusLogFixture(true)
			tt.setup(f)

			f.service.HandleChainTick(testContext(t))

			assert.Equal(t, []time.Duration{3 * time.Minute}, f.chain.delays())
		})
	}
}

func TestChainTick_RecordsRescheduledPhase(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(f *statusLogFixture)
		wantPhase string
	}{
		{name: "delivered", setup: func(f *statusLogFixture) {}, wantPhase: "RESCHEDULED"},
		{name: "delivery failed", setup: func(f *statusLogFixture) {
			f.delivery.err = &secondary.DeliveryError{Kind: secondary.DeliveryHTTP, StatusCode: 503}
		}, wantPhase: "RESCHEDULED"},
		{name: "persistence failed", setup: func(f *statusLogFixture) {
			f.outbox.insertErr = errors.New("disk full")
		}, wantPhase: "RESCHEDULED"},
		{name: "re-arm failed", setup: func(f *statusLogFixture) {
			f.chain.err = work.ErrNotRunning
		}, wantPhase: "DELIVERED"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newStatusLogFixture(true)
			tt.setup(f)

			result := f.service.chainTick(testContext(t))

			require.NotNil(t, result)
			assert.Equal(t, tt.wantPhase, result.Phase)
			assert.Equal(t, "chain", result.Trigger)
		})
	}

	t.Run("stopped", func(t *testing.T) {
		f := newStatusLogFixture(false)

		result := f.service.chainTick(testContext(t))

		assert.Equal(t, "STOPPED", result.Phase)
	})
}

func TestHandleChainTick_NoBackoff(t *testing.T) {
	f := newStatusLogFixture(true)
	f.delivery.err = &secondary.DeliveryError{Kind: secondary.DeliveryHTTP, StatusCode: 500}
	ctx := testContext(t)

	for i := 0; i < 3; i++ {
		f.service.HandleChainTick(ctx)
	}

	assert.Equal(t, []time.Duration{3 * time.Minute, 3 * time.Minute, 3 * time.Minute}, f.chain.delays())
	assert.Len(t, f.outbox.all(), 3, "each retry creates a new record")
	for _, r := range f.outbox.all() {
		assert.Equal(t, "FAILED", r.SyncState)
	}
}

func TestHandleChainTick_StopsWhenDisabled(t *testing.T) {
	f := newStatusLogFixture(false)

	f.service.HandleChainTick(testContext(t))

	assert.Empty(t, f.chain.delays(), "a stopped run must not arm a successor")
	assert.Equal(t, []string{"chain:STOPPED"}, f.observer.phases)
}

func TestHandleChainTick_DisabledDuringAttempt(t *testing.T) {
	f := newStatusLogFixture(true)
	f.delivery.onSend = func() {
		_ = f.settings.SetBool(context.Background(), secondary.SettingTrackingEnabled, false)
	}

	result := f.service.chainTick(testContext(t))

	assert.Empty(t, f.chain.delays(), "a disable during delivery must not be undone")
	assert.Equal(t, "DELIVERED", result.Phase)
}

func TestHandlePeriodicTick(t *testing.T) {
	t.Run("re-arms a lost foreground loop", func(t *testing.T) {
		f := newStatusLogFixture(true)

		f.service.HandlePeriodicTick(testContext(t))

		assert.Equal(t, []time.Duration{3 * time.Minute}, f.chain.delays())
		assert.Equal(t, "periodic", f.outbox.all()[0].Trigger)
	})

	t.Run("leaves a pending loop alone", func(t *testing.T) {
		f := newStatusLogFixture(true)
		f.chain.pending = true

		f.service.HandlePeriodicTick(testContext(t))

		assert.Empty(t, f.chain.delays())
		assert.Len(t, f.outbox.all(), 1)
	})

	t.Run("disabled during the attempt does not re-arm", func(t *testing.T) {
		f := newStatusLogFixture(true)
		f.delivery.onSend = func() {
			_ = f.settings.SetBool(context.Background(), secondary.SettingTrackingEnabled, false)
		}

		f.service.HandlePeriodicTick(testContext(t))

		assert.Empty(t, f.chain.delays())
		require.Len(t, f.outbox.all(), 1)
		assert.Equal(t, "SENT", f.outbox.all()[0].SyncState)
	})

	t.Run("toggle re-read failure does not re-arm", func(t *testing.T) {
		f := newStatusLogFixture(true)
		f.delivery.onSend = func() {
			f.settings.mu.Lock()
			f.settings.getBoolErr = errors.New("database is locked")
			f.settings.mu.Unlock()
		}

		f.service.HandlePeriodicTick(testContext(t))

		assert.Empty(t, f.chain.delays())
	})

	t.Run("disabled does nothing", func(t *testing.T) {
		f := newStatusLogFixture(false)

		f.service.HandlePeriodicTick(testContext(t))

		assert.Empty(t, f.chain.delays())
		assert.Empty(t, f.outbox.all())
	})
}

func TestRunAttempt_ConcurrentTriggers(t *testing.T) {
	f := newStatusLogFixture(true)
	ctx := testContext(t)

	var wg sync.WaitGroup
	results := make([]*primary.AttemptResult, 2)
	for i, trigger := range []ctxutil.Trigger{ctxutil.TriggerPeriodic, ctxutil.TriggerChain} {
		wg.Add(1)
		go func(i int, trigger ctxutil.Trigger) {
			defer wg.Done()
			results[i] = f.service.RunAttempt(ctxutil.WithTrigger(ctx, trigger))
		}(i, trigger)
	}
	wg.Wait()

	assert.NotEqual(t, results[0].RecordID, results[1].RecordID)
	records := f.outbox.all()
	require.Len(t, records, 2)
	for _, r := range records {
		assert.Equal(t, "SENT", r.SyncState)
	}
}

// TestForegroundLoop_EventualStop runs the task on a real foreground loop and
// checks that at most one invocation writes a record after disabling.
func TestForegroundLoop_EventualStop(t *testing.T) {
	f := newStatusLogFixture(true)
	ctx := testContext(t)

	chain := work.NewChain()
	f.service.chain = chain
	f.service.chainDelay = 5 * time.Millisecond

	var runs atomic.Int32
	chain.Handle(func(ctx context.Context) {
		runs.Add(1)
		f.service.HandleChainTick(ctx)
	})
	stop := chain.Start(ctx)
	defer stop()

	require.NoError(t, chain.Enqueue(ctx, 0))
	require.Eventually(t, func() bool { return runs.Load() >= 3 }, time.Second, time.Millisecond)

	require.NoError(t, f.settings.SetBool(ctx, secondary.SettingTrackingEnabled, false))
	recordsAtDisable := len(f.outbox.all())

	require.Eventually(t, func() bool {
		_, pending := chain.Pending()
		return !pending && f.liveness.last() == secondary.LivenessStopped
	}, time.Second, time.Millisecond)

	time.Sleep(20 * time.Millisecond)
	assert.LessOrEqual(t, len(f.outbox.all()), recordsAtDisable+1)
	_, pending := chain.Pending()
	assert.False(t, pending)
}

func TestObserveStatusLogs(t *testing.T) {
	f := newStatusLogFixture(true)
	ctx, cancel := context.WithCancel(testContext(t))
	defer cancel()

	updates := f.service.ObserveStatusLogs(ctx, primary.StatusLogFilters{}, 5*time.Millisecond)

	first := <-updates
	assert.Empty(t, first)

	f.service.RunAttempt(ctx)
	f.service.RunAttempt(ctx)

	require.Eventually(t, func() bool {
		select {
		case logs := <-updates:
			return len(logs) == 2 && logs[0].ID > logs[1].ID
		default:
			return false
		}
	}, time.Second, time.Millisecond)

	cancel()
	for range updates {
	}
}

func TestSummaryAndPrune(t *testing.T) {
	f := newStatusLogFixture(true)
	ctx := testContext(t)

	f.service.RunAttempt(ctx)
	f.delivery.err = &secondary.DeliveryError{Kind: secondary.DeliveryHTTP, StatusCode: 503}
	f.service.RunAttempt(ctx)

	summary, err := f.service.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, primary.OutboxSummary{Sent: 1, Failed: 1}, *summary)

	n, err := f.service.Prune(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	logs, err := f.service.ListStatusLogs(ctx, primary.StatusLogFilters{})
	require.NoError(t, err)
	assert.Empty(t, logs)
}
