package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/core/statuslog"
	"github.com/example/attend/internal/ctxutil"
	"github.com/example/attend/internal/ports/primary"
	"github.com/example/attend/internal/ports/secondary"
)

// DefaultChainDelay is the fixed delay between runs of the foreground loop.
const DefaultChainDelay = 3 * time.Minute

// StatusLogDeps are the collaborators of the status-log task.
type StatusLogDeps struct {
	Outbox   secondary.OutboxRepository
	Settings secondary.SettingsStore
	Claims   secondary.SessionClaims // optional
	Network  secondary.NetworkProbe
	Device   secondary.DeviceProbe
	Location secondary.LocationProvider
	Delivery secondary.DeliveryClient
	Chain    secondary.ChainScheduler
	Liveness secondary.LivenessSurface // optional
	Observer secondary.AttemptObserver // optional

	ChainDelay time.Duration
}

// StatusLogServiceImpl implements the StatusLogService interface.
type StatusLogServiceImpl struct {
	outbox     secondary.OutboxRepository
	settings   secondary.SettingsStore
	claims     secondary.SessionClaims
	network    secondary.NetworkProbe
	device     secondary.DeviceProbe
	location   secondary.LocationProvider
	delivery   secondary.DeliveryClient
	chain      secondary.ChainScheduler
	liveness   secondary.LivenessSurface
	observer   secondary.AttemptObserver
	chainDelay time.Duration
	now        func() time.Time
}

// NewStatusLogService creates a new StatusLogService with injected dependencies.
func NewStatusLogService(deps StatusLogDeps) *StatusLogServiceImpl {
	delay := deps.ChainDelay
	if delay <= 0 {
		delay = DefaultChainDelay
	}
	return &StatusLogServiceImpl{
		outbox:     deps.Outbox,
		settings:   deps.Settings,
		claims:     deps.Claims,
		network:    deps.Network,
		device:     deps.Device,
		location:   deps.Location,
		delivery:   deps.Delivery,
		chain:      deps.Chain,
		liveness:   deps.Liveness,
		observer:   deps.Observer,
		chainDelay: delay,
		now:        time.Now,
	}
}

// attempt tracks the phase of one invocation.
type attempt struct {
	result *primary.AttemptResult
	phase  statuslog.Phase
	logger zerolog.Logger
}

func (a *attempt) enter(p statuslog.Phase) {
	if !statuslog.CanEnter(a.phase, p) {
		a.logger.Error().Str("from", string(a.phase)).Str("to", string(p)).Msg("invalid phase transition")
	}
	a.logger.Debug().Str("from", string(a.phase)).Str("to", string(p)).Msg("phase")
	a.phase = p
	a.result.Phase = string(p)
}

// RunAttempt runs one status-log invocation: gate on the toggle, gather,
// persist PENDING, deliver, record the outcome.
func (s *StatusLogServiceImpl) RunAttempt(ctx context.Context) *primary.AttemptResult {
	trigger := ctxutil.TriggerFromContext(ctx)
	logger := zerolog.Ctx(ctx).With().Str("trigger", string(trigger)).Logger()
	ctx = logger.WithContext(ctx)

	result := &primary.AttemptResult{Trigger: string(trigger), Phase: string(statuslog.PhaseIdle)}
	a := &attempt{result: result, phase: statuslog.PhaseIdle, logger: logger}

	started := s.now()
	defer func() {
		if s.observer != nil {
			s.observer.ObserveAttempt(result.Trigger, result.Phase, s.now().Sub(started))
		}
	}()

	enabled, err := s.settings.GetBool(ctx, secondary.SettingTrackingEnabled)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read tracking toggle, treating as disabled")
	}
	if !enabled {
		a.enter(statuslog.PhaseStopped)
		s.show(ctx, secondary.LivenessSignal{State: secondary.LivenessStopped})
		logger.Info().Msg("tracking disabled, attempt stopped")
		return result
	}

	a.enter(statuslog.PhaseGathering)
	obs := s.gather(ctx, result)
	draft := statuslog.NewDraft(obs)

	id, err := s.outbox.Insert(ctx, &secondary.StatusLogRecord{
		DeviceID:     draft.DeviceID,
		NetworkID:    draft.NetworkID,
		Latitude:     draft.Latitude,
		Longitude:    draft.Longitude,
		Timestamp:    draft.Timestamp,
		SubjectPhone: draft.SubjectPhone,
		SyncState:    string(draft.SyncState),
		Trigger:      string(trigger),
	})
	if err != nil {
		result.Err = errors.Errorf("failed to persist status log: %w", err)
		logger.Error().Err(err).Msg("failed to persist status log, skipping delivery")
		return result
	}
	result.RecordID = id
	result.SyncState = string(statuslog.SyncPending)
	a.enter(statuslog.PhasePersistedPending)

	a.enter(statuslog.PhaseDelivering)
	deliverErr := s.deliver(ctx, &secondary.StatusPayload{
		DeviceID:     draft.DeviceID,
		NetworkID:    draft.NetworkID,
		Latitude:     draft.Latitude,
		Longitude:    draft.Longitude,
		Timestamp:    draft.Timestamp,
		SubjectPhone: draft.SubjectPhone,
	})

	if deliverErr != nil {
		a.enter(statuslog.PhaseDeliveryFailed)
		if err := s.outbox.MarkFailed(ctx, id, deliverErr.Error()); err != nil {
			logger.Warn().Err(err).Int64("id", id).Msg("failed to mark status log failed")
		} else {
			result.SyncState = string(statuslog.SyncFailed)
		}
		// The surface keeps its last "synced at" line; a failure shows only as
		// the absence of a newer one.
		logger.Warn().Err(deliverErr).Int64("id", id).Msg("status log delivery failed")
		return result
	}

	a.enter(statuslog.PhaseDelivered)
	if err := s.outbox.MarkSent(ctx, id); err != nil {
		logger.Warn().Err(err).Int64("id", id).Msg("failed to mark status log sent")
	} else {
		result.SyncState = string(statuslog.SyncSent)
	}

	syncedAt := s.now()
	if err := s.settings.SetString(ctx, secondary.SettingLastSyncedAt, syncedAt.UTC().Format(time.RFC3339)); err != nil {
		logger.Warn().Err(err).Msg("failed to record last sync time")
	}
	logger.Info().Int64("id", id).Msg("status log delivered")
	s.show(ctx, secondary.LivenessSignal{State: secondary.LivenessSynced, SyncedAt: syncedAt})
	return result
}

// HandleChainTick runs one attempt of the foreground loop and then arms its
// successor after the fixed delay, whatever the attempt's outcome. Only a
// disabled toggle ends the chain.
func (s *StatusLogServiceImpl) HandleChainTick(ctx context.Context) {
	s.chainTick(ctx)
}

func (s *StatusLogServiceImpl) chainTick(ctx context.Context) (result *primary.AttemptResult) {
	ctx = ctxutil.WithTrigger(ctx, ctxutil.TriggerChain)
	logger := zerolog.Ctx(ctx)

	defer func() {
		if r := recover(); r != nil {
			logger.Error().Interface("panic", r).Msg("status log attempt panicked")
		}
		if result.Stopped() {
			logger.Info().Msg("foreground loop stopped")
			return
		}
		if !s.stillEnabled(ctx) {
			logger.Info().Msg("foreground loop stopped after the attempt")
			return
		}
		if err := s.chain.Enqueue(ctx, s.chainDelay); err != nil {
			logger.Warn().Err(err).Msg("failed to re-arm foreground loop")
			return
		}
		if result != nil && statuslog.CanEnter(statuslog.Phase(result.Phase), statuslog.PhaseRescheduled) {
			result.Phase = string(statuslog.PhaseRescheduled)
		}
		logger.Debug().Str("phase", string(statuslog.PhaseRescheduled)).Dur("delay", s.chainDelay).Msg("foreground loop rescheduled")
	}()

	return s.RunAttempt(ctx)
}

// HandlePeriodicTick runs one attempt of the periodic trigger. When logging is
// still enabled after the attempt but the foreground loop has no pending run
// (for example after it was lost with its process), the loop is re-armed.
func (s *StatusLogServiceImpl) HandlePeriodicTick(ctx context.Context) {
	ctx = ctxutil.WithTrigger(ctx, ctxutil.TriggerPeriodic)
	result := s.RunAttempt(ctx)
	if result.Stopped() || s.chain == nil {
		return
	}

	if !s.stillEnabled(ctx) {
		return
	}
	if _, pending := s.chain.Pending(); pending {
		return
	}
	if err := s.chain.Enqueue(ctx, s.chainDelay); err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to re-arm foreground loop from periodic trigger")
		return
	}
	zerolog.Ctx(ctx).Info().Msg("foreground loop re-armed by periodic trigger")
}

// stillEnabled re-reads the toggle, which may have been switched off while an
// attempt ran. A failed read counts as disabled.
func (s *StatusLogServiceImpl) stillEnabled(ctx context.Context) bool {
	enabled, err := s.settings.GetBool(ctx, secondary.SettingTrackingEnabled)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to re-read tracking toggle, foreground loop not re-armed")
		return false
	}
	return enabled
}

// ListStatusLogs lists records newest first.
func (s *StatusLogServiceImpl) ListStatusLogs(ctx context.Context, filters primary.StatusLogFilters) ([]*primary.StatusLog, error) {
	records, err := s.outbox.List(ctx, secondary.OutboxFilters{
		SyncState: filters.SyncState,
		Limit:     filters.Limit,
	})
	if err != nil {
		return nil, errors.Errorf("failed to list status logs: %w", err)
	}

	logs := make([]*primary.StatusLog, len(records))
	for i, r := range records {
		logs[i] = s.recordToStatusLog(r)
	}
	return logs, nil
}

// ObserveStatusLogs polls the outbox and emits the list whenever it changes.
// The channel is closed when ctx is done.
func (s *StatusLogServiceImpl) ObserveStatusLogs(ctx context.Context, filters primary.StatusLogFilters, interval time.Duration) <-chan []*primary.StatusLog {
	if interval <= 0 {
		interval = time.Second
	}
	out := make(chan []*primary.StatusLog)

	go func() {
		defer close(out)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		last := ""
		first := true
		for {
			logs, err := s.ListStatusLogs(ctx, filters)
			if err != nil {
				zerolog.Ctx(ctx).Warn().Err(err).Msg("failed to observe status logs")
			} else if key := fingerprint(logs); first || key != last {
				select {
				case out <- logs:
				case <-ctx.Done():
					return
				}
				first = false
				last = key
			}

			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()

	return out
}

// Summary returns outbox counts by sync-state.
func (s *StatusLogServiceImpl) Summary(ctx context.Context) (*primary.OutboxSummary, error) {
	counts, err := s.outbox.CountByState(ctx)
	if err != nil {
		return nil, errors.Errorf("failed to summarize outbox: %w", err)
	}
	return &primary.OutboxSummary{
		Pending: counts[string(statuslog.SyncPending)],
		Sent:    counts[string(statuslog.SyncSent)],
		Failed:  counts[string(statuslog.SyncFailed)],
	}, nil
}

// Prune deletes terminal records created before olderThan.
func (s *StatusLogServiceImpl) Prune(ctx context.Context, olderThan time.Time) (int64, error) {
	n, err := s.outbox.PruneBefore(ctx, olderThan)
	if err != nil {
		return 0, errors.Errorf("failed to prune status logs: %w", err)
	}
	return n, nil
}

// Helper methods

// gather reads every probe. Nothing here fails the attempt: a location error
// leaves the coordinates empty and is reported in the result.
func (s *StatusLogServiceImpl) gather(ctx context.Context, result *primary.AttemptResult) statuslog.Observation {
	logger := zerolog.Ctx(ctx)

	obs := statuslog.Observation{
		NetworkID:    s.network.CurrentNetworkIdentifier(ctx),
		DeviceID:     s.device.CurrentDeviceIdentifier(ctx),
		SubjectPhone: s.subjectPhone(ctx),
	}

	fix, err := s.location.CurrentLocationFix(ctx)
	var perr *secondary.PermissionError
	switch {
	case errors.As(err, &perr):
		result.LocationError = perr.Error()
		logger.Warn().Err(perr).Msg("location permission missing, logging without coordinates")
	case err != nil:
		result.LocationError = err.Error()
		logger.Warn().Err(err).Msg("location fix failed, logging without coordinates")
	case fix != nil:
		obs.HasFix = true
		obs.Latitude = fix.Latitude
		obs.Longitude = fix.Longitude
	}

	obs.ObservedAt = s.now()
	return obs
}

// subjectPhone returns the cached phone, filling the cache from the session
// token's claims when it is empty.
func (s *StatusLogServiceImpl) subjectPhone(ctx context.Context) string {
	logger := zerolog.Ctx(ctx)

	phone, err := s.settings.GetString(ctx, secondary.SettingSubjectPhone)
	if err != nil {
		logger.Warn().Err(err).Msg("failed to read cached subject phone")
		return ""
	}
	if phone != "" || s.claims == nil {
		return phone
	}

	token, err := s.settings.GetString(ctx, secondary.SettingSessionToken)
	if err != nil || token == "" {
		return ""
	}
	phone, err = s.claims.SubjectPhone(token)
	if err != nil {
		logger.Debug().Err(err).Msg("session token carries no readable phone")
		return ""
	}
	if phone != "" {
		if err := s.settings.SetString(ctx, secondary.SettingSubjectPhone, phone); err != nil {
			logger.Warn().Err(err).Msg("failed to cache subject phone")
		}
	}
	return phone
}

// deliver calls the delivery client, turning a panic into an error.
func (s *StatusLogServiceImpl) deliver(ctx context.Context, payload *secondary.StatusPayload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("delivery panicked: %v", r)
		}
	}()
	return s.delivery.SendStatus(ctx, payload)
}

func (s *StatusLogServiceImpl) show(ctx context.Context, signal secondary.LivenessSignal) {
	if s.liveness != nil {
		s.liveness.Show(ctx, signal)
	}
}

func (s *StatusLogServiceImpl) recordToStatusLog(r *secondary.StatusLogRecord) *primary.StatusLog {
	return &primary.StatusLog{
		ID:           r.ID,
		DeviceID:     r.DeviceID,
		NetworkID:    r.NetworkID,
		Latitude:     r.Latitude,
		Longitude:    r.Longitude,
		Timestamp:    r.Timestamp,
		SubjectPhone: r.SubjectPhone,
		SyncState:    r.SyncState,
		Trigger:      r.Trigger,
		LastError:    r.LastError,
		CreatedAt:    r.CreatedAt,
	}
}

func fingerprint(logs []*primary.StatusLog) string {
	key := fmt.Sprintf("%d", len(logs))
	for _, l := range logs {
		key += fmt.Sprintf("|%d:%s", l.ID, l.SyncState)
	}
	return key
}

// Ensure StatusLogServiceImpl implements the interface
var _ primary.StatusLogService = (*StatusLogServiceImpl)(nil)
