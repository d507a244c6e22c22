package app

import (
	"context"
	"strconv"
	"sync"
	"time"

	"gitlab.com/tozd/go/errors"

	"github.com/example/attend/internal/ports/secondary"
)

// mockOutboxRepository implements secondary.OutboxRepository for testing.
type mockOutboxRepository struct {
	mu        sync.Mutex
	records   map[int64]*secondary.StatusLogRecord
	nextID    int64
	insertErr error
}

func newMockOutboxRepository() *mockOutboxRepository {
	return &mockOutboxRepository{records: make(map[int64]*secondary.StatusLogRecord), nextID: 1}
}

func (m *mockOutboxRepository) Insert(ctx context.Context, record *secondary.StatusLogRecord) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	cp := *record
	cp.ID = m.nextID
	cp.SyncState = "PENDING"
	cp.CreatedAt = time.Now()
	m.records[cp.ID] = &cp
	m.nextID++
	return cp.ID, nil
}

func (m *mockOutboxRepository) mark(id int64, state, reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok && r.SyncState == "PENDING" {
		r.SyncState = state
		r.LastError = reason
	}
}

func (m *mockOutboxRepository) MarkSent(ctx context.Context, id int64) error {
	m.mark(id, "SENT", "")
	return nil
}

func (m *mockOutboxRepository) MarkFailed(ctx context.Context, id int64, reason string) error {
	m.mark(id, "FAILED", reason)
	return nil
}

func (m *mockOutboxRepository) GetByID(ctx context.Context, id int64) (*secondary.StatusLogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if r, ok := m.records[id]; ok {
		cp := *r
		return &cp, nil
	}
	return nil, errors.New("not found")
}

func (m *mockOutboxRepository) List(ctx context.Context, filters secondary.OutboxFilters) ([]*secondary.StatusLogRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var result []*secondary.StatusLogRecord
	for id := m.nextID - 1; id >= 1; id-- {
		r, ok := m.records[id]
		if !ok {
			continue
		}
		if filters.SyncState != "" && r.SyncState != filters.SyncState {
			continue
		}
		cp := *r
		result = append(result, &cp)
	}
	if filters.Limit > 0 && len(result) > filters.Limit {
		result = result[:filters.Limit]
	}
	return result, nil
}

func (m *mockOutboxRepository) CountByState(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	counts := map[string]int{}
	for _, r := range m.records {
		counts[r.SyncState]++
	}
	return counts, nil
}

func (m *mockOutboxRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, r := range m.records {
		if r.SyncState != "PENDING" && r.CreatedAt.Before(cutoff) {
			delete(m.records, id)
			n++
		}
	}
	return n, nil
}

func (m *mockOutboxRepository) all() []*secondary.StatusLogRecord {
	records, _ := m.List(context.Background(), secondary.OutboxFilters{})
	return records
}

// mockSettingsStore implements secondary.SettingsStore for testing.
type mockSettingsStore struct {
	mu         sync.Mutex
	values     map[string]string
	getBoolErr error
}

func newMockSettingsStore() *mockSettingsStore {
	return &mockSettingsStore{values: make(map[string]string)}
}

func (m *mockSettingsStore) GetString(ctx context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.values[key], nil
}

func (m *mockSettingsStore) SetString(ctx context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *mockSettingsStore) GetBool(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getBoolErr != nil {
		return false, m.getBoolErr
	}
	return m.values[key] == "true", nil
}

func (m *mockSettingsStore) SetBool(ctx context.Context, key string, value bool) error {
	return m.SetString(ctx, key, strconv.FormatBool(value))
}

// mockSessionClaims implements secondary.SessionClaims for testing.
type mockSessionClaims struct {
	phones map[string]string
}

func (m *mockSessionClaims) SubjectPhone(token string) (string, error) {
	phone, ok := m.phones[token]
	if !ok {
		return "", errors.New("malformed token")
	}
	return phone, nil
}

// Probes.

type mockNetworkProbe struct{ ssid string }

func (m *mockNetworkProbe) CurrentNetworkIdentifier(ctx context.Context) string { return m.ssid }

type mockDeviceProbe struct{ id string }

func (m *mockDeviceProbe) CurrentDeviceIdentifier(ctx context.Context) string { return m.id }

type mockLocationProvider struct {
	fix *secondary.LocationFix
	err error
}

func (m *mockLocationProvider) CurrentLocationFix(ctx context.Context) (*secondary.LocationFix, error) {
	return m.fix, m.err
}

// mockDeliveryClient implements secondary.DeliveryClient for testing.
type mockDeliveryClient struct {
	mu       sync.Mutex
	err      error
	panicMsg string
	onSend   func()
	payloads []secondary.StatusPayload
}

func (m *mockDeliveryClient) SendStatus(ctx context.Context, payload *secondary.StatusPayload) error {
	m.mu.Lock()
	m.payloads = append(m.payloads, *payload)
	m.mu.Unlock()
	if m.onSend != nil {
		m.onSend()
	}
	if m.panicMsg != "" {
		panic(m.panicMsg)
	}
	return m.err
}

func (m *mockDeliveryClient) sent() []secondary.StatusPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]secondary.StatusPayload(nil), m.payloads...)
}

// mockChainScheduler implements secondary.ChainScheduler for testing.
type mockChainScheduler struct {
	mu       sync.Mutex
	enqueued []time.Duration
	pending  bool
	err      error
}

func (m *mockChainScheduler) Enqueue(ctx context.Context, delay time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.enqueued = append(m.enqueued, delay)
	m.pending = true
	return nil
}

func (m *mockChainScheduler) Pending() (time.Time, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.pending {
		return time.Time{}, false
	}
	return time.Now().Add(time.Minute), true
}

func (m *mockChainScheduler) delays() []time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]time.Duration(nil), m.enqueued...)
}

// mockPeriodicScheduler implements secondary.PeriodicScheduler with KEEP semantics.
type mockPeriodicScheduler struct {
	mu          sync.Mutex
	regs        map[string]time.Duration
	registerErr error
	calls       int
}

func newMockPeriodicScheduler() *mockPeriodicScheduler {
	return &mockPeriodicScheduler{regs: make(map[string]time.Duration)}
}

func (m *mockPeriodicScheduler) EnqueueUniquePeriodic(ctx context.Context, name string, interval time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.registerErr != nil {
		return m.registerErr
	}
	if _, ok := m.regs[name]; !ok {
		m.regs[name] = interval
	}
	return nil
}

func (m *mockPeriodicScheduler) CancelUnique(ctx context.Context, name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.regs, name)
	return nil
}

func (m *mockPeriodicScheduler) NextRun(ctx context.Context, name string) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	interval, ok := m.regs[name]
	if !ok {
		return time.Time{}, false, nil
	}
	return time.Now().Add(interval), true, nil
}

// mockLivenessSurface records every signal.
type mockLivenessSurface struct {
	mu      sync.Mutex
	signals []secondary.LivenessSignal
}

func (m *mockLivenessSurface) Show(ctx context.Context, signal secondary.LivenessSignal) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.signals = append(m.signals, signal)
}

func (m *mockLivenessSurface) last() secondary.LivenessState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.signals) == 0 {
		return ""
	}
	return m.signals[len(m.signals)-1].State
}

// mockAttemptObserver records attempt phases.
type mockAttemptObserver struct {
	mu     sync.Mutex
	phases []string
}

func (m *mockAttemptObserver) ObserveAttempt(trigger, phase string, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.phases = append(m.phases, trigger+":"+phase)
}

// statusLogFixture wires a StatusLogServiceImpl to mocks.
type statusLogFixture struct {
	service  *StatusLogServiceImpl
	outbox   *mockOutboxRepository
	settings *mockSettingsStore
	location *mockLocationProvider
	delivery *mockDeliveryClient
	chain    *mockChainScheduler
	liveness *mockLivenessSurface
	observer *mockAttemptObserver
}

func newStatusLogFixture(enabled bool) *statusLogFixture {
	f := &statusLogFixture{
		outbox:   newMockOutboxRepository(),
		settings: newMockSettingsStore(),
		location: &mockLocationProvider{fix: &secondary.LocationFix{Latitude: 35.6892, Longitude: 51.389}},
		delivery: &mockDeliveryClient{},
		chain:    &mockChainScheduler{},
		liveness: &mockLivenessSurface{},
		observer: &mockAttemptObserver{},
	}
	_ = f.settings.SetBool(context.Background(), secondary.SettingTrackingEnabled, enabled)
	_ = f.settings.SetString(context.Background(), secondary.SettingSubjectPhone, "09120000000")

	f.service = NewStatusLogService(StatusLogDeps{
		Outbox:     f.outbox,
		Settings:   f.settings,
		Claims:     &mockSessionClaims{phones: map[string]string{"tok": "09350000000"}},
		Network:    &mockNetworkProbe{ssid: `"Office"`},
		Device:     &mockDeviceProbe{id: "dev-1"},
		Location:   f.location,
		Delivery:   f.delivery,
		Chain:      f.chain,
		Liveness:   f.liveness,
		Observer:   f.observer,
		ChainDelay: 3 * time.Minute,
	})
	f.service.now = func() time.Time { return time.Date(2026, 3, 4, 6, 0, 15, 250_000_000, time.UTC) }
	return f
}
