package service

import (
	"context"
	"sync"

	"pushretry/internal/domain/entity"
	"pushretry/internal/port/secondary"
)

// mockDeliverer implements secondary.Deliverer with a scriptable outcome
// per call.
type mockDeliverer struct {
	mu      sync.Mutex
	calls   int
	outcome func(call int, n *entity.Notification) entity.DeliveryResult

	// block, when non-nil, is received from before each delivery so tests
	// can hold a cycle open.
	block   chan struct{}
	started chan struct{}
}

func (m *mockDeliverer) Deliver(_ context.Context, n *entity.Notification) entity.DeliveryResult {
	if m.started != nil {
		m.started <- struct{}{}
	}
	if m.block != nil {
		<-m.block
	}

	m.mu.Lock()
	m.calls++
	call := m.calls
	outcome := m.outcome
	m.mu.Unlock()

	if outcome == nil {
		return entity.DeliveryResult{Success: true}
	}
	return outcome(call, n)
}

func (m *mockDeliverer) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func alwaysFail(_ int, _ *entity.Notification) entity.DeliveryResult {
	return entity.DeliveryResult{Success: false, Errors: []string{"gateway unavailable"}}
}

// mockDeadLetter implements secondary.DeadLetterSink and records what was
// published.
type mockDeadLetter struct {
	mu        sync.Mutex
	published []entity.RetryRecord
	err       error
}

func (m *mockDeadLetter) Publish(_ context.Context, rec entity.RetryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, rec)
	return nil
}

func (m *mockDeadLetter) Close() error { return nil }

func (m *mockDeadLetter) records() []entity.RetryRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]entity.RetryRecord, len(m.published))
	copy(out, m.published)
	return out
}

// mockStore implements secondary.SnapshotStore in memory.
type mockStore struct {
	mu      sync.Mutex
	records []entity.RetryRecord
	saveErr error
	loadErr error
}

func (m *mockStore) Save(_ context.Context, records []entity.RetryRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.records = append([]entity.RetryRecord(nil), records...)
	return nil
}

func (m *mockStore) Load(_ context.Context) ([]entity.RetryRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	return append([]entity.RetryRecord(nil), m.records...), nil
}

var (
	_ secondary.Deliverer      = (*mockDeliverer)(nil)
	_ secondary.DeadLetterSink = (*mockDeadLetter)(nil)
	_ secondary.SnapshotStore  = (*mockStore)(nil)
)
