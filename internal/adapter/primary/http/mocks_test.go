package http

import (
	"context"

	"pushretry/internal/domain/breaker"
	"pushretry/internal/domain/entity"
	"pushretry/internal/port/primary"
	"pushretry/internal/port/secondary"
)

// mockRetryService implements primary.RetryService for handler tests.
type mockRetryService struct {
	scheduleRec  entity.RetryRecord
	scheduleErr  error
	cycleResult  entity.CycleResult
	cycleErr     error
	statusRec    entity.RetryRecord
	statusErr    error
	stats        entity.QueueStatistics
	breakerSnap  breaker.Snapshot
	clearErr     error
	clearAllN    int
	cfg          entity.RetryConfig
	updateCfg    entity.RetryConfig
	updateErr    error
	lastUpdate   entity.RetryConfigUpdate
	scheduleN    entity.Notification
	processCalls int
}

func (m *mockRetryService) ScheduleRetry(_ context.Context, n entity.Notification) (entity.RetryRecord, error) {
	m.scheduleN = n
	return m.scheduleRec, m.scheduleErr
}

func (m *mockRetryService) ProcessQueue(_ context.Context) (entity.CycleResult, error) {
	m.processCalls++
	return m.cycleResult, m.cycleErr
}

func (m *mockRetryService) Status(id string) (entity.RetryRecord, error) {
	return m.statusRec, m.statusErr
}

func (m *mockRetryService) Statistics() entity.QueueStatistics { return m.stats }
func (m *mockRetryService) BreakerState() breaker.Snapshot     { return m.breakerSnap }
func (m *mockRetryService) Clear(string) error                 { return m.clearErr }
func (m *mockRetryService) ClearAll() int                      { return m.clearAllN }
func (m *mockRetryService) Config() entity.RetryConfig         { return m.cfg }

func (m *mockRetryService) UpdateConfig(u entity.RetryConfigUpdate) (entity.RetryConfig, error) {
	m.lastUpdate = u
	return m.updateCfg, m.updateErr
}

var _ primary.RetryService = (*mockRetryService)(nil)

// mockHealthCheck is a test double for health checks.
type mockHealthCheck struct {
	name string
	err  error
}

func (m mockHealthCheck) Name() string                  { return m.name }
func (m mockHealthCheck) Check(_ context.Context) error { return m.err }

var _ secondary.HealthChecker = mockHealthCheck{}
