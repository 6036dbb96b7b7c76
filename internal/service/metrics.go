package service

import (
	"sync/atomic"
	"time"
)

// Metrics 进程内计数器，重启即清零
type Metrics struct {
	requests       atomic.Int64
	succeeded      atomic.Int64
	degraded       atomic.Int64
	inputErrors    atomic.Int64
	upstreamErrors atomic.Int64
	timeouts       atomic.Int64
	liveSessions   atomic.Int64

	upstreamCalls   atomic.Int64
	upstreamLatency atomic.Int64
}

func NewMetrics() *Metrics {
	return &Metrics{}
}

func (m *Metrics) IncrementRequests() {
	m.requests.Add(1)
}

func (m *Metrics) IncrementSucceeded() {
	m.succeeded.Add(1)
}

func (m *Metrics) IncrementDegraded() {
	m.degraded.Add(1)
}

func (m *Metrics) IncrementInputErrors() {
	m.inputErrors.Add(1)
}

func (m *Metrics) IncrementUpstreamErrors() {
	m.upstreamErrors.Add(1)
}

func (m *Metrics) IncrementTimeouts() {
	m.timeouts.Add(1)
}

func (m *Metrics) IncrementLiveSessions() {
	m.liveSessions.Add(1)
}

func (m *Metrics) DecrementLiveSessions() {
	m.liveSessions.Add(-1)
}

func (m *Metrics) GetLiveSessions() int64 {
	return m.liveSessions.Load()
}

// RecordUpstream counts one provider round trip, successful or not.
func (m *Metrics) RecordUpstream(d time.Duration) {
	m.upstreamCalls.Add(1)
	m.upstreamLatency.Add(d.Milliseconds())
}

func (m *Metrics) GetUpstreamCalls() int64 {
	return m.upstreamCalls.Load()
}

func (m *Metrics) GetAvgUpstreamMs() float64 {
	calls := m.upstreamCalls.Load()
	if calls == 0 {
		return 0
	}
	return float64(m.upstreamLatency.Load()) / float64(calls)
}
