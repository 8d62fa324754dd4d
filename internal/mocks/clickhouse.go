package mocks

import (
	"context"
	"sync"

	"github.com/Billy-Davies-2/futdraw/internal/clickhouse"
	"github.com/Billy-Davies-2/futdraw/internal/logger"
	"github.com/Billy-Davies-2/futdraw/internal/models"
)

// MockAnalytics keeps draw analytics in memory for local development.
type MockAnalytics struct {
	mu      sync.Mutex
	spreads map[string][]int // owner -> spread per draw
	rows    int
}

// NewMockAnalytics creates an empty in-memory analytics sink.
func NewMockAnalytics() *MockAnalytics {
	logger.Info("Using MOCK ClickHouse analytics for local development")
	return &MockAnalytics{spreads: make(map[string][]int)}
}

// RecordDraw stores the draw's spread.
func (m *MockAnalytics) RecordDraw(_ context.Context, result *models.DrawResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.spreads[result.Owner] = append(m.spreads[result.Owner], result.Spread)
	m.rows += result.PlayerCount
	return nil
}

// OwnerDrawStats mirrors the ClickHouse aggregate.
func (m *MockAnalytics) OwnerDrawStats(_ context.Context, owner string) (clickhouse.DrawStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	spreads := m.spreads[owner]
	if len(spreads) == 0 {
		return clickhouse.DrawStats{}, nil
	}
	var sum int
	for _, s := range spreads {
		sum += s
	}
	return clickhouse.DrawStats{
		Draws:     uint64(len(spreads)),
		AvgSpread: float64(sum) / float64(len(spreads)),
	}, nil
}

// Rows is the number of player rows ClickHouse would have received.
func (m *MockAnalytics) Rows() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rows
}

func (m *MockAnalytics) Ping(context.Context) error { return nil }

// Close is a no-op for mock client
func (m *MockAnalytics) Close() error {
	return nil
}
