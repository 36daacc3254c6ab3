// Package nonce maintains the monotonically increasing request counter
// shared with the upstream notifier.
package nonce

import (
	"context"
	"sync"
	"time"

	"github.com/attid/MyMTLWalletBot-sub000/internal/logger"
	"github.com/attid/MyMTLWalletBot-sub000/internal/ports"
)

// InitMargin is added to the remote nonce on initialization as a safety
// margin against races with other instances or stale local state.
const InitMargin = 1000

// Manager hands out strictly increasing nonce values. The counter is
// lazily synchronized with the remote service on first use and guarded
// by a single mutex so overlapping requests never observe the same value.
type Manager struct {
	mu          sync.Mutex
	current     int64
	initialized bool
	client      ports.UpstreamClient
}

func NewManager(client ports.UpstreamClient) *Manager {
	return &Manager{client: client}
}

// Next returns the next nonce. On first use the counter is seeded from
// the remote service plus InitMargin; if the fetch fails the wall clock
// in milliseconds is used instead.
func (m *Manager) Next(ctx context.Context) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.initialized {
		if remote, err := m.client.FetchNonce(ctx); err == nil {
			m.current = remote + InitMargin
		} else {
			logger.L.Warn("nonce fetch failed, falling back to wall clock", "error", err)
			m.current = time.Now().UnixMilli()
		}
		m.initialized = true
	}
	m.current++
	return m.current
}
