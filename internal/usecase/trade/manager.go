package trade

import (
	"context"
	"sync"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/tradesync"
)

// Manager owns the per-trade controller instances. Trades are fully
// independent: each open trade runs its own synchronizer and the
// manager only guards the registry itself. Re-opening a closed trade
// builds a fresh synchronizer with no inherited backoff state.
type Manager struct {
	// ctx is the application lifetime. Synchronizers run until the
	// trade is closed or the process shuts down, never tied to the
	// request that opened them.
	ctx context.Context

	orders  domain.OrderService
	push    domain.PushSource
	journal domain.SnapshotJournal
	metrics *metrics.TradeSyncMetrics
	cfg     tradesync.Config
	party   string

	mu          sync.RWMutex
	controllers map[string]*Controller
}

func NewManager(
	ctx context.Context,
	orders domain.OrderService,
	push domain.PushSource,
	journal domain.SnapshotJournal,
	syncMetrics *metrics.TradeSyncMetrics,
	cfg tradesync.Config,
	party string) *Manager {

	return &Manager{
		ctx:         ctx,
		orders:      orders,
		push:        push,
		journal:     journal,
		metrics:     syncMetrics,
		cfg:         cfg,
		party:       party,
		controllers: make(map[string]*Controller),
	}
}

// Open starts synchronization for a trade and returns its controller.
// Opening an already-open trade returns the running instance.
func (m *Manager) Open(orderID, tradeID string) (*Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if c, ok := m.controllers[tradeID]; ok {
		return c, nil
	}

	synchronizer := tradesync.NewSynchronizer(tradeID, orderID, m.orders, m.push, m.journal, m.metrics, m.cfg)
	if err := synchronizer.Start(m.ctx); err != nil {
		synchronizer.Stop()
		return nil, err
	}

	c := NewController(tradeID, orderID, m.party, m.orders, synchronizer, m.metrics)
	m.controllers[tradeID] = c
	return c, nil
}

func (m *Manager) Get(tradeID string) (*Controller, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	c, ok := m.controllers[tradeID]
	if !ok {
		return nil, domain.ErrTradeNotFound
	}
	return c, nil
}

// Close tears the trade view down: push subscription cancelled, poll
// timer stopped, late responses discarded.
func (m *Manager) Close(tradeID string) error {
	m.mu.Lock()
	c, ok := m.controllers[tradeID]
	delete(m.controllers, tradeID)
	m.mu.Unlock()

	if !ok {
		return domain.ErrTradeNotFound
	}
	c.sync.Stop()
	return nil
}

func (m *Manager) CloseAll() {
	m.mu.Lock()
	controllers := m.controllers
	m.controllers = make(map[string]*Controller)
	m.mu.Unlock()

	for _, c := range controllers {
		c.sync.Stop()
	}
}

// PauseAll suspends polling on every open trade (backgrounded client)
// without losing push delivery or resetting backoff counters.
func (m *Manager) PauseAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.controllers {
		c.sync.Pause()
	}
}

func (m *Manager) ResumeAll() {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.controllers {
		c.sync.Resume()
	}
}
