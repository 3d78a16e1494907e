package tradesync

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/metrics"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/deadline"
)

type Config struct {
	BaseInterval  time.Duration
	MinSpacing    time.Duration
	MaxInterval   time.Duration
	BackoffFactor float64
	PollTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{
		BaseInterval:  15 * time.Second,
		MinSpacing:    10 * time.Second,
		MaxInterval:   60 * time.Second,
		BackoffFactor: 1.5,
		PollTimeout:   5 * time.Second,
	}
}

// Observability is diagnostic state for display, not persisted.
type Observability struct {
	LastPollAt        time.Time `json:"last_poll_at"`
	PollCount         int64     `json:"poll_count"`
	ConsecutiveErrors int       `json:"consecutive_errors"`
	Paused            bool      `json:"paused"`
}

// Listener is notified after every accepted snapshot, together with
// the deadlines recomputed for it. Listeners run synchronously with
// the synchronizer's lock held, so accepted snapshots reach every
// listener in exactly the acceptance order; a listener must not block
// and must not call back into the Synchronizer.
type Listener func(snapshot *domain.TradeSnapshot, deadlines deadline.Deadlines)

// Synchronizer merges snapshots from the push subscription and the
// polling loop into one authoritative, monotonically advancing state
// per trade. Push delivery and poll results are serialized through a
// single acceptance-filter entry point; no two snapshots are evaluated
// concurrently for the same trade. Instances for different trades are
// independent.
type Synchronizer struct {
	tradeID string
	orderID string

	orders  domain.OrderService
	push    domain.PushSource
	journal domain.SnapshotJournal
	metrics *metrics.TradeSyncMetrics
	cfg     Config
	clock   func() time.Time

	mu             sync.Mutex
	current        *domain.TradeSnapshot
	lastAccepted   time.Time
	lastPollAt     time.Time
	pollCount      int64
	consecErrors   int
	paused         bool
	stopped        bool
	listeners      map[int]Listener
	nextListenerID int

	refreshCh   chan struct{}
	stopCh      chan struct{}
	stopOnce    sync.Once
	unsubscribe domain.Unsubscribe
}

func NewSynchronizer(
	tradeID, orderID string,
	orders domain.OrderService,
	push domain.PushSource,
	journal domain.SnapshotJournal,
	syncMetrics *metrics.TradeSyncMetrics,
	cfg Config) *Synchronizer {

	if cfg.BackoffFactor <= 1 {
		cfg = DefaultConfig()
	}
	return &Synchronizer{
		tradeID:   tradeID,
		orderID:   orderID,
		orders:    orders,
		push:      push,
		journal:   journal,
		metrics:   syncMetrics,
		cfg:       cfg,
		clock:     time.Now,
		listeners: make(map[int]Listener),
		refreshCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// SetClock replaces the wall clock. Test hook.
func (s *Synchronizer) SetClock(clock func() time.Time) {
	s.clock = clock
}

// AddListener registers a consumer for accepted snapshots and returns
// the function that removes it again. Callers with a shorter lifetime
// than the trade (a websocket connection, say) must unsubscribe, or
// their closure keeps receiving fan-out work for the trade's lifetime.
func (s *Synchronizer) AddListener(l Listener) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextListenerID
	s.nextListenerID++
	s.listeners[id] = l
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.listeners, id)
	}
}

// Start establishes a baseline snapshot with one immediate poll,
// subscribes to the push source and launches the polling loop.
func (s *Synchronizer) Start(ctx context.Context) error {
	s.poll(ctx, triggerBaseline)

	if s.push != nil {
		unsub, err := s.push.Subscribe(s.tradeID,
			func(snapshot *domain.TradeSnapshot) { s.Apply(snapshot) },
			func() { s.RefreshNow() },
		)
		if err != nil {
			return err
		}
		s.mu.Lock()
		s.unsubscribe = unsub
		s.mu.Unlock()
	}

	if s.metrics != nil {
		s.metrics.OpenTrades.WithLabelValues().Inc()
	}
	go s.runPollLoop(ctx)
	return nil
}

// Stop tears the synchronizer down: the push subscription is
// cancelled, the poll timer stops and any in-flight poll or action
// result arriving afterwards is discarded, not applied.
func (s *Synchronizer) Stop() {
	s.stopOnce.Do(func() {
		s.mu.Lock()
		s.stopped = true
		unsub := s.unsubscribe
		s.mu.Unlock()

		close(s.stopCh)
		if unsub != nil {
			unsub()
		}
		if s.metrics != nil {
			s.metrics.OpenTrades.WithLabelValues().Dec()
			s.metrics.SetBackoff(s.tradeID, 0)
		}
		slog.Info("trade synchronizer stopped", "trade_id", s.tradeID)
	})
}

// Current returns the authoritative snapshot, or nil before the first
// accepted one.
func (s *Synchronizer) Current() *domain.TradeSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// Deadlines recomputes both deadlines for the current snapshot from
// absolute timestamps.
func (s *Synchronizer) Deadlines() deadline.Deadlines {
	s.mu.Lock()
	current := s.current
	s.mu.Unlock()
	return deadline.Compute(current, s.clock())
}

func (s *Synchronizer) Observability() Observability {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Observability{
		LastPollAt:        s.lastPollAt,
		PollCount:         s.pollCount,
		ConsecutiveErrors: s.consecErrors,
		Paused:            s.paused,
	}
}
