package tradesync

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/deadline"
)

var testStart = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

type fakeOrderService struct {
	mu         sync.Mutex
	fetchQueue []fetchResult
	fetchCalls int
}

type fetchResult struct {
	snapshot *domain.TradeSnapshot
	err      error
}

func (f *fakeOrderService) FetchTradeDetails(ctx context.Context, orderID, tradeID string) (*domain.TradeSnapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCalls++
	if len(f.fetchQueue) == 0 {
		return nil, errors.New("no scripted response")
	}
	next := f.fetchQueue[0]
	f.fetchQueue = f.fetchQueue[1:]
	return next.snapshot, next.err
}

func (f *fakeOrderService) MarkPaid(ctx context.Context, tradeID string) error     { return nil }
func (f *fakeOrderService) Release(ctx context.Context, tradeID string) error      { return nil }
func (f *fakeOrderService) Appeal(ctx context.Context, tradeID, r string) error    { return nil }
func (f *fakeOrderService) CancelAppeal(ctx context.Context, tradeID string) error { return nil }

func (f *fakeOrderService) enqueue(snapshot *domain.TradeSnapshot, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchQueue = append(f.fetchQueue, fetchResult{snapshot: snapshot, err: err})
}

func (f *fakeOrderService) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCalls
}

type fakePushSource struct {
	mu           sync.Mutex
	onSnapshot   func(*domain.TradeSnapshot)
	onReconnect  func()
	unsubscribed bool
}

func (f *fakePushSource) Subscribe(tradeID string, onSnapshot func(*domain.TradeSnapshot), onReconnect func()) (domain.Unsubscribe, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onSnapshot = onSnapshot
	f.onReconnect = onReconnect
	return func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.unsubscribed = true
	}, nil
}

func (f *fakePushSource) deliver(snapshot *domain.TradeSnapshot) {
	f.mu.Lock()
	onSnapshot := f.onSnapshot
	f.mu.Unlock()
	if onSnapshot != nil {
		onSnapshot(snapshot)
	}
}

func statusSnapshot(status domain.TradeStatus, sequence int64, source domain.SnapshotSource) *domain.TradeSnapshot {
	return &domain.TradeSnapshot{
		TradeID:   "trade-1",
		OrderID:   "order-1",
		Status:    status,
		Sequence:  sequence,
		Source:    source,
		CreatedAt: testStart,
	}
}

func newTestSynchronizer(orders *fakeOrderService, push domain.PushSource) (*Synchronizer, *time.Time) {
	s := NewSynchronizer("trade-1", "order-1", orders, push, nil, nil, DefaultConfig())
	now := testStart
	s.SetClock(func() time.Time { return now })
	return s, &now
}

func TestApply_MonotonicUnderInterleaving(t *testing.T) {
	s, _ := newTestSynchronizer(&fakeOrderService{}, nil)

	if !s.Apply(statusSnapshot(domain.StatusPending, 100, domain.SourcePoll)) {
		t.Fatal("baseline must be accepted")
	}
	if !s.Apply(statusSnapshot(domain.StatusBuyerPaid, 300, domain.SourcePush)) {
		t.Fatal("newer push must be accepted")
	}
	if s.Apply(statusSnapshot(domain.StatusPending, 200, domain.SourcePoll)) {
		t.Fatal("reordered poll must be rejected")
	}
	if s.Apply(statusSnapshot(domain.StatusBuyerPaid, 300, domain.SourcePush)) {
		t.Fatal("duplicate push must be rejected")
	}

	if got := s.Current().Status; got != domain.StatusBuyerPaid {
		t.Fatalf("current status = %s, want BUYER_PAID", got)
	}
}

func TestApply_TerminalSticks(t *testing.T) {
	s, _ := newTestSynchronizer(&fakeOrderService{}, nil)

	s.Apply(statusSnapshot(domain.StatusPending, 100, domain.SourcePoll))
	s.Apply(statusSnapshot(domain.StatusCanceled, 50, domain.SourcePush))
	if got := s.Current().Status; got != domain.StatusCanceled {
		t.Fatalf("terminal correction must win, got %s", got)
	}

	if s.Apply(statusSnapshot(domain.StatusPending, 9_999, domain.SourcePoll)) {
		t.Fatal("nothing supersedes a terminal status")
	}
}

func TestApply_NotifiesListeners(t *testing.T) {
	s, _ := newTestSynchronizer(&fakeOrderService{}, nil)

	var gotSnapshot *domain.TradeSnapshot
	var gotDeadlines deadline.Deadlines
	s.AddListener(func(snapshot *domain.TradeSnapshot, deadlines deadline.Deadlines) {
		gotSnapshot = snapshot
		gotDeadlines = deadlines
	})

	s.Apply(statusSnapshot(domain.StatusPending, 100, domain.SourcePoll))
	if gotSnapshot == nil || gotSnapshot.Status != domain.StatusPending {
		t.Fatal("listener must receive the accepted snapshot")
	}
	if gotDeadlines.AutoCancelState != deadline.CountdownActive {
		t.Fatalf("listener deadlines = %s, want active auto-cancel", gotDeadlines.AutoCancelState)
	}
}

func TestApply_ListenerDeliveryOrdered(t *testing.T) {
	s, _ := newTestSynchronizer(&fakeOrderService{}, nil)

	gate := make(chan struct{})
	var mu sync.Mutex
	var delivered []int64
	s.AddListener(func(snapshot *domain.TradeSnapshot, _ deadline.Deadlines) {
		if snapshot.Sequence == 100 {
			<-gate
		}
		mu.Lock()
		delivered = append(delivered, snapshot.Sequence)
		mu.Unlock()
	})

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		s.Apply(statusSnapshot(domain.StatusPending, 100, domain.SourcePoll))
	}()
	// Let the first delivery reach the listener and block there.
	time.Sleep(50 * time.Millisecond)
	go func() {
		defer wg.Done()
		s.Apply(statusSnapshot(domain.StatusBuyerPaid, 200, domain.SourcePush))
	}()
	time.Sleep(50 * time.Millisecond)
	close(gate)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(delivered) != 2 || delivered[0] != 100 || delivered[1] != 200 {
		t.Fatalf("delivery order = %v, want [100 200]", delivered)
	}
}

func TestAddListener_Unsubscribe(t *testing.T) {
	s, _ := newTestSynchronizer(&fakeOrderService{}, nil)

	var notified int
	unsubscribe := s.AddListener(func(*domain.TradeSnapshot, deadline.Deadlines) {
		notified++
	})

	s.Apply(statusSnapshot(domain.StatusPending, 100, domain.SourcePoll))
	if notified != 1 {
		t.Fatalf("notifications before unsubscribe = %d, want 1", notified)
	}

	unsubscribe()
	s.Apply(statusSnapshot(domain.StatusBuyerPaid, 200, domain.SourcePush))
	if notified != 1 {
		t.Fatalf("notifications after unsubscribe = %d, want still 1", notified)
	}
}

func TestPoll_BackoffProgression(t *testing.T) {
	orders := &fakeOrderService{}
	s, _ := newTestSynchronizer(orders, nil)

	for i := 0; i < 3; i++ {
		orders.enqueue(nil, errors.New("connection refused"))
		s.poll(context.Background(), triggerTick)
	}

	// 15s × 1.5³ = 50.625s
	interval := s.effectiveInterval()
	if interval < 50*time.Second || interval > 51*time.Second {
		t.Fatalf("interval after 3 failures = %v, want ≈50.6s", interval)
	}
	if got := s.Observability().ConsecutiveErrors; got != 3 {
		t.Fatalf("consecutive errors = %d, want 3", got)
	}

	// Success resets the interval and the counter.
	orders.enqueue(statusSnapshot(domain.StatusPending, 100, domain.SourcePoll), nil)
	s.poll(context.Background(), triggerTick)
	if got := s.effectiveInterval(); got != 15*time.Second {
		t.Fatalf("interval after success = %v, want 15s", got)
	}
	if got := s.Observability().ConsecutiveErrors; got != 0 {
		t.Fatalf("consecutive errors after success = %d, want 0", got)
	}
}

func TestPoll_BackoffCapped(t *testing.T) {
	orders := &fakeOrderService{}
	s, _ := newTestSynchronizer(orders, nil)

	for i := 0; i < 10; i++ {
		orders.enqueue(nil, errors.New("connection refused"))
		s.poll(context.Background(), triggerTick)
	}
	if got := s.effectiveInterval(); got != 60*time.Second {
		t.Fatalf("interval after 10 failures = %v, want capped 60s", got)
	}
}

func TestPoll_FailureKeepsState(t *testing.T) {
	orders := &fakeOrderService{}
	s, _ := newTestSynchronizer(orders, nil)

	s.Apply(statusSnapshot(domain.StatusBuyerPaid, 100, domain.SourcePush))
	orders.enqueue(nil, errors.New("boom"))
	s.poll(context.Background(), triggerTick)

	if s.Current() == nil || s.Current().Status != domain.StatusBuyerPaid {
		t.Fatal("a failed poll must not clear existing state")
	}
}

func TestShouldPoll_MinSpacing(t *testing.T) {
	s, now := newTestSynchronizer(&fakeOrderService{}, nil)

	s.Apply(statusSnapshot(domain.StatusPending, 100, domain.SourcePush))
	if s.shouldPoll() {
		t.Fatal("tick must be skipped right after an accepted update")
	}

	*now = now.Add(9 * time.Second)
	if s.shouldPoll() {
		t.Fatal("tick must be skipped inside the min spacing")
	}

	*now = now.Add(time.Second)
	if !s.shouldPoll() {
		t.Fatal("tick must fire once the min spacing elapsed")
	}
}

func TestRefreshNow_BypassesMinSpacing(t *testing.T) {
	orders := &fakeOrderService{}
	s, _ := newTestSynchronizer(orders, nil)

	// A just-accepted push puts ticks inside the min spacing.
	s.Apply(statusSnapshot(domain.StatusPending, 100, domain.SourcePush))
	if s.shouldPoll() {
		t.Fatal("tick path must be throttled")
	}

	orders.enqueue(statusSnapshot(domain.StatusBuyerPaid, 200, domain.SourcePoll), nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.runPollLoop(ctx)

	s.RefreshNow()

	waitUntil := time.Now().Add(2 * time.Second)
	for time.Now().Before(waitUntil) {
		if current := s.Current(); current != nil && current.Status == domain.StatusBuyerPaid {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if got := s.Current().Status; got != domain.StatusBuyerPaid {
		t.Fatalf("status after refresh = %s, want BUYER_PAID despite throttle", got)
	}
	if orders.calls() != 1 {
		t.Fatalf("fetch calls = %d, want the refresh poll to fire", orders.calls())
	}
}

func TestPauseResume(t *testing.T) {
	s, now := newTestSynchronizer(&fakeOrderService{}, nil)
	*now = now.Add(time.Hour)

	s.Pause()
	if s.shouldPoll() {
		t.Fatal("paused synchronizer must not poll")
	}

	// Pausing keeps the backoff counters.
	s.mu.Lock()
	s.consecErrors = 2
	s.mu.Unlock()
	s.Resume()
	if !s.shouldPoll() {
		t.Fatal("resumed synchronizer must poll again")
	}
	if got := s.Observability().ConsecutiveErrors; got != 2 {
		t.Fatalf("consecutive errors after pause/resume = %d, want 2", got)
	}
}

func TestStart_BaselineThenPush(t *testing.T) {
	orders := &fakeOrderService{}
	orders.enqueue(statusSnapshot(domain.StatusPending, 100, domain.SourcePoll), nil)
	push := &fakePushSource{}
	s, _ := newTestSynchronizer(orders, push)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	defer s.Stop()

	if got := s.Current(); got == nil || got.Status != domain.StatusPending {
		t.Fatal("baseline poll must establish the initial snapshot")
	}

	push.deliver(statusSnapshot(domain.StatusBuyerPaid, 200, domain.SourcePush))
	if got := s.Current().Status; got != domain.StatusBuyerPaid {
		t.Fatalf("push delivery must advance state, got %s", got)
	}
}

func TestStop_DiscardsLateResults(t *testing.T) {
	push := &fakePushSource{}
	orders := &fakeOrderService{}
	orders.enqueue(statusSnapshot(domain.StatusPending, 100, domain.SourcePoll), nil)
	s, _ := newTestSynchronizer(orders, push)

	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	s.Stop()

	if !push.unsubscribed {
		t.Fatal("stop must cancel the push subscription")
	}
	if s.Apply(statusSnapshot(domain.StatusBuyerPaid, 200, domain.SourcePush)) {
		t.Fatal("late-arriving snapshot after teardown must be discarded")
	}
	if got := s.Current().Status; got != domain.StatusPending {
		t.Fatalf("state after teardown changed to %s", got)
	}
}
