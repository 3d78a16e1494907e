package tradesync

import (
	"context"
	"log/slog"
	"time"
)

const (
	triggerBaseline = "baseline"
	triggerTick     = "tick"
	triggerRefresh  = "refresh"
)

func (s *Synchronizer) runPollLoop(ctx context.Context) {
	timer := time.NewTimer(s.effectiveInterval())
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			s.Stop()
			return
		case <-s.stopCh:
			return
		case <-s.refreshCh:
			// Manual refresh bypasses the min-spacing throttle.
			s.poll(ctx, triggerRefresh)
		case <-timer.C:
			if s.shouldPoll() {
				s.poll(ctx, triggerTick)
			}
		}

		if !timer.Stop() {
			select {
			case <-timer.C:
			default:
			}
		}
		timer.Reset(s.effectiveInterval())
	}
}

// shouldPoll skips a tick when polling is paused or when push traffic
// already delivered an accepted update within the minimum spacing.
func (s *Synchronizer) shouldPoll() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.paused {
		return false
	}
	return s.clock().Sub(s.lastAccepted) >= s.cfg.MinSpacing
}

func (s *Synchronizer) poll(ctx context.Context, trigger string) {
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.PollTimeout)
	defer cancel()

	started := s.clock()
	snapshot, err := s.orders.FetchTradeDetails(pollCtx, s.orderID, s.tradeID)
	elapsed := s.clock().Sub(started)
	s.metrics.RecordPoll(trigger, elapsed.Seconds(), err)

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.pollCount++
	s.lastPollAt = s.clock()
	if err != nil {
		// Existing state and deadlines stay untouched; only the
		// effective interval backs off.
		s.consecErrors++
		interval := s.intervalLocked()
		s.mu.Unlock()
		s.metrics.SetBackoff(s.tradeID, interval.Seconds())
		slog.Error("trade poll failed",
			"trade_id", s.tradeID,
			"trigger", trigger,
			"consecutive_errors", s.consecErrorsSnapshot(),
			"next_interval", interval.String(),
			"error", err.Error(),
		)
		return
	}
	s.consecErrors = 0
	s.mu.Unlock()
	s.metrics.SetBackoff(s.tradeID, s.cfg.BaseInterval.Seconds())

	s.Apply(snapshot)
}

func (s *Synchronizer) consecErrorsSnapshot() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consecErrors
}

// intervalLocked computes the effective polling interval under the
// exponential backoff rule: base × factor^consecutive-errors, capped.
func (s *Synchronizer) intervalLocked() time.Duration {
	interval := s.cfg.BaseInterval
	for i := 0; i < s.consecErrors; i++ {
		interval = time.Duration(float64(interval) * s.cfg.BackoffFactor)
		if interval >= s.cfg.MaxInterval {
			return s.cfg.MaxInterval
		}
	}
	return interval
}

func (s *Synchronizer) effectiveInterval() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.intervalLocked()
}

// RefreshNow schedules an immediate poll, skipping the min-spacing
// throttle. Used right after a user action to fetch authoritative
// confirmation promptly. The acceptance filter still applies.
func (s *Synchronizer) RefreshNow() {
	select {
	case s.refreshCh <- struct{}{}:
	default:
	}
}

// Pause suspends the polling loop (backgrounded view) without losing
// push delivery. Error and backoff counters are kept as-is.
func (s *Synchronizer) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = true
}

func (s *Synchronizer) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paused = false
}
