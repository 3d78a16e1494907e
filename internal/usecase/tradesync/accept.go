package tradesync

import (
	"context"
	"log/slog"
	"time"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/usecase/deadline"
)

// Apply is the single acceptance-filter entry point. Every snapshot,
// whatever its origin (push delivery, poll result, optimistic local
// update, authoritative action response), passes through here.
// Returns true when the snapshot became the new authoritative state.
func (s *Synchronizer) Apply(incoming *domain.TradeSnapshot) bool {
	if incoming == nil {
		return false
	}

	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	accepted, reason := domain.EvaluateSnapshot(s.current, incoming)
	if !accepted {
		s.mu.Unlock()
		// Expected under out-of-order delivery, not a failure.
		s.metrics.RecordRejected(string(incoming.Source), string(reason))
		slog.Debug("stale snapshot discarded",
			"trade_id", s.tradeID,
			"source", incoming.Source,
			"status", incoming.Status,
			"reason", reason,
		)
		return false
	}

	merged := domain.Merge(s.current, incoming)
	s.current = merged
	s.lastAccepted = s.clock()

	// Delivered before releasing the lock: a later-accepted snapshot
	// can never reach a listener ahead of an earlier one, even when
	// the push and poll goroutines race through Apply.
	deadlines := deadline.Compute(merged, s.clock())
	for _, l := range s.listeners {
		l(merged, deadlines)
	}
	s.mu.Unlock()

	s.metrics.RecordAccepted(string(merged.Source), string(merged.Status))
	slog.Info("trade snapshot accepted",
		"trade_id", s.tradeID,
		"source", merged.Source,
		"status", merged.Status,
		"sequence", merged.Sequence,
	)

	if s.journal != nil {
		go func(snapshot domain.TradeSnapshot) {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			defer cancel()
			if err := s.journal.RecordSnapshot(ctx, &snapshot); err != nil {
				slog.Error("failed to journal trade snapshot", "trade_id", s.tradeID, "error", err.Error())
			}
		}(*merged)
	}
	return true
}
