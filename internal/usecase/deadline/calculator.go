package deadline

import (
	"time"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
)

const (
	// AutoCancelWindow is how long a PENDING trade may stay unpaid
	// before the platform cancels it.
	AutoCancelWindow = 15 * time.Minute

	// ExpiredGrace keeps an elapsed auto-cancel timer visible as
	// "expired, pending cancellation" instead of hiding it outright.
	// Covers clock skew and server-side cancellation latency.
	ExpiredGrace = 30 * time.Minute

	// AppealWindow is how long after marking payment the appeal
	// action stays disabled.
	AppealWindow = 5 * time.Minute

	// createdAtFallback is assumed when the trade-start timestamp is
	// missing or unparsable: treat the deadline as imminent rather
	// than silently disabling the timer.
	createdAtFallback = 14 * time.Minute
)

type CountdownState string

const (
	CountdownActive  CountdownState = "active"
	CountdownExpired CountdownState = "expired"
	CountdownHidden  CountdownState = "hidden"
)

// Deadlines is the full derived view for one snapshot at one instant.
// Both deadlines are recomputed from scratch on every accepted
// snapshot; nothing here is ever decremented.
type Deadlines struct {
	AutoCancelAt     *time.Time     `json:"auto_cancel_at,omitempty"`
	AutoCancelState  CountdownState `json:"auto_cancel_state"`
	AppealEligibleAt *time.Time     `json:"appeal_eligible_at,omitempty"`
	AppealOpen       bool           `json:"appeal_open"`
}

// ResolveCreatedAt applies the trade-start timestamp fallback chain:
// primary field, then the secondary create_time field, then "assume
// the trade started 14 minutes ago". Timestamps arrive as RFC 3339
// strings from the order service and are sometimes absent or mangled.
func ResolveCreatedAt(createdAt, createTime string, now time.Time) time.Time {
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		return t
	}
	if t, err := time.Parse(time.RFC3339, createTime); err == nil {
		return t
	}
	return now.Add(-createdAtFallback)
}

// AutoCancelDeadline derives the auto-cancel deadline and its display
// state. Defined only while the trade is PENDING; a zero CreatedAt
// falls back the same way an unparsable one does.
func AutoCancelDeadline(s *domain.TradeSnapshot, now time.Time) (time.Time, CountdownState) {
	if s == nil || s.Status != domain.StatusPending {
		return time.Time{}, CountdownHidden
	}
	createdAt := s.CreatedAt
	if createdAt.IsZero() {
		createdAt = now.Add(-createdAtFallback)
	}
	deadline := createdAt.Add(AutoCancelWindow)
	switch {
	case now.Before(deadline):
		return deadline, CountdownActive
	case now.Before(deadline.Add(ExpiredGrace)):
		return deadline, CountdownExpired
	default:
		return deadline, CountdownHidden
	}
}

// AppealDeadline derives the appeal-eligibility deadline. Defined only
// once PaidAt is set and the trade is BUYER_PAID or FLAGGED.
func AppealDeadline(s *domain.TradeSnapshot) (time.Time, bool) {
	if s == nil || s.PaidAt == nil {
		return time.Time{}, false
	}
	if s.Status != domain.StatusBuyerPaid && s.Status != domain.StatusFlagged {
		return time.Time{}, false
	}
	return s.PaidAt.Add(AppealWindow), true
}

// AppealOpen reports whether the appeal window has elapsed. The
// boundary is inclusive: appeal becomes legal exactly at PaidAt + 5m.
func AppealOpen(s *domain.TradeSnapshot, now time.Time) bool {
	deadline, ok := AppealDeadline(s)
	if !ok {
		return false
	}
	return !now.Before(deadline)
}

// Compute evaluates both deadlines for one snapshot at one instant.
func Compute(s *domain.TradeSnapshot, now time.Time) Deadlines {
	d := Deadlines{AutoCancelState: CountdownHidden}
	if deadline, state := AutoCancelDeadline(s, now); state != CountdownHidden {
		d.AutoCancelAt = &deadline
		d.AutoCancelState = state
	}
	if deadline, ok := AppealDeadline(s); ok {
		d.AppealEligibleAt = &deadline
		d.AppealOpen = !now.Before(deadline)
	}
	return d
}
