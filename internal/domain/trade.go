package domain

import "time"

type TradeStatus string

const (
	StatusPending     TradeStatus = "PENDING"
	StatusBuyerPaid   TradeStatus = "BUYER_PAID"
	StatusFlagged     TradeStatus = "FLAGGED"
	StatusReleased    TradeStatus = "RELEASED"
	StatusCanceled    TradeStatus = "CANCELED"
	StatusAdminClosed TradeStatus = "ADMIN_CLOSED"
)

type SnapshotSource string

const (
	SourcePoll       SnapshotSource = "poll"
	SourcePush       SnapshotSource = "push"
	SourceOptimistic SnapshotSource = "optimistic"
	SourceAction     SnapshotSource = "action"
)

// TradeSnapshot is the canonical trade state at one version.
// Sequence is a unix-milli logical clock: max of the server update
// timestamp (when present) and the local receipt time.
type TradeSnapshot struct {
	TradeID            string
	OrderID            string
	Sequence           int64
	Status             TradeStatus
	CreatedAt          time.Time
	PaidAt             *time.Time
	CancellationReason string
	AppealReason       string
	AppealedBy         string
	AmountFiat         float64
	AmountCrypto       float64
	Currency           string
	CryptoRate         float64
	Source             SnapshotSource
	ReceivedAt         time.Time
}

func (s TradeStatus) IsTerminal() bool {
	switch s {
	case StatusReleased, StatusCanceled, StatusAdminClosed:
		return true
	}
	return false
}

// statusRank orders statuses by how far the trade has advanced.
// Used only to break exact sequence ties.
func statusRank(s TradeStatus) int {
	switch s {
	case StatusPending:
		return 0
	case StatusBuyerPaid:
		return 1
	case StatusFlagged:
		return 2
	case StatusReleased, StatusCanceled, StatusAdminClosed:
		return 3
	}
	return -1
}

// CanTransition reports whether moving from -> to is legal in the
// trade state machine. Cancellation is reachable from every
// non-terminal status (administrative or timeout cancel).
func CanTransition(from, to TradeStatus) bool {
	if from.IsTerminal() {
		return false
	}
	if to == StatusCanceled {
		return true
	}
	switch from {
	case StatusPending:
		return to == StatusBuyerPaid
	case StatusBuyerPaid:
		return to == StatusReleased || to == StatusFlagged
	case StatusFlagged:
		return to == StatusBuyerPaid || to == StatusAdminClosed
	}
	return false
}

type RejectReason string

const (
	RejectNone              RejectReason = ""
	RejectTerminalState     RejectReason = "terminal_state"
	RejectStaleSequence     RejectReason = "stale_sequence"
	RejectIllegalTransition RejectReason = "illegal_transition"
	RejectPaidAtConflict    RejectReason = "paid_at_conflict"
)

// EvaluateSnapshot is the acceptance filter: it decides whether incoming
// supersedes current. Rules, in order:
//  1. Nothing supersedes an observed terminal status.
//  2. An incoming terminal status wins regardless of sequence.
//  3. Otherwise the higher sequence wins; ties go to the more advanced
//     status. The proposed transition must be legal, and an already
//     observed PaidAt cannot change.
//
// current == nil means no baseline yet; any snapshot is accepted.
func EvaluateSnapshot(current, incoming *TradeSnapshot) (bool, RejectReason) {
	if current == nil {
		return true, RejectNone
	}
	if current.Status.IsTerminal() {
		return false, RejectTerminalState
	}
	// An optimistic PaidAt is a local guess; the authoritative value
	// is allowed to correct it. Once an authoritative PaidAt is
	// established it is set exactly once.
	if incoming.PaidAt != nil && current.PaidAt != nil &&
		current.Source != SourceOptimistic && !incoming.PaidAt.Equal(*current.PaidAt) {
		return false, RejectPaidAtConflict
	}
	if incoming.Status.IsTerminal() {
		return true, RejectNone
	}
	if incoming.Sequence < current.Sequence {
		return false, RejectStaleSequence
	}
	if incoming.Sequence == current.Sequence && statusRank(incoming.Status) <= statusRank(current.Status) {
		return false, RejectStaleSequence
	}
	if incoming.Status != current.Status && !CanTransition(current.Status, incoming.Status) {
		return false, RejectIllegalTransition
	}
	return true, RejectNone
}

// Merge carries immutable fields of the established snapshot into an
// accepted incoming one: CreatedAt is fixed for the trade's lifetime
// and PaidAt is set exactly once, so partial sources that omit them
// must not erase them.
func Merge(current, incoming *TradeSnapshot) *TradeSnapshot {
	merged := *incoming
	if current == nil {
		return &merged
	}
	if !current.CreatedAt.IsZero() {
		merged.CreatedAt = current.CreatedAt
	}
	if merged.PaidAt == nil {
		merged.PaidAt = current.PaidAt
	}
	if merged.AppealedBy == "" && merged.Status == StatusFlagged {
		merged.AppealedBy = current.AppealedBy
	}
	return &merged
}
