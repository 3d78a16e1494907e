package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// TradeSyncMetrics covers the reconciliation pipeline: polling, push
// delivery, acceptance filtering and user actions.
type TradeSyncMetrics struct {
	// Polling loop
	PollsTotal         prometheus.CounterVec
	PollErrorsTotal    prometheus.CounterVec
	PollDuration       prometheus.HistogramVec
	PollBackoffSeconds prometheus.GaugeVec

	// Acceptance filter
	SnapshotsAcceptedTotal prometheus.CounterVec
	SnapshotsRejectedTotal prometheus.CounterVec

	// Push source
	PushEventsTotal     prometheus.CounterVec
	PushReconnectsTotal prometheus.CounterVec

	// User actions
	ActionsTotal prometheus.CounterVec

	// Lifecycle
	OpenTrades prometheus.GaugeVec
}

func NewTradeSyncMetrics() *TradeSyncMetrics {
	return &TradeSyncMetrics{
		PollsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trade_sync_polls_total",
				Help: "Total trade detail polls issued",
			},
			[]string{"trigger"},
		),

		PollErrorsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trade_sync_poll_errors_total",
				Help: "Total failed trade detail polls",
			},
			[]string{"trigger"},
		),

		PollDuration: *promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "trade_sync_poll_duration_seconds",
				Help:    "Trade detail poll round-trip duration",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"result"},
		),

		PollBackoffSeconds: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trade_sync_poll_backoff_seconds",
				Help: "Current effective polling interval per trade",
			},
			[]string{"trade_id"},
		),

		SnapshotsAcceptedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trade_sync_snapshots_accepted_total",
				Help: "Snapshots accepted by the acceptance filter",
			},
			[]string{"source", "status"},
		),

		SnapshotsRejectedTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trade_sync_snapshots_rejected_total",
				Help: "Snapshots discarded by the acceptance filter",
			},
			[]string{"source", "reason"},
		),

		PushEventsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trade_sync_push_events_total",
				Help: "Push events delivered per topic",
			},
			[]string{"topic"},
		),

		PushReconnectsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trade_sync_push_reconnects_total",
				Help: "Push transport reconnect signals observed",
			},
			[]string{"topic"},
		),

		ActionsTotal: *promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "trade_actions_total",
				Help: "Trade actions executed, by action and result",
			},
			[]string{"action", "result"},
		),

		OpenTrades: *promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "trade_sync_open_trades",
				Help: "Trade synchronizers currently running",
			},
			[]string{},
		),
	}
}

func (m *TradeSyncMetrics) RecordAccepted(source, status string) {
	if m == nil {
		return
	}
	m.SnapshotsAcceptedTotal.WithLabelValues(source, status).Inc()
}

func (m *TradeSyncMetrics) RecordRejected(source, reason string) {
	if m == nil {
		return
	}
	m.SnapshotsRejectedTotal.WithLabelValues(source, reason).Inc()
}

func (m *TradeSyncMetrics) RecordPoll(trigger string, seconds float64, err error) {
	if m == nil {
		return
	}
	m.PollsTotal.WithLabelValues(trigger).Inc()
	if err != nil {
		m.PollErrorsTotal.WithLabelValues(trigger).Inc()
		m.PollDuration.WithLabelValues("error").Observe(seconds)
		return
	}
	m.PollDuration.WithLabelValues("ok").Observe(seconds)
}

func (m *TradeSyncMetrics) RecordAction(action string, err error) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.ActionsTotal.WithLabelValues(action, result).Inc()
}

func (m *TradeSyncMetrics) SetBackoff(tradeID string, seconds float64) {
	if m == nil {
		return
	}
	m.PollBackoffSeconds.WithLabelValues(tradeID).Set(seconds)
}
