package kafka

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/LavaJover/shvark-trade-client/internal/domain"
	"github.com/LavaJover/shvark-trade-client/internal/infrastructure/metrics"
	"github.com/segmentio/kafka-go"
)

type pushSubscriber struct {
	onSnapshot  func(*domain.TradeSnapshot)
	onReconnect func()
}

// KafkaPushSource implements domain.PushSource over the platform's
// trade-events topic. One consumer per client process; events are
// fanned out to per-trade subscribers. Delivery is best-effort: the
// acceptance filter downstream absorbs duplicates and reordering, and
// polling recovers gaps.
type KafkaPushSource struct {
	brokers []string
	topic   string
	groupID string
	metrics *metrics.TradeSyncMetrics

	mu     sync.Mutex
	subs   map[string]map[int]pushSubscriber
	nextID int

	cancel context.CancelFunc
}

func NewKafkaPushSource(brokers []string, topic, groupID string, syncMetrics *metrics.TradeSyncMetrics) *KafkaPushSource {
	return &KafkaPushSource{
		brokers: brokers,
		topic:   topic,
		groupID: groupID,
		metrics: syncMetrics,
		subs:    make(map[string]map[int]pushSubscriber),
	}
}

// Start launches the consume loop. Reconnection is handled here: when
// the reader fails it is rebuilt and every subscriber gets a reconnect
// signal, meaning "resume receiving, may have missed updates".
func (k *KafkaPushSource) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	k.cancel = cancel
	go k.consumeLoop(ctx)
}

func (k *KafkaPushSource) Close() {
	if k.cancel != nil {
		k.cancel()
	}
}

func (k *KafkaPushSource) consumeLoop(ctx context.Context) {
	for {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers: k.brokers,
			Topic:   k.topic,
			GroupID: k.groupID,
		})

		for {
			m, err := reader.ReadMessage(ctx)
			if err != nil {
				reader.Close()
				if ctx.Err() != nil {
					return
				}
				slog.Error("kafka trade-events reader failed, reconnecting",
					"topic", k.topic, "error", err.Error())
				if k.metrics != nil {
					k.metrics.PushReconnectsTotal.WithLabelValues(k.topic).Inc()
				}
				select {
				case <-ctx.Done():
					return
				case <-time.After(3 * time.Second):
				}
				k.notifyReconnect()
				break
			}
			k.dispatch(m.Value)
		}
	}
}

func (k *KafkaPushSource) dispatch(value []byte) {
	var event TradeEvent
	if err := json.Unmarshal(value, &event); err != nil {
		slog.Error("failed to decode trade event", "topic", k.topic, "error", err.Error())
		return
	}
	if k.metrics != nil {
		k.metrics.PushEventsTotal.WithLabelValues(k.topic).Inc()
	}
	snapshot := event.ToSnapshot(time.Now())

	k.mu.Lock()
	subscribers := make([]pushSubscriber, 0, len(k.subs[event.TradeID]))
	for _, sub := range k.subs[event.TradeID] {
		subscribers = append(subscribers, sub)
	}
	k.mu.Unlock()

	for _, sub := range subscribers {
		sub.onSnapshot(snapshot)
	}
}

func (k *KafkaPushSource) notifyReconnect() {
	k.mu.Lock()
	var callbacks []func()
	for _, subs := range k.subs {
		for _, sub := range subs {
			if sub.onReconnect != nil {
				callbacks = append(callbacks, sub.onReconnect)
			}
		}
	}
	k.mu.Unlock()

	for _, cb := range callbacks {
		cb()
	}
}

func (k *KafkaPushSource) Subscribe(tradeID string, onSnapshot func(*domain.TradeSnapshot), onReconnect func()) (domain.Unsubscribe, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.subs[tradeID] == nil {
		k.subs[tradeID] = make(map[int]pushSubscriber)
	}
	id := k.nextID
	k.nextID++
	k.subs[tradeID][id] = pushSubscriber{onSnapshot: onSnapshot, onReconnect: onReconnect}

	return func() {
		k.mu.Lock()
		defer k.mu.Unlock()
		delete(k.subs[tradeID], id)
		if len(k.subs[tradeID]) == 0 {
			delete(k.subs, tradeID)
		}
	}, nil
}
