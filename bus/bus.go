package bus

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

// subscriberBufferSize is the inbox buffer for each subscriber.
const subscriberBufferSize = 64

// Message is one delivered envelope, tagged with the channel it arrived on.
type Message struct {
	Channel  string
	Envelope Envelope
}

type subscriber struct {
	ch       chan Message
	channels []string
}

// Bus is an in-memory ordered publish/subscribe transport. Each subscriber
// gets one inbox channel fed by every channel it subscribed to, so a
// single-goroutine consumer sees messages in delivery order.
type Bus struct {
	mu     sync.RWMutex
	byChan map[string]map[string]*subscriber // channel -> subID -> sub
	subs   map[string]*subscriber
	logger *slog.Logger
	closed bool
}

// New creates a Bus. Pass nil logger for the default.
func New(logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		byChan: make(map[string]map[string]*subscriber),
		subs:   make(map[string]*subscriber),
		logger: logger.With("component", "bus"),
	}
}

// Subscribe registers one inbox for the given channels and returns it with a
// subscription ID. The subscription is removed and the inbox closed when ctx
// is cancelled.
func (b *Bus) Subscribe(ctx context.Context, channels ...string) (<-chan Message, string) {
	subID := uuid.New().String()
	sub := &subscriber{
		ch:       make(chan Message, subscriberBufferSize),
		channels: channels,
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(sub.ch)
		return sub.ch, subID
	}
	b.subs[subID] = sub
	for _, name := range channels {
		if _, ok := b.byChan[name]; !ok {
			b.byChan[name] = make(map[string]*subscriber)
		}
		b.byChan[name][subID] = sub
	}
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "sub_id", subID, "channels", channels)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(subID)
	}()

	return sub.ch, subID
}

// Publish delivers an envelope to every subscriber of the channel. It never
// blocks: a subscriber whose inbox is full misses the message.
func (b *Bus) Publish(channel string, env Envelope) {
	b.mu.RLock()
	subs := b.byChan[channel]
	targets := make([]*subscriber, 0, len(subs))
	for _, sub := range subs {
		targets = append(targets, sub)
	}
	b.mu.RUnlock()

	msg := Message{Channel: channel, Envelope: env}
	for _, sub := range targets {
		select {
		case sub.ch <- msg:
		default:
			b.logger.Debug("dropped message for slow subscriber", "channel", channel)
		}
	}
}

// Unsubscribe removes a subscription and closes its inbox. Safe to call for
// an unknown or already-removed ID.
func (b *Bus) Unsubscribe(subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub, ok := b.subs[subID]
	if !ok {
		return
	}
	delete(b.subs, subID)
	for _, name := range sub.channels {
		if m := b.byChan[name]; m != nil {
			delete(m, subID)
			if len(m) == 0 {
				delete(b.byChan, name)
			}
		}
	}
	close(sub.ch)

	b.logger.Debug("subscriber removed", "sub_id", subID)
}

// Close shuts down the bus and closes every subscriber inbox.
func (b *Bus) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	for subID, sub := range b.subs {
		close(sub.ch)
		delete(b.subs, subID)
	}
	b.byChan = make(map[string]map[string]*subscriber)
	b.logger.Debug("bus closed")
}
