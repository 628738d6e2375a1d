package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// EventHandler is a function that handles stage events
type EventHandler func(ctx context.Context, event *StageEvent) error

// Subscription represents an event subscription. Each subscription
// handles its events in order on its own goroutine.
type Subscription struct {
	ID         string
	EventTypes []EventType
	Handler    EventHandler
	BufferSize int
	channel    chan *StageEvent
	ctx        context.Context
	cancel     context.CancelFunc
	done       chan struct{}
}

// EventBus manages pub/sub for stage events
type EventBus struct {
	mu            sync.RWMutex
	subscriptions map[string]*Subscription
	eventBuffer   chan *StageEvent
	workers       int
	ctx           context.Context
	cancel        context.CancelFunc
	wg            sync.WaitGroup
	stats         EventBusStats
	statsMu       sync.Mutex
	closed        bool
}

// EventBusStats tracks event bus statistics
type EventBusStats struct {
	EventsPublished   int64 `json:"events_published"`
	EventsDelivered   int64 `json:"events_delivered"`
	EventsFailed      int64 `json:"events_failed"`
	EventsDropped     int64 `json:"events_dropped"`
	ActiveSubscribers int64 `json:"active_subscribers"`
	EventsInBuffer    int64 `json:"events_in_buffer"`
}

// NewEventBus creates a new event bus
func NewEventBus(bufferSize, workers int) *EventBus {
	ctx, cancel := context.WithCancel(context.Background())

	eb := &EventBus{
		subscriptions: make(map[string]*Subscription),
		eventBuffer:   make(chan *StageEvent, bufferSize),
		workers:       workers,
		ctx:           ctx,
		cancel:        cancel,
	}

	for i := 0; i < workers; i++ {
		eb.wg.Add(1)
		go eb.worker(i)
	}

	log.Debug().
		Int("buffer_size", bufferSize).
		Int("workers", workers).
		Msg("Event bus started")

	return eb
}

// Publish queues an event for all matching subscribers. Publishing never
// blocks a stage; a full buffer drops the event.
func (eb *EventBus) Publish(event *StageEvent) error {
	eb.mu.RLock()
	defer eb.mu.RUnlock()
	if eb.closed {
		return fmt.Errorf("event bus is shutting down")
	}

	select {
	case eb.eventBuffer <- event:
		eb.statsMu.Lock()
		eb.stats.EventsPublished++
		eb.statsMu.Unlock()
		return nil
	default:
		eb.statsMu.Lock()
		eb.stats.EventsDropped++
		eb.statsMu.Unlock()
		log.Warn().
			Str("event_id", event.ID).
			Str("event_type", string(event.Type)).
			Msg("Event dropped due to full buffer")
		return fmt.Errorf("event buffer is full")
	}
}

// Subscribe creates a new subscription for specific event types
func (eb *EventBus) Subscribe(eventTypes []EventType, handler EventHandler, bufferSize int) (*Subscription, error) {
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if bufferSize <= 0 {
		bufferSize = 1
	}

	ctx, cancel := context.WithCancel(eb.ctx)
	sub := &Subscription{
		ID:         "sub_" + uuid.NewString(),
		EventTypes: eventTypes,
		Handler:    handler,
		BufferSize: bufferSize,
		channel:    make(chan *StageEvent, bufferSize),
		ctx:        ctx,
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	eb.mu.Lock()
	eb.subscriptions[sub.ID] = sub
	eb.mu.Unlock()

	go eb.consume(sub)

	eb.statsMu.Lock()
	eb.stats.ActiveSubscribers++
	eb.statsMu.Unlock()

	log.Debug().
		Str("subscription_id", sub.ID).
		Interface("event_types", eventTypes).
		Msg("New subscription created")

	return sub, nil
}

// Unsubscribe removes a subscription and waits for its handler to return
func (eb *EventBus) Unsubscribe(subscriptionID string) error {
	eb.mu.Lock()
	sub, exists := eb.subscriptions[subscriptionID]
	if !exists {
		eb.mu.Unlock()
		return fmt.Errorf("subscription not found: %s", subscriptionID)
	}
	delete(eb.subscriptions, subscriptionID)
	eb.mu.Unlock()

	sub.cancel()
	<-sub.done

	eb.statsMu.Lock()
	eb.stats.ActiveSubscribers--
	eb.statsMu.Unlock()
	return nil
}

// Close drains queued events, then shuts down the bus
func (eb *EventBus) Close() {
	eb.mu.Lock()
	if eb.closed {
		eb.mu.Unlock()
		return
	}
	eb.closed = true
	close(eb.eventBuffer)
	eb.mu.Unlock()

	eb.wg.Wait()

	eb.mu.Lock()
	subs := make([]*Subscription, 0, len(eb.subscriptions))
	for id, sub := range eb.subscriptions {
		subs = append(subs, sub)
		delete(eb.subscriptions, id)
	}
	eb.mu.Unlock()

	for _, sub := range subs {
		close(sub.channel)
		<-sub.done
	}
	eb.cancel()
	log.Debug().Msg("Event bus shut down")
}

// GetStats returns current event bus statistics
func (eb *EventBus) GetStats() EventBusStats {
	eb.statsMu.Lock()
	defer eb.statsMu.Unlock()

	stats := eb.stats
	stats.EventsInBuffer = int64(len(eb.eventBuffer))
	return stats
}

func (eb *EventBus) worker(workerID int) {
	defer eb.wg.Done()
	for event := range eb.eventBuffer {
		eb.deliverEvent(event)
	}
	log.Debug().Int("worker_id", workerID).Msg("Event bus worker stopping")
}

func (eb *EventBus) deliverEvent(event *StageEvent) {
	eb.mu.RLock()
	matching := make([]*Subscription, 0, len(eb.subscriptions))
	for _, sub := range eb.subscriptions {
		if sub.matches(event) {
			matching = append(matching, sub)
		}
	}
	eb.mu.RUnlock()

	for _, sub := range matching {
		timer := time.NewTimer(5 * time.Second)
		select {
		case sub.channel <- event:
		case <-sub.ctx.Done():
		case <-timer.C:
			eb.statsMu.Lock()
			eb.stats.EventsFailed++
			eb.statsMu.Unlock()
			log.Warn().
				Str("subscription_id", sub.ID).
				Str("event_id", event.ID).
				Msg("Event delivery timeout")
		}
		timer.Stop()
	}
}

func (eb *EventBus) consume(sub *Subscription) {
	defer close(sub.done)
	for {
		select {
		case event, ok := <-sub.channel:
			if !ok {
				return
			}
			eb.handle(sub, event)
		case <-sub.ctx.Done():
			return
		}
	}
}

func (eb *EventBus) handle(sub *Subscription, event *StageEvent) {
	err := sub.Handler(sub.ctx, event)

	eb.statsMu.Lock()
	defer eb.statsMu.Unlock()
	if err != nil {
		eb.stats.EventsFailed++
		log.Error().
			Err(err).
			Str("subscription_id", sub.ID).
			Str("event_id", event.ID).
			Msg("Event handler failed")
		return
	}
	eb.stats.EventsDelivered++
}

func (sub *Subscription) matches(event *StageEvent) bool {
	if len(sub.EventTypes) == 0 {
		return true
	}
	for _, eventType := range sub.EventTypes {
		if event.Type == eventType {
			return true
		}
	}
	return false
}
