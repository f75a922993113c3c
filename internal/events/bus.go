package events

import "sync"

// Event is a generic type placeholder for any event type
type Event any

// Subscriber is a channel that transports events of type T
type Subscriber[T Event] chan T

// subscriberBuffer is how many events a slow subscriber may lag behind
// before further events are dropped for it
const subscriberBuffer = 100

type EventBus[T Event] struct {
	subscribers map[Subscriber[T]]struct{}
	closed      bool
	mutex       sync.RWMutex
}

func NewEventBus[T Event]() *EventBus[T] {
	return &EventBus[T]{
		subscribers: make(map[Subscriber[T]]struct{}),
	}
}

// Subscribe registers a new buffered subscriber. On a closed bus the
// returned channel is already closed.
func (bus *EventBus[T]) Subscribe() Subscriber[T] {
	ch := make(Subscriber[T], subscriberBuffer)
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	if bus.closed {
		close(ch)
		return ch
	}
	bus.subscribers[ch] = struct{}{}
	return ch
}

// Unsubscribe removes ch and closes it. Unknown or already removed
// channels are ignored.
func (bus *EventBus[T]) Unsubscribe(ch Subscriber[T]) {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	if _, ok := bus.subscribers[ch]; !ok {
		return
	}
	delete(bus.subscribers, ch)
	close(ch)
}

// Publish broadcasts an event of type T to all registered subscribers.
// It never blocks: subscribers with a full buffer miss the event.
// The number of subscribers that missed it is returned.
func (bus *EventBus[T]) Publish(event T) int {
	bus.mutex.RLock()
	defer bus.mutex.RUnlock()
	dropped := 0
	for subscriber := range bus.subscribers {
		select {
		case subscriber <- event:
		default:
			dropped++
		}
	}
	return dropped
}

// Close unsubscribes everyone, ending every range loop over a subscriber
func (bus *EventBus[T]) Close() {
	bus.mutex.Lock()
	defer bus.mutex.Unlock()
	for ch := range bus.subscribers {
		delete(bus.subscribers, ch)
		close(ch)
	}
	bus.closed = true
}

// Len returns the number of registered subscribers
func (bus *EventBus[T]) Len() int {
	bus.mutex.RLock()
	defer bus.mutex.RUnlock()
	return len(bus.subscribers)
}
