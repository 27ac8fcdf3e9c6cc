// Package events fans task lifecycle events out to subscribers.
// Publication is post-commit and never blocks or fails the mutation that
// produced the event.
package events

import (
	"log"
	"sync"
	"sync/atomic"
	"time"
)

// Event types emitted by the lifecycle engine.
const (
	TaskCreated         = "task.created"
	TaskReserved        = "task.reserved"
	TaskUpdated         = "task.updated"
	TaskCompleted       = "task.completed"
	TaskVerified        = "task.verified"
	TaskUnlocked        = "task.unlocked"
	TaskUnlockedStale   = "task.unlocked_stale"
	TaskDeleted         = "task.deleted"
	TagAssigned         = "tag.assigned"
	TagRemoved          = "tag.removed"
	RelationshipCreated = "relationship.created"
	CommentCreated      = "comment.created"
)

// Event is one published lifecycle notification.
type Event struct {
	Type      string         `json:"type"`
	TaskID    int64          `json:"task_id,omitempty"`
	AgentID   string         `json:"agent_id,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// Subscriber consumes events. Errors are retried with backoff; a
// subscriber that keeps failing has its event dropped and recorded, never
// propagated to the mutator.
type Subscriber interface {
	Notify(event Event) error
}

// SubscriberFunc adapts a function to the Subscriber interface.
type SubscriberFunc func(event Event) error

func (f SubscriberFunc) Notify(event Event) error { return f(event) }

// Publisher is a bounded in-process event queue with a single dispatch
// goroutine. When the queue is full the oldest event is dropped and
// counted, so a stalled consumer can slow nothing down.
type Publisher struct {
	mu          sync.Mutex
	subscribers []Subscriber
	queue       chan Event
	done        chan struct{}
	wg          sync.WaitGroup

	dropped   atomic.Int64
	failed    atomic.Int64
	published atomic.Int64

	// MaxRetries bounds delivery attempts per subscriber per event.
	MaxRetries int
	// RetryBackoff is the base delay between delivery attempts.
	RetryBackoff time.Duration
	// Logger receives drop and delivery-failure diagnostics.
	Logger *log.Logger
}

// NewPublisher creates a publisher with the given queue capacity and
// starts its dispatch loop.
func NewPublisher(buffer int) *Publisher {
	if buffer <= 0 {
		buffer = 256
	}
	p := &Publisher{
		queue:        make(chan Event, buffer),
		done:         make(chan struct{}),
		MaxRetries:   3,
		RetryBackoff: 50 * time.Millisecond,
	}
	p.wg.Add(1)
	go p.dispatch()
	return p
}

// Subscribe registers a subscriber for all subsequent events.
func (p *Publisher) Subscribe(s Subscriber) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers = append(p.subscribers, s)
}

// Publish enqueues an event without blocking. On a full queue the oldest
// event is dropped to make room.
func (p *Publisher) Publish(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	for {
		select {
		case p.queue <- event:
			p.published.Add(1)
			return
		default:
		}
		// Queue full: drop the oldest and try again.
		select {
		case old := <-p.queue:
			p.dropped.Add(1)
			p.logf("event queue full, dropped %s for task %d", old.Type, old.TaskID)
		default:
		}
	}
}

// Dropped returns the number of events discarded under backpressure.
func (p *Publisher) Dropped() int64 { return p.dropped.Load() }

// Published returns the number of events accepted onto the queue.
func (p *Publisher) Published() int64 { return p.published.Load() }

// DeliveryFailures returns the number of events a subscriber never
// acknowledged within the retry budget.
func (p *Publisher) DeliveryFailures() int64 { return p.failed.Load() }

// Close drains the queue and stops the dispatch loop.
func (p *Publisher) Close() {
	close(p.done)
	p.wg.Wait()
}

func (p *Publisher) dispatch() {
	defer p.wg.Done()
	for {
		select {
		case event := <-p.queue:
			p.deliver(event)
		case <-p.done:
			// Drain what is already queued, then stop.
			for {
				select {
				case event := <-p.queue:
					p.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (p *Publisher) deliver(event Event) {
	p.mu.Lock()
	subs := make([]Subscriber, len(p.subscribers))
	copy(subs, p.subscribers)
	p.mu.Unlock()

	for _, sub := range subs {
		var err error
		for attempt := 0; attempt <= p.MaxRetries; attempt++ {
			if attempt > 0 {
				time.Sleep(p.RetryBackoff * time.Duration(attempt))
			}
			if err = sub.Notify(event); err == nil {
				break
			}
		}
		if err != nil {
			p.failed.Add(1)
			p.logf("subscriber failed to consume %s for task %d after %d attempts: %v",
				event.Type, event.TaskID, p.MaxRetries+1, err)
		}
	}
}

func (p *Publisher) logf(format string, args ...any) {
	logger := p.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger.Printf(format, args...)
}
