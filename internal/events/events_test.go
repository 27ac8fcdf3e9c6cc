package events

import (
	"errors"
	"io"
	"log"
	"sync"
	"testing"
	"time"
)

func TestPublishDeliversToAllSubscribers(t *testing.T) {
	p := NewPublisher(16)

	var mu sync.Mutex
	got := make(map[string]int)
	for i := 0; i < 3; i++ {
		p.Subscribe(SubscriberFunc(func(event Event) error {
			mu.Lock()
			got[event.Type]++
			mu.Unlock()
			return nil
		}))
	}

	p.Publish(Event{Type: TaskCreated, TaskID: 1})
	p.Publish(Event{Type: TaskReserved, TaskID: 1})
	p.Close()

	mu.Lock()
	defer mu.Unlock()
	if got[TaskCreated] != 3 || got[TaskReserved] != 3 {
		t.Errorf("Expected 3 deliveries per event, got %v", got)
	}
	if p.Published() != 2 {
		t.Errorf("Expected 2 published, got %d", p.Published())
	}
}

func TestPublishSetsTimestamp(t *testing.T) {
	p := NewPublisher(4)
	defer p.Close()

	done := make(chan Event, 1)
	p.Subscribe(SubscriberFunc(func(event Event) error {
		done <- event
		return nil
	}))

	p.Publish(Event{Type: TaskCompleted, TaskID: 7})
	select {
	case event := <-done:
		if event.Timestamp.IsZero() {
			t.Error("Expected publish to stamp a timestamp")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for delivery")
	}
}

func TestFullQueueDropsOldest(t *testing.T) {
	p := &Publisher{
		queue:        make(chan Event, 2),
		done:         make(chan struct{}),
		MaxRetries:   0,
		RetryBackoff: time.Millisecond,
		Logger:       log.New(io.Discard, "", 0),
	}
	// No dispatch loop: the queue only fills.
	p.Publish(Event{Type: "e1"})
	p.Publish(Event{Type: "e2"})
	p.Publish(Event{Type: "e3"})

	if p.Dropped() != 1 {
		t.Errorf("Expected 1 dropped event, got %d", p.Dropped())
	}
	first := <-p.queue
	if first.Type != "e2" {
		t.Errorf("Expected oldest (e1) dropped, head is %s", first.Type)
	}
}

func TestSubscriberRetriesThenRecordsFailure(t *testing.T) {
	p := NewPublisher(4)
	p.MaxRetries = 2
	p.RetryBackoff = time.Millisecond
	p.Logger = log.New(io.Discard, "", 0)

	var mu sync.Mutex
	attempts := 0
	p.Subscribe(SubscriberFunc(func(event Event) error {
		mu.Lock()
		attempts++
		mu.Unlock()
		return errors.New("consumer down")
	}))

	p.Publish(Event{Type: TaskDeleted, TaskID: 3})
	p.Close()

	mu.Lock()
	defer mu.Unlock()
	if attempts != 3 {
		t.Errorf("Expected 3 attempts (1 + 2 retries), got %d", attempts)
	}
	if p.DeliveryFailures() != 1 {
		t.Errorf("Expected 1 recorded failure, got %d", p.DeliveryFailures())
	}
}

func TestFailingSubscriberDoesNotBlockOthers(t *testing.T) {
	p := NewPublisher(4)
	p.MaxRetries = 1
	p.RetryBackoff = time.Millisecond
	p.Logger = log.New(io.Discard, "", 0)

	p.Subscribe(SubscriberFunc(func(event Event) error {
		return errors.New("always fails")
	}))
	delivered := make(chan struct{}, 1)
	p.Subscribe(SubscriberFunc(func(event Event) error {
		delivered <- struct{}{}
		return nil
	}))

	p.Publish(Event{Type: TaskVerified, TaskID: 9})
	select {
	case <-delivered:
	case <-time.After(2 * time.Second):
		t.Fatal("Healthy subscriber never received the event")
	}
	p.Close()
}
