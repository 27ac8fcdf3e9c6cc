// Package engine implements the task lifecycle state machine on top of
// the storage layer: reservation, completion, verification, unlocking,
// stale release and the audit/version discipline that accompanies every
// mutation.
package engine

import (
	"time"

	"github.com/taskdeck/taskdeck/internal/events"
	"github.com/taskdeck/taskdeck/internal/storage"
)

// DefaultStaleTimeout is the reservation expiry window when none is
// configured.
const DefaultStaleTimeout = 24 * time.Hour

// Engine drives all task mutations. Every mutation commits its task row,
// change entries and version snapshot in one transaction; events are
// published after the commit.
type Engine struct {
	store     storage.Storage
	publisher *events.Publisher

	// StaleTimeout is the reservation age beyond which the sweeper
	// auto-releases a task.
	StaleTimeout time.Duration
}

// New builds an engine. The publisher may be nil; mutations then skip
// event emission.
func New(store storage.Storage, publisher *events.Publisher) *Engine {
	return &Engine{
		store:        store,
		publisher:    publisher,
		StaleTimeout: DefaultStaleTimeout,
	}
}

// Store exposes the underlying storage for read paths that need no
// lifecycle mediation.
func (e *Engine) Store() storage.Storage {
	return e.store
}

func (e *Engine) publish(eventType string, taskID int64, agentID string, payload map[string]any) {
	if e.publisher == nil {
		return
	}
	e.publisher.Publish(events.Event{
		Type:    eventType,
		TaskID:  taskID,
		AgentID: agentID,
		Payload: payload,
	})
}
