package agent

import (
	"sync"
	"time"
)

// EventKind identifies the type of agent event.
type EventKind string

const (
	EventAgentStart       EventKind = "agent_start"
	EventAgentStop        EventKind = "agent_stop"
	EventSceneReceived    EventKind = "scene_received"
	EventPeerAction       EventKind = "peer_action"
	EventObservation      EventKind = "observation"
	EventGenerationStart  EventKind = "generation_start"
	EventGenerationEnd    EventKind = "generation_end"
	EventGenerationFailed EventKind = "generation_failed"
	EventActionRouted     EventKind = "action_routed"
	EventActionSuppressed EventKind = "action_suppressed"
	EventDeadlockBroken   EventKind = "deadlock_broken"
	EventCooldown         EventKind = "cooldown"
	EventListeningEntered EventKind = "listening_entered"
	EventWarning          EventKind = "warning"
	EventError            EventKind = "error"
)

// Event is a typed event emitted by an agent.
type Event struct {
	Kind      EventKind              `json:"kind"`
	Timestamp time.Time              `json:"timestamp"`
	AgentName string                 `json:"agent_name"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// Emitter delivers typed events to the host application via a channel.
type Emitter struct {
	agentName string
	ch        chan Event
	closed    bool
	mu        sync.Mutex
}

// NewEmitter creates a new Emitter with a buffered channel.
func NewEmitter(agentName string, bufferSize int) *Emitter {
	if bufferSize <= 0 {
		bufferSize = 256
	}
	return &Emitter{
		agentName: agentName,
		ch:        make(chan Event, bufferSize),
	}
}

// Emit sends an event to the channel. If the emitter is closed, the event
// is silently dropped.
func (e *Emitter) Emit(kind EventKind, data map[string]interface{}) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return
	}
	event := Event{
		Kind:      kind,
		Timestamp: time.Now(),
		AgentName: e.agentName,
		Data:      data,
	}
	select {
	case e.ch <- event:
	default:
		// Channel full; drop event to avoid blocking the actor.
	}
}

// Events returns the read-only event channel.
func (e *Emitter) Events() <-chan Event {
	return e.ch
}

// Close closes the event channel. Safe to call multiple times.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.closed {
		e.closed = true
		close(e.ch)
	}
}
