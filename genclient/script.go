package genclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/martinemde/duet/agent"
)

// ScriptedGenerator replays a fixed sequence of actions, one per generation
// cycle. Once the script runs out it keeps producing no-ops. Useful for
// offline demo runs and tests that need deterministic agents.
type ScriptedGenerator struct {
	mu    sync.Mutex
	steps []agent.Action
	next  int

	// ChunkSize, when positive, splits the JSON payload into chunks of that
	// many bytes to exercise streaming reassembly. Zero emits the whole
	// payload at once.
	ChunkSize int
}

// NewScripted creates a generator that plays steps in order.
func NewScripted(steps ...agent.Action) *ScriptedGenerator {
	return &ScriptedGenerator{steps: steps}
}

// Generate emits the next scripted action as its JSON wire form.
func (s *ScriptedGenerator) Generate(ctx context.Context, req agent.GenerationRequest, emit func(fragment string)) error {
	s.mu.Lock()
	var act agent.Action
	if s.next < len(s.steps) {
		act = s.steps[s.next]
		s.next++
	} else {
		act = agent.None(req.AgentName, "script exhausted")
	}
	chunk := s.ChunkSize
	s.mu.Unlock()

	if act.AgentName == "" {
		act.AgentName = req.AgentName
	}
	payload, err := json.Marshal(act)
	if err != nil {
		return fmt.Errorf("marshaling scripted action: %w", err)
	}

	text := string(payload)
	if chunk <= 0 {
		emit(text)
		return nil
	}
	for len(text) > 0 {
		if ctx.Err() != nil {
			return &AbortError{ClientError: ClientError{Message: "scripted generation cancelled", Cause: ctx.Err()}}
		}
		n := chunk
		if n > len(text) {
			n = len(text)
		}
		emit(text[:n])
		text = text[n:]
	}
	return nil
}
