package agent

import (
	"fmt"

	"github.com/martinemde/duet/bus"
)

// Kind is the closed enumeration of what an agent can do in one turn.
// The string values match the historical wire protocol.
type Kind string

const (
	KindNone         Kind = "none"
	KindSpeak        Kind = "speak"
	KindThought      Kind = "thought"
	KindNonVerbal    Kind = "non-verbal"
	KindLeave        Kind = "leave"
	KindBrowse       Kind = "browse"
	KindBrowseAction Kind = "browse_action"
	KindRead         Kind = "read"
	KindWrite        Kind = "write"
	KindRun          Kind = "run"
)

// Kinds lists every member of the enumeration.
var Kinds = []Kind{
	KindNone, KindSpeak, KindThought, KindNonVerbal, KindLeave,
	KindBrowse, KindBrowseAction, KindRead, KindWrite, KindRun,
}

// Valid reports whether k is a member of the enumeration.
func (k Kind) Valid() bool {
	switch k {
	case KindNone, KindSpeak, KindThought, KindNonVerbal, KindLeave,
		KindBrowse, KindBrowseAction, KindRead, KindWrite, KindRun:
		return true
	}
	return false
}

// Action is one decision by one agent for one turn. It is the superset of
// all historical agent variants: Urgency and Thinking are optional, Path is
// only meaningful for file kinds.
type Action struct {
	AgentName string  `json:"agent_name"`
	Kind      Kind    `json:"action_type"`
	Argument  string  `json:"argument"`
	Path      string  `json:"path,omitempty"`
	Thinking  string  `json:"thinking,omitempty"`
	Urgency   float64 `json:"urgency,omitempty"`
}

// None builds a no-op Action, optionally carrying a rationale in Thinking.
// Thinking is never routed to other agents; it only reaches local logs and
// the event stream.
func None(agentName, thinking string) Action {
	return Action{AgentName: agentName, Kind: KindNone, Thinking: thinking}
}

// IsNone reports whether the action is a no-op.
func (a Action) IsNone() bool { return a.Kind == KindNone }

// Validate checks the kind against the enumeration and the per-kind
// mandatory fields: Path for read/write, Argument for the content-bearing
// kinds. None and leave need nothing.
func (a Action) Validate() error {
	if !a.Kind.Valid() {
		return fmt.Errorf("unknown action kind %q", a.Kind)
	}
	switch a.Kind {
	case KindRead, KindWrite:
		if a.Path == "" {
			return fmt.Errorf("%s action requires a path", a.Kind)
		}
		if a.Kind == KindWrite && a.Argument == "" {
			return fmt.Errorf("write action requires content")
		}
	case KindSpeak, KindThought, KindNonVerbal, KindBrowse, KindBrowseAction, KindRun:
		if a.Argument == "" {
			return fmt.Errorf("%s action requires an argument", a.Kind)
		}
	}
	return nil
}

// Downgrade coerces the action to a no-op carrying the reason, preserving
// the originating agent name. Used wherever a malformed action must not
// propagate.
func (a Action) Downgrade(reason string) Action {
	return None(a.AgentName, reason)
}

// NaturalLanguage renders the action for transcripts and logs. It is total
// over the enumeration and falls back to a fixed string for unrecognized
// kinds; it never panics.
func (a Action) NaturalLanguage() string {
	switch a.Kind {
	case KindNone:
		return "did nothing"
	case KindSpeak:
		return fmt.Sprintf("said: %q", a.Argument)
	case KindThought:
		return fmt.Sprintf("thought: %q", a.Argument)
	case KindNonVerbal:
		return fmt.Sprintf("[non-verbal] %s", a.Argument)
	case KindLeave:
		return "left the conversation"
	case KindBrowse:
		return fmt.Sprintf("browsed: %q", a.Argument)
	case KindBrowseAction:
		return fmt.Sprintf("executed browser action: %q", a.Argument)
	case KindRead:
		return fmt.Sprintf("read %q", a.Path)
	case KindWrite:
		return fmt.Sprintf("wrote to %q: %q", a.Path, a.Argument)
	case KindRun:
		return fmt.Sprintf("executed command: %q", a.Argument)
	default:
		return "performed an unknown action"
	}
}

// Envelope wraps the action in its wire form. Thinking deliberately stays
// off the wire: it is local-only rationale.
func (a Action) Envelope() bus.Envelope {
	urgency := a.Urgency
	return bus.Envelope{Data: bus.Payload{
		Schema:     bus.SchemaAgentAction,
		AgentName:  a.AgentName,
		ActionType: string(a.Kind),
		Argument:   a.Argument,
		Path:       a.Path,
		Urgency:    &urgency,
	}}
}

// ActionFromPayload decodes an agent_action payload into an Action.
func ActionFromPayload(p bus.Payload) (Action, error) {
	if p.Schema != bus.SchemaAgentAction {
		return Action{}, fmt.Errorf("payload schema %q is not %s", p.Schema, bus.SchemaAgentAction)
	}
	a := Action{
		AgentName: p.AgentName,
		Kind:      Kind(p.ActionType),
		Argument:  p.Argument,
		Path:      p.Path,
		Thinking:  p.Thinking,
	}
	if p.Urgency != nil {
		a.Urgency = *p.Urgency
	}
	if !a.Kind.Valid() {
		return a, fmt.Errorf("unknown action kind %q", p.ActionType)
	}
	return a, nil
}
