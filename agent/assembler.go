package agent

import (
	"encoding/json"
	"strings"
)

// Assembler reassembles chunked generation output into one complete Action.
// Fragments are appended to a buffer; after every fragment the whole buffer
// is parsed as a candidate Action. A parse failure just means the payload is
// still incomplete. The first parse that yields all mandatory fields
// finalizes the Action and the rest of the stream is ignored.
//
// The Assembler never emits a partial or field-incomplete Action; a cycle
// that never finalizes is reported by the caller as a generation failure.
// Full-buffer reparsing is fine at these payload sizes (a single action
// object); an incremental parser would only pay off for much larger output.
type Assembler struct {
	buf       strings.Builder
	finalized bool
}

// defaultUrgency applies when a generated action omits the field.
const defaultUrgency = 0.5

// wireAction mirrors the generated JSON shape. Pointer fields distinguish
// "absent" from "empty" for the mandatory-field check.
type wireAction struct {
	AgentName  *string  `json:"agent_name"`
	ActionType *string  `json:"action_type"`
	Argument   *string  `json:"argument"`
	Path       string   `json:"path"`
	Thinking   string   `json:"thinking"`
	Urgency    *float64 `json:"urgency"`
}

// NewAssembler creates an empty Assembler.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// Feed appends one fragment and attempts to finalize. It returns the
// finalized Action and true exactly once per stream; afterwards further
// fragments are discarded.
func (as *Assembler) Feed(fragment string) (Action, bool) {
	if as.finalized {
		return Action{}, false
	}
	as.buf.WriteString(fragment)

	var w wireAction
	if err := json.Unmarshal([]byte(strings.TrimSpace(as.buf.String())), &w); err != nil {
		return Action{}, false
	}
	if w.AgentName == nil || w.ActionType == nil || w.Argument == nil {
		return Action{}, false
	}

	a := Action{
		AgentName: *w.AgentName,
		Kind:      Kind(*w.ActionType),
		Argument:  *w.Argument,
		Path:      w.Path,
		Thinking:  w.Thinking,
		Urgency:   defaultUrgency,
	}
	if w.Urgency != nil {
		a.Urgency = *w.Urgency
	}
	if err := a.Validate(); err != nil {
		// Parsed but field-incomplete. Keep accumulating rather than guess;
		// if nothing better arrives the cycle ends without a finalized action.
		return Action{}, false
	}

	as.finalized = true
	as.buf.Reset()
	return a, true
}

// Finalized reports whether the stream already produced an Action.
func (as *Assembler) Finalized() bool { return as.finalized }

// Reset clears the buffer for a new generation cycle.
func (as *Assembler) Reset() {
	as.buf.Reset()
	as.finalized = false
}
