package agent

import (
	"fmt"
	"strings"
)

// EntryRole classifies a ledger entry for rendering purposes.
type EntryRole string

const (
	// RoleAction marks an action taken by this agent or a peer.
	RoleAction EntryRole = "action"
	// RoleObservation marks environment text (runtime output, browse results).
	RoleObservation EntryRole = "observation"
	// RoleScene marks the designated scene-setup entry.
	RoleScene EntryRole = "scene"
)

// workspaceWindow is how many recent file events the workspace-state block
// summarizes.
const workspaceWindow = 5

// Entry is one record in the per-agent history. Entries are never mutated
// after append; insertion order is the ledger's only notion of time.
type Entry struct {
	Speaker string
	Role    EntryRole
	Kind    Kind
	Text    string
	Path    string
	Urgency float64
}

// EntryFromAction projects a routed action into its ledger entry.
func EntryFromAction(a Action) Entry {
	return Entry{
		Speaker: a.AgentName,
		Role:    RoleAction,
		Kind:    a.Kind,
		Text:    a.Argument,
		Path:    a.Path,
		Urgency: a.Urgency,
	}
}

// SceneEntry builds the designated scene-setup entry.
func SceneEntry(speaker, text string) Entry {
	return Entry{Speaker: speaker, Role: RoleScene, Text: text}
}

// ObservationEntry builds an environment-observation entry.
func ObservationEntry(speaker, text string) Entry {
	return Entry{Speaker: speaker, Role: RoleObservation, Text: text}
}

// Ledger is the append-only history of one agent. It is owned by the
// agent's actor goroutine and needs no locking.
type Ledger struct {
	entries []Entry
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{}
}

// Append adds an entry to the ledger.
func (l *Ledger) Append(e Entry) {
	l.entries = append(l.entries, e)
}

// Len returns the number of entries.
func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of the ledger contents.
func (l *Ledger) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Last returns up to n most recent entries, oldest first.
func (l *Ledger) Last(n int) []Entry {
	if n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]Entry, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Render produces the prompt-ready transcript. It is pure given the
// entries. Ordering is two-tier: the scene-setup entry (if any) renders
// first regardless of arrival position, then a rolling workspace-state
// summary of the most recent file read/write events, then everything else
// in arrival order. This keeps the persistent context anchored at the top
// while the dialogue stays causal.
func (l *Ledger) Render() string {
	var sb strings.Builder

	for _, e := range l.entries {
		if e.Role == RoleScene {
			sb.WriteString(e.Text)
			sb.WriteString("\n")
			break
		}
	}

	var fileEvents []Entry
	for _, e := range l.entries {
		if e.Role == RoleAction && (e.Kind == KindRead || e.Kind == KindWrite) {
			fileEvents = append(fileEvents, e)
		}
	}
	if len(fileEvents) > workspaceWindow {
		fileEvents = fileEvents[len(fileEvents)-workspaceWindow:]
	}
	if len(fileEvents) > 0 {
		sb.WriteString("Workspace state:\n")
		for _, e := range fileEvents {
			sb.WriteString("  ")
			sb.WriteString(renderEntry(e))
			sb.WriteString("\n")
		}
	}

	for _, e := range l.entries {
		if e.Role == RoleScene {
			continue
		}
		if e.Role == RoleAction && (e.Kind == KindRead || e.Kind == KindWrite) {
			continue
		}
		sb.WriteString(renderEntry(e))
		sb.WriteString("\n")
	}

	return sb.String()
}

// renderEntry formats one entry per its kind. Total over the enumeration,
// with the same fallback as Action rendering.
func renderEntry(e Entry) string {
	if e.Role == RoleObservation {
		return fmt.Sprintf("%s observed: %s", e.Speaker, e.Text)
	}
	switch e.Kind {
	case KindNone:
		return fmt.Sprintf("%s did nothing", e.Speaker)
	case KindSpeak:
		return fmt.Sprintf("%s said: %q", e.Speaker, e.Text)
	case KindThought:
		return fmt.Sprintf("%s thinks: %q", e.Speaker, e.Text)
	case KindNonVerbal:
		return fmt.Sprintf("%s [non-verbal] %s", e.Speaker, e.Text)
	case KindLeave:
		return fmt.Sprintf("%s left the conversation", e.Speaker)
	case KindBrowse:
		return fmt.Sprintf("%s browsed: %q", e.Speaker, e.Text)
	case KindBrowseAction:
		return fmt.Sprintf("%s executed browser action: %q", e.Speaker, e.Text)
	case KindRead:
		return fmt.Sprintf("%s read %q", e.Speaker, e.Path)
	case KindWrite:
		return fmt.Sprintf("%s wrote to %q", e.Speaker, e.Path)
	case KindRun:
		return fmt.Sprintf("%s executed command: %q", e.Speaker, e.Text)
	default:
		return fmt.Sprintf("%s performed an unknown action", e.Speaker)
	}
}
