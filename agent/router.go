package agent

import (
	"log/slog"

	"github.com/martinemde/duet/bus"
)

// dupWindow is how far back the router looks when suppressing a repeated
// write.
const dupWindow = 10

// Publisher is the outbound half of the bus, as the router needs it.
type Publisher interface {
	Publish(channel string, env bus.Envelope)
}

// Router dispatches finalized actions by kind: conversational kinds go to the
// per-peer output channels, runtime kinds go to the runtime channel, and
// no-ops go nowhere. Routing also appends the action to the agent's own
// ledger, so the ledger sees exactly what left the agent.
type Router struct {
	pub         Publisher
	ledger      *Ledger
	outputChans []string
	runtimeCh   string
	logger      *slog.Logger
}

// NewRouter wires a router to its publisher, ledger, and channel names.
func NewRouter(pub Publisher, ledger *Ledger, outputChans []string, runtimeChan string, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		pub:         pub,
		ledger:      ledger,
		outputChans: outputChans,
		runtimeCh:   runtimeChan,
		logger:      logger.With("component", "router"),
	}
}

// Route publishes the action to its destination channel and records it in the
// ledger. It returns the action actually routed, which may differ from the
// input when a duplicate write is suppressed: the substituted no-op is
// ledgered in the write's place, so the history shows the original write and
// the suppression. Model-produced no-ops are neither published nor ledgered.
func (r *Router) Route(a Action) Action {
	if a.IsNone() {
		return a
	}

	if a.Kind == KindWrite && r.isDuplicateWrite(a) {
		r.logger.Debug("suppressing duplicate write", "path", a.Path)
		none := a.Downgrade("already wrote identical content to " + a.Path)
		r.ledger.Append(EntryFromAction(none))
		return none
	}

	env := a.Envelope()
	switch a.Kind {
	case KindSpeak, KindThought, KindNonVerbal, KindLeave:
		for _, ch := range r.outputChans {
			r.pub.Publish(ch, env)
		}
	case KindBrowse, KindBrowseAction, KindRead, KindWrite, KindRun:
		r.pub.Publish(r.runtimeCh, env)
	default:
		r.logger.Warn("refusing to route unknown action kind", "kind", a.Kind)
		return a.Downgrade("unroutable action kind " + string(a.Kind))
	}

	r.ledger.Append(EntryFromAction(a))
	r.logger.Debug("routed action", "kind", a.Kind, "agent", a.AgentName)
	return a
}

// isDuplicateWrite reports whether an identical write (same path, same
// content) already appears in the recent ledger window. Re-publishing it
// would loop the runtime without changing anything.
func (r *Router) isDuplicateWrite(a Action) bool {
	for _, e := range r.ledger.Last(dupWindow) {
		if e.Role == RoleAction && e.Kind == KindWrite && e.Path == a.Path && e.Text == a.Argument {
			return true
		}
	}
	return false
}
