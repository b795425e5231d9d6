package agent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/martinemde/duet/bus"
)

// browserObservationMarker splits verbose browser output; only a short slice
// after the marker is worth keeping in the ledger.
const browserObservationMarker = "BrowserOutputObservation"

// browserObservationLimit caps the retained slice.
const browserObservationLimit = 100

// GenerationRequest carries everything the model needs for one cycle.
type GenerationRequest struct {
	AgentName  string
	Goal       string
	Transcript string
}

// Generator produces raw model output for one generation cycle. Fragments
// are delivered through emit in arrival order; a non-streaming implementation
// may call emit once with the whole payload. The actor never calls Generate
// concurrently for the same agent.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest, emit func(fragment string)) error
}

// ActorConfig wires one conversation participant.
type ActorConfig struct {
	Name      string
	SessionID string

	// Goal is the persona and objective text included in every prompt.
	Goal string

	Scheduler SchedulerConfig

	// EventBuffer sizes the emitter channel; zero means the default.
	EventBuffer int
}

// genResult is the outcome of one generation goroutine.
type genResult struct {
	action Action
	ok     bool
	err    error
}

// Actor is one conversation participant: a sequential goroutine that owns its
// ledger and scheduler and reacts to bus messages one at a time. Generation
// runs in a child goroutine so inbound messages keep landing in the ledger
// while the model thinks, but at most one generation is in flight.
type Actor struct {
	cfg     ActorConfig
	bus     *bus.Bus
	gen     Generator
	sched   *Scheduler
	ledger  *Ledger
	router  *Router
	emitter *Emitter
	logger  *slog.Logger

	peers   []string
	genDone chan genResult
	ready   chan struct{}
}

// NewActor builds an actor and its collaborators. The scheduler config's
// Participants and Self determine the peer set and channel names.
func NewActor(cfg ActorConfig, b *bus.Bus, gen Generator, logger *slog.Logger) (*Actor, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("actor requires a name")
	}
	if cfg.Scheduler.Self == "" {
		cfg.Scheduler.Self = cfg.Name
	}
	if cfg.Scheduler.Self != cfg.Name {
		return nil, fmt.Errorf("scheduler self %q does not match actor %q", cfg.Scheduler.Self, cfg.Name)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "actor", "agent", cfg.Name)

	sched, err := NewScheduler(cfg.Scheduler, logger)
	if err != nil {
		return nil, err
	}

	var peers []string
	for _, p := range cfg.Scheduler.Participants {
		if p != cfg.Name {
			peers = append(peers, p)
		}
	}

	ledger := NewLedger()
	var outputChans []string
	for _, p := range peers {
		outputChans = append(outputChans, bus.Conversation(cfg.Name, p, cfg.SessionID))
	}
	router := NewRouter(b, ledger, outputChans, bus.AgentRuntime(cfg.SessionID), logger)

	return &Actor{
		cfg:     cfg,
		bus:     b,
		gen:     gen,
		sched:   sched,
		ledger:  ledger,
		router:  router,
		emitter: NewEmitter(cfg.Name, cfg.EventBuffer),
		logger:  logger,
		peers:   peers,
		genDone: make(chan genResult, 1),
		ready:   make(chan struct{}),
	}, nil
}

// Ready is closed once the actor has subscribed and will see every message
// published afterwards. Publish scene text only after all actors are ready.
func (a *Actor) Ready() <-chan struct{} { return a.ready }

// Events returns the actor's event stream.
func (a *Actor) Events() <-chan Event { return a.emitter.Events() }

// Ledger exposes the actor's history for inspection after Run returns.
func (a *Actor) Ledger() *Ledger { return a.ledger }

// Run subscribes the actor and processes messages until ctx is cancelled, the
// bus closes, or the agent leaves the conversation.
func (a *Actor) Run(ctx context.Context) error {
	channels := []string{
		bus.Tick(a.cfg.SessionID),
		bus.Scene(a.cfg.Name, a.cfg.SessionID),
		bus.RuntimeAgent(a.cfg.SessionID),
	}
	for _, p := range a.peers {
		channels = append(channels, bus.Conversation(p, a.cfg.Name, a.cfg.SessionID))
	}
	inbox, subID := a.bus.Subscribe(ctx, channels...)
	defer a.bus.Unsubscribe(subID)
	defer a.emitter.Close()
	close(a.ready)

	a.emitter.Emit(EventAgentStart, map[string]interface{}{"channels": channels})
	a.logger.Info("actor started", "peers", a.peers)
	defer a.emitter.Emit(EventAgentStop, nil)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case res := <-a.genDone:
			if left := a.handleGenResult(res); left {
				return nil
			}
		case msg, ok := <-inbox:
			if !ok {
				return nil
			}
			a.handleMessage(ctx, msg)
		}
	}
}

// handleMessage dispatches one bus message by channel.
func (a *Actor) handleMessage(ctx context.Context, msg bus.Message) {
	switch {
	case msg.Channel == bus.Tick(a.cfg.SessionID):
		a.applyDecision(ctx, a.sched.HandleTick())
	case strings.HasPrefix(msg.Channel, "Scene:"):
		a.handleScene(ctx, msg.Envelope.Data)
	case msg.Channel == bus.RuntimeAgent(a.cfg.SessionID):
		a.handleObservation(msg.Envelope.Data)
	default:
		a.handlePeer(msg.Envelope.Data)
	}
}

// handleScene records scene text and requests the opening response.
func (a *Actor) handleScene(ctx context.Context, p bus.Payload) {
	if p.Text == "" {
		return
	}
	a.ledger.Append(SceneEntry("Scene", p.Text))
	a.emitter.Emit(EventSceneReceived, map[string]interface{}{"text": p.Text})
	a.applyDecision(ctx, a.sched.HandleScene())
}

// handleObservation ledgers environment output, trimming verbose browser
// dumps down to a short slice.
func (a *Actor) handleObservation(p bus.Payload) {
	text := p.Text
	if text == "" {
		text = p.Argument
	}
	if text == "" {
		return
	}
	if i := strings.Index(text, browserObservationMarker); i >= 0 {
		trimmed := text[i+len(browserObservationMarker):]
		if len(trimmed) > browserObservationLimit {
			trimmed = trimmed[:browserObservationLimit]
		}
		text = trimmed
	}
	a.ledger.Append(ObservationEntry("Environment", text))
	a.emitter.Emit(EventObservation, map[string]interface{}{"text": text})
}

// handlePeer ledgers a peer's action and updates the scheduler. No-ops are
// counted but never ledgered; peers announce them only so the deadlock
// counter stays honest.
func (a *Actor) handlePeer(p bus.Payload) {
	act, err := ActionFromPayload(p)
	if err != nil {
		a.logger.Warn("ignoring undecodable peer payload", "error", err)
		a.emitter.Emit(EventWarning, map[string]interface{}{"error": err.Error()})
		return
	}
	wasListening := a.sched.Listening()
	a.sched.HandlePeerAction(act)
	if act.IsNone() {
		return
	}
	a.ledger.Append(EntryFromAction(act))
	a.emitter.Emit(EventPeerAction, map[string]interface{}{
		"from": act.AgentName,
		"kind": string(act.Kind),
	})
	if !wasListening && a.sched.Listening() {
		a.emitter.Emit(EventListeningEntered, map[string]interface{}{"from": act.AgentName})
	}
}

// applyDecision acts on a scheduler decision: start a generation cycle or
// surface a rule-produced no-op.
func (a *Actor) applyDecision(ctx context.Context, d Decision) {
	if d.Emit != nil {
		a.emitter.Emit(EventCooldown, map[string]interface{}{"thinking": d.Emit.Thinking})
		a.logger.Info("emitting rule action", "reason", d.Reason, "thinking", d.Emit.Thinking)
		return
	}
	if !d.Generate {
		return
	}
	a.startGeneration(ctx, d.Reason)
}

// startGeneration launches the generation goroutine. The scheduler is marked
// busy first, so further ticks are ignored until the result lands on genDone.
func (a *Actor) startGeneration(ctx context.Context, reason string) {
	a.sched.BeginGeneration()
	a.emitter.Emit(EventGenerationStart, map[string]interface{}{"reason": reason})

	req := GenerationRequest{
		AgentName:  a.cfg.Name,
		Goal:       a.cfg.Goal,
		Transcript: a.ledger.Render(),
	}
	go func() {
		asm := NewAssembler()
		var final Action
		var got bool
		err := a.gen.Generate(ctx, req, func(fragment string) {
			if got {
				return
			}
			if act, ok := asm.Feed(fragment); ok {
				final, got = act, true
			}
		})
		a.genDone <- genResult{action: final, ok: got, err: err}
	}()
}

// handleGenResult finishes one generation cycle: route on success, count the
// failure otherwise. Returns true when the routed action was a leave and the
// actor should stop.
func (a *Actor) handleGenResult(res genResult) bool {
	if res.err != nil {
		a.sched.FailGeneration(res.err)
		a.emitter.Emit(EventGenerationFailed, map[string]interface{}{"error": res.err.Error()})
		return false
	}
	if !res.ok {
		err := fmt.Errorf("generation ended without a complete action")
		a.sched.FailGeneration(err)
		a.emitter.Emit(EventGenerationFailed, map[string]interface{}{"error": err.Error()})
		return false
	}

	act := res.action
	// The model answers for exactly one agent; never trust it to name itself.
	act.AgentName = a.cfg.Name

	a.sched.BeginSpeaking()
	routed := a.router.Route(act)
	a.sched.FinishGeneration(routed)

	if routed.IsNone() && !act.IsNone() {
		a.emitter.Emit(EventActionSuppressed, map[string]interface{}{
			"kind": string(act.Kind), "thinking": routed.Thinking,
		})
	} else {
		a.emitter.Emit(EventActionRouted, map[string]interface{}{
			"kind": string(routed.Kind), "summary": routed.NaturalLanguage(),
		})
	}
	a.emitter.Emit(EventGenerationEnd, map[string]interface{}{"kind": string(routed.Kind)})

	if routed.Kind == KindLeave {
		a.logger.Info("leaving conversation")
		return true
	}
	return false
}
