package agent

import (
	"fmt"
	"log/slog"
	"time"
)

// Policy selects how the scheduler decides when to generate.
type Policy string

const (
	// PolicyFixedInterval gates generation on a tick counter and an
	// explicit turn order shared by all participants.
	PolicyFixedInterval Policy = "fixed_interval"
	// PolicySilence forces generation when the conversation has been
	// silent longer than the threshold, regardless of whose turn it is.
	PolicySilence Policy = "silence"
)

// State is the scheduler's phase. Listening is orthogonal to the phase and
// tracked separately: it changes which rule fires next, not what the agent
// is currently doing.
type State string

const (
	StateIdle     State = "idle"
	StateThinking State = "thinking"
	StateSpeaking State = "speaking"
)

// SchedulerConfig parameterizes one agent's scheduler. Variants are
// configured, not subclassed.
type SchedulerConfig struct {
	Policy Policy

	// Participants is the ordered ring of agent names sharing the
	// conversation; it must contain Self. Turn ownership advances around
	// the ring after every substantive action. With exactly two
	// participants this reduces to the historical alternating toggle.
	Participants []string
	Self         string

	// QueryInterval is the tick period of eligibility under
	// PolicyFixedInterval: the agent may generate every Nth tick.
	QueryInterval int

	// SilenceThreshold is the wall-clock silence after which
	// PolicySilence forces generation.
	SilenceThreshold time.Duration

	// MinTicksBetweenActions is the minimum tick spacing since this
	// agent's last substantive action; it rate-limits generation
	// independent of the turn logic.
	MinTicksBetweenActions int

	// MaxNoneActions is the consecutive no-op count that forces turn
	// ownership back to this agent, breaking a mutual-deference deadlock.
	MaxNoneActions int

	// MaxErrors is the consecutive generation-failure count that triggers
	// a cooldown no-op instead of another attempt.
	MaxErrors int

	// AttentionThreshold is the inbound urgency above which the agent
	// enters listening.
	AttentionThreshold float64
}

// DefaultSchedulerConfig returns the historical defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Policy:                 PolicyFixedInterval,
		QueryInterval:          5,
		SilenceThreshold:       20 * time.Second,
		MinTicksBetweenActions: 2,
		MaxNoneActions:         20,
		MaxErrors:              3,
		AttentionThreshold:     0.7,
	}
}

// Decision is the scheduler's answer to one stimulus.
type Decision struct {
	// Generate is true when the agent should attempt generation now.
	Generate bool
	// Emit, when non-nil, is an action produced by rule rather than by
	// generation (the cooldown no-op).
	Emit *Action
	// Reason explains the decision for events and logs.
	Reason string
}

var noDecision = Decision{}

// Scheduler is the per-agent turn state machine. It decides, per stimulus,
// whether its agent acts; it never blocks and never talks to the bus or the
// model itself. A Scheduler is owned by a single actor goroutine, so nothing
// here locks.
type Scheduler struct {
	cfg    SchedulerConfig
	logger *slog.Logger
	now    func() time.Time

	state     State
	listening bool

	tickCount      int
	lastActionTick int
	turnOrder      int
	currentTurn    int
	noneCount      int
	errorCount     int
	lastMessageAt  time.Time
}

// NewScheduler builds a scheduler for cfg.Self. Turn ownership starts with
// the first participant in the ring.
func NewScheduler(cfg SchedulerConfig, logger *slog.Logger) (*Scheduler, error) {
	if cfg.Policy != PolicyFixedInterval && cfg.Policy != PolicySilence {
		return nil, fmt.Errorf("unknown scheduler policy %q", cfg.Policy)
	}
	if len(cfg.Participants) == 0 {
		return nil, fmt.Errorf("scheduler requires at least one participant")
	}
	order := 0
	for i, name := range cfg.Participants {
		if name == cfg.Self {
			order = i + 1
			break
		}
	}
	if order == 0 {
		return nil, fmt.Errorf("agent %q is not among participants %v", cfg.Self, cfg.Participants)
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		cfg:         cfg,
		logger:      logger.With("component", "scheduler", "agent", cfg.Self),
		now:         time.Now,
		state:       StateIdle,
		turnOrder:   order,
		currentTurn: 1,
	}
	s.lastMessageAt = s.now()
	return s, nil
}

// State returns the current phase.
func (s *Scheduler) State() State { return s.state }

// Listening reports whether a high-urgency inbound message put the agent in
// listening.
func (s *Scheduler) Listening() bool { return s.listening }

// HandleTick advances the tick counter and applies the generation rules in
// fixed precedence: busy check, error cooldown, deadlock break, minimum
// spacing, then listening and the configured policy. An idle tick that ends
// without generation is answered with a no-op, so a turn-starved agent still
// accumulates no-ops toward the deadlock break.
func (s *Scheduler) HandleTick() Decision {
	s.tickCount++

	if s.state != StateIdle {
		return noDecision
	}

	if s.cfg.MaxErrors > 0 && s.errorCount >= s.cfg.MaxErrors {
		// Cooldown: skip this opportunity instead of hammering a failing
		// provider. Both counters reset so the next cycle starts clean.
		s.errorCount = 0
		s.noneCount = 0
		cool := None(s.cfg.Self, "pausing after repeated generation failures")
		s.logger.Warn("generation cooldown", "tick", s.tickCount)
		return Decision{Emit: &cool, Reason: "error cooldown"}
	}

	if s.cfg.MaxNoneActions > 0 && s.noneCount >= s.cfg.MaxNoneActions {
		// Everyone has been deferring. Reclaim the turn so the
		// conversation cannot stall forever.
		s.currentTurn = s.turnOrder
		s.noneCount = 0
		s.logger.Info("breaking deadlock, reclaiming turn", "tick", s.tickCount)
	}

	if s.tickCount-s.lastActionTick >= s.cfg.MinTicksBetweenActions {
		if d := s.generateDecision(); d.Generate {
			s.noneCount = 0
			return d
		}
	}

	s.noneCount++
	return noDecision
}

// generateDecision applies listening and the configured policy. The
// busy, cooldown, deadlock, and spacing gates have already run.
func (s *Scheduler) generateDecision() Decision {
	if s.listening {
		return Decision{Generate: true, Reason: "urgent message pending"}
	}
	switch s.cfg.Policy {
	case PolicySilence:
		if s.now().Sub(s.lastMessageAt) > s.cfg.SilenceThreshold {
			return Decision{Generate: true, Reason: "silence threshold exceeded"}
		}
	case PolicyFixedInterval:
		if s.cfg.QueryInterval > 0 && s.tickCount%s.cfg.QueryInterval == 0 && s.currentTurn == s.turnOrder {
			return Decision{Generate: true, Reason: "turn interval"}
		}
	}
	return noDecision
}

// HandlePeerAction records a peer's action: it feeds the deadlock counter,
// passes turn ownership to the participant after the actor on substantive
// actions, resets the silence timer, and raises listening when the message
// exceeds the attention threshold. Ownership moves relative to whoever
// acted, not to whoever held the turn, so an out-of-turn speaker hands the
// floor to its own successor.
func (s *Scheduler) HandlePeerAction(a Action) {
	s.lastMessageAt = s.now()
	if a.IsNone() {
		s.noneCount++
		return
	}
	s.noneCount = 0
	s.currentTurn = s.advance(s.orderOf(a.AgentName))
	if a.Urgency > s.cfg.AttentionThreshold {
		s.listening = true
		s.logger.Debug("entering listening", "from", a.AgentName, "urgency", a.Urgency)
	}
}

// HandleScene reacts to scene setup. Scene text always warrants an initial
// response, so generation is requested as soon as the agent is free.
func (s *Scheduler) HandleScene() Decision {
	s.lastMessageAt = s.now()
	if s.state != StateIdle {
		return noDecision
	}
	return Decision{Generate: true, Reason: "scene setup"}
}

// BeginGeneration marks the agent busy. The caller must pair it with exactly
// one FinishGeneration or FailGeneration.
func (s *Scheduler) BeginGeneration() {
	s.state = StateThinking
}

// BeginSpeaking marks the transition from producing an action to routing it.
func (s *Scheduler) BeginSpeaking() {
	s.state = StateSpeaking
}

// FinishGeneration records a completed cycle and its resulting action. A
// substantive action consumes the turn and passes ownership to the next
// participant; a no-op feeds the deadlock counter instead.
func (s *Scheduler) FinishGeneration(a Action) {
	s.state = StateIdle
	s.listening = false
	s.errorCount = 0
	if a.IsNone() {
		s.noneCount++
		return
	}
	s.noneCount = 0
	s.lastActionTick = s.tickCount
	s.currentTurn = s.advance(s.turnOrder)
}

// FailGeneration records a failed cycle. After MaxErrors consecutive
// failures the next tick emits a cooldown no-op instead of generating.
func (s *Scheduler) FailGeneration(err error) {
	s.state = StateIdle
	s.errorCount++
	s.logger.Warn("generation failed", "error", err, "consecutive", s.errorCount)
}

// advance returns the ring position after order.
func (s *Scheduler) advance(order int) int {
	return order%len(s.cfg.Participants) + 1
}

// orderOf returns name's 1-based ring position, or the current turn holder
// when the name is not a participant.
func (s *Scheduler) orderOf(name string) int {
	for i, p := range s.cfg.Participants {
		if p == name {
			return i + 1
		}
	}
	return s.currentTurn
}
