package sim

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"sync"

	"github.com/martinemde/duet/agent"
	"github.com/martinemde/duet/bus"
)

// Session owns one complete simulation run: the bus, the actors, the ticker,
// the runtime, and the observer nodes.
type Session struct {
	cfg    *Config
	bus    *bus.Bus
	actors []*agent.Actor
	logger *slog.Logger
}

// NewSession builds a session from configuration. generators maps agent name
// to its Generator; every configured agent must have one.
func NewSession(cfg *Config, generators map[string]agent.Generator, logger *slog.Logger) (*Session, error) {
	if logger == nil {
		logger = slog.Default()
	}
	b := bus.New(logger)

	participants := cfg.ParticipantNames()
	actors := make([]*agent.Actor, 0, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		gen, ok := generators[ac.Name]
		if !ok {
			return nil, fmt.Errorf("no generator for agent %q", ac.Name)
		}
		actor, err := agent.NewActor(agent.ActorConfig{
			Name:      ac.Name,
			SessionID: cfg.Session.ID,
			Goal:      ac.Goal,
			Scheduler: ac.SchedulerConfig(participants),
		}, b, gen, logger)
		if err != nil {
			return nil, fmt.Errorf("building actor %q: %w", ac.Name, err)
		}
		actors = append(actors, actor)
	}

	return &Session{
		cfg:    cfg,
		bus:    b,
		actors: actors,
		logger: logger.With("component", "session", "session_id", cfg.Session.ID),
	}, nil
}

// Actors exposes the session's actors, mainly for event consumption.
func (s *Session) Actors() []*agent.Actor { return s.actors }

// Run executes the session until every agent leaves, the tick limit is
// reached, or ctx is cancelled.
func (s *Session) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var observers sync.WaitGroup
	startObserver := func(run func(context.Context) error, name string) {
		observers.Add(1)
		go func() {
			defer observers.Done()
			if err := run(ctx); err != nil && err != context.Canceled {
				s.logger.Warn("observer stopped", "node", name, "error", err)
			}
		}()
	}

	participants := s.cfg.ParticipantNames()
	if s.cfg.Output.Color {
		p := &Printer{Bus: s.bus, Session: s.cfg.Session.ID, Participants: participants, Out: os.Stdout}
		startObserver(p.Run, "printer")
	}
	if s.cfg.Output.TranscriptPath != "" {
		f, err := os.OpenFile(s.cfg.Output.TranscriptPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return fmt.Errorf("opening transcript: %w", err)
		}
		defer f.Close()
		r := &Recorder{Bus: s.bus, Session: s.cfg.Session.ID, Participants: participants, Out: f, Logger: s.logger}
		startObserver(r.Run, "recorder")
	}
	if s.cfg.Runtime.Enabled {
		rt := &LocalRuntime{
			Bus:            s.bus,
			Session:        s.cfg.Session.ID,
			Workspace:      s.cfg.Runtime.Workspace,
			CommandTimeout: s.cfg.Runtime.CommandTimeout,
			Logger:         s.logger,
		}
		startObserver(rt.Run, "runtime")
	}

	var actorWG sync.WaitGroup
	for _, a := range s.actors {
		actorWG.Add(1)
		go func(a *agent.Actor) {
			defer actorWG.Done()
			if err := a.Run(ctx); err != nil && err != context.Canceled {
				s.logger.Warn("actor stopped", "error", err)
			}
		}(a)
	}

	for _, a := range s.actors {
		select {
		case <-a.Ready():
		case <-ctx.Done():
			actorWG.Wait()
			observers.Wait()
			return ctx.Err()
		}
	}

	PublishScene(s.bus, s.cfg.Session.ID, s.cfg.Session.Scene, participants)
	s.logger.Info("session started", "agents", participants)

	ticker := &Ticker{
		Bus:      s.bus,
		Session:  s.cfg.Session.ID,
		Interval: s.cfg.Session.TickInterval,
		MaxTicks: s.cfg.Session.MaxTicks,
		Logger:   s.logger,
	}
	go func() {
		if err := ticker.Run(ctx); err == nil {
			// Tick limit reached; end the session.
			cancel()
		}
	}()

	actorsDone := make(chan struct{})
	go func() {
		actorWG.Wait()
		close(actorsDone)
	}()

	var runErr error
	select {
	case <-actorsDone:
		s.logger.Info("all agents finished")
	case <-ctx.Done():
		runErr = ctx.Err()
	}

	cancel()
	<-actorsDone
	observers.Wait()
	s.bus.Close()
	s.logger.Info("session ended")
	return runErr
}
