package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/martinemde/duet/bus"
)

// Ticker publishes a monotonically numbered tick on the session's tick
// channel at a fixed interval. With MaxTicks set it stops after that many
// ticks, ending the session.
type Ticker struct {
	Bus      *bus.Bus
	Session  string
	Interval time.Duration
	MaxTicks int
	Logger   *slog.Logger
}

// Run publishes ticks until ctx is cancelled or MaxTicks is reached.
func (t *Ticker) Run(ctx context.Context) error {
	logger := t.Logger
	if logger == nil {
		logger = slog.Default()
	}
	ticker := time.NewTicker(t.Interval)
	defer ticker.Stop()

	channel := bus.Tick(t.Session)
	n := 0
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			n++
			t.Bus.Publish(channel, bus.TickEnvelope(n))
			if t.MaxTicks > 0 && n >= t.MaxTicks {
				logger.Info("tick limit reached", "ticks", n)
				return nil
			}
		}
	}
}

// PublishScene delivers the scene text to every participant's scene channel.
func PublishScene(b *bus.Bus, session, scene string, participants []string) {
	if scene == "" {
		return
	}
	for _, name := range participants {
		b.Publish(bus.Scene(name, session), bus.TextEnvelope(scene))
	}
}

// observerChannels lists every channel an observer node should watch: all
// directed conversation channels plus both runtime directions.
func observerChannels(session string, participants []string) []string {
	var channels []string
	for _, from := range participants {
		for _, to := range participants {
			if from != to {
				channels = append(channels, bus.Conversation(from, to, session))
			}
		}
	}
	channels = append(channels, bus.AgentRuntime(session), bus.RuntimeAgent(session))
	return channels
}

// palette holds the colors assigned to agent names.
var palette = []*color.Color{
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgMagenta),
	color.New(color.FgYellow),
	color.New(color.FgBlue),
	color.New(color.FgRed),
}

// nameColor picks a stable color for a name.
func nameColor(name string) *color.Color {
	h := fnv.New32a()
	h.Write([]byte(name))
	return palette[h.Sum32()%uint32(len(palette))]
}

// Printer renders the conversation to a writer, one colored line per
// substantive action or observation. Directed conversation channels mean the
// same utterance appears once per receiver, so speak lines are deduplicated
// by sender and text.
type Printer struct {
	Bus          *bus.Bus
	Session      string
	Participants []string
	Out          io.Writer

	lastLine string
}

// Run prints until ctx is cancelled or the bus closes.
func (p *Printer) Run(ctx context.Context) error {
	inbox, subID := p.Bus.Subscribe(ctx, observerChannels(p.Session, p.Participants)...)
	defer p.Bus.Unsubscribe(subID)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbox:
			if !ok {
				return nil
			}
			p.print(msg)
		}
	}
}

func (p *Printer) print(msg bus.Message) {
	d := msg.Envelope.Data
	var line string
	switch d.Schema {
	case bus.SchemaAgentAction:
		line = fmt.Sprintf("%s %s", nameColor(d.AgentName).Sprint(d.AgentName), describeAction(d))
	case bus.SchemaText:
		line = fmt.Sprintf("%s %s", color.New(color.Faint).Sprint("[env]"), d.Text)
	default:
		return
	}
	if line == p.lastLine {
		return
	}
	p.lastLine = line
	fmt.Fprintln(p.Out, line)
}

func describeAction(d bus.Payload) string {
	switch d.ActionType {
	case "speak":
		return fmt.Sprintf("says: %s", d.Argument)
	case "thought":
		return color.New(color.Faint).Sprintf("(thinks: %s)", d.Argument)
	case "non-verbal":
		return fmt.Sprintf("[%s]", d.Argument)
	case "leave":
		return "left the conversation"
	case "read":
		return fmt.Sprintf("reads %s", d.Path)
	case "write":
		return fmt.Sprintf("writes %s", d.Path)
	case "run":
		return fmt.Sprintf("runs: %s", d.Argument)
	case "browse":
		return fmt.Sprintf("browses %s", d.Argument)
	case "browse_action":
		return fmt.Sprintf("browser: %s", d.Argument)
	default:
		return "performed an unknown action"
	}
}

// transcriptLine is one recorded bus message.
type transcriptLine struct {
	ID        string       `json:"id"`
	Timestamp time.Time    `json:"timestamp"`
	Channel   string       `json:"channel"`
	Envelope  bus.Envelope `json:"envelope"`
}

// Recorder appends every observed bus message to a writer as JSON lines.
type Recorder struct {
	Bus          *bus.Bus
	Session      string
	Participants []string
	Out          io.Writer
	Logger       *slog.Logger
}

// Run records until ctx is cancelled or the bus closes.
func (r *Recorder) Run(ctx context.Context) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	inbox, subID := r.Bus.Subscribe(ctx, observerChannels(r.Session, r.Participants)...)
	defer r.Bus.Unsubscribe(subID)

	enc := json.NewEncoder(r.Out)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbox:
			if !ok {
				return nil
			}
			line := transcriptLine{
				ID:        uuid.New().String(),
				Timestamp: time.Now().UTC(),
				Channel:   msg.Channel,
				Envelope:  msg.Envelope,
			}
			if err := enc.Encode(line); err != nil {
				logger.Warn("failed to record transcript line", "error", err)
			}
		}
	}
}
