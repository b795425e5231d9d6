package genclient

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/teilomillet/gollm"

	"github.com/martinemde/duet/agent"
)

// Config configures a GollmGenerator.
type Config struct {
	Provider    string
	Model       string
	APIKey      string
	MaxTokens   int
	Temperature float64
	Retry       RetryPolicy
}

// GollmGenerator implements agent.Generator over a gollm.LLM. One instance
// serves one agent; the actor guarantees calls never overlap.
type GollmGenerator struct {
	provider string
	llm      gollm.LLM
	policy   RetryPolicy
	logger   *slog.Logger
}

// NewGollmGenerator creates a generator for the given provider. If APIKey is
// empty, gollm reads it from the provider's environment variable.
func NewGollmGenerator(cfg Config, logger *slog.Logger) (*GollmGenerator, error) {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 4096
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.7
	}
	if cfg.Retry.Multiplier == 0 {
		cfg.Retry = DefaultRetryPolicy()
	}
	if logger == nil {
		logger = slog.Default()
	}

	gollmOpts := []gollm.ConfigOption{
		gollm.SetProvider(cfg.Provider),
		gollm.SetModel(cfg.Model),
		gollm.SetMaxTokens(cfg.MaxTokens),
		gollm.SetTemperature(cfg.Temperature),
		gollm.SetMaxRetries(0), // We handle retries ourselves.
		gollm.SetLogLevel(gollm.LogLevelWarn),
	}
	if cfg.APIKey != "" {
		gollmOpts = append(gollmOpts, gollm.SetAPIKey(cfg.APIKey))
	}

	llm, err := gollm.NewLLM(gollmOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gollm LLM for provider %s: %w", cfg.Provider, err)
	}

	return &GollmGenerator{
		provider: cfg.Provider,
		llm:      llm,
		policy:   cfg.Retry,
		logger:   logger.With("component", "genclient", "provider", cfg.Provider),
	}, nil
}

// NewGollmGeneratorFromLLM wraps an existing gollm.LLM instance.
func NewGollmGeneratorFromLLM(provider string, llm gollm.LLM, policy RetryPolicy, logger *slog.Logger) *GollmGenerator {
	if logger == nil {
		logger = slog.Default()
	}
	return &GollmGenerator{
		provider: provider,
		llm:      llm,
		policy:   policy,
		logger:   logger.With("component", "genclient", "provider", provider),
	}
}

// Generate runs one generation cycle. Streaming providers deliver fragments
// as they arrive; others deliver the whole payload in one emit. Only the
// non-streaming path retries, because replaying fragments already emitted
// would corrupt the caller's reassembly.
func (g *GollmGenerator) Generate(ctx context.Context, req agent.GenerationRequest, emit func(fragment string)) error {
	prompt := gollm.NewPrompt(
		buildPromptText(req),
		gollm.WithSystemPrompt(buildSystemPrompt(req), gollm.CacheTypeEphemeral),
	)

	if !g.llm.SupportsStreaming() {
		text, err := Retry(ctx, g.policy, func(ctx context.Context) (string, error) {
			out, err := g.llm.Generate(ctx, prompt)
			if err != nil {
				return "", classifyError(g.provider, err)
			}
			return out, nil
		})
		if err != nil {
			return err
		}
		emit(text)
		return nil
	}

	stream, err := g.llm.Stream(ctx, prompt)
	if err != nil {
		return classifyError(g.provider, err)
	}
	defer stream.Close()

	for {
		token, err := stream.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return classifyError(g.provider, err)
		}
		if token == nil {
			continue
		}
		emit(token.Text)
	}
}

// buildSystemPrompt describes the persona and the response contract: one
// JSON object naming the action, nothing else.
func buildSystemPrompt(req agent.GenerationRequest) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "You are %s, an agent in a multi-agent conversation.\n", req.AgentName)
	if req.Goal != "" {
		fmt.Fprintf(&sb, "Your goal: %s\n", req.Goal)
	}
	sb.WriteString(`
Decide your next action. Reply with a single JSON object and nothing else:
{"agent_name": "<your name>", "thinking": "<brief reasoning>", "action_type": "<action>", "argument": "<content>", "path": "<file path if applicable>", "urgency": <0.0-1.0>}

Available actions:
`)
	for _, k := range agent.Kinds {
		fmt.Fprintf(&sb, "  - %s: %s\n", k, kindHelp(k))
	}
	sb.WriteString("\nPrioritize actions that move you closer to your goal. Communicate briefly. Again, you must reply with JSON, and only with JSON.")
	return sb.String()
}

// buildPromptText renders the transcript and asks for the next move.
func buildPromptText(req agent.GenerationRequest) string {
	var sb strings.Builder
	if req.Transcript != "" {
		sb.WriteString("Conversation so far:\n")
		sb.WriteString(req.Transcript)
		sb.WriteString("\n")
	}
	fmt.Fprintf(&sb, "What does %s do next?", req.AgentName)
	return sb.String()
}

func kindHelp(k agent.Kind) string {
	switch k {
	case agent.KindNone:
		return "do nothing, for example while waiting for data"
	case agent.KindSpeak:
		return "say something to the other agents (argument is the message, keep it short)"
	case agent.KindThought:
		return "record a private thought or plan (argument is the thought); use rarely"
	case agent.KindNonVerbal:
		return "a non-verbal gesture such as smile or shrug (argument is the gesture)"
	case agent.KindLeave:
		return "leave the conversation once your goal is complete or abandoned"
	case agent.KindBrowse:
		return "open a web page (argument is the URL); use none while waiting for results"
	case agent.KindBrowseAction:
		return "interact with the open page, e.g. click('a51') or fill('237', 'value') (argument is the command)"
	case agent.KindRead:
		return "read a file (path is the file path)"
	case agent.KindWrite:
		return "write a file (path is the file path, argument is the content)"
	case agent.KindRun:
		return "run a shell command (argument is the command)"
	default:
		return "unsupported"
	}
}
