package sim

import (
	"fmt"
	"os"
	"regexp"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/martinemde/duet/agent"
)

// Config represents a complete simulation configuration.
type Config struct {
	Session SessionConfig `yaml:"session"`
	Agents  []AgentConfig `yaml:"agents"`
	Runtime RuntimeConfig `yaml:"runtime"`
	Logging LoggingConfig `yaml:"logging"`
	Output  OutputConfig  `yaml:"output"`
}

// SessionConfig holds session identity and pacing.
type SessionConfig struct {
	ID       string `yaml:"id"`
	Scene    string `yaml:"scene"`
	MaxTicks int    `yaml:"max_ticks"`

	TickInterval time.Duration `yaml:"-"`

	// Raw string value for YAML unmarshaling
	TickIntervalRaw string `yaml:"tick_interval"`
}

// AgentConfig holds one participant's identity, model, and scheduling knobs.
type AgentConfig struct {
	Name string `yaml:"name"`
	Goal string `yaml:"goal"`

	// Generator selects the backing implementation: "gollm" (default) or
	// "scripted".
	Generator string `yaml:"generator"`

	Provider    string  `yaml:"provider"`
	Model       string  `yaml:"model"`
	APIKey      string  `yaml:"api_key"`
	MaxTokens   int     `yaml:"max_tokens"`
	Temperature float64 `yaml:"temperature"`

	Scheduler SchedulerConfig `yaml:"scheduler"`
}

// SchedulerConfig mirrors agent.SchedulerConfig in YAML form. Zero values
// fall back to the defaults.
type SchedulerConfig struct {
	Policy                 string  `yaml:"policy"`
	QueryInterval          int     `yaml:"query_interval"`
	MinTicksBetweenActions int     `yaml:"min_ticks_between_actions"`
	MaxNoneActions         int     `yaml:"max_none_actions"`
	MaxErrors              int     `yaml:"max_errors"`
	AttentionThreshold     float64 `yaml:"attention_threshold"`

	SilenceThreshold time.Duration `yaml:"-"`

	SilenceThresholdRaw string `yaml:"silence_threshold"`
}

// RuntimeConfig holds the local runtime's workspace and limits.
type RuntimeConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Workspace string `yaml:"workspace"`

	CommandTimeout time.Duration `yaml:"-"`

	CommandTimeoutRaw string `yaml:"command_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// OutputConfig holds observer node configuration.
type OutputConfig struct {
	// TranscriptPath, when set, records every bus message as JSON lines.
	TranscriptPath string `yaml:"transcript_path"`
	// Color enables the colored console printer.
	Color bool `yaml:"color"`
}

// Load reads a configuration file from the given path and returns a parsed
// Config. Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expandedData := expandEnvVars(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := parseDurations(&cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding
// environment variable values. Unset variables expand to empty strings.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// Validate checks that all required configuration fields are present and
// valid. Returns an error describing the first validation failure.
func (c *Config) Validate() error {
	if c.Session.ID == "" {
		return fmt.Errorf("session.id is required")
	}
	if len(c.Agents) < 2 {
		return fmt.Errorf("at least two agents are required, got %d", len(c.Agents))
	}
	seen := make(map[string]bool)
	for i, a := range c.Agents {
		if a.Name == "" {
			return fmt.Errorf("agents[%d].name is required", i)
		}
		if seen[a.Name] {
			return fmt.Errorf("duplicate agent name %q", a.Name)
		}
		seen[a.Name] = true
		switch a.Generator {
		case "", "gollm", "scripted":
		default:
			return fmt.Errorf("agents[%d].generator %q is not supported", i, a.Generator)
		}
		if (a.Generator == "" || a.Generator == "gollm") && a.Provider == "" {
			return fmt.Errorf("agents[%d].provider is required for the gollm generator", i)
		}
	}
	if c.Runtime.Enabled && c.Runtime.Workspace == "" {
		return fmt.Errorf("runtime.workspace is required when the runtime is enabled")
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values.
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Session.TickIntervalRaw != "" {
		cfg.Session.TickInterval, err = time.ParseDuration(cfg.Session.TickIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing tick_interval %q: %w", cfg.Session.TickIntervalRaw, err)
		}
	}
	if cfg.Session.TickInterval <= 0 {
		cfg.Session.TickInterval = time.Second
	}

	if cfg.Runtime.CommandTimeoutRaw != "" {
		cfg.Runtime.CommandTimeout, err = time.ParseDuration(cfg.Runtime.CommandTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing command_timeout %q: %w", cfg.Runtime.CommandTimeoutRaw, err)
		}
	}
	if cfg.Runtime.CommandTimeout <= 0 {
		cfg.Runtime.CommandTimeout = 30 * time.Second
	}

	for i := range cfg.Agents {
		raw := cfg.Agents[i].Scheduler.SilenceThresholdRaw
		if raw == "" {
			continue
		}
		cfg.Agents[i].Scheduler.SilenceThreshold, err = time.ParseDuration(raw)
		if err != nil {
			return fmt.Errorf("parsing agents[%d].scheduler.silence_threshold %q: %w", i, raw, err)
		}
	}

	return nil
}

// ParticipantNames returns the configured agent names in order.
func (c *Config) ParticipantNames() []string {
	names := make([]string, len(c.Agents))
	for i, a := range c.Agents {
		names[i] = a.Name
	}
	return names
}

// SchedulerConfig materializes the agent-level scheduler config for one
// participant, filling defaults for unset fields.
func (a AgentConfig) SchedulerConfig(participants []string) agent.SchedulerConfig {
	cfg := agent.DefaultSchedulerConfig()
	cfg.Participants = participants
	cfg.Self = a.Name

	s := a.Scheduler
	if s.Policy != "" {
		cfg.Policy = agent.Policy(s.Policy)
	}
	if s.QueryInterval > 0 {
		cfg.QueryInterval = s.QueryInterval
	}
	if s.SilenceThreshold > 0 {
		cfg.SilenceThreshold = s.SilenceThreshold
	}
	if s.MinTicksBetweenActions > 0 {
		cfg.MinTicksBetweenActions = s.MinTicksBetweenActions
	}
	if s.MaxNoneActions > 0 {
		cfg.MaxNoneActions = s.MaxNoneActions
	}
	if s.MaxErrors > 0 {
		cfg.MaxErrors = s.MaxErrors
	}
	if s.AttentionThreshold > 0 {
		cfg.AttentionThreshold = s.AttentionThreshold
	}
	return cfg
}
