package sim

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"

	"github.com/martinemde/duet/bus"
)

// observationLimit caps the text published back to agents for one action.
const observationLimit = 4000

// LocalRuntime serves agents' file and shell actions against a workspace
// directory on the local machine. It consumes the shared agent-to-runtime
// channel and answers every action with an observation on the runtime-to-agent
// channel, so agents always learn whether their action took effect.
//
// Browser actions are acknowledged but not executed; a real browser backend
// would replace this node.
type LocalRuntime struct {
	Bus            *bus.Bus
	Session        string
	Workspace      string
	CommandTimeout time.Duration
	Logger         *slog.Logger
}

// Run serves actions until ctx is cancelled or the bus closes.
func (r *LocalRuntime) Run(ctx context.Context) error {
	logger := r.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "runtime")

	if err := os.MkdirAll(r.Workspace, 0755); err != nil {
		return fmt.Errorf("creating workspace: %w", err)
	}

	inbox, subID := r.Bus.Subscribe(ctx, bus.AgentRuntime(r.Session))
	defer r.Bus.Unsubscribe(subID)

	logger.Info("runtime started", "workspace", r.Workspace)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-inbox:
			if !ok {
				return nil
			}
			d := msg.Envelope.Data
			if d.Schema != bus.SchemaAgentAction {
				continue
			}
			obs := r.serve(ctx, d)
			if obs == "" {
				continue
			}
			if len(obs) > observationLimit {
				obs = obs[:observationLimit]
			}
			r.Bus.Publish(bus.RuntimeAgent(r.Session), bus.TextEnvelope(obs))
		}
	}
}

// serve executes one action and returns the observation text.
func (r *LocalRuntime) serve(ctx context.Context, d bus.Payload) string {
	switch d.ActionType {
	case "read":
		return r.readFile(d.Path)
	case "write":
		return r.writeFile(d.Path, d.Argument)
	case "run":
		return r.runCommand(ctx, d.Argument)
	case "browse", "browse_action":
		return fmt.Sprintf("browser actions are not available in the local runtime (requested: %s)", d.Argument)
	default:
		return ""
	}
}

// resolvePath confines a path to the workspace. Absolute paths and parent
// traversal both resolve inside it.
func (r *LocalRuntime) resolvePath(path string) (string, error) {
	cleaned := filepath.Clean("/" + path)
	resolved := filepath.Join(r.Workspace, cleaned)
	if resolved != r.Workspace && !strings.HasPrefix(resolved, r.Workspace+string(filepath.Separator)) {
		return "", fmt.Errorf("path %q escapes the workspace", path)
	}
	return resolved, nil
}

func (r *LocalRuntime) readFile(path string) string {
	resolved, err := r.resolvePath(path)
	if err != nil {
		return fmt.Sprintf("read failed: %v", err)
	}
	data, err := os.ReadFile(resolved)
	if err != nil {
		return fmt.Sprintf("read failed: %v", err)
	}
	return fmt.Sprintf("contents of %s:\n%s", path, data)
}

func (r *LocalRuntime) writeFile(path, content string) string {
	resolved, err := r.resolvePath(path)
	if err != nil {
		return fmt.Sprintf("write failed: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return fmt.Sprintf("write failed: %v", err)
	}
	if err := os.WriteFile(resolved, []byte(content), 0644); err != nil {
		return fmt.Sprintf("write failed: %v", err)
	}
	return fmt.Sprintf("wrote %d bytes to %s", len(content), path)
}

func (r *LocalRuntime) runCommand(ctx context.Context, command string) string {
	if r.CommandTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.CommandTimeout)
		defer cancel()
	}

	shell := "/bin/bash"
	shellArg := "-c"
	if runtime.GOOS == "windows" {
		shell = "cmd.exe"
		shellArg = "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = r.Workspace
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	if ctx.Err() == context.DeadlineExceeded {
		if cmd.Process != nil {
			_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
		}
		return fmt.Sprintf("command timed out after %s: %s", r.CommandTimeout, command)
	}

	out := stdout.String()
	if stderr.Len() > 0 {
		if out != "" {
			out += "\n"
		}
		out += stderr.String()
	}
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return fmt.Sprintf("command exited with code %d:\n%s", exitErr.ExitCode(), out)
		}
		return fmt.Sprintf("command failed: %v", err)
	}
	if out == "" {
		out = "(no output)"
	}
	return fmt.Sprintf("command output:\n%s", out)
}
