package sim

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/duet/bus"
)

func newTestRuntime(t *testing.T) (*LocalRuntime, string) {
	t.Helper()
	ws := t.TempDir()
	return &LocalRuntime{Workspace: ws, CommandTimeout: 5 * time.Second}, ws
}

func TestResolvePathConfinesToWorkspace(t *testing.T) {
	rt, ws := newTestRuntime(t)

	resolved, err := rt.resolvePath("notes.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws, "notes.txt"), resolved)

	// Traversal and absolute paths stay inside the workspace.
	resolved, err = rt.resolvePath("../../etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws, "etc", "passwd"), resolved)

	resolved, err = rt.resolvePath("/etc/passwd")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(ws, "etc", "passwd"), resolved)
}

func TestWriteThenRead(t *testing.T) {
	rt, ws := newTestRuntime(t)

	obs := rt.serve(context.Background(), bus.Payload{
		Schema: bus.SchemaAgentAction, ActionType: "write", Path: "dir/hello.txt", Argument: "hello world",
	})
	assert.Contains(t, obs, "wrote 11 bytes")

	data, err := os.ReadFile(filepath.Join(ws, "dir", "hello.txt"))
	require.NoError(t, err)
	assert.Equal(t, "hello world", string(data))

	obs = rt.serve(context.Background(), bus.Payload{
		Schema: bus.SchemaAgentAction, ActionType: "read", Path: "dir/hello.txt",
	})
	assert.Contains(t, obs, "hello world")
}

func TestReadMissingFileReportsError(t *testing.T) {
	rt, _ := newTestRuntime(t)
	obs := rt.serve(context.Background(), bus.Payload{
		Schema: bus.SchemaAgentAction, ActionType: "read", Path: "nope.txt",
	})
	assert.Contains(t, obs, "read failed")
}

func TestRunCommand(t *testing.T) {
	rt, _ := newTestRuntime(t)
	obs := rt.serve(context.Background(), bus.Payload{
		Schema: bus.SchemaAgentAction, ActionType: "run", Argument: "echo hi",
	})
	assert.Contains(t, obs, "hi")

	obs = rt.serve(context.Background(), bus.Payload{
		Schema: bus.SchemaAgentAction, ActionType: "run", Argument: "exit 3",
	})
	assert.Contains(t, obs, "exited with code 3")
}

func TestRunCommandTimeout(t *testing.T) {
	rt, _ := newTestRuntime(t)
	rt.CommandTimeout = 100 * time.Millisecond
	obs := rt.serve(context.Background(), bus.Payload{
		Schema: bus.SchemaAgentAction, ActionType: "run", Argument: "sleep 5",
	})
	assert.Contains(t, obs, "timed out")
}

func TestBrowserActionsAcknowledged(t *testing.T) {
	rt, _ := newTestRuntime(t)
	obs := rt.serve(context.Background(), bus.Payload{
		Schema: bus.SchemaAgentAction, ActionType: "browse", Argument: "https://example.com",
	})
	assert.Contains(t, obs, "not available")
}

func TestRuntimeAnswersOverBus(t *testing.T) {
	b := bus.New(nil)
	defer b.Close()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	rt, _ := newTestRuntime(t)
	rt.Bus = b
	rt.Session = "s1"

	obsInbox, _ := b.Subscribe(ctx, bus.RuntimeAgent("s1"))
	go rt.Run(ctx)

	// Give the runtime a moment to subscribe.
	time.Sleep(50 * time.Millisecond)

	env := bus.Envelope{Data: bus.Payload{
		Schema: bus.SchemaAgentAction, AgentName: "Jack", ActionType: "run", Argument: "echo over-the-bus",
	}}
	b.Publish(bus.AgentRuntime("s1"), env)

	select {
	case msg := <-obsInbox:
		assert.Equal(t, bus.SchemaText, msg.Envelope.Data.Schema)
		assert.Contains(t, msg.Envelope.Data.Text, "over-the-bus")
	case <-time.After(2 * time.Second):
		t.Fatal("no observation published")
	}
}
