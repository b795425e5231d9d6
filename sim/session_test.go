package sim

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/duet/agent"
	"github.com/martinemde/duet/genclient"
)

func TestSessionRunsScriptedConversation(t *testing.T) {
	transcript := filepath.Join(t.TempDir(), "transcript.jsonl")
	cfg, err := Load(writeConfig(t, `
session:
  id: s1
  scene: "Two agents plan a release."
  tick_interval: 10ms
  max_ticks: 500
agents:
  - name: Jack
    generator: scripted
    scheduler:
      query_interval: 1
  - name: Jane
    generator: scripted
    scheduler:
      query_interval: 1
output:
  transcript_path: `+transcript+`
`))
	require.NoError(t, err)

	generators := map[string]agent.Generator{
		"Jack": genclient.NewScripted(
			agent.Action{Kind: agent.KindSpeak, Argument: "ready to ship?"},
			agent.Action{Kind: agent.KindLeave},
		),
		"Jane": genclient.NewScripted(
			agent.Action{Kind: agent.KindSpeak, Argument: "ship it"},
			agent.Action{Kind: agent.KindLeave},
		),
	}

	session, err := NewSession(cfg, generators, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	require.NoError(t, session.Run(ctx))

	var jackView string
	for _, a := range session.Actors() {
		if a.Ledger().Len() > 0 {
			jackView = a.Ledger().Render()
			break
		}
	}
	assert.Contains(t, jackView, "Two agents plan a release.")
	assert.Contains(t, jackView, "ready to ship?")

	data, err := os.ReadFile(transcript)
	require.NoError(t, err)
	lines := strings.TrimSpace(string(data))
	assert.NotEmpty(t, lines)
	assert.Contains(t, lines, `"data_type":"agent_action"`)
}

func TestNewSessionRequiresGenerators(t *testing.T) {
	cfg, err := Load(writeConfig(t, `
session:
  id: s1
agents:
  - name: Jack
    generator: scripted
  - name: Jane
    generator: scripted
`))
	require.NoError(t, err)

	_, err = NewSession(cfg, map[string]agent.Generator{
		"Jack": genclient.NewScripted(),
	}, nil)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "Jane")
}
