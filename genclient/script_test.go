package genclient

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/duet/agent"
)

func collect(t *testing.T, g *ScriptedGenerator, name string) string {
	t.Helper()
	var sb strings.Builder
	err := g.Generate(context.Background(), agent.GenerationRequest{AgentName: name}, func(fragment string) {
		sb.WriteString(fragment)
	})
	require.NoError(t, err)
	return sb.String()
}

func TestScriptedGeneratorPlaysSteps(t *testing.T) {
	g := NewScripted(
		agent.Action{Kind: agent.KindSpeak, Argument: "hello"},
		agent.Action{Kind: agent.KindLeave},
	)

	asm := agent.NewAssembler()
	act, ok := asm.Feed(collect(t, g, "Jack"))
	require.True(t, ok)
	assert.Equal(t, agent.KindSpeak, act.Kind)
	assert.Equal(t, "hello", act.Argument)
	assert.Equal(t, "Jack", act.AgentName)

	asm.Reset()
	act, ok = asm.Feed(collect(t, g, "Jack"))
	require.True(t, ok)
	assert.Equal(t, agent.KindLeave, act.Kind)
}

func TestScriptedGeneratorExhaustedYieldsNone(t *testing.T) {
	g := NewScripted()

	asm := agent.NewAssembler()
	act, ok := asm.Feed(collect(t, g, "Jane"))
	require.True(t, ok)
	assert.True(t, act.IsNone())
	assert.Equal(t, "Jane", act.AgentName)
}

func TestScriptedGeneratorChunkedOutputAssembles(t *testing.T) {
	g := NewScripted(agent.Action{Kind: agent.KindSpeak, Argument: "chunk me please"})
	g.ChunkSize = 3

	asm := agent.NewAssembler()
	var final agent.Action
	var finalized bool
	err := g.Generate(context.Background(), agent.GenerationRequest{AgentName: "Jack"}, func(fragment string) {
		require.LessOrEqual(t, len(fragment), 3)
		if act, ok := asm.Feed(fragment); ok {
			final, finalized = act, true
		}
	})
	require.NoError(t, err)
	require.True(t, finalized)
	assert.Equal(t, "chunk me please", final.Argument)
}
