package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/martinemde/duet/bus"
)

func TestKindValid(t *testing.T) {
	for _, k := range Kinds {
		assert.True(t, k.Valid(), "kind %q should be valid", k)
	}
	assert.False(t, Kind("dance").Valid())
	assert.False(t, Kind("").Valid())
}

func TestValidateMandatoryFields(t *testing.T) {
	cases := []struct {
		name    string
		action  Action
		wantErr bool
	}{
		{"none needs nothing", Action{AgentName: "Jack", Kind: KindNone}, false},
		{"leave needs nothing", Action{AgentName: "Jack", Kind: KindLeave}, false},
		{"speak needs argument", Action{AgentName: "Jack", Kind: KindSpeak}, true},
		{"speak with argument", Action{AgentName: "Jack", Kind: KindSpeak, Argument: "hi"}, false},
		{"read needs path", Action{AgentName: "Jack", Kind: KindRead}, true},
		{"read with path", Action{AgentName: "Jack", Kind: KindRead, Path: "a.txt"}, false},
		{"write needs path", Action{AgentName: "Jack", Kind: KindWrite, Argument: "x"}, true},
		{"write needs content", Action{AgentName: "Jack", Kind: KindWrite, Path: "a.txt"}, true},
		{"write complete", Action{AgentName: "Jack", Kind: KindWrite, Path: "a.txt", Argument: "x"}, false},
		{"unknown kind", Action{AgentName: "Jack", Kind: "dance", Argument: "x"}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.action.Validate()
			if tc.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNaturalLanguageIsTotal(t *testing.T) {
	for _, k := range Kinds {
		a := Action{AgentName: "Jack", Kind: k, Argument: "arg", Path: "p"}
		assert.NotEmpty(t, a.NaturalLanguage(), "kind %q rendered empty", k)
	}

	// Unrecognized kinds fall back instead of panicking.
	a := Action{AgentName: "Jack", Kind: "dance"}
	assert.Equal(t, "performed an unknown action", a.NaturalLanguage())
}

func TestDowngradePreservesAgent(t *testing.T) {
	a := Action{AgentName: "Jane", Kind: KindWrite}
	d := a.Downgrade("missing path")
	assert.True(t, d.IsNone())
	assert.Equal(t, "Jane", d.AgentName)
	assert.Equal(t, "missing path", d.Thinking)
}

func TestEnvelopeKeepsThinkingLocal(t *testing.T) {
	a := Action{AgentName: "Jack", Kind: KindSpeak, Argument: "hi", Thinking: "secret plan", Urgency: 0.4}
	env := a.Envelope()

	assert.Equal(t, bus.SchemaAgentAction, env.Data.Schema)
	assert.Equal(t, "speak", env.Data.ActionType)
	assert.Empty(t, env.Data.Thinking)
	require.NotNil(t, env.Data.Urgency)
	assert.Equal(t, 0.4, *env.Data.Urgency)
}

func TestActionFromPayload(t *testing.T) {
	urgency := 0.8
	p := bus.Payload{
		Schema:     bus.SchemaAgentAction,
		AgentName:  "Jane",
		ActionType: "speak",
		Argument:   "hello",
		Urgency:    &urgency,
	}
	a, err := ActionFromPayload(p)
	require.NoError(t, err)
	assert.Equal(t, KindSpeak, a.Kind)
	assert.Equal(t, 0.8, a.Urgency)

	_, err = ActionFromPayload(bus.Payload{Schema: bus.SchemaText, Text: "hi"})
	assert.Error(t, err)

	_, err = ActionFromPayload(bus.Payload{Schema: bus.SchemaAgentAction, AgentName: "Jane", ActionType: "dance"})
	assert.Error(t, err)
}
