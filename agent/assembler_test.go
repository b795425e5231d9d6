package agent

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const speakPayload = `{"agent_name": "Jack", "thinking": "say hi", "action_type": "speak", "argument": "hello there", "urgency": 0.6}`

// feedAll pushes fragments until the assembler finalizes.
func feedAll(t *testing.T, as *Assembler, fragments []string) (Action, bool) {
	t.Helper()
	var final Action
	var ok bool
	for _, f := range fragments {
		if a, done := as.Feed(f); done {
			final, ok = a, true
		}
	}
	return final, ok
}

// splitEvery cuts s into chunks of n bytes.
func splitEvery(s string, n int) []string {
	var out []string
	for len(s) > 0 {
		if n > len(s) {
			n = len(s)
		}
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}

func TestFeedWholePayload(t *testing.T) {
	as := NewAssembler()
	a, ok := as.Feed(speakPayload)
	require.True(t, ok)
	assert.Equal(t, "Jack", a.AgentName)
	assert.Equal(t, KindSpeak, a.Kind)
	assert.Equal(t, "hello there", a.Argument)
	assert.Equal(t, "say hi", a.Thinking)
	assert.Equal(t, 0.6, a.Urgency)
}

func TestSplitInvariance(t *testing.T) {
	whole := NewAssembler()
	want, ok := whole.Feed(speakPayload)
	require.True(t, ok)

	splits := map[string][]string{
		"per byte":   splitEvery(speakPayload, 1),
		"per 3":      splitEvery(speakPayload, 3),
		"per 7":      splitEvery(speakPayload, 7),
		"two halves": {speakPayload[:len(speakPayload)/2], speakPayload[len(speakPayload)/2:]},
	}
	for name, fragments := range splits {
		t.Run(name, func(t *testing.T) {
			as := NewAssembler()
			got, ok := feedAll(t, as, fragments)
			require.True(t, ok, "never finalized")
			assert.Equal(t, want, got)
		})
	}
}

func TestNoPartialFinalization(t *testing.T) {
	as := NewAssembler()
	for _, f := range splitEvery(speakPayload[:len(speakPayload)-5], 4) {
		_, ok := as.Feed(f)
		assert.False(t, ok, "finalized on incomplete JSON")
	}
	assert.False(t, as.Finalized())
}

func TestMandatoryFieldsRequired(t *testing.T) {
	// Valid JSON but missing argument: must not finalize.
	as := NewAssembler()
	_, ok := as.Feed(`{"agent_name": "Jack", "action_type": "none"}`)
	assert.False(t, ok)

	// Empty argument is present, which satisfies the check for none.
	as = NewAssembler()
	a, ok := as.Feed(`{"agent_name": "Jack", "action_type": "none", "argument": ""}`)
	require.True(t, ok)
	assert.True(t, a.IsNone())
	assert.Equal(t, 0.5, a.Urgency, "omitted urgency takes the default")
}

func TestInvalidActionDoesNotFinalize(t *testing.T) {
	as := NewAssembler()
	_, ok := as.Feed(`{"agent_name": "Jack", "action_type": "dance", "argument": "tango"}`)
	assert.False(t, ok)

	// read without a path parses but fails validation.
	as = NewAssembler()
	_, ok = as.Feed(`{"agent_name": "Jack", "action_type": "read", "argument": "x"}`)
	assert.False(t, ok)
}

func TestFinalizesExactlyOnce(t *testing.T) {
	as := NewAssembler()
	_, ok := as.Feed(speakPayload)
	require.True(t, ok)

	// Trailing fragments after finalization are discarded.
	_, ok = as.Feed(speakPayload)
	assert.False(t, ok)
	assert.True(t, as.Finalized())
}

func TestResetStartsNewCycle(t *testing.T) {
	as := NewAssembler()
	_, ok := as.Feed(speakPayload)
	require.True(t, ok)

	as.Reset()
	assert.False(t, as.Finalized())

	leave, err := json.Marshal(Action{AgentName: "Jack", Kind: KindLeave})
	require.NoError(t, err)
	a, ok := feedAll(t, as, splitEvery(string(leave), 5))
	require.True(t, ok)
	assert.Equal(t, KindLeave, a.Kind)
}

func TestLeadingWhitespaceTolerated(t *testing.T) {
	as := NewAssembler()
	a, ok := feedAll(t, as, []string{"\n  ", speakPayload, "\n"})
	require.True(t, ok)
	assert.Equal(t, KindSpeak, a.Kind)
}

func TestWritePayloadWithPath(t *testing.T) {
	payload := `{"agent_name": "Jane", "action_type": "write", "argument": "package main", "path": "main.go"}`
	as := NewAssembler()
	a, ok := feedAll(t, as, splitEvery(payload, 9))
	require.True(t, ok)
	assert.Equal(t, KindWrite, a.Kind)
	assert.Equal(t, "main.go", a.Path)
}
