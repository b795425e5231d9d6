package bus

import "encoding/json"

// Schema names identify the payload type carried by an envelope, so multiple
// payload shapes can share one channel.
const (
	SchemaAgentAction = "agent_action"
	SchemaText        = "text"
	SchemaTick        = "tick"
)

// Payload is the superset of all wire payload shapes. The Schema field
// discriminates which fields are meaningful.
type Payload struct {
	Schema string `json:"data_type"`

	// agent_action fields.
	AgentName  string   `json:"agent_name,omitempty"`
	ActionType string   `json:"action_type,omitempty"`
	Argument   string   `json:"argument,omitempty"`
	Path       string   `json:"path,omitempty"`
	Thinking   string   `json:"thinking,omitempty"`
	Urgency    *float64 `json:"urgency,omitempty"`

	// text fields.
	Text string `json:"text,omitempty"`

	// tick fields.
	Tick int `json:"tick,omitempty"`
}

// Envelope wraps a payload for publication. The nesting matches the
// historical wire format: {"data": {..., "data_type": "..."}}.
type Envelope struct {
	Data Payload `json:"data"`
}

// TextEnvelope builds a text envelope.
func TextEnvelope(text string) Envelope {
	return Envelope{Data: Payload{Schema: SchemaText, Text: text}}
}

// TickEnvelope builds a tick envelope carrying the tick sequence number.
func TickEnvelope(n int) Envelope {
	return Envelope{Data: Payload{Schema: SchemaTick, Tick: n}}
}

// Marshal serializes the envelope to its wire form.
func (e Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// Unmarshal parses an envelope from its wire form.
func Unmarshal(data []byte) (Envelope, error) {
	var e Envelope
	err := json.Unmarshal(data, &e)
	return e, err
}
