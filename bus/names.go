package bus

import "fmt"

// Conversation returns the directed conversational channel from sender to
// receiver within a session, e.g. "Jack:Jane:<session>".
func Conversation(sender, receiver, session string) string {
	return fmt.Sprintf("%s:%s:%s", sender, receiver, session)
}

// Tick returns the periodic timer channel for a session.
func Tick(session string) string {
	return fmt.Sprintf("tick/secs/%s", session)
}

// Scene returns the scene-setup channel for one agent in a session.
func Scene(agent, session string) string {
	return fmt.Sprintf("Scene:%s:%s", agent, session)
}

// AgentRuntime returns the shared channel agents publish runtime actions on.
func AgentRuntime(session string) string {
	return fmt.Sprintf("Agent:Runtime:%s", session)
}

// RuntimeAgent returns the shared channel the runtime publishes observations on.
func RuntimeAgent(session string) string {
	return fmt.Sprintf("Runtime:Agent:%s", session)
}
