// Package sim assembles complete conversation sessions: the shared bus, the
// agent actors, the periodic ticker, scene publication, a local runtime for
// file and shell actions, and observer nodes that print or record the
// conversation. Configuration is YAML with environment variable expansion.
package sim
