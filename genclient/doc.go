// Package genclient provides agent.Generator implementations.
//
// GollmGenerator talks to real LLM providers through gollm, with a typed
// error taxonomy and transient-error retry with exponential backoff.
// ScriptedGenerator replays a fixed sequence of actions for offline runs
// and tests.
//
// Retry here covers transient provider faults within one generation cycle;
// the scheduler's failure counter handles cycles that fail outright.
package genclient
