// Package agent implements the turn-coordination and action-dispatch core
// for LLM-driven conversation participants.
//
// Each participant is an Actor: an independent sequential goroutine fed by
// bus subscriptions (peer messages, environment observations, timer ticks).
// The actor owns all of its mutable state, so no locks guard it.
//
// The package is organized around these core concepts:
//
//   - Action: the closed vocabulary of what an agent can do in one turn,
//     with validation, downgrade-to-none coercion, and total rendering.
//   - Ledger: the append-only per-agent history, rendered into a
//     prompt-ready transcript with scene setup and workspace state hoisted
//     ahead of the chronological dialogue.
//   - Scheduler: the per-agent state machine deciding, on every tick or
//     inbound message, whether to attempt generation now. Two policies are
//     supported as configuration (fixed-interval round robin and
//     silence-triggered), with urgency-based listening orthogonal to both.
//   - Assembler: reassembly of chunked generation output into one complete,
//     validated Action; it never finalizes a partial one.
//   - Router: kind-based routing of finalized Actions to the conversational
//     or runtime channel, with ledger side effects and duplicate-write
//     suppression.
//   - Emitter: a typed per-agent event stream for host observability.
//
// Generation itself is a collaborator behind the Generator interface; the
// genclient package provides implementations.
package agent
