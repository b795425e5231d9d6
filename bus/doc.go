// Package bus provides the channel bus the agents coordinate over: named
// publish/subscribe channels carrying typed message envelopes.
//
// The bus contract is deliberately small. Delivery to each subscriber
// preserves per-channel publish order, publishing never blocks (a slow
// subscriber drops messages rather than stalling the publisher), and
// subscriptions are cleaned up when their context is cancelled. A production
// deployment would back this with an external broker; the in-memory Bus here
// implements the same contract so sessions run and test without one.
//
// Channel names follow the <Sender>:<Receiver>:<session> convention, with a
// dedicated tick channel (tick/secs/<session>) and a shared runtime channel
// pair (Agent:Runtime:<session> / Runtime:Agent:<session>). Helpers for
// these names live in names.go.
package bus
