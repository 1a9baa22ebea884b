// Package audit implements async delivery of session audit events.
//
// # Components
//
//   - [Sink]: interface for event consumers (channel, JSON writer, zerolog, no-op).
//   - [Dispatcher]: buffered async relay with drop-if-full / block-if-full semantics.
//   - [Event]: one refresh, redirect or sync record.
//
// # What this package must NOT do
//
//   - Decide which events to emit (the gate and agent do).
//   - Carry raw token values. Events hold token fingerprints only.
//   - Import goSession or any sibling internal package.
package audit
