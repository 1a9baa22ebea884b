package goSession

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/goSession/internal/audit"
)

// Audit event types emitted by the gate.
const (
	AuditSessionRefreshed = "session_refreshed"
	AuditRefreshFailed    = "refresh_failed"
	AuditRefreshThrottled = "refresh_throttled"
	AuditGuardRedirect    = "guard_redirect"
)

// AuditEvent is one audit record. Token fields hold fingerprints, never token values.
type AuditEvent = audit.Event

// AuditSink receives audit events from the dispatcher goroutine.
type AuditSink = audit.Sink

// NoOpSink discards events.
type NoOpSink = audit.NoOpSink

// ChannelSink delivers events on a buffered channel.
type ChannelSink = audit.ChannelSink

// NewChannelSink returns a sink whose Events channel holds buffer events.
func NewChannelSink(buffer int) *ChannelSink {
	return audit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink writing one JSON object per line to w.
func NewJSONWriterSink(w io.Writer) AuditSink {
	return audit.NewJSONWriterSink(w)
}

// NewLoggerSink returns a sink writing events through l.
func NewLoggerSink(l zerolog.Logger) AuditSink {
	return audit.NewLoggerSink(l)
}
