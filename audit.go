package scopeAuth

import (
	"io"

	internalaudit "github.com/MrEthical07/scopeAuth/internal/audit"
	"github.com/sirupsen/logrus"
)

// AuditEvent is a structured record of an authentication or authorization decision.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events from the engine's background dispatcher.
type AuditSink = internalaudit.Sink

// NoOpSink drops every event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events into a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON object per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// LogrusSink writes events as structured log entries.
type LogrusSink = internalaudit.LogrusSink

// NewChannelSink returns a [ChannelSink] with the given buffer size.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogrusSink returns a [LogrusSink] writing to logger.
func NewLogrusSink(logger logrus.FieldLogger) *LogrusSink {
	return internalaudit.NewLogrusSink(logger)
}
