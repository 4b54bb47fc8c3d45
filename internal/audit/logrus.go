package audit

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogrusSink writes each event as a structured log entry.
// Failed decisions are logged at warn level, successful ones at info.
type LogrusSink struct {
	logger logrus.FieldLogger
}

// NewLogrusSink returns a sink writing to logger. A nil logger uses the
// logrus standard logger.
func NewLogrusSink(logger logrus.FieldLogger) *LogrusSink {
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &LogrusSink{logger: logger}
}

func (s *LogrusSink) Emit(_ context.Context, event Event) {
	if s == nil || s.logger == nil {
		return
	}

	fields := logrus.Fields{
		"event":   event.EventType,
		"success": event.Success,
	}
	if event.Username != "" {
		fields["username"] = event.Username
	}
	if event.UserID != 0 {
		fields["user_id"] = event.UserID
	}
	if event.TokenID != "" {
		fields["token_id"] = event.TokenID
	}
	if event.IP != "" {
		fields["ip"] = event.IP
	}
	if event.Error != "" {
		fields["error"] = event.Error
	}
	for k, v := range event.Metadata {
		fields["meta_"+k] = v
	}

	entry := s.logger.WithFields(fields).WithTime(event.Timestamp)
	if event.Success {
		entry.Info("audit")
		return
	}
	entry.Warn("audit")
}
