package event

import (
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/nats-io/nats.go"
)

// SubjectPrefix roots every published event subject.
const SubjectPrefix = "semgen.jobs"

// NATSSink forwards lifecycle events to NATS for external consumers
// (dashboards, audit trails). Publishing is fire-and-forget: a nil or
// disconnected client degrades to a no-op rather than failing a pass.
type NATSSink struct {
	nc     *nats.Conn
	logger *slog.Logger
}

func NewNATSSink(nc *nats.Conn, logger *slog.Logger) *NATSSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &NATSSink{nc: nc, logger: logger}
}

func (s *NATSSink) OnEvent(ev Event) {
	if s == nil || s.nc == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		s.logger.Error("failed to marshal event", "event_type", ev.Type, "error", err)
		return
	}
	subject := Subject(ev)
	if err := s.nc.Publish(subject, data); err != nil {
		s.logger.Warn("failed to publish event",
			"subject", subject,
			"event_type", ev.Type,
			"error", err)
	}
}

// Subject maps an event to its NATS subject:
// semgen.jobs.<pipeline>.<type> with ':' folded into the token
// hierarchy, e.g. semgen.jobs.docs.job.started.
func Subject(ev Event) string {
	kind := strings.ReplaceAll(string(ev.Type), ":", ".")
	return SubjectPrefix + "." + subjectToken(ev.Pipeline) + "." + kind
}

// subjectToken sanitizes a pipeline name into a single NATS token.
func subjectToken(name string) string {
	if name == "" {
		return "default"
	}
	var b strings.Builder
	for _, r := range name {
		switch r {
		case '.', ' ', '*', '>':
			b.WriteByte('-')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
