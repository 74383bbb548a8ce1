package sink

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// subjectPrefix namespaces every published subject.
const subjectPrefix = "splitsignal"

// NATS publishes events to a NATS broker.
type NATS struct {
	conn   *nats.Conn
	logger *zap.Logger
}

// NewNATS builds a NATS sink over an established connection.
func NewNATS(conn *nats.Conn, logger *zap.Logger) (*NATS, error) {
	if conn == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATS{conn: conn, logger: logger}, nil
}

// Publish sends the event as JSON on "splitsignal.<event type>". Failures
// are logged and swallowed.
func (n *NATS) Publish(_ context.Context, event Event) {
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("encode event", zap.String("type", event.Type), zap.Error(err))
		return
	}
	subject := fmt.Sprintf("%s.%s", subjectPrefix, event.Type)
	if err := n.conn.Publish(subject, payload); err != nil {
		n.logger.Warn("publish event",
			zap.String("subject", subject),
			zap.String("experiment_id", event.ExperimentID),
			zap.Error(err))
	}
}
