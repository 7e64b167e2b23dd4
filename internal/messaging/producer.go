package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

type Action string

const (
	ActionCreated Action = "created"
	ActionUpdated Action = "updated"
	ActionDeleted Action = "deleted"
)

// Event is published after a student mutation succeeds on the backend.
// ID lets consumers drop duplicates.
type Event struct {
	ID        string    `json:"id"`
	Action    Action    `json:"action"`
	StudentID int       `json:"student_id"`
	At        time.Time `json:"at"`
}

func NewEvent(action Action, studentID int) Event {
	return Event{
		ID:        uuid.NewString(),
		Action:    action,
		StudentID: studentID,
		At:        time.Now().UTC().Truncate(time.Second),
	}
}

type Producer struct {
	conn    *nats.Conn
	subject string
	logger  *slog.Logger
}

func NewProducer(url string, subject string, logger *slog.Logger) (*Producer, error) {
	nc, err := nats.Connect(url, nats.Name("student-console"))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	logger.Info("NATS producer initialized", "url", url, "subject", subject)

	return &Producer{
		conn:    nc,
		subject: subject,
		logger:  logger,
	}, nil
}

// Publish sends e on the producer's subject. A nil producer drops the event.
func (p *Producer) Publish(ctx context.Context, e Event) error {
	if p == nil {
		return nil
	}
	data, err := json.Marshal(e)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to marshal event", "error", err)
		return err
	}

	if err := p.conn.Publish(p.subject, data); err != nil {
		p.logger.ErrorContext(ctx, "failed to publish event to NATS", "error", err)
		return err
	}

	p.logger.DebugContext(ctx, "event published", "subject", p.subject, "action", e.Action, "student_id", e.StudentID)
	return nil
}

func (p *Producer) Close() error {
	if p == nil {
		return nil
	}
	return p.conn.Drain()
}
