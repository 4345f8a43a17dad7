package events

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

const (
	ScenarioCreated     = "scenario.created"
	ScenarioEvaluated   = "scenario.evaluated"
	ScenarioDeleted     = "scenario.deleted"
	PostMortemCompleted = "postmortem.completed"
)

// Event is a notification about a change in the scenario pipeline. Payload
// must be JSON serializable.
type Event struct {
	Type       string    `json:"type"`
	ScenarioID string    `json:"scenario_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload,omitempty"`
}

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type Settings struct {
	Brokers      []string
	Topic        string
	MaxAttempts  int
	WriteTimeout time.Duration
}

// NewPublisher returns a Kafka publisher when brokers are configured and a
// log-only publisher otherwise.
func NewPublisher(settings Settings) (Publisher, error) {
	if len(settings.Brokers) == 0 {
		return &LogPublisher{}, nil
	}
	return NewKafkaPublisher(settings)
}

// LogPublisher writes events to the context logger.
type LogPublisher struct{}

func (p *LogPublisher) Publish(ctx context.Context, ev Event) error {
	zerolog.Ctx(ctx).Info().
		Str("event", ev.Type).
		Str("scenario_id", ev.ScenarioID).
		Time("occurred_at", ev.OccurredAt).
		Msg("pipeline event")
	return nil
}

func (p *LogPublisher) Close() error {
	return nil
}
