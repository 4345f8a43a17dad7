package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher produces JSON events keyed by scenario id, so events of one
// scenario stay ordered within a partition.
type KafkaPublisher struct {
	writer       messageWriter
	maxAttempts  int
	writeTimeout time.Duration
	sleep        func(time.Duration)
}

func NewKafkaPublisher(settings Settings) (*KafkaPublisher, error) {
	if len(settings.Brokers) == 0 {
		return nil, fmt.Errorf("kafka: at least one broker required")
	}
	if settings.Topic == "" {
		return nil, fmt.Errorf("kafka: topic required")
	}
	if settings.MaxAttempts <= 0 {
		settings.MaxAttempts = 3
	}
	if settings.WriteTimeout == 0 {
		settings.WriteTimeout = 10 * time.Second
	}

	w := kafka.NewWriter(kafka.WriterConfig{
		Brokers:      settings.Brokers,
		Topic:        settings.Topic,
		Balancer:     &kafka.Hash{},
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: settings.WriteTimeout,
	})
	return newKafkaPublisher(w, settings), nil
}

func newKafkaPublisher(w messageWriter, settings Settings) *KafkaPublisher {
	return &KafkaPublisher{
		writer:       w,
		maxAttempts:  max(settings.MaxAttempts, 1),
		writeTimeout: settings.WriteTimeout,
		sleep:        time.Sleep,
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	if ev.OccurredAt.IsZero() {
		ev.OccurredAt = time.Now().UTC()
	}
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(ev.ScenarioID),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(ev.Type)},
		},
	}

	var lastErr error
	backoff := 100 * time.Millisecond
	for attempt := 1; attempt <= p.maxAttempts; attempt++ {
		attemptCtx, cancel := context.WithTimeout(ctx, p.writeTimeout)
		err := p.writer.WriteMessages(attemptCtx, msg)
		cancel()
		if err == nil {
			return nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == p.maxAttempts {
			break
		}

		p.sleep(backoff)
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
	return fmt.Errorf("publish %s for %s failed after retries: %w", ev.Type, ev.ScenarioID, lastErr)
}

func (p *KafkaPublisher) Close() error {
	if p == nil || p.writer == nil {
		return nil
	}
	return p.writer.Close()
}
