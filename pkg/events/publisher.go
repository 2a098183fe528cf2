package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/from2future/poker-tracker/pkg/metrics"
)

// Publisher announces change events to whoever listens
type Publisher interface {
	Publish(ctx context.Context, e ChangeEvent) error
	Close() error
}

// KafkaPublisher writes events to a Kafka topic
type KafkaPublisher struct {
	writer *kafka.Writer
}

// Config holds Kafka connection settings
type Config struct {
	Brokers []string
	Topic   string
	GroupID string
}

const (
	writeTimeout     = 2 * time.Second
	writeMaxAttempts = 3
)

// NewKafkaPublisher creates a publisher. Writes are synchronous so the
// caller learns about delivery failures right away. Each event is its own
// batch and a write gives up after a few bounded attempts.
func NewKafkaPublisher(cfg Config) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			BatchSize:              1,
			BatchTimeout:           10 * time.Millisecond,
			WriteTimeout:           writeTimeout,
			MaxAttempts:            writeMaxAttempts,
			AllowAutoTopicCreation: true,
		},
	}
}

// Publish encodes and writes one event
func (p *KafkaPublisher) Publish(ctx context.Context, e ChangeEvent) error {
	value, err := Encode(e)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}
	if err := p.writer.WriteMessages(ctx, kafka.Message{Key: e.Key(), Value: value}); err != nil {
		metrics.EventPublishErrorsTotal.Inc()
		return fmt.Errorf("failed to publish %s: %w", e.Kind, err)
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(e.Kind)).Inc()
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Nop drops every event. Used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, e ChangeEvent) error { return nil }
func (Nop) Close() error                                     { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	Events []ChangeEvent
}

func (r *Recorder) Publish(ctx context.Context, e ChangeEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Events = append(r.Events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Kinds lists the kinds of the recorded events in order
func (r *Recorder) Kinds() []Kind {
	r.mu.Lock()
	defer r.mu.Unlock()
	kinds := make([]Kind, len(r.Events))
	for i, e := range r.Events {
		kinds[i] = e.Kind
	}
	return kinds
}
