package events

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// Message is a change event read from Kafka with its offset
type Message struct {
	Value  []byte
	Offset int64
	raw    kafka.Message
}

// Consumer reads change events
type Consumer interface {
	// Consume streams messages until ctx is done or fetching fails
	Consume(ctx context.Context) (<-chan Message, <-chan error)
	Commit(ctx context.Context, msg Message) error
	Close() error
}

// KafkaConsumer reads change events as part of a consumer group
type KafkaConsumer struct {
	reader *kafka.Reader
}

// NewKafkaConsumer creates a consumer for the configured topic and group
func NewKafkaConsumer(cfg Config) *KafkaConsumer {
	return &KafkaConsumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:  cfg.Brokers,
			Topic:    cfg.Topic,
			GroupID:  cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 1e6,
		}),
	}
}

func (c *KafkaConsumer) Consume(ctx context.Context) (<-chan Message, <-chan error) {
	msgChan := make(chan Message)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)

		for {
			m, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return
				}
				errChan <- fmt.Errorf("failed to fetch message: %w", err)
				return
			}

			select {
			case msgChan <- Message{Value: m.Value, Offset: m.Offset, raw: m}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgChan, errChan
}

func (c *KafkaConsumer) Commit(ctx context.Context, msg Message) error {
	return c.reader.CommitMessages(ctx, msg.raw)
}

func (c *KafkaConsumer) Close() error {
	return c.reader.Close()
}
