package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"property-features/models"
	"property-features/utils"
)

const kafkaBatchSize = 100

// MessageWriter defines the interface for a Kafka message writer.
// This allows for easy mocking in unit tests.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaWriter publishes one JSON message per feature row, keyed by listing ID
// so that all versions of a listing land on the same partition.
type KafkaWriter struct {
	writer MessageWriter
	retry  utils.RetryConfig
	logger *utils.Logger
}

// NewKafkaWriter creates a writer for topic on broker.
func NewKafkaWriter(broker, topic string, retry utils.RetryConfig, logger *utils.Logger) *KafkaWriter {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(broker),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
	}
	logger.Info("[kafka] Publishing to %s on %s", topic, broker)
	return NewKafkaWriterWith(w, retry, logger)
}

// NewKafkaWriterWith wraps an existing MessageWriter.
func NewKafkaWriterWith(w MessageWriter, retry utils.RetryConfig, logger *utils.Logger) *KafkaWriter {
	return &KafkaWriter{writer: w, retry: retry, logger: logger}
}

// Write publishes table in row order, in batches.
func (k *KafkaWriter) Write(ctx context.Context, runID uuid.UUID, table *models.FeatureTable) error {
	msgs := make([]kafka.Message, 0, len(table.Rows))
	for i, row := range table.Rows {
		value, err := json.Marshal(newFeatureMessage(runID, i, row))
		if err != nil {
			return fmt.Errorf("kafka: encode row %d: %w", i, err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(row.Listing.ID),
			Value: value,
			Headers: []kafka.Header{
				{Key: "run_id", Value: []byte(runID.String())},
			},
		})
	}

	for start := 0; start < len(msgs); start += kafkaBatchSize {
		batch := msgs[start:min(start+kafkaBatchSize, len(msgs))]
		err := k.retry.Do(ctx, "kafka publish", func(ctx context.Context) error {
			return k.writer.WriteMessages(ctx, batch...)
		})
		if err != nil {
			return fmt.Errorf("kafka: %w", err)
		}
	}

	k.logger.Info("[kafka] Published %d rows for run %s", len(msgs), runID)
	return nil
}

func (k *KafkaWriter) Close() error {
	return k.writer.Close()
}
