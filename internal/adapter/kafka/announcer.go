// Package kafka publishes dataset completion announcements so downstream
// consumers can refresh as soon as a new dataset lands.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/wmarcoyu/starchasers-dataserver/internal/config"
	"github.com/wmarcoyu/starchasers-dataserver/internal/domain"
)

// Announcer produces dataset completion messages to a Kafka topic.
// It implements acquire.Announcer.
type Announcer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewAnnouncer creates a Kafka producer for the configured completions topic.
func NewAnnouncer(cfg *config.Config, logger *slog.Logger) *Announcer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaTopic,
		Balancer:     &kafkago.LeastBytes{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Announcer{writer: w, logger: logger}
}

// Announce serializes and publishes one dataset completion.
func (a *Announcer) Announce(ctx context.Context, c domain.DatasetCompletion) error {
	msg, err := serializeToMessage(c)
	if err != nil {
		return err
	}
	if err := a.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish completion %s/%s: %w", c.Kind, c.Timestamp, err)
	}
	a.logger.Info("dataset completion announced", "kind", c.Kind, "timestamp", c.Timestamp)
	return nil
}

func (a *Announcer) Close() error {
	return a.writer.Close()
}

// serializeToMessage marshals a completion into a Kafka message. Keying by
// kind and timestamp makes re-announcements of the same dataset compact away.
func serializeToMessage(c domain.DatasetCompletion) (kafkago.Message, error) {
	data, err := json.Marshal(c)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize completion: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(fmt.Sprintf("%s-%s", c.Kind, c.Timestamp)),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "kind", Value: []byte(c.Kind)},
			{Key: "completed_at", Value: []byte(c.CompletedAt.Format(time.RFC3339))},
		},
	}, nil
}
