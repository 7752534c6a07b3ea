package outbox

import (
	"context"
	"log/slog"

	"github.com/segmentio/kafka-go"
)

type Producer interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Dispatcher publishes locked outbox records to the configured Kafka topic.
// Messages are keyed by aggregate ID so all events for one order land on the
// same partition, preserving their relative order for consumers.
type Dispatcher struct {
	log      *slog.Logger
	producer Producer
	topic    string
}

func NewDispatcher(log *slog.Logger, producer Producer, topic string) *Dispatcher {
	return &Dispatcher{log: log, producer: producer, topic: topic}
}

func (d *Dispatcher) Dispatch(ctx context.Context, rec Record) error {
	headers := []kafka.Header{
		{Key: "event_type", Value: []byte(rec.Type)},
	}
	if rec.Traceparent != "" {
		headers = append(headers, kafka.Header{Key: "traceparent", Value: []byte(rec.Traceparent)})
	}

	msg := kafka.Message{
		Topic:   d.topic,
		Key:     []byte(rec.AggregateID),
		Value:   rec.Payload,
		Headers: headers,
	}
	if err := d.producer.WriteMessages(ctx, msg); err != nil {
		d.log.Error("outbox dispatch failed", "record_id", rec.ID, "err", err)
		return err
	}
	d.log.Debug("outbox dispatched", "record_id", rec.ID, "type", rec.Type)
	return nil
}
