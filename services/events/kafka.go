// Package eventsvc publishes domain events to Kafka.
package eventsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/rotinas-pei/backend/core"
	"github.com/rotinas-pei/backend/core/performance"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher publishes performance records, keyed by student.
type KafkaPublisher struct {
	writer messageWriter
}

var _ performance.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(conf core.KafkaConfig) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(conf.Brokers...),
			Topic:        conf.RecordsTopic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			WriteTimeout: 5 * time.Second,
		},
	}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt performance.Event) error {
	value, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	msg := kafka.Message{
		Key:   []byte(evt.StudentID),
		Value: value,
		Time:  evt.CompletedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(performance.EventType)},
		},
	}
	return errors.Wrap(p.writer.WriteMessages(ctx, msg), "writing message")
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
