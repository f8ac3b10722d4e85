// Package eventsvc publishes document request events.
package eventsvc

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"

	"github.com/trezcool/educonnect/core"
	"github.com/trezcool/educonnect/core/document"
)

// messageWriter is implemented by *kafka.Writer.
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes document request events to a Kafka topic, keyed by request ID.
// Publishing gives up after the configured timeout so that a down broker does not stall its callers.
type KafkaPublisher struct {
	w       messageWriter
	topic   string
	timeout time.Duration
}

var _ document.Publisher = (*KafkaPublisher)(nil)

func NewKafkaPublisher(conf core.KafkaConfig, logger core.Logger) *KafkaPublisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(conf.Brokers...),
		Balancer:               &kafka.Hash{}, // keep the events of a request ordered
		BatchTimeout:           10 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           conf.PublishTimeout,
		AllowAutoTopicCreation: true,
		ErrorLogger: kafka.LoggerFunc(func(format string, args ...interface{}) {
			logger.Error("kafka: " + fmt.Sprintf(format, args...))
		}),
	}
	return &KafkaPublisher{w: w, topic: conf.Topic, timeout: conf.PublishTimeout}
}

func (p *KafkaPublisher) Publish(ctx context.Context, evt document.Event) error {
	b, err := json.Marshal(evt)
	if err != nil {
		return errors.Wrap(err, "encoding event")
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}
	err = p.w.WriteMessages(ctx, kafka.Message{
		Topic: p.topic,
		Key:   []byte(evt.RequestID),
		Value: b,
		Headers: []kafka.Header{
			{Key: "event", Value: []byte("document_request." + string(evt.To))},
		},
		Time: evt.OccurredAt,
	})
	return errors.Wrap(err, "writing kafka message")
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

// NopPublisher drops the events. Used when no broker is configured.
type NopPublisher struct{}

var _ document.Publisher = NopPublisher{}

func (NopPublisher) Publish(context.Context, document.Event) error { return nil }
