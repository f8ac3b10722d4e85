package eventsvc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/educonnect/core/document"
)

type writerMock struct {
	msgs []kafka.Message
	err  error
	// blocks until ctx is done, like a writer retrying an unreachable broker
	unreachable bool
}

func (w *writerMock) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.unreachable {
		<-ctx.Done()
		return ctx.Err()
	}
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *writerMock) Close() error { return nil }

func TestKafkaPublisher_Publish(t *testing.T) {
	w := &writerMock{}
	p := &KafkaPublisher{w: w, topic: "educonnect.documents"}

	evt := document.Event{
		RequestID:   "r1",
		RequesterID: "u1",
		Type:        "Histórico Escolar",
		From:        document.StatusPending,
		To:          document.StatusReady,
		ActorID:     "a1",
		OccurredAt:  time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC),
	}
	require.NoError(t, p.Publish(context.Background(), evt))
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "educonnect.documents", msg.Topic)
	assert.Equal(t, []byte("r1"), msg.Key)
	assert.Equal(t, []kafka.Header{{Key: "event", Value: []byte("document_request.ready")}}, msg.Headers)

	var got document.Event
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, evt, got)
}

func TestKafkaPublisher_PublishError(t *testing.T) {
	p := &KafkaPublisher{w: &writerMock{err: errors.New("no brokers")}, topic: "t"}
	err := p.Publish(context.Background(), document.Event{RequestID: "r1", To: document.StatusPending})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no brokers")
}

func TestKafkaPublisher_PublishTimeout(t *testing.T) {
	p := &KafkaPublisher{w: &writerMock{unreachable: true}, topic: "t", timeout: 50 * time.Millisecond}

	start := time.Now()
	err := p.Publish(context.Background(), document.Event{RequestID: "r1", To: document.StatusReady})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.DeadlineExceeded), "err = %v", err)
	assert.Less(t, time.Since(start), time.Second)
}
