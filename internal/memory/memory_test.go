package memory

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChannel struct {
	exchange, key string
	msgs          []amqp.Publishing
	err           error
	closed        bool
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.exchange, f.key = exchange, key
	f.msgs = append(f.msgs, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestAMQPSinkPublishesPersistentJSON(t *testing.T) {
	ch := &fakeChannel{}
	s := &AMQPSink{ch: ch, exchange: "ex.leads", routingKey: "lead.memory"}

	err := s.AddLeadMemory(context.Background(), Entry{LeadID: "l1", Email: "jane@example.com", Content: "hi"})
	require.NoError(t, err)

	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "ex.leads", ch.exchange)
	assert.Equal(t, "lead.memory", ch.key)
	assert.Equal(t, amqp.Persistent, ch.msgs[0].DeliveryMode)
	assert.Equal(t, "application/json", ch.msgs[0].ContentType)

	var got Entry
	require.NoError(t, json.Unmarshal(ch.msgs[0].Body, &got))
	assert.Equal(t, "l1", got.LeadID)
	assert.False(t, got.OccurredAt.IsZero())

	assert.NoError(t, s.Close())
	assert.True(t, ch.closed)
}

func TestAMQPSinkWrapsPublishError(t *testing.T) {
	boom := errors.New("channel closed")
	s := &AMQPSink{ch: &fakeChannel{err: boom}}

	err := s.AddLeadMemory(context.Background(), Entry{LeadID: "l1"})
	assert.ErrorIs(t, err, boom)
}

func TestNoop(t *testing.T) {
	var s Sink = Noop{}
	assert.NoError(t, s.AddLeadMemory(context.Background(), Entry{}))
	assert.NoError(t, s.Close())
}
