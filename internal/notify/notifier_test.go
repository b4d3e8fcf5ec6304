package notify

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wonny/supplycast/pkg/config"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestNew_NoBrokersIsNop(t *testing.T) {
	n := New(&config.Config{}, zerolog.Nop())
	_, ok := n.(Nop)
	assert.True(t, ok)
	assert.NoError(t, n.Published(context.Background(), PublishedEvent{}))
}

func TestKafkaNotifier_Published(t *testing.T) {
	w := &fakeWriter{}
	n := newKafkaNotifier(w, zerolog.Nop())

	err := n.Published(context.Background(), PublishedEvent{
		ExecuteID:       "exec-1",
		ExtSupplierCode: 1234,
		Rows:            42,
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "1234", string(msg.Key))

	var got PublishedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "forecast.published", got.EventType)
	assert.Equal(t, 42, got.Rows)
	assert.False(t, got.Timestamp.IsZero())

	require.NoError(t, n.Close())
	assert.True(t, w.closed)
}

func TestKafkaNotifier_WriteError(t *testing.T) {
	n := newKafkaNotifier(&fakeWriter{err: errors.New("broker down")}, zerolog.Nop())
	err := n.Published(context.Background(), PublishedEvent{ExecuteID: "x"})
	assert.ErrorContains(t, err, "broker down")
}
