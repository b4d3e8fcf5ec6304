package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/wonny/supplycast/pkg/config"
)

// PublishedEvent announces that one execute reached status 50
type PublishedEvent struct {
	EventType       string    `json:"event_type"` // forecast.published
	ExecuteID       string    `json:"execute_id"`
	ExecutionID     string    `json:"execution_id"`
	ExecutionName   string    `json:"execution_name"`
	ExtSupplierCode int64     `json:"ext_supplier_code"`
	Rows            int       `json:"rows"`
	TotalUnits      float64   `json:"total_units"`
	Timestamp       time.Time `json:"timestamp"`
}

// Notifier emits pipeline events to downstream consumers
type Notifier interface {
	Published(ctx context.Context, event PublishedEvent) error
	Close() error
}

// messageWriter is the subset of *kafka.Writer used here
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaNotifier writes events to a Kafka topic
type KafkaNotifier struct {
	writer messageWriter
	log    zerolog.Logger
}

// New returns a KafkaNotifier, or a no-op notifier when no broker is configured
func New(cfg *config.Config, log zerolog.Logger) Notifier {
	if !cfg.Kafka.Enabled() {
		return Nop{}
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Kafka.Brokers...),
		Topic:                  cfg.Kafka.Topic,
		Balancer:               &kafka.LeastBytes{},
		BatchTimeout:           50 * time.Millisecond,
		RequiredAcks:           kafka.RequireOne,
		Compression:            kafka.Snappy,
		AllowAutoTopicCreation: true,
	}

	return newKafkaNotifier(writer, log)
}

func newKafkaNotifier(w messageWriter, log zerolog.Logger) *KafkaNotifier {
	return &KafkaNotifier{
		writer: w,
		log:    log.With().Str("component", "notify.kafka").Logger(),
	}
}

// Published emits a forecast.published event keyed by supplier code
func (n *KafkaNotifier) Published(ctx context.Context, event PublishedEvent) error {
	if event.EventType == "" {
		event.EventType = "forecast.published"
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal published event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(strconv.FormatInt(event.ExtSupplierCode, 10)),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.EventType)},
			{Key: "execute_id", Value: []byte(event.ExecuteID)},
		},
	}

	if err := n.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write published event: %w", err)
	}

	n.log.Debug().
		Str("execute_id", event.ExecuteID).
		Int("rows", event.Rows).
		Msg("published event emitted")
	return nil
}

// Close flushes and closes the writer
func (n *KafkaNotifier) Close() error {
	return n.writer.Close()
}

// Nop discards every event
type Nop struct{}

// Published implements Notifier
func (Nop) Published(context.Context, PublishedEvent) error { return nil }

// Close implements Notifier
func (Nop) Close() error { return nil }
