package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"pmconsole/internal/config"
	"pmconsole/internal/logging"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
)

const kafkaWriteTimeout = 5 * time.Second

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// envelope is the record shape other services already consume: entity and
// action split from the event type, the booking id as resource.
type envelope struct {
	Entity     string            `json:"entity"`
	Action     string            `json:"action"`
	ResourceID string            `json:"resourceId,omitempty"`
	Topic      string            `json:"topic"`
	Metadata   map[string]string `json:"metadata"`
	Data       json.RawMessage   `json:"data"`
}

// KafkaPublisher forwards bus events to a Kafka topic.
type KafkaPublisher struct {
	writer messageWriter
	logger *zerolog.Logger
}

func NewKafkaPublisher(cfg config.KafkaConfig, logger *zerolog.Logger) *KafkaPublisher {
	return newKafkaPublisher(&kafka.Writer{
		Addr:         kafka.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		BatchTimeout: 50 * time.Millisecond,
	}, logger)
}

func newKafkaPublisher(w messageWriter, logger *zerolog.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: w, logger: logging.Component(logger, "kafka")}
}

// Attach subscribes the publisher to the given event types.
func (p *KafkaPublisher) Attach(bus *EventBus, eventTypes ...string) {
	for _, t := range eventTypes {
		bus.Subscribe(t, p.Handle)
	}
}

// Handle writes one event. Records are keyed by owner so one owner's events
// stay ordered within a partition.
func (p *KafkaPublisher) Handle(event *Event) error {
	msg, err := toMessage(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), kafkaWriteTimeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Warn().Err(err).Str("event_type", event.Type).Str("event_id", event.ID).Msg("kafka publish failed")
		return fmt.Errorf("publish %s: %w", event.Type, err)
	}
	p.logger.Debug().Str("event_type", event.Type).Str("event_id", event.ID).Msg("event published")
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

func toMessage(event *Event) (kafka.Message, error) {
	entity, action := splitType(event.Type)
	env := envelope{
		Entity:     entity,
		Action:     action,
		ResourceID: resourceID(event),
		Topic:      entity + "." + action,
		Metadata: map[string]string{
			"eventId": event.ID,
			"owner":   event.Owner,
		},
		Data: json.RawMessage(event.Payload),
	}
	if len(env.Data) == 0 {
		env.Data = json.RawMessage("null")
	}

	value, err := json.Marshal(env)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("encode %s: %w", event.Type, err)
	}
	return kafka.Message{
		Key:   []byte(event.Owner),
		Value: value,
		Time:  event.CreatedAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(event.Type)},
		},
	}, nil
}

// splitType turns "booking_created" into ("booking", "created").
func splitType(eventType string) (string, string) {
	if idx := strings.LastIndex(eventType, "_"); idx > 0 {
		return eventType[:idx], eventType[idx+1:]
	}
	return eventType, "unknown"
}

func resourceID(event *Event) string {
	var probe struct {
		BookingID string `json:"bookingId"`
		Booking   struct {
			BookingID string `json:"bookingId"`
		} `json:"booking"`
	}
	if err := json.Unmarshal(event.Payload, &probe); err != nil {
		return ""
	}
	if probe.BookingID != "" {
		return probe.BookingID
	}
	return probe.Booking.BookingID
}
