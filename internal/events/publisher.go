package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/orlevy/shortly-bot/internal/infrastructure/logger"
	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// ClickPublisher writes ClickRecorded events to Kafka. A nil publisher is
// valid and drops events, so callers never need to branch on whether the
// pipeline is configured.
type ClickPublisher struct {
	writer       *kafka.Writer
	writeTimeout time.Duration
}

func NewClickPublisher(brokers []string, topic string, writeTimeout time.Duration) *ClickPublisher {
	if len(brokers) == 0 {
		return nil
	}
	if writeTimeout <= 0 {
		writeTimeout = 5 * time.Second
	}

	return &ClickPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.LeastBytes{},
			BatchTimeout:           10 * time.Millisecond,
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		writeTimeout: writeTimeout,
	}
}

// PublishClick emits the event keyed by short code. Failures are logged and
// swallowed; the redirect path must never depend on the broker.
func (p *ClickPublisher) PublishClick(ctx context.Context, shortCode string, occurredAt time.Time) {
	if p == nil {
		return
	}

	event := ClickRecorded{
		EventID:    uuid.NewString(),
		ShortCode:  shortCode,
		OccurredAt: occurredAt.UTC().Format(time.RFC3339Nano),
	}

	value, err := json.Marshal(event)
	if err != nil {
		logger.Error("failed to marshal click event", zap.Error(err), zap.String("short_code", shortCode))
		return
	}

	tracer := otel.Tracer("click-publisher")
	producerCtx, span := tracer.Start(
		ctx,
		"kafka.publish.click_recorded",
		trace.WithSpanKind(trace.SpanKindProducer),
		trace.WithAttributes(
			attribute.String("messaging.system", "kafka"),
			attribute.String("messaging.destination.name", p.writer.Topic),
			attribute.String("messaging.operation", "publish"),
			attribute.String("messaging.message.id", event.EventID),
			attribute.String("messaging.kafka.message_key", shortCode),
		),
	)
	defer span.End()

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(producerCtx, carrier)

	writeCtx, cancel := context.WithTimeout(producerCtx, p.writeTimeout)
	defer cancel()

	err = p.writer.WriteMessages(writeCtx, kafka.Message{
		Key:     []byte(shortCode),
		Value:   value,
		Time:    occurredAt.UTC(),
		Headers: carrierHeaders(carrier),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "kafka publish failed")
		logger.Warn("failed to publish click event",
			zap.Error(err),
			zap.String("event_id", event.EventID),
			zap.String("short_code", shortCode),
		)
	}
}

// Close flushes and closes the underlying writer.
func (p *ClickPublisher) Close() error {
	if p == nil {
		return nil
	}
	return p.writer.Close()
}

func carrierHeaders(carrier propagation.MapCarrier) []kafka.Header {
	headers := make([]kafka.Header, 0, len(carrier))
	for key, value := range carrier {
		if value == "" {
			continue
		}
		headers = append(headers, kafka.Header{Key: key, Value: []byte(value)})
	}
	return headers
}
