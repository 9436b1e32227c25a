// Package events publishes domain events to Kafka and consumes them in the
// background workers.
package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Publisher sends an event to a topic. key selects the partition.
type Publisher interface {
	Publish(ctx context.Context, topic, key string, event any) error
}

// NewSyncProducer dials the brokers with acks from all in-sync replicas.
func NewSyncProducer(brokers []string, logger *zap.Logger) (sarama.SyncProducer, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	logger.Info("kafka producer initialized", zap.Strings("brokers", brokers))
	return producer, nil
}

// Kafka publishes JSON events through a sarama SyncProducer.
type Kafka struct {
	producer sarama.SyncProducer
	logger   *zap.Logger
}

func NewKafka(producer sarama.SyncProducer, logger *zap.Logger) *Kafka {
	return &Kafka{producer: producer, logger: logger}
}

func (k *Kafka) Publish(ctx context.Context, topic, key string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	carrier := make(headerCarrier, 0)
	otel.GetTextMapPropagator().Inject(ctx, &carrier)

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Key:     sarama.StringEncoder(key),
		Value:   sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader(carrier),
	}
	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("send to %s: %w", topic, err)
	}

	k.logger.Debug("event published",
		zap.String("trace_id", TraceID(ctx)),
		zap.String("topic", topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (k *Kafka) Close() error { return k.producer.Close() }

// LogPublisher only logs events. It stands in for Kafka in local development.
type LogPublisher struct{ Logger *zap.Logger }

func (p LogPublisher) Publish(_ context.Context, topic, key string, event any) error {
	p.Logger.Info("event (kafka disabled)", zap.String("topic", topic), zap.String("key", key), zap.Any("event", event))
	return nil
}

// TraceID returns the current span's trace id, or "" outside a span.
func TraceID(ctx context.Context) string {
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return ""
	}
	return sc.TraceID().String()
}

// headerCarrier adapts producer record headers to otel's TextMapCarrier.
type headerCarrier []sarama.RecordHeader

func (c headerCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c *headerCarrier) Set(key, value string) {
	*c = append(*c, sarama.RecordHeader{Key: []byte(key), Value: []byte(value)})
}

func (c headerCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
