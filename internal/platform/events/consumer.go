package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Handler processes one message payload.
type Handler func(ctx context.Context, payload []byte) error

// NewConsumer dials the brokers for partition consumption.
func NewConsumer(brokers []string, logger *zap.Logger) (sarama.Consumer, error) {
	config := sarama.NewConfig()
	config.Consumer.Return.Errors = true
	config.Consumer.Retry.Backoff = time.Second

	consumer, err := sarama.NewConsumer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}
	logger.Info("kafka consumer initialized", zap.Strings("brokers", brokers))
	return consumer, nil
}

// Consume reads every partition of topic from the newest offset until ctx is
// cancelled, handing each message to h with up to maxAttempts tries. If a
// partition cannot be opened, the ones already started are stopped before
// the error is returned.
func Consume(ctx context.Context, consumer sarama.Consumer, topic string, maxAttempts int, h Handler, logger *zap.Logger) error {
	partitions, err := consumer.Partitions(topic)
	if err != nil {
		return fmt.Errorf("list partitions of %s: %w", topic, err)
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	for _, p := range partitions {
		pc, err := consumer.ConsumePartition(topic, p, sarama.OffsetNewest)
		if err != nil {
			cancel()
			wg.Wait()
			return fmt.Errorf("consume %s/%d: %w", topic, p, err)
		}
		wg.Add(1)
		go func(pc sarama.PartitionConsumer, partition int32) {
			defer wg.Done()
			defer pc.Close()
			logger.Info("kafka partition consumer started", zap.String("topic", topic), zap.Int32("partition", partition))
			for {
				select {
				case <-ctx.Done():
					return
				case msg, ok := <-pc.Messages():
					if !ok {
						return
					}
					if err := handleWithRetry(ctx, msg, maxAttempts, h, logger); err != nil {
						logger.Error("message dropped after retries",
							zap.String("topic", msg.Topic),
							zap.Int64("offset", msg.Offset),
							zap.Error(err),
						)
					}
				case err, ok := <-pc.Errors():
					if !ok {
						return
					}
					logger.Error("kafka consumer error", zap.Error(err))
				}
			}
		}(pc, p)
	}
	wg.Wait()
	return nil
}

func handleWithRetry(ctx context.Context, msg *sarama.ConsumerMessage, maxAttempts int, h Handler, logger *zap.Logger) error {
	carrier := consumerCarrier(msg.Headers)
	ctx = otel.GetTextMapPropagator().Extract(ctx, carrier)
	ctx, span := otel.Tracer("jisr-notifier").Start(ctx, "consume "+msg.Topic)
	defer span.End()

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if lastErr = h(ctx, msg.Value); lastErr == nil {
			return nil
		}
		if attempt == maxAttempts {
			break
		}
		backoff := time.Duration(attempt) * time.Second
		logger.Warn("retrying message",
			zap.Int("attempt", attempt),
			zap.Duration("backoff", backoff),
			zap.Error(lastErr),
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
	}
	span.RecordError(lastErr)
	return fmt.Errorf("failed after %d attempts: %w", maxAttempts, lastErr)
}

type consumerCarrier []*sarama.RecordHeader

func (c consumerCarrier) Get(key string) string {
	for _, h := range c {
		if string(h.Key) == key {
			return string(h.Value)
		}
	}
	return ""
}

func (c consumerCarrier) Set(string, string) {}

func (c consumerCarrier) Keys() []string {
	keys := make([]string, len(c))
	for i, h := range c {
		keys[i] = string(h.Key)
	}
	return keys
}
