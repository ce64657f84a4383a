package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

const defaultConsumerGroup = "portal-user-settings"

// KafkaConfig holds configuration for the Kafka broker.
type KafkaConfig struct {
	Brokers       []string
	ConsumerGroup string
}

// KafkaBroker implements MessageBroker on Apache Kafka. Every subscription
// joins its own consumer group (ConsumerGroup-<subscription id>) starting at
// the newest offset, so each replica sees every change made after it
// subscribed.
type KafkaBroker struct {
	config  KafkaConfig
	writer  *kafka.Writer
	mu      sync.Mutex
	readers map[string]*kafkaSubscription
	closed  bool
	ctx     context.Context
	cancel  context.CancelFunc
}

type kafkaSubscription struct {
	id      string
	reader  *kafka.Reader
	handler EventHandler
	cancel  context.CancelFunc
}

// NewKafkaBroker creates a KafkaBroker with a shared producer. Consumers are
// created per subscription.
func NewKafkaBroker(config KafkaConfig) (*KafkaBroker, error) {
	if len(config.Brokers) == 0 {
		return nil, fmt.Errorf("at least one Kafka broker address is required")
	}
	if config.ConsumerGroup == "" {
		config.ConsumerGroup = defaultConsumerGroup
	}

	ctx, cancel := context.WithCancel(context.Background())

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(config.Brokers...),
		Balancer:               &kafka.Hash{},
		BatchTimeout:           10 * time.Millisecond,
		AllowAutoTopicCreation: true,
	}

	return &KafkaBroker{
		config:  config,
		writer:  writer,
		readers: make(map[string]*kafkaSubscription),
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// Publish writes the JSON encoded event keyed by user and bucket, so changes
// of one bucket stay ordered within a partition.
func (b *KafkaBroker) Publish(topic string, event Event) error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return ErrClosed
	}
	b.mu.Unlock()

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(event.UserEntityRef + "/" + event.Bucket),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event-id", Value: []byte(event.ID)},
			{Key: "origin", Value: []byte(event.Origin)},
		},
	}

	if err := b.writer.WriteMessages(b.ctx, msg); err != nil {
		return fmt.Errorf("write to kafka: %w", err)
	}
	return nil
}

func (b *KafkaBroker) Subscribe(topic string, handler EventHandler) (string, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return "", ErrClosed
	}

	id := uuid.New().String()

	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:     b.config.Brokers,
		Topic:       topic,
		GroupID:     b.config.ConsumerGroup + "-" + id,
		StartOffset: kafka.LastOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
		MaxWait:     500 * time.Millisecond,
	})

	subCtx, subCancel := context.WithCancel(b.ctx)
	sub := &kafkaSubscription{
		id:      id,
		reader:  reader,
		handler: handler,
		cancel:  subCancel,
	}
	b.readers[id] = sub

	go b.consumeLoop(subCtx, sub)

	return id, nil
}

func (b *KafkaBroker) Unsubscribe(id string) error {
	b.mu.Lock()
	sub, ok := b.readers[id]
	delete(b.readers, id)
	b.mu.Unlock()

	if !ok {
		return nil
	}
	sub.cancel()
	return sub.reader.Close()
}

// Close shuts down all consumers and the producer.
func (b *KafkaBroker) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}

	b.closed = true
	b.cancel()

	var firstErr error
	for _, sub := range b.readers {
		sub.cancel()
		if err := sub.reader.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if err := b.writer.Close(); err != nil && firstErr == nil {
		firstErr = err
	}

	return firstErr
}

func (b *KafkaBroker) consumeLoop(ctx context.Context, sub *kafkaSubscription) {
	for {
		msg, err := sub.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Printf("events: kafka consumer %s error: %v", sub.id, err)
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}

		var event Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("events: kafka consumer %s: unmarshal error: %v", sub.id, err)
			continue
		}

		sub.handler(event)
	}
}
