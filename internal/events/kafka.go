package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/segmentio/kafka-go"
	"go.uber.org/multierr"
)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher lazily manages one writer per event type topic. Topics are named
// <prefix>.<event type>, e.g. dailyfit.training_finished.
type KafkaPublisher struct {
	topicPrefix string
	newWriter   func(topic string) messageWriter
	mutex       sync.Mutex
	writers     map[string]messageWriter
}

func NewKafkaPublisher(brokers []string, topicPrefix string) *KafkaPublisher {
	return newKafkaPublisher(topicPrefix, func(topic string) messageWriter {
		return &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			Compression:            kafka.Snappy,
			AllowAutoTopicCreation: true,
		}
	})
}

func newKafkaPublisher(topicPrefix string, newWriter func(topic string) messageWriter) *KafkaPublisher {
	return &KafkaPublisher{
		topicPrefix: topicPrefix,
		newWriter:   newWriter,
		writers:     make(map[string]messageWriter),
	}
}

func (p *KafkaPublisher) Topic(t EventType) string {
	return p.topicPrefix + "." + t.String()
}

// Publish writes the event keyed by user id, so events of one user keep their order.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	writer := p.writerForTopic(p.Topic(event.Type))
	return writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.UserID.String()),
		Value: payload,
		Time:  event.Timestamp,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	})
}

func (p *KafkaPublisher) writerForTopic(topic string) messageWriter {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if writer, ok := p.writers[topic]; ok {
		return writer
	}

	writer := p.newWriter(topic)
	p.writers[topic] = writer
	return writer
}

// Close releases all writers.
func (p *KafkaPublisher) Close() error {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	var err error
	for topic, writer := range p.writers {
		err = multierr.Append(err, writer.Close())
		delete(p.writers, topic)
	}
	return err
}
