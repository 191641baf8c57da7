package events

import (
	"context"
	"encoding/json"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

type kafkaWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// KafkaPublisher writes one topic per event type, lazily creating writers.
type KafkaPublisher struct {
	brokers []string

	mu      sync.Mutex
	writers map[string]kafkaWriter

	newWriter func(topic string) kafkaWriter
}

func NewKafkaPublisher(brokers string) *KafkaPublisher {
	p := &KafkaPublisher{
		brokers: strings.Split(brokers, ","),
		writers: map[string]kafkaWriter{},
	}
	p.newWriter = func(topic string) kafkaWriter {
		return &kafka.Writer{
			Addr:         kafka.TCP(p.brokers...),
			Topic:        topic,
			RequiredAcks: kafka.RequireOne,
			Async:        false,
		}
	}
	return p
}

func (p *KafkaPublisher) Publish(topic string, key string, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		log.Printf("event marshal failed on %s: %v", topic, err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := p.writer(topic).WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: body,
	}); err != nil {
		log.Printf("event publish failed on %s: %v", topic, err)
	}
}

func (p *KafkaPublisher) writer(topic string) kafkaWriter {
	p.mu.Lock()
	defer p.mu.Unlock()
	if w, ok := p.writers[topic]; ok {
		return w
	}
	w := p.newWriter(topic)
	p.writers[topic] = w
	return w
}

func (p *KafkaPublisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for topic, w := range p.writers {
		if closer, ok := w.(*kafka.Writer); ok {
			if err := closer.Close(); err != nil {
				log.Printf("closing %s writer: %v", topic, err)
			}
		}
	}
	p.writers = map[string]kafkaWriter{}
}
