package events

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
)

// ErrProducerClosed is returned by Publish after Close.
var ErrProducerClosed = errors.New("event producer closed")

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaProducer buffers messages in an inbox drained by one goroutine, so
// request handlers never wait on the broker.
type KafkaProducer struct {
	w       messageWriter
	log     *slog.Logger
	inbox   chan kafka.Message
	done    chan struct{}
	mu      sync.RWMutex
	closed  bool
	timeout time.Duration
}

func NewKafkaProducer(brokers []string, buf int, log *slog.Logger) *KafkaProducer {
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		BatchTimeout: 50 * time.Millisecond,
	}
	return newKafkaProducer(w, buf, log)
}

func newKafkaProducer(w messageWriter, buf int, log *slog.Logger) *KafkaProducer {
	if buf <= 0 {
		buf = 1
	}
	p := &KafkaProducer{
		w:       w,
		log:     log,
		inbox:   make(chan kafka.Message, buf),
		done:    make(chan struct{}),
		timeout: 5 * time.Second,
	}
	go p.loop()
	return p
}

func (p *KafkaProducer) loop() {
	defer close(p.done)
	for m := range p.inbox {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		if err := p.w.WriteMessages(ctx, m); err != nil {
			p.log.Error("publish event failed", "topic", m.Topic, "key", string(m.Key), "error", err)
		}
		cancel()
	}
	if err := p.w.Close(); err != nil {
		p.log.Error("close kafka writer", "error", err)
	}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, key string, ev Envelope) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  ev.OccurredAt,
		Headers: []kafka.Header{
			{Key: "x-event-type", Value: []byte(ev.EventType)},
			{Key: "x-event-version", Value: []byte("1")},
		},
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrProducerClosed
	}
	select {
	case p.inbox <- msg:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close stops accepting events, flushes the inbox and waits for the writer.
func (p *KafkaProducer) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		<-p.done
		return nil
	}
	p.closed = true
	close(p.inbox)
	p.mu.Unlock()
	<-p.done
	return nil
}
