package kafka

import (
	"context"
	"errors"
	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
	"sync"
	"time"
)

var (
	// ErrClosed is returned by Publish once Close has been called.
	ErrClosed = errors.New("kafka producer closed")
	// ErrBufferFull means the inbox is full and the message was dropped.
	ErrBufferFull = errors.New("kafka producer buffer full")
)

// Producer buffers messages in an inbox and writes them from one goroutine.
// The topic travels on each message, so one Producer serves every topic.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
}

func NewProducer(brokers []string, buf int) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireAll,
			AllowAutoTopicCreation: true,
			BatchTimeout:           10 * time.Millisecond,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
	}
}

// Start runs the write loop until Close is called; pending messages are
// flushed before the writer closes.
func (p *Producer) Start() {
	go func() {
		defer close(p.closeCh)
		for m := range p.inbox {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			if err := p.w.WriteMessages(ctx, m); err != nil {
				log.WithError(err).WithField("topic", m.Topic).Error("kafka write failed")
			}
			cancel()
		}
		if err := p.w.Close(); err != nil {
			log.WithError(err).Warn("kafka writer close")
		}
	}()
}

// Publish enqueues a message without waiting for room: a full inbox drops
// the message with ErrBufferFull. After Close it returns ErrClosed.
func (p *Producer) Publish(ctx context.Context, topic string, key, value []byte, headers ...kafka.Header) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m := kafka.Message{
		Topic:   topic,
		Key:     key,
		Value:   value,
		Time:    time.Now(),
		Headers: headers,
	}

	// the read lock keeps Close from closing the inbox mid-send
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrClosed
	}
	select {
	case p.inbox <- m:
		return nil
	default:
		return ErrBufferFull
	}
}

// Close stops accepting messages; the loop flushes the rest and exits.
// It is safe to call more than once and concurrently with Publish.
func (p *Producer) Close() {
	p.closeOnce.Do(func() {
		p.mu.Lock()
		defer p.mu.Unlock()
		p.closed = true
		close(p.inbox)
	})
}

// WaitClosed blocks until the loop has flushed and closed the writer.
func (p *Producer) WaitClosed() { <-p.closeCh }
