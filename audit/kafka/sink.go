// Package kafka streams goGate audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	goGate "github.com/MrEthical07/goGate"
	"go.uber.org/zap"
)

// Config holds the producer settings for [NewSink].
type Config struct {
	Brokers []string
	Topic   string
	// ClientID defaults to "gogate-audit".
	ClientID string
}

// Sink is a goGate.AuditSink that publishes one JSON message per event, keyed
// by user id so a user's events stay ordered within a partition.
type Sink struct {
	producer sarama.AsyncProducer
	topic    string
	logger   *zap.Logger

	failed atomic.Uint64
	done   chan struct{}
	wg     sync.WaitGroup
	once   sync.Once
}

var _ goGate.AuditSink = (*Sink)(nil)

// NewSink connects an async producer to cfg.Brokers.
func NewSink(cfg Config, logger *zap.Logger) (*Sink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka audit sink: no brokers")
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka audit sink: empty topic")
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.ClientID = cfg.ClientID
	if saramaConfig.ClientID == "" {
		saramaConfig.ClientID = "gogate-audit"
	}
	saramaConfig.Producer.RequiredAcks = sarama.WaitForLocal
	saramaConfig.Producer.Compression = sarama.CompressionSnappy
	saramaConfig.Producer.Flush.Frequency = 100 * time.Millisecond
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Return.Successes = false
	saramaConfig.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("create kafka producer: %w", err)
	}
	return NewSinkFromProducer(producer, cfg.Topic, logger), nil
}

// NewSinkFromProducer wraps an existing producer. The producer must have
// Return.Errors enabled.
func NewSinkFromProducer(producer sarama.AsyncProducer, topic string, logger *zap.Logger) *Sink {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Sink{
		producer: producer,
		topic:    topic,
		logger:   logger,
		done:     make(chan struct{}),
	}
	s.wg.Add(1)
	go s.handleErrors()
	return s
}

func (s *Sink) handleErrors() {
	defer s.wg.Done()
	for {
		select {
		case perr, ok := <-s.producer.Errors():
			if !ok {
				return
			}
			if perr == nil {
				continue
			}
			s.failed.Add(1)
			s.logger.Error("audit publish failed",
				zap.Error(perr.Err),
				zap.String("topic", perr.Msg.Topic),
			)
		case <-s.done:
			return
		}
	}
}

// Emit enqueues event. It blocks only while the producer input is full and ctx
// is live.
func (s *Sink) Emit(ctx context.Context, event goGate.AuditEvent) {
	payload, err := json.Marshal(event)
	if err != nil {
		s.failed.Add(1)
		s.logger.Error("audit encode failed", zap.Error(err), zap.String("event_type", event.EventType))
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(event.EventType)},
		},
	}
	if event.UserID != "" {
		msg.Key = sarama.StringEncoder(event.UserID)
	}

	select {
	case s.producer.Input() <- msg:
	case <-ctx.Done():
		s.failed.Add(1)
	case <-s.done:
		s.failed.Add(1)
	}
}

// Failed reports events that could not be published.
func (s *Sink) Failed() uint64 {
	return s.failed.Load()
}

// Close flushes pending messages and closes the producer.
func (s *Sink) Close() error {
	var err error
	s.once.Do(func() {
		if cerr := s.producer.Close(); cerr != nil {
			err = fmt.Errorf("close kafka producer: %w", cerr)
		}
		close(s.done)
		s.wg.Wait()
	})
	return err
}
