package pub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

const LedgerEventsChannel = "loyalty_ledger_events"

// Event types emitted by the ledger workflows.
const (
	EventWorkflowReceived    = "workflow.received"
	EventTransferCompleted   = "transfer.completed"
	EventWorkflowCommitted   = "workflow.committed"
	EventWorkflowFailed      = "workflow.failed"
	EventRefundTargetMissing = "refund.target_missing"
)

type LedgerEvent struct {
	EventType             string    `json:"event_type"`
	Workflow              string    `json:"workflow"`
	ExternalTransactionID string    `json:"external_transaction_id,omitempty"`
	TransactionID         string    `json:"transaction_id,omitempty"`
	CreditAccountID       string    `json:"credit_account_id,omitempty"`
	DebitAccountID        string    `json:"debit_account_id,omitempty"`
	Amount                int64     `json:"amount,omitempty"`
	Currency              string    `json:"currency,omitempty"`
	ErrorMessage          string    `json:"error_message,omitempty"`
	Timestamp             time.Time `json:"timestamp"`
}

// Key partitions events of one external transaction together.
func (e *LedgerEvent) Key() string {
	if e.ExternalTransactionID != "" {
		return e.ExternalTransactionID
	}
	return e.TransactionID
}

// Publisher delivers ledger events. Delivery is best effort: a failure is
// reported to the caller but never undoes a committed workflow.
type Publisher interface {
	Publish(ctx context.Context, event *LedgerEvent) error
	Close() error
}

func encode(event *LedgerEvent) ([]byte, error) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	return payload, nil
}

// RedisPublisher fans events out on a redis pub/sub channel.
type RedisPublisher struct {
	rdb     redis.UniversalClient
	channel string
}

func NewRedisPublisher(rdb redis.UniversalClient, channel string) *RedisPublisher {
	if channel == "" {
		channel = LedgerEventsChannel
	}
	return &RedisPublisher{rdb: rdb, channel: channel}
}

func (p *RedisPublisher) Publish(ctx context.Context, event *LedgerEvent) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

// Close leaves the shared redis client open.
func (p *RedisPublisher) Close() error { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes events to a kafka topic keyed by external transaction.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaWriter(brokers []string, topic string, logger *zap.Logger) *kafka.Writer {
	return &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		MaxAttempts:  3,
		BatchSize:    100,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 10 * time.Second,
		Compression:  kafka.Snappy,
		ErrorLogger: kafka.LoggerFunc(func(msg string, args ...interface{}) {
			logger.Warn(fmt.Sprintf(msg, args...), zap.String("component", "kafka"))
		}),
	}
}

func NewKafkaPublisher(writer messageWriter) *KafkaPublisher {
	return &KafkaPublisher{writer: writer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, event *LedgerEvent) error {
	payload, err := encode(event)
	if err != nil {
		return err
	}
	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(event.Key()),
		Value: payload,
		Time:  event.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// Multi publishes to every publisher and joins their errors.
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, event *LedgerEvent) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

type Nop struct{}

func (Nop) Publish(context.Context, *LedgerEvent) error { return nil }
func (Nop) Close() error                                { return nil }
