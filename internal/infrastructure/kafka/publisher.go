package kafkapub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"fxconvert-service/internal/application"
	"fxconvert-service/internal/domain"

	"github.com/segmentio/kafka-go"
)

var _ application.EventPublisher = (*Publisher)(nil)

const EventTransactionCreated = "transaction.created"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// TransactionEvent is the JSON payload of a transaction.created message.
type TransactionEvent struct {
	Event        string    `json:"event"`
	ID           string    `json:"id"`
	FromCurrency string    `json:"from_currency"`
	ToCurrency   string    `json:"to_currency"`
	FromValue    string    `json:"from_value"`
	ToValue      string    `json:"to_value"`
	Rate         string    `json:"rate"`
	Timestamp    time.Time `json:"timestamp"`
}

// flushAfter bounds how long a single event waits in the writer's batch. The
// kafka-go default of 1s would hold every POST /transactions for a second.
const flushAfter = 10 * time.Millisecond

// Publisher writes transaction events keyed by transaction ID.
type Publisher struct {
	writer messageWriter
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireOne,
			BatchTimeout: flushAfter,
		},
	}
}

func encode(tx domain.Transaction) (kafka.Message, error) {
	v, err := json.Marshal(TransactionEvent{
		Event:        EventTransactionCreated,
		ID:           tx.ID,
		FromCurrency: string(tx.From),
		ToCurrency:   string(tx.To),
		FromValue:    tx.FromValue.String(),
		ToValue:      tx.ToValue.String(),
		Rate:         tx.Rate.String(),
		Timestamp:    tx.Timestamp.UTC(),
	})
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(tx.ID), Value: v, Time: tx.Timestamp}, nil
}

func (p *Publisher) PublishTransactionCreated(ctx context.Context, tx domain.Transaction) error {
	msg, err := encode(tx)
	if err != nil {
		return fmt.Errorf("encode %s: %w", EventTransactionCreated, err)
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish %s: %w", EventTransactionCreated, err)
	}
	return nil
}

func (p *Publisher) Close() error { return p.writer.Close() }
