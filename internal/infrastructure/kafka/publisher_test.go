package kafkapub

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"fxconvert-service/internal/domain"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func sampleTx() domain.Transaction {
	return domain.Transaction{
		ID:        "3f1c2a8e-0000-4000-8000-000000000001",
		From:      domain.USD,
		To:        domain.BRL,
		FromValue: decimal.RequireFromString("100"),
		ToValue:   decimal.RequireFromString("525"),
		Rate:      decimal.RequireFromString("5.25"),
		Timestamp: time.Date(2025, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPublishTransactionCreated(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}

	require.NoError(t, p.PublishTransactionCreated(context.Background(), sampleTx()))
	require.Len(t, w.msgs, 1)
	require.Equal(t, sampleTx().ID, string(w.msgs[0].Key))

	var ev TransactionEvent
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &ev))
	require.Equal(t, EventTransactionCreated, ev.Event)
	require.Equal(t, "5.25", ev.Rate)
	require.Equal(t, "525", ev.ToValue)
	require.Equal(t, "USD", ev.FromCurrency)
}

func TestPublishTransactionCreated_WriterError(t *testing.T) {
	p := &Publisher{writer: &fakeWriter{err: errors.New("no brokers")}}
	err := p.PublishTransactionCreated(context.Background(), sampleTx())
	require.ErrorContains(t, err, "no brokers")
}

func TestNewPublisher_FlushesPromptly(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "transactions.created")
	defer p.Close()

	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	require.Equal(t, 10*time.Millisecond, w.BatchTimeout)
	require.Equal(t, "transactions.created", w.Topic)
	require.IsType(t, &kafka.Hash{}, w.Balancer)
}
