package mq

import (
	"context"
	"errors"
	"testing"

	"github.com/segmentio/kafka-go"
)

type recordingWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func TestSend_ConvertsMessages(t *testing.T) {
	w := &recordingWriter{}
	p := &KafkaProducer{writer: w}

	err := p.Send(context.Background(), Message{
		Topic:   "pricing.events",
		Key:     "AAPL",
		Value:   []byte(`{"price":"10.45"}`),
		Headers: map[string]string{"event_type": "OptionPriced"},
	})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(w.msgs) != 1 {
		t.Fatalf("written: %d", len(w.msgs))
	}
	m := w.msgs[0]
	if m.Topic != "pricing.events" || string(m.Key) != "AAPL" || len(m.Headers) != 1 || m.Headers[0].Key != "event_type" {
		t.Fatalf("message: %+v", m)
	}
}

func TestSend_PropagatesError(t *testing.T) {
	boom := errors.New("broker down")
	p := &KafkaProducer{writer: &recordingWriter{err: boom}}
	if err := p.Send(context.Background(), Message{Topic: "t"}); !errors.Is(err, boom) {
		t.Fatalf("want broker error, got %v", err)
	}
	if err := p.Send(context.Background()); err != nil {
		t.Fatalf("empty send: %v", err)
	}
}

func TestNewProducer_RequiresBrokers(t *testing.T) {
	if _, err := NewProducer(KafkaConfig{}); err == nil {
		t.Fatal("expected error without brokers")
	}
}
