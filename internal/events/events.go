// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/xenking/healthybite/internal/domain/order"
)

// TypeOrderCreated is the event_type header of order-created events.
const TypeOrderCreated = "order.created"

var _ order.Publisher = (*KafkaPublisher)(nil)

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per created order, keyed by user id so
// a user's orders stay ordered within a partition.
type KafkaPublisher struct {
	w   messageWriter
	now func() time.Time
}

// NewKafkaPublisher creates a publisher writing to topic on brokers.
func NewKafkaPublisher(brokers []string, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		},
		now: time.Now,
	}
}

// OrderCreated publishes o.
func (p *KafkaPublisher) OrderCreated(ctx context.Context, o *order.Order) error {
	msg := kafka.Message{
		Key:   []byte(o.UserID),
		Value: encodeOrderCreated(uuid.NewString(), p.now().UTC(), o),
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(TypeOrderCreated)},
		},
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return errors.Wrap(err, "write message")
	}
	return nil
}

// Close flushes pending messages.
func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func encodeOrderCreated(id string, at time.Time, o *order.Order) []byte {
	var e jx.Encoder
	e.ObjStart()
	e.FieldStart("eventId")
	e.Str(id)
	e.FieldStart("type")
	e.Str(TypeOrderCreated)
	e.FieldStart("occurredAt")
	e.Str(at.Format(time.RFC3339Nano))
	e.FieldStart("orderId")
	e.Str(o.ID)
	e.FieldStart("userId")
	e.Str(o.UserID)
	e.FieldStart("items")
	e.ArrStart()
	for _, it := range o.Items {
		e.ObjStart()
		e.FieldStart("productId")
		e.Str(it.ProductID)
		e.FieldStart("name")
		e.Str(it.Name)
		e.FieldStart("price")
		e.Raw([]byte(it.Price.String()))
		e.FieldStart("qty")
		e.Int(it.Qty)
		e.ObjEnd()
	}
	e.ArrEnd()
	e.FieldStart("totalAmount")
	e.Raw([]byte(o.TotalAmount.String()))
	e.FieldStart("status")
	e.Str(o.Status)
	e.FieldStart("createdAt")
	e.Str(o.CreatedAt.Format(time.RFC3339Nano))
	e.ObjEnd()
	return e.Bytes()
}
