package main

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

const (
	TopicOrderPlaced     = "storefront.order.placed"
	TopicPaymentPaid     = "storefront.payment.paid"
	TopicShipmentUpdated = "storefront.shipment.updated"
)

type Event struct {
	ID         string    `json:"event_id"`
	Topic      string    `json:"topic"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type OrderPlacedEvent struct {
	OrderID    int64           `json:"order_id"`
	CustomerID int64           `json:"customer_id"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

type PaymentPaidEvent struct {
	OrderID    int64 `json:"order_id"`
	PaymentID  int64 `json:"payment_id"`
	CustomerID int64 `json:"customer_id"`
	PaidBy     int64 `json:"paid_by"`
}

type ShipmentUpdatedEvent struct {
	OrderID      int64   `json:"order_id"`
	ShipmentID   int64   `json:"shipment_id"`
	Status       string  `json:"status"`
	TrackingCode *string `json:"tracking_code"`
	Carrier      *string `json:"carrier"`
}

type EventPublisher interface {
	Publish(ctx context.Context, topic, key string, ev Event) error
	Close() error
}

// publish sends a domain event after the owning transaction committed.
// Delivery is best effort: a failure is logged and never undoes the change.
func (s *Shop) publish(ctx context.Context, topic string, orderID int64, payload any) {
	ev := Event{
		ID:         uuid.NewString(),
		Topic:      topic,
		OccurredAt: time.Now().UTC(),
		Payload:    payload,
	}
	if err := s.events.Publish(ctx, topic, strconv.FormatInt(orderID, 10), ev); err != nil {
		log.Printf("publish %s for order %d: %v", topic, orderID, err)
	}
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, string, string, Event) error { return nil }
func (nopPublisher) Close() error                                          { return nil }

// KafkaPublisher keeps one writer per topic, keyed by order id so every
// event of an order lands on the same partition.
type KafkaPublisher struct {
	brokers []string
	writers map[string]*kafka.Writer
	timeout time.Duration
}

func NewKafkaPublisher(brokersCSV string) *KafkaPublisher {
	brokers := []string{}
	for _, b := range strings.Split(brokersCSV, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	p := &KafkaPublisher{
		brokers: brokers,
		writers: map[string]*kafka.Writer{},
		timeout: 3 * time.Second,
	}
	for _, topic := range []string{TopicOrderPlaced, TopicPaymentPaid, TopicShipmentUpdated} {
		p.writers[topic] = &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		}
	}
	return p
}

func (p *KafkaPublisher) Enabled() bool {
	return len(p.brokers) > 0
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, ev Event) error {
	w, ok := p.writers[topic]
	if !ok {
		return errors.New("unknown topic " + topic)
	}
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()
	return w.WriteMessages(ctx, kafka.Message{Key: []byte(key), Value: data, Time: ev.OccurredAt})
}

func (p *KafkaPublisher) Close() error {
	var errs []error
	for _, w := range p.writers {
		if err := w.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
