package kafka

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/segmentio/kafka-go"

	"ms-checkout/internal/models"
)

// Producer streams order lifecycle events for the receipt and notification
// subsystems. Publishing is best-effort; callers log and continue on error.
type Producer struct {
	created   *kafka.Writer
	confirmed *kafka.Writer
}

func NewProducer(brokers []string, createdTopic, confirmedTopic string) *Producer {
	return &Producer{
		created: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   createdTopic,
		}),
		confirmed: kafka.NewWriter(kafka.WriterConfig{
			Brokers: brokers,
			Topic:   confirmedTopic,
		}),
	}
}

func (p *Producer) publish(w *kafka.Writer, order models.Order) error {
	msgBytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return w.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(order.OrderID),
			Value: msgBytes,
		},
	)
}

func (p *Producer) PublishOrderCreated(order models.Order) error {
	return p.publish(p.created, order)
}

func (p *Producer) PublishOrderConfirmed(order models.Order) error {
	return p.publish(p.confirmed, order)
}

// Close closes both writers; an error on one must not leak the other.
func (p *Producer) Close() error {
	return errors.Join(p.created.Close(), p.confirmed.Close())
}
