package kafka

import (
	"context"
	"encoding/json"
	"log"

	"order-webhook-service/models"

	"github.com/segmentio/kafka-go"
)

type OrderEventProducer struct {
	writer *kafka.Writer
	topic  string
}

func NewOrderEventProducer(brokers []string, topic string) *OrderEventProducer {
	w := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	log.Printf("[OrderEventProducer] initialized topic=%s brokers=%v", topic, brokers)
	return &OrderEventProducer{writer: w, topic: topic}
}

func (p *OrderEventProducer) Publish(event models.OrderEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Key:   []byte(event.OrderID),
		Value: data,
	}

	if err := p.writer.WriteMessages(context.Background(), msg); err != nil {
		log.Printf("[OrderEventProducer] failed to publish %s for order=%s: %v", event.Type, event.OrderID, err)
		return err
	}
	return nil
}

func (p *OrderEventProducer) Close() error {
	return p.writer.Close()
}
