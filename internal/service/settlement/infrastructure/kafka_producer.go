// internal/service/settlement/infrastructure/kafka_producer.go
package infrastructure

import (
	"context"
	"encoding/json"

	"github.com/segmentio/kafka-go"

	"bazaar/internal/pkg/mq"
	"bazaar/internal/service/settlement/domain"
)

// KafkaEventProducer 把佣金入账事件发到 commission-booked topic。
// 消息以 vendor_id 为 key，保证同一商家的事件落在同一分区内有序。
type KafkaEventProducer struct {
	writer *kafka.Writer
}

func NewKafkaEventProducer(brokers []string, topic string) *KafkaEventProducer {
	return &KafkaEventProducer{writer: mq.NewKafkaWriter(brokers, topic)}
}

func (p *KafkaEventProducer) ProduceCommissionBooked(ctx context.Context, event *domain.CommissionBookedEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return err
	}
	return mq.ProduceMessage(ctx, p.writer, []byte(event.VendorID), payload)
}

func (p *KafkaEventProducer) Close() error {
	return p.writer.Close()
}
