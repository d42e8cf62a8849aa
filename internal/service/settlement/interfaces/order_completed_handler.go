// internal/service/settlement/interfaces/order_completed_handler.go
package interfaces

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"

	"bazaar/internal/pkg/logger"
	"bazaar/internal/pkg/mq"
	"bazaar/internal/service/settlement/application"
	"bazaar/internal/service/settlement/domain"
)

// OrderCompletedConsumer 是一个驱动适配器，它监听订单完成事件并驱动结算服务入账。
type OrderCompletedConsumer struct {
	reader  *kafka.Reader
	appSvc  *application.SettlementService
	wg      sync.WaitGroup
	stopped bool
}

// NewOrderCompletedConsumer 创建一个新的Kafka消费者适配器。
func NewOrderCompletedConsumer(reader *kafka.Reader, appSvc *application.SettlementService) *OrderCompletedConsumer {
	return &OrderCompletedConsumer{
		reader: reader,
		appSvc: appSvc,
	}
}

// Start 开始监听Kafka主题。这是一个长期运行的方法。
func (c *OrderCompletedConsumer) Start(ctx context.Context) error {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		logger.Ctx(ctx).Printf("Kafka consumer started for topic '%s'.", c.reader.Config().Topic)
		for {
			if c.stopped {
				return
			}
			// 使用FetchMessage而不是ReadMessage，以便手动控制Offset提交
			msg, err := c.reader.FetchMessage(ctx)
			if err != nil {
				if ctx.Err() != nil {
					logger.Ctx(ctx).Info().Msg("Kafka consumer shutting down.")
					return
				}
				logger.Ctx(ctx).Printf("ERROR: could not read message: %v. Retrying...", err)
				time.Sleep(1 * time.Second)
				continue
			}

			propagator := otel.GetTextMapPropagator()
			headerCarrier := mq.KafkaHeaderCarrier(msg.Headers)
			newCtx := propagator.Extract(ctx, &headerCarrier)

			if err := c.processMessage(newCtx, msg); err != nil {
				// 入账失败不提交Offset，等待下一轮重新投递
				logger.Ctx(newCtx).Error().Err(err).
					Str("topic", msg.Topic).
					Int64("offset", msg.Offset).
					Msg("Failed to process order-completed event, will retry")
				continue
			}

			if err := c.reader.CommitMessages(ctx, msg); err != nil {
				logger.Ctx(ctx).Error().Err(err).Msg("Failed to commit messages")
			}
		}
	}()
	return nil
}

// Stop 优雅地停止消费者。
func (c *OrderCompletedConsumer) Stop(ctx context.Context) {
	c.stopped = true
	c.reader.Close()
	c.wg.Wait()
	logger.Ctx(ctx).Printf("Kafka consumer stopped.")
}

// processMessage 反序列化消息并调用应用服务。
// 消息体损坏属于不可恢复错误，记录后直接提交跳过。
func (c *OrderCompletedConsumer) processMessage(ctx context.Context, msg kafka.Message) error {
	var event domain.OrderCompletedEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		logger.Ctx(ctx).Error().Err(err).Str("payload", string(msg.Value)).Msg("Dropping malformed order-completed event")
		return nil
	}
	return c.appSvc.HandleOrderCompletedEvent(ctx, &event)
}
