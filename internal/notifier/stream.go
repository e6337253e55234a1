package notifier

import (
	"context"
	"fmt"

	"comunidad-alarm/internal/models"
	rediscommon "comunidad-alarm/pkg/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// StreamDispatcher 把通知发布到 Redis Streams
// 平台的推送工作进程消费该流并完成实际投递
type StreamDispatcher struct {
	redisClient *redis.Client
	stream      string
	logger      *zap.Logger
}

// NewStreamDispatcher 创建 Redis Streams 分发器
func NewStreamDispatcher(redisClient *redis.Client, stream string, logger *zap.Logger) *StreamDispatcher {
	return &StreamDispatcher{
		redisClient: redisClient,
		stream:      stream,
		logger:      logger,
	}
}

// Send 发布通知到流
func (d *StreamDispatcher) Send(ctx context.Context, trigger *models.AlarmTrigger, user *models.User) error {
	notification := buildNotification(trigger, user)

	id, err := rediscommon.PublishJSONToStream(ctx, d.redisClient, d.stream, notification)
	if err != nil {
		return fmt.Errorf("failed to publish notification to stream: %w", err)
	}

	d.logger.Debug("Notification published",
		zap.String("stream", d.stream),
		zap.String("message_id", id),
		zap.String("trigger_id", trigger.TriggerID),
	)

	return nil
}
