package notifier

import (
	"context"
	"time"

	"comunidad-alarm/internal/models"

	"go.uber.org/zap"
)

// Notification 下游推送侧消费的通知载荷
// 实际的设备推送（token 解析、APNs/FCM 投递）由平台的推送服务完成，
// 这里只负责把触发事实交给传输通道
type Notification struct {
	TriggerID   string    `json:"trigger_id"`
	AlarmID     string    `json:"alarm_id"`
	UserID      string    `json:"user_id"`
	UserName    string    `json:"user_name"`
	TriggerType string    `json:"trigger_type"`
	Message     string    `json:"message"`
	TriggeredAt time.Time `json:"triggered_at"`
}

// Dispatcher 通知分发通道
// Send 是 fire-and-forget 语义：返回错误只用于记录，
// 永远不会回滚已落库的触发记录
type Dispatcher interface {
	Send(ctx context.Context, trigger *models.AlarmTrigger, user *models.User) error
}

// buildNotification 从触发记录和收件人构建通知载荷
func buildNotification(trigger *models.AlarmTrigger, user *models.User) *Notification {
	return &Notification{
		TriggerID:   trigger.TriggerID,
		AlarmID:     trigger.AlarmID,
		UserID:      user.UserID,
		UserName:    user.Name,
		TriggerType: trigger.TriggerType,
		Message:     trigger.Message,
		TriggeredAt: trigger.TriggeredAt,
	}
}

// NopDispatcher 空分发器（NOTIFY_MODE=none，只记录日志）
type NopDispatcher struct {
	logger *zap.Logger
}

// NewNopDispatcher 创建空分发器
func NewNopDispatcher(logger *zap.Logger) *NopDispatcher {
	return &NopDispatcher{logger: logger}
}

// Send 只记录日志
func (d *NopDispatcher) Send(ctx context.Context, trigger *models.AlarmTrigger, user *models.User) error {
	d.logger.Info("Notification dropped (dispatch disabled)",
		zap.String("trigger_id", trigger.TriggerID),
		zap.String("user_id", user.UserID),
		zap.String("trigger_type", trigger.TriggerType),
	)
	return nil
}
