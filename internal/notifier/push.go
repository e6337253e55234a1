package notifier

import (
	"context"
	"fmt"
	"time"

	"comunidad-alarm/internal/models"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"
)

// PushDispatcher 通过 HTTP 推送网关分发通知
// 网关负责 token 解析和向 APNs/FCM 的实际投递
type PushDispatcher struct {
	httpClient *resty.Client
	logger     *zap.Logger
}

// NewPushDispatcher 创建推送网关分发器
func NewPushDispatcher(gatewayURL string, timeout time.Duration, logger *zap.Logger) *PushDispatcher {
	client := resty.New().
		SetBaseURL(gatewayURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &PushDispatcher{
		httpClient: client,
		logger:     logger,
	}
}

// Send 向网关 POST 通知载荷
func (d *PushDispatcher) Send(ctx context.Context, trigger *models.AlarmTrigger, user *models.User) error {
	notification := buildNotification(trigger, user)

	resp, err := d.httpClient.R().
		SetContext(ctx).
		SetBody(notification).
		Post("/v1/notifications")
	if err != nil {
		return fmt.Errorf("failed to call push gateway: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("push gateway returned status %d: %s", resp.StatusCode(), resp.String())
	}

	d.logger.Debug("Notification pushed",
		zap.String("trigger_id", trigger.TriggerID),
		zap.String("user_id", user.UserID),
		zap.Int("status", resp.StatusCode()),
	)

	return nil
}
