package broadcast

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"comunidad-alarm/internal/models"
	"comunidad-alarm/internal/repository"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// UserStore 广播路径需要的用户读取
type UserStore interface {
	ListUsers(ctx context.Context) ([]models.User, error)
}

// AlarmStore 广播路径需要的报警读写
type AlarmStore interface {
	GetUserEmergencyAlarm(ctx context.Context, userID string) (*models.Alarm, error)
	ListActiveAlarmsByType(ctx context.Context, alarmType string) ([]models.Alarm, error)
	PatchLastTriggered(ctx context.Context, alarmID string, triggeredAt time.Time) error
}

// SettingsStore 用户设置读取
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (*models.AlarmSettings, error)
}

// TriggerStore 触发记录写入
type TriggerStore interface {
	CreateTrigger(ctx context.Context, trigger *models.AlarmTrigger) error
}

// Dispatcher 通知分发
type Dispatcher interface {
	Send(ctx context.Context, trigger *models.AlarmTrigger, user *models.User) error
}

// EmergencyService 紧急广播服务
// 绕过单条报警的调度窗口，直接向所有用户的紧急报警扇出
type EmergencyService struct {
	users       UserStore
	alarms      AlarmStore
	settings    SettingsStore
	triggers    TriggerStore
	dispatcher  Dispatcher
	parallelism int
	logger      *zap.Logger
}

// NewEmergencyService 创建紧急广播服务
func NewEmergencyService(
	users UserStore,
	alarms AlarmStore,
	settings SettingsStore,
	triggers TriggerStore,
	dispatcher Dispatcher,
	parallelism int,
	logger *zap.Logger,
) *EmergencyService {
	if parallelism <= 0 {
		parallelism = 8
	}
	return &EmergencyService{
		users:       users,
		alarms:      alarms,
		settings:    settings,
		triggers:    triggers,
		dispatcher:  dispatcher,
		parallelism: parallelism,
		logger:      logger,
	}
}

// Broadcast 向所有用户广播紧急消息，返回成功触达的用户数
// excludeUserID 非空时跳过该用户（通常是发起人自己）
// 触达条件比 tick 路径更严：四个开关
// （globalSound/globalVibration/globalNotification/emergencyOverride）
// 必须全部为 true，紧急广播要求每个通道都能到达才算送达
// 单个用户的失败只记录日志，不阻塞其他用户，也不计入返回值
func (s *EmergencyService) Broadcast(ctx context.Context, message, triggeredBy, excludeUserID string) (int, error) {
	if message == "" {
		return 0, fmt.Errorf("message is required")
	}
	if triggeredBy == "" {
		return 0, fmt.Errorf("triggered_by is required")
	}

	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	now := time.Now()
	var mu sync.Mutex
	notified := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.parallelism)

	for i := range users {
		user := users[i]
		if excludeUserID != "" && user.UserID == excludeUserID {
			continue
		}

		g.Go(func() error {
			if s.broadcastToUser(gctx, &user, message, now) {
				mu.Lock()
				notified++
				mu.Unlock()
			}
			// 单用户失败在 broadcastToUser 内部消化，永不让 errgroup 提前取消
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return notified, err
	}

	s.logger.Info("Emergency broadcast completed",
		zap.String("triggered_by", triggeredBy),
		zap.Int("user_count", len(users)),
		zap.Int("notified_count", notified),
	)

	return notified, nil
}

// broadcastToUser 处理单个用户，成功触达返回 true
func (s *EmergencyService) broadcastToUser(ctx context.Context, user *models.User, message string, now time.Time) bool {
	alarm, err := s.alarms.GetUserEmergencyAlarm(ctx, user.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("Failed to load emergency alarm",
				zap.String("user_id", user.UserID),
				zap.Error(err),
			)
		}
		return false
	}

	settings, err := s.settings.GetSettings(ctx, user.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("Failed to load alarm settings",
				zap.String("user_id", user.UserID),
				zap.Error(err),
			)
			return false
		}
		settings = models.DefaultSettings(user.UserID)
	}

	// 四个开关全开才算可送达
	if !settings.GlobalSoundEnabled ||
		!settings.GlobalVibrationEnabled ||
		!settings.GlobalNotificationEnabled ||
		!settings.EmergencyOverride {
		return false
	}

	trigger := models.NewAlarmTrigger(
		alarm.AlarmID,
		user.UserID,
		models.TriggerTypeEmergency,
		message,
		nil,
		now,
	)
	if err := s.triggers.CreateTrigger(ctx, trigger); err != nil {
		s.logger.Error("Failed to create emergency trigger",
			zap.String("user_id", user.UserID),
			zap.String("alarm_id", alarm.AlarmID),
			zap.Error(err),
		)
		return false
	}

	if err := s.alarms.PatchLastTriggered(ctx, alarm.AlarmID, now); err != nil {
		s.logger.Error("Failed to patch last_triggered",
			zap.String("alarm_id", alarm.AlarmID),
			zap.Error(err),
		)
		// 触发记录已落库，继续算作已触达
	}

	if err := s.dispatcher.Send(ctx, trigger, user); err != nil {
		s.logger.Error("Failed to dispatch emergency notification",
			zap.String("trigger_id", trigger.TriggerID),
			zap.String("user_id", user.UserID),
			zap.Error(err),
		)
	}

	return true
}
