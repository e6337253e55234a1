package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"comunidad-alarm/internal/evaluator"
	"comunidad-alarm/internal/models"
	"comunidad-alarm/internal/notifier"
	"comunidad-alarm/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TriggerService 触发与设置服务层
// 职责：
// 1. 手动触发和报警测试（单条同步操作，错误直接透传给调用方）
// 2. 触发记录的确认与查询
// 3. 用户设置的 lazy 创建与部分更新
type TriggerService struct {
	alarmRepo    *repository.AlarmRepository
	triggerRepo  *repository.AlarmTriggerRepository
	settingsRepo *repository.AlarmSettingsRepository
	userRepo     *repository.UserRepository
	dispatcher   notifier.Dispatcher
	logger       *zap.Logger
}

// NewTriggerService 创建触发服务
func NewTriggerService(
	alarmRepo *repository.AlarmRepository,
	triggerRepo *repository.AlarmTriggerRepository,
	settingsRepo *repository.AlarmSettingsRepository,
	userRepo *repository.UserRepository,
	dispatcher notifier.Dispatcher,
	logger *zap.Logger,
) *TriggerService {
	return &TriggerService{
		alarmRepo:    alarmRepo,
		triggerRepo:  triggerRepo,
		settingsRepo: settingsRepo,
		userRepo:     userRepo,
		dispatcher:   dispatcher,
		logger:       logger,
	}
}

// ============================================
// 触发操作
// ============================================

// TriggerManually 手动触发报警，返回触发记录ID
// 手动触发不受调度窗口、去重窗口和免打扰时段约束
func (s *TriggerService) TriggerManually(ctx context.Context, alarmID, userID, message string) (string, error) {
	if alarmID == "" {
		return "", fmt.Errorf("alarm_id is required")
	}
	if userID == "" {
		return "", fmt.Errorf("user_id is required")
	}

	alarm, err := s.alarmRepo.GetAlarm(ctx, alarmID)
	if err != nil {
		return "", fmt.Errorf("failed to get alarm: %w", err)
	}

	if message == "" {
		message = fmt.Sprintf("Manual trigger: %s", alarm.Title)
	}

	now := time.Now()
	trigger := models.NewAlarmTrigger(alarm.AlarmID, userID, models.TriggerTypeManual, message, nil, now)

	if err := s.triggerRepo.CreateTrigger(ctx, trigger); err != nil {
		return "", fmt.Errorf("failed to create trigger: %w", err)
	}

	if err := s.alarmRepo.PatchLastTriggered(ctx, alarm.AlarmID, now); err != nil {
		s.logger.Error("Failed to patch last_triggered",
			zap.String("alarm_id", alarm.AlarmID),
			zap.Error(err),
		)
	}

	s.dispatch(ctx, trigger)

	s.logger.Info("Alarm triggered manually",
		zap.String("alarm_id", alarm.AlarmID),
		zap.String("trigger_id", trigger.TriggerID),
		zap.String("user_id", userID),
	)

	return trigger.TriggerID, nil
}

// TestAlarm 测试报警
// 有效通道全关时返回 false（没有可测的内容）；否则写入一条带
// is_test 标记的手动触发并返回 true
func (s *TriggerService) TestAlarm(ctx context.Context, alarmID string) (bool, error) {
	if alarmID == "" {
		return false, fmt.Errorf("alarm_id is required")
	}

	alarm, err := s.alarmRepo.GetAlarm(ctx, alarmID)
	if err != nil {
		return false, fmt.Errorf("failed to get alarm: %w", err)
	}

	settings, err := s.settingsRepo.GetSettings(ctx, alarm.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return false, fmt.Errorf("failed to get alarm settings: %w", err)
		}
		settings = models.DefaultSettings(alarm.UserID)
	}

	flags := evaluator.EffectiveChannels(settings, alarm)
	if !flags.Any() {
		return false, nil
	}

	triggerData, err := json.Marshal(models.TestTriggerData{IsTest: true})
	if err != nil {
		return false, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	now := time.Now()
	trigger := models.NewAlarmTrigger(
		alarm.AlarmID,
		alarm.UserID,
		models.TriggerTypeManual,
		fmt.Sprintf("Test: %s", alarm.Title),
		triggerData,
		now,
	)

	if err := s.triggerRepo.CreateTrigger(ctx, trigger); err != nil {
		return false, fmt.Errorf("failed to create trigger: %w", err)
	}

	if err := s.alarmRepo.PatchLastTriggered(ctx, alarm.AlarmID, now); err != nil {
		s.logger.Error("Failed to patch last_triggered",
			zap.String("alarm_id", alarm.AlarmID),
			zap.Error(err),
		)
	}

	if flags.Notification {
		s.dispatch(ctx, trigger)
	}

	return true, nil
}

// AcknowledgeTrigger 确认触发记录（幂等，重复确认保留首次时间戳）
func (s *TriggerService) AcknowledgeTrigger(ctx context.Context, triggerID string) error {
	if triggerID == "" {
		return fmt.Errorf("trigger_id is required")
	}

	if err := s.triggerRepo.AcknowledgeTrigger(ctx, triggerID); err != nil {
		return fmt.Errorf("failed to acknowledge trigger: %w", err)
	}

	s.logger.Info("Alarm trigger acknowledged",
		zap.String("trigger_id", triggerID),
	)

	return nil
}

// RecentTriggers 获取用户最近的触发记录（新的在前，默认 20 条）
func (s *TriggerService) RecentTriggers(ctx context.Context, userID string, limit int) ([]models.RecentTrigger, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	triggers, err := s.triggerRepo.ListRecentTriggers(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list recent triggers: %w", err)
	}

	return triggers, nil
}

// ============================================
// 用户设置
// ============================================

// SettingsUpdate 设置的部分更新（nil 字段保持原值）
type SettingsUpdate struct {
	GlobalSoundEnabled        *bool
	GlobalVibrationEnabled    *bool
	GlobalNotificationEnabled *bool
	QuietHours                *models.QuietHours
	EmergencyOverride         *bool
}

// GetSettings 获取用户设置（未写入过时返回 nil，调用方按全开默认值处理）
func (s *TriggerService) GetSettings(ctx context.Context, userID string) (*models.AlarmSettings, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	settings, err := s.settingsRepo.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get alarm settings: %w", err)
	}

	return settings, nil
}

// UpdateSettings 更新用户设置（首次更新时以全开默认值为基础 lazy 创建）
func (s *TriggerService) UpdateSettings(ctx context.Context, userID string, update SettingsUpdate) error {
	if userID == "" {
		return fmt.Errorf("user_id is required")
	}

	now := time.Now()
	settings, err := s.settingsRepo.GetSettings(ctx, userID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("failed to get alarm settings: %w", err)
		}
		settings = models.DefaultSettings(userID)
		settings.SettingsID = uuid.New().String()
		settings.CreatedAt = now
	}

	if update.GlobalSoundEnabled != nil {
		settings.GlobalSoundEnabled = *update.GlobalSoundEnabled
	}
	if update.GlobalVibrationEnabled != nil {
		settings.GlobalVibrationEnabled = *update.GlobalVibrationEnabled
	}
	if update.GlobalNotificationEnabled != nil {
		settings.GlobalNotificationEnabled = *update.GlobalNotificationEnabled
	}
	if update.QuietHours != nil {
		settings.QuietHours = update.QuietHours
	}
	if update.EmergencyOverride != nil {
		settings.EmergencyOverride = *update.EmergencyOverride
	}
	settings.UpdatedAt = now

	if err := s.settingsRepo.UpsertSettings(ctx, settings); err != nil {
		return fmt.Errorf("failed to upsert alarm settings: %w", err)
	}

	s.logger.Info("Alarm settings updated",
		zap.String("user_id", userID),
	)

	return nil
}

// dispatch 分发通知（尽力而为）
func (s *TriggerService) dispatch(ctx context.Context, trigger *models.AlarmTrigger) {
	user, err := s.userRepo.GetUser(ctx, trigger.UserID)
	if err != nil {
		s.logger.Error("Failed to load user for notification",
			zap.String("trigger_id", trigger.TriggerID),
			zap.String("user_id", trigger.UserID),
			zap.Error(err),
		)
		return
	}

	if err := s.dispatcher.Send(ctx, trigger, user); err != nil {
		s.logger.Error("Failed to dispatch notification",
			zap.String("trigger_id", trigger.TriggerID),
			zap.String("user_id", trigger.UserID),
			zap.Error(err),
		)
	}
}
