package service

import (
	"context"
	"fmt"
	"time"

	"comunidad-alarm/internal/models"
	"comunidad-alarm/internal/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AlarmAdminService 报警管理服务层（宿主应用的 CRUD 入口）
// 职责：
// 1. 业务规则验证（类型/优先级/调度窗口格式）
// 2. ID 与时间戳生成
// 3. 删除时的级联清理（触发记录随父报警删除）
type AlarmAdminService struct {
	alarmRepo *repository.AlarmRepository
	logger    *zap.Logger
}

// NewAlarmAdminService 创建报警管理服务
func NewAlarmAdminService(alarmRepo *repository.AlarmRepository, logger *zap.Logger) *AlarmAdminService {
	return &AlarmAdminService{
		alarmRepo: alarmRepo,
		logger:    logger,
	}
}

// CreateAlarmInput 创建报警的输入
type CreateAlarmInput struct {
	UserID              string
	Title               string
	Description         string
	AlarmType           string
	IsActive            bool
	IsRecurring         bool
	Schedule            *models.Schedule
	SoundEnabled        bool
	VibrationEnabled    bool
	NotificationEnabled bool
	Priority            string
}

// CreateAlarm 创建报警，返回 alarm_id
func (s *AlarmAdminService) CreateAlarm(ctx context.Context, input CreateAlarmInput) (string, error) {
	if input.UserID == "" {
		return "", fmt.Errorf("user_id is required")
	}
	if input.Title == "" {
		return "", fmt.Errorf("title is required")
	}
	if !models.ValidAlarmType(input.AlarmType) {
		return "", fmt.Errorf("invalid alarm type: %s", input.AlarmType)
	}
	if !models.ValidPriority(input.Priority) {
		return "", fmt.Errorf("invalid priority: %s", input.Priority)
	}
	if err := validateSchedule(input.Schedule); err != nil {
		return "", err
	}

	now := time.Now()
	alarm := &models.Alarm{
		AlarmID:             uuid.New().String(),
		UserID:              input.UserID,
		Title:               input.Title,
		Description:         input.Description,
		AlarmType:           input.AlarmType,
		IsActive:            input.IsActive,
		IsRecurring:         input.IsRecurring,
		Schedule:            input.Schedule,
		SoundEnabled:        input.SoundEnabled,
		VibrationEnabled:    input.VibrationEnabled,
		NotificationEnabled: input.NotificationEnabled,
		Priority:            input.Priority,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.alarmRepo.CreateAlarm(ctx, alarm); err != nil {
		return "", fmt.Errorf("failed to create alarm: %w", err)
	}

	s.logger.Info("Alarm created",
		zap.String("alarm_id", alarm.AlarmID),
		zap.String("user_id", alarm.UserID),
		zap.String("alarm_type", alarm.AlarmType),
	)

	return alarm.AlarmID, nil
}

// GetAlarm 获取单条报警
func (s *AlarmAdminService) GetAlarm(ctx context.Context, alarmID string) (*models.Alarm, error) {
	if alarmID == "" {
		return nil, fmt.Errorf("alarm_id is required")
	}
	return s.alarmRepo.GetAlarm(ctx, alarmID)
}

// ListAlarms 获取用户的全部报警
func (s *AlarmAdminService) ListAlarms(ctx context.Context, userID string) ([]models.Alarm, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	return s.alarmRepo.ListAlarmsByUser(ctx, userID)
}

// UpdateAlarm 部分更新报警
func (s *AlarmAdminService) UpdateAlarm(ctx context.Context, alarmID string, updates map[string]interface{}) error {
	if alarmID == "" {
		return fmt.Errorf("alarm_id is required")
	}
	if len(updates) == 0 {
		return fmt.Errorf("updates cannot be empty")
	}

	if alarmType, ok := updates["alarm_type"].(string); ok && !models.ValidAlarmType(alarmType) {
		return fmt.Errorf("invalid alarm type: %s", alarmType)
	}
	if priority, ok := updates["priority"].(string); ok && !models.ValidPriority(priority) {
		return fmt.Errorf("invalid priority: %s", priority)
	}
	if schedule, ok := updates["schedule"].(*models.Schedule); ok {
		if err := validateSchedule(schedule); err != nil {
			return err
		}
	}

	if err := s.alarmRepo.UpdateAlarm(ctx, alarmID, updates); err != nil {
		return fmt.Errorf("failed to update alarm: %w", err)
	}

	s.logger.Info("Alarm updated",
		zap.String("alarm_id", alarmID),
	)

	return nil
}

// ToggleAlarm 切换报警启用状态
func (s *AlarmAdminService) ToggleAlarm(ctx context.Context, alarmID string, isActive bool) error {
	if alarmID == "" {
		return fmt.Errorf("alarm_id is required")
	}

	if err := s.alarmRepo.SetActive(ctx, alarmID, isActive); err != nil {
		return fmt.Errorf("failed to toggle alarm: %w", err)
	}

	s.logger.Info("Alarm toggled",
		zap.String("alarm_id", alarmID),
		zap.Bool("is_active", isActive),
	)

	return nil
}

// DeleteAlarm 删除报警（触发记录级联删除）
func (s *AlarmAdminService) DeleteAlarm(ctx context.Context, alarmID string) error {
	if alarmID == "" {
		return fmt.Errorf("alarm_id is required")
	}

	if err := s.alarmRepo.DeleteAlarm(ctx, alarmID); err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}

	s.logger.Info("Alarm deleted",
		zap.String("alarm_id", alarmID),
	)

	return nil
}

// validateSchedule 校验调度窗口格式（"HH:MM" 零填充，星期 0-6）
func validateSchedule(schedule *models.Schedule) error {
	if schedule == nil {
		return nil
	}
	if !validWallClock(schedule.StartTime) {
		return fmt.Errorf("invalid schedule start_time: %s", schedule.StartTime)
	}
	if !validWallClock(schedule.EndTime) {
		return fmt.Errorf("invalid schedule end_time: %s", schedule.EndTime)
	}
	for _, day := range schedule.DaysOfWeek {
		if day < 0 || day > 6 {
			return fmt.Errorf("invalid schedule weekday: %d", day)
		}
	}
	return nil
}

// validWallClock 校验 "HH:MM" 格式
func validWallClock(value string) bool {
	if len(value) != 5 || value[2] != ':' {
		return false
	}
	hour := int(value[0]-'0')*10 + int(value[1]-'0')
	minute := int(value[3]-'0')*10 + int(value[4]-'0')
	for _, i := range []int{0, 1, 3, 4} {
		if value[i] < '0' || value[i] > '9' {
			return false
		}
	}
	return hour <= 23 && minute <= 59
}
