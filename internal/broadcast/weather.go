package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"comunidad-alarm/internal/models"
	"comunidad-alarm/internal/repository"

	"go.uber.org/zap"
)

// WeatherAlertStore 天气预警读取
type WeatherAlertStore interface {
	GetWeatherAlert(ctx context.Context, alertID string) (*models.WeatherAlert, error)
}

// UserGetter 单用户读取（通知分发需要收件人信息）
type UserGetter interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// WeatherService 天气预警触发服务
// 由天气采集侧在预警入库后同步调用，绕过单条报警的调度窗口
type WeatherService struct {
	weatherAlerts WeatherAlertStore
	alarms        AlarmStore
	settings      SettingsStore
	triggers      TriggerStore
	users         UserGetter
	dispatcher    Dispatcher
	areaKeywords  []string
	logger        *zap.Logger
}

// NewWeatherService 创建天气预警触发服务
// areaKeywords 是识别的本地区域关键字（对预警的 areas 做大小写无关的
// 子串匹配，不做地理编码）
func NewWeatherService(
	weatherAlerts WeatherAlertStore,
	alarms AlarmStore,
	settings SettingsStore,
	triggers TriggerStore,
	users UserGetter,
	dispatcher Dispatcher,
	areaKeywords []string,
	logger *zap.Logger,
) *WeatherService {
	return &WeatherService{
		weatherAlerts: weatherAlerts,
		alarms:        alarms,
		settings:      settings,
		triggers:      triggers,
		users:         users,
		dispatcher:    dispatcher,
		areaKeywords:  areaKeywords,
		logger:        logger,
	}
}

// TriggerFromAlert 根据天气预警触发所有命中的天气报警，返回触发数
// 预警不存在时返回 ErrNotFound；预警未激活或区域不匹配时是无操作
// 闸门只看 globalNotificationEnabled AND alarm.NotificationEnabled，
// 免打扰时段在这条路径上不参与判断（与 tick 路径刻意不同，
// 维持现状，有测试固定这一行为）
func (s *WeatherService) TriggerFromAlert(ctx context.Context, weatherAlertID string) (int, error) {
	if weatherAlertID == "" {
		return 0, fmt.Errorf("weather_alert_id is required")
	}

	alert, err := s.weatherAlerts.GetWeatherAlert(ctx, weatherAlertID)
	if err != nil {
		return 0, fmt.Errorf("failed to load weather alert: %w", err)
	}
	if !alert.IsActive {
		return 0, nil
	}

	if !s.areaAffected(alert.Areas) {
		s.logger.Debug("Weather alert outside local areas",
			zap.String("alert_id", alert.AlertID),
			zap.Strings("areas", alert.Areas),
		)
		return 0, nil
	}

	alarms, err := s.alarms.ListActiveAlarmsByType(ctx, models.AlarmTypeWeather)
	if err != nil {
		return 0, fmt.Errorf("failed to list weather alarms: %w", err)
	}

	triggerData, err := json.Marshal(models.WeatherTriggerData{
		WeatherAlertID: alert.AlertID,
		Severity:       alert.Severity,
		Areas:          alert.Areas,
	})
	if err != nil {
		return 0, fmt.Errorf("failed to marshal trigger data: %w", err)
	}

	now := time.Now()
	message := fmt.Sprintf("%s: %s", alert.Title, alert.Description)
	fired := 0

	for i := range alarms {
		if s.triggerAlarm(ctx, &alarms[i], message, triggerData, now) {
			fired++
		}
	}

	s.logger.Info("Weather alert processed",
		zap.String("alert_id", alert.AlertID),
		zap.String("severity", alert.Severity),
		zap.Int("alarm_count", len(alarms)),
		zap.Int("fired_count", fired),
	)

	return fired, nil
}

// triggerAlarm 处理单条天气报警，触发成功返回 true
func (s *WeatherService) triggerAlarm(ctx context.Context, alarm *models.Alarm, message string, triggerData json.RawMessage, now time.Time) bool {
	settings, err := s.settings.GetSettings(ctx, alarm.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			s.logger.Error("Failed to load alarm settings",
				zap.String("alarm_id", alarm.AlarmID),
				zap.String("user_id", alarm.UserID),
				zap.Error(err),
			)
			return false
		}
		settings = models.DefaultSettings(alarm.UserID)
	}

	if !settings.GlobalNotificationEnabled || !alarm.NotificationEnabled {
		return false
	}

	trigger := models.NewAlarmTrigger(
		alarm.AlarmID,
		alarm.UserID,
		models.TriggerTypeWeatherAlert,
		message,
		triggerData,
		now,
	)
	if err := s.triggers.CreateTrigger(ctx, trigger); err != nil {
		s.logger.Error("Failed to create weather trigger",
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
	}

	s.dispatch(ctx, trigger)

	return true
}

// dispatch 分发通知（尽力而为）
func (s *WeatherService) dispatch(ctx context.Context, trigger *models.AlarmTrigger) {
	user, err := s.users.GetUser(ctx, trigger.UserID)
	if err != nil {
		s.logger.Error("Failed to load user for notification",
			zap.String("trigger_id", trigger.TriggerID),
			zap.String("user_id", trigger.UserID),
			zap.Error(err),
		)
		return
	}

	if err := s.dispatcher.Send(ctx, trigger, user); err != nil {
		s.logger.Error("Failed to dispatch weather notification",
			zap.String("trigger_id", trigger.TriggerID),
			zap.String("user_id", trigger.UserID),
			zap.Error(err),
		)
	}
}

// areaAffected 判断预警区域是否覆盖本地社区
func (s *WeatherService) areaAffected(areas []string) bool {
	for _, area := range areas {
		lowered := strings.ToLower(area)
		for _, keyword := range s.areaKeywords {
			if strings.Contains(lowered, strings.ToLower(keyword)) {
				return true
			}
		}
	}
	return false
}
