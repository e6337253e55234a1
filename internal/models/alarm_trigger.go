package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// 触发类型（对应 alarm_triggers.trigger_type 列）
const (
	TriggerTypeManual       = "manual"
	TriggerTypeScheduled    = "scheduled"
	TriggerTypeEmergency    = "emergency"
	TriggerTypeWeatherAlert = "weather_alert"
)

// AlarmTrigger 报警触发记录（对应 alarm_triggers 表）
// 只由评估/分发路径或显式手动触发创建；只有 acknowledged 会被修改；
// 随父报警级联删除。是"报警已触发"的持久记录，通知分发只是尽力而为的副作用
type AlarmTrigger struct {
	TriggerID      string          `json:"trigger_id" db:"trigger_id"`
	AlarmID        string          `json:"alarm_id" db:"alarm_id"`
	UserID         string          `json:"user_id" db:"user_id"`
	TriggerType    string          `json:"trigger_type" db:"trigger_type"`
	Message        string          `json:"message" db:"message"`
	TriggerData    json.RawMessage `json:"trigger_data,omitempty" db:"trigger_data"`
	Acknowledged   bool            `json:"acknowledged" db:"acknowledged"`
	AcknowledgedAt *time.Time      `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	TriggeredAt    time.Time       `json:"triggered_at" db:"triggered_at"`
}

// RecentTrigger 带报警摘要的触发记录（ListRecentTriggers JOIN 结果）
type RecentTrigger struct {
	AlarmTrigger
	AlarmTitle string `json:"alarm_title" db:"alarm_title"`
	AlarmType  string `json:"alarm_type" db:"alarm_type"`
}

// WeatherTriggerData 天气预警触发的 trigger_data 快照
type WeatherTriggerData struct {
	WeatherAlertID string   `json:"weather_alert_id"`
	Severity       string   `json:"severity"`
	Areas          []string `json:"areas"`
}

// TestTriggerData 测试触发的 trigger_data 标记
type TestTriggerData struct {
	IsTest bool `json:"is_test"`
}

// NewAlarmTrigger 构建触发记录（生成 trigger_id，acknowledged 初始为 false）
func NewAlarmTrigger(alarmID, userID, triggerType, message string, triggerData json.RawMessage, triggeredAt time.Time) *AlarmTrigger {
	return &AlarmTrigger{
		TriggerID:   uuid.New().String(),
		AlarmID:     alarmID,
		UserID:      userID,
		TriggerType: triggerType,
		Message:     message,
		TriggerData: triggerData,
		TriggeredAt: triggeredAt,
	}
}
