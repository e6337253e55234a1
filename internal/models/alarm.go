package models

import (
	"time"
)

// 报警类型（对应 alarms.alarm_type 列）
const (
	AlarmTypeEmergency   = "emergency"
	AlarmTypeWeather     = "weather"
	AlarmTypeCommunity   = "community"
	AlarmTypeMaintenance = "maintenance"
	AlarmTypeSecurity    = "security"
	AlarmTypeMedical     = "medical"
	AlarmTypeFire        = "fire"
	AlarmTypeCustom      = "custom"
)

// 报警优先级（只有 critical 可以突破免打扰时段）
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Schedule 报警调度窗口（alarms.schedule JSONB 结构）
// StartTime/EndTime 为零填充的 "HH:MM" 挂钟字符串，比较时直接使用
// 字典序（定宽字符串下等价于数值比较）
// DaysOfWeek 为星期集合（0=周日 .. 6=周六）；nil 表示每天都生效，
// 空数组表示任何一天都不生效
type Schedule struct {
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	DaysOfWeek []int  `json:"days_of_week,omitempty"`
}

// Alarm 用户报警（对应 alarms 表）
// 非周期报警可以没有 Schedule（只能手动触发）
type Alarm struct {
	AlarmID             string     `json:"alarm_id" db:"alarm_id"`
	UserID              string     `json:"user_id" db:"user_id"`
	Title               string     `json:"title" db:"title"`
	Description         string     `json:"description" db:"description"`
	AlarmType           string     `json:"alarm_type" db:"alarm_type"`
	IsActive            bool       `json:"is_active" db:"is_active"`
	IsRecurring         bool       `json:"is_recurring" db:"is_recurring"`
	Schedule            *Schedule  `json:"schedule,omitempty" db:"schedule"`
	SoundEnabled        bool       `json:"sound_enabled" db:"sound_enabled"`
	VibrationEnabled    bool       `json:"vibration_enabled" db:"vibration_enabled"`
	NotificationEnabled bool       `json:"notification_enabled" db:"notification_enabled"`
	Priority            string     `json:"priority" db:"priority"`
	LastTriggered       *time.Time `json:"last_triggered,omitempty" db:"last_triggered"`
	CreatedAt           time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at" db:"updated_at"`
}

// ValidAlarmType 检查报警类型是否合法
func ValidAlarmType(alarmType string) bool {
	switch alarmType {
	case AlarmTypeEmergency, AlarmTypeWeather, AlarmTypeCommunity,
		AlarmTypeMaintenance, AlarmTypeSecurity, AlarmTypeMedical,
		AlarmTypeFire, AlarmTypeCustom:
		return true
	}
	return false
}

// ValidPriority 检查优先级是否合法
func ValidPriority(priority string) bool {
	switch priority {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
