package models

import (
	"time"
)

// QuietHours 免打扰时段（alarm_settings.quiet_hours JSONB 结构）
// 时段内只有 critical 优先级且 EmergencyOverride 为 true 的报警才会触发
type QuietHours struct {
	Enabled    bool   `json:"enabled"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	DaysOfWeek []int  `json:"days_of_week"`
}

// AlarmSettings 用户报警全局设置（对应 alarm_settings 表，每个用户一条）
// 全局开关与单条报警的开关做 AND 组合得到有效通道开关
// 用户没有记录时使用 DefaultSettings 的全开默认值，首次写入时才落库
type AlarmSettings struct {
	SettingsID                string      `json:"settings_id" db:"settings_id"`
	UserID                    string      `json:"user_id" db:"user_id"`
	GlobalSoundEnabled        bool        `json:"global_sound_enabled" db:"global_sound_enabled"`
	GlobalVibrationEnabled    bool        `json:"global_vibration_enabled" db:"global_vibration_enabled"`
	GlobalNotificationEnabled bool        `json:"global_notification_enabled" db:"global_notification_enabled"`
	QuietHours                *QuietHours `json:"quiet_hours,omitempty" db:"quiet_hours"`
	EmergencyOverride         bool        `json:"emergency_override" db:"emergency_override"`
	CreatedAt                 time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt                 time.Time   `json:"updated_at" db:"updated_at"`
}

// DefaultSettings 用户缺省设置（未落库时的语义：全部启用 + 紧急穿透）
func DefaultSettings(userID string) *AlarmSettings {
	return &AlarmSettings{
		UserID:                    userID,
		GlobalSoundEnabled:        true,
		GlobalVibrationEnabled:    true,
		GlobalNotificationEnabled: true,
		EmergencyOverride:         true,
	}
}
