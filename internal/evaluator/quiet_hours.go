package evaluator

import (
	"comunidad-alarm/internal/models"
)

// ShouldSuppress 判断触发是否被免打扰时段压制
// 规则：
//   - settings 或 quiet_hours 缺失/未启用 → false
//   - 当前星期在时段的 DaysOfWeek 中且 startTime <= now <= endTime 时压制，
//     除非报警优先级为 critical 且 EmergencyOverride 为 true
//
// 只有 critical 能穿透；其他字段不影响穿透判断。被压制的报警整体跳过，
// 不产生触发记录
func ShouldSuppress(settings *models.AlarmSettings, priority string, nowHHMM string, nowWeekday int) bool {
	if settings == nil || settings.QuietHours == nil || !settings.QuietHours.Enabled {
		return false
	}

	quietHours := settings.QuietHours
	if !containsDay(quietHours.DaysOfWeek, nowWeekday) {
		return false
	}
	if nowHHMM < quietHours.StartTime || nowHHMM > quietHours.EndTime {
		return false
	}

	// 时段命中：critical + 紧急穿透才放行
	if priority == models.PriorityCritical && settings.EmergencyOverride {
		return false
	}

	return true
}

// ChannelFlags 有效通知通道开关（全局开关 AND 单条报警开关）
type ChannelFlags struct {
	Sound        bool
	Vibration    bool
	Notification bool
}

// Any 是否还有任一通道可用
func (f ChannelFlags) Any() bool {
	return f.Sound || f.Vibration || f.Notification
}

// EffectiveChannels 计算有效通道开关
// settings 为 nil 时按全开默认值处理（用户尚未写入设置）
func EffectiveChannels(settings *models.AlarmSettings, alarm *models.Alarm) ChannelFlags {
	if settings == nil {
		settings = models.DefaultSettings(alarm.UserID)
	}
	return ChannelFlags{
		Sound:        settings.GlobalSoundEnabled && alarm.SoundEnabled,
		Vibration:    settings.GlobalVibrationEnabled && alarm.VibrationEnabled,
		Notification: settings.GlobalNotificationEnabled && alarm.NotificationEnabled,
	}
}
