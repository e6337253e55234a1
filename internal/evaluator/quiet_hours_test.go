package evaluator_test

import (
	"testing"

	"comunidad-alarm/internal/evaluator"
	"comunidad-alarm/internal/models"

	"github.com/stretchr/testify/assert"
)

func settingsWithQuietHours(override bool) *models.AlarmSettings {
	return &models.AlarmSettings{
		UserID:                    "user-1",
		GlobalSoundEnabled:        true,
		GlobalVibrationEnabled:    true,
		GlobalNotificationEnabled: true,
		EmergencyOverride:         override,
		QuietHours: &models.QuietHours{
			Enabled:    true,
			StartTime:  "22:00",
			EndTime:    "23:59",
			DaysOfWeek: []int{0, 1, 2, 3, 4, 5, 6},
		},
	}
}

func TestShouldSuppress(t *testing.T) {
	tests := []struct {
		name     string
		settings *models.AlarmSettings
		priority string
		nowHHMM  string
		weekday  int
		want     bool
	}{
		{"nil settings", nil, models.PriorityHigh, "22:30", 1, false},
		{"quiet hours missing", models.DefaultSettings("user-1"), models.PriorityHigh, "22:30", 1, false},
		{
			"disabled quiet hours",
			&models.AlarmSettings{QuietHours: &models.QuietHours{
				Enabled: false, StartTime: "22:00", EndTime: "23:59", DaysOfWeek: []int{1},
			}},
			models.PriorityHigh, "22:30", 1, false,
		},
		{"high inside window suppressed", settingsWithQuietHours(true), models.PriorityHigh, "22:30", 1, true},
		{"medium inside window suppressed", settingsWithQuietHours(true), models.PriorityMedium, "22:30", 1, true},
		{"critical with override passes", settingsWithQuietHours(true), models.PriorityCritical, "22:30", 1, false},
		{"critical without override suppressed", settingsWithQuietHours(false), models.PriorityCritical, "22:30", 1, true},
		{"outside window not suppressed", settingsWithQuietHours(true), models.PriorityHigh, "21:59", 1, false},
		{
			"weekday not in quiet days",
			&models.AlarmSettings{QuietHours: &models.QuietHours{
				Enabled: true, StartTime: "22:00", EndTime: "23:59", DaysOfWeek: []int{0, 6},
			}},
			models.PriorityHigh, "22:30", 2, false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, evaluator.ShouldSuppress(tt.settings, tt.priority, tt.nowHHMM, tt.weekday))
		})
	}
}

func TestEffectiveChannels(t *testing.T) {
	alarm := &models.Alarm{
		UserID:              "user-1",
		SoundEnabled:        true,
		VibrationEnabled:    false,
		NotificationEnabled: true,
	}

	t.Run("and combination of global and per-alarm flags", func(t *testing.T) {
		settings := &models.AlarmSettings{
			GlobalSoundEnabled:        false,
			GlobalVibrationEnabled:    true,
			GlobalNotificationEnabled: true,
		}
		flags := evaluator.EffectiveChannels(settings, alarm)
		assert.False(t, flags.Sound, "global off wins over per-alarm on")
		assert.False(t, flags.Vibration, "per-alarm off wins over global on")
		assert.True(t, flags.Notification)
		assert.True(t, flags.Any())
	})

	t.Run("nil settings defaults to all enabled", func(t *testing.T) {
		flags := evaluator.EffectiveChannels(nil, alarm)
		assert.True(t, flags.Sound)
		assert.False(t, flags.Vibration)
		assert.True(t, flags.Notification)
	})

	t.Run("no channel available", func(t *testing.T) {
		settings := &models.AlarmSettings{}
		flags := evaluator.EffectiveChannels(settings, alarm)
		assert.False(t, flags.Any())
	})
}
