package broadcast_test

import (
	"context"
	"encoding/json"
	"testing"

	"comunidad-alarm/internal/broadcast"
	"comunidad-alarm/internal/models"
	"comunidad-alarm/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var localAreaKeywords = []string{"pinto", "cobquecura", "ñuble"}

type weatherFixture struct {
	alerts     map[string]*models.WeatherAlert
	users      *fakeUserStore
	alarms     *fakeAlarmStore
	settings   *fakeSettingsStore
	triggers   *fakeTriggerStore
	dispatcher *fakeDispatcher
	service    *broadcast.WeatherService
}

func (f *weatherFixture) GetWeatherAlert(ctx context.Context, alertID string) (*models.WeatherAlert, error) {
	alert, ok := f.alerts[alertID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return alert, nil
}

func newWeatherFixture(t *testing.T) *weatherFixture {
	t.Helper()
	f := &weatherFixture{
		alerts:     make(map[string]*models.WeatherAlert),
		users:      &fakeUserStore{},
		alarms:     newFakeAlarmStore(),
		settings:   newFakeSettingsStore(),
		triggers:   newFakeTriggerStore(),
		dispatcher: &fakeDispatcher{},
	}
	f.service = broadcast.NewWeatherService(
		f, f.alarms, f.settings, f.triggers, f.users, f.dispatcher,
		localAreaKeywords, zap.NewNop(),
	)
	return f
}

func (f *weatherFixture) addWeatherAlarm(alarmID, userID string, notificationEnabled bool) {
	f.users.users = append(f.users.users, models.User{UserID: userID, Name: userID})
	f.alarms.byType[models.AlarmTypeWeather] = append(f.alarms.byType[models.AlarmTypeWeather], models.Alarm{
		AlarmID:             alarmID,
		UserID:              userID,
		Title:               "Alerta meteorológica",
		AlarmType:           models.AlarmTypeWeather,
		IsActive:            true,
		Priority:            models.PriorityHigh,
		NotificationEnabled: notificationEnabled,
	})
}

func activeAlert(alertID string, areas ...string) *models.WeatherAlert {
	return &models.WeatherAlert{
		AlertID:     alertID,
		Title:       "Viento fuerte",
		Description: "Rachas sobre 80 km/h",
		Severity:    "high",
		AlertType:   "wind",
		Areas:       areas,
		IsActive:    true,
	}
}

func TestTriggerFromAlert_FiresMatchingAlarms(t *testing.T) {
	f := newWeatherFixture(t)
	f.alerts["alert-1"] = activeAlert("alert-1", "Región de Ñuble")
	f.addWeatherAlarm("alarm-1", "user-1", true)
	f.addWeatherAlarm("alarm-2", "user-2", false)

	fired, err := f.service.TriggerFromAlert(context.Background(), "alert-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fired)

	triggers := f.triggers.all()
	require.Len(t, triggers, 1)
	trigger := triggers[0]
	assert.Equal(t, "alarm-1", trigger.AlarmID)
	assert.Equal(t, models.TriggerTypeWeatherAlert, trigger.TriggerType)
	assert.Equal(t, "Viento fuerte: Rachas sobre 80 km/h", trigger.Message)

	var data models.WeatherTriggerData
	require.NoError(t, json.Unmarshal(trigger.TriggerData, &data))
	assert.Equal(t, "alert-1", data.WeatherAlertID)
	assert.Equal(t, "high", data.Severity)
	assert.Equal(t, []string{"Región de Ñuble"}, data.Areas)

	assert.Equal(t, 1, f.dispatcher.sentCount())
	assert.Contains(t, f.alarms.patched, "alarm-1")
}

func TestTriggerFromAlert_AreaMatchIsCaseInsensitiveSubstring(t *testing.T) {
	f := newWeatherFixture(t)
	f.addWeatherAlarm("alarm-1", "user-1", true)

	tests := []struct {
		name  string
		areas []string
		fired int
	}{
		{"exact keyword", []string{"pinto"}, 1},
		{"uppercase", []string{"PINTO"}, 1},
		{"substring of larger name", []string{"Comuna de Cobquecura"}, 1},
		{"unrelated region", []string{"Santiago", "Valparaíso"}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f.triggers.triggers = nil
			f.alerts["alert-1"] = activeAlert("alert-1", tt.areas...)

			fired, err := f.service.TriggerFromAlert(context.Background(), "alert-1")
			require.NoError(t, err)
			assert.Equal(t, tt.fired, fired)
		})
	}
}

func TestTriggerFromAlert_InactiveAlertIsNoop(t *testing.T) {
	f := newWeatherFixture(t)
	alert := activeAlert("alert-1", "Pinto")
	alert.IsActive = false
	f.alerts["alert-1"] = alert
	f.addWeatherAlarm("alarm-1", "user-1", true)

	fired, err := f.service.TriggerFromAlert(context.Background(), "alert-1")
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
	assert.Empty(t, f.triggers.all())
}

func TestTriggerFromAlert_UnknownAlertReturnsError(t *testing.T) {
	f := newWeatherFixture(t)

	_, err := f.service.TriggerFromAlert(context.Background(), "missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

// 天气路径的闸门只看通知开关，免打扰时段不参与判断——
// 固定这一行为，改动它属于语义变更
func TestTriggerFromAlert_IgnoresQuietHours(t *testing.T) {
	f := newWeatherFixture(t)
	f.alerts["alert-1"] = activeAlert("alert-1", "Pinto")
	f.addWeatherAlarm("alarm-1", "user-1", true)
	f.settings.settings["user-1"] = &models.AlarmSettings{
		UserID:                    "user-1",
		GlobalNotificationEnabled: true,
		QuietHours: &models.QuietHours{
			Enabled:    true,
			StartTime:  "00:00",
			EndTime:    "23:59",
			DaysOfWeek: []int{0, 1, 2, 3, 4, 5, 6},
		},
	}

	fired, err := f.service.TriggerFromAlert(context.Background(), "alert-1")
	require.NoError(t, err)
	assert.Equal(t, 1, fired)
}

func TestTriggerFromAlert_GlobalNotificationOffSkips(t *testing.T) {
	f := newWeatherFixture(t)
	f.alerts["alert-1"] = activeAlert("alert-1", "Pinto")
	f.addWeatherAlarm("alarm-1", "user-1", true)
	f.settings.settings["user-1"] = &models.AlarmSettings{
		UserID:             "user-1",
		GlobalSoundEnabled: true,
	}

	fired, err := f.service.TriggerFromAlert(context.Background(), "alert-1")
	require.NoError(t, err)
	assert.Equal(t, 0, fired)
}
