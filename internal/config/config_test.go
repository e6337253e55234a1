package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "comunidad", cfg.Database.Database)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)

	assert.Equal(t, "America/Santiago", cfg.Alarm.Timezone)
	assert.Equal(t, 60, cfg.Alarm.TickInterval)
	assert.Equal(t, 45, cfg.Alarm.TickTimeout)
	assert.Equal(t, 50, cfg.Alarm.Evaluation.BatchSize)
	assert.Equal(t, 8, cfg.Alarm.Broadcast.Parallelism)
	assert.Equal(t, []string{"pinto", "cobquecura", "ñuble"}, cfg.Alarm.Weather.AreaKeywords)

	assert.Equal(t, "stream", cfg.Notify.Mode)
	assert.Equal(t, "comunidad:notifications", cfg.Notify.Stream)
	assert.Equal(t, 10, cfg.Notify.PushTimeoutSec)

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("ALARM_TIMEZONE", "UTC")
	t.Setenv("ALARM_TICK_INTERVAL", "30")
	t.Setenv("ALARM_WEATHER_AREAS", "pinto, chillán ,")
	t.Setenv("NOTIFY_MODE", "push")
	t.Setenv("NOTIFY_PUSH_GATEWAY_URL", "http://push.internal:8080")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "UTC", cfg.Alarm.Timezone)
	assert.Equal(t, 30, cfg.Alarm.TickInterval)
	assert.Equal(t, []string{"pinto", "chillán"}, cfg.Alarm.Weather.AreaKeywords)
	assert.Equal(t, "push", cfg.Notify.Mode)
	assert.Equal(t, "http://push.internal:8080", cfg.Notify.PushGatewayURL)
}

func TestLoad_InvalidIntFallsBack(t *testing.T) {
	t.Setenv("ALARM_TICK_INTERVAL", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.Alarm.TickInterval)
}
