package config

import (
	"os"
	"strconv"
	"strings"

	"comunidad-alarm/pkg/database"
	"comunidad-alarm/pkg/redis"
)

// Config 报警调度服务配置
type Config struct {
	Database database.Config
	Redis    redis.Config

	// 报警引擎配置
	Alarm struct {
		// 本地时区（调度窗口和免打扰时段都按这个时区的挂钟判断）
		Timezone string

		// 评估 tick 配置
		TickInterval int // tick 间隔（秒），默认 60秒
		TickTimeout  int // 单次 tick 总超时（秒），默认 45秒

		// 评估配置
		Evaluation struct {
			BatchSize int // 批量评估报警数量，默认 50
		}

		// 紧急广播配置
		Broadcast struct {
			Parallelism int // 并发处理用户数上限，默认 8
		}

		// 天气预警配置
		Weather struct {
			AreaKeywords []string // 识别的本地区域关键字（子串匹配）
		}
	}

	// 通知分发配置
	Notify struct {
		Mode           string // "stream"（Redis Streams）、"push"（HTTP推送网关）或 "none"
		Stream         string // Redis Streams 流名称
		PushGatewayURL string // 推送网关地址
		PushTimeoutSec int    // 推送请求超时（秒），默认 10秒
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = 5432
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "comunidad")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = 0

	// 报警引擎配置
	cfg.Alarm.Timezone = getEnv("ALARM_TIMEZONE", "America/Santiago")
	cfg.Alarm.TickInterval = getEnvInt("ALARM_TICK_INTERVAL", 60)
	cfg.Alarm.TickTimeout = getEnvInt("ALARM_TICK_TIMEOUT", 45)
	cfg.Alarm.Evaluation.BatchSize = getEnvInt("ALARM_EVAL_BATCH_SIZE", 50)
	cfg.Alarm.Broadcast.Parallelism = getEnvInt("ALARM_BROADCAST_PARALLELISM", 8)
	cfg.Alarm.Weather.AreaKeywords = getEnvList("ALARM_WEATHER_AREAS", []string{"pinto", "cobquecura", "ñuble"})

	// 通知分发配置
	cfg.Notify.Mode = getEnv("NOTIFY_MODE", "stream")
	cfg.Notify.Stream = getEnv("NOTIFY_STREAM", "comunidad:notifications")
	cfg.Notify.PushGatewayURL = getEnv("NOTIFY_PUSH_GATEWAY_URL", "")
	cfg.Notify.PushTimeoutSec = getEnvInt("NOTIFY_PUSH_TIMEOUT", 10)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	if len(result) == 0 {
		return defaultValue
	}
	return result
}
