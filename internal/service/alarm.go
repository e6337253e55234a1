package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"comunidad-alarm/internal/broadcast"
	"comunidad-alarm/internal/config"
	"comunidad-alarm/internal/evaluator"
	"comunidad-alarm/internal/notifier"
	"comunidad-alarm/internal/repository"
	"comunidad-alarm/pkg/database"
	rediscommon "comunidad-alarm/pkg/redis"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// AlarmService 报警调度服务（整合各层）
type AlarmService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	// 各层组件
	alarmRepo        *repository.AlarmRepository
	settingsRepo     *repository.AlarmSettingsRepository
	triggerRepo      *repository.AlarmTriggerRepository
	userRepo         *repository.UserRepository
	weatherAlertRepo *repository.WeatherAlertRepository
	dispatcher       notifier.Dispatcher
	evaluator        *evaluator.Evaluator
	scheduler        *TickScheduler
	emergency        *broadcast.EmergencyService
	weather          *broadcast.WeatherService
	triggers         *TriggerService
	admin            *AlarmAdminService
}

// NewAlarmService 创建报警调度服务
func NewAlarmService(cfg *config.Config, logger *zap.Logger) (*AlarmService, error) {
	// 1. 连接数据库
	db, err := database.NewPostgresDB(&cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// 2. 解析本地时区
	location, err := time.LoadLocation(cfg.Alarm.Timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load timezone %q: %w", cfg.Alarm.Timezone, err)
	}

	// 3. 通知分发通道（stream 模式需要 Redis）
	var redisClient *redis.Client
	var dispatcher notifier.Dispatcher
	switch cfg.Notify.Mode {
	case "stream":
		redisClient = rediscommon.NewRedisClient(&cfg.Redis)
		if err := rediscommon.Ping(context.Background(), redisClient); err != nil {
			return nil, fmt.Errorf("failed to ping redis: %w", err)
		}
		dispatcher = notifier.NewStreamDispatcher(redisClient, cfg.Notify.Stream, logger)
	case "push":
		if cfg.Notify.PushGatewayURL == "" {
			return nil, fmt.Errorf("NOTIFY_PUSH_GATEWAY_URL is required in push mode")
		}
		dispatcher = notifier.NewPushDispatcher(
			cfg.Notify.PushGatewayURL,
			time.Duration(cfg.Notify.PushTimeoutSec)*time.Second,
			logger,
		)
	default:
		dispatcher = notifier.NewNopDispatcher(logger)
	}

	// 4. 创建 Repository 层
	alarmRepo := repository.NewAlarmRepository(db, logger)
	settingsRepo := repository.NewAlarmSettingsRepository(db, logger)
	triggerRepo := repository.NewAlarmTriggerRepository(db, logger)
	userRepo := repository.NewUserRepository(db, logger)
	weatherAlertRepo := repository.NewWeatherAlertRepository(db, logger)

	// 5. 创建评估器和调度器
	eval := evaluator.NewEvaluator(
		alarmRepo,
		settingsRepo,
		triggerRepo,
		userRepo,
		dispatcher,
		location,
		cfg.Alarm.Evaluation.BatchSize,
		logger,
	)
	scheduler := NewTickScheduler(
		eval,
		time.Duration(cfg.Alarm.TickInterval)*time.Second,
		time.Duration(cfg.Alarm.TickTimeout)*time.Second,
		logger,
	)

	// 6. 创建广播路径
	emergency := broadcast.NewEmergencyService(
		userRepo,
		alarmRepo,
		settingsRepo,
		triggerRepo,
		dispatcher,
		cfg.Alarm.Broadcast.Parallelism,
		logger,
	)
	weather := broadcast.NewWeatherService(
		weatherAlertRepo,
		alarmRepo,
		settingsRepo,
		triggerRepo,
		userRepo,
		dispatcher,
		cfg.Alarm.Weather.AreaKeywords,
		logger,
	)

	// 7. 创建宿主入口服务
	triggers := NewTriggerService(alarmRepo, triggerRepo, settingsRepo, userRepo, dispatcher, logger)
	admin := NewAlarmAdminService(alarmRepo, logger)

	return &AlarmService{
		config:           cfg,
		db:               db,
		redisClient:      redisClient,
		logger:           logger,
		alarmRepo:        alarmRepo,
		settingsRepo:     settingsRepo,
		triggerRepo:      triggerRepo,
		userRepo:         userRepo,
		weatherAlertRepo: weatherAlertRepo,
		dispatcher:       dispatcher,
		evaluator:        eval,
		scheduler:        scheduler,
		emergency:        emergency,
		weather:          weather,
		triggers:         triggers,
		admin:            admin,
	}, nil
}

// Start 启动服务（阻塞运行 tick 调度循环直到 ctx 取消）
func (s *AlarmService) Start(ctx context.Context) error {
	s.logger.Info("Starting alarm service",
		zap.String("timezone", s.config.Alarm.Timezone),
		zap.String("notify_mode", s.config.Notify.Mode),
	)

	return s.scheduler.Run(ctx)
}

// Stop 停止服务
func (s *AlarmService) Stop() error {
	s.logger.Info("Stopping alarm service")

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	if s.redisClient != nil {
		if err := rediscommon.Close(s.redisClient); err != nil {
			s.logger.Error("Failed to close redis",
				zap.Error(err),
			)
		}
	}

	return nil
}

// Emergency 紧急广播入口（管理端同步调用）
func (s *AlarmService) Emergency() *broadcast.EmergencyService {
	return s.emergency
}

// Weather 天气预警触发入口（天气采集侧同步调用）
func (s *AlarmService) Weather() *broadcast.WeatherService {
	return s.weather
}

// Triggers 触发与设置入口（宿主应用调用）
func (s *AlarmService) Triggers() *TriggerService {
	return s.triggers
}

// Admin 报警管理入口（宿主应用调用）
func (s *AlarmService) Admin() *AlarmAdminService {
	return s.admin
}
