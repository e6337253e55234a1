package evaluator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"comunidad-alarm/internal/models"
	"comunidad-alarm/internal/repository"

	"go.uber.org/zap"
)

// AlarmStore 评估路径需要的报警读写
type AlarmStore interface {
	// ListActiveScheduledAlarms 列出所有带调度窗口的活跃报警
	ListActiveScheduledAlarms(ctx context.Context) ([]models.Alarm, error)
	// MarkTriggered 条件刷新 last_triggered，窗口内已触发过时返回 false
	MarkTriggered(ctx context.Context, alarmID string, now time.Time, window time.Duration) (bool, error)
}

// SettingsStore 用户设置读取
type SettingsStore interface {
	GetSettings(ctx context.Context, userID string) (*models.AlarmSettings, error)
}

// TriggerStore 触发记录写入
type TriggerStore interface {
	CreateTrigger(ctx context.Context, trigger *models.AlarmTrigger) error
}

// UserStore 用户读取（通知分发需要收件人信息）
type UserStore interface {
	GetUser(ctx context.Context, userID string) (*models.User, error)
}

// Dispatcher 通知分发（fire-and-forget，失败不回滚已落库的触发记录）
type Dispatcher interface {
	Send(ctx context.Context, trigger *models.AlarmTrigger, user *models.User) error
}

// Evaluator 调度报警评估器（每个 tick 扫描一遍所有带窗口的活跃报警）
type Evaluator struct {
	alarms     AlarmStore
	settings   SettingsStore
	triggers   TriggerStore
	users      UserStore
	dispatcher Dispatcher
	location   *time.Location
	batchSize  int
	logger     *zap.Logger
}

// NewEvaluator 创建评估器
// location 是社区本地时区；调度窗口和免打扰时段都按这个时区的挂钟判断
func NewEvaluator(
	alarms AlarmStore,
	settings SettingsStore,
	triggers TriggerStore,
	users UserStore,
	dispatcher Dispatcher,
	location *time.Location,
	batchSize int,
	logger *zap.Logger,
) *Evaluator {
	if location == nil {
		location = time.Local
	}
	if batchSize <= 0 {
		batchSize = 50
	}
	return &Evaluator{
		alarms:     alarms,
		settings:   settings,
		triggers:   triggers,
		users:      users,
		dispatcher: dispatcher,
		location:   location,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// EvaluateTick 执行一次评估，返回本次触发的报警数
// 单条报警的失败只记录日志并跳过，不影响其余报警；
// 只有初始的报警列表读取失败才返回错误（没有列表就无事可做）
func (e *Evaluator) EvaluateTick(ctx context.Context, now time.Time) (int, error) {
	alarms, err := e.alarms.ListActiveScheduledAlarms(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list scheduled alarms: %w", err)
	}

	localNow := now.In(e.location)
	nowHHMM := WallClock(localNow)
	nowWeekday := int(localNow.Weekday())

	e.logger.Debug("Evaluating scheduled alarms",
		zap.Int("alarm_count", len(alarms)),
		zap.String("wall_clock", nowHHMM),
		zap.Int("weekday", nowWeekday),
	)

	fired := 0
	for i := 0; i < len(alarms); i += e.batchSize {
		end := i + e.batchSize
		if end > len(alarms) {
			end = len(alarms)
		}

		for j := i; j < end; j++ {
			select {
			case <-ctx.Done():
				e.logger.Warn("Tick evaluation interrupted",
					zap.Int("evaluated", j),
					zap.Int("total", len(alarms)),
					zap.Error(ctx.Err()),
				)
				return fired, nil
			default:
			}

			if e.evaluateAlarm(ctx, &alarms[j], now, nowHHMM, nowWeekday) {
				fired++
			}
		}
	}

	return fired, nil
}

// evaluateAlarm 评估单条报警，触发成功返回 true
func (e *Evaluator) evaluateAlarm(ctx context.Context, alarm *models.Alarm, now time.Time, nowHHMM string, nowWeekday int) bool {
	// 列表查询已过滤，这里兜底：无窗口的报警不参与调度触发
	if alarm.Schedule == nil {
		return false
	}

	if !ScheduleMatches(alarm.Schedule, nowHHMM, nowWeekday) {
		return false
	}

	if IsDuplicate(alarm.LastTriggered, now) {
		return false
	}

	settings, err := e.settings.GetSettings(ctx, alarm.UserID)
	if err != nil {
		if !errors.Is(err, repository.ErrNotFound) {
			e.logger.Error("Failed to load alarm settings, skipping alarm",
				zap.String("alarm_id", alarm.AlarmID),
				zap.String("user_id", alarm.UserID),
				zap.Error(err),
			)
			return false
		}
		settings = models.DefaultSettings(alarm.UserID)
	}

	// 免打扰命中时整体跳过：不落库、不通知
	if ShouldSuppress(settings, alarm.Priority, nowHHMM, nowWeekday) {
		e.logger.Debug("Alarm suppressed by quiet hours",
			zap.String("alarm_id", alarm.AlarmID),
			zap.String("priority", alarm.Priority),
		)
		return false
	}

	flags := EffectiveChannels(settings, alarm)
	if !flags.Any() {
		return false
	}

	// 存储层条件更新是去重的权威闸门：并发评估同一报警时只有一次成功
	claimed, err := e.alarms.MarkTriggered(ctx, alarm.AlarmID, now, DedupWindow)
	if err != nil {
		e.logger.Error("Failed to mark alarm triggered",
			zap.String("alarm_id", alarm.AlarmID),
			zap.Error(err),
		)
		return false
	}
	if !claimed {
		return false
	}

	trigger := models.NewAlarmTrigger(
		alarm.AlarmID,
		alarm.UserID,
		models.TriggerTypeScheduled,
		fmt.Sprintf("Scheduled alarm: %s", alarm.Title),
		nil,
		now,
	)
	if err := e.triggers.CreateTrigger(ctx, trigger); err != nil {
		// last_triggered 已刷新，该报警在去重窗口内不会重试
		e.logger.Error("Failed to create scheduled trigger",
			zap.String("alarm_id", alarm.AlarmID),
			zap.String("trigger_id", trigger.TriggerID),
			zap.Error(err),
		)
		return false
	}

	if flags.Notification {
		e.dispatch(ctx, trigger)
	}

	e.logger.Info("Scheduled alarm fired",
		zap.String("alarm_id", alarm.AlarmID),
		zap.String("trigger_id", trigger.TriggerID),
		zap.String("user_id", alarm.UserID),
	)

	return true
}

// dispatch 分发通知（尽力而为，触发记录已经是事实）
func (e *Evaluator) dispatch(ctx context.Context, trigger *models.AlarmTrigger) {
	user, err := e.users.GetUser(ctx, trigger.UserID)
	if err != nil {
		e.logger.Error("Failed to load user for notification",
			zap.String("trigger_id", trigger.TriggerID),
			zap.String("user_id", trigger.UserID),
			zap.Error(err),
		)
		return
	}

	if err := e.dispatcher.Send(ctx, trigger, user); err != nil {
		e.logger.Error("Failed to dispatch notification",
			zap.String("trigger_id", trigger.TriggerID),
			zap.String("user_id", trigger.UserID),
			zap.Error(err),
		)
	}
}
