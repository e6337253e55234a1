package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"comunidad-alarm/internal/models"

	"go.uber.org/zap"
)

// AlarmRepository 报警仓库
type AlarmRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlarmRepository 创建报警仓库
func NewAlarmRepository(db *sql.DB, logger *zap.Logger) *AlarmRepository {
	return &AlarmRepository{
		db:     db,
		logger: logger,
	}
}

const alarmColumns = `
	alarm_id,
	user_id,
	title,
	description,
	alarm_type,
	is_active,
	is_recurring,
	schedule,
	sound_enabled,
	vibration_enabled,
	notification_enabled,
	priority,
	last_triggered,
	created_at,
	updated_at
`

// scanAlarm 扫描单行报警记录（处理可空的 schedule/last_triggered）
func scanAlarm(row interface {
	Scan(dest ...interface{}) error
}) (*models.Alarm, error) {
	var alarm models.Alarm
	var scheduleJSON []byte
	var lastTriggered sql.NullTime

	err := row.Scan(
		&alarm.AlarmID,
		&alarm.UserID,
		&alarm.Title,
		&alarm.Description,
		&alarm.AlarmType,
		&alarm.IsActive,
		&alarm.IsRecurring,
		&scheduleJSON,
		&alarm.SoundEnabled,
		&alarm.VibrationEnabled,
		&alarm.NotificationEnabled,
		&alarm.Priority,
		&lastTriggered,
		&alarm.CreatedAt,
		&alarm.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(scheduleJSON) > 0 {
		var schedule models.Schedule
		if err := json.Unmarshal(scheduleJSON, &schedule); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schedule: %w", err)
		}
		alarm.Schedule = &schedule
	}
	if lastTriggered.Valid {
		alarm.LastTriggered = &lastTriggered.Time
	}

	return &alarm, nil
}

// marshalSchedule 序列化调度窗口（nil 写入 SQL NULL）
func marshalSchedule(schedule *models.Schedule) (interface{}, error) {
	if schedule == nil {
		return nil, nil
	}
	data, err := json.Marshal(schedule)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schedule: %w", err)
	}
	return data, nil
}

// ============================================
// 查询
// ============================================

// GetAlarm 根据 alarm_id 获取单条报警
func (r *AlarmRepository) GetAlarm(ctx context.Context, alarmID string) (*models.Alarm, error) {
	if alarmID == "" {
		return nil, fmt.Errorf("alarm_id is required")
	}

	query := fmt.Sprintf(`SELECT %s FROM alarms WHERE alarm_id = $1`, alarmColumns)

	alarm, err := scanAlarm(r.db.QueryRowContext(ctx, query, alarmID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("alarm %s: %w", alarmID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alarm: %w", err)
	}

	return alarm, nil
}

// ListAlarmsByUser 获取用户的全部报警
func (r *AlarmRepository) ListAlarmsByUser(ctx context.Context, userID string) ([]models.Alarm, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM alarms
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, alarmColumns)

	return r.queryAlarms(ctx, query, userID)
}

// ListActiveScheduledAlarms 获取所有带调度窗口的活跃报警（tick 评估的输入）
// 没有 schedule 的报警只能手动触发，这里直接过滤掉
func (r *AlarmRepository) ListActiveScheduledAlarms(ctx context.Context) ([]models.Alarm, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM alarms
		WHERE is_active = true
		  AND schedule IS NOT NULL
		ORDER BY alarm_id
	`, alarmColumns)

	return r.queryAlarms(ctx, query)
}

// ListActiveAlarmsByType 获取指定类型的活跃报警
func (r *AlarmRepository) ListActiveAlarmsByType(ctx context.Context, alarmType string) ([]models.Alarm, error) {
	if alarmType == "" {
		return nil, fmt.Errorf("alarm_type is required")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM alarms
		WHERE is_active = true
		  AND alarm_type = $1
		ORDER BY alarm_id
	`, alarmColumns)

	return r.queryAlarms(ctx, query, alarmType)
}

// GetUserEmergencyAlarm 获取用户的活跃紧急报警（每个用户最多一条参与广播）
func (r *AlarmRepository) GetUserEmergencyAlarm(ctx context.Context, userID string) (*models.Alarm, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := fmt.Sprintf(`
		SELECT %s FROM alarms
		WHERE user_id = $1
		  AND alarm_type = $2
		  AND is_active = true
		ORDER BY created_at
		LIMIT 1
	`, alarmColumns)

	alarm, err := scanAlarm(r.db.QueryRowContext(ctx, query, userID, models.AlarmTypeEmergency))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("emergency alarm for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get emergency alarm: %w", err)
	}

	return alarm, nil
}

func (r *AlarmRepository) queryAlarms(ctx context.Context, query string, args ...interface{}) ([]models.Alarm, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alarms: %w", err)
	}
	defer rows.Close()

	var alarms []models.Alarm
	for rows.Next() {
		alarm, err := scanAlarm(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alarm: %w", err)
		}
		alarms = append(alarms, *alarm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alarms: %w", err)
	}

	return alarms, nil
}

// ============================================
// 写入
// ============================================

// CreateAlarm 创建报警
func (r *AlarmRepository) CreateAlarm(ctx context.Context, alarm *models.Alarm) error {
	if alarm == nil {
		return fmt.Errorf("alarm is required")
	}
	if alarm.AlarmID == "" {
		return fmt.Errorf("alarm_id is required")
	}
	if alarm.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	scheduleValue, err := marshalSchedule(alarm.Schedule)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO alarms (
			alarm_id,
			user_id,
			title,
			description,
			alarm_type,
			is_active,
			is_recurring,
			schedule,
			sound_enabled,
			vibration_enabled,
			notification_enabled,
			priority,
			last_triggered,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15
		)
	`

	_, err = r.db.ExecContext(ctx, query,
		alarm.AlarmID,
		alarm.UserID,
		alarm.Title,
		alarm.Description,
		alarm.AlarmType,
		alarm.IsActive,
		alarm.IsRecurring,
		scheduleValue,
		alarm.SoundEnabled,
		alarm.VibrationEnabled,
		alarm.NotificationEnabled,
		alarm.Priority,
		alarm.LastTriggered,
		alarm.CreatedAt,
		alarm.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alarm: %w", err)
	}

	return nil
}

// UpdateAlarm 部分更新报警
// updates 是字段到新值的映射；schedule 传 *models.Schedule（nil 表示清空）
func (r *AlarmRepository) UpdateAlarm(ctx context.Context, alarmID string, updates map[string]interface{}) error {
	if alarmID == "" {
		return fmt.Errorf("alarm_id is required")
	}
	if len(updates) == 0 {
		return fmt.Errorf("updates cannot be empty")
	}

	// 允许更新的字段
	allowedFields := map[string]bool{
		"title":                true,
		"description":          true,
		"alarm_type":           true,
		"is_active":            true,
		"is_recurring":         true,
		"schedule":             true,
		"sound_enabled":        true,
		"vibration_enabled":    true,
		"notification_enabled": true,
		"priority":             true,
	}

	setParts := []string{}
	args := []interface{}{}
	argN := 1

	for field, value := range updates {
		if !allowedFields[field] {
			return fmt.Errorf("field '%s' is not allowed to update", field)
		}
		if field == "schedule" {
			schedule, ok := value.(*models.Schedule)
			if !ok && value != nil {
				return fmt.Errorf("schedule must be *models.Schedule")
			}
			scheduleValue, err := marshalSchedule(schedule)
			if err != nil {
				return err
			}
			value = scheduleValue
		}
		setParts = append(setParts, fmt.Sprintf("%s = $%d", field, argN))
		args = append(args, value)
		argN++
	}

	setParts = append(setParts, "updated_at = CURRENT_TIMESTAMP")
	args = append(args, alarmID)

	query := fmt.Sprintf(`
		UPDATE alarms
		SET %s
		WHERE alarm_id = $%d
	`, strings.Join(setParts, ", "), argN)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update alarm: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("alarm %s: %w", alarmID, ErrNotFound)
	}

	return nil
}

// SetActive 切换报警启用状态
func (r *AlarmRepository) SetActive(ctx context.Context, alarmID string, isActive bool) error {
	return r.UpdateAlarm(ctx, alarmID, map[string]interface{}{
		"is_active": isActive,
	})
}

// DeleteAlarm 删除报警及其全部触发记录（同一事务内先删子后删父）
func (r *AlarmRepository) DeleteAlarm(ctx context.Context, alarmID string) error {
	if alarmID == "" {
		return fmt.Errorf("alarm_id is required")
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM alarm_triggers WHERE alarm_id = $1`, alarmID,
	); err != nil {
		return fmt.Errorf("failed to delete alarm triggers: %w", err)
	}

	result, err := tx.ExecContext(ctx,
		`DELETE FROM alarms WHERE alarm_id = $1`, alarmID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete alarm: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("alarm %s: %w", alarmID, ErrNotFound)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// PatchLastTriggered 无条件刷新 last_triggered（手动触发、紧急广播、天气路径）
func (r *AlarmRepository) PatchLastTriggered(ctx context.Context, alarmID string, triggeredAt time.Time) error {
	if alarmID == "" {
		return fmt.Errorf("alarm_id is required")
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE alarms
		SET last_triggered = $1, updated_at = CURRENT_TIMESTAMP
		WHERE alarm_id = $2
	`, triggeredAt, alarmID)
	if err != nil {
		return fmt.Errorf("failed to patch last_triggered: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("alarm %s: %w", alarmID, ErrNotFound)
	}

	return nil
}

// MarkTriggered 条件刷新 last_triggered（tick 路径的去重闸门）
// 只有当 last_triggered 为空、或距 now 已超过 window 时才写入并返回 true；
// 条件在存储层判断，两次并发评估同一报警时最多一次成功，
// 即使 tick 被重复投递去重约束仍然成立
func (r *AlarmRepository) MarkTriggered(ctx context.Context, alarmID string, now time.Time, window time.Duration) (bool, error) {
	if alarmID == "" {
		return false, fmt.Errorf("alarm_id is required")
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE alarms
		SET last_triggered = $1, updated_at = CURRENT_TIMESTAMP
		WHERE alarm_id = $2
		  AND (last_triggered IS NULL OR last_triggered <= $3)
	`, now, alarmID, now.Add(-window))
	if err != nil {
		return false, fmt.Errorf("failed to mark alarm triggered: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}
