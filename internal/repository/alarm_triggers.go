package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"comunidad-alarm/internal/models"

	"go.uber.org/zap"
)

// AlarmTriggerRepository 报警触发记录仓库
type AlarmTriggerRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlarmTriggerRepository 创建报警触发记录仓库
func NewAlarmTriggerRepository(db *sql.DB, logger *zap.Logger) *AlarmTriggerRepository {
	return &AlarmTriggerRepository{
		db:     db,
		logger: logger,
	}
}

// CreateTrigger 写入触发记录
func (r *AlarmTriggerRepository) CreateTrigger(ctx context.Context, trigger *models.AlarmTrigger) error {
	if trigger == nil {
		return fmt.Errorf("trigger is required")
	}
	if trigger.TriggerID == "" {
		return fmt.Errorf("trigger_id is required")
	}
	if trigger.AlarmID == "" {
		return fmt.Errorf("alarm_id is required")
	}
	if trigger.UserID == "" {
		return fmt.Errorf("user_id is required")
	}
	if trigger.TriggeredAt.IsZero() {
		return fmt.Errorf("triggered_at is required")
	}

	var triggerDataValue interface{}
	if len(trigger.TriggerData) > 0 {
		triggerDataValue = []byte(trigger.TriggerData)
	}

	query := `
		INSERT INTO alarm_triggers (
			trigger_id,
			alarm_id,
			user_id,
			trigger_type,
			message,
			trigger_data,
			acknowledged,
			acknowledged_at,
			triggered_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
	`

	_, err := r.db.ExecContext(ctx, query,
		trigger.TriggerID,
		trigger.AlarmID,
		trigger.UserID,
		trigger.TriggerType,
		trigger.Message,
		triggerDataValue,
		trigger.Acknowledged,
		trigger.AcknowledgedAt,
		trigger.TriggeredAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create alarm trigger: %w", err)
	}

	return nil
}

// GetTrigger 根据 trigger_id 获取触发记录
func (r *AlarmTriggerRepository) GetTrigger(ctx context.Context, triggerID string) (*models.AlarmTrigger, error) {
	if triggerID == "" {
		return nil, fmt.Errorf("trigger_id is required")
	}

	query := `
		SELECT
			trigger_id,
			alarm_id,
			user_id,
			trigger_type,
			message,
			trigger_data,
			acknowledged,
			acknowledged_at,
			triggered_at
		FROM alarm_triggers
		WHERE trigger_id = $1
	`

	var trigger models.AlarmTrigger
	var triggerData []byte
	var acknowledgedAt sql.NullTime

	err := r.db.QueryRowContext(ctx, query, triggerID).Scan(
		&trigger.TriggerID,
		&trigger.AlarmID,
		&trigger.UserID,
		&trigger.TriggerType,
		&trigger.Message,
		&triggerData,
		&trigger.Acknowledged,
		&acknowledgedAt,
		&trigger.TriggeredAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("alarm trigger %s: %w", triggerID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alarm trigger: %w", err)
	}

	if len(triggerData) > 0 {
		trigger.TriggerData = json.RawMessage(triggerData)
	}
	if acknowledgedAt.Valid {
		trigger.AcknowledgedAt = &acknowledgedAt.Time
	}

	return &trigger, nil
}

// AcknowledgeTrigger 确认触发记录（幂等）
// acknowledged_at 只在首次确认时写入，重复确认保留首次时间戳
func (r *AlarmTriggerRepository) AcknowledgeTrigger(ctx context.Context, triggerID string) error {
	if triggerID == "" {
		return fmt.Errorf("trigger_id is required")
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE alarm_triggers
		SET acknowledged = true,
		    acknowledged_at = COALESCE(acknowledged_at, CURRENT_TIMESTAMP)
		WHERE trigger_id = $1
	`, triggerID)
	if err != nil {
		return fmt.Errorf("failed to acknowledge alarm trigger: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return fmt.Errorf("alarm trigger %s: %w", triggerID, ErrNotFound)
	}

	return nil
}

// ListRecentTriggers 获取用户最近的触发记录（带报警摘要，新的在前）
// JOIN alarms 自动过滤掉父报警已删除的孤儿记录
func (r *AlarmTriggerRepository) ListRecentTriggers(ctx context.Context, userID string, limit int) ([]models.RecentTrigger, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	query := `
		SELECT
			t.trigger_id,
			t.alarm_id,
			t.user_id,
			t.trigger_type,
			t.message,
			t.trigger_data,
			t.acknowledged,
			t.acknowledged_at,
			t.triggered_at,
			a.title,
			a.alarm_type
		FROM alarm_triggers t
		JOIN alarms a ON a.alarm_id = t.alarm_id
		WHERE t.user_id = $1
		ORDER BY t.triggered_at DESC
		LIMIT $2
	`

	rows, err := r.db.QueryContext(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent triggers: %w", err)
	}
	defer rows.Close()

	var triggers []models.RecentTrigger
	for rows.Next() {
		var trigger models.RecentTrigger
		var triggerData []byte
		var acknowledgedAt sql.NullTime

		err := rows.Scan(
			&trigger.TriggerID,
			&trigger.AlarmID,
			&trigger.UserID,
			&trigger.TriggerType,
			&trigger.Message,
			&triggerData,
			&trigger.Acknowledged,
			&acknowledgedAt,
			&trigger.TriggeredAt,
			&trigger.AlarmTitle,
			&trigger.AlarmType,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan recent trigger: %w", err)
		}

		if len(triggerData) > 0 {
			trigger.TriggerData = json.RawMessage(triggerData)
		}
		if acknowledgedAt.Valid {
			trigger.AcknowledgedAt = &acknowledgedAt.Time
		}

		triggers = append(triggers, trigger)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate recent triggers: %w", err)
	}

	return triggers, nil
}
