package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"comunidad-alarm/internal/models"

	"go.uber.org/zap"
)

// AlarmSettingsRepository 用户报警设置仓库（每用户一条，lazy 创建）
type AlarmSettingsRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAlarmSettingsRepository 创建用户报警设置仓库
func NewAlarmSettingsRepository(db *sql.DB, logger *zap.Logger) *AlarmSettingsRepository {
	return &AlarmSettingsRepository{
		db:     db,
		logger: logger,
	}
}

// GetSettings 获取用户设置
// 用户还没有写过设置时返回 ErrNotFound，调用方按 DefaultSettings 的
// 全开语义处理
func (r *AlarmSettingsRepository) GetSettings(ctx context.Context, userID string) (*models.AlarmSettings, error) {
	if userID == "" {
		return nil, fmt.Errorf("user_id is required")
	}

	query := `
		SELECT
			settings_id,
			user_id,
			global_sound_enabled,
			global_vibration_enabled,
			global_notification_enabled,
			quiet_hours,
			emergency_override,
			created_at,
			updated_at
		FROM alarm_settings
		WHERE user_id = $1
	`

	var settings models.AlarmSettings
	var quietHoursJSON []byte

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.SettingsID,
		&settings.UserID,
		&settings.GlobalSoundEnabled,
		&settings.GlobalVibrationEnabled,
		&settings.GlobalNotificationEnabled,
		&quietHoursJSON,
		&settings.EmergencyOverride,
		&settings.CreatedAt,
		&settings.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("alarm settings for user %s: %w", userID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get alarm settings: %w", err)
	}

	if len(quietHoursJSON) > 0 {
		var quietHours models.QuietHours
		if err := json.Unmarshal(quietHoursJSON, &quietHours); err != nil {
			return nil, fmt.Errorf("failed to unmarshal quiet hours: %w", err)
		}
		settings.QuietHours = &quietHours
	}

	return &settings, nil
}

// UpsertSettings 写入用户设置（首次写入时创建记录）
func (r *AlarmSettingsRepository) UpsertSettings(ctx context.Context, settings *models.AlarmSettings) error {
	if settings == nil {
		return fmt.Errorf("settings is required")
	}
	if settings.SettingsID == "" {
		return fmt.Errorf("settings_id is required")
	}
	if settings.UserID == "" {
		return fmt.Errorf("user_id is required")
	}

	var quietHoursValue interface{}
	if settings.QuietHours != nil {
		data, err := json.Marshal(settings.QuietHours)
		if err != nil {
			return fmt.Errorf("failed to marshal quiet hours: %w", err)
		}
		quietHoursValue = data
	}

	query := `
		INSERT INTO alarm_settings (
			settings_id,
			user_id,
			global_sound_enabled,
			global_vibration_enabled,
			global_notification_enabled,
			quiet_hours,
			emergency_override,
			created_at,
			updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9
		)
		ON CONFLICT (user_id) DO UPDATE SET
			global_sound_enabled = EXCLUDED.global_sound_enabled,
			global_vibration_enabled = EXCLUDED.global_vibration_enabled,
			global_notification_enabled = EXCLUDED.global_notification_enabled,
			quiet_hours = EXCLUDED.quiet_hours,
			emergency_override = EXCLUDED.emergency_override,
			updated_at = CURRENT_TIMESTAMP
	`

	_, err := r.db.ExecContext(ctx, query,
		settings.SettingsID,
		settings.UserID,
		settings.GlobalSoundEnabled,
		settings.GlobalVibrationEnabled,
		settings.GlobalNotificationEnabled,
		quietHoursValue,
		settings.EmergencyOverride,
		settings.CreatedAt,
		settings.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to upsert alarm settings: %w", err)
	}

	return nil
}
