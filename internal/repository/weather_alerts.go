package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"comunidad-alarm/internal/models"

	"go.uber.org/zap"
)

// WeatherAlertRepository 天气预警仓库（只读，记录由天气采集侧维护）
type WeatherAlertRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewWeatherAlertRepository 创建天气预警仓库
func NewWeatherAlertRepository(db *sql.DB, logger *zap.Logger) *WeatherAlertRepository {
	return &WeatherAlertRepository{
		db:     db,
		logger: logger,
	}
}

// GetWeatherAlert 根据 alert_id 获取天气预警
func (r *WeatherAlertRepository) GetWeatherAlert(ctx context.Context, alertID string) (*models.WeatherAlert, error) {
	if alertID == "" {
		return nil, fmt.Errorf("alert_id is required")
	}

	query := `
		SELECT
			alert_id,
			title,
			description,
			severity,
			alert_type,
			starts_at,
			ends_at,
			areas,
			instructions,
			is_active,
			created_by,
			created_at,
			updated_at
		FROM weather_alerts
		WHERE alert_id = $1
	`

	var alert models.WeatherAlert
	var areasJSON []byte

	err := r.db.QueryRowContext(ctx, query, alertID).Scan(
		&alert.AlertID,
		&alert.Title,
		&alert.Description,
		&alert.Severity,
		&alert.AlertType,
		&alert.StartsAt,
		&alert.EndsAt,
		&areasJSON,
		&alert.Instructions,
		&alert.IsActive,
		&alert.CreatedBy,
		&alert.CreatedAt,
		&alert.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("weather alert %s: %w", alertID, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get weather alert: %w", err)
	}

	if len(areasJSON) > 0 {
		if err := json.Unmarshal(areasJSON, &alert.Areas); err != nil {
			return nil, fmt.Errorf("failed to unmarshal areas: %w", err)
		}
	}

	return &alert, nil
}
