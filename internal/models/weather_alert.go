package models

import (
	"time"
)

// WeatherAlert 天气预警（对应 weather_alerts 表，由天气采集侧维护，
// 本服务只读）
type WeatherAlert struct {
	AlertID      string    `json:"alert_id" db:"alert_id"`
	Title        string    `json:"title" db:"title"`
	Description  string    `json:"description" db:"description"`
	Severity     string    `json:"severity" db:"severity"` // low, medium, high, extreme
	AlertType    string    `json:"alert_type" db:"alert_type"`
	StartsAt     time.Time `json:"starts_at" db:"starts_at"`
	EndsAt       time.Time `json:"ends_at" db:"ends_at"`
	Areas        []string  `json:"areas" db:"areas"` // JSONB 字符串数组
	Instructions string    `json:"instructions" db:"instructions"`
	IsActive     bool      `json:"is_active" db:"is_active"`
	CreatedBy    string    `json:"created_by" db:"created_by"`
	CreatedAt    time.Time `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}
