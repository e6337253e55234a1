package models

import (
	"time"
)

// User 社区用户（对应 users 表）
// 账号主数据由平台其他服务维护，本服务只读
type User struct {
	UserID     string    `json:"user_id" db:"user_id"`
	Name       string    `json:"name" db:"name"`
	ExternalID string    `json:"external_id" db:"external_id"` // 认证侧（Clerk）的用户ID
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}
