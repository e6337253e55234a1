package repository

import (
	"errors"
)

// ErrNotFound 单条记录查询未命中
// 批处理路径（tick 评估、紧急广播）对单条未命中做跳过处理，
// 直接操作（手动触发、确认）将其透传给调用方
var ErrNotFound = errors.New("record not found")
