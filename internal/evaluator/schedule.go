package evaluator

import (
	"fmt"
	"time"

	"comunidad-alarm/internal/models"
)

// WallClock 把时刻格式化为零填充的 "HH:MM" 挂钟字符串
// 定宽字符串下字典序比较等价于数值比较，窗口判断直接用字符串比较
func WallClock(t time.Time) string {
	return fmt.Sprintf("%02d:%02d", t.Hour(), t.Minute())
}

// ScheduleMatches 判断调度窗口在给定挂钟时刻是否生效
// nowHHMM 必须是调用方已本地化的 "HH:MM"，这里不做任何时区处理
// 规则：
//   - schedule 为空 → false（该报警只能手动触发）
//   - DaysOfWeek 非 nil 且不含 nowWeekday → false（空数组任何一天都不生效）
//   - 否则 startTime <= nowHHMM <= endTime
//
// 跨夜窗口（startTime > endTime）按上述比较永远不会命中，维持现状
func ScheduleMatches(schedule *models.Schedule, nowHHMM string, nowWeekday int) bool {
	if schedule == nil {
		return false
	}

	if schedule.DaysOfWeek != nil && !containsDay(schedule.DaysOfWeek, nowWeekday) {
		return false
	}

	return schedule.StartTime <= nowHHMM && nowHHMM <= schedule.EndTime
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
