package evaluator

import (
	"time"
)

// DedupWindow 同一报警两次触发之间的最小间隔
// 调度窗口通常跨多个 tick，没有这个约束窗口内每个 tick 都会触发一次
const DedupWindow = 60 * time.Second

// IsDuplicate 判断本次触发是否落在去重窗口内
// 这是对已加载记录的快速预判；权威判断是存储层的条件更新
// （AlarmRepository.MarkTriggered），并发评估下以后者为准
func IsDuplicate(lastTriggered *time.Time, now time.Time) bool {
	return lastTriggered != nil && now.Sub(*lastTriggered) < DedupWindow
}
