package service

import (
	"context"
	"sync"
	"time"

	"comunidad-alarm/internal/evaluator"

	"go.uber.org/zap"
)

// TickScheduler 评估 tick 调度器
// 固定间隔驱动一次评估；tick 锁是非重入的：上一个 tick 还在执行时
// 新 tick 直接跳过（不排队），错过的窗口由下一个 tick 用同样的
// 去重规则补上。每个 tick 都带总超时，依赖卡死不会无限推迟后续 tick
type TickScheduler struct {
	evaluator *evaluator.Evaluator
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger

	mu sync.Mutex // tick 锁
}

// NewTickScheduler 创建 tick 调度器
func NewTickScheduler(eval *evaluator.Evaluator, interval, timeout time.Duration, logger *zap.Logger) *TickScheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	if timeout <= 0 {
		timeout = 45 * time.Second
	}
	return &TickScheduler{
		evaluator: eval,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
	}
}

// Run 启动调度循环（阻塞直到 ctx 取消）
func (s *TickScheduler) Run(ctx context.Context) error {
	s.logger.Info("Tick scheduler started",
		zap.Duration("interval", s.interval),
		zap.Duration("timeout", s.timeout),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	// 立即执行一次
	s.RunOnce(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Tick scheduler stopped")
			return nil
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce 执行一次 tick（上一个 tick 未结束时跳过）
func (s *TickScheduler) RunOnce(ctx context.Context) {
	if !s.mu.TryLock() {
		s.logger.Warn("Previous tick still in flight, skipping")
		return
	}
	defer s.mu.Unlock()

	tickCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	started := time.Now()
	fired, err := s.evaluator.EvaluateTick(tickCtx, started)
	if err != nil {
		s.logger.Error("Tick evaluation failed",
			zap.Duration("elapsed", time.Since(started)),
			zap.Error(err),
		)
		return
	}

	s.logger.Info("Tick completed",
		zap.Int("fired_count", fired),
		zap.Duration("elapsed", time.Since(started)),
	)
}
