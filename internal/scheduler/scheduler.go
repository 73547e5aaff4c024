package scheduler

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"nucleo-coop/backend/internal/model"
	"nucleo-coop/backend/internal/service"
)

// ElectionLister 列出未结束的选举
type ElectionLister interface {
	ListNonTerminal(ctx context.Context) ([]model.Election, error)
}

// Scheduler 进程内选举状态调度器
// 每个周期检查未结束的选举：到达下一阶段开始时间则推进一步；投票窗口结束则关闭并计票
type Scheduler struct {
	lister    ElectionLister
	elections service.ElectionService
	tally     service.TallyService
	interval  time.Duration
	logger    *zap.Logger
	now       func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New 创建调度器
func New(lister ElectionLister, elections service.ElectionService, tally service.TallyService, interval time.Duration, logger *zap.Logger) *Scheduler {
	return &Scheduler{
		lister:    lister,
		elections: elections,
		tally:     tally,
		interval:  interval,
		logger:    logger.Named("scheduler"),
		now:       time.Now,
	}
}

// Start 启动后台轮询；interval 为 0 时不启动
func (s *Scheduler) Start(ctx context.Context) {
	if s.interval <= 0 {
		s.logger.Info("内置调度器已关闭，状态迁移需由外部触发")
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("调度器已启动", zap.Duration("interval", s.interval))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				s.Tick(ctx)
			}
		}
	}()
}

// Stop 停止轮询并等待当前周期结束
func (s *Scheduler) Stop() {
	if s.cancel == nil {
		return
	}
	s.cancel()
	s.wg.Wait()
	s.logger.Info("调度器已停止")
}

// Tick 执行一次检查；单个选举失败只记录日志，不影响其余选举
func (s *Scheduler) Tick(ctx context.Context) {
	elections, err := s.lister.ListNonTerminal(ctx)
	if err != nil {
		s.logger.Error("查询未结束选举失败", zap.Error(err))
		return
	}

	now := s.now()
	for i := range elections {
		if ctx.Err() != nil {
			return
		}
		s.step(ctx, &elections[i], now)
	}
}

func (s *Scheduler) step(ctx context.Context, e *model.Election, now time.Time) {
	if e.Status == model.StatusVoting {
		if !e.VotingWindowElapsed(now) {
			return
		}
		if _, err := s.tally.CloseElection(ctx, e.ElectionID, false, ""); err != nil {
			s.logFailure("自动关闭选举失败", e, err)
		}
		return
	}

	next, ok := e.Status.Next()
	if !ok {
		return
	}
	start := e.WindowStartFor(next)
	if start == nil || now.Before(*start) {
		return
	}

	current := e.Status
	if _, err := s.elections.AdvanceStatus(ctx, e.ElectionID, &current, ""); err != nil {
		s.logFailure("自动推进选举状态失败", e, err)
	}
}

func (s *Scheduler) logFailure(msg string, e *model.Election, err error) {
	// 状态已被其他实例或管理员推进时属于正常竞争
	if errors.Is(err, service.ErrInvalidTransition) {
		s.logger.Debug(msg, zap.String("election_id", e.ElectionID), zap.Error(err))
		return
	}
	s.logger.Error(msg, zap.String("election_id", e.ElectionID), zap.Error(err))
}
