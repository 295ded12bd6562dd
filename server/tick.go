package server

import (
	"context"
	"time"
)

const (
	// TicksPerSecond 默认世界推进频率（20 TPS）
	TicksPerSecond = 20
)

// Run 启动 Tick 循环（单线程推进世界），直到 ctx 取消。
// SingleStep 返回错误说明内部不变量被破坏，循环立即退出并返回该错误。
func (s *GameServer) Run(ctx context.Context) error {
	rate := s.tickRate
	if rate <= 0 {
		rate = TicksPerSecond
	}
	ticker := time.NewTicker(time.Second / time.Duration(rate))
	defer ticker.Stop()

	Log.Infof("tick loop started at %d TPS", rate)
	for {
		select {
		case <-ctx.Done():
			Log.Infow("tick loop stopped", "tick", s.now)
			return nil
		case <-ticker.C:
			// 核心循环：处理输入 → 更新世界 → 广播结果
			if err := s.SingleStep(); err != nil {
				Log.Errorw("tick aborted", "tick", s.now, "err", err)
				return err
			}
		}
	}
}
