package gossip

import (
	"context"
	"errors"
	"time"

	"github.com/Marwakhot/chronicles/pkg/lifecycle"
)

// NewScheduler 返回一个定时执行生成流程的后台服务，交给 lifecycle.Manager 运行。
// 单次失败已在 Generate 中记录，下一轮重试；上下文被取消时退出。
func NewScheduler(svc *Service, interval time.Duration) func(handle *lifecycle.Handle) {
	return func(handle *lifecycle.Handle) {
		defer handle.Close()
		svc.log.Info("八卦定时生成已启动", "interval", interval.String())

		err := handle.Every(interval, func(ctx context.Context) bool {
			_, err := svc.Generate(ctx)
			return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		})
		svc.log.Info("八卦定时生成已停止", "reason", err)
	}
}
