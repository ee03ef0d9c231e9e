package lifecycle

import (
	"context"
	"time"
)

// Handle 由 Manager 分发给单个后台服务，携带停机信号。
type Handle struct {
	name string
	ctx  context.Context
	// Close 通知Manager该服务已经退出，可重复调用。
	Close func()
}

func (h *Handle) Name() string { return h.name }

// Ctx 在停机信号发出后被取消，可直接传给数据库或Redis调用。
func (h *Handle) Ctx() context.Context { return h.ctx }

// Done 在停机信号发出后关闭。
func (h *Handle) Done() <-chan struct{} { return h.ctx.Done() }

// Sleep 是可被停机信号打断的 time.Sleep，被打断时返回取消原因。
func (h *Handle) Sleep(d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-h.ctx.Done():
		return h.ctx.Err()
	case <-t.C:
		return nil
	}
}

// Every 每隔 interval 调用一次 tick，直到停机或 tick 返回 false。
// 第一次调用发生在一个完整间隔之后。
func (h *Handle) Every(interval time.Duration, tick func(ctx context.Context) bool) error {
	for {
		if err := h.Sleep(interval); err != nil {
			return err
		}
		if !tick(h.ctx) {
			return nil
		}
	}
}
