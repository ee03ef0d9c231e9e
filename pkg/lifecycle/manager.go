// Package lifecycle 协调后台服务的启动登记与停机等待。
package lifecycle

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/Marwakhot/chronicles/internal/platform/logger"
)

// Manager 向后台服务分发 Handle，停机时统一取消并等待它们退出。
type Manager struct {
	ctx    context.Context
	cancel context.CancelFunc
	log    *logger.Logger

	wg      sync.WaitGroup
	mu      sync.Mutex
	running map[string]struct{}
}

func NewManager(log *logger.Logger) *Manager {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		ctx:     ctx,
		cancel:  cancel,
		log:     log.With("component", "lifecycle"),
		running: make(map[string]struct{}),
	}
}

// NewServiceHandle 登记一个服务并返回它的 Handle。同名服务在退出前不能重复登记。
func (m *Manager) NewServiceHandle(name string) (*Handle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.running[name]; ok {
		return nil, fmt.Errorf("服务 '%s' 已被注册", name)
	}
	m.running[name] = struct{}{}
	m.wg.Add(1)
	m.log.Info("服务已注册", "service", name)

	return &Handle{name: name, ctx: m.ctx, Close: func() { m.release(name) }}, nil
}

func (m *Manager) release(name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.running[name]; !ok {
		return
	}
	delete(m.running, name)
	m.wg.Done()
}

// Run 登记服务并在新的Goroutine中运行它，服务函数返回时自动释放。
func (m *Manager) Run(name string, service func(h *Handle)) error {
	h, err := m.NewServiceHandle(name)
	if err != nil {
		return err
	}
	go func() {
		defer h.Close()
		service(h)
	}()
	return nil
}

// Shutdown 取消所有 Handle 的上下文。
func (m *Manager) Shutdown() {
	m.log.Info("广播停机信号")
	m.cancel()
}

// WaitWithTimeout 等待所有服务退出。超时则返回仍在运行的服务名（已排序），否则返回nil。
func (m *Manager) WaitWithTimeout(timeout time.Duration) []string {
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	names := make([]string, 0, len(m.running))
	for name := range m.running {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}
