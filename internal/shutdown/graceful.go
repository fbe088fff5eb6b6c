package shutdown

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// 停机顺序，数字越小越早执行
const (
	OrderHTTPServer = 10 // 停止接受请求并等待进行中的请求
	OrderSinks      = 20 // 刷新并关闭事件输出
	OrderCache      = 30 // 关闭Redis
	OrderRPCClient  = 40 // 关闭链上RPC连接
)

// Step 停机步骤
type Step struct {
	Name  string
	Func  func(ctx context.Context) error
	Order int
}

// GracefulShutdown 优雅停机管理器
type GracefulShutdown struct {
	logger  *logrus.Logger
	timeout time.Duration

	mu    sync.Mutex
	steps []Step
	done  bool

	signals chan os.Signal
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewGracefulShutdown 创建优雅停机管理器
func NewGracefulShutdown(timeout time.Duration, logger *logrus.Logger) *GracefulShutdown {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &GracefulShutdown{
		logger:  logger,
		timeout: timeout,
		signals: make(chan os.Signal, 1),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Register 注册停机步骤
func (gs *GracefulShutdown) Register(name string, order int, fn func(ctx context.Context) error) {
	gs.mu.Lock()
	defer gs.mu.Unlock()
	gs.steps = append(gs.steps, Step{Name: name, Func: fn, Order: order})
	gs.logger.Debugf("注册停机处理函数: %s (order: %d)", name, order)
}

// Context 收到停机信号后取消的上下文
func (gs *GracefulShutdown) Context() context.Context {
	return gs.ctx
}

// Wait 阻塞直到收到SIGINT/SIGTERM/SIGQUIT，然后执行停机
func (gs *GracefulShutdown) Wait() error {
	signal.Notify(gs.signals, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	defer signal.Stop(gs.signals)

	gs.logger.Info("优雅停机管理器已启动，监听信号: SIGINT, SIGTERM, SIGQUIT")
	select {
	case sig := <-gs.signals:
		gs.logger.Infof("收到停机信号: %v", sig)
	case <-gs.ctx.Done():
		gs.logger.Info("上下文已取消，开始停机")
	}
	return gs.Shutdown()
}

// Trigger 不等待信号直接请求停机，Wait随后返回
func (gs *GracefulShutdown) Trigger() {
	gs.cancel()
}

// Shutdown 按顺序执行所有步骤，重复调用只执行一次
func (gs *GracefulShutdown) Shutdown() error {
	gs.mu.Lock()
	if gs.done {
		gs.mu.Unlock()
		return nil
	}
	gs.done = true
	steps := make([]Step, len(gs.steps))
	copy(steps, gs.steps)
	gs.mu.Unlock()

	defer gs.cancel()

	gs.logger.Info("开始优雅停机流程...")
	ctx, cancel := context.WithTimeout(context.Background(), gs.timeout)
	defer cancel()

	sort.SliceStable(steps, func(i, j int) bool { return steps[i].Order < steps[j].Order })

	var errs []error
	for _, step := range steps {
		start := time.Now()
		if err := step.Func(ctx); err != nil {
			gs.logger.Errorf("停机处理 '%s' 失败 (耗时: %v): %v", step.Name, time.Since(start), err)
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
		} else {
			gs.logger.Infof("停机处理 '%s' 完成 (耗时: %v)", step.Name, time.Since(start))
		}

		if ctx.Err() != nil {
			gs.logger.Warn("停机超时，跳过剩余步骤")
			errs = append(errs, ctx.Err())
			break
		}
	}

	gs.logger.Info("优雅停机流程完成")
	return errors.Join(errs...)
}
