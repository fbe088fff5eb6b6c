package shutdown

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func TestShutdown_RunsInOrder(t *testing.T) {
	gs := NewGracefulShutdown(time.Second, testLogger())

	var order []string
	record := func(name string, err error) func(context.Context) error {
		return func(context.Context) error {
			order = append(order, name)
			return err
		}
	}
	gs.Register("rpc", OrderRPCClient, record("rpc", nil))
	gs.Register("sinks", OrderSinks, record("sinks", errors.New("flush failed")))
	gs.Register("http", OrderHTTPServer, record("http", nil))
	gs.Register("cache", OrderCache, record("cache", nil))

	err := gs.Shutdown()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sinks: flush failed")
	assert.Equal(t, []string{"http", "sinks", "cache", "rpc"}, order)
	assert.Error(t, gs.Context().Err())

	// 第二次调用不再执行
	require.NoError(t, gs.Shutdown())
	assert.Len(t, order, 4)
}

func TestShutdown_Timeout(t *testing.T) {
	gs := NewGracefulShutdown(20*time.Millisecond, testLogger())

	ran := false
	gs.Register("slow", OrderHTTPServer, func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	gs.Register("after", OrderRPCClient, func(context.Context) error {
		ran = true
		return nil
	})

	err := gs.Shutdown()
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.False(t, ran)
}

func TestWait_Trigger(t *testing.T) {
	gs := NewGracefulShutdown(time.Second, testLogger())
	called := make(chan struct{}, 1)
	gs.Register("http", OrderHTTPServer, func(context.Context) error {
		called <- struct{}{}
		return nil
	})

	go gs.Trigger()
	require.NoError(t, gs.Wait())
	select {
	case <-called:
	default:
		t.Fatal("shutdown step not executed")
	}
}
