package connection

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
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

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
}

// newRPCServer 模拟JSON-RPC节点
func newRPCServer(t *testing.T, blockCalls *atomic.Int32, failBlocks bool) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		resp := map[string]interface{}{"jsonrpc": "2.0", "id": req.ID}
		switch req.Method {
		case "eth_chainId":
			resp["result"] = "0xaa36a7"
		case "eth_blockNumber":
			blockCalls.Add(1)
			if failBlocks {
				resp["error"] = map[string]interface{}{"code": -32000, "message": "header not found"}
			} else {
				resp["result"] = "0x10"
			}
		default:
			resp["error"] = map[string]interface{}{"code": -32601, "message": "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(resp))
	}))
}

func TestDial_ProbesChainID(t *testing.T) {
	var calls atomic.Int32
	srv := newRPCServer(t, &calls, false)
	defer srv.Close()

	node, err := Dial(context.Background(), srv.URL, time.Second, testLogger())
	require.NoError(t, err)
	defer node.Close()

	assert.Equal(t, "11155111", node.ChainID().String())
	assert.NotNil(t, node.Client())
}

func TestDial_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	_, err := Dial(context.Background(), srv.URL, time.Second, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "节点连接测试失败")
}

func TestCheck(t *testing.T) {
	var calls atomic.Int32
	srv := newRPCServer(t, &calls, false)
	defer srv.Close()

	node, err := Dial(context.Background(), srv.URL, time.Second, testLogger())
	require.NoError(t, err)
	defer node.Close()

	// 刚连接时健康状态直接复用
	status := node.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, int32(0), calls.Load())

	node.lastCheck = time.Now().Add(-time.Minute)
	status = node.Check(context.Background())
	assert.True(t, status.Healthy)
	assert.Equal(t, uint64(16), status.LastBlock)
	assert.Equal(t, "11155111", status.ChainID)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCheck_Unhealthy(t *testing.T) {
	var calls atomic.Int32
	srv := newRPCServer(t, &calls, true)
	defer srv.Close()

	node, err := Dial(context.Background(), srv.URL, time.Second, testLogger())
	require.NoError(t, err)
	defer node.Close()

	node.lastCheck = time.Time{}
	status := node.Check(context.Background())
	assert.False(t, status.Healthy)
	assert.Contains(t, status.Error, "header not found")

	// 不健康时每次都重新检查
	node.Check(context.Background())
	assert.Equal(t, int32(2), calls.Load())
}
