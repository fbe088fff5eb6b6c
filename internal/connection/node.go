package connection

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"coffeecoin/internal/metrics"

	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sirupsen/logrus"
)

// healthTTL 健康状态缓存时间
const healthTTL = 30 * time.Second

// Node 单个以太坊RPC节点连接
type Node struct {
	url     string
	client  *ethclient.Client
	chainID *big.Int
	logger  *logrus.Logger

	mu        sync.Mutex
	healthy   bool
	lastCheck time.Time
	lastBlock uint64
	lastErr   string
}

// NodeStatus 节点健康状态
type NodeStatus struct {
	ChainID   string    `json:"chainId"`
	Healthy   bool      `json:"healthy"`
	LastBlock uint64    `json:"lastBlock,omitempty"`
	LastCheck time.Time `json:"lastCheck"`
	Error     string    `json:"error,omitempty"`
}

// Dial 连接节点并用ChainID测试连接
func Dial(ctx context.Context, url string, timeout time.Duration, logger *logrus.Logger) (*Node, error) {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("连接节点失败: %w", err)
	}

	// 测试连接
	chainID, err := client.ChainID(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("节点连接测试失败: %w", err)
	}

	logger.Infof("已连接RPC节点，chainId: %s", chainID)
	return &Node{
		url:       url,
		client:    client,
		chainID:   chainID,
		logger:    logger,
		healthy:   true,
		lastCheck: time.Now(),
	}, nil
}

// Client 底层客户端
func (n *Node) Client() *ethclient.Client {
	return n.client
}

// ChainID 连接时探测到的链ID
func (n *Node) ChainID() *big.Int {
	return new(big.Int).Set(n.chainID)
}

// Check 通过最新区块号检查节点健康，30秒内的健康结果直接复用
func (n *Node) Check(ctx context.Context) NodeStatus {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.healthy && time.Since(n.lastCheck) < healthTTL {
		return n.status()
	}

	start := time.Now()
	block, err := n.client.BlockNumber(ctx)
	metrics.RPCCalls.WithLabelValues("eth_blockNumber", metrics.Outcome(err)).Inc()
	metrics.RPCLatency.WithLabelValues("eth_blockNumber").Observe(time.Since(start).Seconds())

	n.lastCheck = time.Now()
	n.healthy = err == nil
	if err != nil {
		n.lastErr = err.Error()
		n.logger.Warnf("RPC节点健康检查失败: %v", err)
	} else {
		n.lastErr = ""
		n.lastBlock = block
	}
	return n.status()
}

func (n *Node) status() NodeStatus {
	return NodeStatus{
		ChainID:   n.chainID.String(),
		Healthy:   n.healthy,
		LastBlock: n.lastBlock,
		LastCheck: n.lastCheck,
		Error:     n.lastErr,
	}
}

// Close 关闭连接
func (n *Node) Close() {
	n.client.Close()
	n.logger.Info("RPC节点连接已关闭")
}
