package token

import (
	"context"
	"fmt"
	"math/big"
	"time"

	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/internal/metrics"
	"coffeecoin/internal/retry"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/sirupsen/logrus"
)

// Client CoffeeCoin合约客户端
type Client struct {
	backend    Backend
	abi        abi.ABI
	contract   common.Address
	transactor *Transactor
	retrier    *retry.Retrier
	logger     *logrus.Logger
}

// NewClient 创建合约客户端，transactor为nil时只支持只读调用
func NewClient(backend Backend, parsed abi.ABI, contract common.Address, transactor *Transactor, retrier *retry.Retrier, logger *logrus.Logger) *Client {
	return &Client{
		backend:    backend,
		abi:        parsed,
		contract:   contract,
		transactor: transactor,
		retrier:    retrier,
		logger:     logger,
	}
}

// Contract 合约地址
func (c *Client) Contract() common.Address {
	return c.contract
}

// CanMint 是否配置了服务端钱包
func (c *Client) CanMint() bool {
	return c.transactor != nil
}

// call 执行只读调用并按ABI解码返回值
func (c *Client) call(ctx context.Context, method string, args ...interface{}) ([]interface{}, error) {
	return retry.Do(ctx, c.retrier, "token."+method, func() (out []interface{}, err error) {
		start := time.Now()
		defer func() {
			metrics.RPCLatency.WithLabelValues(method).Observe(time.Since(start).Seconds())
			metrics.RPCCalls.WithLabelValues(method, metrics.Outcome(err)).Inc()
		}()

		input, err := c.abi.Pack(method, args...)
		if err != nil {
			return nil, coinerrors.WrapError(err, coinerrors.KindInternal, coinerrors.SeverityMedium, "ABI_PACK_FAILED", "Failed to encode contract call")
		}

		raw, err := c.backend.CallContract(ctx, ethereum.CallMsg{To: &c.contract, Data: input}, nil)
		if err != nil {
			ce := coinerrors.Upstream(err, fmt.Sprintf("Contract call %s failed", method)).WithComponent("token")
			ce.Retryable = retry.IsRetryableError(err)
			return nil, ce
		}

		out, err = c.abi.Unpack(method, raw)
		if err != nil {
			ce := coinerrors.Upstream(err, fmt.Sprintf("Failed to decode %s result", method)).WithComponent("token")
			ce.Retryable = false
			return nil, ce
		}
		if len(out) == 0 {
			ce := coinerrors.Upstream(fmt.Errorf("empty result"), fmt.Sprintf("Contract call %s returned nothing", method)).WithComponent("token")
			ce.Retryable = false
			return nil, ce
		}
		return out, nil
	})
}

// Name 代币名称
func (c *Client) Name(ctx context.Context) (string, error) {
	out, err := c.call(ctx, "name")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// Symbol 代币符号
func (c *Client) Symbol(ctx context.Context) (string, error) {
	out, err := c.call(ctx, "symbol")
	if err != nil {
		return "", err
	}
	return *abi.ConvertType(out[0], new(string)).(*string), nil
}

// TotalSupply 当前总供应量
func (c *Client) TotalSupply(ctx context.Context) (*big.Int, error) {
	out, err := c.call(ctx, "totalSupply")
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// BalanceOf 地址的代币余额
func (c *Client) BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error) {
	out, err := c.call(ctx, "balanceOf", owner)
	if err != nil {
		return nil, err
	}
	return abi.ConvertType(out[0], new(big.Int)).(*big.Int), nil
}

// Mint 由服务端钱包铸造代币，等待1个确认后返回交易哈希
func (c *Client) Mint(ctx context.Context, to common.Address, amount *big.Int) (hash string, err error) {
	defer func() {
		metrics.LedgerActions.WithLabelValues("mint", metrics.Outcome(err)).Inc()
	}()

	if c.transactor == nil {
		return "", coinerrors.Config("Minting service not configured: SERVER_WALLET_PRIVATE_KEY missing.").WithComponent("token")
	}
	if amount == nil || amount.Sign() <= 0 {
		return "", coinerrors.Validation("amount", "Mint amount must be positive.")
	}

	data, err := c.abi.Pack("mint", to, amount)
	if err != nil {
		return "", coinerrors.WrapError(err, coinerrors.KindInternal, coinerrors.SeverityMedium, "ABI_PACK_FAILED", "Failed to encode mint call")
	}

	logger := c.logger.WithFields(logrus.Fields{
		"to":     to.Hex(),
		"amount": amount.String(),
	})
	logger.Info("开始铸造代币")

	tx, err := c.transactor.Send(ctx, c.contract, nil, data, 0)
	if err != nil {
		reason := RevertReason(c.abi, err)
		logger.Errorf("铸造交易发送失败: %s", reason)
		return "", coinerrors.OnChain(err, "Failed to mint tokens: "+reason).WithComponent("token")
	}

	receipt, err := c.transactor.WaitMined(ctx, tx.Hash())
	if err != nil {
		logger.Errorf("等待铸造交易回执失败: %v", err)
		return "", coinerrors.Upstream(err, "Failed to mint tokens: transaction receipt not available").
			WithComponent("token").WithTxHash(tx.Hash().Hex())
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		msg := fmt.Sprintf("Minting tx failed on-chain. Status: %d. Hash: %s", receipt.Status, tx.Hash().Hex())
		logger.Error(msg)
		return "", coinerrors.OnChain(nil, msg).WithComponent("token").WithTxHash(tx.Hash().Hex())
	}

	logger.WithField("tx_hash", tx.Hash().Hex()).Info("铸造代币成功")
	return tx.Hash().Hex(), nil
}
