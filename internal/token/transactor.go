package token

import (
	"bytes"
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"coffeecoin/internal/metrics"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/sirupsen/logrus"
)

// TransferGasLimit 普通ETH转账的gas上限
const TransferGasLimit uint64 = 21000

// Backend 合约调用与交易发送所需的节点能力，*ethclient.Client满足该接口
type Backend interface {
	ChainID(ctx context.Context) (*big.Int, error)
	CallContract(ctx context.Context, msg ethereum.CallMsg, blockNumber *big.Int) ([]byte, error)
	BalanceAt(ctx context.Context, account common.Address, blockNumber *big.Int) (*big.Int, error)
	PendingNonceAt(ctx context.Context, account common.Address) (uint64, error)
	SuggestGasPrice(ctx context.Context) (*big.Int, error)
	EstimateGas(ctx context.Context, msg ethereum.CallMsg) (uint64, error)
	SendTransaction(ctx context.Context, tx *types.Transaction) error
	TransactionReceipt(ctx context.Context, txHash common.Hash) (*types.Receipt, error)
}

// Signer 服务端钱包
type Signer struct {
	key     *ecdsa.PrivateKey
	Address common.Address
}

// NewSigner 从十六进制私钥创建钱包，允许0x前缀
func NewSigner(hexKey string) (*Signer, error) {
	key, err := crypto.HexToECDSA(strings.TrimPrefix(strings.TrimSpace(hexKey), "0x"))
	if err != nil {
		return nil, fmt.Errorf("解析服务端私钥失败: %w", err)
	}
	return &Signer{
		key:     key,
		Address: crypto.PubkeyToAddress(key.PublicKey),
	}, nil
}

// Transactor 签名并发送legacy交易，等待回执
type Transactor struct {
	backend      Backend
	signer       *Signer
	logger       *logrus.Logger
	receiptPoll  time.Duration
	receiptLimit time.Duration

	// 同一钱包的nonce需要串行分配
	sendMu  sync.Mutex
	chainMu sync.Mutex
	chainID *big.Int
}

// NewTransactor 创建交易发送器
func NewTransactor(backend Backend, signer *Signer, receiptPoll, receiptTimeout time.Duration, logger *logrus.Logger) *Transactor {
	if receiptPoll <= 0 {
		receiptPoll = 2 * time.Second
	}
	if receiptTimeout <= 0 {
		receiptTimeout = 2 * time.Minute
	}
	return &Transactor{
		backend:      backend,
		signer:       signer,
		logger:       logger,
		receiptPoll:  receiptPoll,
		receiptLimit: receiptTimeout,
	}
}

// From 发送方地址
func (t *Transactor) From() common.Address {
	return t.signer.Address
}

// Balance 发送方当前ETH余额
func (t *Transactor) Balance(ctx context.Context) (*big.Int, error) {
	return t.backend.BalanceAt(ctx, t.signer.Address, nil)
}

func (t *Transactor) networkID(ctx context.Context) (*big.Int, error) {
	t.chainMu.Lock()
	defer t.chainMu.Unlock()
	if t.chainID != nil {
		return t.chainID, nil
	}
	id, err := t.backend.ChainID(ctx)
	if err != nil {
		return nil, err
	}
	t.chainID = id
	return id, nil
}

// Send 构造、签名并广播交易。gasLimit为0时先估算
func (t *Transactor) Send(ctx context.Context, to common.Address, value *big.Int, data []byte, gasLimit uint64) (*types.Transaction, error) {
	t.sendMu.Lock()
	defer t.sendMu.Unlock()

	if value == nil {
		value = new(big.Int)
	}

	chainID, err := t.networkID(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch chain id: %w", err)
	}

	if gasLimit == 0 {
		gasLimit, err = t.backend.EstimateGas(ctx, ethereum.CallMsg{
			From:  t.signer.Address,
			To:    &to,
			Value: value,
			Data:  data,
		})
		if err != nil {
			return nil, err
		}
	}

	nonce, err := t.backend.PendingNonceAt(ctx, t.signer.Address)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch nonce: %w", err)
	}
	gasPrice, err := t.backend.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(chainID), t.signer.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := t.backend.SendTransaction(ctx, signed); err != nil {
		return nil, err
	}

	t.logger.WithFields(logrus.Fields{
		"tx_hash": signed.Hash().Hex(),
		"to":      to.Hex(),
		"nonce":   nonce,
		"gas":     gasLimit,
	}).Info("交易已广播")
	return signed, nil
}

// WaitMined 轮询交易回执直到上链或超时
func (t *Transactor) WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, t.receiptLimit)
	defer cancel()

	ticker := time.NewTicker(t.receiptPoll)
	defer ticker.Stop()

	for {
		start := time.Now()
		receipt, err := t.backend.TransactionReceipt(ctx, hash)
		metrics.RPCLatency.WithLabelValues("eth_getTransactionReceipt").Observe(time.Since(start).Seconds())
		if err == nil && receipt != nil {
			return receipt, nil
		}
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			t.logger.Debugf("查询交易回执失败 %s: %v", hash.Hex(), err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("timed out waiting for receipt %s: %w", hash.Hex(), ctx.Err())
		case <-ticker.C:
		}
	}
}

// RevertReason 从节点错误中提取回滚原因
func RevertReason(parsed abi.ABI, err error) string {
	if err == nil {
		return ""
	}

	var dataErr rpc.DataError
	if errors.As(err, &dataErr) {
		if data := revertData(dataErr.ErrorData()); len(data) > 0 {
			if reason, uerr := abi.UnpackRevert(data); uerr == nil {
				return reason
			}
			if len(data) >= 4 {
				for name, e := range parsed.Errors {
					if bytes.Equal(e.ID.Bytes()[:4], data[:4]) {
						return name
					}
				}
			}
		}
	}

	msg := err.Error()
	const prefix = "execution reverted: "
	if i := strings.Index(msg, prefix); i >= 0 {
		return msg[i+len(prefix):]
	}
	return msg
}

func revertData(v interface{}) []byte {
	switch d := v.(type) {
	case string:
		data, err := hexutil.Decode(d)
		if err != nil {
			return nil
		}
		return data
	case []byte:
		return d
	default:
		return nil
	}
}
