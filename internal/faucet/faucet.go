package faucet

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/internal/explorer"
	"coffeecoin/internal/metrics"
	"coffeecoin/internal/token"
	"coffeecoin/pkg/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// 固定的对外提示
const (
	MsgEligible          = "Eligible for ETH drip."
	MsgInsufficientFunds = "Faucet wallet has insufficient funds."
	MsgNotConfigured     = "Faucet (server wallet) not configured."
	MsgInvalidRecipient  = "Invalid recipient address for ETH drip."
)

// Decide 余额低于下限且交易数低于上限时可以领取
func Decide(balanceWei *big.Int, txCount int, floorWei *big.Int, ceiling int) models.Eligibility {
	lowBalance := balanceWei.Cmp(floorWei) < 0
	fewTxs := txCount < ceiling

	result := models.Eligibility{
		Eligible:   lowBalance && fewTxs,
		BalanceWei: new(big.Int).Set(balanceWei),
		TxCount:    txCount,
	}
	if result.Eligible {
		result.Reason = MsgEligible
		return result
	}

	var reason []string
	if !lowBalance {
		reason = append(reason, fmt.Sprintf("Has %s ETH.", FormatEther(balanceWei)))
	}
	if !fewTxs {
		reason = append(reason, fmt.Sprintf("Has %d TXs.", txCount))
	}
	result.Reason = strings.TrimSpace("Not eligible. " + strings.Join(reason, " "))
	return result
}

// FormatEther wei转为ETH的十进制表示，整数保留一位小数
func FormatEther(wei *big.Int) string {
	s := decimal.NewFromBigInt(wei, -18).String()
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Checker 领取资格检查
type Checker struct {
	api     explorer.API
	floor   *big.Int
	ceiling int
	logger  *logrus.Logger
}

// NewChecker 创建资格检查器
func NewChecker(api explorer.API, floor *big.Int, ceiling int, logger *logrus.Logger) *Checker {
	return &Checker{
		api:     api,
		floor:   floor,
		ceiling: ceiling,
		logger:  logger,
	}
}

// Check 查询余额与交易数后判定，上游失败时返回不可领取而不是错误
func (c *Checker) Check(ctx context.Context, address string) models.Eligibility {
	if !c.api.Configured() {
		return models.Eligibility{Reason: "Etherscan API key missing for drip check.", TxCount: -1, CheckFailed: true}
	}
	if !common.IsHexAddress(address) {
		return models.Eligibility{Reason: "Invalid user address for drip check.", TxCount: -1, CheckFailed: true}
	}

	balance, err := c.api.Balance(ctx, address)
	if err != nil {
		return c.checkError(address, err)
	}

	page, err := c.api.FetchPage(ctx, explorer.ListQuery{
		Action:  explorer.ActionTxList,
		Address: address,
		Page:    1,
		Offset:  c.ceiling + 1,
		Sort:    explorer.SortAsc,
	})
	if err != nil {
		return c.checkError(address, err)
	}

	result := Decide(balance, len(page.Items), c.floor, c.ceiling)
	c.logger.WithFields(logrus.Fields{
		"address":  address,
		"eth":      FormatEther(balance),
		"tx_count": result.TxCount,
		"eligible": result.Eligible,
	}).Info("补贴资格检查完成")
	return result
}

func (c *Checker) checkError(address string, err error) models.Eligibility {
	c.logger.WithField("address", address).Errorf("补贴资格检查失败: %v", err)
	msg := err.Error()
	if ce, ok := coinerrors.As(err); ok {
		msg = ce.Message
	}
	return models.Eligibility{Reason: "Eligibility check error: " + msg, TxCount: -1, CheckFailed: true}
}

// Wallet 发放补贴的服务端钱包，*token.Transactor满足该接口
type Wallet interface {
	Balance(ctx context.Context) (*big.Int, error)
	Send(ctx context.Context, to common.Address, value *big.Int, data []byte, gasLimit uint64) (*types.Transaction, error)
	WaitMined(ctx context.Context, hash common.Hash) (*types.Receipt, error)
}

// EventWriter 账本事件输出
type EventWriter interface {
	WriteEvent(event *models.LedgerEvent) error
}

// Faucet 测试网ETH补贴
type Faucet struct {
	checker *Checker
	wallet  Wallet
	amount  *big.Int
	events  EventWriter
	logger  *logrus.Logger
}

// NewFaucet 创建补贴服务，wallet为nil时所有请求返回未配置
func NewFaucet(checker *Checker, wallet Wallet, amount *big.Int, events EventWriter, logger *logrus.Logger) *Faucet {
	return &Faucet{
		checker: checker,
		wallet:  wallet,
		amount:  amount,
		events:  events,
		logger:  logger,
	}
}

// Checker 资格检查器
func (f *Faucet) Checker() *Checker {
	return f.checker
}

// Drip 检查资格并发送补贴，所有失败都体现在结果中
func (f *Faucet) Drip(ctx context.Context, address string) (result models.DripResult) {
	defer func() {
		metrics.LedgerActions.WithLabelValues("drip", string(result.Outcome)).Inc()
	}()

	if f.wallet == nil {
		return models.DripResult{Message: MsgNotConfigured, Outcome: models.DripFailed}
	}
	if !common.IsHexAddress(address) {
		return models.DripResult{Message: MsgInvalidRecipient, Outcome: models.DripFailed}
	}

	eligibility := f.checker.Check(ctx, address)
	if eligibility.CheckFailed {
		f.logger.WithField("address", address).Warnf("补贴资格检查未完成: %s", eligibility.Reason)
		return models.DripResult{Message: eligibility.Reason, Outcome: models.DripFailed}
	}
	if !eligibility.Eligible {
		f.logger.WithField("address", address).Infof("不满足补贴条件: %s", eligibility.Reason)
		return models.DripResult{Message: eligibility.Reason, Outcome: models.DripNotEligible}
	}

	balance, err := f.wallet.Balance(ctx)
	if err != nil {
		return f.failed(address, err)
	}
	if balance.Cmp(f.amount) < 0 {
		f.logger.Warnf("补贴钱包余额不足: %s ETH", FormatEther(balance))
		return models.DripResult{Message: MsgInsufficientFunds, Outcome: models.DripFaucetInsufficient}
	}

	to := common.HexToAddress(address)
	tx, err := f.wallet.Send(ctx, to, f.amount, nil, token.TransferGasLimit)
	if err != nil {
		return f.failed(address, err)
	}

	receipt, err := f.wallet.WaitMined(ctx, tx.Hash())
	if err != nil {
		return f.failed(address, err)
	}
	if receipt.Status != types.ReceiptStatusSuccessful {
		return f.failed(address, fmt.Errorf("transaction %s reverted", tx.Hash().Hex()))
	}

	hash := tx.Hash().Hex()
	f.logger.WithFields(logrus.Fields{
		"address": address,
		"tx_hash": hash,
	}).Info("ETH补贴已发放")

	f.publish(&models.LedgerEvent{
		ID:              uuid.NewString(),
		Type:            models.EventDrip,
		Address:         address,
		Amount:          f.amount.String(),
		TransactionHash: hash,
		Timestamp:       time.Now().UTC(),
	})

	return models.DripResult{
		Dripped:         true,
		TransactionHash: hash,
		Message:         fmt.Sprintf("Successfully dripped %s ETH. Tx: %s", FormatEther(f.amount), hash),
		Outcome:         models.DripSent,
	}
}

func (f *Faucet) failed(address string, err error) models.DripResult {
	f.logger.WithField("address", address).Errorf("发送补贴失败: %v", err)
	return models.DripResult{
		Message: "Failed to send test ETH: " + token.RevertReason(abi.ABI{}, err),
		Outcome: models.DripFailed,
	}
}

func (f *Faucet) publish(event *models.LedgerEvent) {
	if f.events == nil {
		return
	}
	if err := f.events.WriteEvent(event); err != nil {
		f.logger.Warnf("写入补贴事件失败: %v", err)
	}
}
