package decoder

import (
	"errors"
	"fmt"
	"math/big"
	"regexp"
	"sort"
	"strings"

	"coffeecoin/pkg/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"
)

// LabelDirectCall 无调用数据时的标签
const LabelDirectCall = "ETH Transfer or Direct Call"

// 0x + 4字节选择器 + 32字节地址 + 32字节数量
const mintRawLength = 10 + 64 + 64

var (
	// ErrSelectorMismatch 调用数据不是目标函数
	ErrSelectorMismatch = errors.New("selector mismatch")
	// ErrShortInput 调用数据长度不足
	ErrShortInput = errors.New("input too short")
	// ErrMintDisabled mint跟踪未启用
	ErrMintDisabled = errors.New("mint tracking disabled")
)

var mintLabelPattern = regexp.MustCompile(`(?i)mint\(\s*\.\.\.\s*,\s*(\d+)\s*\)`)

// InputDecoder 交易输入数据解码器
type InputDecoder struct {
	logger    *logrus.Logger
	abi       abi.ABI
	selectors *SelectorRegistry
}

// MintTotals 批量汇总mint数量的结果
type MintTotals struct {
	Total   *big.Int
	Counted int
	Skipped int
}

// NewInputDecoder 创建新的输入解码器
func NewInputDecoder(parsed abi.ABI, selectors *SelectorRegistry, logger *logrus.Logger) *InputDecoder {
	return &InputDecoder{
		logger:    logger,
		abi:       parsed,
		selectors: selectors,
	}
}

// Selectors 选择器表
func (d *InputDecoder) Selectors() *SelectorRegistry {
	return d.selectors
}

// IsMintCall 调用数据是否以mint选择器开头
func (d *InputDecoder) IsMintCall(input string) bool {
	selector, enabled := d.selectors.Selector(SigMint)
	if !enabled || len(input) < 10 {
		return false
	}
	return strings.EqualFold(input[:10], selector)
}

// DecodeMintAmount 按ABI结构化解码mint的第二个参数
func (d *InputDecoder) DecodeMintAmount(input string) (*big.Int, error) {
	method := d.selectors.method(SigMint)
	if method == nil {
		return nil, ErrMintDisabled
	}
	if !d.IsMintCall(input) {
		return nil, ErrSelectorMismatch
	}

	data, err := hexutil.Decode(input)
	if err != nil {
		return nil, fmt.Errorf("调用数据不是合法十六进制: %w", err)
	}

	args, err := method.Inputs.Unpack(data[4:])
	if err != nil {
		return nil, fmt.Errorf("解码mint参数失败: %w", err)
	}
	if len(args) < 2 {
		return nil, fmt.Errorf("mint参数个数不足: %d", len(args))
	}
	amount, ok := args[1].(*big.Int)
	if !ok {
		return nil, fmt.Errorf("mint数量类型异常: %T", args[1])
	}
	return amount, nil
}

// DecodeMintAmountRaw 按固定布局读取数量：0x + 选择器 + 地址 + 数量，长度不足时返回错误
func DecodeMintAmountRaw(input string) (*big.Int, error) {
	if !strings.HasPrefix(input, "0x") || len(input) < mintRawLength {
		return nil, ErrShortInput
	}

	amount, ok := new(big.Int).SetString(input[10+64:mintRawLength], 16)
	if !ok {
		return nil, fmt.Errorf("数量字段不是合法十六进制")
	}
	return amount, nil
}

// MintAmount 先结构化解码，失败时退回固定布局解析
func (d *InputDecoder) MintAmount(input string) (*big.Int, error) {
	if !d.IsMintCall(input) {
		return nil, ErrSelectorMismatch
	}
	amount, err := d.DecodeMintAmount(input)
	if err == nil {
		return amount, nil
	}
	return DecodeMintAmountRaw(input)
}

// SumMinted 汇总成功的mint调用数量，单笔解码失败只跳过
func (d *InputDecoder) SumMinted(txs []models.RawTransaction) MintTotals {
	totals := MintTotals{Total: new(big.Int)}
	for i := range txs {
		tx := &txs[i]
		if tx.IsError != "0" || !d.IsMintCall(tx.Input) {
			continue
		}

		amount, err := d.MintAmount(tx.Input)
		if err != nil {
			totals.Skipped++
			d.logger.Debugf("跳过无法解码的mint交易 %s: %v", tx.Hash, err)
			continue
		}
		totals.Total.Add(totals.Total, amount)
		totals.Counted++
	}
	return totals
}

// Label 生成交易的方法ID与可读函数标签
func (d *InputDecoder) Label(tx *models.RawTransaction) (methodID string, label string) {
	input := tx.Input
	if len(input) < 10 {
		// 没有完整选择器时才采用上游给出的methodId
		methodID = tx.MethodID
		if methodID == "" {
			methodID = input
		}
		return methodID, LabelDirectCall
	}

	sighash := strings.ToLower(input[:10])
	methodID = sighash

	selector, err := hexutil.Decode(sighash)
	if err != nil {
		return methodID, sighash + " (Unknown)"
	}
	method, err := d.abi.MethodById(selector)
	if err != nil {
		return methodID, sighash + " (Unknown)"
	}

	if method.Sig == SigMint && d.selectors.Enabled(SigMint) {
		if amount, err := d.DecodeMintAmount(input); err == nil {
			return methodID, fmt.Sprintf("mint(..., %s)", amount.String())
		}
	}
	return methodID, method.Name + "(...)"
}

// Decorate 将原始交易转换为带标签的交互记录
func (d *InputDecoder) Decorate(tx *models.RawTransaction, contractAddress string) models.RecentInteraction {
	methodID, label := d.Label(tx)
	contract := tx.ContractAddress
	if contract == "" {
		contract = contractAddress
	}
	return models.RecentInteraction{
		BlockNumber:     tx.BlockNumber,
		TimeStamp:       tx.TimeStamp,
		Hash:            tx.Hash,
		From:            tx.From,
		To:              tx.To,
		Value:           tx.Value,
		ContractAddress: contract,
		Input:           tx.Input,
		MethodID:        methodID,
		FunctionName:    label,
		IsError:         tx.IsError,
		GasUsed:         tx.GasUsed,
	}
}

// MintDistribution 按铸造数量分组，数量降序取前limit档
func MintDistribution(interactions []models.RecentInteraction, limit int) []models.MintBucket {
	type bucket struct {
		amount *big.Int
		count  int
		total  *big.Int
	}
	buckets := make(map[string]*bucket)

	for i := range interactions {
		it := &interactions[i]
		if it.IsError != "0" || !strings.HasPrefix(strings.ToLower(it.FunctionName), "mint(") {
			continue
		}

		var amount *big.Int
		if m := mintLabelPattern.FindStringSubmatch(it.FunctionName); m != nil {
			amount, _ = new(big.Int).SetString(m[1], 10)
		}
		if amount == nil {
			amount, _ = DecodeMintAmountRaw(it.Input)
		}
		if amount == nil || amount.Sign() <= 0 {
			continue
		}

		key := amount.String()
		b, ok := buckets[key]
		if !ok {
			b = &bucket{amount: amount, total: new(big.Int)}
			buckets[key] = b
		}
		b.count++
		b.total.Add(b.total, amount)
	}

	sorted := make([]*bucket, 0, len(buckets))
	for _, b := range buckets {
		sorted = append(sorted, b)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].amount.Cmp(sorted[j].amount) > 0 })
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}

	out := make([]models.MintBucket, 0, len(sorted))
	for _, b := range sorted {
		out = append(out, models.MintBucket{
			Amount: b.amount.String(),
			Count:  b.count,
			Total:  b.total.String(),
		})
	}
	return out
}
