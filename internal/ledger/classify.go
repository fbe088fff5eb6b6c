package ledger

import (
	"strings"

	"coffeecoin/pkg/models"

	"github.com/ethereum/go-ethereum/common"
)

// ZeroAddress 铸造与销毁使用的零地址（小写）
var ZeroAddress = strings.ToLower(common.Address{}.Hex())

// DefaultTokenSymbol 上游未返回代币符号时的默认值
const DefaultTokenSymbol = "CFC"

// Classify 以viewpoint地址的视角对代币转账分类
func Classify(raw *models.RawTransaction, viewpoint string) models.TransferType {
	if raw == nil || !common.IsHexAddress(viewpoint) ||
		!common.IsHexAddress(raw.From) || !common.IsHexAddress(raw.To) {
		return models.TransferUnknown
	}

	v := normalize(viewpoint)
	from := normalize(raw.From)
	to := normalize(raw.To)

	switch {
	case from == ZeroAddress && to == v:
		return models.TransferEarned
	case to == ZeroAddress && from == v:
		return models.TransferRedeemed
	case to == v:
		return models.TransferReceived
	case from == v:
		return models.TransferSent
	default:
		return models.TransferUnknown
	}
}

// normalize 统一为小写0x地址，兼容无前缀和大小写混合的输入
func normalize(addr string) string {
	return strings.ToLower(common.HexToAddress(addr).Hex())
}

// ClassifyTransfer 生成完整的分类转账记录，raw为nil时返回unknown_transfer
func ClassifyTransfer(raw *models.RawTransaction, viewpoint, defaultSymbol string) models.ClassifiedTransfer {
	if raw == nil {
		return models.ClassifiedTransfer{Type: models.TransferUnknown, Amount: "0", TokenSymbol: fallbackSymbol(defaultSymbol)}
	}
	symbol := raw.TokenSymbol
	if symbol == "" {
		symbol = fallbackSymbol(defaultSymbol)
	}

	return models.ClassifiedTransfer{
		TransactionHash: raw.Hash,
		BlockNumber:     raw.BlockNumberUint(),
		Timestamp:       raw.Timestamp(),
		Type:            Classify(raw, viewpoint),
		Amount:          raw.ValueInt().String(),
		From:            raw.From,
		To:              raw.To,
		TokenSymbol:     symbol,
	}
}

func fallbackSymbol(defaultSymbol string) string {
	if defaultSymbol == "" {
		return DefaultTokenSymbol
	}
	return defaultSymbol
}
