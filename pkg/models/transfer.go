package models

// TransferType 转账分类
type TransferType string

const (
	TransferEarned   TransferType = "earned"
	TransferRedeemed TransferType = "redeemed"
	TransferReceived TransferType = "received"
	TransferSent     TransferType = "sent"
	TransferUnknown  TransferType = "unknown_transfer"
)

// ClassifiedTransfer 以某个地址视角分类后的代币转账
type ClassifiedTransfer struct {
	TransactionHash string       `json:"transactionHash"`
	BlockNumber     uint64       `json:"blockNumber"`
	Timestamp       int64        `json:"timestamp"`
	Type            TransferType `json:"type"`
	Amount          string       `json:"amount"`
	From            string       `json:"from"`
	To              string       `json:"to"`
	TokenSymbol     string       `json:"tokenSymbol"`
}
