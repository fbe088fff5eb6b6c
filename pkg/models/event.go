package models

import "time"

// EventType 账本事件类型
type EventType string

const (
	EventMint       EventType = "mint"
	EventDrip       EventType = "drip"
	EventRedemption EventType = "redemption"
)

// LedgerEvent 服务发起的链上动作或兑换记录，推送到输出端
type LedgerEvent struct {
	ID              string            `json:"id"`
	Type            EventType         `json:"type"`
	Address         string            `json:"address"`
	Amount          string            `json:"amount,omitempty"`
	TransactionHash string            `json:"transactionHash,omitempty"`
	Detail          map[string]string `json:"detail,omitempty"`
	Timestamp       time.Time         `json:"timestamp"`
}

// Redemption 兑换记录
type Redemption struct {
	Address             string `json:"address"`
	RewardID            string `json:"rewardId"`
	PointsBurned        string `json:"pointsBurned"`
	BurnTransactionHash string `json:"burnTransactionHash"`
	VoucherCode         string `json:"voucherCode"`
}
