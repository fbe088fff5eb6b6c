package models

import "math/big"

// Eligibility 领取ETH补贴的资格判定
type Eligibility struct {
	Eligible   bool     `json:"eligible"`
	Reason     string   `json:"reason"`
	BalanceWei *big.Int `json:"balanceWei,omitempty"`
	TxCount    int      `json:"txCount"`
	// 未配置、地址无效或上游失败时为true，此时Eligible无意义
	CheckFailed bool `json:"checkFailed,omitempty"`
}

// DripOutcome 补贴结果类别
type DripOutcome string

const (
	DripSent               DripOutcome = "dripped"
	DripNotEligible        DripOutcome = "not_eligible"
	DripFaucetInsufficient DripOutcome = "faucet_insufficient"
	DripFailed             DripOutcome = "failed"
)

// DripResult 一次补贴尝试的结果
type DripResult struct {
	Dripped         bool        `json:"dripped"`
	TransactionHash string      `json:"transactionHash,omitempty"`
	Message         string      `json:"message"`
	Outcome         DripOutcome `json:"outcome"`
}
