package models

import (
	"math/big"
	"strconv"
	"strings"
	"time"
)

// RawTransaction 区块浏览器返回的单条记录（普通交易或代币转账）
//
// 浏览器接口所有字段均为字符串，这里保留原样，按需通过访问方法转换。
type RawTransaction struct {
	BlockNumber     string `json:"blockNumber"`
	TimeStamp       string `json:"timeStamp"`
	Hash            string `json:"hash"`
	Nonce           string `json:"nonce,omitempty"`
	BlockHash       string `json:"blockHash,omitempty"`
	From            string `json:"from"`
	To              string `json:"to"`
	Value           string `json:"value"`
	Gas             string `json:"gas,omitempty"`
	GasPrice        string `json:"gasPrice,omitempty"`
	GasUsed         string `json:"gasUsed"`
	IsError         string `json:"isError,omitempty"`
	TxReceiptStatus string `json:"txreceipt_status,omitempty"`
	Input           string `json:"input"`
	ContractAddress string `json:"contractAddress,omitempty"`
	MethodID        string `json:"methodId,omitempty"`
	FunctionName    string `json:"functionName,omitempty"`
	LogIndex        string `json:"logIndex,omitempty"`

	// 代币转账字段（tokentx）
	TokenName    string `json:"tokenName,omitempty"`
	TokenSymbol  string `json:"tokenSymbol,omitempty"`
	TokenDecimal string `json:"tokenDecimal,omitempty"`
}

// BlockNumberUint 区块号
func (t *RawTransaction) BlockNumberUint() uint64 {
	n, _ := strconv.ParseUint(t.BlockNumber, 10, 64)
	return n
}

// Timestamp 区块时间（unix秒）
func (t *RawTransaction) Timestamp() int64 {
	ts, _ := strconv.ParseInt(t.TimeStamp, 10, 64)
	return ts
}

// Time 区块时间
func (t *RawTransaction) Time() time.Time {
	return time.Unix(t.Timestamp(), 0).UTC()
}

// ValueInt 以最小单位表示的数量，无法解析时为0
func (t *RawTransaction) ValueInt() *big.Int {
	v, ok := new(big.Int).SetString(strings.TrimSpace(t.Value), 10)
	if !ok {
		return new(big.Int)
	}
	return v
}

// Failed 交易执行是否失败
func (t *RawTransaction) Failed() bool {
	return t.IsError == "1"
}

// Key 去重键：交易哈希 + 日志序号
func (t *RawTransaction) Key() string {
	return strings.ToLower(t.Hash) + "#" + t.LogIndex
}
