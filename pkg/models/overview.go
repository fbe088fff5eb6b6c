package models

import (
	"encoding/json"
	"fmt"
)

// Availability 可选统计项的状态
type Availability int

const (
	// Unknown 上游不可达或未配置，结果未知
	Unknown Availability = iota
	// Empty 扫描成功，结果为零
	Empty
	// Available 扫描成功，结果非零
	Available
)

// String 状态名称
func (a Availability) String() string {
	switch a {
	case Empty:
		return "empty"
	case Available:
		return "available"
	default:
		return "unknown"
	}
}

// Metric 三态统计值。Unknown时JSON字段被省略（配合omitzero），Empty时输出零值。
type Metric[T comparable] struct {
	Value T
	State Availability
}

// Known 根据值是否为零构造Available或Empty
func Known[T comparable](v T, isZero bool) Metric[T] {
	if isZero {
		return Metric[T]{Value: v, State: Empty}
	}
	return Metric[T]{Value: v, State: Available}
}

// IsZero 供encoding/json的omitzero使用
func (m Metric[T]) IsZero() bool {
	return m.State == Unknown
}

// IsKnown 扫描是否成功产生了结果
func (m Metric[T]) IsKnown() bool {
	return m.State != Unknown
}

// MarshalJSON 输出原始值
func (m Metric[T]) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.Value)
}

// UnmarshalJSON 还原值，零值视为Empty
func (m *Metric[T]) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*m = Metric[T]{}
		return nil
	}
	if err := json.Unmarshal(data, &m.Value); err != nil {
		return err
	}
	var zero T
	if m.Value == zero || fmt.Sprint(m.Value) == "0" {
		m.State = Empty
	} else {
		m.State = Available
	}
	return nil
}

// ScanSummary 一次分页扫描的诊断信息
type ScanSummary struct {
	Action     string `json:"action"`
	Pages      int    `json:"pages"`
	Items      int    `json:"items"`
	StopReason string `json:"stopReason"`
	Partial    bool   `json:"partial"`
	Error      string `json:"error,omitempty"`
}

// ContractOverview 合约概览
type ContractOverview struct {
	ContractAddress string  `json:"contractAddress"`
	CreatorAddress  *string `json:"creatorAddress"`
	CreationTxHash  *string `json:"creationTxHash"`
	TotalSupply     string  `json:"totalSupply"`
	TokenName       string  `json:"tokenName"`
	TokenSymbol     string  `json:"tokenSymbol"`

	TotalMinted                Metric[string] `json:"totalMinted,omitzero"`
	TotalRedeemedToZeroAddress Metric[string] `json:"totalRedeemedToZeroAddress,omitzero"`
	NumberOfHolders            Metric[int]    `json:"numberOfHolders,omitzero"`
	TotalContractTransactions  Metric[int]    `json:"totalContractTransactions,omitzero"`

	Scans       []ScanSummary `json:"scans,omitempty"`
	GeneratedAt int64         `json:"generatedAt"`
}
