package errors

import (
	"errors"
	"fmt"
	"net/http"
	"time"
)

// ErrorKind 错误类别
type ErrorKind int

const (
	// 配置缺失或无效（RPC、合约地址、私钥、浏览器API Key）
	KindConfig ErrorKind = iota
	// 请求参数校验失败
	KindValidation
	// 上游（RPC节点、区块浏览器）暂时性失败
	KindUpstream
	// 链上交易失败（回滚、状态非1）
	KindOnChain
	// 其他内部错误
	KindInternal
)

// ErrorSeverity 错误严重级别
type ErrorSeverity int

const (
	SeverityLow ErrorSeverity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

// CoinError 服务统一错误类型
type CoinError struct {
	Kind      ErrorKind              `json:"kind"`
	Severity  ErrorSeverity          `json:"severity"`
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Field     string                 `json:"field,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Cause     error                  `json:"-"`
	Retryable bool                   `json:"retryable"`
	Component string                 `json:"component,omitempty"`
	TxHash    *string                `json:"tx_hash,omitempty"`
}

// Error 实现error接口
func (e *CoinError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap 支持errors.Unwrap
func (e *CoinError) Unwrap() error {
	return e.Cause
}

// IsRetryable 判断是否可重试
func (e *CoinError) IsRetryable() bool {
	return e.Retryable
}

// HTTPStatus 对外响应状态码
func (e *CoinError) HTTPStatus() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// WithContext 添加上下文信息
func (e *CoinError) WithContext(key string, value interface{}) *CoinError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithComponent 标记来源组件
func (e *CoinError) WithComponent(component string) *CoinError {
	e.Component = component
	return e
}

// WithTxHash 添加交易哈希
func (e *CoinError) WithTxHash(txHash string) *CoinError {
	e.TxHash = &txHash
	return e
}

// NewCoinError 创建新的错误
func NewCoinError(kind ErrorKind, severity ErrorSeverity, code, message string) *CoinError {
	return &CoinError{
		Kind:      kind,
		Severity:  severity,
		Code:      code,
		Message:   message,
		Timestamp: time.Now(),
		Retryable: kind == KindUpstream,
	}
}

// WrapError 包装现有错误
func WrapError(err error, kind ErrorKind, severity ErrorSeverity, code, message string) *CoinError {
	e := NewCoinError(kind, severity, code, message)
	e.Cause = err
	return e
}

// Validation 字段级参数错误
func Validation(field, message string) *CoinError {
	e := NewCoinError(KindValidation, SeverityLow, "VALIDATION_FAILED", message)
	e.Field = field
	return e
}

// Config 配置错误
func Config(message string) *CoinError {
	return NewCoinError(KindConfig, SeverityHigh, "CONFIG_INVALID", message)
}

// Upstream 上游调用失败
func Upstream(err error, message string) *CoinError {
	return WrapError(err, KindUpstream, SeverityMedium, "UPSTREAM_FAILED", message)
}

// OnChain 链上交易失败
func OnChain(err error, message string) *CoinError {
	return WrapError(err, KindOnChain, SeverityHigh, "ONCHAIN_FAILED", message)
}

// As 提取错误链中的CoinError
func As(err error) (*CoinError, bool) {
	var ce *CoinError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// IsKind 判断错误类别
func IsKind(err error, kind ErrorKind) bool {
	ce, ok := As(err)
	return ok && ce.Kind == kind
}

// 错误类别字符串映射
var errorKindNames = map[ErrorKind]string{
	KindConfig:     "Config",
	KindValidation: "Validation",
	KindUpstream:   "Upstream",
	KindOnChain:    "OnChain",
	KindInternal:   "Internal",
}

// String 返回错误类别的字符串表示
func (k ErrorKind) String() string {
	if name, exists := errorKindNames[k]; exists {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", k)
}

// 严重级别字符串映射
var severityNames = map[ErrorSeverity]string{
	SeverityLow:      "Low",
	SeverityMedium:   "Medium",
	SeverityHigh:     "High",
	SeverityCritical: "Critical",
}

// String 返回严重级别的字符串表示
func (es ErrorSeverity) String() string {
	if name, exists := severityNames[es]; exists {
		return name
	}
	return fmt.Sprintf("Unknown(%d)", es)
}

// ErrorStats 错误统计
type ErrorStats struct {
	TotalErrors       int            `json:"total_errors"`
	ErrorsByKind      map[string]int `json:"errors_by_kind"`
	ErrorsBySeverity  map[string]int `json:"errors_by_severity"`
	ErrorsByComponent map[string]int `json:"errors_by_component"`
	RecentErrors      []*CoinError   `json:"-"`
	LastError         string         `json:"last_error,omitempty"`
	LastErrorTime     time.Time      `json:"last_error_time"`
}

// NewErrorStats 创建错误统计
func NewErrorStats() *ErrorStats {
	return &ErrorStats{
		ErrorsByKind:      make(map[string]int),
		ErrorsBySeverity:  make(map[string]int),
		ErrorsByComponent: make(map[string]int),
		RecentErrors:      make([]*CoinError, 0),
	}
}

// RecordError 记录错误
func (es *ErrorStats) RecordError(err *CoinError) {
	es.TotalErrors++
	es.ErrorsByKind[err.Kind.String()]++
	es.ErrorsBySeverity[err.Severity.String()]++
	if err.Component != "" {
		es.ErrorsByComponent[err.Component]++
	}

	es.LastError = err.Error()
	es.LastErrorTime = err.Timestamp

	// 保留最近100个错误
	es.RecentErrors = append(es.RecentErrors, err)
	if len(es.RecentErrors) > 100 {
		es.RecentErrors = es.RecentErrors[1:]
	}
}

// GetErrorRate 获取错误率（错误/小时）
func (es *ErrorStats) GetErrorRate(duration time.Duration) float64 {
	if duration <= 0 {
		return 0
	}

	cutoff := time.Now().Add(-duration)
	recentCount := 0
	for _, err := range es.RecentErrors {
		if err.Timestamp.After(cutoff) {
			recentCount++
		}
	}

	return float64(recentCount) / duration.Hours()
}

// Snapshot 返回统计副本
func (es *ErrorStats) Snapshot() ErrorStats {
	cp := ErrorStats{
		TotalErrors:       es.TotalErrors,
		ErrorsByKind:      make(map[string]int, len(es.ErrorsByKind)),
		ErrorsBySeverity:  make(map[string]int, len(es.ErrorsBySeverity)),
		ErrorsByComponent: make(map[string]int, len(es.ErrorsByComponent)),
		LastError:         es.LastError,
		LastErrorTime:     es.LastErrorTime,
	}
	for k, v := range es.ErrorsByKind {
		cp.ErrorsByKind[k] = v
	}
	for k, v := range es.ErrorsBySeverity {
		cp.ErrorsBySeverity[k] = v
	}
	for k, v := range es.ErrorsByComponent {
		cp.ErrorsByComponent[k] = v
	}
	return cp
}
