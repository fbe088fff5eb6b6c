package errors

import (
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrorHandler 错误处理器：归一化、统计并按严重级别记录日志
type ErrorHandler struct {
	logger *logrus.Logger
	stats  *ErrorStats
	mu     sync.RWMutex

	callbacks []ErrorCallback
}

// ErrorCallback 错误回调函数
type ErrorCallback func(err *CoinError)

// NewErrorHandler 创建错误处理器
func NewErrorHandler(logger *logrus.Logger) *ErrorHandler {
	return &ErrorHandler{
		logger:    logger,
		stats:     NewErrorStats(),
		callbacks: make([]ErrorCallback, 0),
	}
}

// Normalize 将任意错误转换为CoinError
func Normalize(err error) *CoinError {
	if ce, ok := As(err); ok {
		return ce
	}
	return WrapError(err, KindInternal, SeverityMedium, "UNKNOWN_ERROR", "Internal server error")
}

// HandleError 处理错误，返回归一化后的CoinError
func (eh *ErrorHandler) HandleError(err error) *CoinError {
	if err == nil {
		return nil
	}
	ce := Normalize(err)

	eh.mu.Lock()
	eh.stats.RecordError(ce)
	callbacks := make([]ErrorCallback, len(eh.callbacks))
	copy(callbacks, eh.callbacks)
	eh.mu.Unlock()

	eh.log(ce)

	for _, cb := range callbacks {
		eh.safeCallback(cb, ce)
	}
	return ce
}

// log 根据严重级别选择日志级别
func (eh *ErrorHandler) log(err *CoinError) {
	entry := eh.logger.WithFields(logrus.Fields{
		"error_kind": err.Kind.String(),
		"error_code": err.Code,
		"component":  err.Component,
		"retryable":  err.Retryable,
	})
	if err.Field != "" {
		entry = entry.WithField("field", err.Field)
	}
	if err.TxHash != nil {
		entry = entry.WithField("tx_hash", *err.TxHash)
	}
	if len(err.Context) > 0 {
		entry = entry.WithField("context", err.Context)
	}
	if err.Cause != nil {
		entry = entry.WithError(err.Cause)
	}

	switch err.Severity {
	case SeverityLow:
		entry.Debug(err.Message)
	case SeverityMedium:
		entry.Warn(err.Message)
	default:
		entry.Error(err.Message)
	}
}

func (eh *ErrorHandler) safeCallback(cb ErrorCallback, err *CoinError) {
	defer func() {
		if r := recover(); r != nil {
			eh.logger.Errorf("错误回调执行时发生panic: %v", r)
		}
	}()
	cb(err)
}

// AddCallback 添加错误回调
func (eh *ErrorHandler) AddCallback(callback ErrorCallback) {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	eh.callbacks = append(eh.callbacks, callback)
}

// GetStats 获取错误统计快照
func (eh *ErrorHandler) GetStats() ErrorStats {
	eh.mu.RLock()
	defer eh.mu.RUnlock()
	return eh.stats.Snapshot()
}

// ClearStats 清除统计信息
func (eh *ErrorHandler) ClearStats() {
	eh.mu.Lock()
	defer eh.mu.Unlock()
	eh.stats = NewErrorStats()
}
