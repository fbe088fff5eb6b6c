package validation

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"regexp"
	"strconv"
	"strings"

	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/pkg/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

const (
	// DefaultOffset 交互列表默认每页条数
	DefaultOffset = 10
	// MaxOffset 浏览器单页上限
	MaxOffset = 100
)

var hashRegex = regexp.MustCompile("^0x[0-9a-fA-F]{64}$")

// Validator 请求数据验证器
type Validator struct {
	logger       *logrus.Logger
	errorHandler *coinerrors.ErrorHandler
	rules        map[string]ValidationRule
}

// ValidationRule 验证规则接口
type ValidationRule interface {
	Validate(field string, data interface{}) error
	Name() string
	Description() string
}

// ValidationResult 验证结果
type ValidationResult struct {
	Valid    bool                    `json:"valid"`
	Errors   []*coinerrors.CoinError `json:"errors,omitempty"`
	DataType string                  `json:"data_type"`
}

// FirstError 第一个错误，没有错误时返回nil
func (r *ValidationResult) FirstError() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[0]
}

// NewValidator 创建数据验证器
func NewValidator(logger *logrus.Logger) *Validator {
	v := &Validator{
		logger:       logger,
		errorHandler: coinerrors.NewErrorHandler(logger),
		rules:        make(map[string]ValidationRule),
	}

	// 注册默认验证规则
	v.AddRule(NewAddressValidationRule())
	v.AddRule(NewHashValidationRule())
	v.AddRule(NewAmountValidationRule())

	return v
}

// AddRule 添加验证规则
func (v *Validator) AddRule(rule ValidationRule) {
	v.rules[rule.Name()] = rule
	v.logger.Debugf("已注册验证规则: %s", rule.Name())
}

// Check 使用指定规则验证单个字段
func (v *Validator) Check(ruleName, field string, data interface{}) error {
	rule, ok := v.rules[ruleName]
	if !ok {
		return fmt.Errorf("未注册的验证规则: %s", ruleName)
	}
	return rule.Validate(field, data)
}

// ValidateRedemption 验证兑换记录请求
func (v *Validator) ValidateRedemption(r *models.Redemption) *ValidationResult {
	result := &ValidationResult{
		Valid:    true,
		DataType: "redemption",
		Errors:   make([]*coinerrors.CoinError, 0),
	}

	if r == nil || r.RewardID == "" || r.PointsBurned == "" || r.BurnTransactionHash == "" {
		result.Valid = false
		result.Errors = append(result.Errors, coinerrors.Validation("", "Missing required fields for redemption record."))
		return result
	}

	if _, err := ParsePositiveAmount("pointsBurned", r.PointsBurned); err != nil {
		result.Valid = false
		result.Errors = append(result.Errors, coinerrors.Validation("pointsBurned", "pointsBurned must be positive."))
	}

	if err := v.Check("hash", "burnTransactionHash", r.BurnTransactionHash); err != nil {
		result.Valid = false
		ce, _ := coinerrors.As(err)
		result.Errors = append(result.Errors, ce)
	}

	if !result.Valid {
		v.logger.WithField("reward_id", r.RewardID).Debugf("兑换记录验证失败: %d 个错误", len(result.Errors))
	}
	return result
}

// ValidateAddress 验证以太坊地址
func ValidateAddress(field, addr string) error {
	if !IsValidAddress(addr) {
		return coinerrors.Validation(field, fmt.Sprintf("Invalid '%s'.", field))
	}
	return nil
}

// IsValidAddress 0x开头的20字节十六进制地址
func IsValidAddress(addr string) bool {
	return strings.HasPrefix(addr, "0x") && common.IsHexAddress(addr)
}

// IsValidHash 0x开头的32字节十六进制哈希
func IsValidHash(hash string) bool {
	return hashRegex.MatchString(hash)
}

// ParsePositiveAmount 解析正整数数量，接受十进制字符串或JSON数字
func ParsePositiveAmount(field string, raw interface{}) (*big.Int, error) {
	invalid := coinerrors.Validation(field, fmt.Sprintf("'%s' must be a positive whole number.", field))

	var text string
	switch v := raw.(type) {
	case nil:
		return nil, coinerrors.Validation(field, fmt.Sprintf("'%s' is required.", field))
	case string:
		text = strings.TrimSpace(v)
	case json.Number:
		text = v.String()
	case float64:
		if v != math.Trunc(v) || math.IsInf(v, 0) || math.IsNaN(v) {
			return nil, invalid
		}
		text = strconv.FormatFloat(v, 'f', 0, 64)
	case int:
		text = strconv.Itoa(v)
	case int64:
		text = strconv.FormatInt(v, 10)
	case *big.Int:
		if v == nil {
			return nil, invalid
		}
		text = v.String()
	default:
		return nil, invalid
	}

	amount, ok := new(big.Int).SetString(text, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, invalid
	}
	return amount, nil
}

// ValidatePagination 页码从1开始，每页1到100条
func ValidatePagination(page, offset int) error {
	if page < 1 {
		return coinerrors.Validation("page", "Invalid 'page' parameter. Must be a number greater than or equal to 1.")
	}
	if offset < 1 || offset > MaxOffset {
		return coinerrors.Validation("offset", "Invalid 'offset' parameter. Must be a number between 1 and 100.")
	}
	return nil
}

// ParsePagination 解析查询参数中的分页，空值使用默认值
func ParsePagination(pageStr, offsetStr string, defaultOffset int) (int, int, error) {
	page, offset := 1, defaultOffset
	var err error

	if pageStr != "" {
		if page, err = strconv.Atoi(pageStr); err != nil {
			return 0, 0, ValidatePagination(0, offset)
		}
	}
	if offsetStr != "" {
		if offset, err = strconv.Atoi(offsetStr); err != nil {
			return 0, 0, ValidatePagination(page, 0)
		}
	}
	if err := ValidatePagination(page, offset); err != nil {
		return 0, 0, err
	}
	return page, offset, nil
}

// AddressValidationRule 地址验证规则
type AddressValidationRule struct{}

func NewAddressValidationRule() *AddressValidationRule {
	return &AddressValidationRule{}
}

func (r *AddressValidationRule) Name() string {
	return "address"
}

func (r *AddressValidationRule) Description() string {
	return "以太坊地址验证规则"
}

func (r *AddressValidationRule) Validate(field string, data interface{}) error {
	addr, ok := data.(string)
	if !ok {
		return coinerrors.Validation(field, fmt.Sprintf("Invalid '%s'.", field))
	}
	return ValidateAddress(field, addr)
}

// HashValidationRule 哈希验证规则
type HashValidationRule struct{}

func NewHashValidationRule() *HashValidationRule {
	return &HashValidationRule{}
}

func (r *HashValidationRule) Name() string {
	return "hash"
}

func (r *HashValidationRule) Description() string {
	return "交易哈希验证规则"
}

func (r *HashValidationRule) Validate(field string, data interface{}) error {
	hash, ok := data.(string)
	if !ok || !IsValidHash(hash) {
		return coinerrors.Validation(field, fmt.Sprintf("Invalid '%s'.", field))
	}
	return nil
}

// AmountValidationRule 正整数数量验证规则
type AmountValidationRule struct{}

func NewAmountValidationRule() *AmountValidationRule {
	return &AmountValidationRule{}
}

func (r *AmountValidationRule) Name() string {
	return "amount"
}

func (r *AmountValidationRule) Description() string {
	return "正整数数量验证规则"
}

func (r *AmountValidationRule) Validate(field string, data interface{}) error {
	_, err := ParsePositiveAmount(field, data)
	return err
}

// GetValidationStats 获取验证统计信息
func (v *Validator) GetValidationStats() map[string]interface{} {
	return map[string]interface{}{
		"registered_rules": len(v.rules),
		"error_stats":      v.errorHandler.GetStats(),
	}
}
