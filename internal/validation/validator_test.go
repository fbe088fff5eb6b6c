package validation

import (
	"encoding/json"
	"io"
	"math/big"
	"strings"
	"testing"

	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/pkg/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestValidator() *Validator {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewValidator(logger)
}

func TestNewValidator(t *testing.T) {
	validator := newTestValidator()

	assert.NotNil(t, validator)
	assert.Equal(t, 3, len(validator.rules)) // 默认注册的规则数量
	assert.Equal(t, 3, validator.GetValidationStats()["registered_rules"])
}

func TestValidateAddress(t *testing.T) {
	tests := []struct {
		addr  string
		valid bool
	}{
		{"0x5FbDB2315678afecb367f032d93F642f64180aa3", true},
		{"0x5fbdb2315678afecb367f032d93f642f64180aa3", true},
		{"5FbDB2315678afecb367f032d93F642f64180aa3", false},
		{"0x123", false},
		{"", false},
		{"0xZZbDB2315678afecb367f032d93F642f64180aa3", false},
	}
	for _, tt := range tests {
		err := ValidateAddress("recipientAddress", tt.addr)
		if tt.valid {
			assert.NoError(t, err, tt.addr)
			continue
		}
		require.Error(t, err, tt.addr)
		ce, ok := coinerrors.As(err)
		require.True(t, ok)
		assert.Equal(t, "recipientAddress", ce.Field)
		assert.Equal(t, "Invalid 'recipientAddress'.", ce.Message)
		assert.Equal(t, 400, ce.HTTPStatus())
	}
}

func TestIsValidHash(t *testing.T) {
	assert.True(t, IsValidHash("0x"+strings.Repeat("ab", 32)))
	assert.False(t, IsValidHash("0x"+strings.Repeat("ab", 31)))
	assert.False(t, IsValidHash(strings.Repeat("ab", 33)))
	assert.False(t, IsValidHash("0x"+strings.Repeat("zz", 32)))
}

func TestParsePositiveAmount(t *testing.T) {
	huge, _ := new(big.Int).SetString("123456789012345678901234567890", 10)

	tests := []struct {
		name string
		raw  interface{}
		want string
	}{
		{"string", "500", "500"},
		{"padded string", " 42 ", "42"},
		{"json number", json.Number("7"), "7"},
		{"float whole", float64(100), "100"},
		{"int", 3, "3"},
		{"big string", huge.String(), huge.String()},
		{"zero", "0", ""},
		{"negative", "-5", ""},
		{"fraction", float64(1.5), ""},
		{"decimal string", "1.5", ""},
		{"garbage", "abc", ""},
		{"bool", true, ""},
		{"missing", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			amount, err := ParsePositiveAmount("amount", tt.raw)
			if tt.want == "" {
				require.Error(t, err)
				assert.True(t, coinerrors.IsKind(err, coinerrors.KindValidation))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, amount.String())
		})
	}
}

func TestParsePagination(t *testing.T) {
	tests := []struct {
		name       string
		page       string
		offset     string
		wantPage   int
		wantOffset int
		wantField  string
	}{
		{"defaults", "", "", 1, DefaultOffset, ""},
		{"explicit", "3", "25", 3, 25, ""},
		{"max offset", "1", "100", 1, 100, ""},
		{"page zero", "0", "10", 0, 0, "page"},
		{"page text", "abc", "10", 0, 0, "page"},
		{"offset too big", "1", "101", 0, 0, "offset"},
		{"offset zero", "1", "0", 0, 0, "offset"},
		{"offset text", "1", "x", 0, 0, "offset"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, offset, err := ParsePagination(tt.page, tt.offset, DefaultOffset)
			if tt.wantField != "" {
				require.Error(t, err)
				ce, ok := coinerrors.As(err)
				require.True(t, ok)
				assert.Equal(t, tt.wantField, ce.Field)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantPage, page)
			assert.Equal(t, tt.wantOffset, offset)
		})
	}
}

func TestValidateRedemption(t *testing.T) {
	validator := newTestValidator()
	hash := "0x" + strings.Repeat("1f", 32)

	result := validator.ValidateRedemption(&models.Redemption{
		RewardID:            "latte",
		PointsBurned:        "50",
		BurnTransactionHash: hash,
	})
	assert.True(t, result.Valid)
	assert.NoError(t, result.FirstError())

	result = validator.ValidateRedemption(&models.Redemption{RewardID: "latte"})
	assert.False(t, result.Valid)
	assert.Contains(t, result.FirstError().Error(), "Missing required fields")

	result = validator.ValidateRedemption(&models.Redemption{
		RewardID:            "latte",
		PointsBurned:        "0",
		BurnTransactionHash: "0xnothash",
	})
	assert.False(t, result.Valid)
	assert.Len(t, result.Errors, 2)
	assert.Equal(t, "pointsBurned", result.Errors[0].Field)
	assert.Equal(t, "burnTransactionHash", result.Errors[1].Field)
}

func TestCheck_UnknownRule(t *testing.T) {
	validator := newTestValidator()
	assert.Error(t, validator.Check("block", "x", nil))
	assert.NoError(t, validator.Check("amount", "amount", "5"))
	assert.Error(t, validator.Check("address", "address", 12))
}
