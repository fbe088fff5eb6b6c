package contract

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/accounts/abi"
)

//go:embed coffeecoin.abi.json
var coffeeCoinABI []byte

// DefaultABI 内置的CoffeeCoin合约ABI
func DefaultABI() []byte {
	return coffeeCoinABI
}

// Load 加载合约ABI，path为空时使用内置ABI
func Load(path string) (abi.ABI, error) {
	raw := coffeeCoinABI
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return abi.ABI{}, fmt.Errorf("读取ABI文件失败: %w", err)
		}
		raw = data
	}

	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		return abi.ABI{}, fmt.Errorf("解析ABI失败: %w", err)
	}
	if len(parsed.Methods) == 0 {
		return abi.ABI{}, fmt.Errorf("ABI中没有任何函数定义")
	}
	return parsed, nil
}

// MustLoadDefault 加载内置ABI，失败时panic
func MustLoadDefault() abi.ABI {
	parsed, err := Load("")
	if err != nil {
		panic(err)
	}
	return parsed
}
