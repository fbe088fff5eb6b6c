package decoder

import (
	"fmt"
	"sort"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
)

// 需要跟踪的函数签名
const (
	SigMint          = "mint(address,uint256)"
	SigBurn          = "burn(uint256)"
	SigRedeemAndBurn = "redeemAndBurn(address,uint256)"
)

// TrackedFunction 待跟踪的函数，Required为true时ABI缺失即启动失败
type TrackedFunction struct {
	Signature string
	Required  bool
}

// DefaultTrackedFunctions 默认跟踪列表
var DefaultTrackedFunctions = []TrackedFunction{
	{Signature: SigMint, Required: true},
	{Signature: SigBurn, Required: false},
	{Signature: SigRedeemAndBurn, Required: false},
}

// SelectorEntry 签名到选择器的映射项
type SelectorEntry struct {
	Signature string      `json:"signature"`
	Selector  string      `json:"selector"`
	Enabled   bool        `json:"enabled"`
	Required  bool        `json:"required"`
	method    *abi.Method
}

// SelectorRegistry 显式的签名 -> 选择器表，在启动时一次性构建并校验
type SelectorRegistry struct {
	entries    map[string]SelectorEntry
	bySelector map[string]string
}

// ComputeSelector 计算函数签名的4字节选择器（0x前缀，小写）
func ComputeSelector(signature string) string {
	return hexutil.Encode(crypto.Keccak256([]byte(signature))[:4])
}

// NewSelectorRegistry 根据ABI构建选择器表
func NewSelectorRegistry(parsed abi.ABI, tracked []TrackedFunction) (*SelectorRegistry, error) {
	reg := &SelectorRegistry{
		entries:    make(map[string]SelectorEntry, len(tracked)),
		bySelector: make(map[string]string, len(tracked)),
	}

	bySig := make(map[string]abi.Method, len(parsed.Methods))
	for _, m := range parsed.Methods {
		bySig[m.Sig] = m
	}

	for _, fn := range tracked {
		selector := ComputeSelector(fn.Signature)
		entry := SelectorEntry{
			Signature: fn.Signature,
			Selector:  selector,
			Required:  fn.Required,
		}

		method, ok := bySig[fn.Signature]
		if !ok {
			if fn.Required {
				return nil, fmt.Errorf("合约ABI中缺少必需函数 %s", fn.Signature)
			}
			reg.entries[fn.Signature] = entry
			continue
		}
		if hexutil.Encode(method.ID) != selector {
			return nil, fmt.Errorf("函数 %s 的选择器不一致: ABI=%s 计算=%s", fn.Signature, hexutil.Encode(method.ID), selector)
		}

		m := method
		entry.Enabled = true
		entry.method = &m
		reg.entries[fn.Signature] = entry
		reg.bySelector[selector] = fn.Signature
	}

	return reg, nil
}

// Selector 返回签名对应的选择器以及是否启用
func (r *SelectorRegistry) Selector(signature string) (string, bool) {
	entry, ok := r.entries[signature]
	if !ok {
		return "", false
	}
	return entry.Selector, entry.Enabled
}

// Enabled 签名是否被跟踪
func (r *SelectorRegistry) Enabled(signature string) bool {
	_, enabled := r.Selector(signature)
	return enabled
}

// Lookup 按选择器查找已启用的签名
func (r *SelectorRegistry) Lookup(selector string) (string, bool) {
	sig, ok := r.bySelector[selector]
	return sig, ok
}

func (r *SelectorRegistry) method(signature string) *abi.Method {
	entry, ok := r.entries[signature]
	if !ok || !entry.Enabled {
		return nil
	}
	return entry.method
}

// Entries 按签名排序的全部映射项
func (r *SelectorRegistry) Entries() []SelectorEntry {
	out := make([]SelectorEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Signature < out[j].Signature })
	return out
}

// Disabled 未启用跟踪的签名
func (r *SelectorRegistry) Disabled() []string {
	var out []string
	for _, e := range r.Entries() {
		if !e.Enabled {
			out = append(out, e.Signature)
		}
	}
	return out
}
