package contract

import (
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefault(t *testing.T) {
	parsed, err := Load("")
	require.NoError(t, err)

	for _, name := range []string{"name", "symbol", "decimals", "totalSupply", "balanceOf", "mint", "burn", "owner"} {
		_, ok := parsed.Methods[name]
		assert.True(t, ok, "缺少函数 %s", name)
	}

	mint := parsed.Methods["mint"]
	assert.Equal(t, "mint(address,uint256)", mint.Sig)
	assert.Equal(t, "40c10f19", hex.EncodeToString(mint.ID))

	_, ok := parsed.Errors["OwnableUnauthorizedAccount"]
	assert.True(t, ok)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "abi.json")
	require.NoError(t, os.WriteFile(path, []byte(`[{"type":"function","name":"mint","inputs":[{"name":"to","type":"address"},{"name":"amount","type":"uint256"}],"outputs":[]}]`), 0644))

	parsed, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, parsed.Methods, 1)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0644))
	_, err = Load(path)
	assert.Error(t, err)
}
