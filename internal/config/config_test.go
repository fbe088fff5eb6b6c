package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testContract = "0x5FbDB2315678afecb367f032d93F642f64180aa3"

func TestGetDefaultConfig(t *testing.T) {
	config := GetDefaultConfig()

	assert.NotNil(t, config.Blockchain)
	assert.NotNil(t, config.Explorer)
	assert.NotNil(t, config.Faucet)
	assert.NotNil(t, config.Output)
	assert.NotNil(t, config.Logging)
	assert.NotNil(t, config.Retry)

	// 测试区块浏览器配置
	assert.Equal(t, "https://api-sepolia.etherscan.io/api", config.Explorer.APIURL)
	assert.Equal(t, 300*time.Millisecond, config.Explorer.PageDelay)
	assert.Equal(t, 1000, config.Explorer.PageSize)
	assert.Equal(t, 5, config.Explorer.MaxTxListPages)
	assert.Equal(t, 10, config.Explorer.MaxTokenTxPages)
	assert.Equal(t, 100, config.Explorer.HistoryPageSize)

	// 测试补贴配置
	drip, err := config.Faucet.DripAmount()
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000", drip.String())
	floor, err := config.Faucet.MinBalance()
	require.NoError(t, err)
	assert.Equal(t, "5000000000000000", floor.String())
	assert.Equal(t, 5, config.Faucet.MaxTxCount)

	assert.Equal(t, "CFC", config.Token.DefaultSymbol)
	assert.Equal(t, "memory", config.Output.Format)
	assert.False(t, config.Cache.Enabled)
	assert.False(t, config.HasSigner())
}

func TestLoadConfigFromFile_EnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("SEPOLIA_RPC_URL", "https://sepolia.example/rpc")
	t.Setenv("COFFEE_COIN_CONTRACT_ADDRESS", testContract)
	t.Setenv("SERVER_WALLET_PRIVATE_KEY", "deadbeef")
	t.Setenv("ETHERSCAN_API_KEY", "scan-key")
	t.Setenv("PORT", "8088")

	config, err := LoadConfigFromFile("")
	require.NoError(t, err)

	assert.Equal(t, "https://sepolia.example/rpc", config.Blockchain.RPCURL)
	assert.Equal(t, testContract, config.Blockchain.ContractAddress)
	assert.Equal(t, "scan-key", config.Explorer.APIKey)
	assert.Equal(t, 8088, config.Server.Port)
	assert.True(t, config.HasSigner())
	assert.NoError(t, config.Validate())
}

// clearEnv 屏蔽运行环境中的同名变量
func clearEnv(t *testing.T) {
	t.Helper()
	for _, envs := range envBindings {
		for _, env := range envs {
			t.Setenv(env, "")
		}
	}
}

func TestLoadConfigFromFile_YAML(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yaml := `
blockchain:
  rpc_url: https://rpc.example
  contract_address: ` + testContract + `
explorer:
  api_key: from-file
  page_delay: 50ms
  max_tokentx_pages: 3
faucet:
  max_tx_count: 7
output:
  format: kafka
  kafka:
    brokers: ["kafka-1:9092", "kafka-2:9092"]
    topic: ledger
cache:
  enabled: true
  overview_ttl: 2m
logging:
  level: debug
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0644))

	config, err := LoadConfigFromFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://rpc.example", config.Blockchain.RPCURL)
	assert.Equal(t, "from-file", config.Explorer.APIKey)
	assert.Equal(t, 50*time.Millisecond, config.Explorer.PageDelay)
	assert.Equal(t, 3, config.Explorer.MaxTokenTxPages)
	assert.Equal(t, 5, config.Explorer.MaxTxListPages) // 未配置的键保留默认值
	assert.Equal(t, 7, config.Faucet.MaxTxCount)
	assert.Equal(t, "kafka", config.Output.Format)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, config.Output.Kafka.Brokers)
	assert.Equal(t, "ledger", config.Output.Kafka.Topic)
	assert.True(t, config.Cache.Enabled)
	assert.Equal(t, 2*time.Minute, config.Cache.OverviewTTL)
	assert.Equal(t, "debug", config.Logging.Level)
	assert.NoError(t, config.Validate())
}

func TestLoadConfigFromFile_MissingFile(t *testing.T) {
	_, err := LoadConfigFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		c := GetDefaultConfig()
		c.Blockchain.RPCURL = "https://rpc.example"
		c.Blockchain.ContractAddress = testContract
		return c
	}

	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr string
	}{
		{"valid", func(c *Config) {}, ""},
		{"missing rpc", func(c *Config) { c.Blockchain.RPCURL = "" }, "SEPOLIA_RPC_URL"},
		{"missing contract", func(c *Config) { c.Blockchain.ContractAddress = "" }, "COFFEE_COIN_CONTRACT_ADDRESS"},
		{"bad contract", func(c *Config) { c.Blockchain.ContractAddress = "0x123" }, "合约地址格式无效"},
		{"page size", func(c *Config) { c.Explorer.PageSize = 0 }, "page_size"},
		{"page caps", func(c *Config) { c.Explorer.MaxTxListPages = 0 }, "最大页数"},
		{"drip amount", func(c *Config) { c.Faucet.DripAmountWei = "-1" }, "drip_amount_wei"},
		{"floor", func(c *Config) { c.Faucet.MinBalanceWei = "abc" }, "min_balance_wei"},
		{"tx ceiling", func(c *Config) { c.Faucet.MaxTxCount = 0 }, "max_tx_count"},
		{"port", func(c *Config) { c.Server.Port = 70000 }, "server.port"},
		{"output format", func(c *Config) { c.Output.Format = "s3" }, "不支持的输出格式"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestApplyOverride(t *testing.T) {
	config := GetDefaultConfig()

	require.NoError(t, ApplyOverride(config, "explorer.page_delay", "1s"))
	require.NoError(t, ApplyOverride(config, "explorer.max_txlist_pages", "2"))
	require.NoError(t, ApplyOverride(config, "faucet.drip_amount_wei", "1"))
	require.NoError(t, ApplyOverride(config, "output.kafka_brokers", "a:1,b:2"))
	require.NoError(t, ApplyOverride(config, "cache.enabled", "TRUE"))
	require.NoError(t, ApplyOverride(config, "token.default_symbol", "BREW"))

	assert.Equal(t, time.Second, config.Explorer.PageDelay)
	assert.Equal(t, 2, config.Explorer.MaxTxListPages)
	assert.Equal(t, "1", config.Faucet.DripAmountWei)
	assert.Equal(t, []string{"a:1", "b:2"}, config.Output.Kafka.Brokers)
	assert.True(t, config.Cache.Enabled)
	assert.Equal(t, "BREW", config.Token.DefaultSymbol)

	assert.Error(t, ApplyOverride(config, "explorer.page_size", "many"))
	assert.Error(t, ApplyOverride(config, "explorer.timeout", "soon"))
	assert.Error(t, ApplyOverride(config, "unknown.key", "x"))
}

// 基准测试
func BenchmarkLoadConfigFromFile(b *testing.B) {
	for i := 0; i < b.N; i++ {
		_, _ = LoadConfigFromFile("")
	}
}
