package config

import (
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"coffeecoin/internal/logging"
	"coffeecoin/internal/retry"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Config 主配置
type Config struct {
	Blockchain *BlockchainConfig  `mapstructure:"blockchain"`
	Explorer   *ExplorerConfig    `mapstructure:"explorer"`
	Faucet     *FaucetConfig      `mapstructure:"faucet"`
	Token      *TokenConfig       `mapstructure:"token"`
	Server     *ServerConfig      `mapstructure:"server"`
	Output     *OutputConfig      `mapstructure:"output"`
	Cache      *CacheConfig       `mapstructure:"cache"`
	Retry      *retry.RetryConfig `mapstructure:"retry"`
	Logging    *logging.LogConfig `mapstructure:"logging"`
}

// BlockchainConfig 区块链配置
type BlockchainConfig struct {
	RPCURL           string        `mapstructure:"rpc_url"`
	ContractAddress  string        `mapstructure:"contract_address"`
	ServerPrivateKey string        `mapstructure:"server_private_key"`
	ABIPath          string        `mapstructure:"abi_path"`
	DialTimeout      time.Duration `mapstructure:"dial_timeout"`
	ReceiptTimeout   time.Duration `mapstructure:"receipt_timeout"`
	ReceiptPoll      time.Duration `mapstructure:"receipt_poll"`
}

// ExplorerConfig 区块浏览器（Etherscan）配置
type ExplorerConfig struct {
	APIURL          string        `mapstructure:"api_url"`
	APIKey          string        `mapstructure:"api_key"`
	ChainID         string        `mapstructure:"chain_id"`
	Timeout         time.Duration `mapstructure:"timeout"`
	PageDelay       time.Duration `mapstructure:"page_delay"`
	PageSize        int           `mapstructure:"page_size"`
	MaxTxListPages  int           `mapstructure:"max_txlist_pages"`
	MaxTokenTxPages int           `mapstructure:"max_tokentx_pages"`
	HistoryPageSize int           `mapstructure:"history_page_size"`
}

// FaucetConfig ETH补贴配置（单位wei，十进制字符串）
type FaucetConfig struct {
	DripAmountWei string `mapstructure:"drip_amount_wei"`
	MinBalanceWei string `mapstructure:"min_balance_wei"`
	MaxTxCount    int    `mapstructure:"max_tx_count"`
}

// TokenConfig 代币展示配置
type TokenConfig struct {
	DefaultSymbol string `mapstructure:"default_symbol"`
}

// ServerConfig HTTP服务配置
type ServerConfig struct {
	Port           int      `mapstructure:"port"`
	AdminToken     string   `mapstructure:"admin_token"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// KafkaConfig Kafka配置
type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

// OutputConfig 事件输出配置
type OutputConfig struct {
	Format         string       `mapstructure:"format"` // memory, file, kafka
	Directory      string       `mapstructure:"directory"`
	MemoryCapacity int          `mapstructure:"memory_capacity"`
	Kafka          *KafkaConfig `mapstructure:"kafka"`
}

// CacheConfig 概览缓存配置
type CacheConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	RedisAddr   string        `mapstructure:"redis_addr"`
	Password    string        `mapstructure:"password"`
	DB          int           `mapstructure:"db"`
	OverviewTTL time.Duration `mapstructure:"overview_ttl"`
}

// 环境变量到配置键的映射
var envBindings = map[string][]string{
	"blockchain.rpc_url":            {"SEPOLIA_RPC_URL", "COFFEECOIN_RPC_URL"},
	"blockchain.contract_address":   {"COFFEE_COIN_CONTRACT_ADDRESS"},
	"blockchain.server_private_key": {"SERVER_WALLET_PRIVATE_KEY"},
	"explorer.api_key":              {"ETHERSCAN_API_KEY"},
	"explorer.api_url":              {"ETHERSCAN_API_URL"},
	"server.admin_token":            {"ADMIN_TOKEN"},
	"server.port":                   {"PORT"},
	"cache.redis_addr":              {"REDIS_ADDR"},
}

// LoadConfig 加载配置：默认值 -> YAML文件（可选）-> 环境变量 -> 数据库覆盖（可选）
func LoadConfig(configPath string, logger *logrus.Logger) (*Config, error) {
	config, err := LoadConfigFromFile(configPath)
	if err != nil {
		return nil, err
	}

	if dsn := os.Getenv("COFFEECOIN_DB_DSN"); dsn != "" {
		dbConfig, err := NewDatabaseConfig(dsn, logger)
		if err != nil {
			return nil, fmt.Errorf("连接配置数据库失败: %w", err)
		}
		defer dbConfig.Close()

		if err := dbConfig.ApplyOverrides(config); err != nil {
			return nil, fmt.Errorf("从数据库加载配置失败: %w", err)
		}
		logger.Info("已应用数据库中的配置覆盖项")
	}

	return config, nil
}

// LoadConfigFromFile 从文件和环境变量加载配置，configPath为空时只使用默认值与环境变量
func LoadConfigFromFile(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, envs := range envBindings {
		args := append([]string{key}, envs...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("绑定环境变量失败: %w", err)
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	config := GetDefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return config, nil
}

// setDefaults 将默认配置注册到viper，使环境变量覆盖对所有键生效
func setDefaults(v *viper.Viper) {
	d := GetDefaultConfig()
	v.SetDefault("blockchain.dial_timeout", d.Blockchain.DialTimeout)
	v.SetDefault("blockchain.receipt_timeout", d.Blockchain.ReceiptTimeout)
	v.SetDefault("blockchain.receipt_poll", d.Blockchain.ReceiptPoll)
	v.SetDefault("explorer.api_url", d.Explorer.APIURL)
	v.SetDefault("explorer.timeout", d.Explorer.Timeout)
	v.SetDefault("explorer.page_delay", d.Explorer.PageDelay)
	v.SetDefault("explorer.page_size", d.Explorer.PageSize)
	v.SetDefault("explorer.max_txlist_pages", d.Explorer.MaxTxListPages)
	v.SetDefault("explorer.max_tokentx_pages", d.Explorer.MaxTokenTxPages)
	v.SetDefault("explorer.history_page_size", d.Explorer.HistoryPageSize)
	v.SetDefault("faucet.drip_amount_wei", d.Faucet.DripAmountWei)
	v.SetDefault("faucet.min_balance_wei", d.Faucet.MinBalanceWei)
	v.SetDefault("faucet.max_tx_count", d.Faucet.MaxTxCount)
	v.SetDefault("token.default_symbol", d.Token.DefaultSymbol)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.allowed_origins", d.Server.AllowedOrigins)
	v.SetDefault("output.format", d.Output.Format)
	v.SetDefault("output.directory", d.Output.Directory)
	v.SetDefault("output.memory_capacity", d.Output.MemoryCapacity)
	v.SetDefault("output.kafka.topic", d.Output.Kafka.Topic)
	v.SetDefault("cache.overview_ttl", d.Cache.OverviewTTL)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.format", d.Logging.Format)
	v.SetDefault("logging.output", d.Logging.Output)
}

// GetDefaultConfig 获取默认配置
func GetDefaultConfig() *Config {
	return &Config{
		Blockchain: &BlockchainConfig{
			RPCURL:          "", // 需要通过SEPOLIA_RPC_URL或YAML指定
			ContractAddress: "",
			DialTimeout:     10 * time.Second,
			ReceiptTimeout:  2 * time.Minute,
			ReceiptPoll:     2 * time.Second,
		},
		Explorer: &ExplorerConfig{
			APIURL:          "https://api-sepolia.etherscan.io/api",
			Timeout:         15 * time.Second,
			PageDelay:       300 * time.Millisecond,
			PageSize:        1000,
			MaxTxListPages:  5,
			MaxTokenTxPages: 10,
			HistoryPageSize: 100,
		},
		Faucet: &FaucetConfig{
			DripAmountWei: "10000000000000000", // 0.01 ETH
			MinBalanceWei: "5000000000000000",  // 0.005 ETH
			MaxTxCount:    5,
		},
		Token: &TokenConfig{
			DefaultSymbol: "CFC",
		},
		Server: &ServerConfig{
			Port:           3001,
			AllowedOrigins: []string{"*"},
		},
		Output: &OutputConfig{
			Format:         "memory",
			Directory:      "./outputs",
			MemoryCapacity: 1000,
			Kafka: &KafkaConfig{
				Brokers: []string{"localhost:9092"},
				Topic:   "coffeecoin_ledger_events",
			},
		},
		Cache: &CacheConfig{
			Enabled:     false,
			RedisAddr:   "localhost:6379",
			OverviewTTL: time.Minute,
		},
		Retry:   retry.DefaultRetryConfig(),
		Logging: logging.DefaultLogConfig(),
	}
}

// Validate 校验启动必需的配置，缺失RPC或合约地址视为致命错误
func (c *Config) Validate() error {
	var problems []string

	if c.Blockchain == nil || c.Blockchain.RPCURL == "" {
		problems = append(problems, "SEPOLIA_RPC_URL (blockchain.rpc_url) 未配置")
	}
	if c.Blockchain == nil || c.Blockchain.ContractAddress == "" {
		problems = append(problems, "COFFEE_COIN_CONTRACT_ADDRESS (blockchain.contract_address) 未配置")
	} else if !common.IsHexAddress(c.Blockchain.ContractAddress) {
		problems = append(problems, fmt.Sprintf("合约地址格式无效: %s", c.Blockchain.ContractAddress))
	}

	if c.Explorer != nil {
		if c.Explorer.PageSize < 1 || c.Explorer.PageSize > 10000 {
			problems = append(problems, fmt.Sprintf("explorer.page_size 超出范围: %d", c.Explorer.PageSize))
		}
		if c.Explorer.MaxTxListPages < 1 || c.Explorer.MaxTokenTxPages < 1 {
			problems = append(problems, "explorer 最大页数必须大于0")
		}
		if c.Explorer.HistoryPageSize < 1 || c.Explorer.HistoryPageSize > 10000 {
			problems = append(problems, fmt.Sprintf("explorer.history_page_size 超出范围: %d", c.Explorer.HistoryPageSize))
		}
		if c.Explorer.PageDelay < 0 {
			problems = append(problems, "explorer.page_delay 不能为负数")
		}
	}

	if c.Faucet != nil {
		if _, err := c.Faucet.DripAmount(); err != nil {
			problems = append(problems, err.Error())
		}
		if _, err := c.Faucet.MinBalance(); err != nil {
			problems = append(problems, err.Error())
		}
		if c.Faucet.MaxTxCount < 1 {
			problems = append(problems, fmt.Sprintf("faucet.max_tx_count 必须大于0: %d", c.Faucet.MaxTxCount))
		}
	}

	if c.Server != nil && (c.Server.Port < 1 || c.Server.Port > 65535) {
		problems = append(problems, fmt.Sprintf("server.port 超出范围: %d", c.Server.Port))
	}

	if c.Output != nil {
		switch c.Output.Format {
		case "memory", "file", "kafka":
		default:
			problems = append(problems, fmt.Sprintf("不支持的输出格式: %s", c.Output.Format))
		}
	}

	if len(problems) > 0 {
		return fmt.Errorf("配置无效: %s", strings.Join(problems, "; "))
	}
	return nil
}

// HasSigner 是否配置了服务端钱包
func (c *Config) HasSigner() bool {
	return c.Blockchain != nil && c.Blockchain.ServerPrivateKey != ""
}

// DripAmount 补贴金额（wei）
func (f *FaucetConfig) DripAmount() (*big.Int, error) {
	return parseWei("faucet.drip_amount_wei", f.DripAmountWei)
}

// MinBalance 免补贴的最低余额（wei）
func (f *FaucetConfig) MinBalance() (*big.Int, error) {
	return parseWei("faucet.min_balance_wei", f.MinBalanceWei)
}

func parseWei(key, value string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(strings.TrimSpace(value), 10)
	if !ok || v.Sign() <= 0 {
		return nil, fmt.Errorf("%s 必须为正整数: %q", key, value)
	}
	return v, nil
}
