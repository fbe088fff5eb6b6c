package config

import (
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
)

// DatabaseConfig 数据库配置覆盖源（Postgres service_config 表）
type DatabaseConfig struct {
	DB     *sql.DB
	logger *logrus.Logger
}

// NewDatabaseConfig 创建数据库配置管理器
func NewDatabaseConfig(dsn string, logger *logrus.Logger) (*DatabaseConfig, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("数据库连接测试失败: %w", err)
	}

	return &DatabaseConfig{
		DB:     db,
		logger: logger,
	}, nil
}

// ApplyOverrides 读取启用的键值对并覆盖到配置上
func (dc *DatabaseConfig) ApplyOverrides(config *Config) error {
	overrides, err := dc.ListConfigs()
	if err != nil {
		return err
	}

	for key, value := range overrides {
		if err := ApplyOverride(config, key, value); err != nil {
			dc.logger.Warnf("忽略无效的配置项 %s: %v", key, err)
		}
	}
	return nil
}

// ApplyOverride 按键名覆盖单个配置项，不支持的键返回错误
func ApplyOverride(config *Config, key, value string) error {
	switch key {
	case "explorer.api_url":
		config.Explorer.APIURL = value
	case "explorer.chain_id":
		config.Explorer.ChainID = value
	case "explorer.page_delay":
		return setDuration(&config.Explorer.PageDelay, value)
	case "explorer.timeout":
		return setDuration(&config.Explorer.Timeout, value)
	case "explorer.page_size":
		return setInt(&config.Explorer.PageSize, value)
	case "explorer.max_txlist_pages":
		return setInt(&config.Explorer.MaxTxListPages, value)
	case "explorer.max_tokentx_pages":
		return setInt(&config.Explorer.MaxTokenTxPages, value)
	case "explorer.history_page_size":
		return setInt(&config.Explorer.HistoryPageSize, value)
	case "faucet.drip_amount_wei":
		config.Faucet.DripAmountWei = value
	case "faucet.min_balance_wei":
		config.Faucet.MinBalanceWei = value
	case "faucet.max_tx_count":
		return setInt(&config.Faucet.MaxTxCount, value)
	case "token.default_symbol":
		config.Token.DefaultSymbol = value
	case "output.format":
		config.Output.Format = value
	case "output.kafka_brokers":
		config.Output.Kafka.Brokers = strings.Split(value, ",")
	case "output.kafka_topic":
		config.Output.Kafka.Topic = value
	case "cache.enabled":
		config.Cache.Enabled = strings.ToLower(value) == "true"
	case "cache.overview_ttl":
		return setDuration(&config.Cache.OverviewTTL, value)
	case "logging.level":
		config.Logging.Level = value
	default:
		return fmt.Errorf("不支持的配置键")
	}
	return nil
}

func setInt(dst *int, value string) error {
	v, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

func setDuration(dst *time.Duration, value string) error {
	v, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	*dst = v
	return nil
}

// UpdateConfig 更新配置
func (dc *DatabaseConfig) UpdateConfig(key, value string) error {
	query := `
		INSERT INTO service_config (config_key, config_value, updated_at)
		VALUES ($1, $2, CURRENT_TIMESTAMP)
		ON CONFLICT (config_key)
		DO UPDATE SET config_value = $2, updated_at = CURRENT_TIMESTAMP
	`
	_, err := dc.DB.Exec(query, key, value)
	return err
}

// GetConfig 获取配置值
func (dc *DatabaseConfig) GetConfig(key string) (string, error) {
	var value string
	err := dc.DB.QueryRow(`SELECT config_value FROM service_config WHERE config_key = $1 AND is_active = true`, key).Scan(&value)
	return value, err
}

// ListConfigs 列出所有启用的配置
func (dc *DatabaseConfig) ListConfigs() (map[string]string, error) {
	rows, err := dc.DB.Query(`SELECT config_key, config_value FROM service_config WHERE is_active = true`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	configs := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, err
		}
		configs[key] = value
	}
	return configs, rows.Err()
}

// Close 关闭数据库连接
func (dc *DatabaseConfig) Close() error {
	if dc.DB != nil {
		return dc.DB.Close()
	}
	return nil
}
