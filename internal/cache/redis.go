package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"coffeecoin/internal/config"
	"coffeecoin/pkg/models"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const overviewKeyPrefix = "coffeecoin:overview:"

// Client 缓存用到的Redis命令，*redis.Client满足该接口
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	Ping(ctx context.Context) *redis.StatusCmd
	Close() error
}

// Redis 合约概览缓存
type Redis struct {
	cli    Client
	ttl    time.Duration
	logger *logrus.Logger
}

// NewRedis 按配置连接Redis
func NewRedis(ctx context.Context, cfg *config.CacheConfig, logger *logrus.Logger) (*Redis, error) {
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := cli.Ping(ctx).Err(); err != nil {
		cli.Close()
		return nil, fmt.Errorf("连接Redis失败: %w", err)
	}
	logger.Infof("概览缓存已启用，Redis: %s, TTL: %v", cfg.RedisAddr, cfg.OverviewTTL)
	return NewRedisWithClient(cli, cfg.OverviewTTL, logger), nil
}

// NewRedisWithClient 使用已有客户端创建缓存
func NewRedisWithClient(cli Client, ttl time.Duration, logger *logrus.Logger) *Redis {
	if ttl <= 0 {
		ttl = time.Minute
	}
	return &Redis{cli: cli, ttl: ttl, logger: logger}
}

func overviewKey(contract string) string {
	return overviewKeyPrefix + strings.ToLower(contract)
}

// GetOverview 读取缓存的概览，未命中返回nil, nil
func (r *Redis) GetOverview(ctx context.Context, contract string) (*models.ContractOverview, error) {
	data, err := r.cli.Get(ctx, overviewKey(contract)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("读取概览缓存失败: %w", err)
	}

	var overview models.ContractOverview
	if err := json.Unmarshal(data, &overview); err != nil {
		r.logger.Warnf("概览缓存内容无效，忽略: %v", err)
		return nil, nil
	}
	return &overview, nil
}

// SetOverview 写入概览，按合约地址分键
func (r *Redis) SetOverview(ctx context.Context, overview *models.ContractOverview) error {
	data, err := json.Marshal(overview)
	if err != nil {
		return fmt.Errorf("序列化概览失败: %w", err)
	}
	if err := r.cli.Set(ctx, overviewKey(overview.ContractAddress), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("写入概览缓存失败: %w", err)
	}
	return nil
}

// Ping 健康检查
func (r *Redis) Ping(ctx context.Context) error {
	return r.cli.Ping(ctx).Err()
}

// Close 关闭连接
func (r *Redis) Close() error {
	return r.cli.Close()
}
