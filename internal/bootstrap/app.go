package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"

	"coffeecoin/internal/api"
	"coffeecoin/internal/cache"
	"coffeecoin/internal/config"
	"coffeecoin/internal/connection"
	"coffeecoin/internal/contract"
	"coffeecoin/internal/decoder"
	"coffeecoin/internal/explorer"
	"coffeecoin/internal/faucet"
	"coffeecoin/internal/ledger"
	"coffeecoin/internal/output"
	"coffeecoin/internal/retry"
	"coffeecoin/internal/shutdown"
	"coffeecoin/internal/token"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/sirupsen/logrus"
)

// App 组装好的服务组件
type App struct {
	Config       *config.Config
	Logger       *logrus.Logger
	ABI          abi.ABI
	Selectors    *decoder.SelectorRegistry
	Decoder      *decoder.InputDecoder
	Node         *connection.Node
	Explorer     *explorer.Client
	Transactor   *token.Transactor
	Token        *token.Client
	Faucet       *faucet.Faucet
	Overview     *ledger.Aggregator
	History      *ledger.HistoryService
	Interactions *ledger.InteractionService
	Sink         *output.MultiSink
	Activity     *output.MemorySink
	Cache        *cache.Redis
	ConfigStore  *config.DatabaseConfig
}

// Build 按配置创建所有组件，缺少私钥或浏览器key时对应功能降级
func Build(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*App, error) {
	app := &App{Config: cfg, Logger: logger}

	parsed, err := contract.Load(cfg.Blockchain.ABIPath)
	if err != nil {
		return nil, err
	}
	app.ABI = parsed

	selectors, err := decoder.NewSelectorRegistry(parsed, decoder.DefaultTrackedFunctions)
	if err != nil {
		return nil, fmt.Errorf("构建函数选择器表失败: %w", err)
	}
	for _, sig := range selectors.Disabled() {
		logger.Warnf("合约ABI中没有 %s，相关统计已禁用", sig)
	}
	app.Selectors = selectors
	app.Decoder = decoder.NewInputDecoder(parsed, selectors, logger)

	node, err := connection.Dial(ctx, cfg.Blockchain.RPCURL, cfg.Blockchain.DialTimeout, logger)
	if err != nil {
		return nil, err
	}
	app.Node = node

	retrier := retry.NewRetrier(cfg.Retry, logger)
	app.Explorer = explorer.NewClient(cfg.Explorer, retrier, logger)
	if !app.Explorer.Configured() {
		logger.Warn("ETHERSCAN_API_KEY 未配置，历史、交互与概览统计不可用")
	}

	if cfg.HasSigner() {
		signer, err := token.NewSigner(cfg.Blockchain.ServerPrivateKey)
		if err != nil {
			app.Close()
			return nil, err
		}
		app.Transactor = token.NewTransactor(node.Client(), signer, cfg.Blockchain.ReceiptPoll, cfg.Blockchain.ReceiptTimeout, logger)
		logger.Infof("服务端钱包: %s", signer.Address.Hex())
	} else {
		logger.Warn("SERVER_WALLET_PRIVATE_KEY 未配置，铸造与ETH补贴不可用")
	}

	contractAddr := common.HexToAddress(cfg.Blockchain.ContractAddress)
	app.Token = token.NewClient(node.Client(), parsed, contractAddr, app.Transactor, retrier, logger)

	app.Sink, app.Activity, err = output.NewSink(cfg.Output, logger)
	if err != nil {
		app.Close()
		return nil, err
	}

	dripAmount, err := cfg.Faucet.DripAmount()
	if err != nil {
		app.Close()
		return nil, err
	}
	floor, err := cfg.Faucet.MinBalance()
	if err != nil {
		app.Close()
		return nil, err
	}
	var wallet faucet.Wallet
	if app.Transactor != nil {
		wallet = app.Transactor
	}
	checker := faucet.NewChecker(app.Explorer, floor, cfg.Faucet.MaxTxCount, logger)
	app.Faucet = faucet.NewFaucet(checker, wallet, dripAmount, app.Sink, logger)

	contractHex := cfg.Blockchain.ContractAddress
	app.Overview = ledger.NewAggregator(app.Token, app.Explorer, app.Decoder, cfg.Explorer, contractHex, logger)
	app.History = ledger.NewHistoryService(app.Explorer, contractHex, cfg.Explorer.HistoryPageSize, cfg.Token.DefaultSymbol, logger)
	app.Interactions = ledger.NewInteractionService(app.Explorer, app.Decoder, contractHex, logger)

	if cfg.Cache.Enabled {
		redisCache, err := cache.NewRedis(ctx, cfg.Cache, logger)
		if err != nil {
			logger.Warnf("概览缓存不可用，继续运行: %v", err)
		} else {
			app.Cache = redisCache
			app.Overview.WithCache(redisCache)
		}
	}

	if dsn := os.Getenv("COFFEECOIN_DB_DSN"); dsn != "" {
		store, err := config.NewDatabaseConfig(dsn, logger)
		if err != nil {
			logger.Warnf("配置数据库不可用，管理端配置接口关闭: %v", err)
		} else {
			app.ConfigStore = store
		}
	}

	return app, nil
}

// APIDeps HTTP服务依赖
func (a *App) APIDeps() api.Deps {
	deps := api.Deps{
		Token:        a.Token,
		Faucet:       a.Faucet,
		Overview:     a.Overview,
		History:      a.History,
		Interactions: a.Interactions,
		Selectors:    a.Selectors,
		Node:         a.Node,
		Events:       a.Sink,
		Activity:     a.Activity,
	}
	if a.ConfigStore != nil {
		deps.ConfigStore = a.ConfigStore
	}
	return deps
}

// RegisterShutdown 注册输出、缓存和RPC连接的停机步骤
func (a *App) RegisterShutdown(gs *shutdown.GracefulShutdown) {
	gs.Register("事件输出", shutdown.OrderSinks, func(ctx context.Context) error {
		return a.closeSink()
	})
	gs.Register("Redis缓存", shutdown.OrderCache, func(ctx context.Context) error {
		return a.closeStores()
	})
	gs.Register("RPC连接", shutdown.OrderRPCClient, func(ctx context.Context) error {
		a.closeNode()
		return nil
	})
}

// Close 按停机顺序关闭所有组件，用于命令行
func (a *App) Close() error {
	err := errors.Join(a.closeSink(), a.closeStores())
	a.closeNode()
	return err
}

func (a *App) closeSink() error {
	if a.Sink == nil {
		return nil
	}
	return a.Sink.Close()
}

func (a *App) closeStores() error {
	var errs []error
	if a.Cache != nil {
		errs = append(errs, a.Cache.Close())
	}
	if a.ConfigStore != nil {
		errs = append(errs, a.ConfigStore.Close())
	}
	return errors.Join(errs...)
}

func (a *App) closeNode() {
	if a.Node != nil {
		a.Node.Close()
	}
}
