package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"coffeecoin/internal/bootstrap"
	"coffeecoin/internal/config"
	"coffeecoin/internal/contract"
	"coffeecoin/internal/decoder"
	"coffeecoin/internal/logging"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	configFile string
	verbose    bool

	address string
	page    int
	offset  int
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "coffeecoin",
		Short:        "CoffeeCoin 账本查询工具",
		Long:         `CoffeeCoin 忠诚度积分账本聚合工具，结果以JSON输出到标准输出`,
		SilenceUsage: true,
	}
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "配置文件路径（可选，YAML）")
	rootCmd.PersistentFlags().BoolVar(&verbose, "verbose", false, "详细输出")

	overviewCmd := &cobra.Command{
		Use:   "overview",
		Short: "合约概览",
		RunE: withApp(func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			return app.Overview.Overview(ctx)
		}),
	}

	historyCmd := &cobra.Command{
		Use:   "history",
		Short: "用户转账历史",
		RunE: withApp(func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			return app.History.UserHistory(ctx, address)
		}),
	}
	historyCmd.Flags().StringVar(&address, "address", "", "用户地址")
	_ = historyCmd.MarkFlagRequired("address")

	interactionsCmd := &cobra.Command{
		Use:   "interactions",
		Short: "最近的合约交互",
		RunE: withApp(func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			return app.Interactions.Recent(ctx, page, offset)
		}),
	}
	interactionsCmd.Flags().IntVar(&page, "page", 1, "页码")
	interactionsCmd.Flags().IntVar(&offset, "offset", 10, "每页条数 (1-100)")

	dripCheckCmd := &cobra.Command{
		Use:   "drip-check",
		Short: "检查地址的ETH补贴资格",
		RunE: withApp(func(ctx context.Context, app *bootstrap.App) (interface{}, error) {
			return app.Faucet.Checker().Check(ctx, address), nil
		}),
	}
	dripCheckCmd.Flags().StringVar(&address, "address", "", "用户地址")
	_ = dripCheckCmd.MarkFlagRequired("address")

	selectorsCmd := &cobra.Command{
		Use:   "selectors",
		Short: "打印跟踪的函数选择器",
		RunE:  showSelectors,
	}

	rootCmd.AddCommand(overviewCmd, historyCmd, interactionsCmd, dripCheckCmd, selectorsCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "执行失败: %v\n", err)
		os.Exit(1)
	}
}

// loadConfig 加载配置，日志写到标准错误以保持标准输出为纯JSON
func loadConfig() (*config.Config, *logrus.Logger, error) {
	_ = godotenv.Load()

	bootLogger := logrus.New()
	bootLogger.SetOutput(os.Stderr)

	cfg, err := config.LoadConfig(configFile, bootLogger)
	if err != nil {
		return nil, nil, fmt.Errorf("加载配置失败: %w", err)
	}
	cfg.Logging.Output = "stderr"
	if verbose {
		cfg.Logging.Level = "debug"
	}

	logger, err := logging.NewLogrus(cfg.Logging)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// withApp 组装服务后执行查询并输出JSON
func withApp(fn func(ctx context.Context, app *bootstrap.App) (interface{}, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}

		ctx := cmd.Context()
		app, err := bootstrap.Build(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer app.Close()

		result, err := fn(ctx, app)
		if err != nil {
			return err
		}
		return printJSON(result)
	}
}

func showSelectors(cmd *cobra.Command, args []string) error {
	cfg, _, err := loadConfig()
	if err != nil {
		return err
	}
	parsed, err := contract.Load(cfg.Blockchain.ABIPath)
	if err != nil {
		return err
	}
	registry, err := decoder.NewSelectorRegistry(parsed, decoder.DefaultTrackedFunctions)
	if err != nil {
		return err
	}
	return printJSON(registry.Entries())
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
