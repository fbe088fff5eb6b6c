package main

import (
	"context"
	"flag"
	"os"

	"coffeecoin/internal/api"
	"coffeecoin/internal/bootstrap"
	"coffeecoin/internal/config"
	"coffeecoin/internal/logging"
	"coffeecoin/internal/shutdown"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

var (
	configPath = flag.String("config", "", "配置文件路径（可选，YAML）")
	port       = flag.Int("port", 0, "API 服务端口，覆盖配置")
	verbose    = flag.Bool("verbose", false, "详细输出")
)

func main() {
	flag.Parse()

	// .env不存在时忽略
	_ = godotenv.Load()

	bootLogger := logrus.New()
	bootLogger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadConfig(*configPath, bootLogger)
	if err != nil {
		bootLogger.Fatalf("加载配置失败: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *verbose {
		cfg.Logging.Level = "debug"
	}
	if err := cfg.Validate(); err != nil {
		bootLogger.Fatalf("%v", err)
	}

	logger, err := logging.NewLogrus(cfg.Logging)
	if err != nil {
		bootLogger.Fatalf("初始化日志失败: %v", err)
	}
	access, err := logging.NewStructuredLogger(cfg.Logging)
	if err != nil {
		logger.Fatalf("初始化访问日志失败: %v", err)
	}

	app, err := bootstrap.Build(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatalf("初始化服务失败: %v", err)
	}

	server := api.NewServer(cfg.Server, app.APIDeps(), logger, access)

	gs := shutdown.NewGracefulShutdown(0, logger)
	gs.Register("HTTP服务", shutdown.OrderHTTPServer, server.Shutdown)
	app.RegisterShutdown(gs)

	go func() {
		if err := server.Start(); err != nil {
			logger.Errorf("启动服务器失败: %v", err)
			gs.Trigger()
		}
	}()

	if err := gs.Wait(); err != nil {
		logger.Errorf("停机过程中发生错误: %v", err)
		os.Exit(1)
	}
	logger.Info("服务器已关闭")
}
