package api

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"net/http"
	"time"

	"coffeecoin/internal/config"
	"coffeecoin/internal/connection"
	"coffeecoin/internal/decoder"
	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/internal/logging"
	"coffeecoin/internal/output"
	"coffeecoin/internal/validation"
	"coffeecoin/pkg/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// TokenService 代币读写
type TokenService interface {
	Name(ctx context.Context) (string, error)
	Symbol(ctx context.Context) (string, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
	BalanceOf(ctx context.Context, owner common.Address) (*big.Int, error)
	Mint(ctx context.Context, to common.Address, amount *big.Int) (string, error)
}

// Dripper ETH补贴
type Dripper interface {
	Drip(ctx context.Context, address string) models.DripResult
}

// OverviewProvider 合约概览
type OverviewProvider interface {
	Overview(ctx context.Context) (*models.ContractOverview, error)
}

// HistoryProvider 用户转账历史
type HistoryProvider interface {
	UserHistory(ctx context.Context, user string) ([]models.ClassifiedTransfer, error)
}

// InteractionProvider 合约交互记录
type InteractionProvider interface {
	Recent(ctx context.Context, page, offset int) ([]models.RecentInteraction, error)
	MintDistribution(ctx context.Context) ([]models.MintBucket, error)
}

// NodeChecker RPC节点健康
type NodeChecker interface {
	Check(ctx context.Context) connection.NodeStatus
}

// Deps 服务依赖，可选项为nil时对应功能关闭
type Deps struct {
	Token        TokenService
	Faucet       Dripper
	Overview     OverviewProvider
	History      HistoryProvider
	Interactions InteractionProvider
	Selectors    *decoder.SelectorRegistry
	Node         NodeChecker
	Events       output.Sink
	Activity     *output.MemorySink
	ConfigStore  ConfigStore
}

// Server API服务器
type Server struct {
	deps         Deps
	config       *config.ServerConfig
	logger       *logrus.Logger
	access       *logging.StructuredLogger
	errorHandler *coinerrors.ErrorHandler
	validator    *validation.Validator
	logManager   *LogManager
	router       *gin.Engine
	server       *http.Server
	startedAt    time.Time
}

// NewServer 创建API服务器
func NewServer(cfg *config.ServerConfig, deps Deps, logger *logrus.Logger, access *logging.StructuredLogger) *Server {
	// 最多保存1000条日志供管理端查看
	logManager := NewLogManager(1000)
	logger.AddHook(NewLogHook(logManager))

	s := &Server{
		deps:         deps,
		config:       cfg,
		logger:       logger,
		access:       access,
		errorHandler: coinerrors.NewErrorHandler(logger),
		validator:    validation.NewValidator(logger),
		logManager:   logManager,
		startedAt:    time.Now(),
	}
	s.router = s.buildRouter()
	return s
}

// Handler HTTP处理器
func (s *Server) Handler() http.Handler {
	return s.router
}

// ErrorHandler 错误处理器
func (s *Server) ErrorHandler() *coinerrors.ErrorHandler {
	return s.errorHandler
}

// Start 启动API服务器，阻塞直到服务器关闭
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s.logger.Infof("API服务器启动在端口 %d", s.config.Port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("API服务器异常退出: %w", err)
	}
	return nil
}

// Shutdown 停止接受请求并等待进行中的请求完成
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowHeaders = append(corsConfig.AllowHeaders, "Authorization", HeaderWalletAddress, HeaderAdminToken, HeaderRequestID)
	corsConfig.ExposeHeaders = []string{HeaderRequestID}
	if len(s.config.AllowedOrigins) == 0 || containsWildcard(s.config.AllowedOrigins) {
		corsConfig.AllowAllOrigins = true
	} else {
		corsConfig.AllowOrigins = s.config.AllowedOrigins
	}

	router.Use(cors.New(corsConfig))
	router.Use(requestID())
	router.Use(s.accessLog())
	router.Use(gin.Recovery())

	s.setupRoutes(router)
	return router
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// setupRoutes 设置路由
func (s *Server) setupRoutes(router *gin.Engine) {
	router.GET("/health", s.healthCheck)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	coin := router.Group("/api/coffee-coin")
	{
		coin.GET("/info", s.getInfo)
		coin.GET("/total-supply", s.getTotalSupply)
		coin.GET("/balance/:address", s.getBalance)

		authed := coin.Group("", walletAuth())
		authed.POST("/earn-points", s.earnPoints)
		authed.GET("/transaction-history", s.getTransactionHistory)
		authed.POST("/record-redemption", s.recordRedemption)
	}

	if s.config.AdminToken == "" {
		s.logger.Warn("ADMIN_TOKEN 未配置，管理接口不需要认证")
	}
	admin := router.Group("/api/admin", adminAuth(s.config.AdminToken))
	{
		admin.GET("/contract-overview", s.getContractOverview)
		admin.GET("/contract-interactions", s.getContractInteractions)
		admin.GET("/mint-distribution", s.getMintDistribution)
		admin.POST("/mint", s.adminMint)
		admin.POST("/faucet/drip", s.adminDrip)
		admin.GET("/user/:address/balance", s.getUserBalance)
		admin.GET("/user/:address/history", s.getUserHistory)
		admin.GET("/activity", s.getActivity)

		// 日志管理
		admin.GET("/logs", s.getLogs)
		admin.DELETE("/logs", s.clearLogs)

		if s.deps.ConfigStore != nil {
			cm := NewConfigManager(s.deps.ConfigStore, s.logger)
			admin.GET("/config", cm.ListConfig)
			admin.PUT("/config", cm.UpdateConfig)
		}
	}
}

// healthCheck 健康检查
func (s *Server) healthCheck(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"service":   "coffeecoin-api",
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
		"errors":    s.errorHandler.GetStats(),
	}

	if s.deps.Selectors != nil {
		body["selectors"] = s.deps.Selectors.Entries()
	}

	status := http.StatusOK
	if s.deps.Node != nil {
		node := s.deps.Node.Check(c.Request.Context())
		body["node"] = node
		body["chainId"] = node.ChainID
		if !node.Healthy {
			body["status"] = "degraded"
			status = http.StatusServiceUnavailable
		}
	}

	c.JSON(status, body)
}

// getLogs 获取日志
func (s *Server) getLogs(c *gin.Context) {
	level := c.Query("level")
	page, pageSize := queryInt(c, "page", 1), queryInt(c, "pageSize", 20)

	logs, total := s.logManager.Page(level, page, pageSize)
	c.JSON(http.StatusOK, gin.H{
		"logs":     logs,
		"total":    total,
		"page":     page,
		"pageSize": pageSize,
		"level":    level,
	})
}

// clearLogs 清空日志
func (s *Server) clearLogs(c *gin.Context) {
	s.logManager.Clear()
	c.JSON(http.StatusOK, gin.H{"message": "Logs cleared."})
}
