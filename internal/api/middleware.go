package api

import (
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"coffeecoin/internal/logging"
	"coffeecoin/internal/metrics"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// 请求头
const (
	HeaderRequestID     = "X-Request-ID"
	HeaderWalletAddress = "X-Wallet-Address"
	HeaderAdminToken    = "X-Admin-Token"
)

const (
	ctxRequestID = "request_id"
	ctxWallet    = "wallet_address"
)

// requestID 透传或生成请求ID
func requestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set(ctxRequestID, id)
		c.Header(HeaderRequestID, id)
		c.Next()
	}
}

// accessLog 结构化访问日志与HTTP指标
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
		metrics.HTTPLatency.WithLabelValues(route).Observe(elapsed.Seconds())

		if s.access == nil {
			return
		}
		level := slog.LevelInfo
		switch {
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		logging.NewRequestLogger(s.access, c.GetString(ctxRequestID)).LogAttrs(c.Request.Context(), level, "http request",
			slog.String("method", c.Request.Method),
			slog.String("path", c.Request.URL.Path),
			slog.String("route", route),
			slog.Int("status", status),
			slog.Duration("latency", elapsed),
			slog.String("client_ip", c.ClientIP()),
		)
	}
}

// walletAuth 从请求头取得已认证的钱包地址
func walletAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		addr := strings.TrimSpace(c.GetHeader(HeaderWalletAddress))
		if !common.IsHexAddress(addr) {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User or wallet not authenticated/found."})
			return
		}
		c.Set(ctxWallet, common.HexToAddress(addr).Hex())
		c.Next()
	}
}

// adminAuth 校验管理令牌，令牌为空时放行
func adminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}
		got := c.GetHeader(HeaderAdminToken)
		if got == "" {
			got = strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}
		c.Next()
	}
}

// walletAddress 当前请求的钱包地址（校验和格式）
func walletAddress(c *gin.Context) string {
	return c.GetString(ctxWallet)
}

// queryInt 读取正整数查询参数，无效时使用默认值
func queryInt(c *gin.Context, key string, def int) int {
	if v, err := strconv.Atoi(c.Query(key)); err == nil && v > 0 {
		return v
	}
	return def
}
