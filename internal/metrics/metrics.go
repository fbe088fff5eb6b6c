package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ExplorerRequests 区块浏览器请求数
	ExplorerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffeecoin_explorer_requests_total",
			Help: "Total number of block explorer API requests",
		},
		[]string{"action", "outcome"},
	)

	// ExplorerLatency 区块浏览器请求耗时
	ExplorerLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coffeecoin_explorer_request_duration_seconds",
			Help:    "Block explorer API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"action"},
	)

	// PaginationStops 分页扫描结束原因
	PaginationStops = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffeecoin_pagination_stops_total",
			Help: "Paginated history scans by stop reason",
		},
		[]string{"action", "reason"},
	)

	// PagesFetched 分页扫描成功获取的页数
	PagesFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffeecoin_pages_fetched_total",
			Help: "Total number of explorer pages fetched by paginated scans",
		},
		[]string{"action"},
	)

	// RPCCalls 合约RPC调用数
	RPCCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffeecoin_rpc_calls_total",
			Help: "Total number of contract RPC calls",
		},
		[]string{"method", "outcome"},
	)

	// RPCLatency 合约RPC调用耗时
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coffeecoin_rpc_latency_seconds",
			Help:    "Contract RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	// LedgerActions 服务发起的链上动作（mint、drip）
	LedgerActions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffeecoin_ledger_actions_total",
			Help: "Server-initiated on-chain actions by type and outcome",
		},
		[]string{"type", "outcome"},
	)

	// HTTPRequests HTTP请求数
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffeecoin_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"route", "status"},
	)

	// HTTPLatency HTTP请求耗时
	HTTPLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "coffeecoin_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"route"},
	)

	// OverviewCache 概览缓存命中情况
	OverviewCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "coffeecoin_overview_cache_total",
			Help: "Contract overview cache lookups by result",
		},
		[]string{"result"},
	)
)

// Outcome 将错误转换为结果标签
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
