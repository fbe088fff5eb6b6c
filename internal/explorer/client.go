package explorer

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"coffeecoin/internal/config"
	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/internal/metrics"
	"coffeecoin/internal/retry"
	"coffeecoin/pkg/models"

	"github.com/sirupsen/logrus"
)

// Action 浏览器账户列表接口类型
type Action string

const (
	ActionTxList  Action = "txlist"
	ActionTokenTx Action = "tokentx"
)

// 排序方向
const (
	SortAsc  = "asc"
	SortDesc = "desc"
)

// ListQuery 单页列表查询
type ListQuery struct {
	Action          Action
	Address         string
	ContractAddress string
	Page            int
	Offset          int
	Sort            string
}

// Page 单页结果，NoRecords表示上游明确告知没有（更多）记录
type Page struct {
	Items     []models.RawTransaction
	NoRecords bool
}

// Creation 合约创建信息
type Creation struct {
	ContractAddress string `json:"contractAddress"`
	ContractCreator string `json:"contractCreator"`
	TxHash          string `json:"txHash"`
}

// Response 浏览器统一响应，result成功时为数组，失败时为字符串
type Response struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Result  json.RawMessage `json:"result"`
}

// NoRecords 上游是否表示“没有更多记录”
func (r *Response) NoRecords() bool {
	return r.Message == "No transactions found" ||
		r.Message == "No records found" ||
		strings.Contains(r.Message, "Result window is too large")
}

// ResultText 失败时result中的说明文字
func (r *Response) ResultText() string {
	var s string
	if err := json.Unmarshal(r.Result, &s); err == nil {
		return s
	}
	return string(r.Result)
}

// API 账本服务依赖的浏览器能力
type API interface {
	Configured() bool
	FetchPage(ctx context.Context, q ListQuery) (*Page, error)
	Balance(ctx context.Context, address string) (*big.Int, error)
	ContractCreation(ctx context.Context, contract string) (*Creation, error)
}

// Client Etherscan HTTP客户端
type Client struct {
	baseURL    string
	apiKey     string
	chainID    string
	httpClient *http.Client
	retrier    *retry.Retrier
	logger     *logrus.Logger
}

// NewClient 创建浏览器客户端
func NewClient(cfg *config.ExplorerConfig, retrier *retry.Retrier, logger *logrus.Logger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    cfg.APIURL,
		apiKey:     cfg.APIKey,
		chainID:    cfg.ChainID,
		httpClient: &http.Client{Timeout: timeout},
		retrier:    retrier,
		logger:     logger,
	}
}

// Configured 是否配置了API Key
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// get 发起一次请求并解析统一响应
func (c *Client) get(ctx context.Context, params url.Values) (resp *Response, err error) {
	action := params.Get("action")
	start := time.Now()
	defer func() {
		metrics.ExplorerLatency.WithLabelValues(action).Observe(time.Since(start).Seconds())
		metrics.ExplorerRequests.WithLabelValues(action, metrics.Outcome(err)).Inc()
	}()

	if !c.Configured() {
		return nil, coinerrors.Config("Etherscan API key not configured.").WithComponent("explorer")
	}

	params.Set("apikey", c.apiKey)
	if c.chainID != "" {
		params.Set("chainid", c.chainID)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, coinerrors.WrapError(err, coinerrors.KindInternal, coinerrors.SeverityMedium, "REQUEST_BUILD_FAILED", "Failed to build explorer request")
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, coinerrors.Upstream(err, fmt.Sprintf("Explorer request failed (%s)", action)).WithComponent("explorer")
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(httpResp.Body, 512))
		ce := coinerrors.Upstream(fmt.Errorf("HTTP %d: %s", httpResp.StatusCode, strings.TrimSpace(string(body))),
			fmt.Sprintf("Explorer request failed (%s)", action)).WithComponent("explorer")
		ce.Retryable = httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500
		return nil, ce
	}

	var decoded Response
	if err := json.NewDecoder(httpResp.Body).Decode(&decoded); err != nil {
		ce := coinerrors.Upstream(err, fmt.Sprintf("Explorer returned malformed JSON (%s)", action)).WithComponent("explorer")
		ce.Retryable = false
		return nil, ce
	}
	return &decoded, nil
}

// apiError 将status=0的响应转换为上游错误
func apiError(action string, resp *Response) *coinerrors.CoinError {
	detail := resp.ResultText()
	ce := coinerrors.Upstream(fmt.Errorf("%s: %s", resp.Message, detail),
		fmt.Sprintf("Etherscan API error (%s): %s", action, resp.Message)).WithComponent("explorer")
	ce.Retryable = retry.IsRetryableError(fmt.Errorf("%s", detail))
	return ce
}

// FetchPage 获取一页普通交易或代币转账
func (c *Client) FetchPage(ctx context.Context, q ListQuery) (*Page, error) {
	params := url.Values{}
	params.Set("module", "account")
	params.Set("action", string(q.Action))
	if q.Address != "" {
		params.Set("address", q.Address)
	}
	if q.ContractAddress != "" {
		params.Set("contractaddress", q.ContractAddress)
	}
	params.Set("startblock", "0")
	params.Set("endblock", "99999999")
	params.Set("page", strconv.Itoa(q.Page))
	params.Set("offset", strconv.Itoa(q.Offset))
	sort := q.Sort
	if sort == "" {
		sort = SortAsc
	}
	params.Set("sort", sort)

	resp, err := c.get(ctx, params)
	if err != nil {
		return nil, err
	}

	if resp.Status != "1" {
		if resp.NoRecords() {
			return &Page{NoRecords: true}, nil
		}
		return nil, apiError(string(q.Action), resp)
	}

	var items []models.RawTransaction
	if err := json.Unmarshal(resp.Result, &items); err != nil {
		ce := coinerrors.Upstream(err, fmt.Sprintf("Unexpected explorer result (%s)", q.Action)).WithComponent("explorer")
		ce.Retryable = false
		return nil, ce
	}
	return &Page{Items: items}, nil
}

// Balance 查询地址的原生币余额（wei）
func (c *Client) Balance(ctx context.Context, address string) (*big.Int, error) {
	return retry.Do(ctx, c.retrier, "explorer.balance", func() (*big.Int, error) {
		params := url.Values{}
		params.Set("module", "account")
		params.Set("action", "balance")
		params.Set("address", address)
		params.Set("tag", "latest")

		resp, err := c.get(ctx, params)
		if err != nil {
			return nil, err
		}
		if resp.Status != "1" {
			return nil, apiError("balance", resp)
		}

		text := resp.ResultText()
		balance, ok := new(big.Int).SetString(text, 10)
		if !ok {
			return nil, coinerrors.Upstream(fmt.Errorf("result=%q", text), "Etherscan balance result is not a number").WithComponent("explorer")
		}
		return balance, nil
	})
}

// ContractCreation 查询合约创建者与创建交易
func (c *Client) ContractCreation(ctx context.Context, contract string) (*Creation, error) {
	return retry.Do(ctx, c.retrier, "explorer.getcontractcreation", func() (*Creation, error) {
		params := url.Values{}
		params.Set("module", "contract")
		params.Set("action", "getcontractcreation")
		params.Set("contractaddresses", contract)

		resp, err := c.get(ctx, params)
		if err != nil {
			return nil, err
		}
		if resp.Status != "1" {
			return nil, apiError("getcontractcreation", resp)
		}

		var creations []Creation
		if err := json.Unmarshal(resp.Result, &creations); err != nil || len(creations) == 0 {
			return nil, coinerrors.Upstream(fmt.Errorf("result=%s", string(resp.Result)), "Contract creation not found").WithComponent("explorer")
		}
		return &creations[0], nil
	})
}
