package ledger

import (
	"context"
	"math/big"
	"strings"
	"time"

	"coffeecoin/internal/config"
	"coffeecoin/internal/decoder"
	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/internal/explorer"
	"coffeecoin/internal/metrics"
	"coffeecoin/pkg/models"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// TokenReader 概览需要的链上只读调用
type TokenReader interface {
	Name(ctx context.Context) (string, error)
	Symbol(ctx context.Context) (string, error)
	TotalSupply(ctx context.Context) (*big.Int, error)
}

// OverviewCache 概览缓存，未命中时返回nil, nil
type OverviewCache interface {
	GetOverview(ctx context.Context, contract string) (*models.ContractOverview, error)
	SetOverview(ctx context.Context, overview *models.ContractOverview) error
}

// Aggregator 合约概览聚合器
type Aggregator struct {
	token    TokenReader
	api      explorer.API
	pager    *explorer.Pager
	decoder  *decoder.InputDecoder
	contract string
	cfg      *config.ExplorerConfig
	cache    OverviewCache
	logger   *logrus.Logger
	now      func() time.Time
}

// NewAggregator 创建概览聚合器
func NewAggregator(token TokenReader, api explorer.API, dec *decoder.InputDecoder, cfg *config.ExplorerConfig, contract string, logger *logrus.Logger) *Aggregator {
	return &Aggregator{
		token:    token,
		api:      api,
		pager:    explorer.NewPager(api, cfg.PageDelay, logger),
		decoder:  dec,
		contract: contract,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// WithCache 启用概览缓存
func (a *Aggregator) WithCache(cache OverviewCache) *Aggregator {
	a.cache = cache
	return a
}

// txListScan 普通交易扫描得到的统计
type txListScan struct {
	minted       models.Metric[string]
	transactions models.Metric[int]
	summary      *models.ScanSummary
}

// tokenTxScan 代币转账扫描得到的统计
type tokenTxScan struct {
	redeemed models.Metric[string]
	holders  models.Metric[int]
	summary  *models.ScanSummary
}

// Overview 生成合约概览。链上必需字段读取失败时返回错误，浏览器相关字段尽力而为
func (a *Aggregator) Overview(ctx context.Context) (*models.ContractOverview, error) {
	if a.cache != nil {
		cached, err := a.cache.GetOverview(ctx, a.contract)
		switch {
		case err != nil:
			metrics.OverviewCache.WithLabelValues("error").Inc()
			a.logger.Warnf("读取概览缓存失败: %v", err)
		case cached != nil:
			metrics.OverviewCache.WithLabelValues("hit").Inc()
			return cached, nil
		default:
			metrics.OverviewCache.WithLabelValues("miss").Inc()
		}
	}

	overview := &models.ContractOverview{ContractAddress: a.contract}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		name, err := a.token.Name(gctx)
		overview.TokenName = name
		return err
	})
	g.Go(func() error {
		symbol, err := a.token.Symbol(gctx)
		overview.TokenSymbol = symbol
		return err
	})
	g.Go(func() error {
		supply, err := a.token.TotalSupply(gctx)
		if supply != nil {
			overview.TotalSupply = supply.String()
		}
		return err
	})
	if err := g.Wait(); err != nil {
		a.logger.Errorf("读取合约基础信息失败: %v", err)
		if _, ok := coinerrors.As(err); ok {
			return nil, err
		}
		return nil, coinerrors.Upstream(err, "Failed to read contract state").WithComponent("ledger")
	}

	if !a.api.Configured() {
		a.logger.Warn("未配置Etherscan API Key，概览中的历史统计项不可用")
		overview.GeneratedAt = a.now().Unix()
		return overview, nil
	}

	var (
		creation *explorer.Creation
		txScan   txListScan
		tokScan  tokenTxScan
	)

	// 各扫描独立降级，从不返回错误
	var optional errgroup.Group
	optional.Go(func() error {
		c, err := a.api.ContractCreation(ctx, a.contract)
		if err != nil {
			a.logger.Warnf("获取合约创建信息失败: %v", err)
			return nil
		}
		creation = c
		return nil
	})
	optional.Go(func() error {
		txScan = a.scanTxList(ctx)
		return nil
	})
	optional.Go(func() error {
		tokScan = a.scanTokenTx(ctx)
		return nil
	})
	_ = optional.Wait()

	if creation != nil {
		if creation.ContractCreator != "" {
			creator := creation.ContractCreator
			overview.CreatorAddress = &creator
		}
		if creation.TxHash != "" {
			hash := creation.TxHash
			overview.CreationTxHash = &hash
		}
	}

	overview.TotalMinted = txScan.minted
	overview.TotalContractTransactions = txScan.transactions
	overview.TotalRedeemedToZeroAddress = tokScan.redeemed
	overview.NumberOfHolders = tokScan.holders
	for _, s := range []*models.ScanSummary{txScan.summary, tokScan.summary} {
		if s != nil {
			overview.Scans = append(overview.Scans, *s)
		}
	}
	overview.GeneratedAt = a.now().Unix()

	if a.cache != nil {
		if cacheable(overview, creation != nil) {
			if err := a.cache.SetOverview(ctx, overview); err != nil {
				a.logger.Warnf("写入概览缓存失败: %v", err)
			}
		} else {
			a.logger.Debug("概览存在降级字段，不写入缓存")
		}
	}
	return overview, nil
}

// cacheable 只有创建信息与两次扫描都完整成功的概览才写入缓存
func cacheable(overview *models.ContractOverview, creationKnown bool) bool {
	if !creationKnown || len(overview.Scans) != 2 {
		return false
	}
	for _, s := range overview.Scans {
		if s.Partial || s.Error != "" {
			return false
		}
	}
	return true
}

// scanTxList 扫描合约普通交易，统计mint总量与交易数
func (a *Aggregator) scanTxList(ctx context.Context) txListScan {
	res := a.pager.FetchAll(ctx, explorer.ListQuery{
		Action:  explorer.ActionTxList,
		Address: a.contract,
		Offset:  a.cfg.PageSize,
		Sort:    explorer.SortAsc,
	}, a.cfg.MaxTxListPages)
	summary := res.Summary(explorer.ActionTxList)

	if scanFailed(res) {
		return txListScan{summary: &summary}
	}

	totals := a.decoder.SumMinted(res.Items)
	a.logger.WithFields(logrus.Fields{
		"transactions": len(res.Items),
		"minted":       totals.Total.String(),
		"skipped":      totals.Skipped,
		"stop":         res.StopReason,
	}).Info("合约交易扫描完成")

	return txListScan{
		minted:       models.Known(totals.Total.String(), totals.Total.Sign() == 0),
		transactions: models.Known(len(res.Items), len(res.Items) == 0),
		summary:      &summary,
	}
}

// scanTokenTx 扫描合约代币转账，统计转入零地址的总量与持有人数
func (a *Aggregator) scanTokenTx(ctx context.Context) tokenTxScan {
	res := a.pager.FetchAll(ctx, explorer.ListQuery{
		Action:          explorer.ActionTokenTx,
		ContractAddress: a.contract,
		Offset:          a.cfg.PageSize,
		Sort:            explorer.SortAsc,
	}, a.cfg.MaxTokenTxPages)
	summary := res.Summary(explorer.ActionTokenTx)

	if scanFailed(res) {
		return tokenTxScan{summary: &summary}
	}

	redeemed, holders := TransferTotals(res.Items)
	a.logger.WithFields(logrus.Fields{
		"transfers": len(res.Items),
		"redeemed":  redeemed.String(),
		"holders":   holders,
		"stop":      res.StopReason,
	}).Info("代币转账扫描完成")

	return tokenTxScan{
		redeemed: models.Known(redeemed.String(), redeemed.Sign() == 0),
		holders:  models.Known(holders, holders == 0),
		summary:  &summary,
	}
}

// scanFailed 一页都没有拿到就出错时，结果视为未知
func scanFailed(res *explorer.PageResult) bool {
	return res.Err != nil && res.Pages == 0
}

// TransferTotals 统计转入零地址的总量与不同的非零接收地址数
func TransferTotals(transfers []models.RawTransaction) (*big.Int, int) {
	redeemed := new(big.Int)
	holders := make(map[string]struct{})
	for i := range transfers {
		to := strings.ToLower(transfers[i].To)
		if to == "" {
			continue
		}
		if to == ZeroAddress {
			redeemed.Add(redeemed, transfers[i].ValueInt())
			continue
		}
		holders[to] = struct{}{}
	}
	return redeemed, len(holders)
}
