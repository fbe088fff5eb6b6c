package explorer

import (
	"context"
	"errors"
	"time"

	"coffeecoin/internal/metrics"
	"coffeecoin/pkg/models"

	"github.com/sirupsen/logrus"
)

// StopReason 分页结束原因
type StopReason string

const (
	StopLastPage      StopReason = "last_page"
	StopNoRecords     StopReason = "no_records"
	StopUpstreamError StopReason = "upstream_error"
	StopPageCap       StopReason = "page_cap"
	StopCanceled      StopReason = "canceled"
)

// PageResult 分页扫描结果，上游错误只记录在Err中，已获取的数据保留
type PageResult struct {
	Items      []models.RawTransaction
	Pages      int
	StopReason StopReason
	Err        error
}

// Partial 扫描是否提前中断
func (r *PageResult) Partial() bool {
	return r.StopReason == StopUpstreamError || r.StopReason == StopCanceled
}

// Summary 转换为概览中的扫描摘要
func (r *PageResult) Summary(action Action) models.ScanSummary {
	s := models.ScanSummary{
		Action:     string(action),
		Pages:      r.Pages,
		Items:      len(r.Items),
		StopReason: string(r.StopReason),
		Partial:    r.Partial(),
	}
	if r.Err != nil {
		s.Error = r.Err.Error()
	}
	return s
}

// PageFetcher 单页获取能力
type PageFetcher interface {
	FetchPage(ctx context.Context, q ListQuery) (*Page, error)
}

// Pager 顺序分页扫描器
type Pager struct {
	fetcher PageFetcher
	delay   time.Duration
	logger  *logrus.Logger

	// 测试中替换等待逻辑
	wait func(ctx context.Context, d time.Duration) error
}

// NewPager 创建分页扫描器，delay为相邻两次请求的间隔
func NewPager(fetcher PageFetcher, delay time.Duration, logger *logrus.Logger) *Pager {
	return &Pager{
		fetcher: fetcher,
		delay:   delay,
		logger:  logger,
		wait:    sleepContext,
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// FetchAll 从第1页开始依次请求，最多maxPages页，按hash+logIndex去重
//
// 某页条数小于offset即视为最后一页。上游在恰好整页时结束会多请求一页，
// 该页会以no_records结束。
func (p *Pager) FetchAll(ctx context.Context, q ListQuery, maxPages int) *PageResult {
	result := &PageResult{Items: []models.RawTransaction{}}
	seen := make(map[string]struct{})

	defer func() {
		metrics.PaginationStops.WithLabelValues(string(q.Action), string(result.StopReason)).Inc()
		metrics.PagesFetched.WithLabelValues(string(q.Action)).Add(float64(result.Pages))
	}()

	if maxPages < 1 {
		result.StopReason = StopPageCap
		return result
	}

	for page := 1; page <= maxPages; page++ {
		if page > 1 {
			if err := p.wait(ctx, p.delay); err != nil {
				result.StopReason = StopCanceled
				result.Err = err
				return result
			}
		}
		if err := ctx.Err(); err != nil {
			result.StopReason = StopCanceled
			result.Err = err
			return result
		}

		q.Page = page
		resp, err := p.fetcher.FetchPage(ctx, q)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.StopReason = StopCanceled
			} else {
				result.StopReason = StopUpstreamError
			}
			result.Err = err
			p.logger.WithFields(logrus.Fields{
				"action": q.Action,
				"page":   page,
				"items":  len(result.Items),
			}).Warnf("分页扫描中断: %v", err)
			return result
		}

		if resp.NoRecords {
			result.StopReason = StopNoRecords
			return result
		}

		result.Pages++
		for _, item := range resp.Items {
			key := item.Key()
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			result.Items = append(result.Items, item)
		}

		if len(resp.Items) < q.Offset {
			result.StopReason = StopLastPage
			return result
		}
	}

	result.StopReason = StopPageCap
	p.logger.WithFields(logrus.Fields{
		"action": q.Action,
		"pages":  result.Pages,
		"items":  len(result.Items),
	}).Debug("达到最大页数，扫描结束")
	return result
}
