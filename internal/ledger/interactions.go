package ledger

import (
	"context"

	"coffeecoin/internal/decoder"
	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/internal/explorer"
	"coffeecoin/internal/validation"
	"coffeecoin/pkg/models"

	"github.com/sirupsen/logrus"
)

const (
	// mintDistributionWindow 分布统计取最近的交互条数
	mintDistributionWindow = 100
	// mintDistributionTop 分布保留的档数
	mintDistributionTop = 7
)

// InteractionService 合约交互记录
type InteractionService struct {
	api      explorer.API
	decoder  *decoder.InputDecoder
	contract string
	logger   *logrus.Logger
}

// NewInteractionService 创建交互记录服务
func NewInteractionService(api explorer.API, dec *decoder.InputDecoder, contract string, logger *logrus.Logger) *InteractionService {
	return &InteractionService{
		api:      api,
		decoder:  dec,
		contract: contract,
		logger:   logger,
	}
}

// Recent 合约最近的普通交易，带函数标签（新到旧）
func (s *InteractionService) Recent(ctx context.Context, page, offset int) ([]models.RecentInteraction, error) {
	if err := validation.ValidatePagination(page, offset); err != nil {
		return nil, err
	}
	if !s.api.Configured() {
		return nil, coinerrors.Config("Etherscan API key not configured for recent interactions.").WithComponent("ledger")
	}

	result, err := s.api.FetchPage(ctx, explorer.ListQuery{
		Action:  explorer.ActionTxList,
		Address: s.contract,
		Page:    page,
		Offset:  offset,
		Sort:    explorer.SortDesc,
	})
	if err != nil {
		s.logger.WithFields(logrus.Fields{
			"page":   page,
			"offset": offset,
		}).Errorf("获取合约交互失败: %v", err)
		return nil, err
	}

	interactions := make([]models.RecentInteraction, 0, len(result.Items))
	for i := range result.Items {
		interactions = append(interactions, s.decoder.Decorate(&result.Items[i], s.contract))
	}
	return interactions, nil
}

// MintDistribution 最近交互中的铸造数量分布
func (s *InteractionService) MintDistribution(ctx context.Context) ([]models.MintBucket, error) {
	interactions, err := s.Recent(ctx, 1, mintDistributionWindow)
	if err != nil {
		return nil, err
	}
	return decoder.MintDistribution(interactions, mintDistributionTop), nil
}
