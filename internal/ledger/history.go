package ledger

import (
	"context"
	"sort"

	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/internal/explorer"
	"coffeecoin/internal/validation"
	"coffeecoin/pkg/models"

	"github.com/sirupsen/logrus"
)

// HistoryService 用户代币流水
type HistoryService struct {
	api           explorer.API
	contract      string
	pageSize      int
	defaultSymbol string
	logger        *logrus.Logger
}

// NewHistoryService 创建流水服务
func NewHistoryService(api explorer.API, contract string, pageSize int, defaultSymbol string, logger *logrus.Logger) *HistoryService {
	if pageSize <= 0 {
		pageSize = 100
	}
	return &HistoryService{
		api:           api,
		contract:      contract,
		pageSize:      pageSize,
		defaultSymbol: defaultSymbol,
		logger:        logger,
	}
}

// UserHistory 获取用户最近的代币转账（新到旧），以用户视角分类
func (s *HistoryService) UserHistory(ctx context.Context, user string) ([]models.ClassifiedTransfer, error) {
	if !s.api.Configured() {
		return nil, coinerrors.Config("Etherscan API key not configured for transaction history.").WithComponent("ledger")
	}
	if !validation.IsValidAddress(user) {
		return nil, coinerrors.Validation("address", "Invalid user address for history.")
	}

	page, err := s.api.FetchPage(ctx, explorer.ListQuery{
		Action:          explorer.ActionTokenTx,
		Address:         user,
		ContractAddress: s.contract,
		Page:            1,
		Offset:          s.pageSize,
		Sort:            explorer.SortDesc,
	})
	if err != nil {
		s.logger.WithField("user", user).Errorf("获取用户流水失败: %v", err)
		return nil, err
	}

	transfers := make([]models.ClassifiedTransfer, 0, len(page.Items))
	for i := range page.Items {
		transfers = append(transfers, ClassifyTransfer(&page.Items[i], user, s.defaultSymbol))
	}

	sort.SliceStable(transfers, func(i, j int) bool {
		if transfers[i].BlockNumber != transfers[j].BlockNumber {
			return transfers[i].BlockNumber > transfers[j].BlockNumber
		}
		return transfers[i].Timestamp > transfers[j].Timestamp
	})

	s.logger.WithFields(logrus.Fields{
		"user":  user,
		"count": len(transfers),
	}).Debug("用户流水已分类")
	return transfers, nil
}
