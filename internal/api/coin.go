package api

import (
	"net/http"

	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/internal/validation"
	"coffeecoin/pkg/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const dripNotPerformed = "ETH drip check not performed or errored."

// getInfo 代币名称与符号
func (s *Server) getInfo(c *gin.Context) {
	ctx := c.Request.Context()
	name, err := s.deps.Token.Name(ctx)
	if err != nil {
		s.respondError(c, err, "Failed to fetch token info")
		return
	}
	symbol, err := s.deps.Token.Symbol(ctx)
	if err != nil {
		s.respondError(c, err, "Failed to fetch token info")
		return
	}
	c.JSON(http.StatusOK, gin.H{"name": name, "symbol": symbol})
}

// getTotalSupply 总供应量
func (s *Server) getTotalSupply(c *gin.Context) {
	supply, err := s.deps.Token.TotalSupply(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "Failed to fetch total supply")
		return
	}
	c.JSON(http.StatusOK, gin.H{"totalSupply": supply.String()})
}

// getBalance 公开余额查询
func (s *Server) getBalance(c *gin.Context) {
	address := c.Param("address")
	if !validation.IsValidAddress(address) {
		s.badRequest(c, "address", "Invalid user address format.")
		return
	}
	balance, err := s.deps.Token.BalanceOf(c.Request.Context(), common.HexToAddress(address))
	if err != nil {
		s.respondError(c, err, "Failed to fetch balance")
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "balance": balance.String()})
}

// earnPoints 先尝试ETH补贴（失败不影响），再铸造积分
func (s *Server) earnPoints(c *gin.Context) {
	ctx := c.Request.Context()
	wallet := walletAddress(c)

	var req struct {
		PointsToEarn interface{} `json:"pointsToEarn"`
	}
	if err := bindJSON(c, &req); err != nil {
		s.badRequest(c, "", "Invalid JSON request body.")
		return
	}
	if req.PointsToEarn == nil {
		s.badRequest(c, "pointsToEarn", "pointsToEarn is required in request body.")
		return
	}
	amount, err := validation.ParsePositiveAmount("pointsToEarn", req.PointsToEarn)
	if err != nil {
		s.badRequest(c, "pointsToEarn", "pointsToEarn must be a positive number.")
		return
	}

	logger := s.logger.WithFields(logrus.Fields{"address": wallet, "points": amount.String()})

	dripStatus := dripNotPerformed
	if s.deps.Faucet != nil {
		drip := s.deps.Faucet.Drip(ctx, wallet)
		dripStatus = drip.Message
		logger.Infof("ETH补贴尝试结果: %s", drip.Message)
	}

	hash, err := s.deps.Token.Mint(ctx, common.HexToAddress(wallet), amount)
	if err != nil {
		ce := s.errorHandler.HandleError(err)
		status := http.StatusInternalServerError
		if ce.Kind == coinerrors.KindValidation {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{
			"error":         "Failed to mint CoffeeCoins: " + ce.Message,
			"ethDripStatus": dripStatus,
		})
		return
	}
	s.publish(models.EventMint, wallet, amount.String(), hash, map[string]string{"source": "earn-points"})

	body := gin.H{
		"message":          amount.String() + " CoffeeCoins successfully minted!",
		"transactionHash":  hash,
		"recipientAddress": wallet,
		"newBalance":       nil,
		"ethDripStatus":    dripStatus,
	}
	if balance, err := s.deps.Token.BalanceOf(ctx, common.HexToAddress(wallet)); err != nil {
		logger.Warnf("铸造成功但读取新余额失败: %v", err)
	} else {
		body["newBalance"] = balance.String()
	}
	c.JSON(http.StatusOK, body)
}

// getTransactionHistory 当前钱包的转账历史
func (s *Server) getTransactionHistory(c *gin.Context) {
	history, err := s.deps.History.UserHistory(c.Request.Context(), walletAddress(c))
	if err != nil {
		s.respondError(c, err, "History fetch failed")
		return
	}
	c.JSON(http.StatusOK, history)
}

// recordRedemption 记录链下兑换并生成兑换码
func (s *Server) recordRedemption(c *gin.Context) {
	var req struct {
		RewardID            string      `json:"rewardId"`
		PointsBurned        interface{} `json:"pointsBurned"`
		BurnTransactionHash string      `json:"burnTransactionHash"`
	}
	if err := bindJSON(c, &req); err != nil {
		s.badRequest(c, "", "Invalid JSON request body.")
		return
	}

	redemption := &models.Redemption{
		Address:             walletAddress(c),
		RewardID:            req.RewardID,
		PointsBurned:        rawString(req.PointsBurned),
		BurnTransactionHash: req.BurnTransactionHash,
	}
	if result := s.validator.ValidateRedemption(redemption); !result.Valid {
		s.respondError(c, result.FirstError(), "")
		return
	}

	redemption.VoucherCode = voucherCode(redemption.RewardID)
	s.logger.WithFields(logrus.Fields{
		"address":   redemption.Address,
		"reward_id": redemption.RewardID,
		"points":    redemption.PointsBurned,
		"tx_hash":   redemption.BurnTransactionHash,
	}).Info("记录兑换")

	s.publish(models.EventRedemption, redemption.Address, redemption.PointsBurned, redemption.BurnTransactionHash, map[string]string{
		"rewardId":    redemption.RewardID,
		"voucherCode": redemption.VoucherCode,
	})

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"message":      "Redemption for '" + redemption.RewardID + "' recorded.",
		"voucherCode":  redemption.VoucherCode,
		"rewardId":     redemption.RewardID,
		"pointsBurned": redemption.PointsBurned,
	})
}
