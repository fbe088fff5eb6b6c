package api

import (
	"fmt"
	"net/http"

	"coffeecoin/internal/validation"
	"coffeecoin/pkg/models"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// getContractOverview 合约概览
func (s *Server) getContractOverview(c *gin.Context) {
	overview, err := s.deps.Overview.Overview(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "Failed to fetch contract overview")
		return
	}
	c.JSON(http.StatusOK, overview)
}

// getContractInteractions 最近的合约交互，page从1开始，offset 1-100
func (s *Server) getContractInteractions(c *gin.Context) {
	page, offset, err := validation.ParsePagination(c.Query("page"), c.Query("offset"), validation.DefaultOffset)
	if err != nil {
		s.respondError(c, err, "")
		return
	}
	interactions, err := s.deps.Interactions.Recent(c.Request.Context(), page, offset)
	if err != nil {
		s.respondError(c, err, "Failed to fetch contract interactions")
		return
	}
	c.JSON(http.StatusOK, interactions)
}

// getMintDistribution 最近铸造金额分布
func (s *Server) getMintDistribution(c *gin.Context) {
	buckets, err := s.deps.Interactions.MintDistribution(c.Request.Context())
	if err != nil {
		s.respondError(c, err, "Failed to fetch mint distribution")
		return
	}
	c.JSON(http.StatusOK, buckets)
}

// adminMint 管理员铸造代币
func (s *Server) adminMint(c *gin.Context) {
	var req struct {
		RecipientAddress string      `json:"recipientAddress"`
		Amount           interface{} `json:"amount"`
	}
	if err := bindJSON(c, &req); err != nil {
		s.badRequest(c, "", "Invalid JSON request body.")
		return
	}
	if req.RecipientAddress == "" || req.Amount == nil {
		s.badRequest(c, "", "Missing 'recipientAddress' or 'amount' in request body.")
		return
	}
	if err := validation.ValidateAddress("recipientAddress", req.RecipientAddress); err != nil {
		s.respondError(c, err, "")
		return
	}
	amount, err := validation.ParsePositiveAmount("amount", req.Amount)
	if err != nil {
		s.respondError(c, err, "")
		return
	}

	s.logger.WithFields(logrus.Fields{
		"to":     req.RecipientAddress,
		"amount": amount.String(),
	}).Info("管理员发起铸造")

	hash, err := s.deps.Token.Mint(c.Request.Context(), common.HexToAddress(req.RecipientAddress), amount)
	if err != nil {
		s.respondError(c, err, "")
		return
	}
	s.publish(models.EventMint, req.RecipientAddress, amount.String(), hash, map[string]string{"source": "admin"})

	c.JSON(http.StatusOK, gin.H{
		"success":         true,
		"message":         fmt.Sprintf("Successfully initiated minting of %s tokens to %s.", amount, req.RecipientAddress),
		"transactionHash": hash,
	})
}

// adminDrip 管理员手动触发ETH补贴
func (s *Server) adminDrip(c *gin.Context) {
	var req struct {
		RecipientAddress string `json:"recipientAddress"`
	}
	if err := bindJSON(c, &req); err != nil {
		s.badRequest(c, "", "Invalid JSON request body.")
		return
	}
	if req.RecipientAddress == "" {
		s.badRequest(c, "recipientAddress", "Missing 'recipientAddress' in request body.")
		return
	}
	if err := validation.ValidateAddress("recipientAddress", req.RecipientAddress); err != nil {
		s.respondError(c, err, "")
		return
	}

	result := s.deps.Faucet.Drip(c.Request.Context(), req.RecipientAddress)
	status := http.StatusOK
	switch result.Outcome {
	case models.DripNotEligible:
		status = http.StatusConflict
	case models.DripFaucetInsufficient:
		status = http.StatusServiceUnavailable
	}

	body := gin.H{
		"success": result.Dripped,
		"dripped": result.Dripped,
		"message": result.Message,
		"outcome": result.Outcome,
	}
	if result.TransactionHash != "" {
		body["transactionHash"] = result.TransactionHash
	}
	c.JSON(status, body)
}

// getUserBalance 管理端查询用户余额
func (s *Server) getUserBalance(c *gin.Context) {
	address := c.Param("address")
	if !validation.IsValidAddress(address) {
		s.badRequest(c, "address", "Invalid user address provided in path.")
		return
	}
	balance, err := s.deps.Token.BalanceOf(c.Request.Context(), common.HexToAddress(address))
	if err != nil {
		s.respondError(c, err, "Failed to fetch balance for "+address)
		return
	}
	c.JSON(http.StatusOK, gin.H{"address": address, "balance": balance.String()})
}

// getUserHistory 管理端查询用户历史
func (s *Server) getUserHistory(c *gin.Context) {
	address := c.Param("address")
	if !validation.IsValidAddress(address) {
		s.badRequest(c, "address", "Invalid user address provided in path.")
		return
	}
	history, err := s.deps.History.UserHistory(c.Request.Context(), address)
	if err != nil {
		s.respondError(c, err, "Failed to fetch transaction history for "+address)
		return
	}
	c.JSON(http.StatusOK, history)
}

// getActivity 服务最近发起的动作
func (s *Server) getActivity(c *gin.Context) {
	page := queryInt(c, "page", 1)
	limit := min(queryInt(c, "limit", 20), validation.MaxOffset)
	eventType := models.EventType(c.Query("type"))

	events, total := []models.LedgerEvent{}, 0
	if s.deps.Activity != nil {
		events, total = s.deps.Activity.Recent(eventType, page, limit)
	}
	c.JSON(http.StatusOK, gin.H{
		"events": events,
		"total":  total,
		"page":   page,
		"limit":  limit,
	})
}
