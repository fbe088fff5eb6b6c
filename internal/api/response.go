package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	coinerrors "coffeecoin/internal/errors"
	"coffeecoin/pkg/models"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// respondError 归一化错误并输出 {"error", "field"}，非校验错误加上接口前缀
func (s *Server) respondError(c *gin.Context, err error, prefix string) {
	ce := s.errorHandler.HandleError(err)
	msg := ce.Message
	if prefix != "" && ce.Kind != coinerrors.KindValidation {
		msg = prefix + ": " + msg
	}
	body := gin.H{"error": msg}
	if ce.Field != "" {
		body["field"] = ce.Field
	}
	c.JSON(ce.HTTPStatus(), body)
}

// badRequest 直接返回400
func (s *Server) badRequest(c *gin.Context, field, msg string) {
	s.respondError(c, coinerrors.Validation(field, msg), "")
}

// bindJSON 解析请求体，数字保留为json.Number，空请求体视为空对象
func bindJSON(c *gin.Context, dst interface{}) error {
	dec := json.NewDecoder(c.Request.Body)
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// rawString 将请求体中的字符串或数字转为文本，缺失时返回空串
func rawString(v interface{}) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(fmt.Sprint(v))
}

const voucherAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

// voucherCode 生成 VOUCHER-<REWARDID>-<5位大写字母数字>
func voucherCode(rewardID string) string {
	id := uuid.New()
	suffix := make([]byte, 5)
	for i := range suffix {
		suffix[i] = voucherAlphabet[int(id[i])%len(voucherAlphabet)]
	}
	return fmt.Sprintf("VOUCHER-%s-%s", strings.ToUpper(rewardID), suffix)
}

// publish 写入账本事件，失败只记录日志
func (s *Server) publish(eventType models.EventType, address, amount, txHash string, detail map[string]string) {
	if s.deps.Events == nil {
		return
	}
	event := &models.LedgerEvent{
		ID:              uuid.NewString(),
		Type:            eventType,
		Address:         address,
		Amount:          amount,
		TransactionHash: txHash,
		Detail:          detail,
		Timestamp:       time.Now().UTC(),
	}
	if err := s.deps.Events.WriteEvent(event); err != nil {
		s.logger.Warnf("写入%s事件失败: %v", eventType, err)
	}
}
