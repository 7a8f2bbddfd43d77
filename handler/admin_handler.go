package handler

import (
	"nft_market/market"
	"nft_market/service"
	"nft_market/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// AdminHandler 平台管理处理器：引擎侧二次校验调用方为owner
type AdminHandler struct {
	marketService *service.MarketService
}

// NewAdminHandler 创建管理处理器
func NewAdminHandler(ms *service.MarketService) *AdminHandler {
	return &AdminHandler{marketService: ms}
}

// adminReq 管理请求公共字段
type adminReq struct {
	CallerAddr string `json:"caller_addr" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

// verify 管理操作验签
func verify(req adminReq, data string) error {
	if !utils.VerifySignature(req.CallerAddr, data, req.Signature) {
		return errors.New("signature verify failed")
	}
	return nil
}

// UpdateSettingsReq 更新拍卖配置请求
type UpdateSettingsReq struct {
	adminReq
	MinOrderDuration    int64  `json:"min_order_duration" binding:"required"`
	MinAuctionIncrement int64  `json:"min_auction_increment" binding:"required"`
	MinBidValue         uint64 `json:"min_bid_value" binding:"required"`
	MaxOrderDuration    int64  `json:"max_order_duration" binding:"required"`
}

// UpdateSettings 在线更新拍卖配置
func (h *AdminHandler) UpdateSettings(c *gin.Context) {
	var req UpdateSettingsReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	if err := verify(req.adminReq, "update_settings"); err != nil {
		fail(c, err)
		return
	}

	err := h.marketService.Engine().UpdateSettings(common.HexToAddress(req.CallerAddr), market.Settings{
		MinOrderDuration:    req.MinOrderDuration,
		MinAuctionIncrement: req.MinAuctionIncrement,
		MinBidValue:         req.MinBidValue,
		MaxOrderDuration:    req.MaxOrderDuration,
	})
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, h.marketService.Engine().Settings())
}

// SetFeesReq 更新费率请求
type SetFeesReq struct {
	adminReq
	HouseFeeBps uint64 `json:"house_fee_bps"`
	FlatFeeBps  uint64 `json:"flat_fee_bps"`
}

// SetFees 在线更新费率
func (h *AdminHandler) SetFees(c *gin.Context) {
	var req SetFeesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	if err := verify(req.adminReq, "set_fees"); err != nil {
		fail(c, err)
		return
	}

	if err := h.marketService.Engine().SetFees(common.HexToAddress(req.CallerAddr), req.HouseFeeBps, req.FlatFeeBps); err != nil {
		fail(c, err)
		return
	}
	ok(c, h.marketService.Engine().Fees())
}

// SetRecipientReq 更新收款地址请求
type SetRecipientReq struct {
	adminReq
	RecipientAddr string `json:"recipient_addr" binding:"required"`
}

// SetRecipient 更新手续费收款地址
func (h *AdminHandler) SetRecipient(c *gin.Context) {
	var req SetRecipientReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	if err := verify(req.adminReq, "set_recipient"); err != nil {
		fail(c, err)
		return
	}

	err := h.marketService.Engine().SetRecipient(
		common.HexToAddress(req.CallerAddr), common.HexToAddress(req.RecipientAddr))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"recipient_addr": req.RecipientAddr})
}

// Pause 暂停市场
func (h *AdminHandler) Pause(c *gin.Context) {
	var req adminReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	if err := verify(req, "pause"); err != nil {
		fail(c, err)
		return
	}

	if err := h.marketService.Engine().Pause(common.HexToAddress(req.CallerAddr)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"paused": true})
}

// Unpause 恢复市场
func (h *AdminHandler) Unpause(c *gin.Context) {
	var req adminReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	if err := verify(req, "unpause"); err != nil {
		fail(c, err)
		return
	}

	if err := h.marketService.Engine().Unpause(common.HexToAddress(req.CallerAddr)); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"paused": false})
}

// Withdraw 提取平台累计手续费
func (h *AdminHandler) Withdraw(c *gin.Context) {
	var req adminReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	if err := verify(req, "withdraw"); err != nil {
		fail(c, err)
		return
	}

	amount, err := h.marketService.Engine().Withdraw(c.Request.Context(), common.HexToAddress(req.CallerAddr))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"amount": amount.String()})
}

// DelOrderReq 强制移除订单请求
type DelOrderReq struct {
	adminReq
	OrderID string `json:"order_id" binding:"required"`
}

// DelOrder 所有者紧急清理订单（暂停期间仍可用）
func (h *AdminHandler) DelOrder(c *gin.Context) {
	var req DelOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}
	if err := verify(req.adminReq, "del_order"+req.OrderID); err != nil {
		fail(c, err)
		return
	}

	err := h.marketService.Engine().DelOrder(c.Request.Context(),
		common.HexToHash(req.OrderID), common.HexToAddress(req.CallerAddr))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"order_id": req.OrderID})
}
