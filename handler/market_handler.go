package handler

import (
	"net/http"

	"nft_market/market"
	"nft_market/service"
	"nft_market/utils"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// MarketHandler 市场处理器
type MarketHandler struct {
	marketService  *service.MarketService
	tradeService   *service.TradeService
	factoryService *service.FactoryService
}

// NewMarketHandler 创建市场处理器
func NewMarketHandler(ms *service.MarketService, ts *service.TradeService, fs *service.FactoryService) *MarketHandler {
	return &MarketHandler{
		marketService:  ms,
		tradeService:   ts,
		factoryService: fs,
	}
}

// statusOf 引擎错误到HTTP状态码的映射
func statusOf(err error) int {
	switch {
	case errors.Is(err, market.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, market.ErrNotAuthorized),
		errors.Is(err, market.ErrAccessDenied),
		errors.Is(err, market.ErrUnauthorized):
		return http.StatusForbidden
	case errors.Is(err, market.ErrWrongPrice),
		errors.Is(err, market.ErrNeedMoreTime),
		errors.Is(err, market.ErrExceedsMaxEP),
		errors.Is(err, market.ErrInvalidBidder),
		errors.Is(err, market.ErrEAOnly),
		errors.Is(err, market.ErrNotBuyable),
		errors.Is(err, market.ErrCanceledOrder),
		errors.Is(err, market.ErrSoldToken),
		errors.Is(err, market.ErrBidExists),
		errors.Is(err, market.ErrTimeout),
		errors.Is(err, market.ErrInsufficientERC20),
		errors.Is(err, market.ErrNoFunds):
		return http.StatusBadRequest
	case errors.Is(err, market.ErrPaused), errors.Is(err, market.ErrUnpaused):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail 统一错误响应
func fail(c *gin.Context, err error) {
	status := statusOf(err)
	c.JSON(status, gin.H{
		"code": status,
		"msg":  err.Error(),
	})
}

// ok 统一成功响应
func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, gin.H{
		"code": 200,
		"msg":  "success",
		"data": data,
	})
}

// bindFail 参数绑定失败响应
func bindFail(c *gin.Context, err error) {
	utils.Logger.Error("参数绑定失败", zap.Error(err))
	c.JSON(http.StatusBadRequest, gin.H{
		"code": 400,
		"msg":  err.Error(),
	})
}

// ListOrder 挂单
func (h *MarketHandler) ListOrder(c *gin.Context) {
	var req service.ListOrderReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}

	orderID, err := h.marketService.ListOrder(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"order_id": orderID})
}

// Bid 英式拍卖出价
func (h *MarketHandler) Bid(c *gin.Context) {
	var req service.BidReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}

	if err := h.marketService.Bid(c.Request.Context(), req); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"order_id": req.OrderID})
}

// Buy 购买一口价/荷兰拍订单
func (h *MarketHandler) Buy(c *gin.Context) {
	var req service.BuyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}

	if err := h.marketService.Buy(c.Request.Context(), req); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"order_id": req.OrderID})
}

// Claim 英式拍卖结算
func (h *MarketHandler) Claim(c *gin.Context) {
	var req service.ClaimReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}

	if err := h.marketService.Claim(c.Request.Context(), req); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"order_id": req.OrderID})
}

// Cancel 撤单
func (h *MarketHandler) Cancel(c *gin.Context) {
	var req service.CancelReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}

	if err := h.marketService.Cancel(c.Request.Context(), req); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"order_id": req.OrderID})
}

// WithdrawOutbid 竞价者提取托管资金
func (h *MarketHandler) WithdrawOutbid(c *gin.Context) {
	var req service.WithdrawOutbidReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}

	amount, err := h.marketService.WithdrawOutbid(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"amount": amount})
}

// GetOrder 订单详情
func (h *MarketHandler) GetOrder(c *gin.Context) {
	detail, err := h.marketService.OrderDetail(c.Param("order_id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, detail)
}

// GetOrdersByToken 资产维度历史订单
func (h *MarketHandler) GetOrdersByToken(c *gin.Context) {
	contractAddr := c.Query("contract_addr")
	tokenID := c.Query("token_id")
	if contractAddr == "" || tokenID == "" {
		bindFail(c, errors.New("contract_addr和token_id必填"))
		return
	}

	orders, err := h.marketService.OrdersByToken(contractAddr, tokenID)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": orders, "total": len(orders)})
}

// GetOrdersBySeller 卖家维度历史订单
func (h *MarketHandler) GetOrdersBySeller(c *gin.Context) {
	orders, err := h.marketService.OrdersBySeller(c.Param("addr"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"list": orders, "total": len(orders)})
}

// GetEscrowBalance 托管余额查询
func (h *MarketHandler) GetEscrowBalance(c *gin.Context) {
	ok(c, gin.H{
		"bidder":  c.Param("addr"),
		"balance": h.marketService.EscrowBalance(c.Param("addr")),
	})
}

// GetTradeRecords 分页查询交易记录
func (h *MarketHandler) GetTradeRecords(c *gin.Context) {
	var req service.GetTradeRecordsReq
	if err := c.ShouldBindQuery(&req); err != nil {
		bindFail(c, err)
		return
	}

	records, total, err := h.tradeService.GetTradeRecords(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{
		"list":      records,
		"total":     total,
		"page":      req.Page,
		"page_size": req.PageSize,
	})
}

// RegisterCollection 登记合集
func (h *MarketHandler) RegisterCollection(c *gin.Context) {
	var req service.RegisterCollectionReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bindFail(c, err)
		return
	}

	if err := h.factoryService.RegisterCollection(c.Request.Context(), req); err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"contract_addr": req.ContractAddr})
}
