package service

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"nft_market/dao"
	"nft_market/market"
	"nft_market/model"
	"nft_market/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// MarketService 市场服务：引擎操作的落库与缓存编排
type MarketService struct {
	engine  *market.Engine
	chainID int
}

// NewMarketService 创建市场服务
func NewMarketService(engine *market.Engine, chainID int) *MarketService {
	return &MarketService{engine: engine, chainID: chainID}
}

// Engine 返回底层引擎（管理接口用）
func (s *MarketService) Engine() *market.Engine {
	return s.engine
}

// -------------- 请求结构体 --------------

// ListOrderReq 挂单请求
type ListOrderReq struct {
	SellerAddr   string `json:"seller_addr" binding:"required"`
	ContractAddr string `json:"contract_addr" binding:"required"`
	TokenID      string `json:"token_id" binding:"required"`
	Amount       string `json:"amount"`
	OrderType    int    `json:"order_type"` // 0-一口价 1-荷兰式拍卖 2-英式拍卖
	StartPrice   string `json:"start_price" binding:"required"`
	EndPrice     string `json:"end_price"` // 荷兰拍底价
	EndTime      int64  `json:"end_time" binding:"required"`
	Signature    string `json:"signature" binding:"required"`
}

// BidReq 出价请求
type BidReq struct {
	OrderID    string `json:"order_id" binding:"required"`
	BidderAddr string `json:"bidder_addr" binding:"required"`
	Value      string `json:"value" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

// BuyReq 购买请求
type BuyReq struct {
	OrderID   string `json:"order_id" binding:"required"`
	BuyerAddr string `json:"buyer_addr" binding:"required"`
	Payment   string `json:"payment" binding:"required"`
	Signature string `json:"signature" binding:"required"`
}

// ClaimReq 拍卖结算请求
type ClaimReq struct {
	OrderID    string `json:"order_id" binding:"required"`
	CallerAddr string `json:"caller_addr" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

// CancelReq 撤单请求
type CancelReq struct {
	OrderID    string `json:"order_id" binding:"required"`
	CallerAddr string `json:"caller_addr" binding:"required"`
	Signature  string `json:"signature" binding:"required"`
}

// WithdrawOutbidReq 托管资金提取请求
type WithdrawOutbidReq struct {
	BidderAddr   string `json:"bidder_addr" binding:"required"`
	SwapTarget   string `json:"swap_target"` // 可选，目标币种合约地址
	MinAmountOut string `json:"min_amount_out"`
	Signature    string `json:"signature" binding:"required"`
}

// parseBig 解析十进制大整数入参
func parseBig(s string) (*big.Int, error) {
	if s == "" {
		return big.NewInt(0), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, errors.Errorf("invalid big integer: %s", s)
	}
	return v, nil
}

// -------------- 挂单 --------------

// ListOrder 挂单（按订单类型分流到引擎）
func (s *MarketService) ListOrder(ctx context.Context, req ListOrderReq) (string, error) {
	// 签名验签
	data := req.ContractAddr + req.TokenID + req.StartPrice + fmt.Sprintf("%d", req.OrderType)
	if !utils.VerifySignature(req.SellerAddr, data, req.Signature) {
		return "", errors.New("signature verify failed")
	}

	tokenID, err := parseBig(req.TokenID)
	if err != nil {
		return "", err
	}
	amount, err := parseBig(req.Amount)
	if err != nil {
		return "", err
	}
	if amount.Sign() == 0 {
		amount = big.NewInt(1)
	}
	startPrice, err := parseBig(req.StartPrice)
	if err != nil {
		return "", err
	}
	endPrice, err := parseBig(req.EndPrice)
	if err != nil {
		return "", err
	}

	// 分布式锁：防止同一资产并发挂单
	lockKey := fmt.Sprintf("market_lock_list_%s_%s", req.ContractAddr, req.TokenID)
	mutex, err := utils.GetRedisLock(ctx, lockKey, 10*time.Second)
	if err != nil {
		utils.Logger.Error("获取分布式锁失败", zap.String("lockKey", lockKey), zap.Error(err))
		return "", errors.New("当前资产正在处理中，请稍后再试")
	}
	defer utils.ReleaseRedisLock(mutex)

	seller := common.HexToAddress(req.SellerAddr)
	token := common.HexToAddress(req.ContractAddr)

	var orderID common.Hash
	switch req.OrderType {
	case model.OrderTypeFixedPrice:
		orderID, err = s.engine.FixedPrice(ctx, seller, token, tokenID, amount, startPrice, req.EndTime)
	case model.OrderTypeDutchAuction:
		orderID, err = s.engine.DutchAuction(ctx, seller, token, tokenID, amount, startPrice, endPrice, req.EndTime)
	case model.OrderTypeEnglishAuction:
		orderID, err = s.engine.EnglishAuction(ctx, seller, token, tokenID, amount, startPrice, req.EndTime)
	default:
		return "", errors.Errorf("unknown order type: %d", req.OrderType)
	}
	if err != nil {
		return "", err
	}

	// 落库订单镜像
	info, err := s.engine.OrderInfo(orderID)
	if err != nil {
		return "", err
	}
	record := &model.OrderRecord{
		OrderID:      orderID.Hex(),
		Height:       info.Height,
		ContractAddr: token.Hex(),
		TokenID:      tokenID.String(),
		Amount:       amount.String(),
		SellerAddr:   seller.Hex(),
		OrderType:    req.OrderType,
		StartPrice:   decimal.NewFromBigInt(startPrice, 0),
		EndPrice:     decimal.NewFromBigInt(endPrice, 0),
		LastBidPrice: decimal.Zero,
		Status:       model.OrderStatusActive,
		StartTime:    info.StartTime,
		EndTime:      info.EndTime,
		ChainID:      s.chainID,
	}
	if err := dao.CreateOrder(record); err != nil {
		utils.Logger.Error("订单落库失败", zap.String("order_id", orderID.Hex()), zap.Error(err))
	}

	// 英式拍卖进入到期扫描索引
	if req.OrderType == model.OrderTypeEnglishAuction {
		if err := dao.AddActiveAuction(orderID.Hex(), info.EndTime); err != nil {
			utils.Logger.Error("写入活跃拍卖索引失败", zap.String("order_id", orderID.Hex()), zap.Error(err))
		}
	}

	return orderID.Hex(), nil
}

// -------------- 出价 --------------

// Bid 英式拍卖出价
func (s *MarketService) Bid(ctx context.Context, req BidReq) error {
	data := req.OrderID + req.Value
	if !utils.VerifySignature(req.BidderAddr, data, req.Signature) {
		return errors.New("signature verify failed")
	}

	value, err := parseBig(req.Value)
	if err != nil {
		return err
	}

	// 分布式锁：同一订单出价串行
	lockKey := fmt.Sprintf("market_lock_order_%s", req.OrderID)
	mutex, err := utils.GetRedisLock(ctx, lockKey, 10*time.Second)
	if err != nil {
		utils.Logger.Error("获取分布式锁失败", zap.String("lockKey", lockKey), zap.Error(err))
		return errors.New("订单正在处理中，请稍后再试")
	}
	defer utils.ReleaseRedisLock(mutex)

	orderID := common.HexToHash(req.OrderID)
	bidder := common.HexToAddress(req.BidderAddr)
	if err := s.engine.Bid(ctx, orderID, bidder, value); err != nil {
		return err
	}

	// 镜像落库：出价流水 + 订单最新出价/截止时间
	info, err := s.engine.OrderInfo(orderID)
	if err != nil {
		return err
	}
	bid := &model.BidRecord{
		OrderID:    req.OrderID,
		BidderAddr: bidder.Hex(),
		BidPrice:   decimal.NewFromBigInt(value, 0),
		BidTime:    time.Now().Unix(),
	}
	if err := dao.CreateBid(bid); err != nil {
		utils.Logger.Error("出价流水落库失败", zap.String("order_id", req.OrderID), zap.Error(err))
	}
	s.syncOrderRecord(info)

	// 热点缓存 + 反狙击顺延后的到期时间
	if err := dao.CacheTopBid(req.OrderID, bidder.Hex(), value.String()); err != nil {
		utils.Logger.Error("写出价缓存失败", zap.String("order_id", req.OrderID), zap.Error(err))
	}
	if err := dao.UpdateAuctionEndTime(req.OrderID, info.EndTime); err != nil {
		utils.Logger.Error("刷新拍卖截止时间失败", zap.String("order_id", req.OrderID), zap.Error(err))
	}

	return nil
}

// -------------- 购买与结算 --------------

// Buy 购买一口价/荷兰拍订单
func (s *MarketService) Buy(ctx context.Context, req BuyReq) error {
	data := req.OrderID + req.Payment
	if !utils.VerifySignature(req.BuyerAddr, data, req.Signature) {
		return errors.New("signature verify failed")
	}

	payment, err := parseBig(req.Payment)
	if err != nil {
		return err
	}

	lockKey := fmt.Sprintf("market_lock_order_%s", req.OrderID)
	mutex, err := utils.GetRedisLock(ctx, lockKey, 10*time.Second)
	if err != nil {
		utils.Logger.Error("获取分布式锁失败", zap.String("lockKey", lockKey), zap.Error(err))
		return errors.New("订单正在处理中，请稍后再试")
	}
	defer utils.ReleaseRedisLock(mutex)

	orderID := common.HexToHash(req.OrderID)
	buyer := common.HexToAddress(req.BuyerAddr)
	if err := s.engine.Buy(ctx, orderID, buyer, payment); err != nil {
		return err
	}

	s.finalizeSold(orderID, buyer)
	return nil
}

// Claim 英式拍卖结算
func (s *MarketService) Claim(ctx context.Context, req ClaimReq) error {
	if !utils.VerifySignature(req.CallerAddr, req.OrderID, req.Signature) {
		return errors.New("signature verify failed")
	}

	lockKey := fmt.Sprintf("market_lock_order_%s", req.OrderID)
	mutex, err := utils.GetRedisLock(ctx, lockKey, 10*time.Second)
	if err != nil {
		utils.Logger.Error("获取分布式锁失败", zap.String("lockKey", lockKey), zap.Error(err))
		return errors.New("订单正在处理中，请稍后再试")
	}
	defer utils.ReleaseRedisLock(mutex)

	return s.claimLocked(ctx, common.HexToHash(req.OrderID), common.HexToAddress(req.CallerAddr))
}

// claimLocked 持锁后的结算路径（到期扫描器复用）
func (s *MarketService) claimLocked(ctx context.Context, orderID common.Hash, caller common.Address) error {
	if err := s.engine.Claim(ctx, orderID, caller); err != nil {
		return err
	}

	info, err := s.engine.OrderInfo(orderID)
	if err != nil {
		return err
	}
	s.finalizeSold(orderID, info.LastBidder)
	return nil
}

// finalizeSold 成交收尾：镜像落库 + 清理缓存与到期索引
func (s *MarketService) finalizeSold(orderID common.Hash, buyer common.Address) {
	info, err := s.engine.OrderInfo(orderID)
	if err != nil {
		utils.Logger.Error("读取成交订单失败", zap.String("order_id", orderID.Hex()), zap.Error(err))
		return
	}
	record, err := dao.GetOrderByOrderID(orderID.Hex())
	if err != nil {
		utils.Logger.Error("查询订单镜像失败", zap.String("order_id", orderID.Hex()), zap.Error(err))
		return
	}
	record.Status = model.OrderStatusSold
	record.BuyerAddr = buyer.Hex()
	record.LastBidPrice = decimal.NewFromBigInt(info.LastBidPrice, 0)
	record.LastBidder = info.LastBidder.Hex()
	record.EndTime = info.EndTime
	if err := dao.UpdateOrder(record); err != nil {
		utils.Logger.Error("更新订单镜像失败", zap.String("order_id", orderID.Hex()), zap.Error(err))
	}

	if err := dao.RemoveActiveAuction(orderID.Hex()); err != nil {
		utils.Logger.Error("移除活跃拍卖索引失败", zap.String("order_id", orderID.Hex()), zap.Error(err))
	}
	if err := dao.DelOrderCache(orderID.Hex()); err != nil {
		utils.Logger.Error("清理订单缓存失败", zap.String("order_id", orderID.Hex()), zap.Error(err))
	}
}

// syncOrderRecord 按引擎快照刷新订单镜像
func (s *MarketService) syncOrderRecord(info market.Order) {
	record, err := dao.GetOrderByOrderID(info.ID.Hex())
	if err != nil {
		utils.Logger.Error("查询订单镜像失败", zap.String("order_id", info.ID.Hex()), zap.Error(err))
		return
	}
	record.Status = int(info.Status)
	record.LastBidPrice = decimal.NewFromBigInt(info.LastBidPrice, 0)
	record.LastBidder = info.LastBidder.Hex()
	record.EndTime = info.EndTime
	if err := dao.UpdateOrder(record); err != nil {
		utils.Logger.Error("更新订单镜像失败", zap.String("order_id", info.ID.Hex()), zap.Error(err))
	}
}

// -------------- 撤单 --------------

// Cancel 撤单
func (s *MarketService) Cancel(ctx context.Context, req CancelReq) error {
	if !utils.VerifySignature(req.CallerAddr, req.OrderID, req.Signature) {
		return errors.New("signature verify failed")
	}

	lockKey := fmt.Sprintf("market_lock_order_%s", req.OrderID)
	mutex, err := utils.GetRedisLock(ctx, lockKey, 10*time.Second)
	if err != nil {
		utils.Logger.Error("获取分布式锁失败", zap.String("lockKey", lockKey), zap.Error(err))
		return errors.New("订单正在处理中，请稍后再试")
	}
	defer utils.ReleaseRedisLock(mutex)

	orderID := common.HexToHash(req.OrderID)
	if err := s.engine.CancelOrder(ctx, orderID, common.HexToAddress(req.CallerAddr)); err != nil {
		return err
	}

	if info, err := s.engine.OrderInfo(orderID); err == nil {
		s.syncOrderRecord(info)
	}
	if err := dao.RemoveActiveAuction(req.OrderID); err != nil {
		utils.Logger.Error("移除活跃拍卖索引失败", zap.String("order_id", req.OrderID), zap.Error(err))
	}
	return nil
}

// -------------- 托管提取 --------------

// WithdrawOutbid 竞价者提取被顶替的托管资金
func (s *MarketService) WithdrawOutbid(ctx context.Context, req WithdrawOutbidReq) (string, error) {
	data := req.BidderAddr + req.SwapTarget
	if !utils.VerifySignature(req.BidderAddr, data, req.Signature) {
		return "", errors.New("signature verify failed")
	}

	var swap *market.SwapParams
	if req.SwapTarget != "" {
		minOut, err := parseBig(req.MinAmountOut)
		if err != nil {
			return "", err
		}
		swap = &market.SwapParams{
			Target:       common.HexToAddress(req.SwapTarget),
			MinAmountOut: minOut,
		}
	}

	out, err := s.engine.WithdrawOutbid(ctx, common.HexToAddress(req.BidderAddr), swap)
	if err != nil {
		return "", err
	}
	return out.String(), nil
}

// -------------- 查询 --------------

// OrderDetail 订单详情（引擎实时快照 + 荷兰拍当前衰减价）
func (s *MarketService) OrderDetail(orderID string) (map[string]interface{}, error) {
	id := common.HexToHash(orderID)
	info, err := s.engine.OrderInfo(id)
	if err != nil {
		return nil, err
	}
	price, err := s.engine.CurrentPrice(id)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"order_id":       info.ID.Hex(),
		"order_type":     int(info.Type),
		"seller":         info.Seller.Hex(),
		"contract_addr":  info.Token.Hex(),
		"token_id":       info.TokenID.String(),
		"amount":         info.Amount.String(),
		"start_price":    info.StartPrice.String(),
		"end_price":      info.EndPrice.String(),
		"current_price":  price.String(),
		"last_bid_price": info.LastBidPrice.String(),
		"last_bidder":    info.LastBidder.Hex(),
		"status":         int(info.Status),
		"start_time":     info.StartTime,
		"end_time":       info.EndTime,
	}, nil
}

// OrdersByToken 资产维度历史订单
func (s *MarketService) OrdersByToken(contractAddr, tokenID string) ([]model.OrderRecord, error) {
	return dao.ListOrdersByToken(common.HexToAddress(contractAddr).Hex(), tokenID)
}

// OrdersBySeller 卖家维度历史订单
func (s *MarketService) OrdersBySeller(sellerAddr string) ([]model.OrderRecord, error) {
	return dao.ListOrdersBySeller(common.HexToAddress(sellerAddr).Hex())
}

// EscrowBalance 托管余额查询
func (s *MarketService) EscrowBalance(bidderAddr string) string {
	return s.engine.EscrowBalance(common.HexToAddress(bidderAddr)).String()
}
