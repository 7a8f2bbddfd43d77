package service

import (
	"context"
	"encoding/json"
	"math/big"
	"strings"
	"time"

	"nft_market/dao"
	"nft_market/market"
	"nft_market/model"
	"nft_market/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// MQEventSink 市场事件出口：把引擎事件发布到RabbitMQ
// 发布失败只记日志不回滚交易，事件流是尽力而为的旁路
type MQEventSink struct{}

// MakeOrder 挂单事件
func (MQEventSink) MakeOrder(e market.MakeOrderEvent) {
	if err := utils.PublishMarketEvent(context.Background(), utils.RouteMakeOrder, e); err != nil {
		utils.Logger.Error("发布挂单事件失败", zap.String("order_id", e.OrderID.Hex()), zap.Error(err))
	}
}

// Bid 出价事件
func (MQEventSink) Bid(e market.BidEvent) {
	if err := utils.PublishMarketEvent(context.Background(), utils.RouteBid, e); err != nil {
		utils.Logger.Error("发布出价事件失败", zap.String("order_id", e.OrderID.Hex()), zap.Error(err))
	}
}

// Claim 成交事件
func (MQEventSink) Claim(e market.ClaimEvent) {
	if err := utils.PublishMarketEvent(context.Background(), utils.RouteClaim, e); err != nil {
		utils.Logger.Error("发布成交事件失败", zap.String("order_id", e.OrderID.Hex()), zap.Error(err))
	}
}

// CancelOrder 撤单事件
func (MQEventSink) CancelOrder(e market.CancelOrderEvent) {
	if err := utils.PublishMarketEvent(context.Background(), utils.RouteCancelOrder, e); err != nil {
		utils.Logger.Error("发布撤单事件失败", zap.String("order_id", e.OrderID.Hex()), zap.Error(err))
	}
}

// SettingsUpdated 拍卖配置更新事件
func (MQEventSink) SettingsUpdated(e market.AuctionSettingsUpdatedEvent) {
	if err := utils.PublishMarketEvent(context.Background(), utils.RouteSettings, e); err != nil {
		utils.Logger.Error("发布配置更新事件失败", zap.Error(err))
	}
}

// FeesUpdated 费率更新事件
func (MQEventSink) FeesUpdated(e market.FeesUpdatedEvent) {
	if err := utils.PublishMarketEvent(context.Background(), utils.RouteFees, e); err != nil {
		utils.Logger.Error("发布费率更新事件失败", zap.Error(err))
	}
}

// RecipientUpdated 收款地址更新事件
func (MQEventSink) RecipientUpdated(e market.RecipientUpdatedEvent) {
	if err := utils.PublishMarketEvent(context.Background(), utils.RouteRecipient, e); err != nil {
		utils.Logger.Error("发布收款地址更新事件失败", zap.Error(err))
	}
}

// PauseChanged 市场暂停/恢复事件
func (MQEventSink) PauseChanged(e market.PausedEvent) {
	if err := utils.PublishMarketEvent(context.Background(), utils.RoutePause, e); err != nil {
		utils.Logger.Error("发布暂停状态事件失败", zap.Error(err))
	}
}

// TradeService 成交账本服务：消费成交事件落交易记录
type TradeService struct {
	engine *market.Engine
	db     *gorm.DB
}

// NewTradeService 创建成交账本服务
func NewTradeService(engine *market.Engine, db *gorm.DB) *TradeService {
	return &TradeService{engine: engine, db: db}
}

// StartSettleConsumer 启动结算落库消费者
func (s *TradeService) StartSettleConsumer() error {
	return utils.ConsumeSettleMsg(func(body []byte) error {
		var event market.ClaimEvent
		if err := json.Unmarshal(body, &event); err != nil {
			utils.Logger.Error("成交事件反序列化失败", zap.Error(err))
			// 格式错误的消息重试无意义，直接吞掉
			return nil
		}
		return s.settleTrade(event)
	})
}

// settleTrade 按成交事件写交易记录并标记首售
func (s *TradeService) settleTrade(event market.ClaimEvent) error {
	orderID := event.OrderID.Hex()
	record, err := dao.GetOrderByOrderID(orderID)
	if err != nil {
		return errors.Wrapf(err, "查询订单镜像失败: %s", orderID)
	}

	// 同一订单至多一条成交记录，重复消费直接确认
	payout := s.payoutOf(event, record)
	trade := &model.TradeRecord{
		TradeNo:         utils.GenerateTradeNo(),
		OrderID:         orderID,
		ContractAddr:    record.ContractAddr,
		TokenID:         record.TokenID,
		SellerAddr:      event.Seller.Hex(),
		BuyerAddr:       event.Buyer.Hex(),
		Price:           decimal.NewFromBigInt(event.Settlement, 0),
		Fee:             decimal.NewFromBigInt(payout.Fee, 0),
		RoyaltySplitter: decimal.NewFromBigInt(payout.RoyaltySplitter, 0),
		RoyaltyRetained: decimal.NewFromBigInt(payout.RoyaltyRetained, 0),
		ChainID:         record.ChainID,
		TradeTime:       time.Now(),
	}
	if err := dao.CreateTrade(trade); err != nil {
		return errors.Wrap(err, "成交记录落库失败")
	}

	if err := dao.MarkFirstSale(&model.FirstSaleRecord{
		ContractAddr: record.ContractAddr,
		TokenID:      record.TokenID,
		OrderID:      orderID,
		SoldAt:       time.Now(),
	}); err != nil {
		utils.Logger.Error("标记首售失败", zap.String("order_id", orderID), zap.Error(err))
	}

	utils.Logger.Info("成交记录已落库",
		zap.String("trade_no", trade.TradeNo),
		zap.String("order_id", orderID),
		zap.String("price", event.Settlement.String()))
	return nil
}

// payoutOf 重放费率拆分：自营合集按登记版税计，第三方只扣固定费
func (s *TradeService) payoutOf(event market.ClaimEvent, record *model.OrderRecord) market.Payout {
	fees := s.engine.Fees()

	house := false
	royalty := big.NewInt(0)
	splitter := common.Address{}
	col, err := dao.GetCollectionByAddr(strings.ToLower(record.ContractAddr))
	if err == nil && col.HouseAsset {
		house = true
		splitter = common.HexToAddress(col.SplitterAddr)
		royalty = new(big.Int).Quo(
			new(big.Int).Mul(event.Settlement, new(big.Int).SetUint64(col.RoyaltyBps)),
			big.NewInt(10_000))
	}

	firstSale := false
	if house {
		done, err := dao.IsFirstSaleDone(record.ContractAddr, record.TokenID)
		if err == nil {
			firstSale = !done
		}
	}

	return market.ComputePayout(event.Settlement, fees, house, firstSale, splitter, royalty)
}

// GetTradeRecordsReq 查询交易记录请求
type GetTradeRecordsReq struct {
	UserAddr     string `form:"user_addr"`
	ContractAddr string `form:"contract_addr"`
	TokenID      string `form:"token_id"`
	Page         int    `form:"page"`
	PageSize     int    `form:"page_size"`
}

// GetTradeRecords 分页查询交易记录
func (s *TradeService) GetTradeRecords(ctx context.Context, req GetTradeRecordsReq) ([]model.TradeRecord, int64, error) {
	var records []model.TradeRecord
	var total int64

	if req.Page <= 0 {
		req.Page = 1
	}
	if req.PageSize <= 0 || req.PageSize > 100 {
		req.PageSize = 20
	}

	query := s.db.WithContext(ctx).Model(&model.TradeRecord{})
	if req.UserAddr != "" {
		query = query.Where("seller_addr = ? OR buyer_addr = ?", req.UserAddr, req.UserAddr)
	}
	if req.ContractAddr != "" {
		query = query.Where("contract_addr = ?", req.ContractAddr)
	}
	if req.TokenID != "" {
		query = query.Where("token_id = ?", req.TokenID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (req.Page - 1) * req.PageSize
	if err := query.Offset(offset).Limit(req.PageSize).Order("trade_time DESC").Find(&records).Error; err != nil {
		return nil, 0, err
	}

	return records, total, nil
}
