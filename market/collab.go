package market

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// CollectionKind 合集变体类型（与工厂部署的合集一一对应）
type CollectionKind uint8

const (
	CollectionMinimal   CollectionKind = iota // 单token极简款
	CollectionBasic                           // 限量款
	CollectionWhitelist                       // 白名单款
	CollectionLazy                            // 惰性铸造款
)

// FactoryVerifier 工厂/注册表协作方：提供合集归属与创作者授权查询
type FactoryVerifier interface {
	// IsAuthorizedCreator 调用方是否为该合集在册创作者
	IsAuthorizedCreator(ctx context.Context, token, caller common.Address) (bool, error)
	// CollectionType 合集变体类型
	CollectionType(ctx context.Context, token common.Address) (CollectionKind, error)
	// IsHouseOriginated 是否为经本平台工厂部署的自营合集
	IsHouseOriginated(ctx context.Context, token common.Address) (bool, error)
	// SplitterOf 合集绑定的分账器地址
	SplitterOf(ctx context.Context, token common.Address) (common.Address, error)
}

// Collection 单个NFT合集协作方：资产转移与持有/授权查询
type Collection interface {
	// Transfer 划转资产（ERC721忽略amount语义，ERC1155按amount划转）
	Transfer(ctx context.Context, from, to common.Address, tokenID, amount *big.Int) error
	// OwnerOrApproved 调用方是否持有该token或已授权给市场
	OwnerOrApproved(ctx context.Context, caller common.Address, tokenID *big.Int) (bool, error)
}

// RoyaltyProvider 版税查询能力（可选，合集未实现则版税按0处理）
type RoyaltyProvider interface {
	RoyaltyInfo(ctx context.Context, tokenID, salePrice *big.Int) (common.Address, *big.Int, error)
}

// CollectionResolver 按合约地址解析合集句柄
type CollectionResolver interface {
	Collection(ctx context.Context, token common.Address) (Collection, error)
}

// Splitter 分账器协作方：收取版税回流份额后在创作者/大使等受益人间分配
type Splitter interface {
	CreditRoyalty(ctx context.Context, splitter, currency common.Address, amount *big.Int) error
}

// Swapper 兑换协作方：提现时把托管资金换成目标币种后交付收款人
// 引擎只关心"convert(amountIn, minAmountOut) → amountOut，否则失败"
type Swapper interface {
	Convert(ctx context.Context, currency, target, recipient common.Address, amountIn, minAmountOut *big.Int) (*big.Int, error)
}

// SwapParams 提现兑换参数：Target为零地址表示不兑换原币提取
type SwapParams struct {
	Target       common.Address
	MinAmountOut *big.Int
}

// Currency 结算币种能力接口：统一原生币与ERC-20两条支付路径
type Currency interface {
	// Address 币种标识（原生币为零地址）
	Address() common.Address
	// TransferFrom 从from划转amount到to（需事先授权）
	TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int) error
	// Transfer 从市场金库划转amount到to
	Transfer(ctx context.Context, to common.Address, amount *big.Int) error
	// BalanceOf 查询余额
	BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error)
}

// -------------------------- 对外事件 --------------------------

// MakeOrderEvent 挂单事件
type MakeOrderEvent struct {
	Token   common.Address `json:"token"`
	TokenID *big.Int       `json:"token_id"`
	Amount  *big.Int       `json:"amount"`
	OrderID common.Hash    `json:"order_id"`
	Seller  common.Address `json:"seller"`
}

// BidEvent 出价事件
type BidEvent struct {
	Token   common.Address `json:"token"`
	TokenID *big.Int       `json:"token_id"`
	Amount  *big.Int       `json:"amount"`
	OrderID common.Hash    `json:"order_id"`
	Bidder  common.Address `json:"bidder"`
	Value   *big.Int       `json:"value"`
}

// ClaimEvent 成交事件：buy与claim共用（两者都以资产交割+资金分发收尾）
type ClaimEvent struct {
	Token      common.Address `json:"token"`
	TokenID    *big.Int       `json:"token_id"`
	Amount     *big.Int       `json:"amount"`
	OrderID    common.Hash    `json:"order_id"`
	Seller     common.Address `json:"seller"`
	Buyer      common.Address `json:"buyer"`
	Settlement *big.Int       `json:"settlement"`
}

// CancelOrderEvent 撤单事件
type CancelOrderEvent struct {
	Token   common.Address `json:"token"`
	TokenID *big.Int       `json:"token_id"`
	Amount  *big.Int       `json:"amount"`
	OrderID common.Hash    `json:"order_id"`
	Seller  common.Address `json:"seller"`
}

// AuctionSettingsUpdatedEvent 拍卖配置更新事件
type AuctionSettingsUpdatedEvent struct {
	MinOrderDuration    int64  `json:"min_order_duration"`
	MinAuctionIncrement int64  `json:"min_auction_increment"`
	MinBidValue         uint64 `json:"min_bid_value"`
	MaxOrderDuration    int64  `json:"max_order_duration"`
}

// FeesUpdatedEvent 费率更新事件
type FeesUpdatedEvent struct {
	HouseFeeBps uint64 `json:"house_fee_bps"`
	FlatFeeBps  uint64 `json:"flat_fee_bps"`
}

// RecipientUpdatedEvent 手续费收款地址更新事件
type RecipientUpdatedEvent struct {
	Recipient common.Address `json:"recipient"`
}

// PausedEvent 市场暂停/恢复事件
type PausedEvent struct {
	Paused bool `json:"paused"`
}

// EventSink 事件出口，供外部索引器消费
type EventSink interface {
	MakeOrder(e MakeOrderEvent)
	Bid(e BidEvent)
	Claim(e ClaimEvent)
	CancelOrder(e CancelOrderEvent)
	SettingsUpdated(e AuctionSettingsUpdatedEvent)
	FeesUpdated(e FeesUpdatedEvent)
	RecipientUpdated(e RecipientUpdatedEvent)
	PauseChanged(e PausedEvent)
}

// NopEventSink 空事件出口
type NopEventSink struct{}

func (NopEventSink) MakeOrder(MakeOrderEvent)                    {}
func (NopEventSink) Bid(BidEvent)                                {}
func (NopEventSink) Claim(ClaimEvent)                            {}
func (NopEventSink) CancelOrder(CancelOrderEvent)                {}
func (NopEventSink) SettingsUpdated(AuctionSettingsUpdatedEvent) {}
func (NopEventSink) FeesUpdated(FeesUpdatedEvent)                {}
func (NopEventSink) RecipientUpdated(RecipientUpdatedEvent)      {}
func (NopEventSink) PauseChanged(PausedEvent)                    {}
