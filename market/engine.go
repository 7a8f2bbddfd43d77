package market

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"
)

// assetKey 首售标记键：(token, tokenId)
type assetKey struct {
	token   common.Address
	tokenID string
}

// Engine 拍卖引擎：订单校验、bid/buy/claim/cancel状态迁移、结算编排
//
// 单写者串行事务模型：每个公共操作持引擎锁原子执行到底，失败则不留任何
// 半途状态（先完成全部校验与外部划转，最后一步才落状态变更），保证
// 每个订单至多结算一次
type Engine struct {
	mu sync.Mutex

	owner     common.Address // 合约所有者（管理操作）
	recipient common.Address // 手续费收款地址
	treasury  common.Address // 市场金库账户（竞价资金与手续费暂存）
	paused    bool

	settings Settings
	fees     FeeConfig

	currency    Currency
	registry    *Registry
	escrow      *EscrowLedger
	factory     FactoryVerifier
	collections CollectionResolver
	splitter    Splitter
	swapper     Swapper // 可选
	events      EventSink

	firstSold map[assetKey]bool // 资产是否已在本市场完成过成交
	committed *big.Int          // 英拍在途顶价总额：已入金库未结算，平台提现不可触碰
	multi     bool              // 多资产代币市场（ERC1155语义）：订单ID掺入amount

	height uint64 // 挂单序列高度，参与订单ID派生
	now    func() time.Time
	log    *zap.Logger
}

// EngineOptions 引擎构造参数
type EngineOptions struct {
	Owner       common.Address
	Recipient   common.Address
	Treasury    common.Address
	Settings    Settings
	Fees        FeeConfig
	Currency    Currency
	Factory     FactoryVerifier
	Collections CollectionResolver
	Splitter    Splitter
	Swapper     Swapper
	Events      EventSink
	Multi       bool
	Now         func() time.Time
	Logger      *zap.Logger
}

// NewEngine 创建拍卖引擎实例（每个部署/实例各持一份注册表与托管账本，无单例）
func NewEngine(opts EngineOptions) *Engine {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Events == nil {
		opts.Events = NopEventSink{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if !opts.Settings.Valid() {
		opts.Settings = DefaultSettings()
	}
	if !opts.Fees.Valid() {
		opts.Fees = DefaultFeeConfig()
	}
	if opts.Recipient == (common.Address{}) {
		opts.Recipient = opts.Owner
	}
	return &Engine{
		owner:       opts.Owner,
		recipient:   opts.Recipient,
		treasury:    opts.Treasury,
		settings:    opts.Settings,
		fees:        opts.Fees,
		currency:    opts.Currency,
		registry:    NewRegistry(),
		escrow:      NewEscrowLedger(),
		factory:     opts.Factory,
		collections: opts.Collections,
		splitter:    opts.Splitter,
		swapper:     opts.Swapper,
		events:      opts.Events,
		firstSold:   make(map[assetKey]bool),
		committed:   big.NewInt(0),
		multi:       opts.Multi,
		now:         opts.Now,
		log:         opts.Logger,
	}
}

// -------------------------- 挂单 --------------------------

// FixedPrice 创建一口价订单
func (e *Engine) FixedPrice(ctx context.Context, seller, token common.Address, tokenID, amount, price *big.Int, endTime int64) (common.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if price == nil || price.Sign() <= 0 {
		return common.Hash{}, ErrWrongPrice
	}
	return e.makeOrder(ctx, OrderTypeFixedPrice, seller, token, tokenID, amount, price, big.NewInt(0), endTime)
}

// DutchAuction 创建荷兰式拍卖订单，要求endPrice ≤ startPrice
func (e *Engine) DutchAuction(ctx context.Context, seller, token common.Address, tokenID, amount, startPrice, endPrice *big.Int, endTime int64) (common.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if startPrice == nil || startPrice.Sign() <= 0 || endPrice == nil || endPrice.Sign() < 0 {
		return common.Hash{}, ErrWrongPrice
	}
	if endPrice.Cmp(startPrice) > 0 {
		return common.Hash{}, ErrExceedsMaxEP
	}
	return e.makeOrder(ctx, OrderTypeDutchAuction, seller, token, tokenID, amount, startPrice, endPrice, endTime)
}

// EnglishAuction 创建英式拍卖订单，startPrice为起拍底价
func (e *Engine) EnglishAuction(ctx context.Context, seller, token common.Address, tokenID, amount, startPrice *big.Int, endTime int64) (common.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if startPrice == nil || startPrice.Sign() <= 0 {
		return common.Hash{}, ErrWrongPrice
	}
	return e.makeOrder(ctx, OrderTypeEnglishAuction, seller, token, tokenID, amount, startPrice, big.NewInt(0), endTime)
}

// makeOrder 挂单公共路径：授权校验、时长校验、写入注册表、发事件
func (e *Engine) makeOrder(ctx context.Context, typ OrderType, seller, token common.Address, tokenID, amount, startPrice, endPrice *big.Int, endTime int64) (common.Hash, error) {
	if e.paused {
		return common.Hash{}, ErrPaused
	}
	if amount == nil || amount.Sign() <= 0 {
		amount = big.NewInt(1)
	}
	now := e.now().Unix()
	duration := endTime - now
	if duration < e.settings.MinOrderDuration || duration > e.settings.MaxOrderDuration {
		return common.Hash{}, ErrNeedMoreTime
	}

	ok, err := e.authorizedSeller(ctx, seller, token, tokenID)
	if err != nil {
		return common.Hash{}, err
	}
	if !ok {
		return common.Hash{}, ErrNotAuthorized
	}

	e.height++
	order := &Order{
		ID:           DeriveOrderID(e.height, token, tokenID, amount, seller, e.multi),
		Type:         typ,
		Seller:       seller,
		Token:        token,
		TokenID:      new(big.Int).Set(tokenID),
		Amount:       new(big.Int).Set(amount),
		StartPrice:   new(big.Int).Set(startPrice),
		EndPrice:     new(big.Int).Set(endPrice),
		StartTime:    now,
		EndTime:      endTime,
		LastBidPrice: big.NewInt(0),
		Status:       OrderStatusActive,
		Height:       e.height,
	}
	if err := e.registry.Insert(order); err != nil {
		return common.Hash{}, err
	}

	e.events.MakeOrder(MakeOrderEvent{
		Token: token, TokenID: order.TokenID, Amount: order.Amount,
		OrderID: order.ID, Seller: seller,
	})
	e.log.Info("挂单成功",
		zap.String("order_id", order.ID.Hex()),
		zap.String("type", typ.String()),
		zap.String("seller", seller.Hex()))
	return order.ID, nil
}

// authorizedSeller 挂单授权：在册创作者，或持有该token/已授权市场
func (e *Engine) authorizedSeller(ctx context.Context, seller, token common.Address, tokenID *big.Int) (bool, error) {
	house, err := e.factory.IsHouseOriginated(ctx, token)
	if err != nil {
		return false, err
	}
	if house {
		ok, err := e.factory.IsAuthorizedCreator(ctx, token, seller)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	col, err := e.collections.Collection(ctx, token)
	if err != nil {
		return false, err
	}
	return col.OwnerOrApproved(ctx, seller, tokenID)
}

// -------------------------- 出价 --------------------------

// Bid 英式拍卖出价
// 前一位出价者的资金转入托管账本（拉取式退款），不直接退回；
// 截止前MinAuctionIncrement秒内的出价会把截止时间顺延一个窗口（反狙击）
func (e *Engine) Bid(ctx context.Context, orderID common.Hash, bidder common.Address, value *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return ErrPaused
	}
	order, err := e.registry.Get(orderID)
	if err != nil {
		return err
	}
	if order.Type != OrderTypeEnglishAuction {
		return ErrEAOnly
	}
	if err := e.checkLive(order); err != nil {
		return err
	}
	if bidder == order.Seller {
		return ErrInvalidBidder
	}
	if value == nil || value.Cmp(e.minAcceptableBid(order)) < 0 {
		return ErrWrongPrice
	}

	// 资金先行入库，失败则整单回退
	if err := e.currency.TransferFrom(ctx, bidder, e.treasury, value); err != nil {
		return err
	}

	// 顶替前一位出价者：只记账，提取由其自行发起；
	// 被顶替的资金从在途占用转入托管占用，新出价转为在途占用
	if order.HasBid() {
		e.escrow.Deposit(order.LastBidder, e.currency.Address(), order.LastBidPrice)
		e.committed.Sub(e.committed, order.LastBidPrice)
	}
	e.committed.Add(e.committed, value)
	order.LastBidder = bidder
	order.LastBidPrice = new(big.Int).Set(value)

	// 反狙击顺延
	now := e.now().Unix()
	if order.EndTime-now < e.settings.MinAuctionIncrement {
		order.EndTime += e.settings.MinAuctionIncrement
	}

	e.events.Bid(BidEvent{
		Token: order.Token, TokenID: order.TokenID, Amount: order.Amount,
		OrderID: orderID, Bidder: bidder, Value: order.LastBidPrice,
	})
	return nil
}

// minAcceptableBid 最低可接受出价：
// 无人出价时须超过起拍价；否则须在上次出价上加价至少1/MinBidValue
func (e *Engine) minAcceptableBid(order *Order) *big.Int {
	if !order.HasBid() {
		return new(big.Int).Add(order.StartPrice, big.NewInt(1))
	}
	inc := new(big.Int).Quo(order.LastBidPrice, new(big.Int).SetUint64(e.settings.MinBidValue))
	return new(big.Int).Add(order.LastBidPrice, inc)
}

// -------------------------- 购买与结算 --------------------------

// Buy 购买一口价/荷兰拍订单（英式拍卖走claim）
// 一口价要求支付金额等于挂牌价；荷兰拍要求不低于当前衰减价，按实付结算
func (e *Engine) Buy(ctx context.Context, orderID common.Hash, buyer common.Address, payment *big.Int) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return ErrPaused
	}
	order, err := e.registry.Get(orderID)
	if err != nil {
		return err
	}
	if err := e.checkLive(order); err != nil {
		return err
	}
	if payment == nil {
		return ErrWrongPrice
	}

	switch order.Type {
	case OrderTypeFixedPrice:
		if payment.Cmp(order.StartPrice) != 0 {
			return ErrWrongPrice
		}
	case OrderTypeDutchAuction:
		if payment.Cmp(order.CurrentPrice(e.now())) < 0 {
			return ErrWrongPrice
		}
	default:
		return ErrNotBuyable
	}

	// 买家资金入库；结算失败整笔原路退回，退款不成再落托管账本待自提
	if err := e.currency.TransferFrom(ctx, buyer, e.treasury, payment); err != nil {
		return err
	}
	if err := e.settle(ctx, order, buyer, payment); err != nil {
		if refundErr := e.currency.Transfer(ctx, buyer, payment); refundErr != nil {
			e.escrow.Deposit(buyer, e.currency.Address(), payment)
			e.log.Error("购买结算失败且退款未成，款项转入托管账本",
				zap.String("order_id", orderID.Hex()),
				zap.String("buyer", buyer.Hex()),
				zap.Error(refundErr))
		}
		return err
	}
	return nil
}

// Claim 英式拍卖结算：截止后由卖家/中标者/平台触发，按最后出价交割
// 中标者的资金早在出价时已入库，不再二次收款
func (e *Engine) Claim(ctx context.Context, orderID common.Hash, caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return ErrPaused
	}
	order, err := e.registry.Get(orderID)
	if err != nil {
		return err
	}
	if order.Type != OrderTypeEnglishAuction {
		return ErrEAOnly
	}
	switch order.Status {
	case OrderStatusSold:
		return ErrSoldToken
	case OrderStatusCancelled:
		return ErrCanceledOrder
	}
	if !order.Expired(e.now()) {
		return ErrNeedMoreTime
	}
	if !order.HasBid() {
		return ErrWrongPrice
	}
	if caller != order.Seller && caller != order.LastBidder && caller != e.owner {
		return ErrAccessDenied
	}
	if err := e.settle(ctx, order, order.LastBidder, order.LastBidPrice); err != nil {
		return err
	}
	// 中标资金已兑付，解除在途占用
	e.committed.Sub(e.committed, order.LastBidPrice)
	return nil
}

// settle 结算：验资 + 资产交割 + 分账划转 + 落终态 + 发Claim事件
// 分账款项在资产交割前验资，任一失败订单状态不动，
// 不存在资产已转而卖家款未付的半途结果
func (e *Engine) settle(ctx context.Context, order *Order, buyer common.Address, amount *big.Int) error {
	col, err := e.collections.Collection(ctx, order.Token)
	if err != nil {
		return err
	}
	house, err := e.factory.IsHouseOriginated(ctx, order.Token)
	if err != nil {
		return err
	}

	ak := assetKey{token: order.Token, tokenID: order.TokenID.String()}
	firstSale := house && !e.firstSold[ak]

	// 自营资产查询版税（能力可选，未实现按0计）
	royaltyReceiver := common.Address{}
	royalty := big.NewInt(0)
	if house {
		if rp, ok := col.(RoyaltyProvider); ok {
			royaltyReceiver, royalty, err = rp.RoyaltyInfo(ctx, order.TokenID, amount)
			if err != nil {
				return err
			}
		}
	}

	payout := ComputePayout(amount, e.fees, house, firstSale, royaltyReceiver, royalty)
	if payout.Seller.Sign() < 0 {
		return ErrWrongPrice
	}

	// 交割前核验金库可覆盖全部待划转款项，付不起则整单失败
	need := new(big.Int).Add(payout.Seller, payout.RoyaltySplitter)
	balance, err := e.currency.BalanceOf(ctx, e.treasury)
	if err != nil {
		return err
	}
	if balance.Cmp(need) < 0 {
		return ErrNoFunds
	}

	// 资产交割：卖家 → 买家
	if err := col.Transfer(ctx, order.Seller, buyer, order.TokenID, order.Amount); err != nil {
		return err
	}

	// 资金分发：卖家所得 + 分账器版税份额；手续费与平台留存版税滞留金库
	if payout.Seller.Sign() > 0 {
		if err := e.currency.Transfer(ctx, order.Seller, payout.Seller); err != nil {
			return err
		}
	}
	if payout.RoyaltySplitter.Sign() > 0 {
		splitterAddr := payout.RoyaltyReceiver
		if splitterAddr == (common.Address{}) {
			splitterAddr, err = e.factory.SplitterOf(ctx, order.Token)
			if err != nil {
				return err
			}
		}
		if err := e.currency.Transfer(ctx, splitterAddr, payout.RoyaltySplitter); err != nil {
			return err
		}
		if err := e.splitter.CreditRoyalty(ctx, splitterAddr, e.currency.Address(), payout.RoyaltySplitter); err != nil {
			return err
		}
	}

	order.Status = OrderStatusSold
	e.firstSold[ak] = true

	e.events.Claim(ClaimEvent{
		Token: order.Token, TokenID: order.TokenID, Amount: order.Amount,
		OrderID: order.ID, Seller: order.Seller, Buyer: buyer,
		Settlement: new(big.Int).Set(amount),
	})
	e.log.Info("订单成交",
		zap.String("order_id", order.ID.Hex()),
		zap.String("buyer", buyer.Hex()),
		zap.String("settlement", amount.String()))
	return nil
}

// checkLive 订单是否可交易：未取消、未成交、未过期
func (e *Engine) checkLive(order *Order) error {
	switch order.Status {
	case OrderStatusCancelled:
		return ErrCanceledOrder
	case OrderStatusSold:
		return ErrSoldToken
	}
	if order.Expired(e.now()) {
		return ErrTimeout
	}
	return nil
}

// -------------------------- 撤单与强制移除 --------------------------

// CancelOrder 撤单：仅卖家可撤，英式拍卖已有出价则资金已承诺不可撤
// 自营合集还会复核调用方是否仍为在册创作者
func (e *Engine) CancelOrder(ctx context.Context, orderID common.Hash, caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return ErrPaused
	}
	order, err := e.registry.Get(orderID)
	if err != nil {
		return err
	}
	if caller != order.Seller {
		return ErrAccessDenied
	}
	house, err := e.factory.IsHouseOriginated(ctx, order.Token)
	if err != nil {
		return err
	}
	if house {
		ok, err := e.factory.IsAuthorizedCreator(ctx, order.Token, caller)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAccessDenied
		}
	}
	switch order.Status {
	case OrderStatusSold:
		return ErrSoldToken
	case OrderStatusCancelled:
		return ErrCanceledOrder
	}
	if order.Type == OrderTypeEnglishAuction && order.HasBid() {
		return ErrBidExists
	}

	order.Status = OrderStatusCancelled
	order.EndTime = 0

	e.events.CancelOrder(CancelOrderEvent{
		Token: order.Token, TokenID: order.TokenID, Amount: order.Amount,
		OrderID: orderID, Seller: order.Seller,
	})
	return nil
}

// DelOrder 所有者紧急清理：无视订单状态强制移除，暂停期间仍可用
// 若英式拍卖已有出价，先把该笔资金退入托管账本再删除记录
func (e *Engine) DelOrder(ctx context.Context, orderID common.Hash, caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrUnauthorized
	}
	order, err := e.registry.Get(orderID)
	if err != nil {
		return err
	}
	if order.Status == OrderStatusActive && order.HasBid() {
		e.escrow.Deposit(order.LastBidder, e.currency.Address(), order.LastBidPrice)
		e.committed.Sub(e.committed, order.LastBidPrice)
	}
	e.registry.Remove(orderID)
	e.log.Warn("订单被强制移除", zap.String("order_id", orderID.Hex()))
	return nil
}

// -------------------------- 托管提取 --------------------------

// WithdrawOutbid 竞价者提取被顶替的托管资金（全额，余额清零）
// swap.Target非零时先经兑换协作方换成目标币种再交付
func (e *Engine) WithdrawOutbid(ctx context.Context, bidder common.Address, swap *SwapParams) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.paused {
		return nil, ErrPaused
	}
	currency := e.currency.Address()
	amount := e.escrow.Balance(bidder, currency)
	if amount.Sign() == 0 {
		return nil, ErrNoFunds
	}

	if swap != nil && swap.Target != (common.Address{}) && swap.Target != currency {
		if e.swapper == nil {
			return nil, ErrNoFunds
		}
		out, err := e.swapper.Convert(ctx, currency, swap.Target, bidder, amount, swap.MinAmountOut)
		if err != nil {
			return nil, err
		}
		if _, err := e.escrow.Drain(bidder, currency); err != nil {
			return nil, err
		}
		return out, nil
	}

	if err := e.currency.Transfer(ctx, bidder, amount); err != nil {
		return nil, err
	}
	if _, err := e.escrow.Drain(bidder, currency); err != nil {
		return nil, err
	}
	return amount, nil
}

// EscrowBalance 查询托管余额
func (e *Engine) EscrowBalance(bidder common.Address) *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrow.Balance(bidder, e.currency.Address())
}

// TotalOutbid 未兑付托管总额
func (e *Engine) TotalOutbid() *big.Int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.escrow.TotalOutbid(e.currency.Address())
}

// -------------------------- 管理操作 --------------------------

// Withdraw 提取累计手续费到收款地址，暂停期间仍可用
// 可提上限 = 金库余额 − totalOutbid − 在途顶价：
// 托管中与竞拍在途的资金永远不会被平台提走
func (e *Engine) Withdraw(ctx context.Context, caller common.Address) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return nil, ErrUnauthorized
	}
	balance, err := e.currency.BalanceOf(ctx, e.treasury)
	if err != nil {
		return nil, err
	}
	reserved := new(big.Int).Add(e.escrow.TotalOutbid(e.currency.Address()), e.committed)
	available := new(big.Int).Sub(balance, reserved)
	if available.Sign() <= 0 {
		return nil, ErrNoFunds
	}
	if err := e.currency.Transfer(ctx, e.recipient, available); err != nil {
		return nil, err
	}
	return available, nil
}

// UpdateSettings 在线更新拍卖配置
func (e *Engine) UpdateSettings(caller common.Address, s Settings) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrUnauthorized
	}
	if !s.Valid() {
		return ErrNeedMoreTime
	}
	e.settings = s
	e.events.SettingsUpdated(AuctionSettingsUpdatedEvent{
		MinOrderDuration:    s.MinOrderDuration,
		MinAuctionIncrement: s.MinAuctionIncrement,
		MinBidValue:         s.MinBidValue,
		MaxOrderDuration:    s.MaxOrderDuration,
	})
	e.log.Info("拍卖配置已更新",
		zap.Int64("min_order_duration", s.MinOrderDuration),
		zap.Int64("min_auction_increment", s.MinAuctionIncrement),
		zap.Uint64("min_bid_value", s.MinBidValue),
		zap.Int64("max_order_duration", s.MaxOrderDuration))
	return nil
}

// SetFees 在线更新费率（自营首售费率、固定费率，基点）
func (e *Engine) SetFees(caller common.Address, houseBps, flatBps uint64) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrUnauthorized
	}
	f := e.fees
	f.HouseFeeBps = houseBps
	f.FlatFeeBps = flatBps
	if !f.Valid() {
		return ErrWrongPrice
	}
	e.fees = f
	e.events.FeesUpdated(FeesUpdatedEvent{HouseFeeBps: houseBps, FlatFeeBps: flatBps})
	e.log.Info("费率已更新",
		zap.Uint64("house_fee_bps", houseBps),
		zap.Uint64("flat_fee_bps", flatBps))
	return nil
}

// SetRecipient 更新手续费收款地址
func (e *Engine) SetRecipient(caller, recipient common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrUnauthorized
	}
	e.recipient = recipient
	e.events.RecipientUpdated(RecipientUpdatedEvent{Recipient: recipient})
	e.log.Info("收款地址已更新", zap.String("recipient", recipient.Hex()))
	return nil
}

// Pause 暂停市场：所有挂单/出价/购买/结算/撤单操作拒绝，仅紧急操作可用
func (e *Engine) Pause(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrUnauthorized
	}
	if e.paused {
		return ErrPaused
	}
	e.paused = true
	e.events.PauseChanged(PausedEvent{Paused: true})
	e.log.Warn("市场已暂停")
	return nil
}

// Unpause 恢复市场
func (e *Engine) Unpause(caller common.Address) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if caller != e.owner {
		return ErrUnauthorized
	}
	if !e.paused {
		return ErrUnpaused
	}
	e.paused = false
	e.events.PauseChanged(PausedEvent{Paused: false})
	e.log.Info("市场已恢复")
	return nil
}

// Paused 当前是否处于暂停状态
func (e *Engine) Paused() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.paused
}

// -------------------------- 查询 --------------------------

// OrderInfo 查询订单快照（拷贝，外部修改不影响引擎状态）
func (e *Engine) OrderInfo(orderID common.Hash) (Order, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, err := e.registry.Get(orderID)
	if err != nil {
		return Order{}, err
	}
	snapshot := *o
	snapshot.TokenID = new(big.Int).Set(o.TokenID)
	snapshot.Amount = new(big.Int).Set(o.Amount)
	snapshot.StartPrice = new(big.Int).Set(o.StartPrice)
	snapshot.EndPrice = new(big.Int).Set(o.EndPrice)
	snapshot.LastBidPrice = new(big.Int).Set(o.LastBidPrice)
	return snapshot, nil
}

// CurrentPrice 查询订单当前挂牌价（荷兰拍为衰减价）
func (e *Engine) CurrentPrice(orderID common.Hash) (*big.Int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	o, err := e.registry.Get(orderID)
	if err != nil {
		return nil, err
	}
	return o.CurrentPrice(e.now()), nil
}

// OrderIDByToken 资产维度索引查询
func (e *Engine) OrderIDByToken(token common.Address, tokenID, amount *big.Int, index int) (common.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.OrderIDByToken(token, tokenID, amount, index)
}

// TokenOrderLength 资产维度订单数
func (e *Engine) TokenOrderLength(token common.Address, tokenID, amount *big.Int) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.TokenOrderLength(token, tokenID, amount)
}

// OrderIDBySeller 卖家维度索引查询
func (e *Engine) OrderIDBySeller(seller common.Address, index int) (common.Hash, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.OrderIDBySeller(seller, index)
}

// SellerOrderLength 卖家维度订单数
func (e *Engine) SellerOrderLength(seller common.Address) int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.SellerOrderLength(seller)
}

// Settings 当前拍卖配置
func (e *Engine) Settings() Settings {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settings
}

// Fees 当前费率配置
func (e *Engine) Fees() FeeConfig {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.fees
}
