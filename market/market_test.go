package market

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// 测试用协作方桩实现：全部进程内，不依赖链与外部服务

// fakeClock 可拨动的测试时钟
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1_700_000_000, 0)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// stubFactory 工厂注册表桩：记录自营合集与创作者
type stubFactory struct {
	house    map[common.Address]bool
	creators map[common.Address]common.Address
	splitter map[common.Address]common.Address
}

func newStubFactory() *stubFactory {
	return &stubFactory{
		house:    make(map[common.Address]bool),
		creators: make(map[common.Address]common.Address),
		splitter: make(map[common.Address]common.Address),
	}
}

func (f *stubFactory) IsAuthorizedCreator(_ context.Context, token, caller common.Address) (bool, error) {
	return f.creators[token] == caller, nil
}

func (f *stubFactory) CollectionType(_ context.Context, _ common.Address) (CollectionKind, error) {
	return CollectionMinimal, nil
}

func (f *stubFactory) IsHouseOriginated(_ context.Context, token common.Address) (bool, error) {
	return f.house[token], nil
}

func (f *stubFactory) SplitterOf(_ context.Context, token common.Address) (common.Address, error) {
	return f.splitter[token], nil
}

// stubCollection NFT合集桩：持有人表 + 可选版税配置
type stubCollection struct {
	mu         sync.Mutex
	owners     map[string]common.Address // tokenID -> owner
	approved   map[common.Address]bool   // 对市场的整体授权
	royaltyBps uint64
	royaltyTo  common.Address
}

func newStubCollection() *stubCollection {
	return &stubCollection{
		owners:   make(map[string]common.Address),
		approved: make(map[common.Address]bool),
	}
}

func (c *stubCollection) mint(to common.Address, tokenID *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.owners[tokenID.String()] = to
	c.approved[to] = true
}

func (c *stubCollection) Transfer(_ context.Context, from, to common.Address, tokenID, _ *big.Int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.owners[tokenID.String()] != from {
		return ErrNotAuthorized
	}
	c.owners[tokenID.String()] = to
	return nil
}

func (c *stubCollection) OwnerOrApproved(_ context.Context, caller common.Address, tokenID *big.Int) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.owners[tokenID.String()] == caller && c.approved[caller], nil
}

// RoyaltyInfo 版税桩：royaltyBps为0时视为未实现ERC2981
func (c *stubCollection) RoyaltyInfo(_ context.Context, _, salePrice *big.Int) (common.Address, *big.Int, error) {
	if c.royaltyBps == 0 {
		return common.Address{}, big.NewInt(0), nil
	}
	r := new(big.Int).Quo(
		new(big.Int).Mul(salePrice, new(big.Int).SetUint64(c.royaltyBps)),
		big.NewInt(10_000))
	return c.royaltyTo, r, nil
}

// stubResolver 合集解析桩
type stubResolver struct {
	collections map[common.Address]Collection
}

func (r *stubResolver) Collection(_ context.Context, token common.Address) (Collection, error) {
	c, ok := r.collections[token]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return c, nil
}

// stubSplitter 分账器桩：累计收到的版税
type stubSplitter struct {
	mu       sync.Mutex
	credited map[common.Address]*big.Int
}

func newStubSplitter() *stubSplitter {
	return &stubSplitter{credited: make(map[common.Address]*big.Int)}
}

func (s *stubSplitter) CreditRoyalty(_ context.Context, splitter, _ common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if b, ok := s.credited[splitter]; ok {
		b.Add(b, amount)
	} else {
		s.credited[splitter] = new(big.Int).Set(amount)
	}
	return nil
}

// stubSwapper 兑换桩：按1:1汇率直接记给收款人
type stubSwapper struct {
	ledger *NativeLedger
	target map[common.Address]*big.Int
}

func (s *stubSwapper) Convert(_ context.Context, _, _, recipient common.Address, amountIn, minAmountOut *big.Int) (*big.Int, error) {
	if minAmountOut != nil && amountIn.Cmp(minAmountOut) < 0 {
		return nil, ErrWrongPrice
	}
	if s.target == nil {
		s.target = make(map[common.Address]*big.Int)
	}
	if b, ok := s.target[recipient]; ok {
		b.Add(b, amountIn)
	} else {
		s.target[recipient] = new(big.Int).Set(amountIn)
	}
	return new(big.Int).Set(amountIn), nil
}

// recordingSink 事件收集器
type recordingSink struct {
	mu         sync.Mutex
	makes      []MakeOrderEvent
	bids       []BidEvent
	claims     []ClaimEvent
	cancels    []CancelOrderEvent
	settings   []AuctionSettingsUpdatedEvent
	fees       []FeesUpdatedEvent
	recipients []RecipientUpdatedEvent
	pauses     []PausedEvent
}

func (s *recordingSink) MakeOrder(e MakeOrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.makes = append(s.makes, e)
}

func (s *recordingSink) Bid(e BidEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bids = append(s.bids, e)
}

func (s *recordingSink) Claim(e ClaimEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.claims = append(s.claims, e)
}

func (s *recordingSink) CancelOrder(e CancelOrderEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels = append(s.cancels, e)
}

func (s *recordingSink) SettingsUpdated(e AuctionSettingsUpdatedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = append(s.settings, e)
}

func (s *recordingSink) FeesUpdated(e FeesUpdatedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fees = append(s.fees, e)
}

func (s *recordingSink) RecipientUpdated(e RecipientUpdatedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recipients = append(s.recipients, e)
}

func (s *recordingSink) PauseChanged(e PausedEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pauses = append(s.pauses, e)
}

// -------------------------- 测试环境组装 --------------------------

type testEnv struct {
	engine   *Engine
	clock    *fakeClock
	ledger   *NativeLedger
	factory  *stubFactory
	resolver *stubResolver
	splitter *stubSplitter
	swapper  *stubSwapper
	sink     *recordingSink

	owner    common.Address
	treasury common.Address
	seller   common.Address
	buyer    common.Address
	bidder2  common.Address
	splAddr  common.Address
	token    common.Address
	col      *stubCollection
}

func eth(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(1e18))
}

func newTestEnv() *testEnv {
	env := &testEnv{
		clock:    newFakeClock(),
		factory:  newStubFactory(),
		splitter: newStubSplitter(),
		sink:     &recordingSink{},
		owner:    common.HexToAddress("0x00000000000000000000000000000000000000aa"),
		treasury: common.HexToAddress("0x00000000000000000000000000000000000000ff"),
		seller:   common.HexToAddress("0x0000000000000000000000000000000000000001"),
		buyer:    common.HexToAddress("0x0000000000000000000000000000000000000002"),
		bidder2:  common.HexToAddress("0x0000000000000000000000000000000000000003"),
		splAddr:  common.HexToAddress("0x00000000000000000000000000000000000000bb"),
		token:    common.HexToAddress("0x00000000000000000000000000000000000000cc"),
	}
	env.ledger = NewNativeLedger(env.treasury)
	env.swapper = &stubSwapper{ledger: env.ledger}

	env.col = newStubCollection()
	env.col.royaltyBps = 750
	env.col.royaltyTo = env.splAddr
	env.col.mint(env.seller, big.NewInt(1))

	env.factory.house[env.token] = true
	env.factory.creators[env.token] = env.seller
	env.factory.splitter[env.token] = env.splAddr

	env.resolver = &stubResolver{collections: map[common.Address]Collection{env.token: env.col}}

	env.engine = NewEngine(EngineOptions{
		Owner:       env.owner,
		Treasury:    env.treasury,
		Settings:    DefaultSettings(),
		Fees:        DefaultFeeConfig(),
		Currency:    env.ledger,
		Factory:     env.factory,
		Collections: env.resolver,
		Splitter:    env.splitter,
		Swapper:     env.swapper,
		Events:      env.sink,
		Now:         env.clock.Now,
	})

	env.ledger.Mint(env.buyer, eth(100))
	env.ledger.Mint(env.bidder2, eth(100))
	return env
}

// endIn 距当前时钟d秒后的截止时间戳
func (env *testEnv) endIn(d int64) int64 {
	return env.clock.Now().Unix() + d
}
