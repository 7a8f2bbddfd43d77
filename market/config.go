package market

import "math/big"

// 费率基点分母：10000bp = 100%
const feeDenominator = 10_000

// Settings 拍卖时长与出价规则配置（可在线更新，不必重新部署引擎）
type Settings struct {
	MinOrderDuration    int64  // 最短挂单时长（秒）
	MinAuctionIncrement int64  // 反狙击延长窗口（秒）：临近截止的出价会把截止时间顺延该窗口
	MinBidValue         uint64 // 最小加价分母：新出价 ≥ 上次出价 + 上次出价/MinBidValue
	MaxOrderDuration    int64  // 最长挂单时长（秒）
}

// DefaultSettings 默认拍卖配置：300秒起拍、300秒反狙击窗口、5%加价、一年上限
func DefaultSettings() Settings {
	return Settings{
		MinOrderDuration:    300,
		MinAuctionIncrement: 300,
		MinBidValue:         20,
		MaxOrderDuration:    31_536_000,
	}
}

// Valid 校验配置合法性
func (s Settings) Valid() bool {
	return s.MinOrderDuration > 0 &&
		s.MinAuctionIncrement > 0 &&
		s.MinBidValue > 0 &&
		s.MaxOrderDuration >= s.MinOrderDuration
}

// FeeConfig 平台费率配置（基点）
// 首次售出的自营资产走高费率，其余走固定费率；
// 自营资产的版税中RoyaltyShareBps部分回流卖家分账器，剩余留作平台收入
type FeeConfig struct {
	HouseFeeBps     uint64 // 自营资产首售费率，默认1000bp=10%
	FlatFeeBps      uint64 // 固定平台费率，默认250bp=2.5%
	RoyaltyShareBps uint64 // 版税回流卖家分账器的比例，默认8000bp=80%

	// 铸造/销毁费：与引擎共享同一配置对象，由外围路由收取
	MintFee *big.Int
	BurnFee *big.Int
}

// DefaultFeeConfig 默认费率
func DefaultFeeConfig() FeeConfig {
	return FeeConfig{
		HouseFeeBps:     1000,
		FlatFeeBps:      250,
		RoyaltyShareBps: 8000,
		MintFee:         big.NewInt(0),
		BurnFee:         big.NewInt(0),
	}
}

// Valid 费率均不得超过100%
func (f FeeConfig) Valid() bool {
	return f.HouseFeeBps <= feeDenominator &&
		f.FlatFeeBps <= feeDenominator &&
		f.RoyaltyShareBps <= feeDenominator
}
