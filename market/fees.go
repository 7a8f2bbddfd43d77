package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Payout 结算分账结果
// 守恒式：Fee + RoyaltyRetained + RoyaltySplitter + Seller == 结算金额
// 整数除法截断的余量全部落在平台侧，不会凭空制造价值
type Payout struct {
	Fee             *big.Int       // 平台手续费
	RoyaltyRetained *big.Int       // 平台留存的版税份额（自营资产20%）
	RoyaltySplitter *big.Int       // 回流卖家分账器的版税份额（自营资产80%）
	Seller          *big.Int       // 卖家直接所得
	RoyaltyReceiver common.Address // 版税收款方（分账器地址）
}

// ComputePayout 纯函数：按费率配置拆分结算金额
//
// 费率分档：
//   - 自营资产且首次成交：HouseFeeBps（默认10%）
//   - 其余情况：FlatFeeBps（默认2.5%）
//
// 版税仅对自营资产做平台中转：royalty按RoyaltyShareBps回流分账器，
// 剩余留作平台收入；第三方资产的版税走市场外路径，这里只扣固定费
func ComputePayout(amount *big.Int, cfg FeeConfig, house, firstSale bool, royaltyReceiver common.Address, royalty *big.Int) Payout {
	feeBps := new(big.Int).SetUint64(cfg.FlatFeeBps)
	if house && firstSale {
		feeBps = new(big.Int).SetUint64(cfg.HouseFeeBps)
	}
	denom := big.NewInt(feeDenominator)
	fee := new(big.Int).Quo(new(big.Int).Mul(amount, feeBps), denom)

	out := Payout{
		Fee:             fee,
		RoyaltyRetained: big.NewInt(0),
		RoyaltySplitter: big.NewInt(0),
		RoyaltyReceiver: royaltyReceiver,
	}

	if !house || royalty == nil || royalty.Sign() == 0 {
		out.Seller = new(big.Int).Sub(amount, fee)
		return out
	}

	share := new(big.Int).Quo(
		new(big.Int).Mul(royalty, new(big.Int).SetUint64(cfg.RoyaltyShareBps)), denom)
	out.RoyaltySplitter = share
	out.RoyaltyRetained = new(big.Int).Sub(royalty, share)
	out.Seller = new(big.Int).Sub(new(big.Int).Sub(amount, fee), royalty)
	return out
}
