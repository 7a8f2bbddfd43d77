package market

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// OrderType 订单售卖机制
type OrderType uint8

const (
	OrderTypeFixedPrice     OrderType = iota // 一口价
	OrderTypeDutchAuction                    // 荷兰式拍卖（价格线性递减）
	OrderTypeEnglishAuction                  // 英式拍卖（价高者得）
)

// String 订单类型可读名称
func (t OrderType) String() string {
	switch t {
	case OrderTypeFixedPrice:
		return "fixed_price"
	case OrderTypeDutchAuction:
		return "dutch_auction"
	case OrderTypeEnglishAuction:
		return "english_auction"
	default:
		return "unknown"
	}
}

// OrderStatus 订单生命周期状态
// 取消不复用endTime清零作哨兵值，而是落显式状态标签
type OrderStatus uint8

const (
	OrderStatusActive    OrderStatus = iota // 挂单中
	OrderStatusSold                         // 已成交（终态，单调不可逆）
	OrderStatusCancelled                    // 已取消（终态）
)

// String 状态可读名称
func (s OrderStatus) String() string {
	switch s {
	case OrderStatusActive:
		return "active"
	case OrderStatusSold:
		return "sold"
	case OrderStatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

// Order 市场订单：一次挂单对应一条记录
// 同一(token, tokenId, amount)允许多条并存订单，成交不会自动取消兄弟订单
type Order struct {
	ID         common.Hash    // 内容哈希派生的订单ID
	Type       OrderType      // 售卖机制
	Seller     common.Address // 卖家地址
	Token      common.Address // NFT合约地址
	TokenID    *big.Int       // 代币ID
	Amount     *big.Int       // 数量（单资产代币为1，多资产代币≥1）
	StartPrice *big.Int       // 起始价（一口价即成交价）
	EndPrice   *big.Int       // 终止价（仅荷兰拍有意义，endPrice ≤ startPrice）
	StartTime  int64          // 挂单时间（Unix秒）
	EndTime    int64          // 截止时间（Unix秒）

	// 英式拍卖出价状态：lastBidPrice在订单生命周期内单调不减
	LastBidPrice *big.Int
	LastBidder   common.Address

	Status OrderStatus
	Height uint64 // 创建时的序列高度，参与订单ID派生
}

// HasBid 英式拍卖是否已有出价
func (o *Order) HasBid() bool {
	return o.LastBidPrice != nil && o.LastBidPrice.Sign() > 0
}

// Expired 订单是否已过期
func (o *Order) Expired(now time.Time) bool {
	return now.Unix() >= o.EndTime
}

// CurrentPrice 订单在t时刻的挂牌价
// 荷兰拍线性衰减：tick = (start-end)/(endTime-startTime)，下限为endPrice
func (o *Order) CurrentPrice(now time.Time) *big.Int {
	if o.Type != OrderTypeDutchAuction {
		return new(big.Int).Set(o.StartPrice)
	}
	t := now.Unix()
	if t <= o.StartTime {
		return new(big.Int).Set(o.StartPrice)
	}
	if t >= o.EndTime {
		return new(big.Int).Set(o.EndPrice)
	}
	delta := big.NewInt(o.EndTime - o.StartTime)
	diff := new(big.Int).Sub(o.StartPrice, o.EndPrice)
	tick := new(big.Int).Quo(diff, delta)
	dec := new(big.Int).Mul(tick, big.NewInt(t-o.StartTime))
	price := new(big.Int).Sub(o.StartPrice, dec)
	if price.Cmp(o.EndPrice) < 0 {
		return new(big.Int).Set(o.EndPrice)
	}
	return price
}

// DeriveOrderID 派生订单ID = keccak256(height, token, tokenId, [amount], seller)
// 碰撞前提：同一卖家无法在同一高度对同一token/amount重复挂单
// 单资产代币（amount=1的ERC721语义）不掺入amount字段，与多资产代币区分
func DeriveOrderID(height uint64, token common.Address, tokenID, amount *big.Int, seller common.Address, multi bool) common.Hash {
	h := new(big.Int).SetUint64(height)
	var buf []byte
	buf = append(buf, common.LeftPadBytes(h.Bytes(), 32)...)
	buf = append(buf, token.Bytes()...)
	buf = append(buf, common.LeftPadBytes(tokenID.Bytes(), 32)...)
	if multi {
		buf = append(buf, common.LeftPadBytes(amount.Bytes(), 32)...)
	}
	buf = append(buf, seller.Bytes()...)
	return common.BytesToHash(crypto.Keccak256(buf))
}
