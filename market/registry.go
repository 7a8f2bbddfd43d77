package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// tokenKey 二级索引键：(token, tokenId, amount)
// big.Int不可比较，用十进制串参与map键
type tokenKey struct {
	token   common.Address
	tokenID string
	amount  string
}

func newTokenKey(token common.Address, tokenID, amount *big.Int) tokenKey {
	return tokenKey{token: token, tokenID: tokenID.String(), amount: amount.String()}
}

// Registry 订单注册表：orderId主索引 + byToken/bySeller两个只追加二级索引
// 索引序列从不压缩，已取消/已成交订单保留在序列中，解引用时读到终态
type Registry struct {
	orders   map[common.Hash]*Order
	byToken  map[tokenKey][]common.Hash
	bySeller map[common.Address][]common.Hash
}

// NewRegistry 创建空注册表
func NewRegistry() *Registry {
	return &Registry{
		orders:   make(map[common.Hash]*Order),
		byToken:  make(map[tokenKey][]common.Hash),
		bySeller: make(map[common.Address][]common.Hash),
	}
}

// Insert 写入新订单并追加两个二级索引
func (r *Registry) Insert(o *Order) error {
	if _, ok := r.orders[o.ID]; ok {
		// 同高度同卖家同资产重复挂单才会撞ID
		return ErrWrongPrice
	}
	r.orders[o.ID] = o
	tk := newTokenKey(o.Token, o.TokenID, o.Amount)
	r.byToken[tk] = append(r.byToken[tk], o.ID)
	r.bySeller[o.Seller] = append(r.bySeller[o.Seller], o.ID)
	return nil
}

// Get 按订单ID查询
func (r *Registry) Get(id common.Hash) (*Order, error) {
	o, ok := r.orders[id]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return o, nil
}

// Remove 物理删除订单（仅delOrder紧急路径使用）；索引序列保留审计痕迹
func (r *Registry) Remove(id common.Hash) {
	delete(r.orders, id)
}

// OrderIDByToken 按(token, tokenId, amount)取第index条订单ID
func (r *Registry) OrderIDByToken(token common.Address, tokenID, amount *big.Int, index int) (common.Hash, error) {
	ids := r.byToken[newTokenKey(token, tokenID, amount)]
	if index < 0 || index >= len(ids) {
		return common.Hash{}, ErrOrderNotFound
	}
	return ids[index], nil
}

// TokenOrderLength 资产维度订单序列长度
func (r *Registry) TokenOrderLength(token common.Address, tokenID, amount *big.Int) int {
	return len(r.byToken[newTokenKey(token, tokenID, amount)])
}

// OrderIDBySeller 按卖家取第index条订单ID
func (r *Registry) OrderIDBySeller(seller common.Address, index int) (common.Hash, error) {
	ids := r.bySeller[seller]
	if index < 0 || index >= len(ids) {
		return common.Hash{}, ErrOrderNotFound
	}
	return ids[index], nil
}

// SellerOrderLength 卖家维度订单序列长度
func (r *Registry) SellerOrderLength(seller common.Address) int {
	return len(r.bySeller[seller])
}
