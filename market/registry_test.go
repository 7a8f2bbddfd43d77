package market

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func makeOrderFixture(height uint64, seller common.Address, tokenID int64) *Order {
	token := common.HexToAddress("0xcc")
	id := DeriveOrderID(height, token, big.NewInt(tokenID), big.NewInt(1), seller, false)
	return &Order{
		ID:           id,
		Type:         OrderTypeFixedPrice,
		Seller:       seller,
		Token:        token,
		TokenID:      big.NewInt(tokenID),
		Amount:       big.NewInt(1),
		StartPrice:   big.NewInt(100),
		EndPrice:     big.NewInt(0),
		LastBidPrice: big.NewInt(0),
		Status:       OrderStatusActive,
		Height:       height,
	}
}

func TestRegistryIndexes(t *testing.T) {
	r := NewRegistry()
	alice := common.HexToAddress("0x01")
	bob := common.HexToAddress("0x02")

	o1 := makeOrderFixture(1, alice, 1)
	o2 := makeOrderFixture(2, alice, 1)
	o3 := makeOrderFixture(3, bob, 2)
	require.NoError(t, r.Insert(o1))
	require.NoError(t, r.Insert(o2))
	require.NoError(t, r.Insert(o3))

	t.Run("主索引查询", func(t *testing.T) {
		got, err := r.Get(o1.ID)
		require.NoError(t, err)
		assert.Same(t, o1, got)
		_, err = r.Get(common.HexToHash("0xdead"))
		require.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("资产索引只追加且保序", func(t *testing.T) {
		assert.Equal(t, 2, r.TokenOrderLength(o1.Token, big.NewInt(1), big.NewInt(1)))
		first, err := r.OrderIDByToken(o1.Token, big.NewInt(1), big.NewInt(1), 0)
		require.NoError(t, err)
		second, err := r.OrderIDByToken(o1.Token, big.NewInt(1), big.NewInt(1), 1)
		require.NoError(t, err)
		assert.Equal(t, o1.ID, first)
		assert.Equal(t, o2.ID, second)
		_, err = r.OrderIDByToken(o1.Token, big.NewInt(1), big.NewInt(1), 2)
		require.ErrorIs(t, err, ErrOrderNotFound)
	})

	t.Run("卖家索引", func(t *testing.T) {
		assert.Equal(t, 2, r.SellerOrderLength(alice))
		assert.Equal(t, 1, r.SellerOrderLength(bob))
		got, err := r.OrderIDBySeller(bob, 0)
		require.NoError(t, err)
		assert.Equal(t, o3.ID, got)
	})

	t.Run("重复ID写入拒绝", func(t *testing.T) {
		dup := makeOrderFixture(1, alice, 1)
		require.Error(t, r.Insert(dup))
	})

	t.Run("终态订单保留在索引序列中", func(t *testing.T) {
		o1.Status = OrderStatusSold
		assert.Equal(t, 2, r.TokenOrderLength(o1.Token, big.NewInt(1), big.NewInt(1)))
		got, err := r.Get(o1.ID)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusSold, got.Status)
	})

	t.Run("物理删除后索引留痕但解引用失败", func(t *testing.T) {
		r.Remove(o1.ID)
		assert.Equal(t, 2, r.TokenOrderLength(o1.Token, big.NewInt(1), big.NewInt(1)))
		_, err := r.Get(o1.ID)
		require.ErrorIs(t, err, ErrOrderNotFound)
	})
}

func TestDeriveOrderID(t *testing.T) {
	token := common.HexToAddress("0xcc")
	seller := common.HexToAddress("0x01")

	t.Run("同参数同ID不同高度不同ID", func(t *testing.T) {
		a := DeriveOrderID(1, token, big.NewInt(1), big.NewInt(1), seller, false)
		b := DeriveOrderID(1, token, big.NewInt(1), big.NewInt(1), seller, false)
		c := DeriveOrderID(2, token, big.NewInt(1), big.NewInt(1), seller, false)
		assert.Equal(t, a, b)
		assert.NotEqual(t, a, c)
	})

	t.Run("多资产模式掺入amount", func(t *testing.T) {
		a := DeriveOrderID(1, token, big.NewInt(1), big.NewInt(5), seller, true)
		b := DeriveOrderID(1, token, big.NewInt(1), big.NewInt(6), seller, true)
		single := DeriveOrderID(1, token, big.NewInt(1), big.NewInt(5), seller, false)
		assert.NotEqual(t, a, b)
		assert.NotEqual(t, a, single)
	})
}
