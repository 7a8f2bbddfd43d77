package market

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFixedPriceListing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	t.Run("时长低于下限拒绝", func(t *testing.T) {
		_, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(299))
		require.ErrorIs(t, err, ErrNeedMoreTime)
	})

	t.Run("时长高于上限拒绝", func(t *testing.T) {
		_, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(31_536_001))
		require.ErrorIs(t, err, ErrNeedMoreTime)
	})

	t.Run("价格为零拒绝", func(t *testing.T) {
		_, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), big.NewInt(0), env.endIn(300))
		require.ErrorIs(t, err, ErrWrongPrice)
	})

	t.Run("非持有者且无授权拒绝", func(t *testing.T) {
		_, err := env.engine.FixedPrice(ctx, env.buyer, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
		require.ErrorIs(t, err, ErrNotAuthorized)
	})

	t.Run("挂单成功并写入索引", func(t *testing.T) {
		id, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
		require.NoError(t, err)

		info, err := env.engine.OrderInfo(id)
		require.NoError(t, err)
		assert.Equal(t, OrderTypeFixedPrice, info.Type)
		assert.Equal(t, OrderStatusActive, info.Status)
		assert.Zero(t, info.StartPrice.Cmp(eth(1)))

		assert.Equal(t, 1, env.engine.TokenOrderLength(env.token, big.NewInt(1), big.NewInt(1)))
		assert.Equal(t, 1, env.engine.SellerOrderLength(env.seller))
		got, err := env.engine.OrderIDByToken(env.token, big.NewInt(1), big.NewInt(1), 0)
		require.NoError(t, err)
		assert.Equal(t, id, got)
		require.Len(t, env.sink.makes, 1)
		assert.Equal(t, id, env.sink.makes[0].OrderID)
	})
}

func TestDutchAuctionListing(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	t.Run("终止价高于起始价拒绝", func(t *testing.T) {
		_, err := env.engine.DutchAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), eth(2), env.endIn(300))
		require.ErrorIs(t, err, ErrExceedsMaxEP)
	})

	t.Run("价格线性衰减", func(t *testing.T) {
		id, err := env.engine.DutchAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), big.NewInt(0), env.endIn(300))
		require.NoError(t, err)

		p0, err := env.engine.CurrentPrice(id)
		require.NoError(t, err)
		assert.Zero(t, p0.Cmp(eth(1)))

		env.clock.Advance(150 * time.Second)
		pHalf, err := env.engine.CurrentPrice(id)
		require.NoError(t, err)
		// 中点价约为一半（tick整除截断允许微小偏差）
		diff := new(big.Int).Sub(eth(1), new(big.Int).Mul(pHalf, big.NewInt(2)))
		assert.True(t, diff.CmpAbs(eth(1)) < 0, "中点价应接近起始价一半")

		env.clock.Advance(150 * time.Second)
		pEnd, err := env.engine.CurrentPrice(id)
		require.NoError(t, err)
		assert.Zero(t, pEnd.Sign())

		// 过期后仍停在终止价
		env.clock.Advance(100 * time.Second)
		pAfter, err := env.engine.CurrentPrice(id)
		require.NoError(t, err)
		assert.Zero(t, pAfter.Sign())
	})
}

func TestEnglishAuctionBidding(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
	require.NoError(t, err)

	t.Run("卖家自拍拒绝", func(t *testing.T) {
		err := env.engine.Bid(ctx, id, env.seller, eth(2))
		require.ErrorIs(t, err, ErrInvalidBidder)
	})

	t.Run("首次出价须超过起拍价", func(t *testing.T) {
		err := env.engine.Bid(ctx, id, env.buyer, eth(1))
		require.ErrorIs(t, err, ErrWrongPrice)
	})

	t.Run("出价成功记账", func(t *testing.T) {
		require.NoError(t, env.engine.Bid(ctx, id, env.buyer, eth(2)))
		info, err := env.engine.OrderInfo(id)
		require.NoError(t, err)
		assert.Zero(t, info.LastBidPrice.Cmp(eth(2)))
		assert.Equal(t, env.buyer, info.LastBidder)
		// 首位出价者无人顶替，不产生托管
		assert.Zero(t, env.engine.EscrowBalance(env.buyer).Sign())
	})

	t.Run("低于最小加价拒绝且lastBidPrice不回退", func(t *testing.T) {
		// 2 ETH + 2/20 = 2.1 ETH为门槛，1.5 ETH必拒
		err := env.engine.Bid(ctx, id, env.bidder2, new(big.Int).Add(eth(1), big.NewInt(5e17)))
		require.ErrorIs(t, err, ErrWrongPrice)
		info, err := env.engine.OrderInfo(id)
		require.NoError(t, err)
		assert.Zero(t, info.LastBidPrice.Cmp(eth(2)))
	})

	t.Run("更高出价顶替并托管前者资金", func(t *testing.T) {
		require.NoError(t, env.engine.Bid(ctx, id, env.bidder2, eth(3)))
		assert.Zero(t, env.engine.EscrowBalance(env.buyer).Cmp(eth(2)))
		assert.Zero(t, env.engine.TotalOutbid().Cmp(eth(2)))
	})

	t.Run("对一口价订单出价拒绝", func(t *testing.T) {
		fpID, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
		require.NoError(t, err)
		err = env.engine.Bid(ctx, fpID, env.buyer, eth(2))
		require.ErrorIs(t, err, ErrEAOnly)
	})

	t.Run("过期后出价拒绝", func(t *testing.T) {
		env.clock.Advance(700 * time.Second)
		err := env.engine.Bid(ctx, id, env.buyer, eth(10))
		require.ErrorIs(t, err, ErrTimeout)
	})
}

func TestAntiSnipeExtension(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
	require.NoError(t, err)
	before, err := env.engine.OrderInfo(id)
	require.NoError(t, err)

	// 距截止10秒出价，截止时间应顺延一个反狙击窗口
	env.clock.Advance(590 * time.Second)
	require.NoError(t, env.engine.Bid(ctx, id, env.buyer, eth(2)))

	after, err := env.engine.OrderInfo(id)
	require.NoError(t, err)
	assert.Equal(t, before.EndTime+env.engine.Settings().MinAuctionIncrement, after.EndTime)
}

func TestBuyFixedPrice(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
	require.NoError(t, err)

	t.Run("支付金额不符拒绝", func(t *testing.T) {
		err := env.engine.Buy(ctx, id, env.buyer, eth(2))
		require.ErrorIs(t, err, ErrWrongPrice)
	})

	t.Run("按挂牌价成交", func(t *testing.T) {
		require.NoError(t, env.engine.Buy(ctx, id, env.buyer, eth(1)))

		info, err := env.engine.OrderInfo(id)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusSold, info.Status)

		// 资产已交割
		owner, err := env.col.OwnerOrApproved(ctx, env.buyer, big.NewInt(1))
		require.NoError(t, err)
		assert.False(t, owner) // buyer未setApproval，单查持有人
		assert.Equal(t, env.buyer, env.col.owners["1"])

		require.Len(t, env.sink.claims, 1)
		assert.Zero(t, env.sink.claims[0].Settlement.Cmp(eth(1)))
	})

	t.Run("重复购买拒绝", func(t *testing.T) {
		err := env.engine.Buy(ctx, id, env.bidder2, eth(1))
		require.ErrorIs(t, err, ErrSoldToken)
	})

	t.Run("过期订单购买拒绝", func(t *testing.T) {
		env.col.approved[env.buyer] = true
		id2, err := env.engine.FixedPrice(ctx, env.buyer, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
		require.NoError(t, err)
		env.clock.Advance(301 * time.Second)
		err = env.engine.Buy(ctx, id2, env.bidder2, eth(1))
		require.ErrorIs(t, err, ErrTimeout)
	})
}

func TestBuySettlementConservation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
	require.NoError(t, err)
	require.NoError(t, env.engine.Buy(ctx, id, env.buyer, eth(1)))

	price := eth(1)
	// 自营首售：10%手续费；版税750bp，80%回流分账器，20%平台留存
	fee := new(big.Int).Quo(new(big.Int).Mul(price, big.NewInt(1000)), big.NewInt(10_000))
	royalty := new(big.Int).Quo(new(big.Int).Mul(price, big.NewInt(750)), big.NewInt(10_000))
	splitterShare := new(big.Int).Quo(new(big.Int).Mul(royalty, big.NewInt(8000)), big.NewInt(10_000))
	sellerTake := new(big.Int).Sub(new(big.Int).Sub(price, fee), royalty)

	sellerBal, err := env.ledger.BalanceOf(ctx, env.seller)
	require.NoError(t, err)
	assert.Zero(t, sellerBal.Cmp(sellerTake))

	splBal, err := env.ledger.BalanceOf(ctx, env.splAddr)
	require.NoError(t, err)
	assert.Zero(t, splBal.Cmp(splitterShare))
	assert.Zero(t, env.splitter.credited[env.splAddr].Cmp(splitterShare))

	// 金库留存 = 手续费 + 版税平台份额；守恒：各方所得合计等于结算金额
	treasuryBal, err := env.ledger.BalanceOf(ctx, env.treasury)
	require.NoError(t, err)
	sum := new(big.Int).Add(sellerBal, splBal)
	sum.Add(sum, treasuryBal)
	assert.Zero(t, sum.Cmp(price), "结算金额不得有泄漏")

	t.Run("二次售出改走固定费率", func(t *testing.T) {
		// 买家转售同一token：已非首售，2.5%固定费且不中转版税
		env.col.approved[env.buyer] = true
		id2, err := env.engine.FixedPrice(ctx, env.buyer, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
		require.NoError(t, err)

		beforeSeller, err := env.ledger.BalanceOf(ctx, env.buyer)
		require.NoError(t, err)
		require.NoError(t, env.engine.Buy(ctx, id2, env.bidder2, eth(1)))
		afterSeller, err := env.ledger.BalanceOf(ctx, env.buyer)
		require.NoError(t, err)

		flatFee := new(big.Int).Quo(new(big.Int).Mul(price, big.NewInt(250)), big.NewInt(10_000))
		royalty2 := new(big.Int).Quo(new(big.Int).Mul(price, big.NewInt(750)), big.NewInt(10_000))
		want := new(big.Int).Sub(new(big.Int).Sub(price, flatFee), royalty2)
		got := new(big.Int).Sub(afterSeller, beforeSeller)
		assert.Zero(t, got.Cmp(want))
	})
}

func TestBuyDutchAuction(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.DutchAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), big.NewInt(0), env.endIn(300))
	require.NoError(t, err)

	env.clock.Advance(150 * time.Second)
	current, err := env.engine.CurrentPrice(id)
	require.NoError(t, err)

	t.Run("低于当前衰减价拒绝", func(t *testing.T) {
		low := new(big.Int).Sub(current, big.NewInt(1))
		err := env.engine.Buy(ctx, id, env.buyer, low)
		require.ErrorIs(t, err, ErrWrongPrice)
	})

	t.Run("按当前价成交", func(t *testing.T) {
		require.NoError(t, env.engine.Buy(ctx, id, env.buyer, current))
		require.Len(t, env.sink.claims, 1)
		assert.Zero(t, env.sink.claims[0].Settlement.Cmp(current))
	})
}

func TestBuyEnglishAuctionRejected(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
	require.NoError(t, err)
	err = env.engine.Buy(ctx, id, env.buyer, eth(2))
	require.ErrorIs(t, err, ErrNotBuyable)
}

func TestClaim(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
	require.NoError(t, err)
	require.NoError(t, env.engine.Bid(ctx, id, env.buyer, eth(2)))

	t.Run("未到期结算拒绝", func(t *testing.T) {
		err := env.engine.Claim(ctx, id, env.seller)
		require.ErrorIs(t, err, ErrNeedMoreTime)
	})

	t.Run("到期后无关方触发拒绝", func(t *testing.T) {
		env.clock.Advance(601 * time.Second)
		err := env.engine.Claim(ctx, id, env.bidder2)
		require.ErrorIs(t, err, ErrAccessDenied)
	})

	t.Run("中标者触发结算", func(t *testing.T) {
		require.NoError(t, env.engine.Claim(ctx, id, env.buyer))
		info, err := env.engine.OrderInfo(id)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusSold, info.Status)
		assert.Equal(t, env.buyer, env.col.owners["1"])
		// 中标者是赢家不是被顶替者，资金不进托管
		assert.Zero(t, env.engine.EscrowBalance(env.buyer).Sign())
	})

	t.Run("重复结算拒绝", func(t *testing.T) {
		err := env.engine.Claim(ctx, id, env.seller)
		require.ErrorIs(t, err, ErrSoldToken)
	})
}

func TestClaimOnlyEnglishAuction(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
	require.NoError(t, err)
	env.clock.Advance(301 * time.Second)
	err = env.engine.Claim(ctx, id, env.seller)
	require.ErrorIs(t, err, ErrEAOnly)
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	t.Run("非卖家撤单拒绝", func(t *testing.T) {
		id, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
		require.NoError(t, err)
		err = env.engine.CancelOrder(ctx, id, env.buyer)
		require.ErrorIs(t, err, ErrAccessDenied)

		// 卖家撤单成功，endTime清零
		require.NoError(t, env.engine.CancelOrder(ctx, id, env.seller))
		info, err := env.engine.OrderInfo(id)
		require.NoError(t, err)
		assert.Equal(t, OrderStatusCancelled, info.Status)
		assert.Zero(t, info.EndTime)
		require.Len(t, env.sink.cancels, 1)
	})

	t.Run("已成交订单撤单拒绝", func(t *testing.T) {
		id, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
		require.NoError(t, err)
		require.NoError(t, env.engine.Buy(ctx, id, env.buyer, eth(1)))
		err = env.engine.CancelOrder(ctx, id, env.seller)
		require.ErrorIs(t, err, ErrSoldToken)
	})

	t.Run("已有出价的英式拍卖撤单拒绝", func(t *testing.T) {
		env := newTestEnv()
		id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
		require.NoError(t, err)
		require.NoError(t, env.engine.Bid(ctx, id, env.buyer, eth(2)))
		err = env.engine.CancelOrder(ctx, id, env.seller)
		require.ErrorIs(t, err, ErrBidExists)
	})

	t.Run("无出价英式拍卖可撤", func(t *testing.T) {
		env := newTestEnv()
		id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
		require.NoError(t, err)
		require.NoError(t, env.engine.CancelOrder(ctx, id, env.seller))
	})

	t.Run("已取消订单购买拒绝", func(t *testing.T) {
		env := newTestEnv()
		id, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
		require.NoError(t, err)
		require.NoError(t, env.engine.CancelOrder(ctx, id, env.seller))
		err = env.engine.Buy(ctx, id, env.buyer, eth(1))
		require.ErrorIs(t, err, ErrCanceledOrder)
	})
}

func TestDelOrder(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
	require.NoError(t, err)
	require.NoError(t, env.engine.Bid(ctx, id, env.buyer, eth(2)))

	t.Run("非所有者拒绝", func(t *testing.T) {
		err := env.engine.DelOrder(ctx, id, env.seller)
		require.ErrorIs(t, err, ErrUnauthorized)
	})

	t.Run("暂停期间仍可强制移除并退托管", func(t *testing.T) {
		require.NoError(t, env.engine.Pause(env.owner))
		require.NoError(t, env.engine.DelOrder(ctx, id, env.owner))

		_, err := env.engine.OrderInfo(id)
		require.ErrorIs(t, err, ErrOrderNotFound)
		// 在途出价退入托管，等竞价者自提
		assert.Zero(t, env.engine.EscrowBalance(env.buyer).Cmp(eth(2)))
	})
}

func TestPause(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
	require.NoError(t, err)

	t.Run("非所有者暂停拒绝", func(t *testing.T) {
		require.ErrorIs(t, env.engine.Pause(env.seller), ErrUnauthorized)
	})

	t.Run("暂停后公共操作全部拒绝", func(t *testing.T) {
		require.NoError(t, env.engine.Pause(env.owner))

		_, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
		require.ErrorIs(t, err, ErrPaused)
		require.ErrorIs(t, env.engine.Buy(ctx, id, env.buyer, eth(1)), ErrPaused)
		require.ErrorIs(t, env.engine.CancelOrder(ctx, id, env.seller), ErrPaused)

		require.ErrorIs(t, env.engine.Pause(env.owner), ErrPaused)
	})

	t.Run("恢复后可正常交易", func(t *testing.T) {
		require.NoError(t, env.engine.Unpause(env.owner))
		require.ErrorIs(t, env.engine.Unpause(env.owner), ErrUnpaused)
		require.NoError(t, env.engine.Buy(ctx, id, env.buyer, eth(1)))
	})
}

func TestAdminSettings(t *testing.T) {
	env := newTestEnv()

	t.Run("非所有者更新配置拒绝", func(t *testing.T) {
		require.ErrorIs(t, env.engine.UpdateSettings(env.seller, DefaultSettings()), ErrUnauthorized)
		require.ErrorIs(t, env.engine.SetFees(env.seller, 1500, 500), ErrUnauthorized)
	})

	t.Run("更新拍卖配置生效", func(t *testing.T) {
		s := Settings{MinOrderDuration: 300, MinAuctionIncrement: 10, MinBidValue: 20, MaxOrderDuration: 31_536_000}
		require.NoError(t, env.engine.UpdateSettings(env.owner, s))
		assert.Equal(t, s, env.engine.Settings())
	})

	t.Run("费率超过100%拒绝", func(t *testing.T) {
		require.ErrorIs(t, env.engine.SetFees(env.owner, 10_001, 250), ErrWrongPrice)
	})

	t.Run("更新费率生效", func(t *testing.T) {
		require.NoError(t, env.engine.SetFees(env.owner, 1500, 500))
		f := env.engine.Fees()
		assert.Equal(t, uint64(1500), f.HouseFeeBps)
		assert.Equal(t, uint64(500), f.FlatFeeBps)
	})
}

func TestPlatformWithdraw(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()
	recipient := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	require.NoError(t, env.engine.SetRecipient(env.owner, recipient))

	// 英式拍卖两次出价：前一笔2 ETH进托管，后一笔3 ETH为在途顶价
	id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
	require.NoError(t, err)
	require.NoError(t, env.engine.Bid(ctx, id, env.buyer, eth(2)))
	require.NoError(t, env.engine.Bid(ctx, id, env.bidder2, eth(3)))

	t.Run("托管与在途资金全额保留时拒绝提现", func(t *testing.T) {
		// 金库5 ETH = 托管2 ETH + 在途顶价3 ETH，无一分属于平台
		_, err := env.engine.Withdraw(ctx, env.owner)
		require.ErrorIs(t, err, ErrNoFunds)
	})

	t.Run("结算后只可提取手续费与版税留存", func(t *testing.T) {
		env.clock.Advance(601 * time.Second)
		require.NoError(t, env.engine.Claim(ctx, id, env.seller))

		price := eth(3)
		fee := new(big.Int).Quo(new(big.Int).Mul(price, big.NewInt(1000)), big.NewInt(10_000))
		royalty := new(big.Int).Quo(new(big.Int).Mul(price, big.NewInt(750)), big.NewInt(10_000))
		splitterShare := new(big.Int).Quo(new(big.Int).Mul(royalty, big.NewInt(8000)), big.NewInt(10_000))
		retained := new(big.Int).Sub(royalty, splitterShare)
		platformTake := new(big.Int).Add(fee, retained)

		got, err := env.engine.Withdraw(ctx, env.owner)
		require.NoError(t, err)
		assert.Zero(t, got.Cmp(platformTake))

		recBal, err := env.ledger.BalanceOf(ctx, recipient)
		require.NoError(t, err)
		assert.Zero(t, recBal.Cmp(platformTake))
	})

	t.Run("无可提资金拒绝", func(t *testing.T) {
		_, err := env.engine.Withdraw(ctx, env.owner)
		require.ErrorIs(t, err, ErrNoFunds)
	})

	t.Run("竞价者仍可足额提取托管", func(t *testing.T) {
		got, err := env.engine.WithdrawOutbid(ctx, env.buyer, nil)
		require.NoError(t, err)
		assert.Zero(t, got.Cmp(eth(2)))
		assert.Zero(t, env.engine.TotalOutbid().Sign())
	})
}

func TestWithdrawOutbidSwap(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
	require.NoError(t, err)
	require.NoError(t, env.engine.Bid(ctx, id, env.buyer, eth(2)))
	require.NoError(t, env.engine.Bid(ctx, id, env.bidder2, eth(3)))

	t.Run("无托管余额提取拒绝", func(t *testing.T) {
		_, err := env.engine.WithdrawOutbid(ctx, env.bidder2, nil)
		require.ErrorIs(t, err, ErrNoFunds)
	})

	t.Run("兑换滑点不足整体失败", func(t *testing.T) {
		target := common.HexToAddress("0x00000000000000000000000000000000000000ee")
		_, err := env.engine.WithdrawOutbid(ctx, env.buyer, &SwapParams{
			Target:       target,
			MinAmountOut: eth(10),
		})
		require.ErrorIs(t, err, ErrWrongPrice)
		// 失败不动账
		assert.Zero(t, env.engine.EscrowBalance(env.buyer).Cmp(eth(2)))
	})

	t.Run("兑换提取成功清零托管", func(t *testing.T) {
		target := common.HexToAddress("0x00000000000000000000000000000000000000ee")
		out, err := env.engine.WithdrawOutbid(ctx, env.buyer, &SwapParams{
			Target:       target,
			MinAmountOut: eth(1),
		})
		require.NoError(t, err)
		assert.Zero(t, out.Cmp(eth(2)))
		assert.Zero(t, env.engine.EscrowBalance(env.buyer).Sign())
		assert.Zero(t, env.swapper.target[env.buyer].Cmp(eth(2)))
	})
}

func TestEscrowConservation(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
	require.NoError(t, err)

	// 轮番抬价：每次顶替都把前一位的资金记入托管
	bidders := []common.Address{env.buyer, env.bidder2}
	values := []*big.Int{eth(2), eth(3), eth(4), eth(5)}
	for i, v := range values {
		require.NoError(t, env.engine.Bid(ctx, id, bidders[i%2], v))
	}

	// sum(各竞价者托管) == totalOutbid
	sum := new(big.Int).Add(env.engine.EscrowBalance(env.buyer), env.engine.EscrowBalance(env.bidder2))
	assert.Zero(t, sum.Cmp(env.engine.TotalOutbid()))
	// 2+3+4进托管，5在途
	assert.Zero(t, sum.Cmp(eth(9)))

	// 提取后守恒保持
	_, err = env.engine.WithdrawOutbid(ctx, env.buyer, nil)
	require.NoError(t, err)
	sum = new(big.Int).Add(env.engine.EscrowBalance(env.buyer), env.engine.EscrowBalance(env.bidder2))
	assert.Zero(t, sum.Cmp(env.engine.TotalOutbid()))
}

func TestLastBidPriceMonotonic(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
	require.NoError(t, err)

	prev := big.NewInt(0)
	bidders := []common.Address{env.buyer, env.bidder2}
	for i, v := range []*big.Int{eth(2), eth(3), eth(5)} {
		require.NoError(t, env.engine.Bid(ctx, id, bidders[i%2], v))
		info, err := env.engine.OrderInfo(id)
		require.NoError(t, err)
		assert.True(t, info.LastBidPrice.Cmp(prev) > 0, "lastBidPrice必须严格递增")
		prev = info.LastBidPrice
	}
}

func TestConcurrentOrdersSameAsset(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// 同一资产允许多条并存订单，成交一条不影响兄弟订单状态
	id1, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
	require.NoError(t, err)
	id2, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(2), env.endIn(400))
	require.NoError(t, err)
	require.NotEqual(t, id1, id2)
	assert.Equal(t, 2, env.engine.TokenOrderLength(env.token, big.NewInt(1), big.NewInt(1)))

	require.NoError(t, env.engine.Buy(ctx, id1, env.buyer, eth(1)))
	info2, err := env.engine.OrderInfo(id2)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusActive, info2.Status)
}

func TestBuyFailedSettlementRefund(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	// 同一资产两条一口价订单，先买走第一条，卖家不再持有token
	id1, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(300))
	require.NoError(t, err)
	id2, err := env.engine.FixedPrice(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(2), env.endIn(400))
	require.NoError(t, err)
	require.NoError(t, env.engine.Buy(ctx, id1, env.buyer, eth(1)))

	before, err := env.ledger.BalanceOf(ctx, env.bidder2)
	require.NoError(t, err)
	treasuryBefore, err := env.ledger.BalanceOf(ctx, env.treasury)
	require.NoError(t, err)

	// 兄弟订单的购买在资产交割处失败，买家付款须整笔退回
	err = env.engine.Buy(ctx, id2, env.bidder2, eth(2))
	require.ErrorIs(t, err, ErrNotAuthorized)

	after, err := env.ledger.BalanceOf(ctx, env.bidder2)
	require.NoError(t, err)
	assert.Zero(t, after.Cmp(before), "失败的购买不得扣留买家付款")
	treasuryAfter, err := env.ledger.BalanceOf(ctx, env.treasury)
	require.NoError(t, err)
	assert.Zero(t, treasuryAfter.Cmp(treasuryBefore), "失败的购买不得在金库留下滞留资金")

	info, err := env.engine.OrderInfo(id2)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusActive, info.Status)
	assert.Equal(t, env.buyer, env.col.owners["1"])
}

func TestClaimTreasuryShortfall(t *testing.T) {
	env := newTestEnv()
	ctx := context.Background()

	id, err := env.engine.EnglishAuction(ctx, env.seller, env.token, big.NewInt(1), big.NewInt(1), eth(1), env.endIn(600))
	require.NoError(t, err)
	require.NoError(t, env.engine.Bid(ctx, id, env.buyer, eth(3)))
	env.clock.Advance(601 * time.Second)

	// 金库资金被引擎外挪走，模拟运维事故
	drain := common.HexToAddress("0x00000000000000000000000000000000000000ee")
	require.NoError(t, env.ledger.TransferFrom(ctx, env.treasury, drain, eth(3)))

	// 结算须整单失败：资产不交割、订单不落终态
	err = env.engine.Claim(ctx, id, env.buyer)
	require.ErrorIs(t, err, ErrNoFunds)
	assert.Equal(t, env.seller, env.col.owners["1"], "卖家款未付时资产不得交割")
	info, err := env.engine.OrderInfo(id)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusActive, info.Status)

	// 资金回笼后可重试结算
	env.ledger.Mint(env.treasury, eth(3))
	require.NoError(t, env.engine.Claim(ctx, id, env.buyer))
	assert.Equal(t, env.buyer, env.col.owners["1"])
}

func TestAdminEvents(t *testing.T) {
	env := newTestEnv()

	s := Settings{MinOrderDuration: 600, MinAuctionIncrement: 300, MinBidValue: 20, MaxOrderDuration: 31_536_000}
	require.NoError(t, env.engine.UpdateSettings(env.owner, s))
	require.Len(t, env.sink.settings, 1)
	assert.Equal(t, int64(600), env.sink.settings[0].MinOrderDuration)

	require.NoError(t, env.engine.SetFees(env.owner, 1500, 500))
	require.Len(t, env.sink.fees, 1)
	assert.Equal(t, uint64(1500), env.sink.fees[0].HouseFeeBps)

	recipient := common.HexToAddress("0x00000000000000000000000000000000000000dd")
	require.NoError(t, env.engine.SetRecipient(env.owner, recipient))
	require.Len(t, env.sink.recipients, 1)
	assert.Equal(t, recipient, env.sink.recipients[0].Recipient)

	require.NoError(t, env.engine.Pause(env.owner))
	require.NoError(t, env.engine.Unpause(env.owner))
	require.Len(t, env.sink.pauses, 2)
	assert.True(t, env.sink.pauses[0].Paused)
	assert.False(t, env.sink.pauses[1].Paused)
}
