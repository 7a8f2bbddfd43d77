package market

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// EscrowLedger 竞价托管账本：记账不转账，避免push式退款的失败与重入风险
// 被更高出价顶替的资金记入(竞价者, 币种)余额，由竞价者另行发起提取；
// 每币种维护totalOutbid聚合计数，防止平台把欠付竞价者的资金当手续费提走
type EscrowLedger struct {
	balances    map[common.Address]map[common.Address]*big.Int // bidder -> currency -> balance
	totalOutbid map[common.Address]*big.Int                    // currency -> 未兑付托管总额
}

// NewEscrowLedger 创建空托管账本
func NewEscrowLedger() *EscrowLedger {
	return &EscrowLedger{
		balances:    make(map[common.Address]map[common.Address]*big.Int),
		totalOutbid: make(map[common.Address]*big.Int),
	}
}

// Deposit 顶替入账：累加竞价者余额与totalOutbid（仅引擎内部顶替逻辑调用）
func (e *EscrowLedger) Deposit(bidder, currency common.Address, amount *big.Int) {
	if amount == nil || amount.Sign() <= 0 {
		return
	}
	byCurrency, ok := e.balances[bidder]
	if !ok {
		byCurrency = make(map[common.Address]*big.Int)
		e.balances[bidder] = byCurrency
	}
	if b, ok := byCurrency[currency]; ok {
		b.Add(b, amount)
	} else {
		byCurrency[currency] = new(big.Int).Set(amount)
	}
	if t, ok := e.totalOutbid[currency]; ok {
		t.Add(t, amount)
	} else {
		e.totalOutbid[currency] = new(big.Int).Set(amount)
	}
}

// Balance 查询竞价者在某币种下的托管余额
func (e *EscrowLedger) Balance(bidder, currency common.Address) *big.Int {
	if byCurrency, ok := e.balances[bidder]; ok {
		if b, ok := byCurrency[currency]; ok {
			return new(big.Int).Set(b)
		}
	}
	return big.NewInt(0)
}

// Drain 全额取出并清零余额，同步扣减totalOutbid；余额为零返回ErrNoFunds
func (e *EscrowLedger) Drain(bidder, currency common.Address) (*big.Int, error) {
	byCurrency, ok := e.balances[bidder]
	if !ok {
		return nil, ErrNoFunds
	}
	b, ok := byCurrency[currency]
	if !ok || b.Sign() == 0 {
		return nil, ErrNoFunds
	}
	amount := new(big.Int).Set(b)
	b.SetInt64(0)
	e.totalOutbid[currency].Sub(e.totalOutbid[currency], amount)
	return amount, nil
}

// TotalOutbid 某币种的未兑付托管总额
func (e *EscrowLedger) TotalOutbid(currency common.Address) *big.Int {
	if t, ok := e.totalOutbid[currency]; ok {
		return new(big.Int).Set(t)
	}
	return big.NewInt(0)
}
