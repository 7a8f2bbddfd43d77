package market

import (
	"context"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// NativeLedger 原生币账本：进程内维护账户余额，实现Currency接口
// 用于原生币结算路径与测试环境；链上ERC-20路径见contract包的适配器
type NativeLedger struct {
	mu       sync.Mutex
	treasury common.Address
	balances map[common.Address]*big.Int
}

// NewNativeLedger 创建原生币账本，treasury为市场金库账户
func NewNativeLedger(treasury common.Address) *NativeLedger {
	return &NativeLedger{
		treasury: treasury,
		balances: make(map[common.Address]*big.Int),
	}
}

// Address 原生币标识为零地址
func (l *NativeLedger) Address() common.Address {
	return common.Address{}
}

// Mint 充值账户余额（入金入口）
func (l *NativeLedger) Mint(addr common.Address, amount *big.Int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.credit(addr, amount)
}

// TransferFrom 从from划转amount到to，余额不足返回ErrNoFunds
func (l *NativeLedger) TransferFrom(_ context.Context, from, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(from, to, amount)
}

// Transfer 从金库划转amount到to
func (l *NativeLedger) Transfer(_ context.Context, to common.Address, amount *big.Int) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.move(l.treasury, to, amount)
}

// BalanceOf 查询账户余额
func (l *NativeLedger) BalanceOf(_ context.Context, addr common.Address) (*big.Int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if b, ok := l.balances[addr]; ok {
		return new(big.Int).Set(b), nil
	}
	return big.NewInt(0), nil
}

func (l *NativeLedger) credit(addr common.Address, amount *big.Int) {
	if b, ok := l.balances[addr]; ok {
		b.Add(b, amount)
		return
	}
	l.balances[addr] = new(big.Int).Set(amount)
}

func (l *NativeLedger) move(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrWrongPrice
	}
	b, ok := l.balances[from]
	if !ok || b.Cmp(amount) < 0 {
		return ErrNoFunds
	}
	b.Sub(b, amount)
	l.credit(to, amount)
	return nil
}
