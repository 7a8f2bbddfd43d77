package contract

import (
	"context"
	"math/big"
	"strings"

	"nft_market/market"
	"nft_market/utils"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// ERC20ABI ERC20基础ABI（划转与余额查询）
const ERC20ABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "from", "type": "address"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "transferFrom",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"}
		],
		"name": "transfer",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "address", "name": "account", "type": "address"}],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ERC20Currency ERC20结算币适配器：金库账户即签名账户
type ERC20Currency struct {
	client       *ethclient.Client
	contract     *bind.BoundContract
	contractAddr common.Address
	auth         *bind.TransactOpts
}

// NewERC20Currency 创建ERC20结算币适配器
func NewERC20Currency(client *ethclient.Client, contractAddr common.Address, auth *bind.TransactOpts) (*ERC20Currency, error) {
	abiObj, err := abi.JSON(strings.NewReader(ERC20ABI))
	if err != nil {
		utils.Logger.Error("解析ERC20 ABI失败", zap.Error(err))
		return nil, err
	}

	return &ERC20Currency{
		client:       client,
		contract:     bind.NewBoundContract(contractAddr, abiObj, client, client, client),
		contractAddr: contractAddr,
		auth:         auth,
	}, nil
}

// Address 币种标识（代币合约地址）
func (c *ERC20Currency) Address() common.Address {
	return c.contractAddr
}

// TransferFrom 从from划转amount到to（需from事先approve给金库账户）
func (c *ERC20Currency) TransferFrom(ctx context.Context, from, to common.Address, amount *big.Int) error {
	tx, err := c.contract.Transact(c.auth, "transferFrom", from, to, amount)
	if err != nil {
		utils.Logger.Error("执行transferFrom失败",
			zap.String("from", from.Hex()), zap.String("to", to.Hex()), zap.Error(err))
		return market.ErrInsufficientERC20
	}
	return c.waitMined(ctx, tx)
}

// Transfer 从金库划转amount到to
func (c *ERC20Currency) Transfer(ctx context.Context, to common.Address, amount *big.Int) error {
	tx, err := c.contract.Transact(c.auth, "transfer", to, amount)
	if err != nil {
		utils.Logger.Error("执行transfer失败", zap.String("to", to.Hex()), zap.Error(err))
		return err
	}
	return c.waitMined(ctx, tx)
}

// BalanceOf 查询余额
func (c *ERC20Currency) BalanceOf(ctx context.Context, addr common.Address) (*big.Int, error) {
	var out []interface{}
	if err := c.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", addr); err != nil {
		return nil, err
	}
	return out[0].(*big.Int), nil
}

func (c *ERC20Currency) waitMined(ctx context.Context, tx *types.Transaction) error {
	receipt, err := bind.WaitMined(ctx, c.client, tx)
	if err != nil {
		utils.Logger.Error("等待交易上链失败", zap.String("txHash", tx.Hash().Hex()), zap.Error(err))
		return err
	}
	if receipt.Status == 0 {
		utils.Logger.Error("交易执行失败（状态为0）", zap.String("txHash", tx.Hash().Hex()))
		return market.ErrInsufficientERC20
	}
	return nil
}
