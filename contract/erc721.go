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
	"github.com/ethereum/go-ethereum/ethclient"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

// ERC721ABI ERC721基础ABI（转账、持有与授权查询、EIP-2981版税）
const ERC721ABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "from", "type": "address"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "tokenId", "type": "uint256"}
		],
		"name": "safeTransferFrom",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
		"name": "ownerOf",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [{"internalType": "uint256", "name": "tokenId", "type": "uint256"}],
		"name": "getApproved",
		"outputs": [{"internalType": "address", "name": "", "type": "address"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "owner", "type": "address"},
			{"internalType": "address", "name": "operator", "type": "address"}
		],
		"name": "isApprovedForAll",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "uint256", "name": "tokenId", "type": "uint256"},
			{"internalType": "uint256", "name": "salePrice", "type": "uint256"}
		],
		"name": "royaltyInfo",
		"outputs": [
			{"internalType": "address", "name": "receiver", "type": "address"},
			{"internalType": "uint256", "name": "royaltyAmount", "type": "uint256"}
		],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ERC1155ABI ERC1155基础ABI（按数量划转与余额查询）
const ERC1155ABI = `[
	{
		"inputs": [
			{"internalType": "address", "name": "from", "type": "address"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "id", "type": "uint256"},
			{"internalType": "uint256", "name": "amount", "type": "uint256"},
			{"internalType": "bytes", "name": "data", "type": "bytes"}
		],
		"name": "safeTransferFrom",
		"outputs": [],
		"stateMutability": "nonpayable",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "account", "type": "address"},
			{"internalType": "uint256", "name": "id", "type": "uint256"}
		],
		"name": "balanceOf",
		"outputs": [{"internalType": "uint256", "name": "", "type": "uint256"}],
		"stateMutability": "view",
		"type": "function"
	},
	{
		"inputs": [
			{"internalType": "address", "name": "account", "type": "address"},
			{"internalType": "address", "name": "operator", "type": "address"}
		],
		"name": "isApprovedForAll",
		"outputs": [{"internalType": "bool", "name": "", "type": "bool"}],
		"stateMutability": "view",
		"type": "function"
	}
]`

// ERC721Binding ERC721合集适配器：市场以受托operator身份执行划转
type ERC721Binding struct {
	client       *ethclient.Client
	contract     *bind.BoundContract
	contractAddr common.Address
	auth         *bind.TransactOpts
}

// NewERC721Binding 创建ERC721合集适配器
func NewERC721Binding(client *ethclient.Client, contractAddr common.Address, auth *bind.TransactOpts) (*ERC721Binding, error) {
	abiObj, err := abi.JSON(strings.NewReader(ERC721ABI))
	if err != nil {
		utils.Logger.Error("解析ERC721 ABI失败", zap.Error(err))
		return nil, err
	}

	return &ERC721Binding{
		client:       client,
		contract:     bind.NewBoundContract(contractAddr, abiObj, client, client, client),
		contractAddr: contractAddr,
		auth:         auth,
	}, nil
}

// Transfer 执行ERC721安全转账并等待上链（amount对721无意义，忽略）
func (b *ERC721Binding) Transfer(ctx context.Context, from, to common.Address, tokenID, amount *big.Int) error {
	tx, err := b.contract.Transact(b.auth, "safeTransferFrom", from, to, tokenID)
	if err != nil {
		utils.Logger.Error("执行safeTransferFrom失败",
			zap.String("contract", b.contractAddr.Hex()), zap.Error(err))
		return err
	}

	receipt, err := bind.WaitMined(ctx, b.client, tx)
	if err != nil {
		utils.Logger.Error("等待交易上链失败", zap.String("txHash", tx.Hash().Hex()), zap.Error(err))
		return err
	}
	if receipt.Status == 0 {
		utils.Logger.Error("交易执行失败（状态为0）", zap.String("txHash", tx.Hash().Hex()))
		return market.ErrNotAuthorized
	}
	return nil
}

// OwnerOrApproved 调用方持有该token，或token/全量授权指向调用方
func (b *ERC721Binding) OwnerOrApproved(ctx context.Context, caller common.Address, tokenID *big.Int) (bool, error) {
	opts := &bind.CallOpts{Context: ctx}

	var out []interface{}
	if err := b.contract.Call(opts, &out, "ownerOf", tokenID); err != nil {
		return false, err
	}
	owner := out[0].(common.Address)
	if owner == caller {
		return true, nil
	}

	out = out[:0]
	if err := b.contract.Call(opts, &out, "getApproved", tokenID); err != nil {
		return false, err
	}
	if out[0].(common.Address) == caller {
		return true, nil
	}

	out = out[:0]
	if err := b.contract.Call(opts, &out, "isApprovedForAll", owner, caller); err != nil {
		return false, err
	}
	return out[0].(bool), nil
}

// RoyaltyInfo 查询EIP-2981版税；合集未实现该接口时按零版税处理
func (b *ERC721Binding) RoyaltyInfo(ctx context.Context, tokenID, salePrice *big.Int) (common.Address, *big.Int, error) {
	var out []interface{}
	err := b.contract.Call(&bind.CallOpts{Context: ctx}, &out, "royaltyInfo", tokenID, salePrice)
	if err != nil {
		// 非2981合集：royaltyInfo不存在导致revert，按零版税处理
		return common.Address{}, big.NewInt(0), nil
	}
	return out[0].(common.Address), out[1].(*big.Int), nil
}

// ERC1155Binding ERC1155合集适配器
type ERC1155Binding struct {
	client       *ethclient.Client
	contract     *bind.BoundContract
	contractAddr common.Address
	auth         *bind.TransactOpts
}

// NewERC1155Binding 创建ERC1155合集适配器
func NewERC1155Binding(client *ethclient.Client, contractAddr common.Address, auth *bind.TransactOpts) (*ERC1155Binding, error) {
	abiObj, err := abi.JSON(strings.NewReader(ERC1155ABI))
	if err != nil {
		utils.Logger.Error("解析ERC1155 ABI失败", zap.Error(err))
		return nil, err
	}

	return &ERC1155Binding{
		client:       client,
		contract:     bind.NewBoundContract(contractAddr, abiObj, client, client, client),
		contractAddr: contractAddr,
		auth:         auth,
	}, nil
}

// Transfer 按amount划转ERC1155资产并等待上链
func (b *ERC1155Binding) Transfer(ctx context.Context, from, to common.Address, tokenID, amount *big.Int) error {
	tx, err := b.contract.Transact(b.auth, "safeTransferFrom", from, to, tokenID, amount, []byte{})
	if err != nil {
		utils.Logger.Error("执行safeTransferFrom失败",
			zap.String("contract", b.contractAddr.Hex()), zap.Error(err))
		return err
	}

	receipt, err := bind.WaitMined(ctx, b.client, tx)
	if err != nil {
		utils.Logger.Error("等待交易上链失败", zap.String("txHash", tx.Hash().Hex()), zap.Error(err))
		return err
	}
	if receipt.Status == 0 {
		utils.Logger.Error("交易执行失败（状态为0）", zap.String("txHash", tx.Hash().Hex()))
		return market.ErrNotAuthorized
	}
	return nil
}

// OwnerOrApproved 调用方在该id下持仓非零即视为可挂单
func (b *ERC1155Binding) OwnerOrApproved(ctx context.Context, caller common.Address, tokenID *big.Int) (bool, error) {
	var out []interface{}
	if err := b.contract.Call(&bind.CallOpts{Context: ctx}, &out, "balanceOf", caller, tokenID); err != nil {
		return false, err
	}
	return out[0].(*big.Int).Sign() > 0, nil
}

// Resolver 合集句柄解析器：按合约地址构造适配器并做LRU缓存
type Resolver struct {
	client *ethclient.Client
	auth   *bind.TransactOpts
	multi  bool // true时按ERC1155解析
	cache  *lru.Cache[common.Address, market.Collection]
}

// NewResolver 创建合集解析器，cacheSize为句柄缓存容量
func NewResolver(client *ethclient.Client, auth *bind.TransactOpts, multi bool, cacheSize int) (*Resolver, error) {
	cache, err := lru.New[common.Address, market.Collection](cacheSize)
	if err != nil {
		return nil, err
	}
	return &Resolver{client: client, auth: auth, multi: multi, cache: cache}, nil
}

// Collection 解析合集句柄（命中缓存直接返回）
func (r *Resolver) Collection(ctx context.Context, token common.Address) (market.Collection, error) {
	if col, ok := r.cache.Get(token); ok {
		return col, nil
	}

	var col market.Collection
	var err error
	if r.multi {
		col, err = NewERC1155Binding(r.client, token, r.auth)
	} else {
		col, err = NewERC721Binding(r.client, token, r.auth)
	}
	if err != nil {
		return nil, err
	}

	r.cache.Add(token, col)
	return col, nil
}
