package contract

import (
	"context"
	"math/big"
	"strings"
	"time"

	"nft_market/utils"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// SwapRouterABI 兑换路由ABI（UniswapV2风格的精确输入兑换）
const SwapRouterABI = `[
	{
		"inputs": [
			{"internalType": "uint256", "name": "amountIn", "type": "uint256"},
			{"internalType": "uint256", "name": "amountOutMin", "type": "uint256"},
			{"internalType": "address[]", "name": "path", "type": "address[]"},
			{"internalType": "address", "name": "to", "type": "address"},
			{"internalType": "uint256", "name": "deadline", "type": "uint256"}
		],
		"name": "swapExactTokensForTokens",
		"outputs": [{"internalType": "uint256[]", "name": "amounts", "type": "uint256[]"}],
		"stateMutability": "nonpayable",
		"type": "function"
	}
]`

// 兑换交易的上链截止窗口
const swapDeadline = 5 * time.Minute

// SwapRouter 兑换路由适配器：提现时把托管币种换成目标币种
type SwapRouter struct {
	client     *ethclient.Client
	contract   *bind.BoundContract
	routerAddr common.Address
	auth       *bind.TransactOpts
}

// NewSwapRouter 创建兑换路由适配器
func NewSwapRouter(client *ethclient.Client, routerAddr common.Address, auth *bind.TransactOpts) (*SwapRouter, error) {
	abiObj, err := abi.JSON(strings.NewReader(SwapRouterABI))
	if err != nil {
		utils.Logger.Error("解析SwapRouter ABI失败", zap.Error(err))
		return nil, err
	}

	return &SwapRouter{
		client:     client,
		contract:   bind.NewBoundContract(routerAddr, abiObj, client, client, client),
		routerAddr: routerAddr,
		auth:       auth,
	}, nil
}

// Convert 把amountIn的currency兑换为target并交付recipient
// 低于minAmountOut时路由合约revert，整笔兑换失败
func (s *SwapRouter) Convert(ctx context.Context, currency, target, recipient common.Address, amountIn, minAmountOut *big.Int) (*big.Int, error) {
	path := []common.Address{currency, target}
	deadline := big.NewInt(time.Now().Add(swapDeadline).Unix())

	tx, err := s.contract.Transact(s.auth, "swapExactTokensForTokens",
		amountIn, minAmountOut, path, recipient, deadline)
	if err != nil {
		utils.Logger.Error("执行swap失败",
			zap.String("currency", currency.Hex()), zap.String("target", target.Hex()), zap.Error(err))
		return nil, errors.Wrap(err, "swap transact")
	}

	receipt, err := bind.WaitMined(ctx, s.client, tx)
	if err != nil {
		utils.Logger.Error("等待交易上链失败", zap.String("txHash", tx.Hash().Hex()), zap.Error(err))
		return nil, err
	}
	if receipt.Status == 0 {
		utils.Logger.Error("兑换交易失败（状态为0）", zap.String("txHash", tx.Hash().Hex()))
		return nil, errors.New("swap reverted")
	}

	// 实际成交量从Transfer日志读取；无匹配日志时按保底量计
	out := s.amountOutFromLogs(receipt, target, recipient)
	if out == nil {
		out = new(big.Int).Set(minAmountOut)
	}
	return out, nil
}

// amountOutFromLogs 从收据日志提取目标币到账量（Transfer(from,to,value)）
func (s *SwapRouter) amountOutFromLogs(receipt *types.Receipt, target, recipient common.Address) *big.Int {
	transferTopic := common.HexToHash("0xddf252ad1be2c89b69c2b068fc378daa952ba7f163c4a11628f55a4df523b3ef")
	for i := len(receipt.Logs) - 1; i >= 0; i-- {
		log := receipt.Logs[i]
		if log.Address != target || len(log.Topics) != 3 || log.Topics[0] != transferTopic {
			continue
		}
		if common.BytesToAddress(log.Topics[2].Bytes()) != recipient {
			continue
		}
		return new(big.Int).SetBytes(log.Data)
	}
	return nil
}
