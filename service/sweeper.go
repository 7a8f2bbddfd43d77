package service

import (
	"context"
	"fmt"
	"time"

	"nft_market/dao"
	"nft_market/market"
	"nft_market/utils"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Sweeper 到期扫描器：定时扫描活跃拍卖索引，到期且有出价的由平台代为结算
// 无人出价的到期拍卖留在索引外侧自然失效（买卖双方随时可撤单/重挂）
type Sweeper struct {
	svc      *MarketService
	operator common.Address // 平台管理地址，claim的调用方
	interval time.Duration
}

// NewSweeper 创建到期扫描器
func NewSweeper(svc *MarketService, operator common.Address, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Sweeper{svc: svc, operator: operator, interval: interval}
}

// Run 启动扫描循环，ctx取消后退出
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			utils.Logger.Info("到期扫描器退出")
			return
		case <-ticker.C:
			w.sweep(ctx)
		}
	}
}

// sweep 单轮扫描
func (w *Sweeper) sweep(ctx context.Context) {
	expired, err := dao.GetExpiredAuctions(time.Now().Unix())
	if err != nil {
		utils.Logger.Error("扫描到期拍卖失败", zap.Error(err))
		return
	}

	for _, orderID := range expired {
		if err := w.settleExpired(ctx, orderID); err != nil {
			utils.Logger.Warn("到期拍卖结算失败",
				zap.String("order_id", orderID), zap.Error(err))
		}
	}
}

// settleExpired 结算单笔到期拍卖
func (w *Sweeper) settleExpired(ctx context.Context, orderID string) error {
	lockKey := fmt.Sprintf("market_lock_order_%s", orderID)
	mutex, err := utils.GetRedisLock(ctx, lockKey, 10*time.Second)
	if err != nil {
		return errors.Wrap(err, "获取分布式锁失败")
	}
	defer utils.ReleaseRedisLock(mutex)

	id := common.HexToHash(orderID)
	err = w.svc.claimLocked(ctx, id, w.operator)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, market.ErrWrongPrice):
		// 无人出价：移出索引，订单过期由买卖双方自行处理
		if rmErr := dao.RemoveActiveAuction(orderID); rmErr != nil {
			return rmErr
		}
		return nil
	case errors.Is(err, market.ErrNeedMoreTime):
		// 反狙击顺延过：刷新索引中的截止时间
		if info, infoErr := w.svc.Engine().OrderInfo(id); infoErr == nil {
			return dao.UpdateAuctionEndTime(orderID, info.EndTime)
		}
		return nil
	case errors.Is(err, market.ErrSoldToken), errors.Is(err, market.ErrCanceledOrder), errors.Is(err, market.ErrOrderNotFound):
		// 已处理过的订单：清理索引残留
		return dao.RemoveActiveAuction(orderID)
	default:
		return err
	}
}
