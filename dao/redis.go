package dao

import (
	"context"
	"fmt"
	"nft_market/utils"
	"strconv"

	"github.com/go-redis/redis/v8"
)

var ctx = context.Background()

// rdb 取全局Redis客户端（InitRedis之后才可用）
func rdb() *redis.Client {
	return utils.RedisClient
}

// 活跃拍卖索引Key（ZSet，score为订单结束时间）
const activeAuctionKey = "market:auctions:active"

// GetOrderCacheKey 订单缓存Key
func GetOrderCacheKey(orderID string) string {
	return fmt.Sprintf("market:order:%s", orderID)
}

// AddActiveAuction 将拍卖订单加入活跃索引（score=endTime，过期扫描用）
func AddActiveAuction(orderID string, endTime int64) error {
	return rdb().ZAdd(ctx, activeAuctionKey, &redis.Z{
		Score:  float64(endTime),
		Member: orderID,
	}).Err()
}

// UpdateAuctionEndTime 反狙击延长后刷新结束时间
func UpdateAuctionEndTime(orderID string, endTime int64) error {
	return AddActiveAuction(orderID, endTime)
}

// RemoveActiveAuction 订单成交/取消/领取后移出活跃索引
func RemoveActiveAuction(orderID string) error {
	return rdb().ZRem(ctx, activeAuctionKey, orderID).Err()
}

// GetExpiredAuctions 获取已到期的拍卖订单ID（score <= now）
func GetExpiredAuctions(now int64) ([]string, error) {
	return rdb().ZRangeByScore(ctx, activeAuctionKey, &redis.ZRangeBy{
		Min: "0",
		Max: strconv.FormatInt(now, 10),
	}).Result()
}

// CacheTopBid 缓存订单当前最高出价（前端轮询热点）
func CacheTopBid(orderID, bidder, price string) error {
	return rdb().HSet(ctx, GetOrderCacheKey(orderID),
		"last_bidder", bidder,
		"last_bid_price", price,
	).Err()
}

// GetTopBid 读取订单最高出价缓存
func GetTopBid(orderID string) (map[string]string, error) {
	return rdb().HGetAll(ctx, GetOrderCacheKey(orderID)).Result()
}

// DelOrderCache 清理订单缓存
func DelOrderCache(orderID string) error {
	return rdb().Del(ctx, GetOrderCacheKey(orderID)).Err()
}
