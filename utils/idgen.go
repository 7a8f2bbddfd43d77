package utils

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 交易编号前缀，区别于订单ID（keccak哈希）与出价流水
const tradeNoPrefix = "MT"

// GenerateTradeNo 生成交易编号：MT{yyyyMMddHHmmss}{UUID前段}
// 时间段保证编号按成交时间可排序，UUID段保证同一秒内不碰撞
func GenerateTradeNo() string {
	u := strings.ReplaceAll(uuid.New().String(), "-", "")
	return fmt.Sprintf("%s%s%s", tradeNoPrefix, time.Now().Format("20060102150405"), u[:10])
}
