package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// 订单类型（与引擎侧保持一致）
const (
	OrderTypeFixedPrice     = 0 // 一口价
	OrderTypeDutchAuction   = 1 // 荷兰式拍卖
	OrderTypeEnglishAuction = 2 // 英式拍卖
)

// 订单状态
const (
	OrderStatusActive    = 0 // 挂单中
	OrderStatusSold      = 1 // 已成交
	OrderStatusCancelled = 2 // 已取消
)

// OrderRecord 市场订单表（引擎状态的持久化镜像）
type OrderRecord struct {
	ID           uint64          `gorm:"primaryKey;comment:自增ID"`
	OrderID      string          `gorm:"uniqueIndex;size:66;comment:订单ID（keccak256哈希）"`
	Height       uint64          `gorm:"comment:挂单序号"`
	ContractAddr string          `gorm:"index:idx_asset;size:42;comment:NFT合约地址"`
	TokenID      string          `gorm:"index:idx_asset;size:78;comment:链上TokenID"`
	Amount       string          `gorm:"size:78;comment:资产数量（ERC721恒为1）"`
	SellerAddr   string          `gorm:"index;size:42;comment:卖家钱包地址"`
	BuyerAddr    string          `gorm:"size:42;comment:买家钱包地址（未成交则为空）"`
	OrderType    int             `gorm:"comment:0-一口价 1-荷兰式拍卖 2-英式拍卖"`
	StartPrice   decimal.Decimal `gorm:"type:decimal(65,0);comment:起始价（wei）"`
	EndPrice     decimal.Decimal `gorm:"type:decimal(65,0);comment:荷兰拍底价（wei）"`
	LastBidPrice decimal.Decimal `gorm:"type:decimal(65,0);comment:当前最高出价（wei）"`
	LastBidder   string          `gorm:"size:42;comment:当前最高出价人"`
	Status       int             `gorm:"index;comment:0-挂单中 1-已成交 2-已取消"`
	StartTime    int64           `gorm:"comment:订单开始时间（unix秒）"`
	EndTime      int64           `gorm:"index;comment:订单结束时间（unix秒，0表示已取消）"`
	ChainID      int             `gorm:"comment:所属链ID"`
	CreatedAt    time.Time       `gorm:"comment:创建时间"`
	UpdatedAt    time.Time       `gorm:"comment:更新时间"`
	DeletedAt    gorm.DeletedAt  `gorm:"index;comment:删除时间"`
}

// TableName 表名
func (o *OrderRecord) TableName() string {
	return "market_orders"
}

// BeforeCreate 创建前钩子
func (o *OrderRecord) BeforeCreate(tx *gorm.DB) error {
	o.CreatedAt = time.Now()
	o.UpdatedAt = time.Now()
	return nil
}

// BidRecord 出价流水表（英式拍卖每次加价一条）
type BidRecord struct {
	ID         uint64          `gorm:"primaryKey;comment:自增ID"`
	OrderID    string          `gorm:"index;size:66;comment:关联订单ID"`
	BidderAddr string          `gorm:"index;size:42;comment:出价人钱包地址"`
	BidPrice   decimal.Decimal `gorm:"type:decimal(65,0);comment:出价金额（wei）"`
	BidTime    int64           `gorm:"comment:出价时间（unix秒）"`
	CreatedAt  time.Time       `gorm:"comment:创建时间"`
}

// TableName 表名
func (b *BidRecord) TableName() string {
	return "market_bids"
}
