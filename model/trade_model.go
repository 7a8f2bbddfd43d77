package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CollectionRecord NFT合集表（平台自营/第三方资产登记）
type CollectionRecord struct {
	ID           uint64         `gorm:"primaryKey;comment:合集ID"`
	ContractAddr string         `gorm:"uniqueIndex;size:42;comment:NFT合约地址"`
	CreatorAddr  string         `gorm:"index;size:42;comment:创建者钱包地址"`
	Kind         int            `gorm:"comment:0-minimal 1-basic 2-whitelist 3-lazy"`
	HouseAsset   bool           `gorm:"comment:是否平台自营合集"`
	SplitterAddr string         `gorm:"size:42;comment:版税分账器地址（第三方为空）"`
	RoyaltyBps   uint64         `gorm:"comment:合集默认版税（基点）"`
	ChainID      int            `gorm:"comment:所属链ID"`
	CreatedAt    time.Time      `gorm:"comment:创建时间"`
	UpdatedAt    time.Time      `gorm:"comment:更新时间"`
	DeletedAt    gorm.DeletedAt `gorm:"index;comment:删除时间"`
}

// TableName 表名
func (c *CollectionRecord) TableName() string {
	return "market_collections"
}

// FirstSaleRecord 首售标记表（自营资产首次成交后转为常规费率）
type FirstSaleRecord struct {
	ID           uint64    `gorm:"primaryKey;comment:自增ID"`
	ContractAddr string    `gorm:"uniqueIndex:idx_fs_asset;size:42;comment:NFT合约地址"`
	TokenID      string    `gorm:"uniqueIndex:idx_fs_asset;size:78;comment:链上TokenID"`
	OrderID      string    `gorm:"size:66;comment:首售订单ID"`
	SoldAt       time.Time `gorm:"comment:首售完成时间"`
	CreatedAt    time.Time `gorm:"comment:创建时间"`
}

// TableName 表名
func (f *FirstSaleRecord) TableName() string {
	return "market_first_sales"
}

// TradeRecord 成交记录表（最终账本）
type TradeRecord struct {
	ID              uint64          `gorm:"primaryKey;comment:交易记录ID"`
	TradeNo         string          `gorm:"uniqueIndex;size:32;comment:交易编号"`
	OrderID         string          `gorm:"index;size:66;comment:关联订单ID"`
	ContractAddr    string          `gorm:"size:42;comment:NFT合约地址"`
	TokenID         string          `gorm:"size:78;comment:链上TokenID"`
	SellerAddr      string          `gorm:"index;size:42;comment:卖家钱包地址"`
	BuyerAddr       string          `gorm:"index;size:42;comment:买家钱包地址"`
	Price           decimal.Decimal `gorm:"type:decimal(65,0);comment:成交价格（wei）"`
	Fee             decimal.Decimal `gorm:"type:decimal(65,0);comment:平台手续费（wei）"`
	RoyaltySplitter decimal.Decimal `gorm:"type:decimal(65,0);comment:回流分账器的版税（wei）"`
	RoyaltyRetained decimal.Decimal `gorm:"type:decimal(65,0);comment:平台留存的版税（wei）"`
	TxHash          string          `gorm:"size:66;comment:链上交易哈希（NFT转账）"`
	ChainID         int             `gorm:"comment:所属链ID"`
	TradeTime       time.Time       `gorm:"comment:交易完成时间"`
	CreatedAt       time.Time       `gorm:"comment:创建时间"`
}

// TableName 表名
func (t *TradeRecord) TableName() string {
	return "market_trades"
}

// BeforeCreate 创建前钩子
func (t *TradeRecord) BeforeCreate(tx *gorm.DB) error {
	t.CreatedAt = time.Now()
	return nil
}
