package dao

import (
	"nft_market/model"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

var db *gorm.DB

// InitMySQL 初始化MySQL连接
func InitMySQL(dsn string) error {
	var err error
	db, err = gorm.Open(mysql.Open(dsn), &gorm.Config{})
	if err != nil {
		return err
	}
	// 自动迁移表
	return db.AutoMigrate(
		&model.OrderRecord{},
		&model.BidRecord{},
		&model.CollectionRecord{},
		&model.FirstSaleRecord{},
		&model.TradeRecord{},
	)
}

// DB 返回底层gorm句柄（service层复杂查询用）
func DB() *gorm.DB {
	return db
}

// CreateOrder 创建订单记录
func CreateOrder(order *model.OrderRecord) error {
	return db.Create(order).Error
}

// UpdateOrder 更新订单记录
func UpdateOrder(order *model.OrderRecord) error {
	return db.Save(order).Error
}

// GetOrderByOrderID 根据订单ID查询订单
func GetOrderByOrderID(orderID string) (*model.OrderRecord, error) {
	var order model.OrderRecord
	if err := db.Where("order_id = ?", orderID).First(&order).Error; err != nil {
		return nil, err
	}
	return &order, nil
}

// ListOrdersByToken 查询资产名下的全部订单（按挂单序号升序）
func ListOrdersByToken(contractAddr, tokenID string) ([]model.OrderRecord, error) {
	var orders []model.OrderRecord
	err := db.Where("contract_addr = ? AND token_id = ?", contractAddr, tokenID).
		Order("height asc").Find(&orders).Error
	return orders, err
}

// ListOrdersBySeller 查询卖家名下的全部订单
func ListOrdersBySeller(sellerAddr string) ([]model.OrderRecord, error) {
	var orders []model.OrderRecord
	err := db.Where("seller_addr = ?", sellerAddr).
		Order("height asc").Find(&orders).Error
	return orders, err
}

// DeleteOrder 物理删除订单记录（管理员清退用）
func DeleteOrder(orderID string) error {
	return db.Where("order_id = ?", orderID).Delete(&model.OrderRecord{}).Error
}

// CreateBid 写入出价流水
func CreateBid(bid *model.BidRecord) error {
	return db.Create(bid).Error
}

// CreateTrade 创建成交记录
func CreateTrade(trade *model.TradeRecord) error {
	return db.Create(trade).Error
}

// CreateCollection 登记合集
func CreateCollection(col *model.CollectionRecord) error {
	return db.Create(col).Error
}

// GetCollectionByAddr 根据合约地址查询合集
func GetCollectionByAddr(contractAddr string) (*model.CollectionRecord, error) {
	var col model.CollectionRecord
	if err := db.Where("contract_addr = ?", contractAddr).First(&col).Error; err != nil {
		return nil, err
	}
	return &col, nil
}

// MarkFirstSale 标记资产首售完成（幂等）
func MarkFirstSale(rec *model.FirstSaleRecord) error {
	return db.Where("contract_addr = ? AND token_id = ?", rec.ContractAddr, rec.TokenID).
		FirstOrCreate(rec).Error
}

// IsFirstSaleDone 查询资产是否已完成首售
func IsFirstSaleDone(contractAddr, tokenID string) (bool, error) {
	var count int64
	err := db.Model(&model.FirstSaleRecord{}).
		Where("contract_addr = ? AND token_id = ?", contractAddr, tokenID).
		Count(&count).Error
	return count > 0, err
}
