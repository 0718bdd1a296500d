package mysql

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"xyseller/ofetch/internal/fetcher"
	"xyseller/ofetch/pkg/logger"
)

// Order 订单缓存表实体
// 写入方为主站服务，本 Worker 只做缓存读取
type Order struct {
	OrderID     string `gorm:"column:order_id;primaryKey"`
	URL         string `gorm:"column:url"`
	Title       string `gorm:"column:title"`
	OrderStatus string `gorm:"column:order_status"`
	StatusText  string `gorm:"column:status_text"`

	ItemTitle string `gorm:"column:item_title"`
	ItemID    string `gorm:"column:item_id"`
	BuyerID   string `gorm:"column:buyer_id"`

	SpecName  string `gorm:"column:spec_name"`
	SpecValue string `gorm:"column:spec_value"`
	Quantity  string `gorm:"column:quantity"`
	Amount    string `gorm:"column:amount"`
	OrderTime string `gorm:"column:order_time"`

	ReceiverName    string `gorm:"column:receiver_name"`
	ReceiverPhone   string `gorm:"column:receiver_phone"`
	ReceiverAddress string `gorm:"column:receiver_address"`
	ReceiverCity    string `gorm:"column:receiver_city"`

	CanRate   bool  `gorm:"column:can_rate"`
	Timestamp int64 `gorm:"column:timestamp"`
}

// TableName 表名
func (Order) TableName() string {
	return "orders"
}

// OrderDAO 订单数据访问对象（实现 fetcher.OrderStore）
type OrderDAO struct {
	db  *gorm.DB
	log logger.Logger
}

// NewOrderDAO 创建 OrderDAO 实例
func NewOrderDAO(dsn string, log logger.Logger) (*OrderDAO, error) {
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return &OrderDAO{
		db:  db,
		log: log,
	}, nil
}

// GetByOrderID 按订单 ID 读取缓存记录；缓存缺失返回 (nil, nil)
func (dao *OrderDAO) GetByOrderID(ctx context.Context, orderID string) (*fetcher.OrderRecord, error) {
	var order Order
	result := dao.db.WithContext(ctx).Where("order_id = ?", orderID).First(&order)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			dao.log.Debugf(ctx, "[OrderDAO] cache miss: order_id=%s", orderID)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get order: %w", result.Error)
	}
	return toRecord(&order), nil
}

// toRecord 实体转领域记录
func toRecord(o *Order) *fetcher.OrderRecord {
	return &fetcher.OrderRecord{
		OrderID:     o.OrderID,
		URL:         o.URL,
		Title:       o.Title,
		OrderStatus: fetcher.OrderStatus(o.OrderStatus),
		StatusText:  o.StatusText,

		ItemTitle: o.ItemTitle,
		ItemID:    o.ItemID,
		BuyerID:   o.BuyerID,

		SpecName:  o.SpecName,
		SpecValue: o.SpecValue,
		Quantity:  o.Quantity,
		Amount:    o.Amount,
		OrderTime: o.OrderTime,

		ReceiverName:    o.ReceiverName,
		ReceiverPhone:   o.ReceiverPhone,
		ReceiverAddress: o.ReceiverAddress,
		ReceiverCity:    o.ReceiverCity,

		CanRate:   o.CanRate,
		Timestamp: o.Timestamp,
	}
}

// Close 关闭数据库连接
func (dao *OrderDAO) Close() error {
	sqlDB, err := dao.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
