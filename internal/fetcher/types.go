package fetcher

import (
	"fmt"
	"strconv"
	"strings"
)

// OrderStatus 订单状态（闭合枚举）
type OrderStatus string

const (
	StatusProcessing  OrderStatus = "processing"   // 处理中
	StatusPendingShip OrderStatus = "pending_ship" // 待发货
	StatusShipped     OrderStatus = "shipped"      // 已发货
	StatusCompleted   OrderStatus = "completed"    // 已完成
	StatusRefunding   OrderStatus = "refunding"    // 退款中
	StatusCancelled   OrderStatus = "cancelled"    // 已关闭
	StatusUnknown     OrderStatus = "unknown"      // 未知
)

// Valid 是否为枚举成员
func (s OrderStatus) Valid() bool {
	switch s {
	case StatusProcessing, StatusPendingShip, StatusShipped,
		StatusCompleted, StatusRefunding, StatusCancelled, StatusUnknown:
		return true
	}
	return false
}

// OrderRecord 归一化订单记录（单次抓取会话的输出单元）
// 记录构造后不再原地修改；重新抓取产生全新记录
type OrderRecord struct {
	OrderID     string      `json:"order_id"`
	URL         string      `json:"url"`
	Title       string      `json:"title"`
	OrderStatus OrderStatus `json:"order_status"`
	StatusText  string      `json:"status_text"`

	ItemTitle string `json:"item_title"`
	ItemID    string `json:"item_id"`
	BuyerID   string `json:"buyer_id"`

	SpecName  string `json:"spec_name"`
	SpecValue string `json:"spec_value"`
	Quantity  string `json:"quantity"`
	Amount    string `json:"amount"`
	OrderTime string `json:"order_time"`

	ReceiverName    string `json:"receiver_name"`
	ReceiverPhone   string `json:"receiver_phone"`
	ReceiverAddress string `json:"receiver_address"`
	ReceiverCity    string `json:"receiver_city"`

	CanRate   bool  `json:"can_rate"`
	Timestamp int64 `json:"timestamp"`
	FromCache bool  `json:"from_cache"`

	// 融合前的两路原始信号（诊断用）
	APIStatus string `json:"api_status"`
	DOMStatus string `json:"dom_status"`
}

// APIFields API 拦截解析出的部分字段
type APIFields struct {
	OrderStatus OrderStatus
	StatusText  string

	ItemTitle string
	ItemID    string
	Price     string
	BuyerID   string

	ReceiverName    string
	ReceiverPhone   string
	ReceiverAddress string
	ReceiverCity    string

	CanRate bool
}

// DOMFields DOM 扫描解析出的部分字段
type DOMFields struct {
	Amount    string
	OrderTime string

	ReceiverName    string
	ReceiverPhone   string
	ReceiverAddress string

	SpecName  string
	SpecValue string
	Quantity  string

	// 状态启发式结果；未检测到时为空串
	OrderStatus  OrderStatus
	NodesScanned int
}

const orderDetailURLFormat = "https://www.goofish.com/order-detail?orderId=%s&role=seller"

// OrderDetailURL 订单详情页规范 URL
func OrderDetailURL(orderID string) string {
	return fmt.Sprintf(orderDetailURLFormat, orderID)
}

// AmountValid 金额有效性判定：剥离货币符号与空白后须解析为大于零的数值
func AmountValid(amount string) bool {
	clean := strings.NewReplacer("¥", "", "￥", "", "$", "").Replace(amount)
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return false
	}
	value, err := strconv.ParseFloat(clean, 64)
	if err != nil {
		return false
	}
	return value > 0
}
