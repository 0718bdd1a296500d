package worker

import (
	"xyseller/ofetch/internal/fetcher"
)

// ActionTypeOrderFetch 订单抓取动作类型（路由键）
const ActionTypeOrderFetch = "order_fetch"

// FetchJob 标准 Job 结构
type FetchJob struct {
	Payload *FetchJobPayload `json:"payload"`
}

// FetchJobPayload Job 负载
type FetchJobPayload struct {
	Data *FetchJobData `json:"data"`
}

// FetchJobData Job 数据层
type FetchJobData struct {
	// 元信息
	RequestID  string `json:"request_id"`  // 请求 ID（全链路追踪）
	ActionType string `json:"action_type"` // 动作类型，固定值 "order_fetch"

	// 业务数据
	Data *FetchParams `json:"data"`
}

// FetchParams 订单抓取业务参数
type FetchParams struct {
	OrderIDs      []string `json:"order_ids"`      // 订单 ID 列表
	CookieID      string   `json:"cookie_id"`      // Cookie ID
	Cookies       string   `json:"cookies"`        // Cookie 字符串
	ForceRefresh  bool     `json:"force_refresh"`  // 强制刷新，跳过缓存检查
	MaxConcurrent int      `json:"max_concurrent"` // 批内最大并发（0 用配置）
	ChunkSize     int      `json:"chunk_size"`     // 分批大小（0 用配置）
}

// 回调状态常量
const (
	CallbackStatusSuccess = "SUCCESS"
	CallbackStatusFailed  = "FAILED"
)

// FetchCallback 抓取回调消息（每个请求的订单 ID 恰有一个结果条目）
type FetchCallback struct {
	RequestID   string                `json:"request_id"`
	Status      string                `json:"status"`
	Results     []fetcher.BatchResult `json:"results,omitempty"`
	Error       string                `json:"error,omitempty"`
	ProcessedAt int64                 `json:"processed_at"`
}
