package fetcher

import (
	"context"
	"time"
)

// NavigationResult 导航结果
type NavigationResult struct {
	Status   int
	FinalURL string
}

// Page 浏览器页面契约（一次订单详情访问期间的全部交互）
// 核心只依赖该契约，不关心底层自动化驱动
type Page interface {
	// Navigate 导航到指定 URL，等待页面就绪；超时或导航失败返回错误
	Navigate(ctx context.Context, url string, timeout time.Duration) (*NavigationResult, error)

	// InterceptResponses 注册响应拦截（URL 子串匹配），返回解码后响应体流
	// 必须在 Navigate 之前注册，避免响应先于过滤器到达
	InterceptResponses(ctx context.Context, urlFragment string) (<-chan []byte, error)

	// Evaluate 在页面执行脚本；out 为 nil 时丢弃返回值
	Evaluate(ctx context.Context, script string, out interface{}) error

	// QuerySelector 查询单个元素；未命中返回 (nil, nil)
	QuerySelector(ctx context.Context, selector string) (Element, error)

	// QuerySelectorAll 查询全部匹配元素
	QuerySelectorAll(ctx context.Context, selector string) ([]Element, error)

	// PageText 页面可见文本
	PageText(ctx context.Context) (string, error)

	// Content 页面原始标记
	Content(ctx context.Context) (string, error)

	// Title 页面标题
	Title(ctx context.Context) (string, error)
}

// Element 页面元素句柄
type Element interface {
	// Text 元素文本；空元素返回空串
	Text(ctx context.Context) (string, error)

	// Closest 向上查找最近的匹配祖先；未命中返回 (nil, nil)
	Closest(ctx context.Context, selector string) (Element, error)

	// QuerySelector 在元素范围内查询；未命中返回 (nil, nil)
	QuerySelector(ctx context.Context, selector string) (Element, error)
}

// BrowserPool 浏览器实例池契约
type BrowserPool interface {
	// Acquire 获取一个已登录态的页面实例
	Acquire(ctx context.Context, cookieID, cookies string, headless bool) (Page, error)

	// Release 归还页面实例（会话的每条退出路径都必须归还）
	Release(page Page)
}

// OrderStore 持久化存储契约（本核心只读不写）
type OrderStore interface {
	// GetByOrderID 按订单 ID 读取缓存记录；缓存缺失返回 (nil, nil)
	GetByOrderID(ctx context.Context, orderID string) (*OrderRecord, error)
}

// Notifier 抓取完成通知契约（可选协作者）
type Notifier interface {
	NotifyFetched(ctx context.Context, record *OrderRecord) error
}
