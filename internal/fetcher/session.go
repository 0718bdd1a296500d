package fetcher

import (
	"context"
	"fmt"
	"time"

	"xyseller/ofetch/pkg/errorutil"
	"xyseller/ofetch/pkg/logger"
)

// 页面等待缺省值；均可经 SessionConfig 覆盖（站点渲染时序相关，属调参项）
const (
	defaultNavTimeout   = 30 * time.Second
	defaultSettleDelay  = 2 * time.Second
	defaultScrollPause  = 500 * time.Millisecond
	defaultScrollSettle = time.Second
)

const (
	scrollToBottomScript = "window.scrollTo(0, document.body.scrollHeight)"
	scrollToTopScript    = "window.scrollTo(0, 0)"
)

// SessionConfig 会话时序配置
type SessionConfig struct {
	NavTimeout   time.Duration // 单次导航超时
	SettleDelay  time.Duration // 导航完成后的渲染等待
	ScrollPause  time.Duration // 滚动到底部后的停顿
	ScrollSettle time.Duration // 滚回顶部后的停顿
}

func (c SessionConfig) withDefaults() SessionConfig {
	if c.NavTimeout <= 0 {
		c.NavTimeout = defaultNavTimeout
	}
	if c.SettleDelay <= 0 {
		c.SettleDelay = defaultSettleDelay
	}
	if c.ScrollPause <= 0 {
		c.ScrollPause = defaultScrollPause
	}
	if c.ScrollSettle <= 0 {
		c.ScrollSettle = defaultScrollSettle
	}
	return c
}

// FetchRequest 单订单抓取请求
type FetchRequest struct {
	OrderID      string
	CookieID     string
	Cookies      string
	Timeout      time.Duration // 覆盖配置的导航超时；零值用配置
	Headless     bool
	ForceRefresh bool // 跳过缓存检查，强制实时抓取
}

// fetchSession 单订单的独占抓取会话
// 状态机：CacheCheck → {CacheHit | Navigating → Intercepting/Scanning → Fusing | Failed}
// 调用方（coordinator）持有该订单的互斥锁贯穿整个会话
type fetchSession struct {
	pool  BrowserPool
	store OrderStore
	cfg   SessionConfig
	log   logger.Logger
}

// run 执行会话；任何会话级致命错误返回 (nil, err)，不产生部分记录
func (s *fetchSession) run(ctx context.Context, req FetchRequest) (*OrderRecord, error) {
	// CacheCheck：读取失败按缓存缺失处理，继续实时抓取
	existing, err := s.store.GetByOrderID(ctx, req.OrderID)
	if err != nil {
		s.log.Warnf(ctx, "[FetchSession] cache read failed, falling back to live fetch: %v", err)
		existing = nil
	}
	if DecideCache(existing, req.ForceRefresh) == UseCache {
		s.log.Infof(ctx, "[FetchSession] order %s served from cache", req.OrderID)
		return reshapeCached(existing, time.Now().Unix()), nil
	}

	// Navigating：锁持有期间获取浏览器实例
	page, err := s.pool.Acquire(ctx, req.CookieID, req.Cookies, req.Headless)
	if err != nil {
		return nil, errorutil.Newf(errorutil.KindPoolAcquisition, "acquire browser: %v", err)
	}
	// 先归还页面再释放订单锁，等待同一订单的会话不必再抢池位
	defer s.pool.Release(page)

	// 拦截过滤器必须先于导航注册，避免响应先于过滤器到达
	bodies, err := page.InterceptResponses(ctx, interceptPathFragment)
	if err != nil {
		return nil, errorutil.Newf(errorutil.KindNavigation, "register interception: %v", err)
	}

	url := OrderDetailURL(req.OrderID)
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.cfg.NavTimeout
	}
	nav, err := page.Navigate(ctx, url, timeout)
	if err != nil {
		return nil, errorutil.Newf(errorutil.KindNavigation, "navigate %s: %v", url, err)
	}
	if nav == nil || nav.Status != 200 {
		status := 0
		if nav != nil {
			status = nav.Status
		}
		return nil, errorutil.Newf(errorutil.KindNavigation, "navigate %s: status %d", url, status)
	}

	// 等待渲染，再滚动一个来回触发懒加载内容
	if err := sleepCtx(ctx, s.cfg.SettleDelay); err != nil {
		return nil, err
	}
	if err := page.Evaluate(ctx, scrollToBottomScript, nil); err != nil {
		s.log.Warnf(ctx, "[FetchSession] scroll to bottom failed: %v", err)
	}
	if err := sleepCtx(ctx, s.cfg.ScrollPause); err != nil {
		return nil, err
	}
	if err := page.Evaluate(ctx, scrollToTopScript, nil); err != nil {
		s.log.Warnf(ctx, "[FetchSession] scroll to top failed: %v", err)
	}
	if err := sleepCtx(ctx, s.cfg.ScrollSettle); err != nil {
		return nil, err
	}

	// Intercepting：取首个成功解码的响应体，之后的响应忽略；
	// 未拦截到响应不致命，降级为纯 DOM
	var apiFields APIFields
	decoded := false
drain:
	for {
		select {
		case body, ok := <-bodies:
			if !ok {
				break drain
			}
			fields, parseErr := ParseAPIPayload(body)
			if parseErr == nil {
				apiFields = fields
				decoded = true
				break drain
			}
			s.log.Warnf(ctx, "[FetchSession] api payload parse degraded: %v", parseErr)
			if !decoded {
				apiFields = fields
				decoded = true
			}
		default:
			break drain
		}
	}
	if !decoded {
		s.log.Warnf(ctx, "[FetchSession] no api response intercepted, dom-only for order %s", req.OrderID)
	}

	// Scanning
	domFields := NewDomScanner(page, s.log).Scan(ctx)

	title, err := page.Title(ctx)
	if err != nil || title == "" {
		title = fmt.Sprintf("订单详情 - %s", req.OrderID)
	}

	// Fusing
	record := fuseRecord(req.OrderID, url, title, apiFields, domFields, time.Now().Unix())
	s.log.Infof(ctx, "[FetchSession] order %s fetched: status=%s (api=%s dom=%s)",
		req.OrderID, record.OrderStatus, record.APIStatus, record.DOMStatus)

	return record, nil
}

// reshapeCached 将命中缓存的记录重塑为当前 schema（只读重建，不回改原记录）
func reshapeCached(existing *OrderRecord, timestamp int64) *OrderRecord {
	record := *existing
	record.URL = OrderDetailURL(record.OrderID)
	record.Title = fmt.Sprintf("订单详情 - %s", record.OrderID)
	record.Timestamp = timestamp
	record.FromCache = true
	return &record
}

// sleepCtx 可取消的等待
func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
