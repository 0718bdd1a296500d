package fetcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"xyseller/ofetch/pkg/logger"
)

// 批量调度缺省值
const (
	defaultMaxConcurrent = 5
	defaultChunkSize     = 10
	defaultChunkDelay    = 2 * time.Second
)

// BatchResult 批量抓取中单个订单的结果条目
// Record 与 Err 恰有其一非零：成功为记录，失败为错误描述
type BatchResult struct {
	OrderID string       `json:"order_id"`
	Record  *OrderRecord `json:"record,omitempty"`
	Err     string       `json:"error,omitempty"`
}

// Failed 该条目是否为失败项
func (r BatchResult) Failed() bool {
	return r.Err != ""
}

// BatchOptions 批量抓取选项
type BatchOptions struct {
	CookieID     string
	Cookies      string
	Timeout      time.Duration
	Headless     bool
	ForceRefresh bool
	// MaxConcurrent 批内同时活跃会话上限
	MaxConcurrent int
}

// ChunkOptions 分批抓取选项
type ChunkOptions struct {
	BatchOptions
	// ChunkSize 每批订单数
	ChunkSize int
	// ChunkDelay 批次间冷却（末批之后不等待）
	ChunkDelay time.Duration
}

// SessionCoordinator 抓取会话协调器
// 持有订单级互斥锁注册表（显式构造、显式注入，测试可各自独立实例化），
// 保证同一订单 ID 全局至多一个在途会话；锁条目随协调器生命周期保留，
// 订单 ID 基数有界时可接受
type SessionCoordinator struct {
	pool     BrowserPool
	store    OrderStore
	notifier Notifier // 可选；nil 关闭通知
	cfg      SessionConfig
	log      logger.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSessionCoordinator 创建协调器；notifier 可传 nil
func NewSessionCoordinator(
	pool BrowserPool,
	store OrderStore,
	notifier Notifier,
	cfg SessionConfig,
	log logger.Logger,
) *SessionCoordinator {
	return &SessionCoordinator{
		pool:     pool,
		store:    store,
		notifier: notifier,
		cfg:      cfg.withDefaults(),
		log:      log,
		locks:    make(map[string]*sync.Mutex),
	}
}

// lockFor 取订单互斥锁，首次引用时创建，之后复用
func (c *SessionCoordinator) lockFor(orderID string) *sync.Mutex {
	c.mu.Lock()
	defer c.mu.Unlock()
	lock, ok := c.locks[orderID]
	if !ok {
		lock = &sync.Mutex{}
		c.locks[orderID] = lock
	}
	return lock
}

// FetchOrder 抓取单个订单（同订单严格串行；缓存检查与实时抓取不会交错）
func (c *SessionCoordinator) FetchOrder(ctx context.Context, req FetchRequest) (*OrderRecord, error) {
	ctx = context.WithValue(ctx, "order_id", req.OrderID)

	lock := c.lockFor(req.OrderID)
	lock.Lock()
	defer lock.Unlock()

	c.log.Infof(ctx, "[Coordinator] lock acquired for order %s", req.OrderID)

	session := &fetchSession{
		pool:  c.pool,
		store: c.store,
		cfg:   c.cfg,
		log:   c.log,
	}
	record, err := session.run(ctx, req)
	if err != nil {
		c.log.Errorf(ctx, "[Coordinator] order %s fetch failed: %v", req.OrderID, err)
		return nil, err
	}

	if !record.FromCache && c.notifier != nil {
		if err := c.notifier.NotifyFetched(ctx, record); err != nil {
			c.log.Warnf(ctx, "[Coordinator] fetch notification failed: %v", err)
		}
	}

	return record, nil
}

// FetchBatch 有界并发批量抓取
// 至多 MaxConcurrent 个会话同时活跃；单个订单的故障只产生对应失败条目，
// 绝不中止同批其他订单；返回条目与输入一一对应且保序
func (c *SessionCoordinator) FetchBatch(ctx context.Context, orderIDs []string, opts BatchOptions) []BatchResult {
	maxConcurrent := opts.MaxConcurrent
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrent
	}

	c.log.Infof(ctx, "[Coordinator] batch fetch: %d orders, max concurrent %d", len(orderIDs), maxConcurrent)

	sem := semaphore.NewWeighted(int64(maxConcurrent))
	results := make([]BatchResult, len(orderIDs))

	var wg sync.WaitGroup
	for i, orderID := range orderIDs {
		wg.Add(1)
		go func(idx int, id string) {
			defer wg.Done()
			results[idx] = c.fetchEntry(ctx, id, opts, sem)
		}(i, orderID)
	}
	wg.Wait()

	success := 0
	for _, r := range results {
		if !r.Failed() {
			success++
		}
	}
	c.log.Infof(ctx, "[Coordinator] batch complete: %d ok, %d failed", success, len(results)-success)

	return results
}

// fetchEntry 单条批量条目：过准入门 → 抓取 → 故障转结构化失败项
func (c *SessionCoordinator) fetchEntry(
	ctx context.Context,
	orderID string,
	opts BatchOptions,
	sem *semaphore.Weighted,
) (entry BatchResult) {
	entry.OrderID = orderID
	defer func() {
		if r := recover(); r != nil {
			entry.Record = nil
			entry.Err = fmt.Sprintf("panic: %v", r)
		}
	}()

	if err := sem.Acquire(ctx, 1); err != nil {
		entry.Err = err.Error()
		return
	}
	defer sem.Release(1)

	record, err := c.FetchOrder(ctx, FetchRequest{
		OrderID:      orderID,
		CookieID:     opts.CookieID,
		Cookies:      opts.Cookies,
		Timeout:      opts.Timeout,
		Headless:     opts.Headless,
		ForceRefresh: opts.ForceRefresh,
	})
	if err != nil {
		entry.Err = err.Error()
		return
	}
	entry.Record = record
	return
}

// FetchInChunks 分批抓取：固定大小切片逐批跑，批间冷却削峰
// 结果按输入顺序聚合，每个请求的订单 ID 恰有一个条目
func (c *SessionCoordinator) FetchInChunks(ctx context.Context, orderIDs []string, opts ChunkOptions) []BatchResult {
	chunkSize := opts.ChunkSize
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	chunkDelay := opts.ChunkDelay
	if chunkDelay <= 0 {
		chunkDelay = defaultChunkDelay
	}

	total := len(orderIDs)
	totalChunks := (total + chunkSize - 1) / chunkSize
	c.log.Infof(ctx, "[Coordinator] chunked fetch: %d orders in %d chunks of %d", total, totalChunks, chunkSize)

	results := make([]BatchResult, 0, total)
	for chunk := 0; chunk < totalChunks; chunk++ {
		start := chunk * chunkSize
		end := start + chunkSize
		if end > total {
			end = total
		}

		c.log.Infof(ctx, "[Coordinator] chunk %d/%d: orders %d-%d", chunk+1, totalChunks, start+1, end)
		results = append(results, c.FetchBatch(ctx, orderIDs[start:end], opts.BatchOptions)...)

		// 末批之后不再等待；取消时让后续批次的准入快速失败即可
		if chunk < totalChunks-1 {
			if err := sleepCtx(ctx, chunkDelay); err != nil {
				c.log.Warnf(ctx, "[Coordinator] chunk cooldown interrupted: %v", err)
			}
		}
	}

	return results
}
