package fetcher

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xyseller/ofetch/pkg/logger"
)

func newTestCoordinator(pool BrowserPool, store OrderStore, notifier Notifier) *SessionCoordinator {
	return NewSessionCoordinator(pool, store, notifier, fastSessionConfig(), logger.NewNopLogger())
}

func TestFetchOrder_NotifiesOnLiveFetch(t *testing.T) {
	pool := newFakePool(nil)
	notifier := &fakeNotifier{}
	c := newTestCoordinator(pool, newFakeStore(), notifier)

	record, err := c.FetchOrder(context.Background(), FetchRequest{OrderID: "1001"})
	require.NoError(t, err)

	require.Len(t, notifier.notified, 1)
	assert.Equal(t, record, notifier.notified[0])
}

func TestFetchOrder_NoNotifyOnCacheHit(t *testing.T) {
	store := newFakeStore()
	store.records["1001"] = &OrderRecord{OrderID: "1001", Amount: "¥10.00"}
	notifier := &fakeNotifier{}
	c := newTestCoordinator(newFakePool(nil), store, notifier)

	record, err := c.FetchOrder(context.Background(), FetchRequest{OrderID: "1001"})
	require.NoError(t, err)

	assert.True(t, record.FromCache)
	assert.Empty(t, notifier.notified)
}

func TestFetchOrder_NotifierErrorDoesNotFailFetch(t *testing.T) {
	notifier := &fakeNotifier{err: assert.AnError}
	c := newTestCoordinator(newFakePool(nil), newFakeStore(), notifier)

	record, err := c.FetchOrder(context.Background(), FetchRequest{OrderID: "1001"})
	require.NoError(t, err)
	assert.NotNil(t, record)
}

// 同订单并发请求严格串行：缓存检查与实时抓取不交错
func TestFetchOrder_SameOrderSerialized(t *testing.T) {
	store := newFakeStore()
	store.delay = 10 * time.Millisecond
	c := newTestCoordinator(newFakePool(nil), store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.FetchOrder(context.Background(), FetchRequest{OrderID: "1001"})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Zero(t, store.violations)
	assert.Equal(t, 8, store.reads)
}

func TestFetchBatch_ResultsAlignedWithInput(t *testing.T) {
	store := newFakeStore()
	store.records["B"] = &OrderRecord{OrderID: "B"} // 金额无效 → 实时抓取
	pool := newFakePool(nil)
	c := newTestCoordinator(pool, store, nil)

	results := c.FetchBatch(context.Background(), []string{"A", "B", "C"}, BatchOptions{MaxConcurrent: 2})

	require.Len(t, results, 3)
	assert.Equal(t, "A", results[0].OrderID)
	assert.Equal(t, "B", results[1].OrderID)
	assert.Equal(t, "C", results[2].OrderID)
	for _, r := range results {
		assert.False(t, r.Failed(), "order %s: %s", r.OrderID, r.Err)
		assert.NotNil(t, r.Record)
	}
}

// 单订单故障只产生对应失败条目，不中止同批其他订单
func TestFetchBatch_FailureIsolated(t *testing.T) {
	failPage := newFakePage()
	failPage.navErr = assert.AnError

	var mu sync.Mutex
	calls := 0
	pool := newFakePool(func() *fakePage {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if calls == 2 {
			return failPage
		}
		return newFakePage()
	})
	c := newTestCoordinator(pool, newFakeStore(), nil)

	// MaxConcurrent=1 保证调用序与输入序一致
	results := c.FetchBatch(context.Background(), []string{"A", "B", "C"}, BatchOptions{MaxConcurrent: 1})

	require.Len(t, results, 3)
	failed := 0
	for _, r := range results {
		if r.Failed() {
			failed++
			assert.Nil(t, r.Record)
			assert.NotEmpty(t, r.Err)
		} else {
			assert.NotNil(t, r.Record)
		}
	}
	assert.Equal(t, 1, failed)
}

func TestFetchBatch_AdmissionBounded(t *testing.T) {
	pool := newFakePool(nil)
	c := newTestCoordinator(pool, newFakeStore(), nil)

	orderIDs := make([]string, 12)
	for i := range orderIDs {
		orderIDs[i] = fmt.Sprintf("order-%d", i)
	}
	results := c.FetchBatch(context.Background(), orderIDs, BatchOptions{MaxConcurrent: 3})

	require.Len(t, results, 12)
	assert.LessOrEqual(t, pool.maxActive, 3)
	assert.Equal(t, 12, pool.acquired)
	assert.Equal(t, 12, pool.released)
}

func TestFetchInChunks_ChunkMathAndAggregation(t *testing.T) {
	pool := newFakePool(nil)
	c := newTestCoordinator(pool, newFakeStore(), nil)

	orderIDs := make([]string, 25)
	for i := range orderIDs {
		orderIDs[i] = fmt.Sprintf("order-%d", i)
	}

	start := time.Now()
	results := c.FetchInChunks(context.Background(), orderIDs, ChunkOptions{
		BatchOptions: BatchOptions{MaxConcurrent: 25},
		ChunkSize:    10,
		ChunkDelay:   30 * time.Millisecond,
	})
	elapsed := time.Since(start)

	// 25 订单 / 批大小 10 → 3 批，末批之后无冷却 → 恰好 2 次冷却
	require.Len(t, results, 25)
	for i, r := range results {
		assert.Equal(t, fmt.Sprintf("order-%d", i), r.OrderID)
	}
	assert.GreaterOrEqual(t, elapsed, 60*time.Millisecond)
}

func TestFetchInChunks_EmptyInput(t *testing.T) {
	c := newTestCoordinator(newFakePool(nil), newFakeStore(), nil)
	results := c.FetchInChunks(context.Background(), nil, ChunkOptions{})
	assert.Empty(t, results)
}
