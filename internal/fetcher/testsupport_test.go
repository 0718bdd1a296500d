package fetcher

import (
	"context"
	"sync"
	"time"
)

// fastSessionConfig 测试用时序配置（等待压到最短）
func fastSessionConfig() SessionConfig {
	return SessionConfig{
		NavTimeout:   time.Second,
		SettleDelay:  time.Millisecond,
		ScrollPause:  time.Millisecond,
		ScrollSettle: time.Millisecond,
	}
}

// fakeElement 页面元素桩
type fakeElement struct {
	text     string
	textErr  error
	closest  map[string]*fakeElement
	children map[string]*fakeElement
}

func (e *fakeElement) Text(ctx context.Context) (string, error) {
	return e.text, e.textErr
}

func (e *fakeElement) Closest(ctx context.Context, selector string) (Element, error) {
	if elem, ok := e.closest[selector]; ok && elem != nil {
		return elem, nil
	}
	return nil, nil
}

func (e *fakeElement) QuerySelector(ctx context.Context, selector string) (Element, error) {
	if elem, ok := e.children[selector]; ok && elem != nil {
		return elem, nil
	}
	return nil, nil
}

// fakePage 页面桩
type fakePage struct {
	mu sync.Mutex

	selectors     map[string]*fakeElement
	selectorLists map[string][]*fakeElement
	pageText      string
	content       string
	title         string
	statusDump    statusDumpResult

	navStatus    int
	navErr       error
	intercepted  chan []byte
	interceptErr error
	evalErr      error

	navigatedURL string
	evaluated    []string
}

func newFakePage() *fakePage {
	ch := make(chan []byte, 1)
	return &fakePage{
		selectors:     make(map[string]*fakeElement),
		selectorLists: make(map[string][]*fakeElement),
		navStatus:     200,
		intercepted:   ch,
	}
}

func (p *fakePage) Navigate(ctx context.Context, url string, timeout time.Duration) (*NavigationResult, error) {
	p.mu.Lock()
	p.navigatedURL = url
	p.mu.Unlock()
	if p.navErr != nil {
		return nil, p.navErr
	}
	return &NavigationResult{Status: p.navStatus, FinalURL: url}, nil
}

func (p *fakePage) InterceptResponses(ctx context.Context, urlFragment string) (<-chan []byte, error) {
	if p.interceptErr != nil {
		return nil, p.interceptErr
	}
	return p.intercepted, nil
}

func (p *fakePage) Evaluate(ctx context.Context, script string, out interface{}) error {
	p.mu.Lock()
	p.evaluated = append(p.evaluated, script)
	p.mu.Unlock()
	if p.evalErr != nil {
		return p.evalErr
	}
	if dump, ok := out.(*statusDumpResult); ok {
		*dump = p.statusDump
	}
	return nil
}

func (p *fakePage) QuerySelector(ctx context.Context, selector string) (Element, error) {
	if elem, ok := p.selectors[selector]; ok && elem != nil {
		return elem, nil
	}
	return nil, nil
}

func (p *fakePage) QuerySelectorAll(ctx context.Context, selector string) ([]Element, error) {
	list := p.selectorLists[selector]
	elems := make([]Element, 0, len(list))
	for _, e := range list {
		elems = append(elems, e)
	}
	return elems, nil
}

func (p *fakePage) PageText(ctx context.Context) (string, error) {
	return p.pageText, nil
}

func (p *fakePage) Content(ctx context.Context) (string, error) {
	return p.content, nil
}

func (p *fakePage) Title(ctx context.Context) (string, error) {
	return p.title, nil
}

// fakePool 浏览器池桩；记录并发水位和获取/归还配对
type fakePool struct {
	mu         sync.Mutex
	newPage    func() *fakePage
	acquireErr error

	acquired      int
	released      int
	active        int
	maxActive     int
	releaseEvents []string // 时序事件，校验归还先于锁释放
}

func newFakePool(newPage func() *fakePage) *fakePool {
	if newPage == nil {
		newPage = newFakePage
	}
	return &fakePool{newPage: newPage}
}

func (p *fakePool) Acquire(ctx context.Context, cookieID, cookies string, headless bool) (Page, error) {
	if p.acquireErr != nil {
		return nil, p.acquireErr
	}
	p.mu.Lock()
	p.acquired++
	p.active++
	if p.active > p.maxActive {
		p.maxActive = p.active
	}
	p.mu.Unlock()
	return p.newPage(), nil
}

func (p *fakePool) Release(page Page) {
	p.mu.Lock()
	p.released++
	p.active--
	p.releaseEvents = append(p.releaseEvents, "release")
	p.mu.Unlock()
}

// fakeStore 缓存桩；可注入读取错误，可记录同订单并发穿透
type fakeStore struct {
	mu      sync.Mutex
	records map[string]*OrderRecord
	err     error
	reads   int

	// 同订单并发检测
	delay      time.Duration
	inFlight   map[string]bool
	violations int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		records:  make(map[string]*OrderRecord),
		inFlight: make(map[string]bool),
	}
}

func (s *fakeStore) GetByOrderID(ctx context.Context, orderID string) (*OrderRecord, error) {
	s.mu.Lock()
	s.reads++
	if s.inFlight[orderID] {
		s.violations++
	}
	s.inFlight[orderID] = true
	delay := s.delay
	err := s.err
	record := s.records[orderID]
	s.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}

	s.mu.Lock()
	s.inFlight[orderID] = false
	s.mu.Unlock()

	if err != nil {
		return nil, err
	}
	return record, nil
}

// fakeNotifier 通知桩
type fakeNotifier struct {
	mu       sync.Mutex
	notified []*OrderRecord
	err      error
}

func (n *fakeNotifier) NotifyFetched(ctx context.Context, record *OrderRecord) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.notified = append(n.notified, record)
	return nil
}
