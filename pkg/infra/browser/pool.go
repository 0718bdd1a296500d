package browser

import (
	"context"
	"fmt"
	"strings"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"xyseller/ofetch/internal/fetcher"
	"xyseller/ofetch/pkg/config"
	"xyseller/ofetch/pkg/errorutil"
	"xyseller/ofetch/pkg/logger"
)

// cookieDomain 登录态 Cookie 的作用域
const cookieDomain = ".goofish.com"

// Pool 浏览器实例池（实现 fetcher.BrowserPool）
// 每次 Acquire 启动独立浏览器实例，保证会话间 Cookie / 缓存互不污染；
// slots 信号量把并发实例数压在 PoolSize 以内
type Pool struct {
	ctx   context.Context
	cfg   config.BrowserConfig
	slots chan struct{}
	log   logger.Logger
}

// NewPool 创建浏览器池
func NewPool(ctx context.Context, cfg config.BrowserConfig, log logger.Logger) (*Pool, error) {
	if cfg.PoolSize <= 0 {
		return nil, fmt.Errorf("browser pool size must be positive, got %d", cfg.PoolSize)
	}

	slots := make(chan struct{}, cfg.PoolSize)
	for i := 0; i < cfg.PoolSize; i++ {
		slots <- struct{}{}
	}

	return &Pool{
		ctx:   ctx,
		cfg:   cfg,
		slots: slots,
		log:   log,
	}, nil
}

// Acquire 获取一个已登录态的页面实例
func (p *Pool) Acquire(ctx context.Context, cookieID, cookies string, headless bool) (fetcher.Page, error) {
	// 1. 等待空闲槽位
	select {
	case <-p.slots:
	case <-ctx.Done():
		return nil, errorutil.Newf(errorutil.KindPoolAcquisition, "waiting for browser slot: %v", ctx.Err())
	}

	// 2. 启动浏览器（失败必须归还槽位）
	page, err := p.launch(ctx, cookieID, cookies, headless || p.cfg.Headless)
	if err != nil {
		p.slots <- struct{}{}
		return nil, err
	}

	p.log.Infof(ctx, "[BrowserPool] instance acquired: cookie_id=%s", cookieID)
	return page, nil
}

// Release 归还页面实例
func (p *Pool) Release(page fetcher.Page) {
	session, ok := page.(*PageSession)
	if !ok || session == nil {
		return
	}
	session.close()
	p.slots <- struct{}{}
	p.log.Infof(context.Background(), "[BrowserPool] instance released: cookie_id=%s", session.cookieID)
}

// Close 关闭池（占满所有槽位，等待在途实例归还）
func (p *Pool) Close() {
	for i := 0; i < cap(p.slots); i++ {
		<-p.slots
	}
	p.log.Infof(context.Background(), "[BrowserPool] closed")
}

// launch 启动浏览器实例并注入登录态 Cookie
func (p *Pool) launch(ctx context.Context, cookieID, cookies string, headless bool) (*PageSession, error) {
	opts := append([]chromedp.ExecAllocatorOption{},
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.DisableGPU,
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.WindowSize(1280, 900),
	)
	if headless {
		opts = append(opts, chromedp.Headless)
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(p.ctx, opts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	session := &PageSession{
		tabCtx:      tabCtx,
		tabCancel:   tabCancel,
		allocCancel: allocCancel,
		cookieID:    cookieID,
		log:         p.log,
	}

	// 启动进程 + 开启网络域 + 注入 Cookie
	err := chromedp.Run(tabCtx,
		network.Enable(),
		setCookiesAction(cookies),
	)
	if err != nil {
		session.close()
		return nil, errorutil.Newf(errorutil.KindPoolAcquisition, "launch browser: %v", err)
	}

	return session, nil
}

// setCookiesAction 把 "k=v; k2=v2" 形式的 Cookie 串写入浏览器
func setCookiesAction(cookies string) chromedp.Action {
	return chromedp.ActionFunc(func(ctx context.Context) error {
		for _, pair := range strings.Split(cookies, ";") {
			pair = strings.TrimSpace(pair)
			if pair == "" {
				continue
			}
			name, value, found := strings.Cut(pair, "=")
			if !found || name == "" {
				continue
			}
			err := network.SetCookie(strings.TrimSpace(name), strings.TrimSpace(value)).
				WithDomain(cookieDomain).
				WithPath("/").
				Do(ctx)
			if err != nil {
				return fmt.Errorf("set cookie %q: %w", name, err)
			}
		}
		return nil
	})
}
