package browser

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"xyseller/ofetch/internal/fetcher"
	"xyseller/ofetch/pkg/logger"
)

// PageSession 单个浏览器实例上的页面会话（实现 fetcher.Page）
type PageSession struct {
	tabCtx      context.Context
	tabCancel   context.CancelFunc
	allocCancel context.CancelFunc
	cookieID    string
	log         logger.Logger

	closeOnce sync.Once
}

// close 释放浏览器进程
func (p *PageSession) close() {
	p.closeOnce.Do(func() {
		p.tabCancel()
		p.allocCancel()
	})
}

// run 在页面上执行动作；调用方 ctx 取消时中断执行
func (p *PageSession) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(p.tabCtx)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return err
	}
	return nil
}

// Navigate 导航到指定 URL，等待页面就绪
func (p *PageSession) Navigate(ctx context.Context, url string, timeout time.Duration) (*fetcher.NavigationResult, error) {
	navCtx, cancel := context.WithTimeout(p.tabCtx, timeout)
	defer cancel()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			cancel()
		case <-done:
		}
	}()

	resp, err := chromedp.RunResponse(navCtx, chromedp.Navigate(url))
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("navigate %s: %w", url, ctx.Err())
		}
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}

	result := &fetcher.NavigationResult{Status: 200, FinalURL: url}
	// 本地跳转（about:blank 等）没有网络响应
	if resp != nil {
		result.Status = int(resp.Status)
		result.FinalURL = resp.URL
	}

	return result, nil
}

// InterceptResponses 注册响应拦截（URL 子串匹配），返回解码后响应体流
func (p *PageSession) InterceptResponses(ctx context.Context, urlFragment string) (<-chan []byte, error) {
	if err := p.run(ctx, network.Enable()); err != nil {
		return nil, fmt.Errorf("enable network domain: %w", err)
	}

	bodyCh := make(chan []byte, 8)

	var mu sync.Mutex
	matched := make(map[network.RequestID]bool)

	// 响应头先到，响应体在 LoadingFinished 后才可读取
	chromedp.ListenTarget(p.tabCtx, func(ev interface{}) {
		switch e := ev.(type) {
		case *network.EventResponseReceived:
			if strings.Contains(e.Response.URL, urlFragment) {
				mu.Lock()
				matched[e.RequestID] = true
				mu.Unlock()
			}

		case *network.EventLoadingFinished:
			mu.Lock()
			ok := matched[e.RequestID]
			delete(matched, e.RequestID)
			mu.Unlock()
			if !ok {
				return
			}

			requestID := e.RequestID
			go func() {
				var body []byte
				err := chromedp.Run(p.tabCtx, chromedp.ActionFunc(func(cctx context.Context) error {
					var err error
					body, err = network.GetResponseBody(requestID).Do(cctx)
					return err
				}))
				if err != nil {
					p.log.Warnf(p.tabCtx, "[PageSession] read response body failed: %v", err)
					return
				}

				select {
				case bodyCh <- body:
				default:
					// 消费方只取首个响应，后续直接丢弃
				}
			}()
		}
	})

	return bodyCh, nil
}

// Evaluate 在页面执行脚本；out 为 nil 时丢弃返回值
func (p *PageSession) Evaluate(ctx context.Context, script string, out interface{}) error {
	return p.run(ctx, chromedp.Evaluate(script, out))
}

// QuerySelector 查询单个元素；未命中返回 (nil, nil)
func (p *PageSession) QuerySelector(ctx context.Context, selector string) (fetcher.Element, error) {
	nodes, err := p.queryNodes(ctx, toXPath(selector))
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodeElement{page: p, node: nodes[0]}, nil
}

// QuerySelectorAll 查询全部匹配元素
func (p *PageSession) QuerySelectorAll(ctx context.Context, selector string) ([]fetcher.Element, error) {
	nodes, err := p.queryNodes(ctx, toXPath(selector))
	if err != nil {
		return nil, err
	}
	elems := make([]fetcher.Element, 0, len(nodes))
	for _, node := range nodes {
		elems = append(elems, &nodeElement{page: p, node: node})
	}
	return elems, nil
}

// PageText 页面可见文本
func (p *PageSession) PageText(ctx context.Context) (string, error) {
	var text string
	err := p.run(ctx, chromedp.Evaluate(`document.body ? document.body.innerText : ""`, &text))
	if err != nil {
		return "", fmt.Errorf("page text: %w", err)
	}
	return text, nil
}

// Content 页面原始标记
func (p *PageSession) Content(ctx context.Context) (string, error) {
	var html string
	err := p.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	if err != nil {
		return "", fmt.Errorf("page content: %w", err)
	}
	return html, nil
}

// Title 页面标题
func (p *PageSession) Title(ctx context.Context) (string, error) {
	var title string
	if err := p.run(ctx, chromedp.Title(&title)); err != nil {
		return "", fmt.Errorf("page title: %w", err)
	}
	return title, nil
}

// queryNodes 按 XPath 查询节点，不阻塞等待出现
func (p *PageSession) queryNodes(ctx context.Context, xpath string) ([]*cdp.Node, error) {
	var nodes []*cdp.Node
	err := p.run(ctx, chromedp.Nodes(xpath, &nodes, chromedp.BySearch, chromedp.AtLeast(0)))
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", xpath, err)
	}
	return nodes, nil
}

// nodeElement 页面元素句柄（实现 fetcher.Element）
type nodeElement struct {
	page *PageSession
	node *cdp.Node
}

// Text 元素文本
func (e *nodeElement) Text(ctx context.Context) (string, error) {
	var text string
	err := e.page.run(ctx, chromedp.Text(e.node.FullXPath(), &text, chromedp.BySearch, chromedp.AtLeast(0)))
	if err != nil {
		return "", fmt.Errorf("element text: %w", err)
	}
	return text, nil
}

// Closest 向上查找最近的匹配祖先；未命中返回 (nil, nil)
func (e *nodeElement) Closest(ctx context.Context, selector string) (fetcher.Element, error) {
	xpath := e.node.FullXPath() + "/ancestor-or-self::" + selector + "[1]"
	nodes, err := e.page.queryNodes(ctx, xpath)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodeElement{page: e.page, node: nodes[0]}, nil
}

// QuerySelector 在元素范围内查询；未命中返回 (nil, nil)
func (e *nodeElement) QuerySelector(ctx context.Context, selector string) (fetcher.Element, error) {
	xpath := e.node.FullXPath() + toRelativeXPath(selector)
	nodes, err := e.page.queryNodes(ctx, xpath)
	if err != nil {
		return nil, err
	}
	if len(nodes) == 0 {
		return nil, nil
	}
	return &nodeElement{page: e.page, node: nodes[0]}, nil
}

// toXPath 把扫描器使用的选择器方言翻译为 XPath
// 支持三种形式：text=/文本/、tag.class / .class、[class*="子串"]
func toXPath(selector string) string {
	return "//" + xpathBody(selector)
}

// toRelativeXPath 元素范围内的后代查询
func toRelativeXPath(selector string) string {
	return "/descendant::" + xpathBody(selector)
}

func xpathBody(selector string) string {
	// text=/文本/ → 文本包含匹配
	if strings.HasPrefix(selector, "text=/") && strings.HasSuffix(selector, "/") {
		needle := strings.TrimSuffix(strings.TrimPrefix(selector, "text=/"), "/")
		return fmt.Sprintf(`*[contains(text(), %q)]`, needle)
	}

	// [class*="子串"] → class 包含匹配
	if strings.HasPrefix(selector, `[class*="`) && strings.HasSuffix(selector, `"]`) {
		needle := strings.TrimSuffix(strings.TrimPrefix(selector, `[class*="`), `"]`)
		return fmt.Sprintf(`*[contains(@class, %q)]`, needle)
	}

	// tag.class / .class → class 全词匹配
	if tag, class, found := strings.Cut(selector, "."); found {
		if tag == "" {
			tag = "*"
		}
		return fmt.Sprintf(`%s[contains(concat(" ", normalize-space(@class), " "), %q)]`, tag, " "+class+" ")
	}

	// 裸标签名
	return selector
}
