package fetcher

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"xyseller/ofetch/pkg/logger"
)

// 页面元素选择器（站点样式类名带构建哈希，随前端发布变化时只需改这里）
const (
	amountSelector       = ".boldNum--JgEOXfA3"
	skuSelector          = ".sku--u_ddZval"
	addressLabelSelector = "text=/收货地址/"
	addressValueSelector = `span.textItemValue--w9qCWO1o`
	addressValueFallback = `[class*="textItemValue"]`
)

// timeSelectors 下单时间的标签锚定选择器（按命中概率排序）
var timeSelectors = []string{
	"text=/下单时间/",
	"text=/订单创建时间/",
	"text=/创建时间/",
}

var (
	orderTimePattern   = regexp.MustCompile(`\d{4}[-/]\d{2}[-/]\d{2}\s+\d{2}:\d{2}(?::\d{2})?`)
	labeledTimePattern = regexp.MustCompile(`(?:下单时间|订单创建时间|创建时间).*?(\d{4}[-/]\d{2}[-/]\d{2}\s+\d{2}:\d{2}(?::\d{2})?)`)
	mobilePattern      = regexp.MustCompile(`1[3-9]\d[\d*]{8}`)
	copySuffixPattern  = regexp.MustCompile(`复制$`)
)

// StatusPhrase 状态短语表项
// 更长更具体的短语与终态措辞（明确的关闭/取消）基础优先级更高，
// 泛化措辞（如"处理中"）最低；表序即单节点内的匹配序
type StatusPhrase struct {
	Phrase   string
	Status   OrderStatus
	Priority int
}

// statusPhrases 状态短语有序表
var statusPhrases = []StatusPhrase{
	// 交易关闭
	{"买家取消了订单", StatusCancelled, 100},
	{"卖家取消了订单", StatusCancelled, 100},
	{"交易关闭", StatusCancelled, 90},
	{"订单已关闭", StatusCancelled, 90},
	// 已发货
	{"卖家已发货，待买家确认收货", StatusShipped, 85},
	{"已发货，待买家确认收货", StatusShipped, 80},
	{"卖家已发货", StatusShipped, 75},
	{"已发货", StatusShipped, 70},
	{"待买家确认收货", StatusShipped, 65},
	// 待发货
	{"买家已付款，请尽快发货", StatusPendingShip, 60},
	{"买家已付款", StatusPendingShip, 55},
	{"待发货", StatusPendingShip, 50},
	{"等待卖家发货", StatusPendingShip, 45},
	// 已完成
	{"交易成功", StatusCompleted, 40},
	{"订单完成", StatusCompleted, 35},
	{"交易完成", StatusCompleted, 30},
	// 退款
	{"退款中", StatusRefunding, 25},
	{"申请退款", StatusRefunding, 20},
	// 处理中
	{"处理中", StatusProcessing, 10},
}

// maxStatusNodes 状态扫描的文本节点上限（病态页面的成本兜底）
const maxStatusNodes = 5000

// TextNodeStyle 页面文本节点及其父元素渲染样式
type TextNodeStyle struct {
	Text       string `json:"text"`
	FontSizePx int    `json:"fontSize"`
	FontWeight int    `json:"fontWeight"`
}

// statusDumpResult 节点采集脚本的返回结构
type statusDumpResult struct {
	Nodes        []TextNodeStyle `json:"nodes"`
	NodesScanned int             `json:"nodesScanned"`
}

// statusDumpScript 单次页面内扫描采集文本节点与渲染样式
// 短语匹配与打分留在 Go 侧，保证启发式可独立单测
var statusDumpScript = fmt.Sprintf(`(() => {
	const walker = document.createTreeWalker(document.body, NodeFilter.SHOW_TEXT, null);
	const nodes = [];
	let nodeCount = 0;
	const maxNodes = %d;
	let node;
	while ((node = walker.nextNode()) && nodeCount < maxNodes) {
		nodeCount++;
		const text = node.textContent?.trim();
		if (!text || text.length < 2 || text.length > 100) continue;
		const parent = node.parentElement;
		if (!parent) continue;
		const style = window.getComputedStyle(parent);
		nodes.push({
			text: text,
			fontSize: parseInt(style.fontSize) || 0,
			fontWeight: parseInt(style.fontWeight) || 0,
		});
	}
	return {nodes: nodes, nodesScanned: nodeCount};
})()`, maxStatusNodes)

// matchStatusPhrase 按表序取文本命中的第一个短语
func matchStatusPhrase(text string) (StatusPhrase, bool) {
	for _, entry := range statusPhrases {
		if strings.Contains(text, entry.Phrase) {
			return entry, true
		}
	}
	return StatusPhrase{}, false
}

// prominenceScore 显著度打分：基础优先级 + 渲染字号 + 加粗加分
// 状态措辞可能在面包屑、提示气泡、履历里多次出现，
// 大字号/加粗的那一处几乎总是权威的状态横幅，用显著度破除平票
func prominenceScore(entry StatusPhrase, node TextNodeStyle) int {
	score := entry.Priority + node.FontSizePx
	if node.FontWeight > 500 {
		score += 5
	}
	return score
}

// pickStatus 在全文档候选里取显著度得分最高的一处匹配
func pickStatus(nodes []TextNodeStyle) (OrderStatus, bool) {
	best := StatusUnknown
	bestScore := -1
	for _, node := range nodes {
		text := strings.TrimSpace(node.Text)
		runes := utf8.RuneCountInString(text)
		if runes < 2 || runes > 100 {
			continue
		}
		entry, ok := matchStatusPhrase(text)
		if !ok {
			continue
		}
		if score := prominenceScore(entry, node); score > bestScore {
			best = entry.Status
			bestScore = score
		}
	}
	return best, bestScore >= 0
}

// DomScanner 对已稳定页面执行一组相互独立、各自容错的提取策略
type DomScanner struct {
	page Page
	log  logger.Logger
}

// NewDomScanner 创建 DOM 扫描器
func NewDomScanner(page Page, log logger.Logger) *DomScanner {
	return &DomScanner{page: page, log: log}
}

// Scan 执行全部提取策略
// 单个策略失败只丢失对应字段，不向上传播
func (s *DomScanner) Scan(ctx context.Context) DOMFields {
	var fields DOMFields

	s.scanAmount(ctx, &fields)
	s.scanOrderTime(ctx, &fields)
	s.scanReceiver(ctx, &fields)
	s.scanSKU(ctx, &fields)
	s.scanStatus(ctx, &fields)

	if fields.Quantity == "" {
		fields.Quantity = "1"
	}

	return fields
}

// scanAmount 金额：定位加粗数字元素
func (s *DomScanner) scanAmount(ctx context.Context, fields *DOMFields) {
	elem, err := s.page.QuerySelector(ctx, amountSelector)
	if err != nil {
		s.log.Warnf(ctx, "[DomScanner] amount query failed: %v", err)
		return
	}
	if elem == nil {
		return
	}
	text, err := elem.Text(ctx)
	if err != nil {
		s.log.Warnf(ctx, "[DomScanner] amount text failed: %v", err)
		return
	}
	fields.Amount = strings.TrimSpace(text)
}

// scanOrderTime 下单时间：标签锚定选择器逐个尝试，全部未命中再扫原始标记
func (s *DomScanner) scanOrderTime(ctx context.Context, fields *DOMFields) {
	for _, selector := range timeSelectors {
		elem, err := s.page.QuerySelector(ctx, selector)
		if err != nil || elem == nil {
			continue
		}
		text, err := elem.Text(ctx)
		if err != nil {
			continue
		}
		if match := orderTimePattern.FindString(text); match != "" {
			fields.OrderTime = strings.ReplaceAll(match, "/", "-")
			return
		}
	}

	content, err := s.page.Content(ctx)
	if err != nil {
		s.log.Warnf(ctx, "[DomScanner] page content failed: %v", err)
		return
	}
	if m := labeledTimePattern.FindStringSubmatch(content); m != nil {
		fields.OrderTime = strings.ReplaceAll(m[1], "/", "-")
	}
}

// scanReceiver 收货人：主策略走标签元素，失败回退整页文本逐行扫描
func (s *DomScanner) scanReceiver(ctx context.Context, fields *DOMFields) {
	if s.scanReceiverByLabel(ctx, fields) {
		return
	}
	s.scanReceiverByPageText(ctx, fields)
}

// scanReceiverByLabel 定位"收货地址"标签，上溯到所在列表项，读相邻值元素
func (s *DomScanner) scanReceiverByLabel(ctx context.Context, fields *DOMFields) bool {
	label, err := s.page.QuerySelector(ctx, addressLabelSelector)
	if err != nil || label == nil {
		return false
	}
	item, err := label.Closest(ctx, "li")
	if err != nil || item == nil {
		return false
	}
	value, err := item.QuerySelector(ctx, addressValueSelector)
	if err != nil || value == nil {
		value, err = item.QuerySelector(ctx, addressValueFallback)
		if err != nil || value == nil {
			return false
		}
	}
	text, err := value.Text(ctx)
	if err != nil {
		return false
	}

	name, phone, address := splitReceiverLine(strings.TrimSpace(text))
	if phone == "" {
		return false
	}
	fields.ReceiverName = name
	fields.ReceiverPhone = phone
	fields.ReceiverAddress = address
	return name != "" && phone != ""
}

// scanReceiverByPageText 整页可见文本逐行找标签，取下一行，并剥离尾部"复制"
func (s *DomScanner) scanReceiverByPageText(ctx context.Context, fields *DOMFields) {
	body, err := s.page.PageText(ctx)
	if err != nil {
		s.log.Warnf(ctx, "[DomScanner] page text failed: %v", err)
		return
	}
	lines := strings.Split(body, "\n")
	for i, line := range lines {
		if !strings.Contains(line, "收货地址") || i+1 >= len(lines) {
			continue
		}
		name, phone, address := splitReceiverLine(strings.TrimSpace(lines[i+1]))
		if phone != "" {
			fields.ReceiverName = name
			fields.ReceiverPhone = phone
			fields.ReceiverAddress = strings.TrimSpace(copySuffixPattern.ReplaceAllString(address, ""))
		}
		break
	}
}

// splitReceiverLine 用手机号（可含打码位）切分收货人行：号前为姓名，号后为地址
func splitReceiverLine(text string) (name, phone, address string) {
	loc := mobilePattern.FindStringIndex(text)
	if loc == nil {
		return "", "", ""
	}
	name = strings.TrimSpace(text[:loc[0]])
	phone = text[loc[0]:loc[1]]
	address = strings.TrimSpace(text[loc[1]:])
	return name, phone, address
}

// scanSKU 规格与数量：第一个 sku 元素为 "标签: 值" 规格，第二个为数量
func (s *DomScanner) scanSKU(ctx context.Context, fields *DOMFields) {
	elems, err := s.page.QuerySelectorAll(ctx, skuSelector)
	if err != nil {
		s.log.Warnf(ctx, "[DomScanner] sku query failed: %v", err)
		return
	}

	if len(elems) >= 1 {
		if text, err := elems[0].Text(ctx); err == nil {
			if idx := strings.Index(text, ":"); idx >= 0 {
				fields.SpecName = strings.TrimSpace(text[:idx])
				fields.SpecValue = strings.TrimSpace(text[idx+1:])
			}
		}
	}

	if len(elems) >= 2 {
		if text, err := elems[1].Text(ctx); err == nil {
			quantity := strings.TrimSpace(text)
			if idx := strings.Index(quantity, ":"); idx >= 0 {
				quantity = strings.TrimSpace(quantity[idx+1:])
			}
			quantity = strings.TrimPrefix(quantity, "x")
			if quantity != "" {
				fields.Quantity = quantity
			}
		}
	}
}

// scanStatus 状态启发式：单次页面内采集 + Go 侧短语匹配与显著度打分
func (s *DomScanner) scanStatus(ctx context.Context, fields *DOMFields) {
	var dump statusDumpResult
	if err := s.page.Evaluate(ctx, statusDumpScript, &dump); err != nil {
		s.log.Warnf(ctx, "[DomScanner] status dump failed: %v", err)
		fields.OrderStatus = StatusUnknown
		return
	}

	fields.NodesScanned = dump.NodesScanned
	status, matched := pickStatus(dump.Nodes)
	fields.OrderStatus = status
	if !matched {
		s.log.Warnf(ctx, "[DomScanner] no status phrase matched, scanned %d nodes", dump.NodesScanned)
	}
}
