package fetcher

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"xyseller/ofetch/pkg/logger"
)

func newTestScanner(page *fakePage) *DomScanner {
	return NewDomScanner(page, logger.NewNopLogger())
}

func TestPickStatus_ProminenceBreaksConflict(t *testing.T) {
	// 页面同时渲染小字"处理中"和大号加粗"交易成功"，权威横幅胜出
	nodes := []TextNodeStyle{
		{Text: "处理中", FontSizePx: 12, FontWeight: 400},
		{Text: "交易成功", FontSizePx: 28, FontWeight: 600},
	}
	status, matched := pickStatus(nodes)
	assert.True(t, matched)
	assert.Equal(t, StatusCompleted, status)
}

func TestPickStatus_CancelPhraseHighPriority(t *testing.T) {
	// 取消短语基础优先级高，即便字号不占优
	nodes := []TextNodeStyle{
		{Text: "交易成功", FontSizePx: 16, FontWeight: 400},
		{Text: "买家取消了订单", FontSizePx: 14, FontWeight: 400},
	}
	status, matched := pickStatus(nodes)
	assert.True(t, matched)
	assert.Equal(t, StatusCancelled, status)
}

func TestPickStatus_LongPhraseBeatsSubstring(t *testing.T) {
	// 单节点内按表序匹配：长短语先于其子串命中
	nodes := []TextNodeStyle{
		{Text: "卖家已发货，待买家确认收货", FontSizePx: 20, FontWeight: 500},
	}
	status, matched := pickStatus(nodes)
	assert.True(t, matched)
	assert.Equal(t, StatusShipped, status)
}

func TestPickStatus_NoMatch(t *testing.T) {
	nodes := []TextNodeStyle{
		{Text: "商品详情", FontSizePx: 14},
		{Text: "联系客服", FontSizePx: 14},
	}
	status, matched := pickStatus(nodes)
	assert.False(t, matched)
	assert.Equal(t, StatusUnknown, status)
}

func TestPickStatus_LengthBounds(t *testing.T) {
	long := make([]rune, 0, 101)
	for i := 0; i < 99; i++ {
		long = append(long, '订')
	}
	long = append(long, []rune("交易成功")...)
	nodes := []TextNodeStyle{
		{Text: "退", FontSizePx: 30},       // 单字符丢弃
		{Text: string(long), FontSizePx: 30}, // 超长丢弃
	}
	_, matched := pickStatus(nodes)
	assert.False(t, matched)
}

func TestMatchStatusPhrase_TableOrder(t *testing.T) {
	entry, ok := matchStatusPhrase("买家已付款，请尽快发货")
	assert.True(t, ok)
	assert.Equal(t, StatusPendingShip, entry.Status)
	assert.Equal(t, 60, entry.Priority)

	entry, ok = matchStatusPhrase("待发货")
	assert.True(t, ok)
	assert.Equal(t, 50, entry.Priority)
}

func TestProminenceScore(t *testing.T) {
	entry := StatusPhrase{Phrase: "交易成功", Status: StatusCompleted, Priority: 40}
	assert.Equal(t, 68, prominenceScore(entry, TextNodeStyle{FontSizePx: 28, FontWeight: 400}))
	// 加粗 +5；阈值 500 本身不算加粗
	assert.Equal(t, 73, prominenceScore(entry, TextNodeStyle{FontSizePx: 28, FontWeight: 600}))
	assert.Equal(t, 68, prominenceScore(entry, TextNodeStyle{FontSizePx: 28, FontWeight: 500}))
}

func TestScanStatus_UsesDump(t *testing.T) {
	page := newFakePage()
	page.statusDump = statusDumpResult{
		Nodes: []TextNodeStyle{
			{Text: "卖家已发货", FontSizePx: 24, FontWeight: 600},
		},
		NodesScanned: 321,
	}

	fields := newTestScanner(page).Scan(context.Background())

	assert.Equal(t, StatusShipped, fields.OrderStatus)
	assert.Equal(t, 321, fields.NodesScanned)
}

func TestScanStatus_EvalFailureDegradesToUnknown(t *testing.T) {
	page := newFakePage()
	page.evalErr = assert.AnError

	fields := newTestScanner(page).Scan(context.Background())
	assert.Equal(t, StatusUnknown, fields.OrderStatus)
}

func TestScanAmount(t *testing.T) {
	page := newFakePage()
	page.selectors[amountSelector] = &fakeElement{text: " ¥128.00 "}

	fields := newTestScanner(page).Scan(context.Background())
	assert.Equal(t, "¥128.00", fields.Amount)
}

func TestScanOrderTime_LabelAnchored(t *testing.T) {
	page := newFakePage()
	page.selectors["text=/下单时间/"] = &fakeElement{text: "下单时间：2026/08/01 10:30:15"}

	fields := newTestScanner(page).Scan(context.Background())
	assert.Equal(t, "2026-08-01 10:30:15", fields.OrderTime)
}

func TestScanOrderTime_ContentFallback(t *testing.T) {
	page := newFakePage()
	page.content = `<div><span>订单创建时间</span><span>2026-08-02 09:00</span></div>`

	fields := newTestScanner(page).Scan(context.Background())
	assert.Equal(t, "2026-08-02 09:00", fields.OrderTime)
}

func TestScanReceiver_LabelPath(t *testing.T) {
	value := &fakeElement{text: "张三 138****0000 浙江省杭州市西湖区文一西路100号"}
	label := &fakeElement{
		closest: map[string]*fakeElement{
			"li": {children: map[string]*fakeElement{addressValueSelector: value}},
		},
	}
	page := newFakePage()
	page.selectors[addressLabelSelector] = label

	fields := newTestScanner(page).Scan(context.Background())

	assert.Equal(t, "张三", fields.ReceiverName)
	assert.Equal(t, "138****0000", fields.ReceiverPhone)
	assert.Equal(t, "浙江省杭州市西湖区文一西路100号", fields.ReceiverAddress)
}

func TestScanReceiver_PageTextFallbackStripsCopy(t *testing.T) {
	page := newFakePage()
	page.pageText = "订单信息\n收货地址\n李四 13912345678 上海市浦东新区张江路 1 号 复制\n其他"

	fields := newTestScanner(page).Scan(context.Background())

	assert.Equal(t, "李四", fields.ReceiverName)
	assert.Equal(t, "13912345678", fields.ReceiverPhone)
	assert.Equal(t, "上海市浦东新区张江路 1 号", fields.ReceiverAddress)
}

func TestSplitReceiverLine(t *testing.T) {
	name, phone, address := splitReceiverLine("王五 186****1234 北京市朝阳区望京街 2 号")
	assert.Equal(t, "王五", name)
	assert.Equal(t, "186****1234", phone)
	assert.Equal(t, "北京市朝阳区望京街 2 号", address)

	name, phone, address = splitReceiverLine("没有号码的行")
	assert.Empty(t, name)
	assert.Empty(t, phone)
	assert.Empty(t, address)
}

func TestScanSKU(t *testing.T) {
	page := newFakePage()
	page.selectorLists[skuSelector] = []*fakeElement{
		{text: "成色: 99新"},
		{text: "数量: x2"},
	}

	fields := newTestScanner(page).Scan(context.Background())

	assert.Equal(t, "成色", fields.SpecName)
	assert.Equal(t, "99新", fields.SpecValue)
	assert.Equal(t, "2", fields.Quantity)
}

func TestScanSKU_QuantityDefaultsToOne(t *testing.T) {
	page := newFakePage()
	page.selectorLists[skuSelector] = []*fakeElement{{text: "规格: 标准版"}}

	fields := newTestScanner(page).Scan(context.Background())
	assert.Equal(t, "1", fields.Quantity)
}
