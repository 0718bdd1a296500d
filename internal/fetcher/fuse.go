package fetcher

// domStatusNotDetected DOM 未检出状态时的诊断占位值
const domStatusNotDetected = "not_detected"

// fuseRecord 按字段级优先级融合两路部分字段，构造输出记录（纯函数）
//
// 优先级表（保持实测得到的不对称性，不做泛化）：
//   - 状态：DOM 优先（页面实际渲染内容视为访问时刻的真值），unknown/缺失回退 API
//   - 金额、收货人姓名/电话/地址：DOM 优先，回退 API
//   - 规格、数量、下单时间：仅 DOM（API 不携带）
//   - 商品标题/ID、买家 ID、收货城市、可评价：仅 API（DOM 扫描不可达）
func fuseRecord(orderID, url, title string, api APIFields, dom DOMFields, timestamp int64) *OrderRecord {
	record := &OrderRecord{
		OrderID:   orderID,
		URL:       url,
		Title:     title,
		Timestamp: timestamp,
		FromCache: false,
	}

	// 两路原始信号先落诊断字段，再决定胜者
	apiStatus := api.OrderStatus
	if apiStatus == "" {
		apiStatus = StatusUnknown
	}
	record.APIStatus = string(apiStatus)
	if dom.OrderStatus == "" {
		record.DOMStatus = domStatusNotDetected
	} else {
		record.DOMStatus = string(dom.OrderStatus)
	}

	fused := apiStatus
	if dom.OrderStatus != "" && dom.OrderStatus != StatusUnknown {
		fused = dom.OrderStatus
	}
	// 收口为枚举成员：未映射的平台值归为 unknown
	if !fused.Valid() {
		fused = StatusUnknown
	}
	record.OrderStatus = fused

	record.StatusText = api.StatusText
	record.ItemTitle = api.ItemTitle
	record.ItemID = api.ItemID
	record.BuyerID = api.BuyerID
	record.CanRate = api.CanRate
	record.ReceiverCity = api.ReceiverCity

	record.SpecName = dom.SpecName
	record.SpecValue = dom.SpecValue
	record.OrderTime = dom.OrderTime

	record.Quantity = dom.Quantity
	if record.Quantity == "" {
		record.Quantity = "1"
	}

	record.Amount = firstNonEmpty(dom.Amount, api.Price)
	record.ReceiverName = firstNonEmpty(dom.ReceiverName, api.ReceiverName)
	record.ReceiverPhone = firstNonEmpty(dom.ReceiverPhone, api.ReceiverPhone)
	record.ReceiverAddress = firstNonEmpty(dom.ReceiverAddress, api.ReceiverAddress)

	return record
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
