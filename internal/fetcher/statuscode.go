package fetcher

// statusCodeTable 平台数字状态码到状态枚举的静态映射
var statusCodeTable = map[string]OrderStatus{
	"1":  StatusProcessing,
	"2":  StatusPendingShip,
	"3":  StatusShipped,
	"4":  StatusCompleted,
	"7":  StatusRefunding,
	"8":  StatusCancelled,
	"9":  StatusRefunding,
	"10": StatusCancelled,
	"11": StatusCompleted, // 交易完成
	"12": StatusCancelled, // 交易关闭
}

// ResolveStatusCode 解析平台状态值
// 已是枚举字符串则原样保留；已知数字码查表；其余原样透传（空值归为 unknown），
// 由融合阶段收口为枚举成员
func ResolveStatusCode(raw string) OrderStatus {
	if raw == "" {
		return StatusUnknown
	}
	if OrderStatus(raw).Valid() {
		return OrderStatus(raw)
	}
	if mapped, ok := statusCodeTable[raw]; ok {
		return mapped
	}
	if isDigits(raw) {
		return StatusUnknown
	}
	return OrderStatus(raw)
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
