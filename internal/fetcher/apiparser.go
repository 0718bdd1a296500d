package fetcher

import (
	"encoding/json"
	"strconv"
	"strings"

	"xyseller/ofetch/pkg/errorutil"
)

// interceptPathFragment 订单详情接口的 URL 特征（子串匹配）
const interceptPathFragment = "mtop.idle.web.trade.order.detail"

// apiEnvelope mtop 网关响应外层
type apiEnvelope struct {
	Ret  []string        `json:"ret"`
	Data json.RawMessage `json:"data"`
}

// orderDetailPayload 订单详情数据层
// 所有字段按缺省容忍解析：嵌套字段缺失只产生零值，不产生失败
type orderDetailPayload struct {
	Status interface{} `json:"status"`
	UTArgs struct {
		OrderStatusName string `json:"orderStatusName"`
	} `json:"utArgs"`
	Components  []orderComponent `json:"components"`
	BottomBarVO struct {
		ButtonList []struct {
			TradeAction string `json:"tradeAction"`
		} `json:"buttonList"`
	} `json:"bottomBarVO"`
}

// orderComponent 页面 UI 组件描述符
type orderComponent struct {
	Render string `json:"render"`
	Data   struct {
		ItemInfo struct {
			Title  string      `json:"title"`
			ItemID interface{} `json:"itemId"`
		} `json:"itemInfo"`
		PriceInfo struct {
			Amount struct {
				Value string `json:"value"`
			} `json:"amount"`
		} `json:"priceInfo"`
		AddressInfo struct {
			ReceiverName   string `json:"receiverName"`
			ReceiverMobile string `json:"receiverMobile"`
			Province       string `json:"province"`
			City           string `json:"city"`
			District       string `json:"district"`
			DetailAddress  string `json:"detailAddress"`
			FullAddress    string `json:"fullAddress"`
		} `json:"addressInfo"`
		BuyerInfo struct {
			UserID interface{} `json:"userId"`
		} `json:"buyerInfo"`
	} `json:"data"`
}

// orderInfoComponentRender 订单/商品/价格/地址/买家信息组件标识
const orderInfoComponentRender = "orderInfoVO"

// ParseAPIPayload 解析拦截到的订单详情响应体
// 网关失败或 JSON 不合法返回错误，但错误不中止会话，调用方按警告记录
func ParseAPIPayload(raw []byte) (APIFields, error) {
	var envelope apiEnvelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return APIFields{}, errorutil.Newf(errorutil.KindParsePartial, "decode api envelope: %v", err)
	}
	if len(envelope.Ret) == 0 || !strings.HasPrefix(envelope.Ret[0], "SUCCESS") {
		ret := "missing"
		if len(envelope.Ret) > 0 {
			ret = envelope.Ret[0]
		}
		return APIFields{}, errorutil.Newf(errorutil.KindParsePartial, "api returned failure: %s", ret)
	}
	return parseOrderDetail(envelope.Data)
}

// parseOrderDetail 解析订单数据层为部分字段
// 类型不匹配时 encoding/json 仍会填充其余字段，与容错解析语义一致：
// 返回已提取到的字段与首个解码错误
func parseOrderDetail(data []byte) (APIFields, error) {
	var payload orderDetailPayload
	decodeErr := json.Unmarshal(data, &payload)

	fields := APIFields{
		OrderStatus: ResolveStatusCode(jsonToString(payload.Status)),
		StatusText:  payload.UTArgs.OrderStatusName,
	}

	for _, component := range payload.Components {
		if component.Render != orderInfoComponentRender {
			continue
		}

		fields.ItemTitle = component.Data.ItemInfo.Title
		fields.ItemID = jsonToString(component.Data.ItemInfo.ItemID)
		fields.Price = component.Data.PriceInfo.Amount.Value
		fields.BuyerID = jsonToString(component.Data.BuyerInfo.UserID)

		addr := component.Data.AddressInfo
		if addr.ReceiverName != "" || addr.ReceiverMobile != "" ||
			addr.FullAddress != "" || addr.Province != "" || addr.City != "" ||
			addr.District != "" || addr.DetailAddress != "" {
			fields.ReceiverName = addr.ReceiverName
			fields.ReceiverPhone = addr.ReceiverMobile
			fields.ReceiverCity = addr.City

			if addr.FullAddress != "" {
				fields.ReceiverAddress = addr.FullAddress
			} else {
				parts := make([]string, 0, 4)
				for _, p := range []string{addr.Province, addr.City, addr.District, addr.DetailAddress} {
					if p != "" {
						parts = append(parts, p)
					}
				}
				fields.ReceiverAddress = strings.Join(parts, " ")
			}
		}
	}

	for _, button := range payload.BottomBarVO.ButtonList {
		if button.TradeAction == "RATE" {
			fields.CanRate = true
			break
		}
	}

	if decodeErr != nil {
		return fields, errorutil.Newf(errorutil.KindParsePartial, "decode order detail: %v", decodeErr)
	}
	return fields, nil
}

// jsonToString 字符串化宽类型 JSON 值（平台侧 ID 和状态码时为数字、时为字符串）
func jsonToString(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatInt(int64(t), 10)
	default:
		return ""
	}
}
