package fetcher

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"xyseller/ofetch/pkg/errorutil"
)

const sampleDetailPayload = `{
	"ret": ["SUCCESS::调用成功"],
	"data": {
		"status": 3,
		"utArgs": {"orderStatusName": "卖家已发货"},
		"components": [
			{"render": "logisticsVO", "data": {}},
			{
				"render": "orderInfoVO",
				"data": {
					"itemInfo": {"title": "二手机械键盘", "itemId": 778899001122},
					"priceInfo": {"amount": {"value": "128.00"}},
					"addressInfo": {
						"receiverName": "张三",
						"receiverMobile": "138****0000",
						"province": "浙江省",
						"city": "杭州市",
						"district": "西湖区",
						"detailAddress": "文一西路 100 号",
						"fullAddress": ""
					},
					"buyerInfo": {"userId": "2200112233"}
				}
			}
		],
		"bottomBarVO": {"buttonList": [{"tradeAction": "RATE"}, {"tradeAction": "CONTACT"}]}
	}
}`

func TestParseAPIPayload_FullDetail(t *testing.T) {
	fields, err := ParseAPIPayload([]byte(sampleDetailPayload))
	require.NoError(t, err)

	assert.Equal(t, StatusShipped, fields.OrderStatus)
	assert.Equal(t, "卖家已发货", fields.StatusText)
	assert.Equal(t, "二手机械键盘", fields.ItemTitle)
	assert.Equal(t, "778899001122", fields.ItemID)
	assert.Equal(t, "128.00", fields.Price)
	assert.Equal(t, "2200112233", fields.BuyerID)
	assert.Equal(t, "张三", fields.ReceiverName)
	assert.Equal(t, "138****0000", fields.ReceiverPhone)
	assert.Equal(t, "杭州市", fields.ReceiverCity)
	// fullAddress 为空时按省市区详拼接
	assert.Equal(t, "浙江省 杭州市 西湖区 文一西路 100 号", fields.ReceiverAddress)
	assert.True(t, fields.CanRate)
}

func TestParseAPIPayload_FullAddressPreferred(t *testing.T) {
	payload := `{
		"ret": ["SUCCESS"],
		"data": {
			"status": "4",
			"components": [{
				"render": "orderInfoVO",
				"data": {
					"addressInfo": {
						"receiverMobile": "13900000000",
						"province": "广东省",
						"fullAddress": "广东省深圳市南山区科技园"
					}
				}
			}]
		}
	}`
	fields, err := ParseAPIPayload([]byte(payload))
	require.NoError(t, err)
	assert.Equal(t, "广东省深圳市南山区科技园", fields.ReceiverAddress)
}

// 地址块整体缺失时不产生任何收货人字段
func TestParseAPIPayload_MissingAddressBlock(t *testing.T) {
	payload := `{
		"ret": ["SUCCESS"],
		"data": {
			"status": 4,
			"components": [{
				"render": "orderInfoVO",
				"data": {"itemInfo": {"title": "商品"}}
			}]
		}
	}`
	fields, err := ParseAPIPayload([]byte(payload))
	require.NoError(t, err)

	assert.Equal(t, "商品", fields.ItemTitle)
	assert.Empty(t, fields.ReceiverName)
	assert.Empty(t, fields.ReceiverPhone)
	assert.Empty(t, fields.ReceiverAddress)
	assert.Empty(t, fields.ReceiverCity)
}

func TestParseAPIPayload_GatewayFailure(t *testing.T) {
	payload := `{"ret": ["FAIL_SYS_SESSION_EXPIRED::令牌过期"], "data": {}}`
	_, err := ParseAPIPayload([]byte(payload))
	require.Error(t, err)
	assert.Equal(t, errorutil.KindParsePartial, errorutil.KindOf(err))
}

func TestParseAPIPayload_MalformedJSON(t *testing.T) {
	_, err := ParseAPIPayload([]byte(`{"ret": ["SUCCESS"`))
	require.Error(t, err)
	assert.Equal(t, errorutil.KindParsePartial, errorutil.KindOf(err))
}

// 子结构类型不符时仍提取其余字段，错误随字段一起返回
func TestParseAPIPayload_PartialDecode(t *testing.T) {
	payload := `{
		"ret": ["SUCCESS"],
		"data": {
			"status": 2,
			"utArgs": {"orderStatusName": "买家已付款"},
			"components": "oops"
		}
	}`
	fields, err := ParseAPIPayload([]byte(payload))
	require.Error(t, err)
	assert.Equal(t, errorutil.KindParsePartial, errorutil.KindOf(err))
	assert.Equal(t, StatusPendingShip, fields.OrderStatus)
	assert.Equal(t, "买家已付款", fields.StatusText)
}

func TestParseAPIPayload_NoRateButton(t *testing.T) {
	payload := `{
		"ret": ["SUCCESS"],
		"data": {"bottomBarVO": {"buttonList": [{"tradeAction": "CONTACT"}]}}
	}`
	fields, err := ParseAPIPayload([]byte(payload))
	require.NoError(t, err)
	assert.False(t, fields.CanRate)
}
