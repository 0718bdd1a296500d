package errorutil

import "fmt"

// Kind 错误分类
type Kind string

const (
	// KindPoolAcquisition 获取浏览器实例失败（会话级致命，不重试）
	KindPoolAcquisition Kind = "POOL_ACQUISITION"
	// KindNavigation 页面导航失败：非 200、无响应或超时（会话级致命）
	KindNavigation Kind = "NAVIGATION"
	// KindInterceptionAbsent 未拦截到 API 响应（非致命，会话降级为纯 DOM）
	KindInterceptionAbsent Kind = "INTERCEPTION_ABSENT"
	// KindParsePartial 子解析失败（非致命，仅影响对应字段）
	KindParsePartial Kind = "PARSE_PARTIAL"
	// KindStoreRead 缓存读取失败（按缓存缺失处理，继续实时抓取）
	KindStoreRead Kind = "STORE_READ"
)

// Error 错误结构（包含分类与可重试标记）
type Error struct {
	Kind       Kind   `json:"kind"`
	Message    string `json:"message"`
	Retryable  bool   `json:"retryable"`
	DevDetails string `json:"dev_details,omitempty"`
}

// Error 实现 error 接口
func (e *Error) Error() string {
	return e.Message
}

// New 创建指定分类的错误
func New(kind Kind, message string) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Retryable: false,
	}
}

// Newf 创建指定分类的错误（格式化）
func Newf(kind Kind, format string, args ...interface{}) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Retriable 创建可重试错误（由上层通过重新提交订单 ID 表达重试）
func Retriable(kind Kind, message string) *Error {
	return &Error{
		Kind:      kind,
		Message:   message,
		Retryable: true,
	}
}

// Wrap 包装错误
func Wrap(err error) *Error {
	if err == nil {
		return nil
	}

	// 如果已经是 Error 类型，直接返回
	if e, ok := err.(*Error); ok {
		return e
	}

	return &Error{
		Kind:       "",
		Message:    err.Error(),
		Retryable:  false,
		DevDetails: fmt.Sprintf("%+v", err),
	}
}

// KindOf 提取错误分类（非 *Error 返回空串）
func KindOf(err error) Kind {
	if e, ok := err.(*Error); ok {
		return e.Kind
	}
	return ""
}
