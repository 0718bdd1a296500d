package framework

import (
	"context"
	"time"
)

// Message 队列消息（框架层内部流转）
type Message struct {
	ID       string // 消息 ID
	Queue    string // 队列名称
	Data     []byte // 原始 Job 数据
	Attempts int    // 重试次数
}

// MessageSource 消息源接口（适配不同 MQ）
type MessageSource interface {
	// Consume 消费消息（阻塞，直到拉取到消息或超时；超时返回 (nil, nil)）
	Consume(queue string, timeout time.Duration, ttr time.Duration) (*Message, error)

	// Ack 确认消息（删除消息）
	Ack(queue string, jobID string) error
}

// CallbackPublisher 回调发布接口
type CallbackPublisher interface {
	Publish(queue string, data []byte, ttl, delay uint32) error
}

// JobAction 消息处理动作
type JobAction int

const (
	// JobActionAck 处理成功，确认消息
	JobActionAck JobAction = iota
	// JobActionRelease 需要重试，不确认，等 TTR 到期重新投递
	JobActionRelease
	// JobActionBury 失败且不可重试；结果已经由回调上报，确认掉防止毒消息重投
	JobActionBury
)

// JobResp 消息处理结果
type JobResp struct {
	Action JobAction // 处理动作
	Data   []byte    // 响应数据（回调消息体，日志用）
}

// Proc 业务处理函数类型（注入到 Processor）
type Proc func(ctx context.Context, msg *Message) *JobResp
