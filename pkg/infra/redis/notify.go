package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"xyseller/ofetch/internal/fetcher"
	"xyseller/ofetch/pkg/config"
	"xyseller/ofetch/pkg/logger"
)

const defaultChannel = "order_fetch_complete"

// FetchNotification 抓取完成通知消息
type FetchNotification struct {
	OrderID     string `json:"order_id"`
	OrderStatus string `json:"order_status"`
	FromCache   bool   `json:"from_cache"`
	Timestamp   int64  `json:"timestamp"`
}

// Notifier 抓取完成通知发布器（实现 fetcher.Notifier）
type Notifier struct {
	client  *redis.Client
	channel string
	log     logger.Logger
}

// NewNotifier 创建 Notifier 实例
func NewNotifier(cfg config.RedisConfig, log logger.Logger) (*Notifier, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// 测试连接
	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	channel := cfg.Channel
	if channel == "" {
		channel = defaultChannel
	}

	return &Notifier{
		client:  client,
		channel: channel,
		log:     log,
	}, nil
}

// NotifyFetched 发布抓取完成通知
func (n *Notifier) NotifyFetched(ctx context.Context, record *fetcher.OrderRecord) error {
	notification := FetchNotification{
		OrderID:     record.OrderID,
		OrderStatus: string(record.OrderStatus),
		FromCache:   record.FromCache,
		Timestamp:   record.Timestamp,
	}

	msgJSON, err := json.Marshal(notification)
	if err != nil {
		return fmt.Errorf("failed to marshal notification: %w", err)
	}

	if err := n.client.Publish(ctx, n.channel, msgJSON).Err(); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}

	n.log.Debugf(ctx, "[Notifier] Published to %s: order_id=%s", n.channel, record.OrderID)
	return nil
}

// Subscribe 订阅通知频道（测试用）
func (n *Notifier) Subscribe(ctx context.Context) *redis.PubSub {
	return n.client.Subscribe(ctx, n.channel)
}

// Close 关闭 Redis 连接
func (n *Notifier) Close() error {
	return n.client.Close()
}
