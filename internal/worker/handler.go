package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"xyseller/ofetch/internal/fetcher"
	"xyseller/ofetch/internal/framework"
	"xyseller/ofetch/pkg/config"
	"xyseller/ofetch/pkg/logger"
)

// GetProcess 返回核心处理函数（注入到 Processor）
// 解析抓取 Job → 协调器分批抓取 → 回调消息发布到回调队列
func GetProcess(
	coordinator *fetcher.SessionCoordinator,
	publisher framework.CallbackPublisher,
	callbackQueue string,
	fetchCfg config.FetchConfig,
	log logger.Logger,
) framework.Proc {
	return func(ctx context.Context, msg *framework.Message) *framework.JobResp {
		startTime := time.Now()

		// 1. 解析 Job
		params, requestID, err := parseFetchJob(msg)
		if err != nil {
			log.Errorf(ctx, "[GetProcess] parse job %s failed: %v", msg.ID, err)
			return &framework.JobResp{Action: framework.JobActionBury}
		}

		// 2. 注入 TraceID
		ctx = context.WithValue(ctx, "trace_id", requestID)
		log.Infof(ctx, "[GetProcess] Processing fetch job: request_id=%s, orders=%d",
			requestID, len(params.OrderIDs))

		// 3. 分批抓取（panic 由批量层兜底为失败条目，这里不再捕获）
		opts := fetcher.ChunkOptions{
			BatchOptions: fetcher.BatchOptions{
				CookieID:      params.CookieID,
				Cookies:       params.Cookies,
				ForceRefresh:  params.ForceRefresh,
				MaxConcurrent: params.MaxConcurrent,
			},
			ChunkSize:  params.ChunkSize,
			ChunkDelay: fetchCfg.ChunkDelay,
		}
		if opts.MaxConcurrent <= 0 {
			opts.MaxConcurrent = fetchCfg.MaxConcurrent
		}
		if opts.ChunkSize <= 0 {
			opts.ChunkSize = fetchCfg.ChunkSize
		}

		results := coordinator.FetchInChunks(ctx, params.OrderIDs, opts)

		// 4. 构造并发布回调
		callback := FetchCallback{
			RequestID:   requestID,
			Status:      CallbackStatusSuccess,
			Results:     results,
			ProcessedAt: time.Now().Unix(),
		}

		callbackJSON, err := json.Marshal(callback)
		if err != nil {
			log.Errorf(ctx, "[GetProcess] marshal callback failed: %v", err)
			return &framework.JobResp{Action: framework.JobActionBury}
		}

		// ttl=0 永不过期, delay=0 立即可用；发布失败则重投整个 Job 重试
		if err := publisher.Publish(callbackQueue, callbackJSON, 0, 0); err != nil {
			log.Errorf(ctx, "[GetProcess] publish callback failed: %v", err)
			return &framework.JobResp{Action: framework.JobActionRelease}
		}

		log.Infof(ctx, "[GetProcess] Fetch job complete: request_id=%s, duration=%v",
			requestID, time.Since(startTime))

		return &framework.JobResp{Action: framework.JobActionAck, Data: callbackJSON}
	}
}

// parseFetchJob 解析并校验抓取 Job；RequestID 为空时生成
func parseFetchJob(msg *framework.Message) (*FetchParams, string, error) {
	var job FetchJob
	if err := json.Unmarshal(msg.Data, &job); err != nil {
		return nil, "", fmt.Errorf("json unmarshal failed: %w", err)
	}

	if job.Payload == nil || job.Payload.Data == nil {
		return nil, "", fmt.Errorf("invalid job structure: payload.data is nil")
	}
	data := job.Payload.Data

	if data.ActionType != ActionTypeOrderFetch {
		return nil, "", fmt.Errorf("unsupported action_type: %s", data.ActionType)
	}
	if data.Data == nil || len(data.Data.OrderIDs) == 0 {
		return nil, "", fmt.Errorf("order_ids is required")
	}

	requestID := data.RequestID
	if requestID == "" {
		requestID = uuid.New().String()
	}

	return data.Data, requestID, nil
}
