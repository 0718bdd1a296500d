package worker

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/atomic"

	"xyseller/ofetch/internal/fetcher"
	"xyseller/ofetch/pkg/config"
	"xyseller/ofetch/pkg/infra/browser"
	"xyseller/ofetch/pkg/infra/mysql"
	"xyseller/ofetch/pkg/infra/redis"
	"xyseller/ofetch/pkg/lmstfy"
	"xyseller/ofetch/pkg/logger"
)

// Manager 接口
type Manager interface {
	Start() error
	Shutdown()
}

// ManagerInstance Manager 实例
// 负责基础设施组装（lmstfy / MySQL / Redis / 浏览器池）和 Worker 生命周期
type ManagerInstance struct {
	ctx           context.Context
	cfg           *config.Config
	lmstfyClient  *lmstfy.Client
	orderDAO      *mysql.OrderDAO
	notifier      *redis.Notifier
	browserPool   *browser.Pool
	coordinator   *fetcher.SessionCoordinator
	callbackQueue string
	workers       []Worker
	closing       *atomic.Bool
	shutdownCh    chan struct{}
	wg            sync.WaitGroup
	logger        logger.Logger
}

// NewManagerInstance 创建 Manager
func NewManagerInstance(cfg *config.Config, log logger.Logger) (Manager, error) {
	ctx := context.Background()

	// 初始化 lmstfy 客户端
	lmstfyClient, err := lmstfy.NewClient(cfg.Lmstfy.Host, cfg.Lmstfy.Port, cfg.Lmstfy.Namespace, cfg.Lmstfy.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create lmstfy client: %w", err)
	}

	var callbackQueue string
	if len(cfg.Workers) > 0 {
		callbackQueue = cfg.Workers[0].CallbackQueue
	}
	if callbackQueue == "" {
		return nil, fmt.Errorf("callback_queue is required in worker config")
	}

	// 初始化订单缓存存储
	orderDAO, err := mysql.NewOrderDAO(cfg.MySQL.DSN, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create order dao: %w", err)
	}

	// 初始化抓取通知（可选，未配置 Redis 时关闭）
	var notifierImpl *redis.Notifier
	var notifier fetcher.Notifier
	if cfg.Redis.Addr != "" {
		notifierImpl, err = redis.NewNotifier(cfg.Redis, log)
		if err != nil {
			return nil, fmt.Errorf("failed to create notifier: %w", err)
		}
		notifier = notifierImpl
	}

	// 初始化浏览器池
	browserPool, err := browser.NewPool(ctx, cfg.Browser, log)
	if err != nil {
		return nil, fmt.Errorf("failed to create browser pool: %w", err)
	}

	// 组装抓取协调器
	coordinator := fetcher.NewSessionCoordinator(
		browserPool,
		orderDAO,
		notifier,
		fetcher.SessionConfig{
			NavTimeout:   cfg.Browser.NavTimeout,
			SettleDelay:  cfg.Browser.SettleDelay,
			ScrollPause:  cfg.Browser.ScrollPause,
			ScrollSettle: cfg.Browser.ScrollSettle,
		},
		log,
	)

	log.Infof(ctx, "[Manager] Initialized with callback_queue: %s", callbackQueue)

	return &ManagerInstance{
		ctx:           ctx,
		cfg:           cfg,
		lmstfyClient:  lmstfyClient,
		orderDAO:      orderDAO,
		notifier:      notifierImpl,
		browserPool:   browserPool,
		coordinator:   coordinator,
		callbackQueue: callbackQueue,
		closing:       atomic.NewBool(false),
		shutdownCh:    make(chan struct{}),
		workers:       make([]Worker, 0),
		logger:        log,
	}, nil
}

// Start 启动 Manager
func (m *ManagerInstance) Start() error {
	m.logger.Infof(m.ctx, "[Manager] Starting...")

	// 1. 加载所有 Worker
	if err := m.loadWorkers(); err != nil {
		return fmt.Errorf("failed to load workers: %w", err)
	}

	m.logger.Infof(m.ctx, "[Manager] All workers loaded, count: %d", len(m.workers))

	// 2. 启动所有 Worker（每个 Worker 在独立 goroutine）
	for _, worker := range m.workers {
		w := worker
		m.wg.Add(1)
		go func() {
			defer m.wg.Done()
			w.Start()
		}()
		m.logger.Infof(m.ctx, "[Manager] Worker started: %s", w.GetName())
	}

	m.logger.Infof(m.ctx, "[Manager] Start success")

	// 3. 阻塞等待退出信号
	<-m.shutdownCh

	return nil
}

// Shutdown 优雅退出
func (m *ManagerInstance) Shutdown() {
	m.logger.Infof(m.ctx, "[Manager] Began to close")

	// 原子操作，保证并发安全
	if m.closing.CAS(false, true) {
		// 1. 所有 Worker 安全退出
		for _, worker := range m.workers {
			m.logger.Infof(m.ctx, "[Manager] Shutting down worker: %s", worker.GetName())
			worker.Shutdown()
		}

		// 2. 等待所有 Worker 退出
		m.wg.Wait()

		// 3. 释放基础设施（Worker 退出后不再有抓取流量）
		m.browserPool.Close()
		if m.notifier != nil {
			if err := m.notifier.Close(); err != nil {
				m.logger.Warnf(m.ctx, "[Manager] close notifier: %v", err)
			}
		}
		if err := m.orderDAO.Close(); err != nil {
			m.logger.Warnf(m.ctx, "[Manager] close order dao: %v", err)
		}

		// 4. 关闭信号通道
		close(m.shutdownCh)

		m.logger.Infof(m.ctx, "[Manager] Shutdown complete")
	}
}

// loadWorkers 加载所有 Worker
func (m *ManagerInstance) loadWorkers() error {
	for i := range m.cfg.Workers {
		workerCfg := &m.cfg.Workers[i]

		// 核心处理函数：协调器抓取 + 回调发布
		proc := GetProcess(m.coordinator, m.lmstfyClient, m.callbackQueue, m.cfg.Fetch, m.logger)

		worker, err := NewWorkerInstance(
			m.ctx,
			workerCfg,
			m.lmstfyClient, // MessageSource
			proc,
			m.logger,
		)
		if err != nil {
			return fmt.Errorf("failed to create worker %s: %w", workerCfg.Name, err)
		}

		m.workers = append(m.workers, worker)
	}

	return nil
}
