package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"xyseller/ofetch/internal/fetcher"
	"xyseller/ofetch/pkg/config"
	"xyseller/ofetch/pkg/infra/browser"
	"xyseller/ofetch/pkg/infra/mysql"
	"xyseller/ofetch/pkg/logger"
)

var (
	configPath   = flag.String("config", "./config/worker.yaml", "配置文件路径")
	testcasePath = flag.String("testcase", "./tools/fasttest/testcase/fetch.json", "测试用例路径")
	skipDB       = flag.Bool("skip-db", false, "跳过数据库（无缓存，全部实时抓取）")
	headful      = flag.Bool("headful", true, "有头模式（观察浏览器行为）")
)

// TestCase 测试用例结构
type TestCase struct {
	OrderID      string `json:"order_id"`
	CookieID     string `json:"cookie_id"`
	Cookies      string `json:"cookies"`
	ForceRefresh bool   `json:"force_refresh"`
}

// nilStore 空缓存（skip-db 模式）
type nilStore struct{}

func (nilStore) GetByOrderID(ctx context.Context, orderID string) (*fetcher.OrderRecord, error) {
	return nil, nil
}

func main() {
	flag.Parse()

	fmt.Println("========================================")
	fmt.Println("  FastTest - OFETCH 抓取快速测试工具")
	fmt.Println("========================================")

	// 1. 加载配置
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Printf("❌ Failed to load config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Config loaded: %s\n", cfg.App.Name)

	log, err := logger.NewZapLogger(cfg.App.LogLevel)
	if err != nil {
		fmt.Printf("❌ Failed to create logger: %v\n", err)
		os.Exit(1)
	}

	// 2. 加载测试用例
	testCases, err := loadTestCases(*testcasePath)
	if err != nil {
		fmt.Printf("❌ Failed to load test cases: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("✅ Loaded %d test cases from %s\n", len(testCases), *testcasePath)

	ctx := context.Background()

	// 3. 初始化依赖（根据 skip-db 参数决定）
	var store fetcher.OrderStore = nilStore{}
	if *skipDB {
		fmt.Println("⚠️  Skip-DB mode: cache disabled, all orders fetched live")
	} else {
		orderDAO, err := mysql.NewOrderDAO(cfg.MySQL.DSN, log)
		if err != nil {
			fmt.Printf("❌ Failed to create OrderDAO: %v\n", err)
			os.Exit(1)
		}
		defer orderDAO.Close()
		store = orderDAO
		fmt.Println("✅ Database initialized")
	}

	pool, err := browser.NewPool(ctx, cfg.Browser, log)
	if err != nil {
		fmt.Printf("❌ Failed to create browser pool: %v\n", err)
		os.Exit(1)
	}
	defer pool.Close()

	coordinator := fetcher.NewSessionCoordinator(pool, store, nil, fetcher.SessionConfig{
		NavTimeout:   cfg.Browser.NavTimeout,
		SettleDelay:  cfg.Browser.SettleDelay,
		ScrollPause:  cfg.Browser.ScrollPause,
		ScrollSettle: cfg.Browser.ScrollSettle,
	}, log)

	// 4. 执行测试用例
	fmt.Println("\n========================================")
	fmt.Println("  Running Test Cases")
	fmt.Println("========================================")

	successCount := 0
	failureCount := 0

	for i, tc := range testCases {
		fmt.Printf("\n[Test %d/%d] OrderID=%s\n", i+1, len(testCases), tc.OrderID)
		fmt.Println("----------------------------------------")

		startTime := time.Now()
		err := runTestCase(ctx, coordinator, tc)
		duration := time.Since(startTime)

		if err != nil {
			fmt.Printf("❌ FAILED: %v\n", err)
			fmt.Printf("⏱️  Duration: %v\n", duration)
			failureCount++
		} else {
			fmt.Printf("✅ PASSED\n")
			fmt.Printf("⏱️  Duration: %v\n", duration)
			successCount++
		}
	}

	// 5. 输出测试汇总
	fmt.Println("\n========================================")
	fmt.Println("  Test Summary")
	fmt.Println("========================================")
	fmt.Printf("Total: %d\n", len(testCases))
	fmt.Printf("Passed: %d ✅\n", successCount)
	fmt.Printf("Failed: %d ❌\n", failureCount)

	if failureCount > 0 {
		os.Exit(1)
	}
}

// loadTestCases 从 JSON 文件加载测试用例
func loadTestCases(path string) ([]TestCase, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read testcase file: %w", err)
	}

	var testCases []TestCase
	if err := json.Unmarshal(data, &testCases); err != nil {
		return nil, fmt.Errorf("failed to unmarshal testcase: %w", err)
	}

	return testCases, nil
}

// runTestCase 执行单个抓取用例并打印融合结果
func runTestCase(ctx context.Context, coordinator *fetcher.SessionCoordinator, tc TestCase) error {
	record, err := coordinator.FetchOrder(ctx, fetcher.FetchRequest{
		OrderID:      tc.OrderID,
		CookieID:     tc.CookieID,
		Cookies:      tc.Cookies,
		ForceRefresh: tc.ForceRefresh,
		Headless:     !*headful,
	})
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	fmt.Printf("  OrderStatus: %s (api=%q, dom=%q)\n", record.OrderStatus, record.APIStatus, record.DOMStatus)
	fmt.Printf("  ItemTitle:   %s\n", record.ItemTitle)
	fmt.Printf("  Amount:      %s x%s\n", record.Amount, record.Quantity)
	fmt.Printf("  OrderTime:   %s\n", record.OrderTime)
	fmt.Printf("  Receiver:    %s %s %s\n", record.ReceiverName, record.ReceiverPhone, record.ReceiverAddress)
	fmt.Printf("  FromCache:   %v\n", record.FromCache)

	return nil
}
