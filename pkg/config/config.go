package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置
type Config struct {
	App     AppConfig      `mapstructure:"app"`
	MySQL   MySQLConfig    `mapstructure:"mysql"`
	Redis   RedisConfig    `mapstructure:"redis"`
	Lmstfy  LmstfyConfig   `mapstructure:"lmstfy"`
	Browser BrowserConfig  `mapstructure:"browser"`
	Fetch   FetchConfig    `mapstructure:"fetch"`
	Workers []WorkerConfig `mapstructure:"workers"`
}

// AppConfig 应用配置
type AppConfig struct {
	Name     string `mapstructure:"name"`
	Env      string `mapstructure:"env"`
	LogLevel string `mapstructure:"log_level"`
}

// MySQLConfig MySQL 配置（订单缓存读取）
type MySQLConfig struct {
	DSN string `mapstructure:"dsn"`
}

// RedisConfig Redis 配置（抓取完成通知）
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Channel  string `mapstructure:"channel"` // 通知频道
}

// LmstfyConfig Lmstfy 配置
type LmstfyConfig struct {
	Host      string `mapstructure:"host"`
	Port      int    `mapstructure:"port"`
	Namespace string `mapstructure:"namespace"`
	Token     string `mapstructure:"token"`
}

// BrowserConfig 浏览器配置
// 页面等待时长均为经验调参值，随站点渲染时序变化，故放配置而非代码常量
type BrowserConfig struct {
	PoolSize     int           `mapstructure:"pool_size"`     // 浏览器上下文池大小
	Headless     bool          `mapstructure:"headless"`      // 无头模式
	NavTimeout   time.Duration `mapstructure:"nav_timeout"`   // 单次导航超时
	SettleDelay  time.Duration `mapstructure:"settle_delay"`  // 导航完成后的渲染等待
	ScrollPause  time.Duration `mapstructure:"scroll_pause"`  // 滚动到底部后的停顿
	ScrollSettle time.Duration `mapstructure:"scroll_settle"` // 滚回顶部后的停顿
}

// FetchConfig 抓取调度配置
type FetchConfig struct {
	MaxConcurrent int           `mapstructure:"max_concurrent"` // 批内最大并发
	ChunkSize     int           `mapstructure:"chunk_size"`     // 分批大小
	ChunkDelay    time.Duration `mapstructure:"chunk_delay"`    // 批次间冷却
}

// WorkerConfig Worker 配置
type WorkerConfig struct {
	Name          string           `mapstructure:"name"`
	QueueName     string           `mapstructure:"queue_name"`
	CallbackQueue string           `mapstructure:"callback_queue"` // 回调队列名称
	Subscriber    SubscriberConfig `mapstructure:"subscriber"`
	Processor     ProcessorConfig  `mapstructure:"processor"`
}

// SubscriberConfig Subscriber 配置
type SubscriberConfig struct {
	Threads      int           `mapstructure:"threads"`       // 并发拉取数
	Rate         time.Duration `mapstructure:"rate"`          // 拉取速率
	Timeout      time.Duration `mapstructure:"timeout"`       // 拉取超时
	TTR          time.Duration `mapstructure:"ttr"`           // Time-To-Run
	ErrorBackoff time.Duration `mapstructure:"error_backoff"` // 错误退避时间
}

// ProcessorConfig Processor 配置
type ProcessorConfig struct {
	Threads    int           `mapstructure:"threads"`     // 并发处理数
	BufferSize int           `mapstructure:"buffer_size"` // Channel 缓冲大小
	Timeout    time.Duration `mapstructure:"timeout"`     // 单个任务超时
}

// Load 加载配置文件
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config failed: %w", err)
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config failed: %w", err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

// applyDefaults 填充缺省值
func (c *Config) applyDefaults() {
	if c.Browser.PoolSize <= 0 {
		c.Browser.PoolSize = 3
	}
	if c.Browser.NavTimeout <= 0 {
		c.Browser.NavTimeout = 30 * time.Second
	}
	if c.Browser.SettleDelay <= 0 {
		c.Browser.SettleDelay = 2 * time.Second
	}
	if c.Browser.ScrollPause <= 0 {
		c.Browser.ScrollPause = 500 * time.Millisecond
	}
	if c.Browser.ScrollSettle <= 0 {
		c.Browser.ScrollSettle = time.Second
	}
	if c.Fetch.MaxConcurrent <= 0 {
		c.Fetch.MaxConcurrent = 5
	}
	if c.Fetch.ChunkSize <= 0 {
		c.Fetch.ChunkSize = 10
	}
	if c.Fetch.ChunkDelay <= 0 {
		c.Fetch.ChunkDelay = 2 * time.Second
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	if c.App.Name == "" {
		return fmt.Errorf("app.name is required")
	}
	if c.MySQL.DSN == "" {
		return fmt.Errorf("mysql.dsn is required")
	}
	if c.Lmstfy.Host == "" {
		return fmt.Errorf("lmstfy.host is required")
	}
	if len(c.Workers) == 0 {
		return fmt.Errorf("at least one worker is required")
	}
	return nil
}
