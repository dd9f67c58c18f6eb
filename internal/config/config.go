// Package config 提供配置管理
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/quekou/quekou/pkg/model"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `yaml:"app"`
	Database DatabaseConfig `yaml:"database"`
	API      APIConfig      `yaml:"api"`
	Engine   EngineConfig   `yaml:"engine"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string `yaml:"name"`
	Env      string `yaml:"env"`
	Port     int    `yaml:"port"`
	LogLevel string `yaml:"log_level"`
}

// DatabaseConfig 数据库配置
// Enabled 为 false 时服务以纯内存模式运行，分析结果不落库
type DatabaseConfig struct {
	Enabled         bool          `yaml:"enabled"`
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Name            string        `yaml:"name"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"ssl_mode"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// APIConfig API配置
type APIConfig struct {
	RateLimit int           `yaml:"rate_limit"`
	Timeout   time.Duration `yaml:"timeout"`
	APIKey    string        `yaml:"api_key"`
}

// EngineConfig 分析引擎默认配置
// 单次运行可以在请求里覆盖，这里是服务级默认值
type EngineConfig struct {
	SlotMinutes         int     `yaml:"slot_minutes"`
	StatisticMethod     string  `yaml:"statistic_method"`
	IQRMultiplier       float64 `yaml:"iqr_multiplier"`
	MaxShortageHoursDay float64 `yaml:"max_shortage_hours_per_day"`
	NeedCeilingPerSlot  float64 `yaml:"need_ceiling_per_slot"`
	BlowupFactor        float64 `yaml:"blowup_factor"`
	Workers             int     `yaml:"workers"`
}

// ToEngineConfig 转换为引擎运行配置
func (c *EngineConfig) ToEngineConfig() model.EngineConfig {
	cfg := model.DefaultEngineConfig()
	if c.SlotMinutes > 0 {
		cfg.SlotMinutes = c.SlotMinutes
	}
	if c.StatisticMethod != "" {
		cfg.StatisticMethod = model.StatisticMethod(c.StatisticMethod)
	}
	if c.IQRMultiplier > 0 {
		cfg.IQRMultiplier = c.IQRMultiplier
	}
	if c.MaxShortageHoursDay > 0 {
		cfg.MaxShortageHoursDay = c.MaxShortageHoursDay
	}
	if c.NeedCeilingPerSlot > 0 {
		cfg.NeedCeilingPerSlot = c.NeedCeilingPerSlot
	}
	if c.BlowupFactor > 1 {
		cfg.BlowupFactor = c.BlowupFactor
	}
	if c.Workers > 0 {
		cfg.Workers = c.Workers
	}
	return cfg
}

// MetricsConfig 监控配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{
		App: AppConfig{
			Name:     getEnv("APP_NAME", "quekou"),
			Env:      getEnv("APP_ENV", "development"),
			Port:     getEnvInt("APP_PORT", 7013),
			LogLevel: getEnv("APP_LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			Enabled:         getEnvBool("DB_ENABLED", false),
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnvInt("DB_PORT", 5432),
			Name:            getEnv("DB_NAME", "quekou"),
			User:            getEnv("DB_USER", "quekou"),
			Password:        getEnv("DB_PASSWORD", "quekou123"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
		},
		API: APIConfig{
			RateLimit: getEnvInt("API_RATE_LIMIT", 100),
			Timeout:   getEnvDuration("API_TIMEOUT", 30*time.Second),
			APIKey:    getEnv("API_KEY", ""),
		},
		Engine: EngineConfig{
			SlotMinutes:         getEnvInt("ENGINE_SLOT_MINUTES", 30),
			StatisticMethod:     getEnv("ENGINE_STATISTIC_METHOD", "median"),
			IQRMultiplier:       getEnvFloat("ENGINE_IQR_MULTIPLIER", 1.5),
			MaxShortageHoursDay: getEnvFloat("ENGINE_MAX_SHORTAGE_HOURS_PER_DAY", 200),
			NeedCeilingPerSlot:  getEnvFloat("ENGINE_NEED_CEILING_PER_SLOT", 50),
			BlowupFactor:        getEnvFloat("ENGINE_BLOWUP_FACTOR", 3.0),
			Workers:             getEnvInt("ENGINE_WORKERS", 4),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	return cfg, nil
}

// IsDevelopment 检查是否为开发环境
func (c *Config) IsDevelopment() bool {
	return c.App.Env == "development"
}

// IsProduction 检查是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}

// IsTest 检查是否为测试环境
func (c *Config) IsTest() bool {
	return c.App.Env == "test"
}

// 辅助函数
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
