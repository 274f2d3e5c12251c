package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 应用全局配置结构体
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"db"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Log      LogConfig      `mapstructure:"log"`
	Planning PlanningConfig `mapstructure:"planning"`
	Storage  StorageConfig  `mapstructure:"storage"`
}

// ServerConfig HTTP 服务器配置
type ServerConfig struct {
	Port    int        `mapstructure:"port"`
	BaseURL string     `mapstructure:"base_url"`
	CORS    CORSConfig `mapstructure:"cors"`
	// 导入接口需要较长写超时（大学期可达数千行）
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// CORSConfig 跨域配置
type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

// DatabaseConfig PostgreSQL 数据库配置
type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Name            string `mapstructure:"name"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	SSLMode         string `mapstructure:"sslmode"`
	Timezone        string `mapstructure:"timezone"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`  // 连接最大生命周期（分钟）
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time"` // 空闲连接最大存活时间（分钟）
}

// DSN 生成 PostgreSQL 连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s TimeZone=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode, c.Timezone,
	)
}

// RedisConfig Redis 缓存配置
type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// AuthConfig JWT 认证配置（本服务只校验 Access Token，不负责签发登录）
type AuthConfig struct {
	JWTSecret      string        `mapstructure:"jwt_secret"`
	AccessTokenTTL time.Duration `mapstructure:"access_token_ttl"`
	Issuer         string        `mapstructure:"issuer"`
}

// LogConfig 日志配置
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// PlanningConfig 排课（周模板导入与展开）配置
type PlanningConfig struct {
	Timezone string `mapstructure:"timezone"`
	// SupportedYears 闭馆日历允许联网拉取的年份，其余年份一律视为"无闭馆"
	SupportedYears []int `mapstructure:"supported_years"`
	// SecondHalfMonths 下半学年月份（默认 2-6），学期从这些月份开始时结束日截断到学年末
	SecondHalfMonths []int `mapstructure:"second_half_months"`
	// SchoolYearEnd 学年末（MM-DD），默认 06-30
	SchoolYearEnd  string            `mapstructure:"school_year_end"`
	ClosureWindow  TimeRangeConfig   `mapstructure:"closure_window"`
	Timeslots      TimeslotConfig    `mapstructure:"timeslots"`
	ClosureFeed    ClosureFeedConfig `mapstructure:"closure_feed"`
	CancelMarker   string            `mapstructure:"cancel_marker"`
	ImportTimeout  time.Duration     `mapstructure:"import_timeout"`
	MaxUploadBytes int64             `mapstructure:"max_upload_bytes"`
	// ImportRateLimit 每个 IP 每分钟允许的导入次数（0 表示不限制）
	ImportRateLimit int `mapstructure:"import_rate_limit"`
}

// TimeRangeConfig HH:MM-HH:MM 形式的时段
type TimeRangeConfig struct {
	Start string `mapstructure:"start"`
	End   string `mapstructure:"end"`
}

// TimeslotConfig 周模板时段表（按列顺序）
type TimeslotConfig struct {
	Standard  []TimeRangeConfig `mapstructure:"standard"`
	Wednesday []TimeRangeConfig `mapstructure:"wednesday"`
}

// ClosureFeedConfig 学校假期 ICS 源配置
type ClosureFeedConfig struct {
	// URL 可包含 {year} 占位符；不包含时每个年份拉取同一文档后按年过滤
	URL            string        `mapstructure:"url"`
	SummaryPattern string        `mapstructure:"summary_pattern"`
	FetchTimeout   time.Duration `mapstructure:"fetch_timeout"`
	CacheTTL       time.Duration `mapstructure:"cache_ttl"`
}

// StorageConfig 上传文件存储配置
type StorageConfig struct {
	Driver   string    `mapstructure:"driver"` // local | oss
	LocalDir string    `mapstructure:"local_dir"`
	OSS      OSSConfig `mapstructure:"oss"`
}

// OSSConfig 阿里云 OSS 配置
type OSSConfig struct {
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	AccessKeySecret string `mapstructure:"access_key_secret"`
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
}

// Load 从配置文件与环境变量加载配置
// 优先级：环境变量 > 配置文件 > 默认值
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	// ── 配置文件 ──
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}

	// ── 环境变量 ──
	v.SetEnvPrefix("PLANNING")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		// 配置文件不存在时仅依赖默认值和环境变量
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	// ── 关键配置校验 ──
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.base_url", "http://localhost:8080")
	v.SetDefault("server.cors.allow_origins", []string{"http://localhost:5173"})
	v.SetDefault("server.write_timeout", "3m")

	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.name", "planning")
	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.timezone", "Europe/Paris")
	v.SetDefault("db.max_open_conns", 25)
	v.SetDefault("db.max_idle_conns", 10)
	v.SetDefault("db.conn_max_lifetime", 60)  // 60分钟
	v.SetDefault("db.conn_max_idle_time", 30) // 30分钟

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("auth.access_token_ttl", "15m")
	v.SetDefault("auth.issuer", "projet-5iw")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("planning.timezone", "Europe/Paris")
	v.SetDefault("planning.supported_years", []int{2024, 2025, 2026})
	v.SetDefault("planning.second_half_months", []int{2, 3, 4, 5, 6})
	v.SetDefault("planning.school_year_end", "06-30")
	v.SetDefault("planning.closure_window.start", "08:00")
	v.SetDefault("planning.closure_window.end", "16:00")
	v.SetDefault("planning.timeslots.standard", []map[string]string{
		{"start": "08:30", "end": "09:30"},
		{"start": "09:30", "end": "10:30"},
		{"start": "10:45", "end": "12:00"},
		{"start": "13:30", "end": "14:45"},
		{"start": "14:45", "end": "16:00"},
	})
	v.SetDefault("planning.timeslots.wednesday", []map[string]string{
		{"start": "08:30", "end": "09:30"},
		{"start": "09:30", "end": "10:45"},
		{"start": "10:45", "end": "12:00"},
	})
	v.SetDefault("planning.closure_feed.url", "https://fr.ftp.opendatasoft.com/openscol/fr-en-calendrier-scolaire/Zone-C.ics")
	v.SetDefault("planning.closure_feed.summary_pattern", `(?i)vacances|pont`)
	v.SetDefault("planning.closure_feed.fetch_timeout", "20s")
	v.SetDefault("planning.closure_feed.cache_ttl", "24h")
	v.SetDefault("planning.cancel_marker", "[Annulé] ")
	v.SetDefault("planning.import_timeout", "2m")
	v.SetDefault("planning.max_upload_bytes", 10<<20)
	v.SetDefault("planning.import_rate_limit", 10)

	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.local_dir", "./data/uploads")
}

// Validate 校验关键配置项
func (c *Config) Validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 不能为空")
	}
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("配置校验失败: auth.jwt_secret 长度不能少于 16 字符")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("配置校验失败: server.port 必须在 1-65535 之间")
	}
	if _, err := time.LoadLocation(c.Planning.Timezone); err != nil {
		return fmt.Errorf("配置校验失败: planning.timezone 无效: %w", err)
	}
	if len(c.Planning.Timeslots.Standard) == 0 || len(c.Planning.Timeslots.Wednesday) == 0 {
		return fmt.Errorf("配置校验失败: planning.timeslots 不能为空")
	}
	if _, _, err := ParseMonthDay(c.Planning.SchoolYearEnd); err != nil {
		return fmt.Errorf("配置校验失败: planning.school_year_end 无效: %w", err)
	}
	switch c.Storage.Driver {
	case "local", "oss":
	default:
		return fmt.Errorf("配置校验失败: storage.driver 仅支持 local | oss")
	}
	return nil
}

// ParseMonthDay 解析 MM-DD
func ParseMonthDay(s string) (time.Month, int, error) {
	t, err := time.Parse("01-02", s)
	if err != nil {
		return 0, 0, err
	}
	return t.Month(), t.Day(), nil
}
