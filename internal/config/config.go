package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Port              string        `mapstructure:"port" json:"port"`
	UploadDir         string        `mapstructure:"upload_dir" json:"upload_dir"`
	MaxUploadSize     int64         `mapstructure:"max_upload_size" json:"max_upload_size"`
	AllowedTypes      []string      `mapstructure:"allowed_types" json:"allowed_types"`
	AllowedExtensions []string      `mapstructure:"allowed_extensions" json:"allowed_extensions"`
	JWTSecret         string        `mapstructure:"jwt_secret" json:"jwt_secret"`
	Store             StoreConfig   `mapstructure:"store" json:"store"`
	Redis             RedisConfig   `mapstructure:"redis" json:"redis"`
	Log               LogConfig     `mapstructure:"log" json:"log"`
	CORS              CORSConfig    `mapstructure:"cors" json:"cors"`
	Janitor           JanitorConfig `mapstructure:"janitor" json:"janitor"`
	RateLimit         struct {
		Requests int `mapstructure:"requests" json:"requests"`
		Duration int `mapstructure:"duration" json:"duration"`
	} `mapstructure:"rate_limit" json:"rate_limit"`
}

// StoreConfig 元数据存储: memory, sqlite, mysql, postgres, redis
type StoreConfig struct {
	Driver string `mapstructure:"driver" json:"driver"`
	DSN    string `mapstructure:"dsn" json:"dsn"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr" json:"addr"`
	Password string `mapstructure:"password" json:"password"`
	DB       int    `mapstructure:"db" json:"db"`
	PoolSize int    `mapstructure:"pool_size" json:"pool_size"`
}

type LogConfig struct {
	Level      string `mapstructure:"level" json:"level"`
	File       string `mapstructure:"file" json:"file"`
	MaxSize    int    `mapstructure:"max_size" json:"max_size"` // MB
	MaxBackups int    `mapstructure:"max_backups" json:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" json:"max_age"` // days
	Compress   bool   `mapstructure:"compress" json:"compress"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins" json:"allowed_origins"`
}

// JanitorConfig 孤儿文件清理, SweepInterval 为 0 时关闭
type JanitorConfig struct {
	SweepInterval time.Duration `mapstructure:"sweep_interval" json:"sweep_interval"`
	Grace         time.Duration `mapstructure:"grace" json:"grace"`
}

const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

var DefaultAllowedTypes = []string{"image/jpeg", "image/png", "image/gif", "image/webp"}

var DefaultAllowedExtensions = []string{".jpg", ".jpeg", ".png", ".gif", ".webp"}

// Load reads the configuration once. Sources, lowest priority first:
// built-in defaults, the JSON file at path (optional), a .env file
// (optional) and the process environment. PORT and UPLOAD_DIR are read
// without prefix; every other key uses GALLERY_, e.g. GALLERY_STORE_DRIVER.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("json")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) && !isNotExist(err) {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		}
	}

	v.SetEnvPrefix("gallery")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("port", "PORT", "GALLERY_PORT")
	_ = v.BindEnv("upload_dir", "UPLOAD_DIR", "GALLERY_UPLOAD_DIR")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.AllowedTypes = splitList(cfg.AllowedTypes)
	cfg.AllowedExtensions = splitList(cfg.AllowedExtensions)
	cfg.CORS.AllowedOrigins = splitList(cfg.CORS.AllowedOrigins)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "3000")
	v.SetDefault("upload_dir", "uploads")
	v.SetDefault("max_upload_size", 5*1024*1024)
	v.SetDefault("allowed_types", DefaultAllowedTypes)
	v.SetDefault("allowed_extensions", DefaultAllowedExtensions)
	v.SetDefault("jwt_secret", "")
	v.SetDefault("store.driver", DriverSQLite)
	v.SetDefault("store.dsn", "gallery.db")
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.pool_size", 10)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
	v.SetDefault("log.max_size", 100)
	v.SetDefault("log.max_backups", 3)
	v.SetDefault("log.max_age", 28)
	v.SetDefault("log.compress", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("janitor.sweep_interval", "0s")
	v.SetDefault("janitor.grace", "10m")
	v.SetDefault("rate_limit.requests", 100)
	v.SetDefault("rate_limit.duration", 1)
}

func (c *Config) Validate() error {
	if c.Port == "" {
		return errors.New("port must not be empty")
	}
	if c.UploadDir == "" {
		return errors.New("upload_dir must not be empty")
	}
	if c.MaxUploadSize <= 0 {
		return fmt.Errorf("max_upload_size must be positive, got %d", c.MaxUploadSize)
	}
	if len(c.AllowedTypes) == 0 || len(c.AllowedExtensions) == 0 {
		return errors.New("allowed_types and allowed_extensions must not be empty")
	}
	switch c.Store.Driver {
	case DriverMemory, DriverRedis:
	case DriverSQLite, DriverMySQL, DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for driver %q", c.Store.Driver)
		}
	default:
		return fmt.Errorf("unsupported store.driver %q", c.Store.Driver)
	}
	if c.RateLimit.Requests <= 0 || c.RateLimit.Duration <= 0 {
		return errors.New("rate_limit.requests and rate_limit.duration must be positive")
	}
	if c.Janitor.SweepInterval < 0 || c.Janitor.Grace < 0 {
		return errors.New("janitor durations must not be negative")
	}
	// 宽限期为 0 会删掉正在上传、尚未写入记录的文件
	if c.Janitor.SweepInterval > 0 && c.Janitor.Grace <= 0 {
		return errors.New("janitor.grace must be positive when janitor.sweep_interval is set")
	}
	return nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}

// splitList accepts both JSON arrays and comma separated env values.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
