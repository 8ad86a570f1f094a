package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application.
// Values are resolved in order: built-in defaults, the optional YAML file
// named by CONFIG_FILE, then environment variables (including .env).
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Redis     RedisConfig     `yaml:"redis"`
	Blob      BlobConfig      `yaml:"blob"`
	WebSocket WebSocketConfig `yaml:"websocket"`
}

type ServerConfig struct {
	Port        string   `yaml:"port"`
	Environment string   `yaml:"environment"`
	GinMode     string   `yaml:"gin_mode"`
	CORSOrigins []string `yaml:"cors_origins"`
}

type StoreConfig struct {
	Driver     string `yaml:"driver"`
	PebblePath string `yaml:"pebble_path"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	MaxConns int    `yaml:"max_conns"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type BlobConfig struct {
	Driver     string   `yaml:"driver"`
	UploadDir  string   `yaml:"upload_dir"`
	PublicBase string   `yaml:"public_base"`
	MaxBytes   int64    `yaml:"max_bytes"`
	S3         S3Config `yaml:"s3"`
}

type S3Config struct {
	Region     string `yaml:"region"`
	Bucket     string `yaml:"bucket"`
	AccessKey  string `yaml:"access_key"`
	SecretKey  string `yaml:"secret_key"`
	Endpoint   string `yaml:"endpoint"`
	PublicBase string `yaml:"public_base"`
}

type WebSocketConfig struct {
	SendBuffer int     `yaml:"send_buffer"`
	EventRPS   float64 `yaml:"event_rps"`
	EventBurst int     `yaml:"event_burst"`
}

const (
	StoreDriverPebble   = "pebble"
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"

	BlobDriverLocal = "local"
	BlobDriverS3    = "s3"
)

// Default returns the configuration used when nothing else is provided.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:        "3000",
			Environment: "development",
			GinMode:     "debug",
			CORSOrigins: []string{"*"},
		},
		Store: StoreConfig{
			Driver:     StoreDriverPebble,
			PebblePath: "chat.db",
		},
		Database: DatabaseConfig{
			Host:     "localhost",
			Port:     "5432",
			User:     "postgres",
			Password: "postgres",
			Name:     "livechat",
			MaxConns: 20,
		},
		Blob: BlobConfig{
			Driver:     BlobDriverLocal,
			UploadDir:  "uploads",
			PublicBase: "/uploads",
			MaxBytes:   25 << 20,
		},
		WebSocket: WebSocketConfig{
			SendBuffer: 256,
			EventRPS:   20,
			EventBurst: 40,
		},
	}
}

func LoadConfig() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := Default()
	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}
	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Environment = getEnv("APP_ENV", cfg.Server.Environment)
	cfg.Server.GinMode = getEnv("GIN_MODE", cfg.Server.GinMode)
	cfg.Server.CORSOrigins = getEnvAsList("CORS_ORIGINS", cfg.Server.CORSOrigins)

	cfg.Store.Driver = getEnv("STORE_DRIVER", cfg.Store.Driver)
	cfg.Store.PebblePath = getEnv("PEBBLE_PATH", cfg.Store.PebblePath)

	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.Name = getEnv("DB_NAME", cfg.Database.Name)
	cfg.Database.MaxConns = getEnvAsInt("DB_MAX_CONNS", cfg.Database.MaxConns)

	cfg.Redis.Addr = getEnv("REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)

	cfg.Blob.Driver = getEnv("BLOB_DRIVER", cfg.Blob.Driver)
	cfg.Blob.UploadDir = getEnv("UPLOAD_DIR", cfg.Blob.UploadDir)
	cfg.Blob.PublicBase = getEnv("UPLOAD_PUBLIC_BASE", cfg.Blob.PublicBase)
	cfg.Blob.MaxBytes = int64(getEnvAsInt("UPLOAD_MAX_BYTES", int(cfg.Blob.MaxBytes)))
	cfg.Blob.S3.Region = getEnv("S3_REGION", cfg.Blob.S3.Region)
	cfg.Blob.S3.Bucket = getEnv("S3_BUCKET", cfg.Blob.S3.Bucket)
	cfg.Blob.S3.AccessKey = getEnv("S3_ACCESS_KEY", cfg.Blob.S3.AccessKey)
	cfg.Blob.S3.SecretKey = getEnv("S3_SECRET_KEY", cfg.Blob.S3.SecretKey)
	cfg.Blob.S3.Endpoint = getEnv("S3_ENDPOINT", cfg.Blob.S3.Endpoint)
	cfg.Blob.S3.PublicBase = getEnv("S3_PUBLIC_BASE", cfg.Blob.S3.PublicBase)

	cfg.WebSocket.SendBuffer = getEnvAsInt("WS_SEND_BUFFER", cfg.WebSocket.SendBuffer)
	cfg.WebSocket.EventRPS = getEnvAsFloat("WS_EVENT_RPS", cfg.WebSocket.EventRPS)
	cfg.WebSocket.EventBurst = getEnvAsInt("WS_EVENT_BURST", cfg.WebSocket.EventBurst)
}

// Validate rejects driver names the server cannot build.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case StoreDriverPebble, StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}
	switch c.Blob.Driver {
	case BlobDriverLocal:
	case BlobDriverS3:
		if c.Blob.S3.Region == "" || c.Blob.S3.Bucket == "" {
			return fmt.Errorf("s3 blob driver requires S3_REGION and S3_BUCKET")
		}
	default:
		return fmt.Errorf("unknown BLOB_DRIVER %q", c.Blob.Driver)
	}
	if c.WebSocket.SendBuffer <= 0 {
		return fmt.Errorf("WS_SEND_BUFFER must be positive")
	}
	return nil
}

// PostgresDSN builds the keyword/value connection string for the postgres driver.
func (d DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		d.Host, d.User, d.Password, d.Name, d.Port)
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	valueStr, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
