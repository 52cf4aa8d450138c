package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DB     DBConfig
	MinIO  MinIOConfig
	JWT    JWTConfig
	Server ServerConfig
	Audit  AuditConfig
	Links  LinkConfig
	Trash  TrashConfig
	Quota  QuotaConfig
	Access AccessConfig
	Log    LogConfig
}

type DBConfig struct {
	Driver   string
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
	Path     string
}

type MinIOConfig struct {
	Endpoint       string
	PublicEndpoint string
	AccessKey      string
	SecretKey      string
	Bucket         string
	Region         string
	UseSSL         bool
}

type JWTConfig struct {
	Secret string
}

type ServerConfig struct {
	Port        string
	CORSOrigins string
	BodyLimitMB int
}

type AuditConfig struct {
	QueueSize int
}

type LinkConfig struct {
	DownloadTTL time.Duration
	UploadTTL   time.Duration
}

type TrashConfig struct {
	GraceDays int
}

type QuotaConfig struct {
	// Bytes is the per-owner quota reported by the usage view. Zero disables
	// the percentage.
	Bytes int64
}

type AccessConfig struct {
	// ShareInheritance is "parent" or "ancestors".
	ShareInheritance string
}

type LogConfig struct {
	Level     string
	Format    string
	SentryDSN string
}

// Load reads configuration from the environment. A .env file in the working
// directory is loaded first when present; real environment variables win.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		DB: DBConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "drive"),
			Password: getEnv("DB_PASSWORD", "drive_secret"),
			Name:     getEnv("DB_NAME", "drive"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			Path:     getEnv("DB_PATH", "drive.db"),
		},
		MinIO: MinIOConfig{
			Endpoint:       getEnv("MINIO_ENDPOINT", "localhost:9000"),
			PublicEndpoint: getEnv("MINIO_PUBLIC_ENDPOINT", getEnv("MINIO_ENDPOINT", "localhost:9000")),
			AccessKey:      getEnv("MINIO_ACCESS_KEY", "drive"),
			SecretKey:      getEnv("MINIO_SECRET_KEY", "drive_secret"),
			Bucket:         getEnv("MINIO_BUCKET", "drive"),
			Region:         getEnv("MINIO_REGION", "us-east-1"),
			UseSSL:         getEnvAsBool("MINIO_USE_SSL", false),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "change-me-in-production"),
		},
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			CORSOrigins: getEnv("CORS_ORIGINS", "*"),
			BodyLimitMB: getEnvAsInt("SERVER_BODY_LIMIT_MB", 4),
		},
		Audit: AuditConfig{
			QueueSize: getEnvAsInt("AUDIT_QUEUE_SIZE", 1000),
		},
		Links: LinkConfig{
			DownloadTTL: getEnvAsDuration("LINK_DOWNLOAD_TTL", time.Hour),
			UploadTTL:   getEnvAsDuration("UPLOAD_URL_TTL", 15*time.Minute),
		},
		Trash: TrashConfig{
			GraceDays: getEnvAsInt("TRASH_GRACE_DAYS", 30),
		},
		Quota: QuotaConfig{
			Bytes: getEnvAsInt64("STORAGE_QUOTA_BYTES", 15<<30),
		},
		Access: AccessConfig{
			ShareInheritance: strings.ToLower(getEnv("ACCESS_SHARE_INHERITANCE", "parent")),
		},
		Log: LogConfig{
			Level:     strings.ToLower(getEnv("LOG_LEVEL", "info")),
			Format:    strings.ToLower(getEnv("LOG_FORMAT", "json")),
			SentryDSN: getEnv("SENTRY_DSN", ""),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseInt(value, 10, 64)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}
