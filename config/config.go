package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	CORS      CORSConfig
	Redis     RedisConfig
	S3        S3Config
	Billing   BillingConfig
	Scheduler SchedulerConfig
}

type ServerConfig struct {
	Port        string
	GinMode     string
	Environment string
	LogFormat   string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CORSConfig struct {
	AllowedOrigins []string
}

// RedisConfig는 Redis 연결 정보. Host가 비어 있으면 DB 시퀀스를 사용함
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

type S3Config struct {
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	BaseURL         string // CloudFront or S3 direct URL
}

func (c *S3Config) Enabled() bool {
	return c.Bucket != ""
}

type BillingConfig struct {
	ReceiptBaseURL string // 영수증 URL prefix (order_id가 뒤에 붙음)
}

type SchedulerConfig struct {
	Enabled           bool
	PaymentReportSpec string // 일일 결제 리포트 cron 표현식
	ExpiryCheckSpec   string // 만료 예정 라이선스 점검 cron 표현식
	ExpiryWindowDays  int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	expiryWindow, err := strconv.Atoi(getEnv("LICENSE_EXPIRY_WINDOW_DAYS", "30"))
	if err != nil || expiryWindow < 1 {
		return nil, fmt.Errorf("invalid LICENSE_EXPIRY_WINDOW_DAYS: %q", getEnv("LICENSE_EXPIRY_WINDOW_DAYS", ""))
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("SERVER_PORT", "8080"),
			GinMode:     getEnv("GIN_MODE", "debug"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogFormat:   getEnv("LOG_FORMAT", "console"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "admin"),
			Password: getEnv("DB_PASSWORD", "1234"),
			DBName:   getEnv("DB_NAME", "medilens"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		CORS: CORSConfig{
			AllowedOrigins: parseSlice(getEnv("ALLOWED_ORIGINS", "http://localhost:3000")),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", ""),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       redisDB,
		},
		S3: S3Config{
			Region:          getEnv("AWS_REGION", "ap-northeast-2"),
			Bucket:          getEnv("AWS_S3_BUCKET", ""),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			BaseURL:         getEnv("AWS_S3_BASE_URL", ""),
		},
		Billing: BillingConfig{
			ReceiptBaseURL: strings.TrimRight(getEnv("RECEIPT_BASE_URL", "https://admin.medilens.kr/receipts"), "/"),
		},
		Scheduler: SchedulerConfig{
			Enabled:           getEnv("SCHEDULER_ENABLED", "true") == "true",
			PaymentReportSpec: getEnv("PAYMENT_REPORT_CRON", "0 1 * * *"),
			ExpiryCheckSpec:   getEnv("LICENSE_EXPIRY_CRON", "0 9 * * *"),
			ExpiryWindowDays:  expiryWindow,
		},
	}

	return config, nil
}

func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseSlice(s string) []string {
	if s == "" {
		return []string{}
	}
	var result []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			result = append(result, part)
		}
	}
	return result
}
