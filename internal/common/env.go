package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds everything the processes read from the environment.
type Config struct {
	AppEnv string

	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string

	RedisAddr     string
	RedisPassword string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	LLMProvider string // openai or ollama
	LLMModel    string
	LLMAPIKey   string
	LLMBaseURL  string

	LogPath string
	JWTKey  string

	WorkerConcurrency int
	RetentionCron     string
	PromptsPath       string

	ServerAddr string
	CertPath   string
	KeyPath    string
}

const (
	JWTExpire    = 24 * time.Hour
	JWTNewExpire = time.Hour
)

var config Config

func GetConfig() Config {
	return config
}

func InitConf() {
	dbPort, _ := strconv.Atoi(getEnv("DB_PORT", "3306"))
	concurrency, _ := strconv.Atoi(getEnv("WORKER_CONCURRENCY", "10"))

	config = Config{
		AppEnv:     getEnv("APP_ENV", "development"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     dbPort,
		DBUser:     getEnv("DB_USER", ""),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "smartx"),

		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),

		MinioEndpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey: getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:    getEnv("MINIO_BUCKET", "smartx"),
		MinioUseSSL:    getEnv("MINIO_USE_SSL", "false") == "true",

		LLMProvider: getEnv("LLM_PROVIDER", "openai"),
		LLMModel:    getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMAPIKey:   getEnv("LLM_API_KEY", ""),
		LLMBaseURL:  getEnv("LLM_BASE_URL", ""),

		LogPath: getEnv("LOG_PATH", "./logs/smartx.log"),
		JWTKey:  getEnv("JWT_KEY", ""),

		WorkerConcurrency: concurrency,
		RetentionCron:     getEnv("RETENTION_CRON", "0 3 * * *"),
		PromptsPath:       getEnv("PROMPTS_PATH", ""),

		ServerAddr: getEnv("SERVER_ADDR", ":8080"),
		CertPath:   getEnv("CERT_PATH", ""),
		KeyPath:    getEnv("KEY_PATH", ""),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
