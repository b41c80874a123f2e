package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	App      AppConfig
	API      APIConfig
	Realtime RealtimeConfig
	Poll     PollConfig
	Log      LogConfig
	Sim      SimulatorConfig
}

type AppConfig struct {
	ServiceName string
	UserID      string
	AuthToken   string
}

type APIConfig struct {
	BaseURL     string
	HTTPTimeout time.Duration
}

type RealtimeConfig struct {
	BaseURL              string
	MaxReconnectAttempts int
	ReconnectDelay       time.Duration
}

type PollConfig struct {
	MaxAttempts          int
	Interval             time.Duration
	ErrorInterval        time.Duration
	StartDelay           time.Duration
	SurfaceCheckInterval time.Duration
}

type LogConfig struct {
	Level string
}

type SimulatorConfig struct {
	Host          string
	Port          string
	CompleteAfter time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	realtimeBaseURL := os.Getenv("REALTIME_BASE_URL")
	if realtimeBaseURL == "" {
		return nil, errors.New("REALTIME_BASE_URL environment variable is required")
	}

	return &Config{
		App: AppConfig{
			ServiceName: getEnv("APP_SERVICE_NAME", "payments-console"),
			UserID:      getEnv("APP_USER_ID", ""),
			AuthToken:   getEnv("APP_AUTH_TOKEN", ""),
		},
		API: APIConfig{
			BaseURL:     getEnv("API_BASE_URL", "http://localhost:8080"),
			HTTPTimeout: getSecondsEnv("API_HTTP_TIMEOUT_SECONDS", 10*time.Second),
		},
		Realtime: RealtimeConfig{
			BaseURL:              realtimeBaseURL,
			MaxReconnectAttempts: getIntEnv("REALTIME_MAX_RECONNECT_ATTEMPTS", 5),
			ReconnectDelay:       getSecondsEnv("REALTIME_RECONNECT_DELAY_SECONDS", 3*time.Second),
		},
		Poll: PollConfig{
			MaxAttempts:          getIntEnv("POLL_MAX_ATTEMPTS", 10),
			Interval:             getSecondsEnv("POLL_INTERVAL_SECONDS", 3*time.Second),
			ErrorInterval:        getSecondsEnv("POLL_ERROR_INTERVAL_SECONDS", 5*time.Second),
			StartDelay:           getSecondsEnv("POLL_START_DELAY_SECONDS", 2*time.Second),
			SurfaceCheckInterval: getSecondsEnv("SURFACE_CHECK_INTERVAL_SECONDS", time.Second),
		},
		Log: LogConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Sim: SimulatorConfig{
			Host:          getEnv("SIMULATOR_HOST", "0.0.0.0"),
			Port:          getEnv("SIMULATOR_PORT", "8090"),
			CompleteAfter: getSecondsEnv("SIMULATOR_COMPLETE_AFTER_SECONDS", 5*time.Second),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getSecondsEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if seconds, err := strconv.Atoi(value); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return defaultValue
}
