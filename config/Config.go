package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/mohitkumar/loanwizard/analytics"
	"github.com/spf13/viper"
)

type StorageType string

const STORAGE_TYPE_REDIS StorageType = "redis"
const STORAGE_TYPE_INMEM StorageType = "memory"

type EncoderDecoderType string

const JSON_ENCODER_DECODER EncoderDecoderType = "JSON"
const STRICT_JSON_ENCODER_DECODER EncoderDecoderType = "STRICT_JSON"

type Config struct {
	RemoteConfig       RemoteConfig
	RedisConfig        RedisStorageConfig
	HttpPort           int
	StorageType        StorageType
	EncoderDecoderType EncoderDecoderType
	UserId             string
	HistoryLimit       int
	SendQueueCapacity  int
	StateCacheTTL      time.Duration
	SessionRefresh     time.Duration
	LogLevel           string
	LogFormat          string
	AnalyticsConfig    analytics.DataCollectorConfig
}

type RemoteConfig struct {
	BaseURL         string
	AssistantId     string
	PollInterval    time.Duration
	MaxPollAttempts int
	RequestTimeout  time.Duration
}

type RedisStorageConfig struct {
	Addrs     []string
	Namespace string
	Password  string
	PoolSize  int
}

// FromViper reads every setting from v, which has the command flags bound.
func FromViper(v *viper.Viper) (Config, error) {
	c := Config{
		RemoteConfig: RemoteConfig{
			BaseURL:         v.GetString("api-url"),
			AssistantId:     v.GetString("assistant-id"),
			PollInterval:    v.GetDuration("poll-interval"),
			MaxPollAttempts: v.GetInt("max-poll-attempts"),
			RequestTimeout:  v.GetDuration("request-timeout"),
		},
		RedisConfig: RedisStorageConfig{
			Namespace: v.GetString("namespace"),
			Password:  v.GetString("redis-password"),
			PoolSize:  v.GetInt("redis-pool-size"),
		},
		HttpPort:           v.GetInt("http-port"),
		StorageType:        StorageType(v.GetString("storage-impl")),
		EncoderDecoderType: EncoderDecoderType(v.GetString("encoder-decoder")),
		UserId:             v.GetString("user-id"),
		HistoryLimit:       v.GetInt("history-limit"),
		SendQueueCapacity:  v.GetInt("send-queue-capacity"),
		StateCacheTTL:      v.GetDuration("state-cache-ttl"),
		SessionRefresh:     v.GetDuration("session-refresh-interval"),
		LogLevel:           v.GetString("log-level"),
		LogFormat:          v.GetString("log-format"),
	}
	if addrs := v.GetString("redis-addr"); addrs != "" {
		c.RedisConfig.Addrs = strings.Split(addrs, ",")
	}
	if file := v.GetString("analytics-file"); file != "" {
		c.AnalyticsConfig = analytics.DataCollectorConfig{
			FileName:      file,
			CollectorType: analytics.LOG_FILE_DATA_COLLECTOR,
		}
	}
	return c, c.Validate()
}

func (c Config) Validate() error {
	if c.RemoteConfig.BaseURL == "" {
		return fmt.Errorf("api-url is required")
	}
	if c.RemoteConfig.AssistantId == "" {
		return fmt.Errorf("assistant-id is required")
	}
	if c.RemoteConfig.MaxPollAttempts < 1 {
		return fmt.Errorf("max-poll-attempts must be at least 1, got %d", c.RemoteConfig.MaxPollAttempts)
	}
	if c.RemoteConfig.PollInterval <= 0 {
		return fmt.Errorf("poll-interval must be positive")
	}
	switch c.StorageType {
	case STORAGE_TYPE_INMEM:
	case STORAGE_TYPE_REDIS:
		if len(c.RedisConfig.Addrs) == 0 {
			return fmt.Errorf("redis-addr is required for redis storage")
		}
	default:
		return fmt.Errorf("unsupported storage-impl %q", c.StorageType)
	}
	return nil
}
