package main

import (
	"fmt"
	"os"
	"time"

	"codeverse/internal/common/cache"
	"codeverse/internal/common/db"
	"codeverse/internal/common/mq"
	"codeverse/internal/common/storage"
	"codeverse/internal/judge"
	"codeverse/internal/submission/service"
	"codeverse/pkg/utils/logger"

	"gopkg.in/yaml.v3"
)

const (
	defaultHTTPAddr        = "0.0.0.0:8080"
	defaultReadTimeout     = 5 * time.Second
	defaultWriteTimeout    = 10 * time.Second
	defaultIdleTimeout     = 60 * time.Second
	defaultShutdownTimeout = 10 * time.Second
)

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"readTimeout"`
	WriteTimeout time.Duration `yaml:"writeTimeout"`
	IdleTimeout  time.Duration `yaml:"idleTimeout"`
}

// AuthConfig holds session token settings.
type AuthConfig struct {
	JWTSecret string        `yaml:"jwtSecret"`
	JWTIssuer string        `yaml:"jwtIssuer"`
	TokenTTL  time.Duration `yaml:"tokenTTL"`
	DBTimeout time.Duration `yaml:"dbTimeout"`
}

// SubmitConfig holds submission pipeline settings.
type SubmitConfig struct {
	SourceBucket    string                `yaml:"sourceBucket"`
	SourceKeyPrefix string                `yaml:"sourceKeyPrefix"`
	MaxCodeBytes    int                   `yaml:"maxCodeBytes"`
	CooldownTTL     time.Duration         `yaml:"cooldownTTL"`
	VerdictTopic    string                `yaml:"verdictTopic"`
	Timeouts        service.TimeoutConfig `yaml:"timeouts"`
}

// AppConfig holds codeverse configuration.
type AppConfig struct {
	Server   ServerConfig        `yaml:"server"`
	Logger   logger.Config       `yaml:"logger"`
	Database db.MySQLConfig      `yaml:"database"`
	Redis    cache.RedisConfig   `yaml:"redis"`
	Kafka    mq.KafkaConfig      `yaml:"kafka"`
	MinIO    storage.MinIOConfig `yaml:"minio"`
	Judge    judge.ClientConfig  `yaml:"judge"`
	Auth     AuthConfig          `yaml:"auth"`
	Submit   SubmitConfig        `yaml:"submit"`
}

func loadYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file failed: %w", err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("parse config file failed: %w", err)
	}
	return nil
}

func loadAppConfig(path string) (*AppConfig, error) {
	var cfg AppConfig
	if err := loadYAML(path, &cfg); err != nil {
		return nil, err
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = defaultHTTPAddr
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = defaultReadTimeout
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = defaultWriteTimeout
	}
	if cfg.Server.IdleTimeout == 0 {
		cfg.Server.IdleTimeout = defaultIdleTimeout
	}

	if cfg.Auth.TokenTTL == 0 {
		cfg.Auth.TokenTTL = 7 * 24 * time.Hour
	}
	if cfg.Auth.DBTimeout == 0 {
		cfg.Auth.DBTimeout = 3 * time.Second
	}

	if cfg.Submit.MaxCodeBytes == 0 {
		cfg.Submit.MaxCodeBytes = 64 * 1024
	}
	if cfg.Submit.CooldownTTL == 0 {
		cfg.Submit.CooldownTTL = 10 * time.Second
	}
	if cfg.Submit.VerdictTopic == "" {
		cfg.Submit.VerdictTopic = "submission.verdicts"
	}
	if cfg.Submit.Timeouts.DB == 0 {
		cfg.Submit.Timeouts.DB = 3 * time.Second
	}
	if cfg.Submit.Timeouts.Cache == 0 {
		cfg.Submit.Timeouts.Cache = 1 * time.Second
	}
	if cfg.Submit.Timeouts.Storage == 0 {
		cfg.Submit.Timeouts.Storage = 5 * time.Second
	}
	if cfg.Submit.SourceBucket == "" {
		cfg.Submit.SourceBucket = cfg.MinIO.Bucket
	}

	if cfg.Judge.Timeout == 0 {
		cfg.Judge.Timeout = 30 * time.Second
	}

	return &cfg, nil
}
