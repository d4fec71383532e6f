// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	HTTPAddr    string // CW_HTTP_ADDR (default ":8787")
	DatabaseURL string // CW_DATABASE_URL (optional, empty = in-memory store)
	NATSURL     string // CW_NATS_URL (optional, empty = no event bus)
	AuthToken   string // CW_AUTH_TOKEN (optional, empty = auth disabled)
	PushURL     string // CW_PUSH_URL (optional, empty = notifications disabled)

	// Decision settings
	Debounce       time.Duration // CW_DEBOUNCE (default 3s; minimum spacing between notifications)
	RequestTimeout time.Duration // CW_REQUEST_TIMEOUT (default 5m; await deadline from creation)

	// Export settings
	SyncInterval   time.Duration // CW_SYNC_INTERVAL (default 0 = disabled)
	SyncS3Bucket   string        // CW_SYNC_S3_BUCKET (enables S3 when set)
	SyncS3Endpoint string        // CW_SYNC_S3_ENDPOINT (custom endpoint for MinIO)
	SyncS3Region   string        // CW_SYNC_S3_REGION (default "us-east-1")
	SyncS3Key      string        // CW_SYNC_S3_KEY (default "claude-watch/requests.jsonl")
	SyncGitRepo    string        // CW_SYNC_GIT_REPO (enables git when set; path to a clone)
	SyncGitFile    string        // CW_SYNC_GIT_FILE (default "requests.jsonl")
	SyncGitBranch  string        // CW_SYNC_GIT_BRANCH (default "main")
}

func Load() (*Config, error) {
	c := &Config{
		HTTPAddr:       envOrDefault("CW_HTTP_ADDR", ":8787"),
		DatabaseURL:    os.Getenv("CW_DATABASE_URL"),
		NATSURL:        os.Getenv("CW_NATS_URL"),
		AuthToken:      os.Getenv("CW_AUTH_TOKEN"),
		PushURL:        os.Getenv("CW_PUSH_URL"),
		SyncS3Bucket:   os.Getenv("CW_SYNC_S3_BUCKET"),
		SyncS3Endpoint: os.Getenv("CW_SYNC_S3_ENDPOINT"),
		SyncS3Region:   envOrDefault("CW_SYNC_S3_REGION", "us-east-1"),
		SyncS3Key:      envOrDefault("CW_SYNC_S3_KEY", "claude-watch/requests.jsonl"),
		SyncGitRepo:    os.Getenv("CW_SYNC_GIT_REPO"),
		SyncGitFile:    envOrDefault("CW_SYNC_GIT_FILE", "requests.jsonl"),
		SyncGitBranch:  envOrDefault("CW_SYNC_GIT_BRANCH", "main"),
	}

	var err error
	if c.Debounce, err = durationEnv("CW_DEBOUNCE", 3*time.Second); err != nil {
		return nil, err
	}
	if c.RequestTimeout, err = durationEnv("CW_REQUEST_TIMEOUT", 5*time.Minute); err != nil {
		return nil, err
	}
	if c.SyncInterval, err = durationEnv("CW_SYNC_INTERVAL", 0); err != nil {
		return nil, err
	}

	return c, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
