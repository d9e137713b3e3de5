// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"os"
	"time"
)

// Store backends.
const (
	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

type Config struct {
	Store       string // PASSIN_STORE (default "postgres"; "memory" needs no database)
	DatabaseURL string // PASSIN_DATABASE_URL (required for postgres)
	GRPCAddr    string // PASSIN_GRPC_ADDR (default ":9090")
	HTTPAddr    string // PASSIN_HTTP_ADDR (default ":8080")
	NATSURL     string // PASSIN_NATS_URL (optional, empty = no events)
	PublicURL   string // PASSIN_PUBLIC_URL (base of badge check-in links)

	TxTimeout   time.Duration // PASSIN_TX_TIMEOUT (default 5s)
	StationIdle time.Duration // PASSIN_STATION_IDLE (default 15m; stations quiet this long go offline)

	// Export settings
	ExportInterval   time.Duration // PASSIN_EXPORT_INTERVAL (default 0 = disabled)
	ExportS3Bucket   string        // PASSIN_EXPORT_S3_BUCKET (enables S3 when set)
	ExportS3Endpoint string        // PASSIN_EXPORT_S3_ENDPOINT (custom endpoint for MinIO)
	ExportS3Region   string        // PASSIN_EXPORT_S3_REGION (default "us-east-1")
	ExportS3Key      string        // PASSIN_EXPORT_S3_KEY (default "passin/export.jsonl")

	ExportS3ArchivePrefix string // PASSIN_EXPORT_S3_ARCHIVE_PREFIX (optional, keeps timestamped copies)
}

func Load() (*Config, error) {
	c := &Config{
		Store:            envOrDefault("PASSIN_STORE", StorePostgres),
		DatabaseURL:      os.Getenv("PASSIN_DATABASE_URL"),
		GRPCAddr:         envOrDefault("PASSIN_GRPC_ADDR", ":9090"),
		HTTPAddr:         envOrDefault("PASSIN_HTTP_ADDR", ":8080"),
		NATSURL:          os.Getenv("PASSIN_NATS_URL"),
		PublicURL:        envOrDefault("PASSIN_PUBLIC_URL", "http://localhost:8080"),
		ExportS3Bucket:   os.Getenv("PASSIN_EXPORT_S3_BUCKET"),
		ExportS3Endpoint: os.Getenv("PASSIN_EXPORT_S3_ENDPOINT"),
		ExportS3Region:   envOrDefault("PASSIN_EXPORT_S3_REGION", "us-east-1"),
		ExportS3Key:      envOrDefault("PASSIN_EXPORT_S3_KEY", "passin/export.jsonl"),

		ExportS3ArchivePrefix: os.Getenv("PASSIN_EXPORT_S3_ARCHIVE_PREFIX"),
	}

	switch c.Store {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return nil, fmt.Errorf("PASSIN_DATABASE_URL is required")
		}
	case StoreMemory:
	default:
		return nil, fmt.Errorf("PASSIN_STORE: unknown store %q", c.Store)
	}

	var err error
	if c.TxTimeout, err = durationEnv("PASSIN_TX_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if c.ExportInterval, err = durationEnv("PASSIN_EXPORT_INTERVAL", "0"); err != nil {
		return nil, err
	}
	if c.StationIdle, err = durationEnv("PASSIN_STATION_IDLE", "15m"); err != nil {
		return nil, err
	}
	if c.TxTimeout <= 0 {
		return nil, fmt.Errorf("PASSIN_TX_TIMEOUT must be positive")
	}
	if c.StationIdle <= 0 {
		return nil, fmt.Errorf("PASSIN_STATION_IDLE must be positive")
	}

	return c, nil
}

func durationEnv(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
