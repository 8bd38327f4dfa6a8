// Package config loads runtime settings and builds the process-wide
// clients (MongoDB, Redis, logger).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds every setting read from the environment.
type Config struct {
	Port string
	Env  string

	MongoURI      string
	MongoDatabase string

	RedisAddress  string
	RedisPassword string
	RedisDB       int

	JWTSecret         string
	JWTTTL            time.Duration
	AllowRoleOverride bool

	IssueRateLimit   int
	IssueLimitPrefix string

	S3Bucket    string
	S3Endpoint  string
	S3Region    string
	S3AccessKey string
	S3SecretKey string
	S3PublicURL string

	MaxUploadBytes int64
	CORSOrigins    []string

	// Administrator seeded at startup when AdminEmail is set.
	AdminName     string
	AdminEmail    string
	AdminPassword string
}

// Development reports whether GO_ENV selects local development.
func (c *Config) Development() bool {
	return c.Env == "development"
}

// Load reads .env when present, then the environment. The bool reports
// whether a .env file was found.
func Load() (*Config, bool, error) {
	loadedDotenv := godotenv.Load() == nil

	cfg := &Config{
		Port:              getenv("PORT", "8080"),
		Env:               getenv("GO_ENV", "production"),
		MongoURI:          os.Getenv("MONGODB_URI"),
		MongoDatabase:     getenv("MONGODB_DATABASE", "civicsync"),
		RedisAddress:      os.Getenv("REDIS_ADDRESS"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		IssueLimitPrefix:  getenv("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue_limit"),
		S3Bucket:          os.Getenv("S3_BUCKET"),
		S3Endpoint:        os.Getenv("S3_ENDPOINT"),
		S3Region:          getenv("S3_REGION", "us-east-1"),
		S3AccessKey:       os.Getenv("S3_ACCESS_KEY"),
		S3SecretKey:       os.Getenv("S3_SECRET_KEY"),
		S3PublicURL:       os.Getenv("S3_PUBLIC_URL"),
		CORSOrigins:       splitList(os.Getenv("CORS_ORIGINS")),
		AdminName:         getenv("ADMIN_NAME", "Administrator"),
		AdminEmail:        os.Getenv("ADMIN_EMAIL"),
		AdminPassword:     os.Getenv("ADMIN_PASSWORD"),
	}

	var err error
	if cfg.RedisDB, err = intEnv("REDIS_DB", 0); err != nil {
		return nil, loadedDotenv, err
	}
	if cfg.IssueRateLimit, err = intEnv("ISSUE_RATE_LIMIT", 10); err != nil {
		return nil, loadedDotenv, err
	}
	maxUpload, err := intEnv("MAX_UPLOAD_BYTES", 5<<20)
	if err != nil {
		return nil, loadedDotenv, err
	}
	cfg.MaxUploadBytes = int64(maxUpload)
	if cfg.JWTTTL, err = time.ParseDuration(getenv("JWT_TTL", "72h")); err != nil {
		return nil, loadedDotenv, fmt.Errorf("invalid JWT_TTL: %w", err)
	}
	if v := os.Getenv("ALLOW_ROLE_OVERRIDE"); v != "" {
		if cfg.AllowRoleOverride, err = strconv.ParseBool(v); err != nil {
			return nil, loadedDotenv, fmt.Errorf("invalid ALLOW_ROLE_OVERRIDE: %w", err)
		}
	}

	if cfg.AdminEmail != "" && cfg.AdminPassword == "" {
		return nil, loadedDotenv, fmt.Errorf("ADMIN_PASSWORD is required when ADMIN_EMAIL is set")
	}
	if cfg.JWTSecret == "" {
		return nil, loadedDotenv, fmt.Errorf("JWT_SECRET is required")
	}
	return cfg, loadedDotenv, nil
}

func getenv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func intEnv(key string, fallback int) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
