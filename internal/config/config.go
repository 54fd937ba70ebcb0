package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/cmlabs-hris/hris-face-attendance/internal/domain/face"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig
	JWT      JWTConfig
	App      AppConfig
	Storage  StorageConfig
	MinIO    MinIOConfig
	NATS     NATSConfig
	Vision   VisionConfig
	Face     face.Config
	Kiosk    KioskConfig
	Visitor  VisitorConfig
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
}

// JWTConfig holds JWT configuration
type JWTConfig struct {
	Secret           string
	AccessExpiration string
	KioskExpiration  string
}

// AppConfig holds application configuration
type AppConfig struct {
	Name        string
	Version     string
	Port        int
	Env         string
	LogLevel    string
	CORSOrigins []string
	// Zone used when an employee's branch has no timezone
	DefaultTimezone string
}

// StorageConfig selects where visitor snapshots go: "local" or "minio".
type StorageConfig struct {
	Driver    string
	LocalPath string
	BaseURL   string
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
}

// NATSConfig is optional; attendance events are not published when URL is empty.
type NATSConfig struct {
	URL string
}

type VisionConfig struct {
	ModelsDir          string
	LibraryPath        string
	DetectionThreshold float32
	IntraOpThreads     int
}

type KioskConfig struct {
	UnlockAfterNoFace   int
	ManualOverrideAfter int
	MaxFrameWidth       int
	RevocationSync      time.Duration
}

type VisitorConfig struct {
	DedupeDistance  float64
	DedupeWindow    time.Duration
	Retention       time.Duration
	RefreshInterval time.Duration
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Warn("No .env file loaded, using process environment", "error", err)
	}

	config := &Config{}

	// Database configuration
	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	config.Database = DatabaseConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     dbPort,
		User:     getEnv("DB_USER", "postgres"),
		Password: getEnv("DB_PASSWORD", ""),
		Name:     getEnv("DB_NAME", "cmlabs-hris"),
		SSLMode:  getEnv("DB_SSL_MODE", "disable"),
	}

	// Application configuration
	appPort, err := strconv.Atoi(getEnv("APP_PORT", "8080"))
	if err != nil {
		return nil, fmt.Errorf("invalid APP_PORT: %w", err)
	}

	config.App = AppConfig{
		Name:            getEnv("APP_NAME", "hris-face-attendance"),
		Version:         getEnv("APP_VERSION", "v1.0.0"),
		Port:            appPort,
		Env:             getEnv("APP_ENV", "development"),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
		CORSOrigins:     getEnvSlice("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		DefaultTimezone: getEnv("DEFAULT_TIMEZONE", "Asia/Jakarta"),
	}

	// JWT configuration
	config.JWT = JWTConfig{
		Secret:           getEnv("JWT_SECRET_KEY", ""),
		AccessExpiration: getEnv("JWT_ACCESS_EXPIRATION_TIME", "1h"),
		KioskExpiration:  getEnv("JWT_KIOSK_EXPIRATION_TIME", "12h"),
	}

	// Snapshot storage
	config.Storage = StorageConfig{
		Driver:    getEnv("STORAGE_DRIVER", "local"),
		LocalPath: getEnv("STORAGE_LOCAL_PATH", "./uploads"),
		BaseURL:   getEnv("STORAGE_BASE_URL", "/uploads"),
	}

	minioSSL, err := strconv.ParseBool(getEnv("MINIO_USE_SSL", "false"))
	if err != nil {
		return nil, fmt.Errorf("invalid MINIO_USE_SSL: %w", err)
	}
	config.MinIO = MinIOConfig{
		Endpoint:  getEnv("MINIO_ENDPOINT", "localhost:9000"),
		AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
		SecretKey: getEnv("MINIO_SECRET_KEY", ""),
		Bucket:    getEnv("MINIO_BUCKET", "face-attendance"),
		UseSSL:    minioSSL,
	}

	config.NATS = NATSConfig{
		URL: getEnv("NATS_URL", ""),
	}

	// Vision runtime
	threshold, err := strconv.ParseFloat(getEnv("VISION_DETECTION_THRESHOLD", "0.5"), 32)
	if err != nil {
		return nil, fmt.Errorf("invalid VISION_DETECTION_THRESHOLD: %w", err)
	}
	threads, err := strconv.Atoi(getEnv("VISION_INTRA_OP_THREADS", "2"))
	if err != nil {
		return nil, fmt.Errorf("invalid VISION_INTRA_OP_THREADS: %w", err)
	}
	config.Vision = VisionConfig{
		ModelsDir:          getEnv("VISION_MODELS_DIR", "models"),
		LibraryPath:        getEnv("ONNXRUNTIME_LIB", ""),
		DetectionThreshold: float32(threshold),
		IntraOpThreads:     threads,
	}

	// Kiosk sessions
	unlockAfter, err := strconv.Atoi(getEnv("KIOSK_UNLOCK_AFTER_NO_FACE", "15"))
	if err != nil {
		return nil, fmt.Errorf("invalid KIOSK_UNLOCK_AFTER_NO_FACE: %w", err)
	}
	overrideAfter, err := strconv.Atoi(getEnv("KIOSK_MANUAL_OVERRIDE_AFTER", "3"))
	if err != nil {
		return nil, fmt.Errorf("invalid KIOSK_MANUAL_OVERRIDE_AFTER: %w", err)
	}
	maxWidth, err := strconv.Atoi(getEnv("KIOSK_MAX_FRAME_WIDTH", "1280"))
	if err != nil {
		return nil, fmt.Errorf("invalid KIOSK_MAX_FRAME_WIDTH: %w", err)
	}
	revocationSync, err := time.ParseDuration(getEnv("KIOSK_REVOCATION_SYNC_INTERVAL", "1m"))
	if err != nil {
		return nil, fmt.Errorf("invalid KIOSK_REVOCATION_SYNC_INTERVAL: %w", err)
	}
	config.Kiosk = KioskConfig{
		UnlockAfterNoFace:   unlockAfter,
		ManualOverrideAfter: overrideAfter,
		MaxFrameWidth:       maxWidth,
		RevocationSync:      revocationSync,
	}

	// Visitor captures
	dedupeDistance, err := strconv.ParseFloat(getEnv("VISITOR_DEDUPE_DISTANCE", "0.45"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid VISITOR_DEDUPE_DISTANCE: %w", err)
	}
	dedupeWindow, err := time.ParseDuration(getEnv("VISITOR_DEDUPE_WINDOW", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid VISITOR_DEDUPE_WINDOW: %w", err)
	}
	retention, err := time.ParseDuration(getEnv("VISITOR_RETENTION", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid VISITOR_RETENTION: %w", err)
	}
	refresh, err := time.ParseDuration(getEnv("DESCRIPTOR_REFRESH_INTERVAL", "10m"))
	if err != nil {
		return nil, fmt.Errorf("invalid DESCRIPTOR_REFRESH_INTERVAL: %w", err)
	}
	config.Visitor = VisitorConfig{
		DedupeDistance:  dedupeDistance,
		DedupeWindow:    dedupeWindow,
		Retention:       retention,
		RefreshInterval: refresh,
	}

	// Face thresholds, optionally tuned from YAML
	config.Face = face.DefaultConfig()
	if path := getEnv("FACE_TUNING_FILE", ""); path != "" {
		if err := applyOverrides(&config.Face, path); err != nil {
			return nil, err
		}
		slog.Info("Applied face tuning overrides", "path", path)
	}

	// Validate required fields
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// applyOverrides decodes the YAML file over cfg. Keys missing from the file
// keep their current value.
func applyOverrides(cfg *face.Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read face tuning file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse face tuning file: %w", err)
	}
	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("JWT_SECRET_KEY is required")
	}

	switch c.Storage.Driver {
	case "local":
	case "minio":
		if c.MinIO.AccessKey == "" || c.MinIO.SecretKey == "" {
			return fmt.Errorf("MINIO_ACCESS_KEY and MINIO_SECRET_KEY are required for the minio driver")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be local or minio, got %q", c.Storage.Driver)
	}

	if _, err := time.LoadLocation(c.App.DefaultTimezone); err != nil {
		return fmt.Errorf("invalid DEFAULT_TIMEZONE: %w", err)
	}

	return c.ValidateFace()
}

// ValidateFace checks the recognition thresholds, wherever they came from.
func (c *Config) ValidateFace() error {
	f := c.Face
	if f.EmbeddingDim <= 0 {
		return fmt.Errorf("embedding_dim must be positive")
	}
	if f.MatchThreshold <= 0 {
		return fmt.Errorf("match_threshold must be positive")
	}
	if f.MinFaceWidthRatio <= 0 || f.MinFaceWidthRatio >= f.MaxFaceWidthRatio || f.MaxFaceWidthRatio > 1 {
		return fmt.Errorf("face width ratios must satisfy 0 < min < max <= 1")
	}
	if f.Liveness.Iterations < 2 {
		return fmt.Errorf("liveness.iterations must be at least 2")
	}
	if f.Liveness.EARClosed >= f.Liveness.EAROpen {
		return fmt.Errorf("liveness.ear_closed must be below liveness.ear_open")
	}
	if f.Enrollment.MinCaptures <= 0 || f.Enrollment.MinCaptures > f.Enrollment.Attempts {
		return fmt.Errorf("enrollment.min_captures must be between 1 and enrollment.attempts")
	}
	return nil
}

// DatabaseURL returns the PostgreSQL connection string
func (c *Config) DatabaseURL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
	)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvSlice(env string, fallback string) []string {
	value := getEnv(env, fallback)
	if value == "" {
		return []string{}
	}
	var result []string
	for _, v := range strings.Split(value, ",") {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
