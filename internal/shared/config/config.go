package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Storage backends.
const (
	BackendLocal       = "local"
	BackendLocalUnique = "local-unique"
	BackendEphemeral   = "ephemeral"
	BackendS3          = "s3"
	BackendGCS         = "gcs"
	BackendAzureBlob   = "azblob"
)

// Record stores.
const (
	RecordStorePostgres = "postgres"
	RecordStoreFile     = "file"
	RecordStoreMemory   = "memory"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	LogLevel        string
	LogFormat       string
	DatabaseURL     string

	StorageBackend string
	PublicDir      string
	ScratchDir     string
	ObjectPrefix   string
	DeleteReplaced bool

	AWSRegion       string
	S3Bucket        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	S3PublicBaseURL string
	S3UsePathStyle  bool
	S3KMSKeyID      string

	GCSBucket          string
	GCSCredentialsFile string
	GCSPublicBaseURL   string

	AzureAccountName   string
	AzureAccountKey    string
	AzureContainer     string
	AzureServiceURL    string
	AzurePublicBaseURL string

	RecordStore    string
	RecordFilePath string

	UploadsEnabled bool
	VerifyPDF      bool
	CleanupTimeout time.Duration

	AdminPassword     string
	AdminPasswordHash string
	SessionSecret     string
	SessionTTL        time.Duration
	LoginRatePerMin   float64
	LoginBurst        int
}

// Load reads .env files, an optional config file and the environment.
// Environment variables win over the config file, which wins over defaults.
func Load() (Config, error) {
	loadEnvFiles(".env", "cmd/.env")

	v := viper.New()
	setDefaults(v)

	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath("./config")
		v.AddConfigPath(".")
	}
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
	}

	cfg := Config{
		Port:            v.GetString("port"),
		Env:             normalizeEnv(v.GetString("env")),
		CORSAllowOrigin: splitAndTrim(v.GetString("cors_allow_origins")),
		LogLevel:        v.GetString("log_level"),
		LogFormat:       v.GetString("log_format"),
		DatabaseURL:     strings.TrimSpace(v.GetString("database_url")),

		StorageBackend: normalizeBackend(v.GetString("storage_backend")),
		PublicDir:      v.GetString("public_dir"),
		ScratchDir:     v.GetString("scratch_dir"),
		ObjectPrefix:   v.GetString("object_prefix"),
		DeleteReplaced: v.GetBool("delete_replaced"),

		AWSRegion:       v.GetString("aws_region"),
		S3Bucket:        v.GetString("s3_bucket"),
		S3Endpoint:      v.GetString("s3_endpoint"),
		S3AccessKey:     v.GetString("s3_access_key"),
		S3SecretKey:     v.GetString("s3_secret_key"),
		S3PublicBaseURL: v.GetString("s3_public_base_url"),
		S3UsePathStyle:  v.GetBool("s3_use_path_style"),
		S3KMSKeyID:      v.GetString("sse_kms_key_id"),

		GCSBucket:          v.GetString("gcs_bucket"),
		GCSCredentialsFile: v.GetString("gcs_credentials_file"),
		GCSPublicBaseURL:   v.GetString("gcs_public_base_url"),

		AzureAccountName:   v.GetString("azure_account_name"),
		AzureAccountKey:    v.GetString("azure_account_key"),
		AzureContainer:     v.GetString("azure_container"),
		AzureServiceURL:    v.GetString("azure_service_url"),
		AzurePublicBaseURL: v.GetString("azure_public_base_url"),

		RecordStore:    normalizeRecordStore(v.GetString("record_store")),
		RecordFilePath: v.GetString("record_file_path"),

		UploadsEnabled: v.GetBool("uploads_enabled"),
		VerifyPDF:      v.GetBool("verify_pdf"),
		CleanupTimeout: v.GetDuration("cleanup_timeout"),

		AdminPassword:     v.GetString("admin_password"),
		AdminPasswordHash: v.GetString("admin_password_hash"),
		SessionSecret:     v.GetString("session_secret"),
		SessionTTL:        v.GetDuration("session_ttl"),
		LoginRatePerMin:   v.GetFloat64("login_rate_per_min"),
		LoginBurst:        v.GetInt("login_burst"),
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("port", "8080")
	v.SetDefault("env", "dev")
	v.SetDefault("cors_allow_origins", "http://localhost:3000")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("database_url", "")

	v.SetDefault("storage_backend", BackendLocal)
	v.SetDefault("public_dir", "./public")
	v.SetDefault("scratch_dir", "")
	v.SetDefault("object_prefix", "menu")
	v.SetDefault("delete_replaced", false)

	v.SetDefault("aws_region", "")
	v.SetDefault("s3_bucket", "")
	v.SetDefault("s3_endpoint", "")
	v.SetDefault("s3_access_key", "")
	v.SetDefault("s3_secret_key", "")
	v.SetDefault("s3_public_base_url", "")
	v.SetDefault("s3_use_path_style", false)
	v.SetDefault("sse_kms_key_id", "")

	v.SetDefault("gcs_bucket", "")
	v.SetDefault("gcs_credentials_file", "")
	v.SetDefault("gcs_public_base_url", "")

	v.SetDefault("azure_account_name", "")
	v.SetDefault("azure_account_key", "")
	v.SetDefault("azure_container", "")
	v.SetDefault("azure_service_url", "")
	v.SetDefault("azure_public_base_url", "")

	v.SetDefault("record_store", "")
	v.SetDefault("record_file_path", "./data/menu-storage.json")

	v.SetDefault("uploads_enabled", true)
	v.SetDefault("verify_pdf", false)
	v.SetDefault("cleanup_timeout", "10s")

	v.SetDefault("admin_password", "")
	v.SetDefault("admin_password_hash", "")
	v.SetDefault("session_secret", "")
	v.SetDefault("session_ttl", "168h")
	v.SetDefault("login_rate_per_min", 5)
	v.SetDefault("login_burst", 5)
}

// Validate rejects configurations the server cannot run with.
func (c Config) Validate() error {
	switch c.StorageBackend {
	case BackendLocal, BackendLocalUnique, BackendEphemeral, BackendS3, BackendGCS, BackendAzureBlob:
	default:
		return fmt.Errorf("config: unknown STORAGE_BACKEND %q", c.StorageBackend)
	}
	switch c.RecordStore {
	case "", RecordStorePostgres, RecordStoreFile, RecordStoreMemory:
	default:
		return fmt.Errorf("config: unknown RECORD_STORE %q", c.RecordStore)
	}
	if c.RecordStore == RecordStorePostgres && c.DatabaseURL == "" {
		return errors.New("config: RECORD_STORE=postgres requires DATABASE_URL")
	}
	if c.Env == "production" {
		if strings.TrimSpace(c.SessionSecret) == "" {
			return errors.New("config: SESSION_SECRET is required in production")
		}
		if len(c.SessionSecret) < 16 {
			return errors.New("config: SESSION_SECRET must be at least 16 characters")
		}
		if c.AdminPassword == "" && c.AdminPasswordHash == "" {
			return errors.New("config: ADMIN_PASSWORD or ADMIN_PASSWORD_HASH is required in production")
		}
	}
	return nil
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeBackend(raw string) string {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "", "fs", "local":
		return BackendLocal
	case "unique", "local-unique", "local_unique":
		return BackendLocalUnique
	case "tmp", "scratch", "ephemeral":
		return BackendEphemeral
	case "r2", "minio", "s3":
		return BackendS3
	case "gs", "gcs":
		return BackendGCS
	case "azure", "azblob":
		return BackendAzureBlob
	default:
		return s
	}
}

func normalizeRecordStore(raw string) string {
	switch s := strings.ToLower(strings.TrimSpace(raw)); s {
	case "pg", "postgresql", "postgres":
		return RecordStorePostgres
	case "json", "file":
		return RecordStoreFile
	default:
		return s
	}
}
