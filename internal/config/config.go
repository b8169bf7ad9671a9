// Package config arma la configuración del proceso: un YAML opcional
// (CONFIG_FILE) y encima las variables de entorno.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	AuthModeDev    = "dev"
	AuthModeJWT    = "jwt"
	AuthModeRemote = "remote"

	BlobMemory = "memory"
	BlobS3     = "s3"
)

type Config struct {
	Port  string `yaml:"port"`
	DBDSN string `yaml:"db_dsn"`

	Log  LogConfig  `yaml:"log"`
	Auth AuthConfig `yaml:"auth"`
	Blob BlobConfig `yaml:"blob"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	App    string `yaml:"app"`
}

type AuthConfig struct {
	// Mode: dev (headers X-Debug-*), jwt (tokens propios) o remote (proveedor externo).
	Mode               string        `yaml:"mode"`
	JWTSecret          string        `yaml:"jwt_secret"`
	Issuer             string        `yaml:"issuer"`
	TokenTTL           time.Duration `yaml:"token_ttl"`
	AdminEmails        []string      `yaml:"admin_emails"`
	AllowShelterSignup bool          `yaml:"allow_shelter_signup"`

	RemoteBaseURL string `yaml:"remote_base_url"`
	RemoteAPIKey  string `yaml:"remote_api_key"`
}

type BlobConfig struct {
	Driver string `yaml:"driver"`
	// PublicBaseURL vacío: s3 deriva la URL del bucket, memory sirve en /media.
	PublicBaseURL string `yaml:"public_base_url"`

	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	PathStyle       bool   `yaml:"path_style"`
}

func Default() Config {
	return Config{
		Port: "8080",
		Log:  LogConfig{Level: "info", Format: "text", App: "pet-adoption"},
		Auth: AuthConfig{
			Mode:     AuthModeDev,
			Issuer:   "pet-adoption",
			TokenTTL: 24 * time.Hour,
		},
		Blob: BlobConfig{
			Driver: BlobMemory,
		},
	}
}

// Load lee CONFIG_FILE (si está) y aplica el entorno encima.
func Load() (Config, error) {
	return load(os.Getenv("CONFIG_FILE"), os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (Config, error) {
	cfg := Default()

	if path = strings.TrimSpace(path); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := applyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	boolean := func(key string, dst *bool) error {
		v, ok := lookup(key)
		if !ok || strings.TrimSpace(v) == "" {
			return nil
		}
		b, err := strconv.ParseBool(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("%s: %w", key, err)
		}
		*dst = b
		return nil
	}

	str("PORT", &cfg.Port)
	str("DB_DSN", &cfg.DBDSN)

	str("LOG_LEVEL", &cfg.Log.Level)
	str("LOG_FORMAT", &cfg.Log.Format)
	str("APP_NAME", &cfg.Log.App)

	str("AUTH_MODE", &cfg.Auth.Mode)
	str("AUTH_JWT_SECRET", &cfg.Auth.JWTSecret)
	str("AUTH_ISSUER", &cfg.Auth.Issuer)
	str("AUTH_REMOTE_BASE_URL", &cfg.Auth.RemoteBaseURL)
	str("AUTH_REMOTE_API_KEY", &cfg.Auth.RemoteAPIKey)
	if v, ok := lookup("AUTH_TOKEN_TTL"); ok && strings.TrimSpace(v) != "" {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return fmt.Errorf("AUTH_TOKEN_TTL: %w", err)
		}
		cfg.Auth.TokenTTL = d
	}
	if v, ok := lookup("AUTH_ADMIN_EMAILS"); ok && strings.TrimSpace(v) != "" {
		cfg.Auth.AdminEmails = splitList(v)
	}
	if err := boolean("AUTH_ALLOW_SHELTER_SIGNUP", &cfg.Auth.AllowShelterSignup); err != nil {
		return err
	}

	str("BLOB_DRIVER", &cfg.Blob.Driver)
	str("BLOB_PUBLIC_BASE_URL", &cfg.Blob.PublicBaseURL)
	str("BLOB_BUCKET", &cfg.Blob.Bucket)
	str("BLOB_REGION", &cfg.Blob.Region)
	str("BLOB_ENDPOINT", &cfg.Blob.Endpoint)
	str("BLOB_ACCESS_KEY_ID", &cfg.Blob.AccessKeyID)
	str("BLOB_SECRET_ACCESS_KEY", &cfg.Blob.SecretAccessKey)
	return boolean("BLOB_PATH_STYLE", &cfg.Blob.PathStyle)
}

func (c Config) Validate() error {
	var errs []error

	switch c.Auth.Mode {
	case AuthModeDev:
	case AuthModeJWT:
		if strings.TrimSpace(c.Auth.JWTSecret) == "" {
			errs = append(errs, errors.New("auth.jwt_secret is required in jwt mode"))
		}
	case AuthModeRemote:
		if strings.TrimSpace(c.Auth.RemoteBaseURL) == "" {
			errs = append(errs, errors.New("auth.remote_base_url is required in remote mode"))
		}
		if strings.TrimSpace(c.Auth.RemoteAPIKey) == "" {
			errs = append(errs, errors.New("auth.remote_api_key is required in remote mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("auth.mode %q: must be dev, jwt or remote", c.Auth.Mode))
	}

	switch c.Blob.Driver {
	case BlobMemory:
	case BlobS3:
		if strings.TrimSpace(c.Blob.Bucket) == "" {
			errs = append(errs, errors.New("blob.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("blob.driver %q: must be memory or s3", c.Blob.Driver))
	}

	if _, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Errorf("port %q: not a number", c.Port))
	}
	return errors.Join(errs...)
}

// Addr es la dirección de escucha para http.Server.
func (c Config) Addr() string {
	return ":" + c.Port
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
