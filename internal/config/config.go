// Package config loads service configuration from YAML with environment
// overrides.
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

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// UserConfig seeds one account into the user directory at startup.
type UserConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
	Name     string `yaml:"name"`
}

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port           string       `yaml:"port"`
	LogLevel       string       `yaml:"logLevel"`
	DatabaseURL    string       `yaml:"databaseURL"`
	RedisAddr      string       `yaml:"redisAddr"`
	RedisPassword  string       `yaml:"redisPassword"`
	SessionSecret  string       `yaml:"sessionSecret"`
	SessionTTL     string       `yaml:"sessionTTL"`
	AllowedOrigins []string     `yaml:"allowedOrigins"`
	HeaderSkipRows *int         `yaml:"headerSkipRows"`
	OrgName        string       `yaml:"orgName"`
	MailAPIKey     string       `yaml:"mailAPIKey"`
	MailAPIBaseURL string       `yaml:"mailAPIBaseURL"`
	SenderEmail    string       `yaml:"senderEmail"`
	MinioEndpoint  string       `yaml:"minioEndpoint"`
	MinioAccessKey string       `yaml:"minioAccessKey"`
	MinioSecretKey string       `yaml:"minioSecretKey"`
	MinioBucket    string       `yaml:"minioBucket"`
	MinioUseSSL    bool         `yaml:"minioUseSSL"`
	AMQPURL        string       `yaml:"amqpURL"`
	Users          []UserConfig `yaml:"users"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	// Override with environment variables
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		cfg.SessionSecret = v
	}
	if v := os.Getenv("SESSION_TTL"); v != "" {
		cfg.SessionTTL = v
	}
	if v := os.Getenv("ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("HEADER_SKIP_ROWS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HeaderSkipRows = &n
		}
	}
	if v := os.Getenv("ORG_NAME"); v != "" {
		cfg.OrgName = v
	}
	if v := os.Getenv("MAIL_API_KEY"); v != "" {
		cfg.MailAPIKey = v
	}
	if v := os.Getenv("MAIL_API_BASE_URL"); v != "" {
		cfg.MailAPIBaseURL = v
	}
	if v := os.Getenv("SENDER_EMAIL"); v != "" {
		cfg.SenderEmail = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.AMQPURL = v
	}
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml)")
	}
	if strings.TrimSpace(cfg.SessionSecret) == "" {
		return errors.New("config: sessionSecret is required (set SESSION_SECRET)")
	}
	if cfg.HeaderSkipRows != nil && *cfg.HeaderSkipRows < 0 {
		return errors.New("config: headerSkipRows must be >= 0")
	}
	if cfg.OrgName == "" {
		return errors.New("config: orgName is required (set in config.yaml)")
	}
	for i, u := range cfg.Users {
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("config: users[%d] needs username and password", i)
		}
		switch u.Role {
		case "administrator", "supervisor", "officer":
		default:
			return fmt.Errorf("config: users[%d] has unknown role %q", i, u.Role)
		}
	}
	return nil
}

// ParseSessionTTL parses the optional session TTL duration string.
func ParseSessionTTL(ttlStr string) (time.Duration, error) {
	if ttlStr == "" {
		return 0, nil
	}
	dur, err := time.ParseDuration(ttlStr)
	if err != nil {
		return 0, fmt.Errorf("invalid sessionTTL duration: %w", err)
	}
	return dur, nil
}

func splitList(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
