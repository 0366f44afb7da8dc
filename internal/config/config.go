package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// 不安全的默认值列表 (生产环境不应使用)
var insecureDefaults = map[string]bool{
	"your-secret-key-change-in-production": true,
	"admin":    true,
	"password": true,
	"":         true,
}

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	JWT      JWTConfig
	Admin    AdminConfig
	Node     NodeConfig
	Wizard   WizardConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	Schema   string
	SSLMode  string
}

type JWTConfig struct {
	SecretKey string
	TTL       time.Duration
}

type AdminConfig struct {
	// Initial gate password; bcrypt-hashed at startup and kept behind the
	// credential store. The gate hides the admin UI, it is not a security
	// boundary for the provisioning backend itself.
	Password string
}

type NodeConfig struct {
	Scheme     string
	Timeout    time.Duration
	SSHWSPort  string
	SSHTLSPort string
}

type WizardConfig struct {
	SessionTTL      time.Duration
	FallbackServers bool
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] .env file not found, relying on environment variables")
	}

	cfg := &Config{
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8006"),
			Mode: getEnv("GIN_MODE", "release"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "panel_user"),
			Password: getEnv("DB_PASSWORD", "panel_pass"),
			DBName:   getEnv("DB_NAME", "panel_db"),
			Schema:   getEnv("DB_SCHEMA", "provisioning"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		JWT: JWTConfig{
			SecretKey: getEnv("JWT_SECRET_KEY", ""),
			TTL:       getEnvDuration("JWT_TTL", 12*time.Hour),
		},
		Admin: AdminConfig{
			Password: getEnv("ADMIN_PASSWORD", ""),
		},
		Node: NodeConfig{
			Scheme:     getEnv("NODE_SCHEME", "https"),
			Timeout:    getEnvDuration("NODE_TIMEOUT", 10*time.Second),
			SSHWSPort:  getEnv("NODE_SSH_WS_PORT", "80"),
			SSHTLSPort: getEnv("NODE_SSH_SSL_PORT", "443"),
		},
		Wizard: WizardConfig{
			SessionTTL:      getEnvDuration("WIZARD_SESSION_TTL", 30*time.Minute),
			FallbackServers: getEnvBool("FALLBACK_SERVERS", true),
		},
	}

	// 日志脱敏: 不记录敏感配置
	log.Printf("[config] Provisioning Service loaded: port=%s db=%s/%s.%s node_timeout=%s",
		cfg.Server.Port, cfg.Database.Host, cfg.Database.DBName, cfg.Database.Schema, cfg.Node.Timeout)

	return cfg
}

// Validate 验证配置有效性，生产环境必须设置安全的密钥
func (c *Config) Validate() error {
	if insecureDefaults[c.JWT.SecretKey] {
		return fmt.Errorf("JWT_SECRET_KEY must be set to a secure value (current value is insecure or empty)")
	}
	if len(c.JWT.SecretKey) < 32 {
		return fmt.Errorf("JWT_SECRET_KEY must be at least 32 characters long")
	}
	if insecureDefaults[c.Admin.Password] {
		return fmt.Errorf("ADMIN_PASSWORD must be set to a non-default value")
	}
	return nil
}

func (c *DatabaseConfig) DSN() string {
	return "postgres://" + c.User + ":" + c.Password + "@" + c.Host + ":" + c.Port + "/" + c.DBName + "?sslmode=" + c.SSLMode
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
