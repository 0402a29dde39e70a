package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App      AppConfig
	DB       DBConfig
	JWT      JWTConfig
	HTTP     HTTPConfig
	Import   ImportConfig
	Batch    BatchConfig
	SMTP     SMTPConfig
	Redis    RedisConfig
	Storage  StorageConfig
	FollowUp FollowUpConfig
	Cache    CacheConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL    string
	Host           string
	Port           int
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConns       int
	MigrateOnStart bool
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// MigrationURL devuelve la URL en el esquema pgx5:// que espera golang-migrate.
func (c DBConfig) MigrationURL() string {
	dsn := c.ConnectionString()
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(dsn, prefix) {
			return "pgx5://" + strings.TrimPrefix(dsn, prefix)
		}
	}
	return dsn
}

// JWTConfig configuración de JWT (solo validación; la emisión es externa).
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ImportConfig límites del cargue masivo.
type ImportConfig struct {
	MaxRows int
}

// BatchConfig límites y políticas de las operaciones por lote.
type BatchConfig struct {
	MaxItems            int
	IdempotencyRequired bool
	RenderTimeout       time.Duration
}

// SMTPConfig servidor de correo para el envío de actas.
type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

// Enabled indica si hay servidor SMTP configurado.
func (c SMTPConfig) Enabled() bool { return c.Host != "" }

// RedisConfig cola de tareas posteriores (opcional).
type RedisConfig struct {
	URL string
}

// StorageConfig almacenamiento de los PDF de las actas.
type StorageConfig struct {
	Dir           string
	PublicBaseURL string
}

// FollowUpConfig reintentos de render y correo posteriores al commit.
type FollowUpConfig struct {
	Interval    time.Duration
	MaxAttempts int
	BatchSize   int
	Workers     int
}

// CacheConfig caché de nombres de usuario y correos de contactos.
type CacheConfig struct {
	Size int
	TTL  time.Duration
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, DB_PORT, JWT_SECRET, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "trazabilidad-equipos"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL:    getString(v, "DATABASE_URL", ""),
			Host:           getString(v, "DB_HOST", "localhost"),
			Port:           getInt(v, "DB_PORT", 5432),
			User:           getString(v, "DB_USER", "postgres"),
			Password:       getString(v, "DB_PASSWORD", ""),
			DBName:         getString(v, "DB_NAME", "trazabilidad"),
			SSLMode:        getString(v, "DB_SSLMODE", "disable"),
			MaxConns:       getInt(v, "DB_MAX_CONNS", 25),
			MigrateOnStart: getBool(v, "MIGRATE_ON_START", true),
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "trazabilidad-equipos"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		Import: ImportConfig{
			MaxRows: getInt(v, "IMPORT_MAX_ROWS", 500),
		},
		Batch: BatchConfig{
			MaxItems:            getInt(v, "BATCH_MAX_ITEMS", 200),
			IdempotencyRequired: getBool(v, "IDEMPOTENCY_REQUIRED", false),
			RenderTimeout:       time.Duration(getInt(v, "RENDER_TIMEOUT_SECONDS", 15)) * time.Second,
		},
		SMTP: SMTPConfig{
			Host:     getString(v, "SMTP_HOST", ""),
			Port:     getInt(v, "SMTP_PORT", 587),
			User:     getString(v, "SMTP_USER", ""),
			Password: getString(v, "SMTP_PASSWORD", ""),
			From:     getString(v, "SMTP_FROM", ""),
		},
		Redis: RedisConfig{
			URL: getString(v, "REDIS_URL", ""),
		},
		Storage: StorageConfig{
			Dir:           getString(v, "STORAGE_DIR", "./data/actas"),
			PublicBaseURL: getString(v, "STORAGE_PUBLIC_BASE_URL", "http://localhost:8080/files"),
		},
		FollowUp: FollowUpConfig{
			Interval:    time.Duration(getInt(v, "FOLLOWUP_INTERVAL_SECONDS", 30)) * time.Second,
			MaxAttempts: getInt(v, "FOLLOWUP_MAX_ATTEMPTS", 8),
			BatchSize:   getInt(v, "FOLLOWUP_BATCH_SIZE", 20),
			Workers:     getInt(v, "FOLLOWUP_WORKERS", 2),
		},
		Cache: CacheConfig{
			Size: getInt(v, "CACHE_SIZE", 1024),
			TTL:  time.Duration(getInt(v, "CACHE_TTL_SECONDS", 300)) * time.Second,
		},
	}

	if cfg.Import.MaxRows <= 0 {
		return nil, fmt.Errorf("IMPORT_MAX_ROWS debe ser positivo")
	}
	if cfg.Batch.MaxItems <= 0 {
		return nil, fmt.Errorf("BATCH_MAX_ITEMS debe ser positivo")
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case string:
			n, err := strconv.Atoi(strings.TrimSpace(v.GetString(key)))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		b, err := strconv.ParseBool(strings.TrimSpace(v.GetString(key)))
		if err != nil {
			return def
		}
		return b
	}
	return def
}
