package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// AppConfig holds environment driven configuration values.
// Sensitive data should never have defaults inside code and must be provided via env files or the environment.
type AppConfig struct {
	AppPort     string
	JWTSecret   string
	JWTTTLHours int
	DatabaseURI string
	DBHost      string
	DBPort      string
	DBUser      string
	DBPassword  string
	DBName      string
	// Redis for caching and token revocation; disabled falls back to in-memory state
	RedisHost     string
	RedisPort     int
	RedisDB       int
	RedisPassword string
	RedisDisabled bool
	// HTTP
	RateLimitPerMinute int
	AllowedOrigins     []string
	GinMode            string
	GinPath            string
	// Logging configuration
	LogLevel      string
	LogPath       string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
	// Content policy windows
	EditWindowHours             int
	QuestionDeleteWindowMinutes int
	BanSweepIntervalMinutes     int
	// Accounts promoted to admin at startup
	AdminUsernames []string
	// Registration throttling per client IP; negative disables
	RegisterAttemptCooldownSec int
	RegisterMaxPerIPPerDay     int
}

// EditWindow is how long authors may edit their own content.
func (c AppConfig) EditWindow() time.Duration {
	return time.Duration(c.EditWindowHours) * time.Hour
}

// QuestionDeleteWindow is how long authors may delete an unanswered question.
func (c AppConfig) QuestionDeleteWindow() time.Duration {
	return time.Duration(c.QuestionDeleteWindowMinutes) * time.Minute
}

// JWTTTL is the lifetime of issued tokens.
func (c AppConfig) JWTTTL() time.Duration {
	return time.Duration(c.JWTTTLHours) * time.Hour
}

var cfg AppConfig
var loaded bool

// Load loads the application configuration. It should be called once during boot.
func Load() AppConfig {
	if loaded {
		return cfg
	}

	// .env is optional; real environment variables always win over it
	if err := godotenv.Load(); err == nil {
		log.Println("loaded environment from .env")
	}

	c, err := load(filepath.Join("config", "config.json"))
	if err != nil {
		log.Fatalf("invalid configuration: %v", err)
	}
	cfg = c
	loaded = true
	return cfg
}

// Get returns the cached configuration, loading it if necessary.
func Get() AppConfig {
	if !loaded {
		return Load()
	}
	return cfg
}

// Set replaces the cached configuration. Intended for tests and tools that
// build configuration in code.
func Set(c AppConfig) {
	applyDefaults(&c)
	cfg = c
	loaded = true
}

// load applies the precedence config.json -> defaults -> environment and validates the result.
func load(path string) (AppConfig, error) {
	var c AppConfig
	if err := loadJSONConfig(path, &c); err != nil {
		return c, fmt.Errorf("parse %s: %w", path, err)
	}
	applyDefaults(&c)
	applyEnvOverrides(&c)
	return c, c.Validate()
}

// Validate reports configuration values the server cannot run with.
func (c AppConfig) Validate() error {
	var errs []error
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if c.EditWindowHours < 0 {
		errs = append(errs, errors.New("EDIT_WINDOW_HOURS must not be negative"))
	}
	if c.QuestionDeleteWindowMinutes < 0 {
		errs = append(errs, errors.New("QUESTION_DELETE_WINDOW_MINUTES must not be negative"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "dpanic", "panic", "fatal":
	default:
		errs = append(errs, fmt.Errorf("unknown LOG_LEVEL %q", c.LogLevel))
	}
	return errors.Join(errs...)
}

type fileConfig struct {
	App struct {
		AppPort            string   `json:"AppPort"`
		JWTSecret          string   `json:"JWTSecret"`
		JWTTTLHours        int      `json:"JWTTTLHours"`
		RateLimitPerMinute int      `json:"RateLimitPerMinute"`
		AllowedOrigins     []string `json:"AllowedOrigins"`
		AdminUsernames     []string `json:"AdminUsernames"`
		RegisterCooldown   int      `json:"RegisterAttemptCooldownSec"`
		RegisterMaxPerDay  int      `json:"RegisterMaxPerIPPerDay"`
		GinMode            string   `json:"GinMode"`
		GinPath            string   `json:"GinPath"`
	} `json:"app"`
	Database struct {
		URI      string `json:"DatabaseURI"`
		Host     string `json:"DBHost"`
		Port     string `json:"DBPort"`
		User     string `json:"DBUser"`
		Password string `json:"DBPassword"`
		Name     string `json:"DBName"`
	} `json:"database"`
	Redis struct {
		Host     string `json:"RedisHost"`
		Port     int    `json:"RedisPort"`
		DB       int    `json:"RedisDB"`
		Password string `json:"RedisPassword"`
		Disabled bool   `json:"RedisDisabled"`
	} `json:"redis"`
	Log struct {
		Level      string `json:"LogLevel"`
		Path       string `json:"LogPath"`
		MaxSizeMB  int    `json:"LogMaxSizeMB"`
		MaxBackups int    `json:"LogMaxBackups"`
		MaxAgeDays int    `json:"LogMaxAgeDays"`
		Compress   bool   `json:"LogCompress"`
	} `json:"log"`
	Policy struct {
		EditWindowHours             int `json:"EditWindowHours"`
		QuestionDeleteWindowMinutes int `json:"QuestionDeleteWindowMinutes"`
		BanSweepIntervalMinutes     int `json:"BanSweepIntervalMinutes"`
	} `json:"policy"`
}

// loadJSONConfig reads the grouped JSON file into out if present. Returns error only for invalid JSON.
func loadJSONConfig(path string, out *AppConfig) error {
	f, err := os.Open(path)
	if err != nil {
		return nil // silently ignore missing file
	}
	defer f.Close()

	var fc fileConfig
	if err := json.NewDecoder(f).Decode(&fc); err != nil {
		return err
	}

	out.AppPort = fc.App.AppPort
	out.JWTSecret = fc.App.JWTSecret
	out.JWTTTLHours = fc.App.JWTTTLHours
	out.RateLimitPerMinute = fc.App.RateLimitPerMinute
	out.AllowedOrigins = fc.App.AllowedOrigins
	out.AdminUsernames = fc.App.AdminUsernames
	out.RegisterAttemptCooldownSec = fc.App.RegisterCooldown
	out.RegisterMaxPerIPPerDay = fc.App.RegisterMaxPerDay
	out.GinMode = fc.App.GinMode
	out.GinPath = fc.App.GinPath

	out.DatabaseURI = fc.Database.URI
	out.DBHost = fc.Database.Host
	out.DBPort = fc.Database.Port
	out.DBUser = fc.Database.User
	out.DBPassword = fc.Database.Password
	out.DBName = fc.Database.Name

	out.RedisHost = fc.Redis.Host
	out.RedisPort = fc.Redis.Port
	out.RedisDB = fc.Redis.DB
	out.RedisPassword = fc.Redis.Password
	out.RedisDisabled = fc.Redis.Disabled

	out.LogLevel = fc.Log.Level
	out.LogPath = fc.Log.Path
	out.LogMaxSizeMB = fc.Log.MaxSizeMB
	out.LogMaxBackups = fc.Log.MaxBackups
	out.LogMaxAgeDays = fc.Log.MaxAgeDays
	out.LogCompress = fc.Log.Compress

	out.EditWindowHours = fc.Policy.EditWindowHours
	out.QuestionDeleteWindowMinutes = fc.Policy.QuestionDeleteWindowMinutes
	out.BanSweepIntervalMinutes = fc.Policy.BanSweepIntervalMinutes
	return nil
}

// applyDefaults sets sane defaults for zero-value fields.
func applyDefaults(c *AppConfig) {
	if c.AppPort == "" {
		c.AppPort = "8080"
	}
	if c.JWTTTLHours == 0 {
		c.JWTTTLHours = 72
	}
	if c.GinMode == "" {
		c.GinMode = "release"
	}
	if c.GinPath == "" {
		c.GinPath = "logs/go_gin.log"
	}
	if c.RateLimitPerMinute == 0 {
		c.RateLimitPerMinute = 60
	}
	if len(c.AllowedOrigins) == 0 {
		c.AllowedOrigins = []string{"*"}
	}
	if c.DBHost == "" {
		c.DBHost = "127.0.0.1"
	}
	if c.DBPort == "" {
		c.DBPort = "3306"
	}
	if c.DBUser == "" {
		c.DBUser = "root"
	}
	if c.DBName == "" {
		c.DBName = "expertqa"
	}
	if c.RedisHost == "" {
		c.RedisHost = "127.0.0.1"
	}
	if c.RedisPort == 0 {
		c.RedisPort = 6379
	}
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.LogMaxSizeMB == 0 {
		c.LogMaxSizeMB = 100
	}
	if c.LogMaxBackups == 0 {
		c.LogMaxBackups = 3
	}
	if c.LogMaxAgeDays == 0 {
		c.LogMaxAgeDays = 7
	}
	if c.EditWindowHours == 0 {
		c.EditWindowHours = 24
	}
	if c.QuestionDeleteWindowMinutes == 0 {
		c.QuestionDeleteWindowMinutes = 60
	}
	if c.BanSweepIntervalMinutes == 0 {
		c.BanSweepIntervalMinutes = 5
	}
	if c.RegisterAttemptCooldownSec == 0 {
		c.RegisterAttemptCooldownSec = 10
	}
	if c.RegisterMaxPerIPPerDay == 0 {
		c.RegisterMaxPerIPPerDay = 20
	}
}

// applyEnvOverrides maps known environment variables onto config values when present.
func applyEnvOverrides(c *AppConfig) {
	if v := getEnv("APP_PORT", ""); v != "" {
		c.AppPort = v
	}
	if v := getEnv("JWT_SECRET", ""); v != "" {
		c.JWTSecret = v
	}
	if v := getEnv("JWT_TTL_HOURS", ""); v != "" {
		c.JWTTTLHours = mustParseInt(v)
	}
	if v := getEnv("GIN_MODE", ""); v != "" {
		c.GinMode = v
	}
	if v := getEnv("GIN_PATH", ""); v != "" {
		c.GinPath = v
	}
	if v := getEnv("DATABASE_URI", ""); v != "" {
		c.DatabaseURI = v
	}
	if v := getEnv("DB_HOST", ""); v != "" {
		c.DBHost = v
	}
	if v := getEnv("DB_PORT", ""); v != "" {
		c.DBPort = v
	}
	if v := getEnv("DB_USER", ""); v != "" {
		c.DBUser = v
	}
	if v := getEnv("DB_PASSWORD", ""); v != "" {
		c.DBPassword = v
	}
	if v := getEnv("DB_NAME", ""); v != "" {
		c.DBName = v
	}
	if v := getEnv("REDIS_HOST", ""); v != "" {
		c.RedisHost = v
	}
	if v := getEnv("REDIS_PORT", ""); v != "" {
		c.RedisPort = mustParseInt(v)
	}
	if v := getEnv("REDIS_DB", ""); v != "" {
		c.RedisDB = mustParseInt(v)
	}
	if v := getEnv("REDIS_PASSWORD", ""); v != "" {
		c.RedisPassword = v
	}
	if v := getEnv("REDIS_DISABLED", ""); v != "" {
		c.RedisDisabled = parseBool(v)
	}
	if v := getEnv("RATE_LIMIT_PER_MINUTE", ""); v != "" {
		c.RateLimitPerMinute = mustParseInt(v)
	}
	c.AllowedOrigins = readListEnv("ALLOWED_ORIGINS", c.AllowedOrigins)
	c.AdminUsernames = readListEnv("ADMIN_USERNAMES", c.AdminUsernames)
	if v := getEnv("LOG_LEVEL", ""); v != "" {
		c.LogLevel = strings.ToLower(v)
	}
	if v := getEnv("LOG_PATH", ""); v != "" {
		c.LogPath = v
	}
	if v := getEnv("LOG_MAX_SIZE_MB", ""); v != "" {
		c.LogMaxSizeMB = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_BACKUPS", ""); v != "" {
		c.LogMaxBackups = mustParseInt(v)
	}
	if v := getEnv("LOG_MAX_AGE_DAYS", ""); v != "" {
		c.LogMaxAgeDays = mustParseInt(v)
	}
	if v := getEnv("LOG_COMPRESS", ""); v != "" {
		c.LogCompress = parseBool(v)
	}
	if v := getEnv("EDIT_WINDOW_HOURS", ""); v != "" {
		c.EditWindowHours = mustParseInt(v)
	}
	if v := getEnv("QUESTION_DELETE_WINDOW_MINUTES", ""); v != "" {
		c.QuestionDeleteWindowMinutes = mustParseInt(v)
	}
	if v := getEnv("BAN_SWEEP_INTERVAL_MINUTES", ""); v != "" {
		c.BanSweepIntervalMinutes = mustParseInt(v)
	}
	if v := getEnv("REGISTER_ATTEMPT_COOLDOWN_SEC", ""); v != "" {
		c.RegisterAttemptCooldownSec = mustParseInt(v)
	}
	if v := getEnv("REGISTER_MAX_PER_IP_PER_DAY", ""); v != "" {
		c.RegisterMaxPerIPPerDay = mustParseInt(v)
	}
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func mustParseInt(val string) int {
	n, err := strconv.Atoi(strings.TrimSpace(val))
	if err != nil {
		log.Printf("invalid integer config value %q: %v", val, err)
		return 0
	}
	return n
}

func parseBool(val string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(val))
	return b
}

func readListEnv(key string, defaults []string) []string {
	if raw := os.Getenv(key); raw != "" {
		return splitAndTrim(raw)
	}
	return defaults
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
