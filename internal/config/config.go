package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration required by the API process.
// All values must come from env (or a .env file loaded by main).
// No business logic should depend on raw environment variables.
type Config struct {
	App        AppConfig
	Store      StoreConfig
	DB         DBConfig
	Lock       LockConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Quota      QuotaConfig
	Classifier ClassifierConfig
	CORS       CORSConfig
	Metrics    MetricsConfig
}

type AppConfig struct {
	Env  string
	Port int
}

// StoreConfig selects the persistence backend. Accepts: postgres, sqlite.
type StoreConfig struct {
	Driver     string
	SQLitePath string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string

	// Zero keeps the pool defaults.
	MaxOpenConns int
	MaxIdleConns int
}

// LockConfig selects how per-contact mutations are serialized. Accepts: memory, redis.
// memory is only correct with a single API process.
type LockConfig struct {
	Backend string
	TTL     time.Duration
}

type RedisConfig struct {
	Host string
	Port int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
}

type QuotaConfig struct {
	PlansFile         string
	FailOpen          bool
	Timezone          string
	UnlimitedActorIDs []string
}

type ClassifierConfig struct {
	BaseURL       string
	APIKey        string
	Model         string
	Timeout       time.Duration
	MinConfidence float64
	ContextTurns  int
}

type CORSConfig struct {
	AllowedOrigins []string
}

type MetricsConfig struct {
	Namespace string
}

func Load() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}

	c.Store.Driver = strings.ToLower(strings.TrimSpace(os.Getenv("STORE_DRIVER")))
	c.Store.SQLitePath = strings.TrimSpace(os.Getenv("SQLITE_PATH"))

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := optionalInt("DB_PORT", 5432)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))
	{
		n, err := optionalInt("DB_MAX_OPEN_CONNS", 0)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.MaxOpenConns = n
	}
	{
		n, err := optionalInt("DB_MAX_IDLE_CONNS", 0)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.MaxIdleConns = n
	}

	c.Lock.Backend = strings.ToLower(strings.TrimSpace(os.Getenv("LOCK_BACKEND")))
	c.Lock.TTL = mustDuration("LOCK_TTL")

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := optionalInt("REDIS_PORT", 6379)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate() based on env.
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")

	c.Quota.PlansFile = strings.TrimSpace(os.Getenv("PLANS_FILE"))
	{
		b, err := optionalBool("QUOTA_FAIL_OPEN", true)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Quota.FailOpen = b
	}
	c.Quota.Timezone = strings.TrimSpace(os.Getenv("QUOTA_TIMEZONE"))
	c.Quota.UnlimitedActorIDs = splitList(os.Getenv("UNLIMITED_ACTOR_IDS"))

	c.Classifier.BaseURL = strings.TrimSpace(os.Getenv("CLASSIFIER_BASE_URL"))
	c.Classifier.APIKey = os.Getenv("CLASSIFIER_API_KEY")
	c.Classifier.Model = strings.TrimSpace(os.Getenv("CLASSIFIER_MODEL"))
	c.Classifier.Timeout = mustDuration("CLASSIFIER_TIMEOUT")
	{
		f, err := optionalFloat("CLASSIFIER_MIN_CONFIDENCE", 0.4)
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Classifier.MinConfidence = f
	}
	{
		n, err := optionalInt("CLASSIFIER_CONTEXT_TURNS", 6)
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Classifier.ContextTurns = n
	}

	c.CORS.AllowedOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	c.Metrics.Namespace = strings.TrimSpace(os.Getenv("METRICS_NAMESPACE"))

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate reports every problem at once and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}

	if c.Store.Driver == "" {
		c.Store.Driver = "postgres"
	}
	switch c.Store.Driver {
	case "postgres":
		errs = append(errs, c.validateDB()...)
	case "sqlite":
		if c.Store.SQLitePath == "" {
			c.Store.SQLitePath = "prospector.db"
		}
		if c.IsProduction() {
			errs = append(errs, errors.New("STORE_DRIVER=sqlite is not allowed in production"))
		}
	default:
		errs = append(errs, fmt.Errorf("STORE_DRIVER must be one of postgres, sqlite, got %q", c.Store.Driver))
	}

	if c.Lock.Backend == "" {
		c.Lock.Backend = "memory"
	}
	switch c.Lock.Backend {
	case "memory":
	case "redis":
		if c.Redis.Host == "" {
			errs = append(errs, errors.New("REDIS_HOST is required when LOCK_BACKEND=redis"))
		}
		if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
			errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
		}
	default:
		errs = append(errs, fmt.Errorf("LOCK_BACKEND must be one of memory, redis, got %q", c.Lock.Backend))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 15 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 30 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}

	if c.Quota.Timezone == "" {
		c.Quota.Timezone = "UTC"
	}
	if _, err := time.LoadLocation(c.Quota.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("QUOTA_TIMEZONE must be an IANA zone name, got %q", c.Quota.Timezone))
	}

	if c.Classifier.Timeout <= 0 {
		c.Classifier.Timeout = 8 * time.Second
	}
	if c.Classifier.MinConfidence < 0 || c.Classifier.MinConfidence > 1 {
		errs = append(errs, fmt.Errorf("CLASSIFIER_MIN_CONFIDENCE must be within [0,1], got %v", c.Classifier.MinConfidence))
	}
	if c.Classifier.ContextTurns < 0 {
		errs = append(errs, fmt.Errorf("CLASSIFIER_CONTEXT_TURNS must be >= 0, got %d", c.Classifier.ContextTurns))
	}
	if c.Classifier.BaseURL != "" && c.Classifier.Model == "" {
		errs = append(errs, errors.New("CLASSIFIER_MODEL is required when CLASSIFIER_BASE_URL is set"))
	}

	// The lock must outlive a classification so a slow reply cannot release it early.
	if c.Lock.TTL <= 0 {
		c.Lock.TTL = c.Classifier.Timeout + 22*time.Second
	}
	if c.Lock.TTL <= c.Classifier.Timeout {
		errs = append(errs, errors.New("LOCK_TTL must be greater than CLASSIFIER_TIMEOUT"))
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "prospector"
	}

	return joinErrors(errs)
}

func (c *Config) validateDB() []error {
	var errs []error
	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if c.DB.SSLMode == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			// Local-friendly default; production must be explicit.
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.MaxOpenConns < 0 || c.DB.MaxIdleConns < 0 {
		errs = append(errs, errors.New("DB_MAX_OPEN_CONNS and DB_MAX_IDLE_CONNS must not be negative"))
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}
	return errs
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

// QuotaLocation resolves the zone used for day and month window boundaries.
func (c Config) QuotaLocation() *time.Location {
	loc, err := time.LoadLocation(c.Quota.Timezone)
	if err != nil || c.Quota.Timezone == "" {
		return time.UTC
	}
	return loc
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string, def int) (int, error) {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return def, nil
	}
	return mustInt(key)
}

func optionalBool(key string, def bool) (bool, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, fmt.Errorf("%s must be a boolean, got %q", key, v)
	}
	return b, nil
}

func optionalFloat(key string, def float64) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
