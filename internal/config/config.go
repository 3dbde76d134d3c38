package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Env string

const (
	EnvDevelopment Env = "development"
	EnvProduction  Env = "production"
)

// minSecretKeyLen is the shortest SECRET_KEY accepted in production.
const minSecretKeyLen = 32

type Config struct {
	Env  Env    `yaml:"env"`
	Addr string `yaml:"addr"`

	DataDir     string `yaml:"data_dir"`
	CatalogFile string `yaml:"catalog_file"`

	DBDriver string `yaml:"db_driver"` // sqlite3|sqlite|postgres
	DBDSN    string `yaml:"db_dsn"`

	SecretKey       string        `yaml:"secret_key"`
	CookieSecure    bool          `yaml:"cookie_secure"`
	SessionLifetime time.Duration `yaml:"session_lifetime"`

	CORSOrigins     []string      `yaml:"cors_origins"`
	MaxBodyBytes    int64         `yaml:"max_body_bytes"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`

	QuestionCounts []int `yaml:"question_counts"`
	SRSIntervals   []int `yaml:"srs_intervals"`
}

func Default() Config {
	return Config{
		Env:             EnvDevelopment,
		Addr:            ":8080",
		DataDir:         "./data",
		DBDriver:        "sqlite3",
		DBDSN:           "rccm-quiz.db",
		SessionLifetime: time.Hour,
		CORSOrigins:     []string{"http://localhost:3000"},
		MaxBodyBytes:    16 << 20,
		RequestTimeout:  30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		QuestionCounts:  []int{10, 20, 30},
		SRSIntervals:    []int{1, 3, 7, 21, 60, 180},
	}
}

// FromEnv builds the configuration from defaults, then the YAML file named by
// CONFIG_FILE (if any), then environment variables.
func FromEnv() (Config, error) {
	cfg := Default()
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	cfg.CookieSecure = envBool("COOKIE_SECURE", cfg.CookieSecure || cfg.Production())
	return cfg, nil
}

// ApplyFile overlays the keys present in a YAML file. Unknown keys are an
// error so typos do not go unnoticed.
func (c *Config) ApplyFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(c); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("config: decode %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.Env = Env(strings.ToLower(envOr("APP_ENV", string(c.Env))))
	c.Addr = envOr("ADDR", c.Addr)
	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		c.Addr = ":" + port
	}
	c.DataDir = envOr("DATA_DIR", c.DataDir)
	c.CatalogFile = envOr("CATALOG_FILE", c.CatalogFile)
	c.DBDriver = envOr("DB_DRIVER", c.DBDriver)
	c.DBDSN = envOr("DB_DSN", c.DBDSN)
	c.SecretKey = envOr("SECRET_KEY", c.SecretKey)
	c.CORSOrigins = csvOr("CORS_ORIGINS", c.CORSOrigins)

	var err error
	if c.SessionLifetime, err = envDuration("SESSION_LIFETIME", c.SessionLifetime); err != nil {
		return err
	}
	if c.RequestTimeout, err = envDuration("REQUEST_TIMEOUT", c.RequestTimeout); err != nil {
		return err
	}
	if c.ShutdownTimeout, err = envDuration("SHUTDOWN_TIMEOUT", c.ShutdownTimeout); err != nil {
		return err
	}
	if c.MaxBodyBytes, err = envInt64("MAX_BODY_BYTES", c.MaxBodyBytes); err != nil {
		return err
	}
	if c.QuestionCounts, err = intsOr("QUESTION_COUNTS", c.QuestionCounts); err != nil {
		return err
	}
	if c.SRSIntervals, err = intsOr("SRS_INTERVALS", c.SRSIntervals); err != nil {
		return err
	}
	return nil
}

func (c Config) Production() bool {
	return c.Env == EnvProduction
}

func (c Config) Validate() error {
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		return fmt.Errorf("config: unknown APP_ENV %q", c.Env)
	}
	if c.Production() && len(c.SecretKey) < minSecretKeyLen {
		return fmt.Errorf("config: SECRET_KEY must be at least %d characters in production", minSecretKeyLen)
	}
	if strings.TrimSpace(c.Addr) == "" {
		return errors.New("config: ADDR is required")
	}
	if c.SessionLifetime <= 0 {
		return errors.New("config: SESSION_LIFETIME must be positive")
	}
	if c.MaxBodyBytes <= 0 {
		return errors.New("config: MAX_BODY_BYTES must be positive")
	}
	if len(c.QuestionCounts) == 0 {
		return errors.New("config: QUESTION_COUNTS must not be empty")
	}
	for _, n := range c.QuestionCounts {
		if n <= 0 {
			return fmt.Errorf("config: question count %d must be positive", n)
		}
	}
	if len(c.SRSIntervals) == 0 {
		return errors.New("config: SRS_INTERVALS must not be empty")
	}
	return nil
}

func envOr(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envBool(key string, def bool) bool {
	v := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	switch v {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func envInt64(key string, def int64) (int64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be an integer", key)
	}
	return n, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s must be a duration like 30m: %w", key, err)
	}
	return d, nil
}

func csvOr(key string, def []string) []string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func intsOr(key string, def []int) ([]int, error) {
	parts := csvOr(key, nil)
	if parts == nil {
		return def, nil
	}
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("config: %s: %q is not an integer", key, p)
		}
		out = append(out, n)
	}
	return out, nil
}
