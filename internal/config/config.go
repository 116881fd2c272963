package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type Config struct {
	Mode     Mode
	HTTPAddr string
	SiteID   string

	DBDriver string
	DBDSN    string

	EnableLocalAuth bool
	AuthSecret      string

	AdminUser     string
	AdminPassHash string // bcrypt

	CORSOriginsOnline  []string
	CORSOriginsOffline []string

	// Quiz policy; QUIZ_CONFIG_FILE may override these.
	PassThreshold  int
	RetryThreshold int
	ReportTimezone string

	AutosaveRPS   float64
	AutosaveBurst int

	LogLevel string
	LogFile  string
}

// policyFile is the YAML overlay read from QUIZ_CONFIG_FILE.
type policyFile struct {
	PassThreshold  *int     `yaml:"pass_threshold"`
	RetryThreshold *int     `yaml:"retry_threshold"`
	ReportTimezone string   `yaml:"report_timezone"`
	AutosaveRPS    *float64 `yaml:"autosave_rps"`
	AutosaveBurst  *int     `yaml:"autosave_burst"`
}

// Load reads .env (if present), the environment and the optional policy
// file, then validates the result.
func Load() (Config, error) {
	_ = godotenv.Load()
	cfg := FromEnv()
	if path := os.Getenv("QUIZ_CONFIG_FILE"); path != "" {
		if err := cfg.ApplyFile(path); err != nil {
			return Config{}, err
		}
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func FromEnv() Config {
	mode := Mode(os.Getenv("MODE"))
	if mode == "" {
		mode = ModeOffline
	}
	return Config{
		Mode:               mode,
		HTTPAddr:           envOr("HTTP_ADDR", ":8080"),
		SiteID:             envOr("SITE_ID", "local"),
		DBDriver:           envOr("DB_DRIVER", "sqlite"),
		DBDSN:              envOr("DB_DSN", ""),
		EnableLocalAuth:    envBool("ENABLE_LOCAL_AUTH", true),
		AuthSecret:         envOr("AUTH_SECRET", "dev-secret-change-me"),
		AdminUser:          envOr("ADMIN_USER", "admin"),
		AdminPassHash:      envOr("ADMIN_PASS_HASH", "$2y$12$pyZAiWaTfVtM7UElIRStvOC3gNbnp70nmQU4eYopLGBfCJr1DOvji"),
		CORSOriginsOnline:  csvOr("CORS_ORIGINS_ONLINE", "https://quiz.mindengage.ai"),
		CORSOriginsOffline: csvOr("CORS_ORIGINS_OFFLINE", "http://localhost:3000,http://localhost:3010"),
		PassThreshold:      envInt("QUIZ_PASS_THRESHOLD", 80),
		RetryThreshold:     envInt("QUIZ_RETRY_THRESHOLD", 90),
		ReportTimezone:     envOr("QUIZ_REPORT_TZ", "UTC"),
		AutosaveRPS:        envFloat("AUTOSAVE_RPS", 2),
		AutosaveBurst:      envInt("AUTOSAVE_BURST", 5),
		LogLevel:           envOr("LOG_LEVEL", "info"),
		LogFile:            os.Getenv("LOG_FILE"),
	}
}

// ApplyFile overlays policy values from a YAML file. Absent keys keep
// their current value.
func (c *Config) ApplyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	var pf policyFile
	if err := yaml.Unmarshal(raw, &pf); err != nil {
		return fmt.Errorf("config: parse %s: %w", path, err)
	}
	if pf.PassThreshold != nil {
		c.PassThreshold = *pf.PassThreshold
	}
	if pf.RetryThreshold != nil {
		c.RetryThreshold = *pf.RetryThreshold
	}
	if pf.ReportTimezone != "" {
		c.ReportTimezone = pf.ReportTimezone
	}
	if pf.AutosaveRPS != nil {
		c.AutosaveRPS = *pf.AutosaveRPS
	}
	if pf.AutosaveBurst != nil {
		c.AutosaveBurst = *pf.AutosaveBurst
	}
	return nil
}

func (c Config) Validate() error {
	switch c.Mode {
	case ModeOffline, ModeOnline:
	default:
		return fmt.Errorf("config: unknown MODE %q", c.Mode)
	}
	switch c.DBDriver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("config: unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.PassThreshold < 0 || c.PassThreshold > 100 {
		return fmt.Errorf("config: pass threshold %d outside 0..100", c.PassThreshold)
	}
	if c.RetryThreshold < 0 || c.RetryThreshold > 100 {
		return fmt.Errorf("config: retry threshold %d outside 0..100", c.RetryThreshold)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.AutosaveRPS <= 0 || c.AutosaveBurst < 1 {
		return fmt.Errorf("config: autosave limit must be positive")
	}
	if c.Mode == ModeOnline && c.AuthSecret == "dev-secret-change-me" {
		return fmt.Errorf("config: AUTH_SECRET must be set in online mode")
	}
	return nil
}

// Location resolves the reporting timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.ReportTimezone)
	if err != nil {
		return nil, fmt.Errorf("config: timezone %q: %w", c.ReportTimezone, err)
	}
	return loc, nil
}

func envOr(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}
func envBool(k string, def bool) bool {
	switch os.Getenv(k) {
	case "1", "true", "TRUE", "yes", "YES":
		return true
	case "0", "false", "FALSE", "no", "NO":
		return false
	default:
		return def
	}
}
func envInt(k string, def int) int {
	n, err := strconv.Atoi(strings.TrimSpace(os.Getenv(k)))
	if err != nil {
		return def
	}
	return n
}
func envFloat(k string, def float64) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(os.Getenv(k)), 64)
	if err != nil {
		return def
	}
	return f
}
func csvOr(k, def string) []string {
	v := envOr(k, def)
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
