package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Storage  StorageConfig  `yaml:"storage"`
	Matcher  MatcherConfig  `yaml:"matcher"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // extra CORS origins, localhost is always allowed
}

type DatabaseConfig struct {
	Driver       string `yaml:"driver"` // postgres (read-write) or mysql (read-only legacy catalog)
	URL          string `yaml:"-"`      // connection URL or DSN, never kept in the defaults file
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// StorageConfig describes where uploaded and catalog files live.
// UploadsDir and TempDir are relative to Root.
type StorageConfig struct {
	Root       string `yaml:"root"`
	UploadsDir string `yaml:"uploads_dir"`
	TempDir    string `yaml:"temp_dir"`
}

// MatcherConfig holds the tunables of the perceptual product search.
// The thresholds are empirical and have no derivation behind them. The raster
// edge is fixed at constants.NormalizedSize and is not configurable.
type MatcherConfig struct {
	Tolerance      float64 `yaml:"tolerance"`
	ExactThreshold float64 `yaml:"exact_threshold"`
	MaxScore       float64 `yaml:"max_score"`
	Workers        int     `yaml:"workers"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a non-negative float.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f >= 0 {
		return f
	}
	return defaultVal
}

// envString returns the env var value, or defaultVal when unset or empty.
func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma separated env var, dropping empty entries.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Defaults returns the configuration embedded in defaults.yaml without any
// environment overrides applied.
func Defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// Embedded file, so this only happens when the binary was built from a broken tree.
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

func Load() *Config {
	d := Defaults()

	return &Config{
		Server: ServerConfig{
			Host:           envString("WEB_HOST", d.Server.Host),
			Port:           envInt("WEB_PORT", d.Server.Port),
			AllowedOrigins: envList("WEB_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:       strings.ToLower(envString("DATABASE_DRIVER", d.Database.Driver)),
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", d.Database.MaxOpenConns),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", d.Database.MaxIdleConns),
		},
		Storage: StorageConfig{
			Root:       envString("STORAGE_ROOT", d.Storage.Root),
			UploadsDir: envString("STORAGE_UPLOADS_DIR", d.Storage.UploadsDir),
			TempDir:    envString("STORAGE_TEMP_DIR", d.Storage.TempDir),
		},
		Matcher: MatcherConfig{
			Tolerance:      envFloat("MATCHER_TOLERANCE", d.Matcher.Tolerance),
			ExactThreshold: envFloat("MATCHER_EXACT_THRESHOLD", d.Matcher.ExactThreshold),
			MaxScore:       envFloat("MATCHER_MAX_SCORE", d.Matcher.MaxScore),
			Workers:        envInt("MATCHER_WORKERS", d.Matcher.Workers),
		},
		Log: LogConfig{
			Level:  envString("LOG_LEVEL", d.Log.Level),
			Format: envString("LOG_FORMAT", d.Log.Format),
		},
	}
}
