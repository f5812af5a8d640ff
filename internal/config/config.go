package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/adrg/xdg"
	yaml "gopkg.in/yaml.v3"
)

type AppConfig struct {
	EnginePath        string
	EngineThreads     int
	EngineHashMB      int
	EngineShowWDL     bool
	EnginePoolSize    int
	EngineStopTimeout time.Duration

	AnalysisDefaultDepth int
	AnalysisMaxDepth     int

	HTTPAddr string
	WSAddr   string

	RedisURL         string
	AnalysisCacheTTL time.Duration

	ResolverURL    string
	ResolverAPIKey string
	ResolverModel  string

	MsgcatDir string
}

// fileConfig is the optional YAML config file. Environment variables
// override it.
type fileConfig struct {
	Engine struct {
		Path          string `yaml:"path"`
		Threads       int    `yaml:"threads"`
		HashMB        int    `yaml:"hash_mb"`
		ShowWDL       *bool  `yaml:"show_wdl"`
		PoolSize      int    `yaml:"pool_size"`
		StopTimeoutMS int    `yaml:"stop_timeout_ms"`
	} `yaml:"engine"`
	Analysis struct {
		DefaultDepth int `yaml:"default_depth"`
		MaxDepth     int `yaml:"max_depth"`
		CacheTTLSec  int `yaml:"cache_ttl_sec"`
	} `yaml:"analysis"`
	HTTPAddr string `yaml:"http_addr"`
	WSAddr   string `yaml:"ws_addr"`
	RedisURL string `yaml:"redis_url"`
	Resolver struct {
		URL   string `yaml:"url"`
		Model string `yaml:"model"`
	} `yaml:"resolver"`
}

func defaults() *AppConfig {
	return &AppConfig{
		EngineThreads:        2,
		EngineHashMB:         64,
		EngineShowWDL:        true,
		EngineStopTimeout:    3 * time.Second,
		AnalysisDefaultDepth: 20,
		AnalysisMaxDepth:     40,
		HTTPAddr:             ":8080",
		WSAddr:               ":8081",
		AnalysisCacheTTL:     time.Hour,
	}
}

// configPath is XQ_CONFIG, or xqtutor/config.yaml under the XDG config
// directories when that exists.
func configPath() string {
	if path := strings.TrimSpace(os.Getenv("XQ_CONFIG")); path != "" {
		return path
	}
	path, err := xdg.SearchConfigFile(filepath.Join("xqtutor", "config.yaml"))
	if err != nil {
		return ""
	}
	return path
}

// Load builds the configuration from defaults, the optional config file
// and the environment, in that order.
func Load() (*AppConfig, error) {
	cfg := defaults()

	if path := configPath(); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}

	var errs []error
	envString("ENGINE_PATH", &cfg.EnginePath)
	errs = append(errs,
		envInt("ENGINE_THREADS", &cfg.EngineThreads),
		envInt("ENGINE_HASH_MB", &cfg.EngineHashMB),
		envBool("ENGINE_SHOW_WDL", &cfg.EngineShowWDL),
		envInt("ENGINE_POOL_SIZE", &cfg.EnginePoolSize),
		envMillis("ENGINE_STOP_TIMEOUT_MS", &cfg.EngineStopTimeout),
		envInt("ANALYSIS_DEFAULT_DEPTH", &cfg.AnalysisDefaultDepth),
		envInt("ANALYSIS_MAX_DEPTH", &cfg.AnalysisMaxDepth),
		envSeconds("ANALYSIS_CACHE_TTL_SEC", &cfg.AnalysisCacheTTL),
	)
	envString("HTTP_ADDR", &cfg.HTTPAddr)
	envString("WS_ADDR", &cfg.WSAddr)
	envString("REDIS_URL", &cfg.RedisURL)
	envString("RESOLVER_URL", &cfg.ResolverURL)
	envString("RESOLVER_API_KEY", &cfg.ResolverAPIKey)
	envString("RESOLVER_MODEL", &cfg.ResolverModel)
	envString("MSGCAT_DIR", &cfg.MsgcatDir)

	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *AppConfig) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var f fileConfig
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&c.EnginePath, f.Engine.Path)
	setInt(&c.EngineThreads, f.Engine.Threads)
	setInt(&c.EngineHashMB, f.Engine.HashMB)
	if f.Engine.ShowWDL != nil {
		c.EngineShowWDL = *f.Engine.ShowWDL
	}
	setInt(&c.EnginePoolSize, f.Engine.PoolSize)
	if f.Engine.StopTimeoutMS > 0 {
		c.EngineStopTimeout = time.Duration(f.Engine.StopTimeoutMS) * time.Millisecond
	}
	setInt(&c.AnalysisDefaultDepth, f.Analysis.DefaultDepth)
	setInt(&c.AnalysisMaxDepth, f.Analysis.MaxDepth)
	if f.Analysis.CacheTTLSec > 0 {
		c.AnalysisCacheTTL = time.Duration(f.Analysis.CacheTTLSec) * time.Second
	}
	setString(&c.HTTPAddr, f.HTTPAddr)
	setString(&c.WSAddr, f.WSAddr)
	setString(&c.RedisURL, f.RedisURL)
	setString(&c.ResolverURL, f.Resolver.URL)
	setString(&c.ResolverModel, f.Resolver.Model)
	return nil
}

func (c *AppConfig) validate() error {
	if c.EngineThreads <= 0 {
		return fmt.Errorf("ENGINE_THREADS must be > 0: %d", c.EngineThreads)
	}
	if c.EngineHashMB <= 0 {
		return fmt.Errorf("ENGINE_HASH_MB must be > 0: %d", c.EngineHashMB)
	}
	if c.EnginePoolSize < 0 {
		return fmt.Errorf("ENGINE_POOL_SIZE must be >= 0: %d", c.EnginePoolSize)
	}
	if c.AnalysisMaxDepth <= 0 {
		return fmt.Errorf("ANALYSIS_MAX_DEPTH must be > 0: %d", c.AnalysisMaxDepth)
	}
	if c.AnalysisDefaultDepth <= 0 || c.AnalysisDefaultDepth > c.AnalysisMaxDepth {
		return fmt.Errorf("ANALYSIS_DEFAULT_DEPTH must be in 1-%d: %d", c.AnalysisMaxDepth, c.AnalysisDefaultDepth)
	}
	return nil
}

// RequireEngine reports a missing engine binary for commands that search.
func (c *AppConfig) RequireEngine() error {
	if c.EnginePath == "" {
		return errors.New("ENGINE_PATH is required")
	}
	return nil
}

// ClampDepth maps a requested depth onto [1, AnalysisMaxDepth], with
// zero or negative meaning the default.
func (c *AppConfig) ClampDepth(depth int) int {
	if depth <= 0 {
		return c.AnalysisDefaultDepth
	}
	return min(depth, c.AnalysisMaxDepth)
}

func setString(dst *string, v string) {
	if v = strings.TrimSpace(v); v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v > 0 {
		*dst = v
	}
}

func envString(key string, dst *string) {
	setString(dst, os.Getenv(key))
}

func envInt(key string, dst *int) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = n
	return nil
}

func envBool(key string, dst *bool) error {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	*dst = b
	return nil
}

func envMillis(key string, dst *time.Duration) error {
	n := 0
	if err := envInt(key, &n); err != nil || n == 0 {
		return err
	}
	if n < 0 {
		return fmt.Errorf("%s must be > 0: %d", key, n)
	}
	*dst = time.Duration(n) * time.Millisecond
	return nil
}

func envSeconds(key string, dst *time.Duration) error {
	n := 0
	if err := envInt(key, &n); err != nil || n == 0 {
		return err
	}
	if n < 0 {
		return fmt.Errorf("%s must be > 0: %d", key, n)
	}
	*dst = time.Duration(n) * time.Second
	return nil
}
