package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"snapsqueeze/src/compress"
)

const (
	EnvPathEnvVar    = "SNAPSQUEEZE_ENV"
	ConfigPathEnvVar = "SNAPSQUEEZE_CONFIG"
	DefaultHotkey    = "Cmd+Alt+4"
	DefaultScale     = 0.5
	DefaultFormat    = compress.PNG
	DefaultLogLevel  = "info"

	DefaultMemoryCheckIntervalSec = 5
	DefaultMemoryThresholdPercent = 85.0
	DefaultWorkerPoolSize         = 2

	yamlFileName = "snapsqueeze.yaml"
)

type LoadOptions struct {
	EnvPath        string
	ConfigPath     string
	ScaleOverride  float64
	FormatOverride string
	HotkeyOverride string
}

type Config struct {
	Hotkey                 string
	TargetScale            float64
	OutputFormat           compress.Format
	EnableFileLogging      bool
	LogLevel               string
	MemoryCheckIntervalSec int
	MemoryThresholdPercent float64
	WorkerPoolSize         int
	// CaptureRegion is "x,y,w,h" or empty for the whole primary display.
	CaptureRegion string

	EnvPath    string
	ConfigPath string
	// Warnings lists values that were rejected in favour of defaults.
	Warnings []string
}

func Load() (*Config, error) {
	return LoadWithOptions(LoadOptions{})
}

// LoadWithOptions merges, lowest first: defaults, the YAML file, the process
// environment, the .env file and opts.
func LoadWithOptions(opts LoadOptions) (*Config, error) {
	envPath := resolveEnvPath(opts)
	dotenvValues := readDotenvValues(envPath)
	if envPath != "" {
		_ = godotenv.Load(envPath)
	}

	configPath := resolveConfigPath(opts)
	fileValues, err := readYAMLValues(configPath)
	if err != nil {
		return nil, err
	}

	l := lookup{file: fileValues, dotenv: dotenvValues}
	cfg := &Config{
		Hotkey:        l.stringValue("HOTKEY", DefaultHotkey),
		LogLevel:      strings.ToLower(l.stringValue("LOG_LEVEL", DefaultLogLevel)),
		CaptureRegion: l.stringValue("CAPTURE_REGION", ""),
		EnvPath:       envPath,
		ConfigPath:    configPath,
	}
	cfg.EnableFileLogging = strings.ToLower(l.stringValue("ENABLE_FILE_LOGGING", "false")) == "true"
	cfg.TargetScale = l.scale(cfg, "TARGET_SCALE")
	cfg.OutputFormat = l.format(cfg, "OUTPUT_FORMAT")
	cfg.MemoryCheckIntervalSec = l.positiveInt(cfg, "MEMORY_CHECK_INTERVAL_SEC", DefaultMemoryCheckIntervalSec)
	cfg.WorkerPoolSize = l.positiveInt(cfg, "WORKER_POOL_SIZE", DefaultWorkerPoolSize)
	cfg.MemoryThresholdPercent = l.percent(cfg, "MEMORY_THRESHOLD_PERCENT", DefaultMemoryThresholdPercent)

	applyOverrides(cfg, opts)
	return cfg, nil
}

// Request builds the compression request for the configured scale and format.
func (c *Config) Request() compress.Request {
	req, err := compress.NewRequest(c.TargetScale, c.OutputFormat)
	if err != nil {
		return compress.MustRequest(DefaultScale, DefaultFormat)
	}
	return req
}

// Files returns the configuration files that exist on disk.
func (c *Config) Files() []string {
	var files []string
	for _, p := range []string{c.EnvPath, c.ConfigPath} {
		if p != "" {
			files = append(files, p)
		}
	}
	return files
}

func applyOverrides(cfg *Config, opts LoadOptions) {
	if opts.ScaleOverride != 0 {
		if validScale(opts.ScaleOverride) {
			cfg.TargetScale = opts.ScaleOverride
		} else {
			cfg.warn("scale override %v outside (0,1]", opts.ScaleOverride)
		}
	}
	if v := strings.TrimSpace(opts.FormatOverride); v != "" {
		if f, err := compress.ParseFormat(v); err == nil {
			cfg.OutputFormat = f
		} else {
			cfg.warn("format override: %v", err)
		}
	}
	if v := strings.TrimSpace(opts.HotkeyOverride); v != "" {
		cfg.Hotkey = v
	}
}

func (c *Config) warn(format string, args ...any) {
	c.Warnings = append(c.Warnings, fmt.Sprintf(format, args...))
}

func resolveEnvPath(opts LoadOptions) string {
	if p := strings.TrimSpace(opts.EnvPath); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
		return ""
	}

	if execDir := executableDir(); execDir != "" {
		exeEnv := filepath.Join(execDir, ".env")
		if _, err := os.Stat(exeEnv); err == nil {
			return exeEnv
		}
	}

	if alt := os.Getenv(EnvPathEnvVar); alt != "" {
		if _, err := os.Stat(alt); err == nil {
			return alt
		}
	}

	return ""
}

func resolveConfigPath(opts LoadOptions) string {
	candidates := []string{strings.TrimSpace(opts.ConfigPath)}
	if opts.ConfigPath == "" {
		candidates = append(candidates, os.Getenv(ConfigPathEnvVar))
		if execDir := executableDir(); execDir != "" {
			candidates = append(candidates, filepath.Join(execDir, yamlFileName))
		}
	}
	for _, p := range candidates {
		if p == "" {
			continue
		}
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

func executableDir() string {
	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	return filepath.Dir(execPath)
}

func readDotenvValues(envPath string) map[string]string {
	if envPath == "" {
		return map[string]string{}
	}

	values, err := godotenv.Read(envPath)
	if err != nil {
		return map[string]string{}
	}

	return values
}

// readYAMLValues reads a flat YAML mapping whose keys are the lower-case
// environment variable names.
func readYAMLValues(path string) (map[string]string, error) {
	values := map[string]string{}
	if path == "" {
		return values, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	for k, v := range raw {
		values[strings.ToUpper(strings.TrimSpace(k))] = strings.TrimSpace(v)
	}
	return values, nil
}

type lookup struct {
	file   map[string]string
	dotenv map[string]string
}

func (l lookup) get(key string) (string, bool) {
	if v := strings.TrimSpace(l.dotenv[key]); v != "" {
		return v, true
	}
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v, true
	}
	if v := l.file[key]; v != "" {
		return v, true
	}
	return "", false
}

func (l lookup) stringValue(key, defaultValue string) string {
	if v, ok := l.get(key); ok {
		return v
	}
	return defaultValue
}

func (l lookup) scale(cfg *Config, key string) float64 {
	v, ok := l.get(key)
	if !ok {
		return DefaultScale
	}
	s, err := strconv.ParseFloat(strings.TrimSuffix(v, "%"), 64)
	if err == nil && strings.HasSuffix(v, "%") {
		s /= 100
	}
	if err != nil || !validScale(s) {
		cfg.warn("%s=%q is not a scale in (0,1]", key, v)
		return DefaultScale
	}
	return s
}

func (l lookup) format(cfg *Config, key string) compress.Format {
	v, ok := l.get(key)
	if !ok {
		return DefaultFormat
	}
	f, err := compress.ParseFormat(v)
	if err != nil {
		cfg.warn("%s: %v", key, err)
		return DefaultFormat
	}
	return f
}

func (l lookup) positiveInt(cfg *Config, key string, defaultValue int) int {
	v, ok := l.get(key)
	if !ok {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		cfg.warn("%s=%q is not a positive integer", key, v)
		return defaultValue
	}
	return n
}

func (l lookup) percent(cfg *Config, key string, defaultValue float64) float64 {
	v, ok := l.get(key)
	if !ok {
		return defaultValue
	}
	p, err := strconv.ParseFloat(v, 64)
	if err != nil || p <= 0 || p > 100 {
		cfg.warn("%s=%q is not a percentage", key, v)
		return defaultValue
	}
	return p
}

func validScale(s float64) bool { return s > 0 && s <= 1 }
