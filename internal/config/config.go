package config

import (
	"encoding/json"
	"net/url"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"

	"github.com/prerend-dev/prerend/internal/errors"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "prerend.json"

	// DefaultPort is the default gateway listen port.
	DefaultPort = 4000

	// DefaultHost is the default gateway listen host.
	DefaultHost = "localhost"

	// DefaultRenderTimeoutMs is the per-request render deadline in
	// milliseconds.
	DefaultRenderTimeoutMs = 2000
)

// Config represents the complete prerend.json configuration plus the
// PREREND_* environment overlay.
type Config struct {
	// Name is the application name.
	Name string `json:"name,omitempty" env:"-"`

	// AppID is the hydration marker application id stamped on rendered
	// roots. Defaults to Name when empty.
	AppID string `json:"appId,omitempty" env:"PREREND_APP_ID"`

	// Host is the host to bind to.
	Host string `json:"host,omitempty" env:"PREREND_HOST"`

	// Port is the port to listen on.
	Port int `json:"port,omitempty" env:"PREREND_PORT"`

	// BaseOrigin is the absolute origin (scheme + host) prepended to
	// relative data URLs during server-side renders. Required.
	BaseOrigin string `json:"baseOrigin,omitempty" env:"PREREND_BASE_ORIGIN"`

	// Render contains render pipeline settings.
	Render RenderConfig `json:"render,omitempty"`

	// Static contains client bundle serving settings.
	Static StaticConfig `json:"static,omitempty"`

	// API contains data-API proxy settings.
	API APIConfig `json:"api,omitempty"`

	// Modules contains lazy route module settings.
	Modules ModulesConfig `json:"modules,omitempty"`

	// Assets contains remote bundle source settings.
	Assets AssetsConfig `json:"assets,omitempty"`

	// Document contains the HTML document shell settings.
	Document DocumentConfig `json:"document,omitempty"`

	// Dev enables development mode (live reload endpoint + script
	// injection).
	Dev bool `json:"dev,omitempty" env:"PREREND_DEV"`

	// configPath stores the path where the config was loaded from.
	configPath string
}

// RenderConfig contains render pipeline settings.
type RenderConfig struct {
	// TimeoutMs is the per-request render deadline in milliseconds.
	TimeoutMs int `json:"timeoutMs,omitempty" env:"PREREND_RENDER_TIMEOUT_MS"`

	// Pretty enables indented HTML output.
	Pretty bool `json:"pretty,omitempty" env:"PREREND_RENDER_PRETTY"`
}

// StaticConfig contains client bundle serving settings.
type StaticConfig struct {
	// Dir is the directory containing the client bundle.
	Dir string `json:"dir,omitempty" env:"PREREND_STATIC_DIR"`

	// Prefix is the URL prefix bundle script tags reference.
	Prefix string `json:"prefix,omitempty" env:"PREREND_STATIC_PREFIX"`

	// Manifest is the path to the fingerprint manifest, relative to the
	// config file. Empty disables manifest resolution.
	Manifest string `json:"manifest,omitempty" env:"PREREND_STATIC_MANIFEST"`

	// Cache selects the cache header strategy: "none" or "production".
	Cache string `json:"cache,omitempty" env:"PREREND_STATIC_CACHE"`
}

// APIConfig contains data-API proxy settings.
type APIConfig struct {
	// Prefix is the URL prefix classified as data-API traffic.
	Prefix string `json:"prefix,omitempty" env:"PREREND_API_PREFIX"`

	// Backend is the origin data-API requests are forwarded to. Empty
	// disables the proxy.
	Backend string `json:"backend,omitempty" env:"PREREND_API_BACKEND"`

	// TimeoutMs bounds each proxied request in milliseconds.
	TimeoutMs int `json:"timeoutMs,omitempty" env:"PREREND_API_TIMEOUT_MS"`
}

// ModulesConfig contains lazy route module settings.
type ModulesConfig struct {
	// Map is the path to the build-produced module map JSON.
	Map string `json:"map,omitempty" env:"PREREND_MODULE_MAP"`
}

// DocumentConfig contains the HTML document shell settings.
type DocumentConfig struct {
	// Title is the page title.
	Title string `json:"title,omitempty"`

	// Lang is the html element's language attribute.
	Lang string `json:"lang,omitempty"`

	// StyleSheets are stylesheet paths linked in the head.
	StyleSheets []string `json:"styleSheets,omitempty"`

	// Scripts are the client entry bundles emitted at the end of the
	// body, after the application root.
	Scripts []string `json:"scripts,omitempty"`
}

// AssetsConfig contains remote bundle source settings.
type AssetsConfig struct {
	// S3Bucket, when set, syncs the client bundle from S3 into
	// Static.Dir at startup.
	S3Bucket string `json:"s3Bucket,omitempty" env:"PREREND_S3_BUCKET"`

	// S3Prefix is the key prefix within the bucket.
	S3Prefix string `json:"s3Prefix,omitempty" env:"PREREND_S3_PREFIX"`
}

// New creates a new Config with default values.
func New() *Config {
	return &Config{
		Host: DefaultHost,
		Port: DefaultPort,
		Render: RenderConfig{
			TimeoutMs: DefaultRenderTimeoutMs,
		},
		Static: StaticConfig{
			Dir:    "dist/browser",
			Prefix: "/",
		},
		API: APIConfig{
			Prefix:    "/api",
			TimeoutMs: 10000,
		},
	}
}

// Load reads configuration from the specified directory, then applies
// the environment overlay.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path, then
// applies the environment overlay.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("E303").
				WithDetail("No " + ConfigFileName + " found in " + filepath.Dir(path)).
				WithSuggestion("Create " + ConfigFileName + " or pass --config")
		}
		return nil, errors.New("E303").Wrap(err)
	}

	cfg := New()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, errors.New("E303").
			WithDetail("Failed to parse " + ConfigFileName + ": " + err.Error()).
			WithSuggestion("Check that " + ConfigFileName + " is valid JSON")
	}

	cfg.configPath = path
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()

	return cfg, nil
}

// FromEnv builds a Config from defaults and the environment alone,
// for deployments that carry no prerend.json.
func FromEnv() (*Config, error) {
	cfg := New()
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	return cfg, nil
}

// ApplyEnv overlays PREREND_* environment variables onto the config.
// Environment values win over file values.
func (c *Config) ApplyEnv() error {
	if err := env.Parse(c); err != nil {
		return errors.New("E303").
			WithDetail("Failed to parse environment: " + err.Error())
	}
	return nil
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// Dir returns the directory containing the config file.
func (c *Config) Dir() string {
	if c.configPath == "" {
		return ""
	}
	return filepath.Dir(c.configPath)
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	if c.Host == "" {
		c.Host = DefaultHost
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.AppID == "" {
		c.AppID = c.Name
	}
	if c.Render.TimeoutMs == 0 {
		c.Render.TimeoutMs = DefaultRenderTimeoutMs
	}
	if c.Static.Dir == "" {
		c.Static.Dir = "dist/browser"
	}
	if c.Static.Prefix == "" {
		c.Static.Prefix = "/"
	}
	if c.API.Prefix == "" {
		c.API.Prefix = "/api"
	}
	if c.API.TimeoutMs == 0 {
		c.API.TimeoutMs = 10000
	}
}

// Validate checks whether the configuration can run a gateway. The
// base origin and module map rules are fail-fast: a gateway must not
// start without them.
func (c *Config) Validate() error {
	if c.Port < 0 || c.Port > 65535 {
		return errors.New("E303").
			WithDetail("Port must be between 0 and 65535")
	}
	if c.BaseOrigin == "" {
		return errors.New("E301")
	}
	u, err := url.Parse(c.BaseOrigin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("E301").
			WithDetail("Base origin " + c.BaseOrigin + " is not an absolute http(s) origin")
	}
	if c.Modules.Map != "" {
		if _, err := os.Stat(c.modMapPath()); err != nil {
			return errors.New("E302").
				WithDetail("Module map " + c.Modules.Map + " is not readable: " + err.Error())
		}
	}
	switch c.Static.Cache {
	case "", "none", "production":
	default:
		return errors.New("E303").
			WithDetail("static.cache must be \"none\" or \"production\", got " + c.Static.Cache)
	}
	if c.API.Backend != "" {
		bu, err := url.Parse(c.API.Backend)
		if err != nil || bu.Scheme == "" || bu.Host == "" {
			return errors.New("E303").
				WithDetail("API backend " + c.API.Backend + " is not an absolute URL")
		}
	}
	return nil
}

// Addr returns the listen address string.
func (c *Config) Addr() string {
	return c.Host + ":" + itoa(c.Port)
}

// StaticPath returns the absolute path to the client bundle directory.
func (c *Config) StaticPath() string {
	if filepath.IsAbs(c.Static.Dir) {
		return c.Static.Dir
	}
	return filepath.Join(c.Dir(), c.Static.Dir)
}

// ManifestPath returns the absolute path to the fingerprint manifest,
// or "" when none is configured.
func (c *Config) ManifestPath() string {
	if c.Static.Manifest == "" {
		return ""
	}
	if filepath.IsAbs(c.Static.Manifest) {
		return c.Static.Manifest
	}
	return filepath.Join(c.Dir(), c.Static.Manifest)
}

// ModuleMapPath returns the absolute path to the module map file, or
// "" when none is configured.
func (c *Config) ModuleMapPath() string {
	if c.Modules.Map == "" {
		return ""
	}
	return c.modMapPath()
}

func (c *Config) modMapPath() string {
	if filepath.IsAbs(c.Modules.Map) {
		return c.Modules.Map
	}
	return filepath.Join(c.Dir(), c.Modules.Map)
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

// FindProjectRoot walks up directories to find the directory containing
// prerend.json.
func FindProjectRoot(startDir string) (string, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return "", err
	}

	for {
		if Exists(dir) {
			return dir, nil
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			return "", errors.New("E303").
				WithDetail("No " + ConfigFileName + " found in " + startDir + " or any parent directory")
		}
		dir = parent
	}
}

// itoa converts int to string without importing strconv.
func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	if n < 0 {
		return "-" + itoa(-n)
	}
	digits := make([]byte, 0, 10)
	for n > 0 {
		digits = append(digits, byte('0'+n%10))
		n /= 10
	}
	for i, j := 0, len(digits)-1; i < j; i, j = i+1, j-1 {
		digits[i], digits[j] = digits[j], digits[i]
	}
	return string(digits)
}
