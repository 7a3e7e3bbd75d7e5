// File: internal/config/config.go
package config

import (
	"fmt"
	"math"
	"strings"

	"github.com/spf13/viper"

	"github.com/xkilldash9x/elementcore/internal/geometry"
)

// Interface defines the contract for accessing application configuration.
// This allows for dependency injection and mocking in tests.
type Interface interface {
	Logger() LoggerConfig
	Layout() LayoutConfig
	Resolver() ResolverConfig
	Output() OutputConfig

	// Layout Setters
	SetLayoutRounding(bool)
	SetViewport(width, height float64)
	SetConcurrency(int)

	// Output Setters
	SetOutputFormat(string)
	SetOutputPretty(bool)
}

// Config holds the entire application configuration.
type Config struct {
	LoggerCfg   LoggerConfig   `mapstructure:"logger" yaml:"logger"`
	LayoutCfg   LayoutConfig   `mapstructure:"layout" yaml:"layout"`
	ResolverCfg ResolverConfig `mapstructure:"resolver" yaml:"resolver"`
	OutputCfg   OutputConfig   `mapstructure:"output" yaml:"output"`
}

var _ Interface = (*Config)(nil)

// --- Interface Method Implementations (Getters) ---

func (c *Config) Logger() LoggerConfig     { return c.LoggerCfg }
func (c *Config) Layout() LayoutConfig     { return c.LayoutCfg }
func (c *Config) Resolver() ResolverConfig { return c.ResolverCfg }
func (c *Config) Output() OutputConfig     { return c.OutputCfg }

// --- Interface Method Implementations (Setters) ---

func (c *Config) SetLayoutRounding(b bool) { c.LayoutCfg.UseLayoutRounding = b }
func (c *Config) SetViewport(width, height float64) {
	c.LayoutCfg.ViewportWidth = width
	c.LayoutCfg.ViewportHeight = height
}
func (c *Config) SetConcurrency(n int) { c.LayoutCfg.Concurrency = n }

func (c *Config) SetOutputFormat(f string) { c.OutputCfg.Format = f }
func (c *Config) SetOutputPretty(b bool)   { c.OutputCfg.Pretty = b }

// LoggerConfig holds all the configuration for the logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// LayoutConfig configures the layout engine and the trees it runs over.
type LayoutConfig struct {
	UseLayoutRounding bool    `mapstructure:"use_layout_rounding" yaml:"use_layout_rounding"`
	DPIScaleX         float64 `mapstructure:"dpi_scale_x" yaml:"dpi_scale_x"`
	DPIScaleY         float64 `mapstructure:"dpi_scale_y" yaml:"dpi_scale_y"`
	MaxTreeDepth      int     `mapstructure:"max_tree_depth" yaml:"max_tree_depth"`
	MaxLayoutPasses   int     `mapstructure:"max_layout_passes" yaml:"max_layout_passes"`
	ViewportWidth     float64 `mapstructure:"viewport_width" yaml:"viewport_width"`
	ViewportHeight    float64 `mapstructure:"viewport_height" yaml:"viewport_height"`
	// Concurrency bounds how many scenes are laid out at once.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

func (l LayoutConfig) DPI() geometry.DPI {
	return geometry.DPI{ScaleX: l.DPIScaleX, ScaleY: l.DPIScaleY}
}

func (l LayoutConfig) Viewport() geometry.Size {
	return geometry.Size{Width: l.ViewportWidth, Height: l.ViewportHeight}
}

// ResolverConfig bounds property resolution.
type ResolverConfig struct {
	MaxResolutionDepth int `mapstructure:"max_resolution_depth" yaml:"max_resolution_depth"`
}

// OutputConfig selects how layout reports are written.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format"`
	Pretty bool   `mapstructure:"pretty" yaml:"pretty"`
	Path   string `mapstructure:"path" yaml:"path"`
}

// EnvPrefix prefixes environment overrides, as in ELEMENTCORE_LAYOUT_MAX_TREE_DEPTH.
const EnvPrefix = "ELEMENTCORE"

// BindEnvironment lets environment variables override every known key.
func BindEnvironment(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// NewDefaultConfig creates a new configuration struct populated with default values.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "elementcore")
	v.SetDefault("logger.log_file", "")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)
	v.SetDefault("logger.colors.debug", "cyan")
	v.SetDefault("logger.colors.info", "green")
	v.SetDefault("logger.colors.warn", "yellow")
	v.SetDefault("logger.colors.error", "red")
	v.SetDefault("logger.colors.dpanic", "magenta")
	v.SetDefault("logger.colors.panic", "magenta")
	v.SetDefault("logger.colors.fatal", "magenta")

	// -- Layout --
	v.SetDefault("layout.use_layout_rounding", false)
	v.SetDefault("layout.dpi_scale_x", 1.0)
	v.SetDefault("layout.dpi_scale_y", 1.0)
	v.SetDefault("layout.max_tree_depth", 256)
	v.SetDefault("layout.max_layout_passes", 64)
	v.SetDefault("layout.viewport_width", 800.0)
	v.SetDefault("layout.viewport_height", 600.0)
	v.SetDefault("layout.concurrency", 4)

	// -- Resolver --
	v.SetDefault("resolver.max_resolution_depth", 4096)

	// -- Output --
	v.SetDefault("output.format", "json")
	v.SetDefault("output.pretty", true)
	v.SetDefault("output.path", "")
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	cfg.OutputCfg.Format = strings.ToLower(cfg.OutputCfg.Format)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	switch c.LoggerCfg.Format {
	case "json", "console":
	default:
		return fmt.Errorf("logger.format must be json or console, got %q", c.LoggerCfg.Format)
	}
	if err := c.LayoutCfg.Validate(); err != nil {
		return fmt.Errorf("layout configuration invalid: %w", err)
	}
	if c.ResolverCfg.MaxResolutionDepth <= 0 {
		return fmt.Errorf("resolver.max_resolution_depth must be a positive integer")
	}
	switch c.OutputCfg.Format {
	case "json", "xml":
	default:
		return fmt.Errorf("output.format must be json or xml, got %q", c.OutputCfg.Format)
	}
	return nil
}

// Validate checks the layout settings.
func (l *LayoutConfig) Validate() error {
	if !(l.DPIScaleX > 0) || !(l.DPIScaleY > 0) || math.IsInf(l.DPIScaleX, 0) || math.IsInf(l.DPIScaleY, 0) {
		return fmt.Errorf("dpi scales must be positive and finite")
	}
	if l.MaxTreeDepth <= 0 {
		return fmt.Errorf("max_tree_depth must be a positive integer")
	}
	if l.MaxLayoutPasses <= 0 {
		return fmt.Errorf("max_layout_passes must be a positive integer")
	}
	if l.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be a positive integer")
	}
	for _, d := range []float64{l.ViewportWidth, l.ViewportHeight} {
		if math.IsNaN(d) || d < 0 {
			return fmt.Errorf("viewport dimensions must be non-negative")
		}
	}
	return nil
}
