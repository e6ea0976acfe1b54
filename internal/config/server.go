package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// EnvPrefix prefixes every environment override, e.g. PRISMA_LSP_LOG_LEVEL.
const EnvPrefix = "PRISMA_LSP"

// ForcePanicEnv forces every native engine call to fault. Used by editor
// integration tests.
const ForcePanicEnv = "FORCE_PANIC_PRISMA_FMT"

type ServerConfig struct {
	EnginePaths []string     `mapstructure:"engine_paths"`
	LogLevel    string       `mapstructure:"log_level"`
	Engine      EngineConfig `mapstructure:"engine"`
	Wasm        WasmConfig   `mapstructure:"wasm"`
	LSP         LSPConfig    `mapstructure:"lsp"`
}

// EngineConfig selects the native engine bundle.
type EngineConfig struct {
	// Bundle name. Empty picks the first discovered bundle.
	Name string `mapstructure:"name"`
	// Make every engine call fault.
	ForcePanic bool `mapstructure:"force_panic"`
}

// WasmConfig holds Wasm runtime configuration.
type WasmConfig struct {
	// Memory limit per module (in pages, 64KB each).
	MemoryPages uint32 `mapstructure:"memory_pages"`
	// Enable debug logging.
	Debug bool `mapstructure:"debug"`
	// Compilation cache directory.
	CacheDir string `mapstructure:"cache_dir"`
	// Maximum concurrent instances.
	MaxInstances int `mapstructure:"max_instances"`
	// Module execution timeout (seconds).
	ExecutionTimeout int `mapstructure:"execution_timeout"`
}

// LSPConfig configures the language server transport.
type LSPConfig struct {
	// stdio or tcp.
	Transport string `mapstructure:"transport"`
	// Listen address for the tcp transport.
	Address string `mapstructure:"address"`
	// Extension of workspace schema files.
	FileExtension string `mapstructure:"file_extension"`
}

// Timeout returns the execution timeout as a duration.
func (w WasmConfig) Timeout() time.Duration {
	return time.Duration(w.ExecutionTimeout) * time.Second
}

// Level parses LogLevel.
func (c *ServerConfig) Level() (zap.AtomicLevel, error) {
	return zap.ParseAtomicLevel(c.LogLevel)
}

// Validate reports every invalid setting at once.
func (c *ServerConfig) Validate() error {
	var err error
	if _, lerr := c.Level(); lerr != nil {
		err = multierr.Append(err, fmt.Errorf("log_level: %w", lerr))
	}
	switch c.LSP.Transport {
	case "stdio":
	case "tcp":
		if c.LSP.Address == "" {
			err = multierr.Append(err, fmt.Errorf("lsp.address is required for the tcp transport"))
		}
	default:
		err = multierr.Append(err, fmt.Errorf("lsp.transport: unsupported transport %q (must be one of: stdio, tcp)", c.LSP.Transport))
	}
	if !strings.HasPrefix(c.LSP.FileExtension, ".") {
		err = multierr.Append(err, fmt.Errorf("lsp.file_extension: %q must start with a dot", c.LSP.FileExtension))
	}
	if c.Wasm.ExecutionTimeout < 0 {
		err = multierr.Append(err, fmt.Errorf("wasm.execution_timeout must not be negative"))
	}
	return err
}

// flagKeys maps configuration keys to command line flag names.
var flagKeys = map[string]string{
	"log_level":          "log-level",
	"engine_paths":       "engine-path",
	"engine.name":        "engine",
	"engine.force_panic": "force-panic",
	"lsp.transport":      "transport",
	"lsp.address":        "address",
}

// Loader reads the server configuration from defaults, an optional file,
// the environment and command line flags, in increasing precedence.
type Loader struct {
	v *viper.Viper
}

// NewLoader prepares a loader. flags may be nil.
func NewLoader(configPath string, flags *pflag.FlagSet) (*Loader, error) {
	v := viper.New()

	v.SetDefault("engine_paths", []string{"./engines"})
	v.SetDefault("log_level", "info")
	v.SetDefault("engine.name", "")
	v.SetDefault("engine.force_panic", false)

	// Wasm defaults
	v.SetDefault("wasm.memory_pages", 256) // 16MB
	v.SetDefault("wasm.debug", false)
	v.SetDefault("wasm.cache_dir", "")
	v.SetDefault("wasm.max_instances", 4)
	v.SetDefault("wasm.execution_timeout", 30)

	v.SetDefault("lsp.transport", "stdio")
	v.SetDefault("lsp.address", "127.0.0.1:7998")
	v.SetDefault("lsp.file_extension", ".prisma")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("engine.force_panic", EnvPrefix+"_ENGINE_FORCE_PANIC", ForcePanicEnv); err != nil {
		return nil, err
	}

	if flags != nil {
		for key, name := range flagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, err
				}
			}
		}
	}

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	return &Loader{v: v}, nil
}

// Load decodes and validates the current configuration.
func (l *Loader) Load() (*ServerConfig, error) {
	var cfg ServerConfig
	if err := l.v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Watch reloads the configuration file whenever it changes on disk.
// onChange receives either the new configuration or the reload error.
func (l *Loader) Watch(onChange func(*ServerConfig, error)) {
	if l.v.ConfigFileUsed() == "" {
		return
	}
	l.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		onChange(l.Load())
	})
	l.v.WatchConfig()
}

// LoadServerConfig loads the configuration without flags.
func LoadServerConfig(configPath string) (*ServerConfig, error) {
	l, err := NewLoader(configPath, nil)
	if err != nil {
		return nil, err
	}
	return l.Load()
}
