// Package config loads rpc4next.yaml project configuration.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/watanabe-1/rpc4next-sub001/pkg/scanner"
)

// FileName is the project configuration file name.
const FileName = "rpc4next.yaml"

// EnvPrefix prefixes environment overrides (RPC4NEXT_APP_DIR, RPC4NEXT_SERVE_ADDR).
const EnvPrefix = "RPC4NEXT"

// Config is the project configuration.
type Config struct {
	// AppDir is the route directory (default: "app")
	AppDir string `mapstructure:"app_dir" yaml:"app_dir"`
	// Output is the generated route file (default: "rpc/paths_gen.go")
	Output string `mapstructure:"output" yaml:"output"`
	// Module is the Go module path (default: read from go.mod)
	Module string `mapstructure:"module" yaml:"module,omitempty"`
	// ParamsFile is the per-directory params file name (default: "params_gen.go")
	ParamsFile string `mapstructure:"params_file" yaml:"params_file"`
	// Serve configures the playground server
	Serve ServeConfig `mapstructure:"serve" yaml:"serve"`
	// OpenAPI configures the OpenAPI export
	OpenAPI OpenAPIConfig `mapstructure:"openapi" yaml:"openapi,omitempty"`

	// root is the project directory the relative paths resolve against
	root string
	// file is the configuration file that was read, if any
	file string
}

// ServeConfig configures `rpc4next serve`.
type ServeConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// OpenAPIConfig configures `rpc4next openapi`.
type OpenAPIConfig struct {
	Title       string `mapstructure:"title" yaml:"title,omitempty"`
	Version     string `mapstructure:"version" yaml:"version,omitempty"`
	Description string `mapstructure:"description" yaml:"description,omitempty"`
}

// Default returns the default configuration.
func Default() Config {
	return Config{
		AppDir:     "app",
		Output:     filepath.Join("rpc", "paths_gen.go"),
		ParamsFile: scanner.DefaultParamsFile,
		Serve:      ServeConfig{Addr: ":4010"},
	}
}

// Load reads configuration for the project in dir. configFile overrides
// the default dir/rpc4next.yaml lookup. A missing default file is not an
// error; environment variables prefixed with RPC4NEXT_ override file
// values, and a .env file in dir is loaded first when present.
func Load(dir, configFile string) (*Config, error) {
	if err := godotenv.Load(filepath.Join(dir, ".env")); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	v := viper.New()
	def := Default()
	v.SetDefault("app_dir", def.AppDir)
	v.SetDefault("output", def.Output)
	v.SetDefault("module", "")
	v.SetDefault("params_file", def.ParamsFile)
	v.SetDefault("serve.addr", def.Serve.Addr)
	v.SetDefault("openapi.title", "")
	v.SetDefault("openapi.version", "")
	v.SetDefault("openapi.description", "")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigType("yaml")
	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(strings.TrimSuffix(FileName, filepath.Ext(FileName)))
		v.AddConfigPath(dir)
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	cfg.root = dir
	cfg.file = v.ConfigFileUsed()
	return &cfg, nil
}

// Root returns the project directory the configuration was loaded for.
func (c *Config) Root() string {
	return c.root
}

// File returns the configuration file that was read, or "" when only
// defaults and the environment were used.
func (c *Config) File() string {
	return c.file
}

// Path resolves a configured path against the project directory.
func (c *Config) Path(p string) string {
	if filepath.IsAbs(p) || c.root == "" {
		return p
	}
	return filepath.Join(c.root, p)
}

// GeneratorConfig returns the scanner configuration for the project,
// reading the module path from go.mod when none is configured.
func (c *Config) GeneratorConfig(logger *slog.Logger) (scanner.GeneratorConfig, error) {
	root := c.root
	if root == "" {
		root = "."
	}

	module := c.Module
	if module == "" {
		name, err := scanner.GetModuleName(root)
		if err != nil {
			return scanner.GeneratorConfig{}, fmt.Errorf("reading module name: %w", err)
		}
		module = name
	}

	return scanner.GeneratorConfig{
		ModuleName: module,
		ModuleRoot: root,
		AppDir:     c.Path(c.AppDir),
		Output:     c.Path(c.Output),
		ParamsFile: c.ParamsFile,
		Logger:     logger,
	}, nil
}

// Write writes cfg as YAML to path. Existing files are not overwritten.
func Write(path string, cfg Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}

	var buf bytes.Buffer
	buf.WriteString("# rpc4next configuration\n")
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}
