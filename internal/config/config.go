package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"os"

	ouroboros "github.com/i5heu/ouroboros-vault"
	"github.com/i5heu/ouroboros-vault/pkg/types"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"
)

// DefaultVaults is used when the config file lists no vaults.
var DefaultVaults = []VaultConfig{{Name: "img", Type: "image"}}

const (
	DefaultRootPath    = "./media"
	DefaultPort        = 36969
	DefaultSecretsPath = "./.secrets/manager.json"
	DefaultConfigPath  = "config.yaml"
)

type Config struct {
	RootPath      string        `yaml:"rootPath"`
	Port          int           `yaml:"port"`
	MinimumFreeGB uint          `yaml:"minimumFreeGB"`
	SecretsPath   string        `yaml:"secretsPath"`
	KeyStorePath  string        `yaml:"keyStorePath"`
	Log           LogConfig     `yaml:"log"`
	Vaults        []VaultConfig `yaml:"vaults"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
	JSON  bool   `yaml:"json"`
}

type VaultConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

func Default() Config {
	return Config{
		RootPath:    DefaultRootPath,
		Port:        DefaultPort,
		SecretsPath: DefaultSecretsPath,
		Log:         LogConfig{Level: "info"},
		Vaults:      append([]VaultConfig(nil), DefaultVaults...),
	}
}

// Load reads a YAML file on top of the defaults. A missing file yields the
// defaults when optional is true.
func Load(path string, optional bool) (Config, error) {
	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if optional && errors.Is(err, fs.ErrNotExist) {
			return config, nil
		}
		return config, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &config); err != nil {
		return config, fmt.Errorf("parse config %s: %w", path, err)
	}

	config.applyDefaults()
	return config, config.Validate()
}

func (c *Config) applyDefaults() {
	if c.RootPath == "" {
		c.RootPath = DefaultRootPath
	}
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
}

func (c Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d", c.Port)
	}
	for _, v := range c.Vaults {
		if v.Name == "" {
			return errors.New("vault without name")
		}
	}
	return nil
}

// Ouroboros converts the file config into the vault server config.
func (c Config) Ouroboros(log *logrus.Logger) (ouroboros.Config, error) {
	vaults := make([]ouroboros.VaultConfig, 0, len(c.Vaults))
	for _, v := range c.Vaults {
		vaultType, err := types.ParseVaultType(v.Type)
		if err != nil {
			return ouroboros.Config{}, fmt.Errorf("vault %q: %w", v.Name, err)
		}
		vaults = append(vaults, ouroboros.VaultConfig{Name: v.Name, Type: vaultType})
	}

	return ouroboros.Config{
		Paths:         []string{c.RootPath},
		MinimumFreeGB: c.MinimumFreeGB,
		Logger:        log,
		Vaults:        vaults,
		KeyStorePath:  c.KeyStorePath,
		SecretsPath:   c.SecretsPath,
	}, nil
}

func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

// Parse loads the configuration for the server binary. Flags override the
// values of the config file:
//
//	-c config file, -f root path, -p port, -debug debug logging
func Parse(flags *flag.FlagSet, args []string) (Config, error) {
	configPath := flags.String("c", DefaultConfigPath, "path of the YAML config file")
	rootPath := flags.String("f", "", "root path of the file database (default "+DefaultRootPath+")")
	port := flags.Int("p", 0, fmt.Sprintf("port to listen on (default %d)", DefaultPort))
	debug := flags.Bool("debug", false, "enable debug logging")

	if err := flags.Parse(args); err != nil {
		return Config{}, err
	}

	explicit := false
	flags.Visit(func(f *flag.Flag) {
		if f.Name == "c" {
			explicit = true
		}
	})

	config, err := Load(*configPath, !explicit)
	if err != nil {
		return config, err
	}

	if *rootPath != "" {
		config.RootPath = *rootPath
	}
	if *port != 0 {
		config.Port = *port
	}
	if *debug {
		config.Log.Level = "debug"
	}

	return config, config.Validate()
}
