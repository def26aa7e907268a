package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Chain is one yaml chain entry; it mirrors provider.ChainConfig.
type Chain struct {
	ChainID     uint64 `yaml:"chainId"`
	Name        string `yaml:"name"`
	RPCURL      string `yaml:"rpcUrl"`
	ExplorerURL string `yaml:"explorerUrl,omitempty"`
}

type Config struct {
	Logger struct {
		Verbosity string `yaml:"verbosity"`
	} `yaml:"logger"`
	Keystore struct {
		Path string `yaml:"path"`
	} `yaml:"keystore"`
	// Chains overrides the built-in chain registry when non-empty.
	Chains []Chain `yaml:"chains"`
	Oracle struct {
		BaseURL string            `yaml:"baseUrl"`
		Tokens  map[string]string `yaml:"tokens"`
	} `yaml:"oracle"`
	Cache struct {
		PriceTTL time.Duration `yaml:"priceTtl"`
		GasTTL   time.Duration `yaml:"gasTtl"`
		Redis    struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`
	Daemon struct {
		ListenPort        int           `yaml:"listenPort"`
		GasSampleInterval time.Duration `yaml:"gasSampleInterval"`
		GasSampleChains   []uint64      `yaml:"gasSampleChains"`
	} `yaml:"daemon"`
}

const configFileName = "config.yaml"

// GetDefaultConfigHome returns the default home directory, ~/.chainkit.
func GetDefaultConfigHome() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".chainkit"
	}
	return filepath.Join(home, ".chainkit")
}

// LoadConfig reads config.yaml from the home directory and applies defaults
// for anything left unset.
func LoadConfig(home string) (*Config, error) {
	data, err := os.ReadFile(filepath.Join(home, configFileName))
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, err
	}
	config.applyDefaults(home)
	return &config, nil
}

func (c *Config) applyDefaults(home string) {
	if c.Logger.Verbosity == "" {
		c.Logger.Verbosity = "info"
	}
	if c.Keystore.Path == "" {
		c.Keystore.Path = filepath.Join(home, "keyfile.json")
	}
	if c.Cache.PriceTTL == 0 {
		c.Cache.PriceTTL = 60 * time.Second
	}
	if c.Cache.GasTTL == 0 {
		c.Cache.GasTTL = 30 * time.Second
	}
	if c.Daemon.ListenPort == 0 {
		c.Daemon.ListenPort = 9090
	}
	if c.Daemon.GasSampleInterval == 0 {
		c.Daemon.GasSampleInterval = 30 * time.Second
	}
	if len(c.Daemon.GasSampleChains) == 0 {
		c.Daemon.GasSampleChains = []uint64{1}
	}
}
