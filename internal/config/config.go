package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the application configuration.
type Config struct {
	LogLevel   string           `mapstructure:"log_level"`
	Server     ServerConfig     `mapstructure:"server"`
	Auth       AuthConfig       `mapstructure:"auth"`
	Network    NetworkConfig    `mapstructure:"network"`
	Contracts  ContractsConfig  `mapstructure:"contracts"`
	IPFS       IPFSConfig       `mapstructure:"ipfs"`
	Accounts   AccountsConfig   `mapstructure:"accounts"`
	KeyManager KeyManagerConfig `mapstructure:"key_manager"`
}

// ServerConfig holds the server configuration.
type ServerConfig struct {
	Port      string  `mapstructure:"port"`
	Address   string  `mapstructure:"address"`
	RateLimit float64 `mapstructure:"rate_limit"` // requests per second, 0 disables
	RateBurst int     `mapstructure:"rate_burst"`
}

// AuthConfig holds the HMAC credentials required on action endpoints.
type AuthConfig struct {
	APIKey    string `mapstructure:"api_key"`
	APISecret string `mapstructure:"api_secret"`
}

// NetworkConfig describes the node the dashboard talks to.
type NetworkConfig struct {
	RPCURL              string        `mapstructure:"rpc_url"`
	ChainID             int64         `mapstructure:"chain_id"`
	ReceiptPollInterval time.Duration `mapstructure:"receipt_poll_interval"`
	CallTimeout         time.Duration `mapstructure:"call_timeout"`
}

// ContractsConfig maps logical contract names to deployed addresses.
type ContractsConfig struct {
	DappStateContract string `mapstructure:"dapp_state_contract"`
	DappContract      string `mapstructure:"dapp_contract"`
}

// IPFSConfig is the gateway used to build links for IPFS hashes.
type IPFSConfig struct {
	Protocol string `mapstructure:"protocol"`
	Host     string `mapstructure:"host"`
}

// AccountsConfig holds the account used when a call carries no from address.
type AccountsConfig struct {
	Default string   `mapstructure:"default"`
	Admins  []string `mapstructure:"admins"`
	Users   []string `mapstructure:"users"`
}

// KeyManagerConfig holds the configuration for the key manager.
type KeyManagerConfig struct {
	Type  string      `mapstructure:"type"` // "local" or "vault"
	Local LocalConfig `mapstructure:"local"`
	Vault VaultConfig `mapstructure:"vault"`
}

// LocalConfig holds the configuration for the local key manager.
type LocalConfig struct {
	KeyDir   string `mapstructure:"key_dir"`
	Password string `mapstructure:"password"`
	// LightScrypt encrypts new keys with light scrypt parameters. Only for
	// development chains.
	LightScrypt bool `mapstructure:"light_scrypt"`
}

// VaultConfig holds the Vault configuration.
type VaultConfig struct {
	Address     string `mapstructure:"address"`
	Token       string `mapstructure:"token"`
	TransitPath string `mapstructure:"transit_path"`
}

const (
	KeyManagerLocal = "local"
	KeyManagerVault = "vault"
)

// LoadConfig reads configuration from a yaml file in dir, a .env file and
// environment variables. A missing config file is not an error.
func LoadConfig(dir string) (*Config, error) {
	// .env is optional, variables may be set externally
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(dir)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.SetEnvPrefix("DAPP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.rate_limit", 10.0)
	v.SetDefault("server.rate_burst", 20)
	v.SetDefault("network.rpc_url", "http://127.0.0.1:8545")
	v.SetDefault("network.chain_id", 1337)
	v.SetDefault("network.receipt_poll_interval", time.Second)
	v.SetDefault("network.call_timeout", 30*time.Second)
	v.SetDefault("ipfs.protocol", "https")
	v.SetDefault("ipfs.host", "ipfs.infura.io")
	v.SetDefault("key_manager.type", KeyManagerLocal)
	v.SetDefault("key_manager.local.key_dir", "keystore")
	v.SetDefault("key_manager.vault.address", "http://127.0.0.1:8200")
	v.SetDefault("key_manager.vault.transit_path", "transit")
}

// Validate checks the fields every component relies on.
func (c *Config) Validate() error {
	if c.Network.RPCURL == "" {
		return errors.New("network.rpc_url is required")
	}
	if c.Network.ChainID <= 0 {
		return errors.New("invalid network.chain_id")
	}
	switch c.KeyManager.Type {
	case KeyManagerLocal, KeyManagerVault:
	default:
		return fmt.Errorf("unknown key_manager.type %q", c.KeyManager.Type)
	}
	if c.Server.RateLimit < 0 {
		return errors.New("invalid server.rate_limit")
	}
	return nil
}

// ContractAddress resolves a logical contract name to its configured address.
func (c *Config) ContractAddress(name string) (string, bool) {
	var addr string
	switch name {
	case "dappStateContract":
		addr = c.Contracts.DappStateContract
	case "dappContract":
		addr = c.Contracts.DappContract
	}
	return addr, addr != ""
}
