package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fystack/stacks-connector/pkg/common/constant"
	"github.com/fystack/stacks-connector/pkg/common/enum"
	"github.com/fystack/stacks-connector/pkg/stacks"
	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-yaml"
)

var validate = validator.New()

const (
	DefaultTimeout      = 30 * time.Second
	DefaultMaxRetries   = 3
	DefaultRetryDelay   = time.Second
	DefaultRPS          = 10
	DefaultBurst        = 20
	DefaultPollInterval = time.Minute
	DefaultStream       = "stacks"
	DefaultKVDirectory  = "./data/trigger"
)

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes YAML, fills defaults, resolves API keys and ${VAR}
// references, then validates.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.applyDefaults()
	cfg.finalize()

	if err := validate.Struct(&cfg); err != nil {
		return nil, fmt.Errorf("struct validation failed: %w", err)
	}
	if cfg.Bitcoin.Enabled && cfg.Bitcoin.Provider == string(stacks.CustomBTC) && cfg.Bitcoin.API.URL == "" {
		return nil, fmt.Errorf("bitcoin: custom provider requires api.url")
	}
	return &cfg, nil
}

// Default is the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{Environment: constant.EnvDevelopment}
	cfg.applyDefaults()
	cfg.KVStore.Badger.Directory = ""
	cfg.finalize()
	return cfg
}

func (c *Config) applyDefaults() {
	if c.Environment == "" {
		c.Environment = constant.EnvDevelopment
	}
	if c.Network == "" {
		c.Network = string(stacks.Mainnet)
	}
	if c.Client.Timeout == 0 {
		c.Client.Timeout = DefaultTimeout
	}
	if c.Client.MaxRetries == 0 {
		c.Client.MaxRetries = DefaultMaxRetries
	}
	if c.Client.RetryDelay == 0 {
		c.Client.RetryDelay = DefaultRetryDelay
	}
	if c.Throttle.RPS == 0 {
		c.Throttle.RPS = DefaultRPS
	}
	if c.Throttle.Burst == 0 {
		c.Throttle.Burst = DefaultBurst
	}
	if c.Bitcoin.Provider == "" {
		c.Bitcoin.Provider = string(stacks.Mempool)
	}
	if c.Trigger.ID == "" {
		c.Trigger.ID = constant.DefaultTriggerID
	}
	if c.Trigger.PollInterval == 0 {
		c.Trigger.PollInterval = DefaultPollInterval
	}
	if c.Trigger.Emitter == "" {
		c.Trigger.Emitter = enum.EmitterTypeLog
	}
	if c.KVStore.Type == "" {
		c.KVStore.Type = enum.KVStoreTypeBadger
		if c.KVStore.Badger.Directory == "" {
			c.KVStore.Badger.Directory = DefaultKVDirectory
		}
	}
	if c.Nats.Stream == "" {
		c.Nats.Stream = DefaultStream
	}
	if c.Nats.SubjectPrefix == "" {
		c.Nats.SubjectPrefix = DefaultStream
	}
}

func (c *Config) finalize() {
	finalizeAPI(&c.Hiro)
	finalizeAPI(&c.Bitcoin.API)
	c.Nats.URL = substituteEnvVars(c.Nats.URL)
	c.Nats.Password = substituteEnvVars(c.Nats.Password)
	c.KVStore.Redis.Password = substituteEnvVars(c.KVStore.Redis.Password)
	c.KVStore.Consul.Token = substituteEnvVars(c.KVStore.Consul.Token)
	c.KVStore.Consul.HttpAuth.Password = substituteEnvVars(c.KVStore.Consul.HttpAuth.Password)
	for k, v := range c.Trigger.Params {
		c.Trigger.Params[k] = substituteEnvVars(v)
	}
}

// finalizeAPI fills the API key from api_key_env and substitutes ${VAR}
// references in the URL.
func finalizeAPI(a *APIConfig) {
	key := substituteEnvVars(a.APIKey)
	if key == "" && a.APIKeyEnv != "" {
		key = os.Getenv(a.APIKeyEnv)
	}
	a.APIKey = key
	a.URL = substituteEnvVars(substituteKey(a.URL, key))
}

// StacksNetwork returns the configured network. Parse has already
// validated it.
func (c *Config) StacksNetwork() stacks.Network {
	n, err := stacks.ParseNetwork(c.Network)
	if err != nil {
		return stacks.Mainnet
	}
	return n
}

// HiroURL is hiro.url or the public Hiro API of the network.
func (c *Config) HiroURL() string {
	if c.Hiro.URL != "" {
		return c.Hiro.URL
	}
	return c.StacksNetwork().URL()
}

// BitcoinURL is bitcoin.api.url or the public URL of the provider.
func (c *Config) BitcoinURL() (string, error) {
	if c.Bitcoin.API.URL != "" {
		return c.Bitcoin.API.URL, nil
	}
	return stacks.BitcoinURL(stacks.BitcoinProvider(c.Bitcoin.Provider), c.StacksNetwork())
}

func (c *Config) IsProduction() bool {
	return c.Environment == constant.EnvProduction
}

func substituteKey(s, key string) string {
	if s == "" || key == "" {
		return s
	}
	return strings.ReplaceAll(s, "${API_KEY}", key)
}

// substituteEnvVars replaces ${VAR} with the environment value. Unset
// variables become the empty string.
func substituteEnvVars(s string) string {
	if s == "" {
		return s
	}
	var sb strings.Builder
	for {
		start := strings.Index(s, "${")
		if start == -1 {
			break
		}
		end := strings.Index(s[start:], "}")
		if end == -1 {
			break
		}
		end += start
		sb.WriteString(s[:start])
		sb.WriteString(os.Getenv(s[start+2 : end]))
		s = s[end+1:]
	}
	sb.WriteString(s)
	return sb.String()
}
