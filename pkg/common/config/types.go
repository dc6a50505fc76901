package config

import (
	"time"

	"github.com/fystack/stacks-connector/pkg/common/enum"
)

type Config struct {
	Environment string        `yaml:"env"      validate:"required,oneof=production development"`
	Network     string        `yaml:"network"  validate:"omitempty,oneof=mainnet testnet devnet"`
	Hiro        APIConfig     `yaml:"hiro"`
	Bitcoin     BitcoinConfig `yaml:"bitcoin"`
	Client      ClientConfig  `yaml:"client"`
	Throttle    Throttle      `yaml:"throttle"`
	Trigger     TriggerConfig `yaml:"trigger"`
	KVStore     KVSConfig     `yaml:"kvstore"`
	Nats        NatsConfig    `yaml:"nats"`
	Log         LogConfig     `yaml:"log"`
}

// APIConfig is a REST endpoint. ${API_KEY} in URL is replaced by the key.
type APIConfig struct {
	URL       string `yaml:"url"         validate:"omitempty,url"`
	APIKey    string `yaml:"api_key"`
	APIKeyEnv string `yaml:"api_key_env"`
}

type BitcoinConfig struct {
	Enabled  bool      `yaml:"enabled"`
	Provider string    `yaml:"provider" validate:"omitempty,oneof=mempool blockstream custom"`
	API      APIConfig `yaml:"api"`
}

type ClientConfig struct {
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries" validate:"min=0,max=10"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

type Throttle struct {
	RPS   float64 `yaml:"rps"   validate:"gte=0"`
	Burst int     `yaml:"burst" validate:"gte=0"`
}

type TriggerConfig struct {
	ID           string            `yaml:"id"`
	Event        string            `yaml:"event"`
	PollInterval time.Duration     `yaml:"poll_interval"`
	Params       map[string]string `yaml:"params"`
	Emitter      enum.EmitterType  `yaml:"emitter" validate:"omitempty,oneof=nats log"`
}

type KVSConfig struct {
	Type   enum.KVStoreType `yaml:"type"   validate:"required,oneof=badger consul redis"`
	Badger BadgerConfig     `yaml:"badger"`
	Consul ConsulConfig     `yaml:"consul"`
	Redis  RedisConfig      `yaml:"redis"`
}

type BadgerConfig struct {
	// Empty directory keeps state in memory.
	Directory string `yaml:"directory"`
	Prefix    string `yaml:"prefix"`
}

type ConsulConfig struct {
	Scheme   string         `yaml:"scheme" validate:"omitempty,oneof=http https"`
	Address  string         `yaml:"address"`
	Folder   string         `yaml:"folder"`
	Token    string         `yaml:"token"`
	HttpAuth HttpAuthConfig `yaml:"http_auth"`
}

type HttpAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

type RedisConfig struct {
	Addr     string    `yaml:"addr"`
	Password string    `yaml:"password"`
	DB       int       `yaml:"db" validate:"min=0"`
	Prefix   string    `yaml:"prefix"`
	TLS      TLSConfig `yaml:"tls"`
}

type NatsConfig struct {
	URL           string    `yaml:"url"`
	SubjectPrefix string    `yaml:"subject_prefix"`
	Stream        string    `yaml:"stream"`
	Username      string    `yaml:"username"`
	Password      string    `yaml:"password"`
	TLS           TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	ClientCert string `yaml:"client_cert"`
	ClientKey  string `yaml:"client_key"`
	CACert     string `yaml:"ca_cert"`
}

type LogConfig struct {
	Level      string `yaml:"level" validate:"omitempty,oneof=debug info warn error"`
	TimeFormat string `yaml:"time_format"`
}
