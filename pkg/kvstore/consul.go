package kvstore

import (
	"fmt"
	"strings"
	"time"

	"github.com/fystack/stacks-connector/pkg/common/enum"
	"github.com/fystack/stacks-connector/pkg/infra"
	"github.com/hashicorp/consul/api"
)

// ConsulClient implements infra.KVStore on the Consul KV API. Keys live
// under an optional folder.
type ConsulClient struct {
	c      *api.KV
	folder string
	codec  infra.Codec
}

type ConsulOptions struct {
	// "http" by default.
	Scheme string
	// "127.0.0.1:8500" by default.
	Address string
	// Folder is prepended to every key.
	Folder   string
	Codec    infra.Codec
	Token    string
	HttpAuth *api.HttpBasicAuth
}

var DefaultConsulOptions = ConsulOptions{
	Scheme:  "http",
	Address: "127.0.0.1:8500",
	Codec:   infra.JSON,
}

// NewConsulClient connects to Consul and pings the leader.
func NewConsulClient(options ConsulOptions) (*ConsulClient, error) {
	if options.Scheme == "" {
		options.Scheme = DefaultConsulOptions.Scheme
	}
	if options.Address == "" {
		options.Address = DefaultConsulOptions.Address
	}
	if options.Codec == nil {
		options.Codec = DefaultConsulOptions.Codec
	}

	config := api.DefaultConfig()
	config.Scheme = options.Scheme
	config.Address = options.Address
	config.WaitTime = 10 * time.Second
	if options.Token != "" {
		config.Token = options.Token
	}
	if options.HttpAuth != nil && options.HttpAuth.Username != "" {
		config.HttpAuth = options.HttpAuth
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, err
	}
	if _, err := client.Status().Leader(); err != nil {
		return nil, fmt.Errorf("failed to connect to Consul: %w", err)
	}

	return &ConsulClient{
		c:      client.KV(),
		folder: strings.Trim(options.Folder, "/"),
		codec:  options.Codec,
	}, nil
}

func (c *ConsulClient) GetName() string {
	return string(enum.KVStoreTypeConsul)
}

func (c *ConsulClient) put(k string, data []byte) error {
	_, err := c.c.Put(&api.KVPair{Key: joinKey(c.folder, k), Value: data}, nil)
	return err
}

func (c *ConsulClient) get(k string) ([]byte, error) {
	kvPair, _, err := c.c.Get(joinKey(c.folder, k), nil)
	if err != nil {
		return nil, err
	}
	if kvPair == nil {
		return nil, ErrKeyNotFound
	}
	return kvPair.Value, nil
}

func (c *ConsulClient) Set(k string, v string) error {
	if k == "" {
		return ErrKeyEmpty
	}
	return c.put(k, []byte(v))
}

func (c *ConsulClient) Get(k string) (string, error) {
	if k == "" {
		return "", ErrKeyEmpty
	}
	data, err := c.get(k)
	return string(data), err
}

func (c *ConsulClient) SetAny(k string, v any) error {
	if err := checkKeyAndValue(k, v); err != nil {
		return err
	}
	data, err := c.codec.Marshal(v)
	if err != nil {
		return err
	}
	return c.put(k, data)
}

// GetAny returns (false, nil) when the key does not exist.
func (c *ConsulClient) GetAny(k string, v any) (bool, error) {
	if err := checkKeyAndValue(k, v); err != nil {
		return false, err
	}
	data, err := c.get(k)
	if err == ErrKeyNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, c.codec.Unmarshal(data, v)
}

func (c *ConsulClient) List(prefix string) ([]*infra.KVPair, error) {
	if prefix == "" {
		return nil, ErrPrefixEmpty
	}
	kvPairs, _, err := c.c.List(joinKey(c.folder, prefix), nil)
	if err != nil {
		return nil, err
	}

	result := make([]*infra.KVPair, len(kvPairs))
	for i, kvPair := range kvPairs {
		key := kvPair.Key
		if c.folder != "" {
			key = strings.TrimPrefix(key, c.folder+"/")
		}
		result[i] = &infra.KVPair{Key: key, Value: kvPair.Value}
	}
	return result, nil
}

// Delete of a missing key is not an error.
func (c *ConsulClient) Delete(k string) error {
	if k == "" {
		return ErrKeyEmpty
	}
	_, err := c.c.Delete(joinKey(c.folder, k), nil)
	return err
}

func (c *ConsulClient) Close() error {
	return nil
}
