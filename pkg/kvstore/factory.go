package kvstore

import (
	"fmt"

	"github.com/fystack/stacks-connector/pkg/common/config"
	"github.com/fystack/stacks-connector/pkg/common/enum"
	"github.com/fystack/stacks-connector/pkg/common/stringutils"
	"github.com/fystack/stacks-connector/pkg/infra"
	"github.com/hashicorp/consul/api"
)

// NewFromConfig constructs an infra.KVStore based on kvstore configuration.
func NewFromConfig(cfg config.KVSConfig) (infra.KVStore, error) {
	switch cfg.Type {
	case enum.KVStoreTypeBadger, "":
		return NewBadgerStore(stringutils.ExpandTildePath(cfg.Badger.Directory), cfg.Badger.Prefix, infra.JSON)
	case enum.KVStoreTypeConsul:
		return NewConsulClient(ConsulOptions{
			Scheme:  cfg.Consul.Scheme,
			Address: cfg.Consul.Address,
			Folder:  cfg.Consul.Folder,
			Codec:   infra.JSON,
			Token:   cfg.Consul.Token,
			HttpAuth: &api.HttpBasicAuth{
				Username: cfg.Consul.HttpAuth.Username,
				Password: cfg.Consul.HttpAuth.Password,
			},
		})
	case enum.KVStoreTypeRedis:
		client, err := infra.NewRedisClient(infra.RedisOptions{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			CACert:     cfg.Redis.TLS.CACert,
			ClientCert: cfg.Redis.TLS.ClientCert,
			ClientKey:  cfg.Redis.TLS.ClientKey,
		})
		if err != nil {
			return nil, err
		}
		return NewRedisStore(client, cfg.Redis.Prefix, infra.JSON), nil
	default:
		return nil, fmt.Errorf("unsupported kvstore type: %s", cfg.Type)
	}
}
