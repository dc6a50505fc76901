package infra

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/fystack/stacks-connector/pkg/common/logger"
	"github.com/fystack/stacks-connector/pkg/common/stringutils"
	"github.com/redis/go-redis/v9"
)

// RedisClient abstracts the few redis calls the connector makes.
type RedisClient interface {
	GetClient() *redis.Client
	Set(ctx context.Context, key string, value any, expiration time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	Del(ctx context.Context, keys ...string) error
	Close() error
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	// TLS is enabled when CACert is set.
	CACert     string
	ClientCert string
	ClientKey  string
}

type RedisWrapper struct {
	client *redis.Client
}

func getTlsConfig(caCertPath string, clientCertPath string, clientKeyPath string) (*tls.Config, error) {
	caCert, err := os.ReadFile(stringutils.ExpandTildePath(caCertPath))
	if err != nil {
		return nil, fmt.Errorf("failed to read CA cert: %w", err)
	}

	caCertPool := x509.NewCertPool()
	if !caCertPool.AppendCertsFromPEM(caCert) {
		return nil, fmt.Errorf("failed to append CA cert to pool")
	}

	cfg := &tls.Config{RootCAs: caCertPool, MinVersion: tls.VersionTLS12}
	if clientCertPath != "" {
		cert, err := tls.LoadX509KeyPair(stringutils.ExpandTildePath(clientCertPath), stringutils.ExpandTildePath(clientKeyPath))
		if err != nil {
			return nil, fmt.Errorf("failed to load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}

// NewRedisClient connects and pings the server.
func NewRedisClient(o RedisOptions) (RedisClient, error) {
	cpus := runtime.GOMAXPROCS(0)

	opts := &redis.Options{
		Addr:            o.Addr,
		Password:        o.Password,
		DB:              o.DB,
		PoolSize:        cpus * 4,
		MinIdleConns:    1,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 5 * time.Minute,
		DialTimeout:     5 * time.Second,
		ReadTimeout:     3 * time.Second,
		WriteTimeout:    3 * time.Second,
		MaxRetries:      3,
		MinRetryBackoff: 100 * time.Millisecond,
		MaxRetryBackoff: 500 * time.Millisecond,
	}

	if o.CACert != "" {
		tlsCfg, err := getTlsConfig(o.CACert, o.ClientCert, o.ClientKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create TLS config for redis client: %w", err)
		}
		opts.TLSConfig = tlsCfg
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pong, err := client.Ping(ctx).Result()
	if err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	logger.Info("Connected to Redis", "addr", o.Addr, "pong", pong)

	return &RedisWrapper{client: client}, nil
}

func (rw *RedisWrapper) GetClient() *redis.Client {
	return rw.client
}

func (rw *RedisWrapper) Set(ctx context.Context, key string, value any, expiration time.Duration) error {
	return rw.client.Set(ctx, key, value, expiration).Err()
}

func (rw *RedisWrapper) Get(ctx context.Context, key string) (string, error) {
	return rw.client.Get(ctx, key).Result()
}

func (rw *RedisWrapper) Del(ctx context.Context, keys ...string) error {
	return rw.client.Del(ctx, keys...).Err()
}

func (rw *RedisWrapper) Close() error {
	return rw.client.Close()
}
