package bitcoin

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/fystack/stacks-connector/internal/rpc"
	"github.com/fystack/stacks-connector/pkg/ratelimiter"
)

type Client struct {
	*rpc.BaseClient
}

// NewEsploraClient builds a client for an Esplora base URL. A non-empty
// apiKey is sent as a bearer token.
func NewEsploraClient(baseURL, apiKey string, cfg rpc.ClientConfig, rl *ratelimiter.PooledRateLimiter) *Client {
	var auth *rpc.AuthConfig
	if apiKey != "" {
		auth = &rpc.AuthConfig{Type: rpc.AuthBearer, Token: apiKey}
	}
	return &Client{
		BaseClient: rpc.NewBaseClient(baseURL, rpc.NetworkBitcoin, auth, cfg, rl),
	}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	data, err := c.Do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", endpoint, err)
	}
	return nil
}

func (c *Client) getText(ctx context.Context, endpoint string) (string, error) {
	data, err := c.Do(ctx, http.MethodGet, endpoint, nil, nil)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

// GetTipHeight returns the height of the best block
func (c *Client) GetTipHeight(ctx context.Context) (uint64, error) {
	text, err := c.getText(ctx, "/blocks/tip/height")
	if err != nil {
		return 0, fmt.Errorf("getTipHeight failed: %w", err)
	}
	height, err := strconv.ParseUint(text, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid tip height %q: %w", text, err)
	}
	return height, nil
}

func (c *Client) GetBlockHash(ctx context.Context, height uint64) (string, error) {
	hash, err := c.getText(ctx, "/block-height/"+strconv.FormatUint(height, 10))
	if err != nil {
		return "", fmt.Errorf("getBlockHash failed: %w", err)
	}
	return hash, nil
}

// GetBlock accepts a block hash or a decimal height.
func (c *Client) GetBlock(ctx context.Context, hashOrHeight string) (*Block, error) {
	hash := strings.TrimSpace(hashOrHeight)
	if height, err := strconv.ParseUint(hash, 10, 64); err == nil {
		if hash, err = c.GetBlockHash(ctx, height); err != nil {
			return nil, err
		}
	}
	var block Block
	if err := c.getJSON(ctx, "/block/"+url.PathEscape(hash), &block); err != nil {
		return nil, fmt.Errorf("getBlock failed: %w", err)
	}
	return &block, nil
}

func (c *Client) GetTransaction(ctx context.Context, txid string) (*Transaction, error) {
	var tx Transaction
	if err := c.getJSON(ctx, "/tx/"+url.PathEscape(strings.TrimPrefix(txid, "0x")), &tx); err != nil {
		return nil, fmt.Errorf("getTransaction failed: %w", err)
	}
	return &tx, nil
}

func (c *Client) GetAddress(ctx context.Context, address string) (*AddressInfo, error) {
	addr, err := NormalizeBTCAddress(address)
	if err != nil {
		return nil, err
	}
	var info AddressInfo
	if err := c.getJSON(ctx, "/address/"+addr, &info); err != nil {
		return nil, fmt.Errorf("getAddress failed: %w", err)
	}
	return &info, nil
}

func (c *Client) GetAddressUTXOs(ctx context.Context, address string) ([]UTXO, error) {
	addr, err := NormalizeBTCAddress(address)
	if err != nil {
		return nil, err
	}
	var utxos []UTXO
	if err := c.getJSON(ctx, "/address/"+addr+"/utxo", &utxos); err != nil {
		return nil, fmt.Errorf("getAddressUtxos failed: %w", err)
	}
	return utxos, nil
}

func (c *Client) GetFeeEstimates(ctx context.Context) (FeeEstimates, error) {
	var fees FeeEstimates
	if err := c.getJSON(ctx, "/fee-estimates", &fees); err != nil {
		return nil, fmt.Errorf("getFeeEstimates failed: %w", err)
	}
	return fees, nil
}

func (c *Client) IsHealthy(ctx context.Context) bool {
	_, err := c.GetTipHeight(ctx)
	return err == nil
}
