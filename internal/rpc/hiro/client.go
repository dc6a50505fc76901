package hiro

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/fystack/stacks-connector/internal/rpc"
	"github.com/fystack/stacks-connector/pkg/ratelimiter"
	"github.com/fystack/stacks-connector/pkg/stacks"
)

type Client struct {
	*rpc.BaseClient
}

// NewClient builds a client for baseURL. A non-empty apiKey is sent in the
// x-hiro-api-key header.
func NewClient(baseURL, apiKey string, cfg rpc.ClientConfig, rl *ratelimiter.PooledRateLimiter) *Client {
	var auth *rpc.AuthConfig
	if apiKey != "" {
		auth = &rpc.AuthConfig{Type: rpc.AuthAPIKey, Header: APIKeyHeader, Token: apiKey}
	}
	return &Client{
		BaseClient: rpc.NewBaseClient(baseURL, rpc.NetworkStacks, auth, cfg, rl),
	}
}

// Get issues a GET and decodes the body into plain JSON values.
func (c *Client) Get(ctx context.Context, path string, params map[string]string) (any, error) {
	data, err := c.Do(ctx, http.MethodGet, path, nil, params)
	if err != nil {
		return nil, err
	}
	return DecodeBody(data)
}

func (c *Client) Post(ctx context.Context, path string, body any) (any, error) {
	data, err := c.Do(ctx, http.MethodPost, path, body, nil)
	if err != nil {
		return nil, err
	}
	return DecodeBody(data)
}

func (c *Client) PostRaw(ctx context.Context, path, contentType string, body []byte) (any, error) {
	data, err := c.DoRaw(ctx, http.MethodPost, path, contentType, body, nil)
	if err != nil {
		return nil, err
	}
	return DecodeBody(data)
}

func (c *Client) list(ctx context.Context, path string, params map[string]string) (*ListResponse, error) {
	data, err := c.Do(ctx, http.MethodGet, path, nil, params)
	if err != nil {
		return nil, err
	}
	var resp ListResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return &resp, nil
}

func limitParams(limit, offset int) map[string]string {
	params := map[string]string{}
	if limit > 0 {
		params["limit"] = strconv.Itoa(limit)
	}
	if offset > 0 {
		params["offset"] = strconv.Itoa(offset)
	}
	return params
}

// GetBlocks returns the newest blocks from the v2 blocks endpoint.
func (c *Client) GetBlocks(ctx context.Context, limit int) (*ListResponse, error) {
	resp, err := c.list(ctx, PathBlocksV2, limitParams(limit, 0))
	if err != nil {
		return nil, fmt.Errorf("getBlocks failed: %w", err)
	}
	return resp, nil
}

func (c *Client) GetMicroblocks(ctx context.Context, limit int) (*ListResponse, error) {
	resp, err := c.list(ctx, PathMicroblocks, limitParams(limit, 0))
	if err != nil {
		return nil, fmt.Errorf("getMicroblocks failed: %w", err)
	}
	return resp, nil
}

func (c *Client) GetAddressTransactions(ctx context.Context, address string, limit, offset int) (*ListResponse, error) {
	path, err := Expand(PathAccountTxs, map[string]string{"address": address})
	if err != nil {
		return nil, err
	}
	resp, err := c.list(ctx, path, limitParams(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("getAddressTransactions failed: %w", err)
	}
	return resp, nil
}

func (c *Client) GetContractEvents(ctx context.Context, contractID string, limit, offset int) (*ListResponse, error) {
	path, err := Expand(PathContractEvents, map[string]string{"contractId": contractID})
	if err != nil {
		return nil, err
	}
	resp, err := c.list(ctx, path, limitParams(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("getContractEvents failed: %w", err)
	}
	return resp, nil
}

func (c *Client) GetMempoolTransactions(ctx context.Context, limit, offset int) (*ListResponse, error) {
	resp, err := c.list(ctx, PathMempoolTxs, limitParams(limit, offset))
	if err != nil {
		return nil, fmt.Errorf("getMempoolTransactions failed: %w", err)
	}
	return resp, nil
}

// GetPoxInfo returns the decoded PoX state and the raw body.
func (c *Client) GetPoxInfo(ctx context.Context) (*PoxInfo, []byte, error) {
	data, err := c.Do(ctx, http.MethodGet, PathPoxInfo, nil, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("getPoxInfo failed: %w", err)
	}
	var info PoxInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, nil, fmt.Errorf("failed to unmarshal pox info: %w", err)
	}
	return &info, data, nil
}

func (c *Client) GetCoreInfo(ctx context.Context) (*CoreInfo, error) {
	data, err := c.Do(ctx, http.MethodGet, PathCoreInfo, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("getCoreInfo failed: %w", err)
	}
	var info CoreInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to unmarshal core info: %w", err)
	}
	return &info, nil
}

// CallReadOnly calls a read-only contract function. args are hex encoded
// Clarity values.
func (c *Client) CallReadOnly(ctx context.Context, contractID, function, sender string, args []string) (*ReadOnlyResult, error) {
	address, name, err := stacks.ParseContractID(contractID)
	if err != nil {
		return nil, err
	}
	path, err := Expand(PathReadOnlyCall, map[string]string{
		"contractAddress": address,
		"contractName":    name,
		"functionName":    function,
	})
	if err != nil {
		return nil, err
	}
	if args == nil {
		args = []string{}
	}
	data, err := c.Do(ctx, http.MethodPost, path, map[string]any{"sender": sender, "arguments": args}, nil)
	if err != nil {
		return nil, fmt.Errorf("callReadOnly failed: %w", err)
	}
	var res ReadOnlyResult
	if err := json.Unmarshal(data, &res); err != nil {
		return nil, fmt.Errorf("failed to unmarshal read-only result: %w", err)
	}
	return &res, nil
}

func (c *Client) IsHealthy(ctx context.Context) bool {
	_, err := c.Do(ctx, http.MethodGet, PathStatus, nil, nil)
	return err == nil
}

// DecodeBody decodes a JSON body keeping numbers as json.Number. Bodies
// that are not JSON are returned as a trimmed string.
func DecodeBody(data []byte) (any, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil || dec.More() {
		return strings.TrimSpace(string(data)), nil
	}
	return out, nil
}
