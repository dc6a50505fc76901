package hiro

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/stacks-connector/internal/rpc"
)

const sampleAddress = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"

func newTestClient(t *testing.T, apiKey string, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return NewClient(server.URL, apiKey, rpc.ClientConfig{RequestTimeout: 5 * time.Second}, nil)
}

func TestExpand(t *testing.T) {
	path, err := Expand(PathReadOnlyCall, map[string]string{
		"contractAddress": sampleAddress,
		"contractName":    "pox-4",
		"functionName":    "get-pox-info",
	})
	require.NoError(t, err)
	assert.Equal(t, "/v2/contracts/call-read/"+sampleAddress+"/pox-4/get-pox-info", path)

	path, err = Expand(PathSearch, map[string]string{"query": "a b/c"})
	require.NoError(t, err)
	assert.Equal(t, "/extended/v1/search/a%20b%2Fc", path)

	_, err = Expand(PathTransaction, map[string]string{})
	assert.Error(t, err)

	assert.Equal(t, []string{"contractAddress", "contractName", "mapName"}, Placeholders(PathMapEntry))
}

func TestClient_SendsAPIKey(t *testing.T) {
	client := newTestClient(t, "secret", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "secret", r.Header.Get(APIKeyHeader))
		_, _ = w.Write([]byte(`{"status":"ready"}`))
	})
	assert.True(t, client.IsHealthy(context.Background()))
}

func TestClient_Get_KeepsNumbers(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"balance":"100","nonce":18446744073709551615}`))
	})
	got, err := client.Get(context.Background(), "/x", nil)
	require.NoError(t, err)

	m, ok := got.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, json.Number("18446744073709551615"), m["nonce"])
}

func TestDecodeBody(t *testing.T) {
	v, err := DecodeBody([]byte("1818000000.123456\n"))
	require.NoError(t, err)
	assert.Equal(t, json.Number("1818000000.123456"), v)

	v, err = DecodeBody([]byte("not json at all"))
	require.NoError(t, err)
	assert.Equal(t, "not json at all", v)

	v, err = DecodeBody(nil)
	require.NoError(t, err)
	assert.Nil(t, v)
}

func TestClient_GetBlocks(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, PathBlocksV2, r.URL.Path)
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"limit":1,"offset":0,"total":100,"results":[{"height":100,"hash":"0xabc"}]}`))
	})
	resp, err := client.GetBlocks(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 100, resp.Total)
	require.Len(t, resp.Results, 1)

	var b Block
	require.NoError(t, json.Unmarshal(resp.Results[0], &b))
	assert.Equal(t, int64(100), b.Height)
	assert.Equal(t, "0xabc", b.Hash)
}

func TestClient_GetAddressTransactions(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/extended/v1/address/"+sampleAddress+"/transactions", r.URL.Path)
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		assert.Empty(t, r.URL.Query().Get("offset"))
		_, _ = w.Write([]byte(`{"results":[{"tx_id":"0x1","tx_type":"token_transfer"}]}`))
	})
	resp, err := client.GetAddressTransactions(context.Background(), sampleAddress, 5, 0)
	require.NoError(t, err)
	require.Len(t, resp.Results, 1)
}

func TestClient_GetPoxInfo(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"contract_id":"SP000000000000000000002Q6VF78.pox-4","current_cycle":{"id":84,"is_pox_active":true}}`))
	})
	info, raw, err := client.GetPoxInfo(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(84), info.CurrentCycle.ID)
	assert.True(t, info.CurrentCycle.IsPoxActive)
	assert.Contains(t, string(raw), "pox-4")
}

func TestClient_CallReadOnly(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v2/contracts/call-read/"+sampleAddress+"/my-token/get-balance", r.URL.Path)
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"sender":"`+sampleAddress+`","arguments":["0x0516a46ff88886c2ef9762d970b4d2c63678835bd39d"]}`, string(body))
		_, _ = w.Write([]byte(`{"okay":true,"result":"0x070100000000000000000000000000000064"}`))
	})
	res, err := client.CallReadOnly(context.Background(), sampleAddress+".my-token", "get-balance", sampleAddress,
		[]string{"0x0516a46ff88886c2ef9762d970b4d2c63678835bd39d"})
	require.NoError(t, err)
	assert.True(t, res.Okay)
	assert.Equal(t, "0x070100000000000000000000000000000064", res.Result)

	_, err = client.CallReadOnly(context.Background(), "bad-id", "f", sampleAddress, nil)
	assert.Error(t, err)
}

func TestClient_APIError(t *testing.T) {
	client := newTestClient(t, "", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"not found"}`))
	})
	_, err := client.GetCoreInfo(context.Background())
	require.Error(t, err)
	assert.True(t, rpc.IsNotFound(err))
	assert.Contains(t, err.Error(), "Stacks API Error (404): not found")
	assert.False(t, client.IsHealthy(context.Background()))
}
