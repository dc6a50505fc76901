package bitcoin

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fystack/stacks-connector/internal/rpc"
)

const (
	p2pkhAddress  = "1FzTxL9Mxnm2fdmnQEArfhzJHevwbvcH6d"
	segwitAddress = "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t4"
	blockHash     = "000000000000000000026e8d1c8b2a2ee6b4ba5e6a3fa4b0f1a2f7d16a7c0b1e"
)

func newTestClient(t *testing.T, apiKey string, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return NewEsploraClient(server.URL, apiKey, rpc.ClientConfig{RequestTimeout: 5 * time.Second}, nil)
}

func TestClient_GetTipHeight(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/blocks/tip/height", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		_, _ = w.Write([]byte("870000\n"))
	})
	client := newTestClient(t, "key", mux)

	height, err := client.GetTipHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(870000), height)
	assert.True(t, client.IsHealthy(context.Background()))
	assert.Equal(t, rpc.NetworkBitcoin, client.GetNetworkType())
}

func TestClient_GetBlock_ByHeight(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/block-height/870000", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(blockHash))
	})
	mux.HandleFunc("/block/"+blockHash, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id":"` + blockHash + `","height":870000,"tx_count":3000,"timestamp":1730000000}`))
	})
	client := newTestClient(t, "", mux)

	block, err := client.GetBlock(context.Background(), "870000")
	require.NoError(t, err)
	assert.Equal(t, blockHash, block.ID)
	assert.Equal(t, uint64(870000), block.Height)
	assert.Equal(t, 3000, block.TxCount)

	block, err = client.GetBlock(context.Background(), blockHash)
	require.NoError(t, err)
	assert.Equal(t, uint64(870000), block.Height)
}

func TestClient_GetTransaction(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/tx/abcd", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"txid":"abcd","fee":250,"vout":[{"value":1000,"scriptpubkey_address":"` + segwitAddress + `"}],"status":{"confirmed":true,"block_height":10}}`))
	})
	client := newTestClient(t, "", mux)

	tx, err := client.GetTransaction(context.Background(), "0xabcd")
	require.NoError(t, err)
	assert.Equal(t, int64(250), tx.Fee)
	require.Len(t, tx.Vout, 1)
	assert.Equal(t, segwitAddress, tx.Vout[0].ScriptPubKeyAddress)
	assert.True(t, tx.Status.Confirmed)
}

func TestClient_GetAddress(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/address/"+segwitAddress, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"address":"` + segwitAddress + `",
			"chain_stats":{"funded_txo_sum":5000,"spent_txo_sum":1000,"tx_count":3},
			"mempool_stats":{"funded_txo_sum":200,"spent_txo_sum":0,"tx_count":1}}`))
	})
	mux.HandleFunc("/address/"+segwitAddress+"/utxo", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"txid":"aa","vout":1,"value":4000,"status":{"confirmed":true}}]`))
	})
	client := newTestClient(t, "", mux)

	info, err := client.GetAddress(context.Background(), "BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4")
	require.NoError(t, err)
	assert.Equal(t, int64(4200), info.Balance())
	assert.Equal(t, 3, info.ChainStats.TxCount)

	utxos, err := client.GetAddressUTXOs(context.Background(), segwitAddress)
	require.NoError(t, err)
	require.Len(t, utxos, 1)
	assert.Equal(t, int64(4000), utxos[0].Value)

	_, err = client.GetAddress(context.Background(), "not-an-address")
	assert.Error(t, err)
}

func TestClient_GetFeeEstimates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/fee-estimates", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"1":25.5,"6":10,"144":1.2}`))
	})
	client := newTestClient(t, "", mux)

	fees, err := client.GetFeeEstimates(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 25.5, fees["1"])
	assert.Len(t, fees, 3)
}

func TestClient_NotFound(t *testing.T) {
	client := newTestClient(t, "", http.NewServeMux())
	_, err := client.GetTransaction(context.Background(), "missing")
	require.Error(t, err)
	assert.True(t, rpc.IsNotFound(err))
	assert.False(t, client.IsHealthy(context.Background()))
}

func TestNormalizeBTCAddress(t *testing.T) {
	tests := []struct {
		name    string
		in      string
		want    string
		wantErr bool
	}{
		{"p2pkh", p2pkhAddress, p2pkhAddress, false},
		{"p2sh", "3GgUssdoWh5QkoUDXKqT6LMESBDf8aqp2y", "3GgUssdoWh5QkoUDXKqT6LMESBDf8aqp2y", false},
		{"testnet p2pkh", "mvWRFPELmpCHSkFQ7o9EVdCd9eXeUTa9T8", "mvWRFPELmpCHSkFQ7o9EVdCd9eXeUTa9T8", false},
		{"segwit", segwitAddress, segwitAddress, false},
		{"segwit upper", "BC1QW508D6QEJXTDG4Y5R3ZARVARY0C5XW7KV8F3T4", segwitAddress, false},
		{"taproot", "bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vqzk5jj0", "bc1p0xlxvlhemja6c4dqv22uapctqupfhlxm9h8z3k2e72q4k9hcz7vqzk5jj0", false},
		{"trimmed", "  " + p2pkhAddress + " ", p2pkhAddress, false},
		{"empty", "", "", true},
		{"bad checksum", "1FzTxL9Mxnm2fdmnQEArfhzJHevwbvcH6e", "", true},
		{"bad bech32", "bc1qw508d6qejxtdg4y5r3zarvary0c5xw7kv8f3t5", "", true},
		{"stacks address", "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NormalizeBTCAddress(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGetAddressType(t *testing.T) {
	assert.Equal(t, "p2pkh_mainnet", GetAddressType(p2pkhAddress))
	assert.Equal(t, "p2wpkh_mainnet", GetAddressType(segwitAddress))
	assert.Equal(t, "p2tr_testnet", GetAddressType("tb1pxyz"))
	assert.True(t, IsTestnetAddress("mvWRFPELmpCHSkFQ7o9EVdCd9eXeUTa9T8"))
	assert.False(t, IsTestnetAddress(p2pkhAddress))
	assert.Equal(t, "unknown", GetAddressType("xyz"))
}

func TestSatsToBTC(t *testing.T) {
	assert.Equal(t, "0.00004200", SatsToBTC(4200))
	assert.Equal(t, "21.00000000", SatsToBTC(2_100_000_000))
}
