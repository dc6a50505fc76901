package bitcoin

import (
	"context"

	"github.com/fystack/stacks-connector/internal/rpc"
)

// BitcoinAPI is the Esplora REST surface used by the bitcoin resource.
type BitcoinAPI interface {
	rpc.NetworkClient

	GetTipHeight(ctx context.Context) (uint64, error)
	GetBlockHash(ctx context.Context, height uint64) (string, error)
	GetBlock(ctx context.Context, hashOrHeight string) (*Block, error)
	GetTransaction(ctx context.Context, txid string) (*Transaction, error)
	GetAddress(ctx context.Context, address string) (*AddressInfo, error)
	GetAddressUTXOs(ctx context.Context, address string) ([]UTXO, error)
	GetFeeEstimates(ctx context.Context) (FeeEstimates, error)
	IsHealthy(ctx context.Context) bool
}
