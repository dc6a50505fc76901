package hiro

import (
	"context"

	"github.com/fystack/stacks-connector/internal/rpc"
)

type HiroAPI interface {
	rpc.NetworkClient
	Get(ctx context.Context, path string, params map[string]string) (any, error)
	Post(ctx context.Context, path string, body any) (any, error)
	PostRaw(ctx context.Context, path, contentType string, body []byte) (any, error)
	GetBlocks(ctx context.Context, limit int) (*ListResponse, error)
	GetMicroblocks(ctx context.Context, limit int) (*ListResponse, error)
	GetAddressTransactions(ctx context.Context, address string, limit, offset int) (*ListResponse, error)
	GetContractEvents(ctx context.Context, contractID string, limit, offset int) (*ListResponse, error)
	GetMempoolTransactions(ctx context.Context, limit, offset int) (*ListResponse, error)
	GetPoxInfo(ctx context.Context) (*PoxInfo, []byte, error)
	GetCoreInfo(ctx context.Context) (*CoreInfo, error)
	CallReadOnly(ctx context.Context, contractID, function, sender string, args []string) (*ReadOnlyResult, error)
	IsHealthy(ctx context.Context) bool
}
