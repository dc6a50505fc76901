package action

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/fystack/stacks-connector/internal/rpc/bitcoin"
	"github.com/fystack/stacks-connector/internal/rpc/hiro"
	"github.com/fystack/stacks-connector/pkg/stacks"
)

// Executor runs registry operations against the Hiro API and, for the
// bitcoin resource, an Esplora endpoint.
type Executor struct {
	registry       *Registry
	hiro           hiro.HiroAPI
	bitcoin        bitcoin.BitcoinAPI
	network        stacks.Network
	continueOnFail bool
}

type Option func(*Executor)

func WithBitcoin(c bitcoin.BitcoinAPI) Option { return func(e *Executor) { e.bitcoin = c } }
func WithNetwork(n stacks.Network) Option     { return func(e *Executor) { e.network = n } }
func WithRegistry(r *Registry) Option         { return func(e *Executor) { e.registry = r } }

// WithContinueOnFail turns failures into {"error": msg} items.
func WithContinueOnFail(v bool) Option { return func(e *Executor) { e.continueOnFail = v } }

func NewExecutor(h hiro.HiroAPI, opts ...Option) *Executor {
	e := &Executor{
		registry: DefaultRegistry(),
		hiro:     h,
		network:  stacks.Mainnet,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Executor) Registry() *Registry { return e.registry }

// Execute runs one operation for the input at itemIndex.
func (e *Executor) Execute(ctx context.Context, resource, operation string, p Params, itemIndex int) ([]Item, error) {
	items, err := e.execute(ctx, resource, operation, p, itemIndex)
	if err != nil {
		if e.continueOnFail {
			slog.Warn("Operation failed, continuing", "resource", resource, "operation", operation, "item", itemIndex, "err", err)
			return []Item{{JSON: map[string]any{"error": err.Error()}, PairedItem: itemIndex}}, nil
		}
		return nil, err
	}
	return items, nil
}

// ExecuteAll runs the operation once per input and concatenates the
// items in input order.
func (e *Executor) ExecuteAll(ctx context.Context, resource, operation string, inputs []Params) ([]Item, error) {
	var out []Item
	for i, p := range inputs {
		items, err := e.Execute(ctx, resource, operation, p, i)
		if err != nil {
			return nil, err
		}
		out = append(out, items...)
	}
	return out, nil
}

func (e *Executor) execute(ctx context.Context, resource, operation string, p Params, itemIndex int) ([]Item, error) {
	op, err := e.registry.Lookup(resource, operation)
	if err != nil {
		return nil, err
	}
	if p == nil {
		p = Params{}
	}

	var data any
	if op.Handler != nil {
		data, err = op.Handler(ctx, e, p)
	} else {
		data, err = e.request(ctx, op, p)
	}
	if err == nil && op.Shape != nil {
		data, err = op.Shape(data, p)
	}
	if err != nil {
		return nil, fmt.Errorf("%s.%s: %w", resource, operation, err)
	}

	var items []Item
	if op.Paginated {
		items = FormatPaginatedResponse(data, itemIndex)
	} else {
		items = FormatResponse(data, itemIndex)
	}
	if len(items) == 0 {
		return EmptyResponse(itemIndex), nil
	}
	return items, nil
}

func (e *Executor) request(ctx context.Context, op *Operation, p Params) (any, error) {
	if e.hiro == nil {
		return nil, fmt.Errorf("no Hiro API client configured")
	}
	path, err := expandPath(op, p)
	if err != nil {
		return nil, err
	}
	query, err := queryParams(op, p)
	if err != nil {
		return nil, err
	}

	switch op.Method {
	case http.MethodGet:
		return e.hiro.Get(ctx, path, query)
	case http.MethodPost:
		var body any = map[string]any{}
		if op.Body != nil {
			if body, err = op.Body(e, p); err != nil {
				return nil, err
			}
		}
		return e.hiro.Post(ctx, path, body)
	default:
		return nil, fmt.Errorf("unsupported method %s", op.Method)
	}
}

// expandPath fills the placeholders of op.Path. contractAddress and
// contractName come from contractId unless given directly.
func expandPath(op *Operation, p Params) (string, error) {
	vars := map[string]string{}
	for _, ph := range hiro.Placeholders(op.Path) {
		name := ph
		if alias, ok := op.Vars[ph]; ok {
			name = alias
		}
		if (ph == "contractAddress" || ph == "contractName") && !p.Has(name) {
			id, err := p.Required("contractId")
			if err != nil {
				return "", err
			}
			address, contract, err := stacks.ParseContractID(id)
			if err != nil {
				return "", err
			}
			vars["contractAddress"], vars["contractName"] = address, contract
			continue
		}
		v, err := p.Required(name)
		if err != nil {
			return "", err
		}
		vars[ph] = v
	}
	return hiro.Expand(op.Path, vars)
}

func queryParams(op *Operation, p Params) (map[string]string, error) {
	if len(op.Query) == 0 {
		return nil, nil
	}
	out := make(map[string]string, len(op.Query))
	for _, q := range op.Query {
		switch {
		case q.Fixed:
			out[q.Key] = q.Default
		case p.Has(q.param()):
			out[q.Key] = p.String(q.param())
		case q.Required:
			return nil, fmt.Errorf("%w: %s", ErrMissingParam, q.param())
		case q.Default != "":
			out[q.Key] = q.Default
		}
	}
	return out, nil
}
