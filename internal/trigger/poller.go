package trigger

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/fystack/stacks-connector/internal/action"
	"github.com/fystack/stacks-connector/internal/rpc/hiro"
	"github.com/fystack/stacks-connector/pkg/store/triggerstore"
	"github.com/samber/lo"
)

// PollError wraps every failure of a poll.
type PollError struct {
	Event Event
	Err   error
}

func (e *PollError) Error() string { return "Stacks Trigger error: " + e.Err.Error() }
func (e *PollError) Unwrap() error { return e.Err }

// Poller runs one poll at a time for a single trigger. State is loaded
// from and saved to the store under the trigger id, and is only written
// when the poll fires.
type Poller struct {
	api   hiro.HiroAPI
	store triggerstore.Store
	cfg   Config
}

func NewPoller(api hiro.HiroAPI, store triggerstore.Store, cfg Config) (*Poller, error) {
	if cfg.ID == "" {
		return nil, triggerstore.ErrTriggerIDRequired
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Poller{api: api, store: store, cfg: cfg}, nil
}

func (p *Poller) Config() Config { return p.cfg }

// Poll returns the newly fired items, or nil when nothing changed.
func (p *Poller) Poll(ctx context.Context) ([]action.Item, error) {
	items, err := p.poll(ctx)
	if err != nil {
		return nil, &PollError{Event: p.cfg.Event, Err: err}
	}
	return items, nil
}

func (p *Poller) poll(ctx context.Context) ([]action.Item, error) {
	state, err := p.store.Load(p.cfg.ID)
	if err != nil {
		return nil, err
	}

	var fired []json.RawMessage
	switch p.cfg.Event {
	case EventNewBlock:
		fired, err = p.newBlock(ctx, &state)
	case EventNewMicroblock:
		fired, err = p.newMicroblock(ctx, &state)
	case EventAddressTransaction:
		fired, err = p.addressTransaction(ctx, &state)
	case EventContractEvent:
		fired, err = p.contractEvent(ctx, &state)
	case EventSTXTransfer:
		fired, err = p.stxTransfer(ctx, &state)
	case EventMempoolActivity:
		fired, err = p.mempoolActivity(ctx, &state)
	case EventStackingEvent:
		fired, err = p.stackingEvent(ctx, &state)
	default:
		err = fmt.Errorf("%w: %s", ErrUnknownEvent, p.cfg.Event)
	}
	if err != nil || len(fired) == 0 {
		return nil, err
	}

	state.Event = string(p.cfg.Event)
	if err := p.store.Save(p.cfg.ID, state); err != nil {
		return nil, err
	}

	out := make([]any, 0, len(fired))
	for _, raw := range fired {
		v, err := hiro.DecodeBody(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return action.FormatResponse(out, 0), nil
}

type decoded[T any] struct {
	v   T
	raw json.RawMessage
}

func decodeResults[T any](in []json.RawMessage) ([]decoded[T], error) {
	out := make([]decoded[T], 0, len(in))
	for i, raw := range in {
		var v T
		if err := json.Unmarshal(raw, &v); err != nil {
			return nil, fmt.Errorf("decode result %d: %w", i, err)
		}
		out = append(out, decoded[T]{v: v, raw: raw})
	}
	return out, nil
}

func raws[T any](items []decoded[T]) []json.RawMessage {
	return lo.Map(items, func(d decoded[T], _ int) json.RawMessage { return d.raw })
}

func (p *Poller) newBlock(ctx context.Context, s *triggerstore.State) ([]json.RawMessage, error) {
	resp, err := p.api.GetBlocks(ctx, 1)
	if err != nil {
		return nil, err
	}
	blocks, err := decodeResults[hiro.Block](resp.Results)
	if err != nil || len(blocks) == 0 {
		return nil, err
	}
	latest := blocks[0]
	if s.LastBlockHeight != nil && latest.v.Height <= *s.LastBlockHeight {
		return nil, nil
	}
	s.LastBlockHeight = lo.ToPtr(latest.v.Height)
	return []json.RawMessage{latest.raw}, nil
}

func (p *Poller) newMicroblock(ctx context.Context, s *triggerstore.State) ([]json.RawMessage, error) {
	resp, err := p.api.GetMicroblocks(ctx, 1)
	if err != nil {
		return nil, err
	}
	mbs, err := decodeResults[hiro.Microblock](resp.Results)
	if err != nil || len(mbs) == 0 {
		return nil, err
	}
	latest := mbs[0]
	if s.LastMicroblockHash != "" && latest.v.MicroblockHash == s.LastMicroblockHash {
		return nil, nil
	}
	s.LastMicroblockHash = latest.v.MicroblockHash
	return []json.RawMessage{latest.raw}, nil
}

// untilSeen returns the leading txs up to, not including, lastID.
func untilSeen(txs []decoded[hiro.Transaction], lastID string) []decoded[hiro.Transaction] {
	for i, tx := range txs {
		if lastID != "" && tx.v.TxID == lastID {
			return txs[:i]
		}
	}
	return txs
}

func (p *Poller) addressTransaction(ctx context.Context, s *triggerstore.State) ([]json.RawMessage, error) {
	resp, err := p.api.GetAddressTransactions(ctx, p.cfg.Address, addressTxLimit, 0)
	if err != nil {
		return nil, err
	}
	txs, err := decodeResults[hiro.Transaction](resp.Results)
	if err != nil {
		return nil, err
	}
	fresh := untilSeen(txs, s.LastTxID)
	if len(fresh) == 0 {
		return nil, nil
	}
	s.LastTxID = txs[0].v.TxID
	return raws(fresh), nil
}

func (p *Poller) contractEvent(ctx context.Context, s *triggerstore.State) ([]json.RawMessage, error) {
	resp, err := p.api.GetContractEvents(ctx, p.cfg.ContractID, contractEventLimit, 0)
	if err != nil {
		return nil, err
	}
	evts, err := decodeResults[hiro.ContractEvent](resp.Results)
	if err != nil {
		return nil, err
	}
	fresh := evts
	if s.LastEventIndex != nil {
		for i, e := range evts {
			if e.v.EventIndex <= *s.LastEventIndex {
				fresh = evts[:i]
				break
			}
		}
	}
	if len(fresh) == 0 {
		return nil, nil
	}
	s.LastEventIndex = lo.ToPtr(evts[0].v.EventIndex)
	return raws(fresh), nil
}

func (p *Poller) stxTransfer(ctx context.Context, s *triggerstore.State) ([]json.RawMessage, error) {
	resp, err := p.api.GetAddressTransactions(ctx, p.cfg.Address, transferLimit, 0)
	if err != nil {
		return nil, err
	}
	txs, err := decodeResults[hiro.Transaction](resp.Results)
	if err != nil {
		return nil, err
	}
	transfers := lo.Filter(txs, func(tx decoded[hiro.Transaction], _ int) bool {
		return tx.v.TxType == "token_transfer"
	})
	fresh := untilSeen(transfers, s.LastTransferID)
	if len(fresh) == 0 {
		return nil, nil
	}
	s.LastTransferID = transfers[0].v.TxID
	return raws(fresh), nil
}

// mempoolActivity fires for tx ids not seen before. The seen set is the
// current page followed by older ids, capped at MaxSeenMempool.
func (p *Poller) mempoolActivity(ctx context.Context, s *triggerstore.State) ([]json.RawMessage, error) {
	resp, err := p.api.GetMempoolTransactions(ctx, mempoolLimit, 0)
	if err != nil {
		return nil, err
	}
	txs, err := decodeResults[hiro.Transaction](resp.Results)
	if err != nil {
		return nil, err
	}
	seen := lo.SliceToMap(s.SeenMempool, func(id string) (string, struct{}) { return id, struct{}{} })
	fresh := lo.Filter(txs, func(tx decoded[hiro.Transaction], _ int) bool {
		_, ok := seen[tx.v.TxID]
		return !ok
	})
	if len(fresh) == 0 {
		return nil, nil
	}
	current := lo.Map(txs, func(tx decoded[hiro.Transaction], _ int) string { return tx.v.TxID })
	next := lo.Uniq(append(current, s.SeenMempool...))
	if len(next) > MaxSeenMempool {
		next = next[:MaxSeenMempool]
	}
	s.SeenMempool = next
	return raws(fresh), nil
}

func (p *Poller) stackingEvent(ctx context.Context, s *triggerstore.State) ([]json.RawMessage, error) {
	info, raw, err := p.api.GetPoxInfo(ctx)
	if err != nil {
		return nil, err
	}
	var probe struct {
		CurrentCycle *struct {
			ID *int64 `json:"id"`
		} `json:"current_cycle"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return nil, err
	}
	if probe.CurrentCycle == nil || probe.CurrentCycle.ID == nil {
		return nil, nil
	}
	id := info.CurrentCycle.ID
	if s.LastCycleID != nil && *s.LastCycleID == id {
		return nil, nil
	}
	s.LastCycleID = lo.ToPtr(id)
	return []json.RawMessage{raw}, nil
}
