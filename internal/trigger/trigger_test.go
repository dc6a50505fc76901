package trigger

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/fystack/stacks-connector/internal/rpc"
	"github.com/fystack/stacks-connector/internal/rpc/hiro"
	"github.com/fystack/stacks-connector/pkg/events"
	"github.com/fystack/stacks-connector/pkg/kvstore"
	"github.com/fystack/stacks-connector/pkg/store/triggerstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

const (
	sampleAddress  = "SP2J6ZY48GV1EZ5V2V5RB9MP66SW86PYKKNRV9EJ7"
	sampleContract = sampleAddress + ".my-token"
)

// fakeHiro serves canned bodies per path. Bodies can be swapped between
// polls.
type fakeHiro struct {
	mu     sync.Mutex
	bodies map[string]string
	status int
	hits   map[string]int
	query  map[string]string
}

func newFakeHiro(t *testing.T) (*fakeHiro, hiro.HiroAPI) {
	t.Helper()
	f := &fakeHiro{bodies: map[string]string{}, hits: map[string]int{}, query: map[string]string{}}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.hits[r.URL.Path]++
		f.query[r.URL.Path] = r.URL.RawQuery
		if f.status != 0 {
			w.WriteHeader(f.status)
			_, _ = io.WriteString(w, `{"error":"unavailable"}`)
			return
		}
		body, ok := f.bodies[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return f, hiro.NewClient(srv.URL, "", rpc.ClientConfig{RequestTimeout: 5 * time.Second}, nil)
}

func (f *fakeHiro) set(path, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.bodies[path] = body
}

func (f *fakeHiro) fail(status int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = status
}

func (f *fakeHiro) hitCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func newStore(t *testing.T) triggerstore.Store {
	t.Helper()
	kv, err := kvstore.NewBadgerStore("", "", nil)
	require.NoError(t, err)
	s := triggerstore.NewTriggerStore(kv)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newPoller(t *testing.T, api hiro.HiroAPI, store triggerstore.Store, cfg Config) *Poller {
	t.Helper()
	if cfg.ID == "" {
		cfg.ID = "test"
	}
	p, err := NewPoller(api, store, cfg)
	require.NoError(t, err)
	return p
}

func ids(t *testing.T, items []itemLike, key string) []any {
	t.Helper()
	out := make([]any, 0, len(items))
	for _, it := range items {
		out = append(out, it.get(key))
	}
	return out
}

type itemLike map[string]any

func (i itemLike) get(k string) any { return i[k] }

func poll(t *testing.T, p *Poller) []itemLike {
	t.Helper()
	items, err := p.Poll(context.Background())
	require.NoError(t, err)
	out := make([]itemLike, 0, len(items))
	for _, it := range items {
		assert.Equal(t, 0, it.PairedItem)
		out = append(out, it.JSON)
	}
	return out
}

func TestParseEvent(t *testing.T) {
	for _, e := range Events() {
		got, err := ParseEvent(string(e))
		require.NoError(t, err)
		assert.Equal(t, e, got)
	}
	_, err := ParseEvent("newEpoch")
	assert.ErrorIs(t, err, ErrUnknownEvent)
	assert.Len(t, Events(), 7)
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want error
	}{
		{"block needs nothing", Config{Event: EventNewBlock}, nil},
		{"address missing", Config{Event: EventAddressTransaction}, ErrMissingParam},
		{"address invalid", Config{Event: EventSTXTransfer, Address: "SPNOPE"}, ErrInvalidParam},
		{"address ok", Config{Event: EventSTXTransfer, Address: sampleAddress}, nil},
		{"contract missing", Config{Event: EventContractEvent}, ErrMissingParam},
		{"contract invalid", Config{Event: EventContractEvent, ContractID: sampleAddress}, ErrInvalidParam},
		{"contract ok", Config{Event: EventContractEvent, ContractID: sampleContract}, nil},
		{"unknown", Config{Event: "x"}, ErrUnknownEvent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Equal(t, []string{"address"}, EventAddressTransaction.RequiredParams())
	assert.Nil(t, EventNewBlock.RequiredParams())
}

func TestNewPoller_RequiresID(t *testing.T) {
	_, api := newFakeHiro(t)
	_, err := NewPoller(api, newStore(t), Config{Event: EventNewBlock})
	assert.ErrorIs(t, err, triggerstore.ErrTriggerIDRequired)
}

func TestPoll_NewBlock(t *testing.T) {
	f, api := newFakeHiro(t)
	store := newStore(t)
	p := newPoller(t, api, store, Config{Event: EventNewBlock})

	f.set("/extended/v2/blocks", `{"limit":1,"total":100,"results":[{"height":100,"hash":"0xa"}]}`)
	got := poll(t, p)
	require.Len(t, got, 1)
	assert.Equal(t, "0xa", got[0]["hash"])
	assert.Equal(t, "limit=1", f.query["/extended/v2/blocks"])

	assert.Empty(t, poll(t, p), "same height does not refire")

	f.set("/extended/v2/blocks", `{"results":[{"height":99,"hash":"0x9"}]}`)
	assert.Empty(t, poll(t, p), "lower height does not fire")

	f.set("/extended/v2/blocks", `{"results":[{"height":101,"hash":"0xb"}]}`)
	got = poll(t, p)
	require.Len(t, got, 1)
	assert.Equal(t, "0xb", got[0]["hash"])

	state, err := store.Load("test")
	require.NoError(t, err)
	require.NotNil(t, state.LastBlockHeight)
	assert.Equal(t, int64(101), *state.LastBlockHeight)
	assert.Equal(t, "newBlock", state.Event)
}

func TestPoll_NewBlock_EmptyResults(t *testing.T) {
	f, api := newFakeHiro(t)
	p := newPoller(t, api, newStore(t), Config{Event: EventNewBlock})
	f.set("/extended/v2/blocks", `{"results":[]}`)
	assert.Empty(t, poll(t, p))
}

func TestPoll_NewMicroblock(t *testing.T) {
	f, api := newFakeHiro(t)
	p := newPoller(t, api, newStore(t), Config{Event: EventNewMicroblock})

	f.set("/extended/v1/microblock", `{"results":[{"microblock_hash":"0x01","block_height":5}]}`)
	require.Len(t, poll(t, p), 1)
	assert.Empty(t, poll(t, p))

	f.set("/extended/v1/microblock", `{"results":[{"microblock_hash":"0x02","block_height":5}]}`)
	got := poll(t, p)
	require.Len(t, got, 1)
	assert.Equal(t, "0x02", got[0]["microblock_hash"])
}

func TestPoll_AddressTransaction(t *testing.T) {
	f, api := newFakeHiro(t)
	store := newStore(t)
	p := newPoller(t, api, store, Config{Event: EventAddressTransaction, Address: sampleAddress})
	path := "/extended/v1/address/" + sampleAddress + "/transactions"

	f.set(path, `{"results":[{"tx_id":"0x3"},{"tx_id":"0x2"},{"tx_id":"0x1"}]}`)
	got := poll(t, p)
	assert.Equal(t, []any{"0x3", "0x2", "0x1"}, ids(t, got, "tx_id"))
	assert.Equal(t, "limit=5", f.query[path])

	assert.Empty(t, poll(t, p))

	f.set(path, `{"results":[{"tx_id":"0x5"},{"tx_id":"0x4"},{"tx_id":"0x3"},{"tx_id":"0x2"}]}`)
	got = poll(t, p)
	assert.Equal(t, []any{"0x5", "0x4"}, ids(t, got, "tx_id"))

	state, err := store.Load("test")
	require.NoError(t, err)
	assert.Equal(t, "0x5", state.LastTxID)
}

func TestPoll_ContractEvent(t *testing.T) {
	f, api := newFakeHiro(t)
	store := newStore(t)
	p := newPoller(t, api, store, Config{Event: EventContractEvent, ContractID: sampleContract})
	path := "/extended/v1/contract/" + sampleContract + "/events"

	f.set(path, `{"results":[{"event_index":0,"tx_id":"0xa"}]}`)
	got := poll(t, p)
	require.Len(t, got, 1)

	state, err := store.Load("test")
	require.NoError(t, err)
	require.NotNil(t, state.LastEventIndex)
	assert.Equal(t, int64(0), *state.LastEventIndex)

	assert.Empty(t, poll(t, p), "index 0 is remembered")

	f.set(path, `{"results":[{"event_index":3,"tx_id":"0xd"},{"event_index":2,"tx_id":"0xc"},{"event_index":0,"tx_id":"0xa"}]}`)
	got = poll(t, p)
	assert.Equal(t, []any{"0xd", "0xc"}, ids(t, got, "tx_id"))
}

func TestPoll_STXTransfer(t *testing.T) {
	f, api := newFakeHiro(t)
	p := newPoller(t, api, newStore(t), Config{Event: EventSTXTransfer, Address: sampleAddress})
	path := "/extended/v1/address/" + sampleAddress + "/transactions"

	f.set(path, `{"results":[
		{"tx_id":"0x4","tx_type":"contract_call"},
		{"tx_id":"0x3","tx_type":"token_transfer"},
		{"tx_id":"0x2","tx_type":"token_transfer"}]}`)
	got := poll(t, p)
	assert.Equal(t, []any{"0x3", "0x2"}, ids(t, got, "tx_id"))
	assert.Equal(t, "limit=10", f.query[path])

	f.set(path, `{"results":[
		{"tx_id":"0x6","tx_type":"token_transfer"},
		{"tx_id":"0x5","tx_type":"smart_contract"},
		{"tx_id":"0x3","tx_type":"token_transfer"}]}`)
	got = poll(t, p)
	assert.Equal(t, []any{"0x6"}, ids(t, got, "tx_id"))

	f.set(path, `{"results":[{"tx_id":"0x7","tx_type":"coinbase"}]}`)
	assert.Empty(t, poll(t, p), "no transfers, no fire")
}

func TestPoll_MempoolActivity(t *testing.T) {
	f, api := newFakeHiro(t)
	store := newStore(t)
	p := newPoller(t, api, store, Config{Event: EventMempoolActivity})
	path := "/extended/v1/tx/mempool"

	f.set(path, `{"results":[{"tx_id":"0xb"},{"tx_id":"0xa"}]}`)
	assert.Equal(t, []any{"0xb", "0xa"}, ids(t, poll(t, p), "tx_id"))
	assert.Equal(t, "limit=10", f.query[path])
	assert.Empty(t, poll(t, p))

	f.set(path, `{"results":[{"tx_id":"0xc"},{"tx_id":"0xa"}]}`)
	assert.Equal(t, []any{"0xc"}, ids(t, poll(t, p), "tx_id"))

	// 0xb left the first page; it stays remembered.
	f.set(path, `{"results":[{"tx_id":"0xb"}]}`)
	assert.Empty(t, poll(t, p))

	state, err := store.Load("test")
	require.NoError(t, err)
	assert.Equal(t, []string{"0xc", "0xa", "0xb"}, state.SeenMempool)
}

func TestPoll_MempoolSeenCap(t *testing.T) {
	f, api := newFakeHiro(t)
	store := newStore(t)
	p := newPoller(t, api, store, Config{Event: EventMempoolActivity})

	old := make([]string, MaxSeenMempool)
	for i := range old {
		old[i] = "0xold" + string(rune('a'+i%26)) + string(rune('a'+i/26))
	}
	require.NoError(t, store.Save("test", triggerstore.State{SeenMempool: old}))

	f.set("/extended/v1/tx/mempool", `{"results":[{"tx_id":"0xnew"}]}`)
	require.Len(t, poll(t, p), 1)

	state, err := store.Load("test")
	require.NoError(t, err)
	require.Len(t, state.SeenMempool, MaxSeenMempool)
	assert.Equal(t, "0xnew", state.SeenMempool[0])
	assert.Equal(t, old[MaxSeenMempool-2], state.SeenMempool[MaxSeenMempool-1])
}

func TestPoll_StackingEvent(t *testing.T) {
	f, api := newFakeHiro(t)
	p := newPoller(t, api, newStore(t), Config{Event: EventStackingEvent})

	f.set("/v2/pox", `{"contract_id":"SP000000000000000000002Q6VF78.pox-4","current_cycle":{"id":80}}`)
	got := poll(t, p)
	require.Len(t, got, 1)
	assert.Equal(t, "SP000000000000000000002Q6VF78.pox-4", got[0]["contract_id"])
	assert.Empty(t, poll(t, p))

	f.set("/v2/pox", `{"current_cycle":{"id":81}}`)
	assert.Len(t, poll(t, p), 1)

	f.set("/v2/pox", `{"contract_id":"x"}`)
	assert.Empty(t, poll(t, p), "no current cycle")
}

func TestPoll_ErrorIsWrapped(t *testing.T) {
	f, api := newFakeHiro(t)
	p := newPoller(t, api, newStore(t), Config{Event: EventNewBlock})
	f.fail(http.StatusServiceUnavailable)

	_, err := p.Poll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Stacks Trigger error: ")

	var pe *PollError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, EventNewBlock, pe.Event)

	var apiErr *rpc.APIError
	assert.ErrorAs(t, err, &apiErr)
}

func TestPoll_IndependentTriggers(t *testing.T) {
	f, api := newFakeHiro(t)
	store := newStore(t)
	a := newPoller(t, api, store, Config{ID: "a", Event: EventNewBlock})
	b := newPoller(t, api, store, Config{ID: "b", Event: EventNewBlock})

	f.set("/extended/v2/blocks", `{"results":[{"height":7}]}`)
	assert.Len(t, poll(t, a), 1)
	assert.Len(t, poll(t, b), 1, "state is per trigger id")
}

// recorder is an events.Emitter that keeps what it gets.
type recorder struct {
	mu     sync.Mutex
	events []events.TriggerEvent
	err    error
	got    chan struct{}
}

func newRecorder() *recorder { return &recorder{got: make(chan struct{}, 64)} }

func (r *recorder) Emit(ev events.TriggerEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil && ev.Type == events.TypeTrigger {
		return r.err
	}
	r.events = append(r.events, ev)
	r.got <- struct{}{}
	return nil
}

func (r *recorder) Close() {}

func (r *recorder) snapshot() []events.TriggerEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]events.TriggerEvent(nil), r.events...)
}

func TestRunner_RunOnce(t *testing.T) {
	f, api := newFakeHiro(t)
	p := newPoller(t, api, newStore(t), Config{ID: "r1", Event: EventMempoolActivity})
	rec := newRecorder()
	r := NewRunner(p, rec, time.Second, "testnet")

	f.set("/extended/v1/tx/mempool", `{"results":[{"tx_id":"0x2"},{"tx_id":"0x1"}]}`)
	n, err := r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	got := rec.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, events.TypeTrigger, got[0].Type)
	assert.Equal(t, "r1", got[0].TriggerID)
	assert.Equal(t, "mempoolActivity", got[0].Event)
	assert.Equal(t, "testnet", got[0].Network)
	assert.Equal(t, "0x2", got[0].Data["tx_id"])

	n, err = r.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestRunner_RunOnce_EmitsErrorEvent(t *testing.T) {
	f, api := newFakeHiro(t)
	p := newPoller(t, api, newStore(t), Config{ID: "r2", Event: EventNewBlock})
	rec := newRecorder()
	r := NewRunner(p, rec, 20*time.Millisecond, "mainnet")

	f.fail(http.StatusNotFound)
	_, err := r.RunOnce(context.Background())
	require.Error(t, err)

	got := rec.snapshot()
	require.Len(t, got, 1)
	assert.Equal(t, events.TypeError, got[0].Type)
	assert.Contains(t, got[0].Error, "Stacks Trigger error: ")
	assert.Equal(t, 1+pollRetries, f.hitCount("/extended/v2/blocks"))
}

func TestRunner_RunOnce_EmitFailureIsNotRetried(t *testing.T) {
	f, api := newFakeHiro(t)
	p := newPoller(t, api, newStore(t), Config{ID: "r3", Event: EventNewBlock})
	rec := newRecorder()
	rec.err = errors.New("queue down")
	r := NewRunner(p, rec, 20*time.Millisecond, "mainnet")

	f.set("/extended/v2/blocks", `{"results":[{"height":1}]}`)
	_, err := r.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "queue down")
	assert.Equal(t, 1, f.hitCount("/extended/v2/blocks"))
}

// stubHiro answers GetBlocks from a swappable body. Other methods are not
// used by the newBlock poller.
type stubHiro struct {
	hiro.HiroAPI
	mu   sync.Mutex
	body string
}

func (s *stubHiro) setBody(b string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.body = b
}

func (s *stubHiro) GetBlocks(ctx context.Context, limit int) (*hiro.ListResponse, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var resp hiro.ListResponse
	if err := json.Unmarshal([]byte(s.body), &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// memStore is a map backed triggerstore.Store.
type memStore struct {
	mu     sync.Mutex
	states map[string]triggerstore.State
}

func newMemStore() *memStore { return &memStore{states: map[string]triggerstore.State{}} }

func (m *memStore) Load(id string) (triggerstore.State, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.states[id], nil
}

func (m *memStore) Save(id string, s triggerstore.State) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = s
	return nil
}

func (m *memStore) Delete(id string) error { return nil }
func (m *memStore) IDs() ([]string, error) { return nil, nil }
func (m *memStore) Close() error           { return nil }

func TestRunner_StartStop(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	api := &stubHiro{body: `{"results":[{"height":1}]}`}
	p := newPoller(t, api, newMemStore(), Config{ID: "loop", Event: EventNewBlock})
	rec := newRecorder()
	r := NewRunner(p, rec, 10*time.Millisecond, "mainnet")

	r.Start(context.Background())
	r.Start(context.Background())

	select {
	case <-rec.got:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not fire")
	}

	api.setBody(`{"results":[{"height":2}]}`)
	select {
	case <-rec.got:
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not fire on the next tick")
	}

	r.Stop()
	<-r.Done()
	r.Stop()

	got := rec.snapshot()
	require.Len(t, got, 2)
	assert.Equal(t, json.Number("1"), got[0].Data["height"])
	assert.Equal(t, json.Number("2"), got[1].Data["height"])
}

func TestRunner_StopsOnContextCancel(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	api := &stubHiro{body: `{"results":[]}`}
	p := newPoller(t, api, newMemStore(), Config{ID: "ctx", Event: EventNewBlock})
	r := NewRunner(p, newRecorder(), 5*time.Millisecond, "mainnet")

	ctx, cancel := context.WithCancel(context.Background())
	r.Start(ctx)
	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case <-r.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("runner did not stop")
	}
}
