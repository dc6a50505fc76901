package triggerstore

import (
	"sort"
	"testing"
	"time"

	"github.com/fystack/stacks-connector/pkg/kvstore"
	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newStore(t *testing.T) *triggerStore {
	t.Helper()
	kv, err := kvstore.NewBadgerStore("", "test", nil)
	require.NoError(t, err)
	ts := NewTriggerStore(kv).(*triggerStore)
	ts.now = func() time.Time { return time.Unix(1700000000, 0) }
	t.Cleanup(func() { _ = ts.Close() })
	return ts
}

func TestLoad_Unknown(t *testing.T) {
	ts := newStore(t)
	s, err := ts.Load("nobody")
	require.NoError(t, err)
	assert.Equal(t, State{}, s)
	assert.Nil(t, s.LastBlockHeight)
}

func TestSaveLoad(t *testing.T) {
	ts := newStore(t)
	in := State{
		Event:           "newBlock",
		LastBlockHeight: lo.ToPtr(int64(150000)),
		LastEventIndex:  lo.ToPtr(int64(0)),
		SeenMempool:     []string{"0xaa", "0xbb"},
	}
	require.NoError(t, ts.Save("watch", in))

	got, err := ts.Load("watch")
	require.NoError(t, err)
	assert.Equal(t, "newBlock", got.Event)
	require.NotNil(t, got.LastBlockHeight)
	assert.Equal(t, int64(150000), *got.LastBlockHeight)
	require.NotNil(t, got.LastEventIndex, "zero index survives the round trip")
	assert.Equal(t, int64(0), *got.LastEventIndex)
	assert.Nil(t, got.LastCycleID)
	assert.Equal(t, []string{"0xaa", "0xbb"}, got.SeenMempool)
	assert.Equal(t, int64(1700000000), got.UpdatedAt)
}

func TestIDsAndDelete(t *testing.T) {
	ts := newStore(t)
	require.NoError(t, ts.Save("a", State{Event: "newBlock"}))
	require.NoError(t, ts.Save("b", State{Event: "stackingEvent"}))

	ids, err := ts.IDs()
	require.NoError(t, err)
	sort.Strings(ids)
	assert.Equal(t, []string{"a", "b"}, ids)

	require.NoError(t, ts.Delete("a"))
	ids, err = ts.IDs()
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}

func TestEmptyID(t *testing.T) {
	ts := newStore(t)
	_, err := ts.Load("")
	assert.ErrorIs(t, err, ErrTriggerIDRequired)
	assert.ErrorIs(t, ts.Save("", State{}), ErrTriggerIDRequired)
	assert.ErrorIs(t, ts.Delete(""), ErrTriggerIDRequired)
}
