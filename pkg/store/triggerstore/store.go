package triggerstore

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/fystack/stacks-connector/pkg/common/constant"
	"github.com/fystack/stacks-connector/pkg/infra"
)

var ErrTriggerIDRequired = errors.New("trigger id is required")

// State is what a trigger remembers between polls. Pointer fields are nil
// until the first poll records them.
type State struct {
	Event              string   `json:"event,omitempty"`
	LastBlockHeight    *int64   `json:"lastBlockHeight,omitempty"`
	LastMicroblockHash string   `json:"lastMicroblockHash,omitempty"`
	LastTxID           string   `json:"lastTxId,omitempty"`
	LastEventIndex     *int64   `json:"lastEventIndex,omitempty"`
	LastTransferID     string   `json:"lastTransferId,omitempty"`
	SeenMempool        []string `json:"seenMempoolTxs,omitempty"`
	LastCycleID        *int64   `json:"lastCycleId,omitempty"`
	UpdatedAt          int64    `json:"updatedAt,omitempty"`
}

type Store interface {
	// Load returns the zero State for an unknown id.
	Load(id string) (State, error)
	Save(id string, s State) error
	Delete(id string) error
	// IDs lists every trigger with saved state.
	IDs() ([]string, error)
	Close() error
}

type triggerStore struct {
	store infra.KVStore
	now   func() time.Time
}

func NewTriggerStore(store infra.KVStore) Store {
	return &triggerStore{store: store, now: time.Now}
}

func stateKey(id string) string {
	return fmt.Sprintf("%s/%s", constant.TriggerStatePrefix, id)
}

func (ts *triggerStore) Load(id string) (State, error) {
	var s State
	if id == "" {
		return s, ErrTriggerIDRequired
	}
	if _, err := ts.store.GetAny(stateKey(id), &s); err != nil {
		return State{}, fmt.Errorf("load trigger state %s: %w", id, err)
	}
	return s, nil
}

func (ts *triggerStore) Save(id string, s State) error {
	if id == "" {
		return ErrTriggerIDRequired
	}
	s.UpdatedAt = ts.now().UTC().Unix()
	if err := ts.store.SetAny(stateKey(id), s); err != nil {
		return fmt.Errorf("save trigger state %s: %w", id, err)
	}
	return nil
}

func (ts *triggerStore) Delete(id string) error {
	if id == "" {
		return ErrTriggerIDRequired
	}
	return ts.store.Delete(stateKey(id))
}

func (ts *triggerStore) IDs() ([]string, error) {
	prefix := constant.TriggerStatePrefix + "/"
	pairs, err := ts.store.List(prefix)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(pairs))
	for _, p := range pairs {
		ids = append(ids, strings.TrimPrefix(p.Key, prefix))
	}
	return ids, nil
}

func (ts *triggerStore) Close() error {
	return ts.store.Close()
}
