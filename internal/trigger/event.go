// Package trigger polls the Stacks API and fires items when something new
// appears: blocks, microblocks, address or contract activity, STX
// transfers, mempool transactions and stacking cycles.
package trigger

import (
	"errors"
	"fmt"
	"slices"

	"github.com/fystack/stacks-connector/pkg/stacks"
)

type Event string

const (
	EventNewBlock           Event = "newBlock"
	EventNewMicroblock      Event = "newMicroblock"
	EventAddressTransaction Event = "addressTransaction"
	EventContractEvent      Event = "contractEvent"
	EventSTXTransfer        Event = "stxTransfer"
	EventMempoolActivity    Event = "mempoolActivity"
	EventStackingEvent      Event = "stackingEvent"
)

// Page sizes per poll.
const (
	addressTxLimit     = 5
	contractEventLimit = 5
	transferLimit      = 10
	mempoolLimit       = 10
	// MaxSeenMempool caps the remembered mempool tx ids.
	MaxSeenMempool = 50
)

var (
	ErrUnknownEvent = errors.New("unknown event type")
	ErrMissingParam = errors.New("missing required parameter")
	ErrInvalidParam = errors.New("invalid parameter")
)

var allEvents = []Event{
	EventNewBlock,
	EventNewMicroblock,
	EventAddressTransaction,
	EventContractEvent,
	EventSTXTransfer,
	EventMempoolActivity,
	EventStackingEvent,
}

func Events() []Event { return slices.Clone(allEvents) }

func ParseEvent(s string) (Event, error) {
	e := Event(s)
	if !slices.Contains(allEvents, e) {
		return "", fmt.Errorf("%w: %s", ErrUnknownEvent, s)
	}
	return e, nil
}

// Config selects what one trigger watches.
type Config struct {
	ID         string
	Event      Event
	Address    string
	ContractID string
}

func (c Config) Validate() error {
	if _, err := ParseEvent(string(c.Event)); err != nil {
		return err
	}
	switch c.Event {
	case EventAddressTransaction, EventSTXTransfer:
		if c.Address == "" {
			return fmt.Errorf("%w: address", ErrMissingParam)
		}
		if !stacks.IsValidAddress(c.Address) {
			return fmt.Errorf("%w: address %q", ErrInvalidParam, c.Address)
		}
	case EventContractEvent:
		if c.ContractID == "" {
			return fmt.Errorf("%w: contractId", ErrMissingParam)
		}
		if !stacks.IsValidContractID(c.ContractID) {
			return fmt.Errorf("%w: contractId %q", ErrInvalidParam, c.ContractID)
		}
	}
	return nil
}

// RequiredParams names the parameters an event needs.
func (e Event) RequiredParams() []string {
	switch e {
	case EventAddressTransaction, EventSTXTransfer:
		return []string{"address"}
	case EventContractEvent:
		return []string{"contractId"}
	}
	return nil
}
