package hiro

import "encoding/json"

// ListResponse is the paginated envelope used by /extended endpoints.
// Results are left raw so callers can decode the fields they need and
// still forward the full object.
type ListResponse struct {
	Limit   int               `json:"limit"`
	Offset  int               `json:"offset"`
	Total   int               `json:"total"`
	Results []json.RawMessage `json:"results"`
}

type Block struct {
	Height        int64  `json:"height"`
	Hash          string `json:"hash"`
	BlockTime     int64  `json:"block_time"`
	BurnBlockTime int64  `json:"burn_block_time"`
	TxCount       int    `json:"tx_count"`
}

type Microblock struct {
	MicroblockHash     string `json:"microblock_hash"`
	MicroblockSequence int    `json:"microblock_sequence"`
	BlockHeight        int64  `json:"block_height"`
}

type Transaction struct {
	TxID          string `json:"tx_id"`
	TxType        string `json:"tx_type"`
	TxStatus      string `json:"tx_status"`
	SenderAddress string `json:"sender_address"`
	FeeRate       string `json:"fee_rate"`
	BlockHeight   int64  `json:"block_height"`
	BurnBlockTime int64  `json:"burn_block_time"`
}

type ContractEvent struct {
	EventIndex int64  `json:"event_index"`
	EventType  string `json:"event_type"`
	TxID       string `json:"tx_id"`
}

type PoxInfo struct {
	ContractID   string   `json:"contract_id"`
	CurrentCycle PoxCycle `json:"current_cycle"`
	NextCycle    PoxCycle `json:"next_cycle"`
}

type PoxCycle struct {
	ID                 int64  `json:"id"`
	MinThresholdUstx   uint64 `json:"min_threshold_ustx"`
	StackedUstx        uint64 `json:"stacked_ustx"`
	IsPoxActive        bool   `json:"is_pox_active"`
	BlocksUntilPrepare *int64 `json:"blocks_until_prepare_phase,omitempty"`
}

type CoreInfo struct {
	PeerVersion       uint32 `json:"peer_version"`
	NetworkID         uint32 `json:"network_id"`
	ServerVersion     string `json:"server_version"`
	StacksTipHeight   int64  `json:"stacks_tip_height"`
	StacksTip         string `json:"stacks_tip"`
	BurnBlockHeight   int64  `json:"burn_block_height"`
	UnanchoredTip     string `json:"unanchored_tip"`
	ExitAtBlockHeight *int64 `json:"exit_at_block_height"`
}

// ReadOnlyResult is the body of a call-read response.
type ReadOnlyResult struct {
	Okay   bool   `json:"okay"`
	Result string `json:"result,omitempty"`
	Cause  string `json:"cause,omitempty"`
}
