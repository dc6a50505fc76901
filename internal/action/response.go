package action

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/fystack/stacks-connector/pkg/stacks"
)

// Item is one output record of an operation. PairedItem is the index of
// the input that produced it.
type Item struct {
	JSON       map[string]any `json:"json"`
	PairedItem int            `json:"pairedItem"`
}

func newItem(v any, idx int) Item {
	if m, ok := v.(map[string]any); ok {
		return Item{JSON: m, PairedItem: idx}
	}
	return Item{JSON: map[string]any{"value": v}, PairedItem: idx}
}

// FormatResponse turns a decoded body into items: one per element of an
// array, otherwise a single item. Non-object values are wrapped as
// {"value": x}.
func FormatResponse(data any, idx int) []Item {
	if list, ok := data.([]any); ok {
		items := make([]Item, 0, len(list))
		for _, v := range list {
			items = append(items, newItem(v, idx))
		}
		return items
	}
	return []Item{newItem(data, idx)}
}

// FormatPaginatedResponse makes one item per entry of "results". The first
// item carries _pagination when the body reports a total. Bodies without a
// results array fall back to FormatResponse.
func FormatPaginatedResponse(data any, idx int) []Item {
	body, ok := data.(map[string]any)
	if !ok {
		return FormatResponse(data, idx)
	}
	results, ok := body["results"].([]any)
	if !ok {
		return FormatResponse(data, idx)
	}

	items := make([]Item, 0, len(results))
	for _, v := range results {
		items = append(items, newItem(v, idx))
	}

	total, hasTotal := toInt64(body["total"])
	if len(items) > 0 && hasTotal {
		offset, _ := toInt64(body["offset"])
		items[0].JSON["_pagination"] = map[string]any{
			"total":   body["total"],
			"limit":   body["limit"],
			"offset":  body["offset"],
			"hasMore": offset+int64(len(results)) < total,
		}
	}
	return items
}

// EmptyResponse is returned when an operation produced nothing.
func EmptyResponse(idx int) []Item {
	return []Item{{
		JSON:       map[string]any{"success": true, "message": "No results found"},
		PairedItem: idx,
	}}
}

// FormatBalance keeps the STX balance with a formatted copy and passes
// fungible tokens through.
func FormatBalance(balance map[string]any) map[string]any {
	out := map[string]any{}
	if stx, ok := balance["stx"].(map[string]any); ok {
		if b := stringOf(stx["balance"]); b != "" {
			out["stx"] = map[string]any{
				"balance":          b,
				"balanceFormatted": stacks.FormatSTX(b),
			}
		}
	}
	if ft, ok := balance["fungible_tokens"]; ok && ft != nil {
		out["fungibleTokens"] = ft
	}
	return out
}

// FormatTransaction copies tx and adds feeFormatted and
// timestampFormatted when the source fields are present.
func FormatTransaction(tx map[string]any) map[string]any {
	out := make(map[string]any, len(tx)+2)
	for k, v := range tx {
		out[k] = v
	}
	if fee := stringOf(tx["fee_rate"]); fee != "" && fee != "0" {
		out["feeFormatted"] = stacks.FormatSTX(fee)
	}
	if ts, ok := toInt64(tx["burn_block_time"]); ok && ts != 0 {
		out["timestampFormatted"] = time.Unix(ts, 0).UTC().Format(time.RFC3339)
	}
	return out
}

// toPlain re-encodes v through JSON so struct results take the same
// shape as decoded API bodies.
func toPlain(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	return out, nil
}

func stringOf(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return fmt.Sprint(x)
	}
}

func toInt64(v any) (int64, bool) {
	switch x := v.(type) {
	case json.Number:
		n, err := x.Int64()
		return n, err == nil
	case float64:
		return int64(x), true
	case int:
		return int64(x), true
	case int64:
		return x, true
	case string:
		n, err := strconv.ParseInt(x, 10, 64)
		return n, err == nil
	default:
		return 0, false
	}
}
