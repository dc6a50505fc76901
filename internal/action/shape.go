package action

import (
	"strings"

	"github.com/samber/lo"
)

// shapeBalance keeps the raw balances and adds a formatted summary.
func shapeBalance(data any, _ Params) (any, error) {
	body, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	body["formatted"] = FormatBalance(body)
	return body, nil
}

func shapeTransaction(data any, _ Params) (any, error) {
	if tx, ok := data.(map[string]any); ok {
		return FormatTransaction(tx), nil
	}
	return data, nil
}

// shapeTransactions formats every transaction of a results page. Address
// history entries wrap the transaction under "tx".
func shapeTransactions(data any, _ Params) (any, error) {
	body, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	results, ok := body["results"].([]any)
	if !ok {
		return data, nil
	}
	body["results"] = lo.Map(results, func(r any, _ int) any {
		tx, ok := r.(map[string]any)
		if !ok {
			return r
		}
		if inner, ok := tx["tx"].(map[string]any); ok {
			tx["tx"] = FormatTransaction(inner)
			return tx
		}
		return FormatTransaction(tx)
	})
	return body, nil
}

// shapeFirstResult returns the first entry of "results", or nothing.
func shapeFirstResult(data any, _ Params) (any, error) {
	body, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	results, ok := body["results"].([]any)
	if !ok {
		return data, nil
	}
	if len(results) == 0 {
		return []any{}, nil
	}
	return results[0], nil
}

// shapeSBTCBalance picks the fungible tokens whose identifier mentions
// sbtc, keeping the full balance alongside.
func shapeSBTCBalance(data any, _ Params) (any, error) {
	body, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	tokens, _ := body["fungible_tokens"].(map[string]any)
	sbtc := lo.PickBy(tokens, func(key string, _ any) bool {
		return strings.Contains(strings.ToLower(key), "sbtc")
	})
	return map[string]any{"sbtc_balance": sbtc, "raw_balances": body}, nil
}

// shapeMapEntry adds the decoded value to a map_entry response.
func shapeMapEntry(data any, _ Params) (any, error) {
	body, ok := data.(map[string]any)
	if !ok {
		return data, nil
	}
	if data, ok := body["data"].(string); ok && data != "" {
		withDecoded(body, data)
	}
	return body, nil
}

func shapeFeeRate(data any, _ Params) (any, error) {
	if _, ok := data.(map[string]any); ok {
		return data, nil
	}
	return map[string]any{"feeRate": data, "unit": "microSTX per byte"}, nil
}
