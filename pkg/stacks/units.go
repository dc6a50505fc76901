package stacks

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// MicroPerSTX is the number of microSTX in one STX.
const MicroPerSTX = 1_000_000

const stxDecimals = 6

var microPerSTX = decimal.NewFromInt(MicroPerSTX)

// MicroToSTX converts a microSTX amount to STX text with six decimals,
// "1500000" -> "1.500000".
func MicroToSTX(micro any) (string, error) {
	d, err := toDecimal(micro)
	if err != nil {
		return "", err
	}
	return d.Div(microPerSTX).StringFixed(stxDecimals), nil
}

// STXToMicro converts an STX amount to microSTX, rounding half away from
// zero to the nearest whole microSTX.
func STXToMicro(stx any) (decimal.Decimal, error) {
	d, err := toDecimal(stx)
	if err != nil {
		return decimal.Zero, err
	}
	return d.Mul(microPerSTX).Round(0), nil
}

// FormatSTX renders a microSTX amount as "x.xxxxxx STX". Unparseable
// input is returned unchanged.
func FormatSTX(micro any) string {
	s, err := MicroToSTX(micro)
	if err != nil {
		return fmt.Sprint(micro)
	}
	return s + " STX"
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case decimal.Decimal:
		return x, nil
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(x))
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid amount %q: %w", x, err)
		}
		return d, nil
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(x), 0), nil
	case float64:
		return decimal.NewFromFloat(x), nil
	case *big.Int:
		return decimal.NewFromBigInt(x, 0), nil
	case fmt.Stringer:
		return toDecimal(x.String())
	default:
		return decimal.Zero, fmt.Errorf("invalid amount type %T", v)
	}
}
