package bitcoin

import (
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"
	"github.com/btcsuite/btcd/btcutil/bech32"
	"github.com/shopspring/decimal"
)

const satsPerBTC = 100_000_000

// NormalizeBTCAddress validates a Bitcoin address and returns it in
// canonical form. Segwit addresses are lower-cased.
func NormalizeBTCAddress(addr string) (string, error) {
	addr = strings.TrimSpace(addr)

	if addr == "" {
		return "", fmt.Errorf("empty address")
	}

	lower := strings.ToLower(addr)
	if strings.HasPrefix(lower, "bc1") || strings.HasPrefix(lower, "tb1") || strings.HasPrefix(lower, "bcrt1") {
		// bech32 (v0) and bech32m (v1+)
		if _, _, _, err := bech32.DecodeGeneric(addr); err != nil {
			return "", fmt.Errorf("invalid bech32 address: %w", err)
		}
		return lower, nil
	}

	payload, version, err := base58.CheckDecode(addr)
	if err != nil {
		return "", fmt.Errorf("invalid base58 address: %w", err)
	}
	if len(payload) != 20 {
		return "", fmt.Errorf("invalid address length: expected 20 byte hash, got %d", len(payload))
	}
	switch version {
	case 0x00, 0x05, 0x6f, 0xc4:
	default:
		return "", fmt.Errorf("invalid version byte: 0x%02x", version)
	}

	return addr, nil
}

// GetAddressType determines the type of Bitcoin address from its prefix
func GetAddressType(addr string) string {
	addr = strings.ToLower(strings.TrimSpace(addr))

	switch {
	case strings.HasPrefix(addr, "bc1q"):
		return "p2wpkh_mainnet"
	case strings.HasPrefix(addr, "bc1p"):
		return "p2tr_mainnet"
	case strings.HasPrefix(addr, "tb1q"):
		return "p2wpkh_testnet"
	case strings.HasPrefix(addr, "tb1p"):
		return "p2tr_testnet"
	case strings.HasPrefix(addr, "1"):
		return "p2pkh_mainnet"
	case strings.HasPrefix(addr, "3"):
		return "p2sh_mainnet"
	case strings.HasPrefix(addr, "m") || strings.HasPrefix(addr, "n"):
		return "p2pkh_testnet"
	case strings.HasPrefix(addr, "2"):
		return "p2sh_testnet"
	default:
		return "unknown"
	}
}

// IsTestnetAddress checks if an address is for testnet
func IsTestnetAddress(addr string) bool {
	return strings.Contains(GetAddressType(addr), "testnet")
}

// SatsToBTC renders satoshis with eight decimals.
func SatsToBTC(sats int64) string {
	return decimal.NewFromInt(sats).Div(decimal.NewFromInt(satsPerBTC)).StringFixed(8)
}
