package stacks

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/btcsuite/btcd/btcutil/base58"

	"github.com/fystack/stacks-connector/pkg/c32"
)

const maxContractNameLength = 40

var (
	ErrInvalidContractID = errors.New("invalid contract identifier")
	ErrUnknownVersion    = errors.New("no matching address version")

	contractNameRe = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9-]*$`)
)

// Bitcoin base58check versions and their Stacks counterparts.
var (
	btcToSTXVersion = map[byte]byte{
		0x00: c32.VersionMainnetSingleSig,
		0x05: c32.VersionMainnetMultiSig,
		0x6f: c32.VersionTestnetSingleSig,
		0xc4: c32.VersionTestnetMultiSig,
	}
	stxToBTCVersion = map[byte]byte{
		c32.VersionMainnetSingleSig: 0x00,
		c32.VersionMainnetMultiSig:  0x05,
		c32.VersionTestnetSingleSig: 0x6f,
		c32.VersionTestnetMultiSig:  0xc4,
	}
)

// IsValidAddress reports whether address is a c32check Stacks address with
// a mainnet or testnet version and a valid checksum.
func IsValidAddress(address string) bool {
	version, _, err := c32.DecodeAddress(strings.TrimSpace(address))
	if err != nil {
		return false
	}
	return c32.IsStandardVersion(version)
}

// IsValidContractID reports whether id has the form address.contract-name.
func IsValidContractID(id string) bool {
	_, _, err := ParseContractID(id)
	return err == nil
}

// ParseContractID splits "address.name" and validates both halves.
func ParseContractID(id string) (address, name string, err error) {
	parts := strings.Split(strings.TrimSpace(id), ".")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidContractID, id)
	}
	address, name = parts[0], parts[1]
	if !IsValidAddress(address) {
		return "", "", fmt.Errorf("%w: bad address in %q", ErrInvalidContractID, id)
	}
	if len(name) == 0 || len(name) > maxContractNameLength || !contractNameRe.MatchString(name) {
		return "", "", fmt.Errorf("%w: bad contract name in %q", ErrInvalidContractID, id)
	}
	return address, name, nil
}

// BTCToSTXAddress converts a legacy base58check Bitcoin address to the
// Stacks address with the same hash160.
func BTCToSTXAddress(btcAddress string) (string, error) {
	hash, version, err := base58.CheckDecode(strings.TrimSpace(btcAddress))
	if err != nil {
		return "", fmt.Errorf("decode bitcoin address %q: %w", btcAddress, err)
	}
	stxVersion, ok := btcToSTXVersion[version]
	if !ok {
		return "", fmt.Errorf("%w: bitcoin version 0x%02x", ErrUnknownVersion, version)
	}
	return c32.EncodeAddress(stxVersion, hash)
}

// STXToBTCAddress is the inverse of BTCToSTXAddress.
func STXToBTCAddress(stxAddress string) (string, error) {
	version, hash, err := c32.DecodeAddress(strings.TrimSpace(stxAddress))
	if err != nil {
		return "", err
	}
	btcVersion, ok := stxToBTCVersion[version]
	if !ok {
		return "", fmt.Errorf("%w: stacks version %d", ErrUnknownVersion, version)
	}
	return base58.CheckEncode(hash[:], btcVersion), nil
}
