// Package c32 implements the Crockford-style base32 alphabet used by Stacks
// and the c32check address format built on top of it.
package c32

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"strings"
)

const Alphabet = "0123456789ABCDEFGHJKMNPQRSTVWXYZ"

// Address versions. The version selects the second character of an address.
const (
	VersionMainnetSingleSig byte = 22 // SP
	VersionMainnetMultiSig  byte = 20 // SM
	VersionTestnetSingleSig byte = 26 // ST
	VersionTestnetMultiSig  byte = 21 // SN
)

const (
	Hash160Length  = 20
	checksumLength = 4
)

var (
	ErrInvalidCharacter = errors.New("c32: invalid character")
	ErrInvalidChecksum  = errors.New("c32: checksum mismatch")
	ErrInvalidVersion   = errors.New("c32: invalid version")
	ErrInvalidAddress   = errors.New("c32: invalid address")
)

var decodeMap [256]int8

func init() {
	for i := range decodeMap {
		decodeMap[i] = -1
	}
	for i := 0; i < len(Alphabet); i++ {
		decodeMap[Alphabet[i]] = int8(i)
	}
}

// Normalize upper-cases s and folds the ambiguous characters O, L and I
// onto 0 and 1.
func Normalize(s string) string {
	s = strings.ToUpper(s)
	return strings.NewReplacer("O", "0", "L", "1", "I", "1").Replace(s)
}

// Encode renders data as a c32 string. Each leading zero byte becomes one
// leading '0' character.
func Encode(data []byte) string {
	out := make([]byte, 0, len(data)*8/5+1)
	var acc uint32
	var bits uint
	for i := len(data) - 1; i >= 0; i-- {
		acc |= uint32(data[i]) << bits
		bits += 8
		for bits >= 5 {
			out = append(out, Alphabet[acc&31])
			acc >>= 5
			bits -= 5
		}
	}
	if bits > 0 {
		out = append(out, Alphabet[acc&31])
	}
	for len(out) > 0 && out[len(out)-1] == '0' {
		out = out[:len(out)-1]
	}
	for _, b := range data {
		if b != 0 {
			break
		}
		out = append(out, '0')
	}
	reverse(out)
	return string(out)
}

// Decode parses a c32 string produced by Encode.
func Decode(s string) ([]byte, error) {
	s = Normalize(s)
	leadingZeros := 0
	for leadingZeros < len(s) && s[leadingZeros] == '0' {
		leadingZeros++
	}

	out := make([]byte, 0, len(s)*5/8+1)
	var acc uint32
	var bits uint
	for i := len(s) - 1; i >= 0; i-- {
		v := decodeMap[s[i]]
		if v < 0 {
			return nil, fmt.Errorf("%w %q at position %d", ErrInvalidCharacter, s[i], i)
		}
		acc |= uint32(v) << bits
		bits += 5
		if bits >= 8 {
			out = append(out, byte(acc))
			acc >>= 8
			bits -= 8
		}
	}
	if bits > 0 && acc != 0 {
		out = append(out, byte(acc))
	}
	for len(out) > 0 && out[len(out)-1] == 0 {
		out = out[:len(out)-1]
	}
	for i := 0; i < leadingZeros; i++ {
		out = append(out, 0)
	}
	reverse(out)
	return out, nil
}

func checksum(version byte, data []byte) []byte {
	buf := make([]byte, 0, len(data)+1)
	buf = append(buf, version)
	buf = append(buf, data...)
	first := sha256.Sum256(buf)
	second := sha256.Sum256(first[:])
	return second[:checksumLength]
}

// CheckEncode renders version and data in c32check form: the version
// character followed by c32(data || checksum).
func CheckEncode(version byte, data []byte) (string, error) {
	if int(version) >= len(Alphabet) {
		return "", fmt.Errorf("%w: %d", ErrInvalidVersion, version)
	}
	payload := make([]byte, 0, len(data)+checksumLength)
	payload = append(payload, data...)
	payload = append(payload, checksum(version, data)...)
	return string(Alphabet[version]) + Encode(payload), nil
}

// CheckDecode is the inverse of CheckEncode. The checksum is verified.
func CheckDecode(s string) (byte, []byte, error) {
	s = Normalize(s)
	if len(s) < 2 {
		return 0, nil, fmt.Errorf("%w: input too short", ErrInvalidAddress)
	}
	v := decodeMap[s[0]]
	if v < 0 {
		return 0, nil, fmt.Errorf("%w %q in version", ErrInvalidCharacter, s[0])
	}
	version := byte(v)

	payload, err := Decode(s[1:])
	if err != nil {
		return 0, nil, err
	}
	if len(payload) < checksumLength {
		return 0, nil, fmt.Errorf("%w: payload too short", ErrInvalidAddress)
	}
	data := payload[:len(payload)-checksumLength]
	sum := payload[len(payload)-checksumLength:]
	want := checksum(version, data)
	for i := range want {
		if want[i] != sum[i] {
			return 0, nil, ErrInvalidChecksum
		}
	}
	return version, data, nil
}

// EncodeAddress builds an "S"-prefixed Stacks address.
func EncodeAddress(version byte, hash160 []byte) (string, error) {
	if len(hash160) != Hash160Length {
		return "", fmt.Errorf("%w: hash160 must be %d bytes, got %d", ErrInvalidAddress, Hash160Length, len(hash160))
	}
	body, err := CheckEncode(version, hash160)
	if err != nil {
		return "", err
	}
	return "S" + body, nil
}

// DecodeAddress returns the version byte and hash160 of a Stacks address.
func DecodeAddress(address string) (byte, [Hash160Length]byte, error) {
	var hash [Hash160Length]byte
	if len(address) <= 5 || (address[0] != 'S' && address[0] != 's') {
		return 0, hash, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	version, data, err := CheckDecode(address[1:])
	if err != nil {
		return 0, hash, fmt.Errorf("decode address %q: %w", address, err)
	}
	if len(data) != Hash160Length {
		return 0, hash, fmt.Errorf("%w: %q has %d byte hash", ErrInvalidAddress, address, len(data))
	}
	copy(hash[:], data)
	return version, hash, nil
}

// IsStandardVersion reports whether version is one of the four address
// versions used on mainnet and testnet.
func IsStandardVersion(version byte) bool {
	switch version {
	case VersionMainnetSingleSig, VersionMainnetMultiSig, VersionTestnetSingleSig, VersionTestnetMultiSig:
		return true
	}
	return false
}

func reverse(b []byte) {
	for i, j := 0, len(b)-1; i < j; i, j = i+1, j-1 {
		b[i], b[j] = b[j], b[i]
	}
}
