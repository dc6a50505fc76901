// Package clarity encodes and decodes Clarity values in the consensus
// binary format used by Stacks nodes (hex strings in the REST API).
package clarity

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"sort"
	"strings"

	"github.com/fystack/stacks-connector/pkg/c32"
)

// TypeID is the one-byte prefix of every serialized value.
type TypeID byte

const (
	TypeInt               TypeID = 0x00
	TypeUInt              TypeID = 0x01
	TypeBuffer            TypeID = 0x02
	TypeBoolTrue          TypeID = 0x03
	TypeBoolFalse         TypeID = 0x04
	TypeStandardPrincipal TypeID = 0x05
	TypeContractPrincipal TypeID = 0x06
	TypeResponseOk        TypeID = 0x07
	TypeResponseErr       TypeID = 0x08
	TypeOptionalNone      TypeID = 0x09
	TypeOptionalSome      TypeID = 0x0a
	TypeList              TypeID = 0x0b
	TypeTuple             TypeID = 0x0c
	TypeStringASCII       TypeID = 0x0d
	TypeStringUTF8        TypeID = 0x0e
)

func (t TypeID) Hex() string {
	return hex.EncodeToString([]byte{byte(t)})
}

const (
	intWidth = 16

	// MaxNameLength bounds contract names and tuple field names.
	MaxNameLength = 128
	// MaxDepth bounds nesting of optionals, responses, lists and tuples.
	MaxDepth = 32
)

var (
	two128    = new(big.Int).Lsh(big.NewInt(1), 128)
	maxUint   = new(big.Int).Sub(two128, big.NewInt(1))
	maxInt    = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 127), big.NewInt(1))
	minInt    = new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), 127))
	bigZero   = big.NewInt(0)
	hexPrefix = "0x"
)

// Value is a typed Clarity value.
type Value interface {
	Type() TypeID
	String() string
}

// Int is a signed 128-bit integer.
type Int struct{ V *big.Int }

// UInt is an unsigned 128-bit integer.
type UInt struct{ V *big.Int }

type Bool bool

type Buffer []byte

type StringASCII string

type StringUTF8 string

// StandardPrincipal is an address: version byte plus hash160.
type StandardPrincipal struct {
	Version byte
	Hash160 [c32.Hash160Length]byte
}

// ContractPrincipal is a standard principal plus a contract name.
type ContractPrincipal struct {
	Address StandardPrincipal
	Name    string
}

type OptionalNone struct{}

type OptionalSome struct{ Value Value }

type ResponseOk struct{ Value Value }

type ResponseErr struct{ Value Value }

type List []Value

type Tuple map[string]Value

// Opaque carries a value whose type prefix is not understood. Data is
// everything that followed the prefix.
type Opaque struct {
	Tag  byte
	Data []byte
}

func NewInt(v int64) Int    { return Int{V: big.NewInt(v)} }
func NewUInt(v uint64) UInt { return UInt{V: new(big.Int).SetUint64(v)} }

func (Int) Type() TypeID               { return TypeInt }
func (UInt) Type() TypeID              { return TypeUInt }
func (Buffer) Type() TypeID            { return TypeBuffer }
func (StringASCII) Type() TypeID       { return TypeStringASCII }
func (StringUTF8) Type() TypeID        { return TypeStringUTF8 }
func (OptionalNone) Type() TypeID      { return TypeOptionalNone }
func (OptionalSome) Type() TypeID      { return TypeOptionalSome }
func (ResponseOk) Type() TypeID        { return TypeResponseOk }
func (ResponseErr) Type() TypeID       { return TypeResponseErr }
func (List) Type() TypeID              { return TypeList }
func (Tuple) Type() TypeID             { return TypeTuple }
func (StandardPrincipal) Type() TypeID { return TypeStandardPrincipal }
func (ContractPrincipal) Type() TypeID { return TypeContractPrincipal }
func (o Opaque) Type() TypeID          { return TypeID(o.Tag) }

func (b Bool) Type() TypeID {
	if b {
		return TypeBoolTrue
	}
	return TypeBoolFalse
}

func (v Int) String() string {
	if v.V == nil {
		return "0"
	}
	return v.V.String()
}

func (v UInt) String() string {
	if v.V == nil {
		return "u0"
	}
	return "u" + v.V.String()
}

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}

func (b Buffer) String() string      { return hexPrefix + hex.EncodeToString(b) }
func (s StringASCII) String() string { return fmt.Sprintf("%q", string(s)) }
func (s StringUTF8) String() string  { return "u" + fmt.Sprintf("%q", string(s)) }
func (OptionalNone) String() string  { return "none" }
func (o OptionalSome) String() string {
	return "(some " + o.Value.String() + ")"
}
func (r ResponseOk) String() string  { return "(ok " + r.Value.String() + ")" }
func (r ResponseErr) String() string { return "(err " + r.Value.String() + ")" }

func (l List) String() string {
	parts := make([]string, 0, len(l)+1)
	parts = append(parts, "list")
	for _, v := range l {
		parts = append(parts, v.String())
	}
	return "(" + strings.Join(parts, " ") + ")"
}

func (t Tuple) String() string {
	var sb strings.Builder
	sb.WriteString("(tuple")
	for _, name := range t.sortedNames() {
		fmt.Fprintf(&sb, " (%s %s)", name, t[name].String())
	}
	sb.WriteString(")")
	return sb.String()
}

func (t Tuple) sortedNames() []string {
	names := make([]string, 0, len(t))
	for name := range t {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Address returns the c32check text form of the principal.
func (p StandardPrincipal) Address() (string, error) {
	return c32.EncodeAddress(p.Version, p.Hash160[:])
}

func (p StandardPrincipal) String() string {
	addr, err := p.Address()
	if err != nil {
		return "'<invalid principal>"
	}
	return "'" + addr
}

// ID returns "address.name".
func (p ContractPrincipal) ID() (string, error) {
	addr, err := p.Address.Address()
	if err != nil {
		return "", err
	}
	return addr + "." + p.Name, nil
}

func (p ContractPrincipal) String() string {
	id, err := p.ID()
	if err != nil {
		return "'<invalid principal>"
	}
	return "'" + id
}

func (o Opaque) String() string {
	return fmt.Sprintf("<unknown 0x%02x %s>", o.Tag, hex.EncodeToString(o.Data))
}

// ParsePrincipal parses "address" or "address.contract-name".
func ParsePrincipal(s string) (Value, error) {
	addr, name, isContract := strings.Cut(strings.TrimSpace(s), ".")
	version, hash, err := c32.DecodeAddress(addr)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidAddress, err)
	}
	std := StandardPrincipal{Version: version, Hash160: hash}
	if !isContract {
		return std, nil
	}
	if err := checkName(name); err != nil {
		return nil, fmt.Errorf("contract name: %w", err)
	}
	return ContractPrincipal{Address: std, Name: name}, nil
}

func checkName(name string) error {
	if len(name) == 0 || len(name) > MaxNameLength {
		return fmt.Errorf("%w: name length %d outside 1..%d", ErrMalformed, len(name), MaxNameLength)
	}
	return nil
}
