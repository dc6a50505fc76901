package clarity

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math/big"
	"unicode/utf8"

	"github.com/fystack/stacks-connector/pkg/c32"
)

// Some marks a present optional in decoded output. It renders as
// {"some": value}.
type Some struct {
	Some any `json:"some"`
}

// Response is a decoded (ok x) or (err x). It renders as {"ok": x} or
// {"err": x}.
type Response struct {
	Ok    bool
	Value any
}

func (r Response) MarshalJSON() ([]byte, error) {
	key := TagErr
	if r.Ok {
		key = TagOk
	}
	return json.Marshal(map[string]any{key: r.Value})
}

// Raw is returned for values whose type prefix is not understood. Raw holds
// the hex from the prefix onward.
type Raw struct {
	Raw  string `json:"raw"`
	Type string `json:"type"`
}

// DecodeHex parses a hex serialized value (0x prefix optional) into plain
// Go data: integers become decimal strings, buffers 0x-hex strings,
// principals address strings, none becomes nil, some a Some, responses a
// Response, lists []any and tuples map[string]any.
func DecodeHex(s string) (any, error) {
	data, err := decodeHexString(s)
	if err != nil {
		return nil, err
	}
	v, err := Deserialize(data)
	if err != nil {
		return nil, err
	}
	return Plain(v)
}

// Deserialize parses exactly one value from data.
func Deserialize(data []byte) (Value, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrMalformed)
	}
	r := &reader{data: data}
	v, err := r.value(0)
	if err != nil {
		return nil, err
	}
	if n := r.remaining(); n > 0 {
		return nil, fmt.Errorf("%w: %d trailing bytes", ErrMalformed, n)
	}
	return v, nil
}

type reader struct {
	data []byte
	pos  int
}

func (r *reader) remaining() int { return len(r.data) - r.pos }

func (r *reader) next(n uint64) ([]byte, error) {
	if n > uint64(r.remaining()) {
		return nil, fmt.Errorf("%w: need %d bytes at offset %d, have %d", ErrMalformed, n, r.pos, r.remaining())
	}
	b := r.data[r.pos : r.pos+int(n)]
	r.pos += int(n)
	return b, nil
}

func (r *reader) u8() (byte, error) {
	b, err := r.next(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (r *reader) uint32() (uint32, error) {
	b, err := r.next(4)
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(b), nil
}

func (r *reader) bytes(n uint64) ([]byte, error) {
	b, err := r.next(n)
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (r *reader) lengthPrefixed() ([]byte, error) {
	n, err := r.uint32()
	if err != nil {
		return nil, err
	}
	return r.bytes(uint64(n))
}

func (r *reader) principal() (StandardPrincipal, error) {
	var p StandardPrincipal
	version, err := r.u8()
	if err != nil {
		return p, err
	}
	if int(version) >= len(c32.Alphabet) {
		return p, fmt.Errorf("%w: principal version %d", ErrMalformed, version)
	}
	hash, err := r.next(c32.Hash160Length)
	if err != nil {
		return p, err
	}
	p.Version = version
	copy(p.Hash160[:], hash)
	return p, nil
}

func (r *reader) name() (string, error) {
	n, err := r.u8()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", fmt.Errorf("%w: empty name at offset %d", ErrMalformed, r.pos-1)
	}
	b, err := r.next(uint64(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (r *reader) value(depth int) (Value, error) {
	if depth > MaxDepth {
		return nil, fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, MaxDepth)
	}
	tag, err := r.u8()
	if err != nil {
		return nil, err
	}

	switch TypeID(tag) {
	case TypeInt:
		b, err := r.next(intWidth)
		if err != nil {
			return nil, err
		}
		v := new(big.Int).SetBytes(b)
		if b[0]&0x80 != 0 {
			v.Sub(v, two128)
		}
		return Int{V: v}, nil
	case TypeUInt:
		b, err := r.next(intWidth)
		if err != nil {
			return nil, err
		}
		return UInt{V: new(big.Int).SetBytes(b)}, nil
	case TypeBuffer:
		b, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}
		return Buffer(b), nil
	case TypeBoolTrue:
		return Bool(true), nil
	case TypeBoolFalse:
		return Bool(false), nil
	case TypeStandardPrincipal:
		return r.principal()
	case TypeContractPrincipal:
		p, err := r.principal()
		if err != nil {
			return nil, err
		}
		name, err := r.name()
		if err != nil {
			return nil, err
		}
		return ContractPrincipal{Address: p, Name: name}, nil
	case TypeResponseOk, TypeResponseErr, TypeOptionalSome:
		inner, err := r.value(depth + 1)
		if err != nil {
			return nil, err
		}
		switch TypeID(tag) {
		case TypeResponseOk:
			return ResponseOk{Value: inner}, nil
		case TypeResponseErr:
			return ResponseErr{Value: inner}, nil
		default:
			return OptionalSome{Value: inner}, nil
		}
	case TypeOptionalNone:
		return OptionalNone{}, nil
	case TypeList:
		n, err := r.uint32()
		if err != nil {
			return nil, err
		}
		// every element takes at least one byte
		if uint64(n) > uint64(r.remaining()) {
			return nil, fmt.Errorf("%w: list of %d items with %d bytes left", ErrMalformed, n, r.remaining())
		}
		out := make(List, 0, n)
		for i := uint32(0); i < n; i++ {
			v, err := r.value(depth + 1)
			if err != nil {
				return nil, fmt.Errorf("list item %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	case TypeTuple:
		n, err := r.uint32()
		if err != nil {
			return nil, err
		}
		if uint64(n)*3 > uint64(r.remaining()) {
			return nil, fmt.Errorf("%w: tuple of %d fields with %d bytes left", ErrMalformed, n, r.remaining())
		}
		out := make(Tuple, n)
		for i := uint32(0); i < n; i++ {
			name, err := r.name()
			if err != nil {
				return nil, fmt.Errorf("tuple field %d: %w", i, err)
			}
			v, err := r.value(depth + 1)
			if err != nil {
				return nil, fmt.Errorf("tuple field %q: %w", name, err)
			}
			out[name] = v
		}
		return out, nil
	case TypeStringASCII:
		b, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}
		if i := firstNonASCII(string(b)); i >= 0 {
			return nil, fmt.Errorf("%w: non-ASCII byte in string-ascii", ErrMalformed)
		}
		return StringASCII(b), nil
	case TypeStringUTF8:
		b, err := r.lengthPrefixed()
		if err != nil {
			return nil, err
		}
		if !utf8.Valid(b) {
			return nil, fmt.Errorf("%w: invalid UTF-8 in string-utf8", ErrMalformed)
		}
		return StringUTF8(b), nil
	default:
		rest, _ := r.bytes(uint64(r.remaining()))
		return Opaque{Tag: tag, Data: rest}, nil
	}
}

// Plain converts v into the same plain shapes DecodeHex returns.
func Plain(v Value) (any, error) {
	switch x := v.(type) {
	case Int:
		return x.String(), nil
	case UInt:
		if x.V == nil {
			return "0", nil
		}
		return x.V.String(), nil
	case Bool:
		return bool(x), nil
	case Buffer:
		return x.String(), nil
	case StringASCII:
		return string(x), nil
	case StringUTF8:
		return string(x), nil
	case StandardPrincipal:
		return x.Address()
	case ContractPrincipal:
		return x.ID()
	case OptionalNone:
		return nil, nil
	case OptionalSome:
		inner, err := Plain(x.Value)
		if err != nil {
			return nil, err
		}
		return Some{Some: inner}, nil
	case ResponseOk:
		inner, err := Plain(x.Value)
		if err != nil {
			return nil, err
		}
		return Response{Ok: true, Value: inner}, nil
	case ResponseErr:
		inner, err := Plain(x.Value)
		if err != nil {
			return nil, err
		}
		return Response{Ok: false, Value: inner}, nil
	case List:
		out := make([]any, 0, len(x))
		for _, item := range x {
			p, err := Plain(item)
			if err != nil {
				return nil, err
			}
			out = append(out, p)
		}
		return out, nil
	case Tuple:
		out := make(map[string]any, len(x))
		for name, field := range x {
			p, err := Plain(field)
			if err != nil {
				return nil, err
			}
			out[name] = p
		}
		return out, nil
	case Opaque:
		raw := append([]byte{x.Tag}, x.Data...)
		return Raw{Raw: hex.EncodeToString(raw), Type: fmt.Sprintf("%02x", x.Tag)}, nil
	case nil:
		return nil, fmt.Errorf("%w: nil value", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
}
