package clarity

import (
	"bytes"
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode/utf8"
)

// Type tags accepted by ParseTyped and EncodeHex.
const (
	TagInt         = "int"
	TagUInt        = "uint"
	TagBool        = "bool"
	TagPrincipal   = "principal"
	TagBuff        = "buff"
	TagBuffer      = "buffer"
	TagStringASCII = "string-ascii"
	TagStringUTF8  = "string-utf8"
	TagNone        = "none"
	TagSome        = "some"
	TagOptional    = "optional"
	TagList        = "list"
	TagTuple       = "tuple"
	TagResponse    = "response"
	TagOk          = "ok"
	TagErr         = "err"
)

// EncodeHex converts value to the type named by typeTag and returns its
// serialized form as lowercase hex without a 0x prefix.
func EncodeHex(typeTag string, value any) (string, error) {
	v, err := ParseTyped(typeTag, value)
	if err != nil {
		return "", err
	}
	return EncodeValue(v)
}

// EncodeValue returns the lowercase hex serialization of v.
func EncodeValue(v Value) (string, error) {
	b, err := Serialize(v)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// Serialize returns the consensus binary encoding of v.
func Serialize(v Value) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeValue(&buf, v, 0); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeValue(buf *bytes.Buffer, v Value, depth int) error {
	if depth > MaxDepth {
		return fmt.Errorf("%w: nesting deeper than %d", ErrMalformed, MaxDepth)
	}
	if v == nil {
		return fmt.Errorf("%w: nil value", ErrMalformed)
	}

	switch x := v.(type) {
	case Int:
		b, err := intBytes(x.V, true)
		if err != nil {
			return err
		}
		buf.WriteByte(byte(TypeInt))
		buf.Write(b)
	case UInt:
		b, err := intBytes(x.V, false)
		if err != nil {
			return err
		}
		buf.WriteByte(byte(TypeUInt))
		buf.Write(b)
	case Bool:
		buf.WriteByte(byte(x.Type()))
	case Buffer:
		return writeLengthPrefixed(buf, TypeBuffer, x)
	case StringASCII:
		if i := firstNonASCII(string(x)); i >= 0 {
			return fmt.Errorf("%w: non-ASCII character at byte %d", ErrMalformed, i)
		}
		return writeLengthPrefixed(buf, TypeStringASCII, []byte(x))
	case StringUTF8:
		if !utf8.ValidString(string(x)) {
			return fmt.Errorf("%w: invalid UTF-8 string", ErrMalformed)
		}
		return writeLengthPrefixed(buf, TypeStringUTF8, []byte(x))
	case StandardPrincipal:
		buf.WriteByte(byte(TypeStandardPrincipal))
		writePrincipal(buf, x)
	case ContractPrincipal:
		if err := checkName(x.Name); err != nil {
			return fmt.Errorf("contract name: %w", err)
		}
		buf.WriteByte(byte(TypeContractPrincipal))
		writePrincipal(buf, x.Address)
		buf.WriteByte(byte(len(x.Name)))
		buf.WriteString(x.Name)
	case OptionalNone:
		buf.WriteByte(byte(TypeOptionalNone))
	case OptionalSome:
		buf.WriteByte(byte(TypeOptionalSome))
		return writeValue(buf, x.Value, depth+1)
	case ResponseOk:
		buf.WriteByte(byte(TypeResponseOk))
		return writeValue(buf, x.Value, depth+1)
	case ResponseErr:
		buf.WriteByte(byte(TypeResponseErr))
		return writeValue(buf, x.Value, depth+1)
	case List:
		if err := writeHeader(buf, TypeList, len(x)); err != nil {
			return err
		}
		for i, item := range x {
			if err := writeValue(buf, item, depth+1); err != nil {
				return fmt.Errorf("list item %d: %w", i, err)
			}
		}
	case Tuple:
		if err := writeHeader(buf, TypeTuple, len(x)); err != nil {
			return err
		}
		for _, name := range x.sortedNames() {
			if err := checkName(name); err != nil {
				return fmt.Errorf("tuple field: %w", err)
			}
			buf.WriteByte(byte(len(name)))
			buf.WriteString(name)
			if err := writeValue(buf, x[name], depth+1); err != nil {
				return fmt.Errorf("tuple field %q: %w", name, err)
			}
		}
	case Opaque:
		buf.WriteByte(x.Tag)
		buf.Write(x.Data)
	default:
		return fmt.Errorf("%w: %T", ErrUnsupportedType, v)
	}
	return nil
}

func writeHeader(buf *bytes.Buffer, t TypeID, n int) error {
	if uint64(n) > math.MaxUint32 {
		return fmt.Errorf("%w: length %d does not fit in 4 bytes", ErrMalformed, n)
	}
	buf.WriteByte(byte(t))
	var size [4]byte
	binary.BigEndian.PutUint32(size[:], uint32(n))
	buf.Write(size[:])
	return nil
}

func writeLengthPrefixed(buf *bytes.Buffer, t TypeID, payload []byte) error {
	if err := writeHeader(buf, t, len(payload)); err != nil {
		return err
	}
	buf.Write(payload)
	return nil
}

func writePrincipal(buf *bytes.Buffer, p StandardPrincipal) {
	buf.WriteByte(p.Version)
	buf.Write(p.Hash160[:])
}

// intBytes renders v as 16 big-endian bytes, two's complement when signed.
func intBytes(v *big.Int, signed bool) ([]byte, error) {
	if v == nil {
		v = bigZero
	}
	if signed {
		if v.Cmp(minInt) < 0 || v.Cmp(maxInt) > 0 {
			return nil, fmt.Errorf("%w: %s outside int128", ErrOutOfRange, v)
		}
		if v.Sign() < 0 {
			v = new(big.Int).Add(v, two128)
		}
	} else {
		if v.Sign() < 0 {
			return nil, fmt.Errorf("%w: negative value %s for uint", ErrOutOfRange, v)
		}
		if v.Cmp(maxUint) > 0 {
			return nil, fmt.Errorf("%w: %s outside uint128", ErrOutOfRange, v)
		}
	}
	out := make([]byte, intWidth)
	v.FillBytes(out)
	return out, nil
}

func firstNonASCII(s string) int {
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7f {
			return i
		}
	}
	return -1
}

// ParseTyped builds a Value of the type named by typeTag from a loosely
// typed input: Go scalars, decimal or hex strings, JSON text, or typed
// descriptors of the form {"type": "...", "value": ...}.
func ParseTyped(typeTag string, value any) (Value, error) {
	switch strings.ToLower(strings.TrimSpace(typeTag)) {
	case TagInt:
		n, err := parseInteger(value)
		if err != nil {
			return nil, err
		}
		if n.Cmp(minInt) < 0 || n.Cmp(maxInt) > 0 {
			return nil, fmt.Errorf("%w: %s outside int128", ErrOutOfRange, n)
		}
		return Int{V: n}, nil
	case TagUInt:
		n, err := parseInteger(value)
		if err != nil {
			return nil, err
		}
		if n.Sign() < 0 || n.Cmp(maxUint) > 0 {
			return nil, fmt.Errorf("%w: %s outside uint128", ErrOutOfRange, n)
		}
		return UInt{V: n}, nil
	case TagBool:
		b, err := parseBool(value)
		if err != nil {
			return nil, err
		}
		return Bool(b), nil
	case TagPrincipal:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: principal must be a string, got %T", ErrMalformed, value)
		}
		return ParsePrincipal(s)
	case TagBuff, TagBuffer:
		b, err := parseBuffer(value)
		if err != nil {
			return nil, err
		}
		return Buffer(b), nil
	case TagStringASCII:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: string-ascii must be a string, got %T", ErrMalformed, value)
		}
		if i := firstNonASCII(s); i >= 0 {
			return nil, fmt.Errorf("%w: non-ASCII character at byte %d", ErrMalformed, i)
		}
		return StringASCII(s), nil
	case TagStringUTF8:
		s, ok := value.(string)
		if !ok {
			return nil, fmt.Errorf("%w: string-utf8 must be a string, got %T", ErrMalformed, value)
		}
		return StringUTF8(s), nil
	case TagNone:
		return OptionalNone{}, nil
	case TagOptional:
		if value == nil {
			return OptionalNone{}, nil
		}
		return parseSome(value)
	case TagSome:
		return parseSome(value)
	case TagList:
		return parseList(value)
	case TagTuple:
		return parseTuple(value)
	case TagResponse:
		return parseResponse(value)
	case TagOk:
		inner, err := ParseDescriptor(value)
		if err != nil {
			return nil, fmt.Errorf("ok: %w", err)
		}
		return ResponseOk{Value: inner}, nil
	case TagErr:
		inner, err := ParseDescriptor(value)
		if err != nil {
			return nil, fmt.Errorf("err: %w", err)
		}
		return ResponseErr{Value: inner}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, typeTag)
	}
}

// ParseDescriptor turns a typed descriptor into a Value. A descriptor is a
// Value, a map with "type" and "value" keys, or JSON text of such a map.
func ParseDescriptor(d any) (Value, error) {
	switch x := d.(type) {
	case Value:
		return x, nil
	case map[string]any:
		tag, ok := x["type"].(string)
		if !ok {
			return nil, fmt.Errorf("%w: descriptor without \"type\"", ErrMalformed)
		}
		return ParseTyped(tag, x["value"])
	case string:
		parsed, err := parseJSON(x)
		if err != nil {
			return nil, err
		}
		if _, ok := parsed.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: descriptor must be an object", ErrMalformed)
		}
		return ParseDescriptor(parsed)
	default:
		return nil, fmt.Errorf("%w: cannot use %T as typed value", ErrMalformed, d)
	}
}

func parseSome(value any) (Value, error) {
	switch x := value.(type) {
	case string:
		return OptionalSome{Value: StringUTF8(x)}, nil
	case Value:
		return OptionalSome{Value: x}, nil
	case map[string]any:
		inner, err := ParseDescriptor(x)
		if err != nil {
			return nil, fmt.Errorf("some: %w", err)
		}
		return OptionalSome{Value: inner}, nil
	default:
		return nil, fmt.Errorf("%w: some requires a string or typed inner value, got %T", ErrMalformed, value)
	}
}

func parseList(value any) (Value, error) {
	switch x := value.(type) {
	case List:
		return x, nil
	case []Value:
		return List(x), nil
	case string:
		parsed, err := parseJSON(x)
		if err != nil {
			return nil, err
		}
		if _, ok := parsed.([]any); !ok {
			return nil, fmt.Errorf("%w: list must be a JSON array", ErrMalformed)
		}
		return parseList(parsed)
	case []any:
		out := make(List, 0, len(x))
		for i, item := range x {
			v, err := ParseDescriptor(item)
			if err != nil {
				return nil, fmt.Errorf("list item %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot use %T as list", ErrMalformed, value)
	}
}

func parseTuple(value any) (Value, error) {
	switch x := value.(type) {
	case Tuple:
		return x, nil
	case map[string]Value:
		return Tuple(x), nil
	case string:
		parsed, err := parseJSON(x)
		if err != nil {
			return nil, err
		}
		if _, ok := parsed.(map[string]any); !ok {
			return nil, fmt.Errorf("%w: tuple must be a JSON object", ErrMalformed)
		}
		return parseTuple(parsed)
	case map[string]any:
		out := make(Tuple, len(x))
		for name, field := range x {
			if err := checkName(name); err != nil {
				return nil, fmt.Errorf("tuple field: %w", err)
			}
			v, err := ParseDescriptor(field)
			if err != nil {
				return nil, fmt.Errorf("tuple field %q: %w", name, err)
			}
			out[name] = v
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: cannot use %T as tuple", ErrMalformed, value)
	}
}

// parseResponse accepts {"ok": descriptor} or {"err": descriptor}.
func parseResponse(value any) (Value, error) {
	switch x := value.(type) {
	case ResponseOk, ResponseErr:
		return x.(Value), nil
	case string:
		parsed, err := parseJSON(x)
		if err != nil {
			return nil, err
		}
		return parseResponse(parsed)
	case map[string]any:
		if len(x) != 1 {
			return nil, fmt.Errorf("%w: response needs exactly one of \"ok\" or \"err\"", ErrMalformed)
		}
		if inner, ok := x[TagOk]; ok {
			return ParseTyped(TagOk, inner)
		}
		if inner, ok := x[TagErr]; ok {
			return ParseTyped(TagErr, inner)
		}
		return nil, fmt.Errorf("%w: response needs \"ok\" or \"err\"", ErrMalformed)
	default:
		return nil, fmt.Errorf("%w: cannot use %T as response", ErrMalformed, value)
	}
}

func parseJSON(s string) (any, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var out any
	if err := dec.Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: invalid JSON: %v", ErrMalformed, err)
	}
	return out, nil
}

func parseInteger(value any) (*big.Int, error) {
	switch x := value.(type) {
	case *big.Int:
		if x == nil {
			return nil, fmt.Errorf("%w: nil integer", ErrMalformed)
		}
		return new(big.Int).Set(x), nil
	case big.Int:
		return new(big.Int).Set(&x), nil
	case int:
		return big.NewInt(int64(x)), nil
	case int8:
		return big.NewInt(int64(x)), nil
	case int16:
		return big.NewInt(int64(x)), nil
	case int32:
		return big.NewInt(int64(x)), nil
	case int64:
		return big.NewInt(x), nil
	case uint:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(x)), nil
	case uint64:
		return new(big.Int).SetUint64(x), nil
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) || x != math.Trunc(x) {
			return nil, fmt.Errorf("%w: %v is not an integer", ErrMalformed, x)
		}
		n, _ := big.NewFloat(x).Int(nil)
		return n, nil
	case json.Number:
		return parseIntegerString(x.String())
	case string:
		return parseIntegerString(x)
	default:
		return nil, fmt.Errorf("%w: cannot use %T as integer", ErrMalformed, value)
	}
}

func parseIntegerString(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	digits := s
	neg := false
	switch {
	case strings.HasPrefix(digits, "-"):
		neg = true
		digits = digits[1:]
	case strings.HasPrefix(digits, "+"):
		digits = digits[1:]
	}
	base := 10
	if strings.HasPrefix(digits, "0x") || strings.HasPrefix(digits, "0X") {
		base = 16
		digits = digits[2:]
	}
	if digits == "" || strings.HasPrefix(digits, "-") || strings.HasPrefix(digits, "+") {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrMalformed, s)
	}
	n, ok := new(big.Int).SetString(digits, base)
	if !ok {
		return nil, fmt.Errorf("%w: %q is not an integer", ErrMalformed, s)
	}
	if neg {
		n.Neg(n)
	}
	return n, nil
}

func parseBool(value any) (bool, error) {
	switch x := value.(type) {
	case bool:
		return x, nil
	case Bool:
		return bool(x), nil
	case string:
		b, err := strconv.ParseBool(strings.TrimSpace(x))
		if err != nil {
			return false, fmt.Errorf("%w: %q is not a boolean", ErrMalformed, x)
		}
		return b, nil
	default:
		return false, fmt.Errorf("%w: cannot use %T as bool", ErrMalformed, value)
	}
}

func parseBuffer(value any) ([]byte, error) {
	switch x := value.(type) {
	case []byte:
		return x, nil
	case Buffer:
		return x, nil
	case string:
		b, err := decodeHexString(x)
		if err != nil {
			return nil, err
		}
		return b, nil
	default:
		return nil, fmt.Errorf("%w: cannot use %T as buffer", ErrMalformed, value)
	}
}

// decodeHexString accepts hex with or without a 0x prefix.
func decodeHexString(s string) ([]byte, error) {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s = s[2:]
	}
	b, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid hex: %v", ErrMalformed, err)
	}
	return b, nil
}
