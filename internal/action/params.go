package action

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrUnknownResource  = errors.New("unknown resource")
	ErrUnknownOperation = errors.New("unknown operation")
	ErrMissingParam     = errors.New("missing required parameter")
	ErrInvalidParam     = errors.New("invalid parameter")
)

// Params carries the inputs of one operation call by name. CLI inputs
// arrive as strings; library callers may pass typed values.
type Params map[string]any

// Has reports whether name is set to something other than nil or "".
func (p Params) Has(name string) bool {
	v, ok := p[name]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) != ""
	}
	return true
}

// String returns the parameter as text, or "" when unset.
func (p Params) String(name string) string {
	if !p.Has(name) {
		return ""
	}
	switch v := p[name].(type) {
	case string:
		return strings.TrimSpace(v)
	case json.Number:
		return v.String()
	case fmt.Stringer:
		return v.String()
	default:
		return fmt.Sprint(v)
	}
}

// Required returns the parameter as text or ErrMissingParam.
func (p Params) Required(name string) (string, error) {
	if !p.Has(name) {
		return "", fmt.Errorf("%w: %s", ErrMissingParam, name)
	}
	return p.String(name), nil
}

// Int returns the parameter as an int, def when unset.
func (p Params) Int(name string, def int) (int, error) {
	if !p.Has(name) {
		return def, nil
	}
	switch v := p[name].(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		if v != float64(int(v)) {
			return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidParam, name)
		}
		return int(v), nil
	}
	n, err := strconv.Atoi(p.String(name))
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be an integer", ErrInvalidParam, name)
	}
	return n, nil
}

// ParseParams builds Params from key=value pairs.
func ParseParams(pairs []string) (Params, error) {
	p := Params{}
	for _, pair := range pairs {
		k, v, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("%w: expected key=value, got %q", ErrInvalidParam, pair)
		}
		p[strings.TrimSpace(k)] = v
	}
	return p, nil
}
