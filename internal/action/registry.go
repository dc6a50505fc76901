package action

import (
	"context"
	"fmt"
	"net/http"
	"sort"

	"github.com/samber/lo"
)

// HandlerFunc runs an operation that is not a single templated request.
type HandlerFunc func(ctx context.Context, e *Executor, p Params) (any, error)

// ShapeFunc rewrites a decoded response body.
type ShapeFunc func(data any, p Params) (any, error)

// BodyFunc builds the JSON body of a templated request.
type BodyFunc func(e *Executor, p Params) (any, error)

// Query maps a parameter onto a query string key.
type Query struct {
	Key      string
	Param    string // defaults to Key
	Default  string // sent when the parameter is unset; "" omits the key
	Required bool
	Fixed    bool // always send Default
}

func (q Query) param() string {
	if q.Param != "" {
		return q.Param
	}
	return q.Key
}

// Operation describes one (resource, operation) pair. Either Handler is
// set, or Method and Path describe a Hiro API request whose {placeholders}
// are filled from parameters of the same name (renamed through Vars).
type Operation struct {
	Resource    string
	Name        string
	Description string

	Method    string
	Path      string
	Vars      map[string]string // placeholder -> parameter
	Query     []Query
	Body      BodyFunc
	Paginated bool
	Shape     ShapeFunc

	Handler HandlerFunc
}

// Registry indexes operations by resource and name.
type Registry struct {
	ops map[string]map[string]*Operation
}

func NewRegistry(ops ...Operation) *Registry {
	r := &Registry{ops: make(map[string]map[string]*Operation)}
	for i := range ops {
		r.Register(ops[i])
	}
	return r
}

// DefaultRegistry holds every built-in operation.
func DefaultRegistry() *Registry {
	return NewRegistry(builtinOperations()...)
}

// Register adds or replaces op.
func (r *Registry) Register(op Operation) {
	if op.Method == "" && op.Handler == nil {
		op.Method = http.MethodGet
	}
	byName, ok := r.ops[op.Resource]
	if !ok {
		byName = make(map[string]*Operation)
		r.ops[op.Resource] = byName
	}
	byName[op.Name] = &op
}

func (r *Registry) Lookup(resource, operation string) (*Operation, error) {
	byName, ok := r.ops[resource]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownResource, resource)
	}
	op, ok := byName[operation]
	if !ok {
		return nil, fmt.Errorf("%w: %s.%s", ErrUnknownOperation, resource, operation)
	}
	return op, nil
}

// Resources returns the resource names in sorted order.
func (r *Registry) Resources() []string {
	names := lo.Keys(r.ops)
	sort.Strings(names)
	return names
}

// Operations returns the operations of resource sorted by name.
func (r *Registry) Operations(resource string) []*Operation {
	ops := lo.Values(r.ops[resource])
	sort.Slice(ops, func(i, j int) bool { return ops[i].Name < ops[j].Name })
	return ops
}
