// Package attrs exposes an allow-list of engine constants by name, with
// numeric coercion on write.
package attrs

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/bmvandoren/vol2bird/internal/engine"
)

var (
	ErrUnknownAttribute = errors.New("unknown attribute")
	ErrTypeMismatch     = errors.New("attribute type mismatch")
)

// Kind is the storage type of an attribute.
type Kind int

const (
	KindInt Kind = iota
	KindFloat
)

func (k Kind) String() string {
	if k == KindInt {
		return "int"
	}
	return "float"
}

// Names of the exposed attributes.
const (
	NGatesCellMin = "constants_nGatesCellMin"
	CellDbzMin    = "constants_cellDbzMin"
)

type descriptor struct {
	name  string
	kind  Kind
	intp  func(*engine.Constants) *int
	float func(*engine.Constants) *float64
}

var descriptors = []descriptor{
	{name: NGatesCellMin, kind: KindInt, intp: func(c *engine.Constants) *int { return &c.NGatesCellMin }},
	{name: CellDbzMin, kind: KindFloat, float: func(c *engine.Constants) *float64 { return &c.CellDbzMin }},
}

var byName = func() map[string]descriptor {
	m := make(map[string]descriptor, len(descriptors))
	for _, d := range descriptors {
		m[d.name] = d
	}
	return m
}()

// Names returns the exposed attribute names in sorted order.
func Names() []string {
	names := make([]string, 0, len(byName))
	for name := range byName {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// KindOf returns the storage kind of name.
func KindOf(name string) (Kind, error) {
	d, ok := byName[name]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
	}
	return d.kind, nil
}

// Bridge reads and writes attributes of one constants block.
type Bridge struct {
	c *engine.Constants
}

// New returns a bridge over c. Writes go straight to c.
func New(c *engine.Constants) *Bridge {
	return &Bridge{c: c}
}

// Get returns an int for integer attributes and a float64 for float
// attributes.
func (b *Bridge) Get(name string) (any, error) {
	d, ok := byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
	}
	if d.kind == KindInt {
		return *d.intp(b.c), nil
	}
	return *d.float(b.c), nil
}

// Set coerces value to the attribute's kind and stores it. Integer
// attributes truncate toward zero.
func (b *Bridge) Set(name string, value any) error {
	d, ok := byName[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAttribute, name)
	}
	f, ok := toFloat(value)
	if !ok {
		return fmt.Errorf("%w: %s must be number", ErrTypeMismatch, name)
	}
	if d.kind == KindFloat {
		*d.float(b.c) = f
		return nil
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("%w: %s must be number", ErrTypeMismatch, name)
	}
	t := math.Trunc(f)
	if t > math.MaxInt32 || t < math.MinInt32 {
		return fmt.Errorf("%w: %s out of range", ErrTypeMismatch, name)
	}
	*d.intp(b.c) = int(t)
	return nil
}

// toFloat accepts the Go integer and float kinds and json.Number.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
