package serializer

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"

	"github.com/kbukum/tapioca/errors"
)

// Serializer converts outgoing payloads to wire-friendly values and turns
// response values into native Go types on request.
type Serializer interface {
	// Serialize prepares a payload before the codec encodes it.
	Serialize(value any) (any, error)
	// Deserialize converts value with the named strategy.
	Deserialize(method string, value any, opts map[string]any) (any, error)
}

// Strategy converts a single value. opts carries strategy-specific settings.
type Strategy func(value any, opts map[string]any) (any, error)

// Strategy names registered on every Simple serializer.
const (
	ToDatetime = "to_datetime"
	ToDate     = "to_date"
	ToDecimal  = "to_decimal"
	ToInt      = "to_int"
	ToFloat    = "to_float"
	ToBool     = "to_bool"
	ToString   = "to_string"
)

// Simple is the default Serializer. Serialize renders times as RFC 3339 and
// decimals as strings; Deserialize dispatches to a registry of strategies.
type Simple struct {
	mu         sync.RWMutex
	strategies map[string]Strategy
}

// NewSimple returns a Simple serializer with the built-in strategies registered.
func NewSimple() *Simple {
	return &Simple{
		strategies: map[string]Strategy{
			ToDatetime: toDatetime,
			ToDate:     toDate,
			ToDecimal:  toDecimal,
			ToInt:      toInt,
			ToFloat:    toFloat,
			ToBool:     toBool,
			ToString:   toString,
		},
	}
}

// Register adds or replaces a named strategy.
func (s *Simple) Register(name string, fn Strategy) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.strategies[name] = fn
}

// Methods returns the registered strategy names in sorted order.
func (s *Simple) Methods() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.strategies))
	for name := range s.strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Serialize walks maps and slices and converts times and decimals.
func (s *Simple) Serialize(value any) (any, error) {
	return serializeValue(value), nil
}

// Deserialize runs the strategy registered under method.
func (s *Simple) Deserialize(method string, value any, opts map[string]any) (any, error) {
	s.mu.RLock()
	fn, ok := s.strategies[method]
	s.mu.RUnlock()
	if !ok {
		return nil, errors.NotImplemented(method).WithDetail("serializer", "simple")
	}
	return fn(value, opts)
}

func serializeValue(value any) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, item := range v {
			out[k] = serializeValue(item)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = serializeValue(item)
		}
		return out
	case time.Time:
		return v.Format(time.RFC3339)
	case *time.Time:
		if v == nil {
			return nil
		}
		return v.Format(time.RFC3339)
	case decimal.Decimal:
		return v.String()
	case *decimal.Decimal:
		if v == nil {
			return nil
		}
		return v.String()
	default:
		return value
	}
}

func toDatetime(value any, opts map[string]any) (any, error) {
	if layout, ok := opts["layout"]; ok {
		l, err := cast.ToStringE(layout)
		if err != nil {
			return nil, errors.InvalidOption("layout", "must be a string")
		}
		str, err := cast.ToStringE(value)
		if err != nil {
			return nil, coerceError(ToDatetime, value, err)
		}
		t, err := time.Parse(l, str)
		if err != nil {
			return nil, coerceError(ToDatetime, value, err)
		}
		return t, nil
	}
	t, err := cast.ToTimeE(value)
	if err != nil {
		return nil, coerceError(ToDatetime, value, err)
	}
	return t, nil
}

func toDate(value any, opts map[string]any) (any, error) {
	v, err := toDatetime(value, opts)
	if err != nil {
		return nil, err
	}
	t := v.(time.Time)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location()), nil
}

func toDecimal(value any, _ map[string]any) (any, error) {
	switch v := value.(type) {
	case decimal.Decimal:
		return v, nil
	case float32:
		return decimal.NewFromFloat32(v), nil
	case float64:
		return decimal.NewFromFloat(v), nil
	}
	str, err := cast.ToStringE(value)
	if err != nil {
		return nil, coerceError(ToDecimal, value, err)
	}
	d, err := decimal.NewFromString(str)
	if err != nil {
		return nil, coerceError(ToDecimal, value, err)
	}
	return d, nil
}

func toInt(value any, _ map[string]any) (any, error) {
	n, err := cast.ToInt64E(value)
	if err != nil {
		return nil, coerceError(ToInt, value, err)
	}
	return n, nil
}

func toFloat(value any, _ map[string]any) (any, error) {
	f, err := cast.ToFloat64E(value)
	if err != nil {
		return nil, coerceError(ToFloat, value, err)
	}
	return f, nil
}

func toBool(value any, _ map[string]any) (any, error) {
	b, err := cast.ToBoolE(value)
	if err != nil {
		return nil, coerceError(ToBool, value, err)
	}
	return b, nil
}

func toString(value any, _ map[string]any) (any, error) {
	s, err := cast.ToStringE(value)
	if err != nil {
		return nil, coerceError(ToString, value, err)
	}
	return s, nil
}

func coerceError(method string, value any, cause error) error {
	return errors.InvalidInput(method, fmt.Sprintf("cannot convert %v (%T)", value, value)).WithCause(cause)
}
