package tools

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Args are coerced tool arguments keyed by parameter name.
type Args map[string]any

func (a Args) String(name string) string {
	s, _ := a[name].(string)
	return s
}

func (a Args) Int(name string) int64 {
	n, _ := a[name].(int64)
	return n
}

func (a Args) Float(name string) float64 {
	f, _ := a[name].(float64)
	return f
}

func (a Args) Bool(name string) bool {
	b, _ := a[name].(bool)
	return b
}

func (a Args) Slice(name string) []any {
	s, _ := a[name].([]any)
	return s
}

func (a Args) Map(name string) map[string]any {
	m, _ := a[name].(map[string]any)
	return m
}

// bind applies defaults and coerces raw model arguments to the declared types.
func (d *Descriptor) bind(raw map[string]any) (Args, error) {
	out := make(Args, len(d.Params))
	for name := range raw {
		if _, ok := d.Param(name); !ok {
			return nil, &ArgumentError{Tool: d.Name, Param: name, Msg: "unexpected parameter"}
		}
	}
	for _, p := range d.Params {
		v, present := raw[p.Name]
		if !present || v == nil {
			if !p.HasDefault {
				return nil, &ArgumentError{Tool: d.Name, Param: p.Name, Msg: "required parameter missing"}
			}
			out[p.Name] = p.Default
			continue
		}
		cv, err := coerce(p.Type, v)
		if err != nil {
			return nil, &ArgumentError{Tool: d.Name, Param: p.Name, Msg: err.Error()}
		}
		out[p.Name] = cv
	}
	return out, nil
}

// coerce converts v to the Go representation of t. Models frequently send
// numbers and booleans as strings, so scalar strings are parsed.
func coerce(t SemanticType, v any) (any, error) {
	switch t {
	case TypeString:
		switch x := v.(type) {
		case string:
			return x, nil
		case bool, int, int64, float64, float32:
			return fmt.Sprint(x), nil
		}
	case TypeInteger:
		switch x := v.(type) {
		case int:
			return int64(x), nil
		case int32:
			return int64(x), nil
		case int64:
			return x, nil
		case float64:
			if x != math.Trunc(x) || math.IsInf(x, 0) {
				return nil, fmt.Errorf("expected integer, got %v", x)
			}
			// float64(math.MaxInt64) rounds up to 2^63
			if x < math.MinInt64 || x >= math.MaxInt64 {
				return nil, fmt.Errorf("integer %v out of range", x)
			}
			return int64(x), nil
		case string:
			if n, err := strconv.ParseInt(strings.TrimSpace(x), 10, 64); err == nil {
				return n, nil
			}
		}
	case TypeNumber:
		switch x := v.(type) {
		case float64:
			return x, nil
		case float32:
			return float64(x), nil
		case int:
			return float64(x), nil
		case int64:
			return float64(x), nil
		case string:
			if f, err := strconv.ParseFloat(strings.TrimSpace(x), 64); err == nil {
				return f, nil
			}
		}
	case TypeBoolean:
		switch x := v.(type) {
		case bool:
			return x, nil
		case string:
			if b, err := strconv.ParseBool(strings.TrimSpace(x)); err == nil {
				return b, nil
			}
		}
	case TypeArray:
		switch x := v.(type) {
		case []any:
			return x, nil
		case []string:
			out := make([]any, len(x))
			for i, s := range x {
				out[i] = s
			}
			return out, nil
		case string:
			var arr []any
			if err := json.Unmarshal([]byte(x), &arr); err == nil {
				return arr, nil
			}
		}
	case TypeObject:
		switch x := v.(type) {
		case map[string]any:
			return x, nil
		case string:
			var obj map[string]any
			if err := json.Unmarshal([]byte(x), &obj); err == nil && obj != nil {
				return obj, nil
			}
		}
	default:
		return nil, fmt.Errorf("unknown type %q", t)
	}
	return nil, fmt.Errorf("expected %s, got %T", t, v)
}
