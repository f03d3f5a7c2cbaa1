package symbolic

import (
	"encoding/json"
	"fmt"
)

// ============================================================
// JSON Serialization
// ============================================================

func ToJSON(e Expr) (string, error) {
	b, err := json.Marshal(e.toJSON())
	return string(b), err
}

// Tree returns the JSON-ready tree of e.
func Tree(e Expr) map[string]interface{} { return e.toJSON() }

func FromJSON(data map[string]interface{}) (Expr, error) {
	if data == nil {
		return nil, fmt.Errorf("expression must be an object")
	}
	typ, ok := data["type"].(string)
	if !ok || typ == "" {
		return nil, fmt.Errorf("field 'type' must be a non-empty string")
	}

	subObj := func(field string) (Expr, error) {
		m, ok := data[field].(map[string]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an object", typ, field)
		}
		e, err := FromJSON(m)
		if err != nil {
			return nil, fmt.Errorf("%s: %s: %w", typ, field, err)
		}
		return e, nil
	}
	subList := func(field string) ([]Expr, error) {
		raw, ok := data[field].([]interface{})
		if !ok {
			return nil, fmt.Errorf("%s: %q must be an array", typ, field)
		}
		out := make([]Expr, len(raw))
		for i, it := range raw {
			m, ok := it.(map[string]interface{})
			if !ok {
				return nil, fmt.Errorf("%s: %q[%d] must be an object", typ, field, i)
			}
			e, err := FromJSON(m)
			if err != nil {
				return nil, fmt.Errorf("%s: %s[%d]: %w", typ, field, i, err)
			}
			out[i] = e
		}
		return out, nil
	}
	subString := func(field string) (string, error) {
		s, ok := data[field].(string)
		if !ok || s == "" {
			return "", fmt.Errorf("%s: %q must be a non-empty string", typ, field)
		}
		return s, nil
	}

	switch typ {
	case "num":
		val, err := subString("value")
		if err != nil {
			return nil, err
		}
		n, ok := ParseNum(val)
		if !ok {
			return nil, fmt.Errorf("invalid num value: %s", val)
		}
		return n, nil
	case "sym":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		return S(name), nil
	case "const":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		if name != Pi.name {
			return nil, fmt.Errorf("unknown constant: %s", name)
		}
		return Pi, nil
	case "add":
		terms, err := subList("terms")
		if err != nil {
			return nil, err
		}
		return AddOf(terms...), nil
	case "mul":
		factors, err := subList("factors")
		if err != nil {
			return nil, err
		}
		return MulOf(factors...), nil
	case "pow":
		base, err := subObj("base")
		if err != nil {
			return nil, err
		}
		exp, err := subObj("exp")
		if err != nil {
			return nil, err
		}
		return PowOf(base, exp), nil
	case "func":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		arg, err := subObj("arg")
		if err != nil {
			return nil, err
		}
		f, ok := NewFunc(name, arg)
		if !ok {
			return nil, fmt.Errorf("unknown function: %s", name)
		}
		return f, nil
	case "applied":
		name, err := subString("name")
		if err != nil {
			return nil, err
		}
		arg, err := subObj("arg")
		if err != nil {
			return nil, err
		}
		return Apply(name, arg), nil
	case "derivative":
		fnExpr, err := subObj("fn")
		if err != nil {
			return nil, err
		}
		fn, ok := fnExpr.(*Applied)
		if !ok {
			return nil, fmt.Errorf("derivative: 'fn' must be an applied function")
		}
		wrt, err := subString("wrt")
		if err != nil {
			return nil, err
		}
		order, ok := data["order"].(float64)
		if !ok || order < 1 {
			return nil, fmt.Errorf("derivative: 'order' must be a positive number")
		}
		return NewDerivative(fn, wrt, int(order)), nil
	}
	return nil, fmt.Errorf("unknown expression type: %s", typ)
}
