package symbolic

import (
	"encoding/json"
	"fmt"
	"strings"
)

// ============================================================
// Tool Interface
// ============================================================

type ToolRequest struct {
	Tool   string                 `json:"tool"`
	Params map[string]interface{} `json:"params"`
}

type ToolResponse struct {
	Result interface{} `json:"result,omitempty"`
	LaTeX  string      `json:"latex,omitempty"`
	String string      `json:"string,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Params reads typed tool parameters. Expressions may be given either as a
// JSON tree or as infix text.
type Params map[string]interface{}

func (p Params) Expr(key string) (Expr, error) {
	v, ok := p[key]
	if !ok {
		return nil, fmt.Errorf("missing param: %s", key)
	}
	switch val := v.(type) {
	case map[string]interface{}:
		return FromJSON(val)
	case string:
		return Parse(val, Elementary())
	case float64:
		n := NFloat(val)
		if n == nil {
			return nil, fmt.Errorf("param %s is not a finite number", key)
		}
		return n, nil
	}
	return nil, fmt.Errorf("invalid type for param %s", key)
}

func (p Params) Text(key string) (string, error) {
	v, ok := p[key]
	if !ok {
		return "", fmt.Errorf("missing param: %s", key)
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("param %s must be a string", key)
	}
	return s, nil
}

// TextOr returns the string param or def when it is absent.
func (p Params) TextOr(key, def string) (string, error) {
	if _, ok := p[key]; !ok {
		return def, nil
	}
	return p.Text(key)
}

func (p Params) Int(key string, def int) (int, error) {
	v, ok := p[key]
	if !ok {
		return def, nil
	}
	f, ok := v.(float64)
	if !ok || f != float64(int(f)) {
		return 0, fmt.Errorf("param %s must be an integer", key)
	}
	return int(f), nil
}

func (p Params) ExprList(key string) ([]Expr, error) {
	raw, ok := p[key].([]interface{})
	if !ok {
		return nil, fmt.Errorf("param %s must be array", key)
	}
	out := make([]Expr, len(raw))
	for i, r := range raw {
		e, err := Params{"item": r}.Expr("item")
		if err != nil {
			return nil, fmt.Errorf("param %s[%d]: %w", key, i, err)
		}
		out[i] = e
	}
	return out, nil
}

func (p Params) Strings(key string) ([]string, error) {
	raw, ok := p[key].([]interface{})
	if !ok {
		return nil, fmt.Errorf("param %s must be array", key)
	}
	out := make([]string, len(raw))
	for i, r := range raw {
		s, ok := r.(string)
		if !ok {
			return nil, fmt.Errorf("param %s[%d] must be string", key, i)
		}
		out[i] = s
	}
	return out, nil
}

// Respond renders a single expression result.
func Respond(e Expr) ToolResponse {
	return ToolResponse{Result: e.toJSON(), LaTeX: LaTeX(e), String: String(e)}
}

// RespondList renders several alternative expressions.
func RespondList(es []Expr) ToolResponse {
	strs := make([]string, len(es))
	tex := make([]string, len(es))
	for i, e := range es {
		strs[i] = String(e)
		tex[i] = LaTeX(e)
	}
	return ToolResponse{
		Result: strs,
		String: "[" + strings.Join(strs, ", ") + "]",
		LaTeX:  "[" + strings.Join(tex, ", ") + "]",
	}
}

func failed(err error) ToolResponse { return ToolResponse{Error: err.Error()} }

func HandleToolCall(req ToolRequest) ToolResponse {
	p := Params(req.Params)
	switch req.Tool {
	case "parse", "simplify":
		e, err := p.Expr("expr")
		if err != nil {
			return failed(err)
		}
		return Respond(Simplify(e))

	case "expand":
		e, err := p.Expr("expr")
		if err != nil {
			return failed(err)
		}
		return Respond(Expand(e))

	case "diff":
		e, err := p.Expr("expr")
		if err != nil {
			return failed(err)
		}
		v, err := p.Text("var")
		if err != nil {
			return failed(err)
		}
		n, err := p.Int("n", 1)
		if err != nil {
			return failed(err)
		}
		if n < 0 {
			return ToolResponse{Error: "param n must be >= 0"}
		}
		return Respond(DiffN(e, v, n))

	case "integrate":
		e, err := p.Expr("expr")
		if err != nil {
			return failed(err)
		}
		v, err := p.Text("var")
		if err != nil {
			return failed(err)
		}
		result, ok := Integrate(e, v)
		if !ok {
			return failed(fmt.Errorf("integrate %s: %w", e, ErrNoIntegral))
		}
		return Respond(result)

	case "solve":
		e, err := p.Expr("expr")
		if err != nil {
			return failed(err)
		}
		v, err := p.Text("var")
		if err != nil {
			return failed(err)
		}
		sols, err := SolveFor(e, v)
		if err != nil {
			return failed(err)
		}
		return RespondList(sols)

	case "solve_system":
		eqs, err := p.ExprList("exprs")
		if err != nil {
			return failed(err)
		}
		vars, err := p.Strings("vars")
		if err != nil {
			return failed(err)
		}
		sets, err := SolveSystem(eqs, vars)
		if err != nil {
			return failed(err)
		}
		out := make([]map[string]string, len(sets))
		for i, set := range sets {
			out[i] = map[string]string{}
			for _, k := range SortedKeys(set) {
				out[i][k] = String(set[k])
			}
		}
		b, _ := json.Marshal(out)
		return ToolResponse{Result: out, String: string(b)}

	case "substitute":
		e, err := p.Expr("expr")
		if err != nil {
			return failed(err)
		}
		v, err := p.Text("var")
		if err != nil {
			return failed(err)
		}
		val, err := p.Expr("value")
		if err != nil {
			return failed(err)
		}
		return Respond(Sub(e, v, val))

	case "to_latex":
		e, err := p.Expr("expr")
		if err != nil {
			return failed(err)
		}
		return ToolResponse{LaTeX: LaTeX(e), String: String(e)}

	case "free_symbols":
		e, err := p.Expr("expr")
		if err != nil {
			return failed(err)
		}
		syms := SortedSymbols(e)
		return ToolResponse{Result: syms, String: strings.Join(syms, ", ")}

	case "mcp_spec":
		return ToolResponse{String: MCPToolSpec()}
	}
	return ToolResponse{Error: fmt.Sprintf("unknown tool: %s", req.Tool)}
}

// ToolSpecs lists the kernel tools.
func ToolSpecs() []map[string]interface{} {
	expr := map[string]string{"expr": "object|string"}
	exprVar := map[string]string{"expr": "object|string", "var": "string"}
	return []map[string]interface{}{
		ToolSchema("parse", "Parse infix text into an expression tree", []string{"expr"}, expr),
		ToolSchema("simplify", "Simplify a symbolic expression", []string{"expr"}, expr),
		ToolSchema("expand", "Algebraically expand expression", []string{"expr"}, expr),
		ToolSchema("diff", "nth derivative (n defaults to 1)", []string{"expr", "var"}, map[string]string{"expr": "object|string", "var": "string", "n": "integer"}),
		ToolSchema("integrate", "Symbolic integration (rule-based)", []string{"expr", "var"}, exprVar),
		ToolSchema("solve", "Solve expr = 0 for var", []string{"expr", "var"}, exprVar),
		ToolSchema("solve_system", "Solve exprs = 0 for vars", []string{"exprs", "vars"}, map[string]string{"exprs": "array", "vars": "array"}),
		ToolSchema("substitute", "Substitute var with value", []string{"expr", "var", "value"}, map[string]string{"expr": "object|string", "var": "string", "value": "object|string"}),
		ToolSchema("to_latex", "Convert to LaTeX", []string{"expr"}, expr),
		ToolSchema("free_symbols", "Return free symbol names", []string{"expr"}, expr),
		ToolSchema("mcp_spec", "Return this tool schema", []string{}, map[string]string{}),
	}
}

// MCPToolSpec renders the kernel tools plus any extra specs as JSON.
func MCPToolSpec(extra ...map[string]interface{}) string {
	tools := append(append([]map[string]interface{}{}, extra...), ToolSpecs()...)
	spec := map[string]interface{}{"tools": tools}
	b, _ := json.MarshalIndent(spec, "", "  ")
	return string(b)
}

// ToolSchema describes one tool for agent registration.
func ToolSchema(name, description string, required []string, props map[string]string) map[string]interface{} {
	properties := map[string]interface{}{}
	for k, typ := range props {
		properties[k] = map[string]interface{}{"type": typ}
	}
	return map[string]interface{}{
		"name":        name,
		"description": description,
		"inputSchema": map[string]interface{}{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}
