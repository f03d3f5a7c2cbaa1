package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/njchilds90/odesolve/internal/normalize"
	"github.com/njchilds90/odesolve/internal/parser"
	"github.com/njchilds90/odesolve/internal/pipeline"
	"github.com/njchilds90/odesolve/symbolic"
)

// odeToolSpecs describes the tools served here in front of the kernel's.
func odeToolSpecs() []map[string]interface{} {
	return []map[string]interface{}{
		symbolic.ToolSchema("solve_ode", "Solve an ordinary differential equation in y(x), with a step-by-step trace",
			[]string{"equation"},
			map[string]string{"equation": "string", "method": "string", "initial_conditions": "string"}),
		symbolic.ToolSchema("normalize", "Rewrite free-form ODE notation into canonical form",
			[]string{"equation"}, map[string]string{"equation": "string"}),
		symbolic.ToolSchema("classify", "List the solving methods applicable to an ODE, best first",
			[]string{"equation"}, map[string]string{"equation": "string"}),
	}
}

func (s *Server) handleSchema(c *gin.Context) {
	c.Data(http.StatusOK, "application/json; charset=utf-8", []byte(symbolic.MCPToolSpec(odeToolSpecs()...)))
}

func (s *Server) handleTool(c *gin.Context) {
	var req symbolic.ToolRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, symbolic.ToolResponse{Error: "invalid tool request: " + err.Error()})
		return
	}
	resp, status := s.callTool(c.Request.Context(), req)
	c.JSON(status, resp)
}

// callTool serves the ODE tools and hands everything else to the kernel.
func (s *Server) callTool(ctx context.Context, req symbolic.ToolRequest) (symbolic.ToolResponse, int) {
	p := symbolic.Params(req.Params)
	switch req.Tool {
	case "solve_ode":
		in, err := rawInput(p)
		if err != nil {
			return symbolic.ToolResponse{Error: err.Error()}, http.StatusOK
		}
		res, ok := s.resolve(ctx, in)
		if !ok {
			return symbolic.ToolResponse{Error: "server busy, try again shortly"}, http.StatusServiceUnavailable
		}
		resp := symbolic.ToolResponse{Result: toResponse(res), LaTeX: res.Display, String: res.General.String()}
		if !res.Succeeded {
			resp.Error = "no solution found; see result.steps"
		}
		if res.Outcome == pipeline.OutcomeFault {
			return resp, http.StatusInternalServerError
		}
		return resp, http.StatusOK

	case "normalize":
		text, err := p.Text("equation")
		if err != nil {
			return symbolic.ToolResponse{Error: err.Error()}, http.StatusOK
		}
		return symbolic.ToolResponse{String: normalize.Equation(text)}, http.StatusOK

	case "classify":
		text, err := p.Text("equation")
		if err != nil {
			return symbolic.ToolResponse{Error: err.Error()}, http.StatusOK
		}
		eq, err := s.parser.ParseEquation(normalize.Equation(text))
		if err != nil {
			return symbolic.ToolResponse{Error: err.Error()}, http.StatusOK
		}
		hints, err := s.eng.Classify(ctx, eq, parser.Unknown())
		if err != nil {
			return symbolic.ToolResponse{Error: err.Error()}, http.StatusOK
		}
		names := make([]string, len(hints))
		for i, h := range hints {
			names[i] = string(h)
		}
		return symbolic.ToolResponse{Result: names, String: strings.Join(names, ", ")}, http.StatusOK

	case "mcp_spec":
		return symbolic.ToolResponse{String: symbolic.MCPToolSpec(odeToolSpecs()...)}, http.StatusOK
	}
	return symbolic.HandleToolCall(req), http.StatusOK
}

func rawInput(p symbolic.Params) (pipeline.RawInput, error) {
	var in pipeline.RawInput
	var err error
	if in.Equation, err = p.Text("equation"); err != nil {
		return in, err
	}
	if in.Method, err = p.TextOr("method", ""); err != nil {
		return in, err
	}
	if in.InitialConditions, err = p.TextOr("initial_conditions", ""); err != nil {
		return in, err
	}
	return in, nil
}
