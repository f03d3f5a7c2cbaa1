package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"

	"github.com/njchilds90/odesolve/internal/pipeline"
	"github.com/njchilds90/odesolve/internal/solver"
)

// SolveRequest is the body of POST /solve.
type SolveRequest struct {
	Equation          string `json:"equation" validate:"required,max=2000"`
	Method            string `json:"method" validate:"omitempty,strategy"`
	InitialConditions string `json:"initial_conditions" validate:"max=1000"`
}

// SolveResponse is returned by POST /solve for every outcome, including
// rejected and failed requests. The solution fields are null when absent.
type SolveResponse struct {
	Success            bool     `json:"success"`
	Solution           *string  `json:"solution"`
	GeneralSolution    *string  `json:"general_solution"`
	ParticularSolution *string  `json:"particular_solution"`
	Steps              []string `json:"steps"`
}

func failure(steps ...string) SolveResponse {
	if steps == nil {
		steps = []string{}
	}
	return SolveResponse{Steps: steps}
}

func toResponse(res pipeline.Result) SolveResponse {
	out := failure(res.Steps...)
	out.Success = res.Succeeded
	if res.Succeeded {
		display, general := res.Display, res.GeneralDisplay
		out.Solution = &display
		out.GeneralSolution = &general
	}
	if res.Particular != nil {
		particular := res.ParticularDisplay
		out.ParticularSolution = &particular
	}
	return out
}

func newRequestValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return f.Name
		}
		return name
	})
	err := v.RegisterValidation("strategy", func(fl validator.FieldLevel) bool {
		_, err := solver.ParseStrategy(fl.Field().String())
		return err == nil
	})
	if err != nil {
		panic(err)
	}
	return v
}

// describeInvalid turns validation errors into trace-style lines.
func describeInvalid(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"❌ Error processing the request: " + err.Error()}
	}
	steps := []string{"❌ Error: the request is not valid"}
	for _, e := range verrs {
		switch e.Tag() {
		case "required":
			steps = append(steps, fmt.Sprintf("   %s is required", e.Field()))
		case "max":
			steps = append(steps, fmt.Sprintf("   %s must be at most %s characters", e.Field(), e.Param()))
		case "strategy":
			steps = append(steps, fmt.Sprintf("   %s must be one of: %s (got: %v)",
				e.Field(), strings.Join(solver.StrategyNames(), ", "), e.Value()))
		default:
			steps = append(steps, fmt.Sprintf("   %s failed validation '%s'", e.Field(), e.Tag()))
		}
	}
	return steps
}

// bindSolve decodes and validates the request body. On failure it returns
// the status and response to send.
func (s *Server) bindSolve(c *gin.Context, req *SolveRequest) (int, SolveResponse, bool) {
	if err := c.ShouldBindJSON(req); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return http.StatusBadRequest, failure("❌ Error: no data was received in the request"), false
		case errors.As(err, &tooLarge):
			return http.StatusRequestEntityTooLarge,
				failure(fmt.Sprintf("❌ Error: the request body exceeds %d bytes", tooLarge.Limit)), false
		default:
			return http.StatusBadRequest, failure("❌ Error processing the request: " + err.Error()), false
		}
	}
	if err := s.validate.Struct(req); err != nil {
		return http.StatusBadRequest, failure(describeInvalid(err)...), false
	}
	return 0, SolveResponse{}, true
}

// resolve runs the pipeline in one of the solve slots. It reports false,
// without running anything, when every slot is taken.
func (s *Server) resolve(ctx context.Context, in pipeline.RawInput) (pipeline.Result, bool) {
	if !s.slots.TryAcquire(1) {
		recordRejection("busy")
		return pipeline.Result{}, false
	}
	defer s.slots.Release(1)
	inflightSolves.Inc()
	defer inflightSolves.Dec()

	return s.resolver.Resolve(ctx, in), true
}

func (s *Server) handleSolve(c *gin.Context) {
	var req SolveRequest
	if status, resp, ok := s.bindSolve(c, &req); !ok {
		c.JSON(status, resp)
		return
	}

	res, ok := s.resolve(c.Request.Context(), pipeline.RawInput{
		Equation:          req.Equation,
		Method:            req.Method,
		InitialConditions: req.InitialConditions,
	})
	if !ok {
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable,
			failure("❌ The server is busy solving other equations. Please try again shortly."))
		return
	}

	status := http.StatusOK
	if res.Outcome == pipeline.OutcomeFault {
		status = http.StatusInternalServerError
	}
	c.JSON(status, toResponse(res))
}

func (s *Server) handleIndex(c *gin.Context) {
	page, err := staticFiles.ReadFile("static/index.html")
	if err != nil {
		c.String(http.StatusInternalServerError, "index page missing")
		return
	}
	c.Data(http.StatusOK, "text/html; charset=utf-8", page)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"version":    s.version,
		"strategies": solver.StrategyNames(),
	})
}
