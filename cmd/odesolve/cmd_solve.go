package main

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/spf13/cobra"

	"github.com/njchilds90/odesolve/internal/pipeline"
)

// errNotSolved makes the process exit non-zero after the trace is printed.
var errNotSolved = errors.New("equation not solved")

// solveOutput is the --json rendering of a pipeline.Result.
type solveOutput struct {
	Success            bool     `json:"success"`
	Outcome            string   `json:"outcome"`
	Strategy           string   `json:"strategy"`
	Solution           *string  `json:"solution"`
	GeneralSolution    *string  `json:"general_solution"`
	ParticularSolution *string  `json:"particular_solution"`
	Steps              []string `json:"steps"`
}

func newSolveOutput(res pipeline.Result) solveOutput {
	out := solveOutput{
		Success:  res.Succeeded,
		Outcome:  string(res.Outcome),
		Strategy: res.Strategy.String(),
		Steps:    res.Steps,
	}
	if out.Steps == nil {
		out.Steps = []string{}
	}
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

func (c *cli) solveCmd() *cobra.Command {
	var (
		method string
		ic     string
		asJSON bool
	)
	cmd := &cobra.Command{
		Use:   "solve <equation>",
		Short: "Solve one equation and print every step",
		Example: `  odesolve solve "y' = y"
  odesolve solve "y'' + y = 0" --ic "y(0)=0, y'(0)=1"
  odesolve solve "y' + y = x" --method linear --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, resolver := c.newResolver(c.logger(true))
			res := resolver.Resolve(cmd.Context(), pipeline.RawInput{
				Equation:          args[0],
				Method:            method,
				InitialConditions: ic,
			})

			w := cmd.OutOrStdout()
			var err error
			if asJSON {
				err = writeJSON(w, newSolveOutput(res))
			} else {
				err = newPrinter(w).result(res)
			}
			if err != nil {
				return err
			}
			if !res.Succeeded {
				return errNotSolved
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&method, "method", "m", "", "solving method, e.g. separable or linear (default automatic)")
	cmd.Flags().StringVar(&ic, "ic", "", `initial conditions, e.g. "y(0)=1, y'(0)=0"`)
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the result as JSON")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
