package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/google/subcommands"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
)

type compareCmd struct {
	scenario scenario
	steps    int
	paths    int
	models   string
	plain    bool
}

func (*compareCmd) Name() string     { return "compare" }
func (*compareCmd) Synopsis() string { return "price the demo contract with every model" }
func (*compareCmd) Usage() string {
	return `pricingbench compare [-steps n] [-paths n] [-models a,b] [-side CALL|PUT|BOTH]

  Prices one contract with the closed form, every lattice scheme and Monte Carlo,
  and reports elapsed time and the deviation from Black-Scholes.
`
}

func (c *compareCmd) SetFlags(f *flag.FlagSet) {
	c.scenario.setFlags(f, "BOTH", "AMERICAN")
	f.IntVar(&c.steps, "steps", 4000, "lattice depth")
	f.IntVar(&c.paths, "paths", 100000, "monte carlo antithetic pairs")
	f.StringVar(&c.models, "models", "", "comma separated pricing models, empty for all")
	f.BoolVar(&c.plain, "plain", false, "print raw markdown")
}

func (c *compareCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	svc := newQueryService(c.steps, c.paths)

	sides := []string{strings.ToUpper(c.scenario.side)}
	if sides[0] == "BOTH" {
		sides = []string{"CALL", "PUT"}
	}

	var b strings.Builder
	b.WriteString(scenarioMarkdown(c.scenario, c.steps, c.paths))
	for _, side := range sides {
		res, err := svc.CompareMethods(ctx, application.CompareMethodsQuery{
			ContractInput:   c.scenario.contract(side),
			PricingModels:   splitList(c.models),
			LatticeSteps:    c.steps,
			MonteCarloPaths: c.paths,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return subcommands.ExitFailure
		}
		b.WriteString(compareMarkdown(side, c.scenario.style, res))
	}
	printMarkdown(b.String(), c.plain)
	return subcommands.ExitSuccess
}
