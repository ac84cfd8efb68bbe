package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/subcommands"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
)

type convergeCmd struct {
	scenario    scenario
	model       string
	resolutions string
	runs        int
	plain       bool
}

func (*convergeCmd) Name() string     { return "converge" }
func (*convergeCmd) Synopsis() string { return "tabulate pricing error against lattice depth or sample count" }
func (*convergeCmd) Usage() string {
	return `pricingbench converge -model <model> [-n 50,100,200] [-runs k]

  Lattice models report the error against Black-Scholes by depth. Monte Carlo
  repeats each sample count with k seeds and reports mean and standard deviation.
`
}

func (c *convergeCmd) SetFlags(f *flag.FlagSet) {
	c.scenario.setFlags(f, "CALL", "EUROPEAN")
	f.StringVar(&c.model, "model", "CRR", "pricing model")
	f.StringVar(&c.resolutions, "n", "50,100,200,400,800,1600", "comma separated depths or sample counts")
	f.IntVar(&c.runs, "runs", 8, "monte carlo runs per sample count")
	f.BoolVar(&c.plain, "plain", false, "print raw markdown")
}

func (c *convergeCmd) Execute(ctx context.Context, _ *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	resolutions, err := parseInts(c.resolutions)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitUsageError
	}

	svc := newQueryService(0, 0)
	res, err := svc.ConvergenceStudy(ctx, application.ConvergenceQuery{
		ContractInput: c.scenario.contract(strings.ToUpper(c.scenario.side)),
		PricingModel:  c.model,
		Resolutions:   resolutions,
		Runs:          c.runs,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return subcommands.ExitFailure
	}
	printMarkdown(convergenceMarkdown(res), c.plain)
	return subcommands.ExitSuccess
}

func parseInts(list string) ([]int, error) {
	parts := splitList(list)
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid resolution %q", p)
		}
		out = append(out, n)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no resolutions given")
	}
	return out, nil
}

func splitList(list string) []string {
	var out []string
	for p := range strings.SplitSeq(list, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
