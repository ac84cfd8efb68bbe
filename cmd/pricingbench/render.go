package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/glamour"
	"github.com/montanaflynn/stats"
	"github.com/wyfcoding/optionpricing/internal/pricing/application"
	"github.com/wyfcoding/optionpricing/internal/pricing/infrastructure/persistence/memory"
	"github.com/wyfcoding/optionpricing/pkg/algorithm/finance"
)

// newQueryService 本地压测不设分辨率上限
func newQueryService(steps, paths int) *application.PricingQueryService {
	opts := application.DefaultOptions()
	opts.MaxResolution = 0
	opts.MaxLatticeSteps = 0
	if steps > 0 {
		opts.DefaultSteps = steps
	}
	if paths > 0 {
		opts.DefaultPaths = paths
	}
	pricer := finance.NewPricer(finance.NewMonteCarloSimulator(opts.Seed, opts.Partitions))
	return application.NewPricingQueryService(memory.NewPricingRepository(), pricer, opts)
}

func printMarkdown(md string, plain bool) {
	if plain {
		fmt.Print(md)
		return
	}
	r, err := glamour.NewTermRenderer(glamour.WithAutoStyle(), glamour.WithWordWrap(120))
	if err == nil {
		var out string
		if out, err = r.Render(md); err == nil {
			fmt.Print(out)
			return
		}
	}
	fmt.Fprintf(os.Stderr, "render markdown: %v\n", err)
	fmt.Print(md)
}

func scenarioMarkdown(s scenario, steps, paths int) string {
	var b strings.Builder
	b.WriteString("# Pricing comparison\n\n")
	fmt.Fprintf(&b, "Spot %g, strike %g, %g days to expiry, %s exercise.\n\n", s.spot, s.strike, s.days, strings.ToLower(s.style))
	fmt.Fprintf(&b, "Daily volatility %.6f, daily rate %.8f (%g days per year).\n\n", s.dailyVol(), s.dailyRate(), s.daysInYear)
	fmt.Fprintf(&b, "Lattice depth %d, Monte Carlo pairs %d.\n\n", steps, paths)
	return b.String()
}

func compareMarkdown(side, style string, res *application.CompareMethodsResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## %s\n\n", strings.ToUpper(side))
	fmt.Fprintf(&b, "Black-Scholes european benchmark: **%.6f**\n\n", res.Benchmark)
	b.WriteString("| Model | Price | Std err | Resolution | Elapsed | Deviation |\n")
	b.WriteString("|---|---:|---:|---:|---:|---:|\n")

	var total time.Duration
	for _, row := range res.Rows {
		if row.Error != "" {
			fmt.Fprintf(&b, "| %s | error: %s | | | | |\n", row.PricingModel, row.Error)
			continue
		}
		total += row.Elapsed
		stdErr := "-"
		if row.StdErr > 0 {
			stdErr = fmt.Sprintf("%.6f", row.StdErr)
		}
		fmt.Fprintf(&b, "| %s | %.6f | %s | %d | %s | %+.6f |\n",
			row.PricingModel, row.Price, stdErr, row.Resolution, row.Elapsed.Round(time.Microsecond), row.Deviation)
	}
	fmt.Fprintf(&b, "\nTotal elapsed %s. ", total.Round(time.Microsecond))
	if strings.EqualFold(style, "AMERICAN") {
		b.WriteString("Closed form, Leisen-Reimer and Monte Carlo rows price the european equivalent.")
	}
	b.WriteString("\n\n")
	return b.String()
}

func convergenceMarkdown(res *application.ConvergenceResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Convergence of %s\n\n", res.PricingModel)
	fmt.Fprintf(&b, "Black-Scholes benchmark: **%.8f**\n\n", res.Benchmark)
	b.WriteString("| N | Price | Error | Std dev | Elapsed |\n")
	b.WriteString("|---:|---:|---:|---:|---:|\n")

	elapsed := make([]float64, 0, len(res.Points))
	for _, p := range res.Points {
		fmt.Fprintf(&b, "| %d | %.8f | %+.3e | %.3e | %s |\n",
			p.Resolution, p.Price, p.Error, p.StdDev, p.Elapsed.Round(time.Microsecond))
		elapsed = append(elapsed, p.Elapsed.Seconds())
	}
	fmt.Fprintf(&b, "\nMean |error| %.3e, max |error| %.3e", res.MeanAbsError, res.MaxAbsError)
	if median, err := stats.Median(elapsed); err == nil {
		fmt.Fprintf(&b, ", median elapsed %s", time.Duration(median*float64(time.Second)).Round(time.Microsecond))
	}
	b.WriteString(".\n")
	return b.String()
}
