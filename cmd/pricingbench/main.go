// pricingbench 在演示场景上比较各定价模型并研究收敛性
package main

import (
	"context"
	"flag"
	"os"
	"path"

	"github.com/google/subcommands"
)

func main() {
	commander := subcommands.NewCommander(flag.CommandLine, path.Base(os.Args[0]))
	commander.Register(commander.HelpCommand(), "")
	commander.Register(commander.FlagsCommand(), "")
	commander.Register(&compareCmd{}, "")
	commander.Register(&convergeCmd{}, "")

	flag.Parse()
	os.Exit(int(commander.Execute(context.Background())))
}
