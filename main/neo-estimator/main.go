package main

import (
	"fmt"
	"os"

	"github.com/alecthomas/kong"
	"github.com/machbase/neo-estimator/mods/estimator"
)

func main() {
	var cli estimator.RunCmd
	_ = kong.Parse(&cli,
		kong.HelpOptions{NoAppSummary: false, Compact: true, FlagsLast: true},
		kong.UsageOnError(),
	)
	if err := estimator.Run(&cli); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}
