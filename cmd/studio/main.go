// Command studio runs the creative tools once from a terminal.
//
// Usage:
//
//	studio <tool> [options]
//
// Results are written to --out; text answers and lyrics go to stdout.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:           "studio",
		Usage:          "XStream creative tools from the command line",
		ExitErrHandler: exitErrHandler,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Log workflow transitions to stderr"},
		},
		Commands: []*cli.Command{
			faceSwapCommand(),
			clothingSwapCommand(),
			removeBackgroundCommand(),
			assistantCommand(),
			animateCommand(),
			controlsCommand(),
		},
	}

	if err := app.Run(os.Args); err != nil {
		os.Exit(1)
	}
}

// exitErrHandler keeps exit codes from cli.Exit and prints everything else.
func exitErrHandler(_ *cli.Context, err error) {
	if err == nil {
		return
	}
	var exitCoder cli.ExitCoder
	if errors.As(err, &exitCoder) {
		code := exitCoder.ExitCode()
		if msg := exitCoder.Error(); msg != "" && msg != fmt.Sprintf("exit status %d", code) {
			fmt.Fprintln(os.Stderr, msg)
		}
		os.Exit(code)
	}
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
