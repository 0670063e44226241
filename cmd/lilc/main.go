package main

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/kray10/project6/compiler"
	"github.com/kray10/project6/compiler/format"
	"github.com/kray10/project6/compiler/parse"
	"github.com/kray10/project6/compiler/sim"
)

func main() {
	parseCmd := &cli.Command{
		Name:        "parse",
		Description: "parse files and print them formatted",
		Action:      parseAct,
		Args:        cli.Args{},
	}

	checkCmd := &cli.Command{
		Name:        "check",
		Description: "run name resolution and type checks",
		Action:      checkAct,
		Args:        cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:        "compile",
		Description: "compile files into MIPS assembly",
		Action:      compileAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("output,o", "", "output file, only with a single input (default: input with .s extension)"),
		},
	}

	runCmd := &cli.Command{
		Name:        "run",
		Description: "compile a file and execute it in the simulator",
		Action:      runAct,
		Args:        cli.Args{},
		Flags: []*cli.Flag{
			cli.NewFlag("max-steps", sim.MaxSteps, "simulator step limit"),
		},
	}

	app := &cli.Command{
		Name:        "lilc",
		Description: "lilc compiles LilC programs into MIPS assembly",
		Before:      before,
		Flags: []*cli.Flag{
			cli.NewFlag("verbosity,v", "", "tlog verbosity topics"),
			cli.HelpFlag,
		},
		Commands: []*cli.Command{
			parseCmd,
			checkCmd,
			compileCmd,
			runCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func before(c *cli.Command) error {
	tlog.SetVerbosity(c.String("verbosity"))

	return nil
}

func rootContext() context.Context {
	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}

func parseAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		x, err := parse.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		b, err := format.Format(ctx, nil, x)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		_, err = os.Stdout.Write(b)
		if err != nil {
			return errors.Wrap(err, "write")
		}
	}

	return nil
}

func checkAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		x, err := parse.ParseFile(ctx, a)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		err = compiler.Analyze(ctx, x)
		if err != nil {
			return errors.Wrap(err, "check %v", a)
		}
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := rootContext()

	out := c.String("output")
	if out != "" && len(c.Args) != 1 {
		return errors.New("--output needs exactly one input file")
	}

	for _, a := range c.Args {
		dst := out
		if dst == "" {
			dst = strings.TrimSuffix(a, filepath.Ext(a)) + ".s"
		}

		err = compiler.CompileFile(ctx, a, dst)
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}
	}

	return nil
}

func runAct(c *cli.Command) (err error) {
	ctx := rootContext()

	if len(c.Args) != 1 {
		return errors.New("expected one source file")
	}

	return runFile(ctx, c.Args[0], c.Int("max-steps"), os.Stdin, os.Stdout)
}

// runFile compiles and executes a program. Output is not buffered
// so prompts show up before the program waits for input.
func runFile(ctx context.Context, name string, maxSteps int, in io.Reader, out io.Writer) error {
	text, err := os.ReadFile(name)
	if err != nil {
		return errors.Wrap(err, "read file")
	}

	obj, err := compiler.Compile(ctx, name, text)
	if err != nil {
		return errors.Wrap(err, "compile")
	}

	_, err = sim.Run(ctx, obj, sim.Config{
		MaxSteps: maxSteps,
		Input:    in,
		Output:   out,
	})
	if err != nil {
		return errors.Wrap(err, "run")
	}

	return nil
}
