// Command milc is the CLI front end for this module's compiler
// pipeline, the direct replacement for the teacher's cmd/slow: the
// same nikand.dev/go/cli subcommand shape, wired to
// compiler/driver instead of the teacher's compiler package.
package main

import (
	"context"
	"fmt"
	"os"

	"nikand.dev/go/cli"
	"tlog.app/go/errors"
	"tlog.app/go/tlog"

	"github.com/EmiliaPaz/mil-tools/compiler/driver"
	"github.com/EmiliaPaz/mil-tools/compiler/format"
	"github.com/EmiliaPaz/mil-tools/compiler/frontend"
	"github.com/EmiliaPaz/mil-tools/compiler/interp"
	"github.com/EmiliaPaz/mil-tools/compiler/pipeline"
	"github.com/EmiliaPaz/mil-tools/compiler/tycheck"
)

func main() {
	parseCmd := &cli.Command{
		Name:   "parse",
		Action: parseAct,
		Args:   cli.Args{},
	}

	checkCmd := &cli.Command{
		Name:   "check",
		Action: checkAct,
		Args:   cli.Args{},
	}

	compileCmd := &cli.Command{
		Name:   "compile",
		Action: compileAct,
		Args:   cli.Args{},
	}

	interpCmd := &cli.Command{
		Name:   "interp",
		Action: interpAct,
		Args:   cli.Args{},
	}

	dumpCmd := &cli.Command{
		Name:   "dump",
		Action: dumpAct,
		Args:   cli.Args{},
	}

	app := &cli.Command{
		Name:        "milc",
		Description: "milc drives the MIL compiler pipeline: parse, check, compile, interp and dump",
		Commands: []*cli.Command{
			parseCmd,
			checkCmd,
			compileCmd,
			interpCmd,
			dumpCmd,
		},
	}

	cli.RunAndExit(app, os.Args, os.Environ())
}

func rootContext() context.Context {
	return tlog.ContextWithSpan(context.Background(), tlog.Root())
}

func parseAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		src, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		f, err := frontend.Parse(ctx, a, src)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		fmt.Printf("%s: %d block(s), %d top-level(s)\n", a, len(f.Blocks), len(f.Tops))
	}

	return nil
}

func checkAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		src, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		f, err := frontend.Parse(ctx, a, src)
		if err != nil {
			return errors.Wrap(err, "parse %v", a)
		}

		tf, err := tycheck.Check(ctx, f)
		if err != nil {
			return errors.Wrap(err, "check %v", a)
		}

		fmt.Printf("%s: ok, %d block(s) checked, %d top-level(s) checked\n", a, len(tf.Blocks), len(tf.Tops))
	}

	return nil
}

func compileAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		src, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		_, mod, err := driver.Compile(ctx, a, src, pipeline.Default())
		if err != nil {
			return errors.Wrap(err, "compile %v", a)
		}

		fmt.Print(mod.String())
	}

	return nil
}

func interpAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		src, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		prog, err := driver.Build(ctx, a, src)
		if err != nil {
			return errors.Wrap(err, "build %v", a)
		}

		trace, err := interp.Run(ctx, prog)
		if err != nil {
			return errors.Wrap(err, "interp %v", a)
		}

		for _, w := range trace {
			fmt.Printf("%d\n", w)
		}
	}

	return nil
}

func dumpAct(c *cli.Command) (err error) {
	ctx := rootContext()

	for _, a := range c.Args {
		src, err := os.ReadFile(a)
		if err != nil {
			return errors.Wrap(err, "read %v", a)
		}

		prog, err := driver.Build(ctx, a, src)
		if err != nil {
			return errors.Wrap(err, "build %v", a)
		}

		if err := driver.Optimize(ctx, prog, pipeline.Default(), nil, nil); err != nil {
			return errors.Wrap(err, "optimize %v", a)
		}

		out, err := format.Program(prog)
		if err != nil {
			return errors.Wrap(err, "format %v", a)
		}

		fmt.Print(string(out))
	}

	return nil
}
