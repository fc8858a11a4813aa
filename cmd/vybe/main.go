package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"vybe/interpreter-go/pkg/driver"
	"vybe/interpreter-go/pkg/interpreter"
	"vybe/interpreter-go/pkg/parser"
	"vybe/interpreter-go/pkg/runtime"
)

const cliToolVersion = "vybe 0.1.0-dev"

func main() {
	c := &cli{
		stdin:  os.Stdin,
		stdout: os.Stdout,
		stderr: os.Stderr,
		cfg:    loadConfig(),
	}
	os.Exit(c.run(os.Args[1:]))
}

type cli struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	cfg    config
}

func (c *cli) logger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(c.stderr, &slog.HandlerOptions{Level: c.cfg.LogLevel}))
}

func (c *cli) run(args []string) int {
	if len(args) == 0 {
		printUsage(c.stderr)
		return 1
	}
	switch args[0] {
	case "--help", "-h", "help":
		printUsage(c.stdout)
		return 0
	case "--version", "-V", "version":
		fmt.Fprintln(c.stdout, cliToolVersion)
		return 0
	case "run":
		return c.runProject(args[1:])
	case "check":
		return c.runCheck(args[1:])
	case "repl":
		return c.runRepl(args[1:])
	case "deps":
		return c.runDeps(args[1:])
	default:
		if strings.HasPrefix(args[0], "-") {
			fmt.Fprintf(c.stderr, "unknown flag %s\n", args[0])
			printUsage(c.stderr)
			return 1
		}
		return c.runProject(args)
	}
}

// loadTarget resolves a CLI target: a source file, a manifest, or a
// directory at or below a project.
func (c *cli) loadTarget(args []string) (*driver.Project, []string, error) {
	target := "."
	var rest []string
	if len(args) > 0 {
		target, rest = args[0], args[1:]
	}
	info, err := os.Stat(target)
	if err != nil {
		return nil, nil, fmt.Errorf("stat %s: %w", target, err)
	}
	if !info.IsDir() && filepath.Base(target) != driver.ManifestName {
		project, err := driver.LoadFile(target)
		return project, rest, err
	}
	manifestPath := target
	if info.IsDir() {
		if manifestPath, err = driver.FindManifest(target); err != nil {
			return nil, nil, err
		}
	}
	manifest, err := driver.LoadManifest(manifestPath)
	if err != nil {
		return nil, nil, err
	}
	loader := driver.NewLoader(c.cfg.Home, c.cfg.SearchPaths, c.logger())
	project, err := loader.Load(context.Background(), manifest)
	return project, rest, err
}

func (c *cli) runProject(args []string) int {
	project, programArgs, err := c.loadTarget(args)
	if err != nil {
		return c.reportError(err)
	}
	interp := interpreter.New(
		interpreter.WithLogger(c.logger()),
		interpreter.WithInput(c.stdin),
		interpreter.WithArgs(programArgs),
	)
	defer func() {
		if err := interp.Close(); err != nil {
			c.logger().Warn("closing interpreter", "error", err)
		}
	}()

	err = project.Apply(interp)
	if err == nil {
		err = project.Start(interp)
	}
	renderEffects(c.stdout, interp.Logger(), interp.SideEffects.Drain())
	if err != nil {
		return c.reportError(err)
	}
	return 0
}

func (c *cli) runCheck(args []string) int {
	project, _, err := c.loadTarget(args)
	if err != nil {
		return c.reportError(err)
	}
	fmt.Fprintf(c.stdout, "ok: %d module(s) parsed\n", len(project.Modules))
	return 0
}

// reportError prints err the way the CLI surfaces each error class and
// returns the exit code.
func (c *cli) reportError(err error) int {
	var (
		srcErr   *driver.SourceError
		parseErr *parser.ParseError
		rtErr    *runtime.Error
	)
	switch {
	case errors.As(err, &parseErr):
		if errors.As(err, &srcErr) {
			fmt.Fprintf(c.stderr, "parse error: %s:%d:%d: %s\n", srcErr.Path, parseErr.Line, parseErr.Column, parseErr.Message)
		} else {
			fmt.Fprintf(c.stderr, "parse error: %d:%d: %s\n", parseErr.Line, parseErr.Column, parseErr.Message)
		}
	case errors.As(err, &rtErr):
		fmt.Fprintf(c.stderr, "runtime error: %s\n", rtErr.Error())
	default:
		fmt.Fprintf(c.stderr, "error: %v\n", err)
	}
	return 1
}
