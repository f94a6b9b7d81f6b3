// Command stmtx extracts transactions from PDF bank and card statements.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/ArionMiles/stmtx/internal/runner"
	"github.com/ArionMiles/stmtx/pkg/config"
	"github.com/ArionMiles/stmtx/pkg/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	if len(args) < 1 {
		printUsage(stderr)
		return runner.ExitUsage
	}

	switch args[0] {
	case "extract":
		return runExtract(args[1:], stdin, stdout, stderr)
	case "status":
		return runStatus(args[1:], stdout, stderr)
	case "new-spec":
		return runNewSpec(args[1:], stdout, stderr)
	case "validate":
		return runValidate(args[1:], stdout, stderr)
	case "help", "-h", "--help":
		printUsage(stdout)
		return runner.ExitOK
	default:
		fmt.Fprintf(stderr, "Unknown command: %s\n\n", args[0])
		printUsage(stderr)
		return runner.ExitUsage
	}
}

func printUsage(w io.Writer) {
	fmt.Fprintln(w, "stmtx - PDF statement extraction")
	fmt.Fprintln(w, "\nUsage:")
	fmt.Fprintln(w, "  stmtx <command> [options]")
	fmt.Fprintln(w, "\nCommands:")
	fmt.Fprintln(w, "  extract <pdf>...   Extract transactions (use - for stdin)")
	fmt.Fprintln(w, "  status             Show configuration, backends and loaded plugins")
	fmt.Fprintln(w, "  new-spec <name>    Scaffold a declarative spec in the plugin directory")
	fmt.Fprintln(w, "  validate <spec>... Validate declarative spec files")
	fmt.Fprintln(w, "  help               Show this help message")
	fmt.Fprintln(w, "\nExit codes: 0 success, 1 usage or config, 2 unsupported format, 3 load or parse failure.")
	fmt.Fprintln(w, "Run 'stmtx <command> -h' for more information on a command.")
}

// stringList is a repeatable flag that also accepts comma-separated values.
type stringList []string

func (s *stringList) String() string { return strings.Join(*s, ",") }

func (s *stringList) Set(v string) error {
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			*s = append(*s, part)
		}
	}
	return nil
}

// parseInterleaved parses flags that may appear before, between or after
// positional arguments.
func parseInterleaved(fs *flag.FlagSet, args []string) ([]string, error) {
	var positional []string
	for {
		if err := fs.Parse(args); err != nil {
			return nil, err
		}
		rest := fs.Args()
		if len(rest) == 0 {
			return positional, nil
		}
		positional = append(positional, rest[0])
		args = rest[1:]
	}
}

// commonFlags are shared by subcommands that load configuration.
type commonFlags struct {
	config    string
	noPlugins bool
	dirs      stringList
	logLevel  string
}

func (c *commonFlags) register(fs *flag.FlagSet) {
	fs.StringVar(&c.config, "config", "", "config file (YAML or JSON); defaults to $"+config.EnvConfigFile)
	fs.BoolVar(&c.noPlugins, "no-plugins", false, "disable bundled and user plugins")
	fs.Var(&c.dirs, "plugin-dir", "plugin directory (repeatable)")
	fs.StringVar(&c.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

// binding maps a flag to a configuration key.
type binding struct {
	key string
	get func() any
}

func (c *commonFlags) bindings() map[string]binding {
	return map[string]binding{
		"no-plugins": {"plugins.enabled", func() any { return !c.noPlugins }},
		"plugin-dir": {"plugins.dirs", func() any { return []string(c.dirs) }},
		"log-level":  {"log.level", func() any { return c.logLevel }},
	}
}

// overrides returns configuration values for the flags that were set.
func overrides(fs *flag.FlagSet, bindings ...map[string]binding) map[string]any {
	out := make(map[string]any)
	fs.Visit(func(f *flag.Flag) {
		for _, m := range bindings {
			if b, ok := m[f.Name]; ok {
				out[b.key] = b.get()
			}
		}
	})
	return out
}

// loadConfig resolves configuration and sets up logging to stderr.
func (c *commonFlags) loadConfig(fs *flag.FlagSet, extra map[string]binding, stderr io.Writer) (*config.Config, string, error) {
	cfg, path, err := config.Load(config.Options{File: c.config, Flags: overrides(fs, c.bindings(), extra)})
	if err != nil {
		return nil, "", err
	}
	lc := cfg.LoggingConfig()
	lc.Output = stderr
	logging.Setup(lc)
	return cfg, path, nil
}

func usageError(stderr io.Writer, fs *flag.FlagSet, err error) int {
	if errors.Is(err, flag.ErrHelp) {
		return runner.ExitOK
	}
	if err != nil {
		fmt.Fprintf(stderr, "stmtx %s: %v\n", fs.Name(), err)
	}
	return runner.ExitUsage
}
