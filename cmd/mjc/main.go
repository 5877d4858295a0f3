// mjc - the MicroJava compiler
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/microjava/compiler"
	"github.com/chazu/microjava/manifest"
	"github.com/chazu/microjava/server"

	_ "github.com/tliron/commonlog/simple"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run executes the command line and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("mjc", flag.ContinueOnError)
	flags.SetOutput(stderr)

	output := flags.String("o", "", "Object file to write (default: source name with .obj)")
	listing := flags.Bool("S", false, "Also write a disassembly listing (.lst)")
	debugSyms := flags.Bool("g", false, "Also write a debug symbol sidecar (.dbg)")
	maxErrors := flags.Int("max-errors", compiler.DefaultMaxErrors, "Stop after this many errors (0 = unlimited)")
	var verbose countFlag
	flags.Var(&verbose, "v", "Increase log verbosity (repeatable: -v info, -v -v debug)")
	logPath := flags.String("log", "", "Write log output to this file instead of stderr")
	projectDir := flags.String("p", "", "Build every source listed in the mj.toml found from this directory")
	lspMode := flags.Bool("lsp", false, "Run the language server on stdio")

	flags.Usage = func() {
		fmt.Fprintf(stderr, "Usage: mjc [options] Program.mj\n")
		fmt.Fprintf(stderr, "       mjc [options] -p dir\n")
		fmt.Fprintf(stderr, "       mjc -lsp\n\n")
		fmt.Fprintf(stderr, "Compiles MicroJava source to a .obj object file.\n\n")
		fmt.Fprintf(stderr, "Options:\n")
		flags.PrintDefaults()
		fmt.Fprintf(stderr, "\nExamples:\n")
		fmt.Fprintf(stderr, "  mjc Sample.mj            # writes Sample.obj\n")
		fmt.Fprintf(stderr, "  mjc -S -g Sample.mj      # also writes Sample.lst and Sample.dbg\n")
		fmt.Fprintf(stderr, "  mjc -p .                 # builds the project in ./mj.toml\n")
	}
	if err := flags.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		return 2
	}

	var logFile *string
	if *logPath != "" {
		logFile = logPath
	}
	commonlog.Configure(int(verbose), logFile)
	log := commonlog.GetLogger("mjc")

	set := make(map[string]bool)
	flags.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if *maxErrors < 0 {
		fmt.Fprintf(stderr, "Error: -max-errors must not be negative\n")
		return 2
	}

	if *lspMode {
		log.Info("starting language server on stdio")
		if err := server.NewLSP(compiler.Options{MaxErrors: *maxErrors}).Run(); err != nil {
			fmt.Fprintf(stderr, "Server error: %v\n", err)
			return 1
		}
		return 0
	}

	if *projectDir != "" {
		m, err := manifest.FindAndLoad(*projectDir)
		if err != nil {
			fmt.Fprintf(stderr, "Error loading manifest: %v\n", err)
			return 1
		}
		if m == nil {
			fmt.Fprintf(stderr, "Error: no %s found from %s\n", manifest.FileName, *projectDir)
			return 1
		}
		if set["o"] {
			fmt.Fprintf(stderr, "Error: -o cannot be used with -p\n")
			return 2
		}
		cfg := projectConfig(m)
		// Flags override the manifest.
		if set["S"] {
			cfg.Listing = *listing
		}
		if set["g"] {
			cfg.DebugSymbols = *debugSyms
		}
		if set["max-errors"] {
			cfg.MaxErrors = *maxErrors
		}
		return buildProject(m, cfg, stdout, stderr)
	}

	if flags.NArg() != 1 {
		flags.Usage()
		return 2
	}
	src := flags.Arg(0)
	cfg := buildConfig{
		Output:       *output,
		Listing:      *listing,
		DebugSymbols: *debugSyms,
		MaxErrors:    *maxErrors,
	}
	if cfg.Output == "" {
		cfg.Output = manifest.ReplaceExt(src, ".obj")
	}

	errs, err := compileFile(src, cfg, stdout)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 1
	}
	if errs > 0 {
		return 1
	}
	return 0
}

// countFlag is a boolean-style flag that counts its occurrences.
type countFlag int

func (c *countFlag) String() string { return fmt.Sprint(int(*c)) }

func (c *countFlag) Set(string) error {
	*c++
	return nil
}

func (c *countFlag) IsBoolFlag() bool { return true }
