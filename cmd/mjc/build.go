package main

import (
	"fmt"
	"io"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/microjava/compiler"
	"github.com/chazu/microjava/manifest"
	"github.com/chazu/microjava/pkg/bytecode"
)

// buildConfig says what to produce for one source file.
type buildConfig struct {
	Output       string // object file path
	Listing      bool
	DebugSymbols bool
	MaxErrors    int
}

func projectConfig(m *manifest.Manifest) buildConfig {
	return buildConfig{
		Listing:      m.Build.Listing,
		DebugSymbols: m.Build.DebugSymbols,
		MaxErrors:    m.MaxErrors(),
	}
}

// compileFile compiles src, prints its diagnostics and the error summary to
// stdout, and writes the outputs when there are no errors. It returns the
// number of diagnostics; err is set only for I/O failures.
func compileFile(src string, cfg buildConfig, stdout io.Writer) (int, error) {
	log := commonlog.GetLogger("mjc")

	f, err := os.Open(src)
	if err != nil {
		return 0, fmt.Errorf("%s not found: %w", src, err)
	}
	defer f.Close()

	log.Debugf("compiling %s", src)
	res, err := compiler.Compile(f, compiler.Options{MaxErrors: cfg.MaxErrors})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", src, err)
	}

	for _, d := range res.Diagnostics {
		fmt.Fprintln(stdout, d)
	}
	if res.Aborted {
		fmt.Fprintf(stdout, "compilation stopped after %d errors\n", res.ErrorCount())
	}
	fmt.Fprintf(stdout, "%d errors found.\n", res.ErrorCount())
	if res.ErrorCount() > 0 {
		return res.ErrorCount(), nil
	}

	if err := bytecode.WriteFile(cfg.Output, res.Object); err != nil {
		return 0, err
	}
	log.Infof("wrote %s: %d bytes of code, %d globals", cfg.Output, len(res.Object.Code), res.Object.DataSize)

	if cfg.Listing {
		path := manifest.ReplaceExt(cfg.Output, ".lst")
		if err := os.WriteFile(path, []byte(res.Object.DisassembleWithInfo(res.Debug)), 0644); err != nil {
			return 0, fmt.Errorf("cannot write %s: %w", path, err)
		}
		log.Infof("wrote %s", path)
	}
	if cfg.DebugSymbols {
		path := manifest.ReplaceExt(cfg.Output, ".dbg")
		if err := bytecode.WriteDebugFile(path, res.Debug); err != nil {
			return 0, err
		}
		log.Infof("wrote %s", path)
	}
	return 0, nil
}

// buildProject compiles every source in the manifest. Every source is
// attempted even after a failure; the exit status reflects all of them.
func buildProject(m *manifest.Manifest, cfg buildConfig, stdout, stderr io.Writer) int {
	log := commonlog.GetLogger("mjc")

	sources := m.SourcePaths()
	if len(sources) == 0 {
		fmt.Fprintf(stderr, "Error: no [build] sources in %s\n", manifest.FileName)
		return 1
	}
	if err := os.MkdirAll(m.OutputDirPath(), 0755); err != nil {
		fmt.Fprintf(stderr, "Error: cannot create output directory: %v\n", err)
		return 1
	}

	status := 0
	for _, src := range sources {
		c := cfg
		c.Output = m.ObjectPath(src)
		if len(sources) > 1 {
			fmt.Fprintf(stdout, "%s:\n", src)
		}
		errs, err := compileFile(src, c, stdout)
		if err != nil {
			fmt.Fprintf(stderr, "Error: %v\n", err)
			status = 1
			continue
		}
		if errs > 0 {
			status = 1
		}
	}
	log.Infof("built project %s (%d sources)", m.Project.Name, len(sources))
	return status
}
