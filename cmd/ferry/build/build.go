// Package build drives the compilation pipeline: load a serialized Fir
// module, summarize its functions, run the value-copy rewrite, lower to
// LLVM IR, and hand the result to clang.
package build

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/pkg/errors"

	"github.com/ferrylang/ferry/compiler/analysis"
	"github.com/ferrylang/ferry/compiler/codegen"
	"github.com/ferrylang/ferry/compiler/irfile"
	"github.com/ferrylang/ferry/compiler/passes/valuecopy"
)

type Options struct {
	// Output is the destination path. With EmitIR an empty Output prints
	// the IR to stdout instead.
	Output   string
	EmitIR   bool
	Optimize bool
	Debug    bool
	Jobs     int
}

// Build compiles one .fir module file.
func Build(path string, opts Options) error {
	mod, err := irfile.Load(path)
	if err != nil {
		return err
	}
	if opts.Debug {
		log.Printf("loaded %s: %d structs, %d funcs", path, len(mod.Structs), len(mod.Funcs))
	}

	store := analysis.AnalyzeModule(mod)

	jobs := opts.Jobs
	if jobs < 1 {
		jobs = 1
	}
	err = valuecopy.RewriteModule(context.Background(), mod, store, valuecopy.Options{
		Optimize: opts.Optimize,
		Debug:    opts.Debug,
	}, jobs)
	if err != nil {
		return err
	}

	c := codegen.NewCompiler()
	if err := c.Compile(mod); err != nil {
		return err
	}
	compiled := c.GetIR()

	if opts.Debug {
		fmt.Println(compiled)
	}

	if opts.EmitIR {
		if opts.Output == "" {
			fmt.Println(compiled)
			return nil
		}
		return errors.Wrap(os.WriteFile(opts.Output, []byte(compiled), 0666), "write IR")
	}

	tmpDir, err := os.MkdirTemp("", "ferry")
	if err != nil {
		return errors.Wrap(err, "tmp dir")
	}
	defer os.RemoveAll(tmpDir)

	llPath := filepath.Join(tmpDir, "main.ll")
	if err := os.WriteFile(llPath, []byte(compiled), 0666); err != nil {
		return errors.Wrap(err, "write IR")
	}

	outputBinaryPath := opts.Output
	if outputBinaryPath == "" {
		outputBinaryPath = "output-binary"
	}

	clangArgs := []string{
		"-Wno-override-module", // Disable override target triple warnings
		llPath,
		"-o", outputBinaryPath,
	}

	cmd := exec.Command("clang", clangArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		fmt.Println(string(output))
		return errors.Wrap(err, "clang")
	}
	if len(output) > 0 {
		fmt.Println(string(output))
		return errors.New("clang failure")
	}

	return nil
}
