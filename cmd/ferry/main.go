package main

import (
	"log"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/ferrylang/ferry/cmd/ferry/build"
)

func main() {
	var (
		output    = flag.StringP("output", "o", "", "output path (default output-binary, or stdout with --emit-ir)")
		emitIR    = flag.Bool("emit-ir", false, "emit LLVM IR text instead of invoking clang")
		noCopyOpt = flag.Bool("no-copy-opt", false, "insert a defensive copy at every candidate site")
		debug     = flag.Bool("debug", false, "log pipeline stages and copy decisions")
		jobs      = flag.IntP("jobs", "j", 1, "rewrite this many functions concurrently")
		watch     = flag.BoolP("watch", "w", false, "rebuild whenever the module file changes")
	)
	flag.Parse()

	if flag.NArg() < 1 {
		log.Printf("No module specified. Usage: %s [flags] path/to/module.fir", os.Args[0])
		flag.PrintDefaults()
		os.Exit(1)
	}

	opts := build.Options{
		Output:   *output,
		EmitIR:   *emitIR,
		Optimize: !*noCopyOpt,
		Debug:    *debug,
		Jobs:     *jobs,
	}

	run := build.Build
	if *watch {
		run = build.Watch
	}

	if err := run(flag.Arg(0), opts); err != nil {
		log.Println(err)
		os.Exit(1)
	}

	os.Exit(0)
}
