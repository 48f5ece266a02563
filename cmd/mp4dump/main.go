// Command mp4dump reads an ISOBMFF (MP4/QuickTime/CMAF/HEIF) file and
// prints its full box tree as indented, annotated text, dispatching each
// box to the registered grammars in internal/boxes through internal/dissect.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/mildsunrise/mp4dissect/internal/dissect"
	"github.com/mildsunrise/mp4dissect/internal/emit"
	"github.com/sirupsen/logrus"
)

// boolPair mirrors argparse's BooleanOptionalAction: two flags sharing one
// underlying decision, with a default used when neither is given.
type boolPair struct {
	on, off bool
}

func (p *boolPair) resolve(def bool) bool {
	if p.on {
		return true
	}
	if p.off {
		return false
	}
	return def
}

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})

	var color boolPair
	var offsets, lengths, descriptions, defaults boolPair
	var rows, indent, bytesPerLine, sencIVSize int
	var verbose bool

	flag.BoolVar(&color.on, "color", false, "force ANSI color output on")
	flag.BoolVar(&color.on, "C", false, "shorthand for --color")
	flag.BoolVar(&color.off, "no-color", false, "force ANSI color output off")

	flag.BoolVar(&offsets.on, "offsets", false, "show box offsets (default)")
	flag.BoolVar(&offsets.off, "no-offsets", false, "hide box offsets")

	flag.BoolVar(&lengths.on, "lengths", false, "show box lengths (default)")
	flag.BoolVar(&lengths.off, "no-lengths", false, "hide box lengths")

	flag.BoolVar(&descriptions.on, "descriptions", false, "show human-readable field descriptions (default)")
	flag.BoolVar(&descriptions.off, "no-descriptions", false, "hide field descriptions")

	flag.BoolVar(&defaults.on, "defaults", false, "show fields equal to their spec default")
	flag.BoolVar(&defaults.off, "no-defaults", false, "hide fields equal to their spec default (default)")

	flag.IntVar(&rows, "rows", 0, "truncate tables and hex dumps to N rows (0 = unlimited)")
	flag.IntVar(&rows, "r", 0, "shorthand for --rows")

	flag.IntVar(&indent, "indent", 4, "spaces per indentation level")
	flag.IntVar(&bytesPerLine, "bytes-per-line", 16, "hex-dump line width in bytes")
	flag.IntVar(&sencIVSize, "senc-per-sample-iv", 0, "per-sample IV size (bytes) for senc boxes with no tenc in scope")
	flag.BoolVar(&verbose, "verbose", false, "log warnings/errors to standard error")
	flag.BoolVar(&verbose, "v", false, "shorthand for --verbose")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <file>\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if verbose {
		log.SetLevel(logrus.DebugLevel)
	}

	if flag.NArg() != 1 {
		flag.Usage()
		os.Exit(1)
	}

	f, err := os.Open(flag.Arg(0))
	if err != nil {
		log.Fatalf("opening input: %v", err)
	}
	defer f.Close()

	if color.on && color.off {
		log.Fatal("--color and --no-color are mutually exclusive")
	}

	opts := emit.DefaultOptions()
	switch {
	case color.on:
		opts.Color = emit.ColorOn
	case color.off:
		opts.Color = emit.ColorOff
	default:
		opts.Color = emit.ColorAuto
	}
	opts.ShowOffsets = offsets.resolve(opts.ShowOffsets)
	opts.ShowLengths = lengths.resolve(opts.ShowLengths)
	opts.ShowDescriptions = descriptions.resolve(opts.ShowDescriptions)
	opts.ShowDefaults = defaults.resolve(opts.ShowDefaults)
	opts.Indent = indent
	opts.BytesPerLine = bytesPerLine
	opts.MaxRows = rows
	opts.Verbose = verbose

	em := emit.New(os.Stdout, opts)

	if err := dissect.Run(f, em, sencIVSize); err != nil {
		log.Fatalf("%v", err)
	}
}
