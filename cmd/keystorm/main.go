// Package main is the entry point for the Keystorm piece-tree engine host.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/dshills/keystorm/internal/config"
	"github.com/dshills/keystorm/internal/engine/buffer"
	"github.com/dshills/keystorm/internal/engine/piecetree"
)

// Version information (set via ldflags during build).
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// options holds the parsed command-line invocation.
type options struct {
	ConfigPath string
	InputPath  string // "" means read from stdin
	OutputPath string // "" means write back to InputPath (or stdout if reading from stdin)
	ReadOnly   bool
}

func main() {
	os.Exit(run())
}

func run() int {
	opts := parseFlags()

	fsys := afero.NewOsFs()

	engineCfg, err := config.Load(config.DefaultFS(), opts.ConfigPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load configuration: %v\n", err)
		return 1
	}

	tree, err := loadTree(fsys, opts, engineCfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to load input: %v\n", err)
		return 1
	}

	buf := buffer.NewBufferFromString(string(tree.Substring(0, tree.Length())), engineCfg.BufferOptions()...)

	if opts.ReadOnly || opts.OutputPath == "" && opts.InputPath == "" {
		fmt.Print(buf.Text())
		return 0
	}

	out := opts.OutputPath
	if out == "" {
		out = opts.InputPath
	}

	if err := saveBuffer(fsys, out, buf); err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to save output: %v\n", err)
		return 1
	}

	return 0
}

// loadTree builds a piece tree from the input path, or from stdin when no
// path was given.
func loadTree(fsys afero.Fs, opts options, engineCfg config.EngineConfig) (*piecetree.Tree, error) {
	if opts.InputPath == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return nil, fmt.Errorf("reading stdin: %w", err)
		}
		return piecetree.New(append(engineCfg.PieceTreeOptions(), piecetree.WithInitialText(data))...), nil
	}

	return piecetree.LoadFile(fsys, opts.InputPath, engineCfg.PieceTreeOptions()...)
}

// saveBuffer writes the buffer's current content to path, rebuilding a
// piece tree from its text since buffer.Buffer does not itself expose a
// file-saving primitive.
func saveBuffer(fsys afero.Fs, path string, buf *buffer.Buffer) error {
	tree := piecetree.New(piecetree.WithInitialText([]byte(buf.Text())))
	return tree.SaveFile(fsys, path)
}

func parseFlags() options {
	var opts options
	var outputPath string
	var showVersion bool
	var showHelp bool

	flag.StringVar(&opts.ConfigPath, "config", "", "Path to configuration file")
	flag.StringVar(&opts.ConfigPath, "c", "", "Path to configuration file (shorthand)")
	flag.StringVar(&outputPath, "o", "", "Write output to a different path instead of overwriting the input")
	flag.BoolVar(&opts.ReadOnly, "readonly", false, "Print the loaded content to stdout instead of saving")
	flag.BoolVar(&opts.ReadOnly, "R", false, "Print the loaded content to stdout instead of saving (shorthand)")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&showHelp, "help", false, "Show help message")
	flag.BoolVar(&showHelp, "h", false, "Show help message (shorthand)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Keystorm - piece-tree text buffer host\n\n")
		fmt.Fprintf(os.Stderr, "Usage: keystorm [options] [file]\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  keystorm file.txt           Load a file and save it back in place\n")
		fmt.Fprintf(os.Stderr, "  keystorm -R file.txt        Load a file and print its content\n")
		fmt.Fprintf(os.Stderr, "  cat file.txt | keystorm     Load content from stdin, print it\n")
		fmt.Fprintf(os.Stderr, "  keystorm -o out.txt in.txt  Load in.txt, save to out.txt\n")
	}

	flag.Parse()

	if showHelp {
		flag.Usage()
		os.Exit(0)
	}

	if showVersion {
		fmt.Printf("Keystorm %s\n", version)
		fmt.Printf("Commit: %s\n", commit)
		fmt.Printf("Built: %s\n", date)
		os.Exit(0)
	}

	opts.OutputPath = outputPath

	args := flag.Args()
	if len(args) > 1 {
		fmt.Fprintln(os.Stderr, "Error: only one input file may be given")
		os.Exit(1)
	}
	if len(args) == 1 {
		opts.InputPath = args[0]
	}

	return opts
}
