package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/raymyers/epycc/pkg/cabs"
	"github.com/raymyers/epycc/pkg/irgen"
	"github.com/raymyers/epycc/pkg/lexer"
	"github.com/raymyers/epycc/pkg/oplib"
	"github.com/raymyers/epycc/pkg/parser"
	"github.com/spf13/cobra"
	"github.com/xyproto/env/v2"
)

var version = "0.1.0"

// Debug and listing flags
var (
	dParse         bool
	listExterns    bool
	listSignatures bool
	verbose        bool
)

// Output and library options
var (
	outputPath string
	oplibPath  string
	genOplib   string
)

func main() {
	os.Exit(run())
}

func run() int {
	rootCmd := newRootCmd(os.Stdout, os.Stderr)
	// Accept single-dash long flags (-dparse) as well as --dparse
	rootCmd.SetArgs(normalizeFlags(os.Args[1:]))
	if err := rootCmd.Execute(); err != nil {
		return 1
	}
	return 0
}

// singleDashFlags lists the long flags that may be written with one dash.
var singleDashFlags = []string{"dparse", "externs", "signatures", "verbose"}

// normalizeFlags converts single-dash long flags like -dparse to --dparse
func normalizeFlags(args []string) []string {
	result := make([]string, len(args))
	for i, arg := range args {
		result[i] = arg
		for _, name := range singleDashFlags {
			if arg == "-"+name {
				result[i] = "--" + name
				break
			}
		}
	}
	return result
}

func newRootCmd(out, errOut io.Writer) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "epycc [file]",
		Short: "epycc compiles a subset of C99 to LLVM IR",
		Long: `epycc compiles a subset of C99 to textual LLVM IR. Every arithmetic
operation and conversion becomes a call into an operation library,
which can be generated as C source (--gen-oplib) and linked back
into the output from its compiled IR (--oplib).`,
		Version:       version,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if genOplib != "" {
				if err := doGenOplib(genOplib, errOut); err != nil {
					return err
				}
				if len(args) == 0 {
					return nil
				}
			}

			if len(args) == 0 {
				cmd.Help()
				return nil
			}
			filename := args[0]

			// Handle -dparse: parse and dump the AST
			if dParse {
				return doParse(filename, out, errOut)
			}
			return doCompile(filename, out, errOut)
		},
	}
	rootCmd.SetOut(out)
	rootCmd.SetErr(errOut)

	rootCmd.Flags().BoolVar(&dParse, "dparse", false, "Dump after parsing")
	rootCmd.Flags().BoolVar(&listExterns, "externs", false, "List the operation library functions the file uses")
	rootCmd.Flags().BoolVar(&listSignatures, "signatures", false, "List the signatures of the defined functions")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", env.Bool("EPYCC_VERBOSE"), "Report progress on stderr")

	rootCmd.Flags().StringVarP(&outputPath, "output", "o", "", "Write IR to this file (- for stdout; default input.ll)")
	rootCmd.Flags().StringVar(&oplibPath, "oplib", env.Str("EPYCC_OPLIB"), "Link definitions from this compiled operation library (.ll)")
	rootCmd.Flags().StringVar(&genOplib, "gen-oplib", "", "Write the operation library C source to this file")

	return rootCmd
}

// logf writes a progress line when --verbose is set.
func logf(errOut io.Writer, format string, args ...any) {
	if verbose {
		fmt.Fprintf(errOut, "epycc: "+format+"\n", args...)
	}
}

// parseFile reads and parses a C file, returning the AST
func parseFile(filename string, errOut io.Writer) (*cabs.Program, error) {
	content, err := os.ReadFile(filename)
	if err != nil {
		fmt.Fprintf(errOut, "epycc: error reading %s: %v\n", filename, err)
		return nil, err
	}

	p := parser.New(lexer.New(string(content)))
	program := p.ParseProgram()

	if len(p.Errors()) > 0 {
		for _, e := range p.Errors() {
			fmt.Fprintf(errOut, "%s: %s\n", filename, e)
		}
		return nil, fmt.Errorf("parsing failed with %d errors", len(p.Errors()))
	}
	return program, nil
}

// doParse parses the file and writes the AST to a .parsed.c file
func doParse(filename string, out, errOut io.Writer) error {
	program, err := parseFile(filename, errOut)
	if err != nil {
		return err
	}

	outputFilename := replaceExt(filename, ".parsed.c")
	outFile, err := os.Create(outputFilename)
	if err != nil {
		fmt.Fprintf(errOut, "epycc: error creating %s: %v\n", outputFilename, err)
		return err
	}
	defer outFile.Close()

	cabs.NewPrinter(outFile).PrintProgram(program)

	// Also print to stdout for convenience
	cabs.NewPrinter(out).PrintProgram(program)
	return nil
}

// doCompile generates IR for the file and writes it to the output file,
// or lists externs or signatures instead when asked to.
func doCompile(filename string, out, errOut io.Writer) error {
	program, err := parseFile(filename, errOut)
	if err != nil {
		return err
	}

	logf(errOut, "compiling %s", filename)
	unit, err := irgen.Generate(program, irgen.Options{})
	if err != nil {
		fmt.Fprintf(errOut, "%s: %v\n", filename, err)
		return err
	}
	logf(errOut, "%d functions, %d externs", len(unit.Functions), len(unit.Externs))

	switch {
	case listExterns:
		for _, name := range unit.Externs {
			fmt.Fprintln(out, name)
		}
		return nil
	case listSignatures:
		for _, sig := range unit.Functions {
			fmt.Fprintln(out, sig)
		}
		return nil
	}

	ir := unit.Module.String()
	if oplibPath != "" {
		ir, err = linkLibrary(ir, unit.Externs, errOut)
		if err != nil {
			return err
		}
	}
	return writeOutput(filename, ir, out, errOut)
}

// linkLibrary replaces the extern declarations in ir with the definitions
// from the --oplib file.
func linkLibrary(ir string, externs []string, errOut io.Writer) (string, error) {
	f, err := os.Open(oplibPath)
	if err != nil {
		fmt.Fprintf(errOut, "epycc: error reading %s: %v\n", oplibPath, err)
		return "", err
	}
	defer f.Close()

	lib, err := oplib.LoadIR(f)
	if err != nil {
		fmt.Fprintf(errOut, "epycc: %s: %v\n", oplibPath, err)
		return "", err
	}
	logf(errOut, "linking %d of %d library functions from %s", len(externs), len(lib.Names()), oplibPath)

	linked, err := lib.Link(ir, externs)
	if err != nil {
		fmt.Fprintf(errOut, "epycc: %v\n", err)
		return "", err
	}
	return linked, nil
}

func writeOutput(filename, ir string, out, errOut io.Writer) error {
	if outputPath == "-" {
		fmt.Fprint(out, ir)
		return nil
	}
	outputFilename := outputPath
	if outputFilename == "" {
		outputFilename = replaceExt(filename, ".ll")
	}
	if err := os.WriteFile(outputFilename, []byte(ir), 0644); err != nil {
		fmt.Fprintf(errOut, "epycc: error creating %s: %v\n", outputFilename, err)
		return err
	}
	logf(errOut, "wrote %s", outputFilename)
	return nil
}

// doGenOplib writes the C source of every operation library function.
func doGenOplib(path string, errOut io.Writer) error {
	f, err := os.Create(path)
	if err != nil {
		fmt.Fprintf(errOut, "epycc: error creating %s: %v\n", path, err)
		return err
	}
	defer f.Close()

	catalog := oplib.Default()
	if err := oplib.WriteCSource(f, catalog); err != nil {
		fmt.Fprintf(errOut, "epycc: error writing %s: %v\n", path, err)
		return err
	}
	logf(errOut, "wrote %d library functions to %s", catalog.Len(), path)
	return nil
}

// replaceExt swaps a trailing .c for ext: input.c -> input.ll
func replaceExt(filename, ext string) string {
	return strings.TrimSuffix(filename, ".c") + ext
}
