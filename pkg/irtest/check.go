package irtest

import (
	"fmt"
	"slices"
	"strings"

	"github.com/raymyers/epycc/pkg/irgen"
	"github.com/raymyers/epycc/pkg/lexer"
	"github.com/raymyers/epycc/pkg/parser"
)

// Run parses and generates the test case source and returns one message
// per failed assertion.
func Run(tc TestCase, opts irgen.Options) []string {
	p := parser.New(lexer.New(tc.Source))
	prog := p.ParseProgram()
	if errs := p.Errors(); len(errs) > 0 {
		return []string{fmt.Sprintf("parse errors: %s", strings.Join(errs, "; "))}
	}
	unit, err := irgen.Generate(prog, opts)
	if err != nil {
		return Check(tc, "", nil, err)
	}
	return Check(tc, unit.Module.String(), unit.Externs, nil)
}

// Check compares generation results against the assertions of tc.
func Check(tc TestCase, module string, externs []string, err error) []string {
	var failures []string
	if err != nil && !tc.WantsError() {
		return []string{fmt.Sprintf("unexpected error: %v", err)}
	}
	if err == nil && tc.WantsError() {
		return []string{"expected an error, got module:\n" + module}
	}

	for _, a := range tc.Assertions {
		switch a.Type {
		case Error:
			for _, want := range a.Lines {
				if !strings.Contains(err.Error(), want) {
					failures = append(failures, fmt.Sprintf("error %q does not contain %q", err, want))
				}
			}
		case Expect:
			for _, want := range a.Lines {
				if !containsLine(module, want) {
					failures = append(failures, fmt.Sprintf("module has no line containing %q", want))
				}
			}
		case ExpectNot:
			for _, bad := range a.Lines {
				if containsLine(module, bad) {
					failures = append(failures, fmt.Sprintf("module has a line containing %q", bad))
				}
			}
		case Externs:
			got := slices.Clone(externs)
			want := slices.Clone(a.Lines)
			slices.Sort(got)
			slices.Sort(want)
			if !slices.Equal(got, want) {
				failures = append(failures, fmt.Sprintf("externs = %v, want %v", got, want))
			}
		}
	}
	if len(failures) > 0 {
		failures = append(failures, "module:\n"+module)
	}
	return failures
}

func containsLine(module, want string) bool {
	for _, line := range strings.Split(module, "\n") {
		if strings.Contains(strings.TrimSpace(line), want) {
			return true
		}
	}
	return false
}
