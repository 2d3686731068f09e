package irtest

import (
	"os"
	"strings"
	"testing"

	"github.com/raymyers/epycc/pkg/irgen"
)

func TestCodegenScenarios(t *testing.T) {
	content, err := os.ReadFile("../../testdata/codegen.md")
	if err != nil {
		t.Fatalf("failed to read codegen.md: %v", err)
	}
	cases, err := ExtractTestCases(string(content))
	if err != nil {
		t.Fatalf("failed to extract test cases: %v", err)
	}
	if len(cases) == 0 {
		t.Fatal("no test cases in codegen.md")
	}

	for _, tc := range cases {
		t.Run(tc.Name, func(t *testing.T) {
			if failures := Run(tc, irgen.Options{}); len(failures) > 0 {
				t.Errorf("codegen.md:%d:\n%s", tc.Line, strings.Join(failures, "\n"))
			}
		})
	}
}
