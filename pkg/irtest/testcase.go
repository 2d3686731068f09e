// Package irtest reads code generation test cases from Markdown.
//
// A test case starts at a heading "Test: name" and holds one ```c fence
// with the translation unit, followed by assertion fences:
//
//	expect      lines that must each appear in the generated module
//	expect-not  lines that must not appear
//	externs     the exact library functions referenced, one per line
//	error       a substring of the expected generation error
package irtest

import (
	"bytes"
	"fmt"
	"slices"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// AssertionType is the language of an assertion fence.
type AssertionType string

const (
	Expect    AssertionType = "expect"
	ExpectNot AssertionType = "expect-not"
	Externs   AssertionType = "externs"
	Error     AssertionType = "error"
)

const sourceFence = "c"

type Assertion struct {
	Type  AssertionType
	Lines []string
}

// TestCase is one scenario extracted from a Markdown document.
type TestCase struct {
	Name       string
	Line       int
	Source     string
	Assertions []Assertion
}

// WantsError reports whether the case expects generation to fail.
func (tc TestCase) WantsError() bool {
	return slices.ContainsFunc(tc.Assertions, func(a Assertion) bool { return a.Type == Error })
}

// ExtractTestCases parses a Markdown document and returns its test cases in
// document order.
func ExtractTestCases(markdown string) ([]TestCase, error) {
	source := []byte(markdown)
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	var cases []TestCase
	var cur *TestCase
	flush := func() error {
		if cur == nil {
			return nil
		}
		if err := validate(cur); err != nil {
			return err
		}
		cases = append(cases, *cur)
		return nil
	}

	err := ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch n := node.(type) {
		case *ast.Heading:
			title := headingText(n, source)
			if !strings.HasPrefix(title, "Test: ") {
				return ast.WalkContinue, nil
			}
			if err := flush(); err != nil {
				return ast.WalkStop, err
			}
			cur = &TestCase{Name: strings.TrimPrefix(title, "Test: "), Line: lineNumber(n, source)}

		case *ast.FencedCodeBlock:
			lang := string(n.Language(source))
			line := lineNumber(n, source)
			if cur == nil {
				if lang != "" {
					return ast.WalkStop, fmt.Errorf("line %d: %s fence outside of a test case", line, lang)
				}
				return ast.WalkContinue, nil
			}
			content := strings.TrimRight(blockContent(n, source), "\n")
			switch {
			case lang == sourceFence:
				if cur.Source != "" {
					return ast.WalkStop, fmt.Errorf("line %d: multiple c fences in test %q", line, cur.Name)
				}
				cur.Source = content
			case isAssertion(lang):
				cur.Assertions = append(cur.Assertions, Assertion{Type: AssertionType(lang), Lines: splitLines(content)})
			case lang != "":
				return ast.WalkStop, fmt.Errorf("line %d: unknown fence language %q in test %q", line, lang, cur.Name)
			}
		}
		return ast.WalkContinue, nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking markdown: %w", err)
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return cases, nil
}

func isAssertion(lang string) bool {
	switch AssertionType(lang) {
	case Expect, ExpectNot, Externs, Error:
		return true
	}
	return false
}

func validate(tc *TestCase) error {
	if tc.Source == "" {
		return fmt.Errorf("test %q has no c fence", tc.Name)
	}
	if len(tc.Assertions) == 0 {
		return fmt.Errorf("test %q has no assertion fences", tc.Name)
	}
	if tc.WantsError() {
		for _, a := range tc.Assertions {
			if a.Type != Error {
				return fmt.Errorf("test %q mixes an error fence with %s", tc.Name, a.Type)
			}
		}
	}
	return nil
}

func splitLines(s string) []string {
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	return lines
}

func headingText(n ast.Node, source []byte) string {
	var buf bytes.Buffer
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if t, ok := c.(*ast.Text); ok && entering {
			buf.Write(t.Segment.Value(source))
		}
		return ast.WalkContinue, nil
	})
	return buf.String()
}

func blockContent(n *ast.FencedCodeBlock, source []byte) string {
	var buf bytes.Buffer
	for i := 0; i < n.Lines().Len(); i++ {
		line := n.Lines().At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}

func lineNumber(n ast.Node, source []byte) int {
	if n.Lines().Len() == 0 {
		return 1
	}
	start := n.Lines().At(0).Start
	return bytes.Count(source[:min(start, len(source))], []byte("\n")) + 1
}
