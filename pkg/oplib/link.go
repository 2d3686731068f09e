package oplib

import (
	"bufio"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strings"
)

// Library holds the precompiled IR definitions of operation functions,
// keyed by function name.
type Library struct {
	defs map[string][]string
}

var (
	defineName = regexp.MustCompile(`^define\b[^@]*@([^(\s]+)\(`)
	attrGroup  = regexp.MustCompile(`\s#\d+\s*\{$`)
)

// LoadIR extracts every function definition from LLVM assembly text, such
// as a compiler's IR output for the source written by WriteCSource.
// Attribute group references are dropped from the define lines so the
// definitions can be spliced into a module that lacks those groups.
func LoadIR(r io.Reader) (*Library, error) {
	lib := &Library{defs: make(map[string][]string)}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var name string
	var body []string
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if body == nil {
			m := defineName.FindStringSubmatch(line)
			if m == nil || !strings.HasSuffix(line, "{") {
				continue
			}
			name = m[1]
			body = []string{attrGroup.ReplaceAllString(line, " {")}
			continue
		}
		body = append(body, line)
		if line == "}" {
			lib.defs[name] = body
			name, body = "", nil
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if body != nil {
		return nil, fmt.Errorf("unterminated definition of @%s", name)
	}
	return lib, nil
}

// Has reports whether the library defines name.
func (l *Library) Has(name string) bool {
	_, ok := l.defs[name]
	return ok
}

// Names returns the defined function names in sorted order.
func (l *Library) Names() []string {
	names := make([]string, 0, len(l.defs))
	for n := range l.defs {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Link replaces the declaration of each named function in module with its
// library definition. Every name must be declared in module and defined in
// the library.
func (l *Library) Link(module string, names []string) (string, error) {
	lines := strings.Split(module, "\n")
	want := make(map[string]bool, len(names))
	for _, n := range names {
		if !l.Has(n) {
			return "", fmt.Errorf("operation library has no definition of @%s", n)
		}
		want[n] = true
	}

	out := make([]string, 0, len(lines))
	linked := make(map[string]bool, len(names))
	for _, line := range lines {
		if strings.HasPrefix(line, "declare ") {
			if n := declaredName(line); want[n] {
				out = append(out, l.defs[n]...)
				linked[n] = true
				continue
			}
		}
		out = append(out, line)
	}
	for _, n := range names {
		if !linked[n] {
			return "", fmt.Errorf("@%s is not declared in the module", n)
		}
	}
	return strings.Join(out, "\n"), nil
}

func declaredName(line string) string {
	at := strings.IndexByte(line, '@')
	if at < 0 {
		return ""
	}
	rest := line[at+1:]
	if end := strings.IndexByte(rest, '('); end >= 0 {
		return rest[:end]
	}
	return ""
}
