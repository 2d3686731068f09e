package oplib

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// WriteCSource writes one C function per catalog entry, e.g.
//
//	char add__char__char__char(char a, char b) { return (char) (a + b); }
//
// Compiling the result with a C99 compiler to LLVM IR produces the library
// that LoadIR reads.
func WriteCSource(w io.Writer, c *Catalog) error {
	bw := bufio.NewWriter(w)
	for _, sig := range c.sigs {
		params := make([]string, len(sig.Params))
		for i, p := range sig.Params {
			params[i] = fmt.Sprintf("%s %c", p, 'a'+i)
		}
		fmt.Fprintf(bw, "%s %s(%s) { return %s; }\n",
			sig.Result, sig.Name, strings.Join(params, ", "), sig.Body)
	}
	return bw.Flush()
}
