// Package renderer turns derived portfolio views into markdown reports.
// It formats, it never computes: every number it prints was produced by
// the core and is rendered as-is.
package renderer

import (
	"bytes"
	"io"
	"slices"
)

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ConditionalBlock lets you fully write a block and decide at the end to print
// it or not. If the block function returns true, the content is copied to w,
// otherwise it is discarded.
func ConditionalBlock(w io.Writer, block func(io.Writer) bool) {
	bw := &bytes.Buffer{}
	if block(bw) {
		io.Copy(w, bw)
	}
}
