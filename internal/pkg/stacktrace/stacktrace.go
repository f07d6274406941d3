// Package stacktrace shortens goroutine dumps to the frames owned by this module.
package stacktrace

import "strings"

// InternalPaths returns "internal/<pkg>/<file>.go:<line>" for every frame of
// debug.Stack output that points into an internal package, outermost last.
func InternalPaths(stack []byte) []string {
	var paths []string
	for line := range strings.Lines(string(stack)) {
		// file lines are tab-indented: "\t/abs/path/file.go:42 +0x1d"
		if !strings.HasPrefix(line, "\t") {
			continue
		}
		loc, _, _ := strings.Cut(strings.TrimSpace(line), " ")
		_, rel, found := strings.Cut(loc, "/internal/")
		if !found || !strings.Contains(rel, ".go:") {
			continue
		}
		paths = append(paths, "internal/"+rel)
	}
	return paths
}
