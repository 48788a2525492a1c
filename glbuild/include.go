package glbuild

import (
	"fmt"
	"regexp"
)

var includePattern = regexp.MustCompile(`(?m)^[ \t]*#include +<([\w./]+)>`)

const maxIncludeDepth = 16

// ResolveIncludes expands every line of the form "#include <name>" with
// chunks[name], recursively. An unknown chunk name or an include cycle returns an error.
func ResolveIncludes(src string, chunks map[string]string) (string, error) {
	return resolveIncludes(src, chunks, 0)
}

func resolveIncludes(src string, chunks map[string]string, depth int) (string, error) {
	if depth > maxIncludeDepth {
		return "", fmt.Errorf("include depth exceeded %d, likely an include cycle", maxIncludeDepth)
	}
	matches := includePattern.FindAllStringSubmatchIndex(src, -1)
	if len(matches) == 0 {
		return src, nil
	}
	dst := make([]byte, 0, len(src))
	last := 0
	for _, m := range matches {
		dst = append(dst, src[last:m[0]]...)
		name := src[m[2]:m[3]]
		chunk, ok := chunks[name]
		if !ok {
			return "", fmt.Errorf("can not resolve #include <%s>", name)
		}
		resolved, err := resolveIncludes(chunk, chunks, depth+1)
		if err != nil {
			return "", fmt.Errorf("in <%s>: %w", name, err)
		}
		dst = append(dst, resolved...)
		last = m[1]
	}
	dst = append(dst, src[last:]...)
	return string(dst), nil
}
