package glbuild

import "strings"

// InsertAfter returns src with code inserted on a new line after the first
// occurrence of anchor. If anchor is not found src is returned unchanged and found is false.
func InsertAfter(src, anchor, code string) (result string, found bool) {
	idx := strings.Index(src, anchor)
	if idx < 0 || anchor == "" {
		return src, false
	}
	end := idx + len(anchor)
	var sb strings.Builder
	sb.Grow(len(src) + len(code) + 1)
	sb.WriteString(src[:end])
	sb.WriteByte('\n')
	sb.WriteString(code)
	sb.WriteString(src[end:])
	return sb.String(), true
}

// ReplaceAnchor returns src with the first occurrence of anchor replaced by code.
// If anchor is not found src is returned unchanged and found is false.
func ReplaceAnchor(src, anchor, code string) (result string, found bool) {
	if anchor == "" || !strings.Contains(src, anchor) {
		return src, false
	}
	return strings.Replace(src, anchor, code, 1), true
}
