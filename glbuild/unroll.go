package glbuild

import (
	"bytes"
	"regexp"
	"strconv"
)

// UnrolledLoopIndex is replaced by the literal iteration index in unrolled loop bodies.
const UnrolledLoopIndex = "UNROLLED_LOOP_INDEX"

// Same region syntax accepted by the host engine's own preprocessor.
var (
	unrollLoopPattern = regexp.MustCompile(`#pragma unroll_loop_start\s+for\s*\(\s*int\s+i\s*=\s*(\d+)\s*;\s*i\s*<\s*(\d+)\s*;\s*i\s*\+\+\s*\)\s*\{([\s\S]+?)\}\s+#pragma unroll_loop_end`)
	unrollIndexPattern = regexp.MustCompile(`\[\s*i\s*\]`)
)

// UnrollLoops returns src with every unroll region expanded. See [AppendUnrolled].
func UnrollLoops(src string) string {
	return string(AppendUnrolled(nil, []byte(src)))
}

// AppendUnrolled appends src to dst with every region of the form
//
//	#pragma unroll_loop_start
//	for ( int i = START; i < END; i ++ ) { BODY }
//	#pragma unroll_loop_end
//
// replaced by BODY repeated END-START times. In each copy "[i]" (any inner spacing)
// becomes "[ N ]" and [UnrolledLoopIndex] becomes N where N is the iteration index.
// Text outside of regions is copied unchanged. Regions where START >= END expand to nothing.
// Nested regions are not supported.
func AppendUnrolled(dst, src []byte) []byte {
	matches := unrollLoopPattern.FindAllSubmatchIndex(src, -1)
	last := 0
	for _, m := range matches {
		dst = append(dst, src[last:m[0]]...)
		start, err1 := strconv.Atoi(string(src[m[2]:m[3]]))
		end, err2 := strconv.Atoi(string(src[m[4]:m[5]]))
		if err1 != nil || err2 != nil {
			// Bounds overflowing int; leave region untouched.
			dst = append(dst, src[m[0]:m[1]]...)
			last = m[1]
			continue
		}
		body := src[m[6]:m[7]]
		for i := start; i < end; i++ {
			dst = appendLoopIteration(dst, body, i)
		}
		last = m[1]
	}
	return append(dst, src[last:]...)
}

func appendLoopIteration(dst, body []byte, i int) []byte {
	var idx [24]byte
	n := strconv.AppendInt(idx[:0], int64(i), 10)
	bracketed := make([]byte, 0, len(n)+4)
	bracketed = append(bracketed, "[ "...)
	bracketed = append(bracketed, n...)
	bracketed = append(bracketed, " ]"...)
	iteration := unrollIndexPattern.ReplaceAllLiteral(body, bracketed)
	iteration = bytes.ReplaceAll(iteration, []byte(UnrolledLoopIndex), n)
	return append(dst, iteration...)
}
