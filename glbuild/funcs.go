package glbuild

import (
	"fmt"
	"regexp"
)

// Matches the start of a function header: "<type> <name>(" at the beginning of a line.
var funcHeaderPattern = regexp.MustCompile(`(?m)^[ \t]*([A-Za-z_]\w*)[ \t]+([A-Za-z_]\w*)[ \t]*\(`)

// GLSL keywords that can lead a line in the same shape as a function header.
var notFuncHeader = map[string]bool{
	"return": true, "else": true, "if": true, "for": true, "while": true,
	"switch": true, "case": true, "do": true, "discard": true,
}

type funcDef struct {
	name    []byte
	nameOff int
}

func appendFuncDefs(dst []funcDef, src []byte) []funcDef {
	for _, m := range funcHeaderPattern.FindAllSubmatchIndex(src, -1) {
		typ := string(src[m[2]:m[3]])
		name := src[m[4]:m[5]]
		if notFuncHeader[typ] || notFuncHeader[string(name)] {
			continue
		}
		dst = append(dst, funcDef{name: name, nameOff: m[4]})
	}
	return dst
}

// ParseFunctionName returns the name of the first function defined in src or nil if none is found.
func ParseFunctionName(src []byte) []byte {
	defs := appendFuncDefs(nil, src)
	if len(defs) == 0 {
		return nil
	}
	return defs[0].name
}

// CheckDeclarationOrder checks that every function defined in src is defined
// before its first use. GLSL requires functions be declared before they are called.
func CheckDeclarationOrder(src []byte) error {
	defs := appendFuncDefs(nil, src)
	checked := make(map[string]bool, len(defs))
	for _, def := range defs {
		name := string(def.name)
		if checked[name] {
			continue // Overload.
		}
		checked[name] = true
		use := regexp.MustCompile(`\b` + regexp.QuoteMeta(name) + `\s*\(`)
		first := use.FindIndex(src)
		if first != nil && first[0] < def.nameOff {
			return fmt.Errorf("function %q used at offset %d before definition at offset %d", name, first[0], def.nameOff)
		}
	}
	return nil
}
