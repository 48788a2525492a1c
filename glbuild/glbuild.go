// Package glbuild implements the text-level building blocks used to compose
// GLSL source: snippet objects, placeholder expansion, loop unrolling,
// anchor splicing, include resolution and numeric literal formatting.
package glbuild

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strconv"
)

// ShaderObject is a handle to a GLSL snippet that defines a single named function
// plus any global declarations it requires (constants, preprocessor guards).
type ShaderObject struct {
	// NamePtr is the name of the GLSL function the snippet defines.
	// Other snippets reference the function by this name.
	NamePtr []byte

	funcSource []byte
}

// MakeShaderFunction parses the name of the first function defined in shaderDef
// and returns a [ShaderObject] wrapping the snippet. Leading comments,
// preprocessor lines and global declarations are allowed before the function.
func MakeShaderFunction(shaderDef []byte) (sf ShaderObject, err error) {
	shaderDef = bytes.TrimSpace(shaderDef)
	name := ParseFunctionName(shaderDef)
	if len(name) == 0 {
		return ShaderObject{}, errors.New("unable to parse function name")
	}
	sf = ShaderObject{
		NamePtr:    name,
		funcSource: shaderDef,
	}
	return sf, nil
}

// AppendSource appends the snippet source surrounded by newlines to dst.
func (obj ShaderObject) AppendSource(dst []byte) []byte {
	dst = append(dst, '\n')
	dst = append(dst, obj.funcSource...)
	dst = append(dst, '\n')
	return dst
}

// Validate returns an error if obj has no name or no source.
func (obj ShaderObject) Validate() error {
	if len(obj.NamePtr) == 0 {
		return errors.New("shader object zero-length name")
	} else if len(obj.funcSource) == 0 {
		return fmt.Errorf("shader object %q has no source", obj.NamePtr)
	}
	return nil
}

// AppendObjects appends the source of all objects to dst in argument order.
// Objects must be ordered so that a function is defined before the functions that call it.
func AppendObjects(dst []byte, objs ...ShaderObject) ([]byte, error) {
	for i := range objs {
		err := objs[i].Validate()
		if err != nil {
			return dst, err
		}
		dst = objs[i].AppendSource(dst)
	}
	return dst, nil
}

// Placeholder is a literal token in a template that is substituted by Value on expansion.
type Placeholder struct {
	Token string
	Value string
}

// IntPlaceholder returns a placeholder substituting token with the decimal representation of v.
func IntPlaceholder(token string, v int) Placeholder {
	return Placeholder{Token: token, Value: strconv.Itoa(v)}
}

// AppendExpanded appends tmpl to dst with every occurrence of each placeholder
// token replaced by its value. Placeholders are applied in argument order so
// a token contained in a longer token must be listed after it.
func AppendExpanded(dst, tmpl []byte, placeholders ...Placeholder) []byte {
	if len(placeholders) == 0 {
		return append(dst, tmpl...)
	}
	expanded := tmpl
	for _, ph := range placeholders {
		if ph.Token == "" {
			continue
		}
		expanded = bytes.ReplaceAll(expanded, []byte(ph.Token), []byte(ph.Value))
	}
	return append(dst, expanded...)
}

// AppendDefineDecl appends a #define line. An empty aliasReplace emits a bare define.
func AppendDefineDecl(b []byte, aliasToDefine, aliasReplace string) []byte {
	b = append(b, "#define "...)
	b = append(b, aliasToDefine...)
	if aliasReplace != "" {
		b = append(b, ' ')
		b = append(b, aliasReplace...)
	}
	b = append(b, '\n')
	return b
}

// AppendDefines appends a #define line for every entry of defines sorted by name
// so that output is deterministic.
func AppendDefines(b []byte, defines map[string]string) []byte {
	names := make([]string, 0, len(defines))
	for name := range defines {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		b = AppendDefineDecl(b, name, defines[name])
	}
	return b
}

// AppendFixed appends v formatted with exactly prec decimals. The result is
// always a valid GLSL float literal for prec > 0.
func AppendFixed(b []byte, v float32, prec int) []byte {
	return strconv.AppendFloat(b, float64(v), 'f', prec, 32)
}

// FormatFixed returns v formatted with exactly prec decimals.
func FormatFixed(v float32, prec int) string {
	return string(AppendFixed(nil, v, prec))
}

// AppendFloat appends the shortest GLSL float literal that represents v exactly,
// using exponent notation for very small or large magnitudes.
func AppendFloat(b []byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'g', -1, 32)
	if bytes.IndexAny(b[start:], ".eEIN") < 0 {
		b = append(b, '.')
	}
	return b
}

// FormatFloat returns v as a GLSL float literal. See [AppendFloat].
func FormatFloat(v float32) string {
	return string(AppendFloat(nil, v))
}
