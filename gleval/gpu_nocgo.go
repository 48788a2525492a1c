//go:build tinygo || !cgo

package gleval

import (
	"errors"
)

var errNoCGO = errors.New("GPU programs require CGo and are not supported on TinyGo")

// Init1x1GLFW returns an error since GPU support requires CGo.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

type Program struct{}

// CompileProgram returns an error since GPU support requires CGo.
func CompileProgram(vertex, fragment string) (Program, error) {
	return Program{}, errNoCGO
}

func (p Program) ID() uint32 { return 0 }

func (p Program) Bind() {}

func (p Program) Delete() {}
