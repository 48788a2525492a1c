//go:build !tinygo && cgo

package gleval

import (
	"fmt"
	"strings"

	"github.com/soypat/glgl/v4.6-core/glgl"
)

// Init1x1GLFW starts a 1x1 sized GLFW window so that user can start working with the GPU.
// It returns a termination function that should be called when user is done running loads on GPU.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "compile",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// Program is a linked GPU shader program.
type Program struct {
	prog glgl.Program
}

// CompileProgram compiles and links vertex and fragment GLSL sources. A GL context
// must be current on the calling thread, see [Init1x1GLFW].
func CompileProgram(vertex, fragment string) (Program, error) {
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   nullTerminated(vertex),
		Fragment: nullTerminated(fragment),
	})
	if err != nil {
		return Program{}, fmt.Errorf("compiling reflection program: %w", err)
	}
	return Program{prog: prog}, nil
}

// ID returns the GL program name.
func (p Program) ID() uint32 { return p.prog.ID() }

// Bind installs the program as part of the current rendering state.
func (p Program) Bind() { p.prog.Bind() }

// Delete frees the program.
func (p Program) Delete() { p.prog.Delete() }

func nullTerminated(s string) string {
	if strings.HasSuffix(s, "\x00") {
		return s
	}
	return s + "\x00"
}
