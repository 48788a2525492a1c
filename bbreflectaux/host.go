package bbreflectaux

import (
	"embed"
	"fmt"
	"path"
	"strings"

	"github.com/soypat/bbreflect"
	"github.com/soypat/bbreflect/glbuild"
)

//go:embed shaders/*.glsl
var shaderFS embed.FS

// Names of the defines set by the standard shader.
const (
	DefineStandard        = "STANDARD"
	DefineUseRoughnessMap = "USE_ROUGHNESSMAP"
)

// Names of the standard shader uniforms besides the built-in ones.
const (
	UniformDiffuse          = "diffuse"
	UniformRoughness        = "roughness"
	UniformEnvMapIntensity  = "envMapIntensity"
	UniformAmbientLight     = "ambientLightColor"
	UniformRoughnessMap     = "roughnessMap"
	UniformModelMatrix      = "modelMatrix"
	UniformViewMatrix       = "viewMatrix"
	UniformProjectionMatrix = "projectionMatrix"
	UniformNormalMatrix     = "normalMatrix"
	UniformCameraPosition   = "cameraPosition"
)

const (
	vertexTemplate   = "standard_vert"
	fragmentTemplate = "standard_frag"
)

func shaderSource(name string) string {
	b, err := shaderFS.ReadFile(path.Join("shaders", name+".glsl"))
	if err != nil {
		panic(err) // Embedded names are fixed at compile time.
	}
	return string(b)
}

// Chunks returns the include chunks referenced by the standard shader templates.
// The returned map is a fresh copy.
func Chunks() map[string]string {
	entries, _ := shaderFS.ReadDir("shaders")
	chunks := make(map[string]string, len(entries))
	for _, e := range entries {
		name := strings.TrimSuffix(e.Name(), ".glsl")
		if name == vertexTemplate || name == fragmentTemplate {
			continue
		}
		chunks[name] = shaderSource(name)
	}
	return chunks
}

// NewStandardShader returns a minimal lit material shader with the include anchors
// expected by [bbreflect.Registry.EnableReflection]. When roughnessMap is set the
// material samples roughness from a texture.
func NewStandardShader(roughnessMap bool) *bbreflect.Shader {
	sh := &bbreflect.Shader{
		VertexSource:   shaderSource(vertexTemplate),
		FragmentSource: shaderSource(fragmentTemplate),
		Defines:        map[string]string{DefineStandard: ""},
		Uniforms: map[string]*bbreflect.Uniform{
			UniformDiffuse:         {Value: [3]float32{0.1, 0.1, 0.1}},
			UniformRoughness:       {Value: float32(0.2)},
			UniformEnvMapIntensity: {Value: float32(1)},
			UniformAmbientLight:    {Value: [3]float32{0.3, 0.3, 0.3}},
		},
		RoughnessMap: roughnessMap,
	}
	if roughnessMap {
		sh.Defines[DefineUseRoughnessMap] = ""
	}
	return sh
}

const (
	glslVersion = "#version 330 core\n"

	vertexPrefix = `#define attribute in
#define varying out
#define texture2D texture
`
	vertexBuiltins = `uniform mat4 modelMatrix;
uniform mat4 viewMatrix;
uniform mat4 projectionMatrix;
uniform mat3 normalMatrix;
uniform vec3 cameraPosition;
attribute vec3 position;
attribute vec3 normal;
attribute vec2 uv;
`
	fragmentPrefix = `#define varying in
out vec4 pc_fragColor;
#define gl_FragColor pc_fragColor
#define texture2D texture
`
	fragmentBuiltins = `uniform mat4 viewMatrix;
uniform vec3 cameraPosition;
`
)

// ResolveProgram returns the complete vertex and fragment sources of sh as
// compiled by the GPU: the version and compatibility prefix, the shader defines
// in sorted order, built-in uniforms and attributes and finally the source
// with every #include resolved against [Chunks].
func ResolveProgram(sh *bbreflect.Shader) (vertex, fragment string, err error) {
	chunks := Chunks()
	vertex, err = resolveStage(sh.VertexSource, glslVersion+vertexPrefix, vertexBuiltins, sh.Defines, chunks)
	if err != nil {
		return "", "", fmt.Errorf("vertex shader: %w", err)
	}
	fragment, err = resolveStage(sh.FragmentSource, glslVersion+fragmentPrefix, fragmentBuiltins, sh.Defines, chunks)
	if err != nil {
		return "", "", fmt.Errorf("fragment shader: %w", err)
	}
	return vertex, fragment, nil
}

func resolveStage(src, prefix, builtins string, defines map[string]string, chunks map[string]string) (string, error) {
	body, err := glbuild.ResolveIncludes(src, chunks)
	if err != nil {
		return "", err
	}
	b := make([]byte, 0, len(prefix)+len(builtins)+len(body)+256)
	b = append(b, prefix...)
	b = glbuild.AppendDefines(b, defines)
	b = append(b, builtins...)
	b = append(b, '\n')
	b = append(b, body...)
	return string(b), nil
}
