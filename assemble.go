package bbreflect

import (
	"fmt"

	"github.com/soypat/bbreflect/glbuild"
	"github.com/soypat/bbreflect/glbuild/glsllib"
)

// ReflectionCode is the GLSL generated for a fixed number of billboards and textures.
type ReflectionCode struct {
	// Uniforms declares the texture sampler array, the BillboardReflection
	// struct and the billboard uniform array.
	Uniforms string
	// Functions defines the reflection helpers in dependency order with the
	// per-billboard loop unrolled.
	Functions string
}

// AssembleReflectionCode composes the reflection snippets for billboardCount
// billboards sampling textureCount distinct textures. Texture references in
// Functions are emitted as billboardTextures[ i ] with i the billboard index
// and must be remapped to texture indices before use.
func AssembleReflectionCode(billboardCount, textureCount int) (ReflectionCode, error) {
	if billboardCount < 1 {
		return ReflectionCode{}, fmt.Errorf("billboard count must be positive, got %d", billboardCount)
	} else if textureCount < 1 || textureCount > billboardCount {
		return ReflectionCode{}, fmt.Errorf("texture count %d out of range [1, %d]", textureCount, billboardCount)
	}
	uniforms := glbuild.AppendExpanded(nil, glsllib.FragmentUniforms(),
		glbuild.IntPlaceholder(glsllib.TokenBillboardTextureCount, textureCount),
		glbuild.IntPlaceholder(glsllib.TokenBillboardCount, billboardCount),
	)

	functions, err := glbuild.AppendObjects(nil,
		glsllib.MipMapLevel(),
		glsllib.SRGBToRGBApprox(),
		glsllib.IntersectTriangle(),
		glsllib.BillboardReflection(),
	)
	if err != nil {
		return ReflectionCode{}, err
	}
	all := glsllib.AllBillboardReflections()
	err = all.Validate()
	if err != nil {
		return ReflectionCode{}, err
	}
	functions = glbuild.AppendExpanded(functions, all.AppendSource(nil),
		glbuild.IntPlaceholder(glsllib.TokenBillboardCount, billboardCount))
	functions = glbuild.AppendUnrolled(nil, functions)
	err = glbuild.CheckDeclarationOrder(functions)
	if err != nil {
		return ReflectionCode{}, err
	}
	return ReflectionCode{
		Uniforms:  string(uniforms),
		Functions: string(functions),
	}, nil
}
