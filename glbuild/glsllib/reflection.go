// Package glsllib embeds the GLSL snippets used to add billboard reflections
// to a host shader program.
//
// Function snippets are returned as [glbuild.ShaderObject] and must be written
// in the order [MipMapLevel], [SRGBToRGBApprox], [IntersectTriangle],
// [BillboardReflection], [AllBillboardReflections] since each one calls
// functions defined by the ones before it.
package glsllib

import (
	_ "embed"

	"github.com/soypat/bbreflect/glbuild"
)

// Placeholder tokens present in templates. Substituted with [glbuild.AppendExpanded].
const (
	TokenBillboardCount        = "BILLBOARD_COUNT"
	TokenBillboardTextureCount = "BILLBOARD_TEXTURE_COUNT"
)

// Defines read by the snippets.
const (
	DefineRoughnessBlur          = "REFLECTION_ROUGHNESS_BLUR"
	DefineRoughnessBlurIntensity = "REFLECTION_ROUGHNESS_MAP_BLUR_INTENSITY"
	DefineSelfIntersectEpsilon   = "REFLECTION_SELF_INTERSECT_EPSILON"
	DefineOpacityExponent        = "REFLECTION_OPACITY_EXPONENT"
)

// Uniform names declared by [FragmentUniforms].
const (
	UniformTextures    = "billboardTextures"
	UniformReflections = "billboardReflections"
)

//go:embed mip_map_level.glsl
var mipMapLevelSrc []byte

// MipMapLevel estimates the sampled mip level from screen-space derivatives:
//
//	float mip_map_level(in vec2 texture_coordinate)
func MipMapLevel() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(mipMapLevelSrc)
	return obj
}

//go:embed srgb_to_rgb_approx.glsl
var srgbSrc []byte

// SRGBToRGBApprox is a gamma 2.2 approximation of the sRGB to linear conversion:
//
//	vec3 srgb_to_rgb_approx(vec3 srgb)
func SRGBToRGBApprox() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(srgbSrc)
	return obj
}

//go:embed intersect_triangle.glsl
var intersectTriangleSrc []byte

// IntersectTriangle is a determinant based ray-triangle intersection returning barycentrics and ray parameter:
//
//	vec3 intersectTriangle(vec3 rayOrig, vec3 rayDir, vec3 vector0, vec3 vector1, vec3 vector2)
func IntersectTriangle() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(intersectTriangleSrc)
	return obj
}

//go:embed billboard_reflection.glsl
var billboardReflectionSrc []byte

// BillboardReflection computes the reflected color of a single billboard:
//
//	vec4 computeBillboardReflection(vec3 wPos, vec3 wReflectVec, inout float shortestOpaqueBillboardDistance,
//		float roughnessValue, mat4 matrixWorld, sampler2D tBillboard, vec3 color, float rayFalloff, float opacity)
func BillboardReflection() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(billboardReflectionSrc)
	return obj
}

//go:embed all_billboard_reflections.glsl
var allBillboardReflectionsSrc []byte

// AllBillboardReflections blends the reflections of every billboard. The returned
// object still contains the [TokenBillboardCount] placeholder and an unroll region.
//
//	vec4 computeAllBillboardReflections(vec3 wPos, vec3 wReflectVec, float roughnessValue, float envMapIntensity)
func AllBillboardReflections() glbuild.ShaderObject {
	obj, _ := glbuild.MakeShaderFunction(allBillboardReflectionsSrc)
	return obj
}

//go:embed varying.glsl
var varyingSrc string

// Varying returns the varying declarations shared by the vertex and fragment stages.
func Varying() string { return varyingSrc }

//go:embed vertex.glsl
var vertexSrc string

// VertexCode returns the vertex statements that assign the varyings. Must be placed after the vertex is projected.
func VertexCode() string { return vertexSrc }

//go:embed fragment_uniforms.glsl
var fragmentUniformsSrc []byte

// FragmentUniforms returns the uniform declaration template. It contains the
// [TokenBillboardCount] and [TokenBillboardTextureCount] placeholders.
func FragmentUniforms() []byte {
	return append([]byte{}, fragmentUniformsSrc...) // copy contents.
}

//go:embed lights_fragment_maps.glsl
var lightsFragmentMapsSrc string

// LightsFragmentMaps returns the indirect lighting block that blends billboard
// reflections into the outgoing radiance. It references the identifiers
// roughnessFactor and envMapIntensity which may be substituted by constants.
func LightsFragmentMaps() string { return lightsFragmentMapsSrc }
