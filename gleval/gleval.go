// Package gleval evaluates the billboard reflection GLSL functions on the CPU
// and compiles generated programs on the GPU.
//
// The CPU functions follow the structure and float32 numerics of the GLSL in
// package glsllib so that shading results can be tested and rendered without a GPU.
package gleval

import (
	"errors"

	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("fragment and color buffer length mismatch")
)

// maxFloat32 is the GLSL FLT_MAX literal used to initialize the opaque hit distance.
const maxFloat32 = 3.402823466e+38

// RGBA is a color with components in [0,1]. Alpha is not premultiplied.
type RGBA struct {
	R, G, B, A float32
}

func (c RGBA) rgb() ms3.Vec { return ms3.Vec{X: c.R, Y: c.G, Z: c.B} }

func rgba(rgb ms3.Vec, a float32) RGBA { return RGBA{R: rgb.X, G: rgb.Y, B: rgb.Z, A: a} }

func (c RGBA) Scale(f float32) RGBA {
	return RGBA{R: c.R * f, G: c.G * f, B: c.B * f, A: c.A * f}
}

// mix is the GLSL mix function for vec4.
func mix(a, b RGBA, t float32) RGBA {
	return RGBA{
		R: a.R + (b.R-a.R)*t,
		G: a.G + (b.G-a.G)*t,
		B: a.B + (b.B-a.B)*t,
		A: a.A + (b.A-a.A)*t,
	}
}

// Sampler is a mip-mapped texture.
type Sampler interface {
	// Size returns the dimensions of the base level in texels.
	Size() (width, height int)
	// SampleLod returns the filtered color at texture coordinate uv for level of detail lod.
	// uv (0,0) is the bottom left corner of the image.
	SampleLod(uv ms2.Vec, lod float32) RGBA
}

// Billboard holds the per-billboard uniform values read by the reflection functions.
type Billboard struct {
	MatrixWorld ms3.Mat4
	Texture     Sampler
	Color       ms3.Vec
	RayFalloff  float32
	Opacity     float32
}

// Fragment is the shading input of a single fragment.
type Fragment struct {
	// Position is the world position of the fragment.
	Position ms3.Vec
	// Reflect is the world space reflection vector. It need not be normalized.
	Reflect ms3.Vec
	// Dx and Dy if not nil are the neighboring fragments one pixel along x and y.
	// They stand in for dFdx and dFdy when selecting the texture level of detail.
	Dx, Dy *Fragment
}

// ShadingConfig holds the compile time values of the reflection functions.
// The zero value matches the defaults of the generated GLSL.
type ShadingConfig struct {
	CameraPosition ms3.Vec
	// RoughnessBlur enables blurring reflections by sampling coarser mip levels with roughness.
	RoughnessBlur bool
	// BlurIntensity scales roughness blur. If nil 0.85 is used.
	BlurIntensity *float32
	// SelfIntersectEpsilon discards hits closer than it along the ray. Zero means 0.001.
	SelfIntersectEpsilon float32
	// OpacityExponent is applied to billboard opacity. Zero means square root.
	OpacityExponent float32
}

// IntersectTriangle returns (u, v, t) of the ray orig+t*dir against the plane of the
// triangle v0, v1, v2 where u and v are the barycentric coordinates along v1-v0 and v2-v0.
// A ray parallel to the plane yields non-finite values.
func IntersectTriangle(orig, dir, v0, v1, v2 ms3.Vec) ms3.Vec {
	e0 := ms3.Sub(v1, v0)
	e1 := ms3.Sub(v2, v0)
	pVec := ms3.Cross(dir, e1)
	det := ms3.Dot(e0, pVec)
	invDet := 1 / det
	tVec := ms3.Sub(orig, v0)
	u := ms3.Dot(tVec, pVec) * invDet
	qVec := ms3.Cross(tVec, e0)
	v := ms3.Dot(dir, qVec) * invDet
	t := ms3.Dot(e1, qVec) * invDet
	return ms3.Vec{X: u, Y: v, Z: t}
}

// MipMapLevel returns the level of detail for texel space derivatives dx and dy.
func MipMapLevel(dx, dy ms2.Vec) float32 {
	deltaMaxSqr := max(ms2.Dot(dx, dx), ms2.Dot(dy, dy))
	return 0.5 * math.Log2(deltaMaxSqr)
}

// SRGBToLinearApprox converts an sRGB color to linear with a 2.2 gamma approximation.
func SRGBToLinearApprox(c ms3.Vec) ms3.Vec {
	const gamma = 2.2
	return ms3.Vec{X: math.Pow(c.X, gamma), Y: math.Pow(c.Y, gamma), Z: math.Pow(c.Z, gamma)}
}

// LinearToSRGBApprox is the inverse of [SRGBToLinearApprox].
func LinearToSRGBApprox(c ms3.Vec) ms3.Vec {
	const invGamma = 1 / 2.2
	return ms3.Vec{X: math.Pow(c.X, invGamma), Y: math.Pow(c.Y, invGamma), Z: math.Pow(c.Z, invGamma)}
}

// mulPosition transforms p by m as a point without the perspective divide,
// matching (m * vec4(p, 1.)).xyz in GLSL.
func mulPosition(m ms3.Mat4, p ms3.Vec) ms3.Vec {
	a := m.Array() // Row major.
	return ms3.Vec{
		X: a[0]*p.X + a[1]*p.Y + a[2]*p.Z + a[3],
		Y: a[4]*p.X + a[5]*p.Y + a[6]*p.Z + a[7],
		Z: a[8]*p.X + a[9]*p.Y + a[10]*p.Z + a[11],
	}
}

// Corners returns the world space corners of the billboard quad used for intersection.
// The quad spans the parallelogram v2 + u*(v0-v2) + v*(v1-v2) for u, v in (0,1).
func Corners(matrixWorld ms3.Mat4) (v0, v1, v2 ms3.Vec) {
	v0 = mulPosition(matrixWorld, ms3.Vec{X: 1, Y: 0, Z: 1})
	v1 = mulPosition(matrixWorld, ms3.Vec{X: -1, Y: 0, Z: -1})
	v2 = mulPosition(matrixWorld, ms3.Vec{X: -1, Y: 0, Z: 1})
	return v0, v1, v2
}
