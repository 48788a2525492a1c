package gleval

import (
	math "github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

const (
	defaultBlurIntensity = 0.85
	defaultSelfIntersect = 0.001
)

// BillboardReflection returns the color reflected off bb along frag.Reflect.
// shortestOpaque is the distance along the ray to the nearest fully opaque
// billboard hit so far and is updated when bb is hit fully opaque and closer.
// Returns transparent black on a miss or when occluded.
func (cfg *ShadingConfig) BillboardReflection(frag Fragment, shortestOpaque *float32, roughness float32, bb Billboard) (reflectClr RGBA) {
	v0, v1, v2 := Corners(bb.MatrixWorld)
	uvt := IntersectTriangle(frag.Position, frag.Reflect, v2, v0, v1)
	if *shortestOpaque <= uvt.Z {
		return reflectClr
	}
	if !(uvt.X > 0 && uvt.X < 1 && uvt.Y > 0 && uvt.Y < 1) {
		return reflectClr
	}
	eps := cfg.SelfIntersectEpsilon
	if eps == 0 {
		eps = defaultSelfIntersect
	}
	if uvt.Z <= eps {
		return reflectClr
	}
	uv := ms2.Vec{X: uvt.X, Y: uvt.Y}
	var lod float32
	if cfg.RoughnessBlur {
		w, h := bb.Texture.Size()
		texSize := ms2.Vec{X: float32(w), Y: float32(h)}
		mip := cfg.mipLevel(frag, uv, texSize, v0, v1, v2)
		pixels := float32(max(w, h))
		pixels *= pixels
		intensity := float32(defaultBlurIntensity)
		if cfg.BlurIntensity != nil {
			intensity = *cfg.BlurIntensity
		}
		scale := math.Log2(pixels) * intensity
		lod = max(mip, roughness*scale)
	}
	texClr := bb.Texture.SampleLod(uv, lod)
	if bb.Opacity != 1 {
		if cfg.OpacityExponent != 0 {
			texClr.A *= math.Pow(bb.Opacity, cfg.OpacityExponent)
		} else {
			texClr.A *= math.Sqrt(bb.Opacity)
		}
	}
	if bb.RayFalloff != 0 {
		rayToCamera := ms3.Norm(ms3.Sub(cfg.CameraPosition, frag.Position))
		texClr.A *= min(1, 1/(rayToCamera*bb.RayFalloff))
	}
	if texClr.A == 1 {
		*shortestOpaque = uvt.Z
	}
	linear := ms3.MulElem(SRGBToLinearApprox(texClr.rgb()), bb.Color)
	return rgba(linear, 1).Scale(texClr.A * (1 - roughness*roughness))
}

// mipLevel estimates the level of detail from the texel space change of the hit
// coordinates between frag and its neighbors. Without neighbors it returns -Inf
// which selects the base level.
func (cfg *ShadingConfig) mipLevel(frag Fragment, uv, texSize ms2.Vec, v0, v1, v2 ms3.Vec) float32 {
	texel := ms2.MulElem(uv, texSize)
	derivative := func(neighbor *Fragment) ms2.Vec {
		if neighbor == nil {
			return ms2.Vec{}
		}
		n := IntersectTriangle(neighbor.Position, neighbor.Reflect, v2, v0, v1)
		return ms2.Sub(ms2.MulElem(ms2.Vec{X: n.X, Y: n.Y}, texSize), texel)
	}
	return MipMapLevel(derivative(frag.Dx), derivative(frag.Dy))
}

// AllBillboardReflections blends the reflections of billboards in order and scales
// the result by envMapIntensity. Billboards with zero opacity are skipped.
func (cfg *ShadingConfig) AllBillboardReflections(frag Fragment, roughness, envMapIntensity float32, billboards []Billboard) RGBA {
	var reflectClr RGBA
	roughness = min(max(roughness, 0), 1)
	var shortestOpaque float32 = maxFloat32
	for i := range billboards {
		if billboards[i].Opacity == 0 {
			continue
		}
		current := cfg.BillboardReflection(frag, &shortestOpaque, roughness, billboards[i])
		reflectClr = mix(reflectClr, current, current.A)
	}
	return reflectClr.Scale(envMapIntensity)
}

// Evaluate computes AllBillboardReflections for every fragment in frags and stores
// the results in dst. roughness holds the per-fragment roughness.
func (cfg *ShadingConfig) Evaluate(dst []RGBA, frags []Fragment, roughness []float32, envMapIntensity float32, billboards []Billboard) error {
	if len(dst) != len(frags) || len(frags) != len(roughness) {
		return errMismatchBufferLength
	} else if len(dst) == 0 {
		return errEmptyBuffers
	}
	for i := range frags {
		dst[i] = cfg.AllBillboardReflections(frags[i], roughness[i], envMapIntensity, billboards)
	}
	return nil
}
