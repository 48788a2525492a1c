package bbreflect

import (
	"github.com/soypat/geometry/ms3"
)

var white = ms3.Vec{X: 1, Y: 1, Z: 1}

// Billboard describes a textured quad that is reflected by materials bound with
// [Registry.EnableReflection]. The quad is the unit square spanning
// [-1,1]×{0}×[-1,1] in model space transformed by MatrixWorld.
//
// Billboards are created by a [Registry] and live as long as it does.
type Billboard struct {
	// RayFalloff fades the reflection with camera distance. Zero disables the fade.
	RayFalloff float32
	// Visible gates the billboard. When false the billboard reads as fully transparent.
	Visible bool

	texture     Texture
	matrixWorld Property[ms3.Mat4]
	color       Property[ms3.Vec]
	opacity     Property[float32]
}

// Texture returns the texture handle the billboard was created with.
func (b *Billboard) Texture() Texture { return b.texture }

// MatrixWorld returns the current world transform of the billboard.
func (b *Billboard) MatrixWorld() ms3.Mat4 { return b.matrixWorld.Get() }

// SetMatrixWorld overrides the world transform, detaching it from any host mesh.
func (b *Billboard) SetMatrixWorld(m ms3.Mat4) { b.matrixWorld = Overridden(m) }

// Color returns the linear RGB tint multiplied into the reflection.
func (b *Billboard) Color() ms3.Vec { return b.color.Get() }

// SetColor overrides the tint, detaching it from any host material.
func (b *Billboard) SetColor(c ms3.Vec) { b.color = Overridden(c) }

// Opacity returns the effective opacity of the billboard. It is always 0 when
// the billboard is not Visible. A derived opacity is re-evaluated on every call.
func (b *Billboard) Opacity() float32 {
	if !b.Visible {
		return 0
	}
	return b.opacity.Get()
}

// SetOpacity overrides the opacity, detaching it from any host material.
// The effective value returned by Opacity is still gated by Visible.
func (b *Billboard) SetOpacity(opacity float32) { b.opacity = Overridden(opacity) }

// OpacityIsDerived reports whether opacity is read from a host material.
func (b *Billboard) OpacityIsDerived() bool { return b.opacity.IsDerived() }

// ColorIsDerived reports whether color is read from a host material.
func (b *Billboard) ColorIsDerived() bool { return b.color.IsDerived() }

// BillboardOptions tweak a billboard on creation. The zero value yields
// a visible, white, fully opaque billboard with no ray falloff.
type BillboardOptions struct {
	RayFalloff float32
	// Color is the tint. If nil white is used, or the host material color for [Registry.Create].
	Color *ms3.Vec
	// Opacity in [0,1]. If nil 1 is used, or the host material opacity for [Registry.Create].
	Opacity *float32
	// Hidden creates the billboard with Visible set to false.
	Hidden bool
}

// Registry is an append-only ordered collection of billboards. The zero value is ready to use.
// Registry is not safe for concurrent use.
type Registry struct {
	billboards []*Billboard
}

// CreateFromTextureAndMatrix appends a billboard with a fixed texture and world transform and returns it.
func (r *Registry) CreateFromTextureAndMatrix(texture Texture, matrixWorld ms3.Mat4, opts BillboardOptions) *Billboard {
	b := &Billboard{
		RayFalloff:  opts.RayFalloff,
		Visible:     !opts.Hidden,
		texture:     texture,
		matrixWorld: Overridden(matrixWorld),
		color:       Overridden(white),
		opacity:     Overridden[float32](1),
	}
	if opts.Color != nil {
		b.color = Overridden(*opts.Color)
	}
	if opts.Opacity != nil {
		b.opacity = Overridden(*opts.Opacity)
	}
	r.billboards = append(r.billboards, b)
	return b
}

// Create appends a billboard that mirrors a host mesh and returns it.
// The texture is the material map at the time of the call. The world transform is
// read from the mesh on every access. Unless set in opts, opacity and color are also
// read from the mesh material on every access, with opacity reading as 0 while the
// mesh or its material is hidden.
func (r *Registry) Create(mesh Mesh, opts BillboardOptions) *Billboard {
	b := r.CreateFromTextureAndMatrix(mesh.Material().Map(), mesh.MatrixWorld(), opts)
	b.matrixWorld = Derived(mesh.MatrixWorld)
	if opts.Opacity == nil {
		b.opacity = Derived(func() float32 {
			mat := mesh.Material()
			if mesh.Visible() && mat.Visible() {
				return mat.Opacity()
			}
			return 0
		})
	}
	if opts.Color == nil {
		b.color = Derived(func() ms3.Vec {
			return mesh.Material().Color()
		})
	}
	return b
}

// Len returns the number of registered billboards.
func (r *Registry) Len() int { return len(r.billboards) }

// At returns the i'th registered billboard in registration order.
func (r *Registry) At(i int) *Billboard { return r.billboards[i] }

// Billboards returns a copy of the registration-ordered billboard list.
// Elements are shared with the registry so derived properties stay live.
func (r *Registry) Billboards() []*Billboard {
	return append([]*Billboard(nil), r.billboards...)
}
