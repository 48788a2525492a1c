// Package bbreflect adds planar billboard reflections to materials of a host
// rendering engine by composing GLSL and splicing it into the host's shader
// source at known include anchors.
//
// Billboards are registered in a [Registry] and bound to a host [Shader] with
// [Registry.EnableReflection], usually from the engine's before-compile hook.
package bbreflect

import (
	"github.com/soypat/geometry/ms3"
)

// Texture is an opaque handle to a 2D image owned by the host engine.
// Handles are compared with == to deduplicate textures shared between billboards,
// so the dynamic type must be comparable. Pointers are the usual choice.
type Texture any

// Material is the read-only view of a host material polled by derived billboard properties.
type Material interface {
	Visible() bool
	Opacity() float32
	// Color returns the linear RGB color of the material.
	Color() ms3.Vec
	// Map returns the color texture of the material.
	Map() Texture
}

// Mesh is the read-only view of a host mesh polled by derived billboard properties.
type Mesh interface {
	Visible() bool
	Material() Material
	// MatrixWorld returns the current world transform of the mesh.
	MatrixWorld() ms3.Mat4
}

// Property is a value that is either stored or derived on every read from live host state.
// The zero value is an overridden zero value.
type Property[T any] struct {
	derive func() T
	value  T
}

// Derived returns a property whose value is the result of calling fn on every read.
// Results are never cached.
func Derived[T any](fn func() T) Property[T] {
	return Property[T]{derive: fn}
}

// Overridden returns a property holding v.
func Overridden[T any](v T) Property[T] {
	return Property[T]{value: v}
}

// Get returns the current value of the property.
func (p Property[T]) Get() T {
	if p.derive != nil {
		return p.derive()
	}
	return p.value
}

// IsDerived reports whether the property is computed on read.
func (p Property[T]) IsDerived() bool { return p.derive != nil }
