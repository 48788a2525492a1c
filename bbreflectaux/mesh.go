package bbreflectaux

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/bbreflect"
	"github.com/soypat/geometry/ms3"
)

// Mat4FromMGL converts a column major mathgl matrix to an ms3 matrix.
func Mat4FromMGL(m mgl32.Mat4) ms3.Mat4 {
	rowMajor := m.Transpose()
	return ms3.NewMat4(rowMajor[:])
}

// Mat4ToMGL converts an ms3 matrix to a column major mathgl matrix.
func Mat4ToMGL(m ms3.Mat4) mgl32.Mat4 {
	return mgl32.Mat4(m.Array()).Transpose()
}

// Material is a simple host material implementing [bbreflect.Material].
type Material struct {
	visible bool
	opacity float32
	color   ms3.Vec
	tex     bbreflect.Texture
}

var _ bbreflect.Material = (*Material)(nil)

// NewMaterial returns a visible, opaque and white material mapping tex.
func NewMaterial(tex bbreflect.Texture) *Material {
	return &Material{
		visible: true,
		opacity: 1,
		color:   ms3.Vec{X: 1, Y: 1, Z: 1},
		tex:     tex,
	}
}

func (m *Material) Visible() bool { return m.visible }
func (m *Material) SetVisible(visible bool) { m.visible = visible }
func (m *Material) Opacity() float32 { return m.opacity }
func (m *Material) SetOpacity(opacity float32) { m.opacity = opacity }
func (m *Material) Color() ms3.Vec { return m.color }
func (m *Material) SetColor(c ms3.Vec) { m.color = c }
func (m *Material) Map() bbreflect.Texture { return m.tex }
func (m *Material) SetMap(tex bbreflect.Texture) { m.tex = tex }

// Mesh is a node of a transform hierarchy implementing [bbreflect.Mesh].
// The local transform is Translation * Rotation * Scale.
type Mesh struct {
	Translation mgl32.Vec3
	Rotation    mgl32.Quat
	Scale       mgl32.Vec3

	visible  bool
	material *Material
	parent   *Mesh
}

var _ bbreflect.Mesh = (*Mesh)(nil)

// NewMesh returns a visible mesh with identity transform.
func NewMesh(material *Material) *Mesh {
	return &Mesh{
		Rotation: mgl32.QuatIdent(),
		Scale:    mgl32.Vec3{1, 1, 1},
		visible:  true,
		material: material,
	}
}

func (m *Mesh) Visible() bool { return m.visible }
func (m *Mesh) SetVisible(visible bool) { m.visible = visible }
func (m *Mesh) Material() bbreflect.Material { return m.material }

// SetParent attaches m to parent so that its world transform is relative to parent.
// A nil parent detaches m.
func (m *Mesh) SetParent(parent *Mesh) { m.parent = parent }

// LocalMatrix returns the transform of m relative to its parent.
func (m *Mesh) LocalMatrix() mgl32.Mat4 {
	t := mgl32.Translate3D(m.Translation[0], m.Translation[1], m.Translation[2])
	s := mgl32.Scale3D(m.Scale[0], m.Scale[1], m.Scale[2])
	return t.Mul4(m.Rotation.Mat4()).Mul4(s)
}

// WorldMatrix returns the transform of m in world space.
func (m *Mesh) WorldMatrix() mgl32.Mat4 {
	world := m.LocalMatrix()
	for p := m.parent; p != nil; p = p.parent {
		world = p.LocalMatrix().Mul4(world)
	}
	return world
}

// MatrixWorld returns [Mesh.WorldMatrix] as an ms3 matrix.
func (m *Mesh) MatrixWorld() ms3.Mat4 { return Mat4FromMGL(m.WorldMatrix()) }
