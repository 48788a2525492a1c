package bbreflectaux_test

import (
	"image"
	"image/color"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/soypat/bbreflect"
	"github.com/soypat/bbreflect/bbreflectaux"
	"github.com/soypat/bbreflect/gleval"
	"github.com/soypat/geometry/ms3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveProgram(t *testing.T) {
	var reg bbreflect.Registry
	texA := gleval.ConstantSampler{Color: gleval.RGBA{R: 1, A: 1}, Width: 2, Height: 2}
	texB := gleval.ConstantSampler{Color: gleval.RGBA{G: 1, A: 1}, Width: 4, Height: 4}
	reg.CreateFromTextureAndMatrix(texA, bbreflectaux.Mat4FromMGL(mgl32.Ident4()), bbreflect.BillboardOptions{})
	reg.CreateFromTextureAndMatrix(texB, bbreflectaux.Mat4FromMGL(mgl32.Ident4()), bbreflect.BillboardOptions{})

	sh := bbreflectaux.NewStandardShader(true)
	report := reg.EnableReflection(sh, bbreflect.ReflectionConfig{})
	require.NoError(t, report.Err())
	assert.True(t, report.Patched)
	assert.Equal(t, 2, report.TextureCount)

	vertex, fragment, err := bbreflectaux.ResolveProgram(sh)
	require.NoError(t, err)
	for _, src := range []string{vertex, fragment} {
		assert.True(t, strings.HasPrefix(src, "#version 330 core\n"))
		assert.NotContains(t, src, "#include")
		assert.Contains(t, src, "#define "+bbreflectaux.DefineStandard+"\n")
		assert.Contains(t, src, "#define "+bbreflectaux.DefineUseRoughnessMap+"\n")
		assert.Contains(t, src, "#define REFLECTION_ROUGHNESS_BLUR\n")
	}
	assert.Contains(t, vertex, "vPosition = (modelMatrix * vec4(position, 1.)).xyz;")
	assert.Contains(t, vertex, "vec4 mvPosition")
	assert.Contains(t, fragment, "uniform sampler2D billboardTextures[2];")
	assert.Contains(t, fragment, "uniform BillboardReflection billboardReflections[2];")
	assert.Contains(t, fragment, "computeAllBillboardReflections( vPosition, reflectVec, roughnessFactor")
	// Common chunk must precede the inserted reflection uniforms.
	assert.Less(t, strings.Index(fragment, "struct GeometricContext"), strings.Index(fragment, "uniform BillboardReflection"))
}

func TestResolveProgramUnpatched(t *testing.T) {
	sh := bbreflectaux.NewStandardShader(false)
	vertex, fragment, err := bbreflectaux.ResolveProgram(sh)
	require.NoError(t, err)
	assert.NotContains(t, vertex+fragment, "#define "+bbreflectaux.DefineUseRoughnessMap)
	assert.NotContains(t, fragment, "computeAllBillboardReflections")
	assert.Contains(t, fragment, "gl_FragColor = vec4( linearToOutput( outgoingLight ), 1.0 );")
}

func TestResolveProgramMissingChunk(t *testing.T) {
	sh := bbreflectaux.NewStandardShader(false)
	sh.FragmentSource = "#include <common>\n#include <fog_fragment>\nvoid main(){}\n"
	_, _, err := bbreflectaux.ResolveProgram(sh)
	require.Error(t, err)
	assert.ErrorContains(t, err, "fragment shader")
	assert.ErrorContains(t, err, "fog_fragment")
}

func TestChunks(t *testing.T) {
	chunks := bbreflectaux.Chunks()
	for _, name := range []string{"common", "project_vertex", "bsdfs", "lights_fragment_maps"} {
		assert.NotEmpty(t, chunks[name], name)
	}
	assert.NotContains(t, chunks, "standard_frag")
	chunks["common"] = ""
	assert.NotEmpty(t, bbreflectaux.Chunks()["common"], "Chunks must return a copy")
}

func TestMat4Conversion(t *testing.T) {
	m := mgl32.Translate3D(1, 2, 3).Mul4(mgl32.Scale3D(4, 5, 6))
	got := bbreflectaux.Mat4FromMGL(m).Array()
	// Row major translation column.
	assert.Equal(t, float32(1), got[3])
	assert.Equal(t, float32(2), got[7])
	assert.Equal(t, float32(3), got[11])
	assert.Equal(t, float32(4), got[0])
	assert.Equal(t, float32(6), got[10])
	assert.Equal(t, m, bbreflectaux.Mat4ToMGL(bbreflectaux.Mat4FromMGL(m)))
}

func TestMeshHierarchy(t *testing.T) {
	parent := bbreflectaux.NewMesh(nil)
	parent.Translation = mgl32.Vec3{10, 0, 0}
	parent.Scale = mgl32.Vec3{2, 2, 2}
	child := bbreflectaux.NewMesh(bbreflectaux.NewMaterial("tex"))
	child.Translation = mgl32.Vec3{0, 1, 0}
	child.SetParent(parent)

	origin := child.WorldMatrix().Mul4x1(mgl32.Vec4{0, 0, 0, 1})
	assert.InDelta(t, 10, origin[0], 1e-6)
	assert.InDelta(t, 2, origin[1], 1e-6)
	arr := child.MatrixWorld().Array()
	assert.InDelta(t, 10, arr[3], 1e-6)
	assert.InDelta(t, 2, arr[7], 1e-6)

	var reg bbreflect.Registry
	bb := reg.Create(child, bbreflect.BillboardOptions{})
	assert.Equal(t, "tex", bb.Texture())
	assert.Equal(t, float32(1), bb.Opacity())
	child.SetVisible(false)
	assert.Equal(t, float32(0), bb.Opacity())
	child.SetVisible(true)
	parent.Translation = mgl32.Vec3{}
	assert.InDelta(t, 0, bb.MatrixWorld().Array()[3], 1e-6)
}

func TestTextTexture(t *testing.T) {
	img, err := bbreflectaux.TextTexture("Hello", bbreflectaux.TextConfig{Size: 24, Foreground: color.Black})
	require.NoError(t, err)
	b := img.Bounds()
	require.False(t, b.Empty())
	assert.Greater(t, b.Dx(), b.Dy())
	var inked int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if img.NRGBAAt(x, y).A > 0 {
				inked++
			}
		}
	}
	assert.Positive(t, inked)
	assert.Less(t, inked, b.Dx()*b.Dy())

	_, err = bbreflectaux.TextTexture("  ", bbreflectaux.TextConfig{})
	assert.Error(t, err)
	_, err = bbreflectaux.TextTexture("two\nlines", bbreflectaux.TextConfig{})
	assert.Error(t, err)
}

func TestLoadTexture(t *testing.T) {
	_, err := bbreflectaux.LoadTexture(strings.NewReader("not an image"))
	assert.Error(t, err)
}

func TestParseHexColor(t *testing.T) {
	c, err := bbreflectaux.ParseHexColor("#ff8000")
	require.NoError(t, err)
	assert.InDelta(t, 1, c.X, 1e-6)
	assert.InDelta(t, 128./255, c.Y, 1e-6)
	assert.InDelta(t, 0, c.Z, 1e-6)
	c, err = bbreflectaux.ParseHexColor("0000ff")
	require.NoError(t, err)
	assert.Equal(t, ms3.Vec{Z: 1}, c)
	for _, bad := range []string{"", "#fff", "#gg0000", "#12345678"} {
		_, err = bbreflectaux.ParseHexColor(bad)
		assert.Error(t, err, bad)
	}
}

func TestColorGradient(t *testing.T) {
	red := color.RGBA{R: 255, A: 255}
	blue := color.RGBA{B: 255, A: 255}
	grad := bbreflectaux.ColorGradient(red, blue)
	assert.Equal(t, red, grad(-1))
	assert.Equal(t, blue, grad(2))
	mid := grad(0.5).(color.RGBA)
	assert.Equal(t, uint8(255), mid.A)
	assert.Zero(t, mid.G)

	// Pink to orange interpolates through red across hue zero.
	grad = bbreflectaux.ColorGradient(color.RGBA{R: 255, B: 153, A: 255}, color.RGBA{R: 255, G: 153, A: 255})
	for _, tm := range []float32{0.25, 0.5, 0.75} {
		c := grad(tm).(color.RGBA)
		assert.Equal(t, uint8(255), c.R, "t=%v", tm)
	}
	orange := grad(0.75).(color.RGBA)
	assert.Greater(t, orange.G, uint8(50))
	assert.Zero(t, orange.B)
	assert.Equal(t, color.RGBA{R: 255, A: 255}, grad(0.5))
}

const testScene = `{
	"camera": {"position": [0, 2, 6], "target": [0, 1, 0]},
	"ground": {"color": "#202020", "roughness": 0.3},
	"reflection": {"roughness_map_blur_intensity": 0.5},
	"billboards": [
		{"name": "left", "text": "EXIT", "position": [-2, 1, 0], "rotation": [90, 0, 0]},
		{"text": "EXIT", "position": [2, 1, 0], "rotation": [90, 0, 0], "color": "#ff0000", "opacity": 0.5},
		{"name": "moving", "text": "GO", "position": [0, 1, -2], "rotation": [90, 0, 0], "mesh": true, "ray_falloff": 0.1}
	]
}`

func TestSceneBuild(t *testing.T) {
	cfg, err := bbreflectaux.LoadSceneConfig(strings.NewReader(testScene))
	require.NoError(t, err)
	require.NotNil(t, cfg.Reflection.RoughnessMapBlurIntensity)
	assert.Equal(t, float32(0.5), *cfg.Reflection.RoughnessMapBlurIntensity)
	scene, err := cfg.Build(t.TempDir())
	require.NoError(t, err)

	reg := scene.Registry
	require.Equal(t, 3, reg.Len())
	require.Len(t, scene.Names, 3)
	assert.Equal(t, "left", scene.Names[0])
	_, err = uuid.Parse(scene.Names[1])
	assert.NoError(t, err, "unnamed billboards get a UUID")
	assert.Equal(t, "moving", scene.Names[2])
	assert.Empty(t, cfg.Billboards[1].Name, "Build must not modify the config")

	// Same label shares a texture handle.
	assert.Same(t, reg.At(0).Texture(), reg.At(1).Texture())
	assert.NotSame(t, reg.At(0).Texture(), reg.At(2).Texture())
	table := bbreflect.NewTextureTable(reg.Billboards())
	assert.Equal(t, []int{0, 0, 1}, table.Indices)

	assert.Equal(t, ms3.Vec{X: 1, Y: 1, Z: 1}, reg.At(0).Color())
	assert.Equal(t, ms3.Vec{X: 1}, reg.At(1).Color())
	assert.Equal(t, float32(0.5), reg.At(1).Opacity())
	assert.False(t, reg.At(1).OpacityIsDerived())
	assert.True(t, reg.At(2).OpacityIsDerived())
	assert.Equal(t, float32(0.1), reg.At(2).RayFalloff)

	// Upright billboard centered at (-2,1,0) spans y in [0,2].
	v0, v1, _ := gleval.Corners(reg.At(0).MatrixWorld())
	assert.InDelta(t, -1, v0.X, 1e-5)
	assert.InDelta(t, 0, v0.Y, 1e-5)
	assert.InDelta(t, -3, v1.X, 1e-5)
	assert.InDelta(t, 2, v1.Y, 1e-5)

	mesh := scene.Meshes["moving"]
	require.NotNil(t, mesh)
	mesh.Translation = mgl32.Vec3{5, 1, -2}
	assert.InDelta(t, 5, reg.At(2).MatrixWorld().Array()[3], 1e-5)
}

func TestLoadSceneConfigErrors(t *testing.T) {
	_, err := bbreflectaux.LoadSceneConfig(strings.NewReader(`{"billboards": [], "extra": 1}`))
	assert.ErrorContains(t, err, "extra")

	_, err = bbreflectaux.LoadSceneConfig(strings.NewReader(`{
		"camera": {"position": [0, 1, 0], "target": [0, 1, 0]},
		"ground": {"color": "red", "env_map_intensity": -1},
		"billboards": [
			{"name": "a", "text": "x", "texture": "x.png"},
			{"name": "a", "text": "y", "color": "#zz0000", "opacity": 2}
		]
	}`))
	require.Error(t, err)
	for _, want := range []string{
		"camera position equals target",
		"ground",
		"negative env map intensity",
		"exactly one of texture or text",
		"duplicate name",
		"invalid hex color",
		"opacity 2",
	} {
		assert.ErrorContains(t, err, want)
	}
}

func TestSceneBuildMissingTexture(t *testing.T) {
	cfg := bbreflectaux.SceneConfig{
		Camera:     bbreflectaux.CameraConfig{Position: mgl32.Vec3{0, 1, 5}},
		Billboards: []bbreflectaux.BillboardConfig{{Name: "poster", Texture: "missing.png"}},
	}
	_, err := cfg.Build(t.TempDir())
	assert.ErrorContains(t, err, "poster")
}

func previewRegistry(opacity float32) *bbreflect.Registry {
	var reg bbreflect.Registry
	red := gleval.ConstantSampler{Color: gleval.RGBA{R: 1, A: 1}, Width: 8, Height: 8}
	upright := mgl32.Translate3D(0, 1, 0).Mul4(mgl32.HomogRotate3DX(mgl32.DegToRad(90)))
	reg.CreateFromTextureAndMatrix(red, bbreflectaux.Mat4FromMGL(upright), bbreflect.BillboardOptions{Opacity: &opacity})
	return &reg
}

func TestRenderPreview(t *testing.T) {
	cfg := bbreflectaux.PreviewConfig{
		Width:  32,
		Height: 18,
		Camera: bbreflectaux.CameraConfig{Position: mgl32.Vec3{0, 2, 6}, Target: mgl32.Vec3{0, 1, 0}},
		Silent: true,
	}
	img, err := bbreflectaux.RenderPreview(previewRegistry(1), cfg)
	require.NoError(t, err)
	assert.Equal(t, image.Rect(0, 0, 32, 18), img.Bounds())

	center := img.RGBAAt(16, 9)
	assert.Greater(t, center.R, uint8(200), "billboard seen head on")
	assert.Less(t, center.G, uint8(50))

	// Reflection of the billboard on the ground right below it.
	withReflection := img.RGBAAt(16, 16)
	hidden, err := bbreflectaux.RenderPreview(previewRegistry(0), cfg)
	require.NoError(t, err)
	without := hidden.RGBAAt(16, 16)
	assert.Greater(t, withReflection.R, without.R)
	assert.NotEqual(t, img.RGBAAt(16, 9), hidden.RGBAAt(16, 9))
	// Sky is unaffected.
	assert.Equal(t, img.RGBAAt(0, 0), hidden.RGBAAt(0, 0))
}

func TestRenderPreviewEnvMapIntensity(t *testing.T) {
	cfg := bbreflectaux.PreviewConfig{
		Width:  32,
		Height: 18,
		Camera: bbreflectaux.CameraConfig{Position: mgl32.Vec3{0, 2, 6}, Target: mgl32.Vec3{0, 1, 0}},
		Silent: true,
	}
	render := func(env *float32) color.RGBA {
		cfg.Ground.EnvMapIntensity = env
		img, err := bbreflectaux.RenderPreview(previewRegistry(1), cfg)
		require.NoError(t, err)
		return img.RGBAAt(16, 16)
	}
	zero, half, one := float32(0), float32(0.5), float32(1)
	full := render(nil)
	assert.Equal(t, full, render(&one), "nil intensity defaults to 1")
	halved := render(&half)
	off := render(&zero)
	assert.Less(t, halved.R, full.R)
	assert.Greater(t, halved.R, off.R)

	hidden, err := bbreflectaux.RenderPreview(previewRegistry(0), cfg)
	require.NoError(t, err)
	assert.Equal(t, hidden.RGBAAt(16, 16), off, "zero intensity removes the reflection")

	// A reflection override replaces the ground intensity.
	cfg.Reflection.EnvMapIntensity = &one
	assert.Equal(t, full, render(&zero))
}

func TestRenderPreviewErrors(t *testing.T) {
	cam := bbreflectaux.CameraConfig{Position: mgl32.Vec3{0, 2, 6}}
	_, err := bbreflectaux.RenderPreview(new(bbreflect.Registry), bbreflectaux.PreviewConfig{Camera: cam})
	assert.Error(t, err)

	var reg bbreflect.Registry
	reg.CreateFromTextureAndMatrix("not a texture", bbreflectaux.Mat4FromMGL(mgl32.Ident4()), bbreflect.BillboardOptions{})
	_, err = bbreflectaux.RenderPreview(&reg, bbreflectaux.PreviewConfig{Camera: cam, Silent: true})
	assert.ErrorContains(t, err, "unsupported texture type")

	_, err = bbreflectaux.RenderPreview(previewRegistry(1), bbreflectaux.PreviewConfig{Width: -1, Height: 10, Camera: cam, Silent: true})
	assert.Error(t, err)
}

func TestShadingConfig(t *testing.T) {
	blur := float32(0.5)
	cfg := bbreflect.ReflectionConfig{RoughnessMapBlurIntensity: &blur, OpacityExponent: 2}
	sc := bbreflectaux.ShadingConfig(cfg, true)
	assert.True(t, sc.RoughnessBlur)
	require.NotNil(t, sc.BlurIntensity)
	assert.Equal(t, float32(0.5), *sc.BlurIntensity)
	assert.Equal(t, float32(2), sc.OpacityExponent)
	assert.False(t, bbreflectaux.ShadingConfig(cfg, false).RoughnessBlur)
	cfg.DisableRoughnessMapBlur = true
	assert.False(t, bbreflectaux.ShadingConfig(cfg, true).RoughnessBlur)
}
