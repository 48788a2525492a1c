// Package bbreflectaux hosts billboard reflections outside of a full engine:
// a minimal standard material shader with the anchors expected by package bbreflect,
// mesh and material types, texture loading, JSON scenes, a CPU preview renderer
// and an interactive GPU viewer.
package bbreflectaux

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"os"
	"slices"
	"time"

	math "github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/bbreflect"
	"github.com/soypat/bbreflect/gleval"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glgl/math/ms1"
)

// Standard shader defaults shared by the preview and the viewer.
var (
	defaultDiffuse = ms3.Vec{X: 0.1, Y: 0.1, Z: 0.1}
	defaultAmbient = ms3.Vec{X: 0.3, Y: 0.3, Z: 0.3}
)

const defaultFOV = 50

// PreviewConfig configures [RenderPreview].
type PreviewConfig struct {
	// Width and Height of the image in pixels. If zero 640x360 is used.
	Width, Height int
	Camera        CameraConfig
	Ground        GroundConfig
	Reflection    bbreflect.ReflectionConfig
	// RoughnessMap renders the ground as a material with a roughness map,
	// which enables roughness blur unless disabled in Reflection.
	RoughnessMap bool
	// SkyBottom and SkyTop are the horizon and zenith colors of the background.
	// If nil a light gray to blue gradient is used.
	SkyBottom, SkyTop color.Color
	Silent            bool
}

// PreviewConfig returns a preview configuration of the scene camera, ground and reflection settings.
func (s *Scene) PreviewConfig(width, height int) PreviewConfig {
	return PreviewConfig{
		Width:      width,
		Height:     height,
		Camera:     s.Config.Camera,
		Ground:     s.Config.Ground,
		Reflection: s.Config.Reflection,
	}
}

// camera is a pinhole camera casting one ray per pixel.
type camera struct {
	pos                ms3.Vec
	forward, right, up ms3.Vec
	tanHalfFOV, aspect float32
	width, height      int
}

func newCamera(cfg CameraConfig, width, height int) (camera, error) {
	if cfg.Position == cfg.Target {
		return camera{}, errors.New("camera position equals target")
	}
	fov := cfg.FOV
	if fov == 0 {
		fov = defaultFOV
	}
	// The view matrix rows hold the camera basis.
	view := mgl32.LookAtV(cfg.Position, cfg.Target, mgl32.Vec3{0, 1, 0})
	right := view.Row(0).Vec3()
	up := view.Row(1).Vec3()
	back := view.Row(2).Vec3()
	return camera{
		pos:        vecFromMGL(cfg.Position),
		forward:    ms3.Scale(-1, vecFromMGL(back)),
		right:      vecFromMGL(right),
		up:         vecFromMGL(up),
		tanHalfFOV: math.Tan(mgl32.DegToRad(fov) / 2),
		aspect:     float32(width) / float32(height),
		width:      width,
		height:     height,
	}, nil
}

// ray returns the direction through pixel (x, y) counted from the top left.
func (c *camera) ray(x, y int) ms3.Vec {
	ndcX := 2*(float32(x)+0.5)/float32(c.width) - 1
	ndcY := 1 - 2*(float32(y)+0.5)/float32(c.height)
	dir := ms3.Add(c.forward, ms3.Scale(ndcX*c.aspect*c.tanHalfFOV, c.right))
	return ms3.Add(dir, ms3.Scale(ndcY*c.tanHalfFOV, c.up))
}

// groundFragment intersects the ray through pixel (x, y) with the y=0 plane.
func (c *camera) groundFragment(x, y int) (frag gleval.Fragment, t float32, ok bool) {
	dir := c.ray(x, y)
	if dir.Y >= 0 || c.pos.Y <= 0 {
		return frag, 0, false
	}
	t = -c.pos.Y / dir.Y
	frag.Position = ms3.Add(c.pos, ms3.Scale(t, dir))
	// reflect(cameraDirection, up) only flips the vertical component.
	cameraDirection := ms3.Sub(frag.Position, c.pos)
	frag.Reflect = ms3.Vec{X: cameraDirection.X, Y: -cameraDirection.Y, Z: cameraDirection.Z}
	return frag, t, true
}

// RenderPreview renders the billboards of reg standing over a reflective ground
// plane at y=0 using the CPU evaluator. Billboard textures must be a
// [gleval.Sampler] or an [image.Image].
func RenderPreview(reg *bbreflect.Registry, cfg PreviewConfig) (*image.RGBA, error) {
	if reg.Len() == 0 {
		return nil, errors.New("no billboards to render")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	if cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = 640, 360
	} else if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid preview size %dx%d", cfg.Width, cfg.Height)
	}
	cam, err := newCamera(cfg.Camera, cfg.Width, cfg.Height)
	if err != nil {
		return nil, err
	}
	billboards, err := evalBillboards(reg)
	if err != nil {
		return nil, err
	}
	diffuse := defaultDiffuse
	if cfg.Ground.Color != "" {
		diffuse, err = ParseHexColor(cfg.Ground.Color)
		if err != nil {
			return nil, err
		}
		diffuse = gleval.SRGBToLinearApprox(diffuse)
	}
	roughness := cfg.Ground.Roughness
	if cfg.Reflection.Roughness != nil {
		roughness = *cfg.Reflection.Roughness
	}
	envMapIntensity := float32(1)
	if cfg.Ground.EnvMapIntensity != nil {
		envMapIntensity = *cfg.Ground.EnvMapIntensity
	}
	if cfg.Reflection.EnvMapIntensity != nil {
		envMapIntensity = *cfg.Reflection.EnvMapIntensity
	}
	shading := ShadingConfig(cfg.Reflection, cfg.RoughnessMap)
	shading.CameraPosition = cam.pos
	sky := skyGradient(cfg.SkyBottom, cfg.SkyTop)

	watch := stopwatch()
	img := image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	for y := 0; y < cfg.Height; y++ {
		for x := 0; x < cfg.Width; x++ {
			dir := cam.ray(x, y)
			groundT := float32(math.MaxFloat32)
			var background ms3.Vec
			frag, t, ok := cam.groundFragment(x, y)
			if ok {
				groundT = t
				if dx, _, ok := cam.groundFragment(x+1, y); ok {
					frag.Dx = &dx
				}
				if dy, _, ok := cam.groundFragment(x, y+1); ok {
					frag.Dy = &dy
				}
				reflectClr := shading.AllBillboardReflections(frag, roughness, envMapIntensity, billboards)
				linear := ms3.Add(ms3.MulElem(diffuse, defaultAmbient), ms3.Vec{X: reflectClr.R, Y: reflectClr.G, Z: reflectClr.B})
				background = gleval.LinearToSRGBApprox(linear)
			} else {
				background = sky(0.5 + 0.5*dir.Y/ms3.Norm(dir))
			}
			c := compositeBillboards(background, cam.pos, dir, groundT, billboards)
			img.SetRGBA(x, y, toRGBA(c))
		}
	}
	log("rendered", cfg.Width, "x", cfg.Height, "preview of", len(billboards), "billboards in", watch())
	return img, nil
}

// ShadingConfig returns the CPU shading configuration equivalent to the
// defines set by [bbreflect.Registry.EnableReflection] on a shader whose
// material has a roughness map when roughnessMap is set.
func ShadingConfig(cfg bbreflect.ReflectionConfig, roughnessMap bool) gleval.ShadingConfig {
	return gleval.ShadingConfig{
		RoughnessBlur:        roughnessMap && !cfg.DisableRoughnessMapBlur,
		BlurIntensity:        cfg.RoughnessMapBlurIntensity,
		SelfIntersectEpsilon: cfg.SelfIntersectEpsilon,
		OpacityExponent:      cfg.OpacityExponent,
	}
}

// evalBillboards snapshots the uniform values of the registered billboards.
func evalBillboards(reg *bbreflect.Registry) ([]gleval.Billboard, error) {
	samplers := make(map[bbreflect.Texture]gleval.Sampler)
	billboards := make([]gleval.Billboard, reg.Len())
	for i, bb := range reg.Billboards() {
		sampler, ok := samplers[bb.Texture()]
		if !ok {
			switch tex := bb.Texture().(type) {
			case gleval.Sampler:
				sampler = tex
			case image.Image:
				if tex.Bounds().Empty() {
					return nil, fmt.Errorf("billboard %d: empty texture image", i)
				}
				sampler = gleval.NewImageSampler(tex)
			default:
				return nil, fmt.Errorf("billboard %d: unsupported texture type %T", i, tex)
			}
			samplers[bb.Texture()] = sampler
		}
		billboards[i] = gleval.Billboard{
			MatrixWorld: bb.MatrixWorld(),
			Texture:     sampler,
			Color:       bb.Color(),
			RayFalloff:  bb.RayFalloff,
			Opacity:     bb.Opacity(),
		}
	}
	return billboards, nil
}

type billboardHit struct {
	t   float32
	clr gleval.RGBA
}

// compositeBillboards blends the billboards hit by the primary ray before maxT
// over background, farthest first. Colors are sRGB.
func compositeBillboards(background, orig, dir ms3.Vec, maxT float32, billboards []gleval.Billboard) ms3.Vec {
	var hits []billboardHit
	for _, bb := range billboards {
		if bb.Opacity == 0 {
			continue
		}
		v0, v1, v2 := gleval.Corners(bb.MatrixWorld)
		uvt := gleval.IntersectTriangle(orig, dir, v2, v0, v1)
		if !(uvt.X > 0 && uvt.X < 1 && uvt.Y > 0 && uvt.Y < 1) || uvt.Z <= 0 || uvt.Z >= maxT {
			continue
		}
		texClr := bb.Texture.SampleLod(ms2.Vec{X: uvt.X, Y: uvt.Y}, 0)
		linear := ms3.MulElem(gleval.SRGBToLinearApprox(ms3.Vec{X: texClr.R, Y: texClr.G, Z: texClr.B}), bb.Color)
		srgb := gleval.LinearToSRGBApprox(linear)
		hits = append(hits, billboardHit{
			t:   uvt.Z,
			clr: gleval.RGBA{R: srgb.X, G: srgb.Y, B: srgb.Z, A: texClr.A * bb.Opacity},
		})
	}
	slices.SortFunc(hits, func(a, b billboardHit) int {
		switch {
		case a.t > b.t:
			return -1
		case a.t < b.t:
			return 1
		}
		return 0
	})
	c := background
	for _, h := range hits {
		c = ms3.Vec{
			X: ms1.Interp(c.X, h.clr.R, h.clr.A),
			Y: ms1.Interp(c.Y, h.clr.G, h.clr.A),
			Z: ms1.Interp(c.Z, h.clr.B, h.clr.A),
		}
	}
	return c
}

func skyGradient(bottom, top color.Color) func(t float32) ms3.Vec {
	if bottom == nil {
		bottom = color.RGBA{R: 0xd8, G: 0xdc, B: 0xe0, A: 0xff}
	}
	if top == nil {
		top = color.RGBA{R: 0x4a, G: 0x78, B: 0xb0, A: 0xff}
	}
	grad := ColorGradient(bottom, top)
	return func(t float32) ms3.Vec {
		r, g, b, _ := grad(t).RGBA()
		return ms3.Vec{X: float32(r) / 0xffff, Y: float32(g) / 0xffff, Z: float32(b) / 0xffff}
	}
}

func vecFromMGL(v mgl32.Vec3) ms3.Vec { return ms3.Vec{X: v[0], Y: v[1], Z: v[2]} }

// WritePNG encodes img as a PNG file with said filename.
func WritePNG(filename string, img image.Image) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	err = png.Encode(fp, img)
	if err != nil {
		return err
	}
	return fp.Sync()
}

// CompileGPU resolves sh into complete GLSL sources and compiles them on the GPU
// using a hidden 1x1 window. It must be called from the main OS thread.
func CompileGPU(sh *bbreflect.Shader) error {
	vertex, fragment, err := ResolveProgram(sh)
	if err != nil {
		return err
	}
	terminate, err := gleval.Init1x1GLFW()
	if err != nil {
		return err
	}
	defer terminate()
	prog, err := gleval.CompileProgram(vertex, fragment)
	if err != nil {
		return err
	}
	prog.Delete()
	return nil
}

// UIConfig configures [UI].
type UIConfig struct {
	Width, Height int
	// Context if not nil stops the viewer when done.
	Context context.Context
	// RoughnessMap patches the ground shader as a material with a roughness map.
	RoughnessMap bool
	// OnFrame if not nil is called on the render thread before drawing each frame
	// with the time since the viewer started. Meshes may be modified from it.
	OnFrame func(elapsed time.Duration)
	Silent  bool
}

// UI opens an interactive window rendering the scene billboards reflected on the
// ground using the patched standard shader. Drag to orbit and scroll to zoom.
// It must be called from the main OS thread and requires cgo.
func UI(s *Scene, cfg UIConfig) error {
	if cfg.Width == 0 && cfg.Height == 0 {
		cfg.Width, cfg.Height = 800, 600
	}
	return ui(s, cfg)
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
