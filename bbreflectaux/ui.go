//go:build !tinygo && cgo

package bbreflectaux

import (
	"fmt"
	"image"
	"log"
	"math"
	"strconv"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/bbreflect"
	"github.com/soypat/bbreflect/glbuild/glsllib"
	"github.com/soypat/bbreflect/gleval"
)

const groundExtent = 50

func ui(s *Scene, cfg UIConfig) error {
	logf := func(format string, args ...any) {
		if !cfg.Silent {
			log.Printf(format, args...)
		}
	}
	window, term, err := startGLFW(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer term()

	sh := NewStandardShader(cfg.RoughnessMap)
	rcfg := s.Config.Reflection
	rcfg.Silent = cfg.Silent
	report := s.Registry.EnableReflection(sh, rcfg)
	if err := report.Err(); err != nil {
		return err
	}
	logf("patched ground shader with %d billboards and %d textures", report.BillboardCount, report.TextureCount)
	vertex, fragment, err := ResolveProgram(sh)
	if err != nil {
		return err
	}
	prog, err := gleval.CompileProgram(vertex, fragment)
	if err != nil {
		return fmt.Errorf("%s\n\n%w", fragment, err)
	}
	defer prog.Delete()
	prog.Bind()

	// Ground quad as two triangles of interleaved position, normal and uv.
	const e = groundExtent
	vertices := []float32{
		-e, 0, -e, 0, 1, 0, 0, 0,
		-e, 0, e, 0, 1, 0, 0, 1,
		e, 0, -e, 0, 1, 0, 1, 0,
		e, 0, -e, 0, 1, 0, 1, 0,
		-e, 0, e, 0, 1, 0, 0, 1,
		e, 0, e, 0, 1, 0, 1, 1,
	}
	var vao, vbo uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	const stride = 8 * 4
	for _, attr := range []struct {
		name   string
		size   int32
		offset int
	}{
		{name: "position", size: 3, offset: 0},
		{name: "normal", size: 3, offset: 3 * 4},
		{name: "uv", size: 2, offset: 6 * 4},
	} {
		loc := gl.GetAttribLocation(prog.ID(), gl.Str(attr.name+"\x00"))
		if loc < 0 {
			continue // Unused attributes are optimized away.
		}
		gl.EnableVertexAttribArray(uint32(loc))
		gl.VertexAttribPointer(uint32(loc), attr.size, gl.FLOAT, false, stride, gl.PtrOffset(attr.offset))
	}

	textures, err := uploadTextures(sh)
	if err != nil {
		return err
	}
	defer gl.DeleteTextures(int32(len(textures)), &textures[0])
	if cfg.RoughnessMap {
		// Constant roughness map so that blur follows the roughness uniform.
		roughnessTex := uploadImage(image.White, image.Rect(0, 0, 1, 1))
		defer gl.DeleteTextures(1, &roughnessTex)
		unit := int32(len(textures))
		gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
		gl.BindTexture(gl.TEXTURE_2D, roughnessTex)
		gl.Uniform1i(uniformLoc(prog, UniformRoughnessMap), unit)
	}
	if s.Config.Ground.Color != "" {
		c, _ := ParseHexColor(s.Config.Ground.Color)
		c = gleval.SRGBToLinearApprox(c)
		sh.Uniforms[UniformDiffuse].Value = [3]float32{c.X, c.Y, c.Z}
	}
	sh.Uniforms[UniformRoughness].Value = s.Config.Ground.Roughness
	if env := s.Config.Ground.EnvMapIntensity; env != nil {
		sh.Uniforms[UniformEnvMapIntensity].Value = *env
	}

	gl.Enable(gl.DEPTH_TEST)

	// Orbit camera around the scene target.
	target := s.Config.Camera.Target
	offset := s.Config.Camera.Position.Sub(target)
	camDist := float64(offset.Len())
	yaw := math.Atan2(float64(offset[0]), float64(offset[2]))
	pitch := math.Asin(float64(offset[1]) / camDist)
	fov := s.Config.Camera.FOV
	if fov == 0 {
		fov = defaultFOV
	}
	var (
		lastMouseX       float64
		lastMouseY       float64
		firstMouseMove   = true
		isMousePressed   = false
		yawSensitivity   = 0.005
		pitchSensitivity = 0.005
		refresh          = true
		minZoom          = 0.1
		maxZoom          = 10 * camDist
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		if !isMousePressed {
			return
		}
		refresh = true
		if firstMouseMove {
			lastMouseX = xpos
			lastMouseY = ypos
			firstMouseMove = false
		}
		yaw -= (xpos - lastMouseX) * yawSensitivity
		pitch += (ypos - lastMouseY) * pitchSensitivity
		// Stay above the ground plane.
		pitch = min(max(pitch, 0.01), math.Pi/2-0.01)
		lastMouseX = xpos
		lastMouseY = ypos
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		refresh = true
		camDist -= yoff * (camDist*.1 + .01)
		camDist = min(max(camDist, minZoom), maxZoom)
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		refresh = true
		if action == glfw.Press {
			isMousePressed = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else if action == glfw.Release {
			isMousePressed = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})

	ctx := cfg.Context
	frames := 0
	watch := stopwatch()
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		width, height := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(0.85, 0.86, 0.88, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		eye := target.Add(mgl32.Vec3{
			float32(math.Cos(pitch) * math.Sin(yaw)),
			float32(math.Sin(pitch)),
			float32(math.Cos(pitch) * math.Cos(yaw)),
		}.Mul(float32(camDist)))
		view := mgl32.LookAtV(eye, target, mgl32.Vec3{0, 1, 0})
		projection := mgl32.Perspective(mgl32.DegToRad(fov), float32(width)/float32(height), 0.05, 4*groundExtent)
		model := mgl32.Ident4()
		normalMatrix := view.Mul4(model).Mat3().Inv().Transpose()

		if cfg.OnFrame != nil {
			cfg.OnFrame(watch())
		}
		prog.Bind()
		gl.UniformMatrix4fv(uniformLoc(prog, UniformModelMatrix), 1, false, &model[0])
		gl.UniformMatrix4fv(uniformLoc(prog, UniformViewMatrix), 1, false, &view[0])
		gl.UniformMatrix4fv(uniformLoc(prog, UniformProjectionMatrix), 1, false, &projection[0])
		gl.UniformMatrix3fv(uniformLoc(prog, UniformNormalMatrix), 1, false, &normalMatrix[0])
		gl.Uniform3f(uniformLoc(prog, UniformCameraPosition), eye[0], eye[1], eye[2])
		err = setUniforms(prog, sh)
		if err != nil {
			return err
		}

		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLES, 0, 6)
		window.SwapBuffers()
		frames++

		// Keep redrawing while a frame callback may move meshes.
		for {
			time.Sleep(time.Second / 60)
			glfw.PollEvents()
			if refresh || cfg.OnFrame != nil || window.ShouldClose() {
				refresh = false
				break
			}
		}
	}
	logf("drew %d frames in %s", frames, watch())
	return nil
}

func uniformLoc(prog gleval.Program, name string) int32 {
	return gl.GetUniformLocation(prog.ID(), gl.Str(name+"\x00"))
}

// setUniforms uploads the values of sh.Uniforms. Billboard values are read
// on every call so derived properties follow their meshes.
func setUniforms(prog gleval.Program, sh *bbreflect.Shader) error {
	for name, u := range sh.Uniforms {
		switch v := u.Value.(type) {
		case float32:
			gl.Uniform1f(uniformLoc(prog, name), v)
		case [3]float32:
			gl.Uniform3f(uniformLoc(prog, name), v[0], v[1], v[2])
		case []bbreflect.Texture:
			for i := range v {
				gl.Uniform1i(uniformLoc(prog, name+"["+strconv.Itoa(i)+"]"), int32(i))
			}
		case []*bbreflect.Billboard:
			for i, bb := range v {
				field := name + "[" + strconv.Itoa(i) + "]."
				m := Mat4ToMGL(bb.MatrixWorld())
				c := bb.Color()
				gl.UniformMatrix4fv(uniformLoc(prog, field+"matrixWorld"), 1, false, &m[0])
				gl.Uniform1f(uniformLoc(prog, field+"rayFalloff"), bb.RayFalloff)
				gl.Uniform3f(uniformLoc(prog, field+"color"), c.X, c.Y, c.Z)
				gl.Uniform1f(uniformLoc(prog, field+"opacity"), bb.Opacity())
			}
		default:
			return fmt.Errorf("uniform %q: unsupported value type %T", name, v)
		}
	}
	return nil
}

// uploadTextures creates a mip-mapped GL texture per entry of the billboard
// texture table and binds texture unit i to entry i.
func uploadTextures(sh *bbreflect.Shader) ([]uint32, error) {
	u, ok := sh.Uniforms[glsllib.UniformTextures]
	if !ok {
		return nil, fmt.Errorf("shader has no %s uniform", glsllib.UniformTextures)
	}
	table := u.Value.([]bbreflect.Texture)
	textures := make([]uint32, len(table))
	for i, tex := range table {
		var img image.Image
		switch t := tex.(type) {
		case *gleval.ImageSampler:
			img = t.Level(0)
		case image.Image:
			img = t
		default:
			return nil, fmt.Errorf("billboard texture %d: unsupported type %T", i, tex)
		}
		textures[i] = uploadImage(img, img.Bounds())
		gl.ActiveTexture(gl.TEXTURE0 + uint32(i))
		gl.BindTexture(gl.TEXTURE_2D, textures[i])
	}
	return textures, nil
}

// uploadImage copies the bounds of img into a new texture with a full mip chain.
// Rows are flipped so that uv (0,0) is the bottom left of the image.
func uploadImage(img image.Image, bounds image.Rectangle) uint32 {
	w, h := bounds.Dx(), bounds.Dy()
	pix := make([]uint8, 0, 4*w*h)
	for y := bounds.Max.Y - 1; y >= bounds.Min.Y; y-- {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			c := img.At(x, y)
			r, g, b, a := c.RGBA()
			if a != 0 {
				// Unpremultiply.
				r, g, b = r*0xffff/a, g*0xffff/a, b*0xffff/a
			}
			pix = append(pix, uint8(r>>8), uint8(g>>8), uint8(b>>8), uint8(a>>8))
		}
	}
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR_MIPMAP_LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(w), int32(h), 0, gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(pix))
	gl.GenerateMipmap(gl.TEXTURE_2D)
	return tex
}

func startGLFW(width, height int) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)

	window, err = glfw.CreateWindow(width, height, "bbreflect billboard reflections", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
