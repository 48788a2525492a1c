package bbreflectaux

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/soypat/bbreflect"
	"github.com/soypat/bbreflect/gleval"
	"github.com/soypat/geometry/ms3"
)

// CameraConfig places the preview camera.
type CameraConfig struct {
	Position mgl32.Vec3 `json:"position"`
	Target   mgl32.Vec3 `json:"target"`
	// FOV is the vertical field of view in degrees. If zero 50 is used.
	FOV float32 `json:"fov,omitempty"`
}

// GroundConfig describes the reflective ground plane at y=0.
type GroundConfig struct {
	// Color is the hex diffuse color. If empty a dark gray is used.
	Color     string  `json:"color,omitempty"`
	Roughness float32 `json:"roughness"`
	// EnvMapIntensity scales the reflections of the ground. If nil 1 is used.
	EnvMapIntensity *float32 `json:"env_map_intensity,omitempty"`
}

// BillboardConfig describes a single billboard of a scene. Exactly one of
// Texture and Text must be set.
//
// The billboard quad spans [-1,1] along local X and Z so a billboard standing
// upright is rotated 90 degrees about X.
type BillboardConfig struct {
	// Name identifies the billboard. If empty a random UUID is assigned on build.
	Name string `json:"name,omitempty"`
	// Texture is an image file path relative to the scene directory.
	Texture string `json:"texture,omitempty"`
	// Text renders a label texture with [TextTexture].
	Text     string     `json:"text,omitempty"`
	Position mgl32.Vec3 `json:"position"`
	// Rotation are the X, Y and Z Euler angles in degrees applied in that order.
	Rotation mgl32.Vec3 `json:"rotation"`
	// Scale of the quad. A zero scale is replaced by 1.
	Scale mgl32.Vec3 `json:"scale"`
	// Color is a hex tint. If empty the billboard is white, or follows the mesh
	// material when Mesh is set.
	Color   string   `json:"color,omitempty"`
	Opacity *float32 `json:"opacity,omitempty"`
	// RayFalloff fades the reflection with the distance to the camera. Zero disables it.
	RayFalloff float32 `json:"ray_falloff,omitempty"`
	Hidden     bool    `json:"hidden,omitempty"`
	// Mesh backs the billboard with a [Mesh] so that its transform, color and
	// opacity are derived from the mesh every frame.
	Mesh bool `json:"mesh,omitempty"`
}

// SceneConfig is the JSON description of a billboard scene.
type SceneConfig struct {
	Camera     CameraConfig               `json:"camera"`
	Ground     GroundConfig               `json:"ground"`
	Reflection bbreflect.ReflectionConfig `json:"reflection"`
	Billboards []BillboardConfig          `json:"billboards"`
}

// LoadSceneConfig decodes and validates a scene. Unknown fields are rejected.
func LoadSceneConfig(r io.Reader) (*SceneConfig, error) {
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	var cfg SceneConfig
	err := dec.Decode(&cfg)
	if err != nil {
		return nil, fmt.Errorf("decoding scene: %w", err)
	}
	err = cfg.Validate()
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadSceneConfigFile reads a scene from filename. See [LoadSceneConfig].
func LoadSceneConfigFile(filename string) (*SceneConfig, error) {
	fp, err := os.Open(filename)
	if err != nil {
		return nil, err
	}
	defer fp.Close()
	cfg, err := LoadSceneConfig(fp)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	return cfg, nil
}

// Validate returns every problem found in the scene joined in a single error.
func (cfg *SceneConfig) Validate() error {
	var errs []error
	if len(cfg.Billboards) == 0 {
		errs = append(errs, errors.New("scene has no billboards"))
	}
	if cfg.Camera.Position == cfg.Camera.Target {
		errs = append(errs, errors.New("camera position equals target"))
	}
	if cfg.Camera.FOV < 0 || cfg.Camera.FOV >= 180 {
		errs = append(errs, fmt.Errorf("camera fov %g out of range", cfg.Camera.FOV))
	}
	if cfg.Ground.Color != "" {
		if _, err := ParseHexColor(cfg.Ground.Color); err != nil {
			errs = append(errs, fmt.Errorf("ground: %w", err))
		}
	}
	if env := cfg.Ground.EnvMapIntensity; env != nil && *env < 0 {
		errs = append(errs, fmt.Errorf("ground: negative env map intensity %g", *env))
	}
	names := make(map[string]bool)
	for i, bb := range cfg.Billboards {
		id := fmt.Sprintf("billboard %d", i)
		if bb.Name != "" {
			id = fmt.Sprintf("billboard %q", bb.Name)
			if names[bb.Name] {
				errs = append(errs, fmt.Errorf("%s: duplicate name", id))
			}
			names[bb.Name] = true
		}
		if (bb.Texture == "") == (bb.Text == "") {
			errs = append(errs, fmt.Errorf("%s: exactly one of texture or text must be set", id))
		}
		if bb.Color != "" {
			if _, err := ParseHexColor(bb.Color); err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", id, err))
			}
		}
		if bb.Opacity != nil && (*bb.Opacity < 0 || *bb.Opacity > 1) {
			errs = append(errs, fmt.Errorf("%s: opacity %g outside [0,1]", id, *bb.Opacity))
		}
	}
	return errors.Join(errs...)
}

// Scene is a built [SceneConfig].
type Scene struct {
	Config   SceneConfig
	Registry *bbreflect.Registry
	// Names holds the billboard names in registry order.
	Names []string
	// Meshes holds the meshes of mesh backed billboards by name.
	Meshes map[string]*Mesh
}

// Build loads the scene textures and registers its billboards in order.
// Texture paths are resolved relative to baseDir. Billboards sharing a texture
// file or label share a single [gleval.ImageSampler] handle.
func (cfg *SceneConfig) Build(baseDir string) (*Scene, error) {
	err := cfg.Validate()
	if err != nil {
		return nil, err
	}
	scene := &Scene{
		Config:   *cfg,
		Registry: new(bbreflect.Registry),
		Meshes:   make(map[string]*Mesh),
	}
	scene.Config.Billboards = append([]BillboardConfig(nil), cfg.Billboards...)
	cache := make(map[string]*gleval.ImageSampler)
	for i := range scene.Config.Billboards {
		bb := &scene.Config.Billboards[i]
		if bb.Name == "" {
			bb.Name = uuid.NewString()
		}
		tex, err := loadBillboardTexture(cache, baseDir, bb)
		if err != nil {
			return nil, fmt.Errorf("billboard %q: %w", bb.Name, err)
		}
		var tint *ms3.Vec
		if bb.Color != "" {
			c, _ := ParseHexColor(bb.Color)
			tint = &c
		}
		opts := bbreflect.BillboardOptions{
			RayFalloff: bb.RayFalloff,
			Opacity:    bb.Opacity,
			Hidden:     bb.Hidden,
		}
		if bb.Mesh {
			mat := NewMaterial(tex)
			if tint != nil {
				mat.SetColor(*tint)
			}
			mesh := NewMesh(mat)
			mesh.Translation = bb.Position
			mesh.Rotation = eulerQuat(bb.Rotation)
			mesh.Scale = scaleOrOne(bb.Scale)
			scene.Meshes[bb.Name] = mesh
			scene.Registry.Create(mesh, opts)
		} else {
			opts.Color = tint
			m := mgl32.Translate3D(bb.Position[0], bb.Position[1], bb.Position[2]).
				Mul4(eulerQuat(bb.Rotation).Mat4()).
				Mul4(scale3D(scaleOrOne(bb.Scale)))
			scene.Registry.CreateFromTextureAndMatrix(tex, Mat4FromMGL(m), opts)
		}
		scene.Names = append(scene.Names, bb.Name)
	}
	return scene, nil
}

func loadBillboardTexture(cache map[string]*gleval.ImageSampler, baseDir string, bb *BillboardConfig) (*gleval.ImageSampler, error) {
	key := "text:" + bb.Text
	if bb.Texture != "" {
		key = "file:" + filepath.Clean(filepath.Join(baseDir, bb.Texture))
	}
	if tex, ok := cache[key]; ok {
		return tex, nil
	}
	var tex *gleval.ImageSampler
	if bb.Texture != "" {
		img, err := LoadTextureFile(filepath.Join(baseDir, bb.Texture))
		if err != nil {
			return nil, err
		}
		tex = gleval.NewImageSampler(img)
	} else {
		img, err := TextTexture(bb.Text, TextConfig{})
		if err != nil {
			return nil, err
		}
		tex = gleval.NewImageSampler(img)
	}
	cache[key] = tex
	return tex, nil
}

func eulerQuat(degrees mgl32.Vec3) mgl32.Quat {
	return mgl32.AnglesToQuat(
		mgl32.DegToRad(degrees[0]),
		mgl32.DegToRad(degrees[1]),
		mgl32.DegToRad(degrees[2]),
		mgl32.XYZ,
	)
}

func scaleOrOne(s mgl32.Vec3) mgl32.Vec3 {
	for i := range s {
		if s[i] == 0 {
			s[i] = 1
		}
	}
	return s
}

func scale3D(s mgl32.Vec3) mgl32.Mat4 { return mgl32.Scale3D(s[0], s[1], s[2]) }
