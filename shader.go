package bbreflect

import (
	"errors"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	"github.com/soypat/bbreflect/glbuild"
	"github.com/soypat/bbreflect/glbuild/glsllib"
)

// Include lines of the host shader templates where reflection code is spliced.
const (
	AnchorCommon             = "#include <common>"
	AnchorProjectVertex      = "#include <project_vertex>"
	AnchorBSDFs              = "#include <bsdfs>"
	AnchorLightsFragmentMaps = "#include <lights_fragment_maps>"
)

// Shader stage names used in [MissingAnchor].
const (
	StageVertex   = "vertex"
	StageFragment = "fragment"
)

// Uniform is a named shader input. Value is read by the host engine on every draw
// so storing live objects (such as billboards) keeps them in sync.
type Uniform struct {
	Value any
}

// Shader is the mutable description of a host shader program before compilation.
// Defines with an empty value are emitted as a bare #define. A define that is
// disabled is removed from the map.
type Shader struct {
	VertexSource   string
	FragmentSource string
	Defines        map[string]string
	Uniforms       map[string]*Uniform
	// RoughnessMap is set when the material samples a roughness texture.
	RoughnessMap bool
}

// ReflectionConfig configures [Registry.EnableReflection]. The zero value is the default configuration.
type ReflectionConfig struct {
	// DisableRoughnessMapBlur turns off mip-level blur of reflections by the material roughness map.
	DisableRoughnessMapBlur bool `json:"disable_roughness_map_blur,omitempty"`
	// RoughnessMapBlurIntensity scales roughness blur. If nil 0.85 is used.
	RoughnessMapBlurIntensity *float32 `json:"roughness_map_blur_intensity,omitempty"`
	// Roughness if not nil replaces the material roughness in the reflection lookup with a constant.
	Roughness *float32 `json:"roughness,omitempty"`
	// EnvMapIntensity if not nil replaces the material env map intensity with a constant.
	EnvMapIntensity *float32 `json:"env_map_intensity,omitempty"`
	// SelfIntersectEpsilon is the ray parameter below which hits are discarded. Zero means 0.001.
	SelfIntersectEpsilon float32 `json:"self_intersect_epsilon,omitempty"`
	// OpacityExponent is the exponent applied to billboard opacity. Zero means a square root (0.5).
	OpacityExponent float32 `json:"opacity_exponent,omitempty"`
	// Silent disables logging of missing anchors.
	Silent bool `json:"silent,omitempty"`
}

const defaultBlurIntensity = 0.85

// Decimals used when writing configuration values as GLSL literals.
const literalPrec = 5

// MissingAnchor is returned when a splice anchor is not present in a shader stage.
type MissingAnchor struct {
	Stage  string
	Anchor string
}

func (m MissingAnchor) Error() string {
	return fmt.Sprintf("%s shader missing anchor %q", m.Stage, m.Anchor)
}

// BindReport summarizes a call to [Registry.EnableReflection].
type BindReport struct {
	// Patched is true when the shader was modified. It is false when there are no billboards.
	Patched        bool
	BillboardCount int
	TextureCount   int
	// MissingAnchors lists the splices that were skipped because their anchor was not found.
	MissingAnchors []MissingAnchor
}

// Err returns the missing anchors joined as a single error or nil if every splice succeeded.
func (r BindReport) Err() error {
	if len(r.MissingAnchors) == 0 {
		return nil
	}
	errs := make([]error, len(r.MissingAnchors))
	for i := range r.MissingAnchors {
		errs[i] = r.MissingAnchors[i]
	}
	return errors.Join(errs...)
}

var billboardTextureIndex = regexp.MustCompile(`billboardTextures\[\s(\d+)\s\]`)

// EnableReflection patches sh so that it blends reflections of every billboard
// registered at the time of the call. Billboards created afterwards are not
// reflected until the shader is patched again.
//
// With no registered billboards sh is left untouched. Missing anchors do not
// abort the bind: the corresponding splice is skipped and recorded in the report.
func (r *Registry) EnableReflection(sh *Shader, cfg ReflectionConfig) (report BindReport) {
	billboards := r.Billboards()
	if len(billboards) == 0 {
		return report
	}
	table := NewTextureTable(billboards)
	code, err := AssembleReflectionCode(len(billboards), len(table.Textures))
	if err != nil {
		panic("bbreflect: " + err.Error()) // Counts are valid by construction.
	}
	functions := remapTextureIndices(code.Functions, table.Indices)
	report = BindReport{
		Patched:        true,
		BillboardCount: len(billboards),
		TextureCount:   len(table.Textures),
	}

	if sh.Defines == nil {
		sh.Defines = make(map[string]string)
	}
	if !cfg.DisableRoughnessMapBlur && sh.RoughnessMap {
		sh.Defines[glsllib.DefineRoughnessBlur] = ""
	} else {
		delete(sh.Defines, glsllib.DefineRoughnessBlur)
	}
	intensity := float32(defaultBlurIntensity)
	if cfg.RoughnessMapBlurIntensity != nil {
		intensity = *cfg.RoughnessMapBlurIntensity
	}
	sh.Defines[glsllib.DefineRoughnessBlurIntensity] = glbuild.FormatFixed(intensity, literalPrec)
	if cfg.SelfIntersectEpsilon != 0 {
		sh.Defines[glsllib.DefineSelfIntersectEpsilon] = glbuild.FormatFloat(cfg.SelfIntersectEpsilon)
	}
	if cfg.OpacityExponent != 0 && cfg.OpacityExponent != 0.5 {
		sh.Defines[glsllib.DefineOpacityExponent] = glbuild.FormatFixed(cfg.OpacityExponent, literalPrec)
	}

	if sh.Uniforms == nil {
		sh.Uniforms = make(map[string]*Uniform)
	}
	sh.Uniforms[glsllib.UniformTextures] = &Uniform{Value: table.Textures}
	sh.Uniforms[glsllib.UniformReflections] = &Uniform{Value: billboards}

	splice := func(src *string, stage, anchor, code string, replace bool) {
		var found bool
		if replace {
			*src, found = glbuild.ReplaceAnchor(*src, anchor, code)
		} else {
			*src, found = glbuild.InsertAfter(*src, anchor, code)
		}
		if !found {
			report.MissingAnchors = append(report.MissingAnchors, MissingAnchor{Stage: stage, Anchor: anchor})
			if !cfg.Silent {
				log.Printf("bbreflect: %s shader missing %q, reflection code not inserted", stage, anchor)
			}
		}
	}
	varying := glsllib.Varying()
	splice(&sh.VertexSource, StageVertex, AnchorCommon, varying, false)
	splice(&sh.VertexSource, StageVertex, AnchorProjectVertex, glsllib.VertexCode(), false)

	splice(&sh.FragmentSource, StageFragment, AnchorCommon, varying+"\n"+code.Uniforms, false)
	splice(&sh.FragmentSource, StageFragment, AnchorBSDFs, functions, false)
	lights := glsllib.LightsFragmentMaps()
	if cfg.Roughness != nil {
		lights = strings.ReplaceAll(lights, "roughnessFactor", glbuild.FormatFixed(*cfg.Roughness, literalPrec))
	}
	if cfg.EnvMapIntensity != nil {
		lights = strings.ReplaceAll(lights, "envMapIntensity", glbuild.FormatFixed(*cfg.EnvMapIntensity, literalPrec))
	}
	splice(&sh.FragmentSource, StageFragment, AnchorLightsFragmentMaps, lights, true)
	return report
}

// remapTextureIndices rewrites per-billboard texture references to indices
// into the deduplicated texture array.
func remapTextureIndices(functions string, indices []int) string {
	return billboardTextureIndex.ReplaceAllStringFunc(functions, func(ref string) string {
		sub := billboardTextureIndex.FindStringSubmatch(ref)
		billboard, err := strconv.Atoi(sub[1])
		if err != nil || billboard >= len(indices) {
			return ref
		}
		return "billboardTextures[ " + strconv.Itoa(indices[billboard]) + " ]"
	})
}
