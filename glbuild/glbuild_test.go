package glbuild_test

import (
	"strings"
	"testing"

	"github.com/soypat/bbreflect/glbuild"
)

func TestUnrollLoops(t *testing.T) {
	const src = `pre
#pragma unroll_loop_start
for ( int i = 0; i < 3; i ++ ) {
	x += a[i] * b[ i ] + float(UNROLLED_LOOP_INDEX);
}
#pragma unroll_loop_end
post`
	got := glbuild.UnrollLoops(src)
	if strings.Contains(got, "#pragma") || strings.Contains(got, "for (") {
		t.Fatal("region not unrolled:\n", got)
	}
	if !strings.HasPrefix(got, "pre\n") || !strings.HasSuffix(got, "\npost") {
		t.Error("text outside region modified:\n", got)
	}
	for _, want := range []string{
		"x += a[ 0 ] * b[ 0 ] + float(0);",
		"x += a[ 1 ] * b[ 1 ] + float(1);",
		"x += a[ 2 ] * b[ 2 ] + float(2);",
	} {
		if strings.Count(got, want) != 1 {
			t.Errorf("want %q once in\n%s", want, got)
		}
	}
	if strings.Index(got, "a[ 0 ]") > strings.Index(got, "a[ 2 ]") {
		t.Error("iterations out of order")
	}
}

func TestUnrollLoopsEmpty(t *testing.T) {
	for _, bounds := range []string{"i = 0; i < 0;", "i = 3; i < 1;"} {
		src := "a\n#pragma unroll_loop_start\nfor (int " + bounds + " i++) {\n\tx[i] = 1.;\n}\n#pragma unroll_loop_end\nb"
		got := glbuild.UnrollLoops(src)
		if got != "a\n\nb" {
			t.Errorf("%s: want empty expansion, got %q", bounds, got)
		}
	}
}

func TestUnrollLoopsMultipleRegions(t *testing.T) {
	region := "#pragma unroll_loop_start\nfor (int i = 0; i < 2; i++) {y[i];}\n#pragma unroll_loop_end"
	got := glbuild.UnrollLoops(region + "\nmid\n" + region)
	if got != "y[ 0 ];y[ 1 ];\nmid\ny[ 0 ];y[ 1 ];" {
		t.Errorf("unexpected expansion %q", got)
	}
	const noRegion = "for (int i = 0; i < 2; i++) {y[i];}"
	if glbuild.UnrollLoops(noRegion) != noRegion {
		t.Error("text without pragma modified")
	}
}

func TestAppendExpanded(t *testing.T) {
	tmpl := []byte("a[COUNT_LONG] b[COUNT] c[COUNT]")
	got := glbuild.AppendExpanded([]byte(">"), tmpl,
		glbuild.IntPlaceholder("COUNT_LONG", 7),
		glbuild.IntPlaceholder("COUNT", 3),
	)
	if string(got) != ">a[7] b[3] c[3]" {
		t.Errorf("unexpected expansion %q", got)
	}
	if string(tmpl) != "a[COUNT_LONG] b[COUNT] c[COUNT]" {
		t.Error("template modified")
	}
}

func TestInsertAfter(t *testing.T) {
	src := "#include <common>\nmain\n#include <common>"
	got, ok := glbuild.InsertAfter(src, "#include <common>", "code")
	if !ok {
		t.Fatal("anchor not found")
	}
	if got != "#include <common>\ncode\nmain\n#include <common>" {
		t.Errorf("unexpected splice %q", got)
	}
	got, ok = glbuild.InsertAfter(src, "#include <missing>", "code")
	if ok || got != src {
		t.Error("missing anchor must leave source untouched")
	}
}

func TestReplaceAnchor(t *testing.T) {
	src := "A B A"
	got, ok := glbuild.ReplaceAnchor(src, "A", "C")
	if !ok || got != "C B A" {
		t.Errorf("want first occurrence replaced, got %q", got)
	}
	got, ok = glbuild.ReplaceAnchor(src, "D", "C")
	if ok || got != src {
		t.Error("missing anchor must leave source untouched")
	}
}

func TestResolveIncludes(t *testing.T) {
	chunks := map[string]string{
		"common": "#define PI 3.14\n#include <math>",
		"math":   "float sq(float x) { return x*x; }",
	}
	got, err := glbuild.ResolveIncludes("#include <common>\n  #include <math>\nvoid main(){}", chunks)
	if err != nil {
		t.Fatal(err)
	}
	want := "#define PI 3.14\nfloat sq(float x) { return x*x; }\nfloat sq(float x) { return x*x; }\nvoid main(){}"
	if got != want {
		t.Errorf("want\n%s\ngot\n%s", want, got)
	}
	_, err = glbuild.ResolveIncludes("#include <nope>", chunks)
	if err == nil {
		t.Error("expected unresolved include error")
	}
	cyclic := map[string]string{"a": "#include <b>", "b": "#include <a>"}
	_, err = glbuild.ResolveIncludes("#include <a>", cyclic)
	if err == nil {
		t.Error("expected include cycle error")
	}
}

func TestMakeShaderFunction(t *testing.T) {
	var tests = []struct {
		src  string
		name string
	}{
		{src: "float f(float x){return x;}", name: "f"},
		{src: "// Comment with words(\nconst float K = 2.;\n\nvec3 g(vec3 v){ return v*K; }", name: "g"},
		{src: "#ifndef EPS\n#define EPS 0.1\n#endif\nvec4 h(inout float d){ return vec4(d); }", name: "h"},
	}
	for _, test := range tests {
		obj, err := glbuild.MakeShaderFunction([]byte(test.src))
		if err != nil {
			t.Error(err)
			continue
		}
		if string(obj.NamePtr) != test.name {
			t.Errorf("want name %q, got %q", test.name, obj.NamePtr)
		}
		src := obj.AppendSource(nil)
		if !strings.Contains(string(src), test.src) {
			t.Error("source not preserved")
		}
	}
	_, err := glbuild.MakeShaderFunction([]byte("const float K = 2.;"))
	if err == nil {
		t.Error("expected error for snippet without function")
	}
	var zero glbuild.ShaderObject
	if zero.Validate() == nil {
		t.Error("zero object must not validate")
	}
}

func TestCheckDeclarationOrder(t *testing.T) {
	ok := "float a(float x){ return x; }\nfloat b(float x){ return a(x) + 1.; }"
	if err := glbuild.CheckDeclarationOrder([]byte(ok)); err != nil {
		t.Error(err)
	}
	bad := "float b(float x){ return a(x) + 1.; }\nfloat a(float x){ return x; }"
	if err := glbuild.CheckDeclarationOrder([]byte(bad)); err == nil {
		t.Error("expected use-before-definition error")
	}
}

func TestFormatFixed(t *testing.T) {
	var tests = []struct {
		v    float32
		prec int
		want string
	}{
		{0.85, 5, "0.85000"},
		{1, 5, "1.00000"},
		{-0.25, 3, "-0.250"},
		{0.001, 5, "0.00100"},
	}
	for _, test := range tests {
		got := glbuild.FormatFixed(test.v, test.prec)
		if got != test.want {
			t.Errorf("FormatFixed(%v, %d): want %q, got %q", test.v, test.prec, test.want, got)
		}
	}
}

func TestFormatFloat(t *testing.T) {
	var tests = []struct {
		v    float32
		want string
	}{
		{0.001, "0.001"},
		{2, "2."},
		{-3, "-3."},
		{1e-6, "1e-06"},
		{2.5e-7, "2.5e-07"},
		{1e21, "1e+21"},
	}
	for _, test := range tests {
		got := glbuild.FormatFloat(test.v)
		if got != test.want {
			t.Errorf("FormatFloat(%v): want %q, got %q", test.v, test.want, got)
		}
	}
}

func TestAppendDefines(t *testing.T) {
	got := glbuild.AppendDefines(nil, map[string]string{"B": "1", "A": "", "C": "true"})
	if string(got) != "#define A\n#define B 1\n#define C true\n" {
		t.Errorf("unexpected defines %q", got)
	}
}
