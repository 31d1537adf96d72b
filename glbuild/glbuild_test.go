package glbuild_test

import (
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/soypat/glblend/glbuild"
)

func TestWithDefineIdentity(t *testing.T) {
	const body = "void main() {}\n"
	base := glbuild.NewSource(body)
	a := base.WithDefine(map[string]string{"METHOD": "3"})
	b := base.WithDefine(map[string]string{"METHOD": "3"})
	if a == b {
		t.Fatal("expected distinct sources from independent WithDefine calls")
	}
	if a.Text() != b.Text() {
		t.Errorf("expected equal text, got\n%s\n%s", a.Text(), b.Text())
	}
	if base.Text() != body {
		t.Errorf("WithDefine modified receiver: %q", base.Text())
	}
	want := "#define METHOD 3\n" + body
	if a.Text() != want {
		t.Errorf("want %q, got %q", want, a.Text())
	}
	if !strings.HasPrefix(a.WithPrelude(), glbuild.VersionStr) {
		t.Error("prelude must start with version directive")
	}
	if a.WithPrelude() != glbuild.Prelude+want {
		t.Error("prelude not prepended to text")
	}
}

func TestWithDefineOrder(t *testing.T) {
	src := glbuild.NewSource("x").WithDefine(map[string]string{
		"B": "2",
		"A": "1",
		"C": "3",
	})
	want := "#define A 1\n#define B 2\n#define C 3\nx"
	if src.Text() != want {
		t.Errorf("want %q, got %q", want, src.Text())
	}
	defs, rest := glbuild.ParseDefines(src.Text())
	if rest != "x" {
		t.Errorf("unexpected remaining text %q", rest)
	}
	if !reflect.DeepEqual(defs, map[string]string{"A": "1", "B": "2", "C": "3"}) {
		t.Errorf("unexpected definitions %v", defs)
	}
}

func TestParseDefinesNone(t *testing.T) {
	defs, rest := glbuild.ParseDefines("uniform int a;\n#define LATE 1\n")
	if len(defs) != 0 {
		t.Errorf("expected no definitions, got %v", defs)
	}
	if rest != "uniform int a;\n#define LATE 1\n" {
		t.Errorf("text should be returned untouched, got %q", rest)
	}
}

func TestArgBind(t *testing.T) {
	for _, test := range []struct {
		arg  glbuild.Arg
		want string
	}{
		{arg: glbuild.Int(1), want: "Uniform1i(7,[1])"},
		{arg: glbuild.Int(1, -2), want: "Uniform2i(7,[1 -2])"},
		{arg: glbuild.Int(1, 2, 3), want: "Uniform3i(7,[1 2 3])"},
		{arg: glbuild.Int(1, 2, 3, 4), want: "Uniform4i(7,[1 2 3 4])"},
		{arg: glbuild.IntSlice([]int32{5}), want: "Uniform1iv(7,[5])"},
		{arg: glbuild.IntSlice([]int32{5, 6, 7}), want: "Uniform1iv(7,[5 6 7])"},
		{arg: glbuild.Float(0.5), want: "Uniform1f(7,[0.5])"},
		{arg: glbuild.Float(0.5, 1), want: "Uniform2f(7,[0.5 1])"},
		{arg: glbuild.Float(0.5, 1, 2), want: "Uniform3f(7,[0.5 1 2])"},
		{arg: glbuild.Float(0.5, 1, 2, 3), want: "Uniform4f(7,[0.5 1 2 3])"},
		{arg: glbuild.FloatSlice([]float32{0.25}), want: "Uniform1fv(7,[0.25])"},
		{arg: glbuild.Uint(9), want: "Uniform1ui(7,[9])"},
		{arg: glbuild.Uint(9, 8), want: "Uniform2ui(7,[9 8])"},
		{arg: glbuild.Uint(9, 8, 7), want: "Uniform3ui(7,[9 8 7])"},
		{arg: glbuild.Uint(9, 8, 7, 6), want: "Uniform4ui(7,[9 8 7 6])"},
		{arg: glbuild.UintSlice([]uint32{1}), want: "Uniform1uiv(7,[1])"},
		{arg: glbuild.Matrix(2, 2, seqf(4)), want: "UniformMatrix2fv(7,[0 1 2 3])"},
		{arg: glbuild.Matrix(3, 3, seqf(9)), want: "UniformMatrix3fv(7,[0 1 2 3 4 5 6 7 8])"},
		{arg: glbuild.Matrix(4, 4, seqf(16)), want: "UniformMatrix4fv(7,[0 1 2 3 4 5 6 7 8 9 10 11 12 13 14 15])"},
		{arg: glbuild.Matrix(2, 3, seqf(6)), want: "UniformMatrix2x3fv(7,[0 1 2 3 4 5])"},
		{arg: glbuild.Matrix(3, 2, seqf(6)), want: "UniformMatrix3x2fv(7,[0 1 2 3 4 5])"},
		{arg: glbuild.Matrix(2, 4, seqf(8)), want: "UniformMatrix2x4fv(7,[0 1 2 3 4 5 6 7])"},
		{arg: glbuild.Matrix(4, 2, seqf(8)), want: "UniformMatrix4x2fv(7,[0 1 2 3 4 5 6 7])"},
		{arg: glbuild.Matrix(3, 4, seqf(12)), want: "UniformMatrix3x4fv(7,[0 1 2 3 4 5 6 7 8 9 10 11])"},
		{arg: glbuild.Matrix(4, 3, seqf(12)), want: "UniformMatrix4x3fv(7,[0 1 2 3 4 5 6 7 8 9 10 11])"},
		{arg: glbuild.Matrix(2, 2, seqf(8)), want: "UniformMatrix2fv(7,[0 1 2 3 4 5 6 7])"},
	} {
		var rec recorder
		test.arg.Bind(&rec, 7)
		if len(rec.calls) != 1 {
			t.Errorf("%v: want exactly one call, got %v", test.want, rec.calls)
			continue
		}
		if rec.calls[0] != test.want {
			t.Errorf("want %s, got %s", test.want, rec.calls[0])
		}
	}
}

func TestArgSliceCopied(t *testing.T) {
	v := []int32{1, 2}
	arg := glbuild.IntSlice(v)
	v[0] = 100
	var rec recorder
	arg.Bind(&rec, 0)
	if rec.calls[0] != "Uniform1iv(0,[1 2])" {
		t.Errorf("argument aliases caller slice: %s", rec.calls[0])
	}
	if arg.Len() != 2 || !arg.IsSequence() || arg.Kind() != glbuild.KindInt {
		t.Errorf("unexpected argument shape len=%d seq=%v kind=%s", arg.Len(), arg.IsSequence(), arg.Kind())
	}
}

func TestArgMatrixSize(t *testing.T) {
	for _, test := range []struct {
		arg        glbuild.Arg
		rows, cols int
	}{
		{glbuild.Matrix(2, 2, seqf(4)), 2, 2},
		{glbuild.Matrix(3, 4, seqf(12)), 3, 4},
		{glbuild.Matrix(4, 2, seqf(8)), 4, 2},
		{glbuild.Float(1, 2), 0, 0},
		{glbuild.IntSlice([]int32{1, 2, 3, 4}), 0, 0},
	} {
		rows, cols := test.arg.MatrixSize()
		if rows != test.rows || cols != test.cols {
			t.Errorf("%s argument: want %dx%d, got %dx%d", test.arg.Kind(), test.rows, test.cols, rows, cols)
		}
	}
}

func TestArgZeroBindsNothing(t *testing.T) {
	var rec recorder
	glbuild.Arg{}.Bind(&rec, 1)
	if len(rec.calls) != 0 {
		t.Errorf("zero Arg bound %v", rec.calls)
	}
}

func TestArgPanics(t *testing.T) {
	for name, fn := range map[string]func(){
		"int0":      func() { glbuild.Int() },
		"int5":      func() { glbuild.Float(1, 2, 3, 4, 5) },
		"emptyseq":  func() { glbuild.UintSlice(nil) },
		"mat1x2":    func() { glbuild.Matrix(1, 2, seqf(2)) },
		"mat5x4":    func() { glbuild.Matrix(5, 4, seqf(20)) },
		"matlen":    func() { glbuild.Matrix(2, 2, seqf(3)) },
		"matnovals": func() { glbuild.Matrix(3, 3, nil) },
	} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("%s: expected panic", name)
				}
			}()
			fn()
		}()
	}
}

func seqf(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = float32(i)
	}
	return v
}

type recorder struct {
	calls []string
}

func (r *recorder) rec(name string, loc int32, v any) {
	r.calls = append(r.calls, fmt.Sprintf("%s(%d,%v)", name, loc, v))
}

func (r *recorder) Uniform1i(l int32, v0 int32)             { r.rec("Uniform1i", l, []int32{v0}) }
func (r *recorder) Uniform2i(l int32, v0, v1 int32)         { r.rec("Uniform2i", l, []int32{v0, v1}) }
func (r *recorder) Uniform3i(l int32, v0, v1, v2 int32)     { r.rec("Uniform3i", l, []int32{v0, v1, v2}) }
func (r *recorder) Uniform4i(l int32, v0, v1, v2, v3 int32) { r.rec("Uniform4i", l, []int32{v0, v1, v2, v3}) }
func (r *recorder) Uniform1iv(l int32, v []int32)           { r.rec("Uniform1iv", l, v) }
func (r *recorder) Uniform1f(l int32, v0 float32)           { r.rec("Uniform1f", l, []float32{v0}) }
func (r *recorder) Uniform2f(l int32, v0, v1 float32)       { r.rec("Uniform2f", l, []float32{v0, v1}) }
func (r *recorder) Uniform3f(l int32, v0, v1, v2 float32)   { r.rec("Uniform3f", l, []float32{v0, v1, v2}) }
func (r *recorder) Uniform4f(l int32, v0, v1, v2, v3 float32) {
	r.rec("Uniform4f", l, []float32{v0, v1, v2, v3})
}
func (r *recorder) Uniform1fv(l int32, v []float32)       { r.rec("Uniform1fv", l, v) }
func (r *recorder) Uniform1ui(l int32, v0 uint32)         { r.rec("Uniform1ui", l, []uint32{v0}) }
func (r *recorder) Uniform2ui(l int32, v0, v1 uint32)     { r.rec("Uniform2ui", l, []uint32{v0, v1}) }
func (r *recorder) Uniform3ui(l int32, v0, v1, v2 uint32) { r.rec("Uniform3ui", l, []uint32{v0, v1, v2}) }
func (r *recorder) Uniform4ui(l int32, v0, v1, v2, v3 uint32) {
	r.rec("Uniform4ui", l, []uint32{v0, v1, v2, v3})
}
func (r *recorder) Uniform1uiv(l int32, v []uint32)         { r.rec("Uniform1uiv", l, v) }
func (r *recorder) UniformMatrix2fv(l int32, v []float32)   { r.rec("UniformMatrix2fv", l, v) }
func (r *recorder) UniformMatrix3fv(l int32, v []float32)   { r.rec("UniformMatrix3fv", l, v) }
func (r *recorder) UniformMatrix4fv(l int32, v []float32)   { r.rec("UniformMatrix4fv", l, v) }
func (r *recorder) UniformMatrix2x3fv(l int32, v []float32) { r.rec("UniformMatrix2x3fv", l, v) }
func (r *recorder) UniformMatrix3x2fv(l int32, v []float32) { r.rec("UniformMatrix3x2fv", l, v) }
func (r *recorder) UniformMatrix2x4fv(l int32, v []float32) { r.rec("UniformMatrix2x4fv", l, v) }
func (r *recorder) UniformMatrix4x2fv(l int32, v []float32) { r.rec("UniformMatrix4x2fv", l, v) }
func (r *recorder) UniformMatrix3x4fv(l int32, v []float32) { r.rec("UniformMatrix3x4fv", l, v) }
func (r *recorder) UniformMatrix4x3fv(l int32, v []float32) { r.rec("UniformMatrix4x3fv", l, v) }
