package glbuild

import "fmt"

// Uniformer is implemented by graphics backends. Its methods mirror the typed
// uniform setters of OpenGL ES 3.0 and act on the program currently in use.
// A location of -1 is silently ignored, as in OpenGL.
type Uniformer interface {
	Uniform1i(location int32, v0 int32)
	Uniform2i(location int32, v0, v1 int32)
	Uniform3i(location int32, v0, v1, v2 int32)
	Uniform4i(location int32, v0, v1, v2, v3 int32)
	Uniform1iv(location int32, v []int32)

	Uniform1f(location int32, v0 float32)
	Uniform2f(location int32, v0, v1 float32)
	Uniform3f(location int32, v0, v1, v2 float32)
	Uniform4f(location int32, v0, v1, v2, v3 float32)
	Uniform1fv(location int32, v []float32)

	Uniform1ui(location int32, v0 uint32)
	Uniform2ui(location int32, v0, v1 uint32)
	Uniform3ui(location int32, v0, v1, v2 uint32)
	Uniform4ui(location int32, v0, v1, v2, v3 uint32)
	Uniform1uiv(location int32, v []uint32)

	// Matrix setters take column-major values and are never transposed.
	UniformMatrix2fv(location int32, v []float32)
	UniformMatrix3fv(location int32, v []float32)
	UniformMatrix4fv(location int32, v []float32)
	UniformMatrix2x3fv(location int32, v []float32)
	UniformMatrix3x2fv(location int32, v []float32)
	UniformMatrix2x4fv(location int32, v []float32)
	UniformMatrix4x2fv(location int32, v []float32)
	UniformMatrix3x4fv(location int32, v []float32)
	UniformMatrix4x3fv(location int32, v []float32)
}

// ArgKind is the tag of an [Arg].
type ArgKind uint8

const (
	_ ArgKind = iota
	KindInt
	KindFloat
	KindUint
	KindMatrix
)

func (k ArgKind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindFloat:
		return "float"
	case KindUint:
		return "uint"
	case KindMatrix:
		return "matrix"
	}
	return "invalid"
}

// Arg is a uniform argument: a value that knows how to write itself into a
// named uniform slot of a program. The zero Arg is invalid and binds nothing.
//
// Args are created with [Int], [Float], [Uint], their slice variants and [Matrix].
type Arg struct {
	kind ArgKind
	// seq marks the sequence form, bound through the array setter.
	seq  bool
	n    uint8
	rows uint8
	cols uint8
	i    [4]int32
	f    [4]float32
	u    [4]uint32
	// slice holds sequence and matrix values.
	vi []int32
	vf []float32
	vu []uint32
}

// Int returns a scalar or vector int argument of 1 to 4 components.
func Int(v ...int32) Arg {
	a := Arg{kind: KindInt, n: components(len(v))}
	copy(a.i[:], v)
	return a
}

// IntSlice returns an int argument bound through the array setter (uniform1iv)
// regardless of its length. v is copied.
func IntSlice(v []int32) Arg {
	return Arg{kind: KindInt, seq: true, n: sequence(len(v)), vi: append([]int32(nil), v...)}
}

// Float returns a scalar or vector float argument of 1 to 4 components.
func Float(v ...float32) Arg {
	a := Arg{kind: KindFloat, n: components(len(v))}
	copy(a.f[:], v)
	return a
}

// FloatSlice returns a float argument bound through the array setter (uniform1fv). v is copied.
func FloatSlice(v []float32) Arg {
	return Arg{kind: KindFloat, seq: true, n: sequence(len(v)), vf: append([]float32(nil), v...)}
}

// Uint returns a scalar or vector uint argument of 1 to 4 components.
func Uint(v ...uint32) Arg {
	a := Arg{kind: KindUint, n: components(len(v))}
	copy(a.u[:], v)
	return a
}

// UintSlice returns a uint argument bound through the array setter (uniform1uiv). v is copied.
func UintSlice(v []uint32) Arg {
	return Arg{kind: KindUint, seq: true, n: sequence(len(v)), vu: append([]uint32(nil), v...)}
}

// Matrix returns a rows x cols matrix argument. Both extents must be 2, 3 or 4 and
// values are column-major; len(values) must be a non-zero multiple of rows*cols
// (more than one matrix binds a matrix array). values is copied.
func Matrix(rows, cols int, values []float32) Arg {
	if rows < 2 || rows > 4 || cols < 2 || cols > 4 {
		panic(fmt.Sprintf("glbuild: invalid matrix size %dx%d", rows, cols))
	}
	sz := rows * cols
	if len(values) == 0 || len(values)%sz != 0 {
		panic(fmt.Sprintf("glbuild: %d matrix values not a multiple of %dx%d", len(values), rows, cols))
	}
	return Arg{kind: KindMatrix, rows: uint8(rows), cols: uint8(cols), vf: append([]float32(nil), values...)}
}

func components(n int) uint8 {
	if n < 1 || n > 4 {
		panic(fmt.Sprintf("glbuild: uniform argument needs 1 to 4 components, got %d", n))
	}
	return uint8(n)
}

func sequence(n int) uint8 {
	if n == 0 {
		panic("glbuild: empty uniform argument sequence")
	}
	return uint8(min(n, 255))
}

// Kind returns the argument's tag.
func (a Arg) Kind() ArgKind { return a.kind }

// Len returns the number of components, or number of matrix values.
func (a Arg) Len() int {
	switch {
	case a.kind == KindMatrix:
		return len(a.vf)
	case a.seq:
		return len(a.vi) + len(a.vf) + len(a.vu)
	}
	return int(a.n)
}

// IsSequence reports whether a binds through the array setter.
func (a Arg) IsSequence() bool { return a.seq }

// MatrixSize returns the rows and columns of a matrix argument. Zero for other kinds.
func (a Arg) MatrixSize() (rows, cols int) { return int(a.rows), int(a.cols) }

// Bind writes the argument into the uniform at location of the program in use.
func (a Arg) Bind(u Uniformer, location int32) {
	switch a.kind {
	case KindInt:
		if a.seq {
			u.Uniform1iv(location, a.vi)
			return
		}
		v := a.i
		switch a.n {
		case 1:
			u.Uniform1i(location, v[0])
		case 2:
			u.Uniform2i(location, v[0], v[1])
		case 3:
			u.Uniform3i(location, v[0], v[1], v[2])
		case 4:
			u.Uniform4i(location, v[0], v[1], v[2], v[3])
		}

	case KindFloat:
		if a.seq {
			u.Uniform1fv(location, a.vf)
			return
		}
		v := a.f
		switch a.n {
		case 1:
			u.Uniform1f(location, v[0])
		case 2:
			u.Uniform2f(location, v[0], v[1])
		case 3:
			u.Uniform3f(location, v[0], v[1], v[2])
		case 4:
			u.Uniform4f(location, v[0], v[1], v[2], v[3])
		}

	case KindUint:
		if a.seq {
			u.Uniform1uiv(location, a.vu)
			return
		}
		v := a.u
		switch a.n {
		case 1:
			u.Uniform1ui(location, v[0])
		case 2:
			u.Uniform2ui(location, v[0], v[1])
		case 3:
			u.Uniform3ui(location, v[0], v[1], v[2])
		case 4:
			u.Uniform4ui(location, v[0], v[1], v[2], v[3])
		}

	case KindMatrix:
		v := a.vf
		switch [2]uint8{a.rows, a.cols} {
		case [2]uint8{2, 2}:
			u.UniformMatrix2fv(location, v)
		case [2]uint8{2, 3}:
			u.UniformMatrix2x3fv(location, v)
		case [2]uint8{2, 4}:
			u.UniformMatrix2x4fv(location, v)
		case [2]uint8{3, 2}:
			u.UniformMatrix3x2fv(location, v)
		case [2]uint8{3, 3}:
			u.UniformMatrix3fv(location, v)
		case [2]uint8{3, 4}:
			u.UniformMatrix3x4fv(location, v)
		case [2]uint8{4, 2}:
			u.UniformMatrix4x2fv(location, v)
		case [2]uint8{4, 3}:
			u.UniformMatrix4x3fv(location, v)
		case [2]uint8{4, 4}:
			u.UniformMatrix4fv(location, v)
		}
	}
}
