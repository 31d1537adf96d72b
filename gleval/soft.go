package gleval

import (
	"errors"
	"fmt"
	"math"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glblend/glbuild"
)

// SoftSurface provides software backends. Fragment stages are run by the
// kernels Fragments compiles; the only supported vertex stage is [VertexSource].
type SoftSurface struct {
	Fragments glbuild.KernelCompiler
}

// Context implements [Surface].
func (s SoftSurface) Context(width, height int) (Backend, error) {
	if s.Fragments == nil {
		return nil, errors.New("software surface has no fragment kernel compiler")
	}
	return NewSoftBackend(s.Fragments), nil
}

// maxTextureUnits is the number of texture units of a [SoftBackend].
const maxTextureUnits = 8

// SoftBackend is a [Backend] that keeps RGBA8 textures in memory and
// rasterizes triangles on the CPU, sampling pixel centers.
type SoftBackend struct {
	fragments    glbuild.KernelCompiler
	lastHandle   uint32
	textures     map[Texture]*softTexture
	framebuffers map[Framebuffer]Texture
	shaders      map[Shader]*softShader
	programs     map[Program]*softProgram
	buffers      map[Buffer][]float32
	attribs      map[int32]Buffer
	units        [maxTextureUnits]Texture
	fb           Framebuffer
	viewport     [4]int
	prog         *softProgram
	err          error
	// Draws counts the DrawTriangles calls that rendered.
	Draws int
}

var _ Backend = (*SoftBackend)(nil)

type softTexture struct {
	w, h int
	pix  []byte
}

type softShader struct {
	stage    Stage
	vertex   *glbuild.VertexKernel
	fragment glbuild.FragmentKernel
}

type softProgram struct {
	vertex   *glbuild.VertexKernel
	fragment glbuild.FragmentKernel
	// Uniform locations index names and values.
	locations map[string]int32
	values    []glbuild.UniformValue
	set       []bool
}

// NewSoftBackend returns a backend running fragment stages compiled by fragments.
func NewSoftBackend(fragments glbuild.KernelCompiler) *SoftBackend {
	return &SoftBackend{
		fragments:    fragments,
		textures:     make(map[Texture]*softTexture),
		framebuffers: make(map[Framebuffer]Texture),
		shaders:      make(map[Shader]*softShader),
		programs:     make(map[Program]*softProgram),
		buffers:      make(map[Buffer][]float32),
		attribs:      make(map[int32]Buffer),
	}
}

// Objects returns the number of live textures, framebuffers, shaders,
// programs and buffers.
func (sb *SoftBackend) Objects() int {
	return len(sb.textures) + len(sb.framebuffers) + len(sb.shaders) + len(sb.programs) + len(sb.buffers)
}

func (sb *SoftBackend) handle() uint32 {
	sb.lastHandle++
	return sb.lastHandle
}

// record keeps the first error until it is read by Err.
func (sb *SoftBackend) record(format string, args ...any) {
	if sb.err == nil {
		sb.err = fmt.Errorf(format, args...)
	}
}

func (sb *SoftBackend) Err() error {
	err := sb.err
	sb.err = nil
	return err
}

func (sb *SoftBackend) CreateTexture() (Texture, error) {
	tex := Texture(sb.handle())
	sb.textures[tex] = &softTexture{}
	return tex, nil
}

func (sb *SoftBackend) TexImage2D(tex Texture, width, height int, pix []byte) error {
	t, ok := sb.textures[tex]
	if !ok {
		return fmt.Errorf("invalid texture %d", tex)
	} else if width < 0 || height < 0 {
		return fmt.Errorf("invalid texture size %dx%d", width, height)
	}
	n := 4 * width * height
	if pix != nil && len(pix) < n {
		return fmt.Errorf("texel data too short: need %d bytes, got %d", n, len(pix))
	}
	t.w, t.h = width, height
	t.pix = make([]byte, n)
	copy(t.pix, pix)
	return nil
}

func (sb *SoftBackend) DeleteTexture(tex Texture) {
	delete(sb.textures, tex)
	for i, u := range sb.units {
		if u == tex {
			sb.units[i] = 0
		}
	}
}

func (sb *SoftBackend) CreateFramebuffer(color Texture) (Framebuffer, error) {
	if _, ok := sb.textures[color]; !ok {
		return 0, fmt.Errorf("framebuffer attachment: invalid texture %d", color)
	}
	fb := Framebuffer(sb.handle())
	sb.framebuffers[fb] = color
	return fb, nil
}

func (sb *SoftBackend) DeleteFramebuffer(fb Framebuffer) {
	delete(sb.framebuffers, fb)
	if sb.fb == fb {
		sb.fb = 0
	}
}

func (sb *SoftBackend) BindFramebuffer(fb Framebuffer) {
	if _, ok := sb.framebuffers[fb]; !ok && fb != 0 {
		sb.record("bind: invalid framebuffer %d", fb)
		return
	}
	sb.fb = fb
}

// target returns the color texture of the bound framebuffer.
func (sb *SoftBackend) target() (Texture, *softTexture, error) {
	if sb.fb == 0 {
		return 0, nil, errors.New("no framebuffer bound")
	}
	tex := sb.framebuffers[sb.fb]
	t, ok := sb.textures[tex]
	if !ok {
		return 0, nil, fmt.Errorf("framebuffer %d incomplete", sb.fb)
	}
	return tex, t, nil
}

func (sb *SoftBackend) CompileShader(stage Stage, source string) (Shader, error) {
	sh := &softShader{stage: stage}
	switch stage {
	case VertexStage:
		if source != VertexSource.WithPrelude() {
			return 0, &ShaderError{Stage: stage, Log: "ERROR: 0:1: '' : no CPU kernel for vertex source"}
		}
		sh.vertex = &compositorVertexKernel
	case FragmentStage:
		k, err := sb.fragments(source)
		if err != nil {
			return 0, &ShaderError{Stage: stage, Log: err.Error()}
		}
		sh.fragment = k
	default:
		return 0, fmt.Errorf("invalid shader stage %v", stage)
	}
	s := Shader(sb.handle())
	sb.shaders[s] = sh
	return s, nil
}

func (sb *SoftBackend) DeleteShader(s Shader) { delete(sb.shaders, s) }

func (sb *SoftBackend) LinkProgram(vertex, fragment Shader) (Program, error) {
	vs, fs := sb.shaders[vertex], sb.shaders[fragment]
	if vs == nil || vs.stage != VertexStage {
		return 0, &ShaderError{Log: "missing vertex shader"}
	} else if fs == nil || fs.stage != FragmentStage {
		return 0, &ShaderError{Log: "missing fragment shader"}
	}
	p := Program(sb.handle())
	sb.programs[p] = &softProgram{
		vertex:    vs.vertex,
		fragment:  fs.fragment,
		locations: make(map[string]int32),
	}
	return p, nil
}

func (sb *SoftBackend) DeleteProgram(p Program) {
	if prog, ok := sb.programs[p]; ok && prog == sb.prog {
		sb.prog = nil
	}
	delete(sb.programs, p)
}

func (sb *SoftBackend) UseProgram(p Program) {
	if p == 0 {
		sb.prog = nil
		return
	}
	prog, ok := sb.programs[p]
	if !ok {
		sb.record("use: invalid program %d", p)
		return
	}
	sb.prog = prog
}

// UniformLocation assigns locations on first lookup. Any name is accepted.
func (sb *SoftBackend) UniformLocation(p Program, name string) int32 {
	prog, ok := sb.programs[p]
	if !ok {
		sb.record("uniform location: invalid program %d", p)
		return -1
	}
	loc, ok := prog.locations[name]
	if !ok {
		loc = int32(len(prog.values))
		prog.locations[name] = loc
		prog.values = append(prog.values, glbuild.UniformValue{})
		prog.set = append(prog.set, false)
	}
	return loc
}

func (sb *SoftBackend) AttribLocation(p Program, name string) int32 {
	prog, ok := sb.programs[p]
	if !ok {
		sb.record("attribute location: invalid program %d", p)
		return -1
	}
	if name != prog.vertex.Attrib {
		return -1
	}
	return 0
}

func (sb *SoftBackend) CreateBuffer() (Buffer, error) {
	b := Buffer(sb.handle())
	sb.buffers[b] = nil
	return b, nil
}

func (sb *SoftBackend) BufferData(b Buffer, data []float32) {
	if _, ok := sb.buffers[b]; !ok {
		sb.record("buffer data: invalid buffer %d", b)
		return
	}
	sb.buffers[b] = append([]float32(nil), data...)
}

func (sb *SoftBackend) DeleteBuffer(b Buffer) { delete(sb.buffers, b) }

func (sb *SoftBackend) VertexAttribPointer2f(location int32, b Buffer) {
	if location < 0 {
		return
	} else if _, ok := sb.buffers[b]; !ok {
		sb.record("vertex attribute: invalid buffer %d", b)
		return
	}
	sb.attribs[location] = b
}

func (sb *SoftBackend) Viewport(x, y, width, height int) {
	sb.viewport = [4]int{x, y, width, height}
}

func (sb *SoftBackend) Clear(r, g, b, a float32) {
	_, t, err := sb.target()
	if err != nil {
		sb.record("clear: %w", err)
		return
	}
	c := [4]byte{unorm8(r), unorm8(g), unorm8(b), unorm8(a)}
	for i := 0; i < len(t.pix); i += 4 {
		copy(t.pix[i:i+4], c[:])
	}
}

func (sb *SoftBackend) BindTexture(unit int, tex Texture) {
	if unit < 0 || unit >= maxTextureUnits {
		sb.record("bind texture: invalid unit %d", unit)
		return
	} else if _, ok := sb.textures[tex]; !ok && tex != 0 {
		sb.record("bind texture: invalid texture %d", tex)
		return
	}
	sb.units[unit] = tex
}

func (sb *SoftBackend) ReadPixels(x, y, width, height int, dst []byte) error {
	_, t, err := sb.target()
	if err != nil {
		return fmt.Errorf("read pixels: %w", err)
	}
	if x < 0 || y < 0 || width < 0 || height < 0 || x+width > t.w || y+height > t.h {
		return fmt.Errorf("read pixels: rectangle (%d,%d) %dx%d out of %dx%d framebuffer", x, y, width, height, t.w, t.h)
	} else if len(dst) < 4*width*height {
		return errors.New("read pixels: destination too short")
	}
	for row := 0; row < height; row++ {
		src := t.pix[4*((y+row)*t.w+x):]
		copy(dst[4*row*width:4*(row+1)*width], src[:4*width])
	}
	return nil
}

// DrawTriangles runs the current program over count vertices starting at first.
func (sb *SoftBackend) DrawTriangles(first, count int) {
	prog := sb.prog
	if prog == nil {
		sb.record("draw: no program in use")
		return
	}
	targetTex, target, err := sb.target()
	if err != nil {
		sb.record("draw: %w", err)
		return
	}
	for unit, tex := range sb.units {
		if tex == targetTex {
			sb.record("draw: feedback loop, texture %d bound to unit %d is the render target", tex, unit)
			return
		}
	}
	vk := prog.vertex
	data := sb.buffers[sb.attribs[0]]
	if first < 0 || count < 0 || 2*(first+count) > len(data) {
		sb.record("draw: %d vertices from %d exceed attribute buffer of %d floats", count, first, len(data))
		return
	}
	env := &softEnv{sb: sb, prog: prog}
	var tri [3]softVertex
	for v := first; v+3 <= first+count; v += 3 {
		for k := range tri {
			i := v + k
			tri[k].vary = make([]ms2.Vec, len(vk.Varyings))
			clip := vk.Main(env, ms2.Vec{X: data[2*i], Y: data[2*i+1]}, tri[k].vary)
			tri[k].x = float64(sb.viewport[0]) + float64(clip.X+1)/2*float64(sb.viewport[2])
			tri[k].y = float64(sb.viewport[1]) + float64(clip.Y+1)/2*float64(sb.viewport[3])
		}
		sb.rasterize(target, &tri, vk.Varyings, prog.fragment, env)
	}
	sb.Draws++
}

type softVertex struct {
	x, y float64
	vary []ms2.Vec
}

func edge(ax, ay, bx, by, px, py float64) float64 {
	return (bx-ax)*(py-ay) - (by-ay)*(px-ax)
}

// rasterize shades the pixels of t whose centers lie inside or on the edge of tri.
func (sb *SoftBackend) rasterize(t *softTexture, tri *[3]softVertex, names []string, frag glbuild.FragmentKernel, env glbuild.Env) {
	v0, v1, v2 := &tri[0], &tri[1], &tri[2]
	area := edge(v0.x, v0.y, v1.x, v1.y, v2.x, v2.y)
	if area == 0 || area != area || area-area != 0 {
		return // Degenerate or non-finite.
	}
	minX := max(int(math.Floor(min(v0.x, v1.x, v2.x))), sb.viewport[0], 0)
	minY := max(int(math.Floor(min(v0.y, v1.y, v2.y))), sb.viewport[1], 0)
	maxX := min(int(math.Ceil(max(v0.x, v1.x, v2.x))), sb.viewport[0]+sb.viewport[2], t.w)
	maxY := min(int(math.Ceil(max(v0.y, v1.y, v2.y))), sb.viewport[1]+sb.viewport[3], t.h)
	in := glbuild.Varyings{Names: names, Values: make([]ms2.Vec, len(names))}
	for py := minY; py < maxY; py++ {
		cy := float64(py) + 0.5
		for px := minX; px < maxX; px++ {
			cx := float64(px) + 0.5
			w0 := edge(v1.x, v1.y, v2.x, v2.y, cx, cy) / area
			w1 := edge(v2.x, v2.y, v0.x, v0.y, cx, cy) / area
			w2 := edge(v0.x, v0.y, v1.x, v1.y, cx, cy) / area
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			for j := range in.Values {
				a, b, c := v0.vary[j], v1.vary[j], v2.vary[j]
				in.Values[j] = ms2.Vec{
					X: float32(w0*float64(a.X) + w1*float64(b.X) + w2*float64(c.X)),
					Y: float32(w0*float64(a.Y) + w1*float64(b.Y) + w2*float64(c.Y)),
				}
			}
			color := frag(env, in)
			off := 4 * (py*t.w + px)
			for k, v := range color {
				t.pix[off+k] = unorm8(v)
			}
		}
	}
}

// unorm8 converts a normalized float to an 8 bit unsigned normalized value.
func unorm8(v float32) byte {
	if !(v > 0) {
		return 0
	} else if v >= 1 {
		return 255
	}
	return byte(math32.Round(v * 255))
}

type softEnv struct {
	sb   *SoftBackend
	prog *softProgram
}

func (e *softEnv) Uniform(name string) (glbuild.UniformValue, bool) {
	loc, ok := e.prog.locations[name]
	if !ok || !e.prog.set[loc] {
		return glbuild.UniformValue{}, false
	}
	return e.prog.values[loc], true
}

func (e *softEnv) Sampler(name string) glbuild.Sampler {
	u, _ := e.Uniform(name)
	var unit int32
	if len(u.Ints) > 0 {
		unit = u.Ints[0]
	}
	if unit < 0 || unit >= maxTextureUnits {
		return nil
	}
	t, ok := e.sb.textures[e.sb.units[unit]]
	if !ok || t.w == 0 || t.h == 0 {
		return nil
	}
	return t
}

// Size implements [glbuild.Sampler].
func (t *softTexture) Size() (int, int) { return t.w, t.h }

// Texel implements [glbuild.Sampler] with bilinear filtering and edge clamping.
func (t *softTexture) Texel(coord ms2.Vec) [4]float32 {
	u := coord.X*float32(t.w) - 0.5
	v := coord.Y*float32(t.h) - 0.5
	if u != u || v != v {
		u, v = 0, 0
	}
	fu, fv := math32.Floor(u), math32.Floor(v)
	au, av := u-fu, v-fv
	x0 := clampi(fu, t.w)
	x1 := clampi(fu+1, t.w)
	y0 := clampi(fv, t.h)
	y1 := clampi(fv+1, t.h)
	var c [4]float32
	for k := range c {
		c00 := float32(t.pix[4*(y0*t.w+x0)+k])
		c10 := float32(t.pix[4*(y0*t.w+x1)+k])
		c01 := float32(t.pix[4*(y1*t.w+x0)+k])
		c11 := float32(t.pix[4*(y1*t.w+x1)+k])
		top := c00 + (c10-c00)*au
		bottom := c01 + (c11-c01)*au
		c[k] = (top + (bottom-top)*av) / 255
	}
	return c
}

// clampi clamps texel index v to [0, n).
func clampi(v float32, n int) int {
	if v <= 0 {
		return 0
	} else if v >= float32(n-1) {
		return n - 1
	}
	return int(v)
}

func (sb *SoftBackend) setUniform(loc int32, v glbuild.UniformValue) {
	if loc == -1 {
		return
	}
	prog := sb.prog
	if prog == nil {
		sb.record("uniform: no program in use")
		return
	} else if loc < 0 || int(loc) >= len(prog.values) {
		sb.record("uniform: invalid location %d", loc)
		return
	}
	prog.values[loc] = v
	prog.set[loc] = true
}

func (sb *SoftBackend) ints(loc int32, v ...int32) {
	sb.setUniform(loc, glbuild.UniformValue{Ints: append([]int32(nil), v...)})
}

func (sb *SoftBackend) floats(loc int32, v ...float32) {
	sb.setUniform(loc, glbuild.UniformValue{Floats: append([]float32(nil), v...)})
}

func (sb *SoftBackend) uints(loc int32, v ...uint32) {
	sb.setUniform(loc, glbuild.UniformValue{Uints: append([]uint32(nil), v...)})
}

func (sb *SoftBackend) matrix(loc int32, rows, cols int, v []float32) {
	sb.setUniform(loc, glbuild.UniformValue{Floats: append([]float32(nil), v...), Rows: rows, Cols: cols})
}

func (sb *SoftBackend) Uniform1i(loc int32, v0 int32)               { sb.ints(loc, v0) }
func (sb *SoftBackend) Uniform2i(loc int32, v0, v1 int32)           { sb.ints(loc, v0, v1) }
func (sb *SoftBackend) Uniform3i(loc int32, v0, v1, v2 int32)       { sb.ints(loc, v0, v1, v2) }
func (sb *SoftBackend) Uniform4i(loc int32, v0, v1, v2, v3 int32)   { sb.ints(loc, v0, v1, v2, v3) }
func (sb *SoftBackend) Uniform1f(loc int32, v0 float32)             { sb.floats(loc, v0) }
func (sb *SoftBackend) Uniform2f(loc int32, v0, v1 float32)         { sb.floats(loc, v0, v1) }
func (sb *SoftBackend) Uniform3f(loc int32, v0, v1, v2 float32)     { sb.floats(loc, v0, v1, v2) }
func (sb *SoftBackend) Uniform4f(loc int32, v0, v1, v2, v3 float32) { sb.floats(loc, v0, v1, v2, v3) }
func (sb *SoftBackend) Uniform1ui(loc int32, v0 uint32)             { sb.uints(loc, v0) }
func (sb *SoftBackend) Uniform2ui(loc int32, v0, v1 uint32)         { sb.uints(loc, v0, v1) }
func (sb *SoftBackend) Uniform3ui(loc int32, v0, v1, v2 uint32)     { sb.uints(loc, v0, v1, v2) }
func (sb *SoftBackend) Uniform4ui(loc int32, v0, v1, v2, v3 uint32) { sb.uints(loc, v0, v1, v2, v3) }
func (sb *SoftBackend) Uniform1iv(loc int32, v []int32)             { sb.ints(loc, v...) }
func (sb *SoftBackend) Uniform1fv(loc int32, v []float32)           { sb.floats(loc, v...) }
func (sb *SoftBackend) Uniform1uiv(loc int32, v []uint32)           { sb.uints(loc, v...) }
func (sb *SoftBackend) UniformMatrix2fv(loc int32, v []float32)     { sb.matrix(loc, 2, 2, v) }
func (sb *SoftBackend) UniformMatrix3fv(loc int32, v []float32)     { sb.matrix(loc, 3, 3, v) }
func (sb *SoftBackend) UniformMatrix4fv(loc int32, v []float32)     { sb.matrix(loc, 4, 4, v) }
func (sb *SoftBackend) UniformMatrix2x3fv(loc int32, v []float32)   { sb.matrix(loc, 2, 3, v) }
func (sb *SoftBackend) UniformMatrix3x2fv(loc int32, v []float32)   { sb.matrix(loc, 3, 2, v) }
func (sb *SoftBackend) UniformMatrix2x4fv(loc int32, v []float32)   { sb.matrix(loc, 2, 4, v) }
func (sb *SoftBackend) UniformMatrix4x2fv(loc int32, v []float32)   { sb.matrix(loc, 4, 2, v) }
func (sb *SoftBackend) UniformMatrix3x4fv(loc int32, v []float32)   { sb.matrix(loc, 3, 4, v) }
func (sb *SoftBackend) UniformMatrix4x3fv(loc int32, v []float32)   { sb.matrix(loc, 4, 3, v) }
