//go:build !tinygo && cgo

package gleval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// GLSurface renders through the OpenGL 4.6 core context of a hidden GLFW window.
// OpenGL calls must be made from the thread that created the surface, so
// callers should lock their goroutine to the main OS thread with runtime.LockOSThread.
type GLSurface struct {
	window *glfw.Window
}

// NewGLSurface initializes GLFW and creates the surface's hidden window.
// terminate destroys the window and terminates GLFW.
func NewGLSurface() (surface *GLSurface, terminate func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("initializing GLFW: %w", err)
	}
	glfw.WindowHint(glfw.Visible, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.False)
	window, err := glfw.CreateWindow(1, 1, "glblend", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("creating GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		window.Destroy()
		glfw.Terminate()
		return nil, nil, fmt.Errorf("initializing OpenGL: %w", err)
	}
	terminate = func() {
		window.Destroy()
		glfw.Terminate()
	}
	return &GLSurface{window: window}, terminate, nil
}

// Context implements [Surface]. Rendering is off-screen so the window size is irrelevant.
func (s *GLSurface) Context(width, height int) (Backend, error) {
	if s == nil || s.window == nil {
		return nil, errors.New("GL surface not created")
	}
	s.window.MakeContextCurrent()
	var maxSize int32
	gl.GetIntegerv(gl.MAX_TEXTURE_SIZE, &maxSize)
	if width > int(maxSize) || height > int(maxSize) {
		return nil, fmt.Errorf("canvas %dx%d exceeds maximum texture size %d", width, height, maxSize)
	}
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	if err := glgl.Err(); err != nil {
		return nil, fmt.Errorf("creating vertex array: %w", err)
	}
	return &glBackend{vao: vao}, nil
}

// glBackend implements [Backend] on the current OpenGL context.
type glBackend struct {
	vao uint32
}

var _ Backend = (*glBackend)(nil)

func (*glBackend) Err() error { return glgl.Err() }

func (*glBackend) CreateTexture() (Texture, error) {
	var tex uint32
	gl.GenTextures(1, &tex)
	gl.BindTexture(gl.TEXTURE_2D, tex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.LINEAR)
	if tex == 0 {
		return 0, glErrOrMessage("glGenTextures returned no texture")
	}
	return Texture(tex), glgl.Err()
}

func (*glBackend) TexImage2D(tex Texture, width, height int, pix []byte) error {
	if pix != nil && len(pix) < 4*width*height {
		return fmt.Errorf("texel data too short: need %d bytes, got %d", 4*width*height, len(pix))
	}
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
	var ptr = gl.Ptr(nil)
	if len(pix) > 0 {
		ptr = gl.Ptr(pix)
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0, gl.RGBA, gl.UNSIGNED_BYTE, ptr)
	return glgl.Err()
}

func (*glBackend) DeleteTexture(tex Texture) {
	t := uint32(tex)
	gl.DeleteTextures(1, &t)
}

func (*glBackend) CreateFramebuffer(color Texture) (Framebuffer, error) {
	var fb uint32
	gl.GenFramebuffers(1, &fb)
	gl.BindFramebuffer(gl.FRAMEBUFFER, fb)
	gl.FramebufferTexture2D(gl.FRAMEBUFFER, gl.COLOR_ATTACHMENT0, gl.TEXTURE_2D, uint32(color), 0)
	if status := gl.CheckFramebufferStatus(gl.FRAMEBUFFER); status != gl.FRAMEBUFFER_COMPLETE {
		gl.DeleteFramebuffers(1, &fb)
		return 0, fmt.Errorf("framebuffer incomplete: status 0x%x", status)
	}
	return Framebuffer(fb), glgl.Err()
}

func (*glBackend) DeleteFramebuffer(fb Framebuffer) {
	f := uint32(fb)
	gl.DeleteFramebuffers(1, &f)
}

func (*glBackend) BindFramebuffer(fb Framebuffer) {
	gl.BindFramebuffer(gl.FRAMEBUFFER, uint32(fb))
}

func (*glBackend) CompileShader(stage Stage, source string) (Shader, error) {
	var typ uint32
	switch stage {
	case VertexStage:
		typ = gl.VERTEX_SHADER
	case FragmentStage:
		typ = gl.FRAGMENT_SHADER
	default:
		return 0, fmt.Errorf("invalid shader stage %v", stage)
	}
	sh := gl.CreateShader(typ)
	if sh == 0 {
		return 0, glErrOrMessage("glCreateShader returned no shader")
	}
	csrc, free := gl.Strs(source + "\x00")
	gl.ShaderSource(sh, 1, csrc, nil)
	free()
	gl.CompileShader(sh)
	var status int32
	gl.GetShaderiv(sh, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(sh, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen)+1)
		gl.GetShaderInfoLog(sh, logLen, nil, gl.Str(log))
		gl.DeleteShader(sh)
		return 0, &ShaderError{Stage: stage, Log: strings.TrimRight(log, "\x00")}
	}
	return Shader(sh), nil
}

func (*glBackend) DeleteShader(s Shader) { gl.DeleteShader(uint32(s)) }

func (*glBackend) LinkProgram(vertex, fragment Shader) (Program, error) {
	p := gl.CreateProgram()
	if p == 0 {
		return 0, glErrOrMessage("glCreateProgram returned no program")
	}
	gl.AttachShader(p, uint32(vertex))
	gl.AttachShader(p, uint32(fragment))
	gl.LinkProgram(p)
	var status int32
	gl.GetProgramiv(p, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(p, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen)+1)
		gl.GetProgramInfoLog(p, logLen, nil, gl.Str(log))
		gl.DeleteProgram(p)
		return 0, &ShaderError{Log: strings.TrimRight(log, "\x00")}
	}
	return Program(p), nil
}

func (*glBackend) DeleteProgram(p Program) { gl.DeleteProgram(uint32(p)) }

func (*glBackend) UseProgram(p Program) { gl.UseProgram(uint32(p)) }

func (*glBackend) UniformLocation(p Program, name string) int32 {
	return gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
}

func (*glBackend) AttribLocation(p Program, name string) int32 {
	return gl.GetAttribLocation(uint32(p), gl.Str(name+"\x00"))
}

func (*glBackend) CreateBuffer() (Buffer, error) {
	var b uint32
	gl.GenBuffers(1, &b)
	if b == 0 {
		return 0, glErrOrMessage("glGenBuffers returned no buffer")
	}
	return Buffer(b), glgl.Err()
}

func (*glBackend) BufferData(b Buffer, data []float32) {
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(b))
	if len(data) == 0 {
		gl.BufferData(gl.ARRAY_BUFFER, 0, nil, gl.DYNAMIC_DRAW)
		return
	}
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(data), gl.Ptr(data), gl.DYNAMIC_DRAW)
}

func (*glBackend) DeleteBuffer(b Buffer) {
	u := uint32(b)
	gl.DeleteBuffers(1, &u)
}

func (*glBackend) VertexAttribPointer2f(location int32, b Buffer) {
	if location < 0 {
		return
	}
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(b))
	gl.EnableVertexAttribArray(uint32(location))
	gl.VertexAttribPointerWithOffset(uint32(location), 2, gl.FLOAT, false, 0, 0)
}

func (*glBackend) Viewport(x, y, width, height int) {
	gl.Viewport(int32(x), int32(y), int32(width), int32(height))
}

func (*glBackend) Clear(r, g, b, a float32) {
	gl.ClearColor(r, g, b, a)
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

func (*glBackend) BindTexture(unit int, tex Texture) {
	gl.ActiveTexture(gl.TEXTURE0 + uint32(unit))
	gl.BindTexture(gl.TEXTURE_2D, uint32(tex))
}

func (*glBackend) DrawTriangles(first, count int) {
	gl.DrawArrays(gl.TRIANGLES, int32(first), int32(count))
}

func (*glBackend) ReadPixels(x, y, width, height int, dst []byte) error {
	if len(dst) < 4*width*height {
		return errors.New("read pixels: destination too short")
	} else if len(dst) == 0 {
		return nil
	}
	gl.PixelStorei(gl.PACK_ALIGNMENT, 1)
	gl.ReadPixels(int32(x), int32(y), int32(width), int32(height), gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(dst))
	return glgl.Err()
}

func (*glBackend) Uniform1i(loc int32, v0 int32)             { gl.Uniform1i(loc, v0) }
func (*glBackend) Uniform2i(loc int32, v0, v1 int32)         { gl.Uniform2i(loc, v0, v1) }
func (*glBackend) Uniform3i(loc int32, v0, v1, v2 int32)     { gl.Uniform3i(loc, v0, v1, v2) }
func (*glBackend) Uniform4i(loc int32, v0, v1, v2, v3 int32) { gl.Uniform4i(loc, v0, v1, v2, v3) }

func (*glBackend) Uniform1f(loc int32, v0 float32)             { gl.Uniform1f(loc, v0) }
func (*glBackend) Uniform2f(loc int32, v0, v1 float32)         { gl.Uniform2f(loc, v0, v1) }
func (*glBackend) Uniform3f(loc int32, v0, v1, v2 float32)     { gl.Uniform3f(loc, v0, v1, v2) }
func (*glBackend) Uniform4f(loc int32, v0, v1, v2, v3 float32) { gl.Uniform4f(loc, v0, v1, v2, v3) }

func (*glBackend) Uniform1ui(loc int32, v0 uint32)             { gl.Uniform1ui(loc, v0) }
func (*glBackend) Uniform2ui(loc int32, v0, v1 uint32)         { gl.Uniform2ui(loc, v0, v1) }
func (*glBackend) Uniform3ui(loc int32, v0, v1, v2 uint32)     { gl.Uniform3ui(loc, v0, v1, v2) }
func (*glBackend) Uniform4ui(loc int32, v0, v1, v2, v3 uint32) { gl.Uniform4ui(loc, v0, v1, v2, v3) }

func (*glBackend) Uniform1iv(loc int32, v []int32) {
	if len(v) > 0 {
		gl.Uniform1iv(loc, int32(len(v)), &v[0])
	}
}

func (*glBackend) Uniform1fv(loc int32, v []float32) {
	if len(v) > 0 {
		gl.Uniform1fv(loc, int32(len(v)), &v[0])
	}
}

func (*glBackend) Uniform1uiv(loc int32, v []uint32) {
	if len(v) > 0 {
		gl.Uniform1uiv(loc, int32(len(v)), &v[0])
	}
}

// matrixArgs returns the number of matrices of size elements in v and a pointer to its start.
func matrixArgs(v []float32, size int) (int32, *float32) {
	if len(v) < size {
		return 0, nil
	}
	return int32(len(v) / size), &v[0]
}

func (*glBackend) UniformMatrix2fv(loc int32, v []float32) {
	if n, p := matrixArgs(v, 4); p != nil {
		gl.UniformMatrix2fv(loc, n, false, p)
	}
}

func (*glBackend) UniformMatrix3fv(loc int32, v []float32) {
	if n, p := matrixArgs(v, 9); p != nil {
		gl.UniformMatrix3fv(loc, n, false, p)
	}
}

func (*glBackend) UniformMatrix4fv(loc int32, v []float32) {
	if n, p := matrixArgs(v, 16); p != nil {
		gl.UniformMatrix4fv(loc, n, false, p)
	}
}

func (*glBackend) UniformMatrix2x3fv(loc int32, v []float32) {
	if n, p := matrixArgs(v, 6); p != nil {
		gl.UniformMatrix2x3fv(loc, n, false, p)
	}
}

func (*glBackend) UniformMatrix3x2fv(loc int32, v []float32) {
	if n, p := matrixArgs(v, 6); p != nil {
		gl.UniformMatrix3x2fv(loc, n, false, p)
	}
}

func (*glBackend) UniformMatrix2x4fv(loc int32, v []float32) {
	if n, p := matrixArgs(v, 8); p != nil {
		gl.UniformMatrix2x4fv(loc, n, false, p)
	}
}

func (*glBackend) UniformMatrix4x2fv(loc int32, v []float32) {
	if n, p := matrixArgs(v, 8); p != nil {
		gl.UniformMatrix4x2fv(loc, n, false, p)
	}
}

func (*glBackend) UniformMatrix3x4fv(loc int32, v []float32) {
	if n, p := matrixArgs(v, 12); p != nil {
		gl.UniformMatrix3x4fv(loc, n, false, p)
	}
}

func (*glBackend) UniformMatrix4x3fv(loc int32, v []float32) {
	if n, p := matrixArgs(v, 12); p != nil {
		gl.UniformMatrix4x3fv(loc, n, false, p)
	}
}

func glErrOrMessage(defaultMsg string) (err error) {
	err = glgl.Err()
	if err == nil {
		err = errors.New(defaultMsg)
	} else {
		err = fmt.Errorf("%s: %w", defaultMsg, err)
	}
	return err
}
