// Package gleval runs blend shaders through a double-buffered compositing pipeline.
//
// A [Compositor] owns two render targets of the canvas size. Each call to
// [Compositor.Blend] uploads a layer image, renders the accumulated canvas and
// the layer into the target not currently holding the canvas and swaps the two.
// Rendering is done by a [Backend] acquired from a [Surface] on first use:
// [GLSurface] drives an OpenGL context through cgo and [SoftSurface] evaluates
// CPU kernels on in-memory textures.
package gleval

import (
	"errors"
	"strconv"

	"github.com/soypat/glblend/glbuild"
)

var (
	// ErrNotInitialized is returned by operations that need rendering resources
	// before the compositor has acquired them.
	ErrNotInitialized = errors.New("gleval: compositor not initialized")
	// ErrContext wraps failures to acquire a rendering context from a [Surface].
	ErrContext = errors.New("gleval: rendering context unavailable")
)

// Handles to backend objects. The zero handle is never a valid object.
type (
	Texture     uint32
	Framebuffer uint32
	Buffer      uint32
	Shader      uint32
	Program     uint32
)

// Stage is a programmable pipeline stage.
type Stage uint8

const (
	VertexStage Stage = iota + 1
	FragmentStage
)

func (s Stage) String() string {
	switch s {
	case VertexStage:
		return "vertex"
	case FragmentStage:
		return "fragment"
	}
	return "Stage(" + strconv.Itoa(int(s)) + ")"
}

// Surface provides the rendering context of a [Compositor].
type Surface interface {
	// Context returns a backend able to render into targets of the given size.
	Context(width, height int) (Backend, error)
}

// Backend is the subset of a GLES3-style graphics API the pipeline runs on.
// Textures are RGBA8 with linear filtering and edge clamping. Uniform setters
// act on the program last passed to UseProgram; location -1 is ignored.
// Methods that do not return an error record it for the next call to Err.
type Backend interface {
	glbuild.Uniformer

	CreateTexture() (Texture, error)
	// TexImage2D (re)specifies the storage of tex. A nil pix leaves the
	// contents zeroed, otherwise pix holds width*height tightly packed RGBA texels.
	TexImage2D(tex Texture, width, height int, pix []byte) error
	DeleteTexture(Texture)

	// CreateFramebuffer returns a framebuffer drawing into color.
	CreateFramebuffer(color Texture) (Framebuffer, error)
	DeleteFramebuffer(Framebuffer)
	BindFramebuffer(Framebuffer)

	// CompileShader compiles the source of a stage. Compilation failures
	// are returned as a *ShaderError.
	CompileShader(stage Stage, source string) (Shader, error)
	DeleteShader(Shader)
	// LinkProgram links a vertex and a fragment shader. Link failures
	// are returned as a *ShaderError.
	LinkProgram(vertex, fragment Shader) (Program, error)
	DeleteProgram(Program)
	UseProgram(Program)
	UniformLocation(p Program, name string) int32
	AttribLocation(p Program, name string) int32

	CreateBuffer() (Buffer, error)
	BufferData(b Buffer, data []float32)
	DeleteBuffer(Buffer)
	// VertexAttribPointer2f sources the vec2 attribute at location from b.
	VertexAttribPointer2f(location int32, b Buffer)

	Viewport(x, y, width, height int)
	Clear(r, g, b, a float32)
	// BindTexture binds tex to texture unit.
	BindTexture(unit int, tex Texture)
	DrawTriangles(first, count int)
	// ReadPixels reads RGBA texels of the bound framebuffer into dst.
	ReadPixels(x, y, width, height int, dst []byte) error
	// Err returns and clears the first error recorded since the last call.
	Err() error
}

// ShaderError is a shader compilation or program link failure.
type ShaderError struct {
	// Stage is zero for link errors.
	Stage Stage
	// Log is the compiler or linker info log.
	Log string
}

func (e *ShaderError) Error() string {
	if e.Stage == 0 {
		return "gleval: program link failed: " + e.Log
	}
	return "gleval: " + e.Stage.String() + " shader compile failed: " + e.Log
}
