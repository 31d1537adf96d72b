package gleval

import (
	_ "embed"
	"errors"
	"fmt"
	"image"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/glblend/glbuild"
)

//go:embed compositor.vert.glsl
var vertexGLSL string

// VertexSource is the vertex stage linked with every blend fragment stage.
// It maps canvas pixel positions to clip space and writes the destination
// and source texture coordinates.
var VertexSource = glbuild.NewSource(vertexGLSL)

// Names of the pipeline interface shared by the vertex and fragment stages.
const (
	attribPosition   = "blender_vertex_position_in_pixel"
	uniformSrcOffset = "blender_srcOffset"
	uniformSrcArea   = "blender_srcArea"
	uniformDstImage  = "blender_dstImage"
	uniformSrcImage  = "blender_srcImage"
	varyingDstCoord  = "blender_dstCoord"
	varyingSrcCoord  = "blender_srcCoord"
)

// Texture units of the accumulated canvas and of the uploaded layer.
const (
	dstUnit = 0
	srcUnit = 1
)

// Compositor accumulates layers onto a canvas of fixed size. Rendering
// resources are acquired from the surface on the first call to Init or Blend.
// A Compositor must be used from a single goroutine.
type Compositor struct {
	width, height int
	surface       Surface
	res           *resources
}

type renderTarget struct {
	tex Texture
	fb  Framebuffer
}

type resources struct {
	be     Backend
	vertex Shader
	input  Texture
	// targets[current] holds the canvas; the other one is the next pass's output.
	targets  [2]renderTarget
	current  int
	rect     Buffer
	programs map[*glbuild.Source]Program
}

// NewCompositor returns a compositor of a width×height canvas rendering through surface.
func NewCompositor(width, height int, surface Surface) (*Compositor, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	} else if surface == nil {
		return nil, errors.New("nil surface")
	}
	return &Compositor{width: width, height: height, surface: surface}, nil
}

// Width returns the canvas width in pixels.
func (c *Compositor) Width() int { return c.width }

// Height returns the canvas height in pixels.
func (c *Compositor) Height() int { return c.height }

// Init acquires a rendering context and allocates the pipeline resources.
// The canvas starts out transparent. Init is a no-op if the compositor is
// already initialized.
func (c *Compositor) Init() error {
	if c.res != nil {
		return nil
	}
	be, err := c.surface.Context(c.width, c.height)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrContext, err)
	} else if be == nil {
		return fmt.Errorf("%w: surface returned no backend", ErrContext)
	}
	res := &resources{be: be, programs: make(map[*glbuild.Source]Program)}
	err = res.allocate(c.width, c.height)
	if err != nil {
		res.release()
		return err
	}
	c.res = res
	slogger().Debug("compositor initialized", "width", c.width, "height", c.height)
	return nil
}

func (res *resources) allocate(width, height int) (err error) {
	be := res.be
	res.vertex, err = be.CompileShader(VertexStage, VertexSource.WithPrelude())
	if err != nil {
		return err
	}
	res.input, err = be.CreateTexture()
	if err != nil {
		return fmt.Errorf("creating input texture: %w", err)
	}
	for i := range res.targets {
		t := &res.targets[i]
		t.tex, err = be.CreateTexture()
		if err != nil {
			return fmt.Errorf("creating render target texture: %w", err)
		}
		err = be.TexImage2D(t.tex, width, height, nil)
		if err != nil {
			return fmt.Errorf("allocating render target: %w", err)
		}
		t.fb, err = be.CreateFramebuffer(t.tex)
		if err != nil {
			return fmt.Errorf("creating framebuffer: %w", err)
		}
		be.BindFramebuffer(t.fb)
		be.Clear(0, 0, 0, 0)
	}
	res.rect, err = be.CreateBuffer()
	if err != nil {
		return fmt.Errorf("creating vertex buffer: %w", err)
	}
	return be.Err()
}

// release deletes every non-zero handle held by res.
func (res *resources) release() {
	be := res.be
	for _, p := range res.programs {
		be.DeleteProgram(p)
	}
	clear(res.programs)
	if res.vertex != 0 {
		be.DeleteShader(res.vertex)
	}
	if res.input != 0 {
		be.DeleteTexture(res.input)
	}
	for _, t := range res.targets {
		if t.fb != 0 {
			be.DeleteFramebuffer(t.fb)
		}
		if t.tex != 0 {
			be.DeleteTexture(t.tex)
		}
	}
	if res.rect != 0 {
		be.DeleteBuffer(res.rect)
	}
	*res = resources{be: be}
}

// Blend composites img onto the canvas with its top-left corner at canvas
// pixel (dx, dy), using shader for the fragment stage. Canvas pixels outside
// the footprint of img are left unchanged.
func (c *Compositor) Blend(img *image.NRGBA, dx, dy float32, shader glbuild.Shader) error {
	if img == nil {
		return errors.New("nil image")
	} else if shader == nil || shader.Source() == nil {
		return errors.New("nil shader source")
	}
	w, h := img.Rect.Dx(), img.Rect.Dy()
	if w <= 0 || h <= 0 {
		return fmt.Errorf("empty image %v", img.Rect)
	}
	err := c.Init()
	if err != nil {
		return err
	}
	res := c.res
	err = res.be.TexImage2D(res.input, w, h, tightPix(img))
	if err != nil {
		return fmt.Errorf("uploading image: %w", err)
	}
	prog, err := res.program(shader.Source())
	if err != nil {
		return err
	}
	return c.pass(prog, shader.Args(), dx, dy, w, h)
}

// program returns the program of src, compiling and linking it on first use.
// Programs are keyed by source identity.
func (res *resources) program(src *glbuild.Source) (Program, error) {
	if prog, ok := res.programs[src]; ok {
		return prog, nil
	}
	be := res.be
	fs, err := be.CompileShader(FragmentStage, src.WithPrelude())
	if err != nil {
		return 0, err
	}
	prog, err := be.LinkProgram(res.vertex, fs)
	be.DeleteShader(fs)
	if err != nil {
		return 0, err
	}
	res.programs[src] = prog
	slogger().Debug("program compiled", "programs", len(res.programs))
	return prog, nil
}

// pass renders the canvas and the input texture into the output target and swaps.
func (c *Compositor) pass(prog Program, args map[string]glbuild.Arg, dx, dy float32, w, h int) error {
	res := c.res
	be := res.be
	cur := res.targets[res.current]
	out := res.targets[1-res.current]

	be.UseProgram(prog)
	for name, arg := range args {
		arg.Bind(be, be.UniformLocation(prog, name))
	}
	be.Viewport(0, 0, c.width, c.height)
	be.BufferData(res.rect, rectangle(float32(c.width), float32(c.height)))
	be.VertexAttribPointer2f(be.AttribLocation(prog, attribPosition), res.rect)

	err := be.TexImage2D(out.tex, c.width, c.height, nil)
	if err != nil {
		return fmt.Errorf("respecifying render target: %w", err)
	}
	be.BindFramebuffer(out.fb)
	be.Clear(0, 0, 0, 0)

	be.Uniform2f(be.UniformLocation(prog, uniformSrcOffset), dx, dy)
	be.Uniform4f(be.UniformLocation(prog, uniformSrcArea), 0, 0, float32(w), float32(h))
	be.Uniform1i(be.UniformLocation(prog, uniformDstImage), dstUnit)
	be.BindTexture(dstUnit, cur.tex)
	be.Uniform1i(be.UniformLocation(prog, uniformSrcImage), srcUnit)
	be.BindTexture(srcUnit, res.input)

	be.DrawTriangles(0, 6)
	err = be.Err()
	if err != nil {
		return fmt.Errorf("render pass: %w", err)
	}
	res.current = 1 - res.current
	return nil
}

// rectangle returns two triangles covering [0,w]×[0,h].
func rectangle(w, h float32) []float32 {
	return []float32{
		0, 0,
		w, 0,
		0, h,
		0, h,
		w, 0,
		w, h,
	}
}

// tightPix returns the pixels of img as rows of exactly 4*width bytes,
// copying only if img's layout is not already tight.
func tightPix(img *image.NRGBA) []byte {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	rowLen := 4 * w
	off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y)
	if img.Stride == rowLen {
		return img.Pix[off : off+rowLen*h]
	}
	pix := make([]byte, rowLen*h)
	for y := 0; y < h; y++ {
		copy(pix[y*rowLen:(y+1)*rowLen], img.Pix[off+y*img.Stride:])
	}
	return pix
}

// CreateImageData reads back the canvas.
func (c *Compositor) CreateImageData() (*image.NRGBA, error) {
	if c.res == nil {
		return nil, ErrNotInitialized
	}
	be := c.res.be
	be.BindFramebuffer(c.res.targets[c.res.current].fb)
	img := image.NewNRGBA(image.Rect(0, 0, c.width, c.height))
	err := be.ReadPixels(0, 0, c.width, c.height, img.Pix)
	if err != nil {
		return nil, fmt.Errorf("reading canvas: %w", err)
	}
	return img, nil
}

// ContextLost forgets every resource and cached program without calling into
// the backend, whose objects are gone along with the context. The next call
// to Init or Blend acquires a new context with a transparent canvas.
func (c *Compositor) ContextLost() {
	if c.res == nil {
		return
	}
	slogger().Debug("context lost", "programs", len(c.res.programs))
	c.res = nil
}

// Release deletes the compositor's backend resources. The compositor may be
// used again afterwards, starting from a transparent canvas.
func (c *Compositor) Release() error {
	if c.res == nil {
		return nil
	}
	be := c.res.be
	c.res.release()
	c.res = nil
	return be.Err()
}

// CachedPrograms returns the number of linked programs in the cache.
func (c *Compositor) CachedPrograms() int {
	if c.res == nil {
		return 0
	}
	return len(c.res.programs)
}

// compositorVertexKernel is the CPU counterpart of compositor.vert.glsl.
var compositorVertexKernel = glbuild.VertexKernel{
	Attrib:   attribPosition,
	Varyings: []string{varyingDstCoord, varyingSrcCoord},
	Main: func(env glbuild.Env, pos ms2.Vec, out []ms2.Vec) ms2.Vec {
		dw, dh := samplerSize(env, uniformDstImage)
		sw, sh := samplerSize(env, uniformSrcImage)
		var off ms2.Vec
		if u, ok := env.Uniform(uniformSrcOffset); ok && len(u.Floats) >= 2 {
			off = ms2.Vec{X: u.Floats[0], Y: u.Floats[1]}
		}
		normalized := ms2.Vec{X: pos.X / dw, Y: pos.Y / dh}
		out[0] = normalized
		out[1] = ms2.Vec{X: (pos.X - off.X) / sw, Y: (pos.Y - off.Y) / sh}
		return ms2.Vec{X: 2*normalized.X - 1, Y: 2*normalized.Y - 1}
	},
}

func samplerSize(env glbuild.Env, name string) (w, h float32) {
	s := env.Sampler(name)
	if s == nil {
		return 0, 0
	}
	iw, ih := s.Size()
	return float32(iw), float32(ih)
}
