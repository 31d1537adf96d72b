package gleval_test

import (
	"testing"

	"github.com/soypat/glblend/glbuild"
	"github.com/soypat/glblend/gleval"
)

// sampleSource returns a backend whose fragment stages sample the source image.
func sampleSource() *gleval.SoftBackend {
	return gleval.NewSoftBackend(func(string) (glbuild.FragmentKernel, error) {
		return func(env glbuild.Env, in glbuild.Varyings) [4]float32 {
			s := env.Sampler("blender_srcImage")
			if s == nil {
				return [4]float32{1, 0, 1, 1}
			}
			return s.Texel(in.Get("blender_srcCoord"))
		}, nil
	})
}

type softFixture struct {
	be     *gleval.SoftBackend
	prog   gleval.Program
	canvas gleval.Texture
	fb     gleval.Framebuffer
	src    gleval.Texture
	rect   gleval.Buffer
}

func newSoftFixture(t *testing.T, w, h int, src []byte, sw, sh int) *softFixture {
	t.Helper()
	f := &softFixture{be: sampleSource()}
	be := f.be
	must := func(err error) {
		t.Helper()
		if err != nil {
			t.Fatal(err)
		}
	}
	vs, err := be.CompileShader(gleval.VertexStage, gleval.VertexSource.WithPrelude())
	must(err)
	fs, err := be.CompileShader(gleval.FragmentStage, "sample")
	must(err)
	f.prog, err = be.LinkProgram(vs, fs)
	must(err)
	f.canvas, err = be.CreateTexture()
	must(err)
	must(be.TexImage2D(f.canvas, w, h, nil))
	f.fb, err = be.CreateFramebuffer(f.canvas)
	must(err)
	f.src, err = be.CreateTexture()
	must(err)
	must(be.TexImage2D(f.src, sw, sh, src))
	f.rect, err = be.CreateBuffer()
	must(err)
	return f
}

// draw covers a w×h canvas, sampling the source at offset (dx, dy) and the
// canvas texture bound to dstUnit.
func (f *softFixture) draw(w, h int, dx, dy float32, dstUnit int, dstTex gleval.Texture) {
	be := f.be
	be.UseProgram(f.prog)
	be.Viewport(0, 0, w, h)
	fw, fh := float32(w), float32(h)
	be.BufferData(f.rect, []float32{0, 0, fw, 0, 0, fh, 0, fh, fw, 0, fw, fh})
	be.VertexAttribPointer2f(be.AttribLocation(f.prog, "blender_vertex_position_in_pixel"), f.rect)
	be.BindFramebuffer(f.fb)
	be.Uniform2f(be.UniformLocation(f.prog, "blender_srcOffset"), dx, dy)
	be.Uniform1i(be.UniformLocation(f.prog, "blender_dstImage"), int32(dstUnit))
	be.BindTexture(dstUnit, dstTex)
	be.Uniform1i(be.UniformLocation(f.prog, "blender_srcImage"), 1)
	be.BindTexture(1, f.src)
	be.DrawTriangles(0, 6)
}

func TestSoftBilinearClamp(t *testing.T) {
	src := []byte{
		0, 0, 0, 255,
		255, 255, 255, 255,
	}
	f := newSoftFixture(t, 4, 1, src, 2, 1)
	other, _ := f.be.CreateTexture()
	f.be.TexImage2D(other, 4, 1, nil)
	f.draw(4, 1, 0.5, 0, 0, other)
	if err := f.be.Err(); err != nil {
		t.Fatal(err)
	}
	got := make([]byte, 16)
	if err := f.be.ReadPixels(0, 0, 4, 1, got); err != nil {
		t.Fatal(err)
	}
	want := []uint8{0, 128, 255, 255}
	for x, w := range want {
		if got[4*x] != w || got[4*x+3] != 255 {
			t.Errorf("pixel %d: want gray %d, got %v", x, w, got[4*x:4*x+4])
		}
	}
	if f.be.Draws != 1 {
		t.Errorf("want 1 draw, got %d", f.be.Draws)
	}
}

func TestSoftFeedbackLoop(t *testing.T) {
	f := newSoftFixture(t, 2, 2, make([]byte, 16), 2, 2)
	f.draw(2, 2, 0, 0, 0, f.canvas)
	if f.be.Err() == nil {
		t.Fatal("sampling the render target must fail")
	}
	if f.be.Err() != nil {
		t.Error("Err did not clear the recorded error")
	}
	if f.be.Draws != 0 {
		t.Error("draw with feedback loop rendered")
	}
}

func TestSoftClearQuantizes(t *testing.T) {
	f := newSoftFixture(t, 1, 1, make([]byte, 4), 1, 1)
	f.be.BindFramebuffer(f.fb)
	f.be.Clear(0.5, -1, 2, 1)
	got := make([]byte, 4)
	if err := f.be.ReadPixels(0, 0, 1, 1, got); err != nil {
		t.Fatal(err)
	}
	want := []byte{128, 0, 255, 255}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("want %v, got %v", want, got)
		}
	}
}

func TestSoftReadPixelsBounds(t *testing.T) {
	f := newSoftFixture(t, 2, 2, make([]byte, 16), 2, 2)
	f.be.BindFramebuffer(f.fb)
	if err := f.be.ReadPixels(1, 1, 2, 1, make([]byte, 8)); err == nil {
		t.Error("out of bounds read accepted")
	}
	if err := f.be.ReadPixels(0, 0, 2, 2, make([]byte, 4)); err == nil {
		t.Error("short destination accepted")
	}
	f.be.BindFramebuffer(0)
	if err := f.be.ReadPixels(0, 0, 1, 1, make([]byte, 4)); err == nil {
		t.Error("read without framebuffer accepted")
	}
}

func TestSoftVertexStageUnsupported(t *testing.T) {
	be := sampleSource()
	_, err := be.CompileShader(gleval.VertexStage, glbuild.NewSource("void main(){}").WithPrelude())
	if err == nil {
		t.Fatal("unknown vertex source compiled")
	}
	vs, _ := be.CompileShader(gleval.VertexStage, gleval.VertexSource.WithPrelude())
	if _, err := be.LinkProgram(vs, vs); err == nil {
		t.Error("linked two vertex shaders")
	}
}

func TestSoftUniformNoProgram(t *testing.T) {
	be := sampleSource()
	be.Uniform1f(-1, 3)
	if err := be.Err(); err != nil {
		t.Errorf("location -1 must be ignored: %v", err)
	}
	be.Uniform1f(0, 3)
	if be.Err() == nil {
		t.Error("uniform set without program accepted")
	}
}
