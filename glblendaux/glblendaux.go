// Package glblendaux has helpers to get started compositing layers with glblend.
package glblendaux

import (
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/soypat/glblend"
	"github.com/soypat/glblend/glbuild"
	"github.com/soypat/glblend/gleval"
)

// Layer is an image placed on the canvas and the shader it is blended with.
type Layer struct {
	Image *image.NRGBA
	// X, Y is the canvas position of the top-left corner of Image.
	X, Y float32
	// Shader defaults to [glblend.Normal].
	Shader glbuild.Shader
}

type ComposeConfig struct {
	// Width and Height of the canvas. They default to the size of the first layer.
	Width, Height int
	// UseGPU renders through OpenGL. The calling goroutine should be locked to
	// the main OS thread, see [gleval.GLSurface].
	UseGPU bool
	Silent bool
	// Logger receives progress messages unless Silent is set. Defaults to [slog.Default].
	Logger *slog.Logger
}

// Compose blends layers in order onto a transparent canvas and returns the result.
// Ideally users should drive a [gleval.Compositor] themselves since applications may vary widely.
func Compose(cfg ComposeConfig, layers []Layer) (_ *image.NRGBA, err error) {
	if len(layers) == 0 {
		return nil, errors.New("no layers to compose")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	log := func(msg string, args ...any) {
		if !cfg.Silent {
			logger.Info(msg, args...)
		}
	}
	if cfg.Width == 0 && cfg.Height == 0 && layers[0].Image != nil {
		cfg.Width, cfg.Height = layers[0].Image.Rect.Dx(), layers[0].Image.Rect.Dy()
	}

	var surface gleval.Surface
	if cfg.UseGPU {
		log("using GPU")
		gls, terminate, err := gleval.NewGLSurface()
		if err != nil {
			return nil, err
		}
		defer terminate()
		surface = gls
	} else {
		log("using CPU")
		surface = gleval.SoftSurface{Fragments: glblend.CompileKernel}
	}
	c, err := gleval.NewCompositor(cfg.Width, cfg.Height, surface)
	if err != nil {
		return nil, err
	}
	defer func() {
		errRelease := c.Release()
		if err == nil && errRelease != nil {
			err = fmt.Errorf("releasing compositor: %w", errRelease)
		}
	}()

	watch := stopwatch()
	if err = c.Init(); err != nil {
		return nil, err
	}
	log("initialized compositor", "width", cfg.Width, "height", cfg.Height, "elapsed", watch())
	for i, layer := range layers {
		if layer.Image == nil {
			return nil, fmt.Errorf("layer %d has no image", i)
		}
		shader := layer.Shader
		if shader == nil {
			shader = glblend.Normal
		}
		watch = stopwatch()
		err = c.Blend(layer.Image, layer.X, layer.Y, shader)
		if err != nil {
			return nil, fmt.Errorf("blending layer %d: %w", i, err)
		}
		log("blended layer", "layer", i, "shader", shaderName(shader), "elapsed", watch())
	}
	img, err := c.CreateImageData()
	if err != nil {
		return nil, err
	}
	log("composed layers", "layers", len(layers), "programs", c.CachedPrograms())
	return img, nil
}

func shaderName(s glbuild.Shader) string {
	if st, ok := s.(fmt.Stringer); ok {
		return st.String()
	}
	return fmt.Sprintf("%T", s)
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
