//go:build tinygo || !cgo

package gleval

import "errors"

var errNoCGO = errors.New("gleval: OpenGL surface requires cgo")

// GLSurface is unavailable without cgo. Use [SoftSurface] instead.
type GLSurface struct{}

// NewGLSurface returns an error in builds without cgo.
func NewGLSurface() (surface *GLSurface, terminate func(), err error) {
	return nil, nil, errNoCGO
}

// Context implements [Surface] and always fails.
func (s *GLSurface) Context(width, height int) (Backend, error) {
	return nil, errNoCGO
}
