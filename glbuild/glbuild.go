// Package glbuild implements the shader source model used by the compositing
// pipeline: GLSL ES source text with a fixed prelude, compile-time parametrization
// through #define injection and the typed uniform arguments a shader binds
// before each render pass.
package glbuild

import (
	"maps"
	"slices"
	"strings"
)

// VersionStr is the GLSL version directive shared by every stage of the pipeline.
const VersionStr = "#version 300 es\n"

// Prelude is prepended to every [Source] before it is handed to a backend.
const Prelude = VersionStr + `#ifdef GL_FRAGMENT_PRECISION_HIGH
precision highp float;
#else
precision mediump float;
#endif
`

// Shader pairs a fragment [Source] with the uniform arguments that
// must be bound before the program runs.
type Shader interface {
	// Source returns the fragment source. Compiled programs are cached
	// by the returned pointer, not by the source text.
	Source() *Source
	// Args returns the uniform arguments keyed by uniform name.
	// The returned map must not be modified.
	Args() map[string]Arg
}

// Source is an immutable GLSL source. Sources are compared by identity:
// two Sources with identical text are different sources and compile to
// different programs. Keep a single instance around to share programs.
type Source struct {
	text        string
	withPrelude string
}

// NewSource returns a new Source for the GLSL text, which must not contain a #version directive.
func NewSource(text string) *Source {
	return &Source{
		text:        text,
		withPrelude: Prelude + text,
	}
}

// Text returns the source text without the prelude.
func (s *Source) Text() string { return s.text }

// WithPrelude returns the source text with [Prelude] prepended. This is what backends compile.
func (s *Source) WithPrelude() string { return s.withPrelude }

// WithDefine returns a new Source with a "#define NAME VALUE" line prepended for
// each entry of defs. Entries are written in sorted name order so the result
// does not depend on map iteration. s is left untouched.
//
// Calling WithDefine twice with the same definitions yields two distinct Sources.
func (s *Source) WithDefine(defs map[string]string) *Source {
	var sb strings.Builder
	names := slices.Sorted(maps.Keys(defs))
	for _, name := range names {
		sb.WriteString("#define ")
		sb.WriteString(name)
		sb.WriteByte(' ')
		sb.WriteString(defs[name])
		sb.WriteByte('\n')
	}
	sb.WriteString(s.text)
	return NewSource(sb.String())
}

// ParseDefines splits leading "#define NAME VALUE" lines off text and returns them
// along with the remaining text. It is the inverse of [Source.WithDefine] and
// is used by CPU kernel compilers to recover compile-time parameters.
func ParseDefines(text string) (defs map[string]string, rest string) {
	defs = make(map[string]string)
	rest = text
	for strings.HasPrefix(rest, "#define ") {
		line, after, found := strings.Cut(rest, "\n")
		if !found {
			break
		}
		fields := strings.Fields(strings.TrimPrefix(line, "#define "))
		if len(fields) == 0 {
			break
		}
		defs[fields[0]] = strings.Join(fields[1:], " ")
		rest = after
	}
	return defs, rest
}

// Program is the simplest [Shader]: a fragment source and its arguments.
type Program struct {
	Src      *Source
	Uniforms map[string]Arg
}

var _ Shader = Program{}

// Source implements [Shader].
func (p Program) Source() *Source { return p.Src }

// Args implements [Shader].
func (p Program) Args() map[string]Arg { return p.Uniforms }
