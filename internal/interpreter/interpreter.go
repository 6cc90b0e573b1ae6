// Package interpreter holds the table of supported languages: for each
// language id, how submitted source is wrapped into a runnable file and which
// external interpreter command runs that file.
//
// The table is closed. Adding a language means adding a Spec to Default,
// nothing in the executor changes.
package interpreter

import (
	"sort"
	"strings"

	"github.com/sakif/tinkers/internal/apperror"
)

// FilePlaceholder is replaced by the artifact path in Spec.Args.
const FilePlaceholder = "{file}"

// Spec describes one language.
type Spec struct {
	// ID is the language identifier callers select, e.g. "php".
	ID string
	// DisplayName is what a UI shows in its language picker.
	DisplayName string
	// Extension of the materialized source file, including the dot.
	Extension string
	// Command is the interpreter executable (looked up on PATH).
	Command string
	// Args are passed after Command; FilePlaceholder marks the artifact.
	Args []string
	// DefaultCode seeds an empty editor for this language.
	DefaultCode string

	wrap func(code string) string
}

// Wrap turns submitted source into the contents of the artifact file.
func (s Spec) Wrap(code string) string {
	if s.wrap == nil {
		return code
	}
	return s.wrap(code)
}

// Argv returns the full command line for running the artifact at path.
func (s Spec) Argv(path string) []string {
	argv := make([]string, 0, len(s.Args)+1)
	argv = append(argv, s.Command)
	for _, a := range s.Args {
		argv = append(argv, strings.ReplaceAll(a, FilePlaceholder, path))
	}
	return argv
}

// PHP runs source through the php CLI. Source is placed in PHP mode by
// prepending an open tag, unless the user already wrote one.
func PHP() Spec {
	return Spec{
		ID:          "php",
		DisplayName: "PHP",
		Extension:   ".php",
		Command:     "php",
		Args:        []string{"-d", "display_errors=stderr", FilePlaceholder},
		DefaultCode: "<?php\n\necho \"Hello, Tinkers!\";\n",
		wrap:        wrapPHP,
	}
}

func wrapPHP(code string) string {
	if strings.HasPrefix(strings.TrimLeft(code, " \t\r\n"), "<?php") {
		return code
	}
	return "<?php\n" + code + "\n"
}

// JavaScript runs source unchanged through node.
func JavaScript() Spec {
	return Spec{
		ID:          "javascript",
		DisplayName: "JavaScript",
		Extension:   ".js",
		Command:     "node",
		Args:        []string{FilePlaceholder},
		DefaultCode: "console.log(\"Hello, Tinkers!\");\n",
	}
}

// Registry maps language ids to specs.
type Registry struct {
	specs map[string]Spec
}

// NewRegistry builds a registry from the given specs. Later specs with the
// same ID replace earlier ones.
func NewRegistry(specs ...Spec) *Registry {
	r := &Registry{specs: make(map[string]Spec, len(specs))}
	for _, s := range specs {
		r.specs[s.ID] = s
	}
	return r
}

// Default returns the supported language table: php and javascript.
func Default() *Registry {
	return NewRegistry(PHP(), JavaScript())
}

// WithCommand returns a copy of the registry where the interpreter binary for
// id is replaced. Unknown ids and empty commands leave the registry as is.
func (r *Registry) WithCommand(id, command string) *Registry {
	out := NewRegistry(r.Languages()...)
	if s, ok := out.specs[id]; ok && command != "" {
		s.Command = command
		out.specs[id] = s
	}
	return out
}

// Resolve returns the spec for a language id, or an apperror.ErrUnsupported
// error whose message reads "Unsupported language: <id>".
func (r *Registry) Resolve(id string) (Spec, error) {
	s, ok := r.specs[id]
	if !ok {
		return Spec{}, apperror.Unsupported("language", id)
	}
	return s, nil
}

// Languages lists all specs sorted by id.
func (r *Registry) Languages() []Spec {
	out := make([]Spec, 0, len(r.specs))
	for _, s := range r.specs {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ByExtension finds the language whose artifact extension matches ext
// (".php", ".js"). Used by the CLI to guess the language of a file.
func (r *Registry) ByExtension(ext string) (Spec, bool) {
	ext = strings.ToLower(ext)
	for _, s := range r.Languages() {
		if s.Extension == ext {
			return s, true
		}
	}
	return Spec{}, false
}
