package boundary

import (
	"errors"
	"fmt"
	"io"
	"runtime/debug"
	"slices"
	"strings"
)

// RenderFunc writes a component to w.
type RenderFunc func(s *Scope, w io.Writer) error

// Component is a named unit of rendering.
type Component struct {
	Name   string
	Render RenderFunc
}

// Scope tracks where in the component tree rendering currently is.
type Scope struct {
	path []string
}

// Path returns the names from the root component down to this scope.
func (s *Scope) Path() []string {
	return slices.Clone(s.path)
}

// Child renders fn as a nested component called name.
// A panic or returned error is reported with the path of the component that raised it.
func (s *Scope) Child(name string, w io.Writer, fn RenderFunc) (err error) {
	child := &Scope{path: append(slices.Clone(s.path), name)}

	defer func() {
		if r := recover(); r != nil {
			err = &renderError{
				path:     child.path,
				err:      panicError(r),
				stack:    debug.Stack(),
				panicked: true,
			}
		}
	}()

	if err := fn(child, w); err != nil {
		var re *renderError
		if errors.As(err, &re) {
			return err
		}
		return &renderError{path: child.path, err: err}
	}
	return nil
}

// renderError carries a failure up to the boundary together with its origin.
type renderError struct {
	path     []string
	err      error
	stack    []byte
	panicked bool
}

func (e *renderError) Error() string {
	return fmt.Sprintf("render %s: %v", strings.Join(e.path, " > "), e.err)
}

func (e *renderError) Unwrap() error {
	return e.err
}

func panicError(r any) error {
	if err, ok := r.(error); ok {
		return err
	}
	return errors.New(fmt.Sprint(r))
}
