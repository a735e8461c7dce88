package router

import (
	"errors"
	"fmt"

	"github.com/libreidp/libreidp/core/http"
	"github.com/libreidp/libreidp/core/vector"
)

var (
	ErrPathExists  = errors.New("route already registered")
	ErrInvalidPath = errors.New("route path must begin with '/'")
	ErrNilHandler  = errors.New("route handler is nil")
	ErrSealed      = errors.New("routing table is sealed")
	ErrNoResponse  = errors.New("handler returned without a response")
)

// Route binds an exact (method, path) pair to a handler.
type Route struct {
	Method  http.Method
	Path    string
	Handler http.HandlerFunc
}

// HandlerError is returned by Dispatch when the matched handler fails.
type HandlerError struct {
	Method http.Method
	Path   string
	Err    error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler for %s %s: %v", e.Method, e.Path, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }

// Table is an ordered list of routes matched by linear scan. It becomes
// read-only once sealed, so lookups need no locking.
type Table struct {
	routes *vector.Vector[Route]
	sealed bool
}

// NewTable creates an empty routing table.
func NewTable() *Table {
	return &Table{
		routes: vector.New(func(r *Route) { *r = Route{} }),
	}
}

// Add registers a route. A second registration of the same (method, path)
// is rejected with ErrPathExists.
func (t *Table) Add(method http.Method, path string, handler http.HandlerFunc) error {
	if t.sealed {
		return ErrSealed
	}
	if len(path) == 0 || path[0] != '/' {
		return ErrInvalidPath
	}
	if handler == nil {
		return ErrNilHandler
	}
	if _, ok := t.Lookup(method, path); ok {
		return ErrPathExists
	}
	*t.routes.Reserve() = Route{Method: method, Path: path, Handler: handler}
	return nil
}

// Lookup returns the first route whose method and path both match.
func (t *Table) Lookup(method http.Method, path string) (*Route, bool) {
	it := t.routes.Iter()
	for r, ok := it.Next(); ok; r, ok = it.Next() {
		if r.Method == method && r.Path == path {
			return r, true
		}
	}
	return nil, false
}

// Dispatch runs the handler matching req. The handler attaches its response
// to ctx; when nothing matches, the default 404 page is attached with
// Owning ownership. A failing or panicking handler yields a *HandlerError.
func (t *Table) Dispatch(req *http.Request, ctx http.Context) (err error) {
	route, ok := t.Lookup(req.Method(), req.Path())
	if !ok {
		ctx.SetResponse(http.NotFound(), http.Owning)
		return nil
	}

	defer func() {
		if v := recover(); v != nil {
			err = &HandlerError{Method: route.Method, Path: route.Path, Err: fmt.Errorf("panic: %v", v)}
		}
	}()

	if herr := route.Handler(req, ctx); herr != nil {
		return &HandlerError{Method: route.Method, Path: route.Path, Err: herr}
	}
	if ctx.Response() == nil {
		return &HandlerError{Method: route.Method, Path: route.Path, Err: ErrNoResponse}
	}
	return nil
}

// Seal makes the table read-only.
func (t *Table) Seal() { t.sealed = true }

// Sealed reports whether Seal has been called.
func (t *Table) Sealed() bool { return t.sealed }

// Len returns the number of registered routes.
func (t *Table) Len() int { return t.routes.Len() }

// Clear drops every route.
func (t *Table) Clear() { t.routes.Clear() }
