// Package middleware wraps route handlers with cross-cutting behaviour.
package middleware

import (
	"log/slog"
	"time"

	"github.com/libreidp/libreidp/core/http"
)

// Middleware decorates a handler. A middleware that returns without calling
// next aborts the chain.
type Middleware func(next http.HandlerFunc) http.HandlerFunc

// Pipeline is an ordered list of middlewares. The first one added runs first.
type Pipeline struct {
	middlewares []Middleware
}

// NewPipeline creates a new middleware pipeline
func NewPipeline(mws ...Middleware) *Pipeline {
	p := &Pipeline{middlewares: make([]Middleware, 0, len(mws)+4)}
	return p.Use(mws...)
}

// Use adds middlewares to the pipeline
func (p *Pipeline) Use(mws ...Middleware) *Pipeline {
	for _, mw := range mws {
		if mw != nil {
			p.middlewares = append(p.middlewares, mw)
		}
	}
	return p
}

// Len returns the number of middlewares.
func (p *Pipeline) Len() int { return len(p.middlewares) }

// Then wraps final with every middleware in the pipeline.
func (p *Pipeline) Then(final http.HandlerFunc) http.HandlerFunc {
	h := final
	for i := len(p.middlewares) - 1; i >= 0; i-- {
		h = p.middlewares[i](h)
	}
	return h
}

// Router is anything routes can be added to.
type Router interface {
	AddRoute(method http.Method, path string, handler http.HandlerFunc) error
}

type wrapped struct {
	next     Router
	pipeline *Pipeline
}

func (w wrapped) AddRoute(method http.Method, path string, handler http.HandlerFunc) error {
	if handler == nil {
		return w.next.AddRoute(method, path, nil)
	}
	return w.next.AddRoute(method, path, w.pipeline.Then(handler))
}

// Apply returns a Router that passes every handler through p before adding
// it to r.
func Apply(r Router, p *Pipeline) Router {
	if p == nil || p.Len() == 0 {
		return r
	}
	return wrapped{next: r, pipeline: p}
}

// RequestLog logs every handled request at debug level with the connection
// id. Failed requests are passed through unlogged; the core reports them.
func RequestLog(logger *slog.Logger) Middleware {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(req *http.Request, ctx http.Context) error {
			start := time.Now()
			if err := next(req, ctx); err != nil {
				return err
			}
			attrs := []any{
				"conn", ctx.ID(),
				"method", req.Method().String(),
				"path", req.Path(),
				"duration", time.Since(start),
			}
			if resp := ctx.Response(); resp != nil {
				attrs = append(attrs, "status", int(resp.Status()))
			}
			logger.Debug("request handled", attrs...)
			return nil
		}
	}
}
