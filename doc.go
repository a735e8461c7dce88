/*
Package libreidp is an identity provider built around a small, single-threaded
HTTP/1.1 runtime.

The runtime lives under core: an incremental request parser, an exact-match
routing table, and a Core that owns the listening socket and every live
connection. All socket work runs on one event loop goroutine, so handlers,
routes and connections are never locked.

Everything the provider actually serves comes from plugins. A plugin exports
a Definition whose RegisterEndpoints adds routes to the core before it starts
listening. Built-in plugins (oauth2, metrics) are compiled in; others are Go
plugins loaded from <dir>/<name>.so.

Quick Start

	cfg := config.Default()
	a, err := app.New(cfg, logging.New(cfg.Logging()))
	if err != nil {
		log.Fatal(err)
	}
	a.Core().AddRoute(http.MethodGet, "/", func(req *http.Request, ctx http.Context) error {
		resp := http.NewResponse(http.StatusOK)
		resp.SetBodyString("hello")
		ctx.SetResponse(resp, http.Owning)
		return nil
	})
	log.Fatal(a.Run(context.Background()))

Responses

A handler attaches exactly one response through its Context. With Owning
ownership the core releases the response once it is serialized; with
Borrowing the handler keeps it, which lets a plugin build a response once
and serve it to every request. Every response carries Server,
Content-Length and Connection: close, and the connection is closed after
the write completes.

Errors

Malformed requests and failing handlers are not answered: the connection
is closed without a response. Unmatched paths get a 404 page.

Layout

  - core/vector: growable array with element destructors
  - core/http: request, response, headers and the parser
  - core/router: routing table
  - core/poller, core/eventloop: readiness notification and the loop
  - core/pools: receive and write buffers
  - core/middleware: handler pipelines
  - core: listener, connections, executor
  - plugin, plugins/...: plugin boundary and built-in plugins
  - metrics, logging, config, app, cmd/libreidp: the host process
*/
package libreidp
