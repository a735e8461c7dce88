// Package metrics is the built-in plugin serving the core's Prometheus
// metrics. It needs the host's recorder, so the host builds it with New and
// hands it to the resolver instead of it registering itself.
package metrics

import (
	"github.com/libreidp/libreidp/core/http"
	"github.com/libreidp/libreidp/metrics"
	"github.com/libreidp/libreidp/plugin"
)

// Name is the plugin's short name.
const Name = "metrics"

// Path is where metrics are served.
const Path = "/metrics"

// New returns the plugin definition serving rec.
func New(rec *metrics.Recorder) *plugin.Definition {
	return &plugin.Definition{
		Interface: plugin.InterfaceHTTP,
		HTTP: plugin.HTTPInterface{
			Version: plugin.HTTPUnstable,
			RegisterEndpoints: func(r plugin.Registrar) error {
				return r.AddRoute(http.MethodGet, Path, Handler(rec))
			},
		},
	}
}

// Handler renders rec into a fresh response owned by the core.
func Handler(rec *metrics.Recorder) http.HandlerFunc {
	return func(_ *http.Request, ctx http.Context) error {
		body, err := rec.Render()
		if err != nil {
			return err
		}
		resp := http.NewResponse(http.StatusOK)
		resp.SetHeader("Content-Type", metrics.ContentType)
		resp.SetBody(body)
		ctx.SetResponse(resp, http.Owning)
		return nil
	}
}
