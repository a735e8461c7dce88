// Package oauth2 is the built-in OAuth2/OpenID Connect plugin. It publishes
// the provider's discovery document; protocol endpoints register here as
// they are implemented.
package oauth2

import (
	"fmt"
	"strings"
	"sync"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/libreidp/libreidp/core/http"
	"github.com/libreidp/libreidp/plugin"
)

// Name is the plugin's short name.
const Name = "oauth2"

// DiscoveryPath is where the OpenID provider metadata is served.
const DiscoveryPath = "/.well-known/openid-configuration"

// DefaultIssuer is used when the host does not configure one.
const DefaultIssuer = "http://localhost:8080"

func init() {
	plugin.Register(Name, New(DefaultIssuer))
}

type provider struct {
	issuer string

	mu        sync.Mutex
	responses []*http.Response
}

// New returns the plugin definition for the given issuer URL.
func New(issuer string) *plugin.Definition {
	p := &provider{issuer: strings.TrimRight(issuer, "/")}
	return &plugin.Definition{
		Interface: plugin.InterfaceHTTP,
		HTTP: plugin.HTTPInterface{
			Version:           plugin.HTTPUnstable,
			RegisterEndpoints: p.registerEndpoints,
			Release:           p.release,
		},
	}
}

// Discovery builds the provider metadata document for issuer.
func Discovery(issuer string) ([]byte, error) {
	issuer = strings.TrimRight(issuer, "/")
	doc, err := structpb.NewStruct(map[string]any{
		"issuer":                                issuer,
		"authorization_endpoint":                issuer + "/authorize",
		"token_endpoint":                        issuer + "/token",
		"userinfo_endpoint":                     issuer + "/userinfo",
		"jwks_uri":                              issuer + "/.well-known/jwks.json",
		"response_types_supported":              []any{"code"},
		"subject_types_supported":               []any{"public"},
		"grant_types_supported":                 []any{"authorization_code", "refresh_token"},
		"id_token_signing_alg_values_supported": []any{"RS256"},
		"scopes_supported":                      []any{"openid", "profile", "email"},
		"token_endpoint_auth_methods_supported": []any{"client_secret_basic", "client_secret_post"},
	})
	if err != nil {
		return nil, fmt.Errorf("oauth2: build discovery document: %w", err)
	}
	return protojson.Marshal(doc)
}

// registerEndpoints builds the discovery response once per core and lends
// it to every request.
func (p *provider) registerEndpoints(r plugin.Registrar) error {
	body, err := Discovery(p.issuer)
	if err != nil {
		return err
	}
	resp := http.NewResponse(http.StatusOK)
	resp.SetHeader("Content-Type", "application/json")
	resp.SetHeader("Cache-Control", "public, max-age=3600")
	resp.SetBody(body)

	if err := r.AddRoute(http.MethodGet, DiscoveryPath, func(_ *http.Request, ctx http.Context) error {
		ctx.SetResponse(resp, http.Borrowing)
		return nil
	}); err != nil {
		resp.Release()
		return err
	}

	p.mu.Lock()
	p.responses = append(p.responses, resp)
	p.mu.Unlock()
	return nil
}

func (p *provider) release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, resp := range p.responses {
		resp.Release()
	}
	p.responses = nil
}
