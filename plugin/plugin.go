// Package plugin defines the boundary between the host and the code that
// registers endpoints into the core. Built-in plugins register themselves
// in a static registry; external ones are shared objects exporting a
// Definition under the symbol PluginDefinition.
package plugin

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/libreidp/libreidp/core/http"
)

// Interface tags the contract a plugin implements.
type Interface uint8

const (
	InterfaceNone Interface = iota
	InterfaceHTTP
)

func (i Interface) String() string {
	switch i {
	case InterfaceNone:
		return "none"
	case InterfaceHTTP:
		return "http"
	default:
		return "unknown"
	}
}

// HTTPVersion is the revision of the HTTP interface a plugin was built against.
type HTTPVersion uint8

const (
	// HTTPUnstable is the only revision so far; it may change without notice.
	HTTPUnstable HTTPVersion = iota
)

// Registrar is the route registration surface plugins see. *core.Core
// satisfies it.
type Registrar interface {
	AddRoute(method http.Method, path string, handler http.HandlerFunc) error
}

// HTTPInterface is the table an HTTP plugin exports.
type HTTPInterface struct {
	Version HTTPVersion

	// RegisterEndpoints is called once per core, before the core is registered
	// with the event loop.
	RegisterEndpoints func(r Registrar) error

	// Release, if set, is called after the core has shut down. Plugins free
	// responses they lent to the core with Borrowing ownership here.
	Release func()
}

// Definition is the record a plugin exports.
type Definition struct {
	Interface Interface
	HTTP      HTTPInterface
}

var (
	ErrNotFound       = errors.New("plugin not found")
	ErrNoSymbol       = errors.New("plugin does not export " + SymbolName)
	ErrBadSymbol      = errors.New("plugin symbol has the wrong type")
	ErrNotHTTP        = errors.New("plugin does not implement the http interface")
	ErrVersion        = errors.New("unsupported http interface version")
	ErrNoRegistration = errors.New("plugin has no RegisterEndpoints function")
)

// SymbolName is the exported symbol looked up in shared-object plugins.
const SymbolName = "PluginDefinition"

// Plugin is a resolved plugin.
type Plugin struct {
	Name string
	// Path is the shared object the plugin came from; empty for built-ins.
	Path       string
	Definition *Definition
}

// HTTP returns the plugin's HTTP interface after checking its tag and version.
func (p *Plugin) HTTP() (*HTTPInterface, error) {
	if p.Definition.Interface != InterfaceHTTP {
		return nil, fmt.Errorf("%s: %w (interface %s)", p.Name, ErrNotHTTP, p.Definition.Interface)
	}
	if p.Definition.HTTP.Version != HTTPUnstable {
		return nil, fmt.Errorf("%s: %w %d", p.Name, ErrVersion, p.Definition.HTTP.Version)
	}
	if p.Definition.HTTP.RegisterEndpoints == nil {
		return nil, fmt.Errorf("%s: %w", p.Name, ErrNoRegistration)
	}
	return &p.Definition.HTTP, nil
}

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*Definition)
)

// Register adds a built-in plugin. It panics on an empty name, a nil
// definition or a duplicate, since it is meant to be called from init.
func Register(name string, def *Definition) {
	if name == "" || def == nil {
		panic("plugin: Register with empty name or nil definition")
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	if _, dup := registry[name]; dup {
		panic("plugin: Register called twice for " + name)
	}
	registry[name] = def
}

func lookupBuiltin(name string) (*Definition, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	def, ok := registry[name]
	return def, ok
}

// Builtins returns the names of the registered built-in plugins, sorted.
func Builtins() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
