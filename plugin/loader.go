package plugin

import (
	"fmt"
	goplugin "plugin"
)

// LoadShared opens a Go plugin built with -buildmode=plugin and returns the
// Definition exported as PluginDefinition. The symbol may be a Definition
// variable or a func() *Definition.
func LoadShared(path string) (*Definition, error) {
	p, err := goplugin.Open(path)
	if err != nil {
		return nil, err
	}
	sym, err := p.Lookup(SymbolName)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoSymbol, err)
	}
	switch def := sym.(type) {
	case *Definition:
		return def, nil
	case func() *Definition:
		return def(), nil
	case *func() *Definition:
		return (*def)(), nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrBadSymbol, sym)
	}
}
