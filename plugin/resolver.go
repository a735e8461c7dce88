package plugin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
)

// Extension is the file suffix of shared-object plugins.
const Extension = ".so"

// Loader opens a shared object and returns the definition it exports.
type Loader func(path string) (*Definition, error)

// Resolver maps plugin short names to plugins. Lookup order: definitions
// provided to this resolver, the static registry, then <dir>/<name>.so in
// each directory in order.
type Resolver struct {
	dirs     []string
	provided map[string]*Definition
	load     Loader
}

// NewResolver creates a resolver over dirs using the shared-object loader.
func NewResolver(dirs ...string) *Resolver {
	return &Resolver{
		dirs:     append([]string(nil), dirs...),
		provided: make(map[string]*Definition),
		load:     LoadShared,
	}
}

// AddDirectory appends a search directory.
func (r *Resolver) AddDirectory(dir string) {
	r.dirs = append(r.dirs, dir)
}

// Provide makes def resolvable under name for this resolver only, ahead of
// the static registry. Plugins that need host services are built by the
// host and handed over this way.
func (r *Resolver) Provide(name string, def *Definition) {
	r.provided[name] = def
}

// SetLoader replaces the shared-object loader.
func (r *Resolver) SetLoader(load Loader) {
	r.load = load
}

// Path returns the shared object that would be loaded for name.
func (r *Resolver) Path(name string) (string, error) {
	for _, dir := range r.dirs {
		path := filepath.Join(dir, name+Extension)
		info, err := os.Stat(path)
		if err == nil && info.Mode().IsRegular() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("plugin %s: %w", name, err)
		}
	}
	return "", fmt.Errorf("plugin %s: %w", name, ErrNotFound)
}

// Resolve finds and loads the plugin called name.
func (r *Resolver) Resolve(name string) (*Plugin, error) {
	if def, ok := r.provided[name]; ok {
		return &Plugin{Name: name, Definition: def}, nil
	}
	if def, ok := lookupBuiltin(name); ok {
		return &Plugin{Name: name, Definition: def}, nil
	}

	path, err := r.Path(name)
	if err != nil {
		return nil, err
	}
	def, err := r.load(path)
	if err != nil {
		return nil, fmt.Errorf("plugin %s: %w", name, err)
	}
	return &Plugin{Name: name, Path: path, Definition: def}, nil
}

// Available lists every resolvable name: provided, built-in, and shared
// objects found in the search directories.
func (r *Resolver) Available() ([]string, error) {
	seen := make(map[string]struct{})
	for name := range r.provided {
		seen[name] = struct{}{}
	}
	for _, name := range Builtins() {
		seen[name] = struct{}{}
	}
	for _, dir := range r.dirs {
		entries, err := os.ReadDir(dir)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			if e.IsDir() || filepath.Ext(e.Name()) != Extension {
				continue
			}
			seen[e.Name()[:len(e.Name())-len(Extension)]] = struct{}{}
		}
	}

	names := make([]string, 0, len(seen))
	for name := range seen {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}
