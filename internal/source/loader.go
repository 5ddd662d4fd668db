package source

import (
	"context"
	"fmt"
)

// Loader turns one input file into a RawPage.
type Loader interface {
	Name() string
	CanHandle(path string) bool
	Load(ctx context.Context, path string) (*RawPage, error)
}

// Registry dispatches to the first registered loader that can handle a path.
type Registry struct {
	loaders []Loader
}

// NewRegistry creates a Registry trying loaders in the given order.
func NewRegistry(loaders ...Loader) *Registry {
	return &Registry{loaders: loaders}
}

// NewDefaultRegistry registers the PDF and sidecar loaders.
func NewDefaultRegistry(maxFileSize int64) *Registry {
	return NewRegistry(NewPDFLoader(maxFileSize), NewSidecarLoader(maxFileSize))
}

// CanHandle reports whether any loader accepts path.
func (r *Registry) CanHandle(path string) bool {
	_, err := r.selectLoader(path)
	return err == nil
}

// Load reads path with the first loader that accepts it.
func (r *Registry) Load(ctx context.Context, path string) (*RawPage, error) {
	loader, err := r.selectLoader(path)
	if err != nil {
		return nil, err
	}
	page, err := loader.Load(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("%s loader: %w", loader.Name(), err)
	}
	return page, nil
}

// Names returns the registered loader names.
func (r *Registry) Names() []string {
	names := make([]string, len(r.loaders))
	for i, l := range r.loaders {
		names[i] = l.Name()
	}
	return names
}

func (r *Registry) selectLoader(path string) (Loader, error) {
	for _, l := range r.loaders {
		if l.CanHandle(path) {
			return l, nil
		}
	}
	return nil, fmt.Errorf("unsupported input: no loader for %q", path)
}
