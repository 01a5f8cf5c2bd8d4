package params

import (
	"fmt"
	"io"
)

// MemorySource holds views added in code.
type MemorySource struct {
	Catalog
}

// NewMemorySource returns an empty source.
func NewMemorySource() *MemorySource {
	return &MemorySource{Catalog: newCatalog()}
}

// AddView declares name with its lines.
func (s *MemorySource) AddView(name string, lines View) {
	s.provide(name, lines)
}

// WriteView stores view under name, replacing any earlier one.
func (s *MemorySource) WriteView(name string, view View) error {
	s.provided[name] = true
	s.views[name] = view
	return nil
}

func (s *MemorySource) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Memory Source Info ===")
	printCatalog(w, &s.Catalog)
}
