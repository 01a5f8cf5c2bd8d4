// Package model holds the category registry: metadata for every category the
// host declares, keyed by a host-supplied identifier, plus the lazily built
// category instances.
package model

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"sort"

	"github.com/xtxerr/spark/internal/category"
	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
)

// ID identifies a category. Hosts declare their own constants of this type;
// the mapping from ID to category is explicit and needs no enumeration order.
type ID uint16

// Info is the registry entry of one category.
type Info struct {
	ID         ID
	Name       string
	Sizes      []int
	Simulation bool
	Registered bool
	Persistent bool

	// Category is nil until built or set.
	Category category.Store
}

func (i *Info) String() string {
	return fmt.Sprintf("%s%v", i.Name, i.Sizes)
}

// CategorySetup is implemented by collaborators that declare categories.
type CategorySetup interface {
	SetupCategories(m *Manager) error
}

// Manager is the category registry.
type Manager struct {
	infos  map[ID]*Info
	logger *slog.Logger
}

// NewManager creates an empty registry.
func NewManager() *Manager {
	return &Manager{
		infos:  make(map[ID]*Info),
		logger: logging.Component("model"),
	}
}

// Register declares category id. Registering an id again is a no-op that
// returns true; differing arguments are logged and ignored.
func (m *Manager) Register(id ID, name string, sizes []int, simulation bool) bool {
	if info, ok := m.infos[id]; ok {
		if info.Name != name || !slices.Equal(info.Sizes, sizes) || info.Simulation != simulation {
			m.logger.Warn("category re-registered with different arguments, keeping original",
				"id", id, "name", info.Name, "sizes", info.Sizes, "new_name", name, "new_sizes", sizes)
		}
		return true
	}

	m.infos[id] = &Info{
		ID:         id,
		Name:       name,
		Sizes:      append([]int(nil), sizes...),
		Simulation: simulation,
		Registered: true,
	}
	m.logger.Debug("category registered", "id", id, "name", name, "sizes", sizes, "simulation", simulation)
	return true
}

// Info returns the registry entry for id.
func (m *Manager) Info(id ID) (*Info, bool) {
	info, ok := m.infos[id]
	return info, ok
}

// Build constructs the category id with records of type T, or returns the
// cached instance. The id must be registered.
func Build[T any](m *Manager, id ID, persistent bool) (*category.Category[T], error) {
	info, ok := m.infos[id]
	if !ok || !info.Registered {
		return nil, fmt.Errorf("category id %d: %w", id, errors.ErrCategoryNotRegistered)
	}

	if info.Category != nil {
		c, ok := category.As[T](info.Category)
		if !ok {
			return nil, fmt.Errorf("category %s holds %v, requested %v: %w",
				info.Name, info.Category.RecordType(), reflect.TypeFor[T](), errors.ErrCategoryTypeMismatch)
		}
		return c, nil
	}

	c, err := category.New[T](info.Name, info.Sizes, info.Simulation)
	if err != nil {
		return nil, err
	}
	info.Category = c
	info.Persistent = persistent
	m.logger.Debug("category built", "name", info.Name, "persistent", persistent)
	return c, nil
}

// Set attaches an existing category to a registered id. Readers use it to
// expose categories restored from a file.
func (m *Manager) Set(id ID, store category.Store, persistent bool) error {
	info, ok := m.infos[id]
	if !ok || !info.Registered {
		return fmt.Errorf("category id %d: %w", id, errors.ErrCategoryNotRegistered)
	}
	info.Category = store
	info.Persistent = persistent
	return nil
}

// Get returns the typed category id, or nil if it is not registered, not
// built, or holds another record type.
func Get[T any](m *Manager, id ID) *category.Category[T] {
	store := m.Lookup(id)
	if store == nil {
		return nil
	}
	c, _ := category.As[T](store)
	return c
}

// Lookup returns the category id, or nil if it is not registered or built.
func (m *Manager) Lookup(id ID) category.Store {
	info, ok := m.infos[id]
	if !ok || info.Category == nil {
		return nil
	}
	return info.Category
}

// IDs returns the registered ids in ascending order.
func (m *Manager) IDs() []ID {
	ids := make([]ID, 0, len(m.infos))
	for id := range m.infos {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Manager) built() []category.Store {
	var out []category.Store
	for _, id := range m.IDs() {
		if c := m.infos[id].Category; c != nil {
			out = append(out, c)
		}
	}
	return out
}

// Clear clears every built category.
func (m *Manager) Clear() {
	for _, c := range m.built() {
		c.Clear()
	}
}

// Compress compresses every built category.
func (m *Manager) Compress() {
	for _, c := range m.built() {
		c.Compress()
	}
}

// Each calls fn for every registry entry in id order.
func (m *Manager) Each(fn func(info *Info) error) error {
	for _, id := range m.IDs() {
		if err := fn(m.infos[id]); err != nil {
			return err
		}
	}
	return nil
}

// SetupFrom invokes each collaborator's category declarations in the given order.
func (m *Manager) SetupFrom(setups ...CategorySetup) error {
	for _, s := range setups {
		if err := s.SetupCategories(m); err != nil {
			return err
		}
	}
	return nil
}

// Print writes every built category.
func (m *Manager) Print(w io.Writer) {
	built := m.built()
	fmt.Fprintf(w, "There are %d categories in the output tree\n", len(built))
	for _, c := range built {
		c.Print(w)
	}
}

// PrintRegistered writes the list of registered categories.
func (m *Manager) PrintRegistered(w io.Writer) {
	fmt.Fprintf(w, "There are %d registered categories:\n  -> ", len(m.infos))
	for _, id := range m.IDs() {
		fmt.Fprintf(w, "  %s", m.infos[id])
	}
	fmt.Fprintln(w)
}
