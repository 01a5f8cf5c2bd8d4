package params

import (
	"fmt"
	"io"
	"reflect"
	"sort"

	"github.com/xtxerr/spark/internal/errors"
)

// Source supplies container views and caches the containers built from them.
type Source interface {
	// BuildInPlace populates c from the view name. It returns false if the
	// source holds no such view.
	BuildInPlace(name string, c Container) (bool, error)

	Print(w io.Writer)

	catalog() *Catalog
}

// Catalog is the state shared by every source: the names it provides, their
// views, and the containers built so far. Sources embed it.
type Catalog struct {
	provided   map[string]bool
	views      map[string]View
	containers map[string]Container
}

func newCatalog() Catalog {
	return Catalog{
		provided:   make(map[string]bool),
		views:      make(map[string]View),
		containers: make(map[string]Container),
	}
}

func (c *Catalog) catalog() *Catalog { return c }

// provide records a view. The first view under a name wins.
func (c *Catalog) provide(name string, view View) {
	c.provided[name] = true
	if _, ok := c.views[name]; !ok {
		c.views[name] = view
	}
}

// Provides reports whether name was declared by the source.
func (c *Catalog) Provides(name string) bool {
	return c.provided[name]
}

// Names returns the provided names in lexical order.
func (c *Catalog) Names() []string {
	names := make([]string, 0, len(c.provided))
	for n := range c.provided {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// View returns the raw lines of name.
func (c *Catalog) View(name string) (View, bool) {
	v, ok := c.views[name]
	return v, ok
}

// BuildInPlace populates cont from its view.
func (c *Catalog) BuildInPlace(name string, cont Container) (bool, error) {
	view, ok := c.views[name]
	if !ok {
		return false, nil
	}
	if err := cont.FromView(view); err != nil {
		var perr *errors.ParsingError
		if errors.As(err, &perr) {
			return false, err
		}
		return false, &errors.ParsingError{Name: name, Reason: err.Error()}
	}
	return true, nil
}

// MakeAvailable builds container name of type T in src from its view and
// caches it. It returns false if src does not provide name. A cached
// container of another type fails with a type mismatch.
func MakeAvailable[T Container](src Source, name string, build Builder[T]) (bool, error) {
	cat := src.catalog()
	if !cat.provided[name] {
		return false, nil
	}

	if cached, ok := cat.containers[name]; ok {
		if _, ok := cached.(T); ok {
			return true, nil
		}
		return false, &errors.TypeMismatchError{
			Name:       name,
			Registered: reflect.TypeOf(cached).String(),
			Requested:  reflect.TypeFor[T]().String(),
			Kind:       errors.ErrContainerInvalidType,
		}
	}

	cont := build(name)
	if _, err := src.BuildInPlace(name, cont); err != nil {
		return false, err
	}
	cat.containers[name] = cont
	return true, nil
}

// GetContainer returns the cached container name of type T from src.
func GetContainer[T Container](src Source, name string, runID uint64) (T, error) {
	var zero T
	cached, ok := src.catalog().containers[name]
	if !ok {
		return zero, errors.NewNotFound("container", fmt.Sprintf("%s (run %d)", name, runID))
	}
	c, ok := cached.(T)
	if !ok {
		return zero, &errors.TypeMismatchError{
			Name:       name,
			Registered: reflect.TypeOf(cached).String(),
			Requested:  reflect.TypeFor[T]().String(),
			Kind:       errors.ErrContainerInvalidType,
		}
	}
	return c, nil
}

// ViewWriter is implemented by sources that can store containers.
type ViewWriter interface {
	WriteView(name string, view View) error
}

func printCatalog(w io.Writer, c *Catalog) {
	for _, name := range c.Names() {
		_, built := c.containers[name]
		fmt.Fprintf(w, "    [%s] lines=%d built=%t\n", name, len(c.views[name]), built)
	}
}
