package params

import (
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"sort"

	"github.com/xtxerr/spark/internal/assert"
	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
)

// ContainerSetup is implemented by collaborators that declare containers.
type ContainerSetup interface {
	SetupContainers(db *Database) error
}

// Database binds container names to volatile handles and resolves them
// against its sources. The most recently added source is consulted first.
type Database struct {
	sources    []Source
	target     ViewWriter
	release    string
	containers map[string]*Volatile
	logger     *slog.Logger
}

// NewDatabase creates an empty database.
func NewDatabase() *Database {
	return &Database{
		containers: make(map[string]*Volatile),
		logger:     logging.Component("params"),
	}
}

// AddSource puts src in front of the sources added before.
func (db *Database) AddSource(src Source) {
	db.sources = append([]Source{src}, db.sources...)
}

// Sources returns the sources in lookup order.
func (db *Database) Sources() []Source { return db.sources }

// SetTarget sets the writer used by WriteContainers.
func (db *Database) SetTarget(w ViewWriter) { db.target = w }

func (db *Database) Target() ViewWriter { return db.target }

// SetRelease records the calibration release tag.
func (db *Database) SetRelease(release string) { db.release = release }

func (db *Database) Release() string { return db.release }

// Lookup returns the handle bound to name.
func (db *Database) Lookup(name string) (*Volatile, bool) {
	v, ok := db.containers[name]
	return v, ok
}

// Names returns the bound container names in lexical order.
func (db *Database) Names() []string {
	names := make([]string, 0, len(db.containers))
	for n := range db.containers {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Register binds name to container type T built by build and makes it
// available in every source that provides it. A name bound before returns
// false without rebinding. If no source provides name the binding is
// dropped and the failure goes through the assertion policy.
func Register[T Container](db *Database, name string, build Builder[T]) (bool, error) {
	if _, ok := db.containers[name]; ok {
		db.logger.Debug("container already registered", "container", name)
		return false, nil
	}

	update := func(name string, src Source, runID uint64) (Container, error) {
		ok, err := MakeAvailable(src, name, build)
		if err != nil || !ok {
			return nil, err
		}
		return GetContainer[T](src, name, runID)
	}
	db.containers[name] = NewVolatile(reflect.TypeFor[T](), name, update)

	found := false
	for _, src := range db.sources {
		ok, err := MakeAvailable(src, name, build)
		if err != nil {
			delete(db.containers, name)
			return false, fmt.Errorf("register container %s: %w", name, err)
		}
		found = found || ok
	}
	if !found {
		delete(db.containers, name)
		return false, assert.Failf(errors.ErrContainerMissingInSource,
			"container %s (%d sources)", name, len(db.sources))
	}

	db.logger.Debug("container registered", "container", name, "type", reflect.TypeFor[T]().String())
	return true, nil
}

// Get returns typed access to container name. An unregistered name goes
// through the assertion policy with the list of registered names.
func Get[T Container](db *Database, name string) (Wrapper[T], error) {
	v, ok := db.containers[name]
	if !ok {
		return Wrapper[T]{}, assert.Fail(
			fmt.Errorf("container %s: %w", name, errors.ErrContainerNotRegistered),
			"component", "params", "available", db.Names())
	}
	return WrapperOf[T](v)
}

// InitContainers materializes every bound container from the first source
// that holds it. Containers materialized before are left untouched.
func (db *Database) InitContainers(runID uint64) error {
	for _, name := range db.Names() {
		v := db.containers[name]
		for _, src := range db.sources {
			if err := v.Update(src, runID); err != nil {
				return fmt.Errorf("init container %s: %w", name, err)
			}
			if v.Container() != nil {
				break
			}
		}
		if v.Container() == nil {
			db.logger.Warn("container not materialized", "container", name, "run_id", runID)
		}
	}
	return nil
}

// WriteContainers stores the views of the named materialized containers in
// the target. Without names every materialized container is written.
func (db *Database) WriteContainers(names ...string) error {
	if db.target == nil {
		return errors.NewMissingField("params target")
	}
	if len(names) == 0 {
		names = db.Names()
	}
	for _, name := range names {
		v, ok := db.containers[name]
		if !ok {
			return fmt.Errorf("write container %s: %w", name, errors.ErrContainerNotRegistered)
		}
		c := v.Container()
		if c == nil {
			continue
		}
		if err := db.target.WriteView(name, c.ToView()); err != nil {
			return fmt.Errorf("write container %s: %w", name, err)
		}
	}
	return nil
}

// SetupFrom runs every collaborator's container setup against db.
func (db *Database) SetupFrom(setups ...ContainerSetup) error {
	for _, s := range setups {
		if err := s.SetupContainers(db); err != nil {
			return err
		}
	}
	return nil
}

func (db *Database) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Parameter Database ===")
	if db.release != "" {
		fmt.Fprintf(w, "Release: %s\n", db.release)
	}
	fmt.Fprintf(w, "%d sources:\n", len(db.sources))
	for _, src := range db.sources {
		src.Print(w)
	}
	fmt.Fprintf(w, "%d containers:\n", len(db.containers))
	for _, name := range db.Names() {
		v := db.containers[name]
		fmt.Fprintf(w, "  %s (%v) materialized=%t\n", name, v.Type(), v.Container() != nil)
	}
}
