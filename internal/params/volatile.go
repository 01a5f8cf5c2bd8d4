package params

import (
	"fmt"
	"log/slog"
	"reflect"

	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
)

// UpdateFunc materializes the container name from src. It returns nil
// without error when src does not hold the container.
type UpdateFunc func(name string, src Source, runID uint64) (Container, error)

// Volatile is a type-erased handle on a named container. The bound type never
// changes; typed access with another type fails.
type Volatile struct {
	typ    reflect.Type
	name   string
	ptr    Container
	update UpdateFunc
	logger *slog.Logger
}

// NewVolatile binds name to typ and the function that materializes it.
func NewVolatile(typ reflect.Type, name string, update UpdateFunc) *Volatile {
	return &Volatile{
		typ:    typ,
		name:   name,
		update: update,
		logger: logging.Component("params").With("container", name),
	}
}

func (v *Volatile) Name() string       { return v.name }
func (v *Volatile) Type() reflect.Type { return v.typ }

// Container returns the materialized container, or nil.
func (v *Volatile) Container() Container { return v.ptr }

// Update materializes the container from src if it is not materialized yet.
// Later calls do nothing, whatever the run id.
func (v *Volatile) Update(src Source, runID uint64) error {
	if v.ptr != nil {
		v.logger.Debug("container already materialized", "run_id", runID)
		return nil
	}
	c, err := v.update(v.name, src, runID)
	if err != nil {
		return err
	}
	if c != nil {
		v.ptr = c
		v.logger.Info("container materialized", "run_id", runID)
	}
	return nil
}

// Validate reports whether T is the bound type of v.
func Validate[T any](v *Volatile) bool {
	return reflect.TypeFor[T]() == v.typ
}

// Wrapper is typed access to a Volatile.
type Wrapper[T Container] struct {
	v *Volatile
}

// WrapperOf returns typed access to v. T must be the bound type.
func WrapperOf[T Container](v *Volatile) (Wrapper[T], error) {
	if !Validate[T](v) {
		return Wrapper[T]{}, &errors.TypeMismatchError{
			Name:       v.name,
			Registered: v.typ.String(),
			Requested:  reflect.TypeFor[T]().String(),
			Kind:       errors.ErrContainerRegistration,
		}
	}
	return Wrapper[T]{v: v}, nil
}

// Get returns the container, or the zero T if it is not materialized.
func (w Wrapper[T]) Get() T {
	c, _ := w.Value()
	return c
}

// Value returns the container and whether it is materialized.
func (w Wrapper[T]) Value() (T, bool) {
	var zero T
	if w.v == nil || w.v.ptr == nil {
		return zero, false
	}
	c, ok := w.v.ptr.(T)
	return c, ok
}

func (w Wrapper[T]) String() string {
	if w.v == nil {
		return "<nil container>"
	}
	return fmt.Sprintf("%s (%v)", w.v.name, w.v.typ)
}
