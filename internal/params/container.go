package params

import (
	"fmt"
	"io"
)

// View is the text snapshot of one container: comment-free, non-empty lines.
type View []string

// Validity is the run range a container version applies to. To is exclusive.
type Validity struct {
	From      int64
	To        int64
	Truncated int64
}

// NewValidity returns the range [from, to).
func NewValidity(from, to int64) Validity {
	return Validity{From: from, To: to}
}

// Before orders ranges by their start.
func (v Validity) Before(o Validity) bool { return v.From < o.From }

// Contains reports whether t lies in [From, To).
func (v Validity) Contains(t int64) bool { return v.From <= t && t < v.To }

// Overlaps reports whether v starts before o ends.
func (v Validity) Overlaps(o Validity) bool { return v.From < o.To }

// Truncate caps v at the start of an overlapping newer range o and keeps the
// previous end in Truncated.
func (v *Validity) Truncate(o Validity) {
	if v.Overlaps(o) {
		v.Truncated = v.To
		v.To = o.From
	}
}

func (v Validity) String() string {
	if v.Truncated != 0 {
		return fmt.Sprintf("[%d, %d) truncated from %d", v.From, v.To, v.Truncated)
	}
	return fmt.Sprintf("[%d, %d)", v.From, v.To)
}

// Container is a named parameter set built from a View.
type Container interface {
	Name() string
	Validity() *Validity

	// FromView populates the container. A view the container cannot
	// interpret returns an error.
	FromView(view View) error

	// ToView serializes the container back into lines.
	ToView() View

	Print(w io.Writer)
}

// Base carries the name and validity every container has.
type Base struct {
	name     string
	validity Validity
}

// NewBase returns a Base for name.
func NewBase(name string) Base {
	return Base{name: name}
}

func (b *Base) Name() string        { return b.name }
func (b *Base) Validity() *Validity { return &b.validity }

// Builder constructs an empty container of type T for name.
type Builder[T Container] func(name string) T
