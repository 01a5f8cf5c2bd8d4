package category

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"reflect"

	"github.com/RoaringBitmap/roaring"

	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/locator"
	"github.com/xtxerr/spark/internal/logging"
)

// Store is the record-type independent view of a category. The manager,
// writers and readers work through it.
type Store interface {
	Name() string
	Simulation() bool
	Sizes() []int
	DataSize() int
	EntryCount() int
	Compressed() bool
	Writable() bool
	SetWritable(writable bool)
	Compress()
	Clear()
	Locator(index int) ([]int, error)

	// RecordType is the struct type of the stored records.
	RecordType() reflect.Type

	// Each visits the records in ascending position order. index is the
	// compacted index the record has (or will have) after compression.
	Each(fn func(index int, loc []int, rec any) error) error

	// MakeAny constructs a record at loc and returns a pointer to it.
	MakeAny(loc []int) (any, error)

	Print(w io.Writer)
}

// Category is a named, dimensioned, sparse table of records of type T.
type Category[T any] struct {
	name       string
	simulation bool
	sizes      []int
	offsets    []int
	dataSize   int
	writable   bool
	compressed bool

	// objects holds one record per slot. Slots are allocated on first use
	// and kept across Clear; compression moves pointers, so a record keeps
	// its address.
	index   *roaring.Bitmap
	objects []*T

	logger *slog.Logger
}

// New creates a category holding records of struct type T. The backing arena
// is sized to the product of sizes.
func New[T any](name string, sizes []int, simulation bool) (*Category[T], error) {
	rt := reflect.TypeFor[T]()
	if rt.Kind() != reflect.Struct {
		return nil, fmt.Errorf("category %s: record type %v is not a struct: %w", name, rt, errors.ErrInvalidRecordType)
	}
	if len(sizes) == 0 {
		return nil, errors.NewValidation("sizes", "category needs at least one dimension")
	}
	for i, s := range sizes {
		if s <= 0 {
			return nil, errors.NewInvalidValue(fmt.Sprintf("sizes[%d]", i), s, "dimension size must be positive")
		}
	}
	dataSize := locator.DataSize(sizes)
	if dataSize > math.MaxUint32 {
		return nil, errors.NewInvalidValue("sizes", sizes, "linear size exceeds 32-bit positions")
	}

	return &Category[T]{
		name:       name,
		simulation: simulation,
		sizes:      append([]int(nil), sizes...),
		offsets:    locator.Offsets(sizes),
		dataSize:   dataSize,
		writable:   true,
		index:      roaring.New(),
		objects:    make([]*T, dataSize),
		logger:     logging.Component("category").With("category", name),
	}, nil
}

func (c *Category[T]) Name() string              { return c.name }
func (c *Category[T]) Simulation() bool          { return c.simulation }
func (c *Category[T]) Sizes() []int              { return append([]int(nil), c.sizes...) }
func (c *Category[T]) Dim() int                  { return len(c.sizes) }
func (c *Category[T]) DataSize() int             { return c.dataSize }
func (c *Category[T]) Compressed() bool          { return c.compressed }
func (c *Category[T]) Writable() bool            { return c.writable }
func (c *Category[T]) SetWritable(writable bool) { c.writable = writable }
func (c *Category[T]) RecordType() reflect.Type  { return reflect.TypeFor[T]() }

// EntryCount returns the number of live records.
func (c *Category[T]) EntryCount() int {
	return int(c.index.GetCardinality())
}

// position linearizes loc and checks it against the dimension sizes.
func (c *Category[T]) position(loc []int) (int, error) {
	pos, err := locator.Linearize(c.offsets, loc)
	if err != nil {
		return 0, errors.Wrapf(err, "category %s", c.name)
	}
	for i, l := range loc {
		if l < 0 || l >= c.sizes[i] {
			return 0, fmt.Errorf("category %s: locator %v exceeds sizes %v: %w",
				c.name, loc, c.sizes, errors.ErrLocatorOutOfRange)
		}
	}
	return pos, nil
}

// SlotIndex returns the backing-array slot mapped for pos.
func (c *Category[T]) SlotIndex(pos int) (int, bool) {
	if pos < 0 || pos >= c.dataSize || !c.index.Contains(uint32(pos)) {
		return 0, false
	}
	if c.compressed {
		return int(c.index.Rank(uint32(pos))) - 1, true
	}
	return pos, true
}

// Slot maps loc and returns its slot without resetting the content. It is the
// only way to obtain a new writable slot and fails on a compressed category
// without changing any state.
func (c *Category[T]) Slot(loc []int) (*T, error) {
	pos, err := c.position(loc)
	if err != nil {
		return nil, err
	}
	if c.compressed {
		return nil, fmt.Errorf("category %s: %w", c.name, errors.ErrCategoryCompressed)
	}
	c.index.Add(uint32(pos))
	if c.objects[pos] == nil {
		c.objects[pos] = new(T)
	}
	return c.objects[pos], nil
}

// NextSlot returns the slot following the current entries. Only valid for
// one-dimensional categories.
func (c *Category[T]) NextSlot() (*T, error) {
	if len(c.sizes) != 1 {
		return nil, fmt.Errorf("category %s has %d dimensions: %w", c.name, len(c.sizes), errors.ErrNotOneDimensional)
	}
	return c.Slot([]int{c.EntryCount()})
}

// Make constructs a zero record at loc. Existing content at loc is
// overwritten unconditionally.
func (c *Category[T]) Make(loc []int) (*T, error) {
	p, err := c.Slot(loc)
	if err != nil {
		return nil, err
	}
	var zero T
	*p = zero
	return p, nil
}

// MakeNext constructs a zero record at the next free slot of a
// one-dimensional category.
func (c *Category[T]) MakeNext() (*T, error) {
	p, err := c.NextSlot()
	if err != nil {
		return nil, err
	}
	var zero T
	*p = zero
	return p, nil
}

func (c *Category[T]) MakeAny(loc []int) (any, error) {
	return c.Make(loc)
}

// Get returns the record at loc. A record never written returns nil without
// error; an invalid locator returns an error.
func (c *Category[T]) Get(loc []int) (*T, error) {
	pos, err := c.position(loc)
	if err != nil {
		return nil, err
	}
	slot, ok := c.SlotIndex(pos)
	if !ok {
		return nil, nil
	}
	return c.objects[slot], nil
}

// At returns the record at compacted index idx, or nil if idx is out of
// range. A writable uncompressed category is compressed first, which blocks
// further inserts.
func (c *Category[T]) At(idx int) *T {
	if !c.compressed {
		c.Compress()
	}
	if idx < 0 || idx >= c.EntryCount() {
		return nil
	}
	if !c.compressed {
		pos, err := c.index.Select(uint32(idx))
		if err != nil {
			return nil
		}
		return c.objects[pos]
	}
	return c.objects[idx]
}

// Locator returns the locator of the record at index. On a compressed
// category index is a compacted index; otherwise it is a position.
func (c *Category[T]) Locator(index int) ([]int, error) {
	pos := index
	if c.compressed {
		if index < 0 || index >= c.EntryCount() {
			return nil, errors.NewNotFound("index", fmt.Sprint(index))
		}
		p, err := c.index.Select(uint32(index))
		if err != nil {
			return nil, errors.Wrapf(errors.ErrNotFound, "index %d", index)
		}
		pos = int(p)
	}
	if pos < 0 || pos >= c.dataSize {
		return nil, fmt.Errorf("category %s: position %d: %w", c.name, pos, errors.ErrLocatorOutOfRange)
	}
	return locator.Delinearize(c.offsets, pos), nil
}

// Compress packs the records into [0, EntryCount) in ascending position
// order. Records keep their address. A non-writable category is left
// untouched.
func (c *Category[T]) Compress() {
	if !c.writable {
		c.logger.Warn("category not writable, skipping compression")
		return
	}
	if c.compressed {
		return
	}

	// Every slot below pos is free or already moved, so swapping keeps the
	// allocated records in the arena.
	slot := 0
	it := c.index.Iterator()
	for it.HasNext() {
		pos := int(it.Next())
		if pos != slot {
			c.objects[slot], c.objects[pos] = c.objects[pos], c.objects[slot]
		}
		slot++
	}
	c.compressed = true
}

// Clear drops all records and resets the index map. The records are zeroed
// in place and reused by later inserts.
func (c *Category[T]) Clear() {
	var zero T
	if c.compressed {
		n := c.EntryCount()
		for i := 0; i < n; i++ {
			*c.objects[i] = zero
		}
	} else {
		it := c.index.Iterator()
		for it.HasNext() {
			*c.objects[it.Next()] = zero
		}
	}
	c.index.Clear()
	c.compressed = false
}

func (c *Category[T]) Each(fn func(index int, loc []int, rec any) error) error {
	rank := 0
	it := c.index.Iterator()
	for it.HasNext() {
		pos := int(it.Next())
		slot := pos
		if c.compressed {
			slot = rank
		}
		if err := fn(rank, locator.Delinearize(c.offsets, pos), c.objects[slot]); err != nil {
			return err
		}
		rank++
	}
	return nil
}

// Print writes a short description of the category.
func (c *Category[T]) Print(w io.Writer) {
	fmt.Fprintf(w, "Category: %s  length=%d  sim=%t\n", c.name, c.dataSize, c.simulation)
	fmt.Fprintf(w, "  header: objects=%d  compressed=%t\n", c.EntryCount(), c.compressed)
	fmt.Fprintf(w, "  %d objects in the category\n", c.EntryCount())
}

// As returns s as a category of T records.
func As[T any](s Store) (*Category[T], bool) {
	c, ok := s.(*Category[T])
	return c, ok
}
