package parquet

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"

	"github.com/parquet-go/parquet-go"

	"github.com/xtxerr/spark/config"
	"github.com/xtxerr/spark/internal/category"
	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/model"
	"github.com/xtxerr/spark/internal/storage/header"
)

const readBatch = 256

// Reader restores categories from an output directory written by Writer.
type Reader struct {
	dir    string
	header *header.Header
}

// OpenReader reads the binary header of the output in dir.
func OpenReader(dir string) (*Reader, error) {
	h, err := header.ReadFile(filepath.Join(dir, config.HeaderFileName))
	if err != nil {
		return nil, err
	}
	return &Reader{dir: dir, header: h}, nil
}

// Header returns the run header.
func (r *Reader) Header() *header.Header {
	return r.header
}

// Dir returns the output directory.
func (r *Reader) Dir() string {
	return r.dir
}

// CategoryPath returns the file holding the category named name.
func (r *Reader) CategoryPath(name string) string {
	return filepath.Join(r.dir, name+config.CategoryFileExt)
}

// Verify checks the header against m.
func (r *Reader) Verify(m *model.Manager) error {
	return r.header.Verify(m)
}

// Events returns the events index.
func (r *Reader) Events() ([]EventRow, error) {
	f, err := os.Open(filepath.Join(r.dir, config.EventsFileName))
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[EventRow](f)
	defer reader.Close()

	rows := make([]EventRow, reader.NumRows())
	n, err := reader.Read(rows)
	if err != nil && err != io.EOF {
		return nil, fmt.Errorf("read events: %w", err)
	}
	return rows[:n], nil
}

// FileHeader returns the header stored in the key/value metadata of the
// Parquet file at path.
func FileHeader(path string) (*header.Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	stat, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat file: %w", err)
	}
	pf, err := parquet.OpenFile(f, stat.Size())
	if err != nil {
		return nil, fmt.Errorf("open parquet %s: %w", path, err)
	}
	meta, ok := pf.Lookup(config.HeaderMetadataKey)
	if !ok {
		return nil, errors.NewMissingField(path + ": " + config.HeaderMetadataKey)
	}
	return header.Parse([]byte(meta))
}

// ReadCategory restores the records category id held for event. The result
// is compressed, not writable, and attached to m as a persistent category.
// The file header must match m.
func ReadCategory[T any](r *Reader, m *model.Manager, id model.ID, event uint64) (*category.Category[T], error) {
	info, ok := m.Info(id)
	if !ok {
		return nil, fmt.Errorf("category id %d: %w", id, errors.ErrCategoryNotRegistered)
	}
	entry, ok := r.header.Lookup(info.Name)
	if !ok || !entry.Persistent {
		return nil, errors.NewNotFound("stored category", info.Name)
	}
	if rt := reflect.TypeFor[T]().String(); entry.RecordType != rt {
		return nil, fmt.Errorf("category %s stored as %s, requested %s: %w",
			info.Name, entry.RecordType, rt, errors.ErrHeaderMismatch)
	}

	path := r.CategoryPath(info.Name)
	fh, err := FileHeader(path)
	if err != nil {
		return nil, err
	}
	if fh.RunUUID != r.header.RunUUID {
		return nil, fmt.Errorf("%s belongs to run %s, output is %s: %w",
			path, fh.RunUUID, r.header.RunUUID, errors.ErrHeaderMismatch)
	}
	if err := fh.Verify(m); err != nil {
		return nil, err
	}

	c, err := category.New[T](info.Name, info.Sizes, info.Simulation)
	if err != nil {
		return nil, err
	}
	if err := readRows(path, c, int64(event)); err != nil {
		return nil, err
	}
	c.Compress()
	c.SetWritable(false)

	if err := m.Set(id, c, true); err != nil {
		return nil, err
	}
	return c, nil
}

// readRows copies the rows of event from path into c. Rows are stored in
// event order, so reading stops at the first later event.
func readRows[T any](path string, c *category.Category[T], event int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	reader := parquet.NewGenericReader[Row[T]](f)
	defer reader.Close()

	buf := make([]Row[T], readBatch)
	for {
		n, err := reader.Read(buf)
		for i := range buf[:n] {
			row := &buf[i]
			if row.Event < event {
				continue
			}
			if row.Event > event {
				return nil
			}
			if err := restore(c, row); err != nil {
				return err
			}
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read %s: %w", path, err)
		}
	}
}

func restore[T any](c *category.Category[T], row *Row[T]) error {
	loc := make([]int, len(row.Locator))
	for i, x := range row.Locator {
		loc[i] = int(x)
	}
	p, err := c.Make(loc)
	if err != nil {
		return errors.Wrapf(errors.ErrCorruptRecord, "%s event %d locator %v: %v", c.Name(), row.Event, loc, err)
	}
	*p = row.Record
	return nil
}
