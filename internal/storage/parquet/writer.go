package parquet

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/parquet-go/parquet-go/compress"
	"golang.org/x/sync/errgroup"

	"github.com/xtxerr/spark/config"
	"github.com/xtxerr/spark/internal/category"
	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
	"github.com/xtxerr/spark/internal/model"
	"github.com/xtxerr/spark/internal/storage/header"
)

// Options configures the Parquet writer.
type Options struct {
	// Compression algorithm
	Compression CompressionType

	// RowGroupSize is the maximum number of rows per row group
	RowGroupSize int

	// PageSize is the target page buffer size in bytes
	PageSize int
}

// CompressionType represents a Parquet compression algorithm.
type CompressionType int

const (
	CompressionNone CompressionType = iota
	CompressionSnappy
	CompressionZstd
	CompressionLZ4
	CompressionGzip
)

// DefaultOptions returns default Parquet options.
func DefaultOptions() Options {
	return Options{
		Compression:  ParseCompressionType(config.DefaultCompression),
		RowGroupSize: 100000,
		PageSize:     1024 * 1024, // 1MB
	}
}

// ParseCompressionType parses a compression type string.
func ParseCompressionType(s string) CompressionType {
	switch s {
	case "snappy":
		return CompressionSnappy
	case "zstd":
		return CompressionZstd
	case "lz4":
		return CompressionLZ4
	case "gzip":
		return CompressionGzip
	case "none", "":
		return CompressionNone
	default:
		return CompressionZstd
	}
}

// getCompression returns the parquet-go compression codec.
func getCompression(ct CompressionType) compress.Codec {
	switch ct {
	case CompressionSnappy:
		return &parquet.Snappy
	case CompressionZstd:
		return &parquet.Zstd
	case CompressionLZ4:
		return &parquet.Lz4Raw
	case CompressionGzip:
		return &parquet.Gzip
	default:
		return &parquet.Uncompressed
	}
}

func (o Options) writerOptions() []parquet.WriterOption {
	opts := []parquet.WriterOption{
		parquet.Compression(getCompression(o.Compression)),
	}
	if o.RowGroupSize > 0 {
		opts = append(opts, parquet.MaxRowsPerRowGroup(int64(o.RowGroupSize)))
	}
	if o.PageSize > 0 {
		opts = append(opts, parquet.PageBufferSize(o.PageSize))
	}
	return opts
}

// Row is one stored record of a category with records of type T.
type Row[T any] struct {
	Event   int64   `parquet:"event"`
	Index   int32   `parquet:"index"`
	Locator []int32 `parquet:"locator,list"`
	Record  T       `parquet:"record"`
}

// RowType returns the runtime equivalent of Row for the record type rt.
// Writers use it for categories whose record type is only known through
// category.Store.
func RowType(rt reflect.Type) reflect.Type {
	return reflect.StructOf([]reflect.StructField{
		{Name: "Event", Type: reflect.TypeFor[int64](), Tag: `parquet:"event"`},
		{Name: "Index", Type: reflect.TypeFor[int32](), Tag: `parquet:"index"`},
		{Name: "Locator", Type: reflect.TypeFor[[]int32](), Tag: `parquet:"locator,list"`},
		{Name: "Record", Type: rt, Tag: `parquet:"record"`},
	})
}

// EventRow is the events index entry of one processed event.
type EventRow struct {
	Event      int64 `parquet:"event"`
	Categories int32 `parquet:"categories"`
	Records    int64 `parquet:"records"`
}

type categoryFile struct {
	id      model.ID
	store   category.Store
	path    string
	file    *os.File
	writer  *parquet.Writer
	rowType reflect.Type
	rows    int64
}

func (cf *categoryFile) close() error {
	if err := cf.writer.Close(); err != nil {
		cf.file.Close()
		return fmt.Errorf("close %s: %w", cf.path, err)
	}
	return cf.file.Close()
}

// Stats holds writer statistics.
type Stats struct {
	Files  int
	Events int64
	Rows   int64
}

// Writer stores the persistent categories of every processed event, one
// file per category, plus an events index and the binary header.
type Writer struct {
	mu     sync.Mutex
	dir    string
	header *header.Header
	files  []*categoryFile

	eventsFile   *os.File
	eventsWriter *parquet.GenericWriter[EventRow]

	events int64
	rows   int64
	closed bool

	logger *slog.Logger
}

// NewWriter creates the output files in dir for every persistent, built
// category of m. h describes the run and is stored in every file.
func NewWriter(dir string, m *model.Manager, h *header.Header, opts Options) (*Writer, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	meta, err := h.MarshalJSON()
	if err != nil {
		return nil, err
	}
	if err := h.WriteFile(filepath.Join(dir, config.HeaderFileName)); err != nil {
		return nil, err
	}

	w := &Writer{
		dir:    dir,
		header: h,
		logger: logging.Component("writer"),
	}

	writerOpts := append(opts.writerOptions(), parquet.KeyValueMetadata(config.HeaderMetadataKey, string(meta)))

	err = m.Each(func(info *model.Info) error {
		if !info.Persistent || info.Category == nil {
			return nil
		}
		cf, err := createCategoryFile(dir, info, writerOpts)
		if err != nil {
			return err
		}
		w.files = append(w.files, cf)
		return nil
	})
	if err != nil {
		w.abort()
		return nil, err
	}

	eventsPath := filepath.Join(dir, config.EventsFileName)
	f, err := os.Create(eventsPath)
	if err != nil {
		w.abort()
		return nil, fmt.Errorf("create file: %w", err)
	}
	w.eventsFile = f
	w.eventsWriter = parquet.NewGenericWriter[EventRow](f, writerOpts...)

	w.logger.Info("output opened", "dir", dir, "categories", len(w.files), "run_uuid", h.RunUUID)
	return w, nil
}

func createCategoryFile(dir string, info *model.Info, opts []parquet.WriterOption) (*categoryFile, error) {
	path := filepath.Join(dir, info.Name+config.CategoryFileExt)
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create file: %w", err)
	}

	rowType := RowType(info.Category.RecordType())
	schema := parquet.SchemaOf(reflect.New(rowType).Interface())
	writer := parquet.NewWriter(f, append([]parquet.WriterOption{schema}, opts...)...)

	return &categoryFile{
		id:      info.ID,
		store:   info.Category,
		path:    path,
		file:    f,
		writer:  writer,
		rowType: rowType,
	}, nil
}

// abort closes what NewWriter opened so far.
func (w *Writer) abort() {
	for _, cf := range w.files {
		cf.close()
	}
	if w.eventsFile != nil {
		w.eventsFile.Close()
	}
}

// Fill appends the current content of every persistent category as the
// records of event.
func (w *Writer) Fill(event uint64) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return errors.ErrWriterClosed
	}

	var filled int32
	var records int64
	for _, cf := range w.files {
		n, err := cf.fill(int64(event))
		if err != nil {
			return err
		}
		if n > 0 {
			filled++
		}
		records += n
	}

	if _, err := w.eventsWriter.Write([]EventRow{{
		Event:      int64(event),
		Categories: filled,
		Records:    records,
	}}); err != nil {
		return fmt.Errorf("write event row: %w", err)
	}

	w.events++
	w.rows += records
	return nil
}

func (cf *categoryFile) fill(event int64) (int64, error) {
	var n int64
	err := cf.store.Each(func(index int, loc []int, rec any) error {
		row := reflect.New(cf.rowType)
		v := row.Elem()
		v.Field(0).SetInt(event)
		v.Field(1).SetInt(int64(index))
		l := make([]int32, len(loc))
		for i, x := range loc {
			l[i] = int32(x)
		}
		v.Field(2).Set(reflect.ValueOf(l))
		v.Field(3).Set(reflect.ValueOf(rec).Elem())

		if err := cf.writer.Write(row.Interface()); err != nil {
			return fmt.Errorf("write %s row: %w", cf.store.Name(), err)
		}
		n++
		return nil
	})
	cf.rows += n
	return n, err
}

// Close flushes and closes every file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true

	var g errgroup.Group
	for _, cf := range w.files {
		g.Go(cf.close)
	}
	g.Go(func() error {
		if err := w.eventsWriter.Close(); err != nil {
			w.eventsFile.Close()
			return fmt.Errorf("close events: %w", err)
		}
		return w.eventsFile.Close()
	})
	err := g.Wait()

	w.logger.Info("output closed", "dir", w.dir, "events", w.events, "rows", w.rows)
	return err
}

// Stats returns the writer statistics.
func (w *Writer) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()
	return Stats{
		Files:  len(w.files),
		Events: w.events,
		Rows:   w.rows,
	}
}

// Dir returns the output directory.
func (w *Writer) Dir() string {
	return w.dir
}

// Header returns the header stored with the output.
func (w *Writer) Header() *header.Header {
	return w.header
}
