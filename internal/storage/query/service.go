// Package query runs SQL over the category files of a run.
//
// Every Parquet file of the output directory is exposed as a DuckDB view
// named after the category, so ad-hoc queries read
//
//	SELECT event, locator, record.Energy FROM "Cal" WHERE event < 10
//
// Identical queries issued concurrently are executed once.
package query

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	_ "github.com/marcboeker/go-duckdb"
	"golang.org/x/sync/singleflight"

	"github.com/xtxerr/spark/config"
	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
	storecfg "github.com/xtxerr/spark/internal/storage/config"
)

// Service provides query capabilities over stored categories.
type Service struct {
	mu sync.RWMutex

	config *storecfg.Config
	db     *sql.DB
	tables map[string]string
	group  singleflight.Group

	statsMu sync.Mutex
	stats   Stats

	logger *slog.Logger
}

// Stats holds query statistics.
type Stats struct {
	QueriesExecuted int64
	RowsReturned    int64
	Errors          int64
	SharedResults   int64
}

// CategorySummary describes the stored records of one category.
type CategorySummary struct {
	Name       string
	Rows       int64
	Events     int64
	FirstEvent int64
	LastEvent  int64
}

// New creates a new query service over cfg.Output.Dir.
func New(cfg *storecfg.Config) (*Service, error) {
	if cfg == nil {
		cfg = storecfg.DefaultConfig()
	}

	// Open in-memory DuckDB database
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("open duckdb: %w", err)
	}

	// Configure DuckDB
	if cfg.Query.MemoryLimit != "" {
		_, err = db.Exec(fmt.Sprintf("SET memory_limit='%s'", cfg.Query.MemoryLimit))
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("set memory limit: %w", err)
		}
	}

	return &Service{
		config: cfg,
		db:     db,
		tables: make(map[string]string),
		logger: logging.Component("query"),
	}, nil
}

// Close closes the query service.
func (s *Service) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Refresh creates a view for every Parquet file in the output directory and
// returns the number of views.
func (s *Service) Refresh(ctx context.Context) (int, error) {
	paths, err := filepath.Glob(filepath.Join(s.config.Output.Dir, "*"+config.CategoryFileExt))
	if err != nil {
		return 0, fmt.Errorf("list output: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	tables := make(map[string]string, len(paths))
	for _, path := range paths {
		name := strings.TrimSuffix(filepath.Base(path), config.CategoryFileExt)
		stmt := fmt.Sprintf("CREATE OR REPLACE VIEW %s AS SELECT * FROM read_parquet(%s)",
			quoteIdent(name), quoteLiteral(path))
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return 0, fmt.Errorf("create view %s: %w", name, err)
		}
		tables[name] = path
	}
	s.tables = tables

	s.logger.Debug("views refreshed", "dir", s.config.Output.Dir, "tables", len(tables))
	return len(tables), nil
}

// Tables returns the view names in sorted order.
func (s *Service) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Service) tablePath(name string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	path, ok := s.tables[name]
	if !ok {
		return "", errors.NewNotFound("table", name)
	}
	return path, nil
}

// Summary counts the stored rows and events of the category named name.
func (s *Service) Summary(ctx context.Context, name string) (CategorySummary, error) {
	path, err := s.tablePath(name)
	if err != nil {
		return CategorySummary{}, err
	}

	ctx, cancel := context.WithTimeout(ctx, s.config.Query.Timeout)
	defer cancel()

	query := `
		SELECT count(*), count(DISTINCT event), min(event), max(event)
		FROM read_parquet($1)
	`

	var first, last sql.NullInt64
	sum := CategorySummary{Name: name}
	err = s.db.QueryRowContext(ctx, query, path).Scan(&sum.Rows, &sum.Events, &first, &last)
	if err != nil {
		s.countError()
		return CategorySummary{}, fmt.Errorf("summarize %s: %w", name, err)
	}
	sum.FirstEvent = first.Int64
	sum.LastEvent = last.Int64

	s.count(1)
	return sum, nil
}

// EventRecords returns the rows the category named name holds for event in
// index order.
func (s *Service) EventRecords(ctx context.Context, name string, event uint64) ([]map[string]interface{}, error) {
	path, err := s.tablePath(name)
	if err != nil {
		return nil, err
	}

	query := `
		SELECT "index", locator, record
		FROM read_parquet($1)
		WHERE event = $2
		ORDER BY "index"
	`
	return s.execute(ctx, query, path, int64(event))
}

// ExecuteSQL executes a raw SQL query using DuckDB.
// Identical concurrent queries share one execution.
func (s *Service) ExecuteSQL(ctx context.Context, query string) ([]map[string]interface{}, error) {
	v, err, shared := s.group.Do(query, func() (interface{}, error) {
		return s.execute(ctx, query)
	})
	if shared {
		s.statsMu.Lock()
		s.stats.SharedResults++
		s.statsMu.Unlock()
	}
	if err != nil {
		return nil, err
	}
	return v.([]map[string]interface{}), nil
}

// execute runs query and collects at most Query.MaxRows rows.
func (s *Service) execute(ctx context.Context, query string, args ...interface{}) ([]map[string]interface{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, s.config.Query.Timeout)
	defer cancel()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		s.countError()
		return nil, err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	var results []map[string]interface{}

	for rows.Next() {
		if len(results) >= s.config.Query.MaxRows {
			s.logger.Warn("query result truncated", "max_rows", s.config.Query.MaxRows)
			break
		}

		values := make([]interface{}, len(columns))
		valuePtrs := make([]interface{}, len(columns))
		for i := range values {
			valuePtrs[i] = &values[i]
		}

		if err := rows.Scan(valuePtrs...); err != nil {
			s.countError()
			return nil, err
		}

		row := make(map[string]interface{})
		for i, col := range columns {
			row[col] = values[i]
		}
		results = append(results, row)
	}

	s.count(int64(len(results)))
	return results, rows.Err()
}

func (s *Service) count(rows int64) {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.QueriesExecuted++
	s.stats.RowsReturned += rows
}

func (s *Service) countError() {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	s.stats.Errors++
}

// Stats returns query statistics.
func (s *Service) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
