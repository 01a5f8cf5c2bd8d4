package params

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"

	"github.com/xtxerr/spark/internal/logging"
)

var sectionHeader = regexp.MustCompile(`^\[(.+?)\]$`)

// AsciiSource reads containers from a sectioned text file:
//
//	[Name]
//	line
//	line   # comment
//
// Text after '#' is dropped, tabs become spaces, lines are trimmed and empty
// lines skipped. Lines before the first header are ignored.
type AsciiSource struct {
	Catalog
	path string
}

// NewAsciiSource parses the file at path.
func NewAsciiSource(path string) (*AsciiSource, error) {
	f, err := os.Open(path)
	if err != nil {
		logging.Critical("parameter source could not be opened", "component", "params", "path", path)
		return nil, fmt.Errorf("open parameter source %s: %w", path, err)
	}
	defer f.Close()

	src := &AsciiSource{Catalog: newCatalog(), path: path}
	if err := src.parse(f); err != nil {
		return nil, fmt.Errorf("parse parameter source %s: %w", path, err)
	}
	return src, nil
}

// ParseAscii reads a sectioned parameter text from r.
func ParseAscii(r io.Reader) (*AsciiSource, error) {
	src := &AsciiSource{Catalog: newCatalog()}
	if err := src.parse(r); err != nil {
		return nil, err
	}
	return src, nil
}

func (s *AsciiSource) parse(r io.Reader) error {
	var (
		name string
		view View
	)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(strings.ReplaceAll(line, "\t", " "))
		if line == "" {
			continue
		}

		if m := sectionHeader.FindStringSubmatch(line); m != nil {
			if name != "" {
				s.provide(name, view)
			}
			name = m[1]
			view = View{}
			continue
		}
		view = append(view, line)
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if name != "" {
		s.provide(name, view)
	}
	return nil
}

// Path returns the file the source was read from.
func (s *AsciiSource) Path() string { return s.path }

// WriteView stores view under name, replacing any earlier one.
func (s *AsciiSource) WriteView(name string, view View) error {
	s.provided[name] = true
	s.views[name] = view
	return nil
}

// Save writes every view in section format.
func (s *AsciiSource) Save(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, name := range s.Names() {
		fmt.Fprintf(bw, "[%s]\n", name)
		for _, line := range s.views[name] {
			fmt.Fprintln(bw, line)
		}
	}
	return bw.Flush()
}

func (s *AsciiSource) Print(w io.Writer) {
	fmt.Fprintln(w, "=== Ascii Source Info ===")
	fmt.Fprintf(w, "    File name: %s\n", s.path)
	printCatalog(w, &s.Catalog)
}
