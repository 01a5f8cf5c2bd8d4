package params

import (
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/xtxerr/spark/internal/errors"
)

// Tuple is implemented by pointers to the address and row structs of lookup
// and tabular containers. Fields returns pointers to the values in column
// order, ready for fmt scanning.
type Tuple[T any] interface {
	*T
	Fields() []any
}

// scanLine reads addr with fmtAddr and then row with fmtRow from line. Both
// formats use fmt scanning verbs ("%v" accepts 0x-prefixed hex). Input left
// over after the row fails the line.
func scanLine(name, line, fmtAddr, fmtRow string, addr, row []any) error {
	r := strings.NewReader(line)
	if _, err := fmt.Fscanf(r, fmtAddr, addr...); err != nil {
		return &errors.ParsingError{Name: name, Line: line, Reason: "address: " + err.Error()}
	}
	if _, err := fmt.Fscanf(r, fmtRow, row...); err != nil {
		return &errors.ParsingError{Name: name, Line: line, Reason: "row: " + err.Error()}
	}
	rest, _ := io.ReadAll(r)
	if s := strings.TrimSpace(string(rest)); s != "" {
		return &errors.ParsingError{Name: name, Line: line, Reason: fmt.Sprintf("unconsumed input %q", s)}
	}
	return nil
}

// ScanPair parses one line into an address and a row.
func ScanPair[A, R any, PA Tuple[A], PR Tuple[R]](name, line, fmtAddr, fmtRow string) (A, R, error) {
	var (
		addr A
		row  R
	)
	err := scanLine(name, line, fmtAddr, fmtRow, PA(&addr).Fields(), PR(&row).Fields())
	return addr, row, err
}

// formatTuple prints the values behind fields with format.
func formatTuple(format string, fields []any) string {
	values := make([]any, len(fields))
	for i, f := range fields {
		values[i] = reflect.ValueOf(f).Elem().Interface()
	}
	return fmt.Sprintf(format, values...)
}
