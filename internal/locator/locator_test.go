package locator

import (
	"errors"
	"reflect"
	"testing"

	sparkerrors "github.com/xtxerr/spark/internal/errors"
)

func TestOffsets(t *testing.T) {
	tests := []struct {
		sizes    []int
		offsets  []int
		dataSize int
	}{
		{[]int{10}, []int{1}, 10},
		{[]int{2, 5}, []int{5, 1}, 10},
		{[]int{2, 5, 4}, []int{20, 4, 1}, 40},
		{[]int{3, 1, 7, 2}, []int{14, 14, 2, 1}, 42},
	}

	for _, tt := range tests {
		if got := Offsets(tt.sizes); !reflect.DeepEqual(got, tt.offsets) {
			t.Errorf("Offsets(%v) = %v, want %v", tt.sizes, got, tt.offsets)
		}
		if got := DataSize(tt.sizes); got != tt.dataSize {
			t.Errorf("DataSize(%v) = %d, want %d", tt.sizes, got, tt.dataSize)
		}
	}
}

func TestLinearize(t *testing.T) {
	off := Offsets([]int{2, 5, 4})

	pos, err := Linearize(off, []int{1, 2, 3})
	if err != nil {
		t.Fatalf("Linearize: %v", err)
	}
	if pos != 31 {
		t.Errorf("expected 31, got %d", pos)
	}

	if loc := Delinearize(off, 31); !reflect.DeepEqual(loc, []int{1, 2, 3}) {
		t.Errorf("Delinearize(31) = %v", loc)
	}
}

func TestLinearize_DimensionMismatch(t *testing.T) {
	off := Offsets([]int{2, 5, 4})

	for _, loc := range [][]int{{}, {1}, {1, 2}, {1, 2, 3, 4}} {
		_, err := Linearize(off, loc)
		if !errors.Is(err, sparkerrors.ErrDimensionMismatch) {
			t.Errorf("Linearize(%v): expected dimension mismatch, got %v", loc, err)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, sizes := range [][]int{{10}, {2, 5}, {2, 5, 4}, {3, 3, 3, 3}, {1, 64}} {
		off := Offsets(sizes)
		for pos := 0; pos < DataSize(sizes); pos++ {
			loc := Delinearize(off, pos)
			for i, l := range loc {
				if l < 0 || l >= sizes[i] {
					t.Fatalf("sizes %v pos %d: coordinate %d out of bounds: %v", sizes, pos, i, loc)
				}
			}
			back, err := Linearize(off, loc)
			if err != nil {
				t.Fatalf("Linearize: %v", err)
			}
			if back != pos {
				t.Fatalf("sizes %v: round trip %d -> %v -> %d", sizes, pos, loc, back)
			}
		}
	}
}
