package header

import (
	"bytes"
	"path/filepath"
	"slices"
	"testing"

	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/model"
)

type raw struct {
	ADC int32
}

type cal struct {
	Energy float64
}

const (
	rawID model.ID = 1
	calID model.ID = 2
	simID model.ID = 7
)

func newModel(t *testing.T) *model.Manager {
	t.Helper()
	m := model.NewManager()
	m.Register(rawID, "Raw", []int{4, 16}, false)
	m.Register(calID, "Cal", []int{64}, false)
	m.Register(simID, "Sim", []int{8}, true)
	if _, err := model.Build[raw](m, rawID, true); err != nil {
		t.Fatalf("build raw: %v", err)
	}
	if _, err := model.Build[cal](m, calID, false); err != nil {
		t.Fatalf("build cal: %v", err)
	}
	return m
}

func TestFromModel(t *testing.T) {
	h := FromModel(newModel(t), 42, "v1")

	if h.RunID != 42 || h.Release != "v1" {
		t.Errorf("run = %d/%s, want 42/v1", h.RunID, h.Release)
	}
	if len(h.Categories) != 3 {
		t.Fatalf("got %d categories, want 3", len(h.Categories))
	}

	c, ok := h.Lookup("Raw")
	if !ok {
		t.Fatal("Raw not in header")
	}
	if c.ID != rawID || !slices.Equal(c.Sizes, []int{4, 16}) || !c.Persistent {
		t.Errorf("Raw entry = %+v", c)
	}
	if c.RecordType != "header.raw" {
		t.Errorf("record type = %q, want header.raw", c.RecordType)
	}

	sim, _ := h.Lookup("Sim")
	if sim.RecordType != "" || !sim.Simulation {
		t.Errorf("unbuilt Sim entry = %+v", sim)
	}

	if p := h.Persistent(); len(p) != 1 || p[0].Name != "Raw" {
		t.Errorf("persistent = %+v, want only Raw", p)
	}
	if _, ok := h.Lookup("Missing"); ok {
		t.Error("lookup of unknown name succeeded")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	want := FromModel(newModel(t), 7, "r2")

	data, err := want.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON: %v", err)
	}
	got, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got.RunUUID != want.RunUUID {
		t.Errorf("uuid = %s, want %s", got.RunUUID, want.RunUUID)
	}
	if !got.Created.Equal(want.Created) {
		t.Errorf("created = %v, want %v", got.Created, want.Created)
	}
	if got.RunID != 7 || got.Release != "r2" {
		t.Errorf("run = %d/%s", got.RunID, got.Release)
	}
	if !slices.EqualFunc(got.Categories, want.Categories, func(a, b Category) bool {
		return a.ID == b.ID && a.Name == b.Name && slices.Equal(a.Sizes, b.Sizes) &&
			a.Simulation == b.Simulation && a.RecordType == b.RecordType && a.Persistent == b.Persistent
	}) {
		t.Errorf("categories = %+v, want %+v", got.Categories, want.Categories)
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"not json", "{"},
		{"bad uuid", `{"run_uuid":"nope"}`},
		{"unnamed category", `{"run_uuid":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","categories":[{"id":1}]}`},
		{"category not object", `{"run_uuid":"6ba7b810-9dad-11d1-80b4-00c04fd430c8","categories":[3]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Parse([]byte(tt.data)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestVerify(t *testing.T) {
	h := FromModel(newModel(t), 1, "")

	if err := h.Verify(newModel(t)); err != nil {
		t.Fatalf("Verify against same model: %v", err)
	}

	t.Run("sizes differ", func(t *testing.T) {
		m := model.NewManager()
		m.Register(rawID, "Raw", []int{4, 8}, false)
		m.Register(calID, "Cal", []int{64}, false)
		m.Register(simID, "Sim", []int{8}, true)
		err := h.Verify(m)
		if !errors.Is(err, errors.ErrHeaderMismatch) {
			t.Errorf("err = %v, want ErrHeaderMismatch", err)
		}
	})

	t.Run("unregistered", func(t *testing.T) {
		m := model.NewManager()
		m.Register(rawID, "Raw", []int{4, 16}, false)
		if err := h.Verify(m); !errors.Is(err, errors.ErrHeaderMismatch) {
			t.Errorf("err = %v, want ErrHeaderMismatch", err)
		}
	})

	t.Run("record type differs", func(t *testing.T) {
		m := model.NewManager()
		m.Register(rawID, "Raw", []int{4, 16}, false)
		m.Register(calID, "Cal", []int{64}, false)
		m.Register(simID, "Sim", []int{8}, true)
		if _, err := model.Build[cal](m, rawID, true); err != nil {
			t.Fatalf("build: %v", err)
		}
		if err := h.Verify(m); !errors.Is(err, errors.ErrHeaderMismatch) {
			t.Errorf("err = %v, want ErrHeaderMismatch", err)
		}
	})
}

func TestFileRoundTrip(t *testing.T) {
	want := FromModel(newModel(t), 3, "file")
	path := filepath.Join(t.TempDir(), "header.pb")

	if err := want.WriteFile(path); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	got, err := ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if got.RunUUID != want.RunUUID || len(got.Categories) != len(want.Categories) {
		t.Errorf("got %+v, want %+v", got, want)
	}
	if err := got.Verify(newModel(t)); err != nil {
		t.Errorf("Verify: %v", err)
	}
}

func TestReadStream(t *testing.T) {
	var buf bytes.Buffer
	first := New(1, "a")
	second := New(2, "b")
	for _, h := range []*Header{first, second} {
		if _, err := h.WriteTo(&buf); err != nil {
			t.Fatalf("WriteTo: %v", err)
		}
	}

	r := bytes.NewReader(buf.Bytes())
	for _, want := range []*Header{first, second} {
		got, err := Read(r)
		if err != nil {
			t.Fatalf("Read: %v", err)
		}
		if got.RunUUID != want.RunUUID || got.RunID != want.RunID {
			t.Errorf("got run %d, want %d", got.RunID, want.RunID)
		}
	}
	if _, err := Read(r); err == nil {
		t.Error("expected error reading past the last header")
	}
}

func TestReadMissingFile(t *testing.T) {
	if _, err := ReadFile(filepath.Join(t.TempDir(), "none.pb")); err == nil {
		t.Error("expected error")
	}
}
