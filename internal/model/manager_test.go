package model

import (
	"errors"
	"strings"
	"testing"

	"github.com/xtxerr/spark/internal/category"
	sparkerrors "github.com/xtxerr/spark/internal/errors"
)

const (
	catRaw ID = iota
	catCal
	catUnknown
)

type raw struct {
	Channel int32
	Toa     float32
}

type cal struct {
	Channel int32
	Energy  float32
}

func TestRegister_Idempotent(t *testing.T) {
	m := NewManager()

	if !m.Register(catRaw, "Raw", []int{64}, false) {
		t.Fatal("Register should succeed")
	}
	if !m.Register(catRaw, "Other", []int{8}, true) {
		t.Fatal("re-registration should succeed")
	}

	info, ok := m.Info(catRaw)
	if !ok {
		t.Fatal("info missing")
	}
	if info.Name != "Raw" || len(info.Sizes) != 1 || info.Sizes[0] != 64 || info.Simulation {
		t.Errorf("re-registration should keep original metadata, got %+v", info)
	}
}

func TestBuild(t *testing.T) {
	m := NewManager()
	m.Register(catRaw, "Raw", []int{64}, false)

	c, err := Build[raw](m, catRaw, true)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if c.Name() != "Raw" || c.DataSize() != 64 {
		t.Errorf("unexpected category %s/%d", c.Name(), c.DataSize())
	}

	again, err := Build[raw](m, catRaw, true)
	if err != nil {
		t.Fatalf("Build again: %v", err)
	}
	if again != c {
		t.Error("Build should return the cached category")
	}

	if _, err := Build[cal](m, catRaw, true); !errors.Is(err, sparkerrors.ErrCategoryTypeMismatch) {
		t.Errorf("expected type mismatch, got %v", err)
	}

	info, _ := m.Info(catRaw)
	if !info.Persistent {
		t.Error("category should be persistent")
	}
}

func TestBuild_NotRegistered(t *testing.T) {
	m := NewManager()
	if _, err := Build[raw](m, catUnknown, true); !errors.Is(err, sparkerrors.ErrCategoryNotRegistered) {
		t.Errorf("expected not registered, got %v", err)
	}
}

func TestGet(t *testing.T) {
	m := NewManager()
	m.Register(catRaw, "Raw", []int{64}, false)

	if Get[raw](m, catUnknown) != nil {
		t.Error("unregistered category should be nil")
	}
	if Get[raw](m, catRaw) != nil {
		t.Error("unbuilt category should be nil")
	}
	if m.Lookup(catRaw) != nil {
		t.Error("unbuilt Lookup should be nil")
	}

	built, _ := Build[raw](m, catRaw, false)
	if Get[raw](m, catRaw) != built {
		t.Error("Get should return the built category")
	}
	if Get[cal](m, catRaw) != nil {
		t.Error("Get with another record type should be nil")
	}
}

func TestSet(t *testing.T) {
	m := NewManager()
	m.Register(catCal, "Cal", []int{16}, false)

	c, err := category.New[cal]("Cal", []int{16}, false)
	if err != nil {
		t.Fatalf("category.New: %v", err)
	}
	if err := m.Set(catCal, c, false); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if Get[cal](m, catCal) != c {
		t.Error("Get should return the category attached with Set")
	}
	if err := m.Set(catUnknown, c, false); !errors.Is(err, sparkerrors.ErrCategoryNotRegistered) {
		t.Errorf("expected not registered, got %v", err)
	}
}

func TestClearCompress(t *testing.T) {
	m := NewManager()
	m.Register(catRaw, "Raw", []int{64}, false)
	m.Register(catCal, "Cal", []int{64}, false)

	r, _ := Build[raw](m, catRaw, true)
	r.Make([]int{5})

	m.Compress()
	if !r.Compressed() {
		t.Error("Compress should reach every built category")
	}

	m.Clear()
	if r.EntryCount() != 0 || r.Compressed() {
		t.Error("Clear should reset every built category")
	}
}

func TestEach(t *testing.T) {
	m := NewManager()
	m.Register(catCal, "Cal", []int{4}, false)
	m.Register(catRaw, "Raw", []int{4}, false)

	var names []string
	m.Each(func(info *Info) error {
		names = append(names, info.Name)
		return nil
	})
	if strings.Join(names, ",") != "Raw,Cal" {
		t.Errorf("Each should iterate in id order, got %v", names)
	}
}

type setupFunc func(m *Manager) error

func (f setupFunc) SetupCategories(m *Manager) error { return f(m) }

func TestSetupFrom(t *testing.T) {
	m := NewManager()

	var order []string
	err := m.SetupFrom(
		setupFunc(func(m *Manager) error {
			order = append(order, "first")
			m.Register(catRaw, "Raw", []int{64}, false)
			return nil
		}),
		setupFunc(func(m *Manager) error {
			order = append(order, "second")
			return nil
		}),
	)
	if err != nil {
		t.Fatalf("SetupFrom: %v", err)
	}
	if strings.Join(order, ",") != "first,second" {
		t.Errorf("unexpected order %v", order)
	}
	if _, ok := m.Info(catRaw); !ok {
		t.Error("setup should register the category")
	}
}

func TestPrint(t *testing.T) {
	m := NewManager()
	m.Register(catRaw, "Raw", []int{64}, false)
	m.Register(catCal, "Cal", []int{8, 8}, false)
	Build[raw](m, catRaw, true)

	var sb strings.Builder
	m.PrintRegistered(&sb)
	if got := sb.String(); got != "There are 2 registered categories:\n  ->   Raw[64]  Cal[8 8]\n" {
		t.Errorf("PrintRegistered = %q", got)
	}

	sb.Reset()
	m.Print(&sb)
	if !strings.HasPrefix(sb.String(), "There are 1 categories in the output tree\nCategory: Raw") {
		t.Errorf("Print = %q", sb.String())
	}
}
