package params

import (
	"bytes"
	"io"
	"reflect"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sparkassert "github.com/xtxerr/spark/internal/assert"
	"github.com/xtxerr/spark/internal/errors"
	sparktest "github.com/xtxerr/spark/internal/testing"
)

type mapping struct {
	Module  int32
	Channel int32
}

func (m *mapping) Fields() []any { return []any{&m.Module, &m.Channel} }

type tabKey struct {
	Board uint32
	Tag   rune
}

func (k *tabKey) Fields() []any { return []any{&k.Board, &k.Tag} }

type tabRow struct {
	Module  int32
	Channel int32
	Value   float64
}

func (r *tabRow) Fields() []any { return []any{&r.Module, &r.Channel, &r.Value} }

type (
	testLookup  = LookupTable[mapping, *mapping]
	testTabular = Tabular[tabKey, tabRow, *tabKey, *tabRow]
)

var (
	lookupBuild  = LookupBuilder[mapping, *mapping](0x1000, 0x1001, 16, "%v %v", "%d %d")
	tabularBuild = TabularBuilder[tabKey, tabRow, *tabKey, *tabRow]("%v %c", "%d %d %v")
)

// emptyContainer accepts only empty views.
type emptyContainer struct {
	Base
}

func buildEmpty(name string) *emptyContainer {
	return &emptyContainer{Base: NewBase(name)}
}

func (e *emptyContainer) FromView(view View) error {
	if len(view) != 0 {
		return errors.New("empty container got lines")
	}
	return nil
}

func (e *emptyContainer) ToView() View { return View{} }

func (e *emptyContainer) Print(w io.Writer) {}

func disableAssertions(t *testing.T) {
	t.Helper()
	sparkassert.Disable()
	t.Cleanup(sparkassert.Enable)
}

func newAsciiFixture(t *testing.T) *AsciiSource {
	t.Helper()
	src, err := NewAsciiSource(sparktest.WriteParameterFile(t, sparktest.ParameterText))
	require.NoError(t, err)
	return src
}

func TestAsciiSourceSections(t *testing.T) {
	src := newAsciiFixture(t)

	assert.Equal(t,
		[]string{"Empty1", "Empty2", "Empty3", "Lookup1", "Lookup2", "Lookup3Broken", "Tabular1"},
		src.Names())

	view, ok := src.View("Lookup1")
	require.True(t, ok)
	assert.Equal(t, View{"0x1000 0    0 0", "0x1000 1    0 1", "0x1000 2    0 2", "0x1001 0    1 0"}, view)

	view, ok = src.View("Empty2")
	require.True(t, ok)
	assert.Empty(t, view)

	assert.False(t, src.Provides("line comment"))
}

func TestAsciiSourceMissingFile(t *testing.T) {
	_, err := NewAsciiSource(t.TempDir() + "/missing.txt")
	assert.Error(t, err)
}

func TestAsciiSourceSaveRoundTrip(t *testing.T) {
	src := newAsciiFixture(t)

	var buf bytes.Buffer
	require.NoError(t, src.Save(&buf))

	again, err := ParseAscii(&buf)
	require.NoError(t, err)
	assert.Equal(t, src.Names(), again.Names())
	for _, name := range src.Names() {
		want, _ := src.View(name)
		got, _ := again.View(name)
		assert.Equal(t, want, got, name)
	}
}

func TestMakeAvailable(t *testing.T) {
	src := newAsciiFixture(t)

	ok, err := MakeAvailable(src, "NotExisting", lookupBuild)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = MakeAvailable(src, "Lookup1", lookupBuild)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = MakeAvailable(src, "Lookup1", lookupBuild)
	require.NoError(t, err)
	assert.True(t, ok)

	lut, err := GetContainer[*testLookup](src, "Lookup1", 1)
	require.NoError(t, err)
	assert.Equal(t, 4, lut.Len())

	_, err = MakeAvailable(src, "Lookup1", buildEmpty)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrContainerInvalidType)

	var mismatch *errors.TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "Lookup1", mismatch.Name)
	assert.Contains(t, mismatch.Registered, "LookupTable")
	assert.Contains(t, mismatch.Requested, "emptyContainer")
}

func TestMakeAvailableParsingError(t *testing.T) {
	src := newAsciiFixture(t)

	ok, err := MakeAvailable(src, "Lookup3Broken", lookupBuild)
	assert.False(t, ok)
	require.Error(t, err)
	assert.True(t, errors.IsParsing(err))

	var perr *errors.ParsingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Lookup3Broken", perr.Name)
}

func TestEmptyContainer(t *testing.T) {
	src := newAsciiFixture(t)

	for _, name := range []string{"Empty1", "Empty2", "Empty3"} {
		ok, err := MakeAvailable(src, name, buildEmpty)
		require.NoError(t, err, name)
		assert.True(t, ok, name)
	}

	ok, err := MakeAvailable(src, "Lookup2", buildEmpty)
	assert.False(t, ok)
	assert.True(t, errors.IsParsing(err))
}

func TestLookupTableBounds(t *testing.T) {
	lut := NewLookupTable[mapping, *mapping]("TestTable", 0x1000, 0x1000, 16, "%v %v", "%d %d")

	_, err := lut.Get(Address{Board: 0x1001, Channel: 0})
	assert.ErrorIs(t, err, errors.ErrLookupAddressOutOfRange)

	_, err = lut.Get(Address{Board: 0x0fff, Channel: 0})
	assert.ErrorIs(t, err, errors.ErrLookupAddressOutOfRange)

	_, err = lut.Get(Address{Board: 0x1000, Channel: 16})
	assert.ErrorIs(t, err, errors.ErrLookupChannelOutOfRange)

	_, err = lut.Get(Address{Board: 0x1000, Channel: 0})
	assert.ErrorIs(t, err, errors.ErrNotFound)
	assert.True(t, errors.IsMissingData(err))

	lut.Insert(Address{Board: 0x1000, Channel: 0}, mapping{Module: 13, Channel: 15})
	row, err := lut.Get(Address{Board: 0x1000, Channel: 0})
	require.NoError(t, err)
	assert.Equal(t, mapping{Module: 13, Channel: 15}, row)

	lut.Insert(Address{Board: 0x1000, Channel: 0}, mapping{Module: 1, Channel: 1})
	row, _ = lut.At(Address{Board: 0x1000, Channel: 0})
	assert.Equal(t, mapping{Module: 13, Channel: 15}, row, "first insert wins")
}

func TestLookupTableFromView(t *testing.T) {
	lut := lookupBuild("Lookup1")
	require.NoError(t, lut.FromView(View{"0x1000 0    0 0", "0x1000 2    0 2", "0x1001 0    1 0"}))

	row, err := lut.Get(Address{Board: 0x1001, Channel: 0})
	require.NoError(t, err)
	assert.Equal(t, mapping{Module: 1, Channel: 0}, row)

	again := lookupBuild("Lookup1")
	require.NoError(t, again.FromView(lut.ToView()))
	assert.Equal(t, lut.ToView(), again.ToView())
	assert.Equal(t, 3, again.Len())

	var buf bytes.Buffer
	lut.Print(&buf)
	assert.Contains(t, buf.String(), "{0x1001, 0} : {Module:1 Channel:0}")
}

func TestLookupTableResidualInput(t *testing.T) {
	lut := lookupBuild("Residual")
	err := lut.FromView(View{"0x1000 0    0 0 7"})
	require.Error(t, err)

	var perr *errors.ParsingError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "Residual", perr.Name)
	assert.Contains(t, perr.Reason, "unconsumed")
}

func TestTabular(t *testing.T) {
	src := newAsciiFixture(t)

	ok, err := MakeAvailable(src, "Tabular1", tabularBuild)
	require.NoError(t, err)
	require.True(t, ok)

	tab, err := GetContainer[*testTabular](src, "Tabular1", 0)
	require.NoError(t, err)
	assert.Equal(t, 4, tab.Len())

	row, err := tab.Get(tabKey{Board: 0x1000, Tag: 'c'})
	require.NoError(t, err)
	assert.Equal(t, tabRow{Module: 0, Channel: 2, Value: 1115}, row)

	row, err = tab.Get(tabKey{Board: 0x1001, Tag: 'd'})
	require.NoError(t, err)
	assert.InDelta(t, 137.0, row.Value, 1e-9)

	_, err = tab.Get(tabKey{Board: 0x1001, Tag: 'a'})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestValidity(t *testing.T) {
	older := NewValidity(10, 100)
	newer := NewValidity(50, 200)

	assert.True(t, older.Before(newer))
	assert.True(t, older.Contains(10))
	assert.False(t, older.Contains(100))
	assert.True(t, older.Overlaps(newer))

	older.Truncate(newer)
	assert.Equal(t, int64(50), older.To)
	assert.Equal(t, int64(100), older.Truncated)
	assert.Equal(t, "[10, 50) truncated from 100", older.String())

	kept := NewValidity(10, 100)
	kept.Truncate(NewValidity(0, 5))
	assert.Equal(t, int64(100), kept.To, "non-overlapping range keeps its end")
	assert.Zero(t, kept.Truncated)
}

func TestVolatileTypeCheck(t *testing.T) {
	v := NewVolatile(reflect.TypeFor[*testLookup](), "Lookup1", func(string, Source, uint64) (Container, error) {
		return nil, nil
	})

	assert.True(t, Validate[*testLookup](v))
	assert.False(t, Validate[*emptyContainer](v))

	_, err := WrapperOf[*emptyContainer](v)
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrContainerRegistration)
	assert.True(t, errors.IsTypeMismatch(err))

	w, err := WrapperOf[*testLookup](v)
	require.NoError(t, err)
	_, ok := w.Value()
	assert.False(t, ok, "nothing materialized yet")
	assert.Nil(t, w.Get())
}

func TestVolatileUpdateOnce(t *testing.T) {
	calls := 0
	v := NewVolatile(reflect.TypeFor[*testLookup](), "Lookup1", func(name string, _ Source, _ uint64) (Container, error) {
		calls++
		return lookupBuild(name), nil
	})

	src := NewMemorySource()
	require.NoError(t, v.Update(src, 1))
	require.NoError(t, v.Update(src, 2))
	assert.Equal(t, 1, calls)
	assert.NotNil(t, v.Container())
}

func TestDatabaseRegister(t *testing.T) {
	disableAssertions(t)

	db := NewDatabase()
	db.AddSource(newAsciiFixture(t))

	ok, err := Register(db, "Tabular1", tabularBuild)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = Register(db, "Tabular1", buildEmpty)
	require.NoError(t, err)
	assert.False(t, ok, "second registration does not rebind")

	ok, err = Register(db, "NotExisting", lookupBuild)
	assert.False(t, ok)
	assert.ErrorIs(t, err, errors.ErrContainerMissingInSource)
	_, bound := db.Lookup("NotExisting")
	assert.False(t, bound)

	_, err = Register(db, "Lookup3Broken", lookupBuild)
	assert.True(t, errors.IsParsing(err))
}

func TestDatabaseGet(t *testing.T) {
	disableAssertions(t)

	db := NewDatabase()
	db.AddSource(newAsciiFixture(t))

	_, err := Register(db, "Lookup1", lookupBuild)
	require.NoError(t, err)

	_, err = Get[*testLookup](db, "Unknown")
	assert.ErrorIs(t, err, errors.ErrContainerNotRegistered)
	assert.True(t, errors.IsConfiguration(err))

	w, err := Get[*testLookup](db, "Lookup1")
	require.NoError(t, err)
	_, ok := w.Value()
	assert.False(t, ok, "not materialized before InitContainers")

	require.NoError(t, db.InitContainers(1))
	lut, ok := w.Value()
	require.True(t, ok)
	row, err := lut.Get(Address{Board: 0x1000, Channel: 2})
	require.NoError(t, err)
	assert.Equal(t, mapping{Module: 0, Channel: 2}, row)

	_, err = Get[*emptyContainer](db, "Lookup1")
	assert.ErrorIs(t, err, errors.ErrContainerRegistration)
}

func TestDatabaseSourcePriority(t *testing.T) {
	disableAssertions(t)

	db := NewDatabase()
	db.AddSource(newAsciiFixture(t))

	mem := NewMemorySource()
	mem.AddView("Lookup1", View{"0x1000 0 9 9"})
	db.AddSource(mem)

	_, err := Register(db, "Lookup1", lookupBuild)
	require.NoError(t, err)
	require.NoError(t, db.InitContainers(7))

	w, err := Get[*testLookup](db, "Lookup1")
	require.NoError(t, err)
	lut := w.Get()
	assert.Equal(t, 1, lut.Len(), "memory source added last is consulted first")

	row, err := lut.Get(Address{Board: 0x1000, Channel: 0})
	require.NoError(t, err)
	assert.Equal(t, mapping{Module: 9, Channel: 9}, row)

	require.NoError(t, db.InitContainers(8))
	assert.Same(t, lut, w.Get(), "a new run id does not rematerialize")
}

func TestDatabaseWriteContainers(t *testing.T) {
	disableAssertions(t)

	db := NewDatabase()
	db.AddSource(newAsciiFixture(t))
	_, err := Register(db, "Lookup2", lookupBuild)
	require.NoError(t, err)

	assert.ErrorIs(t, db.WriteContainers(), errors.ErrMissingField)

	target := NewMemorySource()
	db.SetTarget(target)
	db.SetRelease("test-release")
	require.NoError(t, db.InitContainers(1))
	require.NoError(t, db.WriteContainers())

	view, ok := target.View("Lookup2")
	require.True(t, ok)
	assert.Len(t, view, 4)

	var buf bytes.Buffer
	db.Print(&buf)
	out := buf.String()
	assert.Contains(t, out, "Release: test-release")
	assert.True(t, strings.Contains(out, "Lookup2") && strings.Contains(out, "materialized=true"))
}
