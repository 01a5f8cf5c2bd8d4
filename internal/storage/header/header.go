// Package header describes the categories of a run in the files that store
// them.
//
// A Header enumerates every registered category (id, name, sizes,
// simulation flag, record type) together with the run identity. It is
// encoded as a protobuf Struct: as JSON in the key/value metadata of each
// category file, and as a length-delimited binary message in header.pb.
// Readers verify the header against their own model before restoring data.
package header

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/model"
)

// Category is the header entry of one category.
type Category struct {
	ID         model.ID
	Name       string
	Sizes      []int
	Simulation bool
	RecordType string
	Persistent bool
}

// Header is the run description stored with the output.
type Header struct {
	RunUUID    uuid.UUID
	RunID      uint64
	Release    string
	Created    time.Time
	Categories []Category
}

// New creates an empty header for a fresh run.
func New(runID uint64, release string) *Header {
	return &Header{
		RunUUID: uuid.New(),
		RunID:   runID,
		Release: release,
		Created: time.Now().UTC(),
	}
}

// FromModel creates a header enumerating every category registered in m.
// The record type is only known for built categories.
func FromModel(m *model.Manager, runID uint64, release string) *Header {
	h := New(runID, release)
	_ = m.Each(func(info *model.Info) error {
		c := Category{
			ID:         info.ID,
			Name:       info.Name,
			Sizes:      append([]int(nil), info.Sizes...),
			Simulation: info.Simulation,
			Persistent: info.Persistent,
		}
		if info.Category != nil {
			c.RecordType = info.Category.RecordType().String()
		}
		h.Categories = append(h.Categories, c)
		return nil
	})
	return h
}

// Lookup returns the entry named name.
func (h *Header) Lookup(name string) (Category, bool) {
	for _, c := range h.Categories {
		if c.Name == name {
			return c, true
		}
	}
	return Category{}, false
}

// Persistent returns the entries of persistent categories.
func (h *Header) Persistent() []Category {
	var out []Category
	for _, c := range h.Categories {
		if c.Persistent {
			out = append(out, c)
		}
	}
	return out
}

// Verify checks that every category of h is registered in m with the same
// name, sizes and simulation flag, and that built categories hold the
// recorded type.
func (h *Header) Verify(m *model.Manager) error {
	var errs []error
	for _, c := range h.Categories {
		info, ok := m.Info(c.ID)
		if !ok {
			errs = append(errs, fmt.Errorf("category %s (id %d) not registered: %w", c.Name, c.ID, errors.ErrHeaderMismatch))
			continue
		}
		if info.Name != c.Name {
			errs = append(errs, fmt.Errorf("category id %d named %s, file has %s: %w", c.ID, info.Name, c.Name, errors.ErrHeaderMismatch))
		}
		if !slices.Equal(info.Sizes, c.Sizes) {
			errs = append(errs, fmt.Errorf("category %s sizes %v, file has %v: %w", c.Name, info.Sizes, c.Sizes, errors.ErrHeaderMismatch))
		}
		if info.Simulation != c.Simulation {
			errs = append(errs, fmt.Errorf("category %s simulation %t, file has %t: %w", c.Name, info.Simulation, c.Simulation, errors.ErrHeaderMismatch))
		}
		if info.Category != nil && c.RecordType != "" {
			if rt := info.Category.RecordType().String(); rt != c.RecordType {
				errs = append(errs, fmt.Errorf("category %s holds %s, file has %s: %w", c.Name, rt, c.RecordType, errors.ErrHeaderMismatch))
			}
		}
	}
	return errors.Join(errs...)
}

// =============================================================================
// Struct encoding
// =============================================================================

// ToStruct encodes h as a protobuf Struct.
func (h *Header) ToStruct() (*structpb.Struct, error) {
	cats := make([]any, len(h.Categories))
	for i, c := range h.Categories {
		sizes := make([]any, len(c.Sizes))
		for j, s := range c.Sizes {
			sizes[j] = s
		}
		cats[i] = map[string]any{
			"id":          uint32(c.ID),
			"name":        c.Name,
			"sizes":       sizes,
			"simulation":  c.Simulation,
			"record_type": c.RecordType,
			"persistent":  c.Persistent,
		}
	}

	s, err := structpb.NewStruct(map[string]any{
		"run_uuid":   h.RunUUID.String(),
		"run_id":     h.RunID,
		"release":    h.Release,
		"created":    h.Created.Format(time.RFC3339Nano),
		"categories": cats,
	})
	if err != nil {
		return nil, fmt.Errorf("encode header: %w", err)
	}
	return s, nil
}

// FromStruct decodes a header encoded by ToStruct.
func FromStruct(s *structpb.Struct) (*Header, error) {
	fields := s.GetFields()
	h := &Header{
		Release: fields["release"].GetStringValue(),
		RunID:   uint64(fields["run_id"].GetNumberValue()),
	}

	id, err := uuid.Parse(fields["run_uuid"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("header run_uuid: %w", err)
	}
	h.RunUUID = id

	if created := fields["created"].GetStringValue(); created != "" {
		t, err := time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, fmt.Errorf("header created: %w", err)
		}
		h.Created = t
	}

	for i, v := range fields["categories"].GetListValue().GetValues() {
		cf := v.GetStructValue().GetFields()
		if cf == nil {
			return nil, errors.NewValidation(fmt.Sprintf("header categories[%d]", i), "entry is not an object")
		}
		name := cf["name"].GetStringValue()
		if name == "" {
			return nil, errors.NewMissingField(fmt.Sprintf("header categories[%d].name", i))
		}
		c := Category{
			ID:         model.ID(cf["id"].GetNumberValue()),
			Name:       name,
			Simulation: cf["simulation"].GetBoolValue(),
			RecordType: cf["record_type"].GetStringValue(),
			Persistent: cf["persistent"].GetBoolValue(),
		}
		for _, sv := range cf["sizes"].GetListValue().GetValues() {
			c.Sizes = append(c.Sizes, int(sv.GetNumberValue()))
		}
		h.Categories = append(h.Categories, c)
	}
	return h, nil
}

// MarshalJSON encodes h as protobuf JSON.
func (h *Header) MarshalJSON() ([]byte, error) {
	s, err := h.ToStruct()
	if err != nil {
		return nil, err
	}
	return protojson.Marshal(s)
}

// Parse decodes a header from its protobuf JSON form.
func Parse(data []byte) (*Header, error) {
	var s structpb.Struct
	if err := protojson.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse header: %w", err)
	}
	return FromStruct(&s)
}
