package tasks

import (
	"context"
	"fmt"
)

// Unpacker decodes the subevents of one front-end address into categories.
type Unpacker interface {
	Init(ctx context.Context) error

	// Reinit is called when the run changes.
	Reinit(ctx context.Context, runID uint64) error

	// Execute decodes one subevent payload of event.
	Execute(ctx context.Context, event uint64, data []byte) error

	Deinit(ctx context.Context) error
}

// UnpackerHost is a data source that dispatches subevents to unpackers.
type UnpackerHost interface {
	AddUnpacker(addr uint16, u Unpacker) error
}

type unpackerEntry struct {
	addr        uint16
	u           Unpacker
	initialized bool
}

// MakeUnpacker attaches u to host under addr and keeps it for the unpacker
// lifecycle calls.
func (m *Manager) MakeUnpacker(host UnpackerHost, addr uint16, u Unpacker) error {
	if err := host.AddUnpacker(addr, u); err != nil {
		return err
	}
	m.unpackers = append(m.unpackers, &unpackerEntry{addr: addr, u: u})
	m.logger.Debug("unpacker added", "address", fmt.Sprintf("%#04x", addr))
	return nil
}

// Unpackers returns the number of unpackers made.
func (m *Manager) Unpackers() int { return len(m.unpackers) }

// InitUnpackers calls Init on every unpacker in the order they were made.
func (m *Manager) InitUnpackers(ctx context.Context) error {
	for _, e := range m.unpackers {
		if e.initialized {
			continue
		}
		if err := e.u.Init(ctx); err != nil {
			return fmt.Errorf("init unpacker %#04x: %w", e.addr, err)
		}
		e.initialized = true
	}
	return nil
}

// ReinitUnpackers calls Reinit on every initialized unpacker.
func (m *Manager) ReinitUnpackers(ctx context.Context, runID uint64) error {
	for _, e := range m.unpackers {
		if !e.initialized {
			continue
		}
		if err := e.u.Reinit(ctx, runID); err != nil {
			return fmt.Errorf("reinit unpacker %#04x: %w", e.addr, err)
		}
	}
	return nil
}

// DeinitUnpackers calls Deinit on every unpacker whose Init succeeded.
func (m *Manager) DeinitUnpackers(ctx context.Context) error {
	for _, e := range m.unpackers {
		if !e.initialized {
			continue
		}
		e.initialized = false
		if err := e.u.Deinit(ctx); err != nil {
			return fmt.Errorf("deinit unpacker %#04x: %w", e.addr, err)
		}
	}
	return nil
}
