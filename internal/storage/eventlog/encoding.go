package eventlog

import (
	"encoding/binary"
	"fmt"

	"github.com/xtxerr/spark/internal/errors"
)

// Subevent is the payload of one front-end address within an event.
type Subevent struct {
	Address uint16
	Data    []byte
}

// Event is one record of the log.
type Event struct {
	Number    uint64
	Subevents []Subevent
}

// Size returns the payload bytes of all subevents.
func (e *Event) Size() int {
	n := 0
	for _, s := range e.Subevents {
		n += len(s.Data)
	}
	return n
}

// Event encoding format (binary, little-endian):
// - Event number (8 bytes)
// - Subevent count (2 bytes)
// - Per subevent: address (2 bytes), data length (4 bytes), data

func encodeEvent(e *Event) ([]byte, error) {
	if len(e.Subevents) > 0xFFFF {
		return nil, fmt.Errorf("event %d: %d subevents exceed limit", e.Number, len(e.Subevents))
	}

	buf := make([]byte, 0, 10+len(e.Subevents)*6+e.Size())
	buf = binary.LittleEndian.AppendUint64(buf, e.Number)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(e.Subevents)))

	for _, s := range e.Subevents {
		buf = binary.LittleEndian.AppendUint16(buf, s.Address)
		buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Data)))
		buf = append(buf, s.Data...)
	}

	return buf, nil
}

func decodeEvent(data []byte) (Event, error) {
	var e Event
	if len(data) < 10 {
		return e, fmt.Errorf("data too short for event header: %w", errors.ErrCorruptRecord)
	}

	e.Number = binary.LittleEndian.Uint64(data[0:8])
	count := int(binary.LittleEndian.Uint16(data[8:10]))
	offset := 10

	if count > 0 {
		e.Subevents = make([]Subevent, count)
	}
	for i := 0; i < count; i++ {
		if offset+6 > len(data) {
			return e, fmt.Errorf("subevent %d: data too short for header: %w", i, errors.ErrCorruptRecord)
		}
		addr := binary.LittleEndian.Uint16(data[offset:])
		length := int(binary.LittleEndian.Uint32(data[offset+2:]))
		offset += 6

		if offset+length > len(data) {
			return e, fmt.Errorf("subevent %d: data too short for payload: %w", i, errors.ErrCorruptRecord)
		}
		e.Subevents[i] = Subevent{
			Address: addr,
			Data:    append([]byte(nil), data[offset:offset+length]...),
		}
		offset += length
	}

	if offset != len(data) {
		return e, fmt.Errorf("%d trailing bytes: %w", len(data)-offset, errors.ErrCorruptRecord)
	}
	return e, nil
}
