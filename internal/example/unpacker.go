package example

import (
	"context"
	"encoding/binary"
	"fmt"

	"github.com/xtxerr/spark/internal/category"
	"github.com/xtxerr/spark/internal/errors"
	"github.com/xtxerr/spark/internal/logging"
)

// HitSize is the encoded size of one hit in a board subevent:
// channel, toa and tot as little-endian uint16.
const HitSize = 6

// EncodeHits packs hits of one board into a subevent payload.
func EncodeHits(hits []Raw) []byte {
	buf := make([]byte, 0, len(hits)*HitSize)
	for _, h := range hits {
		buf = binary.LittleEndian.AppendUint16(buf, uint16(h.Channel))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(h.Toa))
		buf = binary.LittleEndian.AppendUint16(buf, uint16(h.Tot))
	}
	return buf
}

// Unpacker decodes the subevent of one board into the raw category.
type Unpacker struct {
	board   uint16
	raw     *category.Category[Raw]
	runID   uint64
	dropped uint64
}

// NewUnpacker returns an unpacker for board writing to raw.
func NewUnpacker(board uint16, raw *category.Category[Raw]) *Unpacker {
	return &Unpacker{board: board, raw: raw}
}

func (u *Unpacker) Init(context.Context) error {
	if u.raw == nil {
		return errors.NewMissingField("raw category")
	}
	return nil
}

func (u *Unpacker) Reinit(ctx context.Context, runID uint64) error {
	u.runID = runID
	logging.WithContext(ctx).Debug("unpacker reinit", "board", u.board)
	return nil
}

func (u *Unpacker) Execute(ctx context.Context, event uint64, data []byte) error {
	if len(data)%HitSize != 0 {
		return fmt.Errorf("board %d event %d: payload of %d bytes: %w",
			u.board, event, len(data), errors.ErrCorruptRecord)
	}
	for off := 0; off < len(data); off += HitSize {
		channel := binary.LittleEndian.Uint16(data[off:])
		if channel >= Channels {
			return fmt.Errorf("board %d event %d: channel %d: %w",
				u.board, event, channel, errors.ErrLookupChannelOutOfRange)
		}
		r, err := u.raw.MakeNext()
		if errors.IsStructural(err) && u.raw.EntryCount() >= u.raw.DataSize() {
			dropped := (len(data) - off) / HitSize
			u.dropped += uint64(dropped)
			logging.WithContext(ctx).Warn("raw category full, dropping hits",
				"board", u.board, "event", event, "dropped", dropped)
			return nil
		}
		if err != nil {
			return err
		}
		*r = Raw{
			Board:   int32(u.board),
			Channel: int32(channel),
			Toa:     int32(binary.LittleEndian.Uint16(data[off+2:])),
			Tot:     int32(binary.LittleEndian.Uint16(data[off+4:])),
		}
	}
	return nil
}

// Dropped returns the number of hits dropped because the raw category was
// full.
func (u *Unpacker) Dropped() uint64 { return u.dropped }

func (u *Unpacker) Deinit(ctx context.Context) error {
	if u.dropped > 0 {
		logging.WithContext(ctx).Warn("hits dropped during run", "board", u.board, "dropped", u.dropped)
	}
	return nil
}
