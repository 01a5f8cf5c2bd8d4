package header

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"google.golang.org/protobuf/encoding/protodelim"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/xtxerr/spark/config"
)

// WriteTo writes h as one length-delimited protobuf message.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	s, err := h.ToStruct()
	if err != nil {
		return 0, err
	}
	n, err := protodelim.MarshalTo(w, s)
	if err != nil {
		return int64(n), fmt.Errorf("write header: %w", err)
	}
	return int64(n), nil
}

// Read reads one length-delimited header message from r.
func Read(r io.Reader) (*Header, error) {
	br, ok := r.(protodelim.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	var s structpb.Struct
	opts := protodelim.UnmarshalOptions{
		MaxSize: config.DefaultMaxHeaderSize,
	}
	if err := opts.UnmarshalFrom(br, &s); err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return FromStruct(&s)
}

// WriteFile writes h to path, replacing any existing file.
func (h *Header) WriteFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create header file: %w", err)
	}
	if _, err := h.WriteTo(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadFile reads the header stored at path.
func ReadFile(path string) (*Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open header file: %w", err)
	}
	defer f.Close()
	return Read(f)
}
