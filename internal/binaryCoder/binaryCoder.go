package binaryCoder

import (
	"bytes"
	"errors"
	"fmt"

	"google.golang.org/protobuf/encoding/protowire"
)

// An encoded index is laid out as
//
//	magic "OVIX" | version (1 byte) | kind (1 byte) | uvarint payload length | payload
//
// where payload is a protobuf wire format message, see binaryCoding.go.

const formatVersion = 1

var magic = []byte("OVIX")

var ErrMalformed = errors.New("binaryCoder: malformed index")

// IndexToByte encodes a whole index record.
func IndexToByte(rec IndexRecord) ([]byte, error) {
	if !rec.Kind.valid() {
		return nil, fmt.Errorf("binaryCoder: invalid index kind %d", rec.Kind)
	}

	payload, err := appendIndex(nil, rec)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, len(magic)+2+protowire.SizeVarint(uint64(len(payload)))+len(payload))
	out = append(out, magic...)
	out = append(out, formatVersion, byte(rec.Kind))
	out = protowire.AppendVarint(out, uint64(len(payload)))
	out = append(out, payload...)
	return out, nil
}

// ByteToIndex decodes data produced by IndexToByte. Any deviation from the
// layout, including trailing bytes, is reported as ErrMalformed.
func ByteToIndex(data []byte) (IndexRecord, error) {
	if len(data) < len(magic)+2 || !bytes.Equal(data[:len(magic)], magic) {
		return IndexRecord{}, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	data = data[len(magic):]

	if data[0] != formatVersion {
		return IndexRecord{}, fmt.Errorf("%w: unsupported version %d", ErrMalformed, data[0])
	}
	kind := IndexKind(data[1])
	if !kind.valid() {
		return IndexRecord{}, fmt.Errorf("%w: unknown kind %d", ErrMalformed, data[1])
	}
	data = data[2:]

	length, n := protowire.ConsumeVarint(data)
	if n < 0 {
		return IndexRecord{}, fmt.Errorf("%w: payload length: %v", ErrMalformed, protowire.ParseError(n))
	}
	data = data[n:]
	if uint64(len(data)) != length {
		return IndexRecord{}, fmt.Errorf("%w: payload length %d, have %d bytes", ErrMalformed, length, len(data))
	}

	rec, err := consumeIndex(data, kind)
	if err != nil {
		return IndexRecord{}, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	return rec, nil
}
