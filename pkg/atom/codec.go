package atom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"
	"path/filepath"
)

// FormatError indicates malformed or corrupt binary atom data.
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("atom: format error: %s", e.Reason)
}

// header is the decoded fixed-size header of an atom container.
type header struct {
	Version     uint8
	Flags       uint8
	Reserved    uint16
	CreatedTSMs int64
	PayloadLen  uint32
	MetadataLen uint32
	SourceLen   uint32
}

// totalSize returns the full container size the header declares.
func (h header) totalSize() int {
	return HeaderSize + int(h.PayloadLen) + int(h.MetadataLen) + int(h.SourceLen) + FooterSize
}

func (h header) encode() []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], Magic)
	buf[4] = h.Version
	buf[5] = h.Flags
	binary.BigEndian.PutUint16(buf[6:8], h.Reserved)
	binary.BigEndian.PutUint64(buf[8:16], uint64(h.CreatedTSMs))
	binary.BigEndian.PutUint32(buf[16:20], h.PayloadLen)
	binary.BigEndian.PutUint32(buf[20:24], h.MetadataLen)
	binary.BigEndian.PutUint32(buf[24:28], h.SourceLen)
	return buf
}

// parseHeader decodes the fixed header without validating body or CRC.
// It fails on undersized input and magic mismatch only.
func parseHeader(data []byte) (header, error) {
	if len(data) < HeaderSize {
		return header{}, &FormatError{Reason: fmt.Sprintf("header too short: %d < %d bytes", len(data), HeaderSize)}
	}
	if !bytes.Equal(data[0:4], Magic) {
		return header{}, &FormatError{Reason: fmt.Sprintf("invalid magic %q", data[0:4])}
	}
	return header{
		Version:     data[4],
		Flags:       data[5],
		Reserved:    binary.BigEndian.Uint16(data[6:8]),
		CreatedTSMs: int64(binary.BigEndian.Uint64(data[8:16])),
		PayloadLen:  binary.BigEndian.Uint32(data[16:20]),
		MetadataLen: binary.BigEndian.Uint32(data[20:24]),
		SourceLen:   binary.BigEndian.Uint32(data[24:28]),
	}, nil
}

// Encode serializes a Record into the ATOM container format.
// Encoding always succeeds for in-memory records.
func Encode(r Record) []byte {
	h := header{
		Version:     Version,
		Flags:       r.Flags,
		CreatedTSMs: r.CreatedTSMs,
		PayloadLen:  uint32(len(r.Payload)),
		MetadataLen: uint32(len(r.Metadata)),
		SourceLen:   uint32(len(r.Source)),
	}

	buf := make([]byte, 0, r.EncodedSize())
	buf = append(buf, h.encode()...)
	buf = append(buf, r.Payload...)
	buf = append(buf, r.Metadata...)
	buf = append(buf, r.Source...)

	crc := crc32.ChecksumIEEE(buf)
	footer := make([]byte, FooterSize)
	binary.BigEndian.PutUint32(footer, crc)
	return append(buf, footer...)
}

// Decode parses an ATOM container back into a Record.
//
// Four independent checks are applied: minimum size, magic bytes, declared
// total size against the actual input length, and the trailing CRC32 against
// a recomputation over all preceding bytes. Any failure returns *FormatError.
func Decode(data []byte) (Record, error) {
	if len(data) < HeaderSize+FooterSize {
		return Record{}, &FormatError{Reason: fmt.Sprintf("data too short: %d bytes", len(data))}
	}

	h, err := parseHeader(data)
	if err != nil {
		return Record{}, err
	}

	if expected := h.totalSize(); len(data) != expected {
		return Record{}, &FormatError{Reason: fmt.Sprintf("size mismatch: %d != %d", len(data), expected)}
	}

	crcEnd := len(data) - FooterSize
	stored := binary.BigEndian.Uint32(data[crcEnd:])
	computed := crc32.ChecksumIEEE(data[:crcEnd])
	if stored != computed {
		return Record{}, &FormatError{Reason: fmt.Sprintf("crc32 mismatch: %08x != %08x", stored, computed)}
	}

	offset := HeaderSize
	payload := append([]byte(nil), data[offset:offset+int(h.PayloadLen)]...)
	offset += int(h.PayloadLen)
	metadata := append([]byte(nil), data[offset:offset+int(h.MetadataLen)]...)
	offset += int(h.MetadataLen)
	source := append([]byte(nil), data[offset:offset+int(h.SourceLen)]...)

	return Record{
		Payload:     payload,
		Metadata:    metadata,
		Source:      source,
		Flags:       h.Flags,
		CreatedTSMs: h.CreatedTSMs,
	}, nil
}

// Save encodes a record and writes it to path. The write goes through a
// temporary sibling file followed by a rename so readers never observe a
// half-written atom.
func Save(path string, r Record) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("atom: create directory: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, Encode(r), 0o644); err != nil {
		return fmt.Errorf("atom: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("atom: rename %s: %w", path, err)
	}
	return nil
}

// Load reads and decodes the atom file at path.
func Load(path string) (Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Record{}, fmt.Errorf("atom: read %s: %w", path, err)
	}
	return Decode(data)
}
