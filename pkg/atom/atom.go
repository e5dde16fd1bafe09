// Package atom implements the ATOM binary container format used to persist
// single units of agent memory, together with a corruption-repair pipeline.
//
// Binary layout (all integers big-endian):
//
//	offset 0   magic         4 bytes  = "ATOM"
//	offset 4   version       1 byte   = 1
//	offset 5   flags         1 byte
//	offset 6   reserved      2 bytes  = 0
//	offset 8   created_ts_ms 8 bytes  (int64, epoch milliseconds)
//	offset 16  payload_len   4 bytes  (uint32)
//	offset 20  metadata_len  4 bytes  (uint32)
//	offset 24  source_len    4 bytes  (uint32)
//	offset 28  payload, metadata, source
//	           crc32         4 bytes  (IEEE, over all preceding bytes)
package atom

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/mnemo/mnemo/pkg/topic"
)

const (
	// HeaderSize is the fixed size of the encoded header in bytes.
	HeaderSize = 28

	// FooterSize is the size of the trailing CRC32 in bytes.
	FooterSize = 4

	// Version is the current container format version.
	Version = 1

	// MetadataSchema is the current metadata schema version.
	MetadataSchema = 1
)

// Magic is the four-byte signature opening every atom container.
var Magic = []byte("ATOM")

// Record is a single unit of agent memory. It is immutable once encoded;
// mutation means re-encoding a new value at the same id.
type Record struct {
	// Payload is the opaque content bytes.
	Payload []byte `json:"payload"`

	// Metadata is the serialized Metadata struct (see EncodeMetadata).
	Metadata []byte `json:"metadata,omitempty"`

	// Source identifies provenance (which subsystem produced the atom).
	Source []byte `json:"source,omitempty"`

	// Flags is an application-defined 8-bit flag field.
	Flags uint8 `json:"flags"`

	// CreatedTSMs is the creation timestamp in epoch milliseconds.
	CreatedTSMs int64 `json:"created_ts_ms"`
}

// NewRecord builds a Record with CreatedTSMs defaulted to the current time.
func NewRecord(payload, metadata, source []byte, flags uint8) Record {
	return Record{
		Payload:     payload,
		Metadata:    metadata,
		Source:      source,
		Flags:       flags,
		CreatedTSMs: time.Now().UnixMilli(),
	}
}

// CreatedAt returns the creation timestamp as a time.Time.
func (r Record) CreatedAt() time.Time {
	return time.UnixMilli(r.CreatedTSMs)
}

// EncodedSize returns the total size of the record once encoded.
func (r Record) EncodedSize() int {
	return HeaderSize + len(r.Payload) + len(r.Metadata) + len(r.Source) + FooterSize
}

// Metadata is the typed key/value block embedded in an atom at write time.
// A schema tag is carried so future layouts can be migrated explicitly
// instead of being guessed from the present keys.
type Metadata struct {
	// Schema is the metadata schema version (MetadataSchema).
	Schema int `json:"schema"`

	// Category is the storage category, derived from the topic label.
	Category string `json:"category"`

	// Primary is the primary topic key, derived from the top keyword.
	Primary string `json:"primary"`

	// Importance is the caller-supplied importance score (0.0 to 1.0).
	Importance float64 `json:"importance"`

	// Tier is the durability tier the atom was routed to at write time.
	Tier string `json:"tier"`

	// Confidence is an optional per-atom confidence used by knowlet
	// consolidation. Zero means "not set".
	Confidence float64 `json:"confidence,omitempty"`

	// Topic is the embedded topic descriptor supplied by the caller.
	Topic *topic.Descriptor `json:"topic,omitempty"`
}

// EncodeMetadata serializes metadata for embedding into a Record.
func EncodeMetadata(m Metadata) ([]byte, error) {
	if m.Schema == 0 {
		m.Schema = MetadataSchema
	}
	data, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("atom: marshal metadata: %w", err)
	}
	return data, nil
}

// DecodeMetadata parses the metadata block of a Record.
func DecodeMetadata(data []byte) (Metadata, error) {
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{}, fmt.Errorf("atom: unmarshal metadata: %w", err)
	}
	return m, nil
}
