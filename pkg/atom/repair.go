package atom

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"os"

	"github.com/google/uuid"
)

// IssueCode classifies a single defect found in atom binary data.
type IssueCode string

const (
	IssueTooSmall        IssueCode = "too_small"
	IssueBadMagic        IssueCode = "bad_magic"
	IssueBadVersion      IssueCode = "bad_version"
	IssueReservedNonzero IssueCode = "reserved_nonzero"
	IssueSizeMismatch    IssueCode = "size_mismatch"
	IssueCRCMismatch     IssueCode = "crc_mismatch"
)

// Issue is one defect reported by Diagnose.
type Issue struct {
	Code   IssueCode
	Detail string
}

func (i Issue) String() string {
	return fmt.Sprintf("%s: %s", i.Code, i.Detail)
}

// RepairReport describes the outcome of a repair attempt. Success means the
// result is decodable, not that it is lossless; partial data loss is
// surfaced through Warnings.
type RepairReport struct {
	Success      bool
	OriginalSize int
	RepairedSize int
	IssuesFound  []Issue
	FixesApplied []string
	Warnings     []string
	Recovered    *Record
}

// Diagnose non-destructively reports every defect found in the data.
func Diagnose(data []byte) []Issue {
	var issues []Issue

	if len(data) < HeaderSize+FooterSize {
		issues = append(issues, Issue{
			Code:   IssueTooSmall,
			Detail: fmt.Sprintf("%d bytes (minimum %d)", len(data), HeaderSize+FooterSize),
		})
		return issues
	}

	if !bytes.Equal(data[0:4], Magic) {
		issues = append(issues, Issue{
			Code:   IssueBadMagic,
			Detail: fmt.Sprintf("%q (expected %q)", data[0:4], Magic),
		})
	}

	version := data[4]
	if version != Version {
		issues = append(issues, Issue{
			Code:   IssueBadVersion,
			Detail: fmt.Sprintf("%d (current %d)", version, Version),
		})
	}

	if reserved := binary.BigEndian.Uint16(data[6:8]); reserved != 0 {
		issues = append(issues, Issue{
			Code:   IssueReservedNonzero,
			Detail: fmt.Sprintf("%d", reserved),
		})
	}

	payloadLen := binary.BigEndian.Uint32(data[16:20])
	metadataLen := binary.BigEndian.Uint32(data[20:24])
	sourceLen := binary.BigEndian.Uint32(data[24:28])
	expected := HeaderSize + int(payloadLen) + int(metadataLen) + int(sourceLen) + FooterSize

	if len(data) != expected {
		issues = append(issues, Issue{
			Code:   IssueSizeMismatch,
			Detail: fmt.Sprintf("%d != %d", len(data), expected),
		})
	}

	if len(data) >= expected {
		crcOffset := expected - FooterSize
		stored := binary.BigEndian.Uint32(data[crcOffset : crcOffset+FooterSize])
		computed := crc32.ChecksumIEEE(data[:crcOffset])
		if stored != computed {
			issues = append(issues, Issue{
				Code:   IssueCRCMismatch,
				Detail: fmt.Sprintf("%08x != %08x", stored, computed),
			})
		}
	}

	return issues
}

// Repair attempts to recover corrupted atom binary data. Fixes are applied
// in order: magic restoration, reserved-field reset, size reconciliation
// (partial recovery or trailing-garbage truncation), CRC32 rewrite.
//
// In aggressive mode, truncated bodies are partially recovered and, when the
// header itself is unusable, the whole buffer is scanned for magic-byte
// candidates (see aggressiveRepair).
func Repair(data []byte, aggressive bool) RepairReport {
	originalSize := len(data)
	issues := Diagnose(data)

	if len(issues) == 0 {
		rec, err := Decode(data)
		if err == nil {
			return RepairReport{
				Success:      true,
				OriginalSize: originalSize,
				RepairedSize: originalSize,
				Recovered:    &rec,
			}
		}
		issues = append(issues, Issue{Code: IssueCRCMismatch, Detail: fmt.Sprintf("unexpected decode error: %v", err)})
	}

	var fixes, warnings []string
	repaired := append([]byte(nil), data...)

	magicRestored := false
	if len(repaired) >= 4 && !bytes.Equal(repaired[0:4], Magic) {
		copy(repaired[0:4], Magic)
		fixes = append(fixes, "restored magic bytes")
		magicRestored = true
	}

	h, err := parseHeader(repaired)
	if err != nil {
		if aggressive {
			return aggressiveRepair(data, issues, fixes, warnings)
		}
		return RepairReport{
			Success:      false,
			OriginalSize: originalSize,
			RepairedSize: len(repaired),
			IssuesFound:  issues,
			FixesApplied: fixes,
			Warnings:     append(warnings, "header too corrupted, retry with aggressive mode"),
		}
	}

	if h.Reserved != 0 {
		binary.BigEndian.PutUint16(repaired[6:8], 0)
		fixes = append(fixes, "reset reserved field to zero")
		h.Reserved = 0
	}

	expected := h.totalSize()

	switch {
	case len(repaired) < expected:
		if !aggressive {
			warnings = append(warnings, fmt.Sprintf("truncated: %d < %d bytes, retry with aggressive mode", len(repaired), expected))
			return RepairReport{
				Success:      false,
				OriginalSize: originalSize,
				RepairedSize: len(repaired),
				IssuesFound:  issues,
				FixesApplied: fixes,
				Warnings:     warnings,
			}
		}
		fixes = append(fixes, "truncated input, attempting partial recovery")
		if magicRestored {
			// Header fields were read from a buffer whose start had to be
			// rewritten; the recovered sections may not be the real body.
			warnings = append(warnings, "partial recovery follows a magic restore, recovered sections may be unreliable")
		}
		return recoverTruncated(repaired, h, originalSize, issues, fixes, warnings)

	case len(repaired) > expected:
		fixes = append(fixes, fmt.Sprintf("dropped %d trailing garbage bytes", len(repaired)-expected))
		repaired = repaired[:expected]
	}

	crcOffset := expected - FooterSize
	crc := crc32.ChecksumIEEE(repaired[:crcOffset])
	binary.BigEndian.PutUint32(repaired[crcOffset:], crc)
	fixes = append(fixes, fmt.Sprintf("recalculated crc32: %08x", crc))

	rec, err := Decode(repaired)
	if err != nil {
		return RepairReport{
			Success:      false,
			OriginalSize: originalSize,
			RepairedSize: len(repaired),
			IssuesFound:  issues,
			FixesApplied: fixes,
			Warnings:     append(warnings, fmt.Sprintf("repair failed: %v", err)),
		}
	}

	if len(rec.Payload) == 0 && len(rec.Metadata) == 0 {
		warnings = append(warnings, "recovered data appears empty")
	}

	return RepairReport{
		Success:      true,
		OriginalSize: originalSize,
		RepairedSize: len(repaired),
		IssuesFound:  issues,
		FixesApplied: fixes,
		Warnings:     warnings,
		Recovered:    &rec,
	}
}

// recoverTruncated salvages what the available bytes allow from a truncated
// body, in payload, metadata, source priority order.
func recoverTruncated(data []byte, h header, originalSize int, issues []Issue, fixes, warnings []string) RepairReport {
	available := len(data) - HeaderSize
	if available < 0 {
		available = 0
	}

	payloadSize := min(int(h.PayloadLen), available)
	remaining := available - payloadSize
	metadataSize := min(int(h.MetadataLen), remaining)
	remaining -= metadataSize
	sourceSize := min(int(h.SourceLen), remaining)

	offset := HeaderSize
	payload := append([]byte(nil), data[offset:offset+payloadSize]...)
	offset += payloadSize
	metadata := append([]byte(nil), data[offset:offset+metadataSize]...)
	offset += metadataSize
	source := append([]byte(nil), data[offset:offset+sourceSize]...)

	warnings = append(warnings, fmt.Sprintf("recovered %d/%d bytes of payload", payloadSize, h.PayloadLen))
	if metadataSize < int(h.MetadataLen) {
		warnings = append(warnings, fmt.Sprintf("lost %d bytes of metadata", int(h.MetadataLen)-metadataSize))
	}
	if sourceSize < int(h.SourceLen) {
		warnings = append(warnings, fmt.Sprintf("lost %d bytes of source", int(h.SourceLen)-sourceSize))
	}
	fixes = append(fixes, "partial recovery from truncated input")

	rec := Record{
		Payload:     payload,
		Metadata:    metadata,
		Source:      source,
		Flags:       h.Flags,
		CreatedTSMs: h.CreatedTSMs,
	}

	return RepairReport{
		Success:      true,
		OriginalSize: originalSize,
		RepairedSize: len(data),
		IssuesFound:  issues,
		FixesApplied: fixes,
		Warnings:     warnings,
		Recovered:    &rec,
	}
}

// aggressiveRepair scans the whole buffer for every occurrence of the magic
// sequence and attempts a non-aggressive repair at each candidate offset,
// returning the first successful recovery. This handles files with leading
// garbage or a wrong start offset.
func aggressiveRepair(data []byte, issues []Issue, fixes, warnings []string) RepairReport {
	var candidates []int
	for i := 0; i+len(Magic) <= len(data); i++ {
		if bytes.Equal(data[i:i+len(Magic)], Magic) {
			candidates = append(candidates, i)
		}
	}

	if len(candidates) == 0 {
		return RepairReport{
			Success:      false,
			OriginalSize: len(data),
			IssuesFound:  issues,
			FixesApplied: fixes,
			Warnings:     append(warnings, "no magic bytes found anywhere in input"),
		}
	}

	fixes = append(fixes, fmt.Sprintf("found %d candidate offset(s)", len(candidates)))

	for _, pos := range candidates {
		if pos+HeaderSize > len(data) {
			continue
		}
		report := Repair(data[pos:], false)
		if report.Success {
			report.FixesApplied = append(append(fixes, fmt.Sprintf("recovered from offset %d", pos)), report.FixesApplied...)
			report.IssuesFound = issues
			report.OriginalSize = len(data)
			return report
		}
	}

	return RepairReport{
		Success:      false,
		OriginalSize: len(data),
		IssuesFound:  issues,
		FixesApplied: fixes,
		Warnings:     append(warnings, "no candidate offset yielded a valid structure"),
	}
}

// QuickCheck is a cheap validity probe: true only when the file at path
// decodes cleanly. Used by tiers before every read.
func QuickCheck(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	_, err = Decode(data)
	return err == nil
}

// RepairFile repairs the atom file at inputPath. When outputPath is
// non-empty and the repair succeeds, the recovered record is re-encoded
// there. Intended for offline maintenance tooling.
func RepairFile(inputPath, outputPath string, aggressive bool) (RepairReport, error) {
	data, err := os.ReadFile(inputPath)
	if err != nil {
		return RepairReport{}, fmt.Errorf("atom: read %s: %w", inputPath, err)
	}

	report := Repair(data, aggressive)
	if report.Success && outputPath != "" {
		if err := os.WriteFile(outputPath, Encode(*report.Recovered), 0o644); err != nil {
			return report, fmt.Errorf("atom: write repaired file %s: %w", outputPath, err)
		}
	}
	return report, nil
}

// AutoRepair repairs the file at path in place using aggressive mode.
// The repaired replacement is written to a uniquely named sibling, validated,
// and only then renamed over the original; on any failure the sibling is
// removed and the original is left untouched. A .bak copy is written first
// when backup is true.
func AutoRepair(path string, backup bool) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}

	if backup {
		if err := os.WriteFile(path+".bak", data, 0o644); err != nil {
			return false
		}
	}

	report := Repair(data, true)
	if !report.Success {
		return false
	}

	sibling := fmt.Sprintf("%s.repaired-%s", path, uuid.NewString())
	if err := os.WriteFile(sibling, Encode(*report.Recovered), 0o644); err != nil {
		os.Remove(sibling)
		return false
	}
	if !QuickCheck(sibling) {
		os.Remove(sibling)
		return false
	}
	if err := os.Rename(sibling, path); err != nil {
		os.Remove(sibling)
		return false
	}
	return true
}
