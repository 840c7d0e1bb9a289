package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
)

// This file defines a model for a journal record suitable for
// serialization.

type RecordSummary struct {
	Usn            int64
	Timestamp      time.Time
	MFTID          uint64
	Sequence       uint16
	ParentMFTID    uint64
	ParentSequence uint16
	Name           string
	FullPath       string `json:",omitempty"`
	IsDir          bool
	Reason         []string
	Attributes     []string
	SourceInfo     uint32 `json:",omitempty"`
	SecurityId     uint32 `json:",omitempty"`
}

// The low 48 bits of a file reference are the MFT entry, the high 16
// bits its sequence number.
func SplitFileReference(frn uint64) (uint64, uint16) {
	return frn & 0xffffffffffff, uint16(frn >> 48)
}

func FileReferenceString(frn uint64) string {
	id, seq := SplitFileReference(frn)
	return fmt.Sprintf("%d-%d", id, seq)
}

// ParseFileReference accepts either a raw reference number (decimal
// or 0x hex) or the "<mft id>-<sequence>" form produced by
// FileReferenceString.
func ParseFileReference(value string) (uint64, error) {
	parts := strings.SplitN(strings.TrimSpace(value), "-", 2)
	if len(parts) == 1 {
		result, err := strconv.ParseUint(parts[0], 0, 64)
		return result, errors.Wrapf(err, "file reference %q", value)
	}

	id, err := strconv.ParseUint(parts[0], 0, 48)
	if err != nil {
		return 0, errors.Wrapf(err, "file reference %q", value)
	}
	seq, err := strconv.ParseUint(parts[1], 0, 16)
	if err != nil {
		return 0, errors.Wrapf(err, "file reference %q", value)
	}
	return seq<<48 | id, nil
}

// ModelChangeRecord summarizes record. With resolve set the parent is
// resolved through journal; failure to resolve leaves FullPath empty.
func ModelChangeRecord(journal *Journal, record *ChangeRecord,
	resolve bool) *RecordSummary {
	mft_id, seq := SplitFileReference(record.FileReferenceNumber)
	parent_id, parent_seq := SplitFileReference(record.ParentFileReferenceNumber)

	result := &RecordSummary{
		Usn:            record.Usn,
		Timestamp:      record.Time(),
		MFTID:          mft_id,
		Sequence:       seq,
		ParentMFTID:    parent_id,
		ParentSequence: parent_seq,
		Name:           record.Name,
		IsDir:          record.IsFolder(),
		Reason:         record.Reasons().Values(),
		Attributes:     record.Attributes().Values(),
		SourceInfo:     record.SourceInfo,
		SecurityId:     record.SecurityId,
	}

	if resolve && journal != nil {
		full_path, err := journal.FullPath(record)
		if err == nil {
			result.FullPath = full_path
		}
	}

	return result
}
