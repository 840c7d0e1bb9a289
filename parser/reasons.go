package parser

import (
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Reason flags
// https://learn.microsoft.com/en-us/windows/win32/api/winioctl/ns-winioctl-usn_record_v2
const (
	USN_REASON_DATA_OVERWRITE        = 0x00000001
	USN_REASON_DATA_EXTEND           = 0x00000002
	USN_REASON_DATA_TRUNCATION       = 0x00000004
	USN_REASON_NAMED_DATA_OVERWRITE  = 0x00000010
	USN_REASON_NAMED_DATA_EXTEND     = 0x00000020
	USN_REASON_NAMED_DATA_TRUNCATION = 0x00000040
	USN_REASON_FILE_CREATE           = 0x00000100
	USN_REASON_FILE_DELETE           = 0x00000200
	USN_REASON_EA_CHANGE             = 0x00000400
	USN_REASON_SECURITY_CHANGE       = 0x00000800
	USN_REASON_RENAME_OLD_NAME       = 0x00001000
	USN_REASON_RENAME_NEW_NAME       = 0x00002000
	USN_REASON_INDEXABLE_CHANGE      = 0x00004000
	USN_REASON_BASIC_INFO_CHANGE     = 0x00008000
	USN_REASON_HARD_LINK_CHANGE      = 0x00010000
	USN_REASON_COMPRESSION_CHANGE    = 0x00020000
	USN_REASON_ENCRYPTION_CHANGE     = 0x00040000
	USN_REASON_OBJECT_ID_CHANGE      = 0x00080000
	USN_REASON_REPARSE_POINT_CHANGE  = 0x00100000
	USN_REASON_STREAM_CHANGE         = 0x00200000
	USN_REASON_CLOSE                 = 0x80000000

	USN_REASON_ANY = 0xFFFFFFFF
)

// File attribute flags carried in the record.
const (
	FILE_ATTRIBUTE_READONLY            = 0x00000001
	FILE_ATTRIBUTE_HIDDEN              = 0x00000002
	FILE_ATTRIBUTE_SYSTEM              = 0x00000004
	FILE_ATTRIBUTE_DIRECTORY           = 0x00000010
	FILE_ATTRIBUTE_ARCHIVE             = 0x00000020
	FILE_ATTRIBUTE_DEVICE              = 0x00000040
	FILE_ATTRIBUTE_NORMAL              = 0x00000080
	FILE_ATTRIBUTE_TEMPORARY           = 0x00000100
	FILE_ATTRIBUTE_SPARSE_FILE         = 0x00000200
	FILE_ATTRIBUTE_REPARSE_POINT       = 0x00000400
	FILE_ATTRIBUTE_COMPRESSED          = 0x00000800
	FILE_ATTRIBUTE_OFFLINE             = 0x00001000
	FILE_ATTRIBUTE_NOT_CONTENT_INDEXED = 0x00002000
	FILE_ATTRIBUTE_ENCRYPTED           = 0x00004000
)

var (
	reasonNames = map[uint32]string{
		USN_REASON_DATA_OVERWRITE:        "DATA_OVERWRITE",
		USN_REASON_DATA_EXTEND:           "DATA_EXTEND",
		USN_REASON_DATA_TRUNCATION:       "DATA_TRUNCATION",
		USN_REASON_NAMED_DATA_OVERWRITE:  "NAMED_DATA_OVERWRITE",
		USN_REASON_NAMED_DATA_EXTEND:     "NAMED_DATA_EXTEND",
		USN_REASON_NAMED_DATA_TRUNCATION: "NAMED_DATA_TRUNCATION",
		USN_REASON_FILE_CREATE:           "FILE_CREATE",
		USN_REASON_FILE_DELETE:           "FILE_DELETE",
		USN_REASON_EA_CHANGE:             "EA_CHANGE",
		USN_REASON_SECURITY_CHANGE:       "SECURITY_CHANGE",
		USN_REASON_RENAME_OLD_NAME:       "RENAME_OLD_NAME",
		USN_REASON_RENAME_NEW_NAME:       "RENAME_NEW_NAME",
		USN_REASON_INDEXABLE_CHANGE:      "INDEXABLE_CHANGE",
		USN_REASON_BASIC_INFO_CHANGE:     "BASIC_INFO_CHANGE",
		USN_REASON_HARD_LINK_CHANGE:      "HARD_LINK_CHANGE",
		USN_REASON_COMPRESSION_CHANGE:    "COMPRESSION_CHANGE",
		USN_REASON_ENCRYPTION_CHANGE:     "ENCRYPTION_CHANGE",
		USN_REASON_OBJECT_ID_CHANGE:      "OBJECT_ID_CHANGE",
		USN_REASON_REPARSE_POINT_CHANGE:  "REPARSE_POINT_CHANGE",
		USN_REASON_STREAM_CHANGE:         "STREAM_CHANGE",
		USN_REASON_CLOSE:                 "CLOSE",
	}

	attributeNames = map[uint32]string{
		FILE_ATTRIBUTE_READONLY:            "READONLY",
		FILE_ATTRIBUTE_HIDDEN:              "HIDDEN",
		FILE_ATTRIBUTE_SYSTEM:              "SYSTEM",
		FILE_ATTRIBUTE_DIRECTORY:           "DIRECTORY",
		FILE_ATTRIBUTE_ARCHIVE:             "ARCHIVE",
		FILE_ATTRIBUTE_DEVICE:              "DEVICE",
		FILE_ATTRIBUTE_NORMAL:              "NORMAL",
		FILE_ATTRIBUTE_TEMPORARY:           "TEMPORARY",
		FILE_ATTRIBUTE_SPARSE_FILE:         "SPARSE_FILE",
		FILE_ATTRIBUTE_REPARSE_POINT:       "REPARSE_POINT",
		FILE_ATTRIBUTE_COMPRESSED:          "COMPRESSED",
		FILE_ATTRIBUTE_OFFLINE:             "OFFLINE",
		FILE_ATTRIBUTE_NOT_CONTENT_INDEXED: "NOT_CONTENT_INDEXED",
		FILE_ATTRIBUTE_ENCRYPTED:           "ENCRYPTED",
	}
)

// A bitmask with named bits.
type Flags struct {
	Value uint32
	names map[uint32]string
}

func (self Flags) IsSet(name string) bool {
	for bit, bit_name := range self.names {
		if bit_name == name {
			return self.Value&bit != 0
		}
	}
	return false
}

// Values returns the names of all set bits in ascending bit order.
func (self Flags) Values() []string {
	bits := make([]uint32, 0, len(self.names))
	for bit := range self.names {
		if self.Value&bit != 0 {
			bits = append(bits, bit)
		}
	}
	sort.Slice(bits, func(i, j int) bool { return bits[i] < bits[j] })

	result := make([]string, 0, len(bits))
	for _, bit := range bits {
		result = append(result, self.names[bit])
	}
	return result
}

func (self Flags) DebugString() string {
	return fmt.Sprintf("%#08x (%s)", self.Value, strings.Join(self.Values(), ", "))
}

func ReasonFlags(value uint32) Flags {
	return Flags{Value: value, names: reasonNames}
}

func AttributeFlags(value uint32) Flags {
	return Flags{Value: value, names: attributeNames}
}

// ParseReasonMask converts reason names (with or without the
// USN_REASON_ prefix, case insensitive) into a mask. An empty list or
// "ANY" selects every reason.
func ParseReasonMask(names []string) (uint32, error) {
	if len(names) == 0 {
		return USN_REASON_ANY, nil
	}

	var result uint32
	for _, name := range names {
		name = strings.TrimPrefix(strings.ToUpper(strings.TrimSpace(name)),
			"USN_REASON_")
		if name == "ANY" || name == "*" {
			return USN_REASON_ANY, nil
		}

		found := false
		for bit, bit_name := range reasonNames {
			if bit_name == name {
				result |= bit
				found = true
				break
			}
		}
		if !found {
			return 0, errors.Errorf("unknown reason %q", name)
		}
	}
	return result, nil
}
