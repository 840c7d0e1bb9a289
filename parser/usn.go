package parser

import (
	"encoding/binary"
	"fmt"
	"time"
	"unicode/utf16"
)

// Parse USN records
// https://docs.microsoft.com/en-us/windows/win32/api/winioctl/ns-winioctl-usn_record_v2

const (
	// Size of the fixed USN_RECORD_V2 header. The file name starts
	// right after it, so no valid record can be shorter.
	USN_RECORD_V2_SIZE = 60

	usnRecordLengthOffset        = 0
	usnMajorVersionOffset        = 4
	usnMinorVersionOffset        = 6
	usnFileReferenceOffset       = 8
	usnParentFileReferenceOffset = 16
	usnUsnOffset                 = 24
	usnTimeStampOffset           = 32
	usnReasonOffset              = 40
	usnSourceInfoOffset          = 44
	usnSecurityIdOffset          = 48
	usnFileAttributesOffset      = 52
	usnFileNameLengthOffset      = 56
	usnFileNameOffsetOffset      = 58
	usnSupportedMaxMajorVersion  = 2
	usnRecordAlignment           = 8
)

// A ChangeRecord is a decoded USN_RECORD_V2. Records are immutable
// once decoded.
type ChangeRecord struct {
	RecordLength              uint32 `json:"-"`
	MajorVersion              uint16 `json:"-"`
	MinorVersion              uint16 `json:"-"`
	FileReferenceNumber       uint64
	ParentFileReferenceNumber uint64
	Usn                       int64
	TimeStamp                 int64
	Reason                    uint32
	SourceInfo                uint32
	SecurityId                uint32
	FileAttributes            uint32
	Name                      string
}

func (self *ChangeRecord) IsFolder() bool {
	return self.FileAttributes&FILE_ATTRIBUTE_DIRECTORY != 0
}

func (self *ChangeRecord) IsFile() bool {
	return !self.IsFolder()
}

func (self *ChangeRecord) HasReason(mask uint32) bool {
	return self.Reason&mask != 0
}

// OldName is only set on the first half of a rename pair.
func (self *ChangeRecord) OldName() string {
	if self.HasReason(USN_REASON_RENAME_OLD_NAME) {
		return self.Name
	}
	return ""
}

func (self *ChangeRecord) Time() time.Time {
	return FileTimeToTime(uint64(self.TimeStamp))
}

func (self *ChangeRecord) Reasons() Flags {
	return ReasonFlags(self.Reason)
}

func (self *ChangeRecord) Attributes() Flags {
	return AttributeFlags(self.FileAttributes)
}

func (self *ChangeRecord) DebugString() string {
	result := fmt.Sprintf("[USN_RECORD_V2] @ %#x\n", self.Usn)
	result += fmt.Sprintf("  RecordLength: %d\n", self.RecordLength)
	result += fmt.Sprintf("  Version: %d.%d\n", self.MajorVersion, self.MinorVersion)
	result += fmt.Sprintf("  FileReferenceNumber: %#x\n", self.FileReferenceNumber)
	result += fmt.Sprintf("  ParentFileReferenceNumber: %#x\n",
		self.ParentFileReferenceNumber)
	result += fmt.Sprintf("  TimeStamp: %v\n", self.Time())
	result += fmt.Sprintf("  Reason: %s\n", self.Reasons().DebugString())
	result += fmt.Sprintf("  FileAttributes: %s\n", self.Attributes().DebugString())
	result += fmt.Sprintf("  Filename: %v\n", self.Name)
	return result
}

func corruptRecord(offset int, format string, args ...interface{}) error {
	return newError(KindCorruptRecord, "decode",
		"record at offset %d: "+format, append([]interface{}{offset}, args...)...)
}

// DecodeRecord decodes the record starting at offset. The returned
// length is the record's declared RecordLength: callers advance by
// exactly that amount since the driver may pad records.
func DecodeRecord(buf *Buffer, offset int) (*ChangeRecord, int, error) {
	if offset < 0 || buf.Len()-offset < USN_RECORD_V2_SIZE {
		return nil, 0, corruptRecord(offset,
			"only %d bytes left, need %d", buf.Len()-offset, USN_RECORD_V2_SIZE)
	}

	length, err := buf.Uint32At(offset + usnRecordLengthOffset)
	if err != nil {
		return nil, 0, corruptRecord(offset, "%v", err)
	}

	if length < USN_RECORD_V2_SIZE {
		return nil, 0, corruptRecord(offset, "declared length %d is shorter "+
			"than the header", length)
	}

	if int64(length) > int64(buf.Len()-offset) {
		return nil, 0, corruptRecord(offset, "declared length %d exceeds the "+
			"%d bytes returned", length, buf.Len()-offset)
	}

	// From here on only look inside the record itself.
	record := NewBuffer(buf.Bytes()[offset : offset+int(length)])

	// Field reads below can not fail: the header is fully inside the
	// record.
	result := &ChangeRecord{RecordLength: length}
	result.MajorVersion, _ = record.Uint16At(usnMajorVersionOffset)
	result.MinorVersion, _ = record.Uint16At(usnMinorVersionOffset)

	if result.MajorVersion > usnSupportedMaxMajorVersion {
		return nil, 0, corruptRecord(offset, "unsupported record version %d",
			result.MajorVersion)
	}

	result.FileReferenceNumber, _ = record.Uint64At(usnFileReferenceOffset)
	result.ParentFileReferenceNumber, _ = record.Uint64At(usnParentFileReferenceOffset)
	result.Usn, _ = record.Int64At(usnUsnOffset)
	result.TimeStamp, _ = record.Int64At(usnTimeStampOffset)
	result.Reason, _ = record.Uint32At(usnReasonOffset)
	result.SourceInfo, _ = record.Uint32At(usnSourceInfoOffset)
	result.SecurityId, _ = record.Uint32At(usnSecurityIdOffset)
	result.FileAttributes, _ = record.Uint32At(usnFileAttributesOffset)

	name_length, _ := record.Uint16At(usnFileNameLengthOffset)
	name_offset, _ := record.Uint16At(usnFileNameOffsetOffset)

	// The name length is in bytes.
	if name_length%2 != 0 {
		return nil, 0, corruptRecord(offset, "odd name length %d", name_length)
	}

	result.Name, err = record.UTF16At(int(name_offset), int(name_length)/2)
	if err != nil {
		return nil, 0, corruptRecord(offset, "name (%d bytes at %d): %v",
			name_length, name_offset, err)
	}

	STATS.Inc_RecordsDecoded()

	return result, int(length), nil
}

func alignRecord(length int) int {
	return (length + usnRecordAlignment - 1) &^ (usnRecordAlignment - 1)
}

// EncodeRecord serializes a record in the layout the driver uses. The
// record is padded to 8 bytes, or to RecordLength if that is larger.
func EncodeRecord(record *ChangeRecord) []byte {
	name := utf16.Encode([]rune(record.Name))
	length := alignRecord(USN_RECORD_V2_SIZE + 2*len(name))
	if int(record.RecordLength) > length {
		length = int(record.RecordLength)
	}

	major := record.MajorVersion
	if major == 0 {
		major = 2
	}

	result := make([]byte, length)
	order := binary.LittleEndian
	order.PutUint32(result[usnRecordLengthOffset:], uint32(length))
	order.PutUint16(result[usnMajorVersionOffset:], major)
	order.PutUint16(result[usnMinorVersionOffset:], record.MinorVersion)
	order.PutUint64(result[usnFileReferenceOffset:], record.FileReferenceNumber)
	order.PutUint64(result[usnParentFileReferenceOffset:],
		record.ParentFileReferenceNumber)
	order.PutUint64(result[usnUsnOffset:], uint64(record.Usn))
	order.PutUint64(result[usnTimeStampOffset:], uint64(record.TimeStamp))
	order.PutUint32(result[usnReasonOffset:], record.Reason)
	order.PutUint32(result[usnSourceInfoOffset:], record.SourceInfo)
	order.PutUint32(result[usnSecurityIdOffset:], record.SecurityId)
	order.PutUint32(result[usnFileAttributesOffset:], record.FileAttributes)
	order.PutUint16(result[usnFileNameLengthOffset:], uint16(2*len(name)))
	order.PutUint16(result[usnFileNameOffsetOffset:], USN_RECORD_V2_SIZE)

	for i, c := range name {
		order.PutUint16(result[USN_RECORD_V2_SIZE+2*i:], c)
	}

	return result
}

// walkRecords decodes the back to back records in data[start:]. The
// callback returns false to stop the walk early. A trailing fragment
// shorter than the fixed header is ignored.
func walkRecords(data []byte, start int, cb func(record *ChangeRecord) bool) error {
	buf := NewBuffer(data)
	for offset := start; buf.Len()-offset >= USN_RECORD_V2_SIZE; {
		record, consumed, err := DecodeRecord(buf, offset)
		if err != nil {
			return err
		}

		if !cb(record) {
			return nil
		}
		offset += consumed
	}
	return nil
}
