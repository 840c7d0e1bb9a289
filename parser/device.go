package parser

import (
	"encoding/binary"
)

// Control codes
// (FILE_DEVICE_FILE_SYSTEM << 16) | (FILE_ANY_ACCESS << 14) | (function << 2) | method
const (
	FSCTL_ENUM_USN_DATA     = 0x000900b3
	FSCTL_READ_USN_JOURNAL  = 0x000900bb
	FSCTL_QUERY_USN_JOURNAL = 0x000900f4
)

// A Device issues control requests against an open volume. The
// windows implementation talks to the filesystem driver; tests and
// the recorder provide their own.
//
// Implementations must be safe for concurrent calls as long as each
// call uses its own buffers.
type Device interface {
	// DeviceIoControl sends the control code with the in buffer and
	// fills out. It returns the number of bytes written to out. A
	// failure carries the native error code (syscall.Errno).
	DeviceIoControl(code uint32, in []byte, out []byte) (int, error)

	// OpenFileReference opens a file by its file reference number
	// relative to the volume.
	OpenFileReference(frn uint64) (FileObject, error)

	VolumeName() string
	SerialNumber() uint32
	Close() error
}

// A FileObject is a transient handle opened by file reference.
type FileObject interface {
	// Name returns the root relative path of the object,
	// e.g. \Windows\System32
	Name() (string, error)
	Close() error
}

// sizeof(MFT_ENUM_DATA_V0)
const MFT_ENUM_DATA_SIZE = 24

type MFT_ENUM_DATA struct {
	StartFileReferenceNumber uint64
	LowUsn                   int64
	HighUsn                  int64
}

func (self *MFT_ENUM_DATA) Encode() []byte {
	result := make([]byte, MFT_ENUM_DATA_SIZE)
	order := binary.LittleEndian
	order.PutUint64(result[0:], self.StartFileReferenceNumber)
	order.PutUint64(result[8:], uint64(self.LowUsn))
	order.PutUint64(result[16:], uint64(self.HighUsn))
	return result
}

func DecodeMFT_ENUM_DATA(buf *Buffer) (*MFT_ENUM_DATA, error) {
	if buf.Len() < MFT_ENUM_DATA_SIZE {
		return nil, ErrOutOfRange
	}
	result := &MFT_ENUM_DATA{}
	result.StartFileReferenceNumber, _ = buf.Uint64At(0)
	result.LowUsn, _ = buf.Int64At(8)
	result.HighUsn, _ = buf.Int64At(16)
	return result, nil
}

// sizeof(READ_USN_JOURNAL_DATA_V0)
const READ_USN_JOURNAL_DATA_SIZE = 40

type READ_USN_JOURNAL_DATA struct {
	StartUsn          int64
	ReasonMask        uint32
	ReturnOnlyOnClose uint32
	Timeout           uint64
	BytesToWaitFor    uint64
	UsnJournalID      uint64
}

func (self *READ_USN_JOURNAL_DATA) Encode() []byte {
	result := make([]byte, READ_USN_JOURNAL_DATA_SIZE)
	order := binary.LittleEndian
	order.PutUint64(result[0:], uint64(self.StartUsn))
	order.PutUint32(result[8:], self.ReasonMask)
	order.PutUint32(result[12:], self.ReturnOnlyOnClose)
	order.PutUint64(result[16:], self.Timeout)
	order.PutUint64(result[24:], self.BytesToWaitFor)
	order.PutUint64(result[32:], self.UsnJournalID)
	return result
}

func DecodeREAD_USN_JOURNAL_DATA(buf *Buffer) (*READ_USN_JOURNAL_DATA, error) {
	if buf.Len() < READ_USN_JOURNAL_DATA_SIZE {
		return nil, ErrOutOfRange
	}
	result := &READ_USN_JOURNAL_DATA{}
	result.StartUsn, _ = buf.Int64At(0)
	result.ReasonMask, _ = buf.Uint32At(8)
	result.ReturnOnlyOnClose, _ = buf.Uint32At(12)
	result.Timeout, _ = buf.Uint64At(16)
	result.BytesToWaitFor, _ = buf.Uint64At(24)
	result.UsnJournalID, _ = buf.Uint64At(32)
	return result, nil
}
