package parser

import (
	"fmt"
	"syscall"

	"github.com/pkg/errors"
)

// Win32 error codes returned by the change journal control requests.
const (
	ERROR_SUCCESS                    = 0
	ERROR_INVALID_FUNCTION           = 1
	ERROR_ACCESS_DENIED              = 5
	ERROR_INVALID_HANDLE             = 6
	ERROR_HANDLE_EOF                 = 38
	ERROR_NOT_SUPPORTED              = 50
	ERROR_INVALID_PARAMETER          = 87
	ERROR_INSUFFICIENT_BUFFER        = 122
	ERROR_JOURNAL_DELETE_IN_PROGRESS = 1178
	ERROR_JOURNAL_NOT_ACTIVE         = 1179
	ERROR_JOURNAL_ENTRY_DELETED      = 1181
	ERROR_INVALID_USER_BUFFER        = 1784
)

type ErrorKind int

const (
	KindSuccess ErrorKind = iota
	KindHandleEof
	KindNotNtfsVolume
	KindInvalidHandle
	KindJournalNotActive
	KindJournalInvalid
	KindInvalidFileReferenceNumber
	KindCorruptRecord
	KindJournalError
)

func (self ErrorKind) String() string {
	switch self {
	case KindSuccess:
		return "Success"
	case KindHandleEof:
		return "HandleEof"
	case KindNotNtfsVolume:
		return "NotNtfsVolume"
	case KindInvalidHandle:
		return "InvalidHandle"
	case KindJournalNotActive:
		return "JournalNotActive"
	case KindJournalInvalid:
		return "JournalInvalid"
	case KindInvalidFileReferenceNumber:
		return "InvalidFileReferenceNumber"
	case KindCorruptRecord:
		return "CorruptRecord"
	case KindJournalError:
		return "JournalError"
	}
	return fmt.Sprintf("ErrorKind(%d)", int(self))
}

// JournalError is the only error type surfaced by the engine. Code
// holds the native error code when the failure came from a control
// request.
type JournalError struct {
	Kind ErrorKind
	Code uint32
	Op   string
	Err  error
}

func (self *JournalError) Error() string {
	result := self.Kind.String()
	if self.Op != "" {
		result = self.Op + ": " + result
	}
	if self.Code != 0 {
		result += fmt.Sprintf(" (code %d)", self.Code)
	}
	if self.Err != nil {
		result += ": " + self.Err.Error()
	}
	return result
}

func (self *JournalError) Unwrap() error {
	return self.Err
}

// Is matches any JournalError of the same kind so callers can test
// against the exported sentinels.
func (self *JournalError) Is(target error) bool {
	other, ok := target.(*JournalError)
	if !ok {
		return false
	}
	return other.Kind == self.Kind
}

var (
	ErrNotNtfsVolume              = &JournalError{Kind: KindNotNtfsVolume}
	ErrInvalidHandle              = &JournalError{Kind: KindInvalidHandle}
	ErrJournalNotActive           = &JournalError{Kind: KindJournalNotActive}
	ErrJournalInvalid             = &JournalError{Kind: KindJournalInvalid}
	ErrInvalidFileReferenceNumber = &JournalError{Kind: KindInvalidFileReferenceNumber}
	ErrCorruptRecord              = &JournalError{Kind: KindCorruptRecord}
	ErrJournalError               = &JournalError{Kind: KindJournalError}
)

func newError(kind ErrorKind, op string, format string, args ...interface{}) *JournalError {
	return &JournalError{
		Kind: kind,
		Op:   op,
		Err:  errors.Errorf(format, args...),
	}
}

// MapNativeError converts a native error code into the domain
// taxonomy. ERROR_HANDLE_EOF maps to KindHandleEof here; only the read
// loops reinterpret it as success.
func MapNativeError(code uint32) ErrorKind {
	switch code {
	case ERROR_SUCCESS:
		return KindSuccess
	case ERROR_HANDLE_EOF:
		return KindHandleEof
	case ERROR_JOURNAL_NOT_ACTIVE, ERROR_JOURNAL_DELETE_IN_PROGRESS:
		return KindJournalNotActive
	case ERROR_JOURNAL_ENTRY_DELETED:
		return KindJournalInvalid
	case ERROR_INVALID_HANDLE:
		return KindInvalidHandle
	}
	return KindJournalError
}

// NativeCode extracts the native error code carried by err. Errors
// that do not carry one yield ERROR_INVALID_FUNCTION.
func NativeCode(err error) uint32 {
	if err == nil {
		return ERROR_SUCCESS
	}

	var journal_err *JournalError
	if errors.As(err, &journal_err) && journal_err.Code != 0 {
		return journal_err.Code
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		return uint32(errno)
	}
	return ERROR_INVALID_FUNCTION
}

func isHandleEOF(err error) bool {
	return err != nil && NativeCode(err) == ERROR_HANDLE_EOF
}

// translateError wraps a failed native call into a JournalError at
// the point of the call.
func translateError(op string, err error) error {
	if err == nil {
		return nil
	}

	var journal_err *JournalError
	if errors.As(err, &journal_err) {
		return err
	}

	code := NativeCode(err)
	return &JournalError{
		Kind: MapNativeError(code),
		Code: code,
		Op:   op,
		Err:  err,
	}
}
