package parser

import (
	"encoding/binary"
	"fmt"
	"unicode/utf16"

	"github.com/pkg/errors"
)

var (
	ErrOutOfRange = errors.New("read out of range")
)

// A Buffer is a bounds checked view over the bytes returned by a
// control request. All accessors fail instead of panicking when the
// requested range is not fully inside the buffer.
type Buffer struct {
	data []byte
}

func NewBuffer(data []byte) *Buffer {
	return &Buffer{data: data}
}

func (self *Buffer) Len() int {
	return len(self.data)
}

func (self *Buffer) Bytes() []byte {
	return self.data
}

func (self *Buffer) check(offset, length int) error {
	if offset < 0 || length < 0 || offset > len(self.data) ||
		length > len(self.data)-offset {
		return errors.Wrap(ErrOutOfRange, fmt.Sprintf(
			"%d bytes at offset %d (buffer size %d)",
			length, offset, len(self.data)))
	}
	return nil
}

func (self *Buffer) Uint16At(offset int) (uint16, error) {
	if err := self.check(offset, 2); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(self.data[offset:]), nil
}

func (self *Buffer) Uint32At(offset int) (uint32, error) {
	if err := self.check(offset, 4); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(self.data[offset:]), nil
}

func (self *Buffer) Uint64At(offset int) (uint64, error) {
	if err := self.check(offset, 8); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(self.data[offset:]), nil
}

func (self *Buffer) Int64At(offset int) (int64, error) {
	value, err := self.Uint64At(offset)
	return int64(value), err
}

// UTF16At decodes count UTF-16 code units starting at offset.
func (self *Buffer) UTF16At(offset, count int) (string, error) {
	if count < 0 {
		return "", errors.Wrap(ErrOutOfRange, "negative string length")
	}
	if err := self.check(offset, count*2); err != nil {
		return "", err
	}

	u16s := make([]uint16, count)
	for i := 0; i < count; i++ {
		u16s[i] = binary.LittleEndian.Uint16(self.data[offset+2*i:])
	}
	return string(utf16.Decode(u16s)), nil
}
