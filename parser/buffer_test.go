package parser

import (
	"testing"

	"github.com/alecthomas/assert"
	"github.com/pkg/errors"
)

func TestBuffer(t *testing.T) {
	buf := NewBuffer([]byte{
		0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 0x07, 0x08,
		't', 0, 'e', 0, 's', 0, 't', 0,
	})

	u16, err := buf.Uint16At(0)
	assert.NoError(t, err)
	assert.Equal(t, uint16(0x0201), u16)

	u32, err := buf.Uint32At(4)
	assert.NoError(t, err)
	assert.Equal(t, uint32(0x08070605), u32)

	u64, err := buf.Uint64At(0)
	assert.NoError(t, err)
	assert.Equal(t, uint64(0x0807060504030201), u64)

	name, err := buf.UTF16At(8, 4)
	assert.NoError(t, err)
	assert.Equal(t, "test", name)

	// Reading the last byte pair exactly is fine.
	_, err = buf.Uint16At(14)
	assert.NoError(t, err)
}

func TestBufferOutOfRange(t *testing.T) {
	buf := NewBuffer(make([]byte, 16))

	_, err := buf.Uint16At(15)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = buf.Uint32At(13)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = buf.Uint64At(9)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = buf.Uint64At(-1)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = buf.UTF16At(8, 5)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = buf.UTF16At(0, -1)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	_, err = NewBuffer(nil).Uint16At(0)
	assert.True(t, errors.Is(err, ErrOutOfRange))
}
