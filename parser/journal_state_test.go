package parser

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJournalState(t *testing.T) {
	device := newFakeDevice()
	device.next_usn = 0x4a8

	state, err := QueryJournal(device)
	require.NoError(t, err)
	assert.Equal(t, device.state(), state)
	assert.Equal(t, uint64(0x4a8), state.UsedBytes())

	decoded, err := DecodeJournalState(NewBuffer(EncodeJournalState(state)))
	require.NoError(t, err)
	assert.Equal(t, state, decoded)

	_, err = DecodeJournalState(NewBuffer(make([]byte, 40)))
	assert.ErrorIs(t, err, ErrJournalError)

	g := goldie.New(t, goldie.WithFixtureDir("fixtures"))
	g.Assert(t, "JournalState", []byte(state.DebugString()))
}
