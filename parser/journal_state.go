package parser

import (
	"encoding/binary"
	"fmt"

	humanize "github.com/dustin/go-humanize"
)

const (
	// sizeof(USN_JOURNAL_DATA_V0)
	USN_JOURNAL_DATA_SIZE = 56
)

// JournalState is a snapshot of the journal returned by
// FSCTL_QUERY_USN_JOURNAL. NextUsn is the cursor to persist in order
// to resume reading later.
type JournalState struct {
	JournalID       uint64
	FirstUsn        int64
	NextUsn         int64
	LowestValidUsn  int64
	MaxUsn          int64
	MaxSize         uint64
	AllocationDelta uint64
}

// UsedBytes is the approximate amount of journal data currently
// retained on the volume.
func (self *JournalState) UsedBytes() uint64 {
	if self.NextUsn < self.FirstUsn {
		return 0
	}
	return uint64(self.NextUsn - self.FirstUsn)
}

func (self *JournalState) DebugString() string {
	result := "[USN_JOURNAL_DATA]\n"
	result += fmt.Sprintf("  JournalID: %#016x\n", self.JournalID)
	result += fmt.Sprintf("  FirstUsn: %d\n", self.FirstUsn)
	result += fmt.Sprintf("  NextUsn: %d\n", self.NextUsn)
	result += fmt.Sprintf("  LowestValidUsn: %d\n", self.LowestValidUsn)
	result += fmt.Sprintf("  MaxUsn: %d\n", self.MaxUsn)
	result += fmt.Sprintf("  MaxSize: %s\n", humanize.IBytes(self.MaxSize))
	result += fmt.Sprintf("  AllocationDelta: %s\n",
		humanize.IBytes(self.AllocationDelta))
	return result
}

func DecodeJournalState(buf *Buffer) (*JournalState, error) {
	if buf.Len() < USN_JOURNAL_DATA_SIZE {
		return nil, newError(KindJournalError, "query",
			"short journal data: %d bytes", buf.Len())
	}

	result := &JournalState{}
	result.JournalID, _ = buf.Uint64At(0)
	result.FirstUsn, _ = buf.Int64At(8)
	result.NextUsn, _ = buf.Int64At(16)
	result.LowestValidUsn, _ = buf.Int64At(24)
	result.MaxUsn, _ = buf.Int64At(32)
	result.MaxSize, _ = buf.Uint64At(40)
	result.AllocationDelta, _ = buf.Uint64At(48)
	return result, nil
}

func EncodeJournalState(state *JournalState) []byte {
	result := make([]byte, USN_JOURNAL_DATA_SIZE)
	order := binary.LittleEndian
	order.PutUint64(result[0:], state.JournalID)
	order.PutUint64(result[8:], uint64(state.FirstUsn))
	order.PutUint64(result[16:], uint64(state.NextUsn))
	order.PutUint64(result[24:], uint64(state.LowestValidUsn))
	order.PutUint64(result[32:], uint64(state.MaxUsn))
	order.PutUint64(result[40:], state.MaxSize)
	order.PutUint64(result[48:], state.AllocationDelta)
	return result
}

// QueryJournal issues FSCTL_QUERY_USN_JOURNAL on the device.
func QueryJournal(device Device) (*JournalState, error) {
	buf := make([]byte, USN_JOURNAL_DATA_SIZE)
	n, err := device.DeviceIoControl(FSCTL_QUERY_USN_JOURNAL, nil, buf)
	countIoctl("query", err)
	if err != nil {
		return nil, translateError("query", err)
	}

	return DecodeJournalState(NewBuffer(buf[:n]))
}
