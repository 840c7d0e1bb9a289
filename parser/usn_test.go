package parser

import (
	"encoding/binary"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
)

func TestRecordRoundTrip(t *testing.T) {
	assert := assert.New(t)

	record := testRecord(0x0001000000000024, 0x0005000000000005, "test.txt",
		USN_REASON_FILE_CREATE|USN_REASON_CLOSE, FILE_ATTRIBUTE_ARCHIVE)
	record.RecordLength = 84
	record.Usn = 0x4a8

	encoded := EncodeRecord(record)
	assert.Equal(84, len(encoded))

	order := binary.LittleEndian
	assert.Equal(uint32(84), order.Uint32(encoded[0:]))
	assert.Equal(uint16(2), order.Uint16(encoded[4:]))

	// 8 UTF-16 code units, the wire format counts bytes.
	assert.Equal(uint16(16), order.Uint16(encoded[56:]))
	assert.Equal(uint16(60), order.Uint16(encoded[58:]))

	decoded, consumed, err := DecodeRecord(NewBuffer(encoded), 0)
	assert.NoError(err)
	assert.Equal(84, consumed)
	assert.Equal("test.txt", decoded.Name)
	assert.Equal(uint32(84), decoded.RecordLength)
	assert.Equal(record.FileReferenceNumber, decoded.FileReferenceNumber)
	assert.Equal(record.ParentFileReferenceNumber, decoded.ParentFileReferenceNumber)
	assert.Equal(int64(0x4a8), decoded.Usn)
	assert.Equal(record.Reason, decoded.Reason)
	assert.Equal(testTime, decoded.Time())
	assert.True(decoded.IsFile())
}

func TestRecordAtOffset(t *testing.T) {
	first := EncodeRecord(testRecord(1, 5, "a", USN_REASON_CLOSE, 0))
	second := EncodeRecord(testRecord(2, 5, "bb", USN_REASON_CLOSE, 0))

	data := append([]byte{}, first...)
	data = append(data, second...)

	decoded, consumed, err := DecodeRecord(NewBuffer(data), len(first))
	assert.NoError(t, err)
	assert.Equal(t, len(second), consumed)
	assert.Equal(t, "bb", decoded.Name)
	assert.Equal(t, uint64(2), decoded.FileReferenceNumber)
}

func TestCorruptRecords(t *testing.T) {
	good := EncodeRecord(testRecord(1, 5, "test.txt", USN_REASON_CLOSE, 0))

	corrupt := func(mutate func(buf []byte) []byte) []byte {
		buf := append([]byte{}, good...)
		return mutate(buf)
	}

	cases := map[string][]byte{
		"zero length": corrupt(func(buf []byte) []byte {
			binary.LittleEndian.PutUint32(buf, 0)
			return buf
		}),
		"shorter than header": corrupt(func(buf []byte) []byte {
			binary.LittleEndian.PutUint32(buf, USN_RECORD_V2_SIZE-1)
			return buf
		}),
		"length past buffer": corrupt(func(buf []byte) []byte {
			binary.LittleEndian.PutUint32(buf, uint32(len(buf)+8))
			return buf
		}),
		"name past record": corrupt(func(buf []byte) []byte {
			binary.LittleEndian.PutUint16(buf[56:], 0x100)
			return buf
		}),
		"odd name length": corrupt(func(buf []byte) []byte {
			binary.LittleEndian.PutUint16(buf[56:], 3)
			return buf
		}),
		"unsupported version": corrupt(func(buf []byte) []byte {
			binary.LittleEndian.PutUint16(buf[4:], 4)
			return buf
		}),
		"truncated header": good[:USN_RECORD_V2_SIZE-4],
	}

	for name, data := range cases {
		_, _, err := DecodeRecord(NewBuffer(data), 0)
		assert.ErrorIs(t, err, ErrCorruptRecord, name)
	}
}

func TestWalkRecordsStopsOnCorruption(t *testing.T) {
	first := EncodeRecord(testRecord(1, 5, "a", USN_REASON_CLOSE, 0))
	bad := EncodeRecord(testRecord(2, 5, "b", USN_REASON_CLOSE, 0))
	binary.LittleEndian.PutUint32(bad, 0)

	data := make([]byte, 8)
	data = append(data, first...)
	data = append(data, bad...)

	var seen []string
	err := walkRecords(data, 8, func(record *ChangeRecord) bool {
		seen = append(seen, record.Name)
		return true
	})
	assert.ErrorIs(t, err, ErrCorruptRecord)
	assert.Equal(t, []string{"a"}, seen)
}

func TestWalkRecordsIgnoresShortTail(t *testing.T) {
	data := make([]byte, 8)
	data = append(data, EncodeRecord(testRecord(1, 5, "a", USN_REASON_CLOSE, 0))...)
	data = append(data, make([]byte, USN_RECORD_V2_SIZE-1)...)

	count := 0
	err := walkRecords(data, 8, func(record *ChangeRecord) bool {
		count++
		return true
	})
	assert.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestClassification(t *testing.T) {
	for _, attributes := range []uint32{
		FILE_ATTRIBUTE_DIRECTORY,
		FILE_ATTRIBUTE_DIRECTORY | FILE_ATTRIBUTE_HIDDEN | FILE_ATTRIBUTE_SYSTEM,
		FILE_ATTRIBUTE_DIRECTORY | FILE_ATTRIBUTE_REPARSE_POINT,
	} {
		record := testRecord(1, 5, "x", 0, attributes)
		assert.True(t, record.IsFolder(), "%#x", attributes)
		assert.False(t, record.IsFile(), "%#x", attributes)
	}

	for _, attributes := range []uint32{
		0,
		FILE_ATTRIBUTE_ARCHIVE,
		FILE_ATTRIBUTE_NORMAL,
		FILE_ATTRIBUTE_HIDDEN | FILE_ATTRIBUTE_COMPRESSED | FILE_ATTRIBUTE_ENCRYPTED,
	} {
		record := testRecord(1, 5, "x", 0, attributes)
		assert.False(t, record.IsFolder(), "%#x", attributes)
		assert.True(t, record.IsFile(), "%#x", attributes)
	}
}

func TestRenamePairing(t *testing.T) {
	records := []*ChangeRecord{
		testRecord(0x24, 5, "a.txt", USN_REASON_RENAME_OLD_NAME, 0),
		testRecord(0x24, 5, "b.txt", USN_REASON_RENAME_NEW_NAME, 0),
		testRecord(0x24, 5, "b.txt",
			USN_REASON_RENAME_NEW_NAME|USN_REASON_CLOSE, 0),
	}

	assert.Equal(t, "a.txt", records[0].OldName())
	assert.Equal(t, "", records[1].OldName())

	events := PairRenames(records)
	assert.Equal(t, 1, len(events))
	assert.Equal(t, "a.txt", events[0].OldName)
	assert.Equal(t, "b.txt", events[0].NewName)
	assert.Equal(t, uint64(0x24), events[0].FileReferenceNumber)
}

func TestRenameTrackerInterleaved(t *testing.T) {
	tracker := NewRenameTracker()

	_, ok := tracker.Observe(testRecord(1, 5, "one", USN_REASON_RENAME_OLD_NAME, 0))
	assert.False(t, ok)
	_, ok = tracker.Observe(testRecord(2, 5, "two", USN_REASON_RENAME_OLD_NAME, 0))
	assert.False(t, ok)
	assert.Equal(t, 2, tracker.Pending())

	// A new name without the old half is not a rename we can report.
	_, ok = tracker.Observe(testRecord(3, 5, "three", USN_REASON_RENAME_NEW_NAME, 0))
	assert.False(t, ok)

	event, ok := tracker.Observe(testRecord(2, 7, "deux", USN_REASON_RENAME_NEW_NAME, 0))
	assert.True(t, ok)
	assert.Equal(t, "two", event.OldName)
	assert.Equal(t, "deux", event.NewName)
	assert.Equal(t, uint64(7), event.ParentFileReferenceNumber)
	assert.Equal(t, 1, tracker.Pending())
}

func TestReasonFlags(t *testing.T) {
	flags := ReasonFlags(USN_REASON_CLOSE | USN_REASON_FILE_CREATE)
	assert.Equal(t, []string{"FILE_CREATE", "CLOSE"}, flags.Values())
	assert.True(t, flags.IsSet("CLOSE"))
	assert.False(t, flags.IsSet("FILE_DELETE"))

	mask, err := ParseReasonMask([]string{"file_create", "USN_REASON_FILE_DELETE"})
	assert.NoError(t, err)
	assert.Equal(t, uint32(USN_REASON_FILE_CREATE|USN_REASON_FILE_DELETE), mask)

	mask, err = ParseReasonMask(nil)
	assert.NoError(t, err)
	assert.Equal(t, uint32(USN_REASON_ANY), mask)

	_, err = ParseReasonMask([]string{"NOT_A_REASON"})
	assert.EqualError(t, err, `unknown reason "NOT_A_REASON"`)

	_, has_stack := err.(interface{ StackTrace() errors.StackTrace })
	assert.True(t, has_stack)
}

func TestModelChangeRecord(t *testing.T) {
	file := testRecord(0x0001000000000024, 0x0005000000000005, "test.txt",
		USN_REASON_FILE_CREATE|USN_REASON_CLOSE, FILE_ATTRIBUTE_ARCHIVE)

	folder := testRecord(0x0002000000000030, 0x0005000000000005, "Documents",
		USN_REASON_RENAME_NEW_NAME|USN_REASON_CLOSE, FILE_ATTRIBUTE_DIRECTORY)
	folder.Usn = 96

	result := map[string]interface{}{
		"01 File create":   ModelChangeRecord(nil, file, false),
		"02 Folder rename": ModelChangeRecord(nil, folder, false),
	}

	result_json, _ := json.MarshalIndent(result, "", " ")
	g := goldie.New(t, goldie.WithFixtureDir("fixtures"))
	g.Assert(t, "TestModelChangeRecord", result_json)
}
