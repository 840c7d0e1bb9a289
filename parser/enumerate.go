package parser

import (
	"github.com/sirupsen/logrus"
)

// MFTEnumerator walks every entry in the MFT with FSCTL_ENUM_USN_DATA.
// Records are decoded lazily as Next() is called, so a consumer can
// stop at any point without draining the volume:
//
//	it := journal.GetVolumeFiles()
//	for it.Next() {
//	    record := it.Record()
//	}
//	if err := it.Err(); err != nil {
//	    ...
//	}
type MFTEnumerator struct {
	device Device
	filter RecordFilter

	// The request echoed to the driver. StartFileReferenceNumber is
	// replaced by the driver supplied cursor after every batch.
	input MFT_ENUM_DATA

	// Transfer buffer owned by this enumerator.
	buf []byte

	// The filled part of buf and the offset of the next record in it.
	data   *Buffer
	offset int

	record  *ChangeRecord
	err     error
	started bool
	done    bool

	batches int
	yielded int
}

// EnumerateMFT starts a new full pass from reference 0. Records with a
// USN beyond the journal's NextUsn at the start of the pass are
// excluded.
func (self *Journal) EnumerateMFT(filter RecordFilter) *MFTEnumerator {
	result := &MFTEnumerator{
		filter: filter,
		buf:    make([]byte, self.options.EnumBufferSize),
	}

	result.device, result.err = self.getDevice()
	result.done = result.err != nil
	return result
}

// GetVolumeFolders enumerates folders only.
func (self *Journal) GetVolumeFolders() *MFTEnumerator {
	return self.EnumerateMFT(FoldersOnly)
}

// GetVolumeFiles enumerates every file (but no folders).
func (self *Journal) GetVolumeFiles() *MFTEnumerator {
	return self.GetFilesMatchingFilter("*")
}

// GetFilesMatchingFilter enumerates files whose extension is in the
// filter pattern (see NewExtensionFilter).
func (self *Journal) GetFilesMatchingFilter(pattern string) *MFTEnumerator {
	return self.EnumerateMFT(NewExtensionFilter(pattern))
}

func (self *MFTEnumerator) fail(err error) bool {
	self.err = err
	self.done = true
	self.record = nil
	return false
}

// Next advances to the next matching record.
func (self *MFTEnumerator) Next() bool {
	if self.done {
		return false
	}

	if !self.started {
		self.started = true

		// The current NextUsn bounds the pass so it terminates even
		// while files keep changing.
		state, err := QueryJournal(self.device)
		if err != nil {
			return self.fail(err)
		}

		self.input = MFT_ENUM_DATA{
			StartFileReferenceNumber: 0,
			LowUsn:                   0,
			HighUsn:                  state.NextUsn,
		}
	}

	for {
		if self.data != nil &&
			self.data.Len()-self.offset >= USN_RECORD_V2_SIZE {
			record, consumed, err := DecodeRecord(self.data, self.offset)
			if err != nil {
				return self.fail(err)
			}
			self.offset += consumed

			if self.filter != nil && !self.filter(record) {
				continue
			}

			self.record = record
			self.yielded++
			RecordsDecodedTotal.WithLabelValues("mft").Inc()
			return true
		}

		if !self.refill() {
			return false
		}
	}
}

// refill issues the next FSCTL_ENUM_USN_DATA call.
func (self *MFTEnumerator) refill() bool {
	start := self.input.StartFileReferenceNumber
	n, err := self.device.DeviceIoControl(
		FSCTL_ENUM_USN_DATA, self.input.Encode(), self.buf)
	countIoctl("enum", err)

	if isHandleEOF(err) {
		self.finish()
		return false
	}

	if err != nil {
		return self.fail(translateError("enum", err))
	}

	data := NewBuffer(self.buf[:n])
	next, err := data.Uint64At(0)
	if err != nil {
		return self.fail(newError(KindCorruptRecord, "enum",
			"short response of %d bytes", n))
	}

	STATS.Inc_MFTBatches()
	self.batches++

	// An empty batch that does not move the cursor would repeat
	// forever.
	if n-8 < USN_RECORD_V2_SIZE && next == start {
		self.finish()
		return false
	}

	self.input.StartFileReferenceNumber = next
	self.data = data
	self.offset = 8
	return true
}

func (self *MFTEnumerator) finish() {
	self.done = true
	self.record = nil

	Logger.WithFields(logrus.Fields{
		"batches":  self.batches,
		"records":  self.yielded,
		"high_usn": self.input.HighUsn,
	}).Debug("MFT enumeration complete")
}

// Record returns the record produced by the last successful Next().
func (self *MFTEnumerator) Record() *ChangeRecord {
	return self.record
}

// Err returns the error that stopped the enumeration, if any.
func (self *MFTEnumerator) Err() error {
	return self.err
}

// Cursor is the file reference number the next batch starts from.
func (self *MFTEnumerator) Cursor() uint64 {
	return self.input.StartFileReferenceNumber
}

// HighUsn is the USN bound captured at the start of the pass.
func (self *MFTEnumerator) HighUsn() int64 {
	return self.input.HighUsn
}

// Collect drains the enumerator.
func (self *MFTEnumerator) Collect() ([]*ChangeRecord, error) {
	var result []*ChangeRecord
	for self.Next() {
		result = append(result, self.Record())
	}
	return result, self.Err()
}
