package parser

import (
	"sort"
	"sync"
	"syscall"
	"time"
)

// fakeDevice emulates the change journal control requests of the
// filesystem driver over an in memory journal. USNs are byte offsets
// into the journal like on a real volume.
type fakeDevice struct {
	mu sync.Mutex

	name   string
	serial uint32

	active     bool
	journal_id uint64
	first_usn  int64
	lowest_usn int64
	next_usn   int64

	// Every record ever written, in USN order.
	journal []*ChangeRecord

	// Latest record of every live MFT entry.
	mft map[uint64]*ChangeRecord

	paths map[uint64]string

	// Maximum records per response; 0 means as many as fit.
	batch_size int

	// How long an empty long poll blocks.
	wait time.Duration

	// Control code -> error returned once more than fail_after calls
	// were made.
	failures   map[uint32]error
	fail_after map[uint32]int

	calls        map[uint32]int
	opens        int
	open_fails   map[uint64]error
	name_fails   map[uint64]error
	closed_files int
	closed       int

	notify chan struct{}
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		name:       "C:",
		serial:     0xdeadbeef,
		active:     true,
		journal_id: 0x01d2c3b4a5968778,
		first_usn:  0,
		next_usn:   0,
		mft:        make(map[uint64]*ChangeRecord),
		paths:      make(map[uint64]string),
		wait:       10 * time.Millisecond,
		failures:   make(map[uint32]error),
		fail_after: make(map[uint32]int),
		calls:      make(map[uint32]int),
		open_fails: make(map[uint64]error),
		name_fails: make(map[uint64]error),
		notify:     make(chan struct{}, 1),
	}
}

func testRecord(frn, parent uint64, name string, reason, attributes uint32) *ChangeRecord {
	return &ChangeRecord{
		MajorVersion:              2,
		FileReferenceNumber:       frn,
		ParentFileReferenceNumber: parent,
		TimeStamp:                 int64(TimeToFileTime(testTime)),
		Reason:                    reason,
		FileAttributes:            attributes,
		Name:                      name,
	}
}

var testTime = time.Date(2021, 1, 2, 3, 4, 5, 0, time.UTC)

// Append writes a record to the journal and updates the MFT view.
func (self *fakeDevice) Append(records ...*ChangeRecord) {
	self.mu.Lock()
	for _, record := range records {
		entry := *record
		entry.Usn = self.next_usn
		encoded := EncodeRecord(&entry)
		entry.RecordLength = uint32(len(encoded))
		self.next_usn += int64(len(encoded))
		self.journal = append(self.journal, &entry)

		if entry.HasReason(USN_REASON_FILE_DELETE) {
			delete(self.mft, entry.FileReferenceNumber)
		} else if !entry.HasReason(USN_REASON_RENAME_OLD_NAME) {
			self.mft[entry.FileReferenceNumber] = &entry
		}
	}
	self.mu.Unlock()

	select {
	case self.notify <- struct{}{}:
	default:
	}
}

// Purge drops journal records below usn.
func (self *fakeDevice) Purge(usn int64) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.lowest_usn = usn
	self.first_usn = usn
}

// Recreate replaces the journal with a new instance.
func (self *fakeDevice) Recreate() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.journal_id++
	self.journal = nil
	self.first_usn = self.next_usn
	self.lowest_usn = self.next_usn
}

func (self *fakeDevice) Fail(code uint32, after int, err error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.failures[code] = err
	self.fail_after[code] = after
}

func (self *fakeDevice) Calls(code uint32) int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.calls[code]
}

func (self *fakeDevice) state() *JournalState {
	return &JournalState{
		JournalID:       self.journal_id,
		FirstUsn:        self.first_usn,
		NextUsn:         self.next_usn,
		LowestValidUsn:  self.lowest_usn,
		MaxUsn:          0x7fffffffffff0000,
		MaxSize:         0x2000000,
		AllocationDelta: 0x800000,
	}
}

func (self *fakeDevice) DeviceIoControl(code uint32, in, out []byte) (int, error) {
	self.mu.Lock()
	self.calls[code]++
	err, pres := self.failures[code]
	if pres && self.calls[code] > self.fail_after[code] {
		self.mu.Unlock()
		return 0, err
	}
	self.mu.Unlock()

	switch code {
	case FSCTL_QUERY_USN_JOURNAL:
		return self.query(out)
	case FSCTL_ENUM_USN_DATA:
		return self.enum(in, out)
	case FSCTL_READ_USN_JOURNAL:
		return self.read(in, out)
	}
	return 0, syscall.Errno(ERROR_INVALID_FUNCTION)
}

func (self *fakeDevice) query(out []byte) (int, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	if !self.active {
		return 0, syscall.Errno(ERROR_JOURNAL_NOT_ACTIVE)
	}
	if len(out) < USN_JOURNAL_DATA_SIZE {
		return 0, syscall.Errno(ERROR_INVALID_USER_BUFFER)
	}
	return copy(out, EncodeJournalState(self.state())), nil
}

// fill packs records into out after the 8 byte cursor.
func (self *fakeDevice) fill(records []*ChangeRecord, out []byte) (int, int) {
	offset := 8
	count := 0
	for _, record := range records {
		if self.batch_size > 0 && count >= self.batch_size {
			break
		}
		encoded := EncodeRecord(record)
		if offset+len(encoded) > len(out) {
			break
		}
		copy(out[offset:], encoded)
		offset += len(encoded)
		count++
	}
	return offset, count
}

func (self *fakeDevice) enum(in, out []byte) (int, error) {
	input, err := DecodeMFT_ENUM_DATA(NewBuffer(in))
	if err != nil {
		return 0, syscall.Errno(ERROR_INVALID_PARAMETER)
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	if !self.active {
		return 0, syscall.Errno(ERROR_JOURNAL_NOT_ACTIVE)
	}

	var records []*ChangeRecord
	for frn, record := range self.mft {
		if frn >= input.StartFileReferenceNumber &&
			record.Usn >= input.LowUsn && record.Usn <= input.HighUsn {
			records = append(records, record)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].FileReferenceNumber < records[j].FileReferenceNumber
	})

	if len(records) == 0 {
		return 0, syscall.Errno(ERROR_HANDLE_EOF)
	}

	n, count := self.fill(records, out)
	if count == 0 {
		return 0, syscall.Errno(ERROR_INSUFFICIENT_BUFFER)
	}

	next := records[count-1].FileReferenceNumber + 1
	putUint64(out, next)
	return n, nil
}

func (self *fakeDevice) pending(input *READ_USN_JOURNAL_DATA) (
	[]*ChangeRecord, int64, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	if !self.active {
		return nil, 0, syscall.Errno(ERROR_JOURNAL_NOT_ACTIVE)
	}
	if input.UsnJournalID != self.journal_id ||
		input.StartUsn < self.lowest_usn {
		return nil, 0, syscall.Errno(ERROR_JOURNAL_ENTRY_DELETED)
	}

	var result []*ChangeRecord
	for _, record := range self.journal {
		if record.Usn >= input.StartUsn {
			result = append(result, record)
		}
	}
	return result, self.next_usn, nil
}

func (self *fakeDevice) read(in, out []byte) (int, error) {
	input, err := DecodeREAD_USN_JOURNAL_DATA(NewBuffer(in))
	if err != nil {
		return 0, syscall.Errno(ERROR_INVALID_PARAMETER)
	}

	records, next_usn, err := self.pending(input)
	if err != nil {
		return 0, err
	}

	// Long poll until something arrives.
	if len(records) == 0 && input.BytesToWaitFor > 0 {
		select {
		case <-self.notify:
		case <-time.After(self.wait):
		}

		records, next_usn, err = self.pending(input)
		if err != nil {
			return 0, err
		}
	}

	// Records not matching the mask are skipped but still move the
	// cursor.
	var matching []*ChangeRecord
	for _, record := range records {
		if record.Reason&input.ReasonMask != 0 {
			matching = append(matching, record)
		}
	}

	self.mu.Lock()
	n, count := self.fill(matching, out)
	self.mu.Unlock()

	if count < len(matching) {
		next_usn = matching[count].Usn
	}
	putUint64(out, uint64(next_usn))
	return n, nil
}

func putUint64(out []byte, value uint64) {
	for i := 0; i < 8; i++ {
		out[i] = byte(value >> (8 * i))
	}
}

func (self *fakeDevice) OpenFileReference(frn uint64) (FileObject, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.opens++
	if err, pres := self.open_fails[frn]; pres {
		return nil, err
	}

	path, pres := self.paths[frn]
	if !pres {
		return nil, syscall.Errno(ERROR_INVALID_PARAMETER)
	}
	return &fakeFile{device: self, frn: frn, path: path}, nil
}

func (self *fakeDevice) Opens() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.opens
}

func (self *fakeDevice) ClosedFiles() int {
	self.mu.Lock()
	defer self.mu.Unlock()

	return self.closed_files
}

func (self *fakeDevice) VolumeName() string {
	return self.name
}

func (self *fakeDevice) SerialNumber() uint32 {
	return self.serial
}

func (self *fakeDevice) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.closed++
	return nil
}

type fakeFile struct {
	device *fakeDevice
	frn    uint64
	path   string
}

func (self *fakeFile) Name() (string, error) {
	self.device.mu.Lock()
	defer self.device.mu.Unlock()

	if err, pres := self.device.name_fails[self.frn]; pres {
		return "", err
	}
	return self.path, nil
}

func (self *fakeFile) Close() error {
	self.device.mu.Lock()
	defer self.device.mu.Unlock()

	self.device.closed_files++
	return nil
}
