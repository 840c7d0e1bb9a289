package parser

import (
	"github.com/sirupsen/logrus"
)

// ReadSince returns the records written to the journal between
// previous.NextUsn and the journal's NextUsn at the time of the call,
// together with that new state. Persist the new state to resume from
// it later.
//
// The previous state must belong to the live journal (see
// ValidateState); ReadSince does not check it again. A zero
// reason_mask selects the configured default reasons.
func (self *Journal) ReadSince(previous *JournalState, reason_mask uint32) (
	[]*ChangeRecord, *JournalState, error) {
	device, err := self.getDevice()
	if err != nil {
		return nil, nil, err
	}

	if previous == nil {
		return nil, nil, newError(KindJournalInvalid, "read",
			"no previous journal state")
	}

	new_state, err := QueryJournal(device)
	if err != nil {
		return nil, nil, err
	}

	input := READ_USN_JOURNAL_DATA{
		StartUsn:     previous.NextUsn,
		ReasonMask:   self.reasonMask(reason_mask),
		UsnJournalID: previous.JournalID,
	}

	buf := make([]byte, self.options.ReadBufferSize)
	records := []*ChangeRecord{}

	for {
		n, err := device.DeviceIoControl(
			FSCTL_READ_USN_JOURNAL, input.Encode(), buf)
		countIoctl("read", err)

		// Caught up with the live cursor.
		if isHandleEOF(err) {
			break
		}

		if err != nil {
			return nil, nil, translateError("read", err)
		}

		STATS.Inc_JournalBatches()

		// The first 8 bytes are the USN to resume from. A single
		// response may not drain the whole range.
		next_usn, err := NewBuffer(buf[:n]).Int64At(0)
		if err != nil {
			return nil, nil, newError(KindCorruptRecord, "read",
				"short response of %d bytes", n)
		}

		reached_bound := false
		err = walkRecords(buf[:n], 8, func(record *ChangeRecord) bool {
			// Anything at or past the bound belongs to the next
			// read.
			if record.Usn >= new_state.NextUsn {
				reached_bound = true
				return false
			}

			self.paths.Observe(record)
			records = append(records, record)
			return true
		})
		if err != nil {
			return nil, nil, err
		}

		if reached_bound || next_usn >= new_state.NextUsn ||
			next_usn <= input.StartUsn {
			break
		}
		input.StartUsn = next_usn
	}

	RecordsDecodedTotal.WithLabelValues("journal").Add(float64(len(records)))
	DebugPrint("ReadSince %d: %d records up to %d\n",
		previous.NextUsn, len(records), new_state.NextUsn)

	return records, new_state, nil
}

// ValidateState checks that records expected since previous are still
// available from the live journal. It fails with JournalInvalid when
// the journal was recreated or records were purged, in which case the
// caller has to fall back to a full MFT enumeration. On success the
// current state is returned.
func (self *Journal) ValidateState(previous *JournalState) (*JournalState, error) {
	current, err := self.Query()
	if err != nil {
		return nil, err
	}

	var invalid error
	switch {
	case previous == nil:
		invalid = newError(KindJournalInvalid, "validate",
			"no previous journal state")

	case previous.JournalID != current.JournalID:
		invalid = newError(KindJournalInvalid, "validate",
			"journal id changed from %#x to %#x",
			previous.JournalID, current.JournalID)

	case previous.NextUsn < current.LowestValidUsn:
		invalid = newError(KindJournalInvalid, "validate",
			"records from %d were purged, lowest valid usn is %d",
			previous.NextUsn, current.LowestValidUsn)

	case previous.NextUsn > current.NextUsn:
		invalid = newError(KindJournalInvalid, "validate",
			"cursor %d is ahead of the journal (%d)",
			previous.NextUsn, current.NextUsn)
	}

	if invalid != nil {
		Logger.WithFields(logrus.Fields{
			"volume": self.VolumeName(),
			"err":    invalid,
		}).Warn("journal state is no longer valid")
		return nil, invalid
	}

	return current, nil
}

// IsValid reports whether previous can still be used to read changes.
func (self *Journal) IsValid(previous *JournalState) bool {
	_, err := self.ValidateState(previous)
	return err == nil
}

// ReadChanges validates previous and then reads the records since it.
func (self *Journal) ReadChanges(previous *JournalState, reason_mask uint32) (
	[]*ChangeRecord, *JournalState, error) {
	_, err := self.ValidateState(previous)
	if err != nil {
		return nil, nil, err
	}
	return self.ReadSince(previous, reason_mask)
}
