package parser

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"
)

// VolumeState is everything a consumer needs to persist to pick up
// where it left off: which volume it indexed, the journal state at
// the time and the entries it saw.
type VolumeState struct {
	VolumeName   string
	SerialNumber uint32
	Journal      *JournalState
	Entries      []*ChangeRecord
}

// Snapshot enumerates every entry of the volume and captures the
// journal state first, so that a later ReadChanges covers anything
// that changed during the walk.
func (self *Journal) Snapshot(filter RecordFilter) (*VolumeState, error) {
	state, err := self.Query()
	if err != nil {
		return nil, err
	}

	entries, err := self.EnumerateMFT(filter).Collect()
	if err != nil {
		return nil, err
	}

	return &VolumeState{
		VolumeName:   self.VolumeName(),
		SerialNumber: self.SerialNumber(),
		Journal:      state,
		Entries:      entries,
	}, nil
}

// Compatible reports whether the state was taken from the same
// volume. A reformatted volume keeps its name but not its serial
// number.
func (self *VolumeState) Compatible(journal *Journal) bool {
	return self != nil && self.SerialNumber == journal.SerialNumber()
}

// Apply folds the records of an incremental read into the entries and
// moves the state to new_state. Deleted entries are removed; created
// or renamed entries take the record's latest name and parent.
func (self *VolumeState) Apply(records []*ChangeRecord, new_state *JournalState) {
	lookup := make(map[uint64]int, len(self.Entries))
	for idx, entry := range self.Entries {
		lookup[entry.FileReferenceNumber] = idx
	}

	deleted := make(map[uint64]bool)
	for _, record := range records {
		frn := record.FileReferenceNumber

		if record.HasReason(USN_REASON_FILE_DELETE) {
			deleted[frn] = true
			continue
		}

		// The old half of a rename still carries the old name.
		if record.HasReason(USN_REASON_RENAME_OLD_NAME) {
			continue
		}
		delete(deleted, frn)

		idx, pres := lookup[frn]
		if pres {
			self.Entries[idx] = record
			continue
		}

		lookup[frn] = len(self.Entries)
		self.Entries = append(self.Entries, record)
	}

	if len(deleted) > 0 {
		entries := self.Entries[:0]
		for _, entry := range self.Entries {
			if !deleted[entry.FileReferenceNumber] {
				entries = append(entries, entry)
			}
		}
		self.Entries = entries
	}

	self.Journal = new_state
}

func (self *VolumeState) Save(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", " ")
	return errors.WithStack(encoder.Encode(self))
}

func LoadVolumeState(r io.Reader) (*VolumeState, error) {
	result := &VolumeState{}
	err := json.NewDecoder(r).Decode(result)
	if err != nil {
		return nil, errors.Wrap(err, "decoding volume state")
	}

	if result.Journal == nil {
		return nil, errors.New("volume state has no journal state")
	}
	return result, nil
}
