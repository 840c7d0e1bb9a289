package parser

import "fmt"

// A RenameEvent joins the two halves of a rename. Moves between
// folders carry the parent of the new name.
type RenameEvent struct {
	FileReferenceNumber       uint64
	ParentFileReferenceNumber uint64
	OldName                   string
	NewName                   string
	Usn                       int64
}

func (self *RenameEvent) DebugString() string {
	return fmt.Sprintf("[RENAME] %#x: %q -> %q (parent %#x)",
		self.FileReferenceNumber, self.OldName, self.NewName,
		self.ParentFileReferenceNumber)
}

// RenameTracker pairs RENAME_OLD_NAME records with the RENAME_NEW_NAME
// record that follows them for the same file. It is not safe for
// concurrent use.
type RenameTracker struct {
	// Old names waiting for their new name, by file reference.
	pending map[uint64]*ChangeRecord
}

func NewRenameTracker() *RenameTracker {
	return &RenameTracker{
		pending: make(map[uint64]*ChangeRecord),
	}
}

// Observe feeds the next record in journal order. It returns an event
// when record completes a rename.
func (self *RenameTracker) Observe(record *ChangeRecord) (*RenameEvent, bool) {
	frn := record.FileReferenceNumber

	if record.HasReason(USN_REASON_RENAME_OLD_NAME) {
		self.pending[frn] = record
		return nil, false
	}

	if !record.HasReason(USN_REASON_RENAME_NEW_NAME) {
		return nil, false
	}

	old, pres := self.pending[frn]
	if !pres {
		// The old half was before the range we read.
		return nil, false
	}

	// A journal may report the new name several times (e.g. once more
	// with CLOSE) so only pair the first one.
	delete(self.pending, frn)

	return &RenameEvent{
		FileReferenceNumber:       frn,
		ParentFileReferenceNumber: record.ParentFileReferenceNumber,
		OldName:                   old.Name,
		NewName:                   record.Name,
		Usn:                       record.Usn,
	}, true
}

// Pending returns the number of old names still waiting for a match.
func (self *RenameTracker) Pending() int {
	return len(self.pending)
}

// PairRenames extracts all complete renames from records.
func PairRenames(records []*ChangeRecord) []*RenameEvent {
	tracker := NewRenameTracker()
	result := []*RenameEvent{}
	for _, record := range records {
		event, ok := tracker.Observe(record)
		if ok {
			result = append(result, event)
		}
	}
	return result
}
