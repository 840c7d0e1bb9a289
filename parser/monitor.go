package parser

import (
	"context"

	"github.com/sirupsen/logrus"
)

// WatchJournal follows the journal from its current end. Every new
// record matching reason_mask is sent on the returned channel until
// ctx is cancelled or a native call fails. The channel is closed when
// the monitor stops; a failure is then available on the error channel
// (which is closed too).
//
// Each wait blocks inside the driver for up to the configured monitor
// timeout, so cancellation is only noticed between waits.
func (self *Journal) WatchJournal(ctx context.Context, reason_mask uint32) (
	<-chan *ChangeRecord, <-chan error) {
	return self.watch(ctx, nil, reason_mask)
}

// WatchJournalFrom is like WatchJournal but starts at a previously
// persisted state, so records written while nobody was watching are
// delivered first.
func (self *Journal) WatchJournalFrom(ctx context.Context,
	start *JournalState, reason_mask uint32) (<-chan *ChangeRecord, <-chan error) {
	if start == nil {
		errc := make(chan error, 1)
		output := make(chan *ChangeRecord)
		errc <- newError(KindJournalInvalid, "monitor", "no start state")
		close(errc)
		close(output)
		return output, errc
	}
	return self.watch(ctx, start, reason_mask)
}

func (self *Journal) watch(ctx context.Context, start *JournalState,
	reason_mask uint32) (<-chan *ChangeRecord, <-chan error) {
	output := make(chan *ChangeRecord)
	errc := make(chan error, 1)

	go func() {
		defer close(errc)
		defer close(output)

		err := self.monitor(ctx, start, self.reasonMask(reason_mask), output)
		if err != nil {
			Logger.WithFields(logrus.Fields{
				"volume": self.VolumeName(),
				"err":    err,
			}).Error("journal monitor failed")
			errc <- err
		}
	}()

	return output, errc
}

func (self *Journal) monitor(ctx context.Context, start *JournalState,
	reason_mask uint32, output chan<- *ChangeRecord) error {
	device, err := self.getDevice()
	if err != nil {
		return err
	}

	if start == nil {
		start, err = QueryJournal(device)
		if err != nil {
			return err
		}
	}

	input := READ_USN_JOURNAL_DATA{
		StartUsn:       start.NextUsn,
		ReasonMask:     reason_mask,
		Timeout:        self.options.MonitorTimeout,
		BytesToWaitFor: self.options.MonitorBytesToWaitFor,
		UsnJournalID:   start.JournalID,
	}

	// Never shared with another reader.
	buf := make([]byte, self.options.ReadBufferSize)

	fields := logrus.Fields{
		"volume":     self.VolumeName(),
		"journal_id": start.JournalID,
		"start_usn":  start.NextUsn,
	}
	Logger.WithFields(fields).Info("journal monitor started")
	defer Logger.WithFields(fields).Info("journal monitor stopped")

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		n, err := device.DeviceIoControl(
			FSCTL_READ_USN_JOURNAL, input.Encode(), buf)
		countIoctl("monitor", err)

		// Timed out without new records.
		if isHandleEOF(err) {
			continue
		}

		if err != nil {
			return translateError("monitor", err)
		}

		STATS.Inc_JournalBatches()

		next_usn, err := NewBuffer(buf[:n]).Int64At(0)
		if err != nil {
			return newError(KindCorruptRecord, "monitor",
				"short response of %d bytes", n)
		}

		// Decode the whole batch before delivering anything: buf is
		// reused by the next call.
		var records []*ChangeRecord
		err = walkRecords(buf[:n], 8, func(record *ChangeRecord) bool {
			records = append(records, record)
			return true
		})
		if err != nil {
			return err
		}

		for _, record := range records {
			self.paths.Observe(record)

			select {
			case <-ctx.Done():
				return nil
			case output <- record:
				RecordsDecodedTotal.WithLabelValues("monitor").Inc()
			}
		}

		if next_usn > input.StartUsn {
			input.StartUsn = next_usn
		}
	}
}
