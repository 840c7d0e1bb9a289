package parser

import (
	"sync"

	"github.com/Velocidex/ordereddict"
	"github.com/pkg/errors"
)

// A Journal is the change journal engine for a single volume. It owns
// the volume device and closes it exactly once.
type Journal struct {
	mu sync.Mutex

	device Device
	closed bool

	// Analysis options are fixed at construction.
	options Options

	paths *PathCache
}

// NewJournal takes ownership of device. On failure the device is
// closed.
func NewJournal(device Device, options Options) (*Journal, error) {
	if device == nil {
		return nil, newError(KindInvalidHandle, "open", "no device")
	}

	err := options.validate()
	if err != nil {
		device.Close()
		return nil, errors.Wrap(err, "invalid options")
	}

	paths, err := NewPathCache(options.PathCacheSize)
	if err != nil {
		device.Close()
		return nil, err
	}

	return &Journal{
		device:  device,
		options: options,
		paths:   paths,
	}, nil
}

// OpenJournal opens the named volume (e.g. "C", "C:" or `\\.\C:`).
func OpenJournal(volume string, options Options) (*Journal, error) {
	device, err := OpenVolume(volume)
	if err != nil {
		return nil, err
	}
	return NewJournal(device, options)
}

func (self *Journal) getDevice() (Device, error) {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.closed {
		return nil, newError(KindInvalidHandle, "", "journal is closed")
	}
	return self.device, nil
}

// Close releases the volume handle. Further calls are no-ops and every
// other operation fails with InvalidHandle afterwards.
func (self *Journal) Close() error {
	self.mu.Lock()
	defer self.mu.Unlock()

	if self.closed {
		return nil
	}
	self.closed = true
	return self.device.Close()
}

func (self *Journal) VolumeName() string {
	return self.device.VolumeName()
}

func (self *Journal) SerialNumber() uint32 {
	return self.device.SerialNumber()
}

func (self *Journal) Options() Options {
	return self.options
}

func (self *Journal) Stats() *ordereddict.Dict {
	return STATS.Dict().Set("PathCache", self.paths.Stats())
}

// Query returns a fresh snapshot of the journal state.
func (self *Journal) Query() (*JournalState, error) {
	device, err := self.getDevice()
	if err != nil {
		return nil, err
	}
	return QueryJournal(device)
}

// IsActive reports whether the volume has an active change journal.
func (self *Journal) IsActive() bool {
	_, err := self.Query()
	return err == nil
}

// reasonMask resolves a zero mask to the configured default.
func (self *Journal) reasonMask(mask uint32) uint32 {
	if mask != 0 {
		return mask
	}
	result, err := self.options.ReasonMask()
	if err != nil {
		return USN_REASON_ANY
	}
	return result
}
