package parser

import (
	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

type Options struct {
	// Size of the transfer buffer used for each FSCTL_ENUM_USN_DATA
	// call. The first 8 bytes hold the resume cursor.
	EnumBufferSize int `toml:"enum_buffer_size"`

	// Size of the transfer buffer used for FSCTL_READ_USN_JOURNAL.
	ReadBufferSize int `toml:"read_buffer_size"`

	// Seconds the driver waits for new records in the live monitor.
	// The driver treats 0 as no timeout at all, so cancellation
	// would never be noticed on an idle volume. Must be at least 1.
	MonitorTimeout uint64 `toml:"monitor_timeout"`

	// The live monitor blocks until at least this many bytes of
	// records are available (or the timeout expires). With 0 the
	// driver returns at once and the monitor would spin. Must be at
	// least 1.
	MonitorBytesToWaitFor uint64 `toml:"monitor_bytes_to_wait_for"`

	// Number of resolved paths to cache. 0 disables the cache.
	PathCacheSize int `toml:"path_cache_size"`

	// Reasons reported by readers when the caller does not specify
	// any. Names as accepted by ParseReasonMask.
	Reasons []string `toml:"reasons"`
}

func GetDefaultOptions() Options {
	return Options{
		EnumBufferSize:        8 + 10000,
		ReadBufferSize:        8 * 0x4000,
		MonitorTimeout:        1,
		MonitorBytesToWaitFor: 1,
		PathCacheSize:         1000,
	}
}

// ReasonMask resolves the configured reasons.
func (self Options) ReasonMask() (uint32, error) {
	return ParseReasonMask(self.Reasons)
}

func (self Options) validate() error {
	if self.EnumBufferSize < 8+USN_RECORD_V2_SIZE {
		return errors.Errorf("enum_buffer_size %d is too small",
			self.EnumBufferSize)
	}
	if self.ReadBufferSize < 8+USN_RECORD_V2_SIZE {
		return errors.Errorf("read_buffer_size %d is too small",
			self.ReadBufferSize)
	}
	if self.MonitorTimeout == 0 {
		return errors.New("monitor_timeout must be at least 1 second")
	}
	if self.MonitorBytesToWaitFor == 0 {
		return errors.New("monitor_bytes_to_wait_for must be at least 1")
	}
	_, err := self.ReasonMask()
	return err
}

// LoadOptions overlays the TOML file at path on the default options.
func LoadOptions(path string) (Options, error) {
	options := GetDefaultOptions()
	if path == "" {
		return options, nil
	}

	_, err := toml.DecodeFile(path, &options)
	if err != nil {
		return options, errors.Wrapf(err, "loading options from %s", path)
	}

	return options, options.validate()
}
