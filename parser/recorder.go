package parser

import (
	"crypto/sha1"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// A Recorder wraps a Device and stores every control response under a
// directory. Without a delegate it replays the stored responses
// instead, which allows a session captured on windows to be analysed
// (and tested) anywhere.
type Recorder struct {
	fs   afero.Fs
	path string

	// Delegate device. nil means replay.
	delegate Device

	volume recordedVolume
}

type recordedVolume struct {
	VolumeName   string
	SerialNumber uint32
}

const recorderVolumeFile = "volume.json"

// NewRecorder records the responses of delegate into path. When
// delegate is nil the recording in path is replayed.
func NewRecorder(fs afero.Fs, path string, delegate Device) (*Recorder, error) {
	result := &Recorder{fs: fs, path: path, delegate: delegate}
	volume_path := filepath.Join(path, recorderVolumeFile)

	if delegate == nil {
		data, err := afero.ReadFile(fs, volume_path)
		if err != nil {
			return nil, errors.Wrapf(err, "no recording in %s", path)
		}
		err = json.Unmarshal(data, &result.volume)
		if err != nil {
			return nil, errors.Wrap(err, volume_path)
		}
		return result, nil
	}

	result.volume = recordedVolume{
		VolumeName:   delegate.VolumeName(),
		SerialNumber: delegate.SerialNumber(),
	}

	err := fs.MkdirAll(path, 0700)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	data, err := json.MarshalIndent(result.volume, "", " ")
	if err != nil {
		return nil, errors.WithStack(err)
	}

	err = afero.WriteFile(fs, volume_path, data, 0600)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	return result, nil
}

// Each response is keyed by the control code and a hash of the input
// buffer. Repeating a request overwrites the earlier response.
func (self *Recorder) key(code uint32, in []byte) string {
	return filepath.Join(self.path,
		fmt.Sprintf("%08x-%x", code, sha1.Sum(in)))
}

func (self *Recorder) DeviceIoControl(code uint32, in, out []byte) (int, error) {
	key := self.key(code, in)

	if self.delegate == nil {
		return self.replay(key, out)
	}

	n, err := self.delegate.DeviceIoControl(code, in, out)
	if err != nil {
		self.writeError(key, err)
		return n, err
	}

	self.fs.Remove(key + ".err")
	write_err := afero.WriteFile(self.fs, key+".bin", out[:n], 0600)
	if write_err != nil {
		DebugPrint("Recorder: %v\n", write_err)
	}
	return n, nil
}

func (self *Recorder) writeError(key string, err error) {
	self.fs.Remove(key + ".bin")
	code := strconv.FormatUint(uint64(NativeCode(err)), 10)
	write_err := afero.WriteFile(self.fs, key+".err", []byte(code), 0600)
	if write_err != nil {
		DebugPrint("Recorder: %v\n", write_err)
	}
}

// recordedError returns the error stored for key, if any.
func (self *Recorder) recordedError(key string) error {
	data, err := afero.ReadFile(self.fs, key+".err")
	if err != nil {
		return nil
	}

	code, err := strconv.ParseUint(strings.TrimSpace(string(data)), 10, 32)
	if err != nil {
		return errors.Wrap(err, key)
	}
	return syscall.Errno(code)
}

func (self *Recorder) replay(key string, out []byte) (int, error) {
	if err := self.recordedError(key); err != nil {
		return 0, err
	}

	data, err := afero.ReadFile(self.fs, key+".bin")
	if err != nil {
		// Nothing was recorded for this request.
		return 0, errors.Wrapf(syscall.Errno(ERROR_INVALID_FUNCTION),
			"replay %s", filepath.Base(key))
	}

	if len(data) > len(out) {
		return 0, syscall.Errno(ERROR_INVALID_USER_BUFFER)
	}
	return copy(out, data), nil
}

func (self *Recorder) fileKey(frn uint64) string {
	return filepath.Join(self.path, fmt.Sprintf("frn-%016x", frn))
}

func (self *Recorder) OpenFileReference(frn uint64) (FileObject, error) {
	key := self.fileKey(frn)

	if self.delegate == nil {
		if err := self.recordedError(key); err != nil {
			return nil, err
		}
		return &replayedFile{recorder: self, key: key}, nil
	}

	file, err := self.delegate.OpenFileReference(frn)
	if err != nil {
		self.writeError(key, err)
		return nil, err
	}
	return &recordedFile{FileObject: file, recorder: self, key: key}, nil
}

func (self *Recorder) VolumeName() string {
	return self.volume.VolumeName
}

func (self *Recorder) SerialNumber() uint32 {
	return self.volume.SerialNumber
}

func (self *Recorder) Close() error {
	if self.delegate == nil {
		return nil
	}
	return self.delegate.Close()
}

type recordedFile struct {
	FileObject
	recorder *Recorder
	key      string
}

func (self *recordedFile) Name() (string, error) {
	name, err := self.FileObject.Name()
	if err != nil {
		self.recorder.writeError(self.key, err)
		return "", err
	}

	write_err := afero.WriteFile(self.recorder.fs, self.key+".path",
		[]byte(name), 0600)
	if write_err != nil {
		DebugPrint("Recorder: %v\n", write_err)
	}
	return name, nil
}

type replayedFile struct {
	recorder *Recorder
	key      string
}

func (self *replayedFile) Name() (string, error) {
	data, err := afero.ReadFile(self.recorder.fs, self.key+".path")
	if err != nil {
		if os.IsNotExist(err) {
			return "", syscall.Errno(ERROR_INVALID_PARAMETER)
		}
		return "", errors.WithStack(err)
	}
	return string(data), nil
}

func (self *replayedFile) Close() error {
	return nil
}
