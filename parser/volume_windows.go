//go:build windows
// +build windows

package parser

import (
	"encoding/binary"
	"strings"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

const (
	// NtCreateFile create options.
	fileOpenByFileId          = 0x00002000
	fileOpenForBackupIntent   = 0x00004000
	fileSynchronousIoNonalert = 0x00000020

	// FILE_INFO_BY_HANDLE_CLASS
	fileNameInfo = 2

	maxPathBuffer = 0x8000
)

type volumeDevice struct {
	name   string
	handle windows.Handle
	serial uint32

	close_once sync.Once
	close_err  error
}

// OpenVolume opens the raw device of an NTFS volume.
func OpenVolume(volume string) (Device, error) {
	name, err := normalizeVolumeName(volume)
	if err != nil {
		return nil, err
	}

	err = checkNtfs(name)
	if err != nil {
		return nil, err
	}

	path, err := windows.UTF16PtrFromString(devicePath(name))
	if err != nil {
		return nil, newError(KindInvalidHandle, "open", "%v", err)
	}

	handle, err := windows.CreateFile(path,
		windows.GENERIC_READ|windows.GENERIC_WRITE,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE,
		nil, windows.OPEN_EXISTING, 0, 0)
	if err != nil {
		return nil, translateError("open "+devicePath(name), err)
	}

	var info windows.ByHandleFileInformation
	err = windows.GetFileInformationByHandle(handle, &info)
	if err != nil {
		windows.CloseHandle(handle)
		return nil, translateError("open "+devicePath(name), err)
	}

	DebugPrint("Opened %v serial %#08x\n", devicePath(name),
		info.VolumeSerialNumber)

	return &volumeDevice{
		name:   name,
		handle: handle,
		serial: info.VolumeSerialNumber,
	}, nil
}

// checkNtfs fails unless the mounted filesystem is NTFS. No handle is
// opened before this passes.
func checkNtfs(name string) error {
	root, err := windows.UTF16PtrFromString(rootPath(name))
	if err != nil {
		return newError(KindNotNtfsVolume, "open", "%v", err)
	}

	fs_name := make([]uint16, windows.MAX_PATH+1)
	err = windows.GetVolumeInformation(root, nil, 0, nil, nil, nil,
		&fs_name[0], uint32(len(fs_name)))
	if err != nil {
		return &JournalError{
			Kind: KindNotNtfsVolume,
			Code: NativeCode(err),
			Op:   "open " + rootPath(name),
			Err:  err,
		}
	}

	fs_type := windows.UTF16ToString(fs_name)
	if !strings.EqualFold(fs_type, "NTFS") {
		return newError(KindNotNtfsVolume, "open",
			"%s is formatted as %q", name, fs_type)
	}
	return nil
}

func (self *volumeDevice) DeviceIoControl(code uint32, in, out []byte) (int, error) {
	var in_ptr, out_ptr *byte
	if len(in) > 0 {
		in_ptr = &in[0]
	}
	if len(out) > 0 {
		out_ptr = &out[0]
	}

	var returned uint32
	err := windows.DeviceIoControl(self.handle, code,
		in_ptr, uint32(len(in)), out_ptr, uint32(len(out)), &returned, nil)
	return int(returned), err
}

func (self *volumeDevice) OpenFileReference(frn uint64) (FileObject, error) {
	id := make([]byte, 8)
	binary.LittleEndian.PutUint64(id, frn)

	object_name := windows.NTUnicodeString{
		Length:        8,
		MaximumLength: 8,
		Buffer:        (*uint16)(unsafe.Pointer(&id[0])),
	}

	attributes := windows.OBJECT_ATTRIBUTES{
		RootDirectory: self.handle,
		ObjectName:    &object_name,
	}
	attributes.Length = uint32(unsafe.Sizeof(attributes))

	var handle windows.Handle
	var iosb windows.IO_STATUS_BLOCK
	err := windows.NtCreateFile(&handle,
		windows.GENERIC_READ|windows.SYNCHRONIZE,
		&attributes, &iosb, nil, 0,
		windows.FILE_SHARE_READ|windows.FILE_SHARE_WRITE|windows.FILE_SHARE_DELETE,
		windows.FILE_OPEN,
		fileOpenByFileId|fileOpenForBackupIntent|fileSynchronousIoNonalert,
		0, 0)
	if err != nil {
		if status, ok := err.(windows.NTStatus); ok {
			return nil, status.Errno()
		}
		return nil, err
	}

	return &fileObject{handle: handle}, nil
}

func (self *volumeDevice) VolumeName() string {
	return self.name
}

func (self *volumeDevice) SerialNumber() uint32 {
	return self.serial
}

func (self *volumeDevice) Close() error {
	self.close_once.Do(func() {
		self.close_err = windows.CloseHandle(self.handle)
	})
	return self.close_err
}

type fileObject struct {
	handle windows.Handle

	close_once sync.Once
}

// Name queries FILE_NAME_INFO: a byte length followed by the UTF-16
// path relative to the volume root.
func (self *fileObject) Name() (string, error) {
	buf := make([]byte, 4+2*maxPathBuffer)
	err := windows.GetFileInformationByHandleEx(self.handle, fileNameInfo,
		&buf[0], uint32(len(buf)))
	if err != nil {
		return "", err
	}

	reader := NewBuffer(buf)
	length, _ := reader.Uint32At(0)
	return reader.UTF16At(4, int(length)/2)
}

func (self *fileObject) Close() error {
	var err error
	self.close_once.Do(func() {
		err = windows.CloseHandle(self.handle)
	})
	return err
}
