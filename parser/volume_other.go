//go:build !windows
// +build !windows

package parser

// OpenVolume needs the windows filesystem driver. Elsewhere use a
// replayed Recorder as the Device.
func OpenVolume(volume string) (Device, error) {
	name, err := normalizeVolumeName(volume)
	if err != nil {
		return nil, err
	}
	return nil, newError(KindInvalidHandle, "open",
		"%s: live volumes are only supported on windows", devicePath(name))
}
