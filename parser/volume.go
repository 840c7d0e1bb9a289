package parser

import (
	"strings"
)

// normalizeVolumeName accepts a drive letter in any of the usual
// spellings ("c", "C:", `C:\`, `\\.\C:`) and returns it as "C:".
func normalizeVolumeName(volume string) (string, error) {
	name := strings.TrimSpace(volume)
	name = strings.TrimPrefix(name, `\\.\`)
	name = strings.TrimPrefix(name, `\\?\`)
	name = strings.TrimRight(name, `\/`)
	name = strings.TrimSuffix(name, ":")

	if len(name) != 1 || !isDriveLetter(name[0]) {
		return "", newError(KindInvalidHandle, "open",
			"%q is not a drive letter", volume)
	}

	return strings.ToUpper(name) + ":", nil
}

func isDriveLetter(c byte) bool {
	return ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// devicePath is the path of the raw volume device, e.g. \\.\C:
func devicePath(name string) string {
	return `\\.\` + name
}

// rootPath is the root folder of the mounted volume, e.g. C:\
func rootPath(name string) string {
	return name + `\`
}
