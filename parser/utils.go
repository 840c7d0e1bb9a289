package parser

import (
	"strings"
	"time"
)

const (
	// 100ns intervals between 1601-01-01 and 1970-01-01.
	filetimeEpochDelta = 11644473600000 * 10000
)

func filetimeToUnixtime(ft uint64) uint64 {
	return (ft - filetimeEpochDelta) * 100
}

// FileTimeToTime converts a windows FILETIME into UTC. Zero (and
// anything before the unix epoch) maps to the zero time.
func FileTimeToTime(ft uint64) time.Time {
	if ft < filetimeEpochDelta {
		return time.Time{}
	}
	return time.Unix(0, int64(filetimeToUnixtime(ft))).UTC()
}

func TimeToFileTime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.UnixNano()/100) + filetimeEpochDelta
}

// JoinPath joins a root relative parent path with a component using
// the windows separator.
func JoinPath(parent, name string) string {
	parent = strings.TrimRight(parent, "\\")
	return parent + "\\" + name
}
