package parser

import (
	"os"
	"strings"
	"sync"

	"github.com/davecgh/go-spew/spew"
	"github.com/sirupsen/logrus"
)

var (
	// Logger receives all engine logging. Callers may replace it or
	// change its level.
	Logger = logrus.New()

	usn_debug      bool
	usn_debug_once sync.Once
)

func Debug(arg interface{}) {
	spew.Dump(arg)
}

type Debugger interface {
	DebugString() string
}

// DebugString indents the debug representation of arg.
func DebugString(arg interface{}, indent string) string {
	debugger, ok := arg.(Debugger)
	if ok {
		lines := strings.Split(debugger.DebugString(), "\n")
		for idx, line := range lines {
			lines[idx] = indent + line
		}
		return strings.Join(lines, "\n")
	}

	return ""
}

// DebugPrint logs at debug level. Setting USN_DEBUG in the
// environment turns debug logging on.
func DebugPrint(fmt_str string, v ...interface{}) {
	usn_debug_once.Do(func() {
		_, usn_debug = os.LookupEnv("USN_DEBUG")
		if usn_debug {
			Logger.SetLevel(logrus.DebugLevel)
		}
	})

	Logger.Debugf(strings.TrimRight(fmt_str, "\n"), v...)
}
