package parser

import (
	"path/filepath"
	"strings"
)

// A RecordFilter selects records yielded by an enumeration. A nil
// filter accepts everything.
type RecordFilter func(record *ChangeRecord) bool

func FoldersOnly(record *ChangeRecord) bool {
	return record.IsFolder()
}

func FilesOnly(record *ChangeRecord) bool {
	return record.IsFile()
}

// Extension returns the lower cased extension of name without the
// dot, or "" if it has none.
func Extension(name string) string {
	ext := filepath.Ext(name)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// NewExtensionFilter builds a filter accepting files (never folders)
// whose extension is in pattern. The pattern is a space, comma or semicolon
// separated list such as "txt, *.doc;.PDF". "*" or an empty pattern
// accepts every file.
func NewExtensionFilter(pattern string) RecordFilter {
	extensions := make(map[string]bool)
	accept_all := false

	for _, token := range strings.FieldsFunc(strings.ToLower(pattern),
		func(c rune) bool {
			return c == ' ' || c == ',' || c == ';' || c == '\t'
		}) {
		if token == "*" || token == "*.*" {
			accept_all = true
			break
		}

		token = strings.TrimPrefix(strings.TrimPrefix(token, "*"), ".")
		if token != "" {
			extensions[token] = true
		}
	}

	if len(extensions) == 0 {
		accept_all = true
	}

	return func(record *ChangeRecord) bool {
		if !record.IsFile() {
			return false
		}
		if accept_all {
			return true
		}
		return extensions[Extension(record.Name)]
	}
}
