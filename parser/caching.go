// Cache resolved paths of parent directories. Many records share the
// same parent so resolving each one through the driver is wasteful.

package parser

import (
	"sync"

	"github.com/Velocidex/ordereddict"
	lru "github.com/hashicorp/golang-lru"
)

type PathCache struct {
	mu sync.Mutex

	lru *lru.Cache

	hits, misses, purges int
}

// NewPathCache returns nil when size is 0. A nil cache is valid and
// caches nothing.
func NewPathCache(size int) (*PathCache, error) {
	if size <= 0 {
		return nil, nil
	}

	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &PathCache{lru: cache}, nil
}

func (self *PathCache) Get(frn uint64) (string, bool) {
	if self == nil {
		return "", false
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	value, pres := self.lru.Get(frn)
	if !pres {
		self.misses++
		return "", false
	}
	self.hits++
	return value.(string), true
}

func (self *PathCache) Set(frn uint64, path string) {
	if self == nil {
		return
	}
	self.lru.Add(frn, path)
}

// Observe drops cached paths that a record may have invalidated. A
// renamed or deleted folder changes the path of everything below it
// so the whole cache goes. A renamed or deleted file only loses its
// own entry.
func (self *PathCache) Observe(record *ChangeRecord) {
	if self == nil || !record.HasReason(USN_REASON_RENAME_OLD_NAME|
		USN_REASON_RENAME_NEW_NAME|USN_REASON_FILE_DELETE) {
		return
	}

	if record.IsFolder() {
		self.Purge()
		return
	}
	self.lru.Remove(record.FileReferenceNumber)
}

func (self *PathCache) Purge() {
	if self == nil {
		return
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	self.purges++
	self.lru.Purge()
}

func (self *PathCache) Stats() *ordereddict.Dict {
	result := ordereddict.NewDict()
	if self == nil {
		return result.Set("Enabled", false)
	}

	self.mu.Lock()
	defer self.mu.Unlock()

	return result.Set("Enabled", true).
		Set("Size", self.lru.Len()).
		Set("Hits", self.hits).
		Set("Misses", self.misses).
		Set("Purges", self.purges)
}
