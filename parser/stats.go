package parser

import (
	"sync"

	"github.com/Velocidex/ordereddict"
)

var (
	STATS = Stats{}
)

type Stats struct {
	mu sync.Mutex

	Ioctls          int
	IoctlErrors     int
	RecordsDecoded  int
	MFTBatches      int
	JournalBatches  int
	PathResolutions int
	PathCacheHits   int
}

func (self *Stats) Dict() *ordereddict.Dict {
	self.mu.Lock()
	defer self.mu.Unlock()

	return ordereddict.NewDict().
		Set("Ioctls", self.Ioctls).
		Set("IoctlErrors", self.IoctlErrors).
		Set("RecordsDecoded", self.RecordsDecoded).
		Set("MFTBatches", self.MFTBatches).
		Set("JournalBatches", self.JournalBatches).
		Set("PathResolutions", self.PathResolutions).
		Set("PathCacheHits", self.PathCacheHits)
}

func (self *Stats) Inc_Ioctls(failed bool) {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.Ioctls++
	if failed {
		self.IoctlErrors++
	}
}

func (self *Stats) Inc_RecordsDecoded() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.RecordsDecoded++
}

func (self *Stats) Inc_MFTBatches() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.MFTBatches++
}

func (self *Stats) Inc_JournalBatches() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.JournalBatches++
}

func (self *Stats) Inc_PathResolutions() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.PathResolutions++
}

func (self *Stats) Inc_PathCacheHits() {
	self.mu.Lock()
	defer self.mu.Unlock()

	self.PathCacheHits++
}
