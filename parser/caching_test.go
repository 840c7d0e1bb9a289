package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPathCacheObserve(t *testing.T) {
	cache, err := NewPathCache(10)
	require.NoError(t, err)

	cache.Set(0x30, `\Users`)
	cache.Set(0x40, `\Users\a.txt`)
	cache.Set(0x41, `\Users\b.txt`)

	// Content changes leave the cache alone.
	cache.Observe(testRecord(0x40, 0x30, "a.txt",
		USN_REASON_DATA_EXTEND|USN_REASON_CLOSE, 0))
	_, pres := cache.Get(0x40)
	assert.True(t, pres)

	// A file rename only evicts that file.
	cache.Observe(testRecord(0x40, 0x30, "a.txt",
		USN_REASON_RENAME_OLD_NAME, 0))
	_, pres = cache.Get(0x40)
	assert.False(t, pres)
	_, pres = cache.Get(0x30)
	assert.True(t, pres)

	cache.Observe(testRecord(0x41, 0x30, "b.txt", USN_REASON_FILE_DELETE, 0))
	_, pres = cache.Get(0x41)
	assert.False(t, pres)

	// A folder rename invalidates everything below it.
	cache.Set(0x40, `\Users\a.txt`)
	cache.Observe(testRecord(0x30, 5, "Users",
		USN_REASON_RENAME_NEW_NAME, FILE_ATTRIBUTE_DIRECTORY))
	_, pres = cache.Get(0x30)
	assert.False(t, pres)
	_, pres = cache.Get(0x40)
	assert.False(t, pres)

	purges, _ := cache.Stats().Get("Purges")
	assert.Equal(t, 1, purges)

	// A disabled cache ignores everything.
	var disabled *PathCache
	disabled.Set(0x30, `\Users`)
	disabled.Observe(testRecord(0x30, 5, "Users",
		USN_REASON_FILE_DELETE, FILE_ATTRIBUTE_DIRECTORY))
	_, pres = disabled.Get(0x30)
	assert.False(t, pres)
}
