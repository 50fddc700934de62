package store

import "sync"

// Key prefixes. Composite keys join their parts with ':'.
const (
	bookPrefix    = "book:"
	chapterPrefix = "chapter:"
	textPrefix    = "text:"
	audioPrefix   = "audio:"
)

// keyPool provides reusable byte slices for building database keys.
// This reduces allocations on the hot path of database operations.
var keyPool = sync.Pool{
	New: func() any {
		// 256 bytes covers prefix + two NanoIDs or a signature comfortably.
		return make([]byte, 0, 256)
	},
}

// buildKey constructs a database key from a prefix and parts using a pooled
// buffer. Callers MUST call releaseKey when done with the key.
func buildKey(prefix string, parts ...string) []byte {
	buf, _ := keyPool.Get().([]byte)
	buf = buf[:0] // Reset length, keep capacity
	buf = append(buf, prefix...)
	for i, p := range parts {
		if i > 0 {
			buf = append(buf, ':')
		}
		buf = append(buf, p...)
	}
	return buf
}

// releaseKey returns a key buffer to the pool for reuse.
// After calling this, the key slice must not be used.
func releaseKey(key []byte) {
	// Avoids keeping oversized buffers in the pool
	if cap(key) <= 512 {
		keyPool.Put(key[:0])
	}
}
