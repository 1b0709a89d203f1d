package invoke

import (
	"bytes"
	"sync"
)

// Write-ordered buffer safe for concurrent writers.
//
// An entry point may write to the same stream from several goroutines; every
// write lands whole and in the order it acquired the lock.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

// Returns a copy of the buffered bytes.
func (b *syncBuffer) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return bytes.Clone(b.buf.Bytes())
}
