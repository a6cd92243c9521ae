// Package buffers provides reusable byte buffers for copying transfer bodies
// and imported media, to reduce heap allocations during transfers.
package buffers

import (
	"sync"
	"sync/atomic"

	"github.com/catrobat/catroid-share/internal/constants"
)

// Pool monitoring counters
var (
	copyAllocations int64 // Total copy buffer allocations (new creates)
	copyGets        int64 // Total copy buffer retrievals
)

var copyPool = &sync.Pool{
	New: func() interface{} {
		atomic.AddInt64(&copyAllocations, 1)
		buf := make([]byte, constants.CopyBufferSize)
		return &buf
	},
}

// GetCopyBuffer retrieves a CopyBufferSize buffer from the pool.
// The buffer must be returned with PutCopyBuffer when done.
//
// Usage:
//
//	buf := buffers.GetCopyBuffer()
//	defer buffers.PutCopyBuffer(buf)
//	_, err := io.CopyBuffer(dst, src, *buf)
func GetCopyBuffer() *[]byte {
	atomic.AddInt64(&copyGets, 1)
	return copyPool.Get().(*[]byte)
}

// PutCopyBuffer returns a buffer to the pool for reuse.
// Only buffers of the correct size are pooled. The buffer is cleared so
// project data does not linger across uses.
func PutCopyBuffer(buf *[]byte) {
	if buf != nil && len(*buf) == constants.CopyBufferSize {
		clear(*buf)
		copyPool.Put(buf)
	}
}

// Stats returns current buffer pool statistics
type Stats struct {
	CopyBufferSize  int   // Size of copy buffers (bytes)
	CopyAllocations int64 // Total copy buffer allocations (new creates)
	CopyGets        int64 // Total copy buffer retrievals
}

// GetStats returns a snapshot of the pool counters.
func GetStats() Stats {
	return Stats{
		CopyBufferSize:  constants.CopyBufferSize,
		CopyAllocations: atomic.LoadInt64(&copyAllocations),
		CopyGets:        atomic.LoadInt64(&copyGets),
	}
}
